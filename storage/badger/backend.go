package badger

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"

	"github.com/chattyhq/ragstore/core"
	"github.com/chattyhq/ragstore/storage"
	"github.com/chattyhq/ragstore/vecindex"
)

const (
	defaultSequenceBandwidth = 100
)

// Backend wraps a BadgerDB instance and provides low-level operations,
// including similarity search over the stored chunk vectors.
type Backend struct {
	db     *badger.DB
	logger *slog.Logger

	// ANN configuration; clusters == 0 means every search is an exact scan.
	annClusters int
	annProbe    int

	// Cached index snapshot, invalidated by bumping gen on every chunk write.
	gen    atomic.Uint64
	idxMu  sync.Mutex
	idx    vecindex.Index
	idxGen uint64
}

// Option configures a Backend.
type Option func(*Backend)

// WithVectorIndex enables an approximate inverted-file index over the chunk
// embeddings. clusters is fixed at index build time and trades accuracy for
// speed together with nprobe, the number of clusters scanned per query.
// Without this option every search is an exact brute-force scan.
func WithVectorIndex(clusters, nprobe int) Option {
	return func(b *Backend) {
		b.annClusters = clusters
		b.annProbe = nprobe
	}
}

// badgerLoggerAdapter adapts slog.Logger to badger.Logger interface.
type badgerLoggerAdapter struct {
	logger *slog.Logger
}

var _ badger.Logger = (*badgerLoggerAdapter)(nil)

func (bl *badgerLoggerAdapter) Errorf(msg string, items ...any) {
	bl.logger.Error(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Warningf(msg string, items ...any) {
	bl.logger.Warn(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Infof(msg string, items ...any) {
	bl.logger.Info(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Debugf(msg string, items ...any) {
	bl.logger.Debug(fmt.Sprintf(msg, items...))
}

// OpenBackend opens a BadgerDB database at the specified path.
// Creates the directory if it doesn't exist.
func OpenBackend(filePath string, inMemory bool, opts ...Option) (*Backend, error) {
	var dbOpts badger.Options

	if inMemory {
		dbOpts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		// Ensure directory exists
		info, err := os.Stat(filePath)
		if err != nil {
			if os.IsNotExist(err) {
				if err := os.MkdirAll(filePath, 0755); err != nil {
					return nil, err
				}
				info, err = os.Stat(filePath)
				if err != nil {
					return nil, err
				}
			} else {
				return nil, err
			}
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("%s is not a directory", filePath)
		}
		dbOpts = badger.DefaultOptions(filePath)
	}

	dbOpts.Logger = &badgerLoggerAdapter{logger: slog.Default()}
	dbOpts.Compression = options.None

	db, err := badger.Open(dbOpts)
	if err != nil {
		return nil, err
	}

	b := &Backend{
		db:     db,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

// Close closes the BadgerDB database.
func (b *Backend) Close() error {
	return b.db.Close()
}

// IsClosed returns true if the database is closed.
func (b *Backend) IsClosed() bool {
	return b.db.IsClosed()
}

// WithTx executes a function within a BadgerDB transaction.
// If isWrite is true, creates a read-write transaction.
// The transaction is automatically discarded if fn returns an error.
func (b *Backend) WithTx(fn func(tx *badger.Txn) error, isWrite bool) error {
	tx := b.db.NewTransaction(isWrite)
	defer tx.Discard()
	return fn(tx)
}

// GetSequence returns a BadgerDB sequence for generating sequential IDs.
func (b *Backend) GetSequence(name string) (*badger.Sequence, error) {
	return b.db.GetSequence([]byte(name), defaultSequenceBandwidth)
}

// invalidateIndex marks the cached vector index stale.
// Called after every committed chunk mutation.
func (b *Backend) invalidateIndex() {
	b.gen.Add(1)
}

// currentIndex returns an index snapshot covering every embedded chunk,
// rebuilding the cached one when the chunk set has changed since it was
// built.
func (b *Backend) currentIndex() (vecindex.Index, error) {
	b.idxMu.Lock()
	defer b.idxMu.Unlock()

	gen := b.gen.Load()
	if b.idx != nil && b.idxGen == gen {
		return b.idx, nil
	}

	entries, err := b.loadEntries()
	if err != nil {
		return nil, err
	}

	b.idx = vecindex.BuildIVF(entries, b.annClusters, b.annProbe)
	b.idxGen = gen
	b.logger.Debug("rebuilt vector index", "entries", len(entries), "gen", gen)
	return b.idx, nil
}

// loadEntries scans all chunks and collects the embedded ones.
func (b *Backend) loadEntries() ([]vecindex.Entry, error) {
	var entries []vecindex.Entry
	err := b.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(chunkKeyPrefix)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var chunk *core.Chunk
			err := iter.Item().Value(func(val []byte) error {
				var err error
				chunk, err = storage.UnmarshalChunk(val)
				return err
			})
			if err != nil {
				return err
			}
			if chunk == nil || !chunk.Embedded() {
				continue
			}
			entries = append(entries, vecindex.Entry{ID: chunk.Id, Vector: chunk.Vector})
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// Search finds chunks similar to the query vector.
// Only chunks with similarity strictly greater than threshold are returned,
// ordered by descending similarity, ties broken by ascending creation time
// then ascending chunk ID, limited to limit results.
//
// All reads happen inside a single transaction, so a search always observes
// one complete committed chunk set even while a replacement is in flight.
func (b *Backend) Search(ctx context.Context, query []float32, threshold float32, limit int) ([]*core.ScoredChunk, error) {
	if len(query) == 0 {
		return nil, fmt.Errorf("%w: empty query vector", storage.ErrInvalidQuery)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var results []*core.ScoredChunk
	err := b.WithTx(func(tx *badger.Txn) error {
		var err error
		results, err = b.searchTx(tx, query, threshold)
		return err
	}, false)
	if err != nil {
		return nil, err
	}

	slices.SortFunc(results, func(a, b *core.ScoredChunk) int {
		if a.Similarity > b.Similarity {
			return -1
		}
		if a.Similarity < b.Similarity {
			return 1
		}
		if !a.Chunk.CreatedAt.Equal(b.Chunk.CreatedAt) {
			if a.Chunk.CreatedAt.Before(b.Chunk.CreatedAt) {
				return -1
			}
			return 1
		}
		if a.Chunk.Id < b.Chunk.Id {
			return -1
		}
		if a.Chunk.Id > b.Chunk.Id {
			return 1
		}
		return 0
	})

	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// searchTx collects all chunks above threshold within one transaction. The
// cached ANN index only supplies candidate IDs; chunk IDs are never reused,
// so a candidate the transaction cannot resolve means the snapshot has
// diverged from this transaction's view, and the search falls back to an
// exact scan inside the same transaction.
func (b *Backend) searchTx(tx *badger.Txn, query []float32, threshold float32) ([]*core.ScoredChunk, error) {
	if b.annClusters > 0 {
		results, ok, err := b.searchWithIndex(tx, query, threshold)
		if err != nil {
			return nil, err
		}
		if ok {
			return results, nil
		}
	}
	return b.scanSimilar(tx, query, threshold)
}

// searchWithIndex resolves index candidates against the transaction.
// ok is false when the snapshot is stale relative to the transaction.
func (b *Backend) searchWithIndex(tx *badger.Txn, query []float32, threshold float32) ([]*core.ScoredChunk, bool, error) {
	idx, err := b.currentIndex()
	if err != nil {
		return nil, false, err
	}

	candidates := idx.Search(query, 0)

	results := make([]*core.ScoredChunk, 0, len(candidates))
	for _, cand := range candidates {
		if cand.Similarity <= threshold {
			// Candidates are similarity-ordered; everything after is below too
			break
		}
		chunk, err := readChunk(tx, makeChunkKey(cand.ID))
		if err != nil {
			return nil, false, err
		}
		if chunk == nil {
			return nil, false, nil
		}
		results = append(results, &core.ScoredChunk{
			Chunk:      chunk,
			Similarity: cand.Similarity,
		})
	}
	return results, true, nil
}

// scanSimilar brute-force scans every embedded chunk visible to the
// transaction and scores it against the query.
func (b *Backend) scanSimilar(tx *badger.Txn, query []float32, threshold float32) ([]*core.ScoredChunk, error) {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = []byte(chunkKeyPrefix)
	iter := tx.NewIterator(opts)
	defer iter.Close()

	var results []*core.ScoredChunk
	for iter.Rewind(); iter.Valid(); iter.Next() {
		var chunk *core.Chunk
		err := iter.Item().Value(func(val []byte) error {
			var err error
			chunk, err = storage.UnmarshalChunk(val)
			return err
		})
		if err != nil {
			return nil, err
		}
		if chunk == nil || !chunk.Embedded() {
			continue
		}
		similarity := vecindex.CosineSimilarity(query, chunk.Vector)
		if similarity > threshold {
			results = append(results, &core.ScoredChunk{
				Chunk:      chunk,
				Similarity: similarity,
			})
		}
	}
	return results, nil
}

// readChunk reads and unmarshals a chunk by key.
// Returns nil without error if the key doesn't exist.
func readChunk(tx *badger.Txn, key []byte) (*core.Chunk, error) {
	item, err := tx.Get(key)
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}
	var chunk *core.Chunk
	err = item.Value(func(val []byte) error {
		var err error
		chunk, err = storage.UnmarshalChunk(val)
		return err
	})
	if err != nil {
		return nil, err
	}
	return chunk, nil
}

// readDocument reads and unmarshals a document by key.
// Returns nil without error if the key doesn't exist.
func readDocument(tx *badger.Txn, key []byte) (*core.Document, error) {
	item, err := tx.Get(key)
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}
	var doc *core.Document
	err = item.Value(func(val []byte) error {
		var err error
		doc, err = storage.UnmarshalDocument(val)
		return err
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}
