package badger

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/chattyhq/ragstore/core"
	"github.com/chattyhq/ragstore/storage"
)

// DocumentRepository implements storage.DocumentRepository for BadgerDB.
type DocumentRepository struct {
	backend *Backend
	idSeq   *badger.Sequence
}

var _ storage.DocumentRepository = (*DocumentRepository)(nil)

// NewDocumentRepository creates a new DocumentRepository.
//
// Returns the concrete type; callers hold it as storage.DocumentRepository.
func NewDocumentRepository(backend *Backend) (*DocumentRepository, error) {
	idSeq, err := backend.GetSequence(chunkIDSeq)
	if err != nil {
		return nil, err
	}

	return &DocumentRepository{
		backend: backend,
		idSeq:   idSeq,
	}, nil
}

// Close releases the chunk ID sequence.
func (r *DocumentRepository) Close() error {
	return r.idSeq.Release()
}

// UpsertDocument writes document metadata idempotently and returns the ID.
// A document without an ID gets a content-based one derived from its
// filename, which is what makes re-ingesting the same file target the same
// document row.
func (r *DocumentRepository) UpsertDocument(ctx context.Context, doc *core.Document) (core.ID, error) {
	if err := core.ValidateDocument(doc); err != nil {
		return 0, err
	}
	if doc.Id == 0 {
		doc.Id = core.IDFromContent(doc.Filename)
	}

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeDocumentKey(doc.Id)
		now := time.Now().UTC()

		existing, err := readDocument(tx, key)
		if err != nil {
			return err
		}
		if existing != nil {
			doc.CreatedAt = existing.CreatedAt
		} else {
			doc.CreatedAt = now
		}
		doc.UpdatedAt = now

		if err := tx.Set(key, storage.MarshalDocument(doc)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return 0, err
	}
	return doc.Id, nil
}

// GetDocument retrieves a document by ID.
func (r *DocumentRepository) GetDocument(ctx context.Context, id core.ID) (*core.Document, error) {
	var doc *core.Document
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		doc, err = readDocument(tx, makeDocumentKey(id))
		return err
	}, false)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, storage.ErrNotFound
	}
	return doc, nil
}

// ListDocuments retrieves all documents, most recently created first.
func (r *DocumentRepository) ListDocuments(ctx context.Context) ([]*core.Document, error) {
	var docs []*core.Document
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(documentKeyPrefix)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var doc *core.Document
			err := iter.Item().Value(func(val []byte) error {
				var err error
				doc, err = storage.UnmarshalDocument(val)
				return err
			})
			if err != nil {
				return err
			}
			if doc != nil {
				docs = append(docs, doc)
			}
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}

	slices.SortFunc(docs, func(a, b *core.Document) int {
		if a.CreatedAt.After(b.CreatedAt) {
			return -1
		}
		if a.CreatedAt.Before(b.CreatedAt) {
			return 1
		}
		if a.Id < b.Id {
			return -1
		}
		if a.Id > b.Id {
			return 1
		}
		return 0
	})
	return docs, nil
}

// ReplaceChunks atomically replaces a document's chunk set.
// The delete and insert happen in one transaction, so a concurrent reader
// observes either the fully-old or fully-new set.
func (r *DocumentRepository) ReplaceChunks(ctx context.Context, docID core.ID, chunks []*core.Chunk) ([]*core.Chunk, error) {
	// Validate before touching the store: an invalid replacement set must
	// leave the previously committed chunks intact.
	dims := 0
	for _, chunk := range chunks {
		if err := core.ValidateChunk(chunk); err != nil {
			return nil, err
		}
		if chunk.Embedded() {
			if dims == 0 {
				dims = len(chunk.Vector)
			} else if err := core.ValidateVector(chunk.Vector, dims); err != nil {
				return nil, err
			}
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		docKey := makeDocumentKey(docID)
		doc, err := readDocument(tx, docKey)
		if err != nil {
			return err
		}
		if doc == nil {
			return storage.ErrNotFound
		}

		if err := deleteChunkSet(tx, docID); err != nil {
			return err
		}

		now := time.Now().UTC()
		for _, chunk := range chunks {
			nextID, err := r.idSeq.Next()
			if err != nil {
				return err
			}
			// BadgerDB sequences can return 0 on first call, so we skip it
			if nextID == 0 {
				nextID, err = r.idSeq.Next()
				if err != nil {
					return err
				}
			}
			chunk.Id = core.ID(nextID)
			chunk.DocumentId = docID
			chunk.CreatedAt = now

			if err := tx.Set(makeChunkKey(chunk.Id), storage.MarshalChunk(chunk)); err != nil {
				return err
			}
			if err := tx.Set(makeDocChunkKey(docID, chunk.Id), storage.MarshalID(chunk.Id)); err != nil {
				return err
			}
		}

		doc.UpdatedAt = now
		if err := tx.Set(docKey, storage.MarshalDocument(doc)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return nil, err
	}

	r.backend.invalidateIndex()
	return chunks, nil
}

// GetChunks retrieves a document's chunks in reconstruction (index) order.
func (r *DocumentRepository) GetChunks(ctx context.Context, docID core.ID) ([]*core.Chunk, error) {
	var chunks []*core.Chunk
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		ids, err := chunkIDsForDocument(tx, docID)
		if err != nil {
			return err
		}
		for _, id := range ids {
			chunk, err := readChunk(tx, makeChunkKey(id))
			if err != nil {
				return err
			}
			if chunk != nil {
				chunks = append(chunks, chunk)
			}
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}

	slices.SortFunc(chunks, func(a, b *core.Chunk) int {
		return a.Index - b.Index
	})
	return chunks, nil
}

// CountChunks returns the number of chunks stored for a document.
func (r *DocumentRepository) CountChunks(ctx context.Context, docID core.ID) (int, error) {
	count := 0
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		ids, err := chunkIDsForDocument(tx, docID)
		if err != nil {
			return err
		}
		count = len(ids)
		return nil
	}, false)
	if err != nil {
		return 0, err
	}
	return count, nil
}

// DeleteDocument removes a document and cascades to all its chunks.
func (r *DocumentRepository) DeleteDocument(ctx context.Context, id core.ID) error {
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		docKey := makeDocumentKey(id)
		doc, err := readDocument(tx, docKey)
		if err != nil {
			return err
		}
		if doc == nil {
			return storage.ErrNotFound
		}

		if err := deleteChunkSet(tx, id); err != nil {
			return err
		}
		if err := tx.Delete(docKey); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return err
	}

	r.backend.invalidateIndex()
	return nil
}

// Search delegates to the backend.
func (r *DocumentRepository) Search(ctx context.Context, query []float32, threshold float32, limit int) ([]*core.ScoredChunk, error) {
	return r.backend.Search(ctx, query, threshold, limit)
}

// chunkIDsForDocument scans the document -> chunk index.
func chunkIDsForDocument(tx *badger.Txn, docID core.ID) ([]core.ID, error) {
	var ids []core.ID
	opts := badger.DefaultIteratorOptions
	opts.Prefix = makePartialDocChunkKey(docID)
	iter := tx.NewIterator(opts)
	defer iter.Close()

	for iter.Rewind(); iter.Valid(); iter.Next() {
		var id core.ID
		err := iter.Item().Value(func(val []byte) error {
			var err error
			id, err = storage.UnmarshalID(val)
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("%w: %w", storage.ErrSerializationFailed, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// deleteChunkSet removes every chunk of a document together with its index
// entries, within the caller's transaction.
func deleteChunkSet(tx *badger.Txn, docID core.ID) error {
	ids, err := chunkIDsForDocument(tx, docID)
	if err != nil {
		return err
	}
	for _, id := range ids {
		if err := tx.Delete(makeChunkKey(id)); err != nil {
			return err
		}
		if err := tx.Delete(makeDocChunkKey(docID, id)); err != nil {
			return err
		}
	}
	return nil
}
