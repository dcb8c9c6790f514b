package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/chattyhq/ragstore/ai"
	"github.com/chattyhq/ragstore/chunker"
	"github.com/chattyhq/ragstore/core"
	"github.com/chattyhq/ragstore/storage"
)

const (
	defaultChunkSize    = 800
	defaultChunkOverlap = 200

	defaultRetryAttempts  = 3
	defaultRetryBaseDelay = 500 * time.Millisecond
)

// Pipeline orchestrates the ingestion of documents into the chunk store.
// It chunks incoming text, embeds the chunks concurrently, and commits the
// result as a single atomic chunk-set replacement.
type Pipeline struct {
	repository storage.DocumentRepository
	embedder   ai.Embedder
	chunker    *chunker.Chunker
	pool       *ants.Pool
	logger     *slog.Logger

	chunkSize    int
	chunkOverlap int

	retryAttempts  int
	retryBaseDelay time.Duration
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithChunking sets the chunk window size and overlap in characters.
// Defaults are 800 and 200.
func WithChunking(size, overlap int) Option {
	return func(p *Pipeline) error {
		if err := core.ValidateChunking(size, overlap); err != nil {
			return err
		}
		p.chunkSize = size
		p.chunkOverlap = overlap
		return nil
	}
}

// WithPoolSize sets the worker pool size for concurrent embedding.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}

		// Release old pool
		if p.pool != nil {
			p.pool.Release()
		}

		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		p.pool = pool
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// WithRetry configures how transient embedding failures are retried.
// Defaults are 3 attempts with a 500ms base delay.
func WithRetry(maxAttempts int, baseDelay time.Duration) Option {
	return func(p *Pipeline) error {
		if maxAttempts <= 0 {
			return ai.ErrInvalidMaxAttempts
		}
		p.retryAttempts = maxAttempts
		p.retryBaseDelay = baseDelay
		return nil
	}
}

// NewPipeline creates a new ingestion pipeline.
func NewPipeline(repository storage.DocumentRepository, provider ai.Provider, opts ...Option) (*Pipeline, error) {
	if repository == nil {
		return nil, ErrRepositoryRequired
	}
	if provider == nil {
		return nil, ErrProviderRequired
	}

	// Default pool size
	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}

	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		repository:     repository,
		embedder:       provider.Embedder(),
		pool:           pool,
		logger:         slog.Default(),
		chunkSize:      defaultChunkSize,
		chunkOverlap:   defaultChunkOverlap,
		retryAttempts:  defaultRetryAttempts,
		retryBaseDelay: defaultRetryBaseDelay,
	}

	// Apply options (may override defaults)
	for _, opt := range opts {
		if optErr := opt(p); optErr != nil {
			p.Release()
			return nil, optErr
		}
	}

	c, err := chunker.New(p.chunkSize, p.chunkOverlap)
	if err != nil {
		p.Release()
		return nil, err
	}
	p.chunker = c

	return p, nil
}

// DocumentInfo describes the document being ingested.
type DocumentInfo struct {
	Filename    string
	Title       string
	ContentType string
	FileSize    int64
}

// ChunkFailure records a chunk that could not be embedded.
type ChunkFailure struct {
	Index int
	Err   error
}

// Report summarizes an ingestion run.
type Report struct {
	DocumentId    core.ID
	ChunksCreated int
	ChunksFailed  int
	Failures      []ChunkFailure
}

// Ingest chunks and embeds text and stores the result under the document
// identified by info.Filename, replacing any chunks from a previous
// ingestion of the same file.
//
// Chunks whose embedding fails with a permanent error are reported in the
// returned Report and skipped; the surviving chunks keep their original
// indices. If every chunk fails, nothing is written and ErrAllChunksFailed
// is returned. A dimension mismatch or a cancelled context aborts the run
// before any write.
func (p *Pipeline) Ingest(ctx context.Context, info DocumentInfo, text string) (*Report, error) {
	if strings.TrimSpace(text) == "" {
		return nil, core.ErrEmptyContent
	}

	windows := p.chunker.Split(text)
	total := len(windows)

	chunks := make([]*core.Chunk, total)
	for i, window := range windows {
		chunks[i] = &core.Chunk{
			Index:   window.Index,
			Content: window.Text,
			Metadata: core.Metadata{
				"filename":     info.Filename,
				"title":        info.Title,
				"chunk_index":  strconv.Itoa(window.Index),
				"total_chunks": strconv.Itoa(total),
				"file_type":    info.ContentType,
				"word_count":   strconv.Itoa(len(strings.Fields(window.Text))),
			},
		}
	}

	failures, err := p.embedChunks(ctx, chunks)
	if err != nil {
		return nil, err
	}

	embedded := make([]*core.Chunk, 0, total)
	for _, chunk := range chunks {
		if chunk.Embedded() {
			embedded = append(embedded, chunk)
		}
	}
	if len(embedded) == 0 {
		return nil, fmt.Errorf("%w: %d chunks", ErrAllChunksFailed, total)
	}

	doc := &core.Document{
		Filename:    info.Filename,
		Title:       info.Title,
		ContentType: info.ContentType,
		FileSize:    info.FileSize,
	}
	docID, err := p.repository.UpsertDocument(ctx, doc)
	if err != nil {
		return nil, err
	}

	if _, err := p.repository.ReplaceChunks(ctx, docID, embedded); err != nil {
		return nil, err
	}

	if len(failures) > 0 {
		p.logger.Warn("ingested document with failed chunks",
			"filename", info.Filename, "created", len(embedded), "failed", len(failures))
	} else {
		p.logger.Info("ingested document",
			"filename", info.Filename, "chunks", len(embedded))
	}

	return &Report{
		DocumentId:    docID,
		ChunksCreated: len(embedded),
		ChunksFailed:  len(failures),
		Failures:      failures,
	}, nil
}

// embedChunks embeds chunks concurrently on the worker pool, retrying
// transient provider errors. Permanent per-chunk failures are collected and
// returned in index order; errors that invalidate the whole run (dimension
// mismatch, cancellation) are returned as err.
func (p *Pipeline) embedChunks(ctx context.Context, chunks []*core.Chunk) ([]ChunkFailure, error) {
	var (
		mu       sync.Mutex
		failures []ChunkFailure
		fatal    error
		wg       sync.WaitGroup
	)

	for _, chunk := range chunks {
		wg.Add(1)
		submitErr := p.pool.Submit(func() {
			defer wg.Done()

			var vector []float32
			err := ai.RetryWithBackoff(ctx, func() error {
				var embedErr error
				vector, embedErr = p.embedder.EmbedText(ctx, chunk.Content)
				return embedErr
			}, p.retryAttempts, p.retryBaseDelay)
			if err == nil {
				chunk.Vector = vector
				return
			}

			mu.Lock()
			defer mu.Unlock()
			if errors.Is(err, core.ErrDimensionMismatch) || ctx.Err() != nil {
				fatal = err
				return
			}
			p.logger.Warn("chunk embedding failed", "index", chunk.Index, "err", err)
			failures = append(failures, ChunkFailure{Index: chunk.Index, Err: err})
		})
		if submitErr != nil {
			wg.Done()
			return nil, submitErr
		}
	}
	wg.Wait()

	if fatal != nil {
		return nil, fatal
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	slices.SortFunc(failures, func(a, b ChunkFailure) int {
		return a.Index - b.Index
	})
	return failures, nil
}

// Release releases the worker pool.
// The pipeline should not be used after calling Release.
func (p *Pipeline) Release() {
	if p.pool != nil {
		p.pool.Release()
	}
}
