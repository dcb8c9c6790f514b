package search

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/chattyhq/ragstore/ai"
	"github.com/chattyhq/ragstore/core"
	"github.com/chattyhq/ragstore/storage"
)

const (
	// DefaultThreshold is the minimum similarity a chunk must exceed to match.
	DefaultThreshold float32 = 0.78

	// DefaultTopK is the maximum number of chunks returned per query.
	DefaultTopK = 5
)

// Retriever answers natural-language queries with the most relevant stored
// chunks. The query is embedded with the same model the chunks were embedded
// with, then matched against the store by cosine similarity.
type Retriever struct {
	repository storage.DocumentRepository
	embedder   ai.Embedder
	logger     *slog.Logger

	threshold  float32
	topK       int
	dimensions int
}

// Option configures a Retriever.
type Option func(*Retriever) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Retriever) error {
		if logger == nil {
			logger = slog.Default()
		}
		r.logger = logger
		return nil
	}
}

// WithThreshold sets the default similarity threshold.
// Chunks match only when their similarity is strictly greater.
func WithThreshold(threshold float32) Option {
	return func(r *Retriever) error {
		if threshold < -1 || threshold > 1 {
			return ErrInvalidThreshold
		}
		r.threshold = threshold
		return nil
	}
}

// WithTopK sets the default maximum number of results per query.
func WithTopK(topK int) Option {
	return func(r *Retriever) error {
		if topK <= 0 {
			return ErrInvalidTopK
		}
		r.topK = topK
		return nil
	}
}

// WithDimensions sets the expected embedding dimensionality. When set, query
// embeddings of a different length are rejected before reaching the store.
func WithDimensions(dimensions int) Option {
	return func(r *Retriever) error {
		r.dimensions = dimensions
		return nil
	}
}

// NewRetriever creates a new retriever.
func NewRetriever(repository storage.DocumentRepository, provider ai.Provider, opts ...Option) (*Retriever, error) {
	if repository == nil {
		return nil, ErrRepositoryRequired
	}
	if provider == nil {
		return nil, ErrProviderRequired
	}

	r := &Retriever{
		repository: repository,
		embedder:   provider.Embedder(),
		logger:     slog.Default(),
		threshold:  DefaultThreshold,
		topK:       DefaultTopK,
	}

	// Apply options
	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}

	return r, nil
}

// QueryOption overrides retrieval parameters for a single query.
type QueryOption func(*querySettings)

type querySettings struct {
	threshold float32
	topK      int
}

// WithQueryThreshold overrides the similarity threshold for one query.
func WithQueryThreshold(threshold float32) QueryOption {
	return func(qs *querySettings) {
		qs.threshold = threshold
	}
}

// WithQueryTopK overrides the result limit for one query.
func WithQueryTopK(topK int) QueryOption {
	return func(qs *querySettings) {
		qs.topK = topK
	}
}

// Retrieve finds the stored chunks most relevant to the query.
// Results are ordered by descending similarity and limited to the
// configured top-k.
func (r *Retriever) Retrieve(ctx context.Context, query string, opts ...QueryOption) ([]*core.ScoredChunk, error) {
	return r.RetrieveWithMonitor(ctx, query, nil, opts...)
}

// RetrieveWithMonitor is Retrieve with per-stage monitoring callbacks.
func (r *Retriever) RetrieveWithMonitor(ctx context.Context, query string, monitor RetrievalMonitor, opts ...QueryOption) ([]*core.ScoredChunk, error) {
	// Use noop monitor if none provided
	if monitor == nil {
		monitor = &noopMonitor{}
	}

	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}

	qs := querySettings{threshold: r.threshold, topK: r.topK}
	for _, opt := range opts {
		opt(&qs)
	}
	if qs.threshold < -1 || qs.threshold > 1 {
		return nil, ErrInvalidThreshold
	}
	if qs.topK <= 0 {
		return nil, ErrInvalidTopK
	}

	monitor.Start(query)

	embedding, err := r.embedder.EmbedText(ctx, query)
	if err != nil {
		r.logger.Error("error generating embedding for query", "query", query, "err", err)
		return nil, err
	}
	if r.dimensions > 0 && len(embedding) != r.dimensions {
		return nil, fmt.Errorf("%w: query embedding has %d dimensions, expected %d",
			core.ErrDimensionMismatch, len(embedding), r.dimensions)
	}
	monitor.AfterQueryEmbedding(embedding)

	matches, err := r.repository.Search(ctx, embedding, qs.threshold, qs.topK)
	if err != nil {
		r.logger.Error("error querying for similar chunks", "err", err)
		return nil, err
	}
	monitor.AfterVectorSearch(matches)

	r.logger.Debug("retrieved chunks", "query", query, "matches", len(matches),
		"threshold", qs.threshold, "topK", qs.topK)

	monitor.Finish(matches)
	return matches, nil
}
