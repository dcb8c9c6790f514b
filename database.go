// Copyright 2025 Chattyhq
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package ragstore

import (
	"io"
	"log/slog"

	"github.com/chattyhq/ragstore/ai"
	"github.com/chattyhq/ragstore/ai/openai"
	"github.com/chattyhq/ragstore/core"
	"github.com/chattyhq/ragstore/ingestion"
	"github.com/chattyhq/ragstore/reembed"
	"github.com/chattyhq/ragstore/search"
	"github.com/chattyhq/ragstore/storage"
	"github.com/chattyhq/ragstore/storage/badger"
)

// Config holds the retrieval parameters shared by the ingestion and search
// layers.
type Config struct {
	// ChunkSize is the chunk window size in characters.
	ChunkSize int

	// ChunkOverlap is the number of characters consecutive windows share.
	ChunkOverlap int

	// MatchThreshold is the minimum cosine similarity a chunk must exceed
	// to be returned from a query.
	MatchThreshold float32

	// TopK is the maximum number of chunks returned per query.
	TopK int
}

// DefaultRAGConfig returns the standard retrieval configuration.
func DefaultRAGConfig() Config {
	return Config{
		ChunkSize:      800,
		ChunkOverlap:   200,
		MatchThreshold: search.DefaultThreshold,
		TopK:           search.DefaultTopK,
	}
}

// Validate checks the configuration for internally inconsistent values.
func (c Config) Validate() error {
	if err := core.ValidateChunking(c.ChunkSize, c.ChunkOverlap); err != nil {
		return err
	}
	if c.MatchThreshold < -1 || c.MatchThreshold > 1 {
		return search.ErrInvalidThreshold
	}
	if c.TopK <= 0 {
		return search.ErrInvalidTopK
	}
	return nil
}

// Database is the top-level handle to a chunk store. It owns the storage
// backend, the document repository, and the embedding provider, and hands
// out ingestion pipelines and retrievers wired to them.
type Database struct {
	backend  *badger.Backend
	repo     storage.DocumentRepository
	provider ai.Provider
	config   Config
	aiConfig *ai.Config
	logger   *slog.Logger

	// Expected embedding dimensionality; 0 disables the retriever's
	// pre-query check.
	dimensions int
}

// DatabaseOption configures a Database.
type DatabaseOption func(*databaseOptions)

type databaseOptions struct {
	aiConfig    *ai.Config
	config      Config
	provider    ai.Provider
	annClusters int
	annProbe    int
}

// WithAIConfig sets the embedding provider configuration.
func WithAIConfig(aiConfig *ai.Config) DatabaseOption {
	return func(o *databaseOptions) {
		o.aiConfig = aiConfig
	}
}

// WithConfig sets the retrieval configuration.
func WithConfig(config Config) DatabaseOption {
	return func(o *databaseOptions) {
		o.config = config
	}
}

// WithProvider supplies an already-constructed embedding provider instead of
// building one from the AI configuration. Unless WithAIConfig declares the
// provider's dimensionality, retrievers skip the pre-query dimension check
// and rely on the store's uniformity validation instead.
func WithProvider(provider ai.Provider) DatabaseOption {
	return func(o *databaseOptions) {
		o.provider = provider
	}
}

// WithVectorIndex enables approximate search over the stored vectors.
// See badger.WithVectorIndex for the parameter semantics.
func WithVectorIndex(clusters, nprobe int) DatabaseOption {
	return func(o *databaseOptions) {
		o.annClusters = clusters
		o.annProbe = nprobe
	}
}

// NewDatabase opens (or creates) a chunk store at filePath.
func NewDatabase(filePath string, opts ...DatabaseOption) (*Database, error) {
	// Apply options
	options := &databaseOptions{
		config: DefaultRAGConfig(),
	}
	for _, opt := range opts {
		opt(options)
	}
	if err := options.config.Validate(); err != nil {
		return nil, err
	}

	aiConfig := options.aiConfig
	if aiConfig == nil {
		aiConfig = ai.DefaultConfig()
	}

	// An injected provider with no declared AI config has an unknown
	// dimensionality; the defaults must not be used to reject its queries.
	dimensions := aiConfig.EmbeddingDimensions
	if options.provider != nil && options.aiConfig == nil {
		dimensions = 0
	}

	// Open backend
	var backendOpts []badger.Option
	if options.annClusters > 0 {
		backendOpts = append(backendOpts, badger.WithVectorIndex(options.annClusters, options.annProbe))
	}
	backend, err := badger.OpenBackend(filePath, false, backendOpts...)
	if err != nil {
		return nil, err
	}

	// Create document repository
	repo, err := badger.NewDocumentRepository(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}

	// Create AI provider with configured settings
	provider := options.provider
	if provider == nil {
		provider, err = openai.NewProvider(aiConfig)
		if err != nil {
			repo.Close()
			backend.Close()
			return nil, err
		}
	}

	return &Database{
		backend:    backend,
		repo:       repo,
		provider:   provider,
		config:     options.config,
		aiConfig:   aiConfig,
		logger:     slog.Default(),
		dimensions: dimensions,
	}, nil
}

func (db *Database) Close() error {
	// Close AI provider first
	if err := db.provider.Close(); err != nil {
		db.logger.Error("error closing AI provider", "err", err)
	}

	// Close repository
	if err := db.repo.Close(); err != nil {
		db.logger.Error("error closing document repository", "err", err)
		return err
	}

	// Close backend
	if err := db.backend.Close(); err != nil {
		db.logger.Error("error closing backend storage", "err", err)
		return err
	}
	return nil
}

func (db *Database) DocumentRepository() storage.DocumentRepository {
	return db.repo
}

// NewIngestionPipeline creates a pipeline writing to this store, chunking
// with the configured window size and overlap. Options may override either.
func (db *Database) NewIngestionPipeline(opts ...ingestion.Option) (*ingestion.Pipeline, error) {
	opts = append([]ingestion.Option{
		ingestion.WithChunking(db.config.ChunkSize, db.config.ChunkOverlap),
	}, opts...)
	return ingestion.NewPipeline(db.repo, db.provider, opts...)
}

// NewRetriever creates a retriever over this store using the configured
// match threshold and top-k. Options may override either.
func (db *Database) NewRetriever(opts ...search.Option) (*search.Retriever, error) {
	opts = append([]search.Option{
		search.WithThreshold(db.config.MatchThreshold),
		search.WithTopK(db.config.TopK),
		search.WithDimensions(db.dimensions),
	}, opts...)
	return search.NewRetriever(db.repo, db.provider, opts...)
}

// NewReembedder creates a reembedder that regenerates every stored vector
// with this store's embedding provider.
func (db *Database) NewReembedder(config *reembed.Config, progress io.Writer) (*reembed.Reembedder, error) {
	return reembed.NewReembedder(db.repo, db.provider.Embedder(), config, progress)
}
