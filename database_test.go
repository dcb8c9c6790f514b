package ragstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chattyhq/ragstore/ai"
	"github.com/chattyhq/ragstore/ai/mock"
	"github.com/chattyhq/ragstore/core"
	"github.com/chattyhq/ragstore/ingestion"
	"github.com/chattyhq/ragstore/search"
)

func ingestionInfo(filename, title string) ingestion.DocumentInfo {
	return ingestion.DocumentInfo{
		Filename:    filename,
		Title:       title,
		ContentType: ".md",
		FileSize:    1,
	}
}

func TestNewDatabase(t *testing.T) {
	t.Run("create new database", func(t *testing.T) {
		tmpDir := filepath.Join(t.TempDir(), "test_db")
		db, err := NewDatabase(tmpDir)
		require.NoError(t, err)
		require.NotNil(t, db)
		defer db.Close()

		// Verify components are initialized
		assert.NotNil(t, db.DocumentRepository())
		assert.NotNil(t, db.backend)
		assert.NotNil(t, db.logger)
	})

	t.Run("error with invalid path", func(t *testing.T) {
		// Try to create a database at a file path instead of directory
		tmpFile := filepath.Join(t.TempDir(), "not_a_dir")
		err := os.WriteFile(tmpFile, []byte("test"), 0644)
		require.NoError(t, err)

		db, err := NewDatabase(tmpFile)
		assert.Error(t, err)
		assert.Nil(t, db)
	})

	t.Run("error with invalid config", func(t *testing.T) {
		tmpDir := filepath.Join(t.TempDir(), "test_db")
		db, err := NewDatabase(tmpDir, WithConfig(Config{
			ChunkSize:      200,
			ChunkOverlap:   200,
			MatchThreshold: 0.78,
			TopK:           5,
		}))
		assert.ErrorIs(t, err, core.ErrInvalidChunking)
		assert.Nil(t, db)
	})
}

func TestDatabase_Close(t *testing.T) {
	tmpDir := t.TempDir()
	db, err := NewDatabase(tmpDir)
	require.NoError(t, err)
	require.NotNil(t, db)

	// Close the database
	err = db.Close()
	assert.NoError(t, err)
}

func TestDatabase_FactoryMethods(t *testing.T) {
	tmpDir := t.TempDir()
	db, err := NewDatabase(tmpDir)
	require.NoError(t, err)
	require.NotNil(t, db)
	defer db.Close()

	t.Run("can create ingestion pipeline", func(t *testing.T) {
		pipeline, err := db.NewIngestionPipeline()
		require.NoError(t, err)
		require.NotNil(t, pipeline)
		pipeline.Release()
	})

	t.Run("can create retriever", func(t *testing.T) {
		retriever, err := db.NewRetriever()
		require.NoError(t, err)
		require.NotNil(t, retriever)
	})

	t.Run("can create reembedder", func(t *testing.T) {
		reembedder, err := db.NewReembedder(nil, os.Stderr)
		require.NoError(t, err)
		require.NotNil(t, reembedder)
	})
}

func TestDefaultRAGConfig(t *testing.T) {
	config := DefaultRAGConfig()
	assert.Equal(t, 800, config.ChunkSize)
	assert.Equal(t, 200, config.ChunkOverlap)
	assert.InDelta(t, 0.78, config.MatchThreshold, 1e-6)
	assert.Equal(t, 5, config.TopK)
	assert.NoError(t, config.Validate())
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{"overlap equals size", func(c *Config) { c.ChunkOverlap = c.ChunkSize }, core.ErrInvalidChunking},
		{"zero chunk size", func(c *Config) { c.ChunkSize = 0 }, core.ErrInvalidChunking},
		{"negative overlap", func(c *Config) { c.ChunkOverlap = -1 }, core.ErrInvalidChunking},
		{"threshold too high", func(c *Config) { c.MatchThreshold = 1.5 }, search.ErrInvalidThreshold},
		{"threshold too low", func(c *Config) { c.MatchThreshold = -1.5 }, search.ErrInvalidThreshold},
		{"zero top-k", func(c *Config) { c.TopK = 0 }, search.ErrInvalidTopK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultRAGConfig()
			tt.mutate(&config)
			assert.ErrorIs(t, config.Validate(), tt.wantErr)
		})
	}
}

func TestDatabase_InjectedProviderDimensions(t *testing.T) {
	embedder := mock.NewMockEmbedder()
	embedder.Dimensions = 8
	provider := mock.NewMockProviderWithEmbedder(embedder)

	t.Run("dimension guard disabled without declared config", func(t *testing.T) {
		db, err := NewDatabase(t.TempDir(), WithProvider(provider))
		require.NoError(t, err)
		defer db.Close()

		ctx := context.Background()
		pipeline, err := db.NewIngestionPipeline()
		require.NoError(t, err)
		defer pipeline.Release()

		_, err = pipeline.Ingest(ctx, ingestionInfo("notes.md", "Notes"),
			"Backups run nightly and are retained for thirty days.")
		require.NoError(t, err)

		retriever, err := db.NewRetriever()
		require.NoError(t, err)

		// Query embeddings are 8-dimensional; the 1536 default must not
		// be used to reject them
		results, err := retriever.Retrieve(ctx,
			"Backups run nightly and are retained for thirty days.",
			search.WithQueryThreshold(0.5))
		require.NoError(t, err)
		assert.NotEmpty(t, results)
	})

	t.Run("declared config is still enforced", func(t *testing.T) {
		db, err := NewDatabase(t.TempDir(), WithProvider(provider),
			WithAIConfig(ai.NewConfig(ai.WithEmbeddingModel("text-embedding-3-small", 64))))
		require.NoError(t, err)
		defer db.Close()

		retriever, err := db.NewRetriever()
		require.NoError(t, err)

		_, err = retriever.Retrieve(context.Background(), "anything at all")
		assert.ErrorIs(t, err, core.ErrDimensionMismatch)
	})
}

func TestDatabase_EndToEnd(t *testing.T) {
	tmpDir := t.TempDir()
	db, err := NewDatabase(tmpDir, WithProvider(mock.NewMockProvider()))
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()

	pipeline, err := db.NewIngestionPipeline()
	require.NoError(t, err)
	defer pipeline.Release()

	report, err := pipeline.Ingest(ctx, ingestionInfo("policies.md", "Company Policies"),
		"Vacation requests must be submitted two weeks in advance. "+
			"Expense reports are due by the fifth of each month.")
	require.NoError(t, err)
	require.NotZero(t, report.ChunksCreated)

	retriever, err := db.NewRetriever()
	require.NoError(t, err)

	results, err := retriever.Retrieve(ctx,
		"Vacation requests must be submitted two weeks in advance. "+
			"Expense reports are due by the fifth of each month.",
		search.WithQueryThreshold(0.5))
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Contains(t, results[0].Chunk.Content, "Vacation")
}
