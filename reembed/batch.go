package reembed

import (
	"context"
	"fmt"
	"time"

	"github.com/chattyhq/ragstore/ai"
	"github.com/chattyhq/ragstore/core"
	"github.com/chattyhq/ragstore/vecindex"
)

// BatchProcessor regenerates embeddings for batches of chunks.
type BatchProcessor struct {
	embedder       ai.Embedder
	batchSize      int
	maxRetries     int
	retryBaseDelay time.Duration
}

// NewBatchProcessor creates a new batch processor.
// batchSize: number of chunks to embed per provider call
// maxRetries: maximum number of retry attempts for embedding API calls
// retryBaseDelay: base delay for exponential backoff
func NewBatchProcessor(embedder ai.Embedder, batchSize, maxRetries int, retryBaseDelay time.Duration) *BatchProcessor {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	return &BatchProcessor{
		embedder:       embedder,
		batchSize:      batchSize,
		maxRetries:     maxRetries,
		retryBaseDelay: retryBaseDelay,
	}
}

// Process regenerates the embeddings for chunks in place, batch by batch.
// Vectors are normalized after embedding to ensure compatibility with cosine
// similarity. Chunks are not persisted; the caller commits the whole set.
func (bp *BatchProcessor) Process(ctx context.Context, chunks []*core.Chunk) error {
	for start := 0; start < len(chunks); start += bp.batchSize {
		end := min(start+bp.batchSize, len(chunks))
		if err := bp.processBatch(ctx, chunks[start:end]); err != nil {
			return err
		}
	}
	return nil
}

func (bp *BatchProcessor) processBatch(ctx context.Context, chunks []*core.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Content
	}

	// Generate embeddings with retry
	var embeddings [][]float32
	err := ai.RetryWithBackoff(ctx, func() error {
		var err error
		embeddings, err = bp.embedder.EmbedTexts(ctx, texts)
		return err
	}, bp.maxRetries, bp.retryBaseDelay)
	if err != nil {
		return fmt.Errorf("failed to generate embeddings after %d attempts: %w", bp.maxRetries, err)
	}

	if len(embeddings) != len(chunks) {
		return fmt.Errorf("embedding count mismatch: expected %d, got %d", len(chunks), len(embeddings))
	}

	for i := range chunks {
		chunks[i].Vector = vecindex.Normalize(embeddings[i])
	}
	return nil
}
