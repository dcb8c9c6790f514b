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


package reembed

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/chattyhq/ragstore/ai"
	"github.com/chattyhq/ragstore/core"
	"github.com/chattyhq/ragstore/storage"
)

// DefaultBatchSize is the default number of chunks to embed per provider call.
const DefaultBatchSize = 100

// Config holds configuration for the reembedding operation.
type Config struct {
	// BatchSize is the number of chunks to embed in each provider call
	BatchSize int

	// ReportInterval is how often to report progress (number of chunks)
	ReportInterval int

	// MaxRetries is the maximum number of retry attempts for failed operations
	MaxRetries int

	// RetryDelay is the base delay for exponential backoff
	RetryDelay time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		BatchSize:      DefaultBatchSize,
		ReportInterval: 100,
		MaxRetries:     3,
		RetryDelay:     1 * time.Second,
	}
}

// Reembedder orchestrates the reembedding of all chunks in the store.
// Each document's chunk set is committed atomically once all its chunks
// carry new vectors, so a failure partway leaves every document either
// fully re-embedded or untouched.
type Reembedder struct {
	repo      storage.DocumentRepository
	config    *Config
	progress  io.Writer
	processor *BatchProcessor
	iterator  *DocumentIterator
}

// NewReembedder creates a new reembedder.
// progress: where to write progress output (typically os.Stderr)
func NewReembedder(repo storage.DocumentRepository, embedder ai.Embedder, config *Config, progress io.Writer) (*Reembedder, error) {
	if repo == nil {
		return nil, ErrRepositoryRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if config == nil {
		config = DefaultConfig()
	}

	return &Reembedder{
		repo:      repo,
		config:    config,
		progress:  progress,
		processor: NewBatchProcessor(embedder, config.BatchSize, config.MaxRetries, config.RetryDelay),
		iterator:  NewDocumentIterator(repo),
	}, nil
}

// Run executes the reembedding operation.
// Every chunk in the store is re-embedded with the configured embedder.
// Progress is reported to the configured writer.
func (r *Reembedder) Run(ctx context.Context) error {
	// First, count total chunks
	docs, err := r.repo.ListDocuments(ctx)
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}

	totalChunks := 0
	for _, doc := range docs {
		count, err := r.repo.CountChunks(ctx, doc.Id)
		if err != nil {
			return fmt.Errorf("failed to count chunks: %w", err)
		}
		totalChunks += count
	}

	if totalChunks == 0 {
		fmt.Fprintf(r.progress, "No chunks found in store (0 documents with chunks)\n")
		return nil
	}

	fmt.Fprintf(r.progress, "Starting reembedding of %d chunks across %d documents (batch size: %d)\n",
		totalChunks, len(docs), r.config.BatchSize)

	tracker := NewProgressTracker(r.progress, totalChunks, r.config.ReportInterval)
	tracker.Start()

	err = r.iterator.ForEach(ctx, func(doc *core.Document, chunks []*core.Chunk) error {
		if len(chunks) == 0 {
			return nil
		}

		if err := r.processor.Process(ctx, chunks); err != nil {
			return fmt.Errorf("failed to reembed %q: %w", doc.Filename, err)
		}

		// Commit the document's new vectors as one atomic replacement
		if _, err := r.repo.ReplaceChunks(ctx, doc.Id, chunks); err != nil {
			return fmt.Errorf("failed to store chunks for %q: %w", doc.Filename, err)
		}

		tracker.Increment(len(chunks))
		return nil
	})
	if err != nil {
		return err
	}

	tracker.Finish()

	elapsed := tracker.Elapsed()
	fmt.Fprintf(r.progress, "Reembedding complete. Processed %d chunks in %v (%.1f chunks/sec)\n",
		totalChunks, elapsed.Round(time.Second), float64(totalChunks)/elapsed.Seconds())

	return nil
}
