package storage

import (
	"context"

	"github.com/chattyhq/ragstore/core"
)

// DocumentRepository provides durable keyed storage of documents and their
// chunks, plus nearest-neighbour search over chunk embeddings.
// Implementations must be thread-safe and support concurrent access.
type DocumentRepository interface {
	// UpsertDocument writes document metadata idempotently and returns the
	// document ID. An existing document keeps its ID and CreatedAt; its
	// UpdatedAt advances. The document's chunk set is untouched.
	UpsertDocument(ctx context.Context, doc *core.Document) (core.ID, error)

	// GetDocument retrieves a document by ID.
	// Returns ErrNotFound if the document doesn't exist.
	GetDocument(ctx context.Context, id core.ID) (*core.Document, error)

	// ListDocuments retrieves all documents, most recently created first.
	ListDocuments(ctx context.Context) ([]*core.Document, error)

	// ReplaceChunks atomically deletes the document's existing chunks and
	// inserts the new set. Concurrent readers observe either the fully-old
	// or fully-new chunk set, never a mix. Chunk IDs and creation timestamps
	// are assigned here; the document's UpdatedAt advances.
	// All chunk vectors must share one dimensionality.
	// Returns ErrNotFound if the document doesn't exist.
	ReplaceChunks(ctx context.Context, docID core.ID, chunks []*core.Chunk) ([]*core.Chunk, error)

	// GetChunks retrieves a document's chunks in reconstruction (index) order.
	GetChunks(ctx context.Context, docID core.ID) ([]*core.Chunk, error)

	// CountChunks returns the number of chunks stored for a document.
	CountChunks(ctx context.Context, docID core.ID) (int, error)

	// DeleteDocument removes a document and cascades to all its chunks.
	// Returns ErrNotFound if the document doesn't exist.
	DeleteDocument(ctx context.Context, id core.ID) error

	// Search finds chunks whose embeddings are similar to the query vector.
	// Only chunks with similarity strictly greater than threshold are
	// returned, ordered by descending similarity with ties broken by
	// ascending creation time then ascending chunk ID, limited to limit
	// results. An empty result is not an error.
	Search(ctx context.Context, query []float32, threshold float32, limit int) ([]*core.ScoredChunk, error)

	// Close closes the storage backend and releases resources.
	Close() error
}
