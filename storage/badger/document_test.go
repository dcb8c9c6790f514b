package badger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/chattyhq/ragstore/core"
	"github.com/chattyhq/ragstore/storage"
)

func testDocument(filename string) *core.Document {
	return &core.Document{
		Filename:    filename,
		Title:       "Test Document",
		ContentType: ".md",
		FileSize:    1024,
	}
}

func testChunks(contents ...string) []*core.Chunk {
	chunks := make([]*core.Chunk, len(contents))
	for i, content := range contents {
		chunks[i] = &core.Chunk{
			Index:   i,
			Content: content,
			Vector:  []float32{float32(i + 1), 1, 0},
		}
	}
	return chunks
}

func TestDocumentBasics(t *testing.T) {
	repo, backend, err := NewMemoryRepository()
	if err != nil {
		t.Fatalf("Failed to create repository: %v", err)
	}
	defer func() { repo.Close(); backend.Close() }()

	ctx := context.Background()

	id, err := repo.UpsertDocument(ctx, testDocument("handbook.md"))
	if err != nil {
		t.Fatalf("Failed to upsert document: %v", err)
	}
	if id == 0 {
		t.Fatal("Expected non-zero document ID")
	}

	retrieved, err := repo.GetDocument(ctx, id)
	if err != nil {
		t.Fatalf("Failed to get document: %v", err)
	}
	if retrieved.Filename != "handbook.md" {
		t.Fatalf("Expected 'handbook.md', got '%s'", retrieved.Filename)
	}
	if retrieved.CreatedAt.IsZero() || retrieved.UpdatedAt.IsZero() {
		t.Fatal("Expected timestamps to be set")
	}
}

func TestGetDocumentNotFound(t *testing.T) {
	repo, backend, err := NewMemoryRepository()
	if err != nil {
		t.Fatalf("Failed to create repository: %v", err)
	}
	defer func() { repo.Close(); backend.Close() }()

	_, err = repo.GetDocument(context.Background(), core.ID(999))
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}
}

func TestUpsertDocumentIdempotent(t *testing.T) {
	repo, backend, err := NewMemoryRepository()
	if err != nil {
		t.Fatalf("Failed to create repository: %v", err)
	}
	defer func() { repo.Close(); backend.Close() }()

	ctx := context.Background()

	first, err := repo.UpsertDocument(ctx, testDocument("handbook.md"))
	if err != nil {
		t.Fatalf("Failed first upsert: %v", err)
	}

	original, err := repo.GetDocument(ctx, first)
	if err != nil {
		t.Fatalf("Failed to get document: %v", err)
	}

	// Upserting the same filename targets the same document
	updated := testDocument("handbook.md")
	updated.Title = "Revised Handbook"
	second, err := repo.UpsertDocument(ctx, updated)
	if err != nil {
		t.Fatalf("Failed second upsert: %v", err)
	}
	if first != second {
		t.Fatalf("Expected identical IDs for same filename, got %d and %d", first, second)
	}

	docs, err := repo.ListDocuments(ctx)
	if err != nil {
		t.Fatalf("Failed to list documents: %v", err)
	}
	if len(docs) != 1 {
		t.Fatalf("Expected 1 document, got %d", len(docs))
	}
	if docs[0].Title != "Revised Handbook" {
		t.Fatalf("Expected updated title, got '%s'", docs[0].Title)
	}
	if !docs[0].CreatedAt.Equal(original.CreatedAt) {
		t.Fatal("Expected CreatedAt to be preserved across upserts")
	}
}

func TestListDocumentsOrder(t *testing.T) {
	repo, backend, err := NewMemoryRepository()
	if err != nil {
		t.Fatalf("Failed to create repository: %v", err)
	}
	defer func() { repo.Close(); backend.Close() }()

	ctx := context.Background()

	for _, name := range []string{"first.md", "second.md", "third.md"} {
		if _, err := repo.UpsertDocument(ctx, testDocument(name)); err != nil {
			t.Fatalf("Failed to upsert %s: %v", name, err)
		}
		time.Sleep(2 * time.Millisecond)
	}

	docs, err := repo.ListDocuments(ctx)
	if err != nil {
		t.Fatalf("Failed to list documents: %v", err)
	}
	if len(docs) != 3 {
		t.Fatalf("Expected 3 documents, got %d", len(docs))
	}
	if docs[0].Filename != "third.md" {
		t.Fatalf("Expected newest document first, got '%s'", docs[0].Filename)
	}
}

func TestReplaceChunks(t *testing.T) {
	repo, backend, err := NewMemoryRepository()
	if err != nil {
		t.Fatalf("Failed to create repository: %v", err)
	}
	defer func() { repo.Close(); backend.Close() }()

	ctx := context.Background()

	docID, err := repo.UpsertDocument(ctx, testDocument("handbook.md"))
	if err != nil {
		t.Fatalf("Failed to upsert document: %v", err)
	}

	stored, err := repo.ReplaceChunks(ctx, docID, testChunks("alpha", "beta", "gamma"))
	if err != nil {
		t.Fatalf("Failed to replace chunks: %v", err)
	}
	if len(stored) != 3 {
		t.Fatalf("Expected 3 chunks, got %d", len(stored))
	}
	for _, chunk := range stored {
		if chunk.Id == 0 {
			t.Fatal("Expected non-zero chunk ID")
		}
		if chunk.DocumentId != docID {
			t.Fatalf("Expected document ID %d, got %d", docID, chunk.DocumentId)
		}
		if chunk.CreatedAt.IsZero() {
			t.Fatal("Expected chunk CreatedAt to be set")
		}
	}

	// Replacement fully supersedes the old set
	replaced, err := repo.ReplaceChunks(ctx, docID, testChunks("delta", "epsilon"))
	if err != nil {
		t.Fatalf("Failed to replace chunks again: %v", err)
	}
	if len(replaced) != 2 {
		t.Fatalf("Expected 2 chunks, got %d", len(replaced))
	}

	count, err := repo.CountChunks(ctx, docID)
	if err != nil {
		t.Fatalf("Failed to count chunks: %v", err)
	}
	if count != 2 {
		t.Fatalf("Expected 2 stored chunks, got %d", count)
	}

	chunks, err := repo.GetChunks(ctx, docID)
	if err != nil {
		t.Fatalf("Failed to get chunks: %v", err)
	}
	if chunks[0].Content != "delta" || chunks[1].Content != "epsilon" {
		t.Fatalf("Expected new chunk set in index order, got %q and %q", chunks[0].Content, chunks[1].Content)
	}
}

func TestReplaceChunksMissingDocument(t *testing.T) {
	repo, backend, err := NewMemoryRepository()
	if err != nil {
		t.Fatalf("Failed to create repository: %v", err)
	}
	defer func() { repo.Close(); backend.Close() }()

	_, err = repo.ReplaceChunks(context.Background(), core.ID(404), testChunks("orphan"))
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}
}

func TestReplaceChunksRejectsMixedDimensions(t *testing.T) {
	repo, backend, err := NewMemoryRepository()
	if err != nil {
		t.Fatalf("Failed to create repository: %v", err)
	}
	defer func() { repo.Close(); backend.Close() }()

	ctx := context.Background()

	docID, err := repo.UpsertDocument(ctx, testDocument("handbook.md"))
	if err != nil {
		t.Fatalf("Failed to upsert document: %v", err)
	}

	if _, err := repo.ReplaceChunks(ctx, docID, testChunks("alpha", "beta")); err != nil {
		t.Fatalf("Failed to replace chunks: %v", err)
	}

	bad := testChunks("gamma", "delta")
	bad[1].Vector = []float32{1, 2} // wrong dimensionality

	_, err = repo.ReplaceChunks(ctx, docID, bad)
	if !errors.Is(err, core.ErrDimensionMismatch) {
		t.Fatalf("Expected ErrDimensionMismatch, got %v", err)
	}

	// The failed replacement must not have disturbed the committed set
	chunks, err := repo.GetChunks(ctx, docID)
	if err != nil {
		t.Fatalf("Failed to get chunks: %v", err)
	}
	if len(chunks) != 2 || chunks[0].Content != "alpha" {
		t.Fatalf("Expected original chunk set intact, got %d chunks", len(chunks))
	}
}

func TestDeleteDocumentCascades(t *testing.T) {
	repo, backend, err := NewMemoryRepository()
	if err != nil {
		t.Fatalf("Failed to create repository: %v", err)
	}
	defer func() { repo.Close(); backend.Close() }()

	ctx := context.Background()

	docID, err := repo.UpsertDocument(ctx, testDocument("handbook.md"))
	if err != nil {
		t.Fatalf("Failed to upsert document: %v", err)
	}
	if _, err := repo.ReplaceChunks(ctx, docID, testChunks("alpha", "beta")); err != nil {
		t.Fatalf("Failed to replace chunks: %v", err)
	}

	if err := repo.DeleteDocument(ctx, docID); err != nil {
		t.Fatalf("Failed to delete document: %v", err)
	}

	if _, err := repo.GetDocument(ctx, docID); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound after delete, got %v", err)
	}
	count, err := repo.CountChunks(ctx, docID)
	if err != nil {
		t.Fatalf("Failed to count chunks: %v", err)
	}
	if count != 0 {
		t.Fatalf("Expected 0 chunks after cascade delete, got %d", count)
	}

	// Deleted chunks must no longer surface in search results
	results, err := repo.Search(ctx, []float32{1, 1, 0}, -1, 0)
	if err != nil {
		t.Fatalf("Failed to search: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("Expected no search results after delete, got %d", len(results))
	}
}

func TestDeleteDocumentNotFound(t *testing.T) {
	repo, backend, err := NewMemoryRepository()
	if err != nil {
		t.Fatalf("Failed to create repository: %v", err)
	}
	defer func() { repo.Close(); backend.Close() }()

	err = repo.DeleteDocument(context.Background(), core.ID(404))
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}
}

func TestConcurrentSearchDuringReplace(t *testing.T) {
	repo, backend, err := NewMemoryRepository()
	if err != nil {
		t.Fatalf("Failed to create repository: %v", err)
	}
	defer func() { repo.Close(); backend.Close() }()

	runConcurrentSearchDuringReplace(t, repo)
}

func TestConcurrentSearchDuringReplaceWithVectorIndex(t *testing.T) {
	repo, backend, err := NewMemoryRepository(WithVectorIndex(2, 2))
	if err != nil {
		t.Fatalf("Failed to create repository: %v", err)
	}
	defer func() { repo.Close(); backend.Close() }()

	runConcurrentSearchDuringReplace(t, repo)
}

// runConcurrentSearchDuringReplace hammers ReplaceChunks against concurrent
// searches. The chunk set is seeded before the writer starts and every
// replacement writes three chunks, so each search must observe a complete
// three-chunk set: never a partial one, and never an empty window between
// the old set disappearing and the new one landing.
func runConcurrentSearchDuringReplace(t *testing.T, repo storage.DocumentRepository) {
	t.Helper()

	ctx := context.Background()

	docID, err := repo.UpsertDocument(ctx, testDocument("handbook.md"))
	if err != nil {
		t.Fatalf("Failed to upsert document: %v", err)
	}
	if _, err := repo.ReplaceChunks(ctx, docID, testChunks("alpha", "beta", "gamma")); err != nil {
		t.Fatalf("Failed to seed chunks: %v", err)
	}

	var wg sync.WaitGroup
	errCh := make(chan error, 2)

	wg.Add(2)
	go func() {
		defer wg.Done()
		for range 100 {
			if _, err := repo.ReplaceChunks(ctx, docID, testChunks("alpha", "beta", "gamma")); err != nil {
				errCh <- err
				return
			}
		}
	}()
	go func() {
		defer wg.Done()
		for range 300 {
			results, err := repo.Search(ctx, []float32{1, 1, 0}, -1, 0)
			if err != nil {
				errCh <- err
				return
			}
			if len(results) != 3 {
				errCh <- fmt.Errorf("observed incomplete chunk set: %d results", len(results))
				return
			}
		}
	}()
	wg.Wait()
	close(errCh)

	for err := range errCh {
		t.Fatalf("Concurrent access failed: %v", err)
	}
}
