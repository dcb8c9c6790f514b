// Package reembed provides functionality for reembedding stored chunks
// with new or updated embedding models.
//
// This package walks every document in the store, regenerates embeddings for
// its chunks in batches, and commits each document's chunk set atomically.
// It supports progress tracking, retry logic with exponential backoff, and
// vector normalization to ensure compatibility with cosine similarity search.
package reembed
