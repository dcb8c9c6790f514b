// Package ingestion provides pipeline orchestration for loading documents
// into the chunk store.
//
// The Pipeline type manages the ingestion workflow for a document, including:
//   - Splitting text into overlapping chunk windows
//   - Embedding the chunks concurrently on a worker pool
//   - Committing the chunk set atomically, replacing any previous ingestion
//     of the same file
//
// Transient embedding failures are retried with exponential backoff.
// Chunks that fail permanently are skipped and reported; the document is
// still ingested as long as at least one chunk embeds successfully.
package ingestion
