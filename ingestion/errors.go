package ingestion

import "errors"

var (
	// ErrRepositoryRequired indicates a nil document repository was passed.
	ErrRepositoryRequired = errors.New("document repository is required")

	// ErrProviderRequired indicates a nil AI provider was passed.
	ErrProviderRequired = errors.New("AI provider is required")

	// ErrAllChunksFailed indicates every chunk of a document failed to embed.
	// Nothing is written in that case.
	ErrAllChunksFailed = errors.New("all chunks failed to embed")
)
