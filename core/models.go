package core

//go:generate go run ../cmd/musgen

import (
	"encoding/binary"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a unique identifier for domain entities.
// It is generated using content-based hashing or database sequences.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// Metadata is an open-ended set of chunk annotations.
// Values are formatted scalars; multi-valued entries are joined by the writer.
type Metadata map[string]string

// Document represents an ingested source file.
// Its chunk set is owned exclusively by the document and is replaced as a whole.
type Document struct {
	Id          ID
	Filename    string
	Title       string
	ContentType string
	FileSize    int64
	CreatedAt   time.Time // When the document was first ingested
	UpdatedAt   time.Time // Advances whenever the chunk set is mutated
}

// Chunk is a contiguous overlapping window of a document's text,
// the unit of embedding and retrieval.
type Chunk struct {
	Id         ID
	DocumentId ID
	Index      int // Zero-based position within the document, defines reconstruction order
	Content    string
	Metadata   Metadata
	Vector     []float32 // Embedding vector; empty until the chunk has been embedded
	CreatedAt  time.Time
}

// Embedded reports whether the chunk carries an embedding vector.
func (c *Chunk) Embedded() bool {
	return len(c.Vector) > 0
}

// ScoredChunk is a chunk paired with its similarity to a query vector.
type ScoredChunk struct {
	Chunk      *Chunk
	Similarity float32
}
