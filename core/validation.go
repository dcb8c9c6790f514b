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


package core

import "fmt"

// ValidateDocument validates a Document according to domain rules.
//
// Validation rules:
//   - Filename must not be empty
//   - FileSize must not be negative
//
// NOT validated (populated by the storage layer):
//   - ID (0 is valid until assigned)
//   - CreatedAt / UpdatedAt (set on write)
func ValidateDocument(doc *Document) error {
	if doc == nil {
		return fmt.Errorf("%w: document is nil", ErrInvalidDocument)
	}

	if doc.Filename == "" {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, ErrEmptyFilename)
	}

	if doc.FileSize < 0 {
		return fmt.Errorf("%w: negative file size %d", ErrInvalidDocument, doc.FileSize)
	}

	return nil
}

// ValidateChunk validates a Chunk according to domain rules.
//
// Validation rules:
//   - Content must not be empty
//   - Index must not be negative
//
// NOT validated (populated by processors):
//   - Vector (can be empty until the embedding pipeline runs)
//   - ID (0 is valid from database sequences)
func ValidateChunk(chunk *Chunk) error {
	if chunk == nil {
		return fmt.Errorf("%w: chunk is nil", ErrInvalidChunk)
	}

	if chunk.Content == "" {
		return fmt.Errorf("%w: %w", ErrInvalidChunk, ErrEmptyContent)
	}

	if chunk.Index < 0 {
		return fmt.Errorf("%w: %w", ErrInvalidChunk, ErrNegativeIndex)
	}

	return nil
}

// ValidateChunking validates a chunk size and overlap combination.
// The overlap must be smaller than the size so that every window advances.
func ValidateChunking(size, overlap int) error {
	if size <= 0 {
		return fmt.Errorf("%w: chunk size must be positive, got %d", ErrInvalidChunking, size)
	}
	if overlap < 0 {
		return fmt.Errorf("%w: overlap cannot be negative, got %d", ErrInvalidChunking, overlap)
	}
	if overlap >= size {
		return fmt.Errorf("%w: overlap %d must be smaller than chunk size %d", ErrInvalidChunking, overlap, size)
	}
	return nil
}

// ValidateVector checks an embedding vector against the expected dimensionality.
// An empty vector is valid: it marks a chunk that has not been embedded yet.
func ValidateVector(vector []float32, dimensions int) error {
	if len(vector) == 0 {
		return nil
	}
	if len(vector) != dimensions {
		return fmt.Errorf("%w: expected %d dimensions, got %d", ErrDimensionMismatch, dimensions, len(vector))
	}
	return nil
}
