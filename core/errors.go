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

import "errors"

// Domain validation errors
var (
	// ErrInvalidDocument indicates a Document failed validation.
	ErrInvalidDocument = errors.New("invalid document")

	// ErrInvalidChunk indicates a Chunk failed validation.
	ErrInvalidChunk = errors.New("invalid chunk")

	// ErrInvalidChunking indicates an invalid chunk size/overlap combination.
	ErrInvalidChunking = errors.New("invalid chunking configuration")

	// ErrEmptyFilename indicates the document Filename field is empty.
	ErrEmptyFilename = errors.New("filename cannot be empty")

	// ErrEmptyContent indicates the chunk Content field is empty.
	ErrEmptyContent = errors.New("content cannot be empty")

	// ErrNegativeIndex indicates a chunk index below zero.
	ErrNegativeIndex = errors.New("chunk index cannot be negative")

	// ErrDimensionMismatch indicates an embedding vector whose length does not
	// match the configured embedding size.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)
