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


// Package storage provides the storage abstraction layer for the chunk store.
//
// This package defines the repository interface that decouples the ingestion
// and retrieval layers from any particular storage backend. Public
// constructors in backend packages return the interface type:
//
//	repo, err := badger.NewDocumentRepository(backend)  // storage.DocumentRepository
//
// # Semantics
//
// A document exclusively owns its chunks. The chunk set is only ever written
// as a whole (ReplaceChunks) and deleted as a whole (DeleteDocument), which
// is what keeps chunk indices meaningful and prevents readers from seeing a
// partially re-indexed document.
//
// # Thread Safety
//
// All repository implementations must be thread-safe and support concurrent
// access from multiple goroutines.
//
// # Context Support
//
// All repository methods accept context.Context for cancellation and timeout
// support.
package storage
