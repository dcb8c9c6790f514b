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


// Package ai provides abstractions for the external embedding provider.
//
// The package defines the Embedder and Provider interfaces that the
// ingestion and retrieval layers depend on, so the core domain never couples
// to a concrete API client.
//
// # Implementation Packages
//
//   - ai/openai: production implementation for OpenAI-compatible APIs
//   - ai/mock: deterministic test doubles, no network required
//
// Public constructors (openai.NewProvider, openai.NewEmbedder) return the
// interface types to enforce abstraction. Mock constructors return concrete
// types so tests can inject behaviour and assert call counts.
//
// # Usage Example
//
//	cfg := ai.NewConfig(ai.WithEmbeddingModel("text-embedding-ada-002", 1536))
//	provider, err := openai.NewProvider(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer provider.Close()
//
//	vector, err := provider.Embedder().EmbedText(ctx, "Hello world")
package ai
