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


// Package search provides semantic retrieval over the chunk store.
//
// The Retriever type embeds a query with the same model the stored chunks
// were embedded with and returns the chunks whose cosine similarity exceeds
// a configurable threshold, ranked most similar first and limited to a
// configurable top-k. Both parameters can be overridden per query.
package search
