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


package ai

import (
	"errors"
	"strings"
)

// Config holds configuration for AI service providers.
// It is passed explicitly into constructors, never read from ambient state,
// so multiple configurations can coexist in one process.
type Config struct {
	// EmbeddingHost is the base URL for the embedding service API.
	// Example: "https://api.openai.com/v1", or a local OpenAI-compatible server.
	EmbeddingHost string

	// EmbeddingModel is the model identifier to use for text embeddings.
	// The model fixes the vector dimensionality; changing it invalidates
	// every stored vector.
	// Example: "text-embedding-ada-002", "text-embedding-3-small"
	EmbeddingModel string

	// EmbeddingDimensions is the vector length the configured model produces.
	// Every stored chunk vector and every query vector must match it.
	EmbeddingDimensions int

	// APIKey authenticates against the embedding service.
	// Local OpenAI-compatible servers usually accept any value.
	APIKey string

	// LLMModel, Temperature and MaxTokens configure the downstream generation
	// step. This library does not invoke a generative model; the fields are
	// carried so callers assembling prompts from retrieved chunks share one
	// configuration object.
	LLMModel    string
	Temperature float64
	MaxTokens   int
}

// ConfigOption is a functional option for configuring a Config.
type ConfigOption func(*Config)

// WithEmbeddingHost sets the embedding service host URL.
func WithEmbeddingHost(host string) ConfigOption {
	return func(c *Config) {
		c.EmbeddingHost = host
	}
}

// WithEmbeddingModel sets the embedding model identifier and its dimensionality.
func WithEmbeddingModel(model string, dimensions int) ConfigOption {
	return func(c *Config) {
		c.EmbeddingModel = model
		c.EmbeddingDimensions = dimensions
	}
}

// WithAPIKey sets the embedding service API key.
func WithAPIKey(key string) ConfigOption {
	return func(c *Config) {
		c.APIKey = key
	}
}

// WithLLM sets the pass-through generation parameters.
func WithLLM(model string, temperature float64, maxTokens int) ConfigOption {
	return func(c *Config) {
		c.LLMModel = model
		c.Temperature = temperature
		c.MaxTokens = maxTokens
	}
}

// DefaultConfig returns a Config with the stock OpenAI embedding setup.
func DefaultConfig() *Config {
	return &Config{
		EmbeddingHost:       "https://api.openai.com/v1",
		EmbeddingModel:      "text-embedding-ada-002",
		EmbeddingDimensions: 1536,
		APIKey:              "none",
		LLMModel:            "gpt-3.5-turbo",
		Temperature:         0.7,
		MaxTokens:           1000,
	}
}

// NewConfig creates a Config with the default values and applies the provided
// options. This is the recommended way to create a Config with custom settings.
//
// Example:
//
//	cfg := ai.NewConfig(
//	    ai.WithEmbeddingHost("http://localhost:11434/v1"),
//	    ai.WithEmbeddingModel("text-embedding-3-small", 1536),
//	)
func NewConfig(opts ...ConfigOption) *Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Normalize ensures the configuration is in a canonical form.
// It automatically adds the /v1 suffix to the host if missing, which is
// required by most OpenAI-compatible APIs (Ollama, LocalAI, vLLM, etc).
func (c *Config) Normalize() {
	if c.EmbeddingHost != "" && !strings.HasSuffix(c.EmbeddingHost, "/v1") {
		c.EmbeddingHost = strings.TrimSuffix(c.EmbeddingHost, "/")
		c.EmbeddingHost = c.EmbeddingHost + "/v1"
	}
	if c.APIKey == "" {
		c.APIKey = "none"
	}
}

// Validate checks that the configuration is valid and complete.
// It automatically normalizes the configuration before validation.
func (c *Config) Validate() error {
	c.Normalize()

	if c.EmbeddingHost == "" {
		return errors.New("ai config: EmbeddingHost is required")
	}
	if c.EmbeddingModel == "" {
		return errors.New("ai config: EmbeddingModel is required")
	}
	if c.EmbeddingDimensions <= 0 {
		return errors.New("ai config: EmbeddingDimensions must be positive")
	}
	return nil
}
