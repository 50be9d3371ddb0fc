package embeddings

import (
	"context"
)

// Embedder turns free-form text into a fixed-dimension vector. For a fixed
// backend and model, identical text yields an identical vector. Embedders
// never mutate shared state.
type Embedder interface {
	// EmbedText converts text to a vector representation.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// Dimension reports the width of vectors this embedder produces.
	Dimension() int
}

// EmbeddingConfig holds configuration for embedders.
type EmbeddingConfig struct {
	Model     string `json:"model"`
	Dimension int    `json:"dimension"`
	MaxTokens int    `json:"max_tokens"`
}

// DefaultConfig returns the configuration of the local hashing model.
func DefaultConfig() *EmbeddingConfig {
	return &EmbeddingConfig{
		Model:     "feature-hash-v1",
		Dimension: 384,
		MaxTokens: 8192,
	}
}

// DefaultOpenAIConfig returns the configuration of the remote backend.
func DefaultOpenAIConfig() *EmbeddingConfig {
	return &EmbeddingConfig{
		Model:     "text-embedding-3-small",
		Dimension: 1536,
		MaxTokens: 8192,
	}
}
