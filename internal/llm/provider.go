// Package llm holds the embedding providers. The embedding service is an
// opaque collaborator: text in, fixed-length vectors out, batched.
package llm

import (
	"context"

	"github.com/scopeworks/kbingest/internal/config"
)

// EmbeddingProvider abstracts an embedding backend (OpenAI, Ollama).
type EmbeddingProvider interface {
	// GenerateEmbeddings returns one vector per input text, in order.
	GenerateEmbeddings(ctx context.Context, texts []string) ([][]float32, error)
	Name() string
}

// NewEmbeddingProvider selects the provider from configuration.
func NewEmbeddingProvider(cfg config.EmbeddingConfig) EmbeddingProvider {
	switch cfg.Provider {
	case "openai":
		return NewOpenAIProvider(cfg)
	default:
		return NewOllamaProvider(cfg)
	}
}
