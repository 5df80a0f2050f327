package embedding

import (
	"context"
	"fmt"

	"github.com/scopeworks/kbingest/internal/llm"
	"github.com/scopeworks/kbingest/internal/metrics"
)

// ErrCountMismatch indicates the provider returned a different number of
// vectors than inputs. Callers treat the whole batch as failed.
var ErrCountMismatch = fmt.Errorf("embedding count mismatch")

type Service struct {
	provider  llm.EmbeddingProvider
	batchSize int
}

func NewService(provider llm.EmbeddingProvider, batchSize int) *Service {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &Service{provider: provider, batchSize: batchSize}
}

// Embed returns exactly one vector per input text, splitting large inputs
// into provider-sized batches.
func (s *Service) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	var all [][]float32
	for i := 0; i < len(texts); i += s.batchSize {
		end := i + s.batchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch := texts[i:end]

		embeddings, err := s.provider.GenerateEmbeddings(ctx, batch)
		if err != nil {
			metrics.EmbeddingRequests.WithLabelValues("error").Inc()
			return nil, fmt.Errorf("embed batch %d: %w", i/s.batchSize, err)
		}
		if len(embeddings) != len(batch) {
			metrics.EmbeddingRequests.WithLabelValues("error").Inc()
			return nil, fmt.Errorf("%w: expected %d, got %d", ErrCountMismatch, len(batch), len(embeddings))
		}
		metrics.EmbeddingRequests.WithLabelValues("ok").Inc()

		all = append(all, embeddings...)
	}

	return all, nil
}

// EmbedSingle embeds one text, returning nil without error when the provider
// yields no usable vector. Similarity probing treats that as "no neighbors".
func (s *Service) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	embeddings, err := s.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(embeddings) == 0 || len(embeddings[0]) == 0 {
		return nil, nil
	}
	return embeddings[0], nil
}
