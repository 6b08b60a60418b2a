package carbonfactors

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/carbonfactors/internal/domain"
)

// Embedder converts query text to a vector in the catalog's embedding space.
type Embedder interface {
	Embed(ctx context.Context, text string) (EmbeddingResult, error)
}

// EmbeddingResult carries the embedding vector and token counts.
type EmbeddingResult struct {
	Embedding    []float32
	PromptTokens int
	TotalTokens  int
}

// embedderAdapter wraps public Embedder to satisfy internal domain.Embedder.
type embedderAdapter struct {
	inner Embedder
}

func (a *embedderAdapter) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	r, err := a.inner.Embed(ctx, text)
	if err != nil {
		// Callers cannot tell transient failures apart, so every failure is retryable.
		return domain.EmbeddingResult{}, fmt.Errorf("embed: %w: %w", domain.ErrProviderUnavailable, err)
	}
	return domain.EmbeddingResult{
		Embedding:    r.Embedding,
		PromptTokens: r.PromptTokens,
		TotalTokens:  r.TotalTokens,
	}, nil
}
