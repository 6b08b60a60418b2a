package embedding

import (
	"context"
	"sync"

	"github.com/kailas-cloud/carbonfactors/internal/domain"
)

// scriptedEmbedder returns results from a script, one step per call.
// A step with block=true waits for the context to end.
type scriptedEmbedder struct {
	mu    sync.Mutex
	steps []step
	calls int
	texts []string
}

type step struct {
	vec    []float32
	tokens int
	err    error
	block  bool
}

func (s *scriptedEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	s.mu.Lock()
	i := s.calls
	s.calls++
	s.texts = append(s.texts, text)
	st := s.steps[len(s.steps)-1]
	if i < len(s.steps) {
		st = s.steps[i]
	}
	s.mu.Unlock()

	if st.block {
		<-ctx.Done()
		return domain.EmbeddingResult{}, ctx.Err()
	}
	if st.err != nil {
		return domain.EmbeddingResult{}, st.err
	}
	return domain.EmbeddingResult{Embedding: st.vec, TotalTokens: st.tokens, PromptTokens: st.tokens}, nil
}

func (s *scriptedEmbedder) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type healthEmbedder struct {
	scriptedEmbedder
	healthErr error
}

func (h *healthEmbedder) HealthCheck(context.Context) error { return h.healthErr }
