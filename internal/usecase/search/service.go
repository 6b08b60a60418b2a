// Package search ranks emission factors by semantic similarity to a query text.
package search

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/carbonfactors/internal/domain"
	"github.com/kailas-cloud/carbonfactors/internal/domain/search/request"
	"github.com/kailas-cloud/carbonfactors/internal/domain/search/result"
	"github.com/kailas-cloud/carbonfactors/internal/logger"
	"github.com/kailas-cloud/carbonfactors/internal/metrics"
)

// Service embeds a query and ranks catalog factors against it.
// It holds no mutable state and is safe for concurrent use.
type Service struct {
	index Index
	embed Embedder
}

// New creates a search service over one catalog snapshot.
func New(index Index, embed Embedder) *Service {
	return &Service{index: index, embed: embed}
}

// Search returns up to req.TopK() factors in descending similarity order,
// with the normalized query vector. With a category filter the whole catalog
// is ranked first and filtered afterwards, so the filter never changes the
// relative order of the factors it keeps.
func (s *Service) Search(ctx context.Context, req *request.Request) (result.Result, error) {
	start := time.Now()
	res, err := s.search(ctx, req)
	metrics.SearchDuration.WithLabelValues(searchStatus(err)).Observe(time.Since(start).Seconds())
	if err != nil {
		return result.Result{}, err
	}

	logger.FromContext(ctx).Debug("Search completed",
		zap.Int("top_k", req.TopK()),
		zap.String("category", req.Category()),
		zap.Int("hits", res.Len()),
		zap.Duration("duration", time.Since(start)),
	)
	return res, nil
}

func (s *Service) search(ctx context.Context, req *request.Request) (result.Result, error) {
	if s.index == nil || s.index.Len() == 0 {
		return result.Result{}, domain.ErrCatalogEmpty
	}

	emb, err := s.embed.Embed(ctx, req.Query())
	if err != nil {
		return result.Result{}, fmt.Errorf("vectorize query: %w", err)
	}
	vec, err := domain.NormalizeL2(emb.Embedding)
	if err != nil {
		return result.Result{}, fmt.Errorf("%w: query vector: %w", domain.ErrEmbedding, err)
	}

	k := req.TopK()
	if req.HasCategory() {
		k = s.index.Len()
	}
	hits, err := s.index.Query(vec, k)
	if err != nil {
		if errors.Is(err, domain.ErrVectorDimMismatch) {
			return result.Result{}, fmt.Errorf("%w: %w", domain.ErrEmbedding, err)
		}
		return result.Result{}, fmt.Errorf("query index: %w", err)
	}

	if req.HasCategory() {
		filtered := hits[:0]
		for _, h := range hits {
			if req.MatchesCategory(h.Factor().Category()) {
				filtered = append(filtered, h)
			}
		}
		hits = filtered
	}
	if len(hits) > req.TopK() {
		hits = hits[:req.TopK()]
	}

	return result.New(hits, vec), nil
}

func searchStatus(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	case errors.Is(err, domain.ErrCatalogEmpty):
		return "catalog_empty"
	case errors.Is(err, domain.ErrEmbedding), errors.Is(err, domain.ErrProviderUnavailable):
		return "embedding_error"
	default:
		return "error"
	}
}
