package health

import (
	"context"

	"go.uber.org/zap"

	"github.com/kailas-cloud/carbonfactors/internal/logger"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure: search still works from cache or fallbacks.
	Degraded Status = "degraded"
	// Unhealthy indicates that no request can be served (no catalog loaded).
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Report aggregates health check results.
type Report struct {
	Status         Status
	Checks         map[string]CheckResult
	CatalogVersion string
	CatalogFactors int
}

// Service coordinates health checks.
type Service struct {
	catalog   CatalogStatus
	cache     CachePinger
	embedding EmbeddingChecker
}

// New creates a Service. cache and embedding can be nil.
func New(catalog CatalogStatus, cache CachePinger, embedding EmbeddingChecker) *Service {
	return &Service{catalog: catalog, cache: cache, embedding: embedding}
}

// Check runs health checks against all components.
func (s *Service) Check(ctx context.Context) Report {
	log := logger.FromContext(ctx)
	checks := make(map[string]CheckResult)
	r := Report{Status: Healthy, Checks: checks}

	r.CatalogVersion, r.CatalogFactors = s.catalog.CatalogStatus()
	if r.CatalogFactors == 0 {
		checks["catalog"] = CheckError
	} else {
		checks["catalog"] = CheckOK
	}

	if s.cache != nil {
		if err := s.cache.Ping(ctx); err != nil {
			log.Warn("cache health check failed", zap.Error(err))
			checks["cache"] = CheckError
		} else {
			checks["cache"] = CheckOK
		}
	}

	if s.embedding != nil {
		if err := s.embedding.HealthCheck(ctx); err != nil {
			log.Warn("embedding health check failed", zap.Error(err))
			checks["embedding"] = CheckError
		} else {
			checks["embedding"] = CheckOK
		}
	}

	for _, v := range checks {
		if v == CheckError {
			r.Status = Degraded
			break
		}
	}
	if checks["catalog"] == CheckError {
		r.Status = Unhealthy
	}
	return r
}
