package carbonfactors

import (
	"context"

	healthuc "github.com/kailas-cloud/carbonfactors/internal/usecase/health"
)

// HealthStatus represents the aggregated system health.
type HealthStatus struct {
	Status         string            // "ok", "degraded", "error"
	Checks         map[string]string // component → "ok"/"error"
	CatalogVersion string
	CatalogFactors int
}

// Health checks the catalog and the embedding cache.
func (c *Client) Health(ctx context.Context) HealthStatus {
	report := c.healthSvc.Check(ctx)
	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}
	return HealthStatus{
		Status:         string(report.Status),
		Checks:         checks,
		CatalogVersion: report.CatalogVersion,
		CatalogFactors: report.CatalogFactors,
	}
}

// healthUseCase is the internal interface for health checks.
type healthUseCase interface {
	Check(ctx context.Context) healthuc.Report
}
