package archivist

import (
	"context"

	healthuc "github.com/kailas-cloud/archivist/internal/usecase/health"
)

// HealthStatus represents the aggregated component health.
type HealthStatus struct {
	Status string            // "ok" or "degraded"
	Checks map[string]string // component → "ok"/"error"
}

// Health checks the embedding cache and every embedder that implements
// HealthChecker.
func (c *Client) Health(ctx context.Context) HealthStatus {
	report := c.health.Check(ctx)
	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}
	return HealthStatus{
		Status: string(report.Status),
		Checks: checks,
	}
}

// healthUseCase is the internal interface for health checks.
type healthUseCase interface {
	Check(ctx context.Context) healthuc.Report
}
