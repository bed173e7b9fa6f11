package router

import (
	"context"
	"time"
)

// Health reports router health. The database is only checked when a
// repository is configured.
func (r *Router) Health(ctx context.Context) *HealthOutput {
	checks := HealthChecks{
		UsesDatabase: r.repo != nil,
		Strategies:   r.dispatcher.StrategyCount(),
		Agents:       r.pool.Len(),
	}
	checks.HealthyAgents, _ = r.pool.Counts()

	if r.repo != nil {
		checks.Database = r.repo.Ping(ctx) == nil
	}

	status := "healthy"
	switch {
	case checks.Strategies == 0, checks.UsesDatabase && !checks.Database:
		status = "unhealthy"
	case checks.HealthyAgents == 0:
		status = "degraded"
	}

	return &HealthOutput{
		Status:    status,
		Checks:    checks,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}
