// Package health reports service health from the catalog snapshot and
// database reachability.
package health

import (
	"context"
	"math"
	"net/http"
	"time"

	"github.com/pharmalink/pharmalink-api/data"
)

// Pinger is the database dependency of the checker.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Checker computes the health status served by /health.
type Checker struct {
	container *data.Container
	db        Pinger
	refresh   time.Duration
}

// NewChecker creates a checker. refresh is the configured snapshot
// refresh interval; staleness thresholds derive from it.
func NewChecker(container *data.Container, db Pinger, refresh time.Duration) *Checker {
	return &Checker{container: container, db: db, refresh: refresh}
}

// Check returns the health status, response payload and HTTP status.
// The snapshot going stale degrades the service before it turns
// unhealthy; an unreachable database is unhealthy immediately.
func (c *Checker) Check(ctx context.Context) (status string, payload map[string]any, httpStatus int) {
	drugs := c.container.GetCatalog()
	report := c.container.GetReport()
	lastUpdate := c.container.GetLastUpdated()
	isUpdating := c.container.IsUpdating()
	snapshotAge := time.Since(lastUpdate)

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	dbErr := c.db.Ping(pingCtx)

	switch {
	case dbErr != nil:
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable

	case len(drugs) == 0:
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable

	case snapshotAge > 8*c.refresh:
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable

	case snapshotAge > 4*c.refresh:
		status = "degraded"
		httpStatus = http.StatusOK

	default:
		status = "healthy"
		httpStatus = http.StatusOK
	}

	payload = map[string]any{
		"last_update":        lastUpdate.Format(time.RFC3339),
		"snapshot_age_min":   math.Round(snapshotAge.Minutes()*10) / 10,
		"drugs":              len(drugs),
		"dropped_rows":       report.Dropped(),
		"is_updating":        isUpdating,
		"database_reachable": dbErr == nil,
	}

	return status, payload, httpStatus
}
