// Package scheduler refreshes the catalog snapshot from Postgres on
// an interval and watches for staleness. A failing refresh keeps the
// previous snapshot in place.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/pharmalink/pharmalink-api/catalog"
	"github.com/pharmalink/pharmalink-api/data"
	"github.com/pharmalink/pharmalink-api/logging"
	"github.com/pharmalink/pharmalink-api/metrics"
	"github.com/pharmalink/pharmalink-api/store"
)

// CatalogFetcher is the store dependency of the scheduler.
type CatalogFetcher interface {
	FetchCatalog(ctx context.Context, opts store.CatalogOptions) ([]catalog.GenericDrug, catalog.ReshapeReport, error)
}

// Scheduler owns the periodic snapshot refresh.
type Scheduler struct {
	container *data.Container
	fetcher   CatalogFetcher
	interval  time.Duration
	limit     int
	scheduler *gocron.Scheduler
	stopWatch context.CancelFunc
}

// New creates a scheduler refreshing every interval with the given
// row limit.
func New(container *data.Container, fetcher CatalogFetcher, interval time.Duration, limit int) *Scheduler {
	return &Scheduler{
		container: container,
		fetcher:   fetcher,
		interval:  interval,
		limit:     limit,
		scheduler: gocron.NewScheduler(time.Local),
	}
}

// Start performs the initial load, schedules periodic refreshes and
// starts staleness monitoring. The initial load must succeed; later
// failures only log.
func (s *Scheduler) Start() error {
	if err := s.refresh(); err != nil {
		logging.Error("Failed to perform initial catalog load", "error", err)
		return fmt.Errorf("initial catalog load failed: %w", err)
	}

	_, err := s.scheduler.Every(s.interval).Do(func() {
		if err := s.refresh(); err != nil {
			logging.Error("Failed to refresh catalog snapshot", "error", err)
		}
	})
	if err != nil {
		logging.Error("Failed to schedule catalog refresh", "error", err)
		return fmt.Errorf("failed to schedule catalog refresh: %w", err)
	}

	s.scheduler.StartAsync()
	s.startStalenessMonitoring()

	return nil
}

// Stop stops the scheduler and the staleness monitor.
func (s *Scheduler) Stop() {
	s.scheduler.Stop()
	if s.stopWatch != nil {
		s.stopWatch()
	}
}

// refresh loads a fresh catalog view and swaps it into the container.
func (s *Scheduler) refresh() error {
	if !s.container.BeginUpdate() {
		logging.Info("Catalog refresh already in progress, skipping...")
		return nil
	}
	defer s.container.EndUpdate()

	start := time.Now()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	view, report, err := s.fetcher.FetchCatalog(ctx, store.CatalogOptions{Limit: s.limit})
	if err != nil {
		return fmt.Errorf("catalog fetch failed: %w", err)
	}

	s.container.Update(view, report)
	metrics.CatalogSnapshotDrugs.Set(float64(len(view)))
	metrics.RecordDroppedRows(report.MalformedRows, report.DroppedListings, report.DroppedDrugs)

	logging.Info("Catalog snapshot refreshed",
		"duration", time.Since(start).String(),
		"drugs", len(view),
		"dropped_rows", report.Dropped(),
	)

	return nil
}

// startStalenessMonitoring warns when the snapshot falls far behind
// the refresh interval.
func (s *Scheduler) startStalenessMonitoring() {
	ctx, cancel := context.WithCancel(context.Background())
	s.stopWatch = cancel

	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				lastUpdate := s.container.GetLastUpdated()
				if time.Since(lastUpdate) > 4*s.interval {
					logging.Warn("Catalog snapshot is stale",
						"last_update", lastUpdate.Format(time.RFC3339))
				}
			}
		}
	}()
}
