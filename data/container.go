// Package data provides the thread-safe catalog snapshot used by the
// browse endpoints. The snapshot is swapped atomically on refresh so
// readers never observe a partial catalog; full-database search
// bypasses it entirely and always queries live.
package data

import (
	"sync/atomic"
	"time"

	"github.com/pharmalink/pharmalink-api/catalog"
	"github.com/pharmalink/pharmalink-api/logging"
)

// Container holds the catalog snapshot with atomic pointers for
// zero-downtime updates.
type Container struct {
	drugs           atomic.Value // []catalog.GenericDrug
	drugsByID       atomic.Value // map[string]catalog.GenericDrug
	report          atomic.Value // catalog.ReshapeReport
	lastUpdated     atomic.Value // time.Time
	updating        atomic.Bool
	serverStartTime atomic.Value // time.Time
}

// NewContainer creates a container with an empty snapshot.
func NewContainer() *Container {
	c := &Container{}
	c.drugs.Store(make([]catalog.GenericDrug, 0))
	c.drugsByID.Store(make(map[string]catalog.GenericDrug))
	c.report.Store(catalog.ReshapeReport{})
	c.lastUpdated.Store(time.Time{})
	c.serverStartTime.Store(time.Time{})
	return c
}

// GetCatalog returns the current snapshot view.
func (c *Container) GetCatalog() []catalog.GenericDrug {
	if v := c.drugs.Load(); v != nil {
		if drugs, ok := v.([]catalog.GenericDrug); ok {
			return drugs
		}
	}

	logging.Warn("Catalog snapshot is empty or invalid")
	return []catalog.GenericDrug{}
}

// GetDrug returns one drug from the snapshot by id.
func (c *Container) GetDrug(id string) (catalog.GenericDrug, bool) {
	if v := c.drugsByID.Load(); v != nil {
		if byID, ok := v.(map[string]catalog.GenericDrug); ok {
			d, found := byID[id]
			return d, found
		}
	}

	logging.Warn("Catalog index is empty or invalid")
	return catalog.GenericDrug{}, false
}

// GetReport returns the reshape diagnostics of the current snapshot.
func (c *Container) GetReport() catalog.ReshapeReport {
	if v := c.report.Load(); v != nil {
		if report, ok := v.(catalog.ReshapeReport); ok {
			return report
		}
	}
	return catalog.ReshapeReport{}
}

// GetLastUpdated returns the timestamp of the last snapshot refresh.
func (c *Container) GetLastUpdated() time.Time {
	if v := c.lastUpdated.Load(); v != nil {
		if lastUpdated, ok := v.(time.Time); ok {
			return lastUpdated
		}
	}

	logging.Warn("Could not get the last updated value")
	return time.Time{}
}

// IsUpdating reports whether a refresh is currently in progress.
func (c *Container) IsUpdating() bool {
	return c.updating.Load()
}

// SetServerStartTime records the process start time.
func (c *Container) SetServerStartTime(t time.Time) {
	c.serverStartTime.Store(t)
}

// GetServerStartTime returns the process start time.
func (c *Container) GetServerStartTime() time.Time {
	if v := c.serverStartTime.Load(); v != nil {
		if t, ok := v.(time.Time); ok {
			return t
		}
	}
	return time.Time{}
}

// Update atomically swaps in a new snapshot.
func (c *Container) Update(drugs []catalog.GenericDrug, report catalog.ReshapeReport) {
	byID := make(map[string]catalog.GenericDrug, len(drugs))
	for _, d := range drugs {
		byID[d.ID] = d
	}

	c.drugs.Store(drugs)
	c.drugsByID.Store(byID)
	c.report.Store(report)
	c.lastUpdated.Store(time.Now())
}

// BeginUpdate marks the start of a refresh. Returns false when another
// refresh is already in progress.
func (c *Container) BeginUpdate() bool {
	return c.updating.CompareAndSwap(false, true)
}

// EndUpdate marks the end of a refresh.
func (c *Container) EndUpdate() {
	c.updating.Store(false)
}
