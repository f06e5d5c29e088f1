// Package metrics provides Prometheus metrics for the catalog API:
// the standard HTTP request counters and latency histogram, plus
// domain metrics for snapshot size, rows dropped by the reshape
// pipeline, search traffic and verification outcomes.
//
// All metrics register with the Prometheus default registry during
// package initialization.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	HTTPRequestTotals = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_request_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"method", "path"},
	)

	HTTPRequestInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_request_in_flight",
			Help: "Current in-flight requests",
		},
	)

	CatalogSnapshotDrugs = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "catalog_snapshot_drugs",
			Help: "Generic drugs in the current catalog snapshot",
		},
	)

	CatalogRowsDropped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_rows_dropped_total",
			Help: "Rows discarded by the reshape pipeline",
		},
		[]string{"reason"}, // malformed, dangling_supplier, empty_drug
	)

	CatalogSearches = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "catalog_searches_total",
			Help: "Full-database catalog searches",
		},
	)

	Verifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "verifications_total",
			Help: "NAFDAC verification lookups by outcome",
		},
		[]string{"status"},
	)
)

func init() {
	prometheus.MustRegister(HTTPRequestTotals)
	prometheus.MustRegister(HTTPRequestDuration)
	prometheus.MustRegister(HTTPRequestInFlight)
	prometheus.MustRegister(CatalogSnapshotDrugs)
	prometheus.MustRegister(CatalogRowsDropped)
	prometheus.MustRegister(CatalogSearches)
	prometheus.MustRegister(Verifications)
}

// RecordDroppedRows feeds a reshape report into the dropped-row
// counters.
func RecordDroppedRows(malformed, listings, drugs int) {
	if malformed > 0 {
		CatalogRowsDropped.WithLabelValues("malformed").Add(float64(malformed))
	}
	if listings > 0 {
		CatalogRowsDropped.WithLabelValues("dangling_supplier").Add(float64(listings))
	}
	if drugs > 0 {
		CatalogRowsDropped.WithLabelValues("empty_drug").Add(float64(drugs))
	}
}
