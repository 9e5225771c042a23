// Package metrics provides interfaces for metrics collection and monitoring.
package metrics

// MetricsRegistry is the collection seam handed to the ingestion service,
// the retention store, and the HTTP layer. Tests substitute lightweight
// fakes for it.
type MetricsRegistry interface {
	// SetEnabled toggles collection; recording calls become no-ops when
	// disabled.
	SetEnabled(enabled bool)

	// IsEnabled reports whether recording calls are currently applied.
	IsEnabled() bool

	// Counter increments the named counter.
	Counter(name string, labels Labels)

	// Gauge sets the named gauge to value.
	Gauge(name string, value float64, labels Labels)

	// Histogram records one observation in the named histogram.
	Histogram(name string, value float64, labels Labels)

	// GetMetrics returns a snapshot of everything recorded so far.
	GetMetrics() map[string]*Metric

	// Reset drops all recorded metrics.
	Reset()
}

var _ MetricsRegistry = (*Registry)(nil)
