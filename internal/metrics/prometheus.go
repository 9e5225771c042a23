// Package metrics provides Prometheus-based metrics collection for scansage.
// This complements the lightweight in-process registry with industry-standard
// Prometheus collectors for proper observability and monitoring integration.
package metrics

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const (
	// Namespace for all scansage metrics
	namespace = "scansage"

	// Subsystems
	subsystemIngest = "ingest"
	subsystemAudit  = "audit"
	subsystemStore  = "store"
	subsystemSystem = "system"
	subsystemAPI    = "api"
)

// PrometheusMetrics holds all Prometheus metric collectors
type PrometheusMetrics struct {
	// Ingest metrics
	ingestsTotal     *prometheus.CounterVec
	ingestDuration   *prometheus.HistogramVec
	ingestErrors     *prometheus.CounterVec
	payloadBytes     *prometheus.HistogramVec
	findingsReturned *prometheus.HistogramVec
	capEvents        *prometheus.CounterVec

	// Audit sink metrics
	auditWriteFailures *prometheus.CounterVec
	auditRotations     prometheus.Counter

	// Retention store metrics
	storeOperations *prometheus.CounterVec
	storeRecords    prometheus.Gauge

	// API metrics
	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
	httpErrors   *prometheus.CounterVec

	// System metrics
	memoryUsage prometheus.Gauge
	goroutines  prometheus.Gauge
	uptime      prometheus.Gauge

	// Performance tracking
	startTime  time.Time
	lastUpdate time.Time
	mu         sync.RWMutex
	registry   *prometheus.Registry
}

// NewPrometheusMetrics creates a new Prometheus metrics instance with all collectors
func NewPrometheusMetrics() *PrometheusMetrics {
	registry := prometheus.NewRegistry()

	pm := &PrometheusMetrics{
		startTime: time.Now(),
		registry:  registry,
	}

	// Initialize all metrics
	pm.initIngestMetrics()
	pm.initAuditMetrics()
	pm.initStoreMetrics()
	pm.initAPIMetrics()
	pm.initSystemMetrics()

	// Register all metrics with the registry
	pm.registerMetrics()

	// Register standard Go and process collectors for runtime visibility
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	return pm
}

// initIngestMetrics initializes ingestion-related metrics
func (pm *PrometheusMetrics) initIngestMetrics() {
	pm.ingestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystemIngest,
			Name:      "total",
			Help:      "Total number of ingestion attempts by format and outcome",
		},
		[]string{"format", "outcome"},
	)

	pm.ingestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystemIngest,
			Name:      "duration_seconds",
			Help:      "Duration of ingestion attempts in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0},
		},
		[]string{"format"},
	)

	pm.ingestErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystemIngest,
			Name:      "errors_total",
			Help:      "Total number of rejected ingestion attempts by format and reason",
		},
		[]string{"format", "reason"},
	)

	pm.payloadBytes = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystemIngest,
			Name:      "payload_bytes",
			Help:      "Size of submitted payloads in bytes",
			Buckets:   []float64{256, 1024, 4096, 16384, 32768, 131072, 1048576},
		},
		[]string{"format"},
	)

	pm.findingsReturned = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystemIngest,
			Name:      "findings_returned",
			Help:      "Number of findings returned per successful ingestion",
			Buckets:   []float64{1, 5, 10, 25, 50, 100, 250},
		},
		[]string{"format"},
	)

	pm.capEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystemIngest,
			Name:      "cap_events_total",
			Help:      "Total number of cap activations by reason",
		},
		[]string{"reason"},
	)
}

// initAuditMetrics initializes audit sink metrics
func (pm *PrometheusMetrics) initAuditMetrics() {
	pm.auditWriteFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystemAudit,
			Name:      "write_failures_total",
			Help:      "Total number of durable audit write failures by kind",
		},
		[]string{"kind"},
	)

	pm.auditRotations = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystemAudit,
			Name:      "rotations_total",
			Help:      "Total number of audit log rotations",
		},
	)
}

// initStoreMetrics initializes retention store metrics
func (pm *PrometheusMetrics) initStoreMetrics() {
	pm.storeOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystemStore,
			Name:      "operations_total",
			Help:      "Total number of retention store operations by operation and status",
		},
		[]string{"operation", "status"},
	)

	pm.storeRecords = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystemStore,
			Name:      "records",
			Help:      "Number of ingest records currently retained",
		},
	)
}

// initAPIMetrics initializes API-related metrics
func (pm *PrometheusMetrics) initAPIMetrics() {
	pm.httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystemAPI,
			Name:      "requests_total",
			Help:      "Total number of HTTP requests by method, path and status",
		},
		[]string{"method", "path", "status"},
	)

	pm.httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystemAPI,
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 2.0, 5.0},
		},
		[]string{"method", "path"},
	)

	pm.httpErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystemAPI,
			Name:      "errors_total",
			Help:      "Total number of HTTP errors by method, path and error type",
		},
		[]string{"method", "path", "error_type"},
	)
}

// initSystemMetrics initializes system-related metrics
func (pm *PrometheusMetrics) initSystemMetrics() {
	pm.memoryUsage = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystemSystem,
			Name:      "memory_bytes",
			Help:      "Current memory usage in bytes",
		},
	)

	pm.goroutines = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystemSystem,
			Name:      "goroutines",
			Help:      "Current number of goroutines",
		},
	)

	pm.uptime = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystemSystem,
			Name:      "uptime_seconds",
			Help:      "Application uptime in seconds",
		},
	)
}

// registerMetrics registers all metrics with the Prometheus registry
func (pm *PrometheusMetrics) registerMetrics() {
	// Ingest metrics
	pm.registry.MustRegister(pm.ingestsTotal)
	pm.registry.MustRegister(pm.ingestDuration)
	pm.registry.MustRegister(pm.ingestErrors)
	pm.registry.MustRegister(pm.payloadBytes)
	pm.registry.MustRegister(pm.findingsReturned)
	pm.registry.MustRegister(pm.capEvents)

	// Audit metrics
	pm.registry.MustRegister(pm.auditWriteFailures)
	pm.registry.MustRegister(pm.auditRotations)

	// Store metrics
	pm.registry.MustRegister(pm.storeOperations)
	pm.registry.MustRegister(pm.storeRecords)

	// API metrics
	pm.registry.MustRegister(pm.httpRequests)
	pm.registry.MustRegister(pm.httpDuration)
	pm.registry.MustRegister(pm.httpErrors)

	// System metrics
	pm.registry.MustRegister(pm.memoryUsage)
	pm.registry.MustRegister(pm.goroutines)
	pm.registry.MustRegister(pm.uptime)
}

// GetRegistry returns the Prometheus registry for HTTP handler
func (pm *PrometheusMetrics) GetRegistry() *prometheus.Registry {
	return pm.registry
}

// Ingest Metrics Methods

// IncrementIngestsTotal increments the total ingestion counter
func (pm *PrometheusMetrics) IncrementIngestsTotal(format, outcome string) {
	pm.ingestsTotal.WithLabelValues(format, outcome).Inc()
}

// RecordIngestDuration records an ingestion duration
func (pm *PrometheusMetrics) RecordIngestDuration(format string, duration time.Duration) {
	pm.ingestDuration.WithLabelValues(format).Observe(duration.Seconds())
}

// IncrementIngestErrors increments the rejected ingestion counter
func (pm *PrometheusMetrics) IncrementIngestErrors(format, reason string) {
	pm.ingestErrors.WithLabelValues(format, reason).Inc()
}

// ObservePayloadBytes records the size of a submitted payload
func (pm *PrometheusMetrics) ObservePayloadBytes(format string, bytes int) {
	pm.payloadBytes.WithLabelValues(format).Observe(float64(bytes))
}

// ObserveFindingsReturned records how many findings a response carried
func (pm *PrometheusMetrics) ObserveFindingsReturned(format string, count int) {
	pm.findingsReturned.WithLabelValues(format).Observe(float64(count))
}

// IncrementCapEvents increments the cap activation counter
func (pm *PrometheusMetrics) IncrementCapEvents(reason string) {
	pm.capEvents.WithLabelValues(reason).Inc()
}

// Audit Metrics Methods

// IncrementAuditWriteFailures increments the audit write failure counter
func (pm *PrometheusMetrics) IncrementAuditWriteFailures(kind string) {
	pm.auditWriteFailures.WithLabelValues(kind).Inc()
}

// IncrementAuditRotations increments the audit rotation counter
func (pm *PrometheusMetrics) IncrementAuditRotations() {
	pm.auditRotations.Inc()
}

// Store Metrics Methods

// IncrementStoreOperations increments the retention store operation counter
func (pm *PrometheusMetrics) IncrementStoreOperations(operation, status string) {
	pm.storeOperations.WithLabelValues(operation, status).Inc()
}

// SetStoreRecords sets the current retention ring size
func (pm *PrometheusMetrics) SetStoreRecords(count int) {
	pm.storeRecords.Set(float64(count))
}

// API Metrics Methods

// IncrementHTTPRequests increments HTTP request counter
func (pm *PrometheusMetrics) IncrementHTTPRequests(method, path, status string) {
	pm.httpRequests.WithLabelValues(method, path, status).Inc()
}

// RecordHTTPDuration records HTTP request duration
func (pm *PrometheusMetrics) RecordHTTPDuration(method, path string, duration time.Duration) {
	pm.httpDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// IncrementHTTPErrors increments HTTP error counter
func (pm *PrometheusMetrics) IncrementHTTPErrors(method, path, errorType string) {
	pm.httpErrors.WithLabelValues(method, path, errorType).Inc()
}

// System Metrics Methods

// UpdateSystemMetrics updates all system metrics with current values
func (pm *PrometheusMetrics) UpdateSystemMetrics() {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	// Update memory usage
	pm.memoryUsage.Set(float64(memStats.Alloc))

	// Update goroutine count
	pm.goroutines.Set(float64(runtime.NumGoroutine()))

	// Update uptime
	uptime := time.Since(pm.startTime).Seconds()
	pm.uptime.Set(uptime)

	// Update last update time
	pm.lastUpdate = time.Now()
}

// Utility Methods

// GetUptime returns the application uptime
func (pm *PrometheusMetrics) GetUptime() time.Duration {
	return time.Since(pm.startTime)
}

// GetLastUpdate returns the last metrics update time
func (pm *PrometheusMetrics) GetLastUpdate() time.Time {
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	return pm.lastUpdate
}

// StartPeriodicUpdates starts a goroutine that periodically updates system metrics
func (pm *PrometheusMetrics) StartPeriodicUpdates(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// Update immediately
	pm.UpdateSystemMetrics()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pm.UpdateSystemMetrics()
		}
	}
}

// Global instance for easy access
var globalMetrics *PrometheusMetrics
var metricsOnce sync.Once

// GetGlobalMetrics returns the global Prometheus metrics instance
func GetGlobalMetrics() *PrometheusMetrics {
	metricsOnce.Do(func() {
		globalMetrics = NewPrometheusMetrics()
	})
	return globalMetrics
}

// Convenience functions using global instance

// RecordIngestDurationPrometheus records an ingestion duration using global metrics
func RecordIngestDurationPrometheus(format string, duration time.Duration) {
	GetGlobalMetrics().RecordIngestDuration(format, duration)
}

// IncrementIngestTotalPrometheus increments the ingestion counter using global metrics
func IncrementIngestTotalPrometheus(format, outcome string) {
	GetGlobalMetrics().IncrementIngestsTotal(format, outcome)
}

// IncrementIngestErrorsPrometheus increments ingestion rejections using global metrics
func IncrementIngestErrorsPrometheus(format, reason string) {
	GetGlobalMetrics().IncrementIngestErrors(format, reason)
}

// RecordPayloadBytesPrometheus records a payload size using global metrics
func RecordPayloadBytesPrometheus(format string, bytes int) {
	GetGlobalMetrics().ObservePayloadBytes(format, bytes)
}

// RecordFindingsReturnedPrometheus records a response finding count using global metrics
func RecordFindingsReturnedPrometheus(format string, count int) {
	GetGlobalMetrics().ObserveFindingsReturned(format, count)
}

// IncrementCapEventsPrometheus increments cap activations using global metrics
func IncrementCapEventsPrometheus(reason string) {
	GetGlobalMetrics().IncrementCapEvents(reason)
}

// RecordStoreOperationPrometheus records a retention store operation using global metrics
func RecordStoreOperationPrometheus(operation string, success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	GetGlobalMetrics().IncrementStoreOperations(operation, status)
}

// SetStoreRecordsPrometheus sets the retention ring size using global metrics
func SetStoreRecordsPrometheus(count int) {
	GetGlobalMetrics().SetStoreRecords(count)
}
