// Package handlers provides HTTP request handlers for the scansage API.
// This file implements health check and system status endpoints.
package handlers

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/scansage/scansage/internal/audit"
	"github.com/scansage/scansage/internal/ingest"
	"github.com/scansage/scansage/internal/metrics"
	"github.com/scansage/scansage/internal/store"
)

// RecordCounter reports durable record state for health checks.
type RecordCounter interface {
	Count() int
	Path() string
}

// Status constants.
const (
	StatusHealthy       = "healthy"
	StatusDegraded      = "degraded"
	StatusNotConfigured = "not configured"
)

// HealthHandler handles health check and status endpoints.
type HealthHandler struct {
	records   RecordCounter
	audit     *audit.Sink
	logger    *slog.Logger
	metrics   metrics.MetricsRegistry
	startTime time.Time
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(
	records RecordCounter,
	auditSink *audit.Sink,
	logger *slog.Logger,
	metricsManager metrics.MetricsRegistry,
) *HealthHandler {
	return &HealthHandler{
		records:   records,
		audit:     auditSink,
		logger:    logger.With("handler", "health"),
		metrics:   metricsManager,
		startTime: time.Now(),
	}
}

// HealthResponse represents a health check response.
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Uptime    string            `json:"uptime"`
	Checks    map[string]string `json:"checks"`
}

// LivenessResponse represents a simple liveness check response.
type LivenessResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Uptime    string    `json:"uptime"`
}

// StatusResponse represents a detailed status response.
type StatusResponse struct {
	Service   ServiceInfo    `json:"service"`
	System    SystemInfo     `json:"system"`
	Storage   StorageInfo    `json:"storage"`
	Ingest    IngestInfo     `json:"ingest"`
	Metrics   MetricsInfo    `json:"metrics"`
	Health    HealthResponse `json:"health"`
	Timestamp time.Time      `json:"timestamp"`
}

// ServiceInfo contains service-related information.
type ServiceInfo struct {
	Name      string    `json:"name"`
	Version   string    `json:"version"`
	StartTime time.Time `json:"start_time"`
	Uptime    string    `json:"uptime"`
	PID       int       `json:"pid"`
}

// SystemInfo contains system-related information.
type SystemInfo struct {
	OS           string     `json:"os"`
	Architecture string     `json:"architecture"`
	CPUs         int        `json:"cpus"`
	GoVersion    string     `json:"go_version"`
	Memory       MemoryInfo `json:"memory"`
	Goroutines   int        `json:"goroutines"`
}

// MemoryInfo contains memory usage information.
type MemoryInfo struct {
	Allocated   uint64 `json:"allocated_bytes"`
	TotalAlloc  uint64 `json:"total_alloc_bytes"`
	System      uint64 `json:"system_bytes"`
	GCCycles    uint32 `json:"gc_cycles"`
	HeapObjects uint64 `json:"heap_objects"`
}

// StorageInfo contains durable record store information.
type StorageInfo struct {
	Records  int    `json:"records"`
	Capacity int    `json:"capacity"`
	Path     string `json:"path"`
}

// IngestInfo contains the resolved ingestion limits.
type IngestInfo struct {
	Limits ingest.LimitConfig `json:"limits"`
}

// MetricsInfo contains metrics system information.
type MetricsInfo struct {
	Enabled       bool      `json:"enabled"`
	TotalCounters int       `json:"total_counters"`
	TotalGauges   int       `json:"total_gauges"`
	TotalHistos   int       `json:"total_histograms"`
	LastUpdated   time.Time `json:"last_updated"`
}

// VersionResponse represents version information.
type VersionResponse struct {
	Version   string    `json:"version"`
	Commit    string    `json:"commit"`
	BuildTime string    `json:"build_time"`
	GoVersion string    `json:"go_version"`
	Timestamp time.Time `json:"timestamp"`
}

// Health performs a basic health check.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	h.logger.Debug("Health check requested", "remote_addr", r.RemoteAddr)

	response := h.getHealthInfo()

	statusCode := http.StatusOK
	writeJSON(w, statusCode, response)

	if h.metrics != nil {
		h.metrics.Counter("api_health_checks_total", metrics.Labels{
			"status": response.Status,
		})
	}
}

// Liveness performs a simple liveness check without dependencies.
func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	h.logger.Debug("Liveness check requested", "remote_addr", r.RemoteAddr)

	response := LivenessResponse{
		Status:    "alive",
		Timestamp: time.Now().UTC(),
		Uptime:    time.Since(h.startTime).String(),
	}

	writeJSON(w, http.StatusOK, response)

	if h.metrics != nil {
		h.metrics.Counter("api_liveness_checks_total", nil)
	}
}

// Status provides detailed system status information.
func (h *HealthHandler) Status(w http.ResponseWriter, r *http.Request) {
	h.logger.Debug("Status check requested", "remote_addr", r.RemoteAddr)

	response := StatusResponse{
		Timestamp: time.Now().UTC(),
	}

	response.Service = ServiceInfo{
		Name:      "scansage",
		Version:   getVersion(),
		StartTime: h.startTime,
		Uptime:    time.Since(h.startTime).String(),
		PID:       os.Getpid(),
	}

	response.System = h.getSystemInfo()
	response.Storage = h.getStorageInfo()
	response.Ingest = IngestInfo{Limits: ingest.ResolveLimits(nil)}
	response.Metrics = h.getMetricsInfo()
	response.Health = h.getHealthInfo()

	writeJSON(w, http.StatusOK, response)

	if h.metrics != nil {
		h.metrics.Counter("api_status_checks_total", metrics.Labels{
			"status": response.Health.Status,
		})
	}
}

// Version provides version information.
func (h *HealthHandler) Version(w http.ResponseWriter, r *http.Request) {
	h.logger.Debug("Version requested", "remote_addr", r.RemoteAddr)

	response := VersionResponse{
		Version:   getVersion(),
		Commit:    getCommit(),
		BuildTime: getBuildTime(),
		GoVersion: runtime.Version(),
		Timestamp: time.Now().UTC(),
	}

	writeJSON(w, http.StatusOK, response)

	if h.metrics != nil {
		h.metrics.Counter("api_version_requests_total", nil)
	}
}

// Metrics renders the lightweight registry snapshot in a plain text
// exposition format. The Prometheus registry is exported separately.
func (h *HealthHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	h.logger.Debug("Metrics requested", "remote_addr", r.RemoteAddr)

	if h.metrics == nil {
		http.Error(w, "Metrics not available", http.StatusNotFound)
		return
	}

	metricsData := h.metrics.GetMetrics()
	w.Header().Set("Content-Type", "text/plain")
	for _, metric := range metricsData {
		_, _ = fmt.Fprintf(w, "# TYPE %s %s\n", metric.Name, string(metric.Type))
		labelStr := ""
		if len(metric.Labels) > 0 {
			labelParts := make([]string, 0, len(metric.Labels))
			for k, v := range metric.Labels {
				labelParts = append(labelParts, fmt.Sprintf("%s=%q", k, v))
			}
			labelStr = "{" + strings.Join(labelParts, ",") + "}"
		}
		_, _ = fmt.Fprintf(w, "%s%s %g %d\n", metric.Name, labelStr, metric.Value, metric.Timestamp.Unix())
	}
}

// getSystemInfo gathers system information.
func (h *HealthHandler) getSystemInfo() SystemInfo {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	memInfo := MemoryInfo{
		Allocated:   memStats.Alloc,
		TotalAlloc:  memStats.TotalAlloc,
		System:      memStats.Sys,
		GCCycles:    memStats.NumGC,
		HeapObjects: memStats.HeapObjects,
	}

	return SystemInfo{
		OS:           runtime.GOOS,
		Architecture: runtime.GOARCH,
		CPUs:         runtime.NumCPU(),
		GoVersion:    runtime.Version(),
		Memory:       memInfo,
		Goroutines:   runtime.NumGoroutine(),
	}
}

// getStorageInfo gathers record store information.
func (h *HealthHandler) getStorageInfo() StorageInfo {
	info := StorageInfo{
		Capacity: store.MaxRecords,
	}
	if h.records != nil {
		info.Records = h.records.Count()
		info.Path = h.records.Path()
	}
	return info
}

// getMetricsInfo gathers metrics system information.
func (h *HealthHandler) getMetricsInfo() MetricsInfo {
	info := MetricsInfo{
		Enabled:     h.metrics != nil,
		LastUpdated: time.Now().UTC(),
	}

	if h.metrics != nil {
		allMetrics := h.metrics.GetMetrics()
		for _, metric := range allMetrics {
			switch metric.Type {
			case metrics.TypeCounter:
				info.TotalCounters++
			case metrics.TypeGauge:
				info.TotalGauges++
			case metrics.TypeHistogram:
				info.TotalHistos++
			}
		}
	}

	return info
}

// getHealthInfo performs health checks and returns status.
func (h *HealthHandler) getHealthInfo() HealthResponse {
	response := HealthResponse{
		Status:    StatusHealthy,
		Timestamp: time.Now().UTC(),
		Uptime:    time.Since(h.startTime).String(),
		Checks:    make(map[string]string),
	}

	if h.records != nil {
		response.Checks["store"] = fmt.Sprintf("ok (%d records)", h.records.Count())
	} else {
		response.Checks["store"] = StatusNotConfigured
	}

	if h.audit != nil {
		response.Checks["audit"] = "ok"
	} else {
		response.Checks["audit"] = StatusNotConfigured
	}

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	const maxMemory = 1 << 30 // 1GB
	if memStats.Alloc > maxMemory {
		response.Status = StatusDegraded
		response.Checks["memory"] = "high usage"
	} else {
		response.Checks["memory"] = "ok"
	}

	goroutines := runtime.NumGoroutine()
	const maxGoroutines = 1000
	if goroutines > maxGoroutines {
		if response.Status == StatusHealthy {
			response.Status = StatusDegraded
		}
		response.Checks["goroutines"] = "high count"
	} else {
		response.Checks["goroutines"] = "ok"
	}

	return response
}

// Helper functions for build information (these should be set via ldflags).
var (
	version   = "dev"
	commit    = "none"
	buildTime = "unknown"
)

func getVersion() string {
	return version
}

func getCommit() string {
	return commit
}

func getBuildTime() string {
	return buildTime
}

// SetBuildInfo sets build information (called by main package).
func SetBuildInfo(v, c, bt string) {
	version = v
	commit = c
	buildTime = bt
}
