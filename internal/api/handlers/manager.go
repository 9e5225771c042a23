// Package handlers provides HTTP request handlers for the scansage API.
// This file wires the individual handler groups together.
package handlers

import (
	"log/slog"
	"net/http"

	"github.com/scansage/scansage/internal/audit"
	"github.com/scansage/scansage/internal/ingest"
	"github.com/scansage/scansage/internal/metrics"
	"github.com/scansage/scansage/internal/store"
)

// HandlerManager manages all API handlers and their dependencies.
type HandlerManager struct {
	service *ingest.Service
	records *store.Store
	logger  *slog.Logger
	metrics metrics.MetricsRegistry

	// Individual handler groups
	health  *HealthHandler
	ingest  *IngestHandler
	ingests *RecordsHandler
}

// New creates a new handler manager with all handler groups initialized.
func New(
	service *ingest.Service,
	records *store.Store,
	auditSink *audit.Sink,
	logger *slog.Logger,
	metricsManager metrics.MetricsRegistry,
	maxRequestBytes int64,
) *HandlerManager {
	hm := &HandlerManager{
		service: service,
		records: records,
		logger:  logger,
		metrics: metricsManager,
	}

	hm.health = NewHealthHandler(records, auditSink, logger, metricsManager)
	hm.ingest = NewIngestHandler(service, logger, metricsManager, maxRequestBytes)
	hm.ingests = NewRecordsHandler(service, logger, metricsManager)

	return hm
}

// Health handles GET /health - basic health check.
func (hm *HandlerManager) Health(w http.ResponseWriter, r *http.Request) {
	hm.health.Health(w, r)
}

// Liveness handles GET /api/v1/liveness - liveness check.
func (hm *HandlerManager) Liveness(w http.ResponseWriter, r *http.Request) {
	hm.health.Liveness(w, r)
}

// Status handles GET /api/v1/status - detailed system status.
func (hm *HandlerManager) Status(w http.ResponseWriter, r *http.Request) {
	hm.health.Status(w, r)
}

// Version handles GET /api/v1/version - version information.
func (hm *HandlerManager) Version(w http.ResponseWriter, r *http.Request) {
	hm.health.Version(w, r)
}

// Metrics handles GET /api/v1/metrics - lightweight metrics snapshot.
func (hm *HandlerManager) Metrics(w http.ResponseWriter, r *http.Request) {
	hm.health.Metrics(w, r)
}

// Ingest handles POST /api/v1/ingest - sanitized payload ingestion.
func (hm *HandlerManager) Ingest(w http.ResponseWriter, r *http.Request) {
	hm.ingest.Ingest(w, r)
}

// IngestXML handles POST /api/v1/ingest/xml - raw XML ingestion.
func (hm *HandlerManager) IngestXML(w http.ResponseWriter, r *http.Request) {
	hm.ingest.IngestXML(w, r)
}

// ListIngests handles GET /api/v1/ingests - list retained records.
func (hm *HandlerManager) ListIngests(w http.ResponseWriter, r *http.Request) {
	hm.ingests.ListIngests(w, r)
}

// GetIngest handles GET /api/v1/ingests/{id} - fetch one record.
func (hm *HandlerManager) GetIngest(w http.ResponseWriter, r *http.Request) {
	hm.ingests.GetIngest(w, r)
}
