// Package handlers provides HTTP request handlers for the scansage API.
// This file implements retrieval of retained ingestion records. Responses
// reuse the public operation envelopes at HTTP 200.
package handlers

import (
	"log/slog"
	"net/http"

	"github.com/scansage/scansage/internal/api/middleware"
	"github.com/scansage/scansage/internal/ingest"
	"github.com/scansage/scansage/internal/metrics"
	"github.com/scansage/scansage/internal/store"
)

// RecordsHandler handles ingestion record retrieval endpoints.
type RecordsHandler struct {
	service *ingest.Service
	logger  *slog.Logger
	metrics metrics.MetricsRegistry
}

// NewRecordsHandler creates a new records handler.
func NewRecordsHandler(
	service *ingest.Service,
	logger *slog.Logger,
	metricsManager metrics.MetricsRegistry,
) *RecordsHandler {
	return &RecordsHandler{
		service: service,
		logger:  logger.With("handler", "records"),
		metrics: metricsManager,
	}
}

// ListIngests handles GET /api/v1/ingests - list retained ingestion
// records, newest first. An absent or unusable limit parameter selects
// the full retention window.
func (h *RecordsHandler) ListIngests(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r)
	h.logger.Debug("Listing ingestion records", "request_id", requestID)

	limit, err := getQueryParamInt(r, "limit", store.MaxRecords)
	if err != nil {
		limit = store.MaxRecords
	}

	response, errResponse := h.service.ListIngests(r.Context(), limit)
	if errResponse != nil {
		recordOperationMetric(h.metrics, "list", "rejected")
		writeJSON(w, http.StatusOK, errResponse)
		return
	}

	recordOperationMetric(h.metrics, "list", "ok")
	writeJSON(w, http.StatusOK, response)
}

// GetIngest handles GET /api/v1/ingests/{id} - fetch one retained
// ingestion record.
func (h *RecordsHandler) GetIngest(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r)
	h.logger.Debug("Fetching ingestion record", "request_id", requestID)

	ingestID, err := extractIDFromPath(r)
	if err != nil {
		ingestID = ""
	}

	response, errResponse := h.service.GetIngest(r.Context(), ingestID)
	if errResponse != nil {
		recordOperationMetric(h.metrics, "get", "rejected")
		writeJSON(w, http.StatusOK, errResponse)
		return
	}

	recordOperationMetric(h.metrics, "get", "ok")
	writeJSON(w, http.StatusOK, response)
}
