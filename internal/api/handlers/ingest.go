// Package handlers provides HTTP request handlers for the scansage API.
// This file implements the public ingestion endpoints. Processing outcomes,
// success or rejection, always travel inside the public envelope at HTTP
// 200; HTTP error statuses are reserved for transport-level failures.
package handlers

import (
	"log/slog"
	"net/http"

	"github.com/scansage/scansage/internal/api/middleware"
	"github.com/scansage/scansage/internal/ingest"
	"github.com/scansage/scansage/internal/metrics"
)

// IngestHandler handles public ingestion endpoints.
type IngestHandler struct {
	service  *ingest.Service
	logger   *slog.Logger
	metrics  metrics.MetricsRegistry
	maxBytes int64
}

// NewIngestHandler creates a new ingest handler. maxBytes bounds the
// request body at the transport; it sits above the payload byte limit so
// oversized payloads reach the service and produce the audited rejection.
func NewIngestHandler(
	service *ingest.Service,
	logger *slog.Logger,
	metricsManager metrics.MetricsRegistry,
	maxBytes int64,
) *IngestHandler {
	return &IngestHandler{
		service:  service,
		logger:   logger.With("handler", "ingest"),
		metrics:  metricsManager,
		maxBytes: maxBytes,
	}
}

// IngestRequestBody represents the JSON ingestion request.
type IngestRequestBody struct {
	Format  string            `json:"format"`
	Payload string            `json:"payload"`
	Meta    map[string]string `json:"meta,omitempty"`
}

// Ingest handles POST /api/v1/ingest - submit a payload for sanitized
// ingestion.
func (h *IngestHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r)
	h.logger.Info("Ingestion requested", "request_id", requestID)

	var body IngestRequestBody
	if err := parseJSON(r, h.maxBytes, &body); err != nil {
		recordOperationMetric(h.metrics, "ingest", "transport_error")
		writeError(w, r, http.StatusBadRequest, err)
		return
	}

	h.respond(w, r, ingest.IngestRequest{
		Format:  body.Format,
		Payload: body.Payload,
		Meta:    body.Meta,
	})
}

// IngestXML handles POST /api/v1/ingest/xml - submit a raw XML body. The
// format is fixed to nmap_xml.
func (h *IngestHandler) IngestXML(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r)
	h.logger.Info("Raw XML ingestion requested", "request_id", requestID)

	body, err := readBody(r, h.maxBytes)
	if err != nil {
		recordOperationMetric(h.metrics, "ingest", "transport_error")
		writeError(w, r, http.StatusBadRequest, err)
		return
	}

	h.respond(w, r, ingest.IngestRequest{
		Format:  ingest.FormatNmapXML,
		Payload: string(body),
	})
}

func (h *IngestHandler) respond(w http.ResponseWriter, r *http.Request, req ingest.IngestRequest) {
	response, errResponse := h.service.IngestPublic(r.Context(), req)
	if errResponse != nil {
		recordOperationMetric(h.metrics, "ingest", "rejected")
		writeJSON(w, http.StatusOK, errResponse)
		return
	}

	recordOperationMetric(h.metrics, "ingest", "accepted")
	writeJSON(w, http.StatusOK, response)
}
