// Package handlers provides HTTP request handlers for the scansage API.
// This file contains common utilities shared across all handlers.
package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/scansage/scansage/internal/api/middleware"
	"github.com/scansage/scansage/internal/metrics"
)

// ErrorResponse represents a transport-level API error response. Payload
// processing failures never use it; those travel inside the public
// operation envelopes.
type ErrorResponse struct {
	Error     string    `json:"error"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id,omitempty"`
}

// getQueryParamInt extracts an integer query parameter with default value.
func getQueryParamInt(r *http.Request, key string, defaultValue int) (int, error) {
	if value := r.URL.Query().Get(key); value != "" {
		return strconv.Atoi(value)
	}
	return defaultValue, nil
}

// extractIDFromPath extracts the id path parameter.
func extractIDFromPath(r *http.Request) (string, error) {
	vars := mux.Vars(r)
	idStr, exists := vars["id"]
	if !exists {
		return "", fmt.Errorf("id not provided")
	}

	if strings.TrimSpace(idStr) == "" {
		return "", fmt.Errorf("id cannot be empty")
	}

	return idStr, nil
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes a transport-level error response.
func writeError(w http.ResponseWriter, r *http.Request, statusCode int, err error) {
	response := ErrorResponse{
		Error:     http.StatusText(statusCode),
		Message:   err.Error(),
		Timestamp: time.Now().UTC(),
		RequestID: middleware.GetRequestID(r),
	}

	writeJSON(w, statusCode, response)
}

// parseJSON parses a JSON request body into the provided destination,
// bounded by maxBytes.
func parseJSON(r *http.Request, maxBytes int64, dest interface{}) error {
	if r.Body == nil {
		return fmt.Errorf("request body is empty")
	}

	r.Body = http.MaxBytesReader(nil, r.Body, maxBytes)

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dest); err != nil {
		if err.Error() == "http: request body too large" {
			return fmt.Errorf("request body too large (max %d bytes)", maxBytes)
		}
		return fmt.Errorf("invalid JSON: %w", err)
	}

	return nil
}

// readBody reads a raw request body, bounded by maxBytes.
func readBody(r *http.Request, maxBytes int64) ([]byte, error) {
	if r.Body == nil {
		return nil, nil
	}

	r.Body = http.MaxBytesReader(nil, r.Body, maxBytes)

	body, err := io.ReadAll(r.Body)
	if err != nil {
		if err.Error() == "http: request body too large" {
			return nil, fmt.Errorf("request body too large (max %d bytes)", maxBytes)
		}
		return nil, fmt.Errorf("failed to read request body: %w", err)
	}

	return body, nil
}

// recordOperationMetric records a handler operation counter.
func recordOperationMetric(registry metrics.MetricsRegistry, operation, status string) {
	if registry != nil {
		registry.Counter("api_operations_total", metrics.Labels{
			"operation": operation,
			"status":    status,
		})
	}
}
