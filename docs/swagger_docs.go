// Package docs provides Swagger documentation for the scansage API.
//
// This file contains all API endpoint documentation using swaggo annotations.
// Run `swag init` to generate OpenAPI specification files.
//
//go:generate swag init -g swagger_docs.go -o ./swagger --parseDependency --parseInternal
package docs

import (
	"net/http"
	"time"
)

// @title scansage API
// @version 0.1.0
// @description Sanitized ingestion service for untrusted Nmap XML output.
// @description
// @description ## Features
// @description - **Hardened XML boundary**: DOCTYPE, entity and directive payloads are rejected before any parsing happens
// @description - **Identifier redaction**: responses never reproduce payload text, IP addresses, hostnames or MAC addresses
// @description - **Deterministic envelopes**: findings are ordered, capped and contract-validated before leaving the service
// @description - **Bounded retention**: a fixed-size on-disk window keeps only recent ingestion metadata, never payloads
// @description - **Monitoring & Observability**: built-in metrics, structured logging, and health checks
// @description
// @description ## Error handling
// @description Processing outcomes always arrive as HTTP 200 envelopes: accepted payloads produce an
// @description ingestion envelope and rejected payloads produce a sanitized error envelope with a closed
// @description reason set. Only transport-level failures (unreadable body, unsupported media type, rate
// @description limiting) use 4xx status codes.
// @description
// @description ## Authentication
// @description All endpoints are public. The service holds no credentials and exposes no authenticated surface.
//
// @contact.name scansage support
// @contact.url https://github.com/scansage/scansage
//
// @license.name MIT
// @license.url https://github.com/scansage/scansage/blob/main/LICENSE
//
// @host localhost:8080
// @BasePath /api/v1

// HealthResponse represents health check response
type HealthResponse struct {
	Status    string            `json:"status" example:"healthy"`
	Timestamp time.Time         `json:"timestamp"`
	Uptime    string            `json:"uptime" example:"2h30m45s"`
	Checks    map[string]string `json:"checks"`
}

// LivenessResponse represents a minimal liveness probe response
type LivenessResponse struct {
	Status    string    `json:"status" example:"alive"`
	Timestamp time.Time `json:"timestamp"`
	Uptime    string    `json:"uptime" example:"2h30m45s"`
}

// ServiceInfo describes the running service
type ServiceInfo struct {
	Name      string    `json:"name" example:"scansage"`
	Version   string    `json:"version" example:"0.1.0"`
	StartTime time.Time `json:"start_time"`
	Uptime    string    `json:"uptime" example:"2h30m45s"`
	PID       int       `json:"pid" example:"4242"`
}

// StorageInfo describes the bounded record store
type StorageInfo struct {
	Records  int    `json:"records" example:"7"`
	Capacity int    `json:"capacity" example:"16"`
	Path     string `json:"path" example:"state/public"`
}

// StatusResponse represents detailed system status
type StatusResponse struct {
	Service   ServiceInfo            `json:"service"`
	System    map[string]interface{} `json:"system"`
	Storage   StorageInfo            `json:"storage"`
	Ingest    map[string]interface{} `json:"ingest"`
	Metrics   map[string]interface{} `json:"metrics"`
	Health    HealthResponse         `json:"health"`
	Timestamp time.Time              `json:"timestamp"`
}

// VersionResponse represents version and build information
type VersionResponse struct {
	Version   string    `json:"version" example:"0.1.0"`
	Commit    string    `json:"commit" example:"a1b2c3d"`
	BuildTime string    `json:"build_time" example:"2025-06-01T12:00:00Z"`
	GoVersion string    `json:"go_version" example:"go1.26.2"`
	Timestamp time.Time `json:"timestamp"`
}

// IngestRequest represents a payload submission
type IngestRequest struct {
	Format  string            `json:"format" example:"nmap_xml" enums:"nmap_xml,synthetic_v1"`
	Payload string            `json:"payload" example:"<nmaprun><host></host></nmaprun>"`
	Meta    map[string]string `json:"meta,omitempty"`
}

// PublicFinding represents a redacted finding
type PublicFinding struct {
	Title      string `json:"title" example:"Port 22 open"`
	Detail     string `json:"detail" example:"Service detected on tcp/22"`
	Confidence string `json:"confidence" example:"medium" enums:"low,medium,high"`
}

// PayloadSummary digests the accepted payload without reproducing it
type PayloadSummary struct {
	PayloadBytes  int    `json:"payload_bytes" example:"2048"`
	PayloadSHA256 string `json:"payload_sha256" example:"e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"`
	Parsed        bool   `json:"parsed" example:"true"`
}

// CapsLimits names the limits in force when a cap fired
type CapsLimits struct {
	MaxHosts        int `json:"max_hosts" example:"256"`
	MaxPortsPerHost int `json:"max_ports_per_host" example:"64"`
	MaxFindings     int `json:"max_findings" example:"512"`
}

// CapsMetadata annotates a capped ingestion
type CapsMetadata struct {
	Capped    bool           `json:"capped" example:"true"`
	CapReason string         `json:"cap_reason" example:"MAX_FINDINGS" enums:"MAX_HOSTS,MAX_PORTS,MAX_FINDINGS,MAX_PAYLOAD_BYTES"`
	Limits    CapsLimits     `json:"limits"`
	Counts    map[string]int `json:"counts,omitempty"`
}

// ResponseMetadata wraps optional envelope metadata blocks
type ResponseMetadata struct {
	Caps CapsMetadata `json:"caps"`
}

// IngestResponse represents an accepted ingestion envelope
type IngestResponse struct {
	Operation      string            `json:"operation" example:"nmap_ingest"`
	IngestID       string            `json:"ingest_id" example:"3f2a9c0d4b1e8f67a5c3d2e1f0b9a8c7"`
	Format         string            `json:"format" example:"nmap_xml" enums:"nmap_xml,synthetic_v1"`
	Summary        PayloadSummary    `json:"summary"`
	Findings       []PublicFinding   `json:"findings"`
	NextSteps      []string          `json:"next_steps" example:"Review the redacted findings summary"`
	ParserVersion  string            `json:"parser_version" example:"real-minimal-0.2"`
	FindingsCount  int               `json:"findings_count" example:"3"`
	ParsedFindings []PublicFinding   `json:"parsed_findings"`
	Metadata       *ResponseMetadata `json:"metadata,omitempty"`
}

// IngestRecord represents retained ingestion metadata
type IngestRecord struct {
	IngestID      string    `json:"ingest_id" example:"3f2a9c0d4b1e8f67a5c3d2e1f0b9a8c7"`
	CreatedAt     time.Time `json:"created_at"`
	Format        string    `json:"format" example:"nmap_xml"`
	PayloadBytes  int       `json:"payload_bytes" example:"2048"`
	PayloadSHA256 string    `json:"payload_sha256" example:"e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"`
	Parsed        bool      `json:"parsed" example:"true"`
	FindingsCount int       `json:"findings_count" example:"3"`
	ParserVersion string    `json:"parser_version" example:"real-minimal-0.2"`
	NextSteps     []string  `json:"next_steps" example:"Review the redacted findings summary"`
}

// ListResponse represents the retained record listing envelope
type ListResponse struct {
	Operation  string         `json:"operation" example:"nmap_ingests_list"`
	Count      int            `json:"count" example:"7"`
	MaxRecords int            `json:"max_records" example:"16"`
	Ingests    []IngestRecord `json:"ingests"`
}

// GetResponse represents the single-record retrieval envelope
type GetResponse struct {
	Operation string       `json:"operation" example:"nmap_ingest_get"`
	Ingest    IngestRecord `json:"ingest"`
}

// ErrorResponse represents a sanitized processing error envelope, served at HTTP 200
type ErrorResponse struct {
	Status string `json:"status" example:"error"`
	Reason string `json:"reason" example:"invalid_input" enums:"invalid_input,payload_too_large,response_validation_failed,record_not_found"`
	Detail string `json:"detail" example:"Nmap ingestion accepts XML payloads only."`
}

// TransportErrorResponse represents a transport-level failure
type TransportErrorResponse struct {
	Error     string    `json:"error" example:"Unsupported media type"`
	Message   string    `json:"message,omitempty" example:"Maximum 200 requests per 1s"`
	RequestID string    `json:"request_id,omitempty" example:"req_1718000000000000000"`
	Timestamp time.Time `json:"timestamp"`
}

// Liveness godoc
// @Summary Liveness probe
// @Description Returns process liveness without touching any dependency
// @Tags System
// @Produce json
// @Success 200 {object} LivenessResponse
// @Failure 429 {object} TransportErrorResponse
// @Router /liveness [get]
// @ID getLiveness
func Liveness(_ http.ResponseWriter, _ *http.Request) {}

// Health godoc
// @Summary Health check
// @Description Returns service health including record store accessibility
// @Tags System
// @Produce json
// @Success 200 {object} HealthResponse
// @Failure 429 {object} TransportErrorResponse
// @Failure 500 {object} TransportErrorResponse
// @Router /health [get]
// @ID getHealth
func Health(_ http.ResponseWriter, _ *http.Request) {}

// Status godoc
// @Summary System status
// @Description Returns service, system, storage and ingestion limit information
// @Tags System
// @Produce json
// @Success 200 {object} StatusResponse
// @Failure 429 {object} TransportErrorResponse
// @Failure 500 {object} TransportErrorResponse
// @Router /status [get]
// @ID getStatus
func Status(_ http.ResponseWriter, _ *http.Request) {}

// Version godoc
// @Summary Version information
// @Description Returns version and build information
// @Tags System
// @Produce json
// @Success 200 {object} VersionResponse
// @Failure 429 {object} TransportErrorResponse
// @Router /version [get]
// @ID getVersion
func Version(_ http.ResponseWriter, _ *http.Request) {}

// Metrics godoc
// @Summary Application metrics
// @Description Returns collected counters and gauges in exposition text format
// @Tags System
// @Produce text/plain
// @Success 200 {string} string
// @Failure 404 {string} string
// @Failure 429 {object} TransportErrorResponse
// @Router /metrics [get]
// @ID getMetrics
func Metrics(_ http.ResponseWriter, _ *http.Request) {}

// Ingest godoc
// @Summary Submit a payload for ingestion
// @Description Runs the submitted payload through boundary checks, hardened parsing and
// @Description redaction, then returns a deterministic envelope. Rejected payloads return
// @Description a sanitized ErrorResponse with the same 200 status.
// @Tags Ingests
// @Accept json
// @Produce json
// @Param request body IngestRequest true "Payload submission"
// @Success 200 {object} IngestResponse
// @Failure 400 {object} TransportErrorResponse
// @Failure 415 {object} TransportErrorResponse
// @Failure 429 {object} TransportErrorResponse
// @Router /ingest [post]
// @ID createIngest
func Ingest(_ http.ResponseWriter, _ *http.Request) {}

// IngestXML godoc
// @Summary Submit raw Nmap XML for ingestion
// @Description Accepts the raw XML document as the request body and processes it as an
// @Description nmap_xml submission. Rejected payloads return a sanitized ErrorResponse
// @Description with the same 200 status.
// @Tags Ingests
// @Accept xml
// @Produce json
// @Param payload body string true "Raw Nmap XML document"
// @Success 200 {object} IngestResponse
// @Failure 400 {object} TransportErrorResponse
// @Failure 415 {object} TransportErrorResponse
// @Failure 429 {object} TransportErrorResponse
// @Router /ingest/xml [post]
// @ID createIngestXML
func IngestXML(_ http.ResponseWriter, _ *http.Request) {}

// ListIngests godoc
// @Summary List retained ingestion records
// @Description Returns retained ingestion metadata, newest first, bounded by the retention window
// @Tags Ingests
// @Produce json
// @Param limit query int false "Maximum records to return" default(16)
// @Success 200 {object} ListResponse
// @Failure 429 {object} TransportErrorResponse
// @Router /ingests [get]
// @ID listIngests
func ListIngests(_ http.ResponseWriter, _ *http.Request) {}

// GetIngest godoc
// @Summary Get one ingestion record
// @Description Returns the retained metadata for one ingestion. Unknown identifiers return
// @Description a sanitized ErrorResponse with reason record_not_found and the same 200 status.
// @Tags Ingests
// @Produce json
// @Param id path string true "Ingestion identifier (32 hex characters)"
// @Success 200 {object} GetResponse
// @Failure 429 {object} TransportErrorResponse
// @Router /ingests/{id} [get]
// @ID getIngest
func GetIngest(_ http.ResponseWriter, _ *http.Request) {}
