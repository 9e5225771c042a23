package ingest

import (
	"github.com/go-playground/validator/v10"

	"github.com/scansage/scansage/internal/redact"
	"github.com/scansage/scansage/internal/store"
)

// Operation names carried in success envelopes.
const (
	OperationIngest = "nmap_ingest"
	OperationList   = "nmap_ingests_list"
	OperationGet    = "nmap_ingest_get"
)

// StatusError marks every error envelope.
const StatusError = "error"

// Public error reasons. The set is closed; no other reason string ever
// leaves the service.
const (
	ReasonInvalidInput             = "invalid_input"
	ReasonPayloadTooLarge          = "payload_too_large"
	ReasonResponseValidationFailed = "response_validation_failed"
	ReasonRecordNotFound           = "record_not_found"
)

// PublicFinding is the client-visible finding shape. Title and detail have
// already passed identifier redaction when the Finding was constructed.
type PublicFinding struct {
	Title      string `json:"title" validate:"required"`
	Detail     string `json:"detail" validate:"required"`
	Confidence string `json:"confidence" validate:"required,oneof=low medium high"`
}

// PayloadSummary digests the accepted payload without reproducing it.
type PayloadSummary struct {
	PayloadBytes  int    `json:"payload_bytes" validate:"gte=0"`
	PayloadSHA256 string `json:"payload_sha256" validate:"required,len=64,hexadecimal"`
	Parsed        bool   `json:"parsed"`
}

// CapsLimits names the limits in force when a cap fired.
type CapsLimits struct {
	MaxHosts        int `json:"max_hosts" validate:"gt=0"`
	MaxPortsPerHost int `json:"max_ports_per_host" validate:"gt=0"`
	MaxFindings     int `json:"max_findings" validate:"gt=0"`
}

// CapsMetadata annotates a capped ingestion. Counts carries processed
// totals when the parser or the truncation step observed them.
type CapsMetadata struct {
	Capped    bool           `json:"capped"`
	CapReason string         `json:"cap_reason" validate:"required,oneof=MAX_HOSTS MAX_PORTS MAX_FINDINGS MAX_PAYLOAD_BYTES"`
	Limits    CapsLimits     `json:"limits"`
	Counts    map[string]int `json:"counts,omitempty"`
}

// ResponseMetadata wraps optional envelope metadata blocks.
type ResponseMetadata struct {
	Caps CapsMetadata `json:"caps"`
}

// IngestResponse is the success envelope for one ingestion attempt.
// Findings stays an empty list; extracted findings travel in
// ParsedFindings. Both are always present in serialized form.
type IngestResponse struct {
	Operation      string            `json:"operation" validate:"required"`
	IngestID       string            `json:"ingest_id" validate:"required,len=32,hexadecimal"`
	Format         string            `json:"format" validate:"required,oneof=nmap_xml synthetic_v1"`
	Summary        PayloadSummary    `json:"summary"`
	Findings       []PublicFinding   `json:"findings"`
	NextSteps      []string          `json:"next_steps" validate:"min=1,dive,required"`
	ParserVersion  string            `json:"parser_version" validate:"required"`
	FindingsCount  int               `json:"findings_count" validate:"gte=0"`
	ParsedFindings []PublicFinding   `json:"parsed_findings" validate:"dive"`
	Metadata       *ResponseMetadata `json:"metadata,omitempty"`
}

// ListResponse is the envelope for record listing.
type ListResponse struct {
	Operation  string               `json:"operation" validate:"required"`
	Count      int                  `json:"count" validate:"gte=0"`
	MaxRecords int                  `json:"max_records" validate:"gt=0"`
	Ingests    []store.IngestRecord `json:"ingests"`
}

// GetResponse is the envelope for single-record retrieval.
type GetResponse struct {
	Operation string             `json:"operation" validate:"required"`
	Ingest    store.IngestRecord `json:"ingest"`
}

// ErrorResponse is the only error shape callers ever see. Construction
// scrubs every field so no payload text, parse position or identifier
// token survives into the serialized form.
type ErrorResponse struct {
	Status string `json:"status"`
	Reason string `json:"reason"`
	Detail string `json:"detail"`
}

// NewErrorResponse builds a sanitized error envelope.
func NewErrorResponse(reason, detail string) *ErrorResponse {
	return &ErrorResponse{
		Status: redact.PublicString(StatusError),
		Reason: redact.PublicString(reason),
		Detail: redact.PublicString(detail),
	}
}

// ResponseValidator re-checks assembled envelopes against their declared
// shape before they leave the service.
type ResponseValidator interface {
	Validate(value any) error
}

// StructValidator validates envelopes through their struct tags.
type StructValidator struct {
	validate *validator.Validate
}

// NewStructValidator returns the tag-driven envelope validator.
func NewStructValidator() *StructValidator {
	return &StructValidator{validate: validator.New()}
}

// Validate reports the first tag violation found on value.
func (v *StructValidator) Validate(value any) error {
	return v.validate.Struct(value)
}
