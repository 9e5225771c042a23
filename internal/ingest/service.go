package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/scansage/scansage/internal/audit"
	"github.com/scansage/scansage/internal/errors"
	"github.com/scansage/scansage/internal/logging"
	"github.com/scansage/scansage/internal/metrics"
	"github.com/scansage/scansage/internal/store"
)

// Accepted ingestion formats.
const (
	FormatNmapXML   = "nmap_xml"
	FormatSynthetic = "synthetic_v1"
)

// Ingestion outcomes for metrics labels.
const (
	outcomeAccepted = "accepted"
	outcomeRejected = "rejected"
)

// defaultNextSteps is the guidance attached to every successful ingestion.
var defaultNextSteps = []string{
	"Await a dedicated parser before acting on any findings.",
	"Confirm the ingestion digest matches downstream expectations.",
}

// IngestRequest is the public ingestion input. Synthetic payloads must
// name their parser in meta before any parser runs.
type IngestRequest struct {
	Format  string            `json:"format" validate:"required,oneof=nmap_xml synthetic_v1"`
	Payload string            `json:"payload"`
	Meta    map[string]string `json:"meta,omitempty"`
}

// RecordStore persists and serves ingestion metadata records.
type RecordStore interface {
	Persist(record store.IngestRecord) error
	Get(ingestID string) (store.IngestRecord, error)
	List(limit int) []store.IngestRecord
}

// Service runs the public ingestion pipeline: boundary checks, parsing
// under caps, ordering and truncation, audit, persistence and envelope
// assembly. Every outcome leaves as a validated success envelope or a
// sanitized error envelope; raw Go errors never cross this boundary.
type Service struct {
	records   RecordStore
	audit     audit.Recorder
	validator ResponseValidator
	logger    *logging.Logger
	lookup    LookupFunc
}

// NewService wires the ingestion pipeline. A nil lookup reads the process
// environment; a nil recorder disables cap auditing.
func NewService(records RecordStore, recorder audit.Recorder, logger *logging.Logger, lookup LookupFunc) *Service {
	if logger == nil {
		logger = logging.NewDefault()
	}
	return &Service{
		records:   records,
		audit:     recorder,
		validator: NewStructValidator(),
		logger:    logger.WithComponent("ingest"),
		lookup:    lookup,
	}
}

// IngestPublic processes one ingestion attempt. Exactly one of the two
// returns is non-nil.
func (s *Service) IngestPublic(ctx context.Context, req IngestRequest) (*IngestResponse, *ErrorResponse) {
	start := time.Now()
	logger := s.logger.WithContext(ctx)

	if req.Format != FormatNmapXML && req.Format != FormatSynthetic {
		return nil, s.reject(req.Format, ReasonInvalidInput, "Request format is not supported.")
	}
	if err := s.validator.Validate(&req); err != nil {
		return nil, s.reject(req.Format, ReasonInvalidInput, "Request failed validation.")
	}

	var parser Parser
	if req.Format == FormatSynthetic {
		if req.Meta["parser"] != FormatSynthetic {
			return nil, s.reject(req.Format, ReasonInvalidInput, "Synthetic parser requires explicit parser flag.")
		}
		parser = NewSyntheticParser()
	}

	limits := ResolveLimits(s.lookup)
	payload := []byte(req.Payload)
	byteCount := len(payload)

	if byteCount > limits.MaxPayloadBytes {
		s.recordCapEvent(string(CapMaxPayloadBytes), limits,
			map[string]int{"payload_bytes": byteCount}, nil)
		logger.InfoIngest("payload rejected at size boundary", req.Format,
			"payload_bytes", byteCount,
			"max_payload_bytes", limits.MaxPayloadBytes)
		return nil, s.reject(req.Format, ReasonPayloadTooLarge, "Payload exceeds the allowed size.")
	}

	digest := sha256.Sum256(payload)
	digestHex := hex.EncodeToString(digest[:])

	if parser == nil {
		selected, err := ConfiguredParser(s.lookup)
		if err != nil {
			logger.ErrorIngest("parser selection failed", req.Format, err)
			return nil, s.reject(req.Format, ReasonInvalidInput, "Unable to process the ingestion payload.")
		}
		parser = selected
	}

	result, err := parser.Parse(payload, limits)
	if err != nil {
		logger.ErrorIngest("payload rejected by parser", req.Format, err,
			"parser_version", parser.Version())
		if errors.IsCode(err, errors.CodePayloadOversize) {
			return nil, s.reject(req.Format, ReasonPayloadTooLarge, "Payload exceeds the allowed size.")
		}
		return nil, s.reject(req.Format, ReasonInvalidInput, "Unable to process the ingestion payload.")
	}

	ordered, truncated := OrderAndTruncate(result.Findings, limits.MaxFindings)
	rawCount := len(result.Findings)

	var capReason CapReason
	var counts map[string]int
	if result.CapInfo != nil && result.CapInfo.Capped() {
		capReason = result.CapInfo.Reason
		counts = map[string]int{
			"hosts_processed":    result.CapInfo.HostsProcessed,
			"ports_processed":    result.CapInfo.PortsProcessed,
			"findings_processed": result.CapInfo.FindingsProcessed,
		}
	}
	if truncated {
		capReason = CapMaxFindings
		if counts == nil {
			counts = map[string]int{}
		}
		counts["findings_processed"] = rawCount
	}

	var metadata *ResponseMetadata
	if capReason != "" {
		metadata = &ResponseMetadata{Caps: CapsMetadata{
			Capped:    true,
			CapReason: string(capReason),
			Limits: CapsLimits{
				MaxHosts:        limits.MaxHosts,
				MaxPortsPerHost: limits.MaxPortsPerHost,
				MaxFindings:     limits.MaxFindings,
			},
			Counts: counts,
		}}
		s.recordCapEvent(string(capReason), limits, counts, ordered)
	}

	ingestID := newIngestID()
	record := store.IngestRecord{
		IngestID:      ingestID,
		CreatedAt:     time.Now().UTC().Format(time.RFC3339),
		Format:        req.Format,
		PayloadBytes:  byteCount,
		PayloadSHA256: digestHex,
		Parsed:        result.Parsed,
		FindingsCount: len(ordered),
		ParserVersion: result.ParserVersion,
		NextSteps:     nextSteps(),
	}
	if s.records != nil {
		if err := s.records.Persist(record); err != nil {
			logger.ErrorStore("ingest record not persisted", err, "ingest_id", ingestID)
		}
	}

	response := &IngestResponse{
		Operation: OperationIngest,
		IngestID:  ingestID,
		Format:    req.Format,
		Summary: PayloadSummary{
			PayloadBytes:  byteCount,
			PayloadSHA256: digestHex,
			Parsed:        result.Parsed,
		},
		Findings:       []PublicFinding{},
		NextSteps:      nextSteps(),
		ParserVersion:  result.ParserVersion,
		FindingsCount:  len(ordered),
		ParsedFindings: publicFindings(ordered),
		Metadata:       metadata,
	}

	if err := s.validator.Validate(response); err != nil {
		logger.ErrorIngest("assembled response failed self-check", req.Format,
			errors.ErrResponseShape(err), "ingest_id", ingestID)
		return nil, s.reject(req.Format, ReasonResponseValidationFailed,
			"Service output did not meet the public contract.")
	}

	duration := time.Since(start)
	metrics.RecordIngestDuration(req.Format, duration)
	metrics.RecordIngestDurationPrometheus(req.Format, duration)
	metrics.IncrementIngestTotal(req.Format, outcomeAccepted)
	metrics.IncrementIngestTotalPrometheus(req.Format, outcomeAccepted)
	metrics.RecordPayloadBytes(req.Format, byteCount)
	metrics.RecordPayloadBytesPrometheus(req.Format, byteCount)
	metrics.RecordFindingsReturned(req.Format, len(ordered))
	metrics.RecordFindingsReturnedPrometheus(req.Format, len(ordered))

	logger.InfoIngest("payload ingested", req.Format,
		"ingest_id", ingestID,
		"parser_version", result.ParserVersion,
		"findings_count", len(ordered),
		"payload_bytes", byteCount)
	return response, nil
}

// GetIngest returns a single stored record envelope.
func (s *Service) GetIngest(ctx context.Context, ingestID string) (*GetResponse, *ErrorResponse) {
	if strings.TrimSpace(ingestID) == "" {
		return nil, NewErrorResponse(ReasonInvalidInput, "An ingest_id is required for PUBLIC retrieval.")
	}
	if s.records == nil {
		return nil, NewErrorResponse(ReasonRecordNotFound, "The requested ingestion record could not be located.")
	}

	record, err := s.records.Get(ingestID)
	if err != nil {
		return nil, NewErrorResponse(ReasonRecordNotFound, "The requested ingestion record could not be located.")
	}

	response := &GetResponse{Operation: OperationGet, Ingest: record}
	if err := s.validator.Validate(response); err != nil {
		s.logger.WithContext(ctx).ErrorStore("get response failed self-check", errors.ErrResponseShape(err))
		return nil, NewErrorResponse(ReasonResponseValidationFailed, "Get response violated the public contract.")
	}
	return response, nil
}

// ListIngests returns stored records newest first. Callers without an
// explicit limit pass store.MaxRecords.
func (s *Service) ListIngests(ctx context.Context, limit int) (*ListResponse, *ErrorResponse) {
	var records []store.IngestRecord
	if s.records != nil {
		records = s.records.List(limit)
	}
	if records == nil {
		records = []store.IngestRecord{}
	}

	response := &ListResponse{
		Operation:  OperationList,
		Count:      len(records),
		MaxRecords: store.MaxRecords,
		Ingests:    records,
	}
	if err := s.validator.Validate(response); err != nil {
		s.logger.WithContext(ctx).ErrorStore("list response failed self-check", errors.ErrResponseShape(err))
		return nil, NewErrorResponse(ReasonResponseValidationFailed, "List response violated the public contract.")
	}
	return response, nil
}

// reject emits rejection metrics and builds the sanitized envelope.
func (s *Service) reject(format, reason, detail string) *ErrorResponse {
	if format == "" {
		format = "unknown"
	}
	metrics.IncrementIngestTotal(format, outcomeRejected)
	metrics.IncrementIngestTotalPrometheus(format, outcomeRejected)
	metrics.IncrementIngestErrorsPrometheus(format, reason)
	return NewErrorResponse(reason, detail)
}

// recordCapEvent forwards one cap activation to the audit sink and the
// metrics surfaces. findings may be nil for pre-parse caps.
func (s *Service) recordCapEvent(reason string, limits LimitConfig, countsSeen map[string]int, findings []Finding) {
	metrics.IncrementCapEvents(reason)
	metrics.IncrementCapEventsPrometheus(reason)

	if s.audit == nil {
		return
	}
	s.audit.RecordCapEvent(reason, audit.Limits{
		MaxPayloadBytes: limits.MaxPayloadBytes,
		MaxHosts:        limits.MaxHosts,
		MaxPortsPerHost: limits.MaxPortsPerHost,
		MaxFindings:     limits.MaxFindings,
	}, countsSeen, returnedCounts(findings))
}

// returnedCounts summarizes what actually left the service: distinct host
// slots, and the port and finding totals, which are the same number in
// this one-finding-per-port pipeline.
func returnedCounts(findings []Finding) map[string]int {
	hosts := map[int]struct{}{}
	for _, finding := range findings {
		hosts[finding.SortKey.HostOrder] = struct{}{}
	}
	return map[string]int{
		"hosts_returned":    len(hosts),
		"ports_returned":    len(findings),
		"findings_returned": len(findings),
	}
}

func publicFindings(findings []Finding) []PublicFinding {
	out := make([]PublicFinding, 0, len(findings))
	for _, finding := range findings {
		out = append(out, PublicFinding{
			Title:      finding.Title,
			Detail:     finding.Detail,
			Confidence: string(finding.Confidence),
		})
	}
	return out
}

func nextSteps() []string {
	steps := make([]string, len(defaultNextSteps))
	copy(steps, defaultNextSteps)
	return steps
}

func newIngestID() string {
	id := uuid.New()
	return hex.EncodeToString(id[:])
}
