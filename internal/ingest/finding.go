package ingest

import (
	"sort"
	"strings"

	"github.com/scansage/scansage/internal/redact"
)

// Confidence grades how certain a finding is.
type Confidence string

const (
	ConfidenceLow    Confidence = "low"
	ConfidenceMedium Confidence = "medium"
	ConfidenceHigh   Confidence = "high"
)

// SortKey orders findings deterministically regardless of traversal order
// inside the parser that produced them.
type SortKey struct {
	HostOrder int
	PortOrder int
	Port      int
	Service   string
}

// NewSortKey builds a sort key. The service name is lowercased so source
// casing cannot perturb output order.
func NewSortKey(hostOrder, portOrder, port int, service string) SortKey {
	return SortKey{
		HostOrder: hostOrder,
		PortOrder: portOrder,
		Port:      port,
		Service:   strings.ToLower(service),
	}
}

// Less compares keys tuple-wise: host order, port order, numeric port,
// then service name.
func (k SortKey) Less(other SortKey) bool {
	if k.HostOrder != other.HostOrder {
		return k.HostOrder < other.HostOrder
	}
	if k.PortOrder != other.PortOrder {
		return k.PortOrder < other.PortOrder
	}
	if k.Port != other.Port {
		return k.Port < other.Port
	}
	return k.Service < other.Service
}

// Finding is one sanitized observation safe for public display. Title and
// Detail never contain an identifier-shaped substring: redaction happens
// exactly once, at construction, and is idempotent.
type Finding struct {
	Title      string     `json:"title" validate:"required"`
	Detail     string     `json:"detail" validate:"required"`
	Confidence Confidence `json:"confidence" validate:"required,oneof=low medium high"`
	SortKey    SortKey    `json:"-"`
}

// NewFinding constructs a Finding with redacted title and detail text.
func NewFinding(title, detail string, confidence Confidence, key SortKey) Finding {
	return Finding{
		Title:      redact.Identifiers(title),
		Detail:     redact.Identifiers(detail),
		Confidence: confidence,
		SortKey:    key,
	}
}

// OrderAndTruncate sorts findings by SortKey ascending and cuts the result
// to maxFindings. It reports whether truncation occurred. The input slice
// is left untouched; applying the operation to an already-truncated
// sequence yields the same sequence.
func OrderAndTruncate(findings []Finding, maxFindings int) ([]Finding, bool) {
	ordered := make([]Finding, len(findings))
	copy(ordered, findings)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].SortKey.Less(ordered[j].SortKey)
	})
	if maxFindings >= 0 && len(ordered) > maxFindings {
		return ordered[:maxFindings], true
	}
	return ordered, false
}
