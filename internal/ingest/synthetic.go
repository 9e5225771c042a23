package ingest

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/scansage/scansage/internal/errors"
	"github.com/scansage/scansage/internal/redact"
)

// syntheticLine matches the developer fixture format, one observation per
// line: PORT_OPEN <port>/tcp service=<name>.
var syntheticLine = regexp.MustCompile(`(?i)^PORT_OPEN\s+(\d{1,5})/tcp\s+service=([a-z]+)$`)

// SyntheticParser parses the line-oriented developer format. It never
// touches the XML gate, which makes it useful for deterministic fixtures.
// Lines carrying identifier-shaped tokens are dropped silently; any other
// unrecognized non-blank line aborts the whole parse.
type SyntheticParser struct{}

// NewSyntheticParser returns the synthetic fixture variant.
func NewSyntheticParser() *SyntheticParser {
	return &SyntheticParser{}
}

// Version returns the parser version string.
func (p *SyntheticParser) Version() string {
	return VersionSynthetic
}

// Parse extracts one finding per valid line.
func (p *SyntheticParser) Parse(payload []byte, _ LimitConfig) (ParseResult, error) {
	var findings []Finding
	for index, rawLine := range strings.Split(string(payload), "\n") {
		line := strings.TrimSpace(rawLine)
		if line == "" {
			continue
		}
		if redact.HasIdentifier(line) {
			continue
		}
		match := syntheticLine.FindStringSubmatch(line)
		if match == nil {
			return ParseResult{}, errors.ErrMalformedPayload()
		}
		port, err := strconv.Atoi(match[1])
		if err != nil {
			return ParseResult{}, errors.ErrMalformedPayload()
		}
		service := strings.ToLower(match[2])
		findings = append(findings, NewFinding(
			fmt.Sprintf("Port %d open", port),
			fmt.Sprintf("%s service reported by synthetic fixture on TCP/%d", service, port),
			ConfidenceMedium,
			NewSortKey(0, index, port, service),
		))
	}
	return ParseResult{
		Parsed:        true,
		Findings:      findings,
		ParserVersion: p.Version(),
	}, nil
}
