package ingest

import (
	"os"
	"strings"

	"github.com/scansage/scansage/internal/errors"
)

// Parser versions reported in ingestion responses.
const (
	VersionNoop        = "noop-0.1"
	VersionSynthetic   = "synthetic_v1"
	VersionSafeXML     = "safe-xml-0.1"
	VersionRealMinimal = "real-minimal-0.2"
)

// Registry keys accepted as an explicit parser selection.
const (
	ParserSafeXML     = "safe_xml"
	ParserRealMinimal = "real_minimal"
)

// Environment variables steering parser selection.
const (
	EnvParserOverride = "SCANSAGE_NMAP_XML_PARSER"
	EnvAuthorizedLab  = "SCANSAGE_AUTHORIZED_LAB"
)

// ParseResult is the outcome of one parse attempt. CapInfo is nil for
// variants that do not track caps.
type ParseResult struct {
	Parsed        bool
	Findings      []Finding
	ParserVersion string
	CapInfo       *CapInfo
}

// Parser turns a raw payload into findings under the given limits.
// Implementations are stateless after construction; a fresh instance is
// selected per request.
type Parser interface {
	Parse(payload []byte, limits LimitConfig) (ParseResult, error)
	Version() string
}

// NoopParser ignores its payload. It is the default when no parser is
// explicitly selected and lab mode is off, so an unconfigured deployment
// never interprets untrusted bytes.
type NoopParser struct{}

// NewNoopParser returns the no-op variant.
func NewNoopParser() *NoopParser {
	return &NoopParser{}
}

// Version returns the parser version string.
func (p *NoopParser) Version() string {
	return VersionNoop
}

// Parse returns an unparsed result with no findings.
func (p *NoopParser) Parse(_ []byte, _ LimitConfig) (ParseResult, error) {
	return ParseResult{
		Parsed:        false,
		ParserVersion: p.Version(),
	}, nil
}

// SafeXMLParser exercises the safety gate without extracting findings.
// It exists to validate the untrusted-XML boundary in isolation.
type SafeXMLParser struct{}

// NewSafeXMLParser returns the safety-boundary-only variant.
func NewSafeXMLParser() *SafeXMLParser {
	return &SafeXMLParser{}
}

// Version returns the parser version string.
func (p *SafeXMLParser) Version() string {
	return VersionSafeXML
}

// Parse runs the payload through the safety gate and discards the tree.
func (p *SafeXMLParser) Parse(payload []byte, limits LimitConfig) (ParseResult, error) {
	if _, err := ParseSafely(payload, limits.MaxPayloadBytes); err != nil {
		return ParseResult{}, err
	}
	return ParseResult{
		Parsed:        true,
		ParserVersion: p.Version(),
	}, nil
}

// NewRegisteredParser maps an explicit registry key to its variant.
func NewRegisteredParser(key string) (Parser, error) {
	switch key {
	case ParserSafeXML:
		return NewSafeXMLParser(), nil
	case ParserRealMinimal:
		return NewMinimalXMLParser(), nil
	}
	return nil, errors.ErrUnsupportedParser()
}

// SelectParser resolves the parser for one request. An explicit selection,
// when present, always wins; an unrecognized one fails rather than falling
// back. Absent a selection, lab mode opts into the real minimal parser and
// everything else gets the no-op variant.
func SelectParser(explicit string, labMode bool) (Parser, error) {
	if explicit != "" {
		return NewRegisteredParser(explicit)
	}
	if labMode {
		return NewMinimalXMLParser(), nil
	}
	return NewNoopParser(), nil
}

// ConfiguredParser reads the selection environment and resolves a parser
// for the current request.
func ConfiguredParser(lookup LookupFunc) (Parser, error) {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	explicit := ""
	if raw, ok := lookup(EnvParserOverride); ok {
		explicit = strings.TrimSpace(raw)
	}
	return SelectParser(explicit, labModeEnabled(lookup))
}

// labModeEnabled interprets the authorized-lab flag. Only the documented
// truthy spellings enable it.
func labModeEnabled(lookup LookupFunc) bool {
	raw, ok := lookup(EnvAuthorizedLab)
	if !ok {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "yes":
		return true
	}
	return false
}
