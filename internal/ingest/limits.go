// Package ingest implements the sanitized ingestion pipeline for untrusted
// scan-tool output. Payloads pass a safety gate, a bounded parser, and a
// redaction layer before anything reaches a public response; every cap
// activation is recorded on an audit sink.
package ingest

import (
	"os"
	"strconv"
	"strings"
)

// Default limits applied when the environment provides no usable override.
const (
	DefaultMaxPayloadBytes = 32768
	DefaultMaxHosts        = 64
	DefaultMaxPortsPerHost = 128
	DefaultMaxFindings     = 100
)

// Ceilings clamp oversized environment overrides so an operator typo can
// never disable a limit outright.
const (
	ceilingPayloadBytes = 1048576
	ceilingHosts        = 4096
	ceilingPortsPerHost = 65535
	ceilingFindings     = 10000
)

// Environment variables consulted when resolving limits at request time.
const (
	EnvMaxPayloadBytes = "SCANSAGE_MAX_NMAP_XML_BYTES"
	EnvMaxHosts        = "SCANSAGE_MAX_NMAP_XML_HOSTS"
	EnvMaxPortsPerHost = "SCANSAGE_MAX_NMAP_XML_PORTS_PER_HOST"
	EnvMaxFindings     = "SCANSAGE_MAX_NMAP_XML_FINDINGS"
)

// LimitConfig bounds a single ingestion attempt. All four values are
// always positive; resolution never produces a partial or zero limit.
type LimitConfig struct {
	MaxPayloadBytes int `json:"max_payload_bytes"`
	MaxHosts        int `json:"max_hosts"`
	MaxPortsPerHost int `json:"max_ports_per_host"`
	MaxFindings     int `json:"max_findings"`
}

// DefaultLimits returns the hard-coded limit set.
func DefaultLimits() LimitConfig {
	return LimitConfig{
		MaxPayloadBytes: DefaultMaxPayloadBytes,
		MaxHosts:        DefaultMaxHosts,
		MaxPortsPerHost: DefaultMaxPortsPerHost,
		MaxFindings:     DefaultMaxFindings,
	}
}

// LookupFunc reports an environment value and whether it was set.
// os.LookupEnv satisfies it; tests inject maps.
type LookupFunc func(key string) (string, bool)

// ResolveLimits builds a LimitConfig from the environment. Unset, empty,
// malformed, or non-positive values silently fall back to the default for
// that field; values above the field ceiling clamp to the ceiling. Each
// field resolves independently.
func ResolveLimits(lookup LookupFunc) LimitConfig {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	return LimitConfig{
		MaxPayloadBytes: envInt(lookup, EnvMaxPayloadBytes, DefaultMaxPayloadBytes, ceilingPayloadBytes),
		MaxHosts:        envInt(lookup, EnvMaxHosts, DefaultMaxHosts, ceilingHosts),
		MaxPortsPerHost: envInt(lookup, EnvMaxPortsPerHost, DefaultMaxPortsPerHost, ceilingPortsPerHost),
		MaxFindings:     envInt(lookup, EnvMaxFindings, DefaultMaxFindings, ceilingFindings),
	}
}

// envInt parses one bounded integer from the environment. The minimum is
// always 1: a zero or negative override means the caller asked for "no
// limit", which this boundary refuses to grant.
func envInt(lookup LookupFunc, name string, def, ceiling int) int {
	raw, ok := lookup(name)
	if !ok {
		return def
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return def
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	if value < 1 {
		return def
	}
	if value > ceiling {
		return ceiling
	}
	return value
}
