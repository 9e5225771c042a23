package redact

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIdentifiers(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "ipv4 address",
			input:    "open port on 192.0.2.17 found",
			expected: "open port on [redacted] found",
		},
		{
			name:     "ipv6 full form",
			input:    "addr 2001:db8:0:0:0:0:0:1 seen",
			expected: "addr [redacted] seen",
		},
		{
			name:     "ipv6 compressed form",
			input:    "addr 2001:db8::1 seen",
			expected: "addr [redacted] seen",
		},
		{
			name:     "mac address colon separated",
			input:    "nic 00:1A:2b:3C:4d:5E responded",
			expected: "nic [redacted] responded",
		},
		{
			name:     "mac address hyphen separated",
			input:    "nic de-ad-be-ef-00-01 responded",
			expected: "nic [redacted] responded",
		},
		{
			name:     "hostname pairs collapse label by label",
			input:    "reverse lookup gave db01.corp.example.com here",
			expected: "reverse lookup gave [redacted].[redacted] here",
		},
		{
			name:     "mixed hostname and ip",
			input:    "host01.internal.lan at 10.0.0.5",
			expected: "[redacted].lan at [redacted]",
		},
		{
			name:     "version string survives",
			input:    "OpenSSH 7.4 on port 22",
			expected: "OpenSSH 7.4 on port 22",
		},
		{
			name:     "no identifiers",
			input:    "ssh service noted on TCP/22",
			expected: "ssh service noted on TCP/22",
		},
		{
			name:     "empty string",
			input:    "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Identifiers(tt.input))
		})
	}
}

func TestIdentifiersIdempotent(t *testing.T) {
	input := "host01.internal.lan at 10.0.0.5 via 00:1a:2b:3c:4d:5e"
	once := Identifiers(input)
	twice := Identifiers(once)
	assert.Equal(t, once, twice)
	assert.NotContains(t, once, "10.0.0.5")
	assert.NotContains(t, once, "host01.internal")
}

func TestHasIdentifier(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected bool
	}{
		{name: "ipv4", input: "PORT_OPEN 22/tcp service=ssh on 10.1.2.3", expected: true},
		{name: "hostname", input: "seen at gw.example.org today", expected: true},
		{name: "mac", input: "de:ad:be:ef:00:01", expected: true},
		{name: "clean synthetic line", input: "PORT_OPEN 443/tcp service=https", expected: false},
		{name: "version number alone", input: "upgrade to 7.4 now", expected: false},
		{name: "plain words", input: "nothing sensitive here", expected: false},
		{name: "empty", input: "", expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, HasIdentifier(tt.input))
		})
	}
}

func TestPublicString(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "unix home path fragment scrubbed",
			input:    "failed reading /home/operator/scan.xml",
			expected: "failed reading [redacted]operator/[redacted]",
		},
		{
			name:     "windows drive path fragment scrubbed",
			input:    `parse error in C:\scans\out.xml`,
			expected: `parse error in [redacted]scans\[redacted]`,
		},
		{
			name:     "relative path fragment scrubbed",
			input:    "see ./artifacts for details",
			expected: "see [redacted]artifacts for details",
		},
		{
			name:     "parent traversal scrubbed",
			input:    "wrote ../audit.jsonl",
			expected: "wrote [redacted]/[redacted]",
		},
		{
			name:     "identifier gets token redaction",
			input:    "rejected payload from 198.51.100.9",
			expected: "rejected payload from [redacted]",
		},
		{
			name:     "clean string passes through",
			input:    "The payload was not valid for this operation.",
			expected: "The payload was not valid for this operation.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, PublicString(tt.input))
		})
	}
}
