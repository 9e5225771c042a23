// Package redact removes identifier-shaped tokens from text that is
// destined for public responses. It guarantees the documented pattern
// set (IPv4, IPv6, MAC, hostname) is caught; it does not attempt to
// recognize every conceivable identifier format.
package redact

import (
	"regexp"
	"strings"
)

// Placeholder is the fixed replacement for every redacted token.
const Placeholder = "[redacted]"

// identifierExprs describe the identifier shapes, tried in order: IPv4,
// full IPv6, compressed IPv6, MAC, hostname. The hostname rule requires
// an alphabetic top-level label, so dotted version strings like "7.4"
// pass through untouched.
var identifierExprs = []string{
	`(?:\b(?:\d{1,3}\.){3}\d{1,3}\b)`,
	`(?:\b[0-9a-f]{1,4}(?::[0-9a-f]{1,4}){2,7}\b)`,
	`(?:\b[0-9a-f]{1,4}(?::[0-9a-f]{1,4})*::(?:[0-9a-f]{1,4}(?::[0-9a-f]{1,4})*)?\b)`,
	`(?:\b(?:[0-9a-f]{2}[:-]){5}[0-9a-f]{2}\b)`,
	`(?:\b[a-z0-9](?:[a-z0-9-]{0,61}[a-z0-9])?\.[a-z]{2,}\b)`,
}

// identifierPattern matches any identifier-like fragment.
var identifierPattern = regexp.MustCompile(`(?i)` + strings.Join(identifierExprs, "|"))

// pathPattern catches obvious raw filesystem path fragments as a
// universal rule on outbound error text.
var pathPattern = regexp.MustCompile(`(?i)(?:[a-z]:\\|/home/|\./|\.\.)`)

// Identifiers replaces every identifier-shaped token in s with
// Placeholder. The transform is idempotent: the placeholder itself
// matches none of the patterns.
func Identifiers(s string) string {
	return identifierPattern.ReplaceAllString(s, Placeholder)
}

// HasIdentifier reports whether s contains at least one identifier-shaped
// token. Used by parsers that silently drop identifier-bearing input
// lines instead of surfacing them.
func HasIdentifier(s string) bool {
	return identifierPattern.MatchString(s)
}

// PublicString prepares a single string value for inclusion in a public
// error envelope: raw path fragments are scrubbed first, then identifier
// tokens.
func PublicString(s string) string {
	return Identifiers(pathPattern.ReplaceAllString(s, Placeholder))
}
