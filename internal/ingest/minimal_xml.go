package ingest

import (
	"fmt"
	"strconv"
	"strings"
)

// MinimalXMLParser extracts open-TCP-port findings from the whitelisted
// element subset of Nmap-style XML: host, status, ports, port, state and
// service. Everything else in the document is ignored. The walk is bounded
// by the host and port caps; once the findings cap trips, extraction stops
// but the walk continues so processed counts still reflect every candidate
// seen within bounds.
type MinimalXMLParser struct{}

// NewMinimalXMLParser returns the real minimal extraction variant.
func NewMinimalXMLParser() *MinimalXMLParser {
	return &MinimalXMLParser{}
}

// Version returns the parser version string.
func (p *MinimalXMLParser) Version() string {
	return VersionRealMinimal
}

// Parse runs the safety gate and walks the tree into findings.
func (p *MinimalXMLParser) Parse(payload []byte, limits LimitConfig) (ParseResult, error) {
	doc, err := ParseSafely(payload, limits.MaxPayloadBytes)
	if err != nil {
		return ParseResult{}, err
	}

	tracker := NewCapTracker()
	var findings []Finding

	for hostIndex, host := range doc.Root.ChildrenNamed("host") {
		if hostIndex >= limits.MaxHosts {
			tracker.MarkLimit(CapMaxHosts)
			break
		}
		tracker.AddHost()

		if hostDown(host) {
			continue
		}

		ports := host.FirstChild("ports")
		if ports == nil {
			continue
		}

		for portIndex, port := range ports.ChildrenNamed("port") {
			if portIndex >= limits.MaxPortsPerHost {
				tracker.MarkLimit(CapMaxPorts)
				break
			}
			tracker.AddPort()

			finding, ok := findingFromPort(port, hostIndex, portIndex)
			if !ok {
				continue
			}
			tracker.AddFinding()

			if len(findings) >= limits.MaxFindings {
				tracker.MarkLimit(CapMaxFindings)
				continue
			}
			findings = append(findings, finding)
		}
	}

	info := tracker.Snapshot()
	return ParseResult{
		Parsed:        true,
		Findings:      findings,
		ParserVersion: p.Version(),
		CapInfo:       &info,
	}, nil
}

// hostDown reports whether the host carries a status element marking it
// down. Hosts without a status element are treated as up.
func hostDown(host *Element) bool {
	status := host.FirstChild("status")
	if status == nil {
		return false
	}
	return strings.EqualFold(status.Attr("state"), "down")
}

// findingFromPort selects a port element and builds its finding. Only open
// TCP ports with a port id and a named service qualify; anything else is
// skipped without error. Optional product, version and extrainfo attributes
// join the detail text.
func findingFromPort(port *Element, hostIndex, portIndex int) (Finding, bool) {
	if port.Attr("protocol") != "tcp" {
		return Finding{}, false
	}
	state := port.FirstChild("state")
	if state == nil || state.Attr("state") != "open" {
		return Finding{}, false
	}
	portID := port.Attr("portid")
	if portID == "" {
		return Finding{}, false
	}
	service := port.FirstChild("service")
	if service == nil {
		return Finding{}, false
	}
	name := service.Attr("name")
	if name == "" {
		return Finding{}, false
	}

	parts := []string{name}
	for _, attr := range []string{"product", "version", "extrainfo"} {
		if value := service.Attr(attr); value != "" {
			parts = append(parts, value)
		}
	}

	portNumber := 0
	if parsed, err := strconv.Atoi(portID); err == nil {
		portNumber = parsed
	}

	return NewFinding(
		fmt.Sprintf("Port %s open", portID),
		fmt.Sprintf("%s service noted on TCP/%s", strings.Join(parts, " "), portID),
		ConfidenceMedium,
		NewSortKey(hostIndex, portIndex, portNumber, name),
	), true
}
