package ingest

// CapReason identifies which configured limit was reached during an
// ingestion attempt. At most one reason is attached to an attempt.
type CapReason string

const (
	CapMaxHosts        CapReason = "MAX_HOSTS"
	CapMaxPorts        CapReason = "MAX_PORTS"
	CapMaxFindings     CapReason = "MAX_FINDINGS"
	CapMaxPayloadBytes CapReason = "MAX_PAYLOAD_BYTES"
)

// CapInfo is an immutable snapshot of what a parse attempt processed and
// which limit, if any, it hit. Reason is empty when no cap applied.
type CapInfo struct {
	HostsProcessed    int       `json:"hosts_processed"`
	PortsProcessed    int       `json:"ports_processed"`
	FindingsProcessed int       `json:"findings_processed"`
	Reason            CapReason `json:"cap_reason,omitempty"`
}

// Capped reports whether any limit was reached.
func (c CapInfo) Capped() bool {
	return c.Reason != ""
}

// CapTracker accumulates processing counts for a single parse invocation.
// Construct one tracker per attempt; it never resets.
type CapTracker struct {
	hosts    int
	ports    int
	findings int
	reason   CapReason
}

// NewCapTracker returns a tracker with zeroed counts and no reason.
func NewCapTracker() *CapTracker {
	return &CapTracker{}
}

// AddHost counts one host element as processed.
func (t *CapTracker) AddHost() {
	t.hosts++
}

// AddPort counts one port element as processed.
func (t *CapTracker) AddPort() {
	t.ports++
}

// AddFinding counts one candidate finding as processed.
func (t *CapTracker) AddFinding() {
	t.findings++
}

// MarkLimit records the most recently observed cap reason. Later calls
// overwrite earlier ones: when several limits fire in one attempt, the
// one detected last in processing order is the one reported.
func (t *CapTracker) MarkLimit(reason CapReason) {
	t.reason = reason
}

// Snapshot returns the immutable CapInfo for this attempt.
func (t *CapTracker) Snapshot() CapInfo {
	return CapInfo{
		HostsProcessed:    t.hosts,
		PortsProcessed:    t.ports,
		FindingsProcessed: t.findings,
		Reason:            t.reason,
	}
}
