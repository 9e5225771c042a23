// Package audit records cap activations on a dual sink: an in-memory
// buffer for tests and inspection, and a durable JSONL log with size-based
// rotation. A broken durable sink degrades to rate-limited warnings and
// never fails the ingestion path that triggered the event.
package audit

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/scansage/scansage/internal/logging"
	"github.com/scansage/scansage/internal/metrics"
)

// EventName is the constant name attached to every cap activation event.
const EventName = "NMAP_INGEST_CAP_APPLIED"

// FileName is the durable log file created under the configured directory.
const FileName = "audit.jsonl"

// DefaultMaxBytes is the rotation threshold when none is configured.
const DefaultMaxBytes = 1000000

// DefaultWarnInterval rate-limits sink failure warnings per failure kind.
const DefaultWarnInterval = 60 * time.Second

const (
	auditDirPerm  = 0750
	auditFilePerm = 0600
)

// Failure kinds used for warning rate limits.
const (
	kindMkdir  = "mkdir"
	kindStat   = "stat"
	kindRotate = "rotate"
	kindWrite  = "write"
)

// Limits snapshots the limit set in force when a cap fired.
type Limits struct {
	MaxPayloadBytes int `json:"max_payload_bytes"`
	MaxHosts        int `json:"max_hosts"`
	MaxPortsPerHost int `json:"max_ports_per_host"`
	MaxFindings     int `json:"max_findings"`
}

// Event is one cap activation record. It never contains identifier-bearing
// text; counts and enumerated reasons only.
type Event struct {
	Event          string         `json:"event"`
	CapReason      string         `json:"cap_reason"`
	Limits         Limits         `json:"limits"`
	CountsSeen     map[string]int `json:"counts_seen"`
	CountsReturned map[string]int `json:"counts_returned"`
}

// Recorder accepts cap activation events. Tests inject capturing
// implementations in place of the durable sink.
type Recorder interface {
	RecordCapEvent(reason string, limits Limits, countsSeen, countsReturned map[string]int)
}

// Config controls the durable half of the sink.
type Config struct {
	// Directory receives the JSONL file; created if missing.
	Directory string
	// MaxBytes triggers rotation when the live file reaches it. Zero or
	// negative disables rotation.
	MaxBytes int64
	// WarnInterval throttles failure warnings per kind. Zero selects the
	// default interval.
	WarnInterval time.Duration
}

// Sink is the dual-sink Recorder. The in-memory buffer is unbounded within
// a process and guarded for concurrent use.
type Sink struct {
	mu       sync.Mutex
	events   []Event
	lastWarn map[string]time.Time

	directory    string
	maxBytes     int64
	warnInterval time.Duration
	logger       *logging.Logger
	metrics      metrics.MetricsRegistry
	now          func() time.Time
}

// NewSink creates a cap audit sink. Logger may be nil; the package default
// is used. Metrics may be nil.
func NewSink(cfg Config, logger *logging.Logger, registry metrics.MetricsRegistry) *Sink {
	if logger == nil {
		logger = logging.Default()
	}
	interval := cfg.WarnInterval
	if interval <= 0 {
		interval = DefaultWarnInterval
	}
	return &Sink{
		lastWarn:     make(map[string]time.Time),
		directory:    cfg.Directory,
		maxBytes:     cfg.MaxBytes,
		warnInterval: interval,
		logger:       logger,
		metrics:      registry,
		now:          time.Now,
	}
}

// RecordCapEvent appends one event to the in-memory buffer and the durable
// log. Durable failures are warned and swallowed.
func (s *Sink) RecordCapEvent(reason string, limits Limits, countsSeen, countsReturned map[string]int) {
	event := Event{
		Event:          EventName,
		CapReason:      reason,
		Limits:         limits,
		CountsSeen:     countsSeen,
		CountsReturned: countsReturned,
	}

	s.mu.Lock()
	s.events = append(s.events, event)
	s.mu.Unlock()

	s.appendDurable(event)
}

// Events returns a copy of the in-memory buffer.
func (s *Sink) Events() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Event, len(s.events))
	copy(out, s.events)
	return out
}

// Reset clears the in-memory buffer.
func (s *Sink) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = nil
}

// appendDurable writes one JSONL line, rotating first when the live file
// has reached the threshold.
func (s *Sink) appendDurable(event Event) {
	if s.directory == "" {
		return
	}

	if err := os.MkdirAll(s.directory, auditDirPerm); err != nil {
		s.warnFailure(kindMkdir, err)
		return
	}

	path := filepath.Join(s.directory, FileName)
	s.rotateIfNeeded(path)

	line, err := json.Marshal(event)
	if err != nil {
		s.warnFailure(kindWrite, err)
		return
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, auditFilePerm)
	if err != nil {
		s.warnFailure(kindWrite, err)
		return
	}
	defer file.Close()

	if _, err := file.Write(append(line, '\n')); err != nil {
		s.warnFailure(kindWrite, err)
	}
}

// rotateIfNeeded renames the live file to a single .1 backup once it
// reaches the threshold. The rename happens before any append handle is
// opened, so a crash mid-rotation cannot lose the live file.
func (s *Sink) rotateIfNeeded(path string) {
	if s.maxBytes <= 0 {
		return
	}

	info, err := os.Stat(path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.warnFailure(kindStat, err)
		}
		return
	}
	if info.Size() < s.maxBytes {
		return
	}

	backup := path + ".1"
	if err := os.Remove(backup); err != nil && !os.IsNotExist(err) {
		s.warnFailure(kindRotate, err)
		return
	}
	if err := os.Rename(path, backup); err != nil {
		s.warnFailure(kindRotate, err)
		return
	}
	if s.metrics != nil {
		s.metrics.Counter(metrics.MetricAuditRotations, nil)
	}
}

// warnFailure logs one rate-limited warning per failure kind.
func (s *Sink) warnFailure(kind string, err error) {
	if s.metrics != nil {
		s.metrics.Counter(metrics.MetricAuditWriteFailures, metrics.Labels{metrics.LabelKind: kind})
	}
	if !s.shouldWarn(kind) {
		return
	}
	s.logger.WarnAudit("cap audit sink failure", kind, err)
}

// shouldWarn reports whether enough time has passed since the last warning
// of this kind.
func (s *Sink) shouldWarn(kind string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	if last, ok := s.lastWarn[kind]; ok && now.Sub(last) < s.warnInterval {
		return false
	}
	s.lastWarn[kind] = now
	return true
}
