// Package store persists public ingestion metadata records. The retention
// window is a small fixed ring kept in one JSON file: every persist appends
// and trims to the newest MaxRecords entries. Records carry digest and count
// metadata only, never findings text or payload fragments.
package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/scansage/scansage/internal/errors"
	"github.com/scansage/scansage/internal/logging"
	"github.com/scansage/scansage/internal/metrics"
)

const (
	// FileName is the record file kept under the configured directory.
	FileName = "nmap_ingest_records.json"

	// MaxRecords bounds the retention ring.
	MaxRecords = 16
)

// IngestRecord is one persisted ingestion summary.
type IngestRecord struct {
	IngestID      string   `json:"ingest_id"`
	CreatedAt     string   `json:"created_at"`
	Format        string   `json:"format"`
	PayloadBytes  int      `json:"payload_bytes"`
	PayloadSHA256 string   `json:"payload_sha256"`
	Parsed        bool     `json:"parsed"`
	FindingsCount int      `json:"findings_count"`
	ParserVersion string   `json:"parser_version"`
	NextSteps     []string `json:"next_steps"`
}

// Store reads and writes the record ring. A single mutex serializes file
// access within the process; the file itself has no cross-process
// coordination.
type Store struct {
	mu      sync.Mutex
	path    string
	logger  *logging.Logger
	metrics metrics.MetricsRegistry
}

// New returns a store rooted at directory. The record file is created on
// first persist; a missing or unreadable file reads as empty.
func New(directory string, logger *logging.Logger, registry metrics.MetricsRegistry) *Store {
	if logger == nil {
		logger = logging.NewDefault()
	}
	s := &Store{
		path:    filepath.Join(directory, FileName),
		logger:  logger.WithComponent("store"),
		metrics: registry,
	}
	s.setRecordsGauge(len(s.load()))
	return s
}

// Path returns the record file location.
func (s *Store) Path() string {
	return s.path
}

// Persist appends a record and trims the ring to the newest MaxRecords.
func (s *Store) Persist(record IngestRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records := append(s.load(), record)
	if len(records) > MaxRecords {
		records = records[len(records)-MaxRecords:]
	}

	if err := s.save(records); err != nil {
		s.observeOperation("persist", false)
		return err
	}

	s.observeOperation("persist", true)
	s.setRecordsGauge(len(records))
	s.logger.InfoStore("ingest record persisted",
		"ingest_id", record.IngestID,
		"records", len(records))
	return nil
}

// Get returns the record with the given ingest id.
func (s *Store) Get(ingestID string) (IngestRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, record := range s.load() {
		if record.IngestID == ingestID {
			s.observeOperation("get", true)
			return record, nil
		}
	}

	s.observeOperation("get", false)
	return IngestRecord{}, errors.ErrRecordNotFound()
}

// List returns records newest first. The limit clamps to [0, MaxRecords];
// callers without an explicit limit pass MaxRecords.
func (s *Store) List(limit int) []IngestRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit < 0 {
		limit = 0
	}
	if limit > MaxRecords {
		limit = MaxRecords
	}

	records := s.load()
	out := make([]IngestRecord, 0, len(records))
	for i := len(records) - 1; i >= 0; i-- {
		out = append(out, records[i])
	}
	if len(out) > limit {
		out = out[:limit]
	}

	s.observeOperation("list", true)
	return out
}

// Count returns the number of retained records.
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.load())
}

// Clear removes the record file. A missing file is not an error.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		s.observeOperation("clear", false)
		return errors.WrapStoreError(errors.CodeFileWrite, "Record file could not be removed", err)
	}

	s.observeOperation("clear", true)
	s.setRecordsGauge(0)
	return nil
}

// load reads the ring oldest first. Corrupt content is discarded rather
// than surfaced; the next save rewrites the file.
func (s *Store) load() []IngestRecord {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil
	}

	var records []IngestRecord
	if err := json.Unmarshal(data, &records); err != nil {
		s.logger.ErrorStore("discarding unreadable record file", err, "path", s.path)
		return nil
	}
	return records
}

func (s *Store) save(records []IngestRecord) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0750); err != nil {
		return errors.WrapStoreError(errors.CodeDirectoryCreate, "Record directory could not be created", err)
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return errors.WrapStoreError(errors.CodeStoreIO, "Records could not be encoded", err)
	}

	if err := os.WriteFile(s.path, data, 0600); err != nil {
		return errors.WrapStoreError(errors.CodeFileWrite, "Record file could not be written", err)
	}
	return nil
}

func (s *Store) observeOperation(operation string, success bool) {
	if s.metrics == nil {
		return
	}
	status := "success"
	if !success {
		status = "error"
	}
	s.metrics.Counter(metrics.MetricStoreOperations, metrics.Labels{
		metrics.LabelOperation: operation,
		metrics.LabelStatus:    status,
	})
}

func (s *Store) setRecordsGauge(count int) {
	if s.metrics == nil {
		return
	}
	s.metrics.Gauge(metrics.MetricStoreRecords, float64(count), nil)
}
