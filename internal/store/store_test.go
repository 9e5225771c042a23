package store

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scansage/scansage/internal/errors"
	"github.com/scansage/scansage/internal/metrics"
)

func testRecord(n int) IngestRecord {
	return IngestRecord{
		IngestID:      fmt.Sprintf("%032d", n),
		CreatedAt:     "2026-08-25T12:00:00Z",
		Format:        "nmap_xml",
		PayloadBytes:  100 + n,
		PayloadSHA256: fmt.Sprintf("%064d", n),
		Parsed:        true,
		FindingsCount: n,
		ParserVersion: "real-minimal-0.2",
		NextSteps:     []string{"Await a dedicated parser before acting on any findings."},
	}
}

func metricValue(registry *metrics.Registry, name string, labels metrics.Labels) float64 {
	for _, metric := range registry.GetMetrics() {
		if metric.Name != name {
			continue
		}
		matched := true
		for key, want := range labels {
			if metric.Labels[key] != want {
				matched = false
				break
			}
		}
		if matched {
			return metric.Value
		}
	}
	return 0
}

func TestNewWithMissingFile(t *testing.T) {
	s := New(t.TempDir(), nil, nil)

	assert.Equal(t, 0, s.Count())
	assert.Empty(t, s.List(MaxRecords))
}

func TestPersistAndGet(t *testing.T) {
	s := New(t.TempDir(), nil, nil)

	record := testRecord(1)
	require.NoError(t, s.Persist(record))

	got, err := s.Get(record.IngestID)
	require.NoError(t, err)
	assert.Equal(t, record, got)

	_, err = os.Stat(s.Path())
	assert.NoError(t, err)
}

func TestGetMissingRecord(t *testing.T) {
	s := New(t.TempDir(), nil, nil)

	_, err := s.Get("does-not-exist")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeRecordNotFound))
}

func TestPersistTrimsRetentionRing(t *testing.T) {
	s := New(t.TempDir(), nil, nil)

	for n := 1; n <= MaxRecords+4; n++ {
		require.NoError(t, s.Persist(testRecord(n)))
	}

	assert.Equal(t, MaxRecords, s.Count())

	records := s.List(MaxRecords)
	require.Len(t, records, MaxRecords)
	assert.Equal(t, testRecord(MaxRecords+4).IngestID, records[0].IngestID)
	assert.Equal(t, testRecord(5).IngestID, records[MaxRecords-1].IngestID)

	_, err := s.Get(testRecord(1).IngestID)
	assert.Error(t, err)
}

func TestListOrderAndLimit(t *testing.T) {
	s := New(t.TempDir(), nil, nil)
	for n := 1; n <= 3; n++ {
		require.NoError(t, s.Persist(testRecord(n)))
	}

	all := s.List(MaxRecords)
	require.Len(t, all, 3)
	assert.Equal(t, testRecord(3).IngestID, all[0].IngestID)
	assert.Equal(t, testRecord(1).IngestID, all[2].IngestID)

	assert.Len(t, s.List(2), 2)
	assert.Empty(t, s.List(0))
	assert.Empty(t, s.List(-1))
	assert.Len(t, s.List(99), 3)
}

func TestClear(t *testing.T) {
	s := New(t.TempDir(), nil, nil)
	require.NoError(t, s.Persist(testRecord(1)))

	require.NoError(t, s.Clear())
	assert.Equal(t, 0, s.Count())

	_, err := os.Stat(s.Path())
	assert.True(t, os.IsNotExist(err))

	assert.NoError(t, s.Clear())
}

func TestCorruptFileReadsEmpty(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte("{not json"), 0600))

	s := New(dir, nil, nil)
	assert.Equal(t, 0, s.Count())

	require.NoError(t, s.Persist(testRecord(1)))
	assert.Equal(t, 1, s.Count())
}

func TestRecordFileShape(t *testing.T) {
	s := New(t.TempDir(), nil, nil)
	require.NoError(t, s.Persist(testRecord(7)))

	data, err := os.ReadFile(s.Path())
	require.NoError(t, err)

	body := string(data)
	for _, key := range []string{
		"ingest_id", "created_at", "format", "payload_bytes", "payload_sha256",
		"parsed", "findings_count", "parser_version", "next_steps",
	} {
		assert.Contains(t, body, `"`+key+`"`)
	}
	assert.NotContains(t, body, "title")
	assert.NotContains(t, body, "detail")
}

func TestStoreMetrics(t *testing.T) {
	registry := metrics.NewRegistry()
	s := New(t.TempDir(), nil, registry)

	require.NoError(t, s.Persist(testRecord(1)))
	require.NoError(t, s.Persist(testRecord(2)))
	_, _ = s.Get(testRecord(1).IngestID)
	_, _ = s.Get("missing")

	persists := metricValue(registry, metrics.MetricStoreOperations, metrics.Labels{
		metrics.LabelOperation: "persist",
		metrics.LabelStatus:    "success",
	})
	assert.Equal(t, float64(2), persists)

	hits := metricValue(registry, metrics.MetricStoreOperations, metrics.Labels{
		metrics.LabelOperation: "get",
		metrics.LabelStatus:    "success",
	})
	assert.Equal(t, float64(1), hits)

	misses := metricValue(registry, metrics.MetricStoreOperations, metrics.Labels{
		metrics.LabelOperation: "get",
		metrics.LabelStatus:    "error",
	})
	assert.Equal(t, float64(1), misses)

	gauge := metricValue(registry, metrics.MetricStoreRecords, nil)
	assert.Equal(t, float64(2), gauge)
}

func TestConcurrentPersist(t *testing.T) {
	s := New(t.TempDir(), nil, nil)

	done := make(chan struct{})
	for g := 0; g < 4; g++ {
		go func(g int) {
			defer func() { done <- struct{}{} }()
			for n := 0; n < 8; n++ {
				_ = s.Persist(testRecord(g*100 + n))
			}
		}(g)
	}
	for g := 0; g < 4; g++ {
		<-done
	}

	assert.Equal(t, MaxRecords, s.Count())
}