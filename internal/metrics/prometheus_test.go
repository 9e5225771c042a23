package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestPrometheusMetrics_InitializationAndUpdate(t *testing.T) {
	pm := NewPrometheusMetrics()
	if pm == nil {
		t.Fatalf("NewPrometheusMetrics returned nil")
	}

	reg := pm.GetRegistry()
	if reg == nil {
		t.Fatalf("GetRegistry returned nil")
	}

	// Should be able to update system metrics without panic
	pm.UpdateSystemMetrics()
	// Uptime should be increasing
	before := pm.GetUptime()
	time.Sleep(10 * time.Millisecond)
	after := pm.GetUptime()
	if before >= after {
		t.Fatalf("expected uptime to increase, before=%v after=%v", before, after)
	}
}

func TestPrometheusMetrics_HTTPHandlerServes(t *testing.T) {
	pm := NewPrometheusMetrics()
	// Update once to populate gauges
	pm.UpdateSystemMetrics()

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)

	handler := promhttp.HandlerFor(pm.GetRegistry(), promhttp.HandlerOpts{})
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}

	body := rr.Body.String()
	if body == "" {
		t.Fatalf("expected non-empty metrics body")
	}
	// Expect a known metric name prefix (namespace + subsystem + name)
	if !contains(body, "scansage_system_uptime_seconds") {
		end := minInt(200, len(body))
		t.Fatalf("expected uptime metric in output, got: %s", body[:end])
	}
}

func TestPrometheusMetrics_IngestMetrics(t *testing.T) {
	pm := NewPrometheusMetrics()

	// Test IncrementIngestsTotal
	pm.IncrementIngestsTotal("nmap_xml", "accepted")
	pm.IncrementIngestsTotal("nmap_xml", "accepted")
	pm.IncrementIngestsTotal("synthetic_v1", "rejected")

	count := testutil.CollectAndCount(pm.ingestsTotal)
	if count != 2 {
		t.Errorf("expected 2 label combinations, got %d", count)
	}

	// Test RecordIngestDuration
	pm.RecordIngestDuration("nmap_xml", 5*time.Millisecond)
	pm.RecordIngestDuration("nmap_xml", 3*time.Millisecond)
	pm.RecordIngestDuration("synthetic_v1", 2*time.Millisecond)

	count = testutil.CollectAndCount(pm.ingestDuration)
	if count != 2 {
		t.Errorf("expected 2 formats, got %d", count)
	}

	// Test IncrementIngestErrors
	pm.IncrementIngestErrors("nmap_xml", "invalid_input")
	pm.IncrementIngestErrors("nmap_xml", "payload_too_large")

	count = testutil.CollectAndCount(pm.ingestErrors)
	if count != 2 {
		t.Errorf("expected 2 rejection reasons, got %d", count)
	}

	// Test ObservePayloadBytes
	pm.ObservePayloadBytes("nmap_xml", 2048)
	pm.ObservePayloadBytes("nmap_xml", 512)
	pm.ObservePayloadBytes("synthetic_v1", 128)

	count = testutil.CollectAndCount(pm.payloadBytes)
	if count != 2 {
		t.Errorf("expected 2 formats, got %d", count)
	}

	// Test ObserveFindingsReturned
	pm.ObserveFindingsReturned("nmap_xml", 12)
	pm.ObserveFindingsReturned("synthetic_v1", 3)

	count = testutil.CollectAndCount(pm.findingsReturned)
	if count != 2 {
		t.Errorf("expected 2 formats, got %d", count)
	}

	// Test IncrementCapEvents
	pm.IncrementCapEvents("MAX_HOSTS")
	pm.IncrementCapEvents("MAX_HOSTS")
	pm.IncrementCapEvents("MAX_FINDINGS")

	count = testutil.CollectAndCount(pm.capEvents)
	if count != 2 {
		t.Errorf("expected 2 cap reasons, got %d", count)
	}
}

func TestPrometheusMetrics_AuditMetrics(t *testing.T) {
	pm := NewPrometheusMetrics()

	// Test IncrementAuditWriteFailures
	pm.IncrementAuditWriteFailures("write")
	pm.IncrementAuditWriteFailures("mkdir")

	count := testutil.CollectAndCount(pm.auditWriteFailures)
	if count != 2 {
		t.Errorf("expected 2 failure kinds, got %d", count)
	}

	// Test IncrementAuditRotations
	pm.IncrementAuditRotations()
	pm.IncrementAuditRotations()

	value := testutil.ToFloat64(pm.auditRotations)
	if value != 2 {
		t.Errorf("expected 2 rotations, got %f", value)
	}
}

func TestPrometheusMetrics_StoreMetrics(t *testing.T) {
	pm := NewPrometheusMetrics()

	// Test IncrementStoreOperations
	pm.IncrementStoreOperations("persist", "success")
	pm.IncrementStoreOperations("load", "error")

	count := testutil.CollectAndCount(pm.storeOperations)
	if count != 2 {
		t.Errorf("expected 2 operation types, got %d", count)
	}

	// Test SetStoreRecords
	pm.SetStoreRecords(10)
	pm.SetStoreRecords(8)

	count = testutil.CollectAndCount(pm.storeRecords)
	if count != 1 {
		t.Errorf("expected 1 gauge metric, got %d", count)
	}

	value := testutil.ToFloat64(pm.storeRecords)
	if value != 8 {
		t.Errorf("expected last value 8, got %f", value)
	}
}

func TestPrometheusMetrics_APIMetrics(t *testing.T) {
	pm := NewPrometheusMetrics()

	// Test IncrementHTTPRequests
	pm.IncrementHTTPRequests("POST", "/api/v1/ingest", "200")
	pm.IncrementHTTPRequests("GET", "/api/v1/ingests", "200")
	pm.IncrementHTTPRequests("POST", "/api/v1/ingest", "200")

	count := testutil.CollectAndCount(pm.httpRequests)
	if count != 2 {
		t.Errorf("expected 2 endpoint/status combinations, got %d", count)
	}

	// Test RecordHTTPDuration
	pm.RecordHTTPDuration("POST", "/api/v1/ingest", 100*time.Millisecond)
	pm.RecordHTTPDuration("GET", "/api/v1/ingests", 200*time.Millisecond)

	count = testutil.CollectAndCount(pm.httpDuration)
	if count != 2 {
		t.Errorf("expected 2 endpoint types, got %d", count)
	}

	// Test IncrementHTTPErrors
	pm.IncrementHTTPErrors("POST", "/api/v1/ingest", "timeout")
	pm.IncrementHTTPErrors("GET", "/api/v1/ingests", "validation_error")

	count = testutil.CollectAndCount(pm.httpErrors)
	if count != 2 {
		t.Errorf("expected 2 error types, got %d", count)
	}
}

func TestPrometheusMetrics_SystemMetrics(t *testing.T) {
	pm := NewPrometheusMetrics()

	// Test UpdateSystemMetrics
	pm.UpdateSystemMetrics()

	// Verify gauges are populated
	count := testutil.CollectAndCount(pm.memoryUsage)
	if count != 1 {
		t.Errorf("expected 1 memory metric, got %d", count)
	}

	count = testutil.CollectAndCount(pm.goroutines)
	if count != 1 {
		t.Errorf("expected 1 goroutines metric, got %d", count)
	}

	count = testutil.CollectAndCount(pm.uptime)
	if count != 1 {
		t.Errorf("expected 1 uptime metric, got %d", count)
	}

	// Test GetLastUpdate
	before := pm.GetLastUpdate()
	time.Sleep(10 * time.Millisecond)
	pm.UpdateSystemMetrics()
	after := pm.GetLastUpdate()

	if !after.After(before) {
		t.Errorf("expected last update to change after UpdateSystemMetrics")
	}
}

func TestPrometheusMetrics_StartPeriodicUpdates(t *testing.T) {
	pm := NewPrometheusMetrics()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	done := make(chan struct{})
	go func() {
		pm.StartPeriodicUpdates(ctx, 20*time.Millisecond)
		close(done)
	}()

	// Wait for context to expire
	<-ctx.Done()
	<-done

	// Verify metrics were updated at least once
	count := testutil.CollectAndCount(pm.uptime)
	if count != 1 {
		t.Errorf("expected metrics to be updated, got %d uptime metrics", count)
	}
}

func TestPrometheusMetrics_GlobalInstance(t *testing.T) {
	// Test GetGlobalMetrics
	gm1 := GetGlobalMetrics()
	if gm1 == nil {
		t.Fatal("GetGlobalMetrics returned nil")
	}

	// Should return same instance
	gm2 := GetGlobalMetrics()
	if gm1 != gm2 {
		t.Error("GetGlobalMetrics should return same instance")
	}
}

func TestPrometheusMetrics_GlobalConvenienceFunctions(t *testing.T) {
	gm := GetGlobalMetrics()

	// Test RecordIngestDurationPrometheus
	RecordIngestDurationPrometheus("nmap_xml", 5*time.Millisecond)
	count := testutil.CollectAndCount(gm.ingestDuration)
	if count == 0 {
		t.Error("RecordIngestDurationPrometheus did not record metric")
	}

	// Test IncrementIngestTotalPrometheus
	IncrementIngestTotalPrometheus("nmap_xml", "accepted")
	count = testutil.CollectAndCount(gm.ingestsTotal)
	if count == 0 {
		t.Error("IncrementIngestTotalPrometheus did not record metric")
	}

	// Test IncrementIngestErrorsPrometheus
	IncrementIngestErrorsPrometheus("nmap_xml", "invalid_input")
	count = testutil.CollectAndCount(gm.ingestErrors)
	if count == 0 {
		t.Error("IncrementIngestErrorsPrometheus did not record metric")
	}

	// Test IncrementCapEventsPrometheus
	IncrementCapEventsPrometheus("MAX_PAYLOAD_BYTES")
	count = testutil.CollectAndCount(gm.capEvents)
	if count == 0 {
		t.Error("IncrementCapEventsPrometheus did not record metric")
	}

	// Test RecordStoreOperationPrometheus with success
	RecordStoreOperationPrometheus("persist", true)
	count = testutil.CollectAndCount(gm.storeOperations)
	if count == 0 {
		t.Error("RecordStoreOperationPrometheus (success) did not record metric")
	}

	// Test RecordStoreOperationPrometheus with error
	RecordStoreOperationPrometheus("load", false)
	count = testutil.CollectAndCount(gm.storeOperations)
	if count < 2 {
		t.Error("RecordStoreOperationPrometheus (error) did not record metric")
	}

	// Test SetStoreRecordsPrometheus
	SetStoreRecordsPrometheus(10)
	count = testutil.CollectAndCount(gm.storeRecords)
	if count == 0 {
		t.Error("SetStoreRecordsPrometheus did not record metric")
	}
}

// contains is a tiny helper to avoid importing strings just for tests
func contains(s, substr string) bool {
	return substr == "" || (len(s) >= len(substr) && indexOf(s, substr) >= 0)
}

func indexOf(s, substr string) int {
	// naive search sufficient for test
	n := len(s)
	m := len(substr)
	if m == 0 {
		return 0
	}
	for i := 0; i+m <= n; i++ {
		if s[i:i+m] == substr {
			return i
		}
	}
	return -1
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
