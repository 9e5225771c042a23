package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scansage/scansage/internal/audit"
	"github.com/scansage/scansage/internal/errors"
	"github.com/scansage/scansage/internal/redact"
	"github.com/scansage/scansage/internal/store"
)

type recordedEvent struct {
	reason         string
	limits         audit.Limits
	countsSeen     map[string]int
	countsReturned map[string]int
}

type capturingRecorder struct {
	events []recordedEvent
}

func (r *capturingRecorder) RecordCapEvent(reason string, limits audit.Limits, countsSeen, countsReturned map[string]int) {
	r.events = append(r.events, recordedEvent{
		reason:         reason,
		limits:         limits,
		countsSeen:     countsSeen,
		countsReturned: countsReturned,
	})
}

type failingStore struct{}

func (failingStore) Persist(store.IngestRecord) error {
	return errors.NewStoreError(errors.CodeFileWrite, "Record file could not be written")
}

func (failingStore) Get(string) (store.IngestRecord, error) {
	return store.IngestRecord{}, errors.ErrRecordNotFound()
}

func (failingStore) List(int) []store.IngestRecord { return nil }

func newTestService(t *testing.T, env map[string]string) (*Service, *capturingRecorder, *store.Store) {
	t.Helper()
	recorder := &capturingRecorder{}
	st := store.New(t.TempDir(), nil, nil)
	return NewService(st, recorder, nil, mapLookup(env)), recorder, st
}

func TestIngestPublicNoopDefault(t *testing.T) {
	svc, recorder, st := newTestService(t, nil)

	payload := "<nmaprun/>"
	response, errResp := svc.IngestPublic(context.Background(), IngestRequest{
		Format:  FormatNmapXML,
		Payload: payload,
	})
	require.Nil(t, errResp)
	require.NotNil(t, response)

	digest := sha256.Sum256([]byte(payload))

	assert.Equal(t, OperationIngest, response.Operation)
	assert.Len(t, response.IngestID, 32)
	assert.Equal(t, FormatNmapXML, response.Format)
	assert.Equal(t, len(payload), response.Summary.PayloadBytes)
	assert.Equal(t, hex.EncodeToString(digest[:]), response.Summary.PayloadSHA256)
	assert.False(t, response.Summary.Parsed)
	assert.Equal(t, VersionNoop, response.ParserVersion)
	assert.Equal(t, 0, response.FindingsCount)
	assert.NotNil(t, response.Findings)
	assert.Empty(t, response.Findings)
	assert.NotNil(t, response.ParsedFindings)
	assert.Empty(t, response.ParsedFindings)
	assert.Len(t, response.NextSteps, 2)
	assert.Nil(t, response.Metadata)
	assert.Empty(t, recorder.events)

	record, err := st.Get(response.IngestID)
	require.NoError(t, err)
	assert.Equal(t, response.Summary.PayloadSHA256, record.PayloadSHA256)
	assert.Equal(t, len(payload), record.PayloadBytes)
	assert.False(t, record.Parsed)
	assert.Equal(t, VersionNoop, record.ParserVersion)
	assert.Equal(t, response.NextSteps, record.NextSteps)
}

func TestIngestPublicEmptyPayload(t *testing.T) {
	svc, _, _ := newTestService(t, nil)

	response, errResp := svc.IngestPublic(context.Background(), IngestRequest{Format: FormatNmapXML})
	require.Nil(t, errResp)
	assert.Equal(t, 0, response.Summary.PayloadBytes)
	assert.Equal(t, 0, response.FindingsCount)
}

func TestIngestPublicUnsupportedFormat(t *testing.T) {
	svc, _, st := newTestService(t, nil)

	response, errResp := svc.IngestPublic(context.Background(), IngestRequest{
		Format:  "sarif",
		Payload: "<nmaprun/>",
	})
	assert.Nil(t, response)
	require.NotNil(t, errResp)
	assert.Equal(t, StatusError, errResp.Status)
	assert.Equal(t, ReasonInvalidInput, errResp.Reason)
	assert.Equal(t, "Request format is not supported.", errResp.Detail)
	assert.Equal(t, 0, st.Count())
}

func TestIngestPublicSyntheticRequiresMetaFlag(t *testing.T) {
	svc, _, _ := newTestService(t, nil)

	for _, meta := range []map[string]string{nil, {}, {"parser": "real_minimal"}} {
		_, errResp := svc.IngestPublic(context.Background(), IngestRequest{
			Format:  FormatSynthetic,
			Payload: "PORT_OPEN 22/tcp service=ssh",
			Meta:    meta,
		})
		require.NotNil(t, errResp)
		assert.Equal(t, ReasonInvalidInput, errResp.Reason)
		assert.Equal(t, "Synthetic parser requires explicit parser flag.", errResp.Detail)
	}

	response, errResp := svc.IngestPublic(context.Background(), IngestRequest{
		Format:  FormatSynthetic,
		Payload: "PORT_OPEN 22/tcp service=ssh",
		Meta:    map[string]string{"parser": FormatSynthetic},
	})
	require.Nil(t, errResp)
	assert.True(t, response.Summary.Parsed)
}

func TestIngestPublicSyntheticFindings(t *testing.T) {
	svc, _, _ := newTestService(t, nil)

	payload := "PORT_OPEN 22/tcp service=ssh\nPORT_OPEN 80/tcp service=http ip=192.0.2.123"
	response, errResp := svc.IngestPublic(context.Background(), IngestRequest{
		Format:  FormatSynthetic,
		Payload: payload,
		Meta:    map[string]string{"parser": FormatSynthetic},
	})
	require.Nil(t, errResp)

	assert.True(t, response.Summary.Parsed)
	assert.Equal(t, VersionSynthetic, response.ParserVersion)
	assert.Equal(t, 1, response.FindingsCount)
	require.Len(t, response.ParsedFindings, 1)
	assert.Equal(t, "Port 22 open", response.ParsedFindings[0].Title)

	serialized, err := json.Marshal(response)
	require.NoError(t, err)
	assert.NotContains(t, string(serialized), "192.0.2.123")
}

func TestIngestPublicSyntheticMalformed(t *testing.T) {
	svc, _, st := newTestService(t, nil)

	response, errResp := svc.IngestPublic(context.Background(), IngestRequest{
		Format:  FormatSynthetic,
		Payload: "PORT_OPEN ABC/tcp service=ssh",
		Meta:    map[string]string{"parser": FormatSynthetic},
	})
	assert.Nil(t, response)
	require.NotNil(t, errResp)
	assert.Equal(t, ReasonInvalidInput, errResp.Reason)
	assert.Equal(t, "Unable to process the ingestion payload.", errResp.Detail)
	assert.NotContains(t, errResp.Detail, "ABC")
	assert.Equal(t, 0, st.Count())
}

func TestIngestPublicOversizePayload(t *testing.T) {
	svc, recorder, st := newTestService(t, map[string]string{
		EnvMaxPayloadBytes: "64",
	})

	payload := strings.Repeat("A", 80) + "UNSAFE-MARKER-13624"
	response, errResp := svc.IngestPublic(context.Background(), IngestRequest{
		Format:  FormatNmapXML,
		Payload: payload,
	})
	assert.Nil(t, response)
	require.NotNil(t, errResp)
	assert.Equal(t, ReasonPayloadTooLarge, errResp.Reason)
	assert.Equal(t, "Payload exceeds the allowed size.", errResp.Detail)

	serialized, err := json.Marshal(errResp)
	require.NoError(t, err)
	assert.NotContains(t, string(serialized), "UNSAFE-MARKER-13624")

	assert.Equal(t, 0, st.Count())

	require.Len(t, recorder.events, 1)
	event := recorder.events[0]
	assert.Equal(t, string(CapMaxPayloadBytes), event.reason)
	assert.Equal(t, 64, event.limits.MaxPayloadBytes)
	assert.Equal(t, map[string]int{"payload_bytes": len(payload)}, event.countsSeen)
	assert.Equal(t, map[string]int{
		"hosts_returned":    0,
		"ports_returned":    0,
		"findings_returned": 0,
	}, event.countsReturned)
}

func TestIngestPublicUnsafeDeclaration(t *testing.T) {
	svc, _, _ := newTestService(t, map[string]string{
		EnvParserOverride: ParserRealMinimal,
	})

	response, errResp := svc.IngestPublic(context.Background(), IngestRequest{
		Format:  FormatNmapXML,
		Payload: `<!DOCTYPE nmaprun SYSTEM "nmap.dtd"><nmaprun/>`,
	})
	assert.Nil(t, response)
	require.NotNil(t, errResp)
	assert.Equal(t, ReasonInvalidInput, errResp.Reason)

	serialized, err := json.Marshal(errResp)
	require.NoError(t, err)
	assert.NotContains(t, string(serialized), "<!DOCTYPE")
	assert.NotContains(t, string(serialized), "nmap.dtd")
}

func TestIngestPublicRealParserFixture(t *testing.T) {
	svc, recorder, st := newTestService(t, map[string]string{
		EnvParserOverride: ParserRealMinimal,
	})

	payload := `<nmaprun><host><address addr="192.0.2.1"/><ports><port protocol="tcp" portid="22"><state state="open"/><service name="ssh" product="OpenSSH" version="7.4"/></port></ports></host></nmaprun>`
	response, errResp := svc.IngestPublic(context.Background(), IngestRequest{
		Format:  FormatNmapXML,
		Payload: payload,
	})
	require.Nil(t, errResp)

	assert.True(t, response.Summary.Parsed)
	assert.Equal(t, VersionRealMinimal, response.ParserVersion)
	assert.Equal(t, 1, response.FindingsCount)
	require.Len(t, response.ParsedFindings, 1)

	finding := response.ParsedFindings[0]
	assert.Equal(t, "Port 22 open", finding.Title)
	assert.Contains(t, finding.Detail, "ssh")
	assert.Contains(t, finding.Detail, "OpenSSH")
	assert.Contains(t, finding.Detail, "7.4")
	assert.Equal(t, "medium", finding.Confidence)

	serialized, err := json.Marshal(response)
	require.NoError(t, err)
	assert.NotContains(t, string(serialized), "192.0.2.1")
	assert.False(t, redact.HasIdentifier(string(serialized)))

	assert.Nil(t, response.Metadata)
	assert.Empty(t, recorder.events)

	record, err := st.Get(response.IngestID)
	require.NoError(t, err)
	assert.True(t, record.Parsed)
	assert.Equal(t, 1, record.FindingsCount)
	assert.Equal(t, VersionRealMinimal, record.ParserVersion)
}

func TestIngestPublicFindingsCapScenario(t *testing.T) {
	svc, recorder, _ := newTestService(t, map[string]string{
		EnvParserOverride: ParserRealMinimal,
		EnvMaxFindings:    "6",
	})

	response, errResp := svc.IngestPublic(context.Background(), IngestRequest{
		Format:  FormatNmapXML,
		Payload: string(openPortHosts(10)),
	})
	require.Nil(t, errResp)

	assert.Equal(t, 6, response.FindingsCount)
	assert.Len(t, response.ParsedFindings, 6)

	require.NotNil(t, response.Metadata)
	caps := response.Metadata.Caps
	assert.True(t, caps.Capped)
	assert.Equal(t, string(CapMaxFindings), caps.CapReason)
	assert.Equal(t, CapsLimits{
		MaxHosts:        DefaultMaxHosts,
		MaxPortsPerHost: DefaultMaxPortsPerHost,
		MaxFindings:     6,
	}, caps.Limits)
	assert.Equal(t, 10, caps.Counts["findings_processed"])
	assert.Equal(t, 10, caps.Counts["hosts_processed"])
	assert.Equal(t, 10, caps.Counts["ports_processed"])

	require.Len(t, recorder.events, 1)
	event := recorder.events[0]
	assert.Equal(t, string(CapMaxFindings), event.reason)
	assert.Equal(t, 10, event.countsSeen["findings_processed"])
	assert.Equal(t, map[string]int{
		"hosts_returned":    6,
		"ports_returned":    6,
		"findings_returned": 6,
	}, event.countsReturned)
}

func TestIngestPublicTruncationForcesMaxFindings(t *testing.T) {
	svc, recorder, _ := newTestService(t, map[string]string{
		EnvMaxFindings: "5",
	})

	lines := make([]string, 0, 8)
	for port := 1; port <= 8; port++ {
		lines = append(lines, fmt.Sprintf("PORT_OPEN %d/tcp service=http", port*10))
	}
	response, errResp := svc.IngestPublic(context.Background(), IngestRequest{
		Format:  FormatSynthetic,
		Payload: strings.Join(lines, "\n"),
		Meta:    map[string]string{"parser": FormatSynthetic},
	})
	require.Nil(t, errResp)

	assert.Equal(t, 5, response.FindingsCount)
	require.NotNil(t, response.Metadata)
	assert.Equal(t, string(CapMaxFindings), response.Metadata.Caps.CapReason)
	assert.Equal(t, map[string]int{"findings_processed": 8}, response.Metadata.Caps.Counts)

	require.Len(t, recorder.events, 1)
	event := recorder.events[0]
	assert.Equal(t, map[string]int{"findings_processed": 8}, event.countsSeen)
	assert.Equal(t, map[string]int{
		"hosts_returned":    1,
		"ports_returned":    5,
		"findings_returned": 5,
	}, event.countsReturned)
}

func TestIngestPublicDeterminism(t *testing.T) {
	env := map[string]string{EnvParserOverride: ParserRealMinimal}
	payload := string(openPortHosts(4))

	first, errResp := newServiceOnly(t, env).IngestPublic(context.Background(), IngestRequest{
		Format: FormatNmapXML, Payload: payload,
	})
	require.Nil(t, errResp)

	second, errResp := newServiceOnly(t, env).IngestPublic(context.Background(), IngestRequest{
		Format: FormatNmapXML, Payload: payload,
	})
	require.Nil(t, errResp)

	assert.Equal(t, first.ParsedFindings, second.ParsedFindings)
	assert.Equal(t, first.Metadata, second.Metadata)
	assert.Equal(t, first.Summary.PayloadSHA256, second.Summary.PayloadSHA256)
	assert.NotEqual(t, first.IngestID, second.IngestID)
}

func newServiceOnly(t *testing.T, env map[string]string) *Service {
	t.Helper()
	svc, _, _ := newTestService(t, env)
	return svc
}

func TestIngestPublicPersistFailureStillSucceeds(t *testing.T) {
	svc := NewService(failingStore{}, &capturingRecorder{}, nil, mapLookup(nil))

	response, errResp := svc.IngestPublic(context.Background(), IngestRequest{
		Format:  FormatNmapXML,
		Payload: "<nmaprun/>",
	})
	require.Nil(t, errResp)
	assert.Equal(t, OperationIngest, response.Operation)
}

func TestGetIngest(t *testing.T) {
	svc, _, _ := newTestService(t, nil)

	response, errResp := svc.IngestPublic(context.Background(), IngestRequest{
		Format:  FormatNmapXML,
		Payload: "<nmaprun/>",
	})
	require.Nil(t, errResp)

	got, errResp := svc.GetIngest(context.Background(), response.IngestID)
	require.Nil(t, errResp)
	assert.Equal(t, OperationGet, got.Operation)
	assert.Equal(t, response.IngestID, got.Ingest.IngestID)

	_, errResp = svc.GetIngest(context.Background(), "")
	require.NotNil(t, errResp)
	assert.Equal(t, ReasonInvalidInput, errResp.Reason)
	assert.Equal(t, "An ingest_id is required for PUBLIC retrieval.", errResp.Detail)

	_, errResp = svc.GetIngest(context.Background(), strings.Repeat("f", 32))
	require.NotNil(t, errResp)
	assert.Equal(t, ReasonRecordNotFound, errResp.Reason)
	assert.Equal(t, "The requested ingestion record could not be located.", errResp.Detail)
}

func TestListIngests(t *testing.T) {
	svc, _, _ := newTestService(t, nil)

	var ids []string
	for i := 0; i < 3; i++ {
		response, errResp := svc.IngestPublic(context.Background(), IngestRequest{
			Format:  FormatNmapXML,
			Payload: "<nmaprun/>",
		})
		require.Nil(t, errResp)
		ids = append(ids, response.IngestID)
	}

	list, errResp := svc.ListIngests(context.Background(), store.MaxRecords)
	require.Nil(t, errResp)
	assert.Equal(t, OperationList, list.Operation)
	assert.Equal(t, 3, list.Count)
	assert.Equal(t, store.MaxRecords, list.MaxRecords)
	require.Len(t, list.Ingests, 3)
	assert.Equal(t, ids[2], list.Ingests[0].IngestID)
	assert.Equal(t, ids[0], list.Ingests[2].IngestID)

	limited, errResp := svc.ListIngests(context.Background(), 2)
	require.Nil(t, errResp)
	assert.Equal(t, 2, limited.Count)
}

func TestListIngestsEmptySerializesAsArray(t *testing.T) {
	svc := NewService(failingStore{}, nil, nil, mapLookup(nil))

	list, errResp := svc.ListIngests(context.Background(), store.MaxRecords)
	require.Nil(t, errResp)
	assert.Equal(t, 0, list.Count)

	serialized, err := json.Marshal(list)
	require.NoError(t, err)
	assert.Contains(t, string(serialized), `"ingests":[]`)
}
