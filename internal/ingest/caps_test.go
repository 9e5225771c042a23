package ingest

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCapTrackerCounts(t *testing.T) {
	tracker := NewCapTracker()

	tracker.AddHost()
	tracker.AddHost()
	tracker.AddPort()
	tracker.AddPort()
	tracker.AddPort()
	tracker.AddFinding()

	info := tracker.Snapshot()
	assert.Equal(t, 2, info.HostsProcessed)
	assert.Equal(t, 3, info.PortsProcessed)
	assert.Equal(t, 1, info.FindingsProcessed)
	assert.False(t, info.Capped())
	assert.Empty(t, info.Reason)
}

func TestCapTrackerMarkLimit(t *testing.T) {
	t.Run("single reason", func(t *testing.T) {
		tracker := NewCapTracker()
		tracker.MarkLimit(CapMaxHosts)

		info := tracker.Snapshot()
		assert.True(t, info.Capped())
		assert.Equal(t, CapMaxHosts, info.Reason)
	})

	t.Run("last reason wins", func(t *testing.T) {
		tracker := NewCapTracker()
		tracker.MarkLimit(CapMaxPorts)
		tracker.MarkLimit(CapMaxFindings)
		tracker.MarkLimit(CapMaxHosts)

		assert.Equal(t, CapMaxHosts, tracker.Snapshot().Reason)
	})
}

func TestCapTrackerSnapshotIsIndependent(t *testing.T) {
	tracker := NewCapTracker()
	tracker.AddHost()

	first := tracker.Snapshot()
	tracker.AddHost()
	tracker.MarkLimit(CapMaxHosts)

	assert.Equal(t, 1, first.HostsProcessed)
	assert.False(t, first.Capped())

	second := tracker.Snapshot()
	assert.Equal(t, 2, second.HostsProcessed)
	assert.True(t, second.Capped())
}

func TestCapInfoJSON(t *testing.T) {
	t.Run("capped snapshot", func(t *testing.T) {
		info := CapInfo{
			HostsProcessed:    10,
			PortsProcessed:    40,
			FindingsProcessed: 120,
			Reason:            CapMaxFindings,
		}

		data, err := json.Marshal(info)
		require.NoError(t, err)

		var decoded map[string]interface{}
		require.NoError(t, json.Unmarshal(data, &decoded))

		assert.Equal(t, float64(10), decoded["hosts_processed"])
		assert.Equal(t, float64(40), decoded["ports_processed"])
		assert.Equal(t, float64(120), decoded["findings_processed"])
		assert.Equal(t, "MAX_FINDINGS", decoded["cap_reason"])
	})

	t.Run("uncapped snapshot omits reason", func(t *testing.T) {
		data, err := json.Marshal(CapInfo{HostsProcessed: 1})
		require.NoError(t, err)

		var decoded map[string]interface{}
		require.NoError(t, json.Unmarshal(data, &decoded))

		_, present := decoded["cap_reason"]
		assert.False(t, present)
	})
}

func TestCapReasonValues(t *testing.T) {
	assert.Equal(t, CapReason("MAX_HOSTS"), CapMaxHosts)
	assert.Equal(t, CapReason("MAX_PORTS"), CapMaxPorts)
	assert.Equal(t, CapReason("MAX_FINDINGS"), CapMaxFindings)
	assert.Equal(t, CapReason("MAX_PAYLOAD_BYTES"), CapMaxPayloadBytes)
}
