package infra

import (
	"testing"
)

func TestMetrics_RecordDispatch(t *testing.T) {
	m := &Metrics{}

	m.RecordDispatch(1000)
	m.RecordDispatch(2000)
	m.RecordDispatch(3000)

	snap := m.Snapshot()

	if snap.EventsDispatched != 3 {
		t.Errorf("Expected 3 events, got %d", snap.EventsDispatched)
	}

	// Average latency: (1000 + 2000 + 3000) / 3 = 2000
	if snap.AvgLatencyNs != 2000 {
		t.Errorf("Expected avg latency 2000, got %d", snap.AvgLatencyNs)
	}
}

func TestMetrics_Connections(t *testing.T) {
	m := &Metrics{}

	m.IncrementConnections()
	m.IncrementConnections()
	m.IncrementConnections()

	snap := m.Snapshot()
	if snap.ActiveConnections != 3 {
		t.Errorf("Expected 3 connections, got %d", snap.ActiveConnections)
	}

	m.DecrementConnections()
	snap = m.Snapshot()
	if snap.ActiveConnections != 2 {
		t.Errorf("Expected 2 connections, got %d", snap.ActiveConnections)
	}
}

func TestMetrics_Counters(t *testing.T) {
	m := &Metrics{}

	m.RecordBuffered()
	m.RecordBuffered()
	m.RecordDropped()
	m.RecordSnapshot()
	m.RecordReconnect()

	snap := m.Snapshot()
	if snap.DeltasBuffered != 2 || snap.EventsDropped != 1 || snap.SnapshotsApplied != 1 || snap.Reconnects != 1 {
		t.Errorf("unexpected snapshot %+v", snap)
	}
}
