package infra

import (
	"sync/atomic"
	"time"
)

// Metrics provides lightweight observability without external dependencies.
// Uses atomic operations for thread-safety.
type Metrics struct {
	// Counters
	eventsDispatched atomic.Uint64
	eventsDropped    atomic.Uint64
	deltasBuffered   atomic.Uint64
	snapshotsApplied atomic.Uint64
	reconnects       atomic.Uint64
	errorsTotal      atomic.Uint64

	// Latency tracking (inbound message to dispatch)
	latencySumNs atomic.Int64
	latencyCount atomic.Uint64

	// Gauges
	activeConnections atomic.Int32
}

// GlobalMetrics is the singleton metrics instance.
var GlobalMetrics = &Metrics{}

// RecordDispatch records a dispatched channel event with its queueing latency.
func (m *Metrics) RecordDispatch(latencyNs int64) {
	m.eventsDispatched.Add(1)
	m.latencySumNs.Add(latencyNs)
	m.latencyCount.Add(1)
}

// RecordDropped records an event dropped as keep-alive, malformed or unrouted.
func (m *Metrics) RecordDropped() {
	m.eventsDropped.Add(1)
}

// RecordBuffered records a delta or batch queued during a lock window.
func (m *Metrics) RecordBuffered() {
	m.deltasBuffered.Add(1)
}

// RecordSnapshot records an applied board snapshot or execution history.
func (m *Metrics) RecordSnapshot() {
	m.snapshotsApplied.Add(1)
}

// RecordReconnect records a realtime transport reconnect.
func (m *Metrics) RecordReconnect() {
	m.reconnects.Add(1)
}

// RecordError records an error occurrence.
func (m *Metrics) RecordError() {
	m.errorsTotal.Add(1)
}

// IncrementConnections increments active connections by 1.
func (m *Metrics) IncrementConnections() {
	m.activeConnections.Add(1)
}

// DecrementConnections decrements active connections by 1.
func (m *Metrics) DecrementConnections() {
	m.activeConnections.Add(-1)
}

// MetricsSnapshot is a point-in-time view of all metrics.
type MetricsSnapshot struct {
	EventsDispatched  uint64    `json:"events_dispatched"`
	EventsDropped     uint64    `json:"events_dropped"`
	DeltasBuffered    uint64    `json:"deltas_buffered"`
	SnapshotsApplied  uint64    `json:"snapshots_applied"`
	Reconnects        uint64    `json:"reconnects"`
	ErrorsTotal       uint64    `json:"errors_total"`
	AvgLatencyNs      int64     `json:"avg_latency_ns"`
	ActiveConnections int32     `json:"active_connections"`
	Timestamp         time.Time `json:"timestamp"`
}

// Snapshot returns current metrics as a snapshot.
func (m *Metrics) Snapshot() MetricsSnapshot {
	var avgLatency int64
	count := m.latencyCount.Load()
	if count > 0 {
		avgLatency = m.latencySumNs.Load() / int64(count)
	}

	return MetricsSnapshot{
		EventsDispatched:  m.eventsDispatched.Load(),
		EventsDropped:     m.eventsDropped.Load(),
		DeltasBuffered:    m.deltasBuffered.Load(),
		SnapshotsApplied:  m.snapshotsApplied.Load(),
		Reconnects:        m.reconnects.Load(),
		ErrorsTotal:       m.errorsTotal.Load(),
		AvgLatencyNs:      avgLatency,
		ActiveConnections: m.activeConnections.Load(),
		Timestamp:         time.Now(),
	}
}
