package observability

import (
	"testing"
	"time"
)

func TestMetricsSnapshot(t *testing.T) {
	m := NewMetrics()
	m.RecordRequest("/api/tickets", "GET", 200, 10*time.Millisecond)
	m.RecordRequest("/api/tickets", "GET", 200, 30*time.Millisecond)
	m.RecordError("/api/tickets/:id", "PUT", "NOT_FOUND")

	snap := m.Snapshot()
	key := "/api/tickets|GET|200"
	if snap.Requests[key] != 2 {
		t.Errorf("requests = %d, want 2", snap.Requests[key])
	}
	if snap.AvgLatencyMS[key] != 20 {
		t.Errorf("avg latency = %d, want 20", snap.AvgLatencyMS[key])
	}
	if snap.Errors["/api/tickets/:id|PUT|NOT_FOUND"] != 1 {
		t.Errorf("errors = %v", snap.Errors)
	}
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.RecordRequest("/", "GET", 200, time.Millisecond)
	m.RecordError("/", "GET", "X")
	if snap := m.Snapshot(); len(snap.Requests) != 0 {
		t.Errorf("nil metrics snapshot = %v", snap.Requests)
	}
}
