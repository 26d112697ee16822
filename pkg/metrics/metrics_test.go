package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewWithRegistry(t *testing.T) {
	m := NewWithRegistry(prometheus.NewRegistry())

	if m.TasksActive == nil {
		t.Error("TasksActive is nil")
	}
	if m.TasksOpened == nil {
		t.Error("TasksOpened is nil")
	}
	if m.TaskFaults == nil {
		t.Error("TaskFaults is nil")
	}
	if m.UpdatesTotal == nil {
		t.Error("UpdatesTotal is nil")
	}
	if m.StreamsActive == nil {
		t.Error("StreamsActive is nil")
	}
	if m.ConnectionAttempts == nil {
		t.Error("ConnectionAttempts is nil")
	}
	if m.Reconnects == nil {
		t.Error("Reconnects is nil")
	}
	if m.EventsReceived == nil {
		t.Error("EventsReceived is nil")
	}
	if m.BytesReceived == nil {
		t.Error("BytesReceived is nil")
	}
	if m.CheckpointErrors == nil {
		t.Error("CheckpointErrors is nil")
	}
}

func TestMetricsCollection(t *testing.T) {
	// Create a new registry for testing to avoid conflicts
	registry := prometheus.NewRegistry()
	m := NewWithRegistry(registry)

	m.TasksOpened.WithLabelValues("ok").Inc()
	m.TasksOpened.WithLabelValues("ok").Inc()
	m.TasksOpened.WithLabelValues("invalid_url").Inc()

	if count := testutil.ToFloat64(m.TasksOpened.WithLabelValues("ok")); count != 2 {
		t.Errorf("Expected 2 successful opens, got %f", count)
	}
	if count := testutil.ToFloat64(m.TasksOpened.WithLabelValues("invalid_url")); count != 1 {
		t.Errorf("Expected 1 invalid url, got %f", count)
	}

	m.TasksActive.Inc()
	m.TasksActive.Inc()
	m.TasksActive.Dec()
	if active := testutil.ToFloat64(m.TasksActive); active != 1 {
		t.Errorf("Expected 1 active task, got %f", active)
	}

	m.EventsReceived.WithLabelValues("message").Add(3)
	if count := testutil.ToFloat64(m.EventsReceived.WithLabelValues("message")); count != 3 {
		t.Errorf("Expected 3 message events, got %f", count)
	}

	if n := testutil.CollectAndCount(m.ConnectionAttempts); n != 0 {
		t.Errorf("Expected no connection attempt series yet, got %d", n)
	}
}
