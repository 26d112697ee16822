package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for event streams
type Metrics struct {
	// Task metrics
	TasksActive  prometheus.Gauge
	TasksOpened  *prometheus.CounterVec
	TaskFaults   *prometheus.CounterVec
	UpdatesTotal *prometheus.CounterVec

	// Stream metrics
	StreamsActive      prometheus.Gauge
	ConnectionAttempts *prometheus.CounterVec
	Reconnects         prometheus.Counter
	EventsReceived     *prometheus.CounterVec
	BytesReceived      prometheus.Counter
	CheckpointErrors   *prometheus.CounterVec
}

// New creates a new Metrics instance with all metrics registered
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates a new Metrics instance with a custom registry
func NewWithRegistry(registerer prometheus.Registerer) *Metrics {
	factory := promauto.With(registerer)

	return &Metrics{
		TasksActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "eventsource_tasks_active",
				Help: "Number of undisposed event source tasks",
			},
		),
		TasksOpened: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "eventsource_tasks_opened_total",
				Help: "Total number of open calls by result",
			},
			[]string{"result"},
		),
		TaskFaults: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "eventsource_task_faults_total",
				Help: "Total number of per-event faults reported by tasks",
			},
			[]string{"type"},
		),
		UpdatesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "eventsource_updates_total",
				Help: "Total number of connection updates delivered to consumers",
			},
			[]string{"update"},
		),

		StreamsActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "eventsource_streams_active",
				Help: "Number of streams with an established HTTP response",
			},
		),
		ConnectionAttempts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "eventsource_connection_attempts_total",
				Help: "Total number of connection attempts by result",
			},
			[]string{"result"},
		),
		Reconnects: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "eventsource_reconnects_total",
				Help: "Total number of scheduled reconnections",
			},
		),
		EventsReceived: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "eventsource_events_received_total",
				Help: "Total number of events dispatched by streams",
			},
			[]string{"kind"},
		),
		BytesReceived: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "eventsource_bytes_received_total",
				Help: "Total number of stream bytes read",
			},
		),
		CheckpointErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "eventsource_checkpoint_errors_total",
				Help: "Total number of failed Last-Event-ID checkpoint operations",
			},
			[]string{"op"},
		),
	}
}
