package eventsource

import (
	"log/slog"

	"github.com/liquidnya/eventsource/pkg/backend"
	"github.com/liquidnya/eventsource/pkg/metrics"
)

// Option configures a Service.
type Option func(*Service)

// WithBackend replaces the platform backend selected at build time.
func WithBackend(b backend.Backend) Option {
	return func(s *Service) {
		s.backend = b
	}
}

// WithLogger sets the logger used by the service and its tasks.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics enables task metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithFaultHandler sets the handler for per-event faults.
func WithFaultHandler(h FaultHandler) Option {
	return func(s *Service) {
		s.onFault = h
	}
}
