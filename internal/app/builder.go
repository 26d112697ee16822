package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/liquidnya/eventsource/internal/app/factory"
	"github.com/liquidnya/eventsource/internal/config"
	"github.com/liquidnya/eventsource/pkg/metrics"
)

// Builder builds the ssetail application
type Builder struct {
	config *config.Config
	logger *slog.Logger
	out    io.Writer
}

// NewBuilder creates a new application builder. Messages are written to out.
func NewBuilder(cfg *config.Config, logger *slog.Logger, out io.Writer) *Builder {
	return &Builder{
		config: cfg,
		logger: logger,
		out:    out,
	}
}

// Build constructs the server and its long-lived components. The stream
// itself is opened by Start.
func (b *Builder) Build(ctx context.Context) (*Server, error) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.NewWithRegistry(registry)

	tel, err := factory.CreateTelemetry(&b.config.Telemetry, registry)
	if err != nil {
		return nil, err
	}

	store, err := factory.CreateCheckpointStore(ctx, &b.config.Checkpoint, b.logger)
	if err != nil {
		tel.Shutdown(ctx)
		return nil, fmt.Errorf("creating checkpoint store: %w", err)
	}

	return &Server{
		config:    b.config,
		logger:    b.logger,
		sink:      NewSink(b.out),
		registry:  registry,
		metrics:   m,
		telemetry: tel,
		store:     store,
	}, nil
}
