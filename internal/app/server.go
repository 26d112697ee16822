package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"weak"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/liquidnya/eventsource/internal/app/factory"
	"github.com/liquidnya/eventsource/internal/backend/httpstream"
	"github.com/liquidnya/eventsource/internal/config"
	"github.com/liquidnya/eventsource/internal/health"
	"github.com/liquidnya/eventsource/internal/metrics"
	"github.com/liquidnya/eventsource/internal/storage"
	"github.com/liquidnya/eventsource/internal/telemetry"
	"github.com/liquidnya/eventsource/pkg/eventsource"
	pkgmetrics "github.com/liquidnya/eventsource/pkg/metrics"
)

// Server tails one stream and serves its metrics and health
type Server struct {
	config    *config.Config
	logger    *slog.Logger
	sink      *Sink
	registry  *prometheus.Registry
	metrics   *pkgmetrics.Metrics
	telemetry *telemetry.Telemetry
	store     storage.CheckpointStore

	metricsServer   *http.Server
	metricsListener net.Listener

	mu      sync.Mutex
	task    *eventsource.Task
	backend *httpstream.Backend
}

// NewServer builds a server from configuration
func NewServer(ctx context.Context, cfg *config.Config, logger *slog.Logger, out io.Writer) (*Server, error) {
	return NewBuilder(cfg, logger, out).Build(ctx)
}

// Start starts the metrics endpoint, if enabled, and opens the stream. It
// does not block.
func (s *Server) Start(ctx context.Context) error {
	if s.config.Metrics.Enabled {
		if err := s.startMetrics(); err != nil {
			return err
		}
	}

	task, b, err := s.open(s.config)
	if err != nil {
		s.stopMetrics(ctx)
		return err
	}

	s.mu.Lock()
	s.task = task
	s.backend = b
	s.mu.Unlock()
	return nil
}

// Reload applies a new configuration. A changed stream is reopened; the old
// task is closed only after the new one opened.
func (s *Server) Reload(cfg *config.Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.config.StreamChanged(cfg) {
		s.logger.Info("Configuration change does not affect the stream")
		s.config = cfg
		return nil
	}

	task, b, err := s.open(cfg)
	if err != nil {
		return err
	}
	s.closeStream()
	s.task = task
	s.backend = b
	s.config = cfg
	s.logger.Info("Stream reopened", "task", task.ID(), "url", cfg.Stream.URL)
	return nil
}

// Task returns the current task
func (s *Server) Task() *eventsource.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.task
}

// MetricsAddr returns the bound metrics address, or nil
func (s *Server) MetricsAddr() net.Addr {
	if s.metricsListener == nil {
		return nil
	}
	return s.metricsListener.Addr()
}

// Stop closes the stream and releases every component
func (s *Server) Stop(ctx context.Context) error {
	var errs []error

	s.mu.Lock()
	s.closeStream()
	s.task = nil
	s.backend = nil
	s.mu.Unlock()

	if err := s.stopMetrics(ctx); err != nil {
		errs = append(errs, fmt.Errorf("stopping metrics server: %w", err))
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing checkpoint store: %w", err))
		}
	}
	if err := s.telemetry.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("shutting down telemetry: %w", err))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	s.logger.Info("ssetail stopped")
	return nil
}

// closeStream closes the current task and drops its backend's idle
// connections. The caller holds s.mu.
func (s *Server) closeStream() {
	if s.task != nil {
		s.task.Close()
	}
	if s.backend != nil {
		s.backend.CloseIdleConnections()
	}
}

func (s *Server) open(cfg *config.Config) (*eventsource.Task, *httpstream.Backend, error) {
	provider, err := factory.CreateCredentials(&cfg.Credentials)
	if err != nil {
		return nil, nil, err
	}

	b, err := factory.CreateBackend(cfg, factory.BackendDeps{
		Credentials: provider,
		Checkpoints: s.store,
		Metrics:     s.metrics,
		Telemetry:   s.telemetry,
		Logger:      s.logger,
	})
	if err != nil {
		return nil, nil, err
	}
	service := eventsource.NewService(
		eventsource.WithBackend(b),
		eventsource.WithLogger(s.logger),
		eventsource.WithMetrics(s.metrics),
	)

	// Callbacks may fire before Open returns the task. They reach it
	// through a weak pointer so an abandoned task can still be collected.
	var (
		ref weak.Pointer[eventsource.Task]
		id  string
	)
	ready := make(chan struct{})
	onMessage := func(m eventsource.Message) {
		<-ready
		if err := s.sink.Write(id, m); err != nil {
			s.logger.Error("Failed to write message", "error", err)
		}
	}
	onUpdate := func(u eventsource.Update) {
		<-ready
		if task := ref.Value(); task != nil {
			s.logUpdate(task, u)
		}
	}

	var task *eventsource.Task
	if cfg.Stream.WithCredentials {
		task, err = service.OpenWithCredentials(cfg.Stream.URL, true, onMessage, onUpdate)
	} else {
		task, err = service.Open(cfg.Stream.URL, onMessage, onUpdate)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("opening stream: %w", err)
	}
	ref = weak.Make(task)
	id = task.ID()
	close(ready)

	s.logger.Info("Stream opened", "task", task.ID(), "url", cfg.Stream.URL)
	return task, b, nil
}

func (s *Server) logUpdate(task *eventsource.Task, u eventsource.Update) {
	switch u {
	case eventsource.UpdateOpen:
		s.logger.Info("Stream connected", "task", task.ID())
	case eventsource.UpdateError:
		if task.IsActive() {
			s.logger.Warn("Stream interrupted, reconnecting", "task", task.ID())
		} else {
			s.logger.Error("Stream closed", "task", task.ID())
		}
	}
}

func (s *Server) startMetrics() error {
	listener, err := net.Listen("tcp", s.config.Metrics.Addr)
	if err != nil {
		return fmt.Errorf("listening for metrics: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle(s.config.Metrics.Path, metrics.Handler(s.registry))

	checker := health.NewChecker()
	checker.RegisterCheck("stream", health.StreamCheck(s.Task))
	if s.store != nil {
		checker.RegisterCheck("checkpoints", health.CheckpointCheck(s.store))
	}
	health.NewHandler(checker, s.config.Telemetry.Version).Register(mux)

	s.metricsListener = listener
	s.metricsServer = &http.Server{Handler: mux}
	go func() {
		if err := s.metricsServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("Metrics server failed", "error", err)
		}
	}()

	s.logger.Info("Metrics enabled", "addr", listener.Addr().String(), "path", s.config.Metrics.Path)
	return nil
}

func (s *Server) stopMetrics(ctx context.Context) error {
	if s.metricsServer == nil {
		return nil
	}
	err := s.metricsServer.Shutdown(ctx)
	s.metricsServer = nil
	return err
}
