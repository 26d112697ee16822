package factory

import (
	"log/slog"

	"github.com/liquidnya/eventsource/internal/backend/httpstream"
	"github.com/liquidnya/eventsource/internal/config"
	"github.com/liquidnya/eventsource/internal/credentials"
	"github.com/liquidnya/eventsource/internal/storage"
	"github.com/liquidnya/eventsource/internal/telemetry"
	"github.com/liquidnya/eventsource/pkg/errors"
	"github.com/liquidnya/eventsource/pkg/metrics"
)

// BackendDeps are the shared components a stream backend is wired to
type BackendDeps struct {
	Credentials credentials.Provider
	Checkpoints storage.CheckpointStore
	Metrics     *metrics.Metrics
	Telemetry   *telemetry.Telemetry
	Logger      *slog.Logger
}

// CreateBackend creates the native stream backend from configuration
func CreateBackend(cfg *config.Config, deps BackendDeps) (*httpstream.Backend, error) {
	streamConfig := StreamConfig(cfg)
	tlsConfig, err := cfg.Client.TLS.Build()
	if err != nil {
		return nil, errors.NewError(errors.ErrorTypeBadRequest, "invalid client TLS configuration").WithCause(err)
	}
	streamConfig.TLS = tlsConfig

	opts := []httpstream.Option{
		httpstream.WithLogger(deps.Logger),
		httpstream.WithMetrics(deps.Metrics),
		httpstream.WithTelemetry(deps.Telemetry),
	}
	if deps.Credentials != nil {
		opts = append(opts, httpstream.WithCredentials(deps.Credentials))
	}
	if deps.Checkpoints != nil {
		opts = append(opts, httpstream.WithCheckpoints(deps.Checkpoints))
	}

	return httpstream.New(streamConfig, opts...), nil
}

// StreamConfig converts configuration to the stream backend's. Unset
// timeouts keep their defaults.
func StreamConfig(cfg *config.Config) httpstream.Config {
	streamConfig := httpstream.DefaultConfig()
	dial, header := cfg.Client.Timeouts()
	if dial > 0 {
		streamConfig.DialTimeout = dial
	}
	if header > 0 {
		streamConfig.ResponseHeaderTimeout = header
	}
	streamConfig.Reconnect = cfg.Reconnect.ToRetryConfig()
	streamConfig.Headers = cfg.Stream.HeaderValues()
	return streamConfig
}
