// Package httpstream is the native stream backend: it speaks
// text/event-stream over net/http and reconnects the way a browser
// EventSource does.
package httpstream

import (
	"crypto/tls"
	"log/slog"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"

	"github.com/liquidnya/eventsource/internal/credentials"
	"github.com/liquidnya/eventsource/internal/retry"
	"github.com/liquidnya/eventsource/internal/storage"
	"github.com/liquidnya/eventsource/internal/telemetry"
	"github.com/liquidnya/eventsource/pkg/backend"
	"github.com/liquidnya/eventsource/pkg/errors"
	"github.com/liquidnya/eventsource/pkg/metrics"
)

// Config represents stream connection configuration
type Config struct {
	DialTimeout           time.Duration
	ResponseHeaderTimeout time.Duration
	Reconnect             retry.Config
	Headers               http.Header
	TLS                   *tls.Config
}

// DefaultConfig returns default configuration
func DefaultConfig() Config {
	return Config{
		DialTimeout:           10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		Reconnect:             retry.DefaultConfig(),
	}
}

// Option configures a Backend
type Option func(*Backend)

// WithClient sets the HTTP client. The client must not set Timeout, which
// would cut long-lived streams.
func WithClient(client *http.Client) Option {
	return func(b *Backend) {
		b.client = client
	}
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(b *Backend) {
		b.logger = logger
	}
}

// WithMetrics sets the metrics sink
func WithMetrics(m *metrics.Metrics) Option {
	return func(b *Backend) {
		b.metrics = m
	}
}

// WithTelemetry sets the tracer and meter source
func WithTelemetry(t *telemetry.Telemetry) Option {
	return func(b *Backend) {
		b.telemetry = t
	}
}

// WithCredentials sets the provider applied to credentialed streams
func WithCredentials(p credentials.Provider) Option {
	return func(b *Backend) {
		b.credentials = p
	}
}

// WithCheckpoints persists the last event id of every stream
func WithCheckpoints(store storage.CheckpointStore) Option {
	return func(b *Backend) {
		b.checkpoints = store
	}
}

// Backend creates native stream sources
type Backend struct {
	config      Config
	client      *http.Client
	credClient  *http.Client
	credentials credentials.Provider
	checkpoints storage.CheckpointStore
	logger      *slog.Logger
	metrics     *metrics.Metrics
	telemetry   *telemetry.Telemetry
}

// New creates a new backend
func New(config Config, opts ...Option) *Backend {
	b := &Backend{
		config: config,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}

	if b.logger == nil {
		b.logger = slog.Default()
	}
	b.logger = b.logger.With("component", "httpstream")
	if b.telemetry == nil {
		b.telemetry = telemetry.Noop()
	}

	if b.client == nil {
		b.client = &http.Client{
			Transport: &http.Transport{
				Proxy: http.ProxyFromEnvironment,
				DialContext: (&net.Dialer{
					Timeout: config.DialTimeout,
				}).DialContext,
				ResponseHeaderTimeout: config.ResponseHeaderTimeout,
				TLSClientConfig:       config.TLS,
			},
		}
	}

	// Credentialed streams share one cookie jar; anonymous streams never
	// send or store cookies.
	cred := *b.client
	if cred.Jar == nil {
		jar, _ := cookiejar.New(nil)
		cred.Jar = jar
	}
	b.credClient = &cred
	anon := *b.client
	anon.Jar = nil
	b.client = &anon

	return b
}

// Create opens an anonymous stream. The returned source connects once
// Start is called.
func (b *Backend) Create(rawURL string) (backend.Source, error) {
	return b.create(rawURL, false)
}

// CreateWithCredentials opens a stream that sends cookies and credential
// headers when withCredentials is set
func (b *Backend) CreateWithCredentials(rawURL string, withCredentials bool) (backend.Source, error) {
	return b.create(rawURL, withCredentials)
}

func (b *Backend) create(rawURL string, withCredentials bool) (backend.Source, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, errors.NewError(errors.ErrorTypeBackendRejected, "failed to parse url").
			WithCause(err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, errors.NewError(errors.ErrorTypeBackendRejected, "unsupported url scheme").
			WithDetail("scheme", u.Scheme)
	}

	return newSource(b, u, withCredentials), nil
}

// CloseIdleConnections closes idle connections of both clients. Open
// streams are not affected.
func (b *Backend) CloseIdleConnections() {
	b.client.CloseIdleConnections()
	b.credClient.CloseIdleConnections()
}
