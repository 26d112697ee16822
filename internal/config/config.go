package config

import (
	"net/http"
	"reflect"
	"time"

	"github.com/liquidnya/eventsource/internal/circuitbreaker"
	"github.com/liquidnya/eventsource/internal/credentials"
	"github.com/liquidnya/eventsource/internal/retry"
	"github.com/liquidnya/eventsource/internal/storage"
	"github.com/liquidnya/eventsource/internal/telemetry"
	tlsconfig "github.com/liquidnya/eventsource/pkg/tls"
)

// Config holds ssetail configuration
type Config struct {
	Stream      Stream      `yaml:"stream"`
	Client      Client      `yaml:"client"`
	Reconnect   Reconnect   `yaml:"reconnect"`
	Credentials Credentials `yaml:"credentials"`
	Checkpoint  Checkpoint  `yaml:"checkpoint"`
	Metrics     Metrics     `yaml:"metrics"`
	Telemetry   Telemetry   `yaml:"telemetry"`
}

// Stream configuration
type Stream struct {
	URL             string            `yaml:"url"`
	WithCredentials bool              `yaml:"withCredentials"`
	Headers         map[string]string `yaml:"headers"`
}

// Client configuration
type Client struct {
	DialTimeout           int                    `yaml:"dialTimeout"`           // seconds
	ResponseHeaderTimeout int                    `yaml:"responseHeaderTimeout"` // seconds
	TLS                   tlsconfig.ClientConfig `yaml:"tls"`
}

// Reconnect configuration
type Reconnect struct {
	InitialDelay int     `yaml:"initialDelay"` // milliseconds
	MaxDelay     int     `yaml:"maxDelay"`     // milliseconds
	Multiplier   float64 `yaml:"multiplier"`
	Jitter       bool    `yaml:"jitter"`
	MaxAttempts  int     `yaml:"maxAttempts"`
}

// Credentials configuration
type Credentials struct {
	BearerToken string `yaml:"bearerToken"`
	JWT         *JWT   `yaml:"jwt"`
}

// JWT configuration
type JWT struct {
	Secret   string   `yaml:"secret"`
	Issuer   string   `yaml:"issuer"`
	Subject  string   `yaml:"subject"`
	Audience []string `yaml:"audience"`
	TTL      int      `yaml:"ttl"` // seconds
}

// Checkpoint configuration
type Checkpoint struct {
	Type       string  `yaml:"type"` // none, memory or redis
	TTL        int     `yaml:"ttl"`  // seconds
	MaxEntries int     `yaml:"maxEntries"`
	Redis      *Redis  `yaml:"redis"`
	Breaker    Breaker `yaml:"breaker"`
}

// Breaker configures the circuit breaker in front of a remote store
type Breaker struct {
	MaxFailures int `yaml:"maxFailures"`
	Timeout     int `yaml:"timeout"` // seconds
}

// Redis configuration
type Redis struct {
	Addr      string `yaml:"addr"`
	Password  string `yaml:"password"`
	DB        int    `yaml:"db"`
	KeyPrefix string `yaml:"keyPrefix"`
}

// Metrics configuration
type Metrics struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
	Path    string `yaml:"path"`
}

// Telemetry configuration
type Telemetry struct {
	Enabled bool    `yaml:"enabled"`
	Service string  `yaml:"service"`
	Version string  `yaml:"version"`
	Tracing Tracing `yaml:"tracing"`
}

// Tracing configuration
type Tracing struct {
	Enabled    bool    `yaml:"enabled"`
	Endpoint   string  `yaml:"endpoint"`
	Insecure   bool    `yaml:"insecure"`
	SampleRate float64 `yaml:"sampleRate"`
}

// HeaderValues returns the configured request headers
func (s *Stream) HeaderValues() http.Header {
	h := make(http.Header, len(s.Headers))
	for k, v := range s.Headers {
		h.Set(k, v)
	}
	return h
}

// Timeouts converts the client timeouts
func (c *Client) Timeouts() (dial, responseHeader time.Duration) {
	return time.Duration(c.DialTimeout) * time.Second,
		time.Duration(c.ResponseHeaderTimeout) * time.Second
}

// ToRetryConfig converts to the reconnection policy
func (r *Reconnect) ToRetryConfig() retry.Config {
	return retry.Config{
		InitialDelay: time.Duration(r.InitialDelay) * time.Millisecond,
		MaxDelay:     time.Duration(r.MaxDelay) * time.Millisecond,
		Multiplier:   r.Multiplier,
		Jitter:       r.Jitter,
		MaxAttempts:  r.MaxAttempts,
	}
}

// ToJWTConfig converts to the signer configuration
func (j *JWT) ToJWTConfig() credentials.JWTConfig {
	return credentials.JWTConfig{
		Secret:   []byte(j.Secret),
		Issuer:   j.Issuer,
		Subject:  j.Subject,
		Audience: j.Audience,
		TTL:      time.Duration(j.TTL) * time.Second,
	}
}

// ToStoreConfig converts to the checkpoint store configuration
func (c *Checkpoint) ToStoreConfig() *storage.CheckpointStoreConfig {
	cfg := storage.DefaultConfig()
	if c.TTL > 0 {
		cfg.TTL = time.Duration(c.TTL) * time.Second
	}
	if c.MaxEntries > 0 {
		cfg.MaxEntries = c.MaxEntries
	}
	if c.Redis != nil && c.Redis.KeyPrefix != "" {
		cfg.KeyPrefix = c.Redis.KeyPrefix
	}
	return cfg
}

// ToBreakerConfig converts to the circuit breaker configuration
func (b *Breaker) ToBreakerConfig() circuitbreaker.Config {
	cfg := circuitbreaker.DefaultConfig()
	if b.MaxFailures > 0 {
		cfg.MaxFailures = b.MaxFailures
	}
	if b.Timeout > 0 {
		cfg.Timeout = time.Duration(b.Timeout) * time.Second
	}
	return cfg
}

// ToTelemetryConfig converts to the telemetry configuration
func (t *Telemetry) ToTelemetryConfig() telemetry.Config {
	return telemetry.Config{
		Enabled: t.Enabled,
		Service: t.Service,
		Version: t.Version,
		Tracing: telemetry.TracingConfig{
			Enabled:    t.Tracing.Enabled,
			Endpoint:   t.Tracing.Endpoint,
			Insecure:   t.Tracing.Insecure,
			SampleRate: t.Tracing.SampleRate,
		},
		Metrics: telemetry.MetricsConfig{
			Enabled: t.Enabled,
		},
	}
}

// StreamChanged reports whether other needs a new connection to apply
func (c *Config) StreamChanged(other *Config) bool {
	return !reflect.DeepEqual(c.Stream, other.Stream) ||
		c.Client != other.Client ||
		c.Reconnect != other.Reconnect ||
		!reflect.DeepEqual(c.Credentials, other.Credentials)
}
