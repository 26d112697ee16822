package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/liquidnya/eventsource/pkg/errors"
)

// Loader loads configuration from file
type Loader struct {
	path       string
	envEnabled bool
}

// NewLoader creates a config loader
func NewLoader(path string) *Loader {
	return &Loader{
		path:       path,
		envEnabled: true, // Enable env vars by default
	}
}

// WithEnvVars enables or disables environment variable loading
func (l *Loader) WithEnvVars(enabled bool) *Loader {
	l.envEnabled = enabled
	return l
}

// Load loads the configuration. File values override the embedded
// defaults and environment variables override both.
func (l *Loader) Load() (*Config, error) {
	cfg, err := LoadDefault()
	if err != nil {
		return nil, errors.NewError(errors.ErrorTypeInternal, "failed to parse default config").WithCause(err)
	}

	if l.path != "" {
		data, err := os.ReadFile(l.path)
		if err != nil {
			return nil, errors.NewError(errors.ErrorTypeInternal, "failed to read config file").WithCause(err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.NewError(errors.ErrorTypeBadRequest, "failed to parse config").WithCause(err)
		}
	}

	if l.envEnabled {
		if err := LoadEnv(cfg); err != nil {
			return nil, errors.NewError(errors.ErrorTypeBadRequest, "failed to load env vars").WithCause(err)
		}
	}

	if err := Validate(cfg); err != nil {
		return nil, errors.NewError(errors.ErrorTypeBadRequest, "invalid configuration").WithCause(err)
	}

	return cfg, nil
}

// Load loads and validates the configuration at path
func Load(path string) (*Config, error) {
	return NewLoader(path).Load()
}

// Validate validates the configuration
func Validate(cfg *Config) error {
	if cfg.Stream.URL == "" {
		return fmt.Errorf("stream url is required")
	}

	if cfg.Client.DialTimeout < 0 || cfg.Client.ResponseHeaderTimeout < 0 {
		return fmt.Errorf("client timeouts must not be negative")
	}
	if tls := cfg.Client.TLS; (tls.ClientCertFile == "") != (tls.ClientKeyFile == "") {
		return fmt.Errorf("tls clientCertFile and clientKeyFile must be set together")
	}

	r := cfg.Reconnect
	if r.InitialDelay < 0 || r.MaxDelay < 0 || r.MaxAttempts < 0 {
		return fmt.Errorf("reconnect delays and attempts must not be negative")
	}
	if r.Multiplier != 0 && r.Multiplier < 1 {
		return fmt.Errorf("reconnect multiplier must be at least 1, got %v", r.Multiplier)
	}

	if jwt := cfg.Credentials.JWT; jwt != nil {
		if jwt.Secret == "" {
			return fmt.Errorf("jwt secret is required")
		}
		if cfg.Credentials.BearerToken != "" {
			return fmt.Errorf("bearerToken and jwt are mutually exclusive")
		}
	}

	switch cfg.Checkpoint.Type {
	case "", "none", "memory":
	case "redis":
		if cfg.Checkpoint.Redis == nil || cfg.Checkpoint.Redis.Addr == "" {
			return fmt.Errorf("redis checkpoint configuration requires addr")
		}
	default:
		return fmt.Errorf("unknown checkpoint type: %s", cfg.Checkpoint.Type)
	}
	if b := cfg.Checkpoint.Breaker; b.MaxFailures < 0 || b.Timeout < 0 {
		return fmt.Errorf("checkpoint breaker settings must not be negative")
	}

	if cfg.Metrics.Enabled && cfg.Metrics.Addr == "" {
		return fmt.Errorf("metrics addr is required when metrics are enabled")
	}

	if rate := cfg.Telemetry.Tracing.SampleRate; rate < 0 || rate > 1 {
		return fmt.Errorf("tracing sample rate must be between 0 and 1, got %v", rate)
	}

	return nil
}
