package factory

import (
	"context"
	stderrors "errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/liquidnya/eventsource/internal/config"
	"github.com/liquidnya/eventsource/internal/credentials"
	"github.com/liquidnya/eventsource/internal/storage/memory"
	"github.com/liquidnya/eventsource/pkg/errors"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func TestCreateCheckpointStore(t *testing.T) {
	ctx := context.Background()

	for _, typ := range []string{"", "none"} {
		store, err := CreateCheckpointStore(ctx, &config.Checkpoint{Type: typ}, discard)
		if err != nil || store != nil {
			t.Errorf("type %q: expected no store, got %v %v", typ, store, err)
		}
	}

	store, err := CreateCheckpointStore(ctx, &config.Checkpoint{Type: "memory", MaxEntries: 5}, discard)
	if err != nil {
		t.Fatalf("CreateCheckpointStore(memory) error: %v", err)
	}
	if _, ok := store.(*memory.Store); !ok {
		t.Errorf("Expected memory store, got %T", store)
	}

	if _, err := CreateCheckpointStore(ctx, &config.Checkpoint{Type: "etcd"}, discard); !stderrors.Is(err, errors.NewError(errors.ErrorTypeBadRequest, "")) {
		t.Errorf("Expected bad request for unknown type, got %v", err)
	}
}

func TestCreateRedisClient_Unreachable(t *testing.T) {
	_, err := CreateRedisClient(context.Background(), &config.Redis{Addr: "127.0.0.1:1"})
	if !stderrors.Is(err, errors.NewError(errors.ErrorTypeUnavailable, "")) {
		t.Errorf("Expected unavailable error, got %v", err)
	}

	if _, err := CreateRedisClient(context.Background(), nil); err == nil {
		t.Error("Expected error for nil config")
	}
}

func TestCreateCredentials(t *testing.T) {
	p, err := CreateCredentials(&config.Credentials{})
	if err != nil || p != nil {
		t.Errorf("Expected no provider, got %v %v", p, err)
	}

	p, err = CreateCredentials(&config.Credentials{BearerToken: "abc"})
	if err != nil || p != credentials.Bearer("abc") {
		t.Errorf("Expected bearer provider, got %v %v", p, err)
	}

	p, err = CreateCredentials(&config.Credentials{JWT: &config.JWT{Secret: "s", TTL: 60}})
	if err != nil {
		t.Fatalf("CreateCredentials(jwt) error: %v", err)
	}
	if _, ok := p.(*credentials.JWTSigner); !ok {
		t.Errorf("Expected jwt signer, got %T", p)
	}

	p, err = CreateCredentials(&config.Credentials{JWT: &config.JWT{}})
	if err == nil || p != nil {
		t.Errorf("Expected error and nil provider for empty secret, got %v %v", p, err)
	}
}

func TestCreateTelemetry(t *testing.T) {
	tel, err := CreateTelemetry(&config.Telemetry{Enabled: true, Service: "test"}, prometheus.NewRegistry())
	if err != nil {
		t.Fatalf("CreateTelemetry() error: %v", err)
	}
	defer tel.Shutdown(context.Background())
}

func TestCreateBackend(t *testing.T) {
	cfg, _ := config.LoadDefault()
	cfg.Stream.URL = "http://localhost/events"

	b, err := CreateBackend(cfg, BackendDeps{Logger: discard})
	if err != nil {
		t.Fatalf("CreateBackend() error: %v", err)
	}
	src, err := b.Create(cfg.Stream.URL)
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	src.Close()

	cfg.Client.TLS.RootCAFile = "/nonexistent/ca.pem"
	if _, err := CreateBackend(cfg, BackendDeps{Logger: discard}); !stderrors.Is(err, errors.NewError(errors.ErrorTypeBadRequest, "")) {
		t.Errorf("Expected bad request for unreadable CA, got %v", err)
	}
}

func TestStreamConfig_Timeouts(t *testing.T) {
	tests := []struct {
		name       string
		dial       int
		header     int
		wantDial   time.Duration
		wantHeader time.Duration
	}{
		{name: "both set", dial: 3, header: 4, wantDial: 3 * time.Second, wantHeader: 4 * time.Second},
		{name: "dial only", dial: 3, wantDial: 3 * time.Second, wantHeader: 30 * time.Second},
		{name: "header only", header: 4, wantDial: 10 * time.Second, wantHeader: 4 * time.Second},
		{name: "neither", wantDial: 10 * time.Second, wantHeader: 30 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, _ := config.LoadDefault()
			cfg.Client.DialTimeout = tt.dial
			cfg.Client.ResponseHeaderTimeout = tt.header

			got := StreamConfig(cfg)
			if got.DialTimeout != tt.wantDial {
				t.Errorf("DialTimeout = %v, want %v", got.DialTimeout, tt.wantDial)
			}
			if got.ResponseHeaderTimeout != tt.wantHeader {
				t.Errorf("ResponseHeaderTimeout = %v, want %v", got.ResponseHeaderTimeout, tt.wantHeader)
			}
		})
	}
}
