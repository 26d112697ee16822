package factory

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/liquidnya/eventsource/internal/config"
	"github.com/liquidnya/eventsource/internal/telemetry"
)

// CreateTelemetry creates telemetry whose metrics register with registerer
func CreateTelemetry(cfg *config.Telemetry, registerer prometheus.Registerer) (*telemetry.Telemetry, error) {
	tel, err := telemetry.New(cfg.ToTelemetryConfig(), telemetry.WithRegisterer(registerer))
	if err != nil {
		return nil, fmt.Errorf("failed to create telemetry: %w", err)
	}
	return tel, nil
}
