//go:build js && wasm

package eventsource

import (
	"log/slog"

	"github.com/liquidnya/eventsource/internal/backend/browser"
	"github.com/liquidnya/eventsource/pkg/backend"
	"github.com/liquidnya/eventsource/pkg/metrics"
)

func defaultBackend(logger *slog.Logger, _ *metrics.Metrics) backend.Backend {
	return browser.New(logger)
}
