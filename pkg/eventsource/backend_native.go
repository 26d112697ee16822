//go:build !(js && wasm)

package eventsource

import (
	"log/slog"

	"github.com/liquidnya/eventsource/internal/backend/httpstream"
	"github.com/liquidnya/eventsource/pkg/backend"
	"github.com/liquidnya/eventsource/pkg/metrics"
)

func defaultBackend(logger *slog.Logger, m *metrics.Metrics) backend.Backend {
	return httpstream.New(httpstream.DefaultConfig(),
		httpstream.WithLogger(logger),
		httpstream.WithMetrics(m),
	)
}
