package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type instruments struct {
	connectDuration metric.Float64Histogram
	sessionDuration metric.Float64Histogram
}

func (t *Telemetry) initInstruments() error {
	var (
		ins instruments
		err error
	)

	ins.connectDuration, err = t.meter.Float64Histogram(
		"eventsource.connect.duration",
		metric.WithDescription("Time from request to response headers for a stream connection"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return err
	}

	ins.sessionDuration, err = t.meter.Float64Histogram(
		"eventsource.session.duration",
		metric.WithDescription("Lifetime of an established stream connection"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return err
	}

	t.instruments = &ins
	return nil
}

// RecordConnect records how long a connection attempt took. result is
// "ok", "rejected" or "error".
func (t *Telemetry) RecordConnect(ctx context.Context, d time.Duration, result string) {
	t.instruments.connectDuration.Record(ctx, d.Seconds(),
		metric.WithAttributes(attribute.String("result", result)))
}

// RecordSession records how long an open connection lasted
func (t *Telemetry) RecordSession(ctx context.Context, d time.Duration) {
	t.instruments.sessionDuration.Record(ctx, d.Seconds())
}
