package telemetry

import (
	"context"
	"fmt"
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
)

// StartConnectSpan starts a client span for one connection attempt and
// injects the trace context into the request headers.
func (t *Telemetry) StartConnectSpan(ctx context.Context, req *http.Request, attempt int) (context.Context, trace.Span) {
	ctx, span := t.tracer.Start(ctx,
		fmt.Sprintf("SSE CONNECT %s", req.URL.Host),
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			semconv.HTTPRequestMethodKey.String(req.Method),
			semconv.URLFull(req.URL.Redacted()),
			semconv.ServerAddress(req.URL.Hostname()),
			attribute.Int("sse.attempt", attempt),
			attribute.String("sse.last_event_id", req.Header.Get("Last-Event-ID")),
		),
	)

	t.propagator.Inject(ctx, propagation.HeaderCarrier(req.Header))
	return ctx, span
}

// EndConnectSpan ends a connect span with the response status or error
func EndConnectSpan(span trace.Span, resp *http.Response, err error) {
	if !span.IsRecording() {
		span.End()
		return
	}

	switch {
	case err != nil:
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	case resp != nil:
		span.SetAttributes(semconv.HTTPResponseStatusCode(resp.StatusCode))
		if resp.StatusCode != http.StatusOK {
			span.SetStatus(codes.Error, fmt.Sprintf("HTTP %d", resp.StatusCode))
		} else {
			span.SetStatus(codes.Ok, "")
		}
	}

	span.End()
}
