// Package telemetry wires OpenTelemetry tracing and metrics for stream
// connections.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/liquidnya/eventsource"

// Config holds telemetry configuration
type Config struct {
	Enabled bool
	Service string
	Version string

	Tracing TracingConfig
	Metrics MetricsConfig
}

// TracingConfig holds tracing configuration
type TracingConfig struct {
	Enabled      bool
	Endpoint     string
	Insecure     bool
	Headers      map[string]string
	SampleRate   float64
	MaxBatchSize int
	BatchTimeout time.Duration
}

// MetricsConfig holds metrics configuration
type MetricsConfig struct {
	Enabled bool
}

// Option configures a Telemetry instance
type Option func(*Telemetry)

// WithRegisterer sets where the metrics exporter registers its collector.
// Defaults to the prometheus default registerer.
func WithRegisterer(registerer promclient.Registerer) Option {
	return func(t *Telemetry) {
		t.registerer = registerer
	}
}

// WithSpanProcessor replaces the OTLP exporter with the given processor.
func WithSpanProcessor(processor sdktrace.SpanProcessor) Option {
	return func(t *Telemetry) {
		t.processor = processor
	}
}

// Telemetry manages OpenTelemetry providers
type Telemetry struct {
	config      Config
	tracer      trace.Tracer
	meter       metric.Meter
	propagator  propagation.TextMapPropagator
	resource    *resource.Resource
	instruments *instruments
	shutdown    []func(context.Context) error

	registerer promclient.Registerer
	processor  sdktrace.SpanProcessor
}

// New creates a new telemetry instance
func New(config Config, opts ...Option) (*Telemetry, error) {
	t := &Telemetry{
		config:     config,
		shutdown:   make([]func(context.Context) error, 0),
		registerer: promclient.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(t)
	}

	if !config.Enabled {
		t.tracer = otel.GetTracerProvider().Tracer(instrumentationName)
		t.meter = otel.GetMeterProvider().Meter(instrumentationName)
		t.propagator = propagation.NewCompositeTextMapPropagator()
		return t, t.initInstruments()
	}

	if err := t.initResource(); err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	if config.Tracing.Enabled {
		if err := t.initTracing(); err != nil {
			return nil, fmt.Errorf("failed to initialize tracing: %w", err)
		}
	} else {
		t.tracer = otel.GetTracerProvider().Tracer(instrumentationName)
	}

	if config.Metrics.Enabled {
		if err := t.initMetrics(); err != nil {
			return nil, fmt.Errorf("failed to initialize metrics: %w", err)
		}
	} else {
		t.meter = otel.GetMeterProvider().Meter(instrumentationName)
	}

	t.propagator = propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	)

	if err := t.initInstruments(); err != nil {
		return nil, fmt.Errorf("failed to create instruments: %w", err)
	}
	return t, nil
}

// Noop returns a telemetry instance that records nothing.
func Noop() *Telemetry {
	t, err := New(Config{})
	if err != nil {
		// the global no-op providers never fail to create instruments
		panic(err)
	}
	return t
}

func (t *Telemetry) initResource() error {
	service := t.config.Service
	if service == "" {
		service = "eventsource"
	}
	attrs := []attribute.KeyValue{
		semconv.ServiceName(service),
	}
	if t.config.Version != "" {
		attrs = append(attrs, semconv.ServiceVersion(t.config.Version))
	}

	res, err := resource.New(
		context.Background(),
		resource.WithAttributes(attrs...),
		resource.WithHost(),
		resource.WithProcess(),
		resource.WithTelemetrySDK(),
	)
	if err != nil {
		return err
	}

	t.resource = res
	return nil
}

func (t *Telemetry) initTracing() error {
	processor := t.processor
	if processor == nil {
		opts := []otlptracehttp.Option{
			otlptracehttp.WithTimeout(30 * time.Second),
			otlptracehttp.WithRetry(otlptracehttp.RetryConfig{
				Enabled:         true,
				InitialInterval: 5 * time.Second,
				MaxInterval:     30 * time.Second,
				MaxElapsedTime:  time.Minute,
			}),
		}
		if t.config.Tracing.Endpoint != "" {
			opts = append(opts, otlptracehttp.WithEndpoint(t.config.Tracing.Endpoint))
		}
		if t.config.Tracing.Insecure {
			opts = append(opts, otlptracehttp.WithInsecure())
		}
		if len(t.config.Tracing.Headers) > 0 {
			opts = append(opts, otlptracehttp.WithHeaders(t.config.Tracing.Headers))
		}

		exporter, err := otlptracehttp.New(context.Background(), opts...)
		if err != nil {
			return fmt.Errorf("failed to create trace exporter: %w", err)
		}

		var batchOpts []sdktrace.BatchSpanProcessorOption
		if t.config.Tracing.MaxBatchSize > 0 {
			batchOpts = append(batchOpts, sdktrace.WithMaxExportBatchSize(t.config.Tracing.MaxBatchSize))
		}
		if t.config.Tracing.BatchTimeout > 0 {
			batchOpts = append(batchOpts, sdktrace.WithBatchTimeout(t.config.Tracing.BatchTimeout))
		}
		processor = sdktrace.NewBatchSpanProcessor(exporter, batchOpts...)
	}

	var sampler sdktrace.Sampler
	if t.config.Tracing.SampleRate > 0 && t.config.Tracing.SampleRate < 1 {
		sampler = sdktrace.ParentBased(sdktrace.TraceIDRatioBased(t.config.Tracing.SampleRate))
	} else {
		sampler = sdktrace.AlwaysSample()
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSpanProcessor(processor),
		sdktrace.WithResource(t.resource),
		sdktrace.WithSampler(sampler),
	)

	t.tracer = tp.Tracer(instrumentationName)
	t.shutdown = append(t.shutdown, tp.Shutdown)
	return nil
}

func (t *Telemetry) initMetrics() error {
	exporter, err := prometheus.New(prometheus.WithRegisterer(t.registerer))
	if err != nil {
		return fmt.Errorf("failed to create metrics exporter: %w", err)
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(exporter),
		sdkmetric.WithResource(t.resource),
	)

	t.meter = mp.Meter(instrumentationName)
	t.shutdown = append(t.shutdown, mp.Shutdown)
	return nil
}

// Tracer returns the tracer
func (t *Telemetry) Tracer() trace.Tracer {
	return t.tracer
}

// Meter returns the meter
func (t *Telemetry) Meter() metric.Meter {
	return t.meter
}

// Propagator returns the propagator
func (t *Telemetry) Propagator() propagation.TextMapPropagator {
	return t.propagator
}

// Shutdown flushes and stops the providers
func (t *Telemetry) Shutdown(ctx context.Context) error {
	var errs []error
	for _, fn := range t.shutdown {
		if err := fn(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
