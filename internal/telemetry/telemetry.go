package telemetry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
)

// ShutdownFunc flushes and stops whatever InitTelemetry started.
type ShutdownFunc func(context.Context) error

// Config selects which OTLP signals are exported. Endpoints and headers come
// from the standard OTEL_EXPORTER_OTLP_* environment variables.
type Config struct {
	ServiceName string
	Version     string

	Traces      bool
	SampleRatio float64

	// Metrics exports the event, ingest, observer and authz instruments.
	Metrics        bool
	MetricInterval time.Duration
}

func (c *Config) applyDefaults() {
	if c.ServiceName == "" {
		c.ServiceName = "hostelsec"
	}
	if c.SampleRatio <= 0 || c.SampleRatio > 1 {
		c.SampleRatio = 1
	}
	if c.MetricInterval <= 0 {
		c.MetricInterval = 10 * time.Second
	}
}

// InitTelemetry starts the requested exporters and installs them as the
// global providers. A signal whose exporter cannot be created is logged and
// skipped so the server keeps running without it.
func InitTelemetry(ctx context.Context, cfg Config) (ShutdownFunc, error) {
	cfg.applyDefaults()

	if !cfg.Traces && !cfg.Metrics {
		return func(context.Context) error { return nil }, nil
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.Version),
		),
		resource.WithFromEnv(),
		resource.WithProcess(),
		resource.WithHost(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	var shutdowns []ShutdownFunc
	start := func(signal string, enabled bool, init func() (ShutdownFunc, error)) {
		if !enabled {
			return
		}
		fn, err := init()
		if err != nil {
			log.Warn().Err(err).Str("signal", signal).Msg("telemetry export disabled")
			return
		}
		shutdowns = append(shutdowns, fn)
	}

	start("traces", cfg.Traces, func() (ShutdownFunc, error) {
		return startTraces(ctx, res, cfg.SampleRatio)
	})
	start("metrics", cfg.Metrics, func() (ShutdownFunc, error) {
		return startMetrics(ctx, res, cfg.MetricInterval)
	})

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	log.Info().
		Bool("traces", cfg.Traces).
		Bool("metrics", cfg.Metrics).
		Float64("sample_ratio", cfg.SampleRatio).
		Int("exporters", len(shutdowns)).
		Msg("telemetry started")

	return func(ctx context.Context) error {
		var errs []error
		for _, fn := range shutdowns {
			errs = append(errs, fn(ctx))
		}
		return errors.Join(errs...)
	}, nil
}

func startTraces(ctx context.Context, res *resource.Resource, sampleRatio float64) (ShutdownFunc, error) {
	exporter, err := otlptracegrpc.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("trace exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(sampleRatio))),
	)
	otel.SetTracerProvider(tp)

	return func(ctx context.Context) error {
		if err := tp.Shutdown(ctx); err != nil {
			return fmt.Errorf("trace shutdown: %w", err)
		}
		return nil
	}, nil
}

func startMetrics(ctx context.Context, res *resource.Resource, interval time.Duration) (ShutdownFunc, error) {
	exporter, err := otlpmetricgrpc.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("metric exporter: %w", err)
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(interval))),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(mp)

	return func(ctx context.Context) error {
		if err := mp.Shutdown(ctx); err != nil {
			return fmt.Errorf("metric shutdown: %w", err)
		}
		return nil
	}, nil
}
