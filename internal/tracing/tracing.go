// Package tracing installs the process-wide OpenTelemetry tracer and meter
// providers.
package tracing

import (
	"context"
	"errors"
	"io"
	"os"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdkresource "go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// Config controls provider initialization.
type Config struct {
	ServiceName    string
	ServiceVersion string

	// Writer receives finished spans as JSON. Nil means os.Stderr so spans do
	// not interleave with the logs on stdout.
	Writer io.Writer

	// MetricWriter receives periodic metric snapshots as JSON. Nil means Writer.
	MetricWriter io.Writer
	// MetricInterval is the export period. Zero means one minute.
	MetricInterval time.Duration
}

// Init configures the global tracer and meter providers and returns a
// shutdown func that flushes buffered spans and a final metric snapshot.
func Init(ctx context.Context, cfg Config) (func(context.Context) error, error) {
	if cfg.ServiceName == "" {
		cfg.ServiceName = "eventfold"
	}
	if cfg.ServiceVersion == "" {
		cfg.ServiceVersion = os.Getenv("EVENTFOLD_VERSION")
	}
	if cfg.Writer == nil {
		cfg.Writer = os.Stderr
	}
	if cfg.MetricWriter == nil {
		cfg.MetricWriter = cfg.Writer
	}
	if cfg.MetricInterval <= 0 {
		cfg.MetricInterval = time.Minute
	}

	res, err := sdkresource.New(ctx,
		sdkresource.WithFromEnv(),
		sdkresource.WithProcess(),
		sdkresource.WithHost(),
		sdkresource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.ServiceVersion),
			attribute.String("library.language", "go"),
		),
	)
	if err != nil && !errors.Is(err, sdkresource.ErrPartialResource) {
		return nil, err
	}

	exp, err := stdouttrace.New(stdouttrace.WithWriter(cfg.Writer))
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp,
			sdktrace.WithMaxExportBatchSize(512),
			sdktrace.WithBatchTimeout(time.Second),
		),
		sdktrace.WithResource(res),
	)

	metricExp, err := stdoutmetric.New(stdoutmetric.WithWriter(cfg.MetricWriter))
	if err != nil {
		_ = tp.Shutdown(ctx)
		return nil, err
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExp,
			sdkmetric.WithInterval(cfg.MetricInterval),
		)),
		sdkmetric.WithResource(res),
	)

	otel.SetTracerProvider(tp)
	otel.SetMeterProvider(mp)
	return func(ctx context.Context) error {
		return errors.Join(tp.Shutdown(ctx), mp.Shutdown(ctx))
	}, nil
}
