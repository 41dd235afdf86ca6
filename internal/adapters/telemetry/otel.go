// Package telemetry builds the tracer provider for a run.
package telemetry

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const exporterSetupTimeout = 5 * time.Second

// Config defines the information needed to init tracing.
type Config struct {
	ServiceName        string
	ServiceVersion     string
	ExporterEndpoint   string
	InsecureExporter   bool
	ResourceAttributes map[string]string
}

// Init returns a provider exporting over OTLP/gRPC when an endpoint is
// configured and a no-op provider otherwise. The shutdown func flushes
// pending spans.
func Init(ctx context.Context, logger *slog.Logger, cfg Config) (trace.TracerProvider, func(ctx context.Context), error) {
	if cfg.ExporterEndpoint == "" {
		return noop.NewTracerProvider(), func(context.Context) {}, nil
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	attrs := make([]attribute.KeyValue, 0, len(cfg.ResourceAttributes)+2)
	attrs = append(attrs, semconv.ServiceNameKey.String(cfg.ServiceName))
	if cfg.ServiceVersion != "" {
		attrs = append(attrs, semconv.ServiceVersionKey.String(cfg.ServiceVersion))
	}
	for k, v := range cfg.ResourceAttributes {
		attrs = append(attrs, attribute.String(k, v))
	}
	res := resource.NewWithAttributes(semconv.SchemaURL, attrs...)

	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.ExporterEndpoint)}
	if cfg.InsecureExporter {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}

	setupCtx, cancel := context.WithTimeout(ctx, exporterSetupTimeout)
	defer cancel()

	exporter, err := otlptracegrpc.New(setupCtx, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("creating trace exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter, sdktrace.WithBatchTimeout(time.Second)),
		sdktrace.WithResource(res),
	)

	shutdown := func(ctx context.Context) {
		if err := tp.Shutdown(ctx); err != nil {
			logger.Error("shutting down tracer provider", "error", err)
		}
	}

	return tp, shutdown, nil
}
