// Package telemetry wires OpenTelemetry tracing for the API. With tracing
// disabled the global no-op provider stays in place and spans cost nothing.
package telemetry

import (
	"context"
	"io"
	"net/http"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"

	"ejc.kiosk/go-api/pkg/global"
)

const ServiceName = "ejc-kiosk-api"

type Options struct {
	Enabled bool
	// Output receives exported spans; nil means stdout.
	Output io.Writer
}

// Initialize installs the tracer provider and propagators. The returned
// function flushes pending spans and must be called on shutdown.
func Initialize(ctx context.Context, opts Options, logger *zap.Logger) (func(context.Context) error, error) {
	logger = global.OrNop(logger)
	if !opts.Enabled {
		logger.Info("tracing disabled")
		return func(context.Context) error { return nil }, nil
	}

	exporterOpts := []stdouttrace.Option{}
	if opts.Output != nil {
		exporterOpts = append(exporterOpts, stdouttrace.WithWriter(opts.Output))
	}
	exporter, err := stdouttrace.New(exporterOpts...)
	if err != nil {
		return nil, err
	}

	res, err := resource.New(ctx, resource.WithAttributes(attribute.String("service.name", ServiceName)))
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	logger.Info("tracing enabled", zap.String("exporter", "stdout"))
	return tp.Shutdown, nil
}

// Middleware wraps the HTTP handler with a server span per request.
// Health checks are not traced.
func Middleware(next http.Handler, excludedPaths ...string) http.Handler {
	excluded := make(map[string]bool, len(excludedPaths))
	for _, p := range excludedPaths {
		excluded[p] = true
	}
	return otelhttp.NewHandler(next, ServiceName,
		otelhttp.WithFilter(func(r *http.Request) bool {
			return !excluded[r.URL.Path]
		}),
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return "HTTP " + r.Method + " " + r.URL.Path
		}),
	)
}
