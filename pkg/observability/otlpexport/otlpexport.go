// Package otlpexport builds the OTLP/HTTP trace exporter the relay uses
// when OTLPEndpoint is configured. It records:
//   - the dispatch and translation spans pkg/relay and pkg/translate open
//   - their latencies and parent/child call hierarchy
//   - errors recorded on those spans
package otlpexport

import (
	"context"
	"fmt"
	"net/url"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// Config mirrors the two knobs internal/config.Config actually exposes for
// tracing: OTLPEndpoint and ServiceName. Insecure defaults to false, same
// as the rest of the relay's outbound connections.
type Config struct {
	// Endpoint is the OTLP/HTTP collector to export spans to, e.g.
	// "http://localhost:4318". Required.
	Endpoint string

	// ServiceName identifies this process in the exported resource
	// attributes. Defaults to "llmrelay" if empty, matching
	// internal/config's SERVICE_NAME default.
	ServiceName string

	// Insecure disables TLS for the exporter connection. Set for local
	// development collectors that don't terminate TLS.
	Insecure bool
}

// Exporter owns the relay's OTLP trace pipeline and its shutdown hook.
type Exporter struct {
	config         Config
	tracerProvider *sdktrace.TracerProvider
	exporter       *otlptrace.Exporter
}

// New builds an Exporter from cfg. It fails fast if Endpoint can't be
// parsed or the OTLP transport can't be constructed — both are
// configuration errors the caller should surface at startup, not at the
// first dispatched request.
func New(cfg Config) (*Exporter, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("otlpexport: Endpoint is required")
	}

	parsed, err := url.Parse(cfg.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("otlpexport: invalid Endpoint: %w", err)
	}

	if cfg.ServiceName == "" {
		cfg.ServiceName = "llmrelay"
	}

	endpoint := parsed.Host
	if parsed.Port() != "" {
		endpoint = parsed.Hostname() + ":" + parsed.Port()
	}

	opts := []otlptracehttp.Option{
		otlptracehttp.WithEndpoint(endpoint),
		otlptracehttp.WithURLPath("/v1/traces"),
	}
	if cfg.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}

	exporter, err := otlptracehttp.New(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("otlpexport: failed to create OTLP exporter: %w", err)
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			"",
			attribute.String("service.name", cfg.ServiceName),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("otlpexport: failed to create resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	return &Exporter{
		config:         cfg,
		tracerProvider: tp,
		exporter:       exporter,
	}, nil
}

// Tracer returns the tracer relay.Core and translate.Service record spans
// against once this exporter is wired in.
func (e *Exporter) Tracer() trace.Tracer {
	return e.tracerProvider.Tracer("llmrelay")
}

// Shutdown flushes pending spans and tears down the exporter. Safe to call
// more than once.
func (e *Exporter) Shutdown(ctx context.Context) error {
	if e.tracerProvider != nil {
		if err := e.tracerProvider.Shutdown(ctx); err != nil {
			return fmt.Errorf("otlpexport: failed to shutdown tracer provider: %w", err)
		}
	}
	return nil
}

// ForceFlush exports any spans buffered in the batcher without waiting for
// its normal flush interval. Used by admin surfaces that want a consistent
// view before reporting stats.
func (e *Exporter) ForceFlush(ctx context.Context) error {
	if e.tracerProvider != nil {
		if err := e.tracerProvider.ForceFlush(ctx); err != nil {
			return fmt.Errorf("otlpexport: failed to flush spans: %w", err)
		}
	}
	return nil
}
