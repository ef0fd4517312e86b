// Package obstelemetry wires the relay's OpenTelemetry tracer: a no-op
// tracer when telemetry is disabled (the default), or a real OTLP exporter
// when an endpoint is configured.
package obstelemetry

import (
	"context"

	"go.opentelemetry.io/otel/trace"

	"github.com/llmrelay/llmrelay/pkg/observability/otlpexport"
	"github.com/llmrelay/llmrelay/pkg/telemetry"
)

// Provider owns the relay's process-wide tracer and its shutdown hook.
type Provider struct {
	tracer   trace.Tracer
	shutdown func(context.Context) error
}

// New builds a Provider. When otlpEndpoint is empty, telemetry stays
// disabled and Tracer returns a no-op implementation; every span recorded
// against it is free. When set, it is dialed as an OTLP/HTTP collector
// endpoint.
func New(otlpEndpoint, serviceName string) (*Provider, error) {
	if otlpEndpoint == "" {
		return &Provider{
			tracer:   telemetry.GetTracer(nil),
			shutdown: func(context.Context) error { return nil },
		}, nil
	}

	exp, err := otlpexport.New(otlpexport.Config{
		Endpoint:    otlpEndpoint,
		ServiceName: serviceName,
	})
	if err != nil {
		return nil, err
	}
	return &Provider{
		tracer:   exp.Tracer(),
		shutdown: exp.Shutdown,
	}, nil
}

// Tracer returns the process-wide tracer for relay.Core and translate.Service
// to record spans against.
func (p *Provider) Tracer() trace.Tracer {
	return p.tracer
}

// Shutdown flushes any pending spans and releases the exporter's resources.
func (p *Provider) Shutdown(ctx context.Context) error {
	return p.shutdown(ctx)
}
