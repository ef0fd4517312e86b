package telemetry

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// TracerName identifies the relay's tracer in whatever backend the
// configured exporter reports to.
const TracerName = "llmrelay"

// GetTracer returns the tracer relay.Core and translate.Service should
// record spans against. A nil or disabled Settings yields a genuine no-op
// tracer so an uninstrumented deployment pays nothing for the spans it
// never exports. An enabled Settings with a Tracer set returns that tracer
// instead of reaching for the process-global one.
func GetTracer(settings *Settings) trace.Tracer {
	if settings == nil || !settings.IsEnabled {
		return noop.NewTracerProvider().Tracer(TracerName)
	}

	if settings.Tracer != nil {
		return settings.Tracer
	}

	return otel.Tracer(TracerName)
}
