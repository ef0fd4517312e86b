// Package telemetry provides the relay's OpenTelemetry integration: a
// tracer that is a genuine no-op until a deployment opts in, and a small
// generic span-recording helper used to wrap a lifecycle stage (an upstream
// call, a dispatch) without duplicating the start/record-error/end
// boilerplate at every call site.
package telemetry

import (
	"go.opentelemetry.io/otel/trace"
)

// Settings controls whether relay.Core and translate.Service record spans at
// all, and lets a deployment supply its own pre-built tracer instead of the
// package-global OTel one. Every Core and Service is constructed with
// GetTracer(nil) — a disabled, no-op tracer — and only becomes instrumented
// once internal/obstelemetry.Provider supplies a real one via WithTracer.
type Settings struct {
	// IsEnabled controls whether telemetry is active. Defaults to false.
	IsEnabled bool

	// Tracer is a caller-supplied OpenTelemetry tracer. If nil and
	// IsEnabled is true, the global OTel tracer is used instead.
	Tracer trace.Tracer
}
