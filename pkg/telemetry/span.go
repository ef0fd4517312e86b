package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// SpanOptions configures a single relay span: an upstream call, a dispatch,
// a translation round-trip.
type SpanOptions struct {
	// Name is the span's operation name, e.g. "translate.call".
	Name string

	// Attributes are key-value pairs attached to the span at start.
	Attributes []attribute.KeyValue

	// EndWhenDone controls whether the span is ended automatically when fn
	// returns without error. A span that ends in error is always ended
	// immediately regardless of this flag.
	EndWhenDone bool
}

// RecordSpan wraps fn in a span, recording any error it returns on the span
// before propagating it. Callers that need the span mid-flight (to set
// additional attributes once the result is known) receive it as an
// argument to fn.
func RecordSpan[T any](
	ctx context.Context,
	tracer trace.Tracer,
	opts SpanOptions,
	fn func(context.Context, trace.Span) (T, error),
) (T, error) {
	ctx, span := tracer.Start(ctx, opts.Name,
		trace.WithAttributes(opts.Attributes...),
	)

	result, err := fn(ctx, span)

	if err != nil {
		RecordErrorOnSpan(span, err)
		span.End()
		var zero T
		return zero, err
	}

	if opts.EndWhenDone {
		span.End()
	}

	return result, nil
}

// RecordErrorOnSpan records err on span and marks the span's status as
// errored. A nil err is a no-op so callers can pass it unconditionally.
func RecordErrorOnSpan(span trace.Span, err error) {
	if err == nil {
		return
	}

	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
