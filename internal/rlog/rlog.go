// Package rlog is the relay's logging façade: a thin wrapper over the
// standard log package, the way the teacher's server examples write their
// startup banners and request errors, upgraded with request-scoped fields
// threaded through context.Context instead of repeated at every call site.
package rlog

import (
	"context"
	"fmt"
	"log"
)

type fieldsKey struct{}

// With attaches key/value pairs to ctx so every subsequent Infof/Warnf/
// Errorf call carrying that context prefixes them automatically. Pairs
// accumulate across nested With calls; later keys with the same name
// shadow earlier ones in the printed order but both remain present.
func With(ctx context.Context, kv ...string) context.Context {
	existing, _ := ctx.Value(fieldsKey{}).([]string)
	merged := make([]string, 0, len(existing)+len(kv))
	merged = append(merged, existing...)
	merged = append(merged, kv...)
	return context.WithValue(ctx, fieldsKey{}, merged)
}

func fieldsOf(ctx context.Context) []string {
	fields, _ := ctx.Value(fieldsKey{}).([]string)
	return fields
}

func prefix(ctx context.Context) string {
	fields := fieldsOf(ctx)
	if len(fields) == 0 {
		return ""
	}
	out := ""
	for i := 0; i+1 < len(fields); i += 2 {
		out += fields[i] + "=" + fields[i+1] + " "
	}
	return out
}

// Infof logs an informational message, prefixed with any fields attached
// to ctx via With.
func Infof(ctx context.Context, format string, args ...interface{}) {
	log.Print("INFO " + prefix(ctx) + fmt.Sprintf(format, args...))
}

// Warnf logs a warning.
func Warnf(ctx context.Context, format string, args ...interface{}) {
	log.Print("WARN " + prefix(ctx) + fmt.Sprintf(format, args...))
}

// Errorf logs an error. The caller decides whether the underlying error
// also propagates to an HTTP response; logging it here never does.
func Errorf(ctx context.Context, format string, args ...interface{}) {
	log.Print("ERROR " + prefix(ctx) + fmt.Sprintf(format, args...))
}
