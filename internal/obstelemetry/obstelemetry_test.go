package obstelemetry

import (
	"context"
	"testing"
)

func TestNewWithoutEndpointIsNoop(t *testing.T) {
	t.Parallel()

	p, err := New("", "llmrelay")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if p.Tracer() == nil {
		t.Fatal("expected a non-nil no-op tracer")
	}
	if err := p.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown: %v", err)
	}
}

func TestNewWithEndpointBuildsTracker(t *testing.T) {
	t.Parallel()

	p, err := New("http://localhost:5000", "llmrelay")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if p.Tracer() == nil {
		t.Fatal("expected a non-nil tracer")
	}

	ctx, span := p.Tracer().Start(context.Background(), "test-span")
	span.End()
	_ = ctx

	if err := p.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown: %v", err)
	}
}
