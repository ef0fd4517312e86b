package otlpexport

import (
	"context"
	"testing"
	"time"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{
			name:   "valid endpoint",
			config: Config{Endpoint: "http://localhost:4318"},
		},
		{
			name:   "valid https endpoint",
			config: Config{Endpoint: "https://otel-collector.example.com"},
		},
		{
			name:   "custom service name",
			config: Config{Endpoint: "http://localhost:4318", ServiceName: "llmrelay-staging"},
		},
		{
			name:   "insecure flag",
			config: Config{Endpoint: "http://localhost:4318", Insecure: true},
		},
		{
			name:    "missing endpoint",
			config:  Config{},
			wantErr: true,
		},
		{
			name:    "invalid endpoint",
			config:  Config{Endpoint: "://invalid"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exp, err := New(tt.config)
			if (err != nil) != tt.wantErr {
				t.Errorf("New() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if err != nil {
				return
			}
			if exp == nil {
				t.Fatal("New() returned nil exporter")
			}
			if tracer := exp.Tracer(); tracer == nil {
				t.Error("Tracer() returned nil")
			}

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := exp.Shutdown(ctx); err != nil {
				t.Errorf("Shutdown() error = %v", err)
			}
		})
	}
}

func TestNewDefaultsServiceName(t *testing.T) {
	exp, err := New(Config{Endpoint: "http://localhost:4318"})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer func() { _ = exp.Shutdown(context.Background()) }()

	if exp.config.ServiceName != "llmrelay" {
		t.Errorf("ServiceName = %q, want default llmrelay", exp.config.ServiceName)
	}
}

func TestExporterTracerStartsSpans(t *testing.T) {
	exp, err := New(Config{Endpoint: "http://localhost:4318", ServiceName: "test"})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer func() { _ = exp.Shutdown(context.Background()) }()

	tracer := exp.Tracer()
	_, span := tracer.Start(context.Background(), "test-span")
	if span == nil {
		t.Fatal("Start() returned nil span")
	}
	span.End()
}

func TestExporterShutdownIsIdempotent(t *testing.T) {
	exp, err := New(Config{Endpoint: "http://localhost:4318"})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := exp.Shutdown(ctx); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
	if err := exp.Shutdown(ctx); err != nil {
		t.Errorf("second Shutdown() error = %v", err)
	}
}

func TestExporterForceFlush(t *testing.T) {
	exp, err := New(Config{Endpoint: "http://localhost:4318"})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer func() { _ = exp.Shutdown(context.Background()) }()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := exp.ForceFlush(ctx); err != nil {
		t.Errorf("ForceFlush() error = %v", err)
	}
}
