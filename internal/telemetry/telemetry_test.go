package telemetry

import (
	"context"
	"testing"

	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"github.com/campusmarket/campusmarket/internal/config"
)

func TestSetup_DisabledWithoutConfig(t *testing.T) {
	shutdown, err := Setup(context.Background(), nil, "dev")
	if err != nil {
		t.Fatalf("Setup(nil): %v", err)
	}
	if shutdown == nil {
		t.Fatal("shutdown is nil")
	}
	if err := shutdown(context.Background()); err != nil {
		t.Errorf("shutdown: %v", err)
	}
}

func TestSetup_InsecureCollectorShutsDown(t *testing.T) {
	// grpc.NewClient connects lazily, so no collector needs to be listening.
	shutdown, err := Setup(context.Background(), &config.TelemetryConfig{
		OTLPEndpoint: "localhost:4317",
		Insecure:     true,
	}, "dev")
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_ = shutdown(ctx) // flush fails against a dead collector; it must not hang
}

func TestNewResource_ServiceName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", DefaultServiceName},
		{"campusmarket-dev", "campusmarket-dev"},
	}
	for _, tt := range tests {
		res, err := newResource(tt.in, "1.2.3")
		if err != nil {
			t.Fatalf("newResource(%q): %v", tt.in, err)
		}
		got, ok := res.Set().Value(semconv.ServiceNameKey)
		if !ok || got.AsString() != tt.want {
			t.Errorf("service.name = %q, want %q", got.AsString(), tt.want)
		}
	}
}
