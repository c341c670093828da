package telemetry

import (
	"context"
	"testing"
)

func TestInitWithoutEndpointIsNoop(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")

	shutdown, err := Init(context.Background(), "search-broker")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if shutdown == nil {
		t.Fatal("expected a noop shutdown func")
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("noop shutdown failed: %v", err)
	}
}

func TestTrimScheme(t *testing.T) {
	for _, tc := range []struct{ in, want string }{
		{"http://collector:4318", "collector:4318"},
		{"https://collector:4318", "collector:4318"},
		{"collector:4318", "collector:4318"},
	} {
		if got := trimScheme(tc.in); got != tc.want {
			t.Fatalf("trimScheme(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
