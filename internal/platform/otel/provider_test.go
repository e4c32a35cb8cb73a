package otel

import (
	"context"
	"testing"
)

func TestSetupNoopWhenEndpointEmpty(t *testing.T) {
	t.Setenv("ARENA_OTEL_ENDPOINT", "")
	t.Setenv("ARENA_OTEL_ENABLED", "")

	shutdown, err := Setup(context.Background(), "test-service")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown error: %v", err)
	}
}

func TestSetupNoopWhenExplicitlyDisabled(t *testing.T) {
	t.Setenv("ARENA_OTEL_ENDPOINT", "http://localhost:4318")
	t.Setenv("ARENA_OTEL_ENABLED", "false")

	shutdown, err := Setup(context.Background(), "test-service")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown error: %v", err)
	}
}

func TestSetupCreatesProviderWhenEndpointSet(t *testing.T) {
	// Non-routable address so nothing is exported.
	t.Setenv("ARENA_OTEL_ENDPOINT", "http://192.0.2.1:4318")
	t.Setenv("ARENA_OTEL_ENABLED", "")

	shutdown, err := Setup(context.Background(), "test-service")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown error: %v", err)
	}
}

func TestSamplerFromEnv(t *testing.T) {
	cases := map[string]string{
		"":     "AlwaysOnSampler",
		"2":    "AlwaysOnSampler",
		"nope": "AlwaysOnSampler",
	}
	for raw, want := range cases {
		t.Setenv("ARENA_OTEL_SAMPLE_RATIO", raw)
		if got := samplerFromEnv().Description(); got != want {
			t.Fatalf("sampler(%q) = %q, want %q", raw, got, want)
		}
	}

	t.Setenv("ARENA_OTEL_SAMPLE_RATIO", "0.5")
	if got := samplerFromEnv().Description(); got == "AlwaysOnSampler" {
		t.Fatalf("expected ratio sampler, got %q", got)
	}
}
