package shared

import (
	"context"
	"testing"
)

func TestTraceID_DefaultIsDash(t *testing.T) {
	ctx := context.Background()
	if got := TraceID(ctx); got != "-" {
		t.Fatalf("expected '-', got %q", got)
	}
}

func TestTraceID_RoundTrip(t *testing.T) {
	ctx := context.Background()
	ctx = WithTraceID(ctx, "run-123")
	if got := TraceID(ctx); got != "run-123" {
		t.Fatalf("expected run-123, got %q", got)
	}
}

func TestTraceID_EmptyValueFallsBackToDash(t *testing.T) {
	ctx := WithTraceID(context.Background(), "")
	if got := TraceID(ctx); got != "-" {
		t.Fatalf("expected '-', got %q", got)
	}
}

func TestNewTraceID_ProducesDistinctValues(t *testing.T) {
	a := NewTraceID()
	b := NewTraceID()
	if a == "" || b == "" {
		t.Fatalf("expected non-empty trace ids")
	}
	if a == b {
		t.Fatalf("expected distinct trace ids, got %q twice", a)
	}
}
