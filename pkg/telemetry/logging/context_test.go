package logging

import (
	"context"
	"testing"
)

func TestContextKeys(t *testing.T) {
	ctx := context.Background()
	if GetRequestID(ctx) != "" || GetOperation(ctx) != "" {
		t.Fatal("expected empty values on bare context")
	}

	ctx = WithRequestID(ctx, "req-1")
	ctx = WithOperation(ctx, "report.cleanable")
	if got := GetRequestID(ctx); got != "req-1" {
		t.Errorf("GetRequestID() = %q", got)
	}
	if got := GetOperation(ctx); got != "report.cleanable" {
		t.Errorf("GetOperation() = %q", got)
	}

	ctx = WithRequestID(ctx, "req-2")
	if got := GetRequestID(ctx); got != "req-2" {
		t.Errorf("overwritten request ID = %q", got)
	}
}
