package types

import (
	"context"
	"testing"
)

func TestTraceIDRoundTrip(t *testing.T) {
	ctx := WithTraceID(context.Background(), "trace-1")
	if got := GetTraceID(ctx); got != "trace-1" {
		t.Errorf("GetTraceID() = %q, want trace-1", got)
	}
	if got := GetTraceID(context.Background()); got != "" {
		t.Errorf("empty context returned %q", got)
	}
}

func TestJobNameRoundTrip(t *testing.T) {
	ctx := WithJobName(context.Background(), "scan_due_tasks")
	if got := GetJobName(ctx); got != "scan_due_tasks" {
		t.Errorf("GetJobName() = %q", got)
	}
}
