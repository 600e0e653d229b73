package types

import "context"

// Context Keys
type contextKey string

const (
	traceIDKey contextKey = "trace_id"
	jobKey     contextKey = "job"
)

// WithTraceID stores the trace ID in the context. The trace ID follows a
// cycle or an inbound message through publish, routing, and delivery.
func WithTraceID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, traceIDKey, id)
}

// GetTraceID retrieves the trace ID from the context.
func GetTraceID(ctx context.Context) string {
	id, _ := ctx.Value(traceIDKey).(string)
	return id
}

// WithJobName records which scheduled job produced the work in ctx.
func WithJobName(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, jobKey, name)
}

// GetJobName returns the job name stored by WithJobName, or "".
func GetJobName(ctx context.Context) string {
	name, _ := ctx.Value(jobKey).(string)
	return name
}
