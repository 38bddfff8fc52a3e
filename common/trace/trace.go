// Package trace correlates log lines across an event's handling: each
// inbound room event gets an ID that every downstream component logs.
package trace

import (
	"context"

	"github.com/google/uuid"
)

// traceKey is the unexported context key holding the trace ID.
type traceKey struct{}

// GenerateID returns a fresh trace ID.
func GenerateID() string {
	return "t_" + uuid.NewString()
}

// WithTraceID returns a child context carrying the given trace ID.
func WithTraceID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, traceKey{}, id)
}

// FromContext extracts the trace ID from ctx, returning "" if absent.
func FromContext(ctx context.Context) string {
	if v, ok := ctx.Value(traceKey{}).(string); ok {
		return v
	}
	return ""
}
