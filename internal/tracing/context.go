// Package tracing carries per-request trace/span identifiers through
// context.Context, the same way internal/tools/context_keys.go carries
// per-call tool settings, and a Collector that records them when a
// backing store is configured.
package tracing

import (
	"context"

	"github.com/google/uuid"
)

type tracingContextKey string

const (
	ctxTraceID               tracingContextKey = "tracing_trace_id"
	ctxParentSpanID           tracingContextKey = "tracing_parent_span_id"
	ctxAnnounceParentSpanID   tracingContextKey = "tracing_announce_parent_span_id"
	ctxDelegateParentTraceID  tracingContextKey = "tracing_delegate_parent_trace_id"
	ctxCollector              tracingContextKey = "tracing_collector"
)

func WithTraceID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, ctxTraceID, id)
}

func TraceIDFromContext(ctx context.Context) uuid.UUID {
	v, _ := ctx.Value(ctxTraceID).(uuid.UUID)
	return v
}

func WithParentSpanID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, ctxParentSpanID, id)
}

func ParentSpanIDFromContext(ctx context.Context) uuid.UUID {
	v, _ := ctx.Value(ctxParentSpanID).(uuid.UUID)
	return v
}

// WithAnnounceParentSpanID marks the root span of a parent run that a
// delegated/announced sub-run's agent span should nest under.
func WithAnnounceParentSpanID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, ctxAnnounceParentSpanID, id)
}

func AnnounceParentSpanIDFromContext(ctx context.Context) uuid.UUID {
	v, _ := ctx.Value(ctxAnnounceParentSpanID).(uuid.UUID)
	return v
}

// WithDelegateParentTraceID marks the trace ID of the run that delegated
// the current one, so the delegate's own trace can record its parent.
func WithDelegateParentTraceID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, ctxDelegateParentTraceID, id)
}

func DelegateParentTraceIDFromContext(ctx context.Context) uuid.UUID {
	v, _ := ctx.Value(ctxDelegateParentTraceID).(uuid.UUID)
	return v
}

func WithCollector(ctx context.Context, c *Collector) context.Context {
	return context.WithValue(ctx, ctxCollector, c)
}

func CollectorFromContext(ctx context.Context) *Collector {
	v, _ := ctx.Value(ctxCollector).(*Collector)
	return v
}
