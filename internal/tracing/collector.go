package tracing

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/tycode-run/goclaw-core/internal/store"
)

// Collector records traces and spans to a TracingStore. A nil store (the
// default outside managed mode) makes every method a no-op, so call sites
// don't need to branch on whether tracing is configured.
type Collector struct {
	store   store.TracingStore
	verbose bool
}

// NewCollector returns a Collector backed by s. s may be nil.
func NewCollector(s store.TracingStore, verbose bool) *Collector {
	return &Collector{store: s, verbose: verbose}
}

// Verbose reports whether full message/output bodies should be recorded on
// spans rather than short previews.
func (c *Collector) Verbose() bool {
	return c != nil && c.verbose
}

func (c *Collector) CreateTrace(ctx context.Context, trace *store.TraceData) error {
	if c == nil || c.store == nil {
		return nil
	}
	return c.store.CreateTrace(trace)
}

func (c *Collector) FinishTrace(ctx context.Context, id uuid.UUID, status, errMsg, outputPreview string) error {
	if c == nil || c.store == nil {
		return nil
	}
	return c.store.FinishTrace(id, status, errMsg, outputPreview)
}

func (c *Collector) EmitSpan(span store.SpanData) {
	if c == nil || c.store == nil {
		return
	}
	if span.ID == uuid.Nil {
		span.ID = uuid.New()
	}
	if span.CreatedAt.IsZero() {
		span.CreatedAt = time.Now().UTC()
	}
	_ = c.store.CreateSpan(span)
}
