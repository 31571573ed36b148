package store

import (
	"context"

	"github.com/google/uuid"
)

// Request-scoped identity propagated from the chat actor down through tool
// execution and tracing, the same way internal/tools/context_keys.go carries
// per-call tool settings.

type storeContextKey string

const (
	ctxAgentID  storeContextKey = "store_agent_id"
	ctxUserID   storeContextKey = "store_user_id"
	ctxSenderID storeContextKey = "store_sender_id"
)

func WithAgentID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, ctxAgentID, id)
}

func AgentIDFromContext(ctx context.Context) uuid.UUID {
	v, _ := ctx.Value(ctxAgentID).(uuid.UUID)
	return v
}

func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, ctxUserID, userID)
}

func UserIDFromContext(ctx context.Context) string {
	v, _ := ctx.Value(ctxUserID).(string)
	return v
}

func WithSenderID(ctx context.Context, senderID string) context.Context {
	return context.WithValue(ctx, ctxSenderID, senderID)
}

func SenderIDFromContext(ctx context.Context) string {
	v, _ := ctx.Value(ctxSenderID).(string)
	return v
}

// GenNewID mints a random identifier for a new trace, span, or other
// store-level record.
func GenNewID() uuid.UUID {
	return uuid.New()
}
