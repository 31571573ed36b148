package store

import (
	"time"

	"github.com/google/uuid"
)

// Trace status values.
const (
	TraceStatusRunning   = "running"
	TraceStatusCompleted = "completed"
	TraceStatusError     = "error"
	TraceStatusCancelled = "cancelled"
)

// Span kinds recorded under a trace.
const (
	SpanTypeAgent    = "agent"
	SpanTypeLLMCall  = "llm_call"
	SpanTypeToolCall = "tool_call"
)

const (
	SpanStatusCompleted = "completed"
	SpanStatusError     = "error"
)

const (
	SpanLevelDefault = "DEFAULT"
)

// TraceData is one top-level run: a single user turn through the chat actor,
// from the first LLM call to the final reply.
type TraceData struct {
	ID            uuid.UUID
	ParentTraceID *uuid.UUID // set when this trace is a delegated sub-run
	AgentID       *uuid.UUID
	RunID         string
	SessionKey    string
	UserID        string
	Channel       string
	Name          string
	InputPreview  string
	OutputPreview string
	Status        string
	Error         string
	Tags          []string
	StartTime     time.Time
	EndTime       *time.Time
	CreatedAt     time.Time
}

// SpanData is one LLM call, tool call, or agent span nested under a TraceData.
type SpanData struct {
	ID            uuid.UUID
	TraceID       uuid.UUID
	ParentSpanID  *uuid.UUID
	AgentID       *uuid.UUID
	SpanType      string
	Name          string
	Model         string
	Provider      string
	ToolName      string
	ToolCallID    string
	FinishReason  string
	InputPreview  string
	OutputPreview string
	InputTokens   int
	OutputTokens  int
	Metadata      []byte
	Status        string
	Level         string
	Error         string
	StartTime     time.Time
	EndTime       *time.Time
	DurationMS    int
	CreatedAt     time.Time
}

// TracingStore persists traces and spans for later inspection. It is nil in
// standalone mode — tracing.Collector degrades to a no-op when its backing
// store is nil, the same way Stores.Tracing is nil outside managed mode.
type TracingStore interface {
	CreateTrace(trace *TraceData) error
	FinishTrace(id uuid.UUID, status, errMsg, outputPreview string) error
	CreateSpan(span SpanData) error
}
