package providers

import (
	"context"
	"fmt"
	"sync"
)

// MockBehaviorKind selects what MockProvider does on each call. Some kinds
// (the "...ThenX" ones) consume N prior responses before settling into a
// final outcome; MockBehaviorQueue plays a fixed sequence of behaviors,
// repeating the last entry once exhausted.
type MockBehaviorKind int

const (
	MockSuccess MockBehaviorKind = iota
	MockRetryableErrorThenSuccess
	MockAlwaysRetryable
	MockAlwaysTerminal
	MockToolUse
	MockToolUseThenSuccess
	MockInputTooLongThenSuccess
	MockAlwaysInputTooLong
	MockTextOnlyThenToolUse
	MockToolUseThenToolUse
	MockMultipleToolUses
	MockBehaviorQueue
)

// MockToolCallSpec describes one tool call MockProvider should emit.
type MockToolCallSpec struct {
	Name string
	Args map[string]interface{}
}

// MockBehavior parameterizes a single MockProvider response policy.
type MockBehavior struct {
	Kind      MockBehaviorKind
	N         int // failures/prior turns before the behavior settles
	ToolCalls []MockToolCallSpec
	Queue     []MockBehavior // for MockBehaviorQueue
	Text      string         // response text override; defaults to "Mock response"
}

// MockProvider is the in-process stand-in used by tests and by degraded
// bootstrap when no real provider is configured.
type MockProvider struct {
	behavior MockBehavior
	model    string

	mu      sync.Mutex
	calls   int
	inQueue int // index into Queue for MockBehaviorQueue
}

// NewMockProvider constructs a provider that follows the given behavior on
// every Chat/ChatStream call. Like every real adapter, retry/backoff is
// the caller's responsibility — Chat makes one attempt and returns.
func NewMockProvider(behavior MockBehavior) *MockProvider {
	return &MockProvider{behavior: behavior, model: "mock-model"}
}

func (p *MockProvider) Name() string          { return "mock" }
func (p *MockProvider) DefaultModel() string  { return p.model }
func (p *MockProvider) SupportsThinking() bool { return false }

// CallCount reports how many Chat/ChatStream calls have been made; tests
// use this to assert the retry-then-success capture count.
func (p *MockProvider) CallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

func (p *MockProvider) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	if err := validateToolPairing(req.Messages); err != nil {
		return nil, err
	}

	p.mu.Lock()
	p.calls++
	attempt := p.calls
	p.mu.Unlock()

	return p.respond(attempt, p.currentBehavior())
}

func (p *MockProvider) ChatStream(ctx context.Context, req ChatRequest, onChunk func(StreamChunk)) (*ChatResponse, error) {
	resp, err := p.Chat(ctx, req)
	if err != nil {
		return nil, err
	}
	if onChunk != nil {
		if resp.Thinking != "" {
			onChunk(StreamChunk{Thinking: resp.Thinking})
		}
		if resp.Content != "" {
			onChunk(StreamChunk{Content: resp.Content})
		}
		onChunk(StreamChunk{Done: true})
	}
	return resp, nil
}

// currentBehavior resolves MockBehaviorQueue to the entry for this call,
// pinning to the last entry once the queue is exhausted.
func (p *MockProvider) currentBehavior() MockBehavior {
	if p.behavior.Kind != MockBehaviorQueue {
		return p.behavior
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.behavior.Queue) == 0 {
		return MockBehavior{Kind: MockSuccess}
	}
	idx := p.inQueue
	if idx >= len(p.behavior.Queue) {
		idx = len(p.behavior.Queue) - 1
	} else {
		p.inQueue++
	}
	return p.behavior.Queue[idx]
}

func mockText(b MockBehavior, fallback string) string {
	if b.Text != "" {
		return b.Text
	}
	return fallback
}

func mockUsage() *Usage {
	return &Usage{PromptTokens: 10, CompletionTokens: 10, TotalTokens: 20}
}

func toolCallsFrom(specs []MockToolCallSpec) []ToolCall {
	out := make([]ToolCall, 0, len(specs))
	for i, s := range specs {
		out = append(out, ToolCall{
			ID:        fmt.Sprintf("mock-call-%d", i+1),
			Name:      s.Name,
			Arguments: s.Args,
		})
	}
	return out
}

func (p *MockProvider) respond(attempt int, b MockBehavior) (*ChatResponse, error) {
	switch b.Kind {
	case MockSuccess:
		return &ChatResponse{Content: mockText(b, "Mock response"), FinishReason: "stop", Usage: mockUsage()}, nil

	case MockAlwaysRetryable:
		return nil, &ClassifiedError{Category: CategoryRetryable, Err: fmt.Errorf("mock: always retryable")}

	case MockAlwaysTerminal:
		return nil, &ClassifiedError{Category: CategoryTerminal, Err: fmt.Errorf("mock: always terminal")}

	case MockAlwaysInputTooLong:
		return nil, &ClassifiedError{Category: CategoryInputTooLong, Err: fmt.Errorf("mock: maximum context length exceeded")}

	case MockRetryableErrorThenSuccess:
		if attempt <= b.N {
			return nil, &ClassifiedError{Category: CategoryRetryable, Err: fmt.Errorf("mock: retryable error %d", attempt)}
		}
		return &ChatResponse{Content: mockText(b, "Success after retries"), FinishReason: "stop", Usage: mockUsage()}, nil

	case MockInputTooLongThenSuccess:
		if attempt <= b.N {
			return nil, &ClassifiedError{Category: CategoryInputTooLong, Err: fmt.Errorf("mock: maximum context length exceeded")}
		}
		return &ChatResponse{Content: mockText(b, "Success after compaction"), FinishReason: "stop", Usage: mockUsage()}, nil

	case MockToolUse:
		return &ChatResponse{ToolCalls: toolCallsFrom(b.ToolCalls), FinishReason: "tool_calls", Usage: mockUsage()}, nil

	case MockMultipleToolUses:
		return &ChatResponse{ToolCalls: toolCallsFrom(b.ToolCalls), FinishReason: "tool_calls", Usage: mockUsage()}, nil

	case MockToolUseThenSuccess:
		if attempt <= b.N {
			return &ChatResponse{ToolCalls: toolCallsFrom(b.ToolCalls), FinishReason: "tool_calls", Usage: mockUsage()}, nil
		}
		return &ChatResponse{Content: mockText(b, "Mock response"), FinishReason: "stop", Usage: mockUsage()}, nil

	case MockTextOnlyThenToolUse:
		if attempt <= b.N {
			return &ChatResponse{Content: mockText(b, "Mock response"), FinishReason: "stop", Usage: mockUsage()}, nil
		}
		return &ChatResponse{ToolCalls: toolCallsFrom(b.ToolCalls), FinishReason: "tool_calls", Usage: mockUsage()}, nil

	case MockToolUseThenToolUse:
		return &ChatResponse{ToolCalls: toolCallsFrom(b.ToolCalls), FinishReason: "tool_calls", Usage: mockUsage()}, nil

	default:
		return &ChatResponse{Content: "Mock response", FinishReason: "stop", Usage: mockUsage()}, nil
	}
}

// validateToolPairing enforces the conversation invariant every provider
// (real or mock) must check: every ToolUse block in an assistant message
// is answered by a matching tool-result message before the next
// non-tool-result message. Mirrors upstream providers' own rejection of
// malformed histories.
func validateToolPairing(messages []Message) error {
	for i, msg := range messages {
		if msg.Role != "assistant" || len(msg.ToolCalls) == 0 {
			continue
		}
		pending := make(map[string]bool, len(msg.ToolCalls))
		for _, tc := range msg.ToolCalls {
			pending[tc.ID] = true
		}
		j := i + 1
		for j < len(messages) && messages[j].Role == "tool" {
			delete(pending, messages[j].ToolCallID)
			j++
		}
		if len(pending) > 0 {
			for id := range pending {
				return &ClassifiedError{
					Category: CategoryTerminal,
					Err:      fmt.Errorf("ValidationException: tool_use id %s has no matching tool_result", id),
				}
			}
		}
	}
	return nil
}
