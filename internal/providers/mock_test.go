package providers

import (
	"context"
	"testing"
)

func TestMockProvider_HelloWorld(t *testing.T) {
	p := NewMockProvider(MockBehavior{Kind: MockSuccess})
	resp, err := p.Chat(context.Background(), ChatRequest{
		Messages: []Message{{Role: "user", Content: "Say hello"}},
	})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if resp.Content != "Mock response" {
		t.Errorf("Content = %q, want %q", resp.Content, "Mock response")
	}
	if resp.Usage == nil || resp.Usage.TotalTokens != 20 {
		t.Errorf("Usage.TotalTokens = %v, want 20", resp.Usage)
	}
	if resp.FinishReason != "stop" {
		t.Errorf("FinishReason = %q, want stop", resp.FinishReason)
	}
}

func TestMockProvider_RetryThenSuccess(t *testing.T) {
	p := NewMockProvider(MockBehavior{Kind: MockRetryableErrorThenSuccess, N: 2})
	req := ChatRequest{Messages: []Message{{Role: "user", Content: "hi"}}}

	retries := 0
	resp, err := RetryDo(context.Background(), DefaultRetryConfig(), func() (*ChatResponse, error) {
		return p.Chat(context.Background(), req)
	})
	_ = retries
	if err != nil {
		t.Fatalf("RetryDo: %v", err)
	}
	if resp.Content != "Success after retries" {
		t.Errorf("Content = %q, want %q", resp.Content, "Success after retries")
	}
	if p.CallCount() != 3 {
		t.Errorf("CallCount = %d, want 3", p.CallCount())
	}
}

func TestMockProvider_ToolPairValidationRejected(t *testing.T) {
	p := NewMockProvider(MockBehavior{Kind: MockSuccess})
	messages := []Message{
		{Role: "user", Content: "do something"},
		{Role: "assistant", ToolCalls: []ToolCall{{ID: "t1", Name: "read_file"}}},
		{Role: "user", Content: "unrelated follow-up with no tool result"},
	}
	_, err := p.Chat(context.Background(), ChatRequest{Messages: messages})
	if err == nil {
		t.Fatal("expected ValidationException error")
	}
	var cerr *ClassifiedError
	if ce, ok := err.(*ClassifiedError); ok {
		cerr = ce
	} else {
		t.Fatalf("expected *ClassifiedError, got %T", err)
	}
	if cerr.Category != CategoryTerminal {
		t.Errorf("Category = %v, want CategoryTerminal", cerr.Category)
	}
}

func TestMockProvider_ToolPairValidationAccepted(t *testing.T) {
	p := NewMockProvider(MockBehavior{Kind: MockSuccess})
	messages := []Message{
		{Role: "user", Content: "do something"},
		{Role: "assistant", ToolCalls: []ToolCall{{ID: "t1", Name: "read_file"}}},
		{Role: "tool", ToolCallID: "t1", Content: "file contents"},
		{Role: "user", Content: "continue"},
	}
	_, err := p.Chat(context.Background(), ChatRequest{Messages: messages})
	if err != nil {
		t.Fatalf("expected valid pairing to pass, got %v", err)
	}
}

func TestMockProvider_InputTooLongThenSuccess(t *testing.T) {
	p := NewMockProvider(MockBehavior{Kind: MockInputTooLongThenSuccess, N: 1})
	req := ChatRequest{Messages: []Message{{Role: "user", Content: "hi"}}}

	_, err := p.Chat(context.Background(), req)
	if err == nil {
		t.Fatal("expected input-too-long on first call")
	}
	if ClassifyError(err) != CategoryInputTooLong {
		t.Errorf("category = %v, want CategoryInputTooLong", ClassifyError(err))
	}

	resp, err := p.Chat(context.Background(), req)
	if err != nil {
		t.Fatalf("second call: %v", err)
	}
	if resp.Content != "Success after compaction" {
		t.Errorf("Content = %q, want %q", resp.Content, "Success after compaction")
	}
}

func TestMockProvider_ToolUse(t *testing.T) {
	p := NewMockProvider(MockBehavior{
		Kind:      MockToolUse,
		ToolCalls: []MockToolCallSpec{{Name: "read_file", Args: map[string]interface{}{"path": "a.txt"}}},
	})
	resp, err := p.Chat(context.Background(), ChatRequest{Messages: []Message{{Role: "user", Content: "read a.txt"}}})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if len(resp.ToolCalls) != 1 || resp.ToolCalls[0].Name != "read_file" {
		t.Errorf("ToolCalls = %+v", resp.ToolCalls)
	}
	if resp.FinishReason != "tool_calls" {
		t.Errorf("FinishReason = %q, want tool_calls", resp.FinishReason)
	}
}

func TestMockProvider_BehaviorQueue(t *testing.T) {
	p := NewMockProvider(MockBehavior{
		Kind: MockBehaviorQueue,
		Queue: []MockBehavior{
			{Kind: MockSuccess, Text: "first"},
			{Kind: MockSuccess, Text: "second"},
		},
	})
	req := ChatRequest{Messages: []Message{{Role: "user", Content: "hi"}}}

	resp1, _ := p.Chat(context.Background(), req)
	resp2, _ := p.Chat(context.Background(), req)
	resp3, _ := p.Chat(context.Background(), req)

	if resp1.Content != "first" || resp2.Content != "second" || resp3.Content != "second" {
		t.Errorf("got %q, %q, %q", resp1.Content, resp2.Content, resp3.Content)
	}
}
