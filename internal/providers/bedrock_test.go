package providers

import (
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
)

func TestBedrockConvertMessages_SystemSplitOut(t *testing.T) {
	messages := []Message{
		{Role: "system", Content: "You are terse."},
		{Role: "user", Content: "hi"},
	}
	converted, system, err := bedrockConvertMessages(messages)
	if err != nil {
		t.Fatalf("bedrockConvertMessages: %v", err)
	}
	if system != "You are terse." {
		t.Errorf("system = %q", system)
	}
	if len(converted) != 1 || converted[0].Role != types.ConversationRoleUser {
		t.Fatalf("converted = %+v", converted)
	}
}

func TestBedrockConvertMessages_ToolResultBecomesUserTurn(t *testing.T) {
	messages := []Message{
		{Role: "assistant", ToolCalls: []ToolCall{{ID: "t1", Name: "read_file", Arguments: map[string]interface{}{"path": "a.txt"}}}},
		{Role: "tool", ToolCallID: "t1", Content: "file contents"},
	}
	converted, _, err := bedrockConvertMessages(messages)
	if err != nil {
		t.Fatalf("bedrockConvertMessages: %v", err)
	}
	if len(converted) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(converted))
	}
	if converted[0].Role != types.ConversationRoleAssistant {
		t.Errorf("first message role = %v, want assistant", converted[0].Role)
	}
	if converted[1].Role != types.ConversationRoleUser {
		t.Errorf("tool-result message role = %v, want user", converted[1].Role)
	}
	if _, ok := converted[1].Content[0].(*types.ContentBlockMemberToolResult); !ok {
		t.Errorf("tool-result message content = %T, want *ContentBlockMemberToolResult", converted[1].Content[0])
	}
}

func TestBedrockFinishReason(t *testing.T) {
	cases := map[types.StopReason]string{
		types.StopReasonToolUse:   "tool_calls",
		types.StopReasonMaxTokens: "length",
		types.StopReasonEndTurn:   "stop",
	}
	for in, want := range cases {
		if got := bedrockFinishReason(in); got != want {
			t.Errorf("bedrockFinishReason(%v) = %q, want %q", in, got, want)
		}
	}
}

func TestBedrockClassify(t *testing.T) {
	cases := []struct {
		msg  string
		want ErrorCategory
	}{
		{"ThrottlingException: rate exceeded", CategoryRetryable},
		{"ServiceUnavailableException", CategoryRetryable},
		{"ValidationException: too long for model context", CategoryInputTooLong},
		{"ValidationException: malformed request", CategoryTerminal},
		{"AccessDeniedException: not authorized", CategoryTerminal},
		{"some unexpected transport error", CategoryTransient},
	}
	for _, tc := range cases {
		err := bedrockClassify(errors.New(tc.msg))
		if got := ClassifyError(err); got != tc.want {
			t.Errorf("bedrockClassify(%q) category = %v, want %v", tc.msg, got, tc.want)
		}
	}
}

func TestBedrockClassify_Nil(t *testing.T) {
	if bedrockClassify(nil) != nil {
		t.Error("bedrockClassify(nil) should return nil")
	}
}
