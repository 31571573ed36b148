package tools

import (
	"context"
	"strings"
	"testing"
)

func newExecTool(name string, fn func(ctx context.Context, args map[string]interface{}) *Result) *stubTool {
	return &stubTool{name: name, execute: fn}
}

func TestDispatch_CategoryFiltering(t *testing.T) {
	r := NewRegistry()
	r.Register(NewTaskListTool())
	r.Register(newExecTool("low_a", func(ctx context.Context, args map[string]interface{}) *Result {
		return NewResult("low_a ran")
	}))
	r.Register(newExecTool("low_b", func(ctx context.Context, args map[string]interface{}) *Result {
		return NewResult("low_b ran")
	}))
	r.Register(&higherCategoryTool{stubTool: stubTool{name: "high", execute: func(ctx context.Context, args map[string]interface{}) *Result {
		return NewResult("high ran")
	}}})

	calls := []CallRequest{
		{ID: "1", Name: "task_list", Args: map[string]interface{}{"action": "list"}},
		{ID: "2", Name: "low_a"},
		{ID: "3", Name: "high"},
	}
	outcome := Dispatch(context.Background(), r, calls, "")

	var ran, dropped int
	for _, res := range outcome.Results {
		if res.IsError && strings.Contains(res.Content, "dropped") {
			dropped++
			continue
		}
		ran++
	}
	if dropped != 1 {
		t.Errorf("expected 1 dropped call (high), got %d", dropped)
	}
	if ran != 2 {
		t.Errorf("expected 2 calls to run (task_list + low_a), got %d", ran)
	}
}

// higherCategoryTool simulates a tool in a category above CategoryExecution.
// The real tool set only ever populates TaskList and Execution, but the
// filtering rule is written generically (minimum across whatever
// categories are present), so this exercises that generality directly.
type higherCategoryTool struct {
	stubTool
}

func (h *higherCategoryTool) Category() Category { return CategoryExecution + 1 }

func TestDispatch_UnknownToolIsError(t *testing.T) {
	r := NewRegistry()
	outcome := Dispatch(context.Background(), r, []CallRequest{{ID: "1", Name: "nope"}}, "")
	if len(outcome.Results) != 1 || !outcome.Results[0].IsError {
		t.Fatalf("expected single error result, got %+v", outcome.Results)
	}
}

func TestDispatch_ContinuationStopOnPromptUser(t *testing.T) {
	r := NewRegistry()
	r.Register(newExecTool("ask", func(ctx context.Context, args map[string]interface{}) *Result {
		return PromptUserResult("which file?")
	}))
	outcome := Dispatch(context.Background(), r, []CallRequest{{ID: "1", Name: "ask"}}, "")
	if outcome.Continuation != StopTurn {
		t.Errorf("expected StopTurn, got %v", outcome.Continuation)
	}
	if len(outcome.Actions) != 1 || outcome.Actions[0].Kind != ActionPromptUser {
		t.Fatalf("expected a queued ActionPromptUser, got %+v", outcome.Actions)
	}
}

func TestDispatch_ContinuationContinueWhenCallsRan(t *testing.T) {
	r := NewRegistry()
	r.Register(newExecTool("ok", func(ctx context.Context, args map[string]interface{}) *Result {
		return NewResult("done")
	}))
	outcome := Dispatch(context.Background(), r, []CallRequest{{ID: "1", Name: "ok"}}, "")
	if outcome.Continuation != ContinueTurn {
		t.Errorf("expected ContinueTurn, got %v", outcome.Continuation)
	}
}

func TestDispatch_PassesThroughSmallOutput(t *testing.T) {
	dir := t.TempDir()
	r := NewRegistry()
	big := strings.Repeat("x", 10)
	r.Register(newExecTool("big", func(ctx context.Context, args map[string]interface{}) *Result {
		return NewResult(big)
	}))
	outcome := Dispatch(context.Background(), r, []CallRequest{{ID: "call-1", Name: "big"}}, dir)
	if len(outcome.Results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(outcome.Results))
	}
	// maxBytes default is large, so with a 10-byte payload nothing should
	// be truncated — this just exercises the passthrough path.
	if outcome.Results[0].Content != big {
		t.Errorf("expected passthrough content for small output, got %q", outcome.Results[0].Content)
	}
}
