package tools

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"unicode/utf8"
)

const defaultMaxOutputBytes = 200_000

// CallRequest is one proposed tool invocation surfaced by a single model
// turn, before validation or category filtering.
type CallRequest struct {
	ID   string
	Name string
	Args map[string]interface{}
}

// CallResult is the ToolResult block produced for one proposed call,
// whether it came from a real Execute(), a dropped-by-filter diagnostic,
// or an unknown-tool/validation error. All three share this shape so the
// model sees a uniform response format.
type CallResult struct {
	ID      string
	Name    string
	Content string
	IsError bool
}

// DispatchOutcome is everything a single turn's worth of dispatch
// produced: the ToolResult blocks to append as one user-role message,
// the deferred agent-stack actions to apply afterward (in order), and
// the turn's combined continuation vote.
type DispatchOutcome struct {
	Results      []CallResult
	Actions      []*Action
	Continuation Continuation
}

// Dispatch runs the category-filtering + execute-and-collect loop for a
// single turn's proposed tool calls:
//
//  1. Compute the minimum category across all non-TaskList calls; drop
//     any call outside that minimum, returning it as an error result
//     citing the demotion. TaskList calls are always admitted.
//  2. Resolve and execute each admitted call, panic-safe, truncating and
//     persisting oversized output.
//  3. Collect deferred Actions (push/pop agent, prompt user) without
//     applying them — the caller owns the agent stack.
//  4. Combine each call's continuation vote: Stop if any call voted
//     Stop, else Continue if any call ran, else Stop.
func Dispatch(ctx context.Context, registry *Registry, calls []CallRequest, workspace string) DispatchOutcome {
	admitted, dropped := filterByMinimumCategory(registry, calls)

	var outcome DispatchOutcome
	var votes []Continuation

	for _, c := range dropped {
		outcome.Results = append(outcome.Results, CallResult{
			ID:      c.ID,
			Name:    c.Name,
			IsError: true,
			Content: fmt.Sprintf(
				"tool call %q was dropped: other calls in this turn are in a lower-priority category; only the lowest-priority category's calls run in a single turn",
				c.Name),
		})
	}

	for _, call := range admitted {
		tool, ok := registry.Get(resolveAlias(call.Name))
		if !ok {
			outcome.Results = append(outcome.Results, CallResult{
				ID: call.ID, Name: call.Name, IsError: true,
				Content: "unknown tool: " + call.Name,
			})
			continue
		}

		result := safeExecute(ctx, tool, call.Args)
		content := truncateAndPersist(workspace, call.ID, result.ForLLM, defaultMaxOutputBytes)
		outcome.Results = append(outcome.Results, CallResult{
			ID: call.ID, Name: call.Name, IsError: result.IsError, Content: content,
		})
		votes = append(votes, result.Continuation)

		if result.Action != nil {
			outcome.Actions = append(outcome.Actions, result.Action)
		}
	}

	outcome.Continuation = combineContinuation(votes)
	return outcome
}

// filterByMinimumCategory separates TaskList calls (always admitted)
// from the rest, then keeps only the non-TaskList calls sitting in the
// minimum category observed among them. It never promotes a TaskList
// call into that computation.
func filterByMinimumCategory(registry *Registry, calls []CallRequest) (admitted, dropped []CallRequest) {
	var taskList, other []CallRequest
	for _, c := range calls {
		tool, ok := registry.Get(resolveAlias(c.Name))
		if ok && categoryOf(tool) == CategoryTaskList {
			taskList = append(taskList, c)
		} else {
			other = append(other, c)
		}
	}

	if len(other) == 0 {
		return taskList, nil
	}

	minimum := CategoryExecution
	found := false
	for _, c := range other {
		tool, ok := registry.Get(resolveAlias(c.Name))
		if !ok {
			continue
		}
		cat := categoryOf(tool)
		if !found || cat < minimum {
			minimum = cat
			found = true
		}
	}
	if !found {
		// None resolved to a known tool; let per-call execution report
		// the unknown-tool error instead of silently dropping them here.
		return append(taskList, other...), nil
	}

	for _, c := range other {
		tool, ok := registry.Get(resolveAlias(c.Name))
		if ok && categoryOf(tool) == minimum {
			admitted = append(admitted, c)
		} else {
			dropped = append(dropped, c)
		}
	}
	return append(taskList, admitted...), dropped
}

func combineContinuation(votes []Continuation) Continuation {
	sawContinue := false
	for _, v := range votes {
		if v == StopTurn {
			return StopTurn
		}
		sawContinue = true
	}
	if sawContinue {
		return ContinueTurn
	}
	return StopTurn
}

// truncateAndPersist keeps a max_output_bytes/2 prefix and suffix of an
// oversized tool result, splicing in an elision marker, and writes the
// full content under workspace/.tycode/tool-calls/<id> so the model can
// be pointed at it. Truncation points are rune-boundary safe.
func truncateAndPersist(workspace, id, content string, maxBytes int) string {
	if len(content) <= maxBytes {
		return content
	}

	half := maxBytes / 2
	prefix := safeByteBoundary(content, half)
	suffixStart := len(content) - half
	for suffixStart < len(content) && !utf8.RuneStart(content[suffixStart]) {
		suffixStart++
	}
	marker := fmt.Sprintf("\n... [elided %d bytes, full output saved] ...\n", len(content)-len(prefix)-(len(content)-suffixStart))

	if workspace != "" && id != "" {
		dir := filepath.Join(workspace, ".tycode", "tool-calls")
		if err := os.MkdirAll(dir, 0o755); err == nil {
			path := filepath.Join(dir, id)
			if err := os.WriteFile(path, []byte(content), 0o644); err == nil {
				marker += fmt.Sprintf("(full output at %s)\n", path)
			}
		}
	}

	return content[:prefix] + marker + content[suffixStart:]
}

// safeByteBoundary returns the largest index <= n that does not split a
// UTF-8 rune.
func safeByteBoundary(s string, n int) int {
	if n >= len(s) {
		return len(s)
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return n
}
