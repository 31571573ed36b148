package agent

import "fmt"

// NewCoderAgent is the default root agent: full tool access, free-form
// conversation, no forced tool use.
func NewCoderAgent() SubAgent {
	return SubAgent{
		Name:         "coder",
		SystemPrompt: "You are a coding assistant working directly in this workspace. Read before you write, and explain non-obvious changes as you make them.",
	}
}

// NewCodeReviewAgent is pushed to gate a change before it's considered
// done: restricted to read-only inspection tools, and it must call at
// least one tool (it can't just declare the change fine from memory).
func NewCodeReviewAgent() SubAgent {
	return SubAgent{
		Name:             "code-review",
		SystemPrompt:     "You are reviewing a change for correctness, not style. Read the modified files and their callers before judging. Report concrete defects with file:line, or state that none were found.",
		AllowedToolNames: []string{"read_file", "list_files", "search", "glob", "run_build_test"},
		RequiresToolUse:  true,
	}
}

// NewMemoryManagerAgent runs as a fire-and-forget side agent over the
// conversation being compacted, distilling it into durable memory entries.
// It forks its own conversation rather than inheriting the parent's —
// it only ever sees the summarization prompt it's given.
func NewMemoryManagerAgent() SubAgent {
	return SubAgent{
		Name:             "memory-manager",
		SystemPrompt:     "Extract durable facts worth remembering across sessions from the conversation you're given (user preferences, project conventions, decisions). Write them with memory_write. Ignore anything only relevant to this one turn.",
		AllowedToolNames: []string{"memory_write", "memory_search"},
		ForkConversation: true,
	}
}

// NewOneShotAgent is for a single bounded task (e.g. a sub-task spawned by
// the root agent) that must act, not just respond conversationally.
func NewOneShotAgent(task string) SubAgent {
	return SubAgent{
		Name:            "one-shot",
		SystemPrompt:    "Complete the following task, then call pop_agent with the result. Do not ask clarifying questions — make the most reasonable assumption and proceed.\n\nTask: " + task,
		RequiresToolUse: true,
	}
}

// ResolveSubAgent maps a push_agent tool call's requested agent name to its
// capability record.
func ResolveSubAgent(name, task string) (SubAgent, error) {
	switch name {
	case "coder":
		return NewCoderAgent(), nil
	case "code-review":
		return NewCodeReviewAgent(), nil
	case "memory-manager":
		return NewMemoryManagerAgent(), nil
	case "one-shot":
		return NewOneShotAgent(task), nil
	default:
		return SubAgent{}, fmt.Errorf("unknown sub-agent: %s", name)
	}
}
