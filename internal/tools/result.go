package tools

import "github.com/tycode-run/goclaw-core/internal/providers"

// Result is the unified return type from tool execution.
type Result struct {
	ForLLM  string `json:"for_llm"`            // content sent to the LLM
	ForUser string `json:"for_user,omitempty"`  // content shown to the user
	Silent  bool   `json:"silent"`              // suppress user message
	IsError bool   `json:"is_error"`            // marks error
	Async   bool   `json:"async"`               // running asynchronously
	Err     error  `json:"-"`                   // internal error (not serialized)

	// Usage holds token usage from tools that make internal LLM calls (e.g. read_image).
	// When set, the agent loop records these on the tool span for tracing.
	Usage    *providers.Usage `json:"-"`
	Provider string           `json:"-"` // provider name (for tool span metadata)
	Model    string           `json:"-"` // model used (for tool span metadata)

	// Continuation is this call's vote on whether the turn keeps going.
	// Zero value is ContinueTurn; tools that must end the turn (e.g. a
	// user-prompt) set it explicitly via PromptUserResult.
	Continuation Continuation `json:"-"`

	// Action records a deferred agent-stack mutation this call requested
	// (push/pop a sub-agent, prompt the user) instead of applying it
	// immediately — the caller owns the stack and applies it after the
	// full turn's calls have all run.
	Action *Action `json:"-"`
}

// Continuation is a single call's vote on whether dispatch should keep
// running the turn or hand back to the user/UI.
type Continuation int

const (
	ContinueTurn Continuation = iota
	StopTurn
)

// Category partitions tools for per-turn admission filtering. TaskList
// calls are always admitted alongside whatever else is in the turn;
// among the rest, only calls in the turn's minimum category survive —
// see Dispatch.
type Category int

const (
	CategoryTaskList Category = iota
	CategoryExecution
)

// Categorized is implemented by tools whose Category isn't the default
// CategoryExecution. A ToolExecutor that doesn't implement it is treated
// as CategoryExecution.
type Categorized interface {
	Category() Category
}

func categoryOf(tool ToolExecutor) Category {
	if c, ok := tool.(Categorized); ok {
		return c.Category()
	}
	return CategoryExecution
}

// ActionKind discriminates the deferred agent-stack mutations a tool
// call can request instead of a plain Result.
type ActionKind int

const (
	ActionPushAgent ActionKind = iota
	ActionPopAgent
	ActionPromptUser
)

// Action is a deferred mutation to the agent stack or UI, queued during
// dispatch and applied by the caller once the whole turn's calls have run.
type Action struct {
	Kind ActionKind

	// ActionPushAgent
	AgentName string
	Task      string

	// ActionPopAgent
	Success   bool
	PopResult string

	// ActionPromptUser
	Question string
}

func NewResult(forLLM string) *Result {
	return &Result{ForLLM: forLLM}
}

func SilentResult(forLLM string) *Result {
	return &Result{ForLLM: forLLM, Silent: true}
}

func ErrorResult(message string) *Result {
	return &Result{ForLLM: message, IsError: true}
}

func UserResult(content string) *Result {
	return &Result{ForLLM: content, ForUser: content}
}

func AsyncResult(message string) *Result {
	return &Result{ForLLM: message, Async: true}
}

func (r *Result) WithError(err error) *Result {
	r.Err = err
	return r
}

// PushAgentResult requests a fresh sub-agent be pushed onto the stack
// once the current turn's dispatch loop finishes.
func PushAgentResult(message, agentName, task string) *Result {
	return &Result{
		ForLLM: message,
		Action: &Action{Kind: ActionPushAgent, AgentName: agentName, Task: task},
	}
}

// PopAgentResult requests the current sub-agent be popped once dispatch
// finishes, handing success/result back to the parent.
func PopAgentResult(message string, success bool, popResult string) *Result {
	return &Result{
		ForLLM: message,
		Action: &Action{Kind: ActionPopAgent, Success: success, PopResult: popResult},
	}
}

// PromptUserResult asks the UI a question and stops the turn; there is
// no tool-result content to feed back to the model until the user answers.
func PromptUserResult(question string) *Result {
	return &Result{
		ForLLM:       question,
		Continuation: StopTurn,
		Action:       &Action{Kind: ActionPromptUser, Question: question},
	}
}
