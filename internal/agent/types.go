package agent

import "github.com/tycode-run/goclaw-core/internal/providers"

// Message is one of the messages the chat actor's inbox accepts: UserInput,
// ChangeProvider, GetSettings, SaveSettings. Cancel travels out of band (see
// Loop.Dispatch) and does not implement this interface.
type Message interface {
	isActorMessage()
}

// UserInput carries a user turn into the actor. It wraps RunRequest so the
// synchronous Run() entry point can build one without duplicating fields.
type UserInput struct {
	RunRequest
}

func (UserInput) isActorMessage() {}

// ChangeProvider switches the active provider/model for subsequent turns.
type ChangeProvider struct {
	Provider providers.Provider
	Model    string
}

func (ChangeProvider) isActorMessage() {}

// GetSettings requests the actor's current provider/model/thinking settings.
type GetSettings struct{}

func (GetSettings) isActorMessage() {}

// Settings is the value GetSettings resolves to.
type Settings struct {
	Provider      string
	Model         string
	ThinkingLevel string
}

// SaveSettings sets the model used for subsequent turns. The Provider name
// is not applied (ChangeProvider swaps the adapter), and nothing is
// written to disk.
type SaveSettings struct {
	Provider string
	Model    string
}

func (SaveSettings) isActorMessage() {}

// Cancel aborts the in-flight turn, if any. It is handled directly against
// a stored context.CancelFunc rather than queued on the inbox, so it can
// interrupt work already in progress instead of waiting behind it.
type Cancel struct {
	Message string
}

// TimingState drives UI spinners: what the actor is doing right now.
type TimingState int

const (
	StateIdle TimingState = iota
	StateProcessingAI
	StateExecutingTools
)

func (s TimingState) String() string {
	switch s {
	case StateProcessingAI:
		return "processing_ai"
	case StateExecutingTools:
		return "executing_tools"
	default:
		return "idle"
	}
}

// SubAgent is a capability record describing one agent the stack can push:
// its system prompt fragment, the tool names it may call, and whether it
// must make at least one tool call before finishing (so a one-shot agent
// can't just chat and return). Polymorphism here is composition over a
// fixed record, not inheritance — see ResolveSubAgent.
type SubAgent struct {
	Name             string
	SystemPrompt     string
	AllowedToolNames []string // nil = inherit parent's tool set
	RequiresToolUse  bool
	ForkConversation bool // true = starts from an empty conversation, not the parent's
}

// ActiveAgent is one live frame on the agent stack: the capability record
// plus its own conversation (when ForkConversation is set) and the tool
// call ID that spawned it, so PopAgent can report back to the right slot.
type ActiveAgent struct {
	Agent          SubAgent
	Conversation   []providers.Message
	SpawnToolUseID string
}
