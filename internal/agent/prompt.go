package agent

import (
	"fmt"
	"sort"
	"strings"

	"github.com/tycode-run/goclaw-core/internal/bootstrap"
)

// PromptMode selects how much of the standing system prompt is assembled.
// Root turns get the full prompt; sub-agent turns get a shorter one so a
// delegated task doesn't re-explain the whole toolset to a narrowly
// scoped agent.
type PromptMode int

const (
	PromptFull PromptMode = iota
	PromptMinimal
)

// SystemPromptConfig is everything BuildSystemPrompt needs to assemble one
// turn's system prompt: identity, workspace/sandbox facts, the tool names
// actually visible to this agent, and the context files/skills attached
// at request time.
type SystemPromptConfig struct {
	AgentID   string
	Model     string
	Workspace string
	Channel   string
	OwnerIDs  []string

	Mode      PromptMode
	ToolNames []string

	SkillsSummary  string
	HasMemory      bool
	HasSpawn       bool
	HasSkillSearch bool

	ContextFiles []bootstrap.ContextFile
	ExtraPrompt  string

	SandboxEnabled         bool
	SandboxContainerDir    string
	SandboxWorkspaceAccess string
}

// BuildSystemPrompt assembles the system-role message for one turn: a
// short identity header, the registered prompt components (workspace,
// sandbox, memory, delegation, skills) that apply given cfg, the list of
// tools this agent may call, and any context files/extra prompt text
// supplied by the caller. Order is fixed so the prompt is stable across
// turns with the same cfg.
func BuildSystemPrompt(cfg SystemPromptConfig) string {
	var b strings.Builder

	if cfg.Mode == PromptMinimal {
		fmt.Fprintf(&b, "You are %s, a sub-agent handling one delegated task. Finish the task and report back; do not start unrelated work.\n\n", cfg.AgentID)
	} else {
		fmt.Fprintf(&b, "You are %s, a coding assistant working directly in a user's repository via tool calls.\n\n", cfg.AgentID)
	}

	if cfg.Workspace != "" {
		fmt.Fprintf(&b, "Workspace: %s\n", cfg.Workspace)
	}
	if cfg.SandboxEnabled {
		access := cfg.SandboxWorkspaceAccess
		if access == "" {
			access = "none"
		}
		fmt.Fprintf(&b, "You are running inside a sandbox container (mount: %s, workspace access: %s). File operations outside the sandbox are not possible.\n", cfg.SandboxContainerDir, access)
	}
	if cfg.Channel != "" {
		fmt.Fprintf(&b, "Channel: %s\n", cfg.Channel)
	}
	if len(cfg.OwnerIDs) > 0 {
		fmt.Fprintf(&b, "Owners: %s\n", strings.Join(cfg.OwnerIDs, ", "))
	}

	if len(cfg.ToolNames) > 0 {
		names := append([]string(nil), cfg.ToolNames...)
		sort.Strings(names)
		fmt.Fprintf(&b, "\nTools available this turn: %s\n", strings.Join(names, ", "))
	}

	if cfg.HasMemory {
		b.WriteString("\nYou have durable memory files in the workspace; read them at the start of a conversation and keep them current as you learn things worth remembering.\n")
	}
	if cfg.HasSpawn {
		b.WriteString("You can delegate a self-contained sub-task to a sub-agent with the spawn tool; it runs independently and reports its result back to you.\n")
	}
	if cfg.HasSkillSearch && cfg.SkillsSummary == "" {
		b.WriteString("Use skill_search to look up a documented procedure before improvising one from scratch.\n")
	}
	if cfg.SkillsSummary != "" {
		fmt.Fprintf(&b, "\n<available_skills>\n%s\n</available_skills>\n", cfg.SkillsSummary)
	}

	if len(cfg.ContextFiles) > 0 {
		b.WriteString("\n")
		for _, cf := range cfg.ContextFiles {
			fmt.Fprintf(&b, "<context_file path=%q>\n%s\n</context_file>\n", cf.Path, cf.Content)
		}
	}

	if cfg.ExtraPrompt != "" {
		b.WriteString("\n")
		b.WriteString(cfg.ExtraPrompt)
		b.WriteString("\n")
	}

	return b.String()
}
