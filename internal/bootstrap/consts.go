package bootstrap

import "strings"

// Template file names seeded into a fresh workspace by EnsureWorkspaceFiles.
const (
	AgentsFile    = "AGENTS.md"
	SoulFile      = "SOUL.md"
	ToolsFile     = "TOOLS.md"
	IdentityFile  = "IDENTITY.md"
	UserFile      = "USER.md"
	HeartbeatFile = "HEARTBEAT.md"
	BootstrapFile = "BOOTSTRAP.md"
)

// ContextFile is one workspace file attached to the system prompt as
// standing context (AGENTS.md, SOUL.md, delegation notes, and the like).
type ContextFile struct {
	Path    string
	Content string
}

// IsSubagentSession reports whether sessionKey belongs to a sub-agent run
// rather than a direct user conversation, by the "subagent:" session-key
// prefix convention used when a task is pushed onto the agent stack.
func IsSubagentSession(sessionKey string) bool {
	return strings.HasPrefix(sessionKey, "subagent:")
}

// IsCronSession reports whether sessionKey belongs to a scheduled/cron
// trigger rather than an interactive conversation.
func IsCronSession(sessionKey string) bool {
	return strings.HasPrefix(sessionKey, "cron:")
}
