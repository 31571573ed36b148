package bootstrap

import (
	"os"
	"path/filepath"
)

// DefaultMaxCharsPerFile is the per-file truncation ceiling when no agent
// override is configured.
const DefaultMaxCharsPerFile = 20_000

// DefaultTotalMaxChars is the combined ceiling across all context files
// when no agent override is configured.
const DefaultTotalMaxChars = 24_000

// TruncateConfig bounds how much of each workspace file (and the set as a
// whole) is injected into the system prompt.
type TruncateConfig struct {
	MaxCharsPerFile int
	TotalMaxChars   int
}

// rawContextFile is a workspace file's content before the total-budget
// truncation pass runs.
type rawContextFile struct {
	Path    string
	Content string
}

// LoadWorkspaceFiles reads every known context-file template present in
// workspaceDir (AGENTS.md, SOUL.md, TOOLS.md, IDENTITY.md, USER.md,
// HEARTBEAT.md, BOOTSTRAP.md), skipping any that don't exist. Missing files
// are not an error — EnsureWorkspaceFiles seeds them on first run, but a
// caller may read a workspace before seeding.
func LoadWorkspaceFiles(workspaceDir string) []rawContextFile {
	var files []rawContextFile
	for _, name := range append(append([]string{}, templateFiles...), BootstrapFile) {
		content, err := os.ReadFile(filepath.Join(workspaceDir, name))
		if err != nil {
			continue
		}
		files = append(files, rawContextFile{Path: name, Content: string(content)})
	}
	return files
}

// BuildContextFiles applies per-file truncation, then a total-budget pass
// that proportionally shortens files once the combined size exceeds
// cfg.TotalMaxChars — largest files give up the most, so a single bloated
// file can't starve the rest out of the prompt entirely.
func BuildContextFiles(raw []rawContextFile, cfg TruncateConfig) []ContextFile {
	if cfg.MaxCharsPerFile <= 0 {
		cfg.MaxCharsPerFile = DefaultMaxCharsPerFile
	}
	if cfg.TotalMaxChars <= 0 {
		cfg.TotalMaxChars = DefaultTotalMaxChars
	}

	truncated := make([]ContextFile, len(raw))
	total := 0
	for i, f := range raw {
		content := f.Content
		if len(content) > cfg.MaxCharsPerFile {
			content = content[:cfg.MaxCharsPerFile] + "\n... [truncated]"
		}
		truncated[i] = ContextFile{Path: f.Path, Content: content}
		total += len(content)
	}

	if total <= cfg.TotalMaxChars || total == 0 {
		return truncated
	}

	ratio := float64(cfg.TotalMaxChars) / float64(total)
	out := make([]ContextFile, len(truncated))
	for i, f := range truncated {
		budget := int(float64(len(f.Content)) * ratio)
		if budget < 1 {
			budget = 1
		}
		if budget < len(f.Content) {
			out[i] = ContextFile{Path: f.Path, Content: f.Content[:budget] + "\n... [truncated]"}
		} else {
			out[i] = f
		}
	}
	return out
}
