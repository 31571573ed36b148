package tools

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/tycode-run/goclaw-core/internal/modify"
	"github.com/tycode-run/goclaw-core/internal/sandbox"
)

// WriteFileTool creates or overwrites a file's full contents.
type WriteFileTool struct {
	workspace  string
	restrict   bool
	sandboxMgr sandbox.Manager
}

func NewWriteFileTool(workspace string, restrict bool) *WriteFileTool {
	return &WriteFileTool{workspace: workspace, restrict: restrict}
}

func NewSandboxedWriteFileTool(workspace string, restrict bool, mgr sandbox.Manager) *WriteFileTool {
	return &WriteFileTool{workspace: workspace, restrict: restrict, sandboxMgr: mgr}
}

func (t *WriteFileTool) Name() string        { return "write_file" }
func (t *WriteFileTool) Description() string { return "Create or overwrite a file with the given content" }
func (t *WriteFileTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"path":    map[string]interface{}{"type": "string", "description": "Path to the file to write"},
			"content": map[string]interface{}{"type": "string", "description": "Full file content"},
		},
		"required": []string{"path", "content"},
	}
}

func (t *WriteFileTool) Execute(ctx context.Context, args map[string]interface{}) *Result {
	path, _ := args["path"].(string)
	content, _ := args["content"].(string)
	if path == "" {
		return ErrorResult("path is required")
	}

	sandboxKey := ToolSandboxKeyFromCtx(ctx)
	if t.sandboxMgr != nil && sandboxKey != "" {
		bridge, err := t.getFsBridge(ctx, sandboxKey)
		if err != nil {
			return ErrorResult(fmt.Sprintf("sandbox error: %v", err))
		}
		if err := bridge.WriteFile(ctx, path, content); err != nil {
			return ErrorResult(fmt.Sprintf("failed to write file: %v", err))
		}
		return SilentResult(fmt.Sprintf("wrote %d bytes to %s", len(content), path))
	}

	workspace := ToolWorkspaceFromCtx(ctx)
	if workspace == "" {
		workspace = t.workspace
	}
	resolved, err := resolvePath(path, workspace, t.restrict)
	if err != nil {
		return ErrorResult(err.Error())
	}
	if err := os.MkdirAll(filepath.Dir(resolved), 0o755); err != nil {
		return ErrorResult(fmt.Sprintf("failed to create parent directories: %v", err))
	}
	if err := os.WriteFile(resolved, []byte(content), 0o644); err != nil {
		return ErrorResult(fmt.Sprintf("failed to write file: %v", err))
	}
	return SilentResult(fmt.Sprintf("wrote %d bytes to %s", len(content), path))
}

func (t *WriteFileTool) getFsBridge(ctx context.Context, sandboxKey string) (*sandbox.FsBridge, error) {
	sb, err := t.sandboxMgr.Get(ctx, sandboxKey, t.workspace)
	if err != nil {
		return nil, err
	}
	return sandbox.NewFsBridge(sb.ID(), "/workspace"), nil
}

// EditTool applies one or more SEARCH/REPLACE diff blocks to an existing
// file, falling back through modify.ApplyReplacements' exact/line-trimmed/
// block-anchor match chain.
type EditTool struct {
	workspace  string
	restrict   bool
	sandboxMgr sandbox.Manager
}

func NewEditTool(workspace string, restrict bool) *EditTool {
	return &EditTool{workspace: workspace, restrict: restrict}
}

func NewSandboxedEditTool(workspace string, restrict bool, mgr sandbox.Manager) *EditTool {
	return &EditTool{workspace: workspace, restrict: restrict, sandboxMgr: mgr}
}

func (t *EditTool) Name() string        { return "edit_file" }
func (t *EditTool) Description() string { return "Apply SEARCH/REPLACE diff blocks to an existing file" }
func (t *EditTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"path": map[string]interface{}{"type": "string", "description": "Path to the file to edit"},
			"diff": map[string]interface{}{
				"type":        "string",
				"description": "One or more SEARCH/REPLACE blocks in the ------- SEARCH / ======= / +++++++ REPLACE format",
			},
		},
		"required": []string{"path", "diff"},
	}
}

func (t *EditTool) Execute(ctx context.Context, args map[string]interface{}) *Result {
	path, _ := args["path"].(string)
	diff, _ := args["diff"].(string)
	if path == "" || diff == "" {
		return ErrorResult("path and diff are required")
	}

	blocks, err := modify.ParseDiffBlocks(diff)
	if err != nil {
		return ErrorResult(fmt.Sprintf("failed to parse diff: %v", err))
	}

	current, writeBack, err := t.readCurrent(ctx, path)
	if err != nil {
		return ErrorResult(err.Error())
	}

	updated, err := modify.ApplyReplacements(current, blocks)
	if err != nil {
		return ErrorResult(err.Error())
	}

	if err := writeBack(updated); err != nil {
		return ErrorResult(fmt.Sprintf("failed to write file: %v", err))
	}
	return SilentResult(fmt.Sprintf("applied %d edit block(s) to %s", len(blocks), path))
}

// readCurrent returns the file's current content and a closure that
// persists the new content back through whichever surface (host or
// sandbox) it was read from.
func (t *EditTool) readCurrent(ctx context.Context, path string) (string, func(string) error, error) {
	sandboxKey := ToolSandboxKeyFromCtx(ctx)
	if t.sandboxMgr != nil && sandboxKey != "" {
		sb, err := t.sandboxMgr.Get(ctx, sandboxKey, t.workspace)
		if err != nil {
			return "", nil, fmt.Errorf("sandbox error: %w", err)
		}
		bridge := sandbox.NewFsBridge(sb.ID(), "/workspace")
		content, err := bridge.ReadFile(ctx, path)
		if err != nil {
			return "", nil, fmt.Errorf("failed to read file: %w", err)
		}
		return content, func(updated string) error { return bridge.WriteFile(ctx, path, updated) }, nil
	}

	workspace := ToolWorkspaceFromCtx(ctx)
	if workspace == "" {
		workspace = t.workspace
	}
	resolved, err := resolvePath(path, workspace, t.restrict)
	if err != nil {
		return "", nil, err
	}
	data, err := os.ReadFile(resolved)
	if err != nil {
		return "", nil, fmt.Errorf("failed to read file: %w", err)
	}
	return string(data), func(updated string) error {
		return os.WriteFile(resolved, []byte(updated), 0o644)
	}, nil
}

// ApplyPatchTool applies a codex-style @@ hunk patch to an existing file.
type ApplyPatchTool struct {
	workspace  string
	restrict   bool
	sandboxMgr sandbox.Manager
}

func NewApplyPatchTool(workspace string, restrict bool) *ApplyPatchTool {
	return &ApplyPatchTool{workspace: workspace, restrict: restrict}
}

func NewSandboxedApplyPatchTool(workspace string, restrict bool, mgr sandbox.Manager) *ApplyPatchTool {
	return &ApplyPatchTool{workspace: workspace, restrict: restrict, sandboxMgr: mgr}
}

func (t *ApplyPatchTool) Name() string        { return "apply_patch" }
func (t *ApplyPatchTool) Description() string { return "Apply a codex-style @@ hunk patch to an existing file" }
func (t *ApplyPatchTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"path":  map[string]interface{}{"type": "string", "description": "Path to the file to patch"},
			"patch": map[string]interface{}{"type": "string", "description": "Patch text containing one or more @@ hunks"},
		},
		"required": []string{"path", "patch"},
	}
}

func (t *ApplyPatchTool) Execute(ctx context.Context, args map[string]interface{}) *Result {
	path, _ := args["path"].(string)
	patch, _ := args["patch"].(string)
	if path == "" || patch == "" {
		return ErrorResult("path and patch are required")
	}

	edit := &EditTool{workspace: t.workspace, restrict: t.restrict, sandboxMgr: t.sandboxMgr}
	current, writeBack, err := edit.readCurrent(ctx, path)
	if err != nil {
		return ErrorResult(err.Error())
	}

	updated, err := modify.ApplyCodexPatch(current, patch)
	if err != nil {
		return ErrorResult(err.Error())
	}

	if err := writeBack(updated); err != nil {
		return ErrorResult(fmt.Sprintf("failed to write file: %v", err))
	}
	return SilentResult(fmt.Sprintf("applied patch to %s", path))
}

// ListFilesTool lists entries directly under a directory, host or sandbox.
type ListFilesTool struct {
	workspace  string
	restrict   bool
	sandboxMgr sandbox.Manager
}

func NewListFilesTool(workspace string, restrict bool) *ListFilesTool {
	return &ListFilesTool{workspace: workspace, restrict: restrict}
}

func NewSandboxedListFilesTool(workspace string, restrict bool, mgr sandbox.Manager) *ListFilesTool {
	return &ListFilesTool{workspace: workspace, restrict: restrict, sandboxMgr: mgr}
}

func (t *ListFilesTool) Name() string        { return "list_files" }
func (t *ListFilesTool) Description() string { return "List files and directories at a given path" }
func (t *ListFilesTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"path": map[string]interface{}{"type": "string", "description": "Directory to list (defaults to workspace root)"},
		},
	}
}

func (t *ListFilesTool) Execute(ctx context.Context, args map[string]interface{}) *Result {
	path, _ := args["path"].(string)
	if path == "" {
		path = "."
	}

	sandboxKey := ToolSandboxKeyFromCtx(ctx)
	if t.sandboxMgr != nil && sandboxKey != "" {
		sb, err := t.sandboxMgr.Get(ctx, sandboxKey, t.workspace)
		if err != nil {
			return ErrorResult(fmt.Sprintf("sandbox error: %v", err))
		}
		bridge := sandbox.NewFsBridge(sb.ID(), "/workspace")
		entries, err := bridge.ListFiles(ctx, path)
		if err != nil {
			return ErrorResult(fmt.Sprintf("failed to list files: %v", err))
		}
		sort.Strings(entries)
		return SilentResult(joinLines(entries))
	}

	workspace := ToolWorkspaceFromCtx(ctx)
	if workspace == "" {
		workspace = t.workspace
	}
	resolved, err := resolvePath(path, workspace, t.restrict)
	if err != nil {
		return ErrorResult(err.Error())
	}
	dirEntries, err := os.ReadDir(resolved)
	if err != nil {
		return ErrorResult(fmt.Sprintf("failed to list files: %v", err))
	}
	names := make([]string, 0, len(dirEntries))
	for _, e := range dirEntries {
		name := e.Name()
		if e.IsDir() {
			name += "/"
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return SilentResult(joinLines(names))
}

func joinLines(lines []string) string {
	out := ""
	for i, l := range lines {
		if i > 0 {
			out += "\n"
		}
		out += l
	}
	return out
}
