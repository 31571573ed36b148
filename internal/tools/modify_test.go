package tools

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestWriteFileTool_CreatesFile(t *testing.T) {
	dir := t.TempDir()
	tool := NewWriteFileTool(dir, true)

	result := tool.Execute(context.Background(), map[string]interface{}{
		"path":    "nested/out.txt",
		"content": "hello",
	})
	if result.IsError {
		t.Fatalf("write_file errored: %s", result.ForLLM)
	}

	data, err := os.ReadFile(filepath.Join(dir, "nested/out.txt"))
	if err != nil {
		t.Fatalf("read written file: %v", err)
	}
	if string(data) != "hello" {
		t.Errorf("content = %q, want hello", string(data))
	}
}

func TestWriteFileTool_RequiresPath(t *testing.T) {
	tool := NewWriteFileTool(t.TempDir(), true)
	result := tool.Execute(context.Background(), map[string]interface{}{"content": "x"})
	if !result.IsError {
		t.Fatal("expected error when path is missing")
	}
}

func TestEditTool_AppliesSearchReplace(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.go")
	if err := os.WriteFile(path, []byte("package main\n\nfunc old() {}\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	tool := NewEditTool(dir, true)
	diff := "------- SEARCH\nfunc old() {}\n=======\nfunc new() {}\n+++++++ REPLACE"
	result := tool.Execute(context.Background(), map[string]interface{}{
		"path": "a.go",
		"diff": diff,
	})
	if result.IsError {
		t.Fatalf("edit_file errored: %s", result.ForLLM)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	want := "package main\n\nfunc new() {}\n"
	if string(data) != want {
		t.Errorf("got %q, want %q", string(data), want)
	}
}

func TestEditTool_MissingFileErrors(t *testing.T) {
	dir := t.TempDir()
	tool := NewEditTool(dir, true)
	diff := "------- SEARCH\nx\n=======\ny\n+++++++ REPLACE"
	result := tool.Execute(context.Background(), map[string]interface{}{
		"path": "missing.go",
		"diff": diff,
	})
	if !result.IsError {
		t.Fatal("expected error for nonexistent file")
	}
}

func TestApplyPatchTool_AppliesHunk(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "b.go")
	content := "line1\nline2\nline3\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	tool := NewApplyPatchTool(dir, true)
	patch := "@@\n line1\n-line2\n+line2_changed\n line3\n"
	result := tool.Execute(context.Background(), map[string]interface{}{
		"path":  "b.go",
		"patch": patch,
	})
	if result.IsError {
		t.Fatalf("apply_patch errored: %s", result.ForLLM)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	want := "line1\nline2_changed\nline3\n"
	if string(data) != want {
		t.Errorf("got %q, want %q", string(data), want)
	}
}

func TestListFilesTool_ListsDirectory(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Mkdir(filepath.Join(dir, "sub"), 0o755); err != nil {
		t.Fatal(err)
	}

	tool := NewListFilesTool(dir, true)
	result := tool.Execute(context.Background(), map[string]interface{}{"path": "."})
	if result.IsError {
		t.Fatalf("list_files errored: %s", result.ForLLM)
	}
	if result.ForLLM != "a.txt\nsub/" {
		t.Errorf("ForLLM = %q, want \"a.txt\\nsub/\"", result.ForLLM)
	}
}
