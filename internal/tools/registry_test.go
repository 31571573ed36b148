package tools

import (
	"context"
	"testing"
)

type stubTool struct {
	name    string
	execute func(ctx context.Context, args map[string]interface{}) *Result
}

func (s *stubTool) Name() string                           { return s.name }
func (s *stubTool) Description() string                    { return "stub tool" }
func (s *stubTool) Parameters() map[string]interface{}      { return map[string]interface{}{"type": "object"} }
func (s *stubTool) Execute(ctx context.Context, args map[string]interface{}) *Result {
	return s.execute(ctx, args)
}

func TestRegistry_RegisterAndGet(t *testing.T) {
	r := NewRegistry()
	r.Register(&stubTool{name: "echo", execute: func(ctx context.Context, args map[string]interface{}) *Result {
		return NewResult("ok")
	}})

	tool, ok := r.Get("echo")
	if !ok || tool.Name() != "echo" {
		t.Fatalf("Get(echo) = %v, %v", tool, ok)
	}
	if r.Count() != 1 {
		t.Errorf("Count = %d, want 1", r.Count())
	}
}

func TestRegistry_ExecuteUnknownTool(t *testing.T) {
	r := NewRegistry()
	result := r.Execute(context.Background(), "does_not_exist", nil)
	if !result.IsError {
		t.Errorf("expected error result for unknown tool")
	}
}

func TestRegistry_ExecuteRecoversPanic(t *testing.T) {
	r := NewRegistry()
	r.Register(&stubTool{name: "boom", execute: func(ctx context.Context, args map[string]interface{}) *Result {
		panic("kaboom")
	}})
	result := r.Execute(context.Background(), "boom", nil)
	if !result.IsError {
		t.Fatal("expected panic to surface as an error result")
	}
}

func TestRegistry_ExecuteResolvesAlias(t *testing.T) {
	r := NewRegistry()
	r.Register(&stubTool{name: "exec", execute: func(ctx context.Context, args map[string]interface{}) *Result {
		return NewResult("ran")
	}})
	result := r.Execute(context.Background(), "bash", nil)
	if result.IsError || result.ForLLM != "ran" {
		t.Errorf("alias resolution failed: %+v", result)
	}
}

func TestRegistry_ListSorted(t *testing.T) {
	r := NewRegistry()
	r.Register(&stubTool{name: "zeta"})
	r.Register(&stubTool{name: "alpha"})
	got := r.List()
	if len(got) != 2 || got[0] != "alpha" || got[1] != "zeta" {
		t.Errorf("List() = %v, want sorted [alpha zeta]", got)
	}
}

func TestRegistry_ProviderDefs(t *testing.T) {
	r := NewRegistry()
	r.Register(&stubTool{name: "read_file"})
	defs := r.ProviderDefs()
	if len(defs) != 1 || defs[0].Function.Name != "read_file" {
		t.Errorf("ProviderDefs() = %+v", defs)
	}
}
