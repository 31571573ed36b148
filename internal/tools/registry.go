package tools

import (
	"context"
	"sort"
	"sync"

	"github.com/tycode-run/goclaw-core/internal/providers"
)

// ToolExecutor is implemented by every callable tool. Execute must be safe
// for concurrent use across goroutines; per-call state (sandbox key,
// workspace override, channel/chat identity) travels on ctx rather than on
// the tool's own fields, following the same ctx-not-mutable-setter pattern
// ReadFileTool already established.
type ToolExecutor interface {
	Name() string
	Description() string
	Parameters() map[string]interface{}
	Execute(ctx context.Context, args map[string]interface{}) *Result
}

// AsyncCallback delivers the final Result of a tool that returned an
// AsyncResult immediately and keeps working in the background (e.g. a
// subagent spawn or a long-running delegation).
type AsyncCallback func(result *Result)

// Registry holds every tool available to an agent before policy filtering
// narrows it down to what a given request may actually call.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]ToolExecutor
}

// NewRegistry returns an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]ToolExecutor)}
}

// Register adds (or replaces) a tool under its own Name().
func (r *Registry) Register(tool ToolExecutor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[tool.Name()] = tool
}

// Get looks up a tool by canonical name.
func (r *Registry) Get(name string) (ToolExecutor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// List returns every registered tool name, sorted for deterministic
// policy evaluation and test output.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Count reports how many tools are registered.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}

// Execute runs the named tool, resolving aliases first. Returns an error
// result (not a Go error) when the tool is unknown, since the caller feeds
// this straight back to the model as a tool_result.
func (r *Registry) Execute(ctx context.Context, name string, args map[string]interface{}) *Result {
	canonical := resolveAlias(name)
	tool, ok := r.Get(canonical)
	if !ok {
		return ErrorResult("unknown tool: " + name)
	}
	return safeExecute(ctx, tool, args)
}

// safeExecute recovers a panicking tool into an is_error Result instead of
// crashing the agent loop, matching the defensive boundary idiomatic to a
// long-lived process that hosts plugin-like callables.
func safeExecute(ctx context.Context, tool ToolExecutor, args map[string]interface{}) (result *Result) {
	defer func() {
		if rec := recover(); rec != nil {
			result = ErrorResult(toolPanicMessage(tool.Name(), rec))
		}
	}()
	return tool.Execute(ctx, args)
}

func toolPanicMessage(name string, rec interface{}) string {
	return "tool panicked: " + name + ": " + panicString(rec)
}

func panicString(rec interface{}) string {
	if err, ok := rec.(error); ok {
		return err.Error()
	}
	if s, ok := rec.(string); ok {
		return s
	}
	return "unknown panic"
}

// ProviderDefs returns every registered tool's schema in provider wire
// format, unfiltered by policy. Callers that need policy-aware filtering
// should go through PolicyEngine.FilterTools instead.
func (r *Registry) ProviderDefs() []providers.ToolDefinition {
	r.mu.RLock()
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	r.mu.RUnlock()
	sort.Strings(names)

	defs := make([]providers.ToolDefinition, 0, len(names))
	for _, name := range names {
		tool, _ := r.Get(name)
		defs = append(defs, ToProviderDef(tool))
	}
	return defs
}

// ToProviderDef converts a ToolExecutor's schema into the provider-facing
// ToolDefinition shape every adapter's ChatRequest.Tools field expects.
func ToProviderDef(tool ToolExecutor) providers.ToolDefinition {
	return providers.ToolDefinition{
		Type: "function",
		Function: providers.ToolFunctionSchema{
			Name:        tool.Name(),
			Description: tool.Description(),
			Parameters:  tool.Parameters(),
		},
	}
}
