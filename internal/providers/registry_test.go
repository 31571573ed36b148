package providers

import (
	"context"
	"testing"
)

type fakeNamedProvider struct{ name string }

func (f *fakeNamedProvider) Name() string         { return f.name }
func (f *fakeNamedProvider) DefaultModel() string { return "fake-model" }
func (f *fakeNamedProvider) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	return &ChatResponse{}, nil
}
func (f *fakeNamedProvider) ChatStream(ctx context.Context, req ChatRequest, onChunk func(StreamChunk)) (*ChatResponse, error) {
	return &ChatResponse{}, nil
}

func TestRegistry_RegisterAndGet(t *testing.T) {
	r := NewRegistry()
	r.Register(NewMockProvider(MockBehavior{Kind: MockSuccess}))

	p, err := r.Get("mock")
	if err != nil {
		t.Fatalf("Get(mock) failed: %v", err)
	}
	if p.Name() != "mock" {
		t.Errorf("Name() = %q, want mock", p.Name())
	}
}

func TestRegistry_GetUnknown(t *testing.T) {
	r := NewRegistry()
	if _, err := r.Get("nope"); err == nil {
		t.Fatal("expected error for unregistered provider")
	}
}

func TestRegistry_ListSorted(t *testing.T) {
	r := NewRegistry()
	r.Register(NewMockProvider(MockBehavior{Kind: MockSuccess}))
	r.Register(&fakeNamedProvider{name: "anthropic"})
	r.Register(&fakeNamedProvider{name: "zeta"})

	got := r.List()
	if len(got) != 3 || got[0] != "anthropic" || got[2] != "zeta" {
		t.Errorf("List() = %v, want sorted [anthropic mock zeta]", got)
	}
	if r.Count() != 3 {
		t.Errorf("Count() = %d, want 3", r.Count())
	}
}
