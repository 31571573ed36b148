package agent

import "testing"

func TestToolLoopState_NoRepeatIsClean(t *testing.T) {
	var s toolLoopState
	hash := s.record("read_file", map[string]interface{}{"path": "a.go"})
	if level, _ := s.detect("read_file", hash); level != "" {
		t.Errorf("expected no detection on first call, got %q", level)
	}
}

func TestToolLoopState_ThreeRepeatsWarns(t *testing.T) {
	var s toolLoopState
	args := map[string]interface{}{"path": "a.go"}
	var hash string
	for i := 0; i < 3; i++ {
		hash = s.record("read_file", args)
	}
	level, msg := s.detect("read_file", hash)
	if level != "warning" {
		t.Fatalf("expected warning after 3 repeats, got %q (%s)", level, msg)
	}
}

func TestToolLoopState_SixRepeatsIsCritical(t *testing.T) {
	var s toolLoopState
	args := map[string]interface{}{"path": "a.go"}
	var hash string
	for i := 0; i < 6; i++ {
		hash = s.record("read_file", args)
	}
	level, _ := s.detect("read_file", hash)
	if level != "critical" {
		t.Fatalf("expected critical after 6 repeats, got %q", level)
	}
}

func TestToolLoopState_DifferentArgsDoNotAccumulate(t *testing.T) {
	var s toolLoopState
	for i := 0; i < 5; i++ {
		s.record("read_file", map[string]interface{}{"path": "a.go"})
	}
	hash := s.record("read_file", map[string]interface{}{"path": "b.go"})
	level, _ := s.detect("read_file", hash)
	if level != "" {
		t.Errorf("expected distinct arguments to not trigger loop detection, got %q", level)
	}
}

func TestToolLoopState_WindowTrimsOldEntries(t *testing.T) {
	var s toolLoopState
	args := map[string]interface{}{"path": "a.go"}
	for i := 0; i < 2; i++ {
		s.record("read_file", args)
	}
	// Push enough unrelated calls to push the original two out of the window.
	for i := 0; i < toolLoopWindow; i++ {
		s.record("list_files", map[string]interface{}{"n": i})
	}
	hash := hashArgs(args)
	level, _ := s.detect("read_file", hash)
	if level != "" {
		t.Errorf("expected old entries to be trimmed out of the window, got %q", level)
	}
}
