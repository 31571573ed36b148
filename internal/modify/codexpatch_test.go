package modify

import "testing"

func TestApplyCodexPatch_SingleLineChange(t *testing.T) {
	content := "line1\nline2\nline3\nline4\nline5"
	patch := "@@\n line2\n-line3\n+line3'\n line4"

	got, err := ApplyCodexPatch(content, patch)
	if err != nil {
		t.Fatalf("ApplyCodexPatch: %v", err)
	}
	want := "line1\nline2\nline3'\nline4\nline5"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestApplyCodexPatch_InterleavedChanges(t *testing.T) {
	content := "a\nb\nc\nd\ne"
	patch := "@@\n a\n-b\n-c\n+x\n+y\n+z\n d\n e"

	got, err := ApplyCodexPatch(content, patch)
	if err != nil {
		t.Fatalf("ApplyCodexPatch: %v", err)
	}
	want := "a\nx\ny\nz\nd\ne"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestApplyCodexPatch_MultipleHunksBottomToTop(t *testing.T) {
	content := "one\ntwo\nthree\nfour\nfive"
	patch := "@@\n one\n-two\n+TWO\n three\n@@\n four\n-five\n+FIVE"

	got, err := ApplyCodexPatch(content, patch)
	if err != nil {
		t.Fatalf("ApplyCodexPatch: %v", err)
	}
	want := "one\nTWO\nthree\nfour\nFIVE"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestApplyCodexPatch_AmbiguousLocationRejected(t *testing.T) {
	content := "x\ny\nx\ny"
	patch := "@@\n x\n-y\n+z"

	_, err := ApplyCodexPatch(content, patch)
	if err == nil {
		t.Fatal("expected ambiguity error")
	}
}

func TestApplyCodexPatch_NoMatchRejected(t *testing.T) {
	content := "alpha\nbeta\ngamma"
	patch := "@@\n nope\n-nothere\n+replacement"

	_, err := ApplyCodexPatch(content, patch)
	if err == nil {
		t.Fatal("expected no-match error")
	}
}

func TestParseCodexPatch_MissingContextRejected(t *testing.T) {
	_, err := ParseCodexPatch("@@\n-only\n+removal")
	if err == nil {
		t.Fatal("expected missing-context error")
	}
}

func TestParseCodexPatch_MissingChangeRejected(t *testing.T) {
	_, err := ParseCodexPatch("@@\n context\n more context")
	if err == nil {
		t.Fatal("expected missing-change error")
	}
}

func TestParseCodexPatch_InvalidLinePrefixRejected(t *testing.T) {
	_, err := ParseCodexPatch("@@\n context\n*bad\n+add")
	if err == nil {
		t.Fatal("expected invalid-line error")
	}
}

func TestParseCodexPatch_NoHunksRejected(t *testing.T) {
	_, err := ParseCodexPatch("just some text\nwith no hunk markers")
	if err == nil {
		t.Fatal("expected no-hunks error")
	}
}

func TestApplyCodexPatch_PureAddition(t *testing.T) {
	content := "first\nsecond\nthird"
	patch := "@@\n first\n+inserted\n second"

	got, err := ApplyCodexPatch(content, patch)
	if err != nil {
		t.Fatalf("ApplyCodexPatch: %v", err)
	}
	want := "first\ninserted\nsecond\nthird"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}
