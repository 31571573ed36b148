package resolver

import (
	"os"
	"path/filepath"
	"testing"
)

func newTestResolver(t *testing.T, names ...string) (*Resolver, map[string]string) {
	t.Helper()
	roots := make(map[string]string, len(names))
	var reals []string
	for _, name := range names {
		dir := filepath.Join(t.TempDir(), name)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		roots[name] = dir
		reals = append(reals, dir)
	}
	r, err := New(reals)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return r, roots
}

func TestResolve_WithinRoot(t *testing.T) {
	r, roots := newTestResolver(t, "workspace")
	root := roots["workspace"]
	if err := os.WriteFile(filepath.Join(root, "a.txt"), []byte("hi"), 0o644); err != nil {
		t.Fatal(err)
	}

	real, err := r.Resolve("/workspace/a.txt")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	want := filepath.Join(root, "a.txt")
	if real != want {
		t.Errorf("Resolve() = %q, want %q", real, want)
	}
}

func TestResolve_UnknownRoot(t *testing.T) {
	r, _ := newTestResolver(t, "workspace")
	_, err := r.Resolve("/other/a.txt")
	if err == nil {
		t.Fatal("expected error for unknown root")
	}
	var rerr *Error
	if !asResolverError(err, &rerr) || rerr.Kind != KindUnknown {
		t.Errorf("expected KindUnknown, got %v", err)
	}
}

func TestResolve_SymlinkEscape(t *testing.T) {
	r, roots := newTestResolver(t, "workspace")
	root := roots["workspace"]
	outside := t.TempDir()
	if err := os.WriteFile(filepath.Join(outside, "secret.txt"), []byte("s3cr3t"), 0o644); err != nil {
		t.Fatal(err)
	}
	link := filepath.Join(root, "escape")
	if err := os.Symlink(outside, link); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}

	_, err := r.Resolve("/workspace/escape/secret.txt")
	if err == nil {
		t.Fatal("expected escape error")
	}
	var rerr *Error
	if !asResolverError(err, &rerr) || rerr.Kind != KindEscape {
		t.Errorf("expected KindEscape, got %v", err)
	}
}

func TestResolve_BrokenSymlinkEscape(t *testing.T) {
	r, roots := newTestResolver(t, "workspace")
	root := roots["workspace"]
	link := filepath.Join(root, "dangling")
	if err := os.Symlink("/nonexistent-outside-root", link); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}

	_, err := r.Resolve("/workspace/dangling")
	if err == nil {
		t.Fatal("expected escape error for broken symlink target")
	}
}

func TestResolve_NonexistentFileWithinRoot(t *testing.T) {
	r, roots := newTestResolver(t, "workspace")
	root := roots["workspace"]
	real, err := r.Resolve("/workspace/new/file.txt")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	want := filepath.Join(root, "new", "file.txt")
	if real != want {
		t.Errorf("Resolve() = %q, want %q", real, want)
	}
}

func TestCanonicalize_RoundTrip(t *testing.T) {
	r, roots := newTestResolver(t, "workspace")
	root := roots["workspace"]
	nested := filepath.Join(root, "a", "b.txt")
	if err := os.MkdirAll(filepath.Dir(nested), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(nested, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	resolved, err := r.Canonicalize(nested)
	if err != nil {
		t.Fatalf("Canonicalize: %v", err)
	}
	if resolved.VirtualPath != "/workspace/a/b.txt" {
		t.Errorf("VirtualPath = %q, want /workspace/a/b.txt", resolved.VirtualPath)
	}

	real, err := r.Resolve(resolved.VirtualPath)
	if err != nil {
		t.Fatalf("Resolve round-trip: %v", err)
	}
	if real != nested {
		t.Errorf("round-trip real = %q, want %q", real, nested)
	}
}

func TestCanonicalize_OutsideAllRoots(t *testing.T) {
	r, _ := newTestResolver(t, "workspace")
	outside := t.TempDir()
	_, err := r.Canonicalize(outside)
	if err == nil {
		t.Fatal("expected escape error")
	}
}

func TestNew_DuplicateBasenameRejected(t *testing.T) {
	base := t.TempDir()
	a := filepath.Join(base, "shared", "roots", "ws")
	b := filepath.Join(base, "other", "ws")
	if err := os.MkdirAll(a, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(b, 0o755); err != nil {
		t.Fatal(err)
	}
	_, err := New([]string{a, b})
	if err == nil {
		t.Fatal("expected duplicate basename error")
	}
}

func TestNew_RequiresAbsolute(t *testing.T) {
	_, err := New([]string{"relative/path"})
	if err == nil {
		t.Fatal("expected error for relative root")
	}
}

// asResolverError unwraps err into *Error if possible, mirroring errors.As
// without importing it twice across the small test file.
func asResolverError(err error, target **Error) bool {
	if e, ok := err.(*Error); ok {
		*target = e
		return true
	}
	return false
}
