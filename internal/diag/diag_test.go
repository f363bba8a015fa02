package diag

import (
	"io"
	"os"
	"strings"
	"testing"
)

func captureStderr(t *testing.T, fn func()) string {
	t.Helper()
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("os.Pipe: %v", err)
	}
	orig := os.Stderr
	os.Stderr = w
	defer func() { os.Stderr = orig }()

	fn()

	_ = w.Close()
	out, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("reading captured stderr: %v", err)
	}
	return string(out)
}

func TestDebugfGatedByEnv(t *testing.T) {
	t.Setenv("VDE_WORKTREE_DEBUG", "")
	t.Setenv("VDE_DEBUG", "")
	out := captureStderr(t, func() { Debugf("state=%s", "idle") })
	if out != "" {
		t.Fatalf("expected no debug output when unset, got %q", out)
	}

	t.Setenv("VDE_WORKTREE_DEBUG", "1")
	out = captureStderr(t, func() { Debugf("state=%s", "idle") })
	if !strings.Contains(out, "debug: state=idle") {
		t.Fatalf("expected debug output, got %q", out)
	}
}

func TestVerbosefGatedByEitherVerboseOrDebug(t *testing.T) {
	t.Setenv("VDE_WORKTREE_DEBUG", "")
	t.Setenv("VDE_DEBUG", "")
	t.Setenv("VDE_WORKTREE_VERBOSE", "")
	t.Setenv("VDE_VERBOSE", "")
	out := captureStderr(t, func() { Verbosef("lock acquired") })
	if out != "" {
		t.Fatalf("expected no verbose output when unset, got %q", out)
	}

	t.Setenv("VDE_VERBOSE", "1")
	out = captureStderr(t, func() { Verbosef("lock acquired") })
	if !strings.Contains(out, "lock acquired") {
		t.Fatalf("expected verbose output when VDE_VERBOSE is set, got %q", out)
	}

	t.Setenv("VDE_VERBOSE", "")
	t.Setenv("VDE_WORKTREE_DEBUG", "1")
	out = captureStderr(t, func() { Verbosef("lock acquired") })
	if !strings.Contains(out, "lock acquired") {
		t.Fatalf("expected debug mode to also enable verbose output, got %q", out)
	}
}

func TestStackTraces(t *testing.T) {
	t.Setenv("VDE_WORKTREE_DEBUG", "")
	t.Setenv("VDE_DEBUG", "")
	if StackTraces() {
		t.Fatal("expected StackTraces() false when no debug env var is set")
	}
	t.Setenv("VDE_DEBUG", "1")
	if !StackTraces() {
		t.Fatal("expected StackTraces() true when VDE_DEBUG is set")
	}
}
