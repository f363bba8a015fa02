package hooks

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/vde-tools/worktree/internal/wterr"
)

func newTestRunner(t *testing.T) (*Runner, string) {
	t.Helper()
	repoRoot := t.TempDir()
	r := NewRunner(repoRoot, true)
	if err := os.MkdirAll(r.HooksDir, 0o755); err != nil {
		t.Fatal(err)
	}
	return r, repoRoot
}

func writeHook(t *testing.T, r *Runner, name, script string, mode os.FileMode) string {
	t.Helper()
	path := filepath.Join(r.HooksDir, name)
	if err := os.WriteFile(path, []byte(script), mode); err != nil {
		t.Fatalf("writing hook %s: %v", name, err)
	}
	return path
}

func TestRun_MissingImplicitIsNoop(t *testing.T) {
	r, repoRoot := newTestRunner(t)
	err := r.Run(context.Background(), Invocation{Phase: "pre", Action: "new", RepoRoot: repoRoot, Branch: "feature"})
	if err != nil {
		t.Errorf("missing implicit hook should be a no-op, got %v", err)
	}
}

func TestRun_MissingExplicitIsHookNotFound(t *testing.T) {
	r, repoRoot := newTestRunner(t)
	err := r.Run(context.Background(), Invocation{Phase: "pre", Action: "new", RepoRoot: repoRoot, Branch: "feature", Explicit: true})
	if wterr.KindFor(err) != wterr.HookNotFound {
		t.Errorf("expected HOOK_NOT_FOUND, got %v", err)
	}
}

func TestRun_NotExecutable(t *testing.T) {
	r, repoRoot := newTestRunner(t)
	writeHook(t, r, "pre-new", "#!/bin/sh\nexit 0\n", 0o644)

	err := r.Run(context.Background(), Invocation{Phase: "pre", Action: "new", RepoRoot: repoRoot, Branch: "feature"})
	if wterr.KindFor(err) != wterr.HookNotExecutable {
		t.Errorf("expected HOOK_NOT_EXECUTABLE, got %v", err)
	}
}

func TestRun_ReceivesEnv(t *testing.T) {
	r, repoRoot := newTestRunner(t)
	outputFile := filepath.Join(repoRoot, "env.txt")
	script := "#!/bin/sh\nenv | grep ^WT_ > " + outputFile + "\n"
	writeHook(t, r, "pre-new", script, 0o755)

	err := r.Run(context.Background(), Invocation{
		Phase: "pre", Action: "new", RepoRoot: repoRoot, Branch: "feature/x",
		WorktreePath: filepath.Join(repoRoot, ".worktree", "feature-x"),
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	out, rerr := os.ReadFile(outputFile)
	if rerr != nil {
		t.Fatalf("reading env output: %v", rerr)
	}
	for _, want := range []string{"WT_REPO_ROOT=", "WT_ACTION=new", "WT_BRANCH=feature/x", "WT_TOOL=wt"} {
		if !strings.Contains(string(out), want) {
			t.Errorf("env missing %q, got:\n%s", want, out)
		}
	}
}

func TestRun_PreHookFailureIsFatal(t *testing.T) {
	r, repoRoot := newTestRunner(t)
	writeHook(t, r, "pre-new", "#!/bin/sh\nexit 1\n", 0o755)

	err := r.Run(context.Background(), Invocation{Phase: "pre", Action: "new", RepoRoot: repoRoot, Branch: "feature"})
	if wterr.KindFor(err) != wterr.HookFailed {
		t.Errorf("expected HOOK_FAILED, got %v", err)
	}
}

func TestRun_PostHookLenientByDefault(t *testing.T) {
	r, repoRoot := newTestRunner(t)
	writeHook(t, r, "post-new", "#!/bin/sh\nexit 1\n", 0o755)

	err := r.Run(context.Background(), Invocation{Phase: "post", Action: "new", RepoRoot: repoRoot, Branch: "feature", Strict: false})
	if err != nil {
		t.Errorf("non-strict post-hook failure should not error, got %v", err)
	}
}

func TestRun_PostHookStrict(t *testing.T) {
	r, repoRoot := newTestRunner(t)
	writeHook(t, r, "post-new", "#!/bin/sh\nexit 1\n", 0o755)

	err := r.Run(context.Background(), Invocation{Phase: "post", Action: "new", RepoRoot: repoRoot, Branch: "feature", Strict: true})
	if wterr.KindFor(err) != wterr.HookFailed {
		t.Errorf("expected HOOK_FAILED in strict post mode, got %v", err)
	}
}

func TestRun_WritesLogRecord(t *testing.T) {
	r, repoRoot := newTestRunner(t)
	writeHook(t, r, "pre-new", "#!/bin/sh\nexit 0\n", 0o755)

	if err := r.Run(context.Background(), Invocation{Phase: "pre", Action: "new", RepoRoot: repoRoot, Branch: "feature"}); err != nil {
		t.Fatalf("Run: %v", err)
	}

	entries, err := os.ReadDir(r.LogsDir)
	if err != nil {
		t.Fatalf("reading logs dir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected exactly 1 log file, got %d", len(entries))
	}
	if !strings.Contains(entries[0].Name(), "_new_feature.log") {
		t.Errorf("unexpected log file name %q", entries[0].Name())
	}
}

func TestRun_DisabledIsNoop(t *testing.T) {
	repoRoot := t.TempDir()
	r := NewRunner(repoRoot, false)
	if err := os.MkdirAll(r.HooksDir, 0o755); err != nil {
		t.Fatal(err)
	}
	writeHook(t, r, "pre-new", "#!/bin/sh\nexit 1\n", 0o755)

	if err := r.Run(context.Background(), Invocation{Phase: "pre", Action: "new", RepoRoot: repoRoot}); err != nil {
		t.Errorf("disabled runner should be a no-op, got %v", err)
	}
}

func TestRun_Timeout(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping timeout test in short mode")
	}
	r, repoRoot := newTestRunner(t)
	writeHook(t, r, "pre-new", "#!/bin/sh\nsleep 60\n", 0o755)

	start := time.Now()
	err := r.Run(context.Background(), Invocation{
		Phase: "pre", Action: "new", RepoRoot: repoRoot, Branch: "feature",
		Timeout: 500 * time.Millisecond,
	})
	elapsed := time.Since(start)

	if wterr.KindFor(err) != wterr.HookTimeout {
		t.Errorf("expected HOOK_TIMEOUT, got %v", err)
	}
	if elapsed > 5*time.Second {
		t.Errorf("Run took too long: %v", elapsed)
	}
}

func TestRun_KillsDescendants(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("requires Linux /proc")
	}
	if testing.Short() {
		t.Skip("skipping long-running descendant kill test in short mode")
	}
	r, repoRoot := newTestRunner(t)
	pidFile := filepath.Join(repoRoot, "child.pid")
	script := "#!/bin/sh\n(sleep 60 & echo $! > " + pidFile + " ; wait)\n"
	writeHook(t, r, "pre-new", script, 0o755)

	err := r.Run(context.Background(), Invocation{
		Phase: "pre", Action: "new", RepoRoot: repoRoot, Branch: "feature",
		Timeout: 500 * time.Millisecond,
	})
	if wterr.KindFor(err) != wterr.HookTimeout {
		t.Fatalf("expected HOOK_TIMEOUT, got %v", err)
	}

	data, rerr := os.ReadFile(pidFile)
	if rerr != nil {
		t.Fatalf("reading pid file: %v", rerr)
	}
	pid, perr := strconv.Atoi(strings.TrimSpace(string(data)))
	if perr != nil {
		t.Fatalf("invalid pid: %v", perr)
	}

	for i := 0; i < 10; i++ {
		if _, serr := os.Stat(filepath.Join("/proc", strconv.Itoa(pid))); serr != nil {
			return
		}
		time.Sleep(100 * time.Millisecond)
	}
	t.Fatalf("child process %d still exists after timeout", pid)
}

func TestRunWithRestore_ComposesAutoRestoreFailure(t *testing.T) {
	r, repoRoot := newTestRunner(t)
	writeHook(t, r, "pre-extract", "#!/bin/sh\nexit 1\n", 0o755)

	err := r.RunWithRestore(context.Background(), Invocation{
		Phase: "pre", Action: "extract", RepoRoot: repoRoot, Branch: "feature",
	}, func() error {
		return wterr.New(wterr.StashApplyFailed, "stash pop conflicted")
	})

	var te *wterr.Error
	if e, ok := err.(*wterr.Error); ok {
		te = e
	}
	if te == nil {
		t.Fatalf("expected *wterr.Error, got %T", err)
	}
	if te.Kind != wterr.HookFailed {
		t.Errorf("original error kind should remain HOOK_FAILED, got %s", te.Kind)
	}
	if !te.AutoRestoreFailed {
		t.Error("expected AutoRestoreFailed=true")
	}
	if te.RestoreErr == nil {
		t.Error("expected RestoreErr to be set")
	}
}

func TestRunWithRestore_SucceedsWhenRestoreSucceeds(t *testing.T) {
	r, repoRoot := newTestRunner(t)
	writeHook(t, r, "pre-extract", "#!/bin/sh\nexit 1\n", 0o755)

	restored := false
	err := r.RunWithRestore(context.Background(), Invocation{
		Phase: "pre", Action: "extract", RepoRoot: repoRoot, Branch: "feature",
	}, func() error {
		restored = true
		return nil
	})

	if !restored {
		t.Error("restore callback was not invoked")
	}
	te, ok := err.(*wterr.Error)
	if !ok {
		t.Fatalf("expected *wterr.Error, got %T", err)
	}
	if te.AutoRestoreFailed {
		t.Error("AutoRestoreFailed should be false when restore succeeds")
	}
}
