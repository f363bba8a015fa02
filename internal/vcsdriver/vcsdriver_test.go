package vcsdriver

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/vde-tools/worktree/internal/wterr"
)

func runGit(t *testing.T, dir string, args ...string) {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(),
		"GIT_AUTHOR_NAME=test", "GIT_AUTHOR_EMAIL=test@example.com",
		"GIT_COMMITTER_NAME=test", "GIT_COMMITTER_EMAIL=test@example.com",
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("git %v: %v\n%s", args, err, out)
	}
}

func initRepo(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	runGit(t, root, "init", "-q", "-b", "main")
	if err := os.WriteFile(filepath.Join(root, "README.md"), []byte("hello\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	runGit(t, root, "add", ".")
	runGit(t, root, "commit", "-q", "-m", "initial")
	return root
}

func TestRunRejectsNonZeroExit(t *testing.T) {
	root := initRepo(t)
	d := New()

	_, err := d.Run(context.Background(), root, []string{"rev-parse", "--verify", "refs/heads/does-not-exist"}, true)
	if wterr.KindFor(err) != wterr.VCSCommandFailed {
		t.Fatalf("expected GIT_COMMAND_FAILED, got %v", err)
	}
}

func TestRunNonRejectingReturnsExitCode(t *testing.T) {
	root := initRepo(t)
	d := New()

	res, err := d.Run(context.Background(), root, []string{"rev-parse", "--verify", "refs/heads/does-not-exist"}, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.ExitCode == 0 {
		t.Fatal("expected a non-zero exit code for an unresolvable ref")
	}
}

func TestRefExists(t *testing.T) {
	root := initRepo(t)
	d := New()

	if !d.RefExists(context.Background(), root, "refs/heads/main") {
		t.Fatal("expected refs/heads/main to exist")
	}
	if d.RefExists(context.Background(), root, "refs/heads/nope") {
		t.Fatal("expected refs/heads/nope to not exist")
	}
}

func TestIsAncestor(t *testing.T) {
	root := initRepo(t)
	d := New()
	ctx := context.Background()

	runGit(t, root, "checkout", "-q", "-b", "feature")
	if err := os.WriteFile(filepath.Join(root, "f.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	runGit(t, root, "add", ".")
	runGit(t, root, "commit", "-q", "-m", "feature work")

	ok, decisive := d.IsAncestor(ctx, root, "main", "feature")
	if !decisive || !ok {
		t.Fatalf("expected main to be an ancestor of feature, got ok=%v decisive=%v", ok, decisive)
	}

	ok, decisive = d.IsAncestor(ctx, root, "feature", "main")
	if !decisive || ok {
		t.Fatalf("expected feature to not be an ancestor of main, got ok=%v decisive=%v", ok, decisive)
	}
}

func TestRepoRootAndGitPrivateDir(t *testing.T) {
	root := initRepo(t)
	d := New()
	ctx := context.Background()

	resolvedRoot, commonDir, err := d.RepoRoot(ctx, root)
	if err != nil {
		t.Fatalf("RepoRoot: %v", err)
	}
	realRoot, _ := filepath.EvalSymlinks(root)
	realResolved, _ := filepath.EvalSymlinks(resolvedRoot)
	if realResolved != realRoot {
		t.Fatalf("RepoRoot = %q, want %q", realResolved, realRoot)
	}
	if commonDir == "" {
		t.Fatal("expected a non-empty common dir")
	}

	gitDir, err := d.GitPrivateDir(ctx, root)
	if err != nil {
		t.Fatalf("GitPrivateDir: %v", err)
	}
	if filepath.Base(gitDir) != ".git" {
		t.Fatalf("GitPrivateDir = %q, want a path ending in .git", gitDir)
	}
}

func TestRepoRootRejectsNonRepo(t *testing.T) {
	d := New()
	if _, _, err := d.RepoRoot(context.Background(), t.TempDir()); wterr.KindFor(err) != wterr.NotGitRepository {
		t.Fatalf("expected NOT_GIT_REPOSITORY, got %v", err)
	}
}

func TestStatusAndHeadAndCurrentBranch(t *testing.T) {
	root := initRepo(t)
	d := New()
	ctx := context.Background()

	clean, err := d.Status(ctx, root)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if clean != "" {
		t.Fatalf("expected clean status, got %q", clean)
	}

	if err := os.WriteFile(filepath.Join(root, "dirty.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	dirty, err := d.Status(ctx, root)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if dirty == "" {
		t.Fatal("expected dirty status after adding an untracked file")
	}

	head, err := d.Head(ctx, root)
	if err != nil || head == "" {
		t.Fatalf("Head: %q, %v", head, err)
	}

	branch, err := d.CurrentBranch(ctx, root)
	if err != nil || branch != "main" {
		t.Fatalf("CurrentBranch = %q, %v, want main", branch, err)
	}

	runGit(t, root, "checkout", "-q", "--detach", "HEAD")
	detached, err := d.CurrentBranch(ctx, root)
	if err != nil || detached != "" {
		t.Fatalf("CurrentBranch on detached HEAD = %q, %v, want empty", detached, err)
	}
}

func TestAddListAndRemoveWorktree(t *testing.T) {
	root := initRepo(t)
	d := New()
	ctx := context.Background()

	wtPath := filepath.Join(root, "wt-feature")
	if err := d.AddWorktree(ctx, root, wtPath, "feature/x", "main", true); err != nil {
		t.Fatalf("AddWorktree: %v", err)
	}

	worktrees, err := d.ListWorktrees(ctx, root)
	if err != nil {
		t.Fatalf("ListWorktrees: %v", err)
	}
	if len(worktrees) != 2 {
		t.Fatalf("expected 2 worktrees (main + linked), got %d: %+v", len(worktrees), worktrees)
	}
	var found bool
	for _, w := range worktrees {
		if w.Branch == "feature/x" {
			found = true
			if w.Detached {
				t.Fatal("feature/x worktree should not be detached")
			}
		}
	}
	if !found {
		t.Fatalf("feature/x not found in %+v", worktrees)
	}

	if err := d.RemoveWorktree(ctx, root, wtPath, false); err != nil {
		t.Fatalf("RemoveWorktree: %v", err)
	}
	worktrees, err = d.ListWorktrees(ctx, root)
	if err != nil {
		t.Fatalf("ListWorktrees after remove: %v", err)
	}
	if len(worktrees) != 1 {
		t.Fatalf("expected 1 worktree after remove, got %d", len(worktrees))
	}
}

func TestMoveWorktreeAndRenameBranch(t *testing.T) {
	root := initRepo(t)
	d := New()
	ctx := context.Background()

	oldPath := filepath.Join(root, "wt-old")
	newPath := filepath.Join(root, "wt-new")
	if err := d.AddWorktree(ctx, root, oldPath, "feature/y", "main", true); err != nil {
		t.Fatalf("AddWorktree: %v", err)
	}
	if err := d.MoveWorktree(ctx, root, oldPath, newPath); err != nil {
		t.Fatalf("MoveWorktree: %v", err)
	}
	if _, err := os.Stat(newPath); err != nil {
		t.Fatalf("new path missing after move: %v", err)
	}
	if _, err := os.Stat(oldPath); !os.IsNotExist(err) {
		t.Fatalf("old path should be gone after move, err=%v", err)
	}

	if err := d.RenameBranch(ctx, newPath, "feature/y", "feature/z"); err != nil {
		t.Fatalf("RenameBranch: %v", err)
	}
	if !d.RefExists(ctx, root, "refs/heads/feature/z") {
		t.Fatal("expected refs/heads/feature/z to exist after rename")
	}
	if d.RefExists(ctx, root, "refs/heads/feature/y") {
		t.Fatal("expected refs/heads/feature/y to no longer exist after rename")
	}
}

func TestDeleteBranch(t *testing.T) {
	root := initRepo(t)
	d := New()
	ctx := context.Background()

	runGit(t, root, "branch", "throwaway")
	if err := d.DeleteBranch(ctx, root, "throwaway", false); err != nil {
		t.Fatalf("DeleteBranch: %v", err)
	}
	if d.RefExists(ctx, root, "refs/heads/throwaway") {
		t.Fatal("expected throwaway branch to be deleted")
	}
}

func TestCheckout(t *testing.T) {
	root := initRepo(t)
	d := New()
	ctx := context.Background()

	runGit(t, root, "branch", "other")
	if err := d.Checkout(ctx, root, "other", false); err != nil {
		t.Fatalf("Checkout: %v", err)
	}
	branch, err := d.CurrentBranch(ctx, root)
	if err != nil || branch != "other" {
		t.Fatalf("CurrentBranch = %q, %v, want other", branch, err)
	}
}

func TestStashPushAndPop(t *testing.T) {
	root := initRepo(t)
	d := New()
	ctx := context.Background()

	// A clean tree reports no stash created.
	created, err := d.StashPush(ctx, root, "test stash")
	if err != nil {
		t.Fatalf("StashPush on clean tree: %v", err)
	}
	if created {
		t.Fatal("expected no stash to be created on a clean tree")
	}

	if err := os.WriteFile(filepath.Join(root, "README.md"), []byte("hello\nmore\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	created, err = d.StashPush(ctx, root, "test stash")
	if err != nil {
		t.Fatalf("StashPush on dirty tree: %v", err)
	}
	if !created {
		t.Fatal("expected a stash to be created on a dirty tree")
	}
	status, err := d.Status(ctx, root)
	if err != nil || status != "" {
		t.Fatalf("expected a clean tree after stashing, status=%q err=%v", status, err)
	}

	if err := d.StashPop(ctx, root); err != nil {
		t.Fatalf("StashPop: %v", err)
	}
	status, err = d.Status(ctx, root)
	if err != nil || status == "" {
		t.Fatalf("expected a dirty tree after popping, status=%q err=%v", status, err)
	}
}

func TestResolveUpstreamWithoutRemoteReturnsEmpty(t *testing.T) {
	root := initRepo(t)
	d := New()

	up := d.ResolveUpstream(context.Background(), root, "main")
	if up == nil {
		t.Fatal("ResolveUpstream should never return nil")
	}
	if up.Remote != "" || up.Ahead != nil || up.Behind != nil {
		t.Fatalf("expected an empty Upstream with no tracking branch configured, got %+v", up)
	}
}

func TestReflogWorkHeads(t *testing.T) {
	root := initRepo(t)
	d := New()
	ctx := context.Background()

	if err := os.WriteFile(filepath.Join(root, "second.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	runGit(t, root, "add", ".")
	runGit(t, root, "commit", "-q", "-m", "second commit")

	heads, err := d.ReflogWorkHeads(ctx, root, "main")
	if err != nil {
		t.Fatalf("ReflogWorkHeads: %v", err)
	}
	if len(heads) < 2 {
		t.Fatalf("expected at least 2 work-creating reflog entries, got %d: %v", len(heads), heads)
	}
}

func TestRemoteExists(t *testing.T) {
	root := initRepo(t)
	d := New()
	ctx := context.Background()

	if d.RemoteExists(ctx, root, "origin") {
		t.Fatal("expected no origin remote to be configured")
	}
	runGit(t, root, "remote", "add", "origin", "https://example.invalid/repo.git")
	if !d.RemoteExists(ctx, root, "origin") {
		t.Fatal("expected origin remote to now be configured")
	}
}

func TestCreateTrackingBranch(t *testing.T) {
	root := initRepo(t)
	d := New()
	ctx := context.Background()

	// Simulate a remote-tracking ref without fetching: configure an origin
	// remote that is never contacted, copy the local main ref under
	// refs/remotes/origin and branch off it.
	runGit(t, root, "remote", "add", "origin", "https://example.invalid/repo.git")
	runGit(t, root, "update-ref", "refs/remotes/origin/main", "refs/heads/main")
	if err := d.CreateTrackingBranch(ctx, root, "feature/tracked", "origin/main"); err != nil {
		t.Fatalf("CreateTrackingBranch: %v", err)
	}
	if !d.RefExists(ctx, root, "refs/heads/feature/tracked") {
		t.Fatal("expected refs/heads/feature/tracked to exist")
	}
}
