// Package vcsdriver is a typed wrapper over the external git binary: it
// surfaces stdout/stderr/exit codes, parses the linked-worktree porcelain
// listing, and probes ref existence, driving the "git worktree add /
// remove / list --porcelain" surface via os/exec.
package vcsdriver

import (
	"bytes"
	"context"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/vde-tools/worktree/internal/wterr"
)

// Result is the outcome of running a git command.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Driver runs git commands against a fixed repository.
type Driver struct {
	// Bin is the git executable name or path. Defaults to "git".
	Bin string
}

// New returns a Driver invoking the "git" binary on PATH.
func New() *Driver { return &Driver{Bin: "git"} }

// Run executes `git <args...>` with cwd as the working directory. When
// reject is true (the default call shape), a non-zero exit becomes a typed
// GIT_COMMAND_FAILED error carrying cwd, args, exit code, stdout, stderr.
func (d *Driver) Run(ctx context.Context, cwd string, args []string, reject bool) (Result, error) {
	bin := d.Bin
	if bin == "" {
		bin = "git"
	}
	cmd := exec.CommandContext(ctx, bin, args...) // #nosec G204 -- args are tool-constructed, not raw user input
	cmd.Dir = cwd

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	exitCode := 0
	if runErr != nil {
		if exitErr, ok := runErr.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		} else {
			return Result{}, wterr.Wrap(wterr.ChildProcessFailed, "launching git", runErr)
		}
	}

	res := Result{Stdout: stdout.String(), Stderr: stderr.String(), ExitCode: exitCode}
	if reject && exitCode != 0 {
		return res, wterr.New(wterr.VCSCommandFailed, "git "+strings.Join(args, " ")+" failed").
			WithDetails(map[string]any{
				"cwd":      cwd,
				"args":     args,
				"exitCode": exitCode,
				"stdout":   res.Stdout,
				"stderr":   res.Stderr,
			})
	}
	return res, nil
}

// RefExists is a non-rejecting probe for whether ref resolves in cwd.
func (d *Driver) RefExists(ctx context.Context, cwd, ref string) bool {
	res, err := d.Run(ctx, cwd, []string{"rev-parse", "--verify", "--quiet", ref}, false)
	return err == nil && res.ExitCode == 0
}

// IsAncestor reports whether ancestorRef is reachable from ref (ancestor
// contains ref, i.e. `git merge-base --is-ancestor`). Returns (value, true)
// when the probe succeeded and the exit code was decisive (0 or 1), and
// (false, false) on any other probe failure -- the caller maps the latter
// to a `null` verdict.
func (d *Driver) IsAncestor(ctx context.Context, cwd, ancestorRef, ref string) (bool, bool) {
	res, err := d.Run(ctx, cwd, []string{"merge-base", "--is-ancestor", ancestorRef, ref}, false)
	if err != nil {
		return false, false
	}
	switch res.ExitCode {
	case 0:
		return true, true
	case 1:
		return false, true
	default:
		return false, false
	}
}

// RepoRoot returns the primary working tree's root for the repo containing
// cwd (also when cwd is inside a linked worktree), and the VCS common dir
// (the shared .git directory across all linked worktrees).
func (d *Driver) RepoRoot(ctx context.Context, cwd string) (repoRoot, commonDir string, err error) {
	top, err := d.Run(ctx, cwd, []string{"rev-parse", "--show-toplevel"}, true)
	if err != nil {
		return "", "", mapNotARepo(err)
	}
	common, err := d.Run(ctx, cwd, []string{"rev-parse", "--path-format=absolute", "--git-common-dir"}, true)
	if err != nil {
		return "", "", mapNotARepo(err)
	}
	commonDirAbs := strings.TrimSpace(common.Stdout)
	root := strings.TrimSpace(top.Stdout)
	// The common dir's parent is the main repo root when it differs from
	// the directory we resolved cwd's toplevel to (i.e. we're inside a
	// linked worktree).
	if filepath.Base(commonDirAbs) == ".git" {
		root = filepath.Dir(commonDirAbs)
	}
	return root, commonDirAbs, nil
}

func mapNotARepo(err error) error {
	return wterr.Wrap(wterr.NotGitRepository, "not a git repository", err)
}

// GitPrivateDir returns the absolute path of cwd's private git directory
// (the main .git directory, or .git/worktrees/<name> for a linked worktree).
func (d *Driver) GitPrivateDir(ctx context.Context, cwd string) (string, error) {
	res, err := d.Run(ctx, cwd, []string{"rev-parse", "--path-format=absolute", "--git-dir"}, true)
	if err != nil {
		return "", mapNotARepo(err)
	}
	return strings.TrimSpace(res.Stdout), nil
}

// Status returns the short-form porcelain status output for cwd; a
// non-empty result indicates a dirty working tree.
func (d *Driver) Status(ctx context.Context, cwd string) (string, error) {
	res, err := d.Run(ctx, cwd, []string{"status", "--porcelain"}, true)
	if err != nil {
		return "", err
	}
	return res.Stdout, nil
}

// Head returns the current commit id for cwd.
func (d *Driver) Head(ctx context.Context, cwd string) (string, error) {
	res, err := d.Run(ctx, cwd, []string{"rev-parse", "HEAD"}, true)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(res.Stdout), nil
}

// CurrentBranch returns the current branch name, or "" for detached HEAD.
func (d *Driver) CurrentBranch(ctx context.Context, cwd string) (string, error) {
	res, err := d.Run(ctx, cwd, []string{"symbolic-ref", "--short", "-q", "HEAD"}, false)
	if err != nil {
		return "", err
	}
	if res.ExitCode != 0 {
		return "", nil
	}
	return strings.TrimSpace(res.Stdout), nil
}
