// Package pipeline orchestrates every mutating command as a single plan:
// repo-lock → validate-initialized → precheck → pre-hook → VCS action →
// finalize → post-hook, tracked through a monotonic state machine. The
// shape mirrors the acquire-lock / run / release pattern command handlers
// thread around their VCS calls, generalized here into one generic
// orchestrator so each command supplies only its own precheck/VCS/finalize
// closures instead of repeating the lock/hook boilerplate.
package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/vde-tools/worktree/internal/diag"
	"github.com/vde-tools/worktree/internal/hooks"
	"github.com/vde-tools/worktree/internal/pathid"
	"github.com/vde-tools/worktree/internal/prstatus"
	"github.com/vde-tools/worktree/internal/repolock"
	"github.com/vde-tools/worktree/internal/snapshot"
	"github.com/vde-tools/worktree/internal/vcsdriver"
	"github.com/vde-tools/worktree/internal/wterr"
)

// State is one step of the mutation pipeline's monotonic state machine.
type State int

const (
	Idle State = iota
	LockHeld
	Prechecked
	PreHookRan
	VcsDone
	Finalized
	PostHookRan
	Released
)

func (s State) String() string {
	switch s {
	case Idle:
		return "Idle"
	case LockHeld:
		return "LockHeld"
	case Prechecked:
		return "Prechecked"
	case PreHookRan:
		return "PreHookRan"
	case VcsDone:
		return "VcsDone"
	case Finalized:
		return "Finalized"
	case PostHookRan:
		return "PostHookRan"
	case Released:
		return "Released"
	default:
		return "Unknown"
	}
}

// Result is the outcome of one mutation, shaped for both human output and
// the JSON envelope's `details` field.
type Result struct {
	Status  string // ok, created, existing, deleted
	Path    string
	Branch  string
	Details map[string]any
}

// Deps bundles every collaborator a mutation needs. Callers build one per
// invocation from resolved config and the repo context.
type Deps struct {
	VCS   *vcsdriver.Driver
	Hooks *hooks.Runner
	PR    *prstatus.Resolver

	RepoRoot     string // primary worktree root (repoRoot)
	WorktreeRoot string // absolute managed worktree root
	BaseBranch   string
	BaseRemote   string
	GhEnabled    bool
	NoGh         bool

	IsTTY       bool
	AllowUnsafe bool
	HookTimeout time.Duration

	SentinelPath     string
	LockTimeoutMs    int
	StaleLockTTLSecs int

	Now func() time.Time
}

func (d *Deps) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

// Snapshot collects the current fleet view using this Deps' collaborators.
func (d *Deps) Snapshot(ctx context.Context) (*snapshot.Snapshot, error) {
	return snapshot.Collect(ctx, d.RepoRoot, snapshot.Options{
		BaseBranch: d.BaseBranch,
		GhEnabled:  d.GhEnabled,
		NoGh:       d.NoGh,
	}, snapshot.Dependencies{VCS: d.VCS, PR: d.PR, Now: d.Now})
}

// Plan is one WorktreeMutationPlan: precheck, the VCS action, and an
// optional finalize step, parameterized over the command's own precheck
// result type P and result type R.
type Plan[P any, R any] struct {
	Action string

	// Precheck validates preconditions and gathers everything runVcs and
	// finalize need; it may fail with a typed error.
	Precheck func(ctx context.Context) (P, error)

	// HookCtx derives the branch/worktreePath/extra env the hook runtime
	// sees, from the just-computed precheck result.
	HookCtx func(pre P) (branch, worktreePath string, extra map[string]string)

	// RunVCS performs the VCS driver calls.
	RunVCS func(ctx context.Context, pre P) (R, error)

	// Finalize persists lifecycle/lock-record side effects. Optional.
	Finalize func(ctx context.Context, pre P, res R) error

	// Stash runs before the pre-hook for commands that stash-then-hook
	// (extract, absorb, unabsorb). It reports whether a stash was actually
	// created, which Restore uses to decide whether popping is meaningful.
	Stash func(ctx context.Context, pre P) (didStash bool, err error)

	// Restore, when non-nil, is consulted after a pre-hook failure to
	// build the stash auto-restore callback for commands that stash before
	// running hooks (extract, absorb, unabsorb).
	Restore func(pre P, didStash bool) func() error

	SkipPreHook  bool
	SkipPostHook bool
}

// Run executes plan under a full repo-lock cycle, following the fixed
// orchestration order and state machine. Precheck failures never touch the
// VCS; any VCS error propagates the driver's typed failure.
func Run[P any, R any](ctx context.Context, d *Deps, plan Plan[P, R]) (R, error) {
	var zero R
	var result R
	state := Idle

	lockOpts := repolock.Options{
		RepoRoot:     d.RepoRoot,
		SentinelPath: d.SentinelPath,
		Command:      plan.Action,
		TimeoutMs:    d.LockTimeoutMs,
		StaleTTLSecs: d.StaleLockTTLSecs,
	}

	runErr := repolock.WithRepoLock(ctx, lockOpts, func() error {
		state = LockHeld
		diag.Verbosef("%s: repo lock acquired", plan.Action)

		if plan.Action != "init" {
			if err := validateInitializedForWrite(d); err != nil {
				return err
			}
		}

		pre, err := plan.Precheck(ctx)
		if err != nil {
			return err
		}
		state = Prechecked

		var branch, wtPath string
		var extra map[string]string
		if plan.HookCtx != nil {
			branch, wtPath, extra = plan.HookCtx(pre)
		}

		var didStash bool
		if plan.Stash != nil {
			ds, err := plan.Stash(ctx, pre)
			if err != nil {
				return err
			}
			didStash = ds
		}

		if !plan.SkipPreHook {
			inv := hooks.Invocation{
				Phase: "pre", Action: plan.Action, RepoRoot: d.RepoRoot,
				Branch: branch, WorktreePath: wtPath, IsTTY: d.IsTTY,
				Extra: extra, Timeout: d.HookTimeout,
			}
			var hookErr error
			if plan.Restore != nil {
				hookErr = d.Hooks.RunWithRestore(ctx, inv, plan.Restore(pre, didStash))
			} else {
				hookErr = d.Hooks.Run(ctx, inv)
			}
			if hookErr != nil {
				return hookErr
			}
		}
		state = PreHookRan

		res, err := plan.RunVCS(ctx, pre)
		if err != nil {
			return err
		}
		state = VcsDone
		result = res

		if plan.Finalize != nil {
			if err := plan.Finalize(ctx, pre, res); err != nil {
				return err
			}
		}
		state = Finalized

		if !plan.SkipPostHook {
			inv := hooks.Invocation{
				Phase: "post", Action: plan.Action, RepoRoot: d.RepoRoot,
				Branch: branch, WorktreePath: wtPath, IsTTY: d.IsTTY,
				Extra: extra, Timeout: d.HookTimeout,
			}
			if err := d.Hooks.Run(ctx, inv); err != nil {
				return err
			}
		}
		state = PostHookRan
		return nil
	})
	if runErr != nil {
		diag.Debugf("%s: pipeline aborted at state %s: %v", plan.Action, state, runErr)
		return zero, runErr
	}
	state = Released
	diag.Verbosef("%s: pipeline completed (%s)", plan.Action, state)
	return result, nil
}

// validateInitializedForWrite requires both managed roots to already exist;
// every mutating command but `init` depends on them.
func validateInitializedForWrite(d *Deps) error {
	if info, err := os.Stat(d.WorktreeRoot); err != nil || !info.IsDir() {
		return wterr.New(wterr.InvalidArgument, "worktree root not initialized; run `wt init` first").
			WithDetails(map[string]any{"worktreeRoot": d.WorktreeRoot})
	}
	metaRoot := pathid.ManagedMetaRoot(d.RepoRoot)
	if info, err := os.Stat(metaRoot); err != nil || !info.IsDir() {
		return wterr.New(wterr.InvalidArgument, "worktree metadata not initialized; run `wt init` first").
			WithDetails(map[string]any{"metaRoot": metaRoot})
	}
	return nil
}

func findWorktree(snap *snapshot.Snapshot, branch string) (*snapshot.Status, bool) {
	for i := range snap.Worktrees {
		if snap.Worktrees[i].Branch == branch {
			return &snap.Worktrees[i], true
		}
	}
	return nil, false
}

func findWorktreeByPath(snap *snapshot.Snapshot, path string) (*snapshot.Status, bool) {
	for i := range snap.Worktrees {
		if samePath(snap.Worktrees[i].Path, path) {
			return &snap.Worktrees[i], true
		}
	}
	return nil, false
}

func samePath(a, b string) bool {
	return filepath.Clean(a) == filepath.Clean(b)
}

func isPrimary(d *Deps, path string) bool {
	return samePath(path, d.RepoRoot)
}

// isManaged reports whether path sits inside the configured managed
// worktree root.
func isManaged(d *Deps, path string) bool {
	return pathid.EnsurePathInsideRoot(d.WorktreeRoot, path) == nil
}

func pathExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// parseRemoteBranch splits "remote/branch" for `wt get`. A branch
// name may itself contain slashes, so the remote is always the first
// segment.
func parseRemoteBranch(spec string) (remote, branch string, err error) {
	idx := strings.Index(spec, "/")
	if idx <= 0 || idx == len(spec)-1 {
		return "", "", wterr.New(wterr.InvalidRemoteBranch, "expected <remote>/<branch>, got "+spec)
	}
	return spec[:idx], spec[idx+1:], nil
}
