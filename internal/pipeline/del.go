package pipeline

import (
	"context"

	"github.com/vde-tools/worktree/internal/lifecycle"
	"github.com/vde-tools/worktree/internal/lockrecord"
	"github.com/vde-tools/worktree/internal/snapshot"
	"github.com/vde-tools/worktree/internal/wterr"
)

// DelOptions configures `wt del`, including its safety-flag matrix.
type DelOptions struct {
	Branch string // empty means "the working tree at Path"
	Path   string

	Force         bool // aggregate: implies all four per-flag overrides
	ForceDirty    bool
	AllowUnpushed bool
	ForceUnmerged bool
	ForceLocked   bool
}

type delPrecheck struct {
	Branch string
	Path   string
	Force  bool // any override flag set -> branch delete uses -D
	Locked bool
}

// Del removes a managed working tree and its branch, enforcing the
// dirty/locked/unmerged/unpushed safety matrix unless overridden (spec
// §4.10 `del`, §8 boundary behaviors).
func Del(ctx context.Context, d *Deps, opts DelOptions) (Result, error) {
	plan := Plan[delPrecheck, Result]{
		Action: "del",
		Precheck: func(ctx context.Context) (delPrecheck, error) {
			snap, err := d.Snapshot(ctx)
			if err != nil {
				return delPrecheck{}, err
			}

			var target *snapshot.Status
			var found bool
			if opts.Branch != "" {
				target, found = findWorktree(snap, opts.Branch)
			} else if opts.Path != "" {
				target, found = findWorktreeByPath(snap, opts.Path)
			}
			if !found {
				return delPrecheck{}, wterr.New(wterr.WorktreeNotFound, "no such managed working tree")
			}
			if isPrimary(d, target.Path) {
				return delPrecheck{}, wterr.New(wterr.InvalidArgument, "cannot delete the primary working tree")
			}
			if !isManaged(d, target.Path) {
				return delPrecheck{}, wterr.New(wterr.InvalidArgument, "working tree is not managed: "+target.Path)
			}
			if target.Branch == "" {
				return delPrecheck{}, wterr.New(wterr.DetachedHead, "working tree is detached: "+target.Path)
			}

			anyForce, err := checkDeleteSafety(d, *target, opts)
			if err != nil {
				return delPrecheck{}, err
			}

			return delPrecheck{Branch: target.Branch, Path: target.Path, Force: anyForce, Locked: target.Lock.Value}, nil
		},
		HookCtx: func(pre delPrecheck) (string, string, map[string]string) {
			return pre.Branch, pre.Path, nil
		},
		RunVCS: func(ctx context.Context, pre delPrecheck) (Result, error) {
			if err := d.VCS.RemoveWorktree(ctx, d.RepoRoot, pre.Path, pre.Force); err != nil {
				return Result{}, err
			}
			if err := d.VCS.DeleteBranch(ctx, d.RepoRoot, pre.Branch, pre.Force); err != nil {
				return Result{}, err
			}
			return Result{Status: "deleted", Path: pre.Path, Branch: pre.Branch}, nil
		},
		Finalize: func(ctx context.Context, pre delPrecheck, res Result) error {
			if pre.Locked {
				if err := lockrecord.Delete(d.RepoRoot, pre.Branch); err != nil {
					return err
				}
			}
			return lifecycle.Delete(d.RepoRoot, pre.Branch)
		},
	}
	return Run(ctx, d, plan)
}

// checkDeleteSafety implements the §4.10 safety-flag matrix: each piece of
// adverse evidence requires its matching override (or the aggregate
// --force), and in non-TTY contexts passing any override flag additionally
// requires --allow-unsafe. Returns whether any override flag was passed,
// which determines -D vs -d at the VCS layer.
func checkDeleteSafety(d *Deps, target snapshot.Status, opts DelOptions) (anyForce bool, err error) {
	forceDirty := opts.Force || opts.ForceDirty
	forceLocked := opts.Force || opts.ForceLocked
	forceUnmerged := opts.Force || opts.ForceUnmerged
	allowUnpushed := opts.Force || opts.AllowUnpushed

	anyFlagSet := opts.Force || opts.ForceDirty || opts.ForceLocked || opts.ForceUnmerged || opts.AllowUnpushed

	if target.Dirty {
		if !forceDirty {
			return false, wterr.New(wterr.DirtyWorktree, "working tree has uncommitted changes: "+target.Path)
		}
	}
	if target.Lock.Value {
		if !forceLocked {
			return false, wterr.New(wterr.LockedWorktree, "working tree is locked: "+target.Path)
		}
	}
	if target.Merged.Overall == nil || !*target.Merged.Overall {
		if !forceUnmerged {
			return false, wterr.New(wterr.UnmergedWorktree, "branch is not merged into base: "+target.Branch)
		}
	}
	ahead := target.Upstream.Ahead
	if ahead == nil || *ahead > 0 {
		if !allowUnpushed {
			return false, wterr.New(wterr.UnpushedWorktree, "branch has unpushed commits: "+target.Branch)
		}
	}

	if anyFlagSet && !d.IsTTY && !d.AllowUnsafe {
		return false, wterr.New(wterr.UnsafeFlagRequired, "force flags require --allow-unsafe in non-interactive contexts")
	}

	return anyFlagSet, nil
}
