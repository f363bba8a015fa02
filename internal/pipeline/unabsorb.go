package pipeline

import (
	"context"

	"github.com/vde-tools/worktree/internal/wterr"
)

// UnabsorbOptions configures `wt unabsorb`.
type UnabsorbOptions struct {
	Branch string // target working tree's branch to receive the primary's changes
	To     string // overrides the target working-tree path lookup
}

type unabsorbPrecheck struct {
	Branch     string
	TargetPath string
}

// Unabsorb is absorb's inverse: it stashes the primary working tree's
// changes and applies them onto a target linked working tree. The primary
// must currently be on Branch and dirty; the
// target must be clean.
func Unabsorb(ctx context.Context, d *Deps, opts UnabsorbOptions) (Result, error) {
	plan := Plan[unabsorbPrecheck, Result]{
		Action: "unabsorb",
		Precheck: func(ctx context.Context) (unabsorbPrecheck, error) {
			if opts.Branch == "" {
				return unabsorbPrecheck{}, wterr.New(wterr.InvalidArgument, "branch is required")
			}
			cur, err := d.VCS.CurrentBranch(ctx, d.RepoRoot)
			if err != nil {
				return unabsorbPrecheck{}, err
			}
			if cur != opts.Branch {
				return unabsorbPrecheck{}, wterr.New(wterr.InvalidArgument, "primary working tree is not on branch: "+opts.Branch)
			}
			status, err := d.VCS.Status(ctx, d.RepoRoot)
			if err != nil {
				return unabsorbPrecheck{}, err
			}
			if status == "" {
				return unabsorbPrecheck{}, wterr.New(wterr.InvalidArgument, "primary working tree has nothing to unabsorb")
			}

			snap, err := d.Snapshot(ctx)
			if err != nil {
				return unabsorbPrecheck{}, err
			}
			var targetPath string
			if opts.To != "" {
				if w, found := findWorktreeByPath(snap, opts.To); found && w.Branch == opts.Branch {
					targetPath = w.Path
				}
			} else if w, found := findWorktree(snap, opts.Branch); found {
				targetPath = w.Path
			}
			if targetPath == "" {
				return unabsorbPrecheck{}, wterr.New(wterr.WorktreeNotFound, "no managed working tree found for branch: "+opts.Branch)
			}
			if isPrimary(d, targetPath) {
				return unabsorbPrecheck{}, wterr.New(wterr.InvalidArgument, "target working tree is the primary tree")
			}
			tstatus, err := d.VCS.Status(ctx, targetPath)
			if err != nil {
				return unabsorbPrecheck{}, err
			}
			if tstatus != "" {
				return unabsorbPrecheck{}, wterr.New(wterr.DirtyWorktree, "target working tree must be clean: "+targetPath)
			}

			return unabsorbPrecheck{Branch: opts.Branch, TargetPath: targetPath}, nil
		},
		HookCtx: func(pre unabsorbPrecheck) (string, string, map[string]string) {
			return pre.Branch, pre.TargetPath, nil
		},
		Stash: func(ctx context.Context, pre unabsorbPrecheck) (bool, error) {
			return d.VCS.StashPush(ctx, d.RepoRoot, "wt unabsorb "+pre.Branch)
		},
		Restore: func(pre unabsorbPrecheck, didStash bool) func() error {
			if !didStash {
				return nil
			}
			return func() error { return d.VCS.StashPop(ctx, d.RepoRoot) }
		},
		RunVCS: func(ctx context.Context, pre unabsorbPrecheck) (Result, error) {
			if err := d.VCS.StashPop(ctx, pre.TargetPath); err != nil {
				return Result{}, wterr.Wrap(wterr.StashApplyFailed, "applying stash in target working tree", err)
			}
			return Result{Status: "ok", Path: pre.TargetPath, Branch: pre.Branch}, nil
		},
	}
	return Run(ctx, d, plan)
}
