package pipeline

import (
	"context"

	"github.com/vde-tools/worktree/internal/wterr"
)

// AbsorbOptions configures `wt absorb`.
type AbsorbOptions struct {
	Branch string // source branch to pull into the primary tree
	From   string // overrides the source working-tree path lookup
}

type absorbPrecheck struct {
	Branch      string
	SourcePath  string
	SourceDirty bool
}

type absorbSource struct {
	Path  string
	Dirty bool
}

// Absorb applies a linked working tree's branch (stashing its changes if
// dirty) onto the primary working tree, leaving the primary on Branch
//. Requires the primary tree to be clean.
func Absorb(ctx context.Context, d *Deps, opts AbsorbOptions) (Result, error) {
	plan := Plan[absorbPrecheck, Result]{
		Action: "absorb",
		Precheck: func(ctx context.Context) (absorbPrecheck, error) {
			if opts.Branch == "" {
				return absorbPrecheck{}, wterr.New(wterr.InvalidArgument, "branch is required")
			}
			status, err := d.VCS.Status(ctx, d.RepoRoot)
			if err != nil {
				return absorbPrecheck{}, err
			}
			if status != "" {
				return absorbPrecheck{}, wterr.New(wterr.DirtyWorktree, "primary working tree must be clean before absorb")
			}

			snap, err := d.Snapshot(ctx)
			if err != nil {
				return absorbPrecheck{}, err
			}
			var source *absorbSource
			if opts.From != "" {
				if w, found := findWorktreeByPath(snap, opts.From); found && w.Branch == opts.Branch {
					source = &absorbSource{Path: w.Path, Dirty: w.Dirty}
				}
			} else if w, found := findWorktree(snap, opts.Branch); found {
				source = &absorbSource{Path: w.Path, Dirty: w.Dirty}
			}
			if source == nil {
				return absorbPrecheck{}, wterr.New(wterr.WorktreeNotFound, "no managed working tree found for branch: "+opts.Branch)
			}
			if isPrimary(d, source.Path) {
				return absorbPrecheck{}, wterr.New(wterr.InvalidArgument, "source working tree is the primary tree")
			}

			return absorbPrecheck{Branch: opts.Branch, SourcePath: source.Path, SourceDirty: source.Dirty}, nil
		},
		HookCtx: func(pre absorbPrecheck) (string, string, map[string]string) {
			return pre.Branch, pre.SourcePath, nil
		},
		Stash: func(ctx context.Context, pre absorbPrecheck) (bool, error) {
			if !pre.SourceDirty {
				return false, nil
			}
			return d.VCS.StashPush(ctx, pre.SourcePath, "wt absorb "+pre.Branch)
		},
		Restore: func(pre absorbPrecheck, didStash bool) func() error {
			if !didStash {
				return nil
			}
			return func() error { return d.VCS.StashPop(ctx, pre.SourcePath) }
		},
		RunVCS: func(ctx context.Context, pre absorbPrecheck) (Result, error) {
			if err := d.VCS.Checkout(ctx, d.RepoRoot, pre.Branch, true); err != nil {
				return Result{}, err
			}
			if pre.SourceDirty {
				if err := d.VCS.StashPop(ctx, d.RepoRoot); err != nil {
					return Result{}, wterr.Wrap(wterr.StashApplyFailed, "applying absorbed stash in primary tree", err)
				}
			}
			return Result{Status: "ok", Path: d.RepoRoot, Branch: pre.Branch}, nil
		},
	}
	return Run(ctx, d, plan)
}
