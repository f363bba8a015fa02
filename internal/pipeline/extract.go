package pipeline

import (
	"context"

	"github.com/vde-tools/worktree/internal/lifecycle"
	"github.com/vde-tools/worktree/internal/pathid"
	"github.com/vde-tools/worktree/internal/wterr"
)

// ExtractOptions configures `wt extract`.
type ExtractOptions struct {
	Branch string // new branch to create
	Path   string // overrides the derived target path
	Stash  bool   // required when the primary tree is dirty
}

type extractPrecheck struct {
	Branch     string
	Path       string
	BaseBranch string
	Dirty      bool
	Stash      bool
}

// Extract carves the primary working tree's uncommitted/ahead work into a
// new branch and linked working tree, returning the primary tree to base.
// The new branch starts at the primary's HEAD, so commits ahead of base
// move with it; a dirty primary tree requires Stash.
func Extract(ctx context.Context, d *Deps, opts ExtractOptions) (Result, error) {
	plan := Plan[extractPrecheck, Result]{
		Action: "extract",
		Precheck: func(ctx context.Context) (extractPrecheck, error) {
			if opts.Branch == "" {
				return extractPrecheck{}, wterr.New(wterr.InvalidArgument, "branch is required")
			}
			if opts.Branch == d.BaseBranch {
				return extractPrecheck{}, wterr.New(wterr.InvalidArgument, "branch must differ from base branch")
			}
			cur, err := d.VCS.CurrentBranch(ctx, d.RepoRoot)
			if err != nil {
				return extractPrecheck{}, err
			}
			if cur == "" {
				return extractPrecheck{}, wterr.New(wterr.DetachedHead, "primary working tree is detached")
			}

			path := opts.Path
			if path == "" {
				p, err := pathid.BranchToWorktreePath(d.WorktreeRoot, opts.Branch)
				if err != nil {
					return extractPrecheck{}, err
				}
				path = p
			}
			if pathExists(path) {
				return extractPrecheck{}, wterr.New(wterr.TargetPathNotEmpty, "target path already exists: "+path)
			}

			status, err := d.VCS.Status(ctx, d.RepoRoot)
			if err != nil {
				return extractPrecheck{}, err
			}
			dirty := status != ""
			if dirty && !opts.Stash {
				return extractPrecheck{}, wterr.New(wterr.DirtyWorktree, "primary working tree is dirty; pass --stash")
			}

			return extractPrecheck{Branch: opts.Branch, Path: path, BaseBranch: d.BaseBranch, Dirty: dirty, Stash: opts.Stash && dirty}, nil
		},
		HookCtx: func(pre extractPrecheck) (string, string, map[string]string) {
			return pre.Branch, pre.Path, nil
		},
		Stash: func(ctx context.Context, pre extractPrecheck) (bool, error) {
			if !pre.Stash {
				return false, nil
			}
			return d.VCS.StashPush(ctx, d.RepoRoot, "wt extract "+pre.Branch)
		},
		Restore: func(pre extractPrecheck, didStash bool) func() error {
			if !didStash {
				return nil
			}
			return func() error { return d.VCS.StashPop(ctx, d.RepoRoot) }
		},
		RunVCS: func(ctx context.Context, pre extractPrecheck) (Result, error) {
			startPoint, err := d.VCS.Head(ctx, d.RepoRoot)
			if err != nil {
				return Result{}, err
			}
			if err := d.VCS.Checkout(ctx, d.RepoRoot, pre.BaseBranch, false); err != nil {
				return Result{}, err
			}
			if err := d.VCS.AddWorktree(ctx, d.RepoRoot, pre.Path, pre.Branch, startPoint, true); err != nil {
				return Result{}, err
			}
			if pre.Stash {
				if err := d.VCS.StashPop(ctx, pre.Path); err != nil {
					return Result{}, wterr.Wrap(wterr.StashApplyFailed, "reapplying stash in new working tree", err)
				}
			}
			return Result{Status: "created", Path: pre.Path, Branch: pre.Branch}, nil
		},
		Finalize: func(ctx context.Context, pre extractPrecheck, res Result) error {
			_, err := lifecycle.Upsert(d.RepoRoot, pre.Branch, pre.BaseBranch, nil, d.now())
			return err
		},
	}
	return Run(ctx, d, plan)
}
