package pipeline

import (
	"context"

	"github.com/vde-tools/worktree/internal/wterr"
)

// UseOptions configures `wt use`.
type UseOptions struct {
	Branch      string
	AllowShared bool // required when Branch is already attached to another working tree
}

type usePrecheck struct {
	Branch               string
	IgnoreOtherWorktrees bool
}

// Use checks the primary working tree out onto Branch directly, without
// creating a linked working tree. Requires the primary
// tree to be clean; checking out a branch attached elsewhere requires
// AllowShared.
func Use(ctx context.Context, d *Deps, opts UseOptions) (Result, error) {
	plan := Plan[usePrecheck, Result]{
		Action: "use",
		Precheck: func(ctx context.Context) (usePrecheck, error) {
			if opts.Branch == "" {
				return usePrecheck{}, wterr.New(wterr.InvalidArgument, "branch is required")
			}
			status, err := d.VCS.Status(ctx, d.RepoRoot)
			if err != nil {
				return usePrecheck{}, err
			}
			if status != "" {
				return usePrecheck{}, wterr.New(wterr.DirtyWorktree, "primary working tree must be clean before use")
			}

			snap, err := d.Snapshot(ctx)
			if err != nil {
				return usePrecheck{}, err
			}
			if w, found := findWorktree(snap, opts.Branch); found && !isPrimary(d, w.Path) {
				if !opts.AllowShared {
					return usePrecheck{}, wterr.New(wterr.BranchInUse, "branch is attached elsewhere; pass --allow-shared: "+opts.Branch)
				}
				return usePrecheck{Branch: opts.Branch, IgnoreOtherWorktrees: true}, nil
			}
			return usePrecheck{Branch: opts.Branch}, nil
		},
		HookCtx: func(pre usePrecheck) (string, string, map[string]string) {
			return pre.Branch, d.RepoRoot, nil
		},
		RunVCS: func(ctx context.Context, pre usePrecheck) (Result, error) {
			if err := d.VCS.Checkout(ctx, d.RepoRoot, pre.Branch, pre.IgnoreOtherWorktrees); err != nil {
				return Result{}, err
			}
			return Result{Status: "ok", Path: d.RepoRoot, Branch: pre.Branch}, nil
		},
	}
	return Run(ctx, d, plan)
}
