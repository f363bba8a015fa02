package pipeline

import (
	"context"

	"github.com/vde-tools/worktree/internal/lifecycle"
	"github.com/vde-tools/worktree/internal/pathid"
	"github.com/vde-tools/worktree/internal/wterr"
)

// NewOptions configures `wt new`.
type NewOptions struct {
	Branch string
	Path   string // overrides the derived path when set
}

type newPrecheck struct {
	Branch     string
	Path       string
	BaseBranch string
}

// New creates a fresh branch and an attached working tree for it, branching
// from the configured base branch.
func New(ctx context.Context, d *Deps, opts NewOptions) (Result, error) {
	plan := Plan[newPrecheck, Result]{
		Action: "new",
		Precheck: func(ctx context.Context) (newPrecheck, error) {
			if opts.Branch == "" {
				return newPrecheck{}, wterr.New(wterr.InvalidArgument, "branch is required")
			}
			snap, err := d.Snapshot(ctx)
			if err != nil {
				return newPrecheck{}, err
			}
			if _, found := findWorktree(snap, opts.Branch); found {
				return newPrecheck{}, wterr.New(wterr.BranchAlreadyAttached, "branch already attached: "+opts.Branch)
			}
			if d.VCS.RefExists(ctx, d.RepoRoot, "refs/heads/"+opts.Branch) {
				return newPrecheck{}, wterr.New(wterr.BranchAlreadyExists, "branch already exists: "+opts.Branch)
			}

			path := opts.Path
			if path == "" {
				p, err := pathid.BranchToWorktreePath(d.WorktreeRoot, opts.Branch)
				if err != nil {
					return newPrecheck{}, err
				}
				path = p
			}
			if pathExists(path) {
				return newPrecheck{}, wterr.New(wterr.TargetPathNotEmpty, "target path already exists: "+path)
			}
			if !d.VCS.RefExists(ctx, d.RepoRoot, d.BaseBranch) {
				return newPrecheck{}, wterr.New(wterr.InvalidArgument, "base branch not resolvable: "+d.BaseBranch)
			}
			return newPrecheck{Branch: opts.Branch, Path: path, BaseBranch: d.BaseBranch}, nil
		},
		HookCtx: func(pre newPrecheck) (string, string, map[string]string) {
			return pre.Branch, pre.Path, nil
		},
		RunVCS: func(ctx context.Context, pre newPrecheck) (Result, error) {
			if err := d.VCS.AddWorktree(ctx, d.RepoRoot, pre.Path, pre.Branch, pre.BaseBranch, true); err != nil {
				return Result{}, err
			}
			return Result{Status: "created", Path: pre.Path, Branch: pre.Branch}, nil
		},
		Finalize: func(ctx context.Context, pre newPrecheck, res Result) error {
			_, err := lifecycle.Upsert(d.RepoRoot, pre.Branch, pre.BaseBranch, nil, d.now())
			return err
		},
	}
	return Run(ctx, d, plan)
}
