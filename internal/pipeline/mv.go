package pipeline

import (
	"context"

	"github.com/vde-tools/worktree/internal/lifecycle"
	"github.com/vde-tools/worktree/internal/pathid"
	"github.com/vde-tools/worktree/internal/wterr"
)

// MvOptions configures `wt mv`.
type MvOptions struct {
	NewBranch string
}

type mvPrecheck struct {
	OldBranch string
	NewBranch string
	OldPath   string
	NewPath   string
}

// Mv renames the current working tree's branch and relocates its directory
// to match. Must be run from inside a non-primary,
// non-detached linked working tree.
func Mv(ctx context.Context, d *Deps, cwd string, opts MvOptions) (Result, error) {
	plan := Plan[mvPrecheck, Result]{
		Action: "mv",
		Precheck: func(ctx context.Context) (mvPrecheck, error) {
			if opts.NewBranch == "" {
				return mvPrecheck{}, wterr.New(wterr.InvalidArgument, "new branch name is required")
			}
			snap, err := d.Snapshot(ctx)
			if err != nil {
				return mvPrecheck{}, err
			}
			cur, found := findWorktreeByPath(snap, cwd)
			if !found {
				return mvPrecheck{}, wterr.New(wterr.WorktreeNotFound, "current directory is not inside a managed working tree")
			}
			if isPrimary(d, cur.Path) {
				return mvPrecheck{}, wterr.New(wterr.InvalidArgument, "cannot mv the primary working tree")
			}
			if cur.Branch == "" {
				return mvPrecheck{}, wterr.New(wterr.DetachedHead, "current working tree is detached")
			}
			if _, found := findWorktree(snap, opts.NewBranch); found {
				return mvPrecheck{}, wterr.New(wterr.BranchAlreadyAttached, "branch already attached: "+opts.NewBranch)
			}
			newPath, err := pathid.BranchToWorktreePath(d.WorktreeRoot, opts.NewBranch)
			if err != nil {
				return mvPrecheck{}, err
			}
			if pathExists(newPath) {
				return mvPrecheck{}, wterr.New(wterr.TargetPathNotEmpty, "target path already exists: "+newPath)
			}
			return mvPrecheck{OldBranch: cur.Branch, NewBranch: opts.NewBranch, OldPath: cur.Path, NewPath: newPath}, nil
		},
		HookCtx: func(pre mvPrecheck) (string, string, map[string]string) {
			return pre.OldBranch, pre.OldPath, map[string]string{"new_branch": pre.NewBranch, "new_path": pre.NewPath}
		},
		RunVCS: func(ctx context.Context, pre mvPrecheck) (Result, error) {
			if err := d.VCS.RenameBranch(ctx, pre.OldPath, pre.OldBranch, pre.NewBranch); err != nil {
				return Result{}, err
			}
			if err := d.VCS.MoveWorktree(ctx, d.RepoRoot, pre.OldPath, pre.NewPath); err != nil {
				return Result{}, err
			}
			return Result{Status: "ok", Path: pre.NewPath, Branch: pre.NewBranch}, nil
		},
		Finalize: func(ctx context.Context, pre mvPrecheck, res Result) error {
			return lifecycle.Move(d.RepoRoot, pre.OldBranch, pre.NewBranch, d.now())
		},
	}
	return Run(ctx, d, plan)
}
