package pipeline

import (
	"context"

	"github.com/vde-tools/worktree/internal/lifecycle"
	"github.com/vde-tools/worktree/internal/pathid"
	"github.com/vde-tools/worktree/internal/wterr"
)

// SwitchOptions configures `wt switch`.
type SwitchOptions struct {
	Branch string
	Path   string
}

type switchPrecheck struct {
	Branch     string
	Path       string
	BaseBranch string
	Existing   bool // branch is already attached somewhere
	LocalRef   bool // a local ref for Branch already exists
}

// Switch attaches (creating if necessary) a working tree for Branch,
// returning `existing` without mutation when it is already attached (spec
// §4.10 `switch`).
func Switch(ctx context.Context, d *Deps, opts SwitchOptions) (Result, error) {
	plan := Plan[switchPrecheck, Result]{
		Action: "switch",
		Precheck: func(ctx context.Context) (switchPrecheck, error) {
			if opts.Branch == "" {
				return switchPrecheck{}, wterr.New(wterr.InvalidArgument, "branch is required")
			}
			snap, err := d.Snapshot(ctx)
			if err != nil {
				return switchPrecheck{}, err
			}
			if existing, found := findWorktree(snap, opts.Branch); found {
				return switchPrecheck{Branch: opts.Branch, Path: existing.Path, BaseBranch: d.BaseBranch, Existing: true}, nil
			}

			path := opts.Path
			if path == "" {
				p, err := pathid.BranchToWorktreePath(d.WorktreeRoot, opts.Branch)
				if err != nil {
					return switchPrecheck{}, err
				}
				path = p
			}
			if pathExists(path) {
				return switchPrecheck{}, wterr.New(wterr.TargetPathNotEmpty, "target path already exists: "+path)
			}
			localRef := d.VCS.RefExists(ctx, d.RepoRoot, "refs/heads/"+opts.Branch)
			if !localRef && !d.VCS.RefExists(ctx, d.RepoRoot, d.BaseBranch) {
				return switchPrecheck{}, wterr.New(wterr.InvalidArgument, "base branch not resolvable: "+d.BaseBranch)
			}
			return switchPrecheck{Branch: opts.Branch, Path: path, BaseBranch: d.BaseBranch, LocalRef: localRef}, nil
		},
		HookCtx: func(pre switchPrecheck) (string, string, map[string]string) {
			return pre.Branch, pre.Path, nil
		},
		RunVCS: func(ctx context.Context, pre switchPrecheck) (Result, error) {
			if pre.Existing {
				return Result{Status: "existing", Path: pre.Path, Branch: pre.Branch}, nil
			}
			if err := d.VCS.AddWorktree(ctx, d.RepoRoot, pre.Path, pre.Branch, pre.BaseBranch, !pre.LocalRef); err != nil {
				return Result{}, err
			}
			return Result{Status: "created", Path: pre.Path, Branch: pre.Branch}, nil
		},
		Finalize: func(ctx context.Context, pre switchPrecheck, res Result) error {
			_, err := lifecycle.Upsert(d.RepoRoot, pre.Branch, pre.BaseBranch, nil, d.now())
			return err
		},
	}
	return Run(ctx, d, plan)
}
