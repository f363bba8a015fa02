package pipeline

import (
	"context"

	"github.com/vde-tools/worktree/internal/lifecycle"
	"github.com/vde-tools/worktree/internal/pathid"
	"github.com/vde-tools/worktree/internal/wterr"
)

// GetOptions configures `wt get`.
type GetOptions struct {
	RemoteBranch string // "<remote>/<branch>"
	Path         string
}

type getPrecheck struct {
	Remote   string
	Branch   string
	Path     string
	Existing bool
	LocalRef bool
}

// Get fetches a remote branch and attaches a working tree for it, creating
// a local tracking branch when none exists yet.
func Get(ctx context.Context, d *Deps, opts GetOptions) (Result, error) {
	plan := Plan[getPrecheck, Result]{
		Action: "get",
		Precheck: func(ctx context.Context) (getPrecheck, error) {
			remote, branch, err := parseRemoteBranch(opts.RemoteBranch)
			if err != nil {
				return getPrecheck{}, err
			}
			if !d.VCS.RemoteExists(ctx, d.RepoRoot, remote) {
				return getPrecheck{}, wterr.New(wterr.RemoteNotFound, "remote not found: "+remote)
			}

			snap, err := d.Snapshot(ctx)
			if err != nil {
				return getPrecheck{}, err
			}
			if existing, found := findWorktree(snap, branch); found {
				return getPrecheck{Remote: remote, Branch: branch, Path: existing.Path, Existing: true}, nil
			}

			path := opts.Path
			if path == "" {
				p, err := pathid.BranchToWorktreePath(d.WorktreeRoot, branch)
				if err != nil {
					return getPrecheck{}, err
				}
				path = p
			}
			if pathExists(path) {
				return getPrecheck{}, wterr.New(wterr.TargetPathNotEmpty, "target path already exists: "+path)
			}
			localRef := d.VCS.RefExists(ctx, d.RepoRoot, "refs/heads/"+branch)
			return getPrecheck{Remote: remote, Branch: branch, Path: path, LocalRef: localRef}, nil
		},
		HookCtx: func(pre getPrecheck) (string, string, map[string]string) {
			return pre.Branch, pre.Path, map[string]string{"remote": pre.Remote}
		},
		RunVCS: func(ctx context.Context, pre getPrecheck) (Result, error) {
			if err := d.VCS.FetchBranch(ctx, d.RepoRoot, pre.Remote, pre.Branch); err != nil {
				return Result{}, err
			}
			if !pre.LocalRef {
				remoteRef := pre.Remote + "/" + pre.Branch
				if !d.VCS.RefExists(ctx, d.RepoRoot, "refs/remotes/"+remoteRef) {
					return Result{}, wterr.New(wterr.RemoteBranchNotFound, "remote branch not found after fetch: "+remoteRef)
				}
				if err := d.VCS.CreateTrackingBranch(ctx, d.RepoRoot, pre.Branch, remoteRef); err != nil {
					return Result{}, err
				}
			}
			if pre.Existing {
				return Result{Status: "existing", Path: pre.Path, Branch: pre.Branch}, nil
			}
			if err := d.VCS.AddWorktree(ctx, d.RepoRoot, pre.Path, pre.Branch, "", false); err != nil {
				return Result{}, err
			}
			return Result{Status: "created", Path: pre.Path, Branch: pre.Branch}, nil
		},
		Finalize: func(ctx context.Context, pre getPrecheck, res Result) error {
			_, err := lifecycle.Upsert(d.RepoRoot, pre.Branch, d.BaseBranch, nil, d.now())
			return err
		},
	}
	return Run(ctx, d, plan)
}
