package pipeline

import (
	"context"
	"sort"

	"github.com/vde-tools/worktree/internal/pathid"
)

// AdoptOptions configures `wt adopt`.
type AdoptOptions struct {
	Apply bool // false = dry-run (list candidates only)
}

// AdoptCandidate is one unmanaged linked working tree eligible to be moved
// under the managed root.
type AdoptCandidate struct {
	Branch  string
	OldPath string
	NewPath string
}

// Adopt relocates linked working trees that exist outside the managed root
// into it, skipping detached, locked, and name-colliding trees.
// Candidates are visited in ascending path order for determinism.
func Adopt(ctx context.Context, d *Deps, opts AdoptOptions) ([]AdoptCandidate, []Result, error) {
	snap, err := d.Snapshot(ctx)
	if err != nil {
		return nil, nil, err
	}

	var candidates []AdoptCandidate
	for _, w := range snap.Worktrees {
		if isPrimary(d, w.Path) || isManaged(d, w.Path) {
			continue
		}
		if w.Branch == "" || w.Lock.Value {
			continue
		}
		newPath, err := pathid.BranchToWorktreePath(d.WorktreeRoot, w.Branch)
		if err != nil || pathExists(newPath) {
			continue
		}
		candidates = append(candidates, AdoptCandidate{Branch: w.Branch, OldPath: w.Path, NewPath: newPath})
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].OldPath < candidates[j].OldPath })

	if !opts.Apply {
		return candidates, nil, nil
	}

	results := make([]Result, 0, len(candidates))
	for _, c := range candidates {
		plan := Plan[AdoptCandidate, Result]{
			Action:   "adopt",
			Precheck: func(ctx context.Context) (AdoptCandidate, error) { return c, nil },
			HookCtx: func(pre AdoptCandidate) (string, string, map[string]string) {
				return pre.Branch, pre.OldPath, map[string]string{"new_path": pre.NewPath}
			},
			RunVCS: func(ctx context.Context, pre AdoptCandidate) (Result, error) {
				if err := d.VCS.MoveWorktree(ctx, d.RepoRoot, pre.OldPath, pre.NewPath); err != nil {
					return Result{}, err
				}
				return Result{Status: "ok", Path: pre.NewPath, Branch: pre.Branch}, nil
			},
		}
		res, err := Run(ctx, d, plan)
		if err != nil {
			return candidates, results, err
		}
		results = append(results, res)
	}
	return candidates, results, nil
}
