package pipeline

import (
	"context"
	"sort"
)

// GoneOptions configures `wt gone`.
type GoneOptions struct {
	Apply bool // false = dry-run (list candidates only)
}

// GoneCandidate is one branch eligible for cleanup.
type GoneCandidate struct {
	Branch string
	Path   string
}

// Gone enumerates managed, non-primary, clean, unlocked, merged working
// trees and (when Apply is set) deletes each one in turn. Each deletion
// runs its own full mutation-pipeline cycle so a
// failure partway through still leaves prior deletions committed and later
// ones untouched.
func Gone(ctx context.Context, d *Deps, opts GoneOptions) ([]GoneCandidate, []Result, error) {
	snap, err := d.Snapshot(ctx)
	if err != nil {
		return nil, nil, err
	}

	var candidates []GoneCandidate
	for _, w := range snap.Worktrees {
		if isPrimary(d, w.Path) || !isManaged(d, w.Path) {
			continue
		}
		if w.Branch == "" || w.Dirty || w.Lock.Value {
			continue
		}
		if w.Merged.Overall == nil || !*w.Merged.Overall {
			continue
		}
		candidates = append(candidates, GoneCandidate{Branch: w.Branch, Path: w.Path})
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].Path < candidates[j].Path })

	if !opts.Apply {
		return candidates, nil, nil
	}

	results := make([]Result, 0, len(candidates))
	for _, c := range candidates {
		// Candidate selection already enforced clean/unlocked/merged; a
		// merged branch's local push status is irrelevant to "gone".
		res, err := Del(ctx, d, DelOptions{Branch: c.Branch, Path: c.Path, AllowUnpushed: true})
		if err != nil {
			return candidates, results, err
		}
		results = append(results, res)
	}
	return candidates, results, nil
}
