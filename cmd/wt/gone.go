package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vde-tools/worktree/internal/pathid"
	"github.com/vde-tools/worktree/internal/pipeline"
	"github.com/vde-tools/worktree/internal/snapshot"
)

var (
	goneApply   bool
	goneVerbose bool
)

func init() {
	goneCmd.Flags().BoolVar(&goneApply, "apply", false, "delete every eligible working tree instead of only listing them")
	goneCmd.Flags().BoolVar(&goneVerbose, "verbose", false, "report why each non-eligible working tree was skipped")
}

var goneCmd = &cobra.Command{
	Use:   "gone",
	Short: "List (or delete) managed working trees whose branch is merged, clean, and unlocked",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildContext(cmd)
		if err != nil {
			fail(nil, "gone", err)
			return nil
		}

		candidates, results, err := pipeline.Gone(a.ctx, a.deps, pipeline.GoneOptions{Apply: goneApply})
		if err != nil {
			fail(a, "gone", err)
			return nil
		}

		var skipped []goneSkipReason
		if goneVerbose {
			skipped, err = goneSkipReasons(a)
			if err != nil {
				fail(a, "gone", err)
				return nil
			}
		}

		if jsonOutput {
			cand := make([]map[string]any, len(candidates))
			for i, c := range candidates {
				cand[i] = map[string]any{"branch": c.Branch, "path": a.displayPath(c.Path)}
			}
			details := map[string]any{"candidates": cand, "applied": goneApply}
			if results != nil {
				res := make([]map[string]any, len(results))
				for i, r := range results {
					res[i] = resultDetails(r)
				}
				details["results"] = res
			}
			if goneVerbose {
				sk := make([]map[string]any, len(skipped))
				for i, s := range skipped {
					sk[i] = map[string]any{"branch": s.Branch, "reason": s.Reason}
				}
				details["skipped"] = sk
			}
			succeed(a, "gone", "ok", details)
			return nil
		}

		if len(candidates) == 0 {
			fmt.Println("no eligible working trees")
		}
		for _, c := range candidates {
			verb := "would delete"
			if goneApply {
				verb = "deleted"
			}
			fmt.Printf("%s %s (%s)\n", verb, c.Branch, a.displayPath(c.Path))
		}
		if goneVerbose {
			for _, s := range skipped {
				fmt.Printf("skipped %s: %s\n", s.Branch, s.Reason)
			}
		}
		return nil
	},
}

type goneSkipReason struct {
	Branch string
	Reason string
}

// goneSkipReasons re-derives, per non-primary managed working tree, why
// `gone` would not touch it -- the dirty/locked/merged ordering Gone's own
// candidate filter applies, reported here instead of silently discarded.
func goneSkipReasons(a *appContext) ([]goneSkipReason, error) {
	snap, err := a.deps.Snapshot(a.ctx)
	if err != nil {
		return nil, err
	}
	var out []goneSkipReason
	for _, w := range snap.Worktrees {
		if sameDir(w.Path, a.repoRoot) || pathid.EnsurePathInsideRoot(a.deps.WorktreeRoot, w.Path) != nil {
			continue
		}
		reason := skipReasonFor(w)
		if reason != "" {
			out = append(out, goneSkipReason{Branch: w.Branch, Reason: reason})
		}
	}
	return out, nil
}

func skipReasonFor(w snapshot.Status) string {
	switch {
	case w.Branch == "":
		return "detached HEAD"
	case w.Dirty:
		return "uncommitted changes"
	case w.Lock.Value:
		return "advisory lock held"
	case w.Merged.Overall == nil:
		return "merge status unknown"
	case !*w.Merged.Overall:
		return "not merged into base"
	default:
		return ""
	}
}
