package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vde-tools/worktree/internal/pipeline"
)

var adoptApply bool

func init() {
	adoptCmd.Flags().BoolVar(&adoptApply, "apply", false, "relocate every eligible working tree instead of only listing them")
}

var adoptCmd = &cobra.Command{
	Use:   "adopt",
	Short: "Move unmanaged linked working trees under the managed root",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildContext(cmd)
		if err != nil {
			fail(nil, "adopt", err)
			return nil
		}
		candidates, results, err := pipeline.Adopt(a.ctx, a.deps, pipeline.AdoptOptions{Apply: adoptApply})
		if err != nil {
			fail(a, "adopt", err)
			return nil
		}
		if jsonOutput {
			cand := make([]map[string]any, len(candidates))
			for i, c := range candidates {
				cand[i] = map[string]any{
					"branch":  c.Branch,
					"oldPath": a.displayPath(c.OldPath),
					"newPath": a.displayPath(c.NewPath),
				}
			}
			details := map[string]any{"candidates": cand, "applied": adoptApply}
			if results != nil {
				res := make([]map[string]any, len(results))
				for i, r := range results {
					res[i] = resultDetails(r)
				}
				details["results"] = res
			}
			succeed(a, "adopt", "ok", details)
			return nil
		}
		if len(candidates) == 0 {
			fmt.Println("no eligible working trees")
		}
		for _, c := range candidates {
			verb := "would adopt"
			if adoptApply {
				verb = "adopted"
			}
			fmt.Printf("%s %s (%s -> %s)\n", verb, c.Branch, a.displayPath(c.OldPath), a.displayPath(c.NewPath))
		}
		return nil
	},
}
