package main

import (
	"github.com/spf13/cobra"

	"github.com/vde-tools/worktree/internal/pipeline"
)

var (
	extractPath  string
	extractStash bool
)

func init() {
	extractCmd.Flags().StringVar(&extractPath, "path", "", "override the derived working tree path")
	extractCmd.Flags().BoolVar(&extractStash, "stash", false, "stash the primary working tree's changes and reapply them in the new one")
}

var extractCmd = &cobra.Command{
	Use:   "extract <branch>",
	Short: "Carve the primary working tree's current work into a new branch and working tree",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildContext(cmd)
		if err != nil {
			fail(nil, "extract", err)
			return nil
		}
		res, err := pipeline.Extract(a.ctx, a.deps, pipeline.ExtractOptions{
			Branch: args[0], Path: extractPath, Stash: extractStash,
		})
		if err != nil {
			fail(a, "extract", err)
			return nil
		}
		succeed(a, "extract", res.Status, resultDetails(res))
		return nil
	},
}
