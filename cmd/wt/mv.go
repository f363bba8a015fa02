package main

import (
	"github.com/spf13/cobra"

	"github.com/vde-tools/worktree/internal/pipeline"
)

var mvCmd = &cobra.Command{
	Use:   "mv <new-branch>",
	Short: "Rename the current working tree's branch and relocate its directory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildContext(cmd)
		if err != nil {
			fail(nil, "mv", err)
			return nil
		}
		res, err := pipeline.Mv(a.ctx, a.deps, a.cwd, pipeline.MvOptions{NewBranch: args[0]})
		if err != nil {
			fail(a, "mv", err)
			return nil
		}
		succeed(a, "mv", res.Status, resultDetails(res))
		return nil
	},
}
