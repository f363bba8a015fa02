package main

import (
	"github.com/spf13/cobra"

	"github.com/vde-tools/worktree/internal/pipeline"
)

var unabsorbTo string

func init() {
	unabsorbCmd.Flags().StringVar(&unabsorbTo, "to", "", "select the target working tree by path instead of branch lookup")
}

var unabsorbCmd = &cobra.Command{
	Use:   "unabsorb <branch>",
	Short: "Push the primary working tree's current changes onto a linked working tree",
	Args:  cobra.ExactArgs(1),
	ValidArgsFunction: branchCompletion,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildContext(cmd)
		if err != nil {
			fail(nil, "unabsorb", err)
			return nil
		}
		res, err := pipeline.Unabsorb(a.ctx, a.deps, pipeline.UnabsorbOptions{Branch: args[0], To: unabsorbTo})
		if err != nil {
			fail(a, "unabsorb", err)
			return nil
		}
		succeed(a, "unabsorb", res.Status, resultDetails(res))
		return nil
	},
}
