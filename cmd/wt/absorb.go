package main

import (
	"github.com/spf13/cobra"

	"github.com/vde-tools/worktree/internal/pipeline"
)

var absorbFrom string

func init() {
	absorbCmd.Flags().StringVar(&absorbFrom, "from", "", "select the source working tree by path instead of branch lookup")
}

var absorbCmd = &cobra.Command{
	Use:   "absorb <branch>",
	Short: "Pull a linked working tree's branch into the primary working tree",
	Args:  cobra.ExactArgs(1),
	ValidArgsFunction: branchCompletion,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildContext(cmd)
		if err != nil {
			fail(nil, "absorb", err)
			return nil
		}
		res, err := pipeline.Absorb(a.ctx, a.deps, pipeline.AbsorbOptions{Branch: args[0], From: absorbFrom})
		if err != nil {
			fail(a, "absorb", err)
			return nil
		}
		succeed(a, "absorb", res.Status, resultDetails(res))
		return nil
	},
}
