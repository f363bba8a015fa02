package main

import (
	"github.com/spf13/cobra"

	"github.com/vde-tools/worktree/internal/pipeline"
)

var useAllowShared bool

func init() {
	useCmd.Flags().BoolVar(&useAllowShared, "allow-shared", false, "permit checking out a branch that is already attached elsewhere")
}

var useCmd = &cobra.Command{
	Use:   "use <branch>",
	Short: "Check the primary working tree out onto a branch directly",
	Args:  cobra.ExactArgs(1),
	ValidArgsFunction: branchCompletion,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildContext(cmd)
		if err != nil {
			fail(nil, "use", err)
			return nil
		}
		res, err := pipeline.Use(a.ctx, a.deps, pipeline.UseOptions{Branch: args[0], AllowShared: useAllowShared})
		if err != nil {
			fail(a, "use", err)
			return nil
		}
		succeed(a, "use", res.Status, resultDetails(res))
		return nil
	},
}
