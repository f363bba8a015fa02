package main

import (
	"github.com/spf13/cobra"

	"github.com/vde-tools/worktree/internal/pipeline"
)

var switchPath string

func init() {
	switchCmd.Flags().StringVar(&switchPath, "path", "", "override the derived working tree path")
}

var switchCmd = &cobra.Command{
	Use:   "switch <branch>",
	Short: "Attach a working tree for a branch, creating it if necessary",
	Args:  cobra.ExactArgs(1),
	ValidArgsFunction: branchCompletion,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildContext(cmd)
		if err != nil {
			fail(nil, "switch", err)
			return nil
		}
		res, err := pipeline.Switch(a.ctx, a.deps, pipeline.SwitchOptions{Branch: args[0], Path: switchPath})
		if err != nil {
			fail(a, "switch", err)
			return nil
		}
		succeed(a, "switch", res.Status, resultDetails(res))
		return nil
	},
}
