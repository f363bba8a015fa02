package main

import (
	"github.com/spf13/cobra"

	"github.com/vde-tools/worktree/internal/pipeline"
)

var newPath string

func init() {
	newCmd.Flags().StringVar(&newPath, "path", "", "override the derived working tree path")
}

var newCmd = &cobra.Command{
	Use:   "new <branch>",
	Short: "Create a new branch and an attached working tree for it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildContext(cmd)
		if err != nil {
			fail(nil, "new", err)
			return nil
		}
		res, err := pipeline.New(a.ctx, a.deps, pipeline.NewOptions{Branch: args[0], Path: newPath})
		if err != nil {
			fail(a, "new", err)
			return nil
		}
		succeed(a, "new", res.Status, resultDetails(res))
		return nil
	},
}
