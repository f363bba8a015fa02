package main

import (
	"github.com/spf13/cobra"

	"github.com/vde-tools/worktree/internal/pipeline"
)

var getPath string

func init() {
	getCmd.Flags().StringVar(&getPath, "path", "", "override the derived working tree path")
}

var getCmd = &cobra.Command{
	Use:   "get <remote>/<branch>",
	Short: "Fetch a remote branch and attach a working tree for it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildContext(cmd)
		if err != nil {
			fail(nil, "get", err)
			return nil
		}
		res, err := pipeline.Get(a.ctx, a.deps, pipeline.GetOptions{RemoteBranch: args[0], Path: getPath})
		if err != nil {
			fail(a, "get", err)
			return nil
		}
		succeed(a, "get", res.Status, resultDetails(res))
		return nil
	},
}
