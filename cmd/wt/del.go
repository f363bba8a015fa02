package main

import (
	"github.com/spf13/cobra"

	"github.com/vde-tools/worktree/internal/pipeline"
)

var (
	delPath          string
	delForce         bool
	delForceDirty    bool
	delAllowUnpushed bool
	delForceUnmerged bool
	delForceLocked   bool
)

func init() {
	delCmd.Flags().StringVar(&delPath, "path", "", "select the working tree by path instead of branch")
	delCmd.Flags().BoolVar(&delForce, "force", false, "override every safety check (dirty, locked, unmerged, unpushed)")
	delCmd.Flags().BoolVar(&delForceDirty, "force-dirty", false, "delete despite uncommitted changes")
	delCmd.Flags().BoolVar(&delAllowUnpushed, "allow-unpushed", false, "delete despite unpushed commits")
	delCmd.Flags().BoolVar(&delForceUnmerged, "force-unmerged", false, "delete despite the branch not being merged")
	delCmd.Flags().BoolVar(&delForceLocked, "force-locked", false, "delete despite an advisory lock")
}

var delCmd = &cobra.Command{
	Use:   "del [branch]",
	Short: "Delete a managed working tree and its branch",
	Args:  cobra.MaximumNArgs(1),
	ValidArgsFunction: branchCompletion,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildContext(cmd)
		if err != nil {
			fail(nil, "del", err)
			return nil
		}
		var branch string
		if len(args) == 1 {
			branch = args[0]
		}
		res, err := pipeline.Del(a.ctx, a.deps, pipeline.DelOptions{
			Branch:        branch,
			Path:          delPath,
			Force:         delForce,
			ForceDirty:    delForceDirty,
			AllowUnpushed: delAllowUnpushed,
			ForceUnmerged: delForceUnmerged,
			ForceLocked:   delForceLocked,
		})
		if err != nil {
			fail(a, "del", err)
			return nil
		}
		succeed(a, "del", res.Status, resultDetails(res))
		return nil
	},
}
