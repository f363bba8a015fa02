package main

import (
	"github.com/spf13/cobra"

	"github.com/vde-tools/worktree/internal/wterr"
)

var pathCmd = &cobra.Command{
	Use:   "path <branch>",
	Short: "Print the filesystem path of a managed working tree",
	Args:  cobra.ExactArgs(1),
	ValidArgsFunction: branchCompletion,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildContext(cmd)
		if err != nil {
			fail(nil, "path", err)
			return nil
		}
		snap, err := a.deps.Snapshot(a.ctx)
		if err != nil {
			fail(a, "path", err)
			return nil
		}
		for _, w := range snap.Worktrees {
			if w.Branch == args[0] {
				succeed(a, "path", "ok", map[string]any{"path": w.Path, "branch": w.Branch})
				return nil
			}
		}
		fail(a, "path", wterr.New(wterr.WorktreeNotFound, "no managed working tree for branch: "+args[0]))
		return nil
	},
}
