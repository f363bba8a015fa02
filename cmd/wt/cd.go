package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vde-tools/worktree/internal/wterr"
	"github.com/vde-tools/worktree/internal/wtui"
)

var cdCmd = &cobra.Command{
	Use:   "cd [branch]",
	Short: "Print the path of a managed working tree, prompting interactively when branch is omitted",
	Args:  cobra.MaximumNArgs(1),
	ValidArgsFunction: branchCompletion,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildContext(cmd)
		if err != nil {
			fail(nil, "cd", err)
			return nil
		}
		snap, err := a.deps.Snapshot(a.ctx)
		if err != nil {
			fail(a, "cd", err)
			return nil
		}

		branch := ""
		if len(args) == 1 {
			branch = args[0]
		} else {
			branch, err = wtui.PickBranch(snap, "")
			if err != nil {
				if errors.Is(err, wtui.ErrPickerCancelled) {
					os.Exit(130)
				}
				fail(a, "cd", wterr.Wrap(wterr.InternalError, "running interactive picker", err))
				return nil
			}
		}

		for _, w := range snap.Worktrees {
			if w.Branch == branch {
				if jsonOutput {
					succeed(a, "cd", "ok", map[string]any{"path": w.Path, "branch": w.Branch})
					return nil
				}
				fmt.Println(a.displayPath(w.Path))
				return nil
			}
		}
		fail(a, "cd", wterr.New(wterr.WorktreeNotFound, "no managed working tree for branch: "+branch))
		return nil
	},
}
