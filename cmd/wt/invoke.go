package main

import (
	"github.com/spf13/cobra"

	"github.com/vde-tools/worktree/internal/hooks"
)

var invokePhase string

func init() {
	invokeCmd.Flags().StringVar(&invokePhase, "phase", "pre", "which hook phase to run: pre or post")
}

var invokeCmd = &cobra.Command{
	Use:   "invoke <action> [branch]",
	Short: "Explicitly run a hook script, failing if it is missing",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildContext(cmd)
		if err != nil {
			fail(nil, "invoke", err)
			return nil
		}
		action := args[0]
		var branch, path string
		if len(args) == 2 {
			branch = args[1]
			snap, err := a.deps.Snapshot(a.ctx)
			if err != nil {
				fail(a, "invoke", err)
				return nil
			}
			for _, w := range snap.Worktrees {
				if w.Branch == branch {
					path = w.Path
					break
				}
			}
		}
		if path == "" {
			path = a.repoRoot
		}

		inv := hooks.Invocation{
			Phase: invokePhase, Action: action, RepoRoot: a.repoRoot,
			Branch: branch, WorktreePath: path, IsTTY: a.deps.IsTTY,
			Timeout: a.deps.HookTimeout, Explicit: true, Strict: true,
		}
		if err := a.deps.Hooks.Run(a.ctx, inv); err != nil {
			fail(a, "invoke", err)
			return nil
		}
		succeed(a, "invoke", "ok", map[string]any{"action": action, "phase": invokePhase, "branch": branch})
		return nil
	},
}
