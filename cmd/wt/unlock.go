package main

import (
	"github.com/spf13/cobra"

	"github.com/vde-tools/worktree/internal/lockrecord"
	"github.com/vde-tools/worktree/internal/repolock"
)

var unlockCmd = &cobra.Command{
	Use:   "unlock <branch>",
	Short: "Clear a branch's advisory lock",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildContext(cmd)
		if err != nil {
			fail(nil, "unlock", err)
			return nil
		}
		branch := args[0]

		lockOpts := repolock.Options{
			RepoRoot: a.repoRoot, SentinelPath: a.deps.SentinelPath, Command: "unlock",
			TimeoutMs: a.deps.LockTimeoutMs, StaleTTLSecs: a.deps.StaleLockTTLSecs,
		}
		runErr := repolock.WithRepoLock(a.ctx, lockOpts, func() error {
			return lockrecord.Delete(a.repoRoot, branch)
		})
		if runErr != nil {
			fail(a, "unlock", runErr)
			return nil
		}
		succeed(a, "unlock", "ok", map[string]any{"branch": branch})
		return nil
	},
}
