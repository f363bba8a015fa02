package main

import (
	"os/user"
	"time"

	"github.com/spf13/cobra"

	"github.com/vde-tools/worktree/internal/lockrecord"
	"github.com/vde-tools/worktree/internal/repolock"
	"github.com/vde-tools/worktree/internal/wterr"
)

var (
	lockReason string
	lockOwner  string
)

func init() {
	lockCmd.Flags().StringVar(&lockReason, "reason", "", "why this branch is locked (required)")
	lockCmd.Flags().StringVar(&lockOwner, "owner", "", "the lock's recorded owner, defaults to the current user")
}

var lockCmd = &cobra.Command{
	Use:   "lock <branch>",
	Short: "Set an advisory lock on a branch's managed working tree",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildContext(cmd)
		if err != nil {
			fail(nil, "lock", err)
			return nil
		}
		branch := args[0]
		owner := lockOwner
		if owner == "" {
			if u, err := user.Current(); err == nil {
				owner = u.Username
			}
		}

		lockOpts := repolock.Options{
			RepoRoot: a.repoRoot, SentinelPath: a.deps.SentinelPath, Command: "lock",
			TimeoutMs: a.deps.LockTimeoutMs, StaleTTLSecs: a.deps.StaleLockTTLSecs,
		}
		var rec *lockrecord.Record
		runErr := repolock.WithRepoLock(a.ctx, lockOpts, func() error {
			snap, err := a.deps.Snapshot(a.ctx)
			if err != nil {
				return err
			}
			found := false
			for _, w := range snap.Worktrees {
				if w.Branch == branch {
					found = true
					break
				}
			}
			if !found {
				return wterr.New(wterr.WorktreeNotFound, "no managed working tree for branch: "+branch)
			}
			r, err := lockrecord.Upsert(a.repoRoot, branch, lockReason, owner, time.Now().UTC())
			if err != nil {
				return err
			}
			rec = r
			return nil
		})
		if runErr != nil {
			fail(a, "lock", runErr)
			return nil
		}
		succeed(a, "lock", "ok", map[string]any{
			"branch": branch, "reason": rec.Reason, "owner": rec.Owner,
		})
		return nil
	},
}
