package main

import (
	"os"
	"os/exec"

	"github.com/spf13/cobra"

	"github.com/vde-tools/worktree/internal/repolock"
	"github.com/vde-tools/worktree/internal/wterr"
)

var execCmd = &cobra.Command{
	Use:                "exec <branch> -- <cmd> [args...]",
	Short:              "Run a command inside a managed working tree",
	Args:               cobra.MinimumNArgs(2),
	DisableFlagParsing: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		branch, childArgs, err := splitExecArgs(args)
		if err != nil {
			fail(nil, "exec", err)
			return nil
		}

		a, err := buildContext(cmd)
		if err != nil {
			fail(nil, "exec", err)
			return nil
		}

		lockOpts := repolock.Options{
			RepoRoot: a.repoRoot, SentinelPath: a.deps.SentinelPath, Command: "exec",
			TimeoutMs: a.deps.LockTimeoutMs, StaleTTLSecs: a.deps.StaleLockTTLSecs,
		}
		runErr := repolock.WithRepoLock(a.ctx, lockOpts, func() error {
			snap, err := a.deps.Snapshot(a.ctx)
			if err != nil {
				return err
			}
			var path string
			for _, w := range snap.Worktrees {
				if w.Branch == branch {
					path = w.Path
					break
				}
			}
			if path == "" {
				return wterr.New(wterr.WorktreeNotFound, "no managed working tree for branch: "+branch)
			}

			c := exec.CommandContext(a.ctx, childArgs[0], childArgs[1:]...)
			c.Dir = path
			c.Stdin = os.Stdin
			c.Stdout = os.Stdout
			c.Stderr = os.Stderr
			c.Env = append(os.Environ(), "WT_REPO_ROOT="+a.repoRoot, "WT_BRANCH="+branch, "WT_WORKTREE_PATH="+path)

			runErr := c.Run()
			if runErr == nil {
				return nil
			}
			exitErr, ok := runErr.(*exec.ExitError)
			if !ok {
				return wterr.Wrap(wterr.ChildProcessFailed, "launching child process", runErr)
			}
			return wterr.New(wterr.ChildProcessFailed, childArgs[0]+" exited "+exitErr.Error()).
				WithDetails(map[string]any{"childExitCode": exitErr.ExitCode()})
		})
		if runErr != nil {
			fail(a, "exec", runErr)
			return nil
		}
		succeed(a, "exec", "ok", map[string]any{"branch": branch})
		return nil
	},
}

// splitExecArgs separates the branch positional from the child command,
// which always follows a literal "--" separator.
func splitExecArgs(args []string) (branch string, childArgs []string, err error) {
	for i, a := range args {
		if a == "--" {
			if i == 0 || i == len(args)-1 {
				return "", nil, wterr.New(wterr.InvalidArgument, "expected <branch> -- <cmd> [args...]")
			}
			return args[0], args[i+1:], nil
		}
	}
	return "", nil, wterr.New(wterr.InvalidArgument, "expected <branch> -- <cmd> [args...]")
}
