package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/vde-tools/worktree/internal/lifecycle"
	"github.com/vde-tools/worktree/internal/lockrecord"
	"github.com/vde-tools/worktree/internal/wterr"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <branch>",
	Short: "Dump the persisted lock and lifecycle records for a branch",
	Args:  cobra.ExactArgs(1),
	ValidArgsFunction: branchCompletion,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildContext(cmd)
		if err != nil {
			fail(nil, "inspect", err)
			return nil
		}
		branch := args[0]

		lock, lockValid, err := lockrecord.Read(a.repoRoot, branch)
		if err != nil {
			fail(a, "inspect", err)
			return nil
		}
		life, err := lifecycle.Read(a.repoRoot, branch)
		if err != nil {
			fail(a, "inspect", err)
			return nil
		}

		dump := map[string]any{
			"branch":    branch,
			"lock":      lock,
			"lockValid": lockValid,
			"lifecycle": life,
		}

		if jsonOutput {
			succeed(a, "inspect", "ok", dump)
			return nil
		}

		out, merr := yaml.Marshal(dump)
		if merr != nil {
			fail(a, "inspect", wterr.Wrap(wterr.InternalError, "marshaling records as yaml", merr))
			return nil
		}
		fmt.Print(string(out))
		return nil
	},
}
