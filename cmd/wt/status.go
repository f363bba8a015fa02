package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/vde-tools/worktree/internal/snapshot"
	"github.com/vde-tools/worktree/internal/wterr"
)

var statusCmd = &cobra.Command{
	Use:   "status [branch]",
	Short: "Show the derived status facets for one working tree, or the current one",
	Args:  cobra.MaximumNArgs(1),
	ValidArgsFunction: branchCompletion,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildContext(cmd)
		if err != nil {
			fail(nil, "status", err)
			return nil
		}
		snap, err := a.deps.Snapshot(a.ctx)
		if err != nil {
			fail(a, "status", err)
			return nil
		}

		var branch string
		if len(args) == 1 {
			branch = args[0]
		} else {
			branch, _ = a.deps.VCS.CurrentBranch(a.ctx, a.cwd)
		}

		var found *snapshot.Status
		for i := range snap.Worktrees {
			w := &snap.Worktrees[i]
			if len(args) == 1 && w.Branch == branch || len(args) == 0 && sameDir(w.Path, a.cwd) {
				found = w
				break
			}
		}
		if found == nil {
			fail(a, "status", wterr.New(wterr.WorktreeNotFound, "no managed working tree found"))
			return nil
		}

		details := map[string]any{
			"branch":    found.Branch,
			"path":      a.displayPath(found.Path),
			"dirty":     found.Dirty,
			"merged":    found.Merged.Overall,
			"pr":        found.PR.Status,
			"prURL":     found.PR.URL,
			"locked":    found.Lock.Value,
			"lockOwner": found.Lock.Owner,
			"ahead":     found.Upstream.Ahead,
			"behind":    found.Upstream.Behind,
		}
		if jsonOutput {
			succeed(a, "status", "ok", details)
			return nil
		}
		fmt.Printf("branch:  %s\n", found.Branch)
		fmt.Printf("path:    %s\n", a.displayPath(found.Path))
		fmt.Printf("dirty:   %v\n", found.Dirty)
		fmt.Printf("merged:  %s\n", triString(found.Merged.Overall))
		fmt.Printf("pr:      %s\n", found.PR.Status)
		if found.Lock.Value {
			fmt.Printf("locked:  yes (%s)\n", found.Lock.Reason)
		} else {
			fmt.Println("locked:  no")
		}
		return nil
	},
}

func triString(v *bool) string {
	if v == nil {
		return "unknown"
	}
	if *v {
		return "yes"
	}
	return "no"
}

func sameDir(a, b string) bool {
	return filepath.Clean(a) == filepath.Clean(b)
}
