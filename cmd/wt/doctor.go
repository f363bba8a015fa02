package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vde-tools/worktree/internal/lifecycle"
	"github.com/vde-tools/worktree/internal/pathid"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check the managed fleet and metadata store for inconsistencies",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildContext(cmd)
		if err != nil {
			fail(nil, "doctor", err)
			return nil
		}
		snap, err := a.deps.Snapshot(a.ctx)
		if err != nil {
			fail(a, "doctor", err)
			return nil
		}

		type finding struct {
			Branch string
			Path   string
			Issues []string
		}
		var findings []finding
		liveBranches := make(map[string]bool, len(snap.Worktrees))

		for _, w := range snap.Worktrees {
			liveBranches[w.Branch] = true
			var issues []string

			if _, err := os.Stat(w.Path); err != nil {
				issues = append(issues, "working tree path is missing or unreadable: "+err.Error())
			} else if gitFile := filepath.Join(w.Path, ".git"); !isLinkedGitFile(gitFile) {
				issues = append(issues, ".git is not a linked-worktree pointer file")
			}

			if w.Branch != "" {
				if !a.deps.VCS.RefExists(a.ctx, a.repoRoot, "refs/heads/"+w.Branch) {
					issues = append(issues, "branch ref no longer exists")
				}
				if rec, rerr := lifecycle.Read(a.repoRoot, w.Branch); rerr != nil {
					issues = append(issues, "lifecycle record unreadable: "+rerr.Error())
				} else if rec == nil {
					issues = append(issues, "no lifecycle record recorded")
				}
			}

			if len(issues) > 0 || verboseFlag {
				findings = append(findings, finding{Branch: w.Branch, Path: w.Path, Issues: issues})
			}
		}

		orphanLifecycle := orphanRecords(filepath.Join(pathid.ManagedMetaRoot(a.repoRoot), "state", "branches"), liveBranches)
		orphanLocks := orphanRecords(filepath.Join(pathid.ManagedMetaRoot(a.repoRoot), "locks"), liveBranches)

		healthy := true
		for _, f := range findings {
			if len(f.Issues) > 0 {
				healthy = false
			}
		}
		if len(orphanLifecycle) > 0 || len(orphanLocks) > 0 {
			healthy = false
		}

		if jsonOutput {
			fs := make([]map[string]any, len(findings))
			for i, f := range findings {
				fs[i] = map[string]any{"branch": f.Branch, "path": a.displayPath(f.Path), "issues": f.Issues}
			}
			succeed(a, "doctor", "ok", map[string]any{
				"healthy":         healthy,
				"worktrees":       fs,
				"orphanLifecycle": orphanLifecycle,
				"orphanLocks":     orphanLocks,
			})
			return nil
		}

		for _, f := range findings {
			if len(f.Issues) == 0 {
				fmt.Printf("ok      %s (%s)\n", f.Branch, a.displayPath(f.Path))
				continue
			}
			fmt.Printf("problem %s (%s)\n", f.Branch, a.displayPath(f.Path))
			for _, issue := range f.Issues {
				fmt.Printf("  - %s\n", issue)
			}
		}
		for _, b := range orphanLifecycle {
			fmt.Printf("orphan lifecycle record for %s\n", b)
		}
		for _, b := range orphanLocks {
			fmt.Printf("orphan lock record for %s\n", b)
		}
		if healthy {
			fmt.Println("fleet is healthy")
		}
		return nil
	},
}

// isLinkedGitFile reports whether path is a file (not a directory) starting
// with "gitdir:", the shape a linked working tree's .git entry takes.
func isLinkedGitFile(path string) bool {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return false
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	return strings.HasPrefix(string(data), "gitdir:")
}

// orphanRecords lists worktreeIds present under dir whose branch is not in
// liveBranches -- records the live fleet no longer accounts for. The
// worktreeId itself (not the original branch name) is reported, since the
// persisted filename carries no reverse mapping.
func orphanRecords(dir string, liveBranches map[string]bool) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	live := make(map[string]bool, len(liveBranches))
	for b := range liveBranches {
		if b != "" {
			live[pathid.WorktreeID(b)] = true
		}
	}
	var orphans []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		id := strings.TrimSuffix(e.Name(), ".json")
		if !live[id] {
			orphans = append(orphans, id)
		}
	}
	return orphans
}
