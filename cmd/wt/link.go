package main

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/vde-tools/worktree/internal/wterr"
)

var linkBranch string

func init() {
	linkCmd.Flags().StringVar(&linkBranch, "branch", "", "destination branch's working tree (overrides WT_WORKTREE_PATH)")
}

var linkCmd = &cobra.Command{
	Use:   "link <path> [path...]",
	Short: "Symlink files from the primary working tree into another managed one",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildContext(cmd)
		if err != nil {
			fail(nil, "link", err)
			return nil
		}
		dest, err := resolveDestinationWorktree(a, linkBranch)
		if err != nil {
			fail(a, "link", err)
			return nil
		}
		for _, rel := range args {
			if err := linkIntoDestination(a.repoRoot, dest, rel); err != nil {
				fail(a, "link", err)
				return nil
			}
		}
		succeed(a, "link", "ok", map[string]any{"path": dest, "files": args})
		return nil
	},
}

func linkIntoDestination(sourceRoot, destRoot, rel string) error {
	srcPath := filepath.Join(sourceRoot, rel)
	dstPath := filepath.Join(destRoot, rel)

	if _, err := os.Lstat(srcPath); err != nil {
		return wterr.Wrap(wterr.InvalidArgument, "reading source path "+rel, err)
	}
	if err := os.MkdirAll(filepath.Dir(dstPath), 0o755); err != nil {
		return wterr.Wrap(wterr.InternalError, "creating destination directory", err)
	}
	if _, err := os.Lstat(dstPath); err == nil {
		if err := os.Remove(dstPath); err != nil {
			return wterr.Wrap(wterr.InternalError, "removing existing destination entry", err)
		}
	}
	if err := os.Symlink(srcPath, dstPath); err != nil {
		return wterr.Wrap(wterr.InternalError, "linking "+rel, err)
	}
	return nil
}
