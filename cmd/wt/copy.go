package main

import (
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/vde-tools/worktree/internal/wterr"
)

var copyBranch string

func init() {
	copyCmd.Flags().StringVar(&copyBranch, "branch", "", "destination branch's working tree (overrides WT_WORKTREE_PATH)")
}

var copyCmd = &cobra.Command{
	Use:   "copy <path> [path...]",
	Short: "Copy untracked files from the primary working tree into another managed one",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildContext(cmd)
		if err != nil {
			fail(nil, "copy", err)
			return nil
		}
		dest, err := resolveDestinationWorktree(a, copyBranch)
		if err != nil {
			fail(a, "copy", err)
			return nil
		}
		for _, rel := range args {
			if err := copyIntoDestination(a.repoRoot, dest, rel); err != nil {
				fail(a, "copy", err)
				return nil
			}
		}
		succeed(a, "copy", "ok", map[string]any{"path": dest, "files": args})
		return nil
	},
}

// resolveDestinationWorktree resolves the `WT_WORKTREE_PATH` destination
// selection: an explicit --branch flag wins and is looked up among the
// snapshot's working trees (WORKTREE_NOT_FOUND when absent), otherwise the
// environment variable (set by a calling hook) selects the destination,
// otherwise INVALID_ARGUMENT is returned.
func resolveDestinationWorktree(a *appContext, branch string) (string, error) {
	if branch != "" {
		snap, err := a.deps.Snapshot(a.ctx)
		if err != nil {
			return "", err
		}
		for _, w := range snap.Worktrees {
			if w.Branch == branch {
				return w.Path, nil
			}
		}
		return "", wterr.New(wterr.WorktreeNotFound, "no managed working tree for branch: "+branch)
	}
	if env := os.Getenv("WT_WORKTREE_PATH"); env != "" {
		return env, nil
	}
	return "", wterr.New(wterr.InvalidArgument, "destination working tree not specified: pass --branch or set WT_WORKTREE_PATH")
}

func copyIntoDestination(sourceRoot, destRoot, rel string) error {
	srcPath := filepath.Join(sourceRoot, rel)
	dstPath := filepath.Join(destRoot, rel)

	info, err := os.Stat(srcPath)
	if err != nil {
		return wterr.Wrap(wterr.InvalidArgument, "reading source path "+rel, err)
	}
	if info.IsDir() {
		return wterr.New(wterr.InvalidArgument, "copy does not support directories: "+rel)
	}

	if err := os.MkdirAll(filepath.Dir(dstPath), 0o755); err != nil {
		return wterr.Wrap(wterr.InternalError, "creating destination directory", err)
	}
	src, err := os.Open(srcPath)
	if err != nil {
		return wterr.Wrap(wterr.InternalError, "opening source file", err)
	}
	defer src.Close()
	dst, err := os.OpenFile(dstPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, info.Mode().Perm())
	if err != nil {
		return wterr.Wrap(wterr.InternalError, "creating destination file", err)
	}
	defer dst.Close()
	if _, err := io.Copy(dst, src); err != nil {
		return wterr.Wrap(wterr.InternalError, "copying "+rel, err)
	}
	return nil
}
