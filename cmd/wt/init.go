package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vde-tools/worktree/internal/pathid"
	"github.com/vde-tools/worktree/internal/pipeline"
	"github.com/vde-tools/worktree/internal/wterr"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize the managed worktree root and metadata directories",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildContext(cmd)
		if err != nil {
			fail(nil, "init", err)
			return nil
		}

		res, err := pipeline.Run(a.ctx, a.deps, pipeline.Plan[struct{}, pipeline.Result]{
			Action: "init",
			Precheck: func(ctx context.Context) (struct{}, error) {
				return struct{}{}, nil
			},
			HookCtx: func(struct{}) (string, string, map[string]string) {
				return "", a.repoRoot, nil
			},
			RunVCS: func(ctx context.Context, _ struct{}) (pipeline.Result, error) {
				return runInit(a)
			},
		})
		if err != nil {
			fail(a, "init", err)
			return nil
		}
		succeed(a, "init", res.Status, resultDetails(res))
		return nil
	},
}

// runInit creates the managed worktree root and .vde/worktree subdirectories
// and appends an idempotent managed-exclude block to the VCS's private
// exclude file.
func runInit(a *appContext) (pipeline.Result, error) {
	metaRoot := pathid.ManagedMetaRoot(a.repoRoot)
	dirs := []string{
		a.deps.WorktreeRoot,
		metaRoot,
		filepath.Join(metaRoot, "hooks"),
		filepath.Join(metaRoot, "logs"),
		filepath.Join(metaRoot, "locks"),
		filepath.Join(metaRoot, "state", "branches"),
	}
	for _, d := range dirs {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return pipeline.Result{}, wterr.Wrap(wterr.InternalError, "creating "+d, err)
		}
	}
	if err := appendExcludeBlock(a); err != nil {
		return pipeline.Result{}, err
	}
	return pipeline.Result{Status: "ok", Path: a.repoRoot}, nil
}

const excludeMarker = "# wt (managed)"

func appendExcludeBlock(a *appContext) error {
	excludePath := filepath.Join(a.vcsPrivateDir, "info", "exclude")

	existing, _ := os.ReadFile(excludePath)
	if strings.Contains(string(existing), excludeMarker) {
		return nil
	}

	relWorktreeRoot, err := filepath.Rel(a.repoRoot, a.deps.WorktreeRoot)
	if err != nil {
		return wterr.Wrap(wterr.InternalError, "resolving worktree root for exclude block", err)
	}
	var block strings.Builder
	if len(existing) > 0 && !strings.HasSuffix(string(existing), "\n") {
		block.WriteString("\n")
	}
	block.WriteString(excludeMarker + "\n")
	block.WriteString(relWorktreeRoot + "/\n")
	block.WriteString(pathid.MetaRoot + "/\n")

	if err := os.MkdirAll(filepath.Dir(excludePath), 0o755); err != nil {
		return wterr.Wrap(wterr.InternalError, "creating info directory", err)
	}
	f, err := os.OpenFile(excludePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return wterr.Wrap(wterr.InternalError, "opening exclude file", err)
	}
	defer f.Close()
	if _, err := f.WriteString(block.String()); err != nil {
		return wterr.Wrap(wterr.InternalError, "writing exclude file", err)
	}
	return nil
}
