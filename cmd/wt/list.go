package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/vde-tools/worktree/internal/wtui"
)

var listWatch bool

func init() {
	listCmd.Flags().BoolVar(&listWatch, "watch", false, "re-render on managed-root filesystem changes until interrupted")
}

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List every managed working tree and its derived status",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildContext(cmd)
		if err != nil {
			fail(nil, "list", err)
			return nil
		}
		if listWatch {
			return watchList(a)
		}
		return renderList(a)
	},
}

func renderList(a *appContext) error {
	snap, err := a.deps.Snapshot(a.ctx)
	if err != nil {
		fail(a, "list", err)
		return nil
	}
	if jsonOutput {
		worktrees := make([]map[string]any, len(snap.Worktrees))
		for i, w := range snap.Worktrees {
			worktrees[i] = map[string]any{
				"branch":   w.Branch,
				"path":     a.displayPath(w.Path),
				"dirty":    w.Dirty,
				"merged":   w.Merged.Overall,
				"pr":       w.PR.Status,
				"locked":   w.Lock.Value,
				"ahead":    w.Upstream.Ahead,
				"behind":   w.Upstream.Behind,
			}
		}
		succeed(a, "list", "ok", map[string]any{"worktrees": worktrees})
		return nil
	}
	fmt.Println(wtui.RenderFleetTable(snap, wtui.RenderOptions{
		Columns:      a.cfg.List.Table.Columns,
		Color:        wtui.ShouldUseColor(),
		PathTruncate: a.cfg.List.Table.Path.Truncate,
		PathMinWidth: a.cfg.List.Table.Path.MinWidth,
		Width:        wtui.GetWidth(),
	}))
	return nil
}

// watchList re-renders the fleet table whenever an entry directly under the
// managed worktree root or the repository root changes on disk, until
// interrupted (supplemented feature).
func watchList(a *appContext) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		fail(a, "list", err)
		return nil
	}
	defer watcher.Close()

	for _, dir := range []string{a.deps.WorktreeRoot, a.deps.RepoRoot} {
		if err := watcher.Add(dir); err != nil {
			fail(a, "list", err)
			return nil
		}
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	if err := renderList(a); err != nil {
		return err
	}
	for {
		select {
		case <-sigCh:
			return nil
		case _, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if err := renderList(a); err != nil {
				return err
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fail(a, "list", err)
			return nil
		}
	}
}
