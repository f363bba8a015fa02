package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/vde-tools/worktree/internal/hooks"
	"github.com/vde-tools/worktree/internal/pathid"
	"github.com/vde-tools/worktree/internal/pipeline"
	"github.com/vde-tools/worktree/internal/prstatus"
	"github.com/vde-tools/worktree/internal/vcsdriver"
	"github.com/vde-tools/worktree/internal/wterr"
	"github.com/vde-tools/worktree/internal/wtconfig"
	"github.com/vde-tools/worktree/internal/wtui"
)

const schemaVersion = 1

var (
	jsonOutput  bool
	verboseFlag bool
	fullPath    bool
)

var rootCmd = &cobra.Command{
	Use:           "wt",
	Short:         "Manage a fleet of git linked working trees",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.BoolVar(&jsonOutput, "json", false, "emit a JSON envelope instead of human-readable output")
	pf.BoolVar(&verboseFlag, "verbose", false, "raise logging verbosity")
	pf.BoolVar(&fullPath, "full-path", false, "print absolute paths instead of repo-relative ones")
	pf.Bool("hooks", true, "run pre/post hooks")
	pf.Bool("no-hooks", false, "disable pre/post hooks (overrides --hooks)")
	pf.Bool("gh", false, "enable GitHub pull-request status lookups")
	pf.Bool("no-gh", false, "disable GitHub pull-request status lookups")
	pf.Bool("allow-unsafe", false, "permit force flags in non-interactive contexts")
	pf.Int("hook-timeout-ms", 0, "override the configured hook timeout")
	pf.Int("lock-timeout-ms", 0, "override the configured repo-lock timeout")
	rootCmd.Version = Version
	rootCmd.Flags().BoolP("version", "v", false, "print version information and exit")

	rootCmd.AddCommand(
		initCmd, listCmd, statusCmd, pathCmd,
		newCmd, switchCmd, mvCmd, delCmd, goneCmd, adoptCmd, getCmd,
		extractCmd, absorbCmd, unabsorbCmd, useCmd,
		execCmd, invokeCmd, copyCmd, linkCmd, lockCmd, unlockCmd, cdCmd,
		doctorCmd, completionCmd, inspectCmd,
	)
}

// Execute runs the root command and translates any error raised outside a
// command's own envelope handling into the generic exit-code mapping.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(wterr.ExitCodeFor(err))
	}
}

// appContext bundles everything a command needs once the repo root and
// configuration are resolved.
type appContext struct {
	ctx           context.Context
	repoRoot      string
	cwd           string
	vcsPrivateDir string
	cfg           *wtconfig.Config
	deps          *pipeline.Deps
}

func hooksEnabled(cmd *cobra.Command) bool {
	if no, _ := cmd.Flags().GetBool("no-hooks"); no {
		return false
	}
	on, _ := cmd.Flags().GetBool("hooks")
	return on
}

func ghOverride(cmd *cobra.Command) (enabled, disabled bool) {
	if v, _ := cmd.Flags().GetBool("gh"); v {
		enabled = true
	}
	if v, _ := cmd.Flags().GetBool("no-gh"); v {
		disabled = true
	}
	return
}

// buildContext resolves the repo root, layered config, and every mutation
// pipeline collaborator for the current invocation.
func buildContext(cmd *cobra.Command) (*appContext, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, wterr.Wrap(wterr.InternalError, "resolving working directory", err)
	}

	vcs := vcsdriver.New()
	ctx := context.Background()

	repoRoot, commonDir, err := vcs.RepoRoot(ctx, cwd)
	if err != nil {
		return nil, err
	}

	cfg, err := wtconfig.Load(repoRoot, cwd)
	if err != nil {
		return nil, err
	}

	metaRoot := pathid.ManagedMetaRoot(repoRoot)
	_, metaErr := os.Stat(metaRoot)
	metaRootExists := metaErr == nil

	ghEnabled, ghDisabled := ghOverride(cmd)
	resolvedGhEnabled := cfg.Github.Enabled
	if ghEnabled {
		resolvedGhEnabled = true
	}

	hookTimeoutMs := cfg.Hooks.TimeoutMs
	if v, _ := cmd.Flags().GetInt("hook-timeout-ms"); v > 0 {
		hookTimeoutMs = v
	}
	lockTimeoutMs := cfg.Locks.TimeoutMs
	if v, _ := cmd.Flags().GetInt("lock-timeout-ms"); v > 0 {
		lockTimeoutMs = v
	}
	allowUnsafe, _ := cmd.Flags().GetBool("allow-unsafe")

	deps := &pipeline.Deps{
		VCS:              vcs,
		Hooks:            hooks.NewRunner(repoRoot, hooksEnabled(cmd)),
		PR:               prstatus.New(),
		RepoRoot:         repoRoot,
		WorktreeRoot:     pathid.ManagedWorktreeRoot(repoRoot, cfg.Paths.WorktreeRoot),
		BaseBranch:       cfg.Git.BaseBranch,
		BaseRemote:       cfg.Git.BaseRemote,
		GhEnabled:        resolvedGhEnabled,
		NoGh:             ghDisabled,
		IsTTY:            wtui.IsTerminal(),
		AllowUnsafe:      allowUnsafe,
		HookTimeout:      time.Duration(hookTimeoutMs) * time.Millisecond,
		SentinelPath:     pathid.RepoLockSentinelPath(repoRoot, commonDir, metaRootExists),
		LockTimeoutMs:    lockTimeoutMs,
		StaleLockTTLSecs: cfg.Locks.StaleLockTTLSeconds,
	}

	return &appContext{ctx: ctx, repoRoot: repoRoot, cwd: cwd, vcsPrivateDir: commonDir, cfg: cfg, deps: deps}, nil
}

// displayPath renders a result path repo-relative unless --full-path was set.
func (a *appContext) displayPath(path string) string {
	if fullPath || path == "" {
		return path
	}
	if rel, err := filepath.Rel(a.repoRoot, path); err == nil {
		return rel
	}
	return path
}

// succeed emits a successful result, either as the envelope's JSON form or
// as the plain human line (typically the resulting working-tree path).
func succeed(a *appContext, command, status string, details map[string]any) {
	if jsonOutput {
		env := map[string]any{
			"schemaVersion": schemaVersion,
			"command":       command,
			"status":        status,
			"repoRoot":      a.repoRoot,
		}
		for k, v := range details {
			env[k] = v
		}
		printJSON(env)
		return
	}
	if p, ok := details["path"].(string); ok && p != "" {
		fmt.Println(a.displayPath(p))
		return
	}
	fmt.Println(status)
}

// fail emits an error envelope or `[CODE] message` line and exits with the
// error kind's mapped exit code.
func fail(a *appContext, command string, err error) {
	kind := wterr.KindFor(err)
	repoRoot := ""
	if a != nil {
		repoRoot = a.repoRoot
	}
	if jsonOutput {
		env := map[string]any{
			"schemaVersion": schemaVersion,
			"command":       command,
			"status":        "error",
			"repoRoot":      repoRoot,
			"code":          string(kind),
			"message":       err.Error(),
		}
		var te *wterr.Error
		if errorsAs(err, &te) && te.Details != nil {
			env["details"] = te.Details
		}
		printJSON(env)
	} else {
		fmt.Fprintf(os.Stderr, "[%s] %s\n", kind, err.Error())
	}
	os.Exit(wterr.ExitCodeFor(err))
}

func errorsAs(err error, target **wterr.Error) bool {
	for err != nil {
		if te, ok := err.(*wterr.Error); ok {
			*target = te
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

func printJSON(v any) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintln(os.Stderr, "wt: failed to encode JSON output:", err)
		os.Exit(wterr.ExitCodeFor(wterr.Wrap(wterr.InternalError, "encoding JSON", err)))
	}
	fmt.Println(string(b))
}

func resultDetails(res pipeline.Result) map[string]any {
	d := map[string]any{
		"status": res.Status,
		"path":   res.Path,
		"branch": res.Branch,
	}
	for k, v := range res.Details {
		d[k] = v
	}
	return d
}
