// Package hooks executes the pre/post extension-point scripts at
// <metaRoot>/hooks/<phase>-<action>, run with a bounded timeout, a
// WT_*-prefixed environment, and a rotated per-invocation log record.
// Generalized from a fixed on_create/on_update/on_close event set into an
// open-ended pre-<action>/post-<action> naming scheme.
package hooks

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	lumberjack "gopkg.in/natefinch/lumberjack.v2"

	"github.com/vde-tools/worktree/internal/diag"
	"github.com/vde-tools/worktree/internal/pathid"
	"github.com/vde-tools/worktree/internal/wterr"
)

// DefaultTimeout is applied when an Invocation does not set its own.
const DefaultTimeout = 30 * time.Second

// Invocation describes one hook firing.
type Invocation struct {
	Phase        string // "pre" or "post"
	Action       string
	RepoRoot     string
	Branch       string
	WorktreePath string
	IsTTY        bool
	Extra        map[string]string
	Timeout      time.Duration

	// Strict governs post-hook failure handling: a non-zero exit is a
	// typed HOOK_FAILED when true, a logged-and-ignored warning otherwise.
	// Pre-hooks are always strict.
	Strict bool

	// Explicit marks a call originating from `wt invoke` rather than an
	// implicit pipeline pre/post step: only explicit calls raise
	// HOOK_NOT_FOUND for a missing script.
	Explicit bool
}

// Runner executes hooks for one repository.
type Runner struct {
	Enabled  bool
	HooksDir string
	LogsDir  string
}

// NewRunner builds a Runner rooted at repoRoot's managed hooks/logs dirs.
func NewRunner(repoRoot string, enabled bool) *Runner {
	return &Runner{
		Enabled:  enabled,
		HooksDir: pathid.HooksDir(repoRoot),
		LogsDir:  pathid.LogsDir(repoRoot),
	}
}

// Run fires one hook invocation. A disabled runner, or an implicit
// invocation whose script is absent, is a silent no-op.
func (r *Runner) Run(ctx context.Context, inv Invocation) error {
	if !r.Enabled {
		return nil
	}

	scriptName := inv.Phase + "-" + inv.Action
	hookPath := filepath.Join(r.HooksDir, scriptName)

	info, statErr := os.Stat(hookPath)
	if statErr != nil || info.IsDir() {
		if inv.Explicit {
			return wterr.New(wterr.HookNotFound, "hook not found: "+scriptName)
		}
		diag.Verbosef("hooks: %s absent, skipping", scriptName)
		return nil
	}
	if !isExecutable(info) {
		return wterr.New(wterr.HookNotExecutable, "hook not executable: "+scriptName)
	}

	timeout := inv.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	env := buildEnv(inv)
	start := time.Now().UTC()

	stdout, stderr, exitCode, timedOut, err := runProcess(ctx, hookPath, env, inv.cwd(), timeout)
	end := time.Now().UTC()

	r.writeLog(logRecord{
		Hook:     scriptName,
		Phase:    inv.Phase,
		Start:    start,
		End:      end,
		ExitCode: exitCode,
		Stdout:   stdout,
		Stderr:   stderr,
	}, inv)
	diag.Debugf("hooks: %s exited %d in %s", scriptName, exitCode, end.Sub(start))

	if timedOut {
		return wterr.New(wterr.HookTimeout, scriptName+" timed out after "+timeout.String())
	}
	if err != nil {
		return wterr.Wrap(wterr.HookFailed, "launching "+scriptName, err)
	}
	if exitCode != 0 {
		if inv.Phase == "pre" || inv.Strict {
			return wterr.New(wterr.HookFailed, scriptName+" exited "+fmt.Sprint(exitCode)).
				WithDetails(map[string]any{"exitCode": exitCode, "stderr": stderr})
		}
		fmt.Fprintf(os.Stderr, "wt: post-hook %s exited %d\n", scriptName, exitCode)
	}
	return nil
}

// RunWithRestore wraps a pre-hook invocation that follows a VCS stash: on
// hook failure it invokes restore, composing a restore failure into the
// original error via Error.WithAutoRestoreFailure.
func (r *Runner) RunWithRestore(ctx context.Context, inv Invocation, restore func() error) error {
	err := r.Run(ctx, inv)
	if err == nil {
		return nil
	}
	if restore == nil {
		return err
	}
	if restoreErr := restore(); restoreErr != nil {
		var te *wterr.Error
		if asHookError(err, &te) {
			return te.WithAutoRestoreFailure(restoreErr)
		}
		return wterr.Wrap(wterr.HookFailed, "hook failed and restore failed", err).WithAutoRestoreFailure(restoreErr)
	}
	return err
}

func asHookError(err error, target **wterr.Error) bool {
	te, ok := err.(*wterr.Error)
	if !ok {
		return false
	}
	*target = te
	return true
}

func (inv Invocation) cwd() string {
	if inv.WorktreePath != "" {
		return inv.WorktreePath
	}
	return inv.RepoRoot
}

func buildEnv(inv Invocation) []string {
	isTTY := "0"
	if inv.IsTTY {
		isTTY = "1"
	}
	env := append(os.Environ(),
		"WT_REPO_ROOT="+inv.RepoRoot,
		"WT_ACTION="+inv.Action,
		"WT_BRANCH="+inv.Branch,
		"WT_WORKTREE_PATH="+inv.WorktreePath,
		"WT_IS_TTY="+isTTY,
		"WT_TOOL=wt",
	)
	for k, v := range inv.Extra {
		env = append(env, "WT_"+strings.ToUpper(k)+"="+v)
	}
	return env
}

func isExecutable(info os.FileInfo) bool {
	return info.Mode()&0111 != 0
}

type logRecord struct {
	Hook     string    `json:"hook"`
	Phase    string    `json:"phase"`
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
	ExitCode int       `json:"exitCode"`
	Stdout   string    `json:"stdout,omitempty"`
	Stderr   string    `json:"stderr"`
}

func safeBranchName(branch string) string {
	s := strings.ReplaceAll(branch, "/", "-")
	if s == "" {
		return "none"
	}
	return s
}

// writeLog appends one JSON record to a timestamped per-invocation log file,
// routed through a lumberjack.Logger so unexpectedly large hook output
// (verbose stdout/stderr capture) still bounds total disk growth.
func (r *Runner) writeLog(rec logRecord, inv Invocation) {
	if err := os.MkdirAll(r.LogsDir, 0o755); err != nil {
		return
	}
	name := fmt.Sprintf("%s_%s_%s.log", rec.Start.Format("20060102150405"), inv.Action, safeBranchName(inv.Branch))

	logger := &lumberjack.Logger{
		Filename:   filepath.Join(r.LogsDir, name),
		MaxSize:    5,
		MaxBackups: 3,
		Compress:   false,
	}
	defer logger.Close()

	payload, err := json.Marshal(rec)
	if err != nil {
		return
	}
	buf := bytes.NewBuffer(payload)
	buf.WriteByte('\n')
	_, _ = logger.Write(buf.Bytes())
}
