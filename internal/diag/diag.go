// Package diag provides debug/verbose logging gated on environment
// variables, following the env-driven debug logger pattern used elsewhere
// in this tool's configuration bootstrap.
package diag

import (
	"fmt"
	"os"
)

func debugEnabled() bool {
	return os.Getenv("VDE_WORKTREE_DEBUG") != "" || os.Getenv("VDE_DEBUG") != ""
}

func verboseEnabled() bool {
	return os.Getenv("VDE_WORKTREE_VERBOSE") != "" || os.Getenv("VDE_VERBOSE") != ""
}

// Debugf prints a "debug: "-prefixed line to stderr when VDE_WORKTREE_DEBUG
// or VDE_DEBUG is set.
func Debugf(format string, args ...any) {
	if !debugEnabled() {
		return
	}
	fmt.Fprintf(os.Stderr, "debug: "+format+"\n", args...)
}

// Verbosef prints a verbose progress line to stderr when
// VDE_WORKTREE_VERBOSE or VDE_VERBOSE is set, or when debug output is on.
func Verbosef(format string, args ...any) {
	if !verboseEnabled() && !debugEnabled() {
		return
	}
	fmt.Fprintf(os.Stderr, format+"\n", args...)
}

// StackTraces reports whether full stack traces should be attached to
// internal errors before they reach the command surface.
func StackTraces() bool {
	return debugEnabled()
}
