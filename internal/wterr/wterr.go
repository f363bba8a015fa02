// Package wterr defines the typed error taxonomy shared by every layer of
// the worktree tool, and the exit-code mapping the command surface uses to
// translate an error into a process exit status.
package wterr

import "fmt"

// Kind identifies one of the fixed error categories the tool can raise.
type Kind string

const (
	NotGitRepository      Kind = "NOT_GIT_REPOSITORY"
	InvalidArgument       Kind = "INVALID_ARGUMENT"
	InvalidConfig         Kind = "INVALID_CONFIG"
	UnsafeFlagRequired    Kind = "UNSAFE_FLAG_REQUIRED"
	WorktreeNotFound      Kind = "WORKTREE_NOT_FOUND"
	BranchAlreadyAttached Kind = "BRANCH_ALREADY_ATTACHED"
	BranchAlreadyExists   Kind = "BRANCH_ALREADY_EXISTS"
	BranchInUse           Kind = "BRANCH_IN_USE"
	DirtyWorktree         Kind = "DIRTY_WORKTREE"
	LockedWorktree        Kind = "LOCKED_WORKTREE"
	UnmergedWorktree      Kind = "UNMERGED_WORKTREE"
	UnpushedWorktree      Kind = "UNPUSHED_WORKTREE"
	TargetPathNotEmpty    Kind = "TARGET_PATH_NOT_EMPTY"
	DetachedHead          Kind = "DETACHED_HEAD"
	PathOutsideRepo       Kind = "PATH_OUTSIDE_REPO"
	InvalidRemoteBranch   Kind = "INVALID_REMOTE_BRANCH_FORMAT"
	RemoteNotFound        Kind = "REMOTE_NOT_FOUND"
	RemoteBranchNotFound  Kind = "REMOTE_BRANCH_NOT_FOUND"
	StashApplyFailed      Kind = "STASH_APPLY_FAILED"
	LockConflict          Kind = "LOCK_CONFLICT"
	DependencyMissing     Kind = "DEPENDENCY_MISSING"
	RepoLockTimeout       Kind = "REPO_LOCK_TIMEOUT"
	RepoLockStaleRecovery Kind = "REPO_LOCK_STALE_RECOVERY_FAILED"
	HookFailed            Kind = "HOOK_FAILED"
	HookNotFound          Kind = "HOOK_NOT_FOUND"
	HookNotExecutable     Kind = "HOOK_NOT_EXECUTABLE"
	HookTimeout           Kind = "HOOK_TIMEOUT"
	VCSCommandFailed      Kind = "GIT_COMMAND_FAILED"
	ChildProcessFailed    Kind = "CHILD_PROCESS_FAILED"
	InternalError         Kind = "INTERNAL_ERROR"
	UnknownCommand        Kind = "UNKNOWN_COMMAND"
)

var exitCodes = map[Kind]int{
	NotGitRepository:      2,
	InvalidArgument:       3,
	InvalidConfig:         3,
	UnsafeFlagRequired:    4,
	WorktreeNotFound:      4,
	BranchAlreadyAttached: 4,
	BranchAlreadyExists:   4,
	BranchInUse:           4,
	DirtyWorktree:         4,
	LockedWorktree:        4,
	UnmergedWorktree:      4,
	UnpushedWorktree:      4,
	TargetPathNotEmpty:    4,
	DetachedHead:          4,
	PathOutsideRepo:       4,
	InvalidRemoteBranch:   4,
	RemoteNotFound:        4,
	RemoteBranchNotFound:  4,
	StashApplyFailed:      4,
	LockConflict:          4,
	DependencyMissing:     5,
	RepoLockTimeout:       6,
	RepoLockStaleRecovery: 6,
	HookFailed:            10,
	HookNotFound:          10,
	HookNotExecutable:     10,
	HookTimeout:           10,
	VCSCommandFailed:      20,
	ChildProcessFailed:    21,
	InternalError:         30,
	UnknownCommand:        30,
}

// Error is the typed error every layer of the tool raises. Details carries
// structured context (cwd, args, exit codes, ...) for the JSON envelope.
type Error struct {
	Kind    Kind
	Message string
	Details map[string]any

	// AutoRestoreFailed and RestoreErr compose the stash auto-restore
	// failure case: the original pre-hook error remains primary, the
	// restore failure is nested alongside it.
	AutoRestoreFailed bool
	RestoreErr        error

	cause error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error { return e.cause }

// ExitCode returns the process exit status for this error's kind.
func (e *Error) ExitCode() int {
	if code, ok := exitCodes[e.Kind]; ok {
		return code
	}
	return exitCodes[InternalError]
}

// New builds a typed error with no details.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap builds a typed error that preserves cause for errors.Unwrap/Is/As.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, cause: cause}
}

// WithDetails attaches structured detail fields and returns the receiver for chaining.
func (e *Error) WithDetails(d map[string]any) *Error {
	e.Details = d
	return e
}

// WithAutoRestoreFailure records that the stash-restore callback triggered
// by a failing pre-hook itself failed. The original error (e) stays primary.
func (e *Error) WithAutoRestoreFailure(restoreErr error) *Error {
	e.AutoRestoreFailed = true
	e.RestoreErr = restoreErr
	return e
}

// ExitCodeFor resolves the process exit status for an arbitrary error,
// falling back to INTERNAL_ERROR's code (30) for untyped errors.
func ExitCodeFor(err error) int {
	var te *Error
	if asError(err, &te) {
		return te.ExitCode()
	}
	return exitCodes[InternalError]
}

// KindFor resolves the Kind of an arbitrary error, or INTERNAL_ERROR if untyped.
func KindFor(err error) Kind {
	var te *Error
	if asError(err, &te) {
		return te.Kind
	}
	return InternalError
}

func asError(err error, target **Error) bool {
	for err != nil {
		if te, ok := err.(*Error); ok {
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
