package wterr

import (
	"errors"
	"fmt"
	"testing"
)

func TestExitCodeFor(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"typed dirty worktree", New(DirtyWorktree, "dirty"), 4},
		{"typed git command failed", New(VCSCommandFailed, "boom"), 20},
		{"wrapped typed error", fmt.Errorf("context: %w", New(HookTimeout, "slow")), 10},
		{"untyped error", errors.New("plain"), 30},
		{"nil error falls back to internal", nil, 30},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := ExitCodeFor(c.err)
			if got != c.want {
				t.Fatalf("ExitCodeFor(%v) = %d, want %d", c.err, got, c.want)
			}
		})
	}
}

func TestKindFor(t *testing.T) {
	wrapped := fmt.Errorf("wrapping: %w", New(LockConflict, "locked"))
	if k := KindFor(wrapped); k != LockConflict {
		t.Fatalf("KindFor(wrapped) = %s, want %s", k, LockConflict)
	}
	if k := KindFor(errors.New("plain")); k != InternalError {
		t.Fatalf("KindFor(plain) = %s, want %s", k, InternalError)
	}
}

func TestErrorString(t *testing.T) {
	withMessage := New(DirtyWorktree, "branch has uncommitted changes")
	if got, want := withMessage.Error(), "[DIRTY_WORKTREE] branch has uncommitted changes"; got != want {
		t.Fatalf("Error() = %q, want %q", got, want)
	}

	bare := &Error{Kind: InternalError}
	if got, want := bare.Error(), "INTERNAL_ERROR"; got != want {
		t.Fatalf("Error() = %q, want %q", got, want)
	}
}

func TestWrapUnwrap(t *testing.T) {
	cause := errors.New("underlying git failure")
	wrapped := Wrap(VCSCommandFailed, "git worktree add failed", cause)

	if !errors.Is(wrapped, cause) {
		t.Fatal("errors.Is should find the wrapped cause")
	}
	var target *Error
	if !errors.As(wrapped, &target) {
		t.Fatal("errors.As should find the typed error")
	}
	if target.Kind != VCSCommandFailed {
		t.Fatalf("unwrapped Kind = %s, want %s", target.Kind, VCSCommandFailed)
	}
}

func TestWithDetailsAndAutoRestoreFailure(t *testing.T) {
	restoreErr := errors.New("stash pop failed")
	err := New(HookFailed, "pre-hook failed").
		WithDetails(map[string]any{"hook": "pre-new"}).
		WithAutoRestoreFailure(restoreErr)

	if err.Details["hook"] != "pre-new" {
		t.Fatalf("Details not attached: %v", err.Details)
	}
	if !err.AutoRestoreFailed {
		t.Fatal("AutoRestoreFailed should be true")
	}
	if !errors.Is(err.RestoreErr, restoreErr) {
		t.Fatalf("RestoreErr = %v, want %v", err.RestoreErr, restoreErr)
	}
}

func TestUnknownKindFallsBackToInternalExitCode(t *testing.T) {
	err := New(Kind("NOT_A_REAL_KIND"), "mystery")
	if got, want := err.ExitCode(), exitCodes[InternalError]; got != want {
		t.Fatalf("ExitCode() = %d, want %d", got, want)
	}
}
