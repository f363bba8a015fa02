package repolock

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gofrs/flock"

	"github.com/vde-tools/worktree/internal/store"
	"github.com/vde-tools/worktree/internal/wterr"
)

func testOptions(t *testing.T) Options {
	return Options{
		SentinelPath: filepath.Join(t.TempDir(), "repo.lock"),
		Command:      "test-command",
		TimeoutMs:    200,
		StaleTTLSecs: 3600,
	}
}

func TestWithRepoLockRunsTaskAndCleansUp(t *testing.T) {
	opts := testOptions(t)

	var ran bool
	err := WithRepoLock(context.Background(), opts, func() error {
		ran = true
		if _, statErr := os.Stat(opts.SentinelPath); statErr != nil {
			t.Fatalf("sentinel should exist while the lock is held: %v", statErr)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("WithRepoLock: %v", err)
	}
	if !ran {
		t.Fatal("task was not run")
	}
	if _, err := os.Stat(opts.SentinelPath); !os.IsNotExist(err) {
		t.Fatalf("sentinel should be removed after release, err=%v", err)
	}
}

func TestWithRepoLockPropagatesTaskError(t *testing.T) {
	opts := testOptions(t)
	sentinelErr := wterr.New(wterr.InternalError, "task blew up")

	err := WithRepoLock(context.Background(), opts, func() error { return sentinelErr })
	if err != sentinelErr {
		t.Fatalf("expected the task's own error to propagate, got %v", err)
	}
	if _, statErr := os.Stat(opts.SentinelPath); !os.IsNotExist(statErr) {
		t.Fatalf("sentinel should still be released after a failing task, err=%v", statErr)
	}
}

func TestWithRepoLockTimesOutWhenHeldByFreshAliveOwner(t *testing.T) {
	opts := testOptions(t)
	opts.TimeoutMs = 150

	// Simulate a live concurrent holder: the flock guard is actually held,
	// and the sentinel records our own (therefore "alive") pid and a fresh
	// startedAt, so the second acquirer must not treat it as stale.
	guard := flock.New(opts.SentinelPath + ".flock")
	locked, err := guard.TryLock()
	if err != nil || !locked {
		t.Fatalf("failed to acquire the guard flock directly: locked=%v err=%v", locked, err)
	}
	defer func() { _ = guard.Unlock() }()

	hostname, _ := os.Hostname()
	sentinel := Sentinel{
		SchemaVersion: SchemaVersion,
		Owner:         "other-process",
		Command:       "new",
		PID:           os.Getpid(),
		Host:          hostname,
		StartedAt:     time.Now().UTC(),
	}
	if _, err := store.WriteExclusively(opts.SentinelPath, sentinel); err != nil {
		t.Fatalf("seeding sentinel: %v", err)
	}

	err = WithRepoLock(context.Background(), opts, func() error {
		t.Fatal("task should not run while the lock is held elsewhere")
		return nil
	})
	if wterr.KindFor(err) != wterr.RepoLockTimeout {
		t.Fatalf("expected REPO_LOCK_TIMEOUT, got %v", err)
	}
}

func TestWithRepoLockRecoversStaleSentinelFromDeadPID(t *testing.T) {
	opts := testOptions(t)

	// The flock guard itself is NOT held (simulating a process that died
	// without releasing it), but a stale sentinel naming an implausible PID
	// was left behind.
	hostname, _ := os.Hostname()
	sentinel := Sentinel{
		SchemaVersion: SchemaVersion,
		Owner:         "crashed-process",
		Command:       "new",
		PID:           999999999,
		Host:          hostname,
		StartedAt:     time.Now().UTC(),
	}
	if _, err := store.WriteExclusively(opts.SentinelPath, sentinel); err != nil {
		t.Fatalf("seeding sentinel: %v", err)
	}

	var ran bool
	err := WithRepoLock(context.Background(), opts, func() error {
		ran = true
		return nil
	})
	if err != nil {
		t.Fatalf("expected the stale sentinel to be recovered, got %v", err)
	}
	if !ran {
		t.Fatal("task was not run after stale-lock recovery")
	}
}

func TestWithRepoLockRecoversStaleSentinelFromOldForeignHost(t *testing.T) {
	opts := testOptions(t)
	opts.StaleTTLSecs = 1

	sentinel := Sentinel{
		SchemaVersion: SchemaVersion,
		Owner:         "other-machine",
		Command:       "new",
		PID:           os.Getpid(),
		Host:          "some-other-host-entirely",
		StartedAt:     time.Now().UTC().Add(-1 * time.Hour),
	}
	if _, err := store.WriteExclusively(opts.SentinelPath, sentinel); err != nil {
		t.Fatalf("seeding sentinel: %v", err)
	}

	err := WithRepoLock(context.Background(), opts, func() error { return nil })
	if err != nil {
		t.Fatalf("expected an old foreign-host sentinel past its TTL to be recovered, got %v", err)
	}
}
