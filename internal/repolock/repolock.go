// Package repolock implements the single-holder, repo-wide file lock that
// serializes mutating commands. A gofrs/flock OS-level lock guards the
// brief create/unlink critical section around the JSON sentinel itself,
// while the sentinel file (not the flock handle) is what survives across
// process restarts and carries the owner/host/pid/startedAt staleness
// evidence.
package repolock

import (
	"context"
	"os"
	"time"

	"github.com/gofrs/flock"

	"github.com/vde-tools/worktree/internal/store"
	"github.com/vde-tools/worktree/internal/wterr"
)

const SchemaVersion = 1

// Sentinel is the persisted repo-lock record.
type Sentinel struct {
	SchemaVersion int       `json:"schemaVersion"`
	Owner         string    `json:"owner"`
	Command       string    `json:"command"`
	PID           int       `json:"pid"`
	Host          string    `json:"host"`
	StartedAt     time.Time `json:"startedAt"`
}

// Options configures one acquire-run-release cycle.
type Options struct {
	RepoRoot     string
	SentinelPath string
	Command      string
	TimeoutMs    int
	StaleTTLSecs int
}

const pollInterval = 100 * time.Millisecond

// WithRepoLock acquires the sentinel at opts.SentinelPath (recovering a
// stale holder when eligible), runs task, and always releases -- unlinking
// the sentinel on both success and error.
func WithRepoLock(ctx context.Context, opts Options, task func() error) error {
	guard := flock.New(opts.SentinelPath + ".flock")

	deadline := time.Now().Add(time.Duration(opts.TimeoutMs) * time.Millisecond)
	for {
		acquired, err := tryAcquire(ctx, guard, opts)
		if err != nil {
			return err
		}
		if acquired {
			break
		}
		if time.Now().After(deadline) {
			return wterr.New(wterr.RepoLockTimeout, "timed out waiting for repo lock")
		}
		time.Sleep(pollInterval)
	}

	defer func() {
		_ = store.Remove(opts.SentinelPath)
		_ = guard.Unlock()
	}()

	return task()
}

func tryAcquire(ctx context.Context, guard *flock.Flock, opts Options) (bool, error) {
	locked, err := guard.TryLockContext(ctx, 10*time.Millisecond)
	if err != nil || !locked {
		return false, nil
	}
	defer func() {
		if !locked {
			_ = guard.Unlock()
		}
	}()

	hostname, _ := os.Hostname()
	sentinel := Sentinel{
		SchemaVersion: SchemaVersion,
		Owner:         opts.Command,
		Command:       opts.Command,
		PID:           os.Getpid(),
		Host:          hostname,
		StartedAt:     time.Now().UTC(),
	}

	created, err := store.WriteExclusively(opts.SentinelPath, sentinel)
	if err != nil {
		locked = false
		return false, wterr.Wrap(wterr.InternalError, "writing repo lock sentinel", err)
	}
	if created {
		return true, nil
	}

	// Collision: inspect the current sentinel for stale-owner recovery.
	recoverable, recErr := isStaleRecoverable(opts)
	if recErr != nil {
		locked = false
		return false, nil
	}
	if !recoverable {
		locked = false
		return false, nil
	}
	if err := store.Remove(opts.SentinelPath); err != nil {
		locked = false
		return false, wterr.Wrap(wterr.RepoLockStaleRecovery, "failed to remove stale repo lock sentinel", err)
	}

	created, err = store.WriteExclusively(opts.SentinelPath, sentinel)
	if err != nil || !created {
		locked = false
		return false, nil
	}
	return true, nil
}

// isStaleRecoverable reports whether the sentinel is recoverable: it is if
// unparseable, or if owner host != ours, owner pid is dead, or
// startedAt + staleTTL < now.
func isStaleRecoverable(opts Options) (bool, error) {
	res, err := store.ReadRecord(opts.SentinelPath, nil)
	if err != nil {
		return false, err
	}
	if !res.Exists {
		return true, nil
	}
	if !res.Valid {
		return true, nil
	}
	var s Sentinel
	if derr := store.Decode(res.Record, &s); derr != nil {
		return true, nil
	}

	hostname, _ := os.Hostname()
	if s.Host != "" && s.Host != hostname {
		// Foreign host: assume alive, but a sufficiently old startedAt
		// still recovers it.
		return time.Since(s.StartedAt) > time.Duration(opts.StaleTTLSecs)*time.Second, nil
	}

	if !pidAlive(s.PID) {
		return true, nil
	}
	return time.Since(s.StartedAt) > time.Duration(opts.StaleTTLSecs)*time.Second, nil
}

