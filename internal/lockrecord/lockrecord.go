// Package lockrecord persists per-branch advisory lock metadata. These
// locks are informational only -- see internal/repolock for the mutual
// exclusion primitive that actually serializes mutations.
package lockrecord

import (
	"os"
	"time"

	"github.com/vde-tools/worktree/internal/pathid"
	"github.com/vde-tools/worktree/internal/store"
	"github.com/vde-tools/worktree/internal/wterr"
)

const SchemaVersion = 1

// Record is the persisted advisory lock for one branch.
type Record struct {
	SchemaVersion int       `json:"schemaVersion"`
	Branch        string    `json:"branch"`
	WorktreeID    string    `json:"worktreeId"`
	Reason        string    `json:"reason"`
	Owner         string    `json:"owner"`
	Host          string    `json:"host"`
	PID           int       `json:"pid"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// Read loads the lock record for branch, if any. A present-but-invalid file
// is reported via the second return value rather than an error so callers
// can render a {value:true, reason:"invalid lock metadata"} facet.
func Read(repoRoot, branch string) (rec *Record, valid bool, err error) {
	path := pathid.LockPath(repoRoot, branch)
	res, err := store.ReadRecord(path, nil)
	if err != nil {
		return nil, false, err
	}
	if !res.Exists {
		return nil, true, nil
	}
	if !res.Valid {
		return nil, false, nil
	}
	var r Record
	if err := store.Decode(res.Record, &r); err != nil {
		return nil, false, nil
	}
	if r.SchemaVersion != SchemaVersion {
		return nil, false, nil
	}
	return &r, true, nil
}

// Upsert creates or updates the lock record for branch, preserving
// createdAt across updates and requiring a non-empty reason.
func Upsert(repoRoot, branch, reason, owner string, now time.Time) (*Record, error) {
	if reason == "" {
		return nil, wterr.New(wterr.InvalidArgument, "lock reason must not be empty")
	}
	existing, _, _ := Read(repoRoot, branch)

	rec := &Record{
		SchemaVersion: SchemaVersion,
		Branch:        branch,
		WorktreeID:    pathid.WorktreeID(branch),
		Reason:        reason,
		Owner:         owner,
		PID:           os.Getpid(),
		UpdatedAt:     now,
	}
	if hostname, herr := os.Hostname(); herr == nil {
		rec.Host = hostname
	}
	if existing != nil {
		rec.CreatedAt = existing.CreatedAt
	} else {
		rec.CreatedAt = now
	}

	path := pathid.LockPath(repoRoot, branch)
	if err := store.WriteAtomically(path, rec, true); err != nil {
		return nil, err
	}
	return rec, nil
}

// Delete removes the lock record for branch.
func Delete(repoRoot, branch string) error {
	return store.Remove(pathid.LockPath(repoRoot, branch))
}

