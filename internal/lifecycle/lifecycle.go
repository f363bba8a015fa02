// Package lifecycle persists per-branch merge-lifecycle records: the
// minimal history needed to recognize a branch that was once ahead of base
// and has since been integrated.
package lifecycle

import (
	"time"

	"github.com/vde-tools/worktree/internal/pathid"
	"github.com/vde-tools/worktree/internal/store"
)

const SchemaVersion = 2

// Record is the persisted merge-lifecycle state for one branch.
type Record struct {
	SchemaVersion    int       `json:"schemaVersion"`
	Branch           string    `json:"branch"`
	WorktreeID       string    `json:"worktreeId"`
	BaseBranch       string    `json:"baseBranch"`
	EverDiverged     bool      `json:"everDiverged"`
	LastDivergedHead *string   `json:"lastDivergedHead"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// Read loads the lifecycle record for branch. A legacy schemaVersion=1
// record (or any record failing to decode) is treated as absent: the
// source replaces rather than migrates.
func Read(repoRoot, branch string) (*Record, error) {
	path := pathid.LifecyclePath(repoRoot, branch)
	res, err := store.ReadRecord(path, nil)
	if err != nil {
		return nil, err
	}
	if !res.Exists || !res.Valid {
		return nil, nil
	}
	var r Record
	if err := store.Decode(res.Record, &r); err != nil {
		return nil, nil
	}
	if r.SchemaVersion != SchemaVersion {
		return nil, nil
	}
	return &r, nil
}

// Upsert applies the lifecycle upsert rule: everDiverged is sticky (OR'd
// forward, never reset), lastDivergedHead is overwritten only when a fresh
// observedDivergedHead is supplied, and createdAt survives updates.
func Upsert(repoRoot, branch, baseBranch string, observedDivergedHead *string, now time.Time) (*Record, error) {
	existing, err := Read(repoRoot, branch)
	if err != nil {
		return nil, err
	}

	rec := &Record{
		SchemaVersion: SchemaVersion,
		Branch:        branch,
		WorktreeID:    pathid.WorktreeID(branch),
		BaseBranch:    baseBranch,
		UpdatedAt:     now,
	}

	switch {
	case existing == nil:
		rec.CreatedAt = now
		rec.EverDiverged = observedDivergedHead != nil
		rec.LastDivergedHead = observedDivergedHead
	default:
		rec.CreatedAt = existing.CreatedAt
		rec.EverDiverged = existing.EverDiverged || observedDivergedHead != nil
		if observedDivergedHead != nil {
			rec.LastDivergedHead = observedDivergedHead
		} else {
			rec.LastDivergedHead = existing.LastDivergedHead
		}
	}

	path := pathid.LifecyclePath(repoRoot, branch)
	if err := store.WriteAtomically(path, rec, true); err != nil {
		return nil, err
	}
	return rec, nil
}

// Move relocates a lifecycle record from oldBranch to newBranch, writing at
// the target path first and deleting the source only on success -- so a
// round-trip mv A->B, mv B->A restores the original createdAt.
func Move(repoRoot, oldBranch, newBranch string, now time.Time) error {
	existing, err := Read(repoRoot, oldBranch)
	if err != nil {
		return err
	}
	if existing == nil {
		return nil
	}

	rec := &Record{
		SchemaVersion:    SchemaVersion,
		Branch:           newBranch,
		WorktreeID:       pathid.WorktreeID(newBranch),
		BaseBranch:       existing.BaseBranch,
		EverDiverged:     existing.EverDiverged,
		LastDivergedHead: existing.LastDivergedHead,
		CreatedAt:        existing.CreatedAt,
		UpdatedAt:        now,
	}

	newPath := pathid.LifecyclePath(repoRoot, newBranch)
	if err := store.WriteAtomically(newPath, rec, true); err != nil {
		return err
	}
	return store.Remove(pathid.LifecyclePath(repoRoot, oldBranch))
}

// Delete removes the lifecycle record for branch.
func Delete(repoRoot, branch string) error {
	return store.Remove(pathid.LifecyclePath(repoRoot, branch))
}
