package lockrecord

import (
	"testing"
	"time"

	"github.com/vde-tools/worktree/internal/wterr"
)

func TestReadMissingRecord(t *testing.T) {
	repoRoot := t.TempDir()
	rec, valid, err := Read(repoRoot, "feature/foo")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec != nil {
		t.Fatalf("expected nil record, got %+v", rec)
	}
	if !valid {
		t.Fatal("a missing record should report valid=true")
	}
}

func TestUpsertRequiresReason(t *testing.T) {
	repoRoot := t.TempDir()
	if _, err := Upsert(repoRoot, "feature/foo", "", "me", time.Now()); wterr.KindFor(err) != wterr.InvalidArgument {
		t.Fatalf("expected INVALID_ARGUMENT, got %v", err)
	}
}

func TestUpsertPreservesCreatedAt(t *testing.T) {
	repoRoot := t.TempDir()
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	t1 := t0.Add(time.Hour)

	first, err := Upsert(repoRoot, "feature/foo", "releasing soon", "alice", t0)
	if err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	if !first.CreatedAt.Equal(t0) {
		t.Fatalf("CreatedAt = %v, want %v", first.CreatedAt, t0)
	}

	second, err := Upsert(repoRoot, "feature/foo", "still releasing", "alice", t1)
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	if !second.CreatedAt.Equal(t0) {
		t.Fatalf("CreatedAt should survive update: got %v, want %v", second.CreatedAt, t0)
	}
	if second.Reason != "still releasing" {
		t.Fatalf("Reason not updated: %q", second.Reason)
	}
	if !second.UpdatedAt.Equal(t1) {
		t.Fatalf("UpdatedAt = %v, want %v", second.UpdatedAt, t1)
	}

	rec, valid, err := Read(repoRoot, "feature/foo")
	if err != nil || !valid {
		t.Fatalf("Read after upsert: rec=%v valid=%v err=%v", rec, valid, err)
	}
	if rec.Reason != "still releasing" {
		t.Fatalf("persisted Reason = %q", rec.Reason)
	}
}

func TestDelete(t *testing.T) {
	repoRoot := t.TempDir()
	if _, err := Upsert(repoRoot, "feature/foo", "testing delete", "bob", time.Now()); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := Delete(repoRoot, "feature/foo"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	rec, valid, err := Read(repoRoot, "feature/foo")
	if err != nil || !valid || rec != nil {
		t.Fatalf("expected absent record after delete, got rec=%v valid=%v err=%v", rec, valid, err)
	}
	if err := Delete(repoRoot, "feature/foo"); err != nil {
		t.Fatalf("deleting an already-absent record should be a no-op, got %v", err)
	}
}
