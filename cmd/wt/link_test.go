package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLinkIntoDestination(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()

	srcFile := filepath.Join(src, "secrets.env")
	if err := os.WriteFile(srcFile, []byte("TOKEN=abc\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	if err := linkIntoDestination(src, dst, "secrets.env"); err != nil {
		t.Fatalf("linkIntoDestination() error = %v", err)
	}

	dstFile := filepath.Join(dst, "secrets.env")
	target, err := os.Readlink(dstFile)
	if err != nil {
		t.Fatalf("expected a symlink at destination, got error: %v", err)
	}
	if target != srcFile {
		t.Errorf("symlink target = %q, want %q", target, srcFile)
	}
}

func TestLinkIntoDestinationReplacesExisting(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()

	srcFile := filepath.Join(src, "secrets.env")
	if err := os.WriteFile(srcFile, []byte("TOKEN=abc\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	dstFile := filepath.Join(dst, "secrets.env")
	if err := os.WriteFile(dstFile, []byte("stale"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := linkIntoDestination(src, dst, "secrets.env"); err != nil {
		t.Fatalf("linkIntoDestination() error = %v", err)
	}

	info, err := os.Lstat(dstFile)
	if err != nil {
		t.Fatalf("stat destination: %v", err)
	}
	if info.Mode()&os.ModeSymlink == 0 {
		t.Error("expected the stale regular file to be replaced by a symlink")
	}
}

func TestLinkIntoDestinationMissingSource(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()

	if err := linkIntoDestination(src, dst, "nope"); err == nil {
		t.Fatal("expected an error for a missing source path")
	}
}
