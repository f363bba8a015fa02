// Package store implements atomic JSON persistence for the tool's on-disk
// metadata: lock records, lifecycle records, and the repo-lock sentinel.
// Every write goes through a temp-file-then-rename or exclusive-create path
// so concurrent readers never observe a torn file, the same
// write-to-temp-then-swap pattern used for atomic JSONL syncing elsewhere.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/vde-tools/worktree/internal/wterr"
)

var tempCounter uint64

// ReadResult is the outcome of reading and validating a persisted record.
type ReadResult struct {
	Exists bool
	Valid  bool
	Record json.RawMessage
	Path   string
}

// Validator checks a decoded record's schemaVersion and shape.
type Validator func(raw json.RawMessage) bool

// ReadRecord reads path and validates it. A missing file is not an error:
// it reports Exists=false, Valid=true, Record=nil. A present-but-unparseable
// or failing-validation file reports Exists=true, Valid=false.
func ReadRecord(path string, validate Validator) (ReadResult, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path is derived from managed metadata root
	if err != nil {
		if os.IsNotExist(err) {
			return ReadResult{Exists: false, Valid: true, Path: path}, nil
		}
		return ReadResult{}, wterr.Wrap(wterr.InternalError, "reading record "+path, err)
	}

	var raw json.RawMessage
	if jerr := json.Unmarshal(data, &raw); jerr != nil {
		return ReadResult{Exists: true, Valid: false, Path: path}, nil
	}
	if validate != nil && !validate(raw) {
		return ReadResult{Exists: true, Valid: false, Path: path}, nil
	}
	return ReadResult{Exists: true, Valid: true, Record: raw, Path: path}, nil
}

// WriteAtomically marshals payload, appends a trailing newline, writes it to
// a unique temp file in the destination directory, then renames it over
// path. On any failure the temp file is removed best-effort before the
// error is re-raised. When ensureDir is true, path's parent directories are
// created first.
func WriteAtomically(path string, payload any, ensureDir bool) error {
	dir := filepath.Dir(path)
	if ensureDir {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return wterr.Wrap(wterr.InternalError, "creating directory "+dir, err)
		}
	}

	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return wterr.Wrap(wterr.InternalError, "marshaling record", err)
	}
	data = append(data, '\n')

	n := atomic.AddUint64(&tempCounter, 1)
	tmpName := fmt.Sprintf(".%s.tmp.%d.%d", filepath.Base(path), os.Getpid(), n)
	tmpPath := filepath.Join(dir, tmpName)

	if err := os.WriteFile(tmpPath, data, 0o600); err != nil {
		_ = os.Remove(tmpPath)
		return wterr.Wrap(wterr.InternalError, "writing temp file "+tmpPath, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return wterr.Wrap(wterr.InternalError, "renaming temp file into place: "+path, err)
	}
	return nil
}

// WriteExclusively writes payload to path using create-exclusive semantics.
// Returns (false, nil) on collision (file already exists) so callers can
// treat that as "already held"; other I/O errors are re-raised.
func WriteExclusively(path string, payload any) (bool, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return false, wterr.Wrap(wterr.InternalError, "creating directory "+dir, err)
	}

	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return false, wterr.Wrap(wterr.InternalError, "marshaling record", err)
	}
	data = append(data, '\n')

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		if os.IsExist(err) {
			return false, nil
		}
		return false, wterr.Wrap(wterr.InternalError, "creating "+path, err)
	}
	defer func() { _ = f.Close() }()

	if _, err := f.Write(data); err != nil {
		return false, wterr.Wrap(wterr.InternalError, "writing "+path, err)
	}
	return true, nil
}

// Remove deletes path, treating "already gone" as success.
func Remove(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return wterr.Wrap(wterr.InternalError, "removing "+path, err)
	}
	return nil
}

// Decode unmarshals raw into v, wrapping any error as INTERNAL_ERROR.
func Decode(raw json.RawMessage, v any) error {
	if err := json.Unmarshal(raw, v); err != nil {
		return wterr.Wrap(wterr.InternalError, "decoding record", err)
	}
	return nil
}
