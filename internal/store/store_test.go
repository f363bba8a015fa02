package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

type sample struct {
	SchemaVersion int    `json:"schemaVersion"`
	Name          string `json:"name"`
}

func TestReadRecordMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent.json")
	res, err := ReadRecord(path, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Exists || !res.Valid || res.Record != nil {
		t.Fatalf("missing file result: %+v", res)
	}
}

func TestWriteAtomicallyThenReadRecord(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "record.json")
	payload := sample{SchemaVersion: 1, Name: "foo"}

	if err := WriteAtomically(path, payload, true); err != nil {
		t.Fatalf("WriteAtomically: %v", err)
	}

	res, err := ReadRecord(path, func(raw json.RawMessage) bool {
		var s sample
		return json.Unmarshal(raw, &s) == nil && s.SchemaVersion == 1
	})
	if err != nil {
		t.Fatalf("ReadRecord: %v", err)
	}
	if !res.Exists || !res.Valid {
		t.Fatalf("expected exists+valid, got %+v", res)
	}

	var decoded sample
	if err := Decode(res.Record, &decoded); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if decoded.Name != "foo" {
		t.Fatalf("decoded.Name = %q, want foo", decoded.Name)
	}
}

func TestReadRecordInvalidatesOnValidatorFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "record.json")
	if err := WriteAtomically(path, sample{SchemaVersion: 1, Name: "foo"}, false); err != nil {
		t.Fatalf("WriteAtomically: %v", err)
	}

	res, err := ReadRecord(path, func(json.RawMessage) bool { return false })
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Exists || res.Valid {
		t.Fatalf("expected exists=true valid=false, got %+v", res)
	}
}

func TestReadRecordInvalidOnMalformedJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "record.json")
	if err := os.WriteFile(path, []byte("not json"), 0o600); err != nil {
		t.Fatalf("os.WriteFile: %v", err)
	}
	res, err := ReadRecord(path, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Exists || res.Valid {
		t.Fatalf("expected exists=true valid=false for malformed json, got %+v", res)
	}
}

func TestWriteExclusively(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lock.json")

	created, err := WriteExclusively(path, sample{SchemaVersion: 1, Name: "first"})
	if err != nil {
		t.Fatalf("first WriteExclusively: %v", err)
	}
	if !created {
		t.Fatal("expected created=true on first write")
	}

	created, err = WriteExclusively(path, sample{SchemaVersion: 1, Name: "second"})
	if err != nil {
		t.Fatalf("second WriteExclusively: %v", err)
	}
	if created {
		t.Fatal("expected created=false when the file already exists")
	}

	res, err := ReadRecord(path, nil)
	if err != nil || !res.Exists {
		t.Fatalf("ReadRecord after collision: %v, %+v", err, res)
	}
	var decoded sample
	if err := Decode(res.Record, &decoded); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if decoded.Name != "first" {
		t.Fatalf("collision must not overwrite the original: got %q", decoded.Name)
	}
}

func TestRemoveMissingIsNoop(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent.json")
	if err := Remove(path); err != nil {
		t.Fatalf("removing an absent file should be a no-op, got %v", err)
	}
}

func TestDecodeInvalidJSON(t *testing.T) {
	var s sample
	if err := Decode(json.RawMessage("not json"), &s); err == nil {
		t.Fatal("expected a decode error for malformed JSON")
	}
}
