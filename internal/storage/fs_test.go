package storage

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
)

func TestWriteAndRead(t *testing.T) {
	p := filepath.Join(t.TempDir(), "state.json")
	content := []byte(`{"a": "b"}`)
	if err := WriteAtomic(p, content, 0o644); err != nil {
		t.Fatalf("WriteAtomic: %v", err)
	}
	got, err := Read(p)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != string(content) {
		t.Errorf("content mismatch: got %q", got)
	}
}

func TestWriteCreatesParentDirs(t *testing.T) {
	p := filepath.Join(t.TempDir(), "a", "b", "state.json")
	if err := WriteAtomic(p, []byte("deep"), 0o644); err != nil {
		t.Fatalf("WriteAtomic: %v", err)
	}
	got, err := Read(p)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != "deep" {
		t.Errorf("content = %q", got)
	}
}

func TestWriteAppliesPermissions(t *testing.T) {
	p := filepath.Join(t.TempDir(), "perm.json")
	if err := WriteAtomic(p, []byte("x"), 0o600); err != nil {
		t.Fatalf("WriteAtomic: %v", err)
	}
	info, err := os.Stat(p)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("perm = %v, want 0600", info.Mode().Perm())
	}
}

func TestAtomicOverwriteNoLeftovers(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "atomic.json")
	_ = WriteAtomic(p, []byte("original content"), 0o644)

	updated := []byte("updated content")
	if err := WriteAtomic(p, updated, 0o644); err != nil {
		t.Fatalf("WriteAtomic: %v", err)
	}
	got, _ := Read(p)
	if string(got) != string(updated) {
		t.Errorf("expected updated content, got %q", got)
	}

	matches, _ := filepath.Glob(filepath.Join(dir, tmpPattern))
	if len(matches) != 0 {
		t.Errorf("leftover temp files: %v", matches)
	}
}

func TestWriteIntoFileParentFails(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := WriteAtomic(filepath.Join(blocker, "state.json"), []byte("x"), 0o644); err == nil {
		t.Error("expected error when parent is a regular file")
	}
}

func TestReadMissingWrapsNotExist(t *testing.T) {
	_, err := Read(filepath.Join(t.TempDir(), "missing.json"))
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("err = %v, want fs.ErrNotExist", err)
	}
}
