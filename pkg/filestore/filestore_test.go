package filestore

import (
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
)

func TestSaveReadDelete(t *testing.T) {
	store := New(zerolog.Nop())
	path := filepath.Join(t.TempDir(), "nested", "dir", "result.txt")

	if _, err := store.Save(path, []byte("hello"), true); err != nil {
		t.Fatalf("save: %v", err)
	}
	if !store.Exists(path) {
		t.Fatalf("expected %s to exist", path)
	}
	data, err := store.Read(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != "hello" {
		t.Fatalf("unexpected content %q", data)
	}
	if !store.Delete(path) {
		t.Fatalf("expected delete to succeed")
	}
	if store.Exists(path) {
		t.Fatalf("file should be gone")
	}
	if store.Delete(path) {
		t.Fatalf("deleting a missing file should report false")
	}
}

func TestSaveWithoutCreateDir(t *testing.T) {
	store := New(zerolog.Nop())
	path := filepath.Join(t.TempDir(), "missing", "file.txt")
	if _, err := store.Save(path, []byte("x"), false); err == nil {
		t.Fatalf("expected error writing into missing directory")
	}
}

func TestExistsIgnoresDirectories(t *testing.T) {
	store := New(zerolog.Nop())
	if store.Exists(t.TempDir()) {
		t.Fatalf("directories should not count as files")
	}
}
