package keystore

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

type doc struct {
	Items []string `json:"items"`
	Count int      `json:"count"`
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "doc.json")
	f := New[doc](path)

	want := doc{Items: []string{"a", "b"}, Count: 2}
	if err := f.Save(want); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := New[doc](path).Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Load() mismatch (-want +got):\n%s", diff)
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if diff := cmp.Diff(1, len(entries)); diff != "" {
		t.Errorf("expected no leftover temp files (-want +got):\n%s", diff)
	}
}

func TestSaveOverwrites(t *testing.T) {
	f := New[map[string]string](filepath.Join(t.TempDir(), "m.json"))

	if err := f.Save(map[string]string{"a": "1", "b": "2"}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := f.Save(map[string]string{"c": "3"}); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := f.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if diff := cmp.Diff(map[string]string{"c": "3"}, got); diff != "" {
		t.Errorf("Load() mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()

	t.Run("missing file", func(t *testing.T) {
		_, err := New[doc](filepath.Join(dir, "absent.json")).Load()
		if !errors.Is(err, fs.ErrNotExist) {
			t.Fatalf("expected fs.ErrNotExist, got %v", err)
		}
	})

	t.Run("malformed file", func(t *testing.T) {
		path := filepath.Join(dir, "bad.json")
		if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
			t.Fatalf("write: %v", err)
		}
		_, err := New[doc](path).Load()
		if err == nil {
			t.Fatal("expected decode error, got nil")
		}
		if errors.Is(err, fs.ErrNotExist) {
			t.Fatalf("decode error must not look like a missing file: %v", err)
		}
	})
}
