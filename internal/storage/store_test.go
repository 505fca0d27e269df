package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

// stores returns one instance of every Store implementation.
func stores(t *testing.T) map[string]Store {
	t.Helper()

	fs, err := NewFileStore(filepath.Join(t.TempDir(), "out"))
	if err != nil {
		t.Fatalf("failed to create file store: %v", err)
	}
	return map[string]Store{
		"file":   fs,
		"memory": NewMemoryStore(),
	}
}

func TestStoreContract(t *testing.T) {
	t.Parallel()

	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			exists, err := store.Exists("a.txt")
			if err != nil {
				t.Fatalf("Exists returned error: %v", err)
			}
			if exists {
				t.Error("expected a.txt to be absent")
			}

			if _, err := store.Get("a.txt"); !errors.Is(err, ErrNotFound) {
				t.Errorf("expected ErrNotFound, got %v", err)
			}

			if err := store.Put("a.txt", []byte("first")); err != nil {
				t.Fatalf("Put returned error: %v", err)
			}
			if err := store.Put("a.txt", []byte("second")); err != nil {
				t.Fatalf("Put returned error: %v", err)
			}

			got, err := store.Get("a.txt")
			if err != nil {
				t.Fatalf("Get returned error: %v", err)
			}
			if string(got) != "second" {
				t.Errorf("expected overwritten content, got %q", got)
			}

			exists, err = store.Exists("a.txt")
			if err != nil || !exists {
				t.Errorf("expected a.txt to exist, got %v, %v", exists, err)
			}
		})
	}
}

func TestStoreRejectsInvalidKeys(t *testing.T) {
	t.Parallel()

	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			for _, key := range []string{"", "..", "../escape.txt", `a\b.txt`} {
				if err := store.Put(key, []byte("x")); !errors.Is(err, ErrInvalidKey) {
					t.Errorf("Put(%q): expected ErrInvalidKey, got %v", key, err)
				}
			}
		})
	}
}

func TestNewFileStore(t *testing.T) {
	t.Parallel()

	t.Run("creates nested directory", func(t *testing.T) {
		t.Parallel()

		dir := filepath.Join(t.TempDir(), "a", "b")
		fs, err := NewFileStore(dir)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if fs.Dir() != dir {
			t.Errorf("expected dir %s, got %s", dir, fs.Dir())
		}
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			t.Errorf("expected directory to exist: %v", err)
		}
	})

	t.Run("fails when path is a file", func(t *testing.T) {
		t.Parallel()

		file := filepath.Join(t.TempDir(), "file.txt")
		if err := os.WriteFile(file, []byte("x"), 0600); err != nil {
			t.Fatalf("failed to write file: %v", err)
		}
		if _, err := NewFileStore(file); err == nil {
			t.Error("expected error for file path")
		}
	})

	t.Run("put leaves no temp files behind", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		fs, err := NewFileStore(dir)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if err := fs.Put("page.txt", []byte("text")); err != nil {
			t.Fatalf("Put returned error: %v", err)
		}

		entries, err := os.ReadDir(dir)
		if err != nil {
			t.Fatalf("failed to read dir: %v", err)
		}
		if len(entries) != 1 || entries[0].Name() != "page.txt" {
			names := make([]string, 0, len(entries))
			for _, e := range entries {
				names = append(names, e.Name())
			}
			t.Errorf("expected only page.txt, got %v", names)
		}
	})
}

func TestMemoryStoreKeys(t *testing.T) {
	t.Parallel()

	m := NewMemoryStore()
	_ = m.Put("b.txt", nil) //nolint:errcheck // valid key
	_ = m.Put("a.txt", nil) //nolint:errcheck // valid key

	keys := m.Keys()
	if len(keys) != 2 || keys[0] != "a.txt" || keys[1] != "b.txt" {
		t.Errorf("unexpected keys: %v", keys)
	}
	if m.Puts() != 2 {
		t.Errorf("expected 2 puts, got %d", m.Puts())
	}
}
