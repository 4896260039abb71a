package blueprint

import (
	"bytes"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestFileStoreWriteRead(t *testing.T) {
	s := NewFileStore(t.TempDir())
	data := []byte("blueprint:\n  name: Test\n")

	if err := s.Write("automation", "motion.yaml", data); err != nil {
		t.Fatalf("Write: %v", err)
	}

	got, err := s.Read("automation", "motion.yaml")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Errorf("Read = %q, want %q", got, data)
	}
}

func TestFileStoreWriteIsCreateOnly(t *testing.T) {
	s := NewFileStore(t.TempDir())

	if err := s.Write("automation", "motion.yaml", []byte("first")); err != nil {
		t.Fatalf("Write: %v", err)
	}

	err := s.Write("automation", "motion.yaml", []byte("second"))
	if !errors.Is(err, fs.ErrExist) {
		t.Fatalf("second Write error = %v, want fs.ErrExist", err)
	}

	// The original contents must survive the rejected write.
	got, err := s.Read("automation", "motion.yaml")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != "first" {
		t.Errorf("contents = %q, want %q", got, "first")
	}
}

func TestFileStoreWriteCreatesParents(t *testing.T) {
	s := NewFileStore(t.TempDir())

	if err := s.Write("automation", "lights/hall/motion.yaml", []byte("x")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if _, err := s.Read("automation", "lights/hall/motion.yaml"); err != nil {
		t.Fatalf("Read: %v", err)
	}
}

func TestFileStoreRemove(t *testing.T) {
	s := NewFileStore(t.TempDir())

	if err := s.Write("automation", "motion.yaml", []byte("x")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := s.Remove("automation", "motion.yaml"); err != nil {
		t.Fatalf("Remove: %v", err)
	}

	if _, err := s.Read("automation", "motion.yaml"); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("Read after Remove = %v, want fs.ErrNotExist", err)
	}
	if err := s.Remove("automation", "motion.yaml"); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("second Remove = %v, want fs.ErrNotExist", err)
	}
}

func TestFileStoreRejectsEscapingPaths(t *testing.T) {
	s := NewFileStore(t.TempDir())

	paths := []string{
		"",
		"..",
		"../escape.yaml",
		"/etc/passwd",
		"sub/../../escape.yaml",
	}

	for _, p := range paths {
		t.Run("path "+p, func(t *testing.T) {
			if _, err := s.Read("automation", p); !errors.Is(err, ErrInvalidPath) {
				t.Errorf("Read = %v, want ErrInvalidPath", err)
			}
			if err := s.Write("automation", p, []byte("x")); !errors.Is(err, ErrInvalidPath) {
				t.Errorf("Write = %v, want ErrInvalidPath", err)
			}
			if err := s.Remove("automation", p); !errors.Is(err, ErrInvalidPath) {
				t.Errorf("Remove = %v, want ErrInvalidPath", err)
			}
		})
	}
}

func TestFileStoreList(t *testing.T) {
	t.Run("recursive and sorted", func(t *testing.T) {
		s := NewFileStore(t.TempDir())
		for _, p := range []string{"c.yaml", "a.yaml", "sub/b.yaml"} {
			if err := s.Write("automation", p, []byte("x")); err != nil {
				t.Fatalf("Write %s: %v", p, err)
			}
		}
		// Non-blueprint files are not listed.
		if err := s.Write("automation", "notes.txt", []byte("x")); err != nil {
			t.Fatalf("Write notes.txt: %v", err)
		}

		paths, err := s.List("automation")
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		want := []string{"a.yaml", "c.yaml", "sub/b.yaml"}
		if !reflect.DeepEqual(paths, want) {
			t.Errorf("List = %v, want %v", paths, want)
		}
	})

	t.Run("missing domain directory", func(t *testing.T) {
		s := NewFileStore(t.TempDir())

		paths, err := s.List("climate")
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		if len(paths) != 0 {
			t.Errorf("List = %v, want empty", paths)
		}
	})

	t.Run("empty domain directory", func(t *testing.T) {
		s := NewFileStore(t.TempDir())
		if err := s.EnsureDomain("automation"); err != nil {
			t.Fatalf("EnsureDomain: %v", err)
		}

		paths, err := s.List("automation")
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		if len(paths) != 0 {
			t.Errorf("List = %v, want empty", paths)
		}
	})

	t.Run("domains are isolated", func(t *testing.T) {
		s := NewFileStore(t.TempDir())
		if err := s.Write("automation", "a.yaml", []byte("x")); err != nil {
			t.Fatalf("Write: %v", err)
		}
		if err := s.Write("script", "s.yaml", []byte("x")); err != nil {
			t.Fatalf("Write: %v", err)
		}

		paths, err := s.List("script")
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		if !reflect.DeepEqual(paths, []string{"s.yaml"}) {
			t.Errorf("List = %v, want [s.yaml]", paths)
		}
	})
}

func TestFileStoreEnsureDomain(t *testing.T) {
	root := t.TempDir()
	s := NewFileStore(root)

	if err := s.EnsureDomain("automation"); err != nil {
		t.Fatalf("EnsureDomain: %v", err)
	}
	info, err := os.Stat(filepath.Join(root, "automation"))
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if !info.IsDir() {
		t.Error("domain path is not a directory")
	}

	// Idempotent on an existing directory.
	if err := s.EnsureDomain("automation"); err != nil {
		t.Errorf("second EnsureDomain: %v", err)
	}

	if s.Root() != root {
		t.Errorf("Root = %q, want %q", s.Root(), root)
	}
}
