package blueprint

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Store abstracts blueprint file access for one blueprint root. This
// allows the registry to be tested against a stub without touching
// disk, and keeps path resolution in one place.
//
// Relative paths use forward slashes regardless of platform; they are
// the registry's cache keys.
type Store interface {
	// Read returns the raw contents of a blueprint file.
	Read(domain, relPath string) ([]byte, error)

	// Write creates a new blueprint file. It fails with an error
	// matching fs.ErrExist when the target already exists: writes
	// are create-only, never overwrites.
	Write(domain, relPath string, data []byte) error

	// Remove deletes a blueprint file.
	Remove(domain, relPath string) error

	// List enumerates every blueprint file under the domain
	// directory, recursively, sorted. A missing domain directory
	// yields an empty listing, not an error.
	List(domain string) ([]string, error)
}

// FileStore is the filesystem Store used in production. Blueprints
// live under <root>/<domain>/<relative path>.
type FileStore struct {
	root string
}

// NewFileStore creates a store over the given blueprint root directory.
func NewFileStore(root string) *FileStore {
	return &FileStore{root: root}
}

// Root returns the blueprint root directory.
func (s *FileStore) Root() string {
	return s.root
}

// EnsureDomain creates the directory for a domain if it is missing.
// Called at startup for each configured domain.
func (s *FileStore) EnsureDomain(domain string) error {
	if err := os.MkdirAll(filepath.Join(s.root, domain), 0o755); err != nil {
		return fmt.Errorf("creating blueprint directory for %s: %w", domain, err)
	}
	return nil
}

// resolve maps a domain and relative path to an absolute path,
// rejecting anything that would escape the domain directory. The
// store is reachable from the API, so traversal is a real concern.
func (s *FileStore) resolve(domain, relPath string) (string, error) {
	if relPath == "" || !filepath.IsLocal(filepath.FromSlash(relPath)) {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, relPath)
	}
	return filepath.Join(s.root, domain, filepath.FromSlash(relPath)), nil
}

// Read returns the contents of a blueprint file.
func (s *FileStore) Read(domain, relPath string) ([]byte, error) {
	abs, err := s.resolve(domain, relPath)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(abs)
}

// Write creates a new blueprint file, creating parent directories as
// needed. The O_EXCL flag makes the create-only guarantee atomic.
func (s *FileStore) Write(domain, relPath string, data []byte) error {
	abs, err := s.resolve(domain, relPath)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return fmt.Errorf("creating parent directory: %w", err)
	}

	f, err := os.OpenFile(abs, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close() //nolint:errcheck // write error takes precedence
		return fmt.Errorf("writing blueprint file: %w", err)
	}
	return f.Close()
}

// Remove deletes a blueprint file.
func (s *FileStore) Remove(domain, relPath string) error {
	abs, err := s.resolve(domain, relPath)
	if err != nil {
		return err
	}
	return os.Remove(abs)
}

// List walks the domain directory and returns every blueprint file as
// a slash-separated relative path, sorted for deterministic results.
func (s *FileStore) List(domain string) ([]string, error) {
	domainDir := filepath.Join(s.root, domain)

	var paths []string
	err := fs.WalkDir(os.DirFS(domainDir), ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			// A missing domain directory means no blueprints yet.
			if p == "." && os.IsNotExist(err) {
				return fs.SkipAll
			}
			return err
		}
		if d.IsDir() || !strings.HasSuffix(p, Extension) {
			return nil
		}
		paths = append(paths, p)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning blueprint directory %s: %w", domainDir, err)
	}

	sort.Strings(paths)
	return paths, nil
}
