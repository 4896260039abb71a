package blueprint

import (
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"sync"
)

// Logger is the minimal logging surface the registry needs. The daemon
// passes its structured logger; anything with these four methods works.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger drops everything. Registries log nowhere until SetLogger
// is called.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// cacheEntry records the outcome of loading one path: either the
// parsed blueprint or the error the load produced. Failed entries are
// kept so the original diagnostic is re-surfaced on every subsequent
// access instead of re-parsing the file each time; they are retried
// only by ListAll rescans, Remove, or ResetCache.
//
// Entries are replaced wholesale under the registry lock and never
// mutated in place, which is what makes the lock-free fast path in
// GetOne safe.
type cacheEntry struct {
	blueprint *Blueprint
	err       error
}

// LoadResult is one ListAll entry: the blueprint for a path, or the
// error that loading it produced.
type LoadResult struct {
	Blueprint *Blueprint
	Err       error
}

// DomainRegistry owns the on-disk blueprints of one domain. It caches
// parsed blueprints keyed by relative path and serializes concurrent
// loads, so at most one disk read happens per registry at a time and
// concurrent requests for the same uncached path collapse into a
// single load.
//
// Per-path lifecycle: unloaded -> loading -> cached-valid or
// cached-failed. A failed path is not retried automatically; ListAll,
// Remove and ResetCache are the only ways out.
//
// All public methods are thread-safe.
type DomainRegistry struct {
	domain string
	store  Store
	mu     sync.RWMutex
	cache  map[string]*cacheEntry
	logger Logger
}

// NewDomainRegistry creates a registry for one domain over the given
// store.
func NewDomainRegistry(domain string, store Store) *DomainRegistry {
	return &DomainRegistry{
		domain: domain,
		store:  store,
		cache:  make(map[string]*cacheEntry),
		logger: noopLogger{},
	}
}

// SetLogger sets the logger for the registry.
func (r *DomainRegistry) SetLogger(logger Logger) {
	r.logger = logger
}

// Domain returns the domain this registry serves.
func (r *DomainRegistry) Domain() string {
	return r.domain
}

// load reads and constructs one blueprint. Callers hold the registry
// lock; load itself takes no locks.
func (r *DomainRegistry) load(path string) (*Blueprint, error) {
	data, err := r.store.Read(r.domain, path)
	if err != nil {
		return nil, &FailedToLoadError{Domain: r.domain, Path: path, Err: err}
	}

	doc, err := ParseDocument(data)
	if err != nil {
		return nil, &FailedToLoadError{Domain: r.domain, Path: path, Err: err}
	}

	return New(doc, r.domain, path)
}

// GetOne returns the blueprint at path, loading it on first access.
//
// Fast path: a lock-free cache read returns the stored outcome,
// success or failure, without touching disk. Slow path: take the
// registry lock, re-check the cache (double-checked locking collapses
// duplicate concurrent loads into one file read), load, cache the
// outcome either way, and propagate any error. A failure stays cached
// and is returned verbatim until the cache is reset, the path is
// removed, or a ListAll rescan retries it.
func (r *DomainRegistry) GetOne(path string) (*Blueprint, error) {
	r.mu.RLock()
	entry, ok := r.cache[path]
	r.mu.RUnlock()
	if ok {
		return entry.blueprint, entry.err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Check it again: another goroutine may have loaded this path
	// while we waited for the lock.
	if entry, ok := r.cache[path]; ok {
		return entry.blueprint, entry.err
	}

	bp, err := r.load(path)
	r.cache[path] = &cacheEntry{blueprint: bp, err: err}
	if err != nil {
		r.logger.Warn("blueprint load failed", "domain", r.domain, "path", path, "error", err)
		return nil, err
	}

	r.logger.Debug("blueprint loaded", "domain", r.domain, "path", path, "name", bp.Name())
	return bp, nil
}

// ListAll scans the domain directory and returns every blueprint file
// with its load outcome. Cached-valid entries are reused; uncached and
// previously failed paths are (re)loaded, so a rescan picks up files
// that have been fixed on disk. The whole scan runs under the registry
// lock to avoid interleaving with single-path loads.
//
// The returned error covers directory enumeration only; per-file
// failures are reported in the result map.
func (r *DomainRegistry) ListAll() (map[string]LoadResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	paths, err := r.store.List(r.domain)
	if err != nil {
		return nil, err
	}

	results := make(map[string]LoadResult, len(paths))
	for _, path := range paths {
		entry, ok := r.cache[path]
		if !ok || entry.err != nil {
			bp, err := r.load(path)
			entry = &cacheEntry{blueprint: bp, err: err}
			r.cache[path] = entry
			if err != nil {
				r.logger.Warn("blueprint load failed", "domain", r.domain, "path", path, "error", err)
			}
		}
		results[path] = LoadResult{Blueprint: entry.blueprint, Err: entry.err}
	}
	return results, nil
}

// InstantiateFromConfig resolves an instance config into validated
// Inputs ready for substitution. The config must carry a use_blueprint
// section naming the blueprint path and supplying its input values;
// shape violations fail with InvalidBlueprintInputsError before any
// blueprint is resolved.
func (r *DomainRegistry) InstantiateFromConfig(config map[string]any) (*Inputs, error) {
	path, err := validateInstanceConfig(r.domain, config)
	if err != nil {
		return nil, err
	}

	bp, err := r.GetOne(path)
	if err != nil {
		return nil, err
	}

	inputs := NewInputs(bp, config)
	if err := inputs.Validate(); err != nil {
		return nil, err
	}
	return inputs, nil
}

// Add serializes a blueprint and writes it to a new file under the
// domain directory, appending the standard extension when the caller
// omitted it. This is a create-only operation: an occupied path fails
// with FileAlreadyExistsError and is never overwritten. On success the
// blueprint is cached under its final path, which is returned.
func (r *DomainRegistry) Add(bp *Blueprint, path string) (string, error) {
	if bp.Domain() != r.domain {
		return "", &InvalidBlueprintError{
			Domain: r.domain,
			Path:   path,
			Msg:    fmt.Sprintf("found incorrect blueprint domain %q, expected %q", bp.Domain(), r.domain),
		}
	}
	if !strings.HasSuffix(path, Extension) {
		path += Extension
	}

	data, err := bp.YAML()
	if err != nil {
		return "", fmt.Errorf("serializing blueprint: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.store.Write(r.domain, path, data); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return "", &FileAlreadyExistsError{Domain: r.domain, Path: path}
		}
		return "", fmt.Errorf("writing blueprint %s: %w", path, err)
	}

	r.cache[path] = &cacheEntry{blueprint: bp}
	r.logger.Info("blueprint added", "domain", r.domain, "path", path, "name", bp.Name())
	return path, nil
}

// Remove deletes the backing file and evicts the cache entry. The next
// GetOne for the path goes back to disk.
func (r *DomainRegistry) Remove(path string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.store.Remove(r.domain, path); err != nil {
		return fmt.Errorf("removing blueprint %s: %w", path, err)
	}

	delete(r.cache, path)
	r.logger.Info("blueprint removed", "domain", r.domain, "path", path)
	return nil
}

// ResetCache clears the entire cache, forcing the next access to
// reload from disk. Previously failed paths get another chance.
func (r *DomainRegistry) ResetCache() {
	r.mu.Lock()
	r.cache = make(map[string]*cacheEntry)
	r.mu.Unlock()

	r.logger.Info("blueprint cache reset", "domain", r.domain)
}

// CacheSize returns the number of cache entries, including failed ones.
func (r *DomainRegistry) CacheSize() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.cache)
}

// CachedPaths returns the cached paths in lexical order, for status
// reporting.
func (r *DomainRegistry) CachedPaths() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	paths := make([]string, 0, len(r.cache))
	for p := range r.cache {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}
