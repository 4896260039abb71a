package blueprint

import (
	"fmt"
	"sort"
)

// Registries holds one DomainRegistry per configured domain. It is the
// explicit replacement for ambient process-wide lookup: main constructs
// it once and passes it to every consumer, which keeps registries
// testable in isolation.
//
// The domain map is built at construction and never mutated, so
// lookups need no locking; each registry handles its own concurrency.
type Registries struct {
	byDomain map[string]*DomainRegistry
}

// NewRegistries builds a registry for each domain over a shared store.
func NewRegistries(store Store, domains []string) *Registries {
	byDomain := make(map[string]*DomainRegistry, len(domains))
	for _, domain := range domains {
		byDomain[domain] = NewDomainRegistry(domain, store)
	}
	return &Registries{byDomain: byDomain}
}

// SetLogger sets the logger on every registry.
func (rs *Registries) SetLogger(logger Logger) {
	for _, r := range rs.byDomain {
		r.SetLogger(logger)
	}
}

// Domain returns the registry for a domain.
func (rs *Registries) Domain(name string) (*DomainRegistry, error) {
	r, ok := rs.byDomain[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDomain, name)
	}
	return r, nil
}

// Domains returns the configured domain names, sorted.
func (rs *Registries) Domains() []string {
	domains := make([]string, 0, len(rs.byDomain))
	for d := range rs.byDomain {
		domains = append(domains, d)
	}
	sort.Strings(domains)
	return domains
}

// ResetAll clears every domain's cache.
func (rs *Registries) ResetAll() {
	for _, r := range rs.byDomain {
		r.ResetCache()
	}
}

// Counts returns the per-domain cache entry counts, for status
// reporting.
func (rs *Registries) Counts() map[string]int {
	counts := make(map[string]int, len(rs.byDomain))
	for d, r := range rs.byDomain {
		counts[d] = r.CacheSize()
	}
	return counts
}
