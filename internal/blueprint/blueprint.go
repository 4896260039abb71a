package blueprint

import (
	"fmt"
	"sort"
	"strings"

	goversion "github.com/hashicorp/go-version"
	"github.com/nerrad567/gray-logic-blueprints/internal/placeholder"
)

// Blueprint wraps one schema-validated configuration document. The
// document tree is immutable after construction except for the
// provenance URL (UpdateSourceURL); accessors return copies where
// handing out internal state could let callers corrupt it.
//
// Registry callers share a single Blueprint instance per cached path,
// which is safe because of that immutability.
type Blueprint struct {
	doc          map[string]any
	meta         Metadata
	placeholders map[string]struct{}
	sourcePath   string
}

// New validates a raw document and constructs a Blueprint from it.
// The document is owned by the Blueprint afterwards and must not be
// mutated by the caller.
//
// expectedDomain, when non-empty, must match the domain the document
// declares; a mismatch is always an error, never a coercion. path
// records where the document came from and is empty for in-memory
// documents (for example a submitted creation request).
//
// Validation order: schema first, then placeholder extraction, then
// the domain check, then the declared-input coverage check.
func New(doc map[string]any, expectedDomain, path string) (*Blueprint, error) {
	meta, trail := validateDocument(doc)
	if meta == nil {
		return nil, &InvalidBlueprintError{Domain: expectedDomain, Path: path, Trail: trail}
	}

	// Placeholders live in the body, not the metadata block.
	found := placeholder.Extract(documentBody(doc))

	if expectedDomain != "" && meta.Domain != expectedDomain {
		return nil, &InvalidBlueprintError{
			Domain: expectedDomain,
			Path:   pathOrName(path, meta),
			Msg:    fmt.Sprintf("found incorrect blueprint domain %q, expected %q", meta.Domain, expectedDomain),
		}
	}

	var missing []string
	for name := range found {
		if _, declared := meta.Input[name]; !declared {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, &InvalidBlueprintError{
			Domain: meta.Domain,
			Path:   pathOrName(path, meta),
			Msg:    fmt.Sprintf("missing input definition for %s", strings.Join(missing, ", ")),
		}
	}

	return &Blueprint{
		doc:          doc,
		meta:         *meta,
		placeholders: found,
		sourcePath:   path,
	}, nil
}

// pathOrName prefers the file path for error context and falls back to
// the blueprint name for in-memory documents.
func pathOrName(path string, meta *Metadata) string {
	if path != "" {
		return path
	}
	return meta.Name
}

// documentBody returns a view of the document without the metadata
// block. The returned map shares values with the document.
func documentBody(doc map[string]any) map[string]any {
	body := make(map[string]any, len(doc))
	for k, v := range doc {
		if k == keyBlueprint {
			continue
		}
		body[k] = v
	}
	return body
}

// Domain returns the domain this blueprint produces configuration for.
func (b *Blueprint) Domain() string {
	return b.meta.Domain
}

// Name returns the human-readable blueprint name.
func (b *Blueprint) Name() string {
	return b.meta.Name
}

// SourcePath returns the file path this blueprint was loaded from, or
// an empty string for in-memory blueprints.
func (b *Blueprint) SourcePath() string {
	return b.sourcePath
}

// Metadata returns a copy of the blueprint metadata. The input
// declaration map is deep-copied so callers cannot reach the document.
func (b *Blueprint) Metadata() Metadata {
	meta := b.meta
	meta.Input = deepCopyMap(b.meta.Input)
	return meta
}

// Placeholders returns the placeholder names referenced in the
// document body, sorted.
func (b *Blueprint) Placeholders() []string {
	names := make([]string, 0, len(b.placeholders))
	for name := range b.placeholders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Document returns a deep copy of the full validated document.
func (b *Blueprint) Document() map[string]any {
	return deepCopyMap(b.doc)
}

// UpdateSourceURL records where this blueprint was imported from. It
// is the only permitted post-construction mutation and must happen
// before the blueprint is shared with other goroutines.
func (b *Blueprint) UpdateSourceURL(url string) {
	b.meta.SourceURL = url
	if raw, ok := b.doc[keyBlueprint].(map[string]any); ok {
		raw[keySourceURL] = url
	}
}

// YAML renders the document back to its storage serialization,
// converting placeholder markers back into !input tags.
func (b *Blueprint) YAML() ([]byte, error) {
	return dumpDocument(b.doc)
}

// ValidateEnvironment compares the blueprint's min_version constraint
// (when present) against the running core version. It returns
// human-readable violations, or nil when the blueprint is compatible.
// Pure: no side effects.
func (b *Blueprint) ValidateEnvironment(coreVersion string) []string {
	if b.meta.MinVersion == "" {
		return nil
	}

	var errs []string
	minVer, err := goversion.NewVersion(b.meta.MinVersion)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid min_version %q: not a semantic version", b.meta.MinVersion))
	}
	current, err := goversion.NewVersion(coreVersion)
	if err != nil {
		errs = append(errs, fmt.Sprintf("cannot check min_version: running version %q is not a semantic version", coreVersion))
	}
	if len(errs) > 0 {
		return errs
	}

	if current.LessThan(minVer) {
		return []string{fmt.Sprintf("requires at least version %s, running %s", b.meta.MinVersion, coreVersion)}
	}
	return nil
}

// deepCopyMap clones a decoded YAML map so callers can mutate the copy
// without touching the cached document. Values are limited to what
// yaml.v3 produces: maps, slices, and scalars.
func deepCopyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = deepCopyValue(v)
	}
	return out
}

func deepCopyValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return deepCopyMap(val)
	case []any:
		out := make([]any, len(val))
		for i := range val {
			out[i] = deepCopyValue(val[i])
		}
		return out
	default:
		// Scalars copy by value.
		return v
	}
}
