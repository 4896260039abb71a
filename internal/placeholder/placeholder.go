package placeholder

import (
	"fmt"
	"strings"
)

// markerPrefix introduces a placeholder reference inside a string value.
// The full marker form is "!input <name>" with a single separating space.
const markerPrefix = "!input "

// UndefinedPlaceholderError is returned by Substitute when a document
// references a placeholder that has no entry in the supplied values.
// Callers are expected to validate placeholder coverage before
// substituting, so hitting this error indicates a caller bug.
type UndefinedPlaceholderError struct {
	Name string
}

func (e *UndefinedPlaceholderError) Error() string {
	return fmt.Sprintf("placeholder: no value supplied for %q", e.Name)
}

// Marker returns the serialized reference for a placeholder name, the
// form a document uses to request substitution.
func Marker(name string) string {
	return markerPrefix + name
}

// ParseMarker reports whether s is a placeholder reference and, if so,
// returns the referenced name. A bare "!input " with an empty name is
// not a valid reference.
func ParseMarker(s string) (string, bool) {
	if !strings.HasPrefix(s, markerPrefix) {
		return "", false
	}
	name := s[len(markerPrefix):]
	if name == "" {
		return "", false
	}
	return name, true
}

// Extract walks the whole document tree and collects every distinct
// placeholder name referenced in it. Duplicate references collapse;
// order is irrelevant.
func Extract(doc map[string]any) map[string]struct{} {
	found := make(map[string]struct{})
	extractValue(doc, found)
	return found
}

func extractValue(v any, found map[string]struct{}) {
	switch val := v.(type) {
	case map[string]any:
		for _, elem := range val {
			extractValue(elem, found)
		}
	case []any:
		for _, elem := range val {
			extractValue(elem, found)
		}
	case string:
		if name, ok := ParseMarker(val); ok {
			found[name] = struct{}{}
		}
	}
}

// Substitute returns a new document tree in which every placeholder
// reference is replaced by the corresponding entry from values.
// Non-placeholder content is deep-copied through unchanged, so the
// input document is never mutated. A reference with no matching value
// fails with UndefinedPlaceholderError.
func Substitute(doc map[string]any, values map[string]any) (map[string]any, error) {
	out, err := substituteValue(doc, values)
	if err != nil {
		return nil, err
	}
	// substituteValue preserves container kinds, so a mapping in
	// always yields a mapping out.
	return out.(map[string]any), nil
}

func substituteValue(v any, values map[string]any) (any, error) {
	switch val := v.(type) {
	case map[string]any:
		cpy := make(map[string]any, len(val))
		for k, elem := range val {
			sub, err := substituteValue(elem, values)
			if err != nil {
				return nil, err
			}
			cpy[k] = sub
		}
		return cpy, nil
	case []any:
		cpy := make([]any, len(val))
		for i, elem := range val {
			sub, err := substituteValue(elem, values)
			if err != nil {
				return nil, err
			}
			cpy[i] = sub
		}
		return cpy, nil
	case string:
		name, ok := ParseMarker(val)
		if !ok {
			return val, nil
		}
		supplied, ok := values[name]
		if !ok {
			return nil, &UndefinedPlaceholderError{Name: name}
		}
		return supplied, nil
	default:
		// Primitives (bool, int, float64, nil, ...) pass through by value.
		return v, nil
	}
}
