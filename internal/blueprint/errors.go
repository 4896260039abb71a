package blueprint

import (
	"errors"
	"fmt"
	"strings"
)

// Domain errors for the blueprint package.
//
// Simple conditions use sentinel errors checked with errors.Is();
// conditions that carry structured context use typed errors matched
// with errors.As():
//
//	var exists *blueprint.FileAlreadyExistsError
//	if errors.As(err, &exists) {
//	    // handle create-only conflict
//	}
var (
	// ErrInvalidPath is returned when a blueprint path escapes the
	// domain directory or is otherwise not a clean relative path.
	ErrInvalidPath = errors.New("blueprint: invalid path")

	// ErrUnknownDomain is returned when no registry exists for the
	// requested domain.
	ErrUnknownDomain = errors.New("blueprint: unknown domain")
)

// InvalidBlueprintError is returned when a document fails blueprint
// schema validation, declares a different domain than expected, or
// references a placeholder that is not declared as an input.
type InvalidBlueprintError struct {
	// Domain is the expected or declared domain, when known.
	Domain string
	// Path is the blueprint file path or, for in-memory documents,
	// the blueprint name when one could be read.
	Path string
	// Trail holds humanized schema violations, one per field.
	Trail []string
	// Msg describes a single violation when Trail is empty.
	Msg string
}

func (e *InvalidBlueprintError) Error() string {
	detail := e.Msg
	if detail == "" {
		detail = strings.Join(e.Trail, "; ")
	}
	if e.Path != "" {
		return fmt.Sprintf("blueprint: invalid blueprint %q: %s", e.Path, detail)
	}
	return fmt.Sprintf("blueprint: invalid blueprint: %s", detail)
}

// FailedToLoadError is returned when a blueprint file could not be
// read or parsed. It wraps the underlying cause.
type FailedToLoadError struct {
	Domain string
	Path   string
	Err    error
}

func (e *FailedToLoadError) Error() string {
	return fmt.Sprintf("blueprint: failed to load %s/%s: %v", e.Domain, e.Path, e.Err)
}

func (e *FailedToLoadError) Unwrap() error {
	return e.Err
}

// MissingPlaceholderError is returned when an instantiation omits a
// value for one or more placeholders the blueprint requires.
type MissingPlaceholderError struct {
	Domain        string
	BlueprintName string
	// Missing holds the uncovered placeholder names, sorted.
	Missing []string
}

func (e *MissingPlaceholderError) Error() string {
	return fmt.Sprintf("blueprint: missing input %s for %s blueprint %q",
		strings.Join(e.Missing, ", "), e.Domain, e.BlueprintName)
}

// InvalidBlueprintInputsError is returned when an instance config's
// use_blueprint section fails shape validation.
type InvalidBlueprintInputsError struct {
	Domain string
	Msg    string
}

func (e *InvalidBlueprintInputsError) Error() string {
	return fmt.Sprintf("blueprint: invalid inputs for %s: %s", e.Domain, e.Msg)
}

// FileAlreadyExistsError is returned when a create-only write targets
// an occupied path. Add never overwrites.
type FileAlreadyExistsError struct {
	Domain string
	Path   string
}

func (e *FileAlreadyExistsError) Error() string {
	return fmt.Sprintf("blueprint: file %s/%s already exists", e.Domain, e.Path)
}
