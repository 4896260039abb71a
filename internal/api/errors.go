package api

import (
	"encoding/json"
	"errors"
	"io/fs"
	"net/http"

	"github.com/nerrad567/gray-logic-blueprints/internal/blueprint"
	"github.com/nerrad567/gray-logic-blueprints/internal/placeholder"
)

// Error is the JSON body every failed request carries. Code is a
// stable machine-readable string; Message is for humans and may change
// between releases.
type Error struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error codes clients can switch on.
const (
	ErrCodeBadRequest   = "bad_request"
	ErrCodeNotFound     = "not_found"
	ErrCodeUnauthorized = "unauthorised"
	ErrCodeForbidden    = "forbidden"
	ErrCodeConflict     = "conflict"
	ErrCodeInternal     = "internal_error"
	ErrCodeValidation   = "validation_error"
)

// writeJSON encodes v with the given status. A nil v sends headers only.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		//nolint:errcheck // Best-effort write to response; connection may be closed
		json.NewEncoder(w).Encode(v)
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, Error{
		Status:  status,
		Code:    code,
		Message: message,
	})
}

// Per-status shorthands so handlers read as intent rather than codes.

func writeBadRequest(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, ErrCodeBadRequest, message)
}

func writeNotFound(w http.ResponseWriter, message string) {
	writeError(w, http.StatusNotFound, ErrCodeNotFound, message)
}

func writeUnauthorized(w http.ResponseWriter, message string) {
	writeError(w, http.StatusUnauthorized, ErrCodeUnauthorized, message)
}

func writeForbidden(w http.ResponseWriter, message string) {
	writeError(w, http.StatusForbidden, ErrCodeForbidden, message)
}

func writeConflict(w http.ResponseWriter, message string) {
	writeError(w, http.StatusConflict, ErrCodeConflict, message)
}

func writeInternalError(w http.ResponseWriter, message string) {
	writeError(w, http.StatusInternalServerError, ErrCodeInternal, message)
}

// writeBlueprintError maps blueprint package errors onto HTTP responses.
//
// Schema violations become 422 so clients can distinguish a malformed
// blueprint from a malformed request. A load failure is a 404 when the
// underlying cause is a missing file, otherwise a 500 because the file
// exists but could not be read or parsed.
func writeBlueprintError(w http.ResponseWriter, err error) {
	var invalidErr *blueprint.InvalidBlueprintError
	var loadErr *blueprint.FailedToLoadError
	var missingErr *blueprint.MissingPlaceholderError
	var inputsErr *blueprint.InvalidBlueprintInputsError
	var existsErr *blueprint.FileAlreadyExistsError
	var undefErr *placeholder.UndefinedPlaceholderError

	switch {
	case errors.As(err, &invalidErr):
		writeError(w, http.StatusUnprocessableEntity, ErrCodeValidation, invalidErr.Error())
	case errors.As(err, &loadErr):
		if errors.Is(loadErr.Err, fs.ErrNotExist) {
			writeNotFound(w, "blueprint not found: "+loadErr.Path)
			return
		}
		writeInternalError(w, loadErr.Error())
	case errors.As(err, &missingErr):
		writeBadRequest(w, missingErr.Error())
	case errors.As(err, &inputsErr):
		writeBadRequest(w, inputsErr.Error())
	case errors.As(err, &existsErr):
		writeConflict(w, existsErr.Error())
	case errors.Is(err, blueprint.ErrInvalidPath):
		writeBadRequest(w, err.Error())
	case errors.Is(err, blueprint.ErrUnknownDomain):
		writeNotFound(w, err.Error())
	case errors.As(err, &undefErr):
		// A placeholder survived substitution despite validation; this is
		// a bug in the blueprint pipeline, not a client error.
		writeInternalError(w, err.Error())
	default:
		writeInternalError(w, err.Error())
	}
}
