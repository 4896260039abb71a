package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/nerrad567/gray-logic-blueprints/internal/audit"
	"github.com/nerrad567/gray-logic-blueprints/internal/blueprint"
	"github.com/nerrad567/gray-logic-blueprints/internal/importer"
	"github.com/nerrad567/gray-logic-blueprints/internal/infrastructure/usage"
)

// importRequest is the request body for POST /blueprints/import.
type importRequest struct {
	// URL of the blueprint document. GitHub blob URLs are accepted and
	// rewritten to their raw form.
	URL string `json:"url"`

	// Save stores the fetched blueprint; false previews it without
	// touching disk.
	Save bool `json:"save"`

	// Path overrides the save location derived from the URL. Relative
	// to the blueprint's domain directory.
	Path string `json:"path,omitempty"`
}

// handleImportBlueprint fetches a blueprint from a URL and optionally
// stores it.
//
// Without save, the response is a preview of what the import would
// store: the blueprint's identity, placeholders, suggested path, and
// any version compatibility violations. With save, the blueprint is
// written to its domain directory (create-only) and announced like any
// other addition.
func (s *Server) handleImportBlueprint(w http.ResponseWriter, r *http.Request) {
	if s.importer == nil {
		writeInternalError(w, "blueprint import not configured")
		return
	}

	var req importRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.URL == "" {
		writeBadRequest(w, "url is required")
		return
	}

	imp, err := s.importer.Fetch(r.Context(), req.URL)
	if err != nil {
		s.writeImportError(w, req.URL, err)
		return
	}

	bp := imp.Blueprint
	domain := bp.Domain()
	violations := bp.ValidateEnvironment(s.coreVersion)

	if !req.Save {
		writeJSON(w, http.StatusOK, map[string]any{
			"domain":         domain,
			"name":           bp.Name(),
			"placeholders":   bp.Placeholders(),
			"suggested_path": imp.SuggestedPath,
			"source_url":     req.URL,
			"violations":     violations,
		})
		return
	}

	path := req.Path
	if path == "" {
		path = imp.SuggestedPath
	}
	if path == "" {
		writeBadRequest(w, "no save path: supply path explicitly, the URL offers no usable name")
		return
	}

	reg, err := s.registries.Domain(domain)
	if err != nil {
		writeBlueprintError(w, err)
		return
	}

	finalPath, err := reg.Add(bp, path)
	if err != nil {
		writeBlueprintError(w, err)
		return
	}

	s.auditMutation(audit.ActionBlueprintImport, domain, finalPath, actorFromRequest(r), map[string]any{
		"name":       bp.Name(),
		"source_url": req.URL,
	})
	s.publishEvent(domain, eventBlueprintImported, map[string]any{
		"path":       finalPath,
		"name":       bp.Name(),
		"source_url": req.URL,
	})
	s.recordUsage(domain, finalPath, usage.EventImport)

	writeJSON(w, http.StatusCreated, map[string]any{
		"domain":       domain,
		"path":         finalPath,
		"name":         bp.Name(),
		"placeholders": bp.Placeholders(),
		"source_url":   req.URL,
		"violations":   violations,
	})
}

// writeImportError maps importer failures onto HTTP responses. Upstream
// fetch failures are 502: the request was fine, the remote side was not.
func (s *Server) writeImportError(w http.ResponseWriter, url string, err error) {
	var fetchErr *importer.FetchError

	switch {
	case errors.Is(err, importer.ErrUnsupportedScheme):
		writeBadRequest(w, err.Error())
	case errors.Is(err, importer.ErrResponseTooLarge):
		writeBadRequest(w, err.Error())
	case errors.Is(err, blueprint.ErrUnknownDomain):
		// The document is valid but declares a domain this service does
		// not host; the import route itself exists, so 404 would mislead.
		writeError(w, http.StatusUnprocessableEntity, ErrCodeValidation, err.Error())
	case errors.As(err, &fetchErr):
		s.logger.Warn("blueprint fetch failed", "url", url, "error", err)
		writeError(w, http.StatusBadGateway, ErrCodeInternal, err.Error())
	default:
		writeBlueprintError(w, err)
	}
}
