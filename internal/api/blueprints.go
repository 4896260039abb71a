package api

import (
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/gray-logic-blueprints/internal/audit"
	"github.com/nerrad567/gray-logic-blueprints/internal/blueprint"
	"github.com/nerrad567/gray-logic-blueprints/internal/infrastructure/usage"
)

// maxBlueprintPathLen limits blueprint path length to prevent DoS via oversized URL params.
const maxBlueprintPathLen = 255

// blueprintSummary is one entry in a domain listing.
type blueprintSummary struct {
	Path         string   `json:"path"`
	Name         string   `json:"name"`
	Domain       string   `json:"domain"`
	Author       string   `json:"author,omitempty"`
	Description  string   `json:"description,omitempty"`
	MinVersion   string   `json:"min_version,omitempty"`
	SourceURL    string   `json:"source_url,omitempty"`
	Placeholders []string `json:"placeholders"`
}

// failedBlueprint is a listing entry whose file could not be loaded.
// The error string is the cached load diagnostic, repeated verbatim on
// every listing until the file is fixed or removed.
type failedBlueprint struct {
	Path  string `json:"path"`
	Error string `json:"error"`
}

// summarize builds a listing entry from a loaded blueprint.
func summarize(path string, bp *blueprint.Blueprint) blueprintSummary {
	meta := bp.Metadata()
	return blueprintSummary{
		Path:         path,
		Name:         meta.Name,
		Domain:       meta.Domain,
		Author:       meta.Author,
		Description:  meta.Description,
		MinVersion:   meta.MinVersion,
		SourceURL:    meta.SourceURL,
		Placeholders: bp.Placeholders(),
	}
}

// actorFromRequest returns the token subject for audit entries.
func actorFromRequest(r *http.Request) string {
	if claims := claimsFromContext(r.Context()); claims != nil {
		return claims.Subject
	}
	return ""
}

// blueprintPath extracts and bounds-checks the wildcard path parameter.
func blueprintPath(r *http.Request) (string, bool) {
	path := chi.URLParam(r, "*")
	if path == "" || len(path) > maxBlueprintPathLen {
		return "", false
	}
	return path, true
}

// handleListBlueprints returns every blueprint in a domain, including
// entries whose files failed to load.
//
// The listing rescans the domain directory, so files added or fixed on
// disk since the last call are picked up.
func (s *Server) handleListBlueprints(w http.ResponseWriter, r *http.Request) {
	domain := chi.URLParam(r, "domain")

	reg, err := s.registries.Domain(domain)
	if err != nil {
		writeBlueprintError(w, err)
		return
	}

	results, err := reg.ListAll()
	if err != nil {
		s.logger.Error("blueprint listing failed", "domain", domain, "error", err)
		writeInternalError(w, "failed to list blueprints")
		return
	}

	blueprints := make([]blueprintSummary, 0, len(results))
	failed := make([]failedBlueprint, 0)
	for path, result := range results {
		if result.Err != nil {
			failed = append(failed, failedBlueprint{Path: path, Error: result.Err.Error()})
			continue
		}
		blueprints = append(blueprints, summarize(path, result.Blueprint))
	}
	sort.Slice(blueprints, func(i, j int) bool { return blueprints[i].Path < blueprints[j].Path })
	sort.Slice(failed, func(i, j int) bool { return failed[i].Path < failed[j].Path })

	writeJSON(w, http.StatusOK, map[string]any{
		"blueprints": blueprints,
		"failed":     failed,
		"count":      len(blueprints),
	})
}

// handleGetBlueprint returns a single blueprint with its full document
// and any version compatibility violations against the running core.
func (s *Server) handleGetBlueprint(w http.ResponseWriter, r *http.Request) {
	domain := chi.URLParam(r, "domain")
	path, ok := blueprintPath(r)
	if !ok {
		writeBadRequest(w, "invalid blueprint path")
		return
	}

	reg, err := s.registries.Domain(domain)
	if err != nil {
		writeBlueprintError(w, err)
		return
	}

	bp, err := reg.GetOne(path)
	if err != nil {
		writeBlueprintError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"path":         path,
		"metadata":     bp.Metadata(),
		"placeholders": bp.Placeholders(),
		"violations":   bp.ValidateEnvironment(s.coreVersion),
		"document":     bp.Document(),
	})
}

// handleAddBlueprint stores a new blueprint from a raw YAML request body.
// Writes are create-only: an occupied path returns 409 and is never
// overwritten.
func (s *Server) handleAddBlueprint(w http.ResponseWriter, r *http.Request) {
	domain := chi.URLParam(r, "domain")
	path, ok := blueprintPath(r)
	if !ok {
		writeBadRequest(w, "invalid blueprint path")
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeBadRequest(w, "failed to read request body")
		return
	}
	if len(body) == 0 {
		writeBadRequest(w, "request body must contain a YAML blueprint document")
		return
	}

	doc, err := blueprint.ParseDocument(body)
	if err != nil {
		writeBadRequest(w, "invalid YAML: "+err.Error())
		return
	}

	bp, err := blueprint.New(doc, domain, "")
	if err != nil {
		writeBlueprintError(w, err)
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

	s.auditMutation(audit.ActionBlueprintAdd, domain, finalPath, actorFromRequest(r), map[string]any{
		"name": bp.Name(),
	})
	s.publishEvent(domain, eventBlueprintAdded, map[string]any{
		"path": finalPath,
		"name": bp.Name(),
	})

	writeJSON(w, http.StatusCreated, map[string]any{
		"path":         finalPath,
		"name":         bp.Name(),
		"placeholders": bp.Placeholders(),
	})
}

// handleRemoveBlueprint deletes a blueprint file and evicts its cache
// entry.
func (s *Server) handleRemoveBlueprint(w http.ResponseWriter, r *http.Request) {
	domain := chi.URLParam(r, "domain")
	path, ok := blueprintPath(r)
	if !ok {
		writeBadRequest(w, "invalid blueprint path")
		return
	}

	reg, err := s.registries.Domain(domain)
	if err != nil {
		writeBlueprintError(w, err)
		return
	}

	if err := reg.Remove(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			writeNotFound(w, "blueprint not found: "+path)
			return
		}
		if errors.Is(err, blueprint.ErrInvalidPath) {
			writeBadRequest(w, err.Error())
			return
		}
		s.logger.Error("blueprint removal failed", "domain", domain, "path", path, "error", err)
		writeInternalError(w, "failed to remove blueprint")
		return
	}

	s.auditMutation(audit.ActionBlueprintRemove, domain, path, actorFromRequest(r), nil)
	s.publishEvent(domain, eventBlueprintRemoved, map[string]any{
		"path": path,
	})

	w.WriteHeader(http.StatusNoContent)
}

// handleInstantiateBlueprint resolves an instance config against its
// blueprint: validates placeholder coverage, substitutes values, and
// returns the final configuration. Nothing is stored; instantiation is
// a pure read.
//
// The request body is the instance config itself, carrying a
// use_blueprint section naming the blueprint path and its input values.
func (s *Server) handleInstantiateBlueprint(w http.ResponseWriter, r *http.Request) {
	domain := chi.URLParam(r, "domain")

	reg, err := s.registries.Domain(domain)
	if err != nil {
		writeBlueprintError(w, err)
		return
	}

	var config map[string]any
	if err := json.NewDecoder(r.Body).Decode(&config); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	inputs, err := reg.InstantiateFromConfig(config)
	if err != nil {
		writeBlueprintError(w, err)
		return
	}

	resolved, err := inputs.Substitute()
	if err != nil {
		writeBlueprintError(w, err)
		return
	}

	bp := inputs.Blueprint()
	s.recordUsage(domain, bp.SourcePath(), usage.EventInstantiate)

	writeJSON(w, http.StatusOK, map[string]any{
		"config": resolved,
		"blueprint": map[string]any{
			"path": bp.SourcePath(),
			"name": bp.Name(),
		},
	})
}

// handleResetCache drops every cached blueprint in the domain, forcing
// reloads from disk on next access. Previously failed loads get another
// chance.
func (s *Server) handleResetCache(w http.ResponseWriter, r *http.Request) {
	domain := chi.URLParam(r, "domain")

	reg, err := s.registries.Domain(domain)
	if err != nil {
		writeBlueprintError(w, err)
		return
	}

	dropped := reg.CacheSize()
	reg.ResetCache()

	s.auditMutation(audit.ActionCacheReset, domain, "", actorFromRequest(r), nil)
	s.publishEvent(domain, eventCacheReset, nil)
	s.recordCacheReset(domain, dropped)

	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"domain": domain,
	})
}
