package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// buildRouter assembles the middleware chain and the /api/v1 route tree.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Request ID first so every later log line carries it; recovery
	// inside logging so a panic still produces a request line.
	r.Use(
		s.requestIDMiddleware,
		s.loggingMiddleware,
		s.recoveryMiddleware,
		s.corsMiddleware,
		s.bodySizeLimitMiddleware,
	)

	r.Route("/api/v1", func(r chi.Router) {
		// Liveness probe, unauthenticated.
		r.Get("/health", s.handleHealth)

		// WebSocket upgrade. Browsers cannot set an Authorization header
		// here, so authentication happens in the handler via a single-use
		// ticket obtained from POST /auth/ws-ticket.
		r.Get("/ws", s.handleWebSocket)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)

			// WS ticket requires a valid bearer token; the ticket inherits
			// the token's identity.
			r.Post("/auth/ws-ticket", s.handleWSTicket)

			// System and audit endpoints
			r.Get("/system/info", s.handleSystemInfo)
			r.Get("/audit", s.handleListAuditLogs)

			// Blueprint endpoints
			r.Route("/blueprints", func(r chi.Router) {
				// Import fetches from arbitrary URLs, so it is gated on
				// editor even for dry-run previews.
				r.With(s.requireEditor).Post("/import", s.handleImportBlueprint)

				r.Route("/{domain}", func(r chi.Router) {
					r.Get("/", s.handleListBlueprints)
					r.Post("/instantiate", s.handleInstantiateBlueprint)

					// Static segments win over wildcards in chi, so
					// /instantiate and /cache/reset never collide with
					// blueprint paths.
					r.Get("/*", s.handleGetBlueprint)

					r.Group(func(r chi.Router) {
						r.Use(s.requireEditor)

						r.Post("/cache/reset", s.handleResetCache)
						r.Post("/*", s.handleAddBlueprint)
						r.Delete("/*", s.handleRemoveBlueprint)
					})
				})
			})
		})
	})

	return r
}

// handleHealth reports liveness. Deeper dependency state is on
// /system/info; this endpoint stays cheap enough to poll.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "version": s.version})
}
