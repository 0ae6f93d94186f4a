package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// buildRouter constructs the chi router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Middleware stack (order matters: request ID first so everything
	// downstream can log it).
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Route("/zones", func(r chi.Router) {
			r.Get("/", s.handleListZones)
			r.Route("/{name}", func(r chi.Router) {
				r.Get("/", s.handleGetZone)
				r.Get("/events", s.handleZoneLockEvents)
				r.Post("/unlock", s.handleUnlockZone)
				r.Post("/process", s.handleProcessZone)
			})
		})

		r.Get("/periods", s.handleListPeriods)
		r.Get("/events", s.handleListLockEvents)
	})

	return r
}

// handleHealth returns a simple health check response.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": s.version,
	})
}
