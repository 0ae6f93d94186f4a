package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/auto-lights-core/internal/lighting"
)

// defaultEventLimit bounds lock-event history responses when the client
// does not ask for a specific count.
const defaultEventLimit = 50

// handleListLockEvents returns recent lock transitions across all zones,
// newest first. Supports ?zone= and ?limit= query parameters.
//
// GET /api/v1/events
func (s *Server) handleListLockEvents(w http.ResponseWriter, r *http.Request) {
	zoneName := r.URL.Query().Get("zone")
	limit, err := parseLimit(r.URL.Query().Get("limit"))
	if err != nil {
		writeBadRequest(w, "limit must be a positive integer")
		return
	}

	events, err := s.repo.ListLockEvents(r.Context(), zoneName, limit)
	if err != nil {
		s.logger.Error("listing lock events failed", "error", err)
		writeInternalError(w, "failed to list lock events")
		return
	}
	if events == nil {
		events = []lighting.LockEvent{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"events": events,
		"count":  len(events),
	})
}

// handleZoneLockEvents returns recent lock transitions for one zone.
//
// GET /api/v1/zones/{name}/events
func (s *Server) handleZoneLockEvents(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	if _, err := s.lighting.ZoneByName(name); err != nil {
		writeNotFound(w, "zone not found: "+name)
		return
	}

	limit, err := parseLimit(r.URL.Query().Get("limit"))
	if err != nil {
		writeBadRequest(w, "limit must be a positive integer")
		return
	}

	events, err := s.repo.ListLockEvents(r.Context(), name, limit)
	if err != nil {
		s.logger.Error("listing lock events failed", "zone", name, "error", err)
		writeInternalError(w, "failed to list lock events")
		return
	}
	if events == nil {
		events = []lighting.LockEvent{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"zone":   name,
		"events": events,
		"count":  len(events),
	})
}

// parseLimit converts the limit query parameter, defaulting when absent.
func parseLimit(raw string) (int, error) {
	if raw == "" {
		return defaultEventLimit, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return 0, strconv.ErrSyntax
	}
	return limit, nil
}
