package api

import (
	"net/http"
	"time"
)

// handleListPeriods returns every configured lighting period with its
// parsed time window and whether it is active right now.
//
// GET /api/v1/periods
func (s *Server) handleListPeriods(w http.ResponseWriter, r *http.Request) {
	now := time.Now()

	periods := make([]map[string]any, 0, len(s.lighting.Periods))
	for _, p := range s.lighting.Periods {
		periods = append(periods, map[string]any{
			"id":            p.ID,
			"name":          p.Name,
			"mode":          string(p.Mode),
			"from_hour":     p.FromHour,
			"from_minute":   p.FromMinute,
			"to_hour":       p.ToHour,
			"to_minute":     p.ToMinute,
			"lock_duration": p.LockDurationSeconds,
			"limit":         p.LimitBrightness,
			"active":        p.IsActive(now),
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"periods": periods,
		"count":   len(periods),
	})
}
