package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/auto-lights-core/internal/lighting"
)

// zoneStatus is the JSON representation of a zone's current automation state.
type zoneStatus struct {
	Name                 string          `json:"name"`
	Enabled              bool            `json:"enabled"`
	Locked               bool            `json:"locked"`
	LockStart            *time.Time      `json:"lock_start,omitempty"`
	LockExpiration       *time.Time      `json:"lock_expiration,omitempty"`
	PresenceDeviceIDs    []string        `json:"presence_device_ids"`
	OnLightDeviceIDs     []string        `json:"on_light_device_ids"`
	OffLightDeviceIDs    []string        `json:"off_light_device_ids"`
	LuminanceDeviceIDs   []string        `json:"luminance_device_ids"`
	ExtendLockWhenActive bool            `json:"extend_lock_when_active"`
	UnlockWhenNoPresence bool            `json:"unlock_when_no_presence"`
	ActivePeriods        []periodSummary `json:"active_periods"`
}

// periodSummary is the JSON representation of a lighting period.
type periodSummary struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Mode string `json:"mode"`
}

// newZoneStatus builds the response payload for a zone at the given time.
func newZoneStatus(zone *lighting.Zone, now time.Time) zoneStatus {
	st := zoneStatus{
		Name:                 zone.Name,
		Enabled:              zone.Enabled,
		Locked:               zone.Locked(),
		PresenceDeviceIDs:    emptyIfNil(zone.PresenceDeviceIDs),
		OnLightDeviceIDs:     emptyIfNil(zone.OnLightDeviceIDs),
		OffLightDeviceIDs:    emptyIfNil(zone.OffLightDeviceIDs),
		LuminanceDeviceIDs:   emptyIfNil(zone.LuminanceDeviceIDs),
		ExtendLockWhenActive: zone.ExtendLockWhenActive,
		UnlockWhenNoPresence: zone.UnlockWhenNoPresence,
		ActivePeriods:        []periodSummary{},
	}

	if st.Locked {
		start := zone.LockStart()
		expiration := zone.LockExpiration()
		st.LockStart = &start
		st.LockExpiration = &expiration
	}

	for _, p := range zone.ActivePeriods(now) {
		st.ActivePeriods = append(st.ActivePeriods, periodSummary{
			ID:   p.ID,
			Name: p.Name,
			Mode: string(p.Mode),
		})
	}

	return st
}

// emptyIfNil normalises a nil slice to an empty one so JSON renders [] not null.
func emptyIfNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}

// handleListZones returns the automation status of every configured zone.
//
// GET /api/v1/zones
func (s *Server) handleListZones(w http.ResponseWriter, r *http.Request) {
	now := time.Now()
	zones := make([]zoneStatus, 0, len(s.lighting.Zones))
	for _, zone := range s.lighting.Zones {
		zones = append(zones, newZoneStatus(zone, now))
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"zones": zones,
		"count": len(zones),
	})
}

// handleGetZone returns the automation status of a single zone.
//
// GET /api/v1/zones/{name}
func (s *Server) handleGetZone(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	zone, err := s.lighting.ZoneByName(name)
	if err != nil {
		writeNotFound(w, "zone not found: "+name)
		return
	}

	writeJSON(w, http.StatusOK, newZoneStatus(zone, time.Now()))
}

// handleUnlockZone unconditionally unlocks a zone and re-evaluates it.
//
// POST /api/v1/zones/{name}/unlock
func (s *Server) handleUnlockZone(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	agent := s.lighting.Agent()
	if agent == nil {
		writeInternalError(w, "automation agent not running")
		return
	}

	if err := agent.ManualUnlock(name); err != nil {
		if errors.Is(err, lighting.ErrZoneNotFound) {
			writeNotFound(w, "zone not found: "+name)
			return
		}
		s.logger.Error("manual unlock failed", "zone", name, "error", err)
		writeInternalError(w, "unlock failed")
		return
	}

	s.logger.Info("zone unlocked via API", "zone", name)
	zone, err := s.lighting.ZoneByName(name)
	if err != nil {
		writeInternalError(w, "zone lookup failed after unlock")
		return
	}
	writeJSON(w, http.StatusOK, newZoneStatus(zone, time.Now()))
}

// handleProcessZone triggers an immediate evaluation pass for a zone.
//
// POST /api/v1/zones/{name}/process
func (s *Server) handleProcessZone(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	zone, err := s.lighting.ZoneByName(name)
	if err != nil {
		writeNotFound(w, "zone not found: "+name)
		return
	}

	agent := s.lighting.Agent()
	if agent == nil {
		writeInternalError(w, "automation agent not running")
		return
	}

	processed := agent.ProcessZone(zone)

	writeJSON(w, http.StatusOK, map[string]any{
		"zone":      zone.Name,
		"processed": processed,
		"locked":    zone.Locked(),
	})
}
