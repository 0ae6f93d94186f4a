package lighting

import (
	"fmt"
	"strings"
	"time"
)

// PeriodMode controls what the automation may do to lights during a period.
type PeriodMode string

// PeriodMode constants.
const (
	// ModeOn: the automation may turn lights on but never forces them off.
	ModeOn PeriodMode = "on"

	// ModeOff: the automation only ever turns lights off during this period.
	ModeOff PeriodMode = "off"

	// ModeOnAndOff: full control, lights are turned on and off automatically.
	ModeOnAndOff PeriodMode = "on_and_off"
)

// AllPeriodModes returns all valid period modes.
func AllPeriodModes() []PeriodMode {
	return []PeriodMode{ModeOn, ModeOff, ModeOnAndOff}
}

// ParsePeriodMode folds legacy and current mode strings into one mode.
//
// Historic configurations stored modes as display strings ("On and Off",
// "Off Only", "onOffZone", "offOnlyZone"); newer ones use the snake_case
// constants. All spellings are accepted case-insensitively.
func ParsePeriodMode(raw string) (PeriodMode, error) {
	norm := strings.ToLower(raw)
	for _, cut := range []string{" ", "_", "-"} {
		norm = strings.ReplaceAll(norm, cut, "")
	}

	switch norm {
	case "on", "ononly", "onzone":
		return ModeOn, nil
	case "off", "offonly", "offonlyzone":
		return ModeOff, nil
	case "onandoff", "onoffzone", "onoff":
		return ModeOnAndOff, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidMode, raw)
}

// UseDefault is the stored sentinel meaning "fall back to the default" for
// a period's lock duration and brightness limit.
const UseDefault = -1

// LightingPeriod is a time-of-day window with a brightness/mode policy.
//
// Periods are immutable during a control cycle: the agent and zones only
// read them after construction. A window whose end is before its start
// spans midnight (22:00 → 06:00 is active overnight).
type LightingPeriod struct {
	ID   string     `json:"id"`
	Name string     `json:"name"`
	Mode PeriodMode `json:"mode"`

	// Time window, local wall-clock. Minutes ∈ [0,59], hours ∈ [0,23].
	FromHour   int `json:"from_hour"`
	FromMinute int `json:"from_minute"`
	ToHour     int `json:"to_hour"`
	ToMinute   int `json:"to_minute"`

	// LockDurationSeconds overrides the lock duration while this period is
	// active. UseDefault (-1) defers to the zone/plugin default.
	LockDurationSeconds int `json:"lock_duration"`

	// LimitBrightness caps automatic brightness (percent) during this
	// period. UseDefault (-1) means unlimited.
	LimitBrightness int `json:"limit_brightness"`
}

// IsActive reports whether now's time-of-day falls within [from, to).
//
// Pure function of wall-clock time. Windows spanning midnight (to < from)
// are active from the start time through midnight and again until the end
// time. A window where from == to is empty and never active.
func (p *LightingPeriod) IsActive(now time.Time) bool {
	minute := now.Hour()*60 + now.Minute()
	from := p.FromHour*60 + p.FromMinute
	to := p.ToHour*60 + p.ToMinute

	if from == to {
		return false
	}
	if from < to {
		return minute >= from && minute < to
	}
	// Spans midnight.
	return minute >= from || minute < to
}

// EffectiveLockDuration returns this period's lock duration override, or
// def when the period carries the UseDefault sentinel.
func (p *LightingPeriod) EffectiveLockDuration(def time.Duration) time.Duration {
	if p.LockDurationSeconds >= 0 {
		return time.Duration(p.LockDurationSeconds) * time.Second
	}
	return def
}

// EffectiveBrightnessCap returns this period's brightness cap, or def when
// the period is unlimited.
func (p *LightingPeriod) EffectiveBrightnessCap(def int) int {
	if p.LimitBrightness >= 0 {
		return p.LimitBrightness
	}
	return def
}

// Stored-form schema defaults for absent time fields.
const (
	defaultFromHour   = 0
	defaultFromMinute = 0
	defaultToHour     = 23
	defaultToMinute   = 45
)

// StoredPeriod is the persisted shape of a lighting period. Numeric fields
// are pointers because historic configurations omit them or store null.
type StoredPeriod struct {
	ID                  string `json:"id"`
	Name                string `json:"name"`
	Mode                string `json:"mode"`
	FromHour            *int   `json:"from_time_hour"`
	FromMinute          *int   `json:"from_time_minute"`
	ToHour              *int   `json:"to_time_hour"`
	ToMinute            *int   `json:"to_time_minute"`
	LockDurationSeconds *int   `json:"lock_duration"`
	LimitBrightness     *int   `json:"limit_brightness"`
}

// PeriodFromStored builds a LightingPeriod from its stored form, coercing
// absent or null numeric fields to the documented schema defaults: start
// 00:00, end 23:45, UseDefault for lock duration and brightness limit.
// Out-of-range hours and minutes are clamped rather than rejected.
func PeriodFromStored(s StoredPeriod) (*LightingPeriod, error) {
	mode, err := ParsePeriodMode(s.Mode)
	if err != nil {
		return nil, err
	}

	p := &LightingPeriod{
		ID:                  s.ID,
		Name:                s.Name,
		Mode:                mode,
		FromHour:            clamp(intOrDefault(s.FromHour, defaultFromHour), 0, 23),
		FromMinute:          clamp(intOrDefault(s.FromMinute, defaultFromMinute), 0, 59),
		ToHour:              clamp(intOrDefault(s.ToHour, defaultToHour), 0, 23),
		ToMinute:            clamp(intOrDefault(s.ToMinute, defaultToMinute), 0, 59),
		LockDurationSeconds: intOrDefault(s.LockDurationSeconds, UseDefault),
		LimitBrightness:     intOrDefault(s.LimitBrightness, UseDefault),
	}

	if p.LockDurationSeconds < 0 {
		p.LockDurationSeconds = UseDefault
	}
	if p.LimitBrightness < 0 {
		p.LimitBrightness = UseDefault
	}
	return p, nil
}

func intOrDefault(v *int, def int) int {
	if v == nil {
		return def
	}
	return *v
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
