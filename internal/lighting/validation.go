package lighting

import (
	"fmt"
)

// Validation constants.
const (
	maxZoneNameLength   = 100
	defaultMinLuminance = 10000
)

// StoredZone is the persisted shape of a zone definition. Optional fields
// are pointers (or nilable slices) because historic configurations omit
// them or store null; normalisation to typed defaults happens here, at the
// load boundary, so the decision logic operates on validated data.
type StoredZone struct {
	Name    string `json:"name"`
	Enabled *bool  `json:"enabled"`

	PresenceDeviceIDs        []string `json:"presence_dev_ids"`
	OnLightDeviceIDs         []string `json:"on_lights_dev_ids"`
	OffLightDeviceIDs        []string `json:"off_lights_dev_ids"`
	LuminanceDeviceIDs       []string `json:"luminance_dev_ids"`
	ExcludeFromLockDeviceIDs []string `json:"exclude_from_lock_dev_ids"`

	// PeriodIDs references lighting periods by ID, in evaluation order.
	PeriodIDs []string `json:"lighting_period_ids"`

	// DevicePeriodMap: device id → period id → participates.
	DevicePeriodMap map[string]map[string]bool `json:"device_period_map"`

	MinimumLuminance            *float64 `json:"minimum_luminance"`
	MinimumLuminanceVariableID  string   `json:"minimum_luminance_var_id"`
	MinimumLuminanceUseVariable bool     `json:"minimum_luminance_use_variable"`
	LuminanceAggregation        string   `json:"luminance_aggregation"`
	AdjustBrightness            bool     `json:"adjust_brightness"`

	LockDurationSeconds  *int   `json:"lock_duration"`
	ExtendLockWhenActive *bool  `json:"extend_lock_when_active"`
	LockExtensionSeconds *int   `json:"lock_extension_duration"`
	OffLightsBehavior    string `json:"off_lights_behavior"`
	UnlockWhenNoPresence *bool  `json:"unlock_when_no_presence"`
	TurnOffWhileSleeping bool   `json:"turn_off_while_sleeping"`
}

// ValidateStoredZone checks the fields that cannot be normalised away.
func ValidateStoredZone(s StoredZone) error {
	if s.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidZone)
	}
	if len(s.Name) > maxZoneNameLength {
		return fmt.Errorf("%w: name exceeds %d characters", ErrInvalidZone, maxZoneNameLength)
	}
	switch LuminanceAggregation(s.LuminanceAggregation) {
	case "", AggregationAverage, AggregationMax, AggregationMin:
	default:
		return fmt.Errorf("%w: unknown luminance aggregation %q", ErrInvalidZone, s.LuminanceAggregation)
	}
	switch OffLightsBehavior(s.OffLightsBehavior) {
	case "", OffBehaviorForceOff, OffBehaviorLeave:
	default:
		return fmt.Errorf("%w: unknown off-lights behaviour %q", ErrInvalidZone, s.OffLightsBehavior)
	}
	return nil
}

// ZoneFromStored builds a typed zone from its stored form, applying the
// documented defaults: enabled, extend-lock and unlock-when-no-presence
// default on; minimum luminance defaults to 10000 lux (gating effectively
// always "dark enough" until configured); null device lists become empty;
// UseDefault sentinels where durations are absent.
func ZoneFromStored(s StoredZone, cfg *AutoLightsConfig) (*Zone, error) {
	if err := ValidateStoredZone(s); err != nil {
		return nil, err
	}

	z := NewZone(s.Name, cfg)
	z.Enabled = boolOrDefault(s.Enabled, true)
	z.PresenceDeviceIDs = sliceOrEmpty(s.PresenceDeviceIDs)
	z.OnLightDeviceIDs = sliceOrEmpty(s.OnLightDeviceIDs)
	z.OffLightDeviceIDs = sliceOrEmpty(s.OffLightDeviceIDs)
	z.LuminanceDeviceIDs = sliceOrEmpty(s.LuminanceDeviceIDs)
	z.SetExcludeFromLock(s.ExcludeFromLockDeviceIDs)
	z.DevicePeriodMap = s.DevicePeriodMap

	z.MinimumLuminance = floatOrDefault(s.MinimumLuminance, defaultMinLuminance)
	z.MinimumLuminanceVariableID = s.MinimumLuminanceVariableID
	z.MinimumLuminanceUseVariable = s.MinimumLuminanceUseVariable
	if s.LuminanceAggregation != "" {
		z.LuminanceAggregation = LuminanceAggregation(s.LuminanceAggregation)
	}
	z.AdjustBrightness = s.AdjustBrightness

	z.LockDurationSeconds = normaliseSentinel(s.LockDurationSeconds)
	z.ExtendLockWhenActive = boolOrDefault(s.ExtendLockWhenActive, true)
	z.LockExtensionSeconds = normaliseSentinel(s.LockExtensionSeconds)
	if s.OffLightsBehavior != "" {
		z.OffLightsBehavior = OffLightsBehavior(s.OffLightsBehavior)
	}
	z.UnlockWhenNoPresence = boolOrDefault(s.UnlockWhenNoPresence, true)
	z.TurnOffWhileSleeping = s.TurnOffWhileSleeping

	return z, nil
}

// BuildConfig assembles the in-memory configuration graph from settings
// and stored definitions. Zone period references are resolved strictly: a
// zone naming an unknown period is a configuration error, not something
// normalisation can paper over. All zones start Unlocked.
func BuildConfig(settings Settings, zones []StoredZone, periods []StoredPeriod) (*AutoLightsConfig, error) {
	cfg := &AutoLightsConfig{
		Enabled:               settings.Enabled,
		EnabledVariableID:     settings.EnabledVariableID,
		SomeoneHomeVariableID: settings.SomeoneHomeVariableID,
		GoneToBedVariableID:   settings.GoneToBedVariableID,
		GuestModeVariableID:   settings.GuestModeVariableID,
		DefaultLockDuration:   settings.DefaultLockDuration,
		DefaultLockExtension:  settings.DefaultLockExtension,
		DefaultBrightness:     settings.DefaultBrightness,
		GracePeriod:           settings.GracePeriod,
		ProcessInterval:       settings.ProcessInterval,
	}
	if cfg.DefaultBrightness <= 0 {
		cfg.DefaultBrightness = 100
	}

	byID := make(map[string]*LightingPeriod, len(periods))
	for _, sp := range periods {
		p, err := PeriodFromStored(sp)
		if err != nil {
			return nil, fmt.Errorf("period %q: %w", sp.Name, err)
		}
		if _, dup := byID[p.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate period id %q", ErrInvalidPeriod, p.ID)
		}
		byID[p.ID] = p
		cfg.Periods = append(cfg.Periods, p)
	}

	seen := make(map[string]struct{}, len(zones))
	for _, sz := range zones {
		if _, dup := seen[sz.Name]; dup {
			return nil, fmt.Errorf("%w: %q", ErrZoneExists, sz.Name)
		}
		seen[sz.Name] = struct{}{}

		z, err := ZoneFromStored(sz, cfg)
		if err != nil {
			return nil, fmt.Errorf("zone %q: %w", sz.Name, err)
		}
		for _, pid := range sz.PeriodIDs {
			p, ok := byID[pid]
			if !ok {
				return nil, fmt.Errorf("zone %q references period %q: %w", sz.Name, pid, ErrPeriodNotFound)
			}
			z.Periods = append(z.Periods, p)
		}
		cfg.Zones = append(cfg.Zones, z)
	}

	return cfg, nil
}

func boolOrDefault(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}

func floatOrDefault(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}

func sliceOrEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// normaliseSentinel maps absent or negative stored durations to the
// UseDefault sentinel.
func normaliseSentinel(v *int) int {
	if v == nil || *v < 0 {
		return UseDefault
	}
	return *v
}
