package lighting

import (
	"sync"
	"time"
)

// DeviceRole identifies which of a zone's device lists a device belongs to.
type DeviceRole string

// DeviceRole constants. RoleNone is the non-raising "not found" marker.
const (
	RoleOnLight   DeviceRole = "on_lights"
	RoleOffLight  DeviceRole = "off_lights"
	RolePresence  DeviceRole = "presence"
	RoleLuminance DeviceRole = "luminance"
	RoleNone      DeviceRole = ""
)

// OffLightsBehavior controls what happens to off-lights when presence is
// absent.
type OffLightsBehavior string

// OffLightsBehavior constants.
const (
	// OffBehaviorForceOff turns off-lights off when the zone goes vacant.
	OffBehaviorForceOff OffLightsBehavior = "force_off"

	// OffBehaviorLeave leaves off-lights untouched.
	OffBehaviorLeave OffLightsBehavior = "leave"
)

// LuminanceAggregation selects how multiple luminance sensors are combined
// into one ambient reading.
type LuminanceAggregation string

// LuminanceAggregation constants.
const (
	AggregationAverage LuminanceAggregation = "average"
	AggregationMax     LuminanceAggregation = "max"
	AggregationMin     LuminanceAggregation = "min"
)

// runtime cache keys, scoped to one decision pass.
const cacheKeyPresence = "presence"

// Zone is a logical grouping of devices controlled by one automation
// policy.
//
// Configuration fields are set at construction (config load) and treated
// as immutable afterwards. The mutable lock state and the per-pass runtime
// cache are owned exclusively by the zone and guarded by its mutex; they
// are mutated only through the agent's lock/unlock/extend operations.
type Zone struct {
	Name    string
	Enabled bool

	// Device associations.
	PresenceDeviceIDs  []string
	OnLightDeviceIDs   []string
	OffLightDeviceIDs  []string
	LuminanceDeviceIDs []string

	// DevicePeriodMap records, per device and per lighting-period ID,
	// whether the device participates during that period. Devices or
	// periods absent from the map participate.
	DevicePeriodMap map[string]map[string]bool

	// Luminance gating.
	MinimumLuminance            float64
	MinimumLuminanceVariableID  string
	MinimumLuminanceUseVariable bool
	LuminanceAggregation        LuminanceAggregation
	AdjustBrightness            bool

	// Behaviour settings. LockDurationSeconds and LockExtensionSeconds
	// carry the UseDefault sentinel when the plugin default applies.
	LockDurationSeconds  int
	ExtendLockWhenActive bool
	LockExtensionSeconds int
	OffLightsBehavior    OffLightsBehavior
	UnlockWhenNoPresence bool
	TurnOffWhileSleeping bool

	// Lighting periods referencing this zone, in configured order. The
	// first active period is the primary one for cap/lock overrides.
	Periods []*LightingPeriod

	// excludeFromLock holds devices exempt from lock-driven suppression.
	// Always read through ExcludeFromLockDeviceIDs, which normalises a
	// nil stored value to an empty list.
	excludeFromLock []string

	cfg *AutoLightsConfig

	// Mutable runtime state, guarded by mu.
	mu             sync.Mutex
	locked         bool
	lockStart      time.Time
	lockExpiration time.Time
	runtimeCache   map[string]any
}

// NewZone creates a zone bound to the given configuration graph.
func NewZone(name string, cfg *AutoLightsConfig) *Zone {
	return &Zone{
		Name:                 name,
		Enabled:              true,
		LockDurationSeconds:  UseDefault,
		LockExtensionSeconds: UseDefault,
		OffLightsBehavior:    OffBehaviorForceOff,
		LuminanceAggregation: AggregationAverage,
		cfg:                  cfg,
		runtimeCache:         make(map[string]any),
	}
}

// ExcludeFromLockDeviceIDs returns the devices exempt from lock-driven
// suppression. Always yields a non-nil slice, regardless of the stored
// internal value.
func (z *Zone) ExcludeFromLockDeviceIDs() []string {
	if z.excludeFromLock == nil {
		return []string{}
	}
	return z.excludeFromLock
}

// SetExcludeFromLock replaces the exclusion list, normalising nil to empty.
func (z *Zone) SetExcludeFromLock(ids []string) {
	if ids == nil {
		ids = []string{}
	}
	z.excludeFromLock = ids
}

// isExcludedFromLock reports membership in the exclusion list. Safe for a
// nil stored value.
func (z *Zone) isExcludedFromLock(deviceID string) bool {
	for _, id := range z.ExcludeFromLockDeviceIDs() {
		if id == deviceID {
			return true
		}
	}
	return false
}

// HasDevice returns the role the device plays in this zone, or RoleNone
// when the device is associated with none of the zone's lists. Non-raising
// by contract: unknown devices yield the empty marker.
func (z *Zone) HasDevice(deviceID string) DeviceRole {
	for _, id := range z.OnLightDeviceIDs {
		if id == deviceID {
			return RoleOnLight
		}
	}
	for _, id := range z.OffLightDeviceIDs {
		if id == deviceID {
			return RoleOffLight
		}
	}
	for _, id := range z.PresenceDeviceIDs {
		if id == deviceID {
			return RolePresence
		}
	}
	for _, id := range z.LuminanceDeviceIDs {
		if id == deviceID {
			return RoleLuminance
		}
	}
	return RoleNone
}

// LightStatus is one light's reported level in a zone status query.
type LightStatus struct {
	DeviceID   string `json:"device_id"`
	On         bool   `json:"on"`
	Brightness int    `json:"brightness"`
}

// CurrentLightsStatus returns the reported state of the zone's on-lights
// and off-lights, in configured order. Devices in the exclude-from-lock
// list are skipped: the status feeds manual-change detection, and excluded
// devices do not participate in lock arbitration. Unknown devices are
// skipped rather than raising.
func (z *Zone) CurrentLightsStatus(states DeviceStates) []LightStatus {
	status := make([]LightStatus, 0, len(z.OnLightDeviceIDs)+len(z.OffLightDeviceIDs))
	for _, id := range append(append([]string{}, z.OnLightDeviceIDs...), z.OffLightDeviceIDs...) {
		if z.isExcludedFromLock(id) {
			continue
		}
		snap, ok := states.Snapshot(id)
		if !ok {
			continue
		}
		status = append(status, LightStatus{DeviceID: id, On: snap.IsOn(), Brightness: snap.Brightness})
	}
	return status
}

// ActivePeriods returns the lighting periods active at now, in configured
// order. Periods are intended to be ordered with one active at a time; the
// first returned period is the primary one.
func (z *Zone) ActivePeriods(now time.Time) []*LightingPeriod {
	var active []*LightingPeriod
	for _, p := range z.Periods {
		if p.IsActive(now) {
			active = append(active, p)
		}
	}
	return active
}

// PresenceDetected reports whether any presence device is occupied. The
// result is memoised in the runtime cache for the remainder of the current
// decision pass.
func (z *Zone) PresenceDetected(states DeviceStates) bool {
	z.mu.Lock()
	if cached, ok := z.runtimeCache[cacheKeyPresence]; ok {
		z.mu.Unlock()
		return cached.(bool)
	}
	z.mu.Unlock()

	presence := false
	for _, id := range z.PresenceDeviceIDs {
		snap, ok := states.Snapshot(id)
		if ok && snap.On {
			presence = true
			break
		}
	}

	z.mu.Lock()
	z.runtimeCache[cacheKeyPresence] = presence
	z.mu.Unlock()
	return presence
}

// ClearRuntimeCache drops all memoised values. Called between independent
// decision passes; the cache must never be read across passes.
func (z *Zone) ClearRuntimeCache() {
	z.mu.Lock()
	z.runtimeCache = make(map[string]any)
	z.mu.Unlock()
}

// AggregatedLuminance combines the zone's luminance sensor readings using
// the configured aggregation. The second return is false when the zone has
// no readable luminance sensors.
func (z *Zone) AggregatedLuminance(states DeviceStates) (float64, bool) {
	var readings []float64
	for _, id := range z.LuminanceDeviceIDs {
		if snap, ok := states.Snapshot(id); ok {
			readings = append(readings, snap.SensorValue)
		}
	}
	if len(readings) == 0 {
		return 0, false
	}

	switch z.LuminanceAggregation {
	case AggregationMax:
		m := readings[0]
		for _, r := range readings[1:] {
			if r > m {
				m = r
			}
		}
		return m, true
	case AggregationMin:
		m := readings[0]
		for _, r := range readings[1:] {
			if r < m {
				m = r
			}
		}
		return m, true
	default:
		sum := 0.0
		for _, r := range readings {
			sum += r
		}
		return sum / float64(len(readings)), true
	}
}

// MinimumLuminanceThreshold resolves the zone's darkness threshold: the
// referenced variable's current value when configured, else the literal.
// A failed variable read falls back to the literal value.
func (z *Zone) MinimumLuminanceThreshold(vars Variables) float64 {
	if z.MinimumLuminanceUseVariable && z.MinimumLuminanceVariableID != "" && vars != nil {
		if v, err := vars.Float(z.MinimumLuminanceVariableID); err == nil {
			return v
		}
	}
	return z.MinimumLuminance
}

// IsDark reports whether ambient luminance is below the zone's threshold.
// Zones without luminance sensors are always considered dark enough.
func (z *Zone) IsDark(states DeviceStates, vars Variables) bool {
	lum, ok := z.AggregatedLuminance(states)
	if !ok {
		return true
	}
	return lum < z.MinimumLuminanceThreshold(vars)
}

// deviceIncludedInPeriods reports whether the device participates in at
// least one of the given periods per the device-period map. Devices or
// periods without a map entry participate by default.
func (z *Zone) deviceIncludedInPeriods(deviceID string, periods []*LightingPeriod) bool {
	if z.DevicePeriodMap == nil {
		return true
	}
	perPeriod, ok := z.DevicePeriodMap[deviceID]
	if !ok {
		return true
	}
	for _, p := range periods {
		include, ok := perPeriod[p.ID]
		if !ok || include {
			return true
		}
	}
	return false
}

// ─── Lock state ─────────────────────────────────────────────────────────────

// Locked reports whether the zone is currently locked.
func (z *Zone) Locked() bool {
	z.mu.Lock()
	defer z.mu.Unlock()
	return z.locked
}

// LockStart returns when the current lock was created.
func (z *Zone) LockStart() time.Time {
	z.mu.Lock()
	defer z.mu.Unlock()
	return z.lockStart
}

// LockExpiration returns when the current lock expires.
func (z *Zone) LockExpiration() time.Time {
	z.mu.Lock()
	defer z.mu.Unlock()
	return z.lockExpiration
}

// beginLock transitions Unlocked → Locked at now for the given duration.
func (z *Zone) beginLock(now time.Time, duration time.Duration) {
	z.mu.Lock()
	defer z.mu.Unlock()
	z.locked = true
	z.lockStart = now
	z.lockExpiration = now.Add(duration)
}

// extendLock pushes the expiration forward from now by the extension
// duration, leaving the zone locked.
func (z *Zone) extendLock(now time.Time, extension time.Duration) {
	z.mu.Lock()
	defer z.mu.Unlock()
	z.locked = true
	z.lockExpiration = now.Add(extension)
}

// clearLock transitions to Unlocked.
func (z *Zone) clearLock() {
	z.mu.Lock()
	defer z.mu.Unlock()
	z.locked = false
	z.lockExpiration = time.Time{}
}

// EffectiveLockDuration resolves the lock duration for a lock created at
// now. Precedence: zone override, then the primary active period's
// override, then the plugin default.
func (z *Zone) EffectiveLockDuration(now time.Time) time.Duration {
	if z.LockDurationSeconds >= 0 {
		return time.Duration(z.LockDurationSeconds) * time.Second
	}
	if active := z.ActivePeriods(now); len(active) > 0 && active[0].LockDurationSeconds >= 0 {
		return active[0].EffectiveLockDuration(z.cfg.DefaultLockDuration)
	}
	return z.cfg.DefaultLockDuration
}

// EffectiveLockExtension resolves the lock extension duration: zone
// override, else the plugin default.
func (z *Zone) EffectiveLockExtension() time.Duration {
	if z.LockExtensionSeconds >= 0 {
		return time.Duration(z.LockExtensionSeconds) * time.Second
	}
	return z.cfg.DefaultLockExtension
}
