package lighting

import "time"

// Exclusion reasons recorded during plan calculation.
const (
	reasonZoneLocked   = "zone locked"
	reasonNoPeriod     = "not included in any active period"
	reasonStateUnknown = "device state unknown"
)

// CalculateTargetBrightness computes the target-brightness plan for the
// zone at the given instant.
//
// The result is a pure function of the zone's configuration, the device
// snapshots, the variable values, and now: identical inputs yield an
// identical plan. Device iteration follows the configured list order
// (on-lights before off-lights) so command ordering is deterministic.
//
// While the zone is locked, targets are computed and applied only for
// devices in the exclude-from-lock list; all other lights are recorded as
// exclusions and left alone.
func (z *Zone) CalculateTargetBrightness(now time.Time, states DeviceStates, vars Variables) Plan {
	plan := emptyPlan()

	active := z.ActivePeriods(now)
	if len(active) == 0 {
		return plan
	}

	presence := z.PresenceDetected(states)

	// Luminance gating only applies when brightness adjustment is on;
	// otherwise darkness never blocks an "on" decision.
	darkEnough := true
	if z.AdjustBrightness {
		darkEnough = z.IsDark(states, vars)
	}

	// An Off-mode period means the automation must not turn lights on
	// while it is active.
	onAllowed := true
	for _, p := range active {
		if p.Mode == ModeOff {
			onAllowed = false
			break
		}
	}

	locked := z.Locked()
	capPct := active[0].EffectiveBrightnessCap(z.cfg.DefaultBrightness)
	onTarget := Target{On: true, Brightness: min(z.cfg.DefaultBrightness, capPct)}

	for _, id := range z.OnLightDeviceIDs {
		snap, skip := z.planAdmit(&plan, id, active, locked, states)
		if skip {
			continue
		}

		target := TargetOff
		if presence && darkEnough && onAllowed {
			target = onTarget
		}
		if targetDiffers(snap, target) {
			plan.setTarget(id, target)
		}
	}

	for _, id := range z.OffLightDeviceIDs {
		snap, skip := z.planAdmit(&plan, id, active, locked, states)
		if skip {
			continue
		}

		// Off-lights are only ever switched off by the automation, and
		// only when the zone is vacant and behaviour requests it.
		if presence || z.OffLightsBehavior != OffBehaviorForceOff {
			continue
		}
		if targetDiffers(snap, TargetOff) {
			plan.setTarget(id, TargetOff)
		}
	}

	return plan
}

// AllOffPlan computes a plan that switches every controllable light off,
// used for global lights-off behaviour and sleep-time shutoff. Lock and
// exclusion handling matches the normal calculation.
func (z *Zone) AllOffPlan(states DeviceStates) Plan {
	plan := emptyPlan()
	locked := z.Locked()

	for _, id := range append(append([]string{}, z.OnLightDeviceIDs...), z.OffLightDeviceIDs...) {
		if locked && !z.isExcludedFromLock(id) {
			plan.exclude(id, reasonZoneLocked)
			continue
		}
		snap, ok := states.Snapshot(id)
		if !ok {
			plan.exclude(id, reasonStateUnknown)
			continue
		}
		if targetDiffers(snap, TargetOff) {
			plan.setTarget(id, TargetOff)
		}
	}
	return plan
}

// planAdmit applies the shared skip rules for a light: lock suppression,
// period inclusion, and snapshot availability. skip is true when the
// device takes no part in this pass; exclusions are recorded on the plan.
func (z *Zone) planAdmit(plan *Plan, deviceID string, active []*LightingPeriod, locked bool, states DeviceStates) (Snapshot, bool) {
	if locked && !z.isExcludedFromLock(deviceID) {
		plan.exclude(deviceID, reasonZoneLocked)
		return Snapshot{}, true
	}
	if !z.deviceIncludedInPeriods(deviceID, active) {
		plan.exclude(deviceID, reasonNoPeriod)
		return Snapshot{}, true
	}
	snap, ok := states.Snapshot(deviceID)
	if !ok {
		plan.exclude(deviceID, reasonStateUnknown)
		return Snapshot{}, true
	}
	return snap, false
}

// targetDiffers reports whether the desired target differs from the
// device's reported state. Dimmers compare brightness when lit; switches
// compare power state only.
func targetDiffers(snap Snapshot, target Target) bool {
	if snap.IsOn() != target.On {
		return true
	}
	if target.On && snap.Dimmable && snap.Brightness != target.Brightness {
		return true
	}
	return false
}
