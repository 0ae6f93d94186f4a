package lighting

import (
	"context"
	"sync"
	"time"
)

// Lock event types recorded for telemetry and auditing.
const (
	LockEventLocked   = "locked"
	LockEventExtended = "extended"
	LockEventUnlocked = "unlocked"
)

// Telemetry receives evaluation and lock-transition measurements. May be
// a no-op; the agent never blocks on it.
type Telemetry interface {
	RecordEvaluation(zoneName string, presence bool, changes int)
	RecordLockEvent(zoneName, event string)
}

// LockEventRecorder persists lock transitions for auditing. May be nil.
type LockEventRecorder interface {
	RecordLockEvent(ctx context.Context, ev LockEvent) error
}

// LockEvent is one lock transition, persisted to the lock_events table.
type LockEvent struct {
	ID         string    `json:"id"`
	ZoneName   string    `json:"zone_name"`
	Event      string    `json:"event"`
	Reason     string    `json:"reason"`
	DeviceID   string    `json:"device_id,omitempty"`
	Expiration time.Time `json:"expiration,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Agent bridges device-change notifications and periodic ticks into the
// per-zone lock state machine, and applies computed plans to devices.
//
// Thread Safety: all public methods are safe for concurrent use. Timer
// bookkeeping is guarded by the agent mutex; zone lock state by each
// zone's own mutex. Timer callbacks re-validate conditions at fire time
// and detect stale handles by comparison, so a timer that fires after
// cancellation is a safe no-op.
type Agent struct {
	cfg       *AutoLightsConfig
	states    DeviceStates
	commander Commander
	vars      Variables
	telemetry Telemetry
	events    LockEventRecorder
	logger    Logger

	// now is the clock, replaceable in tests.
	now func() time.Time

	mu sync.Mutex
	// lockTimers and graceTimers map zone name → outstanding timer. At
	// most one of each kind per zone; entries are removed when the timer
	// fires or is cancelled.
	lockTimers  map[string]*zoneTimer
	graceTimers map[string]*zoneTimer
	// lastIssued tracks the automation's own last command per device, to
	// tell manual interventions apart from command echoes.
	lastIssued map[string]Target
}

// NewAgent creates an agent over the assembled configuration graph.
//
// Parameters:
//   - cfg: The zone/period graph with plugin defaults
//   - states: Device snapshot query collaborator
//   - commander: Device command collaborator (fire-and-forget)
//   - vars: Variable read collaborator (may be nil)
//   - logger: Logger instance (nil for no logging)
func NewAgent(cfg *AutoLightsConfig, states DeviceStates, commander Commander, vars Variables, logger Logger) *Agent {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Agent{
		cfg:         cfg,
		states:      states,
		commander:   commander,
		vars:        vars,
		logger:      logger,
		now:         time.Now,
		lockTimers:  make(map[string]*zoneTimer),
		graceTimers: make(map[string]*zoneTimer),
		lastIssued:  make(map[string]Target),
	}
}

// SetTelemetry attaches an optional telemetry sink.
func (a *Agent) SetTelemetry(t Telemetry) { a.telemetry = t }

// SetLockEventRecorder attaches an optional lock-event audit store.
func (a *Agent) SetLockEventRecorder(r LockEventRecorder) { a.events = r }

// Zones returns the configured zone list.
func (a *Agent) Zones() []*Zone {
	return a.cfg.Zones
}

// Run re-evaluates every zone on the configured interval until the
// context is cancelled. On shutdown all outstanding timers are cancelled.
func (a *Agent) Run(ctx context.Context) {
	interval := a.cfg.ProcessInterval
	if interval <= 0 {
		interval = time.Minute
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	a.logger.Info("auto lights agent started", "zones", len(a.cfg.Zones), "interval", interval)
	for {
		select {
		case <-ctx.Done():
			a.cancelAllTimers()
			a.logger.Info("auto lights agent stopped")
			return
		case <-ticker.C:
			a.ProcessAllZones()
		}
	}
}

// ProcessDeviceChange routes a device-state change to the zones owning the
// device.
//
// A change on an on/off-light device that differs from the automation's
// own last-issued command transitions the owning zone to Locked and
// registers its expiry timer. A presence change starts or cancels the
// no-presence grace timer for locked zones and re-evaluates the zone. A
// luminance change re-evaluates the zone.
//
// Returns true when a lock state change occurred.
func (a *Agent) ProcessDeviceChange(deviceID string, diff map[string]any) bool {
	lockChanged := false

	for _, zone := range a.cfg.Zones {
		switch zone.HasDevice(deviceID) {
		case RoleOnLight, RoleOffLight:
			if !zone.Enabled {
				continue
			}
			if a.isAutomationEcho(deviceID) {
				a.logger.Debug("device change matches own command, ignoring",
					"zone", zone.Name, "device_id", deviceID)
				continue
			}
			if !zone.Locked() {
				a.lockZone(zone, deviceID)
				lockChanged = true
			}

		case RolePresence:
			zone.ClearRuntimeCache()
			presence := zone.PresenceDetected(a.states)
			if zone.Locked() && zone.UnlockWhenNoPresence {
				if presence {
					if a.cancelGraceTimer(zone.Name) {
						a.logger.Debug("presence returned, grace timer cancelled", "zone", zone.Name)
					}
				} else {
					a.scheduleGraceTimer(zone)
				}
			}
			a.ProcessZone(zone)

		case RoleLuminance:
			zone.ClearRuntimeCache()
			a.ProcessZone(zone)

		case RoleNone:
			// Device not associated with this zone.
		}
	}

	return lockChanged
}

// ProcessZone evaluates one zone and applies the resulting plan.
//
// Locked zones are skipped by the automatic pass: only devices in the
// exclude-from-lock list are still computed and applied, and the method
// returns false. Disabled zones and a globally disabled automation also
// return false without touching devices.
func (a *Agent) ProcessZone(zone *Zone) bool {
	if !a.cfg.IsEnabled(a.vars) {
		return false
	}
	if !zone.Enabled {
		a.logger.Debug("zone disabled, skipping", "zone", zone.Name)
		return false
	}

	defer zone.ClearRuntimeCache()

	var plan Plan
	var reason string

	if off, offReason := a.cfg.GlobalLightsOff(a.vars); off {
		plan = zone.AllOffPlan(a.states)
		reason = offReason
	} else if zone.TurnOffWhileSleeping && a.cfg.GoneToBed(a.vars) {
		plan = zone.AllOffPlan(a.states)
		reason = "household asleep"
	} else {
		plan = zone.CalculateTargetBrightness(a.now(), a.states, a.vars)
	}

	presence := zone.PresenceDetected(a.states)
	if a.telemetry != nil {
		a.telemetry.RecordEvaluation(zone.Name, presence, len(plan.DeviceChanges))
	}

	if plan.HasChanges() {
		a.logger.Info("applying zone plan",
			"zone", zone.Name,
			"changes", len(plan.DeviceChanges),
			"exclusions", len(plan.Exclusions),
			"reason", reason,
		)
		a.applyPlan(plan)
	} else {
		a.logger.Debug("no changes for zone", "zone", zone.Name)
	}

	return !zone.Locked()
}

// ProcessAllZones evaluates every configured zone.
func (a *Agent) ProcessAllZones() {
	for _, zone := range a.cfg.Zones {
		a.ProcessZone(zone)
	}
}

// ProcessVariableChange re-evaluates zones affected by a variable change.
// Global behaviour variables re-evaluate every zone; a zone-referenced
// variable (luminance threshold) re-evaluates that zone only.
func (a *Agent) ProcessVariableChange(varID string) {
	if a.cfg.HasVariable(varID) {
		a.logger.Debug("global variable changed, processing all zones", "variable_id", varID)
		a.ProcessAllZones()
		return
	}
	for _, zone := range a.cfg.Zones {
		if zone.MinimumLuminanceUseVariable && zone.MinimumLuminanceVariableID == varID {
			zone.ClearRuntimeCache()
			a.ProcessZone(zone)
		}
	}
}

// ManualUnlock unconditionally unlocks the named zone, cancelling any
// pending grace or expiry timer, then re-evaluates it.
func (a *Agent) ManualUnlock(zoneName string) error {
	zone, err := a.cfg.ZoneByName(zoneName)
	if err != nil {
		return err
	}
	a.unlockZone(zone, "manual unlock")
	a.ProcessZone(zone)
	return nil
}

// ResetLocks unlocks the named zone, or every zone when name is empty.
func (a *Agent) ResetLocks(zoneName string) error {
	if zoneName != "" {
		return a.ManualUnlock(zoneName)
	}
	for _, zone := range a.cfg.Zones {
		a.unlockZone(zone, "manual reset")
	}
	return nil
}

// ─── Lock transitions ───────────────────────────────────────────────────────

// lockZone transitions an unlocked zone to Locked after an external change
// to one of its lights, and registers the expiry timer.
func (a *Agent) lockZone(zone *Zone, deviceID string) {
	now := a.now()
	duration := zone.EffectiveLockDuration(now)
	zone.beginLock(now, duration)
	a.scheduleLockTimer(zone, duration)

	a.logger.Info("zone locked by manual intervention",
		"zone", zone.Name,
		"device_id", deviceID,
		"lock_duration", duration,
		"lock_expiration", zone.LockExpiration(),
		"extend_lock_when_active", zone.ExtendLockWhenActive,
	)
	a.recordLockEvent(zone, LockEventLocked, "manual device change", deviceID)
}

// unlockZone transitions to Unlocked and cancels both timers for the zone.
func (a *Agent) unlockZone(zone *Zone, reason string) {
	a.cancelLockTimer(zone.Name)
	a.cancelGraceTimer(zone.Name)
	if !zone.Locked() {
		return
	}
	zone.clearLock()
	a.logger.Info("zone unlocked", "zone", zone.Name, "reason", reason)
	a.recordLockEvent(zone, LockEventUnlocked, reason, "")
}

// onLockExpired is the expiry-timer callback.
//
// Conditions are re-validated at fire time: with extend-lock-when-active
// set and presence currently detected the lock is renewed, otherwise the
// zone unlocks and re-enters the decision path.
func (a *Agent) onLockExpired(zoneName string, handle *zoneTimer) {
	if !a.clearTimerIfCurrent(a.lockTimers, zoneName, handle) {
		// Stale timer: cancelled or replaced after firing.
		return
	}

	zone, err := a.cfg.ZoneByName(zoneName)
	if err != nil {
		a.logger.Warn("lock expiry for unknown zone", "zone", zoneName)
		return
	}

	// Stale presence from an earlier pass must not keep the lock alive.
	zone.ClearRuntimeCache()
	presence := zone.PresenceDetected(a.states)

	if zone.Enabled && zone.ExtendLockWhenActive && presence {
		extension := zone.EffectiveLockExtension()
		zone.extendLock(a.now(), extension)
		a.scheduleLockTimer(zone, extension)
		a.logger.Info("lock extended, presence still active",
			"zone", zone.Name,
			"lock_expiration", zone.LockExpiration(),
		)
		a.recordLockEvent(zone, LockEventExtended, "presence active at expiry", "")
		return
	}

	zone.clearLock()
	a.cancelGraceTimer(zone.Name)
	a.logger.Info("lock expired", "zone", zone.Name)
	a.recordLockEvent(zone, LockEventUnlocked, "lock expired", "")
	a.ProcessZone(zone)
}

// onGraceExpired is the no-presence grace callback.
//
// Presence and lock-hold age are re-checked at fire time rather than
// trusting the state captured at scheduling: presence may have returned,
// or the lock may be younger than the grace window.
func (a *Agent) onGraceExpired(zoneName string, handle *zoneTimer) {
	if !a.clearTimerIfCurrent(a.graceTimers, zoneName, handle) {
		return
	}

	zone, err := a.cfg.ZoneByName(zoneName)
	if err != nil {
		a.logger.Warn("grace expiry for unknown zone", "zone", zoneName)
		return
	}

	zone.ClearRuntimeCache()
	if !zone.Locked() || zone.PresenceDetected(a.states) {
		return
	}
	if a.now().Sub(zone.LockStart()) < a.cfg.GracePeriod {
		return
	}

	a.cancelLockTimer(zone.Name)
	zone.clearLock()
	a.logger.Info("zone unlocked early, no presence through grace window", "zone", zone.Name)
	a.recordLockEvent(zone, LockEventUnlocked, "no presence", "")
	a.ProcessZone(zone)
}

// ─── Timer bookkeeping ──────────────────────────────────────────────────────

// zoneTimer wraps a time.Timer behind a stable identity. The callback
// captures the wrapper, not the timer: the wrapper pointer exists before
// the timer is armed, so a callback firing immediately still carries the
// handle that the tracking map records. The inner timer field is only
// touched under the agent mutex.
type zoneTimer struct {
	timer *time.Timer
}

func (t *zoneTimer) stop() {
	if t.timer != nil {
		t.timer.Stop()
	}
}

// scheduleLockTimer registers the single expiry timer for a zone,
// cancelling any prior one (idempotent rescheduling).
func (a *Agent) scheduleLockTimer(zone *Zone, d time.Duration) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if prev, ok := a.lockTimers[zone.Name]; ok {
		prev.stop()
	}
	handle := &zoneTimer{}
	handle.timer = time.AfterFunc(d, func() { a.onLockExpired(zone.Name, handle) })
	a.lockTimers[zone.Name] = handle
}

// scheduleGraceTimer registers the single no-presence grace timer for a
// zone, cancelling any prior one.
func (a *Agent) scheduleGraceTimer(zone *Zone) {
	grace := a.cfg.GracePeriod
	if grace <= 0 {
		// Zero grace unlocks on the next callback rather than instantly.
		grace = time.Millisecond
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if prev, ok := a.graceTimers[zone.Name]; ok {
		prev.stop()
	}
	handle := &zoneTimer{}
	handle.timer = time.AfterFunc(grace, func() { a.onGraceExpired(zone.Name, handle) })
	a.graceTimers[zone.Name] = handle
	a.logger.Debug("grace timer scheduled", "zone", zone.Name, "grace", grace)
}

// cancelLockTimer stops and removes the zone's expiry timer. Reports
// whether a timer was tracked.
func (a *Agent) cancelLockTimer(zoneName string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	t, ok := a.lockTimers[zoneName]
	if !ok {
		return false
	}
	t.stop()
	delete(a.lockTimers, zoneName)
	return true
}

// cancelGraceTimer stops and removes the zone's grace timer exactly once.
func (a *Agent) cancelGraceTimer(zoneName string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	t, ok := a.graceTimers[zoneName]
	if !ok {
		return false
	}
	t.stop()
	delete(a.graceTimers, zoneName)
	return true
}

// clearTimerIfCurrent removes the zone's tracked timer only when it is
// the firing handle. Cancellation and firing race on the same map entry;
// the handle comparison makes a fired-but-cancelled timer a safe no-op.
func (a *Agent) clearTimerIfCurrent(timers map[string]*zoneTimer, zoneName string, handle *zoneTimer) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	current, ok := timers[zoneName]
	if !ok || current != handle {
		return false
	}
	delete(timers, zoneName)
	return true
}

// cancelAllTimers stops every outstanding timer. Called on shutdown.
func (a *Agent) cancelAllTimers() {
	a.mu.Lock()
	defer a.mu.Unlock()
	for name, t := range a.lockTimers {
		t.stop()
		delete(a.lockTimers, name)
	}
	for name, t := range a.graceTimers {
		t.stop()
		delete(a.graceTimers, name)
	}
}

// hasLockTimer reports whether an expiry timer is tracked for the zone.
func (a *Agent) hasLockTimer(zoneName string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	_, ok := a.lockTimers[zoneName]
	return ok
}

// hasGraceTimer reports whether a grace timer is tracked for the zone.
func (a *Agent) hasGraceTimer(zoneName string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	_, ok := a.graceTimers[zoneName]
	return ok
}

// ─── Helpers ────────────────────────────────────────────────────────────────

// applyPlan issues the plan's device commands and records them as the
// automation's own, so the resulting state reports are not mistaken for
// manual interventions.
func (a *Agent) applyPlan(plan Plan) {
	for _, cmd := range plan.DeviceChanges {
		a.mu.Lock()
		a.lastIssued[cmd.DeviceID] = cmd.Target
		a.mu.Unlock()
		a.commander.SendCommand(cmd.DeviceID, cmd.Target)
	}
}

// isAutomationEcho reports whether the device's current reported state
// matches the automation's last-issued command for it. Matching reports
// are command confirmations, not manual changes.
func (a *Agent) isAutomationEcho(deviceID string) bool {
	a.mu.Lock()
	issued, ok := a.lastIssued[deviceID]
	a.mu.Unlock()
	if !ok {
		return false
	}

	snap, known := a.states.Snapshot(deviceID)
	if !known {
		return false
	}
	return !targetDiffers(snap, issued)
}

// recordLockEvent persists and reports a lock transition. Failures are
// logged and absorbed; auditing never blocks the state machine.
func (a *Agent) recordLockEvent(zone *Zone, event, reason, deviceID string) {
	if a.telemetry != nil {
		a.telemetry.RecordLockEvent(zone.Name, event)
	}
	if a.events == nil {
		return
	}
	ev := LockEvent{
		ZoneName:   zone.Name,
		Event:      event,
		Reason:     reason,
		DeviceID:   deviceID,
		Expiration: zone.LockExpiration(),
		CreatedAt:  a.now().UTC(),
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.events.RecordLockEvent(ctx, ev); err != nil {
		a.logger.Error("failed to record lock event", "zone", zone.Name, "event", event, "error", err)
	}
}
