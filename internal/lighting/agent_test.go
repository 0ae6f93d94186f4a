package lighting

import (
	"context"
	"sync"
	"testing"
	"time"
)

// ─── Mock Telemetry / Audit ─────────────────────────────────────────────────

type mockTelemetry struct {
	mu          sync.Mutex
	evaluations []string
	lockEvents  []string
}

func (m *mockTelemetry) RecordEvaluation(zoneName string, presence bool, changes int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.evaluations = append(m.evaluations, zoneName)
}

func (m *mockTelemetry) RecordLockEvent(zoneName, event string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lockEvents = append(m.lockEvents, event)
}

func (m *mockTelemetry) events() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	cpy := make([]string, len(m.lockEvents))
	copy(cpy, m.lockEvents)
	return cpy
}

type mockLockEvents struct {
	mu       sync.Mutex
	recorded []LockEvent
}

func (m *mockLockEvents) RecordLockEvent(_ context.Context, ev LockEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recorded = append(m.recorded, ev)
	return nil
}

func (m *mockLockEvents) all() []LockEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	cpy := make([]LockEvent, len(m.recorded))
	copy(cpy, m.recorded)
	return cpy
}

// ─── Setup ──────────────────────────────────────────────────────────────────

// setupAgent wires a single-zone agent over mock collaborators with a
// controllable clock.
func setupAgent(t *testing.T) (*Agent, *Zone, *mockStates, *mockCommander, *mockVariables) {
	t.Helper()

	cfg := testConfig()
	zone := NewZone("lounge", cfg)
	zone.PresenceDeviceIDs = []string{"motion"}
	zone.OnLightDeviceIDs = []string{"ceiling"}
	zone.ExtendLockWhenActive = true
	zone.UnlockWhenNoPresence = true
	zone.Periods = []*LightingPeriod{allDay("day", ModeOnAndOff)}
	cfg.Zones = []*Zone{zone}
	cfg.Periods = zone.Periods

	states := newMockStates()
	states.setSwitch("motion", false)
	states.setLight("ceiling", false, 0)

	commander := newMockCommander()
	vars := newMockVariables()

	agent := NewAgent(cfg, states, commander, vars, nil)
	cfg.SetAgent(agent)
	t.Cleanup(agent.cancelAllTimers)
	return agent, zone, states, commander, vars
}

// fireLockTimer invokes the zone's tracked expiry callback synchronously.
func fireLockTimer(t *testing.T, a *Agent, zoneName string) {
	t.Helper()
	a.mu.Lock()
	handle, ok := a.lockTimers[zoneName]
	a.mu.Unlock()
	if !ok {
		t.Fatalf("no lock timer tracked for %q", zoneName)
	}
	handle.stop()
	a.onLockExpired(zoneName, handle)
}

// fireGraceTimer invokes the zone's tracked grace callback synchronously.
func fireGraceTimer(t *testing.T, a *Agent, zoneName string) {
	t.Helper()
	a.mu.Lock()
	handle, ok := a.graceTimers[zoneName]
	a.mu.Unlock()
	if !ok {
		t.Fatalf("no grace timer tracked for %q", zoneName)
	}
	handle.stop()
	a.onGraceExpired(zoneName, handle)
}

// ─── Locking on Manual Intervention ─────────────────────────────────────────

func TestManualDeviceChangeLocksZone(t *testing.T) {
	agent, zone, states, _, _ := setupAgent(t)

	states.setLight("ceiling", true, 100)
	changed := agent.ProcessDeviceChange("ceiling", map[string]any{"on": true})

	if !changed {
		t.Error("expected a lock state change")
	}
	if !zone.Locked() {
		t.Fatal("zone should be locked after a manual light change")
	}
	if !agent.hasLockTimer(zone.Name) {
		t.Error("expected an expiry timer for the locked zone")
	}

	wantExpiry := zone.LockStart().Add(15 * time.Minute)
	if !zone.LockExpiration().Equal(wantExpiry) {
		t.Errorf("expiration = %v, want %v", zone.LockExpiration(), wantExpiry)
	}
}

func TestRepeatedChangesKeepSingleLock(t *testing.T) {
	agent, zone, states, _, _ := setupAgent(t)

	states.setLight("ceiling", true, 100)
	agent.ProcessDeviceChange("ceiling", nil)
	firstExpiry := zone.LockExpiration()

	// A second manual change while locked does not restart the lock.
	states.setLight("ceiling", true, 60)
	changed := agent.ProcessDeviceChange("ceiling", nil)

	if changed {
		t.Error("already-locked zone should not report another lock change")
	}
	if !zone.LockExpiration().Equal(firstExpiry) {
		t.Errorf("expiration moved from %v to %v", firstExpiry, zone.LockExpiration())
	}
}

func TestDisabledZoneNeverLocks(t *testing.T) {
	agent, zone, states, _, _ := setupAgent(t)
	zone.Enabled = false

	states.setLight("ceiling", true, 100)
	if agent.ProcessDeviceChange("ceiling", nil) {
		t.Error("disabled zone must not lock")
	}
	if zone.Locked() {
		t.Error("disabled zone locked")
	}
}

// ─── Echo Suppression ───────────────────────────────────────────────────────

func TestAutomationEchoDoesNotLock(t *testing.T) {
	agent, zone, states, commander, _ := setupAgent(t)

	// Presence arrives; the automation turns the light on.
	states.setSwitch("motion", true)
	agent.ProcessZone(zone)

	sent := commander.sent()
	if len(sent) != 1 || !sent[0].Target.On {
		t.Fatalf("expected one on-command, got %v", sent)
	}

	// The device reports the commanded state back.
	states.setLight("ceiling", true, 100)
	if agent.ProcessDeviceChange("ceiling", nil) {
		t.Error("command echo must not lock the zone")
	}
	if zone.Locked() {
		t.Error("zone locked by its own command echo")
	}

	// A later report that differs from the last command is a real
	// intervention.
	states.setLight("ceiling", true, 35)
	if !agent.ProcessDeviceChange("ceiling", nil) {
		t.Error("manual dim after echo should lock the zone")
	}
}

// ─── Lock Expiry ────────────────────────────────────────────────────────────

func TestLockExpiryUnlocksWhenVacant(t *testing.T) {
	agent, zone, states, commander, _ := setupAgent(t)

	states.setLight("ceiling", true, 100)
	agent.ProcessDeviceChange("ceiling", nil)
	commander.reset()

	states.setSwitch("motion", false)
	fireLockTimer(t, agent, zone.Name)

	if zone.Locked() {
		t.Fatal("zone should unlock at expiry with no presence")
	}
	if agent.hasLockTimer(zone.Name) {
		t.Error("expiry timer should be untracked after firing")
	}

	// Re-evaluation after unlock turns the manually-lit light off. The
	// off-command is suppressed as an echo when the device later reports.
	sent := commander.sent()
	if len(sent) != 1 || sent[0].Target.On {
		t.Errorf("expected one off-command after unlock, got %v", sent)
	}
}

func TestLockExpiryExtendsWithPresence(t *testing.T) {
	agent, zone, states, _, _ := setupAgent(t)

	states.setLight("ceiling", true, 100)
	agent.ProcessDeviceChange("ceiling", nil)

	base := time.Now()
	agent.now = func() time.Time { return base }

	states.setSwitch("motion", true)
	fireLockTimer(t, agent, zone.Name)

	if !zone.Locked() {
		t.Fatal("zone should stay locked while occupied with extend-lock on")
	}
	wantExpiry := base.Add(5 * time.Minute)
	if !zone.LockExpiration().Equal(wantExpiry) {
		t.Errorf("extended expiration = %v, want %v", zone.LockExpiration(), wantExpiry)
	}
	if !agent.hasLockTimer(zone.Name) {
		t.Error("extension should re-register the expiry timer")
	}
}

func TestLockExpiryIgnoresStalePresence(t *testing.T) {
	agent, zone, states, _, _ := setupAgent(t)

	// Presence memoised true before the lock expires...
	states.setSwitch("motion", true)
	zone.PresenceDetected(states)

	states.setLight("ceiling", true, 100)
	agent.ProcessDeviceChange("ceiling", nil)

	// ...but the room is empty at fire time.
	states.setSwitch("motion", false)
	fireLockTimer(t, agent, zone.Name)

	if zone.Locked() {
		t.Error("stale cached presence must not extend the lock")
	}
}

func TestZoneLockDurationOverride(t *testing.T) {
	agent, zone, states, _, _ := setupAgent(t)
	zone.LockDurationSeconds = 5

	states.setLight("ceiling", true, 100)
	agent.ProcessDeviceChange("ceiling", nil)

	want := zone.LockStart().Add(5 * time.Second)
	if !zone.LockExpiration().Equal(want) {
		t.Errorf("expiration = %v, want %v", zone.LockExpiration(), want)
	}
}

// ─── Grace Timer ────────────────────────────────────────────────────────────

func TestPresenceLossSchedulesGrace(t *testing.T) {
	agent, zone, states, _, _ := setupAgent(t)

	states.setSwitch("motion", true)
	states.setLight("ceiling", true, 100)
	agent.ProcessDeviceChange("ceiling", nil)

	states.setSwitch("motion", false)
	agent.ProcessDeviceChange("motion", nil)

	if !agent.hasGraceTimer(zone.Name) {
		t.Error("presence loss on a locked zone should schedule the grace timer")
	}
	if !zone.Locked() {
		t.Error("zone must remain locked through the grace window")
	}
}

func TestPresenceReturnCancelsGrace(t *testing.T) {
	agent, zone, states, _, _ := setupAgent(t)

	states.setLight("ceiling", true, 100)
	agent.ProcessDeviceChange("ceiling", nil)

	states.setSwitch("motion", false)
	agent.ProcessDeviceChange("motion", nil)
	if !agent.hasGraceTimer(zone.Name) {
		t.Fatal("grace timer not scheduled")
	}

	states.setSwitch("motion", true)
	agent.ProcessDeviceChange("motion", nil)

	if agent.hasGraceTimer(zone.Name) {
		t.Error("presence return should cancel the grace timer")
	}
	if !zone.Locked() {
		t.Error("zone must stay locked after a cancelled grace window")
	}
}

func TestGraceExpiryUnlocksAfterHoldTime(t *testing.T) {
	agent, zone, states, _, _ := setupAgent(t)

	states.setLight("ceiling", true, 100)
	agent.ProcessDeviceChange("ceiling", nil)

	states.setSwitch("motion", false)
	agent.ProcessDeviceChange("motion", nil)

	// Fire with the lock older than the grace window.
	agent.now = func() time.Time { return zone.LockStart().Add(2 * time.Minute) }
	fireGraceTimer(t, agent, zone.Name)

	if zone.Locked() {
		t.Fatal("grace expiry with no presence should unlock the zone")
	}
	if agent.hasLockTimer(zone.Name) {
		t.Error("early unlock should cancel the expiry timer")
	}
}

func TestGraceExpiryKeepsYoungLock(t *testing.T) {
	agent, zone, states, _, _ := setupAgent(t)

	states.setLight("ceiling", true, 100)
	agent.ProcessDeviceChange("ceiling", nil)

	states.setSwitch("motion", false)
	agent.ProcessDeviceChange("motion", nil)

	// Lock held for less than the grace window at fire time.
	agent.now = func() time.Time { return zone.LockStart().Add(30 * time.Second) }
	fireGraceTimer(t, agent, zone.Name)

	if !zone.Locked() {
		t.Error("a lock younger than the grace window must survive grace expiry")
	}
}

func TestGraceExpiryRevalidatesPresence(t *testing.T) {
	agent, zone, states, _, _ := setupAgent(t)

	states.setLight("ceiling", true, 100)
	agent.ProcessDeviceChange("ceiling", nil)

	states.setSwitch("motion", false)
	agent.ProcessDeviceChange("motion", nil)

	// Presence returns without a device-change notification reaching the
	// agent before the timer fires.
	states.setSwitch("motion", true)
	agent.now = func() time.Time { return zone.LockStart().Add(2 * time.Minute) }
	fireGraceTimer(t, agent, zone.Name)

	if !zone.Locked() {
		t.Error("presence at fire time must keep the lock")
	}
}

func TestUnlockWhenNoPresenceDisabled(t *testing.T) {
	agent, zone, states, _, _ := setupAgent(t)
	zone.UnlockWhenNoPresence = false

	states.setLight("ceiling", true, 100)
	agent.ProcessDeviceChange("ceiling", nil)

	states.setSwitch("motion", false)
	agent.ProcessDeviceChange("motion", nil)

	if agent.hasGraceTimer(zone.Name) {
		t.Error("grace timer scheduled with unlock-when-no-presence off")
	}
}

// ─── Manual Unlock ──────────────────────────────────────────────────────────

func TestManualUnlock(t *testing.T) {
	agent, zone, states, _, _ := setupAgent(t)

	states.setLight("ceiling", true, 100)
	agent.ProcessDeviceChange("ceiling", nil)

	if err := agent.ManualUnlock(zone.Name); err != nil {
		t.Fatalf("ManualUnlock: %v", err)
	}
	if zone.Locked() {
		t.Error("zone still locked after manual unlock")
	}
	if agent.hasLockTimer(zone.Name) || agent.hasGraceTimer(zone.Name) {
		t.Error("manual unlock should cancel all timers")
	}
}

func TestManualUnlockUnknownZone(t *testing.T) {
	agent, _, _, _, _ := setupAgent(t)
	if err := agent.ManualUnlock("attic"); err != ErrZoneNotFound {
		t.Errorf("expected ErrZoneNotFound, got %v", err)
	}
}

// ─── Zone Processing ────────────────────────────────────────────────────────

func TestProcessZoneReturnsFalseWhileLocked(t *testing.T) {
	agent, zone, states, commander, _ := setupAgent(t)

	states.setLight("ceiling", true, 100)
	agent.ProcessDeviceChange("ceiling", nil)
	commander.reset()

	states.setSwitch("motion", false)
	if agent.ProcessZone(zone) {
		t.Error("ProcessZone on a locked zone should report false")
	}
	if len(commander.sent()) != 0 {
		t.Errorf("locked zone issued commands: %v", commander.sent())
	}
}

func TestProcessZoneGlobalLightsOff(t *testing.T) {
	agent, zone, states, commander, vars := setupAgent(t)
	agent.cfg.SomeoneHomeVariableID = "someone-home"
	vars.setBool("someone-home", false)

	states.setSwitch("motion", true)
	states.setLight("ceiling", true, 100)

	agent.ProcessZone(zone)

	sent := commander.sent()
	if len(sent) != 1 || sent[0].Target.On {
		t.Errorf("expected one off-command with nobody home, got %v", sent)
	}
}

func TestProcessZoneGuestModeOverridesGlobalOff(t *testing.T) {
	agent, zone, states, commander, vars := setupAgent(t)
	agent.cfg.SomeoneHomeVariableID = "someone-home"
	agent.cfg.GuestModeVariableID = "guest-mode"
	vars.setBool("someone-home", false)
	vars.setBool("guest-mode", true)

	states.setSwitch("motion", true)
	states.setLight("ceiling", true, 100)

	agent.ProcessZone(zone)
	if len(commander.sent()) != 0 {
		t.Errorf("guest mode must suppress global lights-off, got %v", commander.sent())
	}
}

func TestProcessZoneSleepShutoff(t *testing.T) {
	agent, zone, states, commander, vars := setupAgent(t)
	agent.cfg.GoneToBedVariableID = "asleep"
	vars.setBool("asleep", true)
	zone.TurnOffWhileSleeping = true

	states.setSwitch("motion", true)
	states.setLight("ceiling", true, 100)

	agent.ProcessZone(zone)

	sent := commander.sent()
	if len(sent) != 1 || sent[0].Target.On {
		t.Errorf("expected sleep shutoff command, got %v", sent)
	}
}

func TestProcessZoneDisabledByVariable(t *testing.T) {
	agent, zone, states, commander, vars := setupAgent(t)
	agent.cfg.EnabledVariableID = "auto-lights-enabled"
	vars.setBool("auto-lights-enabled", false)

	states.setSwitch("motion", true)
	if agent.ProcessZone(zone) {
		t.Error("globally disabled automation should report false")
	}
	if len(commander.sent()) != 0 {
		t.Error("disabled automation issued commands")
	}
}

// ─── Variable Changes ───────────────────────────────────────────────────────

func TestProcessVariableChangeLuminanceThreshold(t *testing.T) {
	agent, zone, states, commander, vars := setupAgent(t)
	zone.AdjustBrightness = true
	zone.MinimumLuminanceUseVariable = true
	zone.MinimumLuminanceVariableID = "lux-threshold"
	zone.LuminanceDeviceIDs = []string{"lux"}

	states.setSwitch("motion", true)
	states.setSensor("lux", 300)
	vars.setFloat("lux-threshold", 100)

	// Threshold below the reading: room too bright, nothing happens.
	agent.ProcessVariableChange("lux-threshold")
	if len(commander.sent()) != 0 {
		t.Fatalf("bright room issued commands: %v", commander.sent())
	}

	// Threshold raised above the reading: light comes on.
	vars.setFloat("lux-threshold", 500)
	agent.ProcessVariableChange("lux-threshold")
	sent := commander.sent()
	if len(sent) != 1 || !sent[0].Target.On {
		t.Errorf("expected one on-command after threshold change, got %v", sent)
	}
}

// ─── Lock Event Recording ───────────────────────────────────────────────────

func TestLockEventsRecorded(t *testing.T) {
	agent, zone, states, _, _ := setupAgent(t)

	telemetry := &mockTelemetry{}
	audit := &mockLockEvents{}
	agent.SetTelemetry(telemetry)
	agent.SetLockEventRecorder(audit)

	states.setLight("ceiling", true, 100)
	agent.ProcessDeviceChange("ceiling", nil)

	states.setSwitch("motion", false)
	fireLockTimer(t, agent, zone.Name)

	wantSequence := []string{LockEventLocked, LockEventUnlocked}
	got := telemetry.events()
	if len(got) != len(wantSequence) {
		t.Fatalf("telemetry events = %v, want %v", got, wantSequence)
	}
	for i, want := range wantSequence {
		if got[i] != want {
			t.Errorf("event[%d] = %q, want %q", i, got[i], want)
		}
	}

	recorded := audit.all()
	if len(recorded) != 2 {
		t.Fatalf("expected 2 audited events, got %d", len(recorded))
	}
	if recorded[0].ZoneName != zone.Name || recorded[0].Event != LockEventLocked {
		t.Errorf("unexpected first audit record: %+v", recorded[0])
	}
	if recorded[0].DeviceID != "ceiling" {
		t.Errorf("lock record device = %q, want ceiling", recorded[0].DeviceID)
	}
}
