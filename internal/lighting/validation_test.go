package lighting

import (
	"errors"
	"testing"
	"time"
)

func boolPtr(v bool) *bool       { return &v }
func floatPtr(v float64) *float64 { return &v }

func testSettings() Settings {
	return Settings{
		Enabled:              true,
		DefaultLockDuration:  15 * time.Minute,
		DefaultLockExtension: 5 * time.Minute,
		DefaultBrightness:    100,
		GracePeriod:          90 * time.Second,
	}
}

// ─── Stored Zone Validation ─────────────────────────────────────────────────

func TestValidateStoredZone(t *testing.T) {
	if err := ValidateStoredZone(StoredZone{Name: "lounge"}); err != nil {
		t.Errorf("minimal zone rejected: %v", err)
	}

	tests := []struct {
		name string
		zone StoredZone
	}{
		{"empty name", StoredZone{}},
		{"bad aggregation", StoredZone{Name: "z", LuminanceAggregation: "median"}},
		{"bad off behaviour", StoredZone{Name: "z", OffLightsBehavior: "dim"}},
	}

	for _, tt := range tests {
		if err := ValidateStoredZone(tt.zone); !errors.Is(err, ErrInvalidZone) {
			t.Errorf("%s: expected ErrInvalidZone, got %v", tt.name, err)
		}
	}
}

// ─── Stored Zone Normalisation ──────────────────────────────────────────────

func TestZoneFromStoredDefaults(t *testing.T) {
	z, err := ZoneFromStored(StoredZone{Name: "lounge"}, testConfig())
	if err != nil {
		t.Fatalf("ZoneFromStored: %v", err)
	}

	if !z.Enabled {
		t.Error("zones default to enabled")
	}
	if !z.ExtendLockWhenActive || !z.UnlockWhenNoPresence {
		t.Error("lock behaviours default to on")
	}
	if z.LockDurationSeconds != UseDefault || z.LockExtensionSeconds != UseDefault {
		t.Error("absent durations should normalise to UseDefault")
	}
	if z.MinimumLuminance != defaultMinLuminance {
		t.Errorf("minimum luminance = %v, want %v", z.MinimumLuminance, float64(defaultMinLuminance))
	}
	if z.OffLightsBehavior != OffBehaviorForceOff {
		t.Errorf("off behaviour = %q, want force_off", z.OffLightsBehavior)
	}
	if z.LuminanceAggregation != AggregationAverage {
		t.Errorf("aggregation = %q, want average", z.LuminanceAggregation)
	}

	// Null device lists come back as empty slices.
	for name, list := range map[string][]string{
		"presence":  z.PresenceDeviceIDs,
		"on-lights": z.OnLightDeviceIDs,
		"exclude":   z.ExcludeFromLockDeviceIDs(),
	} {
		if list == nil {
			t.Errorf("%s list is nil", name)
		}
	}
}

func TestZoneFromStoredExplicitValues(t *testing.T) {
	stored := StoredZone{
		Name:                 "hall",
		Enabled:              boolPtr(false),
		OnLightDeviceIDs:     []string{"pendant"},
		MinimumLuminance:     floatPtr(250),
		LuminanceAggregation: string(AggregationMax),
		LockDurationSeconds:  intPtr(30),
		ExtendLockWhenActive: boolPtr(false),
		UnlockWhenNoPresence: boolPtr(false),
		OffLightsBehavior:    string(OffBehaviorLeave),
	}

	z, err := ZoneFromStored(stored, testConfig())
	if err != nil {
		t.Fatalf("ZoneFromStored: %v", err)
	}

	if z.Enabled {
		t.Error("explicit enabled=false lost")
	}
	if z.MinimumLuminance != 250 {
		t.Errorf("minimum luminance = %v, want 250", z.MinimumLuminance)
	}
	if z.LuminanceAggregation != AggregationMax {
		t.Errorf("aggregation = %q, want max", z.LuminanceAggregation)
	}
	if z.LockDurationSeconds != 30 {
		t.Errorf("lock duration = %d, want 30", z.LockDurationSeconds)
	}
	if z.ExtendLockWhenActive || z.UnlockWhenNoPresence {
		t.Error("explicit false lock behaviours lost")
	}
	if z.OffLightsBehavior != OffBehaviorLeave {
		t.Errorf("off behaviour = %q, want leave", z.OffLightsBehavior)
	}
}

// ─── Config Assembly ────────────────────────────────────────────────────────

func TestBuildConfig(t *testing.T) {
	zones := []StoredZone{
		{Name: "lounge", PeriodIDs: []string{"day", "night"}},
		{Name: "hall"},
	}
	periods := []StoredPeriod{
		{ID: "day", Name: "Day", Mode: "on_and_off"},
		{ID: "night", Name: "Night", Mode: "off", FromHour: intPtr(22), ToHour: intPtr(6), ToMinute: intPtr(0)},
	}

	cfg, err := BuildConfig(testSettings(), zones, periods)
	if err != nil {
		t.Fatalf("BuildConfig: %v", err)
	}

	if len(cfg.Zones) != 2 || len(cfg.Periods) != 2 {
		t.Fatalf("zones=%d periods=%d, want 2/2", len(cfg.Zones), len(cfg.Periods))
	}

	lounge, err := cfg.ZoneByName("lounge")
	if err != nil {
		t.Fatalf("ZoneByName: %v", err)
	}
	if len(lounge.Periods) != 2 {
		t.Fatalf("lounge periods = %d, want 2", len(lounge.Periods))
	}
	if lounge.Periods[0].ID != "day" || lounge.Periods[1].ID != "night" {
		t.Errorf("period order not preserved: %s, %s", lounge.Periods[0].ID, lounge.Periods[1].ID)
	}
	if lounge.Locked() {
		t.Error("zones must start unlocked")
	}

	if _, err := cfg.PeriodByID("day"); err != nil {
		t.Errorf("PeriodByID(day): %v", err)
	}
	if _, err := cfg.PeriodByID("dawn"); !errors.Is(err, ErrPeriodNotFound) {
		t.Errorf("expected ErrPeriodNotFound, got %v", err)
	}
}

func TestBuildConfigUnknownPeriodReference(t *testing.T) {
	zones := []StoredZone{{Name: "lounge", PeriodIDs: []string{"missing"}}}

	_, err := BuildConfig(testSettings(), zones, nil)
	if !errors.Is(err, ErrPeriodNotFound) {
		t.Errorf("expected ErrPeriodNotFound, got %v", err)
	}
}

func TestBuildConfigDuplicateZoneName(t *testing.T) {
	zones := []StoredZone{{Name: "lounge"}, {Name: "lounge"}}

	_, err := BuildConfig(testSettings(), zones, nil)
	if !errors.Is(err, ErrZoneExists) {
		t.Errorf("expected ErrZoneExists, got %v", err)
	}
}

func TestBuildConfigDuplicatePeriodID(t *testing.T) {
	periods := []StoredPeriod{
		{ID: "day", Name: "Day", Mode: "on"},
		{ID: "day", Name: "Day Again", Mode: "off"},
	}

	_, err := BuildConfig(testSettings(), nil, periods)
	if !errors.Is(err, ErrInvalidPeriod) {
		t.Errorf("expected ErrInvalidPeriod, got %v", err)
	}
}
