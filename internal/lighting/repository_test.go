package lighting_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/nerrad567/auto-lights-core/internal/lighting"
)

// openTestRepo creates an in-memory SQLite database with the lighting
// schema and returns a repository over it.
func openTestRepo(t *testing.T) *lighting.SQLiteRepository {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("opening in-memory database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	schema := `
		CREATE TABLE zones (
			name        TEXT PRIMARY KEY,
			definition  TEXT NOT NULL,
			sort_order  INTEGER NOT NULL DEFAULT 0,
			created_at  TEXT NOT NULL,
			updated_at  TEXT NOT NULL
		);
		CREATE TABLE lighting_periods (
			id          TEXT PRIMARY KEY,
			name        TEXT NOT NULL,
			definition  TEXT NOT NULL,
			sort_order  INTEGER NOT NULL DEFAULT 0,
			created_at  TEXT NOT NULL,
			updated_at  TEXT NOT NULL
		);
		CREATE TABLE lock_events (
			id          TEXT PRIMARY KEY,
			zone_name   TEXT NOT NULL,
			event       TEXT NOT NULL,
			reason      TEXT,
			device_id   TEXT,
			expiration  TEXT,
			created_at  TEXT NOT NULL
		);`
	if _, err := db.Exec(schema); err != nil {
		t.Fatalf("creating schema: %v", err)
	}

	return lighting.NewSQLiteRepository(db)
}

// ─── Zone Persistence Tests ─────────────────────────────────────────────────

func TestSaveAndGetZone(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()

	zone := lighting.StoredZone{
		Name:              "lounge",
		PresenceDeviceIDs: []string{"pir-lounge"},
		OnLightDeviceIDs:  []string{"light-lounge-main", "light-lounge-lamp"},
	}
	if err := repo.SaveZone(ctx, zone); err != nil {
		t.Fatalf("SaveZone() error = %v", err)
	}

	got, err := repo.GetZone(ctx, "lounge")
	if err != nil {
		t.Fatalf("GetZone() error = %v", err)
	}
	if got.Name != "lounge" {
		t.Errorf("Name = %q, want lounge", got.Name)
	}
	if len(got.OnLightDeviceIDs) != 2 {
		t.Errorf("OnLightDeviceIDs = %v, want 2 entries", got.OnLightDeviceIDs)
	}
}

func TestSaveZone_Upsert(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()

	zone := lighting.StoredZone{Name: "hall"}
	if err := repo.SaveZone(ctx, zone); err != nil {
		t.Fatalf("SaveZone() error = %v", err)
	}

	zone.OnLightDeviceIDs = []string{"light-hall"}
	if err := repo.SaveZone(ctx, zone); err != nil {
		t.Fatalf("SaveZone() second save error = %v", err)
	}

	zones, err := repo.ListZones(ctx)
	if err != nil {
		t.Fatalf("ListZones() error = %v", err)
	}
	if len(zones) != 1 {
		t.Fatalf("ListZones() = %d zones, want 1", len(zones))
	}
	if len(zones[0].OnLightDeviceIDs) != 1 {
		t.Errorf("updated definition not persisted: %v", zones[0].OnLightDeviceIDs)
	}
}

func TestSaveZone_Invalid(t *testing.T) {
	repo := openTestRepo(t)

	err := repo.SaveZone(context.Background(), lighting.StoredZone{})
	if !errors.Is(err, lighting.ErrInvalidZone) {
		t.Errorf("SaveZone() error = %v, want ErrInvalidZone", err)
	}
}

func TestGetZone_NotFound(t *testing.T) {
	repo := openTestRepo(t)

	_, err := repo.GetZone(context.Background(), "attic")
	if !errors.Is(err, lighting.ErrZoneNotFound) {
		t.Errorf("GetZone() error = %v, want ErrZoneNotFound", err)
	}
}

func TestDeleteZone(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()

	if err := repo.SaveZone(ctx, lighting.StoredZone{Name: "porch"}); err != nil {
		t.Fatalf("SaveZone() error = %v", err)
	}
	if err := repo.DeleteZone(ctx, "porch"); err != nil {
		t.Fatalf("DeleteZone() error = %v", err)
	}
	if _, err := repo.GetZone(ctx, "porch"); !errors.Is(err, lighting.ErrZoneNotFound) {
		t.Errorf("GetZone() after delete error = %v, want ErrZoneNotFound", err)
	}
}

func TestDeleteZone_NotFound(t *testing.T) {
	repo := openTestRepo(t)

	err := repo.DeleteZone(context.Background(), "attic")
	if !errors.Is(err, lighting.ErrZoneNotFound) {
		t.Errorf("DeleteZone() error = %v, want ErrZoneNotFound", err)
	}
}

// ─── Period Persistence Tests ───────────────────────────────────────────────

func TestSavePeriod_AssignsID(t *testing.T) {
	repo := openTestRepo(t)

	period := &lighting.StoredPeriod{Name: "Evening", Mode: "on_and_off"}
	if err := repo.SavePeriod(context.Background(), period); err != nil {
		t.Fatalf("SavePeriod() error = %v", err)
	}
	if period.ID == "" {
		t.Error("SavePeriod() did not assign an ID")
	}
}

func TestSavePeriod_InvalidMode(t *testing.T) {
	repo := openTestRepo(t)

	period := &lighting.StoredPeriod{Name: "Broken", Mode: "strobe"}
	err := repo.SavePeriod(context.Background(), period)
	if !errors.Is(err, lighting.ErrInvalidMode) {
		t.Errorf("SavePeriod() error = %v, want ErrInvalidMode", err)
	}
}

func TestListPeriods(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()

	for _, name := range []string{"Morning", "Evening"} {
		if err := repo.SavePeriod(ctx, &lighting.StoredPeriod{Name: name, Mode: "on"}); err != nil {
			t.Fatalf("SavePeriod(%s) error = %v", name, err)
		}
	}

	periods, err := repo.ListPeriods(ctx)
	if err != nil {
		t.Fatalf("ListPeriods() error = %v", err)
	}
	if len(periods) != 2 {
		t.Errorf("ListPeriods() = %d periods, want 2", len(periods))
	}
}

func TestDeletePeriod_NotFound(t *testing.T) {
	repo := openTestRepo(t)

	err := repo.DeletePeriod(context.Background(), "missing-id")
	if !errors.Is(err, lighting.ErrPeriodNotFound) {
		t.Errorf("DeletePeriod() error = %v, want ErrPeriodNotFound", err)
	}
}

// ─── Lock Event Tests ───────────────────────────────────────────────────────

func TestRecordAndListLockEvents(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()

	base := time.Date(2026, 1, 20, 18, 0, 0, 0, time.UTC)
	events := []lighting.LockEvent{
		{ZoneName: "lounge", Event: "locked", Reason: "manual device change", DeviceID: "light-lounge-main", CreatedAt: base},
		{ZoneName: "lounge", Event: "unlocked", Reason: "lock expired", CreatedAt: base.Add(10 * time.Minute)},
		{ZoneName: "hall", Event: "locked", Reason: "manual device change", DeviceID: "light-hall", CreatedAt: base.Add(5 * time.Minute)},
	}
	for i := range events {
		if err := repo.RecordLockEvent(ctx, events[i]); err != nil {
			t.Fatalf("RecordLockEvent() error = %v", err)
		}
	}

	all, err := repo.ListLockEvents(ctx, "", 50)
	if err != nil {
		t.Fatalf("ListLockEvents() error = %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("ListLockEvents() = %d events, want 3", len(all))
	}
	// Newest first.
	if all[0].Event != "unlocked" {
		t.Errorf("first event = %q, want unlocked (newest)", all[0].Event)
	}

	lounge, err := repo.ListLockEvents(ctx, "lounge", 50)
	if err != nil {
		t.Fatalf("ListLockEvents(lounge) error = %v", err)
	}
	if len(lounge) != 2 {
		t.Errorf("ListLockEvents(lounge) = %d events, want 2", len(lounge))
	}
	for _, ev := range lounge {
		if ev.ZoneName != "lounge" {
			t.Errorf("zone filter leaked event for %q", ev.ZoneName)
		}
	}
}

func TestListLockEvents_Limit(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()

	base := time.Date(2026, 1, 20, 18, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		ev := lighting.LockEvent{
			ZoneName:  "lounge",
			Event:     "locked",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		if err := repo.RecordLockEvent(ctx, ev); err != nil {
			t.Fatalf("RecordLockEvent() error = %v", err)
		}
	}

	events, err := repo.ListLockEvents(ctx, "lounge", 2)
	if err != nil {
		t.Fatalf("ListLockEvents() error = %v", err)
	}
	if len(events) != 2 {
		t.Errorf("ListLockEvents() = %d events, want 2", len(events))
	}
}

func TestRecordLockEvent_AssignsDefaults(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()

	ev := lighting.LockEvent{ZoneName: "lounge", Event: "locked"}
	if err := repo.RecordLockEvent(ctx, ev); err != nil {
		t.Fatalf("RecordLockEvent() error = %v", err)
	}

	stored, err := repo.ListLockEvents(ctx, "lounge", 1)
	if err != nil {
		t.Fatalf("ListLockEvents() error = %v", err)
	}
	if len(stored) != 1 {
		t.Fatalf("ListLockEvents() = %d events, want 1", len(stored))
	}
	if stored[0].ID == "" {
		t.Error("stored event missing generated ID")
	}
	if stored[0].CreatedAt.IsZero() {
		t.Error("stored event missing created_at")
	}
}

// ─── LoadConfig Tests ───────────────────────────────────────────────────────

func TestLoadConfig(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()

	period := &lighting.StoredPeriod{Name: "All Day", Mode: "on_and_off"}
	if err := repo.SavePeriod(ctx, period); err != nil {
		t.Fatalf("SavePeriod() error = %v", err)
	}
	zone := lighting.StoredZone{
		Name:      "lounge",
		PeriodIDs: []string{period.ID},
	}
	if err := repo.SaveZone(ctx, zone); err != nil {
		t.Fatalf("SaveZone() error = %v", err)
	}

	cfg, err := lighting.LoadConfig(ctx, repo, lighting.Settings{
		Enabled:             true,
		DefaultLockDuration: 5 * time.Minute,
		DefaultBrightness:   80,
	})
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if len(cfg.Zones) != 1 {
		t.Fatalf("LoadConfig() zones = %d, want 1", len(cfg.Zones))
	}
	if len(cfg.Zones[0].Periods) != 1 {
		t.Errorf("zone periods = %d, want 1", len(cfg.Zones[0].Periods))
	}
	if cfg.Zones[0].Periods[0].ID != period.ID {
		t.Errorf("zone period ID = %q, want %q", cfg.Zones[0].Periods[0].ID, period.ID)
	}
}
