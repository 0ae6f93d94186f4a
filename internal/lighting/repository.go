package lighting

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Repository defines the interface for lighting configuration and lock
// event persistence. The abstraction allows different implementations
// (SQLite, mock, etc.) and enables unit testing without a database.
type Repository interface {
	// Zone definitions
	ListZones(ctx context.Context) ([]StoredZone, error)
	GetZone(ctx context.Context, name string) (*StoredZone, error)
	SaveZone(ctx context.Context, zone StoredZone) error
	DeleteZone(ctx context.Context, name string) error

	// Lighting periods
	ListPeriods(ctx context.Context) ([]StoredPeriod, error)
	SavePeriod(ctx context.Context, period *StoredPeriod) error
	DeletePeriod(ctx context.Context, id string) error

	// Lock event history
	RecordLockEvent(ctx context.Context, ev LockEvent) error
	ListLockEvents(ctx context.Context, zoneName string, limit int) ([]LockEvent, error)
}

// SQLiteRepository implements Repository using SQLite. Zone and period
// definitions are stored as JSON documents keyed by name/id; lock events
// are append-only rows.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// LoadConfig reads all stored zones and periods and assembles the typed
// configuration graph. Convenience wrapper used at startup and on reload.
func LoadConfig(ctx context.Context, repo Repository, settings Settings) (*AutoLightsConfig, error) {
	zones, err := repo.ListZones(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading zones: %w", err)
	}
	periods, err := repo.ListPeriods(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading periods: %w", err)
	}
	return BuildConfig(settings, zones, periods)
}

// ─── Zones ──────────────────────────────────────────────────────────────────

// ListZones retrieves all zone definitions ordered by sort_order then name.
func (r *SQLiteRepository) ListZones(ctx context.Context) ([]StoredZone, error) {
	query := `SELECT definition FROM zones ORDER BY sort_order, name`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying zones: %w", err)
	}
	defer rows.Close()

	var zones []StoredZone
	for rows.Next() {
		var definition string
		if scanErr := rows.Scan(&definition); scanErr != nil {
			return nil, fmt.Errorf("scanning zone: %w", scanErr)
		}
		var z StoredZone
		if jsonErr := json.Unmarshal([]byte(definition), &z); jsonErr != nil {
			return nil, fmt.Errorf("unmarshalling zone definition: %w", jsonErr)
		}
		zones = append(zones, z)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating zones: %w", err)
	}
	return zones, nil
}

// GetZone retrieves a single zone definition by name.
func (r *SQLiteRepository) GetZone(ctx context.Context, name string) (*StoredZone, error) {
	query := `SELECT definition FROM zones WHERE name = ?`

	var definition string
	err := r.db.QueryRowContext(ctx, query, name).Scan(&definition)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrZoneNotFound
		}
		return nil, fmt.Errorf("querying zone: %w", err)
	}

	var z StoredZone
	if err := json.Unmarshal([]byte(definition), &z); err != nil {
		return nil, fmt.Errorf("unmarshalling zone definition: %w", err)
	}
	return &z, nil
}

// SaveZone inserts or replaces a zone definition. The definition is
// validated before it touches the database.
func (r *SQLiteRepository) SaveZone(ctx context.Context, zone StoredZone) error {
	if err := ValidateStoredZone(zone); err != nil {
		return err
	}

	definition, err := json.Marshal(zone)
	if err != nil {
		return fmt.Errorf("marshalling zone definition: %w", err)
	}

	now := time.Now().UTC().Format(time.RFC3339)
	query := `
		INSERT INTO zones (name, definition, sort_order, created_at, updated_at)
		VALUES (?, ?, COALESCE((SELECT sort_order FROM zones WHERE name = ?), 0), ?, ?)
		ON CONFLICT(name) DO UPDATE SET definition = excluded.definition, updated_at = excluded.updated_at`

	_, err = r.db.ExecContext(ctx, query, zone.Name, string(definition), zone.Name, now, now)
	if err != nil {
		return fmt.Errorf("saving zone: %w", err)
	}
	return nil
}

// DeleteZone removes a zone definition by name.
func (r *SQLiteRepository) DeleteZone(ctx context.Context, name string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM zones WHERE name = ?", name)
	if err != nil {
		return fmt.Errorf("deleting zone: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrZoneNotFound
	}
	return nil
}

// ─── Lighting Periods ───────────────────────────────────────────────────────

// ListPeriods retrieves all period definitions ordered by sort_order then
// name.
func (r *SQLiteRepository) ListPeriods(ctx context.Context) ([]StoredPeriod, error) {
	query := `SELECT definition FROM lighting_periods ORDER BY sort_order, name`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying periods: %w", err)
	}
	defer rows.Close()

	var periods []StoredPeriod
	for rows.Next() {
		var definition string
		if scanErr := rows.Scan(&definition); scanErr != nil {
			return nil, fmt.Errorf("scanning period: %w", scanErr)
		}
		var p StoredPeriod
		if jsonErr := json.Unmarshal([]byte(definition), &p); jsonErr != nil {
			return nil, fmt.Errorf("unmarshalling period definition: %w", jsonErr)
		}
		periods = append(periods, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating periods: %w", err)
	}
	return periods, nil
}

// SavePeriod inserts or replaces a period definition, assigning an ID when
// the period does not have one yet. The stored form must parse cleanly.
func (r *SQLiteRepository) SavePeriod(ctx context.Context, period *StoredPeriod) error {
	if period.ID == "" {
		period.ID = uuid.NewString()
	}
	if _, err := PeriodFromStored(*period); err != nil {
		return err
	}

	definition, err := json.Marshal(period)
	if err != nil {
		return fmt.Errorf("marshalling period definition: %w", err)
	}

	now := time.Now().UTC().Format(time.RFC3339)
	query := `
		INSERT INTO lighting_periods (id, name, definition, sort_order, created_at, updated_at)
		VALUES (?, ?, ?, COALESCE((SELECT sort_order FROM lighting_periods WHERE id = ?), 0), ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name, definition = excluded.definition, updated_at = excluded.updated_at`

	_, err = r.db.ExecContext(ctx, query, period.ID, period.Name, string(definition), period.ID, now, now)
	if err != nil {
		return fmt.Errorf("saving period: %w", err)
	}
	return nil
}

// DeletePeriod removes a period definition by ID.
func (r *SQLiteRepository) DeletePeriod(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM lighting_periods WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting period: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrPeriodNotFound
	}
	return nil
}

// ─── Lock Events ────────────────────────────────────────────────────────────

// RecordLockEvent appends a lock lifecycle event to the history.
func (r *SQLiteRepository) RecordLockEvent(ctx context.Context, ev LockEvent) error {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO lock_events (id, zone_name, event, reason, device_id, expiration, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		ev.ID,
		ev.ZoneName,
		ev.Event,
		nullableText(ev.Reason),
		nullableText(ev.DeviceID),
		nullableTimestamp(ev.Expiration),
		ev.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting lock event: %w", err)
	}
	return nil
}

// ListLockEvents retrieves recent lock events, newest first. An empty
// zoneName returns events for all zones.
func (r *SQLiteRepository) ListLockEvents(ctx context.Context, zoneName string, limit int) ([]LockEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 500 {
		limit = 500
	}

	query := `
		SELECT id, zone_name, event, reason, device_id, expiration, created_at
		FROM lock_events`
	args := []any{}
	if zoneName != "" {
		query += ` WHERE zone_name = ?`
		args = append(args, zoneName)
	}
	query += ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying lock events: %w", err)
	}
	defer rows.Close()

	var events []LockEvent
	for rows.Next() {
		ev, scanErr := scanLockEvent(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("scanning lock event: %w", scanErr)
		}
		events = append(events, *ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating lock events: %w", err)
	}
	return events, nil
}

func scanLockEvent(rows *sql.Rows) (*LockEvent, error) {
	var ev LockEvent
	var reason, deviceID, expiration sql.NullString
	var createdAt string

	err := rows.Scan(
		&ev.ID,
		&ev.ZoneName,
		&ev.Event,
		&reason,
		&deviceID,
		&expiration,
		&createdAt,
	)
	if err != nil {
		return nil, err
	}

	if reason.Valid {
		ev.Reason = reason.String
	}
	if deviceID.Valid {
		ev.DeviceID = deviceID.String
	}
	if expiration.Valid {
		if t, parseErr := time.Parse(time.RFC3339, expiration.String); parseErr == nil {
			ev.Expiration = t
		}
	}
	if t, parseErr := time.Parse(time.RFC3339, createdAt); parseErr == nil {
		ev.CreatedAt = t
	}
	return &ev, nil
}

// ─── SQL Helpers ────────────────────────────────────────────────────────────

func nullableText(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullableTimestamp(t time.Time) sql.NullString {
	if t.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: t.Format(time.RFC3339), Valid: true}
}
