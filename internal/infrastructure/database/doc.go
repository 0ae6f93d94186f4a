// Package database manages the SQLite store behind Auto Lights Core.
//
// It owns the connection (WAL mode, busy timeout, single writer) and the
// embedded schema migrations that create the zones, lighting_periods,
// lock_events and state_history tables. The repositories in
// internal/lighting and internal/device run on the *sql.DB it exposes.
//
// Migrations are additive-only: new columns are nullable or carry a
// default, and every migration file has both an .up.sql and a .down.sql
// half so a release can be rolled back.
package database
