// Package store provides durable storage for SID engine sessions.
//
// SQLite with WAL mode backs three append-only logs: diagram snapshots
// in the wire-JSON shape, per-step metrics, and a rewrite audit trail.
// Rows are keyed by (engine_id, seq) where seq comes from the engine's
// logical clock, so ordering by seq replays a session deterministically.
//
// SQLite only supports one writer at a time; the connection pool is
// capped at a single connection to avoid SQLITE_BUSY errors.
package store
