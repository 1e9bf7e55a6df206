// Package sqlite provides a unified SQLite-backed implementation of the
// persistence ports.
//
// # Architecture
//
// A single Store owns the database connection; each driven port is exposed
// through a lightweight wrapper type:
//
//   - SnapshotStore: Current entity state, with superseded versions archived
//   - ChangeStore: Detected change records
//   - AlertStore: Alert records and dedup reservations
//   - DigestStore: Generated digests
//   - RunStore: Ingestion cycle audit records
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql files.
//
// # Data Location
//
// By default, the database is stored at ~/.sitrep/data/state.db
//
// # Thread Safety
//
// All operations are thread-safe. The store uses database-level locking
// provided by SQLite in WAL mode; the alert reservation relies on the
// single-writer lock to stay atomic across processes.
package sqlite
