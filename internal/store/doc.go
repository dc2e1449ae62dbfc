// Package store provides SQLite-backed durable storage for finished runs.
//
// The store is an append-only log with:
//   - Runs: one row per scheduler run, including the scenario source so the
//     run can be re-executed
//   - Events: the run's trace, one row per event, with its content hash
//
// Queue state is never persisted. A run is reproduced by replaying its
// scenario from the start and comparing the new trace with the stored one.
//
// # Critical Patterns
//
// Idempotent writes
//   - PRIMARY KEY(run_id, seq) with ON CONFLICT DO NOTHING
//   - Writing the same event twice is a no-op
//
// Logical ordering
//   - Events are read ORDER BY seq ASC, never by wall-clock time
//   - Times are stored in simtime's canonical string form so they round-trip
//     exactly
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
