// Package store provides SQLite-backed durable storage for rewrite runs.
//
// The store is an append-only run log:
//   - Runs: one row per evaluation with the program, its options and outcome
//   - Steps: every applied rewrite of a run, keyed by (run_id, seq)
//
// # Conventions
//
// Logical ordering:
//   - Steps are ordered by seq (the engine's step clock), NEVER timestamps
//   - Runs are ordered by their UUIDv7 id, which sorts by creation
//
// Idempotent writes:
//   - Inserts use ON CONFLICT DO NOTHING so a retried write is harmless
//
// Exact integers:
//   - Accumulators are stored as decimal TEXT and parsed back into *big.Int
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
