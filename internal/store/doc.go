// Package store provides an SQLite-backed implementation of kv.Backend.
//
// It lets recall run without a Redis server while keeping the same
// contract: the backend, not the caller, owns expiration and atomicity.
//
// # Tables
//
//   - kv_values: scalar values with an optional expires_at (unix nanos)
//   - kv_lists: append-only lists ordered by a per-key seq
//
// # Expiration
//
// Rows whose expires_at is in the past are invisible to every read and are
// purged on the next write. Time comes from an injectable clockwork.Clock so
// tests can advance it deterministically.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - Single open connection: every statement is serialized, which gives
//     INCR and RPUSH the same atomicity Redis provides
package store
