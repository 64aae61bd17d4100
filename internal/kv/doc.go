// Package kv defines the key-value capability set consumed by recall.
//
// The backend is an external collaborator: recall never reimplements storage,
// expiration or atomicity. It only composes these calls:
//
//   - Incr: atomic increment, creating the key at 0 if absent
//   - Get / Set / SetEx: scalar values, SetEx with server-side TTL
//   - RPush / LRange: append-only ordered lists
//   - FlushAll: clear every key (fresh demo/test state)
//
// Two implementations exist: internal/redisstore (Redis) and internal/store
// (embedded SQLite). Both report transport failures wrapped in
// ErrUnavailable so callers can test with errors.Is regardless of backend.
//
// # Missing keys
//
// Reads of keys that were never written are not errors: Get reports
// found=false, LRange returns an empty slice, and Incr starts from zero.
package kv
