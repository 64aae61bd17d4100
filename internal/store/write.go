package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/roach88/recall/internal/kv"
)

// ErrNotInteger is returned by Incr when the stored value is not a decimal integer.
var ErrNotInteger = errors.New("value is not an integer")

// Incr atomically increments the integer at key, creating it at 0 if absent.
// An existing expiration is preserved, matching Redis INCR.
func (s *Store) Incr(ctx context.Context, key string) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, kv.Unavailable("incr: begin tx", err)
	}
	defer tx.Rollback() // No-op if committed

	now := s.now()

	var raw []byte
	var expiresAt sql.NullInt64
	err = tx.QueryRowContext(ctx, `
		SELECT value, expires_at FROM kv_values
		WHERE key = ? AND (expires_at IS NULL OR expires_at > ?)
	`, key, now).Scan(&raw, &expiresAt)

	var current int64
	switch {
	case errors.Is(err, sql.ErrNoRows):
		expiresAt = sql.NullInt64{}
	case err != nil:
		return 0, kv.Unavailable("incr: select", err)
	default:
		current, err = strconv.ParseInt(string(raw), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("incr %q: %w", key, ErrNotInteger)
		}
	}

	next := current + 1
	_, err = tx.ExecContext(ctx, `
		INSERT INTO kv_values (key, value, expires_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, expires_at = excluded.expires_at
	`, key, []byte(strconv.FormatInt(next, 10)), expiresAt)
	if err != nil {
		return 0, kv.Unavailable("incr: upsert", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, kv.Unavailable("incr: commit", err)
	}

	return next, nil
}

// Set stores value at key with no expiration, replacing any previous value.
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	return s.put(ctx, "set", key, value, sql.NullInt64{})
}

// SetEx stores value at key; reads stop seeing it once ttl has elapsed.
func (s *Store) SetEx(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("setex %q: invalid expire time %s", key, ttl)
	}
	expiresAt := sql.NullInt64{Int64: s.clock.Now().Add(ttl).UnixNano(), Valid: true}
	return s.put(ctx, "setex", key, value, expiresAt)
}

func (s *Store) put(ctx context.Context, op, key string, value []byte, expiresAt sql.NullInt64) error {
	if value == nil {
		value = []byte{}
	}

	if err := s.purgeExpired(ctx); err != nil {
		return kv.Unavailable(op, err)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO kv_values (key, value, expires_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, expires_at = excluded.expires_at
	`, key, value, expiresAt)
	if err != nil {
		return kv.Unavailable(op, err)
	}
	return nil
}

// RPush appends value to the list at key.
// The single-statement insert keeps seq allocation atomic.
func (s *Store) RPush(ctx context.Context, key string, value []byte) error {
	if value == nil {
		value = []byte{}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO kv_lists (key, seq, value)
		VALUES (?, COALESCE((SELECT MAX(seq) FROM kv_lists WHERE key = ?), 0) + 1, ?)
	`, key, key, value)
	if err != nil {
		return kv.Unavailable("rpush", err)
	}
	return nil
}

// FlushAll removes every value and list.
func (s *Store) FlushAll(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return kv.Unavailable("flushall: begin tx", err)
	}
	defer tx.Rollback()

	for _, stmt := range []string{"DELETE FROM kv_values", "DELETE FROM kv_lists"} {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return kv.Unavailable("flushall", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return kv.Unavailable("flushall: commit", err)
	}
	return nil
}

// purgeExpired deletes values whose expiration has passed.
func (s *Store) purgeExpired(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM kv_values
		WHERE expires_at IS NOT NULL AND expires_at <= ?
	`, s.now())
	if err != nil {
		return fmt.Errorf("purge expired: %w", err)
	}
	return nil
}
