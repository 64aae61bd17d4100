package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/recall/internal/kv"
)

// Get returns the value at key. Expired values are reported as absent.
func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT value FROM kv_values
		WHERE key = ? AND (expires_at IS NULL OR expires_at > ?)
	`, key, s.now()).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, kv.Unavailable("get", err)
	}
	if value == nil {
		value = []byte{}
	}
	return value, true, nil
}

// LRange returns list elements between start and stop inclusive, in append
// order. Negative indexes count from the end, as in Redis.
//
// Returns an empty slice (not nil) if the list is missing or the range
// selects nothing.
func (s *Store) LRange(ctx context.Context, key string, start, stop int64) ([][]byte, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, kv.Unavailable("lrange: begin tx", err)
	}
	defer tx.Rollback()

	var n int64
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM kv_lists WHERE key = ?`, key).Scan(&n); err != nil {
		return nil, kv.Unavailable("lrange: count", err)
	}

	lo, hi, ok := kv.ListBounds(start, stop, n)
	if !ok {
		return [][]byte{}, nil
	}

	rows, err := tx.QueryContext(ctx, `
		SELECT value FROM kv_lists
		WHERE key = ?
		ORDER BY seq ASC
		LIMIT ? OFFSET ?
	`, key, hi-lo, lo)
	if err != nil {
		return nil, kv.Unavailable("lrange: query", err)
	}
	defer rows.Close()

	values := make([][]byte, 0, hi-lo)
	for rows.Next() {
		var value []byte
		if err := rows.Scan(&value); err != nil {
			return nil, fmt.Errorf("lrange: scan: %w", err)
		}
		if value == nil {
			value = []byte{}
		}
		values = append(values, value)
	}

	if err := rows.Err(); err != nil {
		return nil, kv.Unavailable("lrange: iterate", err)
	}

	return values, nil
}
