package kv

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrUnavailable reports that a backend call could not complete
// (connection refused, timeout, closed handle). It is never retried.
var ErrUnavailable = errors.New("backend unavailable")

// Backend is the capability set recall consumes from a key-value store.
// Implementations must be safe for concurrent use.
type Backend interface {
	// Incr atomically increments key and returns the new value.
	Incr(ctx context.Context, key string) (int64, error)

	// Get returns the value stored at key. found is false when the key is
	// absent or expired.
	Get(ctx context.Context, key string) (value []byte, found bool, err error)

	// Set stores value at key with no expiration.
	Set(ctx context.Context, key string, value []byte) error

	// SetEx stores value at key; the backend removes it after ttl.
	SetEx(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// RPush appends value to the list at key.
	RPush(ctx context.Context, key string, value []byte) error

	// LRange returns list elements between start and stop inclusive.
	// Negative indexes count from the end, -1 being the last element.
	LRange(ctx context.Context, key string, start, stop int64) ([][]byte, error)

	// FlushAll removes every key.
	FlushAll(ctx context.Context) error

	// Close releases the backend handle.
	Close() error
}

// Unavailable wraps err so that errors.Is(err, ErrUnavailable) holds.
// Context cancellation is preserved so callers can still match it.
func Unavailable(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", op, ErrUnavailable, err)
}

// IsUnavailable reports whether err came from a failed backend call.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrUnavailable)
}

// ListBounds resolves Redis-style LRange indexes against a list of length n.
// It returns the half-open interval [lo, hi) to slice, with ok=false when the
// range selects nothing.
func ListBounds(start, stop, n int64) (lo, hi int64, ok bool) {
	if start < 0 {
		start += n
	}
	if stop < 0 {
		stop += n
	}
	if start < 0 {
		start = 0
	}
	if stop >= n {
		stop = n - 1
	}
	if start > stop || start >= n {
		return 0, 0, false
	}
	return start, stop + 1, true
}
