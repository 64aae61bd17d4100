package testutil

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/jonboulle/clockwork"

	"github.com/roach88/recall/internal/kv"
	"github.com/roach88/recall/internal/redisstore"
	"github.com/roach88/recall/internal/store"
)

// Backend is a kv.Backend under test plus a way to move its TTL clock.
type Backend struct {
	Name string
	kv.Backend

	// Advance moves backend time forward so TTLs can elapse without sleeping.
	Advance func(d time.Duration)

	// Kill makes every subsequent backend call fail as unreachable.
	Kill func()
}

// NewRedis starts an in-process Redis server and connects a redisstore to it.
func NewRedis(t *testing.T) *Backend {
	t.Helper()
	mr := miniredis.RunT(t)

	s, err := redisstore.Open(context.Background(), redisstore.Options{
		Addr:        mr.Addr(),
		DialTimeout: time.Second,
	})
	if err != nil {
		t.Fatalf("redisstore.Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	return &Backend{
		Name:    "redis",
		Backend: s,
		Advance: mr.FastForward,
		Kill:    mr.Close,
	}
}

// NewSQLite opens a store in a temp directory driven by a fake clock.
func NewSQLite(t *testing.T) *Backend {
	t.Helper()
	clock := clockwork.NewFakeClock()

	s, err := store.Open(filepath.Join(t.TempDir(), "recall.db"), store.WithClock(clock))
	if err != nil {
		t.Fatalf("store.Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	return &Backend{
		Name:    "sqlite",
		Backend: s,
		Advance: clock.Advance,
		Kill:    func() { s.Close() },
	}
}

// EachBackend runs fn as a subtest against every backend.
func EachBackend(t *testing.T, fn func(t *testing.T, b *Backend)) {
	t.Helper()
	for _, name := range []string{"redis", "sqlite"} {
		t.Run(name, func(t *testing.T) {
			var b *Backend
			if name == "redis" {
				b = NewRedis(t)
			} else {
				b = NewSQLite(t)
			}
			fn(t, b)
		})
	}
}
