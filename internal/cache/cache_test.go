package cache

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"math"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/recall/internal/kv"
	"github.com/roach88/recall/internal/recorder"
	"github.com/roach88/recall/internal/testutil"
)

func newTestCache(t *testing.T, b kv.Backend, opts ...Option) *Cache {
	t.Helper()
	opts = append([]Option{
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithKeyGenerator(testutil.NewSequentialKeys("")),
	}, opts...)
	c, err := New(context.Background(), b, opts...)
	require.NoError(t, err)
	return c
}

func TestCache_RoundTrip(t *testing.T) {
	testutil.EachBackend(t, func(t *testing.T, b *testutil.Backend) {
		ctx := context.Background()
		c := newTestCache(t, b)

		k1, err := c.Store(ctx, "bar")
		require.NoError(t, err)
		k2, err := c.Store(ctx, 123)
		require.NoError(t, err)
		assert.NotEqual(t, k1, k2)

		s, found, err := c.GetStr(ctx, k1)
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, "bar", s)

		n, found, err := c.GetInt(ctx, k2)
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, int64(123), n)

		v, found, err := c.Get(ctx, "nonexistent_key", nil)
		require.NoError(t, err)
		assert.False(t, found)
		assert.Nil(t, v)
	})
}

func TestCache_StoreTypes(t *testing.T) {
	tests := []struct {
		name string
		data any
		want string
	}{
		{"string", "foo", "foo"},
		{"bytes", []byte{0xff, 0x00}, "\xff\x00"},
		{"int", 42, "42"},
		{"negative int64", int64(-7), "-7"},
		{"uint8", uint8(200), "200"},
		{"float", 3.5, "3.5"},
		{"whole float", 3.0, "3.0"},
		{"large float", 1e21, "1e+21"},
		{"float32", float32(0.25), "0.25"},
		{"max int64 as uint64", uint64(math.MaxInt64), "9223372036854775807"},
		{"empty string", "", ""},
	}

	b := testutil.NewRedis(t)
	c := newTestCache(t, b)
	ctx := context.Background()

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, err := c.Store(ctx, tt.data)
			require.NoError(t, err)

			got, found, err := c.GetBytes(ctx, key)
			require.NoError(t, err)
			assert.True(t, found)
			assert.Equal(t, tt.want, string(got))
		})
	}
}

func TestCache_StoreUnsupported(t *testing.T) {
	b := testutil.NewSQLite(t)
	c := newTestCache(t, b)
	ctx := context.Background()

	unsupported := []any{
		nil, true, []int{1}, map[string]any{},
		math.NaN(), math.Inf(1), math.Inf(-1), float32(math.Inf(1)),
		uint64(math.MaxUint64), uint(math.MaxInt64) + 1,
	}
	for _, data := range unsupported {
		_, err := c.Store(ctx, data)
		assert.ErrorIs(t, err, ErrUnsupportedValue, "%T(%v)", data, data)
	}

	count, found, err := b.Get(ctx, StoreMethod)
	require.NoError(t, err)
	assert.False(t, found, "rejected values are not recorded, got count %q", count)

	for _, key := range []string{StoreMethod + ":inputs", StoreMethod + ":outputs"} {
		entries, err := b.LRange(ctx, key, 0, -1)
		require.NoError(t, err)
		assert.Empty(t, entries, key)
	}
}

func TestCache_StoreFloatMatchesLoggedArgument(t *testing.T) {
	testutil.EachBackend(t, func(t *testing.T, b *testutil.Backend) {
		ctx := context.Background()
		c := newTestCache(t, b)

		key, err := c.Store(ctx, 3.0)
		require.NoError(t, err)

		stored, found, err := c.GetStr(ctx, key)
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, "3.0", stored)

		inputs, err := b.LRange(ctx, StoreMethod+":inputs", 0, -1)
		require.NoError(t, err)
		require.Len(t, inputs, 1)
		assert.Equal(t, "["+stored+"]", string(inputs[0]))
	})
}

func TestCache_GetIntNotInteger(t *testing.T) {
	testutil.EachBackend(t, func(t *testing.T, b *testutil.Backend) {
		ctx := context.Background()
		c := newTestCache(t, b)

		key, err := c.Store(ctx, "bar")
		require.NoError(t, err)

		_, found, err := c.GetInt(ctx, key)
		assert.True(t, found)
		assert.ErrorContains(t, err, "not an integer")
	})
}

func TestCache_GetCustomConverter(t *testing.T) {
	b := testutil.NewRedis(t)
	c := newTestCache(t, b)
	ctx := context.Background()

	key, err := c.Store(ctx, "shout")
	require.NoError(t, err)

	v, found, err := c.Get(ctx, key, func(raw []byte) (any, error) {
		return strings.ToUpper(string(raw)), nil
	})
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "SHOUT", v)
}

func TestCache_StoreIsRecorded(t *testing.T) {
	testutil.EachBackend(t, func(t *testing.T, b *testutil.Backend) {
		ctx := context.Background()
		c := newTestCache(t, b)

		for _, v := range []any{"foo", 123, "bar"} {
			_, err := c.Store(ctx, v)
			require.NoError(t, err)
		}

		count, _, err := b.Get(ctx, StoreMethod)
		require.NoError(t, err)
		assert.Equal(t, "3", string(count))

		var buf bytes.Buffer
		require.NoError(t, c.Replay(ctx, &buf))
		assert.Equal(t, strings.Join([]string{
			`Cache.store was called 3 times:`,
			`Cache.store(*["foo"]) -> "key-1"`,
			`Cache.store(*[123]) -> "key-2"`,
			`Cache.store(*["bar"]) -> "key-3"`,
		}, "\n")+"\n", buf.String())
	})
}

func TestNew_Flushes(t *testing.T) {
	testutil.EachBackend(t, func(t *testing.T, b *testutil.Backend) {
		ctx := context.Background()
		require.NoError(t, b.Set(ctx, "leftover", []byte("x")))

		newTestCache(t, b)

		_, found, err := b.Get(ctx, "leftover")
		require.NoError(t, err)
		assert.False(t, found)
	})
}

func TestNew_WithoutFlush(t *testing.T) {
	b := testutil.NewRedis(t)
	ctx := context.Background()

	first := newTestCache(t, b)
	_, err := first.Store(ctx, "kept")
	require.NoError(t, err)

	second := newTestCache(t, b, WithoutFlush(), WithKeyGenerator(testutil.NewSequentialKeys("next")))
	_, err = second.Store(ctx, "more")
	require.NoError(t, err)

	count, _, err := b.Get(ctx, StoreMethod)
	require.NoError(t, err)
	assert.Equal(t, "2", string(count))

	s, found, err := second.GetStr(ctx, "key-1")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "kept", s)
}

func TestNew_BackendUnavailable(t *testing.T) {
	testutil.EachBackend(t, func(t *testing.T, b *testutil.Backend) {
		b.Kill()

		_, err := New(context.Background(), b)
		require.Error(t, err)
		assert.True(t, kv.IsUnavailable(err))
	})
}

func TestCache_StoreBackendUnavailable(t *testing.T) {
	testutil.EachBackend(t, func(t *testing.T, b *testutil.Backend) {
		c := newTestCache(t, b)
		b.Kill()

		_, err := c.Store(context.Background(), "bar")
		require.Error(t, err)
		assert.True(t, kv.IsUnavailable(err))
	})
}

func TestCache_WithRecorder(t *testing.T) {
	data := testutil.NewRedis(t)
	history := testutil.NewSQLite(t)
	ctx := context.Background()

	c := newTestCache(t, data, WithRecorder(recorder.New(history)))
	key, err := c.Store(ctx, "split")
	require.NoError(t, err)

	s, found, err := c.GetStr(ctx, key)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "split", s)

	count, found, err := history.Get(ctx, StoreMethod)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "1", string(count))
}

func TestUUIDGenerator(t *testing.T) {
	g := UUIDGenerator{}
	a, b := g.Generate(), g.Generate()
	assert.NotEqual(t, a, b)

	parsed, err := uuid.Parse(a)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(4), parsed.Version())
}

func TestKeyFunc(t *testing.T) {
	var g KeyGenerator = KeyFunc(func() string { return "fixed" })
	assert.Equal(t, "fixed", g.Generate())
}
