package replay

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/recall/internal/kv"
	"github.com/roach88/recall/internal/recorder"
	"github.com/roach88/recall/internal/testutil"
)

func newRecorder(b kv.Backend) *recorder.Recorder {
	return recorder.New(b, recorder.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
}

func assertGolden(t *testing.T, name string, got []byte) {
	t.Helper()
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, got)
}

func TestReplay_Golden(t *testing.T) {
	testutil.EachBackend(t, func(t *testing.T, b *testutil.Backend) {
		ctx := context.Background()
		keys := testutil.NewSequentialKeys("")
		store := newRecorder(b).Record("Cache.store", func(context.Context, ...any) (any, error) {
			return keys.Generate(), nil
		})

		for _, v := range []any{"foo", 123, 3.5, "bar"} {
			_, err := store(ctx, v)
			require.NoError(t, err)
		}

		var buf bytes.Buffer
		require.NoError(t, Replay(ctx, b, "Cache.store", &buf))
		assertGolden(t, "cache_store", buf.Bytes())
	})
}

func TestReplay_MultipleArguments(t *testing.T) {
	testutil.EachBackend(t, func(t *testing.T, b *testutil.Backend) {
		ctx := context.Background()
		join := newRecorder(b).Record("pair.join", func(_ context.Context, args ...any) (any, error) {
			return fmt.Sprintf("%v%v", args[0], args[1]), nil
		})

		_, err := join(ctx, "a", 1)
		require.NoError(t, err)
		_, err = join(ctx, "b", nil)
		require.NoError(t, err)

		var buf bytes.Buffer
		require.NoError(t, Replay(ctx, b, "pair.join", &buf))
		assertGolden(t, "multi_arg", buf.Bytes())
	})
}

func TestReplay_NeverCalled(t *testing.T) {
	b := testutil.NewRedis(t)

	var buf bytes.Buffer
	require.NoError(t, Replay(context.Background(), b, "never.called", &buf))
	assertGolden(t, "never_called", buf.Bytes())
}

func TestRead_MatchesCallOrder(t *testing.T) {
	testutil.EachBackend(t, func(t *testing.T, b *testutil.Backend) {
		ctx := context.Background()
		square := recorder.Func1(newRecorder(b), "square", func(_ context.Context, n int) (int, error) {
			return n * n, nil
		})

		for i := 1; i <= 5; i++ {
			_, err := square(ctx, i)
			require.NoError(t, err)
		}

		h, err := Read(ctx, b, "square")
		require.NoError(t, err)
		assert.Equal(t, "square", h.Name)
		assert.Equal(t, int64(5), h.Count)
		require.Len(t, h.Calls, 5)
		for i, c := range h.Calls {
			n := i + 1
			assert.Equal(t, fmt.Sprintf("[%d]", n), c.Input)
			assert.Equal(t, fmt.Sprintf("%d", n*n), c.Output)
		}
	})
}

func TestRead_Idempotent(t *testing.T) {
	testutil.EachBackend(t, func(t *testing.T, b *testutil.Backend) {
		ctx := context.Background()
		op := newRecorder(b).Record("op", func(context.Context, ...any) (any, error) {
			return true, nil
		})
		for i := 0; i < 3; i++ {
			_, err := op(ctx, i)
			require.NoError(t, err)
		}

		first, err := Read(ctx, b, "op")
		require.NoError(t, err)
		for i := 0; i < 3; i++ {
			again, err := Read(ctx, b, "op")
			require.NoError(t, err)
			assert.Equal(t, first, again)
		}
	})
}

func TestRead_FailedCallShortensCalls(t *testing.T) {
	testutil.EachBackend(t, func(t *testing.T, b *testutil.Backend) {
		ctx := context.Background()
		op := newRecorder(b).Record("flaky", func(_ context.Context, args ...any) (any, error) {
			if args[0] == "b" {
				return nil, errors.New("refused")
			}
			return args[0], nil
		})

		for _, arg := range []string{"a", "b"} {
			_, _ = op(ctx, arg)
		}

		h, err := Read(ctx, b, "flaky")
		require.NoError(t, err)
		assert.Equal(t, int64(2), h.Count)
		assert.Equal(t, []Call{{Input: `["a"]`, Output: `"a"`}}, h.Calls)
	})
}

func TestRead_MissingCounter(t *testing.T) {
	b := testutil.NewSQLite(t)

	h, err := Read(context.Background(), b, "nothing")
	require.NoError(t, err)
	assert.Equal(t, History{Name: "nothing", Calls: []Call{}}, h)
}

func TestRead_CorruptCounter(t *testing.T) {
	b := testutil.NewRedis(t)
	require.NoError(t, b.Set(context.Background(), "bad", []byte("many")))

	_, err := Read(context.Background(), b, "bad")
	assert.ErrorContains(t, err, "not an integer")
}

func TestRead_BackendUnavailable(t *testing.T) {
	testutil.EachBackend(t, func(t *testing.T, b *testutil.Backend) {
		b.Kill()

		_, err := Read(context.Background(), b, "Cache.store")
		require.Error(t, err)
		assert.True(t, kv.IsUnavailable(err))
	})
}

func TestRender(t *testing.T) {
	var buf bytes.Buffer
	err := Render(&buf, History{
		Name:  "m",
		Count: 1,
		Calls: []Call{{Input: `[1,2]`, Output: `3`}},
	})
	require.NoError(t, err)
	assert.Equal(t, "m was called 1 times:\nm(*[1,2]) -> 3\n", buf.String())
}
