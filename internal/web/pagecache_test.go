package web

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/recall/internal/kv"
	"github.com/roach88/recall/internal/testutil"
)

const testURL = "http://example.test/page"

// countingFetcher returns fixed content and counts invocations.
type countingFetcher struct {
	calls   int
	content []byte
	err     error
}

func (f *countingFetcher) Fetch(_ context.Context, _ string) ([]byte, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.content, nil
}

func quiet() Option {
	return WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestPageCache_FetchesOnceWithinTTL(t *testing.T) {
	testutil.EachBackend(t, func(t *testing.T, b *testutil.Backend) {
		ctx := context.Background()
		f := &countingFetcher{content: []byte("<html>hello</html>")}
		p := NewPageCache(b, f.Fetch, quiet())

		for i := 0; i < 5; i++ {
			content, err := p.Get(ctx, testURL)
			require.NoError(t, err)
			assert.Equal(t, "<html>hello</html>", string(content))
		}

		assert.Equal(t, 1, f.calls)

		n, err := p.Count(ctx, testURL)
		require.NoError(t, err)
		assert.Equal(t, int64(5), n)
	})
}

func TestPageCache_RefetchesAfterExpiry(t *testing.T) {
	testutil.EachBackend(t, func(t *testing.T, b *testutil.Backend) {
		ctx := context.Background()
		f := &countingFetcher{content: []byte("v1")}
		p := NewPageCache(b, f.Fetch, quiet())

		_, err := p.Get(ctx, testURL)
		require.NoError(t, err)

		b.Advance(DefaultTTL - time.Second)
		_, err = p.Get(ctx, testURL)
		require.NoError(t, err)
		assert.Equal(t, 1, f.calls, "entry must still be fresh before the TTL")

		b.Advance(2 * time.Second)
		f.content = []byte("v2")
		content, err := p.Get(ctx, testURL)
		require.NoError(t, err)
		assert.Equal(t, "v2", string(content))
		assert.Equal(t, 2, f.calls)

		n, err := p.Count(ctx, testURL)
		require.NoError(t, err)
		assert.Equal(t, int64(3), n, "visits count hits and misses alike")

		_, found, err := b.Get(ctx, CountKey(testURL))
		require.NoError(t, err)
		assert.True(t, found, "visit counter never expires")
	})
}

func TestPageCache_CustomTTL(t *testing.T) {
	testutil.EachBackend(t, func(t *testing.T, b *testutil.Backend) {
		ctx := context.Background()
		f := &countingFetcher{content: []byte("x")}
		p := NewPageCache(b, f.Fetch, quiet(), WithTTL(time.Minute))
		assert.Equal(t, time.Minute, p.TTL())

		_, err := p.Get(ctx, testURL)
		require.NoError(t, err)
		b.Advance(30 * time.Second)
		_, err = p.Get(ctx, testURL)
		require.NoError(t, err)
		assert.Equal(t, 1, f.calls)

		b.Advance(31 * time.Second)
		_, err = p.Get(ctx, testURL)
		require.NoError(t, err)
		assert.Equal(t, 2, f.calls)
	})
}

func TestPageCache_FailedFetchWritesNoEntry(t *testing.T) {
	testutil.EachBackend(t, func(t *testing.T, b *testutil.Backend) {
		ctx := context.Background()
		upstream := &UpstreamFetchError{URL: testURL, Status: 503}
		f := &countingFetcher{err: upstream}
		p := NewPageCache(b, f.Fetch, quiet())

		_, err := p.Get(ctx, testURL)
		var got *UpstreamFetchError
		require.True(t, errors.As(err, &got))
		assert.Equal(t, 503, got.Status)

		_, found, err := b.Get(ctx, CachedKey(testURL))
		require.NoError(t, err)
		assert.False(t, found)

		f.err = nil
		f.content = []byte("recovered")
		content, err := p.Get(ctx, testURL)
		require.NoError(t, err)
		assert.Equal(t, "recovered", string(content))
		assert.Equal(t, 2, f.calls)

		n, err := p.Count(ctx, testURL)
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)
	})
}

func TestPageCache_URLsAreIndependent(t *testing.T) {
	b := testutil.NewRedis(t)
	ctx := context.Background()
	f := &countingFetcher{content: []byte("same")}
	p := NewPageCache(b, f.Fetch, quiet())

	for _, url := range []string{"http://a.test/", "http://b.test/", "http://a.test/"} {
		_, err := p.Get(ctx, url)
		require.NoError(t, err)
	}
	assert.Equal(t, 2, f.calls)

	na, err := p.Count(ctx, "http://a.test/")
	require.NoError(t, err)
	nb, err := p.Count(ctx, "http://b.test/")
	require.NoError(t, err)
	assert.Equal(t, int64(2), na)
	assert.Equal(t, int64(1), nb)
}

func TestPageCache_CountNeverRequested(t *testing.T) {
	b := testutil.NewSQLite(t)
	p := NewPageCache(b, (&countingFetcher{}).Fetch, quiet())

	n, err := p.Count(context.Background(), testURL)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestPageCache_BackendUnavailable(t *testing.T) {
	testutil.EachBackend(t, func(t *testing.T, b *testutil.Backend) {
		f := &countingFetcher{content: []byte("x")}
		p := NewPageCache(b, f.Fetch, quiet())
		b.Kill()

		_, err := p.Get(context.Background(), testURL)
		require.Error(t, err)
		assert.True(t, kv.IsUnavailable(err))
		assert.Zero(t, f.calls)
	})
}

func TestPageCache_Metrics(t *testing.T) {
	b := testutil.NewRedis(t)
	reg := prometheus.NewRegistry()
	f := &countingFetcher{content: []byte("x")}
	p := NewPageCache(b, f.Fetch, quiet(), WithRegisterer(reg))

	for i := 0; i < 4; i++ {
		_, err := p.Get(context.Background(), testURL)
		require.NoError(t, err)
	}

	assert.Equal(t, float64(3), promtest.ToFloat64(p.hits))
	assert.Equal(t, float64(1), promtest.ToFloat64(p.misses))
	assert.Equal(t, float64(1), promtest.ToFloat64(p.fetches))
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "count:http://x", CountKey("http://x"))
	assert.Equal(t, "cached:http://x", CachedKey("http://x"))
}
