// Package web caches fetched pages in a key-value backend with a TTL and
// counts how often each URL is requested.
//
// For a URL U the backend holds:
//
//   - count:U   visit counter, incremented on every request, never expires
//   - cached:U  page content, written on a miss with the configured TTL
//
// Expiration is left entirely to the backend.
package web

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/roach88/recall/internal/kv"
)

// DefaultTTL is how long a fetched page stays cached.
const DefaultTTL = 10 * time.Second

// FetchFunc retrieves the content at url.
type FetchFunc func(ctx context.Context, url string) ([]byte, error)

// CountKey returns the visit counter key for url.
func CountKey(url string) string { return "count:" + url }

// CachedKey returns the content key for url.
func CachedKey(url string) string { return "cached:" + url }

// PageCache wraps a FetchFunc with visit counting and TTL caching.
type PageCache struct {
	backend kv.Backend
	fetch   FetchFunc
	ttl     time.Duration
	logger  *slog.Logger

	hits    prometheus.Counter
	misses  prometheus.Counter
	fetches prometheus.Counter
}

// Option configures a PageCache.
type Option func(*PageCache)

// WithTTL sets how long fetched pages stay cached. Non-positive values are
// ignored.
func WithTTL(ttl time.Duration) Option {
	return func(p *PageCache) {
		if ttl > 0 {
			p.ttl = ttl
		}
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *PageCache) {
		p.logger = logger
	}
}

// WithRegisterer registers the hit, miss and fetch counters with reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(p *PageCache) {
		reg.MustRegister(p.hits, p.misses, p.fetches)
	}
}

// NewPageCache wraps fetch.
func NewPageCache(backend kv.Backend, fetch FetchFunc, opts ...Option) *PageCache {
	p := &PageCache{
		backend: backend,
		fetch:   fetch,
		ttl:     DefaultTTL,
		logger:  slog.Default(),
		hits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "recall_page_cache_hits_total",
			Help: "Page requests served from the cache.",
		}),
		misses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "recall_page_cache_misses_total",
			Help: "Page requests not found in the cache.",
		}),
		fetches: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "recall_page_fetches_total",
			Help: "Successful upstream page fetches.",
		}),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// TTL returns the cache lifetime of fetched pages.
func (p *PageCache) TTL() time.Duration {
	return p.ttl
}

// Get counts the visit, then returns the cached page for url or fetches
// and caches it. Fetch errors are returned unchanged and leave no entry.
func (p *PageCache) Get(ctx context.Context, url string) ([]byte, error) {
	visits, err := p.backend.Incr(ctx, CountKey(url))
	if err != nil {
		return nil, fmt.Errorf("count visit %s: %w", url, err)
	}

	content, found, err := p.backend.Get(ctx, CachedKey(url))
	if err != nil {
		return nil, fmt.Errorf("read cache %s: %w", url, err)
	}
	if found {
		p.hits.Inc()
		p.logger.Debug("page cache hit", "url", url, "visits", visits)
		return content, nil
	}
	p.misses.Inc()

	content, err = p.fetch(ctx, url)
	if err != nil {
		p.logger.Warn("page fetch failed", "url", url, "error", err)
		return nil, err
	}
	p.fetches.Inc()

	if err := p.backend.SetEx(ctx, CachedKey(url), content, p.ttl); err != nil {
		return nil, fmt.Errorf("write cache %s: %w", url, err)
	}
	p.logger.Debug("page cached", "url", url, "visits", visits, "size", len(content), "ttl", p.ttl)
	return content, nil
}

// Count returns how many times url has been requested, zero if never.
func (p *PageCache) Count(ctx context.Context, url string) (int64, error) {
	raw, found, err := p.backend.Get(ctx, CountKey(url))
	if err != nil {
		return 0, fmt.Errorf("read count %s: %w", url, err)
	}
	if !found {
		return 0, nil
	}
	n, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("read count %s: not an integer: %q", url, raw)
	}
	return n, nil
}
