package harness

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/roach88/recall/internal/cache"
	"github.com/roach88/recall/internal/ir"
	"github.com/roach88/recall/internal/kv"
	"github.com/roach88/recall/internal/replay"
	"github.com/roach88/recall/internal/web"
)

// Env is the backend a scenario runs against.
type Env struct {
	Backend kv.Backend

	// Advance moves backend time forward. Scenarios with advance steps fail
	// when it is nil.
	Advance func(d time.Duration)

	// Logger defaults to a discarding logger.
	Logger *slog.Logger
}

// Harness executes one scenario.
type Harness struct {
	env     Env
	cache   *cache.Cache
	pages   *web.PageCache
	fetcher *scenarioFetcher
	result  *Result
}

// Run executes a scenario and returns the result.
//
// The backend is flushed first. Step expectation and assertion failures are
// collected in the result; backend failures abort the run with an error.
//
// Execution flow:
// 1. Flush the backend and build a cache with sequential keys
// 2. Execute flow steps, checking expectations
// 3. Evaluate assertions
// 4. Render the Cache.store replay
func Run(ctx context.Context, scenario *Scenario, env Env) (*Result, error) {
	if env.Logger == nil {
		env.Logger = slog.New(slog.NewTextHandler(io.Discard, nil)) // Suppress logs in tests
	}

	var seq int
	keys := cache.KeyFunc(func() string {
		seq++
		return fmt.Sprintf("key-%d", seq)
	})

	c, err := cache.New(ctx, env.Backend,
		cache.WithKeyGenerator(keys),
		cache.WithLogger(env.Logger),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare backend: %w", err)
	}

	fetcher := newScenarioFetcher(scenario.Pages)
	h := &Harness{
		env:     env,
		cache:   c,
		fetcher: fetcher,
		pages: web.NewPageCache(env.Backend, fetcher.Fetch,
			web.WithTTL(scenario.TTL),
			web.WithLogger(env.Logger),
		),
		result: NewResult(),
	}

	for i, step := range scenario.Flow {
		if err := h.executeStep(ctx, i, step); err != nil {
			return nil, fmt.Errorf("flow[%d]: %w", i, err)
		}
	}

	for i, assertion := range scenario.Assertions {
		if err := h.evaluateAssertion(ctx, assertion); err != nil {
			var assertErr *AssertionError
			if !errors.As(err, &assertErr) {
				return nil, fmt.Errorf("assertions[%d]: %w", i, err)
			}
			h.result.AddError(fmt.Sprintf("assertions[%d]: %s", i, assertErr.Error()))
		}
	}

	var buf bytes.Buffer
	if err := replay.Replay(ctx, env.Backend, cache.StoreMethod, &buf); err != nil {
		return nil, fmt.Errorf("failed to replay: %w", err)
	}
	h.result.Replay = buf.String()

	return h.result, nil
}

// executeStep runs one flow step. Only backend failures are returned;
// expectation mismatches are recorded on the result.
func (h *Harness) executeStep(ctx context.Context, index int, step Step) error {
	switch step.Op() {
	case OpStore:
		return h.executeStore(ctx, index, step)
	case OpGet:
		return h.executeGet(ctx, index, step)
	case OpFetch:
		return h.executeFetch(ctx, index, step)
	case OpAdvance:
		if h.env.Advance == nil {
			return errors.New("advance requires a controllable clock")
		}
		h.env.Advance(step.Advance)
		h.result.AddTrace(OpAdvance, step.Advance.String(), "")
		return nil
	default:
		return errors.New("step has no operation")
	}
}

func (h *Harness) executeStore(ctx context.Context, index int, step Step) error {
	input := render(step.Store)
	key, err := h.cache.Store(ctx, step.Store)
	if err != nil {
		if kv.IsUnavailable(err) {
			return err
		}
		h.result.AddTrace(OpStore, input, "error: "+err.Error())
		h.result.AddError(fmt.Sprintf("flow[%d]: store %s failed: %v", index, input, err))
		return nil
	}
	h.result.AddTrace(OpStore, input, key)
	return nil
}

func (h *Harness) executeGet(ctx context.Context, index int, step Step) error {
	var conv cache.Converter
	switch step.As {
	case "", "text":
		conv = cache.AsString
	case "int":
		conv = cache.AsInt
	}

	value, found, err := h.cache.Get(ctx, step.Get, conv)
	if err != nil {
		if kv.IsUnavailable(err) {
			return err
		}
		h.result.AddTrace(OpGet, step.Get, "error: "+err.Error())
		h.result.AddError(fmt.Sprintf("flow[%d]: get %s failed: %v", index, step.Get, err))
		return nil
	}

	output := "(nil)"
	if found {
		output = render(value)
	}
	h.result.AddTrace(OpGet, step.Get, output)

	switch {
	case step.Missing && found:
		h.result.AddError(fmt.Sprintf("flow[%d]: get %s: expected missing, got %s", index, step.Get, output))
	case step.Expect != nil && !found:
		h.result.AddError(fmt.Sprintf("flow[%d]: get %s: expected %s, got nothing", index, step.Get, render(step.Expect)))
	case step.Expect != nil && render(step.Expect) != output:
		h.result.AddError(fmt.Sprintf("flow[%d]: get %s: expected %s, got %s", index, step.Get, render(step.Expect), output))
	}
	return nil
}

func (h *Harness) executeFetch(ctx context.Context, index int, step Step) error {
	content, err := h.pages.Get(ctx, step.Fetch)
	if err != nil {
		var upstream *web.UpstreamFetchError
		if !errors.As(err, &upstream) {
			return err
		}
		h.result.AddTrace(OpFetch, step.Fetch, "error: "+err.Error())
		if step.Expect != nil {
			h.result.AddError(fmt.Sprintf("flow[%d]: fetch %s failed: %v", index, step.Fetch, err))
		}
		return nil
	}

	h.result.AddTrace(OpFetch, step.Fetch, fmt.Sprintf("%d bytes", len(content)))
	if step.Expect != nil && fmt.Sprint(step.Expect) != string(content) {
		h.result.AddError(fmt.Sprintf("flow[%d]: fetch %s: expected %q, got %q", index, step.Fetch, fmt.Sprint(step.Expect), content))
	}
	return nil
}

// render formats a value as canonical JSON for transcripts and comparison.
func render(v any) string {
	out, err := ir.FormatResult(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return out
}

// scenarioFetcher serves Scenario.Pages and counts calls per URL.
type scenarioFetcher struct {
	mu    sync.Mutex
	pages map[string]string
	calls map[string]int64
}

func newScenarioFetcher(pages map[string]string) *scenarioFetcher {
	return &scenarioFetcher{pages: pages, calls: make(map[string]int64)}
}

func (f *scenarioFetcher) Fetch(_ context.Context, url string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls[url]++
	content, ok := f.pages[url]
	if !ok {
		return nil, &web.UpstreamFetchError{URL: url, Status: http.StatusNotFound}
	}
	return []byte(content), nil
}

func (f *scenarioFetcher) Calls(url string) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[url]
}
