package web

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/felixgeelhaar/fortify/retry"
	"github.com/felixgeelhaar/fortify/timeout"
	"golang.org/x/net/html"
)

// DefaultFetchTimeout bounds a single HTTPFetcher request.
const DefaultFetchTimeout = 10 * time.Second

// UpstreamFetchError reports a page that could not be retrieved.
// Status is zero when no HTTP response was received.
type UpstreamFetchError struct {
	URL    string
	Status int
	Err    error
}

func (e *UpstreamFetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetch %s: upstream returned %d", e.URL, e.Status)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *UpstreamFetchError) Unwrap() error {
	return e.Err
}

// HTTPFetcher retrieves pages over HTTP GET.
type HTTPFetcher struct {
	Client *http.Client

	// Timeout bounds each attempt. Zero means DefaultFetchTimeout.
	Timeout time.Duration

	// Attempts is the total number of tries per fetch. Zero means one.
	Attempts int
}

// Fetch returns the response body of url. Non-2xx responses and transport
// failures are returned as *UpstreamFetchError.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	d := f.Timeout
	if d <= 0 {
		d = DefaultFetchTimeout
	}
	attempts := f.Attempts
	if attempts <= 0 {
		attempts = 1
	}

	r := retry.New[[]byte](retry.Config{
		MaxAttempts:   attempts,
		InitialDelay:  100 * time.Millisecond,
		BackoffPolicy: retry.BackoffExponential,
		IsRetryable:   retryable,
	})
	t := timeout.New[[]byte](timeout.Config{
		DefaultTimeout: d,
	})

	body, err := r.Do(ctx, func(ctx context.Context) ([]byte, error) {
		return t.Execute(ctx, d, func(ctx context.Context) ([]byte, error) {
			return f.get(ctx, url)
		})
	})
	if err != nil {
		var upstream *UpstreamFetchError
		if errors.As(err, &upstream) {
			return nil, upstream
		}
		return nil, &UpstreamFetchError{URL: url, Err: err}
	}
	return body, nil
}

// retryable reports whether a failed attempt is worth repeating: transport
// failures, 5xx and 429 responses. Other statuses are permanent.
func retryable(err error) bool {
	var upstream *UpstreamFetchError
	if !errors.As(err, &upstream) || upstream.Status == 0 {
		return true
	}
	return upstream.Status >= 500 || upstream.Status == http.StatusTooManyRequests
}

func (f *HTTPFetcher) get(ctx context.Context, url string) ([]byte, error) {
	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &UpstreamFetchError{URL: url, Err: err}
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, &UpstreamFetchError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, resp.Body)
		return nil, &UpstreamFetchError{URL: url, Status: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &UpstreamFetchError{URL: url, Err: err}
	}
	return body, nil
}

// Title returns the trimmed text of the first <title> element, or "" when
// the page has none.
func Title(content []byte) (string, error) {
	doc, err := html.Parse(bytes.NewReader(content))
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}
	return extractTitle(doc), nil
}

func extractTitle(n *html.Node) string {
	if n.Type == html.ElementNode && strings.EqualFold(n.Data, "title") {
		var b strings.Builder
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.TextNode {
				b.WriteString(c.Data)
			}
		}
		return strings.Join(strings.Fields(b.String()), " ")
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if title := extractTitle(c); title != "" {
			return title
		}
	}
	return ""
}
