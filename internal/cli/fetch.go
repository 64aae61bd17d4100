package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/recall/internal/web"
)

// FetchOptions holds flags for the fetch command.
type FetchOptions struct {
	*RootOptions
	TTL time.Duration
}

// FetchResult is the JSON payload of the fetch command.
type FetchResult struct {
	URL    string `json:"url"`
	Title  string `json:"title"`
	Size   int    `json:"size"`
	Visits int64  `json:"visits"`
}

// NewFetchCommand creates the fetch command.
func NewFetchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &FetchOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "fetch <url>",
		Short: "Fetch a page through the expiring page cache",
		Long: `Fetch a page, serving it from the cache when a fresh copy exists.

Every request increments the page's visit counter. A fetched page stays
cached for --ttl (default from config, 10s).

Exit codes:
  0 - Page returned
  1 - Upstream fetch failed (nothing cached)
  2 - Command error (backend unavailable, invalid flags)

Examples:
  recall fetch http://example.com
  recall fetch --ttl 1m http://example.com --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFetch(opts, args[0], cmd)
		},
	}

	cmd.Flags().DurationVar(&opts.TTL, "ttl", 0, "cache lifetime of the fetched page (overrides config)")

	return cmd
}

func runFetch(opts *FetchOptions, url string, cmd *cobra.Command) error {
	ctx := context.Background()

	sess, err := openSession(ctx, opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	defer sess.Close()

	ttl := sess.cfg.Pages.TTL
	if opts.TTL > 0 {
		ttl = opts.TTL
	}
	fetcher := &web.HTTPFetcher{
		Timeout:  sess.cfg.Pages.FetchTimeout,
		Attempts: sess.cfg.Pages.FetchAttempts,
	}
	pages := web.NewPageCache(sess.backend, fetcher.Fetch, web.WithTTL(ttl))

	content, err := pages.Get(ctx, url)
	if err != nil {
		var upstream *web.UpstreamFetchError
		if errors.As(err, &upstream) {
			return sess.formatter.Fail(ErrCodeUpstream, fmt.Sprintf("failed to fetch %s", url), err)
		}
		return sess.formatter.Fail(ErrCodeGeneric, "page cache failed", err)
	}

	title, _ := web.Title(content)
	visits, err := pages.Count(ctx, url)
	if err != nil {
		return sess.formatter.Fail(ErrCodeGeneric, "failed to read visit count", err)
	}

	result := FetchResult{URL: url, Title: title, Size: len(content), Visits: visits}
	return sess.formatter.Emit(result, func(w io.Writer) error {
		if title != "" {
			fmt.Fprintf(w, "Title:  %s\n", title)
		}
		fmt.Fprintf(w, "Size:   %d bytes\n", result.Size)
		_, err := fmt.Fprintf(w, "Visits: %d\n", visits)
		return err
	})
}
