package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/recall/internal/web"
)

// CountResult is the JSON payload of the count command.
type CountResult struct {
	URL    string `json:"url"`
	Visits int64  `json:"visits"`
}

// NewCountCommand creates the count command.
func NewCountCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "count <url>",
		Short: "Show how many times a page was requested",
		Long: `Print the visit counter of a URL fetched through "recall fetch".
Cache hits and misses both count. A URL never requested prints 0.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCount(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runCount(opts *RootOptions, url string, cmd *cobra.Command) error {
	ctx := context.Background()

	sess, err := openSession(ctx, opts, cmd)
	if err != nil {
		return err
	}
	defer sess.Close()

	pages := web.NewPageCache(sess.backend, nil)
	visits, err := pages.Count(ctx, url)
	if err != nil {
		return sess.formatter.Fail(ErrCodeGeneric, "failed to read visit count", err)
	}

	return sess.formatter.Emit(CountResult{URL: url, Visits: visits}, func(w io.Writer) error {
		_, err := fmt.Fprintln(w, visits)
		return err
	})
}
