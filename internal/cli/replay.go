package cli

import (
	"context"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/recall/internal/cache"
	"github.com/roach88/recall/internal/replay"
)

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "replay [method]",
		Short: "Show every recorded call of a method",
		Long: `Print how many times a recorded method was called, followed by one
line per call with its arguments and result, in call order.

The method defaults to "Cache.store".

Examples:
  recall replay
  recall replay Cache.store --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			method := cache.StoreMethod
			if len(args) == 1 {
				method = args[0]
			}
			return runReplay(rootOpts, method, cmd)
		},
	}

	return cmd
}

func runReplay(opts *RootOptions, method string, cmd *cobra.Command) error {
	ctx := context.Background()

	sess, err := openSession(ctx, opts, cmd)
	if err != nil {
		return err
	}
	defer sess.Close()

	history, err := replay.Read(ctx, sess.backend, method)
	if err != nil {
		return sess.formatter.Fail(ErrCodeGeneric, "failed to read history", err)
	}

	return sess.formatter.Emit(history, func(w io.Writer) error {
		return replay.Render(w, history)
	})
}
