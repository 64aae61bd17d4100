package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// NewFlushCommand creates the flush command.
func NewFlushCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "flush",
		Short:         "Remove every key from the backend",
		Long:          `Remove every stored value, counter, history and cached page.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFlush(rootOpts, cmd)
		},
	}

	return cmd
}

func runFlush(opts *RootOptions, cmd *cobra.Command) error {
	ctx := context.Background()

	sess, err := openSession(ctx, opts, cmd)
	if err != nil {
		return err
	}
	defer sess.Close()

	if err := sess.backend.FlushAll(ctx); err != nil {
		return sess.formatter.Fail(ErrCodeGeneric, "flush failed", err)
	}

	return sess.formatter.Emit(map[string]bool{"flushed": true}, func(w io.Writer) error {
		_, err := fmt.Fprintf(w, "Flushed %s backend\n", sess.cfg.Backend)
		return err
	})
}
