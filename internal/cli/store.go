package cli

import (
	"context"
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/roach88/recall/internal/cache"
)

// StoreOptions holds flags for the store command.
type StoreOptions struct {
	*RootOptions
	AsInt   bool
	AsFloat bool
}

// StoreResult is the JSON payload of the store command.
type StoreResult struct {
	Key string `json:"key"`
}

// NewStoreCommand creates the store command.
func NewStoreCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &StoreOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "store <value>",
		Short: "Store a value under a generated key",
		Long: `Store a value under a freshly generated key and print the key.

The call is counted and recorded under "Cache.store" so it shows up in
"recall replay". Values are stored as text unless --int or --float is given.

Examples:
  recall store bar
  recall store --int 123
  recall store --db ./recall.db hello`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStore(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.AsInt, "int", false, "store the value as an integer")
	cmd.Flags().BoolVar(&opts.AsFloat, "float", false, "store the value as a float")
	cmd.MarkFlagsMutuallyExclusive("int", "float")

	return cmd
}

func runStore(opts *StoreOptions, raw string, cmd *cobra.Command) error {
	ctx := context.Background()
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout())

	value, err := parseStoreValue(raw, opts.AsInt, opts.AsFloat)
	if err != nil {
		_ = formatter.Error(ErrCodeInvalidArg, err.Error(), nil)
		return WrapExitError(ExitCommandError, "invalid value", err)
	}

	sess, err := openSession(ctx, opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	defer sess.Close()

	c, err := cache.New(ctx, sess.backend, cache.WithoutFlush())
	if err != nil {
		return sess.formatter.Fail(ErrCodeGeneric, "failed to open cache", err)
	}

	key, err := c.Store(ctx, value)
	if err != nil {
		return sess.formatter.Fail(ErrCodeGeneric, "store failed", err)
	}

	return sess.formatter.Emit(StoreResult{Key: key}, func(w io.Writer) error {
		_, err := fmt.Fprintln(w, key)
		return err
	})
}

func parseStoreValue(raw string, asInt, asFloat bool) (any, error) {
	switch {
	case asInt:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("not an integer: %q", raw)
		}
		return n, nil
	case asFloat:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, fmt.Errorf("not a float: %q", raw)
		}
		return f, nil
	default:
		return raw, nil
	}
}
