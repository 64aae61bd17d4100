package cli

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/recall/internal/cache"
)

// GetOptions holds flags for the get command.
type GetOptions struct {
	*RootOptions
	As string // "text" | "int" | "bytes"
}

// GetResult is the JSON payload of the get command.
type GetResult struct {
	Key   string `json:"key"`
	Found bool   `json:"found"`
	Value any    `json:"value"`
}

// NewGetCommand creates the get command.
func NewGetCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &GetOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "get <key>",
		Short: "Read a stored value",
		Long: `Read the value stored under key.

A missing key is not an error: text output prints "(nil)" and JSON output
reports found=false. Bytes are printed base64-encoded.

Examples:
  recall get 0b6f...
  recall get --as int 0b6f...`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGet(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.As, "as", "text", "value conversion (text|int|bytes)")

	return cmd
}

func runGet(opts *GetOptions, key string, cmd *cobra.Command) error {
	ctx := context.Background()
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout())

	conv, err := converterFor(opts.As)
	if err != nil {
		_ = formatter.Error(ErrCodeInvalidArg, err.Error(), nil)
		return WrapExitError(ExitCommandError, "invalid --as", err)
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

	value, found, err := c.Get(ctx, key, conv)
	if err != nil {
		return sess.formatter.Fail(ErrCodeConvert, fmt.Sprintf("failed to read %s", key), err)
	}

	result := GetResult{Key: key, Found: found, Value: value}
	return sess.formatter.Emit(result, func(w io.Writer) error {
		if !found {
			_, err := fmt.Fprintln(w, "(nil)")
			return err
		}
		_, err := fmt.Fprintln(w, value)
		return err
	})
}

func converterFor(as string) (cache.Converter, error) {
	switch as {
	case "", "text":
		return cache.AsString, nil
	case "int":
		return cache.AsInt, nil
	case "bytes":
		return func(raw []byte) (any, error) {
			return base64.StdEncoding.EncodeToString(raw), nil
		}, nil
	default:
		return nil, fmt.Errorf("invalid --as %q: must be text, int or bytes", as)
	}
}
