package cli

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/recall/internal/cache"
	"github.com/roach88/recall/internal/replay"
)

// DemoOptions holds flags for the demo command.
type DemoOptions struct {
	*RootOptions
	NoFlush bool
}

// DemoCheck is one store/get round trip performed by the demo.
type DemoCheck struct {
	Value string `json:"value"`
	Key   string `json:"key"`
	OK    bool   `json:"ok"`
}

// DemoResult is the JSON payload of the demo command.
type DemoResult struct {
	Checks  []DemoCheck    `json:"checks"`
	History replay.History `json:"history"`
}

// NewDemoCommand creates the demo command.
func NewDemoCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DemoOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Store sample values, read them back and replay the calls",
		Long: `Flush the backend, store the bytes "foo", the integer 123 and the text
"bar", verify each reads back unchanged, then replay every Cache.store call.

Exit codes:
  0 - Every value round-tripped
  1 - A value did not round-trip
  2 - Command error (backend unavailable)`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDemo(opts, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.NoFlush, "no-flush", false, "keep existing backend contents")

	return cmd
}

func runDemo(opts *DemoOptions, cmd *cobra.Command) error {
	ctx := context.Background()

	sess, err := openSession(ctx, opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	defer sess.Close()

	var cacheOpts []cache.Option
	if opts.NoFlush {
		cacheOpts = append(cacheOpts, cache.WithoutFlush())
	}
	c, err := cache.New(ctx, sess.backend, cacheOpts...)
	if err != nil {
		return sess.formatter.Fail(ErrCodeGeneric, "failed to open cache", err)
	}

	result := DemoResult{}
	allOK := true
	for _, tc := range demoCases(c) {
		key, err := c.Store(ctx, tc.value)
		if err != nil {
			return sess.formatter.Fail(ErrCodeGeneric, "store failed", err)
		}
		ok, err := tc.check(ctx, key)
		if err != nil {
			return sess.formatter.Fail(ErrCodeConvert, fmt.Sprintf("failed to read %s", key), err)
		}
		allOK = allOK && ok
		result.Checks = append(result.Checks, DemoCheck{Value: tc.label, Key: key, OK: ok})
	}

	result.History, err = replay.Read(ctx, sess.backend, cache.StoreMethod)
	if err != nil {
		return sess.formatter.Fail(ErrCodeGeneric, "failed to read history", err)
	}

	if err := sess.formatter.Emit(result, func(w io.Writer) error {
		for _, check := range result.Checks {
			status := "ok"
			if !check.OK {
				status = "MISMATCH"
			}
			fmt.Fprintf(w, "%-6s %s -> %s\n", status, check.Value, check.Key)
		}
		fmt.Fprintln(w)
		return replay.Render(w, result.History)
	}); err != nil {
		return err
	}

	if !allOK {
		return NewExitError(ExitFailure, "round trip mismatch")
	}
	return nil
}

type demoCase struct {
	label string
	value any
	check func(ctx context.Context, key string) (bool, error)
}

func demoCases(c *cache.Cache) []demoCase {
	return []demoCase{
		{
			label: `b"foo"`,
			value: []byte("foo"),
			check: func(ctx context.Context, key string) (bool, error) {
				got, found, err := c.GetBytes(ctx, key)
				return found && bytes.Equal(got, []byte("foo")), err
			},
		},
		{
			label: "123",
			value: 123,
			check: func(ctx context.Context, key string) (bool, error) {
				got, found, err := c.GetInt(ctx, key)
				return found && got == 123, err
			},
		},
		{
			label: `"bar"`,
			value: "bar",
			check: func(ctx context.Context, key string) (bool, error) {
				got, found, err := c.GetStr(ctx, key)
				return found && got == "bar", err
			},
		},
	}
}
