package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/recall/internal/config"
	"github.com/roach88/recall/internal/kv"
	"github.com/roach88/recall/internal/redisstore"
	"github.com/roach88/recall/internal/store"
)

// OpenBackend connects to the backend named in cfg.
func OpenBackend(ctx context.Context, cfg config.Config) (kv.Backend, error) {
	switch cfg.Backend {
	case config.BackendRedis:
		rs, err := redisstore.Open(ctx, redisstore.Options{
			Addr:        cfg.Redis.Addr,
			Password:    cfg.Redis.Password,
			DB:          cfg.Redis.DB,
			DialTimeout: cfg.Redis.DialTimeout,
			ReadTimeout: cfg.Redis.ReadTimeout,
		})
		if err != nil {
			return nil, err
		}
		return rs, nil
	case config.BackendSQLite:
		st, err := store.Open(cfg.SQLite.Path)
		if err != nil {
			return nil, err
		}
		return st, nil
	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}
}

// session bundles what every command needs: resolved config, an open
// backend and a formatter bound to the command's output.
type session struct {
	cfg       config.Config
	backend   kv.Backend
	formatter *OutputFormatter
}

// openSession resolves config and opens the backend. Failures are reported
// through the formatter and returned as ExitErrors.
func openSession(ctx context.Context, opts *RootOptions, cmd *cobra.Command) (*session, error) {
	formatter := newFormatter(opts, cmd.OutOrStdout())

	cfg, err := opts.Config()
	if err != nil {
		_ = formatter.Error(ErrCodeConfig, "invalid configuration", err.Error())
		return nil, WrapExitError(ExitCommandError, "invalid configuration", err)
	}

	backend, err := OpenBackend(ctx, cfg)
	if err != nil {
		_ = formatter.Error(ErrCodeUnavailable, fmt.Sprintf("failed to open %s backend", cfg.Backend), err.Error())
		return nil, WrapExitError(ExitCommandError, "failed to open backend", err)
	}

	return &session{cfg: cfg, backend: backend, formatter: formatter}, nil
}

func (s *session) Close() error {
	return s.backend.Close()
}

func newFormatter(opts *RootOptions, w io.Writer) *OutputFormatter {
	return &OutputFormatter{
		Format:  opts.Format,
		Writer:  w,
		Verbose: opts.Verbose,
	}
}
