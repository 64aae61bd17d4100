package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/roach88/recall/internal/cli"
)

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})))

	err := cli.NewRootCommand().Execute()
	var exitErr *cli.ExitError
	if err != nil && !errors.As(err, &exitErr) {
		// Usage errors from cobra; commands report their own failures.
		fmt.Fprintln(os.Stderr, "Error:", err)
		err = cli.WrapExitError(cli.ExitCommandError, "usage", err)
	}
	os.Exit(cli.GetExitCode(err))
}
