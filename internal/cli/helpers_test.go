package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
)

// runCLI executes the root command with args and returns what it printed.
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

// redisFlags starts an in-process Redis and returns flags pointing at it.
func redisFlags(t *testing.T) []string {
	t.Helper()
	mr := miniredis.RunT(t)
	return []string{"--redis-addr", mr.Addr()}
}

// sqliteFlags returns flags for a fresh SQLite database in a temp dir.
func sqliteFlags(t *testing.T) []string {
	t.Helper()
	return []string{"--db", filepath.Join(t.TempDir(), "recall.db")}
}

// eachBackend runs fn once with Redis flags and once with SQLite flags.
func eachBackend(t *testing.T, fn func(t *testing.T, flags []string)) {
	t.Helper()
	t.Run("redis", func(t *testing.T) { fn(t, redisFlags(t)) })
	t.Run("sqlite", func(t *testing.T) { fn(t, sqliteFlags(t)) })
}

func with(flags []string, args ...string) []string {
	return append(append([]string{}, flags...), args...)
}

func decodeResponse(t *testing.T, out string) CLIResponse {
	t.Helper()
	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	return resp
}
