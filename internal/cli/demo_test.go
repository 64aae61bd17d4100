package cli

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDemo(t *testing.T) {
	eachBackend(t, func(t *testing.T, flags []string) {
		storeValue(t, flags, "leftover")

		out, err := runCLI(t, with(flags, "demo")...)
		require.NoError(t, err, out)

		lines := strings.Split(strings.TrimSpace(out), "\n")
		require.Len(t, lines, 8)
		assert.True(t, strings.HasPrefix(lines[0], `ok     b"foo" -> `))
		assert.True(t, strings.HasPrefix(lines[1], `ok     123 -> `))
		assert.True(t, strings.HasPrefix(lines[2], `ok     "bar" -> `))
		assert.Equal(t, "", lines[3])
		assert.Equal(t, "Cache.store was called 3 times:", lines[4], "demo starts from a flushed backend")
		assert.True(t, strings.HasPrefix(lines[5], `Cache.store(*["foo"]) -> "`))
		assert.True(t, strings.HasPrefix(lines[6], `Cache.store(*[123]) -> "`))
		assert.True(t, strings.HasPrefix(lines[7], `Cache.store(*["bar"]) -> "`))
	})
}

func TestDemo_NoFlush(t *testing.T) {
	flags := redisFlags(t)
	storeValue(t, flags, "leftover")

	out, err := runCLI(t, with(flags, "demo", "--no-flush")...)
	require.NoError(t, err)
	assert.Contains(t, out, "Cache.store was called 4 times:")
}

func TestDemo_JSON(t *testing.T) {
	out, err := runCLI(t, with(sqliteFlags(t), "--format", "json", "demo")...)
	require.NoError(t, err)

	resp := decodeResponse(t, out)
	data := resp.Data.(map[string]any)
	checks := data["checks"].([]any)
	require.Len(t, checks, 3)
	for _, c := range checks {
		assert.Equal(t, true, c.(map[string]any)["ok"])
	}
	history := data["history"].(map[string]any)
	assert.Equal(t, float64(3), history["count"])
}
