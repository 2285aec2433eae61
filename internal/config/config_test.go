package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestConfigParsing(t *testing.T) {
	t.Parallel()

	c, err := LoadFromReader(strings.NewReader(`# Global options
log.level debug

[runner]
interval 50ms
max-ticks 10

[builder]
agent_name  scout
speed 2.5
`))
	require.NoError(t, err)
	require.Empty(t, c.Warnings)

	v, ok := c.Option("", "log.level")
	require.True(t, ok)
	require.Equal(t, "debug", v)

	v, ok = c.Option("runner", "interval")
	require.True(t, ok)
	require.Equal(t, "50ms", v)

	v, ok = c.Option("runner", "log.level")
	require.True(t, ok, "section options fall back to globals")
	require.Equal(t, "debug", v)

	_, ok = c.Option("board", "dir")
	require.False(t, ok)

	require.Equal(t, map[string]any{"agent_name": "scout", "speed": "2.5"}, c.BuilderAttrs())
}

func TestConfigWarnings(t *testing.T) {
	t.Parallel()

	c, err := LoadFromReader(strings.NewReader(`
colour blue
[runner]
interval soon
bogus 1
[nowhere]
x 1
`))
	require.NoError(t, err)
	require.True(t, c.HasWarnings())
	require.Equal(t, []string{
		`option "interval" in [runner]: expected duration, got "soon"`,
		`unknown global option: "colour" (value: "blue")`,
		`unknown option in [runner]: "bogus" (value: "1")`,
		`unknown section: [nowhere]`,
	}, c.Warnings)
}

func TestConfigEmptySection(t *testing.T) {
	t.Parallel()

	_, err := LoadFromReader(strings.NewReader("[ ]\n"))
	require.Error(t, err)
}

func TestLoadFromPath(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	c, err := LoadFromPath(filepath.Join(dir, "missing"))
	require.NoError(t, err)
	require.Empty(t, c.Global)

	path := filepath.Join(dir, "config")
	require.NoError(t, os.WriteFile(path, []byte("log.format json\n"), 0o644))
	c, err = LoadFromPath(path)
	require.NoError(t, err)
	require.Equal(t, "json", c.Global["log.format"])

	link := filepath.Join(dir, "link")
	if err := os.Symlink(path, link); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}
	_, err = LoadFromPath(link)
	require.ErrorContains(t, err, "symlink not allowed")
}

func TestSettingsDefaults(t *testing.T) {
	t.Setenv("ARBOR_LOG_LEVEL", "")
	os.Unsetenv("ARBOR_LOG_LEVEL")
	for _, env := range []string{"ARBOR_BOARD_DIR", "ARBOR_REDIS_ADDR", "ARBOR_REDIS_PASSWORD"} {
		t.Setenv(env, "")
		os.Unsetenv(env)
	}

	s, err := NewConfig().Settings()
	require.NoError(t, err)
	require.Equal(t, Settings{
		Log:     LogSettings{Level: "info", Format: "text"},
		Convert: ConvertSettings{CacheSize: 1000},
		Runner: RunnerSettings{
			Interval:       100 * time.Millisecond,
			StopOnTerminal: true,
		},
		Board: BoardSettings{RedisPrefix: "arbor:board:", TrackEvery: 1},
	}, s)
}

func TestSettingsOverrides(t *testing.T) {
	t.Setenv("ARBOR_REDIS_ADDR", "localhost:6379")
	t.Setenv("ARBOR_LOG_LEVEL", "warn")

	c := NewConfig()
	c.Set("", "log.level", "debug")
	c.Set("runner", "interval", "2s")
	c.Set("runner", "stop-on-terminal", "no")
	c.Set("runner", "seed", "42")
	c.Set("board", "track-every", "5")
	c.Set("", "convert.cache-size", "50")

	s, err := c.Settings()
	require.NoError(t, err)
	require.Equal(t, "warn", s.Log.Level)
	require.Equal(t, 2*time.Second, s.Runner.Interval)
	require.False(t, s.Runner.StopOnTerminal)
	require.Equal(t, uint64(42), s.Runner.Seed)
	require.Equal(t, 5, s.Board.TrackEvery)
	require.Equal(t, 50, s.Convert.CacheSize)
	require.Equal(t, "localhost:6379", s.Board.RedisAddr)

	c.Set("runner", "max-ticks", "many")
	_, err = c.Settings()
	require.ErrorContains(t, err, "runner.max-ticks")
}

func TestFormatHelp(t *testing.T) {
	t.Parallel()

	help := DefaultSchema().FormatHelp()
	require.Contains(t, help, "Global Options:")
	require.Contains(t, help, "[runner] Options:")
	require.Contains(t, help, "[builder] Options:")
	require.Contains(t, help, "env: ARBOR_REDIS_ADDR")
}
