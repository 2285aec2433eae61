package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/joeycumines/arbor/internal/board"
	"github.com/joeycumines/arbor/internal/bt"
	"github.com/joeycumines/arbor/internal/config"
	"github.com/stretchr/testify/require"
)

const demoTree = `{
  "tag": "Sequence",
  "data": {"name": "demo"},
  "children": [
    {"tag": "Print", "data": {"msg": "hello {{ who }}"}},
    {"tag": "Success"}
  ]
}`

// execute runs the root command with an isolated (missing) config file.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCmd()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--config", filepath.Join(t.TempDir(), "config")}, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeTree(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestVersion(t *testing.T) {
	t.Parallel()

	out, _, err := execute(t, "version")
	require.NoError(t, err)
	require.Equal(t, "arbor version "+version+"\n", out)
}

func TestTags(t *testing.T) {
	t.Parallel()

	out, _, err := execute(t, "tags")
	require.NoError(t, err)
	require.Contains(t, out, "Sequence")
	require.Contains(t, out, "Include")
	require.NotContains(t, out, "bt.Sequence")
	require.NotContains(t, out, "is_match_rule")

	out, _, err = execute(t, "tags", "--all")
	require.NoError(t, err)
	require.Contains(t, out, "bt.Sequence")
	require.Contains(t, out, "is_match_rule")
}

func TestRun(t *testing.T) {
	t.Parallel()

	path := writeTree(t, "demo.json", demoTree)
	export := filepath.Join(t.TempDir(), "final.xml")
	out, errOut, err := execute(t, "run", path, "--set", "who=world", "--interval", "1ms", "--export", export)
	require.NoError(t, err)
	require.Equal(t, "hello world\n", out)
	require.Contains(t, errOut, "demo: SUCCESS after 1 ticks")

	data, err := os.ReadFile(export)
	require.NoError(t, err)
	require.Contains(t, string(data), `<Sequence`)
	require.Contains(t, string(data), `status="SUCCESS"`)
}

func TestRun_MaxTicks(t *testing.T) {
	t.Parallel()

	path := writeTree(t, "wait.yaml", "tag: Running\ndata:\n  name: wait\n")
	_, errOut, err := execute(t, "run", path, "--interval", "1ms", "--ticks", "3")
	require.NoError(t, err)
	require.Contains(t, errOut, "wait: RUNNING after 3 ticks")
}

func TestRun_BuildError(t *testing.T) {
	t.Parallel()

	path := writeTree(t, "bad.json", `{"tag": "NoSuchNode"}`)
	_, _, err := execute(t, "run", path)
	require.ErrorContains(t, err, "NoSuchNode")

	_, _, err = execute(t, "run", path, "--set", "novalue")
	require.ErrorContains(t, err, "key=value")
}

func TestRun_BoardDir(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := writeTree(t, "demo.json", demoTree)
	_, _, err := execute(t, "run", path, "--interval", "1ms", "--board-dir", dir)
	require.NoError(t, err)

	store, err := board.NewFSStore(dir)
	require.NoError(t, err)
	defer store.Close()
	e, err := store.Current(context.Background(), "demo")
	require.NoError(t, err)
	require.Equal(t, 1, e.ID)
	require.Equal(t, 1, e.Step)
	require.Equal(t, "SUCCESS", e.Info["status"])
}

func TestRun_Redis(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	path := writeTree(t, "demo.json", demoTree)
	_, _, err := execute(t, "run", path, "--interval", "1ms", "--redis-addr", mr.Addr())
	require.NoError(t, err)

	store := board.NewRedisStore(mr.Addr(), "", 0)
	defer store.Close()
	var entries []board.Entry
	for e, err := range store.Entries(context.Background(), "demo") {
		require.NoError(t, err)
		entries = append(entries, e)
	}
	require.Len(t, entries, 1)
	require.Equal(t, 1, entries[0].Step)
	require.NotNil(t, entries[0].Tree)
	require.Equal(t, "Sequence", entries[0].Tree.Tag)
}

func TestExport(t *testing.T) {
	t.Parallel()

	path := writeTree(t, "demo.json", demoTree)
	out, _, err := execute(t, "export", path, "--ticks", "1", "--set", "who=you")
	require.NoError(t, err)

	var rec bt.Record
	require.NoError(t, json.Unmarshal([]byte(out), &rec))
	require.Equal(t, "Sequence", rec.Tag)
	require.Equal(t, "SUCCESS", rec.Data[bt.KeyStatus])
	require.Len(t, rec.Children, 2)
	require.Equal(t, "hello you", rec.Children[0].Data["curr_msg"])

	_, _, err = execute(t, "export", path, "--format", "csv")
	require.Error(t, err)
}

func TestConfig(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cfg := filepath.Join(dir, "config")
	require.NoError(t, os.WriteFile(cfg, []byte("[runner]\ninterval 5ms\n[board]\nredis-password secret\n[bogus]\nx 1\n"), 0o600))

	cmd := newRootCmd()
	var stdout bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--config", cfg, "config"})
	require.NoError(t, cmd.Execute())

	out := stdout.String()
	require.Contains(t, out, "[runner] Options:")
	require.Contains(t, out, "runner.interval = 5ms")
	require.Contains(t, out, "convert.cache-size = 1000")
	require.Contains(t, out, "board.redis-password = ********")
	require.NotContains(t, out, "secret")
	require.Contains(t, out, "unknown section: [bogus]")
}

func TestNewLogger(t *testing.T) {
	t.Parallel()

	_, err := newLogger(&bytes.Buffer{}, config.LogSettings{Level: "loud"})
	require.Error(t, err)
	_, err = newLogger(&bytes.Buffer{}, config.LogSettings{Format: "yaml"})
	require.Error(t, err)

	var buf bytes.Buffer
	logger, err := newLogger(&buf, config.LogSettings{Level: "debug", Format: "json"})
	require.NoError(t, err)
	logger.Debug("[Runner] hello")
	require.Contains(t, buf.String(), `"msg":"[Runner] hello"`)
}
