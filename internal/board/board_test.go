package board

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/joeycumines/arbor/internal/bt"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTree(t *testing.T) *bt.Tree {
	t.Helper()
	root := bt.Must(bt.NewSequence(bt.Attrs{bt.KeyName: "demo"},
		bt.Must(bt.NewSuccess(nil)),
		bt.Must(bt.NewRunning(nil)),
	))
	tree := bt.NewTree(root, bt.WithContext(bt.NewContext(bt.WithOutput(io.Discard))))
	require.NoError(t, tree.Setup(bt.SetupOptions{}))
	return tree
}

func collect(t *testing.T, b *Board) []Entry {
	t.Helper()
	var entries []Entry
	for e, err := range b.Iterate(context.Background()) {
		require.NoError(t, err)
		entries = append(entries, e)
	}
	return entries
}

// runStoreContract exercises a Store through a Board.
func runStoreContract(t *testing.T, store Store) {
	ctx := context.Background()
	tree := newTree(t)
	now := time.UnixMilli(1_700_000_000_000)
	b := New(tree, store, WithNow(func() time.Time { return now }))
	require.Equal(t, "demo", b.Project())

	_, err := store.Current(ctx, b.Project())
	require.ErrorIs(t, err, ErrNoEntries)
	require.Empty(t, collect(t, b))

	for i := range 11 {
		_, err := tree.Tick()
		require.NoError(t, err)
		e, err := b.Track(ctx, map[string]any{"i": i})
		require.NoError(t, err)
		require.Equal(t, i+1, e.ID)
	}
	require.Equal(t, 11, b.TrackID())

	entries := collect(t, b)
	require.Len(t, entries, 11)
	for i, e := range entries {
		require.Equal(t, i+1, e.ID)
		require.Equal(t, i+1, e.Step)
		require.Equal(t, now.UnixMilli(), e.Time)
		require.EqualValues(t, i, e.Info["i"])
		require.NotNil(t, e.Tree)
		require.Equal(t, "Sequence", e.Tree.Tag)
		require.Equal(t, "RUNNING", e.Tree.Data[bt.KeyStatus])
		require.Len(t, e.Tree.Children, 2)
	}

	current, err := store.Current(ctx, b.Project())
	require.NoError(t, err)
	require.Equal(t, 11, current.ID)
	require.Nil(t, current.Tree)

	require.NoError(t, b.Clear(ctx))
	require.Zero(t, b.TrackID())
	require.Empty(t, collect(t, b))
	_, err = store.Current(ctx, b.Project())
	require.ErrorIs(t, err, ErrNoEntries)

	e, err := b.Track(ctx, nil)
	require.NoError(t, err)
	require.Equal(t, 1, e.ID)
}

func TestFSStore(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	store, err := NewFSStore(dir)
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, store.Close()) })

	runStoreContract(t, store)

	files, err := os.ReadDir(filepath.Join(dir, "demo", historyDir))
	require.NoError(t, err)
	require.Len(t, files, 1)
	_, err = os.Stat(filepath.Join(dir, "demo", currentFile))
	require.NoError(t, err)
}

func TestFSStore_locked(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	store, err := NewFSStore(dir)
	require.NoError(t, err)

	_, err = NewFSStore(dir)
	require.ErrorIs(t, err, ErrLocked)

	require.NoError(t, store.Close())
	require.NoError(t, store.Close())

	store, err = NewFSStore(dir)
	require.NoError(t, err)
	require.NoError(t, store.Close())
}

func TestFSStore_invalidProject(t *testing.T) {
	t.Parallel()

	store, err := NewFSStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	for _, project := range []string{"", "..", "a/b"} {
		require.Error(t, store.Put(context.Background(), project, Entry{ID: 1}), project)
	}
}

func TestFSStore_skipsForeignFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	store, err := NewFSStore(dir)
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	for _, id := range []int{10, 2, 1} {
		require.NoError(t, store.Put(ctx, "p", Entry{ID: id}))
	}
	hist := filepath.Join(dir, "p", historyDir)
	require.NoError(t, os.WriteFile(filepath.Join(hist, "notes.txt"), nil, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(hist, "x.json"), nil, 0o644))

	var ids []int
	for e, err := range store.Entries(ctx, "p") {
		require.NoError(t, err)
		ids = append(ids, e.ID)
	}
	require.Equal(t, []int{1, 2, 10}, ids)
}

func TestAtomicWriteFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "f.json")
	require.NoError(t, atomicWriteFile(path, []byte("one"), 0o600))
	require.NoError(t, atomicWriteFile(path, []byte("two"), 0o600))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "two", string(data))

	files, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	require.Len(t, files, 1)

	blocked := filepath.Join(dir, "blocked")
	require.NoError(t, os.MkdirAll(filepath.Join(blocked, "inside"), 0o755))
	err = atomicWriteFile(blocked, []byte("three"), 0o600)
	require.ErrorContains(t, err, "rename")
	files, err = os.ReadDir(dir)
	require.NoError(t, err)
	for _, f := range files {
		require.NotContains(t, f.Name(), ".tmp-board-", "a failed rename leaves no temporary file")
	}
}

func TestRedisStore(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := NewRedisStoreFromClient(client, WithPrefix("test:"))
	runStoreContract(t, store)

	require.True(t, mr.Exists("test:demo:current"))
	require.True(t, mr.Exists("test:demo:entry:1"))
	require.NoError(t, store.Close())
	require.NoError(t, client.Ping(context.Background()).Err())
}

func TestRedisStore_owned(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	store := NewRedisStore(mr.Addr(), "", 0)
	require.NoError(t, store.Put(context.Background(), "p", Entry{ID: 1}))
	require.True(t, mr.Exists(DefaultRedisPrefix+"p:index"))
	require.NoError(t, store.Close())
}
