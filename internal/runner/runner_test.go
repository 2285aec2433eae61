package runner

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/joeycumines/arbor/internal/bt"
	gbt "github.com/joeycumines/go-behaviortree"
	"github.com/stretchr/testify/require"
)

const interval = time.Millisecond

func newTree(t *testing.T, root bt.Node, values map[string]any) *bt.Tree {
	t.Helper()
	ctx := bt.NewContext(bt.WithOutput(io.Discard), bt.WithValues(values))
	tree := bt.NewTree(root, bt.WithContext(ctx))
	require.NoError(t, tree.Setup(bt.SetupOptions{}))
	return tree
}

func wait(t *testing.T, done <-chan struct{}) {
	t.Helper()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for runner")
	}
}

func TestRunner_maxTicks(t *testing.T) {
	t.Parallel()

	tree := newTree(t, bt.Must(bt.NewRunning(nil)), nil)
	var seen []bt.Status
	r := Start(context.Background(), tree, Config{
		Interval: interval,
		MaxTicks: 5,
		OnTick: func(_ *bt.Tree, s bt.Status) error {
			seen = append(seen, s)
			return nil
		},
	})
	wait(t, r.Done())
	require.NoError(t, r.Err())
	require.Equal(t, 5, r.Ticks())
	require.Equal(t, 5, tree.Count())
	require.Len(t, seen, 5)
}

func TestRunner_stopOnTerminal(t *testing.T) {
	t.Parallel()

	cond := bt.Must(bt.NewIsMatchRule(bt.Attrs{"rule": "{{ frames >= 3 }}"}))
	root := bt.Must(bt.NewRemap("FailureIsRunning", nil, cond))
	tree := newTree(t, root, map[string]any{"frames": 0})

	r := Start(context.Background(), tree, Config{
		Interval:       interval,
		StopOnTerminal: true,
		OnTick: func(t *bt.Tree, _ bt.Status) error {
			t.Context().Set("frames", t.Count())
			return nil
		},
	})
	require.NoError(t, r.Wait())
	require.Equal(t, 4, tree.Count())
	require.Equal(t, bt.Success, tree.Status())
}

func TestRunner_stopOnFailure(t *testing.T) {
	t.Parallel()

	tree := newTree(t, bt.Must(bt.NewFailure(nil)), nil)
	r := Start(context.Background(), tree, Config{Interval: interval, StopOnFailure: true})
	wait(t, r.Done())
	require.NoError(t, r.Err())
	require.Equal(t, 1, r.Ticks())
}

func TestRunner_error(t *testing.T) {
	t.Parallel()

	tree := newTree(t, bt.Must(bt.NewIsMatchRule(bt.Attrs{"rule": "{{ 1 + }}"})), nil)
	r := Start(context.Background(), tree, Config{Interval: interval})
	err := r.Wait()
	require.Error(t, err)
	require.Zero(t, r.Ticks())
}

func TestRunner_stop(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	tree := newTree(t, bt.Must(bt.NewRunning(nil)), nil)
	r := Start(ctx, tree, Config{Interval: interval})

	require.Eventually(t, func() bool { return r.Ticks() >= 2 }, 5*time.Second, interval)
	r.Stop()
	wait(t, r.Done())

	var count int
	r.Do(func(t *bt.Tree) { count = t.Count() })
	require.Equal(t, r.Ticks(), count)
}

func TestManager(t *testing.T) {
	t.Parallel()

	m := NewManager()
	a, err := m.Start(context.Background(), newTree(t, bt.Must(bt.NewRunning(nil)), nil), Config{Interval: interval, MaxTicks: 2})
	require.NoError(t, err)
	b, err := m.Start(context.Background(), newTree(t, bt.Must(bt.NewSuccess(nil)), nil), Config{Interval: interval, MaxTicks: 3})
	require.NoError(t, err)

	wait(t, m.Done())
	require.NoError(t, m.Err())
	require.Equal(t, 2, a.Ticks())
	require.Equal(t, 3, b.Ticks())
}

func TestStatus(t *testing.T) {
	t.Parallel()

	require.Equal(t, gbt.Running, Status(bt.Running))
	require.Equal(t, gbt.Success, Status(bt.Success))
	require.Equal(t, gbt.Failure, Status(bt.Failure))
	require.Equal(t, gbt.Failure, Status(bt.Invalid))
}
