package bt

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestStatus_Parse(t *testing.T) {
	t.Parallel()

	s, err := ParseStatus("running")
	require.NoError(t, err)
	require.Equal(t, Running, s)

	set, err := ParseStatusSet("SUCCESS|failure|SUCCESS")
	require.NoError(t, err)
	require.Equal(t, []Status{Success, Failure}, set)

	_, err = ParseStatus("DONE")
	require.Error(t, err)
	_, err = ParseStatusSet(" | ")
	require.Error(t, err)

	require.Equal(t, "Status(9)", Status(9).String())
	_, err = Status(9).MarshalText()
	require.Error(t, err)
}

func TestNode_Lifecycle(t *testing.T) {
	t.Parallel()

	n := newCustom(func() Updater {
		return Steps(
			func() (Status, error) { return Running, nil },
			func() (Status, error) { return Success, nil },
		)
	})
	tree := newTree(t, n)

	require.Equal(t, Running, tick(t, tree))
	require.Equal(t, Success, tick(t, tree))
	// exhausted: restarted transparently within the same update
	require.Equal(t, Running, tick(t, tree))

	require.Equal(t, DebugInfo{
		TickCount:       3,
		UpdateCount:     3,
		InitialiseCount: 2,
		TerminateCount:  1,
	}, n.Debug())
}

func TestNode_EmptyUpdaterYieldsInvalid(t *testing.T) {
	t.Parallel()

	n := newCustom(func() Updater { return Statuses() })
	tree := newTree(t, n)

	require.Equal(t, Invalid, tick(t, tree))
	require.Equal(t, 1, n.Debug().TerminateCount)
}

func TestNode_FiniteUpdaterRestarts(t *testing.T) {
	t.Parallel()

	n := newCustom(func() Updater { return Statuses(Failure) })
	tree := newTree(t, n)
	for range 3 {
		require.Equal(t, Failure, tick(t, tree))
	}
}

func TestNode_ContractViolation(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	n := newCustom(func() Updater { return Forever(Status(42)) })
	tree := newTree(t, n, WithLogger(logger))

	require.Equal(t, Invalid, tick(t, tree))
	require.Contains(t, buf.String(), "outside the status set")
}

func TestNode_UpdateErrorPropagates(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	n := newCustom(func() Updater {
		return Loop(func() (Status, error) { return Invalid, boom })
	})
	seq := Must(NewSequence(nil, n))
	tree := newTree(t, seq)

	_, err := tree.Tick()
	require.ErrorIs(t, err, boom)
}

func TestNode_Reset(t *testing.T) {
	t.Parallel()

	n := newScripted("a", Running)
	tree := newTree(t, n)
	require.Equal(t, Running, tick(t, tree))

	n.Reset()
	require.Equal(t, Invalid, n.Status())
	require.Equal(t, 1, n.Debug().ResetCount)
	require.Equal(t, 1, n.Debug().TerminateCount)
}

func TestNode_NameRenderedAtSetup(t *testing.T) {
	t.Parallel()

	n := Must(NewSuccess(Attrs{KeyName: "agent-{{ id }}", KeyLabel: "L{{ id }}"}))
	require.Equal(t, "agent-{{ id }}", n.Name())
	newTree(t, n, WithValues(map[string]any{"id": 7}))
	require.Equal(t, "agent-7", n.Name())
	require.Equal(t, "L7", n.Label())
}

func TestTree_SetupAndTickErrors(t *testing.T) {
	t.Parallel()

	tree := NewTree(Must(NewSuccess(nil)))
	_, err := tree.Tick()
	require.ErrorIs(t, err, ErrNotSetup)

	require.NoError(t, tree.Setup(SetupOptions{}))
	require.ErrorIs(t, tree.Setup(SetupOptions{}), ErrAlreadySetup)

	require.Equal(t, Success, tick(t, tree))
	require.Equal(t, 1, tree.Count())
}

func TestTree_Reset(t *testing.T) {
	t.Parallel()

	a := newScripted("a", Success)
	b := newScripted("b", Running)
	seq := Must(NewSequence(nil, a, b))
	tree := newTree(t, seq)
	require.Equal(t, Running, tick(t, tree))

	var fired int
	tree.OnReset(func(tr *Tree) {
		fired++
		require.Equal(t, 1, tr.Round())
	})
	tree.Reset()

	require.Equal(t, 1, fired)
	for n := range All(seq) {
		require.Equal(t, Invalid, n.Status(), n.Name())
	}
	require.Nil(t, seq.Current())
}

func TestTree_Find(t *testing.T) {
	t.Parallel()

	leaf := newScripted("leaf", Success)
	tree := newTree(t, Must(NewSequence(nil, Must(NewInverter(nil, leaf)))))

	found, ok := tree.Find(leaf.ID())
	require.True(t, ok)
	require.Same(t, leaf, found)

	_, ok = tree.Find(uuid.New())
	require.False(t, ok)
}

func TestUpdater_Machine(t *testing.T) {
	t.Parallel()

	m := NewMachine(func(pc int) (Status, int, error) {
		if pc < 2 {
			return Running, pc + 1, nil
		}
		return Success, -1, nil
	})
	for _, want := range []Status{Running, Running, Success} {
		s, err := m.Next()
		require.NoError(t, err)
		require.Equal(t, want, s)
	}
	_, err := m.Next()
	require.ErrorIs(t, err, ErrUpdaterDone)
	m.Restart()
	require.Equal(t, 0, m.PC())
}

func TestContext(t *testing.T) {
	t.Parallel()

	ctx := NewContext(WithValues(map[string]any{"b": 2}))
	ctx.Set("a", 1)
	require.True(t, ctx.Has("a"))
	require.Equal(t, []string{"a", "b"}, ctx.Keys())

	snap := ctx.Snapshot()
	snap["c"] = 3
	require.False(t, ctx.Has("c"))

	ctx.Delete("a")
	require.Equal(t, 1, ctx.Len())
	ctx.Clear()
	require.Zero(t, ctx.Len())

	clock := &fakeClock{now: 12}
	require.Equal(t, 12.0, NewContext(WithClock(clock.Now)).Now())
}
