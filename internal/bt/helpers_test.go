package bt

import (
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

// scripted is a leaf that reports the statuses of its script in turn,
// repeating the last one, and records every tick in a shared log.
type scripted struct {
	Base
	script []Status
	pos    int
	ticks  int
	log    *[]string
}

func newScripted(name string, script ...Status) *scripted {
	n := &scripted{script: script}
	n.Init(n, "Scripted", KindAction, Attrs{KeyName: name})
	return n
}

func (n *scripted) logTo(log *[]string) *scripted {
	n.log = log
	return n
}

func (n *scripted) NewUpdater() Updater {
	return Loop(func() (Status, error) {
		n.ticks++
		if n.log != nil {
			*n.log = append(*n.log, n.name)
		}
		s := n.script[min(n.pos, len(n.script)-1)]
		n.pos++
		return s, nil
	})
}

// custom is a leaf driven by an arbitrary updater.
type custom struct {
	Base
	mk func() Updater
}

func newCustom(mk func() Updater) *custom {
	n := &custom{mk: mk}
	n.Init(n, "Custom", KindAction, nil)
	return n
}

func (n *custom) NewUpdater() Updater { return n.mk() }

type fakeClock struct {
	now float64
}

func (c *fakeClock) Now() float64 { return c.now }

func newTree(t *testing.T, root Node, opts ...ContextOption) *Tree {
	t.Helper()
	opts = append([]ContextOption{WithOutput(io.Discard), WithSeed(1)}, opts...)
	tree := NewTree(root, WithContext(NewContext(opts...)))
	require.NoError(t, tree.Setup(SetupOptions{}))
	return tree
}

func tick(t *testing.T, tree *Tree) Status {
	t.Helper()
	s, err := tree.Tick()
	require.NoError(t, err)
	return s
}
