package metrics

import (
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/joeycumines/arbor/internal/bt"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

// failing is a leaf whose update always errors.
type failing struct {
	bt.Base
}

func (n *failing) Update() (bt.Status, error) { return bt.Invalid, errors.New("boom") }

func newTree(t *testing.T, c *Collector, root bt.Node) *bt.Tree {
	t.Helper()
	tree := bt.NewTree(root,
		bt.WithName("demo"),
		bt.WithObserver(c),
		bt.WithContext(bt.NewContext(bt.WithOutput(io.Discard))))
	require.NoError(t, tree.Setup(bt.SetupOptions{}))
	return tree
}

func TestCollector(t *testing.T) {
	t.Parallel()

	c := NewCollector()
	reg := prometheus.NewPedanticRegistry()
	require.NoError(t, reg.Register(c))

	tree := newTree(t, c, bt.Must(bt.NewInverter(nil, bt.Must(bt.NewSuccess(nil)))))
	for range 3 {
		_, err := tree.Tick()
		require.NoError(t, err)
	}
	tree.Reset()

	require.Equal(t, 3.0, testutil.ToFloat64(c.ticks.WithLabelValues("demo", "FAILURE")))
	require.Equal(t, 1.0, testutil.ToFloat64(c.resets.WithLabelValues("demo")))
	require.Equal(t, 1, testutil.CollectAndCount(c, "arbor_tree_tick_duration_seconds"))

	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(`
# HELP arbor_tree_resets_total Tree resets.
# TYPE arbor_tree_resets_total counter
arbor_tree_resets_total{tree="demo"} 1
# HELP arbor_tree_ticks_total Tree ticks by resulting root status.
# TYPE arbor_tree_ticks_total counter
arbor_tree_ticks_total{status="FAILURE",tree="demo"} 3
`), "arbor_tree_resets_total", "arbor_tree_ticks_total"))
}

func TestCollector_errors(t *testing.T) {
	t.Parallel()

	c := NewCollector()
	root := &failing{}
	root.Init(root, "Failing", bt.KindAction, nil)
	tree := newTree(t, c, root)

	_, err := tree.Tick()
	require.Error(t, err)
	require.Equal(t, 1.0, testutil.ToFloat64(c.errors.WithLabelValues("demo")))
	require.Zero(t, testutil.CollectAndCount(c.ticks))
}
