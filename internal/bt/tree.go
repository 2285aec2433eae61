package bt

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TickObserver is notified after every tree tick and reset.
type TickObserver interface {
	ObserveTick(t *Tree, s Status, elapsed time.Duration, err error)
	ObserveReset(t *Tree)
}

// Tree owns a root node and the context shared by every node under it.
type Tree struct {
	name      string
	root      Node
	ctx       *Context
	observers []TickObserver
	onReset   []func(*Tree)
	count     int
	round     int
	isSetup   bool
}

// TreeOption configures a Tree.
type TreeOption func(*Tree)

// WithName overrides the tree name, which defaults to the root's name.
func WithName(name string) TreeOption {
	return func(t *Tree) { t.name = name }
}

// WithContext supplies the shared context.
func WithContext(ctx *Context) TreeOption {
	return func(t *Tree) { t.ctx = ctx }
}

// WithObserver registers a tick observer.
func WithObserver(o TickObserver) TreeOption {
	return func(t *Tree) { t.observers = append(t.observers, o) }
}

// NewTree creates a tree around root.
func NewTree(root Node, opts ...TreeOption) *Tree {
	t := &Tree{root: root}
	for _, opt := range opts {
		opt(t)
	}
	if t.ctx == nil {
		t.ctx = NewContext()
	}
	if t.name == "" {
		t.name = root.Name()
	}
	return t
}

// Setup hands the shared context to every node, parents before children.
// Nodes attached during setup (by RefFile) are set up as well.
func (t *Tree) Setup(opts SetupOptions) error {
	if t.isSetup {
		return fmt.Errorf("%w: tree %q", ErrAlreadySetup, t.name)
	}
	for n := range All(t.root) {
		if err := n.Setup(t.ctx, opts); err != nil {
			return fmt.Errorf("setup %s %q: %w", n.Tag(), n.Name(), err)
		}
	}
	t.isSetup = true
	return nil
}

// Tick runs one traversal from the root. Node errors are returned as is.
func (t *Tree) Tick() (Status, error) {
	if !t.isSetup {
		return Invalid, fmt.Errorf("%w: tree %q", ErrNotSetup, t.name)
	}
	t.count++
	start := time.Now()
	err := t.root.Tick()
	s := t.root.Status()
	elapsed := time.Since(start)
	for _, o := range t.observers {
		o.ObserveTick(t, s, elapsed, err)
	}
	return s, err
}

// Reset bumps the round, resets every node and fires the reset callbacks.
func (t *Tree) Reset() {
	t.round++
	t.ctx.Logger().Debug("[BT] reset", "tree", t.name, "round", t.round)
	for n := range All(t.root) {
		n.Reset()
	}
	for _, fn := range t.onReset {
		fn(t)
	}
	for _, o := range t.observers {
		o.ObserveReset(t)
	}
}

// OnReset registers a callback fired after every reset.
func (t *Tree) OnReset(fn func(*Tree)) {
	t.onReset = append(t.onReset, fn)
}

func (t *Tree) Name() string      { return t.name }
func (t *Tree) Root() Node        { return t.root }
func (t *Tree) Context() *Context { return t.ctx }
func (t *Tree) Status() Status    { return t.root.Status() }

// Count returns the number of ticks run.
func (t *Tree) Count() int { return t.count }

// Round returns the number of resets.
func (t *Tree) Round() int { return t.round }

// Tip returns the deepest node holding execution attention.
func (t *Tree) Tip() Node { return t.root.Tip() }

// Find returns the node with the given id.
func (t *Tree) Find(id uuid.UUID) (Node, bool) { return Find(t.root, id) }
