package bt

import (
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"maps"
	"math/rand/v2"
	"slices"

	"github.com/google/uuid"
	"github.com/joeycumines/arbor/internal/convert"
)

// Kind is the closed set of node capabilities.
type Kind int

const (
	KindAction Kind = iota
	KindCondition
	KindComposite
	KindDecorator
)

func (k Kind) String() string {
	switch k {
	case KindAction:
		return "action"
	case KindCondition:
		return "condition"
	case KindComposite:
		return "composite"
	case KindDecorator:
		return "decorator"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// DebugInfo holds per-node lifecycle counters.
type DebugInfo struct {
	TickCount       int `json:"tick_count" yaml:"tick_count" mapstructure:"tick_count"`
	UpdateCount     int `json:"update_count" yaml:"update_count" mapstructure:"update_count"`
	ResetCount      int `json:"reset_count" yaml:"reset_count" mapstructure:"reset_count"`
	TerminateCount  int `json:"terminate_count" yaml:"terminate_count" mapstructure:"terminate_count"`
	InitialiseCount int `json:"initialise_count" yaml:"initialise_count" mapstructure:"initialise_count"`
}

// Loader loads a tree from a file. The builder implements it and is handed to
// every node at setup, so that nodes can splice in external sub-trees.
type Loader interface {
	LoadFile(path string) (Node, error)
}

// SetupOptions are passed to every node when the tree is set up.
type SetupOptions struct {
	Loader Loader
}

// Node is a behavior tree node.
//
// Every concrete node embeds Base (directly or through Composite, Decorator
// or Action) and calls Base.Init with itself, which gives the lifecycle
// methods on Base access to the overriding hooks of the concrete type.
type Node interface {
	ID() uuid.UUID
	SetID(id uuid.UUID)
	Tag() string
	Name() string
	Label() string
	Kind() Kind
	Status() Status
	SetStatus(s Status)
	Parent() Node
	Children() []Node
	Attrs() Attrs
	Context() *Context
	Converter() *convert.Converter
	Debug() DebugInfo

	// Setup receives the shared context. It is called exactly once, before
	// the first tick.
	Setup(ctx *Context, opts SetupOptions) error
	// Tick runs one step of the node lifecycle.
	Tick() error
	// Stop ends the current activation with s.
	Stop(s Status)
	// Reset invalidates the node and restarts its updater.
	Reset()
	// Tip returns the deepest node currently holding execution attention.
	Tip() Node

	Initialise()
	Update() (Status, error)
	Terminate(s Status)
	// NewUpdater returns the node's resumable computation.
	NewUpdater() Updater
	// Data returns node state surfaced by export, on top of the attributes.
	Data() Attrs

	base() *Base
}

// Args are handed to a Constructor by the builder.
type Args struct {
	Tag      string
	Attrs    Attrs
	Children []Node
}

// Constructor builds a node from merged attributes and built children.
type Constructor func(Args) (Node, error)

// Ctor adapts a typed node constructor to a Constructor.
func Ctor[T Node](fn func(attrs Attrs, children ...Node) (T, error)) Constructor {
	return func(a Args) (Node, error) {
		n, err := fn(a.Attrs, a.Children...)
		if err != nil {
			return nil, err
		}
		return n, nil
	}
}

// Must panics if err is non-nil.
func Must[T Node](n T, err error) T {
	if err != nil {
		panic(err)
	}
	return n
}

// Restorer is implemented by nodes with inspection state that can be
// restored from exported data.
type Restorer interface {
	Restore(data Attrs) error
}

// IndexGenerator is implemented by composites that restart scanning from a
// computed child index instead of 0.
type IndexGenerator interface {
	GenIndex() (int, error)
}

// Base implements the node lifecycle shared by every node.
type Base struct {
	self     Node
	id       uuid.UUID
	tag      string
	name     string
	kind     Kind
	status   Status
	parent   Node
	children []Node
	attrs    Attrs
	ctx      *Context
	conv     *convert.Converter
	updater  Updater
	debug    DebugInfo
	isSetup  bool
}

// Init wires the node. self must be the concrete node embedding b.
func (b *Base) Init(self Node, tag string, kind Kind, attrs Attrs) {
	b.self = self
	b.id = uuid.New()
	b.tag = tag
	b.kind = kind
	b.attrs = attrs.Clone()
	for _, key := range presetKeys {
		delete(b.attrs, key)
	}
	b.name = tag
	if v, ok := b.attrs[KeyName]; ok {
		if s := convert.Format(v); s != "" {
			b.name = s
		}
	}
	b.conv = convert.New(b.environment, convert.WithRand(b.rand))
}

// rand is the context's random source, once the node is set up.
func (b *Base) rand() *rand.Rand {
	if b.ctx == nil {
		return nil
	}
	return b.ctx.Rand()
}

// environment is the converter symbol table: the context, overlaid by the
// node's own attributes.
func (b *Base) environment() map[string]any {
	env := b.ctx.Snapshot()
	maps.Copy(env, b.attrs)
	return env
}

func (b *Base) base() *Base { return b }

func (b *Base) ID() uuid.UUID          { return b.id }
func (b *Base) SetID(id uuid.UUID)     { b.id = id }
func (b *Base) Tag() string            { return b.tag }
func (b *Base) Name() string           { return b.name }
func (b *Base) Kind() Kind             { return b.kind }
func (b *Base) Status() Status         { return b.status }
func (b *Base) SetStatus(s Status)     { b.status = s }
func (b *Base) Parent() Node           { return b.parent }
func (b *Base) Children() []Node       { return b.children }
func (b *Base) Attrs() Attrs           { return b.attrs }
func (b *Base) Context() *Context      { return b.ctx }
func (b *Base) Debug() DebugInfo       { return b.debug }

// Converter resolves attributes against the context and the node's own
// attributes.
func (b *Base) Converter() *convert.Converter { return b.conv }

// Label renders the label attribute, falling back to the name.
func (b *Base) Label() string {
	v, ok := b.attrs[KeyLabel]
	if !ok {
		return b.name
	}
	s, err := b.conv.Render(v)
	if err != nil {
		return convert.Format(v)
	}
	return s
}

// Tip returns the node itself; composites and decorators descend.
func (b *Base) Tip() Node { return b.self }

func (b *Base) logger() *slog.Logger { return b.ctx.Logger() }

func (b *Base) logAttrs(extra ...any) []any {
	return append([]any{"node", b.name, "tag", b.tag, "id", b.id}, extra...)
}

func (b *Base) Setup(ctx *Context, opts SetupOptions) error {
	if b.isSetup {
		return fmt.Errorf("%w: node %q", ErrAlreadySetup, b.name)
	}
	b.isSetup = true
	b.ctx = ctx
	name, err := b.conv.Render(b.name)
	if err != nil {
		return err
	}
	b.name = name
	return nil
}

// Tick runs the lifecycle: Initialise when not resuming, one Update step,
// and Stop once the result is terminal.
func (b *Base) Tick() error {
	b.debug.TickCount++
	b.logger().Debug("[BT] tick", b.logAttrs()...)
	if b.status != Running {
		b.self.Initialise()
	}
	s, err := b.self.Update()
	if err != nil {
		return err
	}
	b.commit(b.checked(s))
	return nil
}

// commit stops the node when s is terminal, then records s.
func (b *Base) commit(s Status) {
	if s != Running {
		b.self.Stop(s)
	}
	b.status = s
}

// checked downgrades values outside the status set to Invalid.
func (b *Base) checked(s Status) Status {
	if s.Valid() {
		return s
	}
	b.logger().Error("[BT] update returned a value outside the status set", b.logAttrs("value", int(s))...)
	return Invalid
}

// Update pulls one value from the updater. An exhausted updater is restarted
// and pulled once more; if it is still exhausted the result is Invalid.
func (b *Base) Update() (Status, error) {
	b.debug.UpdateCount++
	if b.updater == nil {
		b.updater = b.self.NewUpdater()
	}
	for range 2 {
		s, err := b.updater.Next()
		if errors.Is(err, ErrUpdaterDone) {
			b.updater.Restart()
			continue
		}
		return s, err
	}
	return Invalid, nil
}

// NewUpdater returns an updater yielding a single Invalid.
func (b *Base) NewUpdater() Updater { return Statuses(Invalid) }

func (b *Base) Stop(s Status) {
	b.logger().Debug("[BT] stop", b.logAttrs("from", b.status, "to", s)...)
	b.self.Terminate(s)
	b.status = s
	if s == Invalid {
		b.restartUpdater()
	}
}

func (b *Base) restartUpdater() {
	if b.updater != nil {
		b.updater.Restart()
	}
}

func (b *Base) Initialise() {
	b.debug.InitialiseCount++
	b.logger().Debug("[BT] initialise", b.logAttrs()...)
}

func (b *Base) Terminate(s Status) {
	b.debug.TerminateCount++
	b.logger().Debug("[BT] terminate", b.logAttrs("status", s)...)
}

func (b *Base) Reset() {
	b.debug.ResetCount++
	b.restartUpdater()
	if b.status != Invalid {
		b.self.Stop(Invalid)
	}
}

// Data returns the condition score for condition-like nodes.
func (b *Base) Data() Attrs {
	if b.kind == KindCondition {
		return Attrs{"condition_score": ConditionScore(b.self)}
	}
	return Attrs{}
}

// ConditionScore rates how far a condition is from being met: 1 on
// success, 0.5 while running, 0 otherwise.
func ConditionScore(n Node) float64 {
	switch n.Status() {
	case Success:
		return 1
	case Running:
		return 0.5
	default:
		return 0
	}
}

// adopt attaches children to b, failing if any already has a parent or
// appears twice.
func (b *Base) adopt(op string, children ...Node) error {
	for i, child := range children {
		if child == nil {
			return &StructuralError{Op: op, Parent: b.name, Child: "<nil>", Err: errors.New("nil child")}
		}
		if child.Parent() != nil {
			return &StructuralError{Op: op, Parent: b.name, Child: child.Name(), Err: ErrAlreadyParented}
		}
		if slices.Contains(children[:i], child) {
			return &StructuralError{Op: op, Parent: b.name, Child: child.Name(), Err: ErrDuplicateChild}
		}
	}
	for _, child := range children {
		child.base().parent = b.self
	}
	return nil
}

func (b *Base) indexOf(child Node) int {
	for i, c := range b.children {
		if c == child {
			return i
		}
	}
	return -1
}

// invalidate stops n with Invalid unless it is already invalid.
func invalidate(n Node) {
	if n.Status() != Invalid {
		n.Stop(Invalid)
	}
}

// All iterates n and its descendants in pre-order. Children are read after
// the parent has been yielded, so nodes attached while visiting are
// included.
func All(n Node) iter.Seq[Node] {
	return func(yield func(Node) bool) {
		walk(n, yield)
	}
}

func walk(n Node, yield func(Node) bool) bool {
	if !yield(n) {
		return false
	}
	for _, child := range n.Children() {
		if !walk(child, yield) {
			return false
		}
	}
	return true
}

// Find returns the node with the given id in the subtree rooted at n.
func Find(n Node, id uuid.UUID) (Node, bool) {
	for node := range All(n) {
		if node.ID() == id {
			return node, true
		}
	}
	return nil, false
}
