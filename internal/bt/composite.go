package bt

import (
	"fmt"
	"slices"

	"github.com/google/uuid"
)

// Resume selects how a composite continues across ticks.
type Resume int

const (
	// ResumeDefault resumes the child that was running.
	ResumeDefault Resume = iota
	// ResumeMemory also resumes after a terminal result that stopped the scan.
	ResumeMemory
	// ResumeReactive always restarts from the first child.
	ResumeReactive
)

func (r Resume) String() string {
	switch r {
	case ResumeMemory:
		return "memory"
	case ResumeReactive:
		return "reactive"
	default:
		return "default"
	}
}

// Composite is the base of multi-child nodes. It tracks the child currently
// holding execution attention.
type Composite struct {
	Base
	current Node
	// fixed pins the resume mode; otherwise the reactive and memory
	// attributes are read on every tick.
	fixed bool
	mode  Resume
}

// InitComposite wires a composite and attaches its children.
func (c *Composite) InitComposite(self Node, tag string, attrs Attrs, children []Node) error {
	c.Init(self, tag, KindComposite, attrs)
	return c.AddChildren(children...)
}

// pin fixes the resume mode, ignoring the reactive and memory attributes.
func (c *Composite) pin(mode Resume) {
	c.fixed = true
	c.mode = mode
}

// Mode returns the effective resume mode.
func (c *Composite) Mode() (Resume, error) {
	if c.fixed {
		return c.mode, nil
	}
	reactive, err := c.flag("reactive")
	if err != nil {
		return ResumeDefault, err
	}
	if reactive {
		return ResumeReactive, nil
	}
	memory, err := c.flag("memory")
	if err != nil {
		return ResumeDefault, err
	}
	if memory {
		return ResumeMemory, nil
	}
	return ResumeDefault, nil
}

func (c *Composite) flag(key string) (bool, error) {
	v, ok := c.attrs[key]
	if !ok {
		return false, nil
	}
	return c.conv.Bool(v)
}

// Current returns the child currently holding execution attention.
func (c *Composite) Current() Node { return c.current }

// CurrentIndex returns the index of the current child, or -1.
func (c *Composite) CurrentIndex() int {
	if c.current == nil {
		return -1
	}
	return c.indexOf(c.current)
}

// Tip descends into the current child.
func (c *Composite) Tip() Node {
	if c.current != nil {
		return c.current.Tip()
	}
	return c.self
}

// Stop forgets the current child and invalidates every child on Invalid.
// Terminal stops keep the current child for introspection.
func (c *Composite) Stop(s Status) {
	if s == Invalid {
		c.current = nil
		for _, child := range c.children {
			invalidate(child)
		}
	}
	c.Base.Stop(s)
}

// Data exports the resume flags and the current child index.
func (c *Composite) Data() Attrs {
	mode, _ := c.Mode()
	data := c.Base.Data()
	data["reactive"] = mode == ResumeReactive
	data["memory"] = mode == ResumeMemory
	if i := c.CurrentIndex(); i >= 0 {
		data["current_index"] = i
	} else {
		data["current_index"] = nil
	}
	return data
}

// Restore reinstates the current child from exported data.
func (c *Composite) Restore(data Attrs) error {
	v, ok := data["current_index"]
	if !ok || v == nil {
		return nil
	}
	i, err := c.conv.Int(v)
	if err != nil {
		return err
	}
	if i >= 0 && i < len(c.children) {
		c.current = c.children[i]
	}
	return nil
}

// AddChild appends a child.
func (c *Composite) AddChild(child Node) error {
	return c.InsertChild(child, len(c.children))
}

// AddChildren appends children in order. No child is attached unless all can
// be.
func (c *Composite) AddChildren(children ...Node) error {
	if err := c.adopt("add", children...); err != nil {
		return err
	}
	c.children = append(c.children, children...)
	return nil
}

// PrependChild inserts a child before every other child.
func (c *Composite) PrependChild(child Node) error {
	return c.InsertChild(child, 0)
}

// InsertChild inserts a child at index, clamped to the valid range.
func (c *Composite) InsertChild(child Node, index int) error {
	if err := c.adopt("insert", child); err != nil {
		return err
	}
	index = max(0, min(index, len(c.children)))
	c.children = slices.Insert(c.children, index, child)
	return nil
}

// RemoveChild detaches a child, stopping it if it is running, and returns
// its former index.
func (c *Composite) RemoveChild(child Node) (int, error) {
	i := c.indexOf(child)
	if i < 0 {
		name := "<nil>"
		if child != nil {
			name = child.Name()
		}
		return -1, &StructuralError{Op: "remove", Parent: c.name, Child: name, Err: ErrChildNotFound}
	}
	c.detach(child)
	c.children = slices.Delete(c.children, i, i+1)
	return i, nil
}

// RemoveChildByID detaches the child with the given id.
func (c *Composite) RemoveChildByID(id uuid.UUID) (Node, error) {
	for _, child := range c.children {
		if child.ID() == id {
			_, err := c.RemoveChild(child)
			return child, err
		}
	}
	return nil, &StructuralError{Op: "remove", Parent: c.name, Child: id.String(), Err: ErrChildNotFound}
}

// RemoveAllChildren detaches every child.
func (c *Composite) RemoveAllChildren() {
	for _, child := range c.children {
		c.detach(child)
	}
	c.current = nil
	c.children = nil
}

// ReplaceChild swaps child for replacement at the same position.
func (c *Composite) ReplaceChild(child, replacement Node) error {
	i := c.indexOf(child)
	if i < 0 {
		return &StructuralError{Op: "replace", Parent: c.name, Child: child.Name(), Err: ErrChildNotFound}
	}
	if err := c.adopt("replace", replacement); err != nil {
		return err
	}
	c.detach(child)
	c.children[i] = replacement
	return nil
}

func (c *Composite) detach(child Node) {
	if c.current == child {
		c.current = nil
	}
	if child.Status() == Running {
		child.Stop(Invalid)
	}
	child.base().parent = nil
}

// seqSel parameterises the sequence/selector scan.
type seqSel struct {
	tickAgain []Status
	cont      []Status
	noChild   Status
}

// tickSeqSel resumes at the current child when the previous status is in
// tickAgain, otherwise restarts at GenIndex. It ticks children left to right
// while their status is in cont, then invalidates every child after the
// last one ticked.
func (c *Composite) tickSeqSel(p seqSel) error {
	c.debug.TickCount++
	c.logger().Debug("[BT] tick", c.logAttrs("from", c.status)...)
	if c.status != Running {
		c.self.Initialise()
	}
	c.debug.UpdateCount++

	start := c.CurrentIndex()
	if !statusIn(c.status, p.tickAgain) || start < 0 {
		c.current = nil
		var err error
		if start, err = c.startIndex(); err != nil {
			return err
		}
	}

	last := -1
	for i := start; i < len(c.children); i++ {
		child := c.children[i]
		c.current = child
		last = i
		if err := child.Tick(); err != nil {
			return err
		}
		if !statusIn(child.Status(), p.cont) {
			break
		}
	}

	s := p.noChild
	if last >= 0 {
		s = c.children[last].Status()
		for _, child := range c.children[last+1:] {
			invalidate(child)
		}
	}
	c.commit(c.checked(s))
	return nil
}

func (c *Composite) startIndex() (int, error) {
	g, ok := c.self.(IndexGenerator)
	if !ok {
		return 0, nil
	}
	i, err := g.GenIndex()
	if err != nil {
		return 0, err
	}
	if i < 0 || i > len(c.children) {
		return 0, fmt.Errorf("bt: %s start index %d out of range [0, %d]", c.name, i, len(c.children))
	}
	return i, nil
}
