package bt

import (
	"errors"
	"fmt"
	"strings"
)

// Switcher delegates each tick to one child chosen by the index attribute:
// a literal, a template, or "random". Every other child is invalidated and
// the result is the chosen child's status.
//
// Switcher keeps the chosen child while it runs; ReactiveSwitcher picks a
// child on every tick.
type Switcher struct {
	Composite
}

var switcherTickAgain = map[Resume][]Status{
	ResumeDefault:  {Running},
	ResumeMemory:   {Running, Failure},
	ResumeReactive: nil,
}

// IndexRandom selects a uniformly random child.
const IndexRandom = "random"

func NewSwitcher(attrs Attrs, children ...Node) (*Switcher, error) {
	return newSwitcher("Switcher", attrs, children, nil)
}

func NewReactiveSwitcher(attrs Attrs, children ...Node) (*Switcher, error) {
	mode := ResumeReactive
	return newSwitcher("ReactiveSwitcher", attrs, children, &mode)
}

func newSwitcher(tag string, attrs Attrs, children []Node, mode *Resume) (*Switcher, error) {
	if len(children) == 0 {
		return nil, &BuildError{Tag: tag, Err: fmt.Errorf("%w: want at least 1, got 0", ErrArity)}
	}
	n := &Switcher{}
	if err := n.InitComposite(n, tag, attrs, children); err != nil {
		return nil, err
	}
	if mode != nil {
		n.pin(*mode)
	}
	return n, nil
}

// GenIndex computes the child index for this tick.
func (n *Switcher) GenIndex() (int, error) {
	v, ok := n.attrs["index"]
	if !ok {
		v = IndexRandom
	}
	if s, isString := v.(string); isString && strings.EqualFold(strings.TrimSpace(s), IndexRandom) {
		if len(n.children) == 0 {
			return 0, errors.New("bt: switcher has no children")
		}
		return n.ctx.Rand().IntN(len(n.children)), nil
	}
	i, err := n.conv.Int(v)
	if err != nil {
		return 0, err
	}
	if i < 0 || i >= len(n.children) {
		return 0, fmt.Errorf("bt: %s index %d out of range [0, %d)", n.name, i, len(n.children))
	}
	return i, nil
}

func (n *Switcher) Tick() error {
	mode, err := n.Mode()
	if err != nil {
		return err
	}
	n.debug.TickCount++
	n.logger().Debug("[BT] tick", n.logAttrs("from", n.status)...)
	if n.status != Running {
		n.self.Initialise()
	}
	n.debug.UpdateCount++

	if !statusIn(n.status, switcherTickAgain[mode]) || n.current == nil {
		i, err := n.GenIndex()
		if err != nil {
			return err
		}
		n.current = n.children[i]
	}

	selected := n.current
	if err := selected.Tick(); err != nil {
		return err
	}
	for _, child := range n.children {
		if child != selected {
			invalidate(child)
		}
	}
	n.commit(selected.Status())
	return nil
}
