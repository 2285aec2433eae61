package bt

import (
	"errors"
	"fmt"
)

// Decorator is the base of single-child nodes. Its status is a function of
// the decorated child's status and decorator-local state.
type Decorator struct {
	Base
}

// InitDecorator wires a decorator around exactly one child.
func (d *Decorator) InitDecorator(self Node, tag string, attrs Attrs, children []Node) error {
	if len(children) != 1 {
		return &BuildError{Tag: tag, Err: fmt.Errorf("%w: want 1, got %d", ErrArity, len(children))}
	}
	d.Init(self, tag, KindDecorator, attrs)
	return d.decorate(children[0])
}

func (d *Decorator) decorate(child Node) error {
	if err := d.adopt("decorate", child); err != nil {
		return err
	}
	d.children = []Node{child}
	return nil
}

// Decorated returns the wrapped child, or nil.
func (d *Decorator) Decorated() Node {
	if len(d.children) == 0 {
		return nil
	}
	return d.children[0]
}

// Tick initialises when not resuming, ticks the child, then derives the
// decorator status through Update.
func (d *Decorator) Tick() error {
	d.debug.TickCount++
	d.logger().Debug("[BT] tick", d.logAttrs("from", d.status)...)
	child := d.Decorated()
	if child == nil {
		return fmt.Errorf("bt: decorator %q: %w", d.name, errors.New("no child"))
	}
	if d.status != Running {
		d.self.Initialise()
	}
	if err := child.Tick(); err != nil {
		return err
	}
	s, err := d.self.Update()
	if err != nil {
		return err
	}
	d.commit(d.checked(s))
	return nil
}

// Update passes the child's status through.
func (d *Decorator) Update() (Status, error) {
	d.debug.UpdateCount++
	if child := d.Decorated(); child != nil {
		return child.Status(), nil
	}
	return Invalid, nil
}

// Stop invalidates the child on Invalid, and otherwise only stops a child
// that is still running.
func (d *Decorator) Stop(s Status) {
	d.logger().Debug("[BT] stop", d.logAttrs("from", d.status, "to", s)...)
	d.self.Terminate(s)
	if child := d.Decorated(); child != nil {
		if s == Invalid {
			child.Stop(Invalid)
		} else if child.Status() == Running {
			child.Stop(Invalid)
		}
	}
	d.status = s
	if s == Invalid {
		d.restartUpdater()
	}
}

// Tip descends into the child unless it is invalid.
func (d *Decorator) Tip() Node {
	if child := d.Decorated(); child != nil && child.Status() != Invalid {
		return child.Tip()
	}
	return d.self
}
