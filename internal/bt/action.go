package bt

import (
	"slices"

	"github.com/joeycumines/arbor/internal/convert"
)

// ActionQueue is implemented by nodes that hold pending actions for an
// external driver.
type ActionQueue interface {
	PushAction(action any)
	PopAction() (any, bool)
	Actions() []any
}

// Action is the base of leaves that emit actions. Pending actions are kept
// in FIFO order and survive export and rebuild.
type Action struct {
	Base
	queue []any
}

// InitAction wires an action leaf.
func (a *Action) InitAction(self Node, tag string, attrs Attrs) {
	a.Init(self, tag, KindAction, attrs)
}

func (a *Action) PushAction(action any) {
	a.queue = append(a.queue, action)
}

func (a *Action) PopAction() (any, bool) {
	if len(a.queue) == 0 {
		return nil, false
	}
	action := a.queue[0]
	a.queue = a.queue[1:]
	return action, true
}

// Actions returns a copy of the pending actions without consuming them.
func (a *Action) Actions() []any {
	return slices.Clone(a.queue)
}

func (a *Action) Data() Attrs {
	data := a.Base.Data()
	actions := make([]string, len(a.queue))
	for i, action := range a.queue {
		actions[i] = convert.Format(action)
	}
	data[KeyActions] = actions
	return data
}
