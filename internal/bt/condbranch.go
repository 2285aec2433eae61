package bt

import "fmt"

// ConditionBranch has two or three children. The first is the condition:
// on success the second child runs, on failure the third (if present).
//
// A running condition makes the branch run without touching the other
// children. Without a third child a failed condition is adopted as the
// branch result.
type ConditionBranch struct {
	Composite
}

var condBranchTickAgain = map[Resume][]Status{
	ResumeDefault:  {Running},
	ResumeMemory:   {Running, Failure},
	ResumeReactive: nil,
}

// NewConditionBranch builds a ConditionBranch whose resume mode is read from
// the reactive and memory attributes.
func NewConditionBranch(attrs Attrs, children ...Node) (*ConditionBranch, error) {
	return newConditionBranch("ConditionBranch", attrs, children, nil)
}

// NewReactiveCondBranch re-evaluates the condition on every tick.
func NewReactiveCondBranch(attrs Attrs, children ...Node) (*ConditionBranch, error) {
	mode := ResumeReactive
	return newConditionBranch("ReactiveCondBranch", attrs, children, &mode)
}

// NewCondBranchWithMemory keeps ticking the selected branch after it fails.
func NewCondBranchWithMemory(attrs Attrs, children ...Node) (*ConditionBranch, error) {
	mode := ResumeMemory
	return newConditionBranch("CondBranchWithMemory", attrs, children, &mode)
}

func newConditionBranch(tag string, attrs Attrs, children []Node, mode *Resume) (*ConditionBranch, error) {
	if len(children) != 2 && len(children) != 3 {
		return nil, &BuildError{Tag: tag, Err: fmt.Errorf("%w: want 2 or 3, got %d", ErrArity, len(children))}
	}
	n := &ConditionBranch{}
	if err := n.InitComposite(n, tag, attrs, children); err != nil {
		return nil, err
	}
	if mode != nil {
		n.pin(*mode)
	}
	return n, nil
}

func (n *ConditionBranch) Tick() error {
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

	if statusIn(n.status, condBranchTickAgain[mode]) && n.CurrentIndex() > 0 {
		if err := n.current.Tick(); err != nil {
			return err
		}
		n.commit(n.current.Status())
		return nil
	}

	condition := n.children[0]
	n.current = condition
	if err := condition.Tick(); err != nil {
		return err
	}

	var selected Node
	switch condition.Status() {
	case Running:
		n.status = Running
		return nil
	case Invalid:
		// The condition's status is adopted; stopping with Invalid drops the
		// current child and invalidates both branches.
		n.commit(Invalid)
		return nil
	case Success:
		selected = n.children[1]
	default:
		if len(n.children) == 3 {
			selected = n.children[2]
		}
	}

	for _, child := range n.children[1:] {
		if child != selected {
			invalidate(child)
		}
	}

	if selected == nil {
		n.commit(Failure)
		return nil
	}
	n.current = selected
	if err := selected.Tick(); err != nil {
		return err
	}
	n.commit(selected.Status())
	return nil
}
