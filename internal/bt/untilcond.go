package bt

import "fmt"

// RunningUntilCondition runs until its child reports the target status,
// then succeeds. It never fails.
type RunningUntilCondition struct {
	Decorator
	target Status
}

func NewRunningUntilCondition(attrs Attrs, children ...Node) (*RunningUntilCondition, error) {
	const tag = "RunningUntilCondition"
	v, ok := attrs["succeed_status"]
	if !ok {
		var err error
		if v, err = requireAttr(tag, attrs, KeyStatus); err != nil {
			return nil, err
		}
	}
	target, err := ParseStatus(formatAttr(v))
	if err != nil {
		return nil, &BuildError{Tag: tag, Err: fmt.Errorf("status: %w", err)}
	}
	n := &RunningUntilCondition{target: target}
	attrs = attrs.Clone()
	attrs["succeed_status"] = target.String()
	if err := n.InitDecorator(n, tag, attrs, children); err != nil {
		return nil, err
	}
	return n, nil
}

func (n *RunningUntilCondition) Update() (Status, error) {
	s, err := n.Decorator.Update()
	if err != nil {
		return s, err
	}
	if s == n.target {
		return Success, nil
	}
	return Running, nil
}

func (n *RunningUntilCondition) Data() Attrs {
	data := n.Decorator.Data()
	data["succeed_status"] = n.target.String()
	return data
}
