package bt

// Parallel ticks every child on every tick, in declared order.
//
// The result is Running while any child runs, otherwise Success when at
// least success_threshold children succeeded (-1 meaning all of them), and
// Failure otherwise. Children that finished are not stopped between ticks.
type Parallel struct {
	Composite
}

// DefaultSuccessThreshold is used when success_threshold is not set.
const DefaultSuccessThreshold = 1

func NewParallel(attrs Attrs, children ...Node) (*Parallel, error) {
	n := &Parallel{}
	if err := n.InitComposite(n, "Parallel", attrs, children); err != nil {
		return nil, err
	}
	return n, nil
}

// SuccessThreshold resolves success_threshold against the child count.
func (n *Parallel) SuccessThreshold() (int, error) {
	v, ok := n.attrs["success_threshold"]
	if !ok {
		return DefaultSuccessThreshold, nil
	}
	threshold, err := n.conv.Int(v)
	if err != nil {
		return 0, err
	}
	if threshold == -1 {
		threshold = len(n.children)
	}
	return threshold, nil
}

func (n *Parallel) Tick() error {
	n.debug.TickCount++
	n.logger().Debug("[BT] tick", n.logAttrs("from", n.status)...)
	if n.status != Running {
		n.self.Initialise()
	}
	n.debug.UpdateCount++

	threshold, err := n.SuccessThreshold()
	if err != nil {
		return err
	}

	n.current = nil
	var running, succeeded int
	for _, child := range n.children {
		n.current = child
		if err := child.Tick(); err != nil {
			return err
		}
		switch child.Status() {
		case Running:
			running++
		case Success:
			succeeded++
		}
	}

	s := Failure
	switch {
	case running > 0:
		s = Running
	case succeeded >= threshold:
		s = Success
	}
	n.commit(s)
	return nil
}

func (n *Parallel) Data() Attrs {
	data := n.Composite.Data()
	if v, ok := n.attrs["success_threshold"]; ok {
		data["success_threshold"] = v
	} else {
		data["success_threshold"] = DefaultSuccessThreshold
	}
	return data
}
