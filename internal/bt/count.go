package bt

// Count tallies how often its child was ticked and how each activation
// ended, without altering the child's status. Counters are zeroed at setup.
type Count struct {
	Decorator
	total     int
	running   int
	success   int
	failure   int
	interrupt int
}

func NewCount(attrs Attrs, children ...Node) (*Count, error) {
	n := &Count{}
	if err := n.InitDecorator(n, "Count", attrs, children); err != nil {
		return nil, err
	}
	return n, nil
}

func (n *Count) Setup(ctx *Context, opts SetupOptions) error {
	if err := n.Decorator.Setup(ctx, opts); err != nil {
		return err
	}
	n.total, n.running, n.success, n.failure, n.interrupt = 0, 0, 0, 0, 0
	return nil
}

func (n *Count) Update() (Status, error) {
	s, err := n.Decorator.Update()
	n.total++
	if s == Running {
		n.running++
	}
	return s, err
}

func (n *Count) Terminate(s Status) {
	n.Decorator.Terminate(s)
	switch s {
	case Invalid:
		n.interrupt++
	case Success:
		n.success++
	case Failure:
		n.failure++
	}
}

// Counts returns the tallies as exported.
func (n *Count) Counts() map[string]int {
	return map[string]int{
		"total_tick_count": n.total,
		"running_count":    n.running,
		"success_count":    n.success,
		"failure_count":    n.failure,
		"interrupt_count":  n.interrupt,
	}
}

func (n *Count) Data() Attrs {
	data := n.Decorator.Data()
	for k, v := range n.Counts() {
		data[k] = v
	}
	return data
}

func (n *Count) Restore(data Attrs) error {
	for key, dst := range map[string]*int{
		"total_tick_count": &n.total,
		"running_count":    &n.running,
		"success_count":    &n.success,
		"failure_count":    &n.failure,
		"interrupt_count":  &n.interrupt,
	} {
		v, ok := data[key]
		if !ok {
			continue
		}
		i, err := n.conv.Int(v)
		if err != nil {
			return err
		}
		*dst = i
	}
	return nil
}
