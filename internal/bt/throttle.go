package bt

// Throttle ticks its child at most once per duration time units. Ticks in
// between leave the child alone and keep the previous status.
type Throttle struct {
	Decorator
	last    float64
	hasLast bool
}

func NewThrottle(attrs Attrs, children ...Node) (*Throttle, error) {
	n := &Throttle{}
	if err := n.InitDecorator(n, "Throttle", attrs, children); err != nil {
		return nil, err
	}
	return n, nil
}

func (n *Throttle) Tick() error {
	now, err := n.timeAttr()
	if err != nil {
		return err
	}
	duration, err := n.floatAttr("duration", DefaultDuration)
	if err != nil {
		return err
	}
	if n.hasLast && now-n.last < duration {
		n.debug.TickCount++
		return nil
	}
	n.last, n.hasLast = now, true
	return n.Decorator.Tick()
}

func (n *Throttle) Reset() {
	n.Decorator.Reset()
	n.hasLast = false
}

func (n *Throttle) Data() Attrs {
	data := n.Decorator.Data()
	if n.hasLast {
		data["last_time"] = n.last
	} else {
		data["last_time"] = nil
	}
	return data
}
