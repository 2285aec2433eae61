package bt

// DefaultDuration applies to time-based nodes without a duration attribute.
const DefaultDuration = 5.0

// Timeout fails its child once duration time units have passed since the
// activation began while the child is still running. The deadline is taken
// on the first update of each activation. Once it fires, the Timeout keeps
// failing without ticking the child until it is invalidated or reset.
type Timeout struct {
	Decorator
	deadline float64
	armed    bool
	expired  bool
	now      float64
}

func NewTimeout(attrs Attrs, children ...Node) (*Timeout, error) {
	n := &Timeout{}
	if err := n.InitDecorator(n, "Timeout", attrs, children); err != nil {
		return nil, err
	}
	return n, nil
}

// Deadline returns the current deadline and whether one is armed.
func (n *Timeout) Deadline() (float64, bool) { return n.deadline, n.armed }

// Expired reports whether the deadline fired in the current activation.
func (n *Timeout) Expired() bool { return n.expired }

func (n *Timeout) Tick() error {
	if !n.expired {
		return n.Decorator.Tick()
	}
	n.debug.TickCount++
	n.logger().Debug("[BT] tick", n.logAttrs("from", n.status, "expired", true)...)
	n.status = Failure
	return nil
}

func (n *Timeout) Stop(s Status) {
	if s == Invalid {
		n.armed, n.expired = false, false
	}
	n.Decorator.Stop(s)
}

func (n *Timeout) Initialise() {
	n.Decorator.Initialise()
	n.armed = false
}

func (n *Timeout) Update() (Status, error) {
	s, err := n.Decorator.Update()
	if err != nil {
		return s, err
	}
	now, err := n.timeAttr()
	if err != nil {
		return Invalid, err
	}
	n.now = now
	if !n.armed {
		duration, err := n.floatAttr("duration", DefaultDuration)
		if err != nil {
			return Invalid, err
		}
		n.deadline = now + duration
		n.armed = true
	}
	if s == Running && now >= n.deadline {
		n.logger().Debug("[BT] timed out", n.logAttrs("deadline", n.deadline, "now", now)...)
		n.expired = true
		return Failure, nil
	}
	return s, nil
}

func (n *Timeout) Data() Attrs {
	data := n.Decorator.Data()
	data["curr_time"] = n.now
	data["timed_out"] = n.expired
	if n.armed {
		data["deadline"] = n.deadline
	} else {
		data["deadline"] = nil
	}
	return data
}

func (n *Timeout) Restore(data Attrs) error {
	if v, ok := data["timed_out"]; ok {
		expired, err := n.conv.Bool(v)
		if err != nil {
			return err
		}
		n.expired = expired
	}
	v, ok := data["deadline"]
	if !ok || v == nil {
		return nil
	}
	deadline, err := n.conv.Float(v)
	if err != nil {
		return err
	}
	n.deadline, n.armed = deadline, true
	return nil
}
