package bt

// OneShot ticks its child until the child finishes with a status in the
// policy set, then latches that status. Later ticks replay the latched
// status without ticking the child. The latch survives Reset.
type OneShot struct {
	Decorator
	policy []Status
	final  Status
}

// DefaultOneShotPolicy latches on success only, permitting retries.
const DefaultOneShotPolicy = "SUCCESS"

func NewOneShot(attrs Attrs, children ...Node) (*OneShot, error) {
	spec := DefaultOneShotPolicy
	if v, ok := attrs["policy"]; ok {
		spec = formatAttr(v)
	}
	policy, err := ParseStatusSet(spec)
	if err != nil {
		return nil, &BuildError{Tag: "OneShot", Err: err}
	}
	n := &OneShot{policy: policy}
	if err := n.InitDecorator(n, "OneShot", attrs, children); err != nil {
		return nil, err
	}
	return n, nil
}

// Final returns the latched status, or Invalid.
func (n *OneShot) Final() Status { return n.final }

func (n *OneShot) Tick() error {
	if n.final != Invalid {
		return n.Base.Tick()
	}
	return n.Decorator.Tick()
}

func (n *OneShot) Update() (Status, error) {
	if n.final != Invalid {
		n.debug.UpdateCount++
		return n.final, nil
	}
	return n.Decorator.Update()
}

func (n *OneShot) Terminate(s Status) {
	n.Decorator.Terminate(s)
	if n.final == Invalid && statusIn(s, n.policy) {
		n.logger().Debug("[BT] oneshot completed", n.logAttrs("status", s)...)
		n.final = s
	}
}

func (n *OneShot) Data() Attrs {
	data := n.Decorator.Data()
	data["policy"] = joinStatuses(n.policy)
	if n.final != Invalid {
		data["final_status"] = n.final.String()
	} else {
		data["final_status"] = nil
	}
	return data
}

func (n *OneShot) Restore(data Attrs) error {
	v, ok := data["final_status"]
	if !ok || v == nil {
		return nil
	}
	s, err := ParseStatus(formatAttr(v))
	if err != nil {
		return err
	}
	n.final = s
	return nil
}
