package bt

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// Constant always reports the same status. Success, Failure and Running are
// condition-like.
type Constant struct {
	Base
	status Status
}

func NewSuccess(attrs Attrs, _ ...Node) (*Constant, error) {
	return newConstant("Success", Success, attrs), nil
}

func NewFailure(attrs Attrs, _ ...Node) (*Constant, error) {
	return newConstant("Failure", Failure, attrs), nil
}

func NewRunning(attrs Attrs, _ ...Node) (*Constant, error) {
	return newConstant("Running", Running, attrs), nil
}

func newConstant(tag string, s Status, attrs Attrs) *Constant {
	n := &Constant{status: s}
	n.Init(n, tag, KindCondition, attrs)
	return n
}

func (n *Constant) NewUpdater() Updater { return Forever(n.status) }

// Print writes its rendered msg attribute to the context output.
type Print struct {
	Action
}

func NewPrint(attrs Attrs, _ ...Node) (*Print, error) {
	if _, err := requireAttr("Print", attrs, "msg"); err != nil {
		return nil, err
	}
	n := &Print{}
	n.InitAction(n, "Print", attrs)
	return n, nil
}

func (n *Print) NewUpdater() Updater {
	return Loop(func() (Status, error) {
		msg, err := n.conv.Render(n.attrs["msg"])
		if err != nil {
			return Invalid, err
		}
		if _, err := fmt.Fprintln(n.ctx.Output(), msg); err != nil {
			return Invalid, err
		}
		return Success, nil
	})
}

func (n *Print) Data() Attrs {
	data := n.Action.Data()
	if msg, err := n.conv.Render(n.attrs["msg"]); err == nil {
		data["curr_msg"] = msg
	}
	return data
}

// IsMatchRule succeeds when its rule expression evaluates to true, e.g.
// "{{agent.x}} > 10".
type IsMatchRule struct {
	Base
}

func NewIsMatchRule(attrs Attrs, _ ...Node) (*IsMatchRule, error) {
	if _, err := requireAttr("IsMatchRule", attrs, "rule"); err != nil {
		return nil, err
	}
	n := &IsMatchRule{}
	n.Init(n, "IsMatchRule", KindCondition, attrs)
	return n, nil
}

func (n *IsMatchRule) NewUpdater() Updater {
	return Loop(func() (Status, error) {
		ok, err := n.conv.Bool(n.attrs["rule"])
		if err != nil {
			return Invalid, err
		}
		return successIf(ok), nil
	})
}

// IsChanged succeeds when its watched value differs from the value seen on
// the previous tick. A custom rule may compare curr_value, last_value and
// changed_count instead. Unless immediate is set, the first observation
// never counts as a change.
type IsChanged struct {
	Base
	curr, last any
	hasLast    bool
	changed    int
}

func NewIsChanged(attrs Attrs, _ ...Node) (*IsChanged, error) {
	if _, err := requireAttr("IsChanged", attrs, "value"); err != nil {
		return nil, err
	}
	n := &IsChanged{}
	n.Init(n, "IsChanged", KindCondition, attrs)
	return n, nil
}

// ChangedCount returns how many changes were observed.
func (n *IsChanged) ChangedCount() int { return n.changed }

func (n *IsChanged) immediate() (bool, error) {
	return n.conv.Bool(n.attrs["immediate"])
}

// value renders a templated value, reading numeric results as numbers.
func (n *IsChanged) value() (any, error) {
	v := n.attrs["value"]
	s, ok := v.(string)
	if !ok {
		return v, nil
	}
	rendered, err := n.conv.Render(s)
	if err != nil {
		return nil, err
	}
	if f, err := strconv.ParseFloat(strings.TrimSpace(rendered), 64); err == nil {
		return f, nil
	}
	return rendered, nil
}

func (n *IsChanged) isChanged(curr, last any) (bool, error) {
	rule, ok := n.attrs["rule"]
	if !ok || rule == "" {
		return !reflect.DeepEqual(curr, last), nil
	}
	return n.conv.BoolWith(rule, map[string]any{
		"curr_value":    curr,
		"last_value":    last,
		"changed_count": n.changed,
	})
}

func (n *IsChanged) NewUpdater() Updater {
	return Loop(func() (Status, error) {
		curr, err := n.value()
		if err != nil {
			return Invalid, err
		}
		immediate, err := n.immediate()
		if err != nil {
			return Invalid, err
		}
		n.curr = curr
		if !immediate && !n.hasLast {
			n.last, n.hasLast = curr, true
		}
		changed, err := n.isChanged(curr, n.last)
		if err != nil {
			return Invalid, err
		}
		n.last, n.hasLast = curr, true
		if changed {
			n.changed++
		}
		return successIf(changed), nil
	})
}

func (n *IsChanged) Reset() {
	n.Base.Reset()
	n.curr, n.last, n.hasLast, n.changed = nil, nil, false, 0
}

func (n *IsChanged) Data() Attrs {
	data := n.Base.Data()
	immediate, _ := n.immediate()
	data["immediate"] = immediate
	data["curr_value"] = n.curr
	data["last_value"] = n.last
	data["changed_count"] = n.changed
	return data
}

// IsEqual succeeds when its rendered a and b attributes are equal.
type IsEqual struct {
	Base
	a, b *string
}

func NewIsEqual(attrs Attrs, _ ...Node) (*IsEqual, error) {
	for _, key := range []string{"a", "b"} {
		if _, err := requireAttr("IsEqual", attrs, key); err != nil {
			return nil, err
		}
	}
	n := &IsEqual{}
	n.Init(n, "IsEqual", KindCondition, attrs)
	return n, nil
}

func (n *IsEqual) NewUpdater() Updater {
	return Loop(func() (Status, error) {
		a, err := n.conv.Render(n.attrs["a"])
		if err != nil {
			return Invalid, err
		}
		b, err := n.conv.Render(n.attrs["b"])
		if err != nil {
			return Invalid, err
		}
		n.a, n.b = &a, &b
		return successIf(a == b), nil
	})
}

func (n *IsEqual) Reset() {
	n.Base.Reset()
	n.a, n.b = nil, nil
}

func (n *IsEqual) Data() Attrs {
	data := n.Base.Data()
	data["curr_a"] = optional(n.a)
	data["curr_b"] = optional(n.b)
	return data
}

// RandomSuccess succeeds with probability prob.
type RandomSuccess struct {
	Base
	prob *float64
}

func NewRandomSuccess(attrs Attrs, _ ...Node) (*RandomSuccess, error) {
	n := &RandomSuccess{}
	n.Init(n, "RandomSuccess", KindCondition, attrs)
	return n, nil
}

func (n *RandomSuccess) NewUpdater() Updater {
	return Loop(func() (Status, error) {
		prob, err := n.floatAttr("prob", 0.5)
		if err != nil {
			return Invalid, err
		}
		if prob < 0 || prob > 1 {
			return Invalid, fmt.Errorf("bt: %s: probability %v outside [0, 1]", n.name, prob)
		}
		n.prob = &prob
		return successIf(n.ctx.Rand().Float64() < prob), nil
	})
}

func (n *RandomSuccess) Data() Attrs {
	data := n.Base.Data()
	data["curr_prob"] = optional(n.prob)
	return data
}

// TimeElapsed succeeds once every duration time units and fails in
// between. With immediate set, the first tick also succeeds.
type TimeElapsed struct {
	Base
	curr, last, duration *float64
}

func NewTimeElapsed(attrs Attrs, _ ...Node) (*TimeElapsed, error) {
	n := &TimeElapsed{}
	n.Init(n, "TimeElapsed", KindCondition, attrs)
	return n, nil
}

func (n *TimeElapsed) NewUpdater() Updater {
	return Loop(func() (Status, error) {
		now, err := n.timeAttr()
		if err != nil {
			return Invalid, err
		}
		duration, err := n.floatAttr("duration", DefaultDuration)
		if err != nil {
			return Invalid, err
		}
		n.curr, n.duration = &now, &duration
		if n.last == nil {
			immediate, err := n.conv.Bool(n.attrs["immediate"])
			if err != nil {
				return Invalid, err
			}
			n.last = &now
			return successIf(immediate), nil
		}
		if now-*n.last >= duration {
			n.last = &now
			return Success, nil
		}
		return Failure, nil
	})
}

func (n *TimeElapsed) Reset() {
	n.Base.Reset()
	n.curr, n.last = nil, nil
}

func (n *TimeElapsed) Data() Attrs {
	data := n.Base.Data()
	data["curr_time"] = optional(n.curr)
	data["last_time"] = optional(n.last)
	data["curr_duration"] = optional(n.duration)
	return data
}

func successIf(ok bool) Status {
	if ok {
		return Success
	}
	return Failure
}

func optional[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}
