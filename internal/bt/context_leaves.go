package bt

import "fmt"

// contextWriter is the base of leaves that store a value in the context
// under the key attribute, rendered once at setup.
type contextWriter struct {
	Base
	key   string
	value any
}

func (n *contextWriter) initWriter(self Node, tag string, attrs Attrs, required ...string) error {
	for _, key := range append([]string{"key"}, required...) {
		if _, err := requireAttr(tag, attrs, key); err != nil {
			return err
		}
	}
	n.Init(self, tag, KindAction, attrs)
	return nil
}

func (n *contextWriter) Setup(ctx *Context, opts SetupOptions) error {
	if err := n.Base.Setup(ctx, opts); err != nil {
		return err
	}
	key, err := n.conv.Render(n.attrs["key"])
	if err != nil {
		return err
	}
	n.key = key
	return nil
}

// Key returns the context key written by the node.
func (n *contextWriter) Key() string { return n.key }

// Value returns the last value written.
func (n *contextWriter) Value() any { return n.value }

func (n *contextWriter) store(v any) (Status, error) {
	n.value = v
	n.ctx.Set(n.key, v)
	return Success, nil
}

func (n *contextWriter) Data() Attrs {
	data := n.Base.Data()
	data["key"] = n.key
	data["curr_value"] = n.value
	return data
}

// RandomIntValue stores a random integer in [low, high] under key.
type RandomIntValue struct {
	contextWriter
}

func NewRandomIntValue(attrs Attrs, _ ...Node) (*RandomIntValue, error) {
	n := &RandomIntValue{}
	if err := n.initWriter(n, "RandomIntValue", attrs, "high"); err != nil {
		return nil, err
	}
	return n, nil
}

func (n *RandomIntValue) NewUpdater() Updater {
	return Loop(func() (Status, error) {
		low := 0
		if v, ok := n.attrs["low"]; ok {
			var err error
			if low, err = n.conv.Int(v); err != nil {
				return Invalid, err
			}
		}
		high, err := n.conv.Int(n.attrs["high"])
		if err != nil {
			return Invalid, err
		}
		if high < low {
			return Invalid, fmt.Errorf("bt: %s: empty range [%d, %d]", n.name, low, high)
		}
		return n.store(low + n.ctx.Rand().IntN(high-low+1))
	})
}

// RandomFloatValue stores a random float in [low, high) under key.
type RandomFloatValue struct {
	contextWriter
}

func NewRandomFloatValue(attrs Attrs, _ ...Node) (*RandomFloatValue, error) {
	n := &RandomFloatValue{}
	if err := n.initWriter(n, "RandomFloatValue", attrs); err != nil {
		return nil, err
	}
	return n, nil
}

func (n *RandomFloatValue) NewUpdater() Updater {
	return Loop(func() (Status, error) {
		low, err := n.floatAttr("low", 0)
		if err != nil {
			return Invalid, err
		}
		high, err := n.floatAttr("high", 1)
		if err != nil {
			return Invalid, err
		}
		return n.store(n.ctx.Rand().Float64()*(high-low) + low)
	})
}

// SetValueToContext stores its rendered value attribute under key.
// SetIntToContext and SetFloatToContext convert the value first.
type SetValueToContext struct {
	contextWriter
	convert func(v any) (any, error)
}

func NewSetValueToContext(attrs Attrs, _ ...Node) (*SetValueToContext, error) {
	return newSetValue("SetValueToContext", attrs, func(n *SetValueToContext, v any) (any, error) {
		return n.conv.Render(v)
	})
}

func NewSetIntToContext(attrs Attrs, _ ...Node) (*SetValueToContext, error) {
	return newSetValue("SetIntToContext", attrs, func(n *SetValueToContext, v any) (any, error) {
		return n.conv.Int(v)
	})
}

func NewSetFloatToContext(attrs Attrs, _ ...Node) (*SetValueToContext, error) {
	return newSetValue("SetFloatToContext", attrs, func(n *SetValueToContext, v any) (any, error) {
		return n.conv.Float(v)
	})
}

func newSetValue(tag string, attrs Attrs, fn func(*SetValueToContext, any) (any, error)) (*SetValueToContext, error) {
	n := &SetValueToContext{}
	if err := n.initWriter(n, tag, attrs, "value"); err != nil {
		return nil, err
	}
	n.convert = func(v any) (any, error) { return fn(n, v) }
	return n, nil
}

func (n *SetValueToContext) NewUpdater() Updater {
	return Loop(func() (Status, error) {
		v, err := n.convert(n.attrs["value"])
		if err != nil {
			return Invalid, err
		}
		return n.store(v)
	})
}
