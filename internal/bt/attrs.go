package bt

import (
	"maps"
	"slices"

	"github.com/joeycumines/arbor/internal/convert"
)

// Attrs holds the string-keyed construction attributes of a node. Values are
// either native (numbers, booleans, slices, maps) or raw strings that may
// contain template markers; they are resolved on access by the node's
// Converter.
type Attrs map[string]any

// Clone returns a shallow copy.
func (a Attrs) Clone() Attrs {
	if a == nil {
		return Attrs{}
	}
	return maps.Clone(a)
}

// Keys returns the attribute names in sorted order.
func (a Attrs) Keys() []string {
	return slices.Sorted(maps.Keys(a))
}

// MergeAttrs layers attribute maps, later layers taking precedence.
func MergeAttrs(layers ...Attrs) Attrs {
	out := Attrs{}
	for _, layer := range layers {
		maps.Copy(out, layer)
	}
	return out
}

// Preset keys are reserved inside attributes and exported data.
const (
	KeyID      = "id"
	KeyStatus  = "status"
	KeyActions = "actions"
	KeyName    = "name"
	KeyLabel   = "label"
	KeyType    = "type"
	KeyTag     = "tag"
	KeyDebug   = "debug_info"
)

// presetKeys are node state, never construction attributes.
var presetKeys = []string{KeyID, KeyStatus, KeyActions, KeyType, KeyTag, KeyDebug}

func formatAttr(v any) string { return convert.Format(v) }

// TimeSystem selects the tree clock as a time attribute.
const TimeSystem = "time"

// clock resolves a time attribute: "time" reads the context clock, anything
// else is converted as a float.
func (b *Base) clock(v any) (float64, error) {
	if s, ok := v.(string); ok && s == TimeSystem {
		return b.ctx.Now(), nil
	}
	return b.conv.Float(v)
}

// floatAttr resolves an optional float attribute.
func (b *Base) floatAttr(key string, def float64) (float64, error) {
	v, ok := b.attrs[key]
	if !ok {
		return def, nil
	}
	return b.conv.Float(v)
}

// timeAttr resolves the time attribute, defaulting to the context clock.
func (b *Base) timeAttr() (float64, error) {
	v, ok := b.attrs["time"]
	if !ok {
		v = TimeSystem
	}
	return b.clock(v)
}
