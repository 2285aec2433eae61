package bt

import (
	"encoding/json"
	"encoding/xml"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestToJSON(t *testing.T) {
	t.Parallel()

	a := Must(NewPrint(Attrs{"msg": "A"}))
	b := Must(NewPrint(Attrs{"msg": "B", KeyLabel: "second"}))
	seq := Must(NewSequence(nil, a, b))
	tick(t, newTree(t, seq))

	raw, err := ToJSON(seq)
	require.NoError(t, err)

	var r Record
	require.NoError(t, json.Unmarshal(raw, &r))
	require.Equal(t, "Sequence", r.Tag)
	require.Equal(t, seq.ID().String(), r.Data[KeyID])
	require.Equal(t, "SUCCESS", r.Data[KeyStatus])
	require.Equal(t, "composite", r.Data[KeyType])
	require.Equal(t, float64(1), r.Data["current_index"])
	require.Len(t, r.Children, 2)

	child := r.Children[1]
	require.Equal(t, "Print", child.Tag)
	require.Equal(t, b.ID().String(), child.Data[KeyID])
	require.Equal(t, "B", child.Data["msg"])
	require.Equal(t, "second", child.Data[KeyLabel])
	require.Equal(t, "action", child.Data[KeyType])
	require.Equal(t, []any{}, child.Data[KeyActions])
	debug := child.Data[KeyDebug].(map[string]any)
	require.Equal(t, float64(1), debug["tick_count"])
}

func TestToXML(t *testing.T) {
	t.Parallel()

	leaf := Must(NewPrint(Attrs{"msg": "hi"}))
	leaf.PushAction("jump")
	root := Must(NewInverter(nil, leaf))

	raw, err := ToXML(root)
	require.NoError(t, err)

	var doc struct {
		XMLName xml.Name
		Attrs   []xml.Attr `xml:",any,attr"`
		Child   struct {
			XMLName xml.Name
			Attrs   []xml.Attr `xml:",any,attr"`
		} `xml:",any"`
	}
	require.NoError(t, xml.Unmarshal(raw, &doc))
	require.Equal(t, "Inverter", doc.XMLName.Local)
	require.Equal(t, "Print", doc.Child.XMLName.Local)

	attrs := map[string]string{}
	for _, a := range doc.Child.Attrs {
		attrs[a.Name.Local] = a.Value
	}
	require.Equal(t, "hi", attrs["msg"])
	require.Equal(t, leaf.ID().String(), attrs[KeyID])
	require.Equal(t, "INVALID", attrs[KeyStatus])
	require.JSONEq(t, `["jump"]`, attrs[KeyActions])
}
