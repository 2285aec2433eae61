package bt

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"maps"

	"github.com/joeycumines/arbor/internal/convert"
)

// Record is the serialized shape of a node: its tag, its attributes merged
// with exported state, and its children. It is both the builder's input and
// the export format.
type Record struct {
	Tag      string   `json:"tag" yaml:"tag"`
	Data     Attrs    `json:"data" yaml:"data"`
	Children []Record `json:"children" yaml:"children"`
}

// ToRecord exports n and its subtree.
func ToRecord(n Node) Record {
	data := n.Attrs().Clone()
	maps.Copy(data, n.Data())
	data[KeyID] = n.ID().String()
	data[KeyStatus] = n.Status().String()
	data[KeyType] = n.Kind().String()
	data[KeyTag] = n.Tag()
	data[KeyName] = n.Name()
	data[KeyLabel] = n.Label()
	data[KeyDebug] = n.Debug()
	r := Record{Tag: n.Tag(), Data: data, Children: []Record{}}
	for _, child := range n.Children() {
		r.Children = append(r.Children, ToRecord(child))
	}
	return r
}

// ToJSON exports n as indented JSON.
func ToJSON(n Node) ([]byte, error) {
	return json.MarshalIndent(ToRecord(n), "", "  ")
}

// ToXML exports n as indented XML. Element names are tags; data entries
// become attributes, with nil values omitted and composite values encoded
// as JSON.
func ToXML(n Node) ([]byte, error) {
	var buf bytes.Buffer
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "    ")
	if err := encodeRecord(enc, ToRecord(n)); err != nil {
		return nil, err
	}
	if err := enc.Flush(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodeRecord(enc *xml.Encoder, r Record) error {
	start := xml.StartElement{Name: xml.Name{Local: r.Tag}}
	for _, key := range r.Data.Keys() {
		v := r.Data[key]
		if v == nil {
			continue
		}
		s, err := xmlValue(v)
		if err != nil {
			return err
		}
		start.Attr = append(start.Attr, xml.Attr{Name: xml.Name{Local: key}, Value: s})
	}
	if err := enc.EncodeToken(start); err != nil {
		return err
	}
	for _, child := range r.Children {
		if err := encodeRecord(enc, child); err != nil {
			return err
		}
	}
	return enc.EncodeToken(start.End())
}

func xmlValue(v any) (string, error) {
	switch v.(type) {
	case string, bool, int, int64, float64, float32, Status:
		return convert.Format(v), nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
