package builder

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/joeycumines/arbor/internal/bt"
	"gopkg.in/yaml.v3"
)

// Format is a tree definition encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatXML  Format = "xml"
	FormatYAML Format = "yaml"
)

// ErrUnknownFormat is returned for files whose extension names no format.
var ErrUnknownFormat = errors.New("unknown tree format")

// FormatOf infers the format from a file extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".xml":
		return FormatXML, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, path)
	}
}

// Parse decodes a tree definition in the given format.
func Parse(format Format, data []byte) (bt.Record, error) {
	switch format {
	case FormatJSON:
		return ParseJSON(data)
	case FormatXML:
		return ParseXML(data)
	case FormatYAML:
		return ParseYAML(data)
	default:
		return bt.Record{}, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// ParseJSON decodes a record of the form {"tag": ..., "data": {...},
// "children": [...]}.
func ParseJSON(data []byte) (bt.Record, error) {
	var r bt.Record
	if err := json.Unmarshal(data, &r); err != nil {
		return bt.Record{}, fmt.Errorf("parse json: %w", err)
	}
	return r, nil
}

// ParseYAML decodes a record with the same shape as ParseJSON.
func ParseYAML(data []byte) (bt.Record, error) {
	var r bt.Record
	if err := yaml.Unmarshal(data, &r); err != nil {
		return bt.Record{}, fmt.Errorf("parse yaml: %w", err)
	}
	return r, nil
}

// ParseXML decodes a document where every element is a node: the element
// name is the tag, attributes are data and nested elements are children.
// Attribute values stay strings and are converted by the nodes on access.
func ParseXML(data []byte) (bt.Record, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	var (
		stack []*bt.Record
		root  *bt.Record
	)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return bt.Record{}, fmt.Errorf("parse xml: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if len(stack) == 0 && root != nil {
				return bt.Record{}, fmt.Errorf("parse xml: multiple root elements (%s after %s)", t.Name.Local, root.Tag)
			}
			r := &bt.Record{Tag: t.Name.Local, Data: make(bt.Attrs, len(t.Attr))}
			for _, attr := range t.Attr {
				r.Data[attr.Name.Local] = attr.Value
			}
			stack = append(stack, r)
		case xml.EndElement:
			r := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				root = r
				continue
			}
			parent := stack[len(stack)-1]
			parent.Children = append(parent.Children, *r)
		}
	}
	if root == nil {
		return bt.Record{}, errors.New("parse xml: no root element")
	}
	return *root, nil
}
