package fileconf

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/iph0/conf/v3/tree"
)

// JSONFormat reads and writes JSON documents. Order of keys is preserved,
// arrays become repeated nodes.
type JSONFormat struct{}

// Read method reads a JSON object.
func (f *JSONFormat) Read(r io.Reader) (*tree.Node, error) {
	root := tree.NewNode("")
	dec := json.NewDecoder(r)
	dec.UseNumber()

	tok, err := dec.Token()

	if errors.Is(err, io.EOF) {
		return root, nil
	}

	if err != nil {
		return nil, err
	}

	if tok == nil {
		return root, nil
	}

	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("top-level value must be an object")
	}

	if err := readJSONObject(dec, root); err != nil {
		return nil, err
	}

	return root, nil
}

func readJSONObject(dec *json.Decoder, node *tree.Node) error {
	for dec.More() {
		tok, err := dec.Token()

		if err != nil {
			return err
		}

		name, ok := tok.(string)

		if !ok {
			return fmt.Errorf("unexpected token %v", tok)
		}

		switch {
		case name == tree.TextKey:
			value, err := readJSONScalar(dec)

			if err != nil {
				return err
			}

			node.SetValue(value)
		case strings.HasPrefix(name, tree.AttrPrefix) && len(name) > len(tree.AttrPrefix):
			value, err := readJSONScalar(dec)

			if err != nil {
				return err
			}

			node.SetAttribute(name[len(tree.AttrPrefix):], value)
		default:
			if err := readJSONValue(dec, node, name); err != nil {
				return err
			}
		}
	}

	_, err := dec.Token()

	return err
}

func readJSONValue(dec *json.Decoder, parent *tree.Node, name string) error {
	tok, err := dec.Token()

	if err != nil {
		return err
	}

	switch tok := tok.(type) {
	case json.Delim:
		switch tok {
		case '{':
			child := tree.NewNode(name)

			if err := readJSONObject(dec, child); err != nil {
				return err
			}

			parent.AddChild(child)

			return nil
		case '[':
			for dec.More() {
				if err := readJSONValue(dec, parent, name); err != nil {
					return err
				}
			}

			_, err := dec.Token()

			return err
		}

		return fmt.Errorf("unexpected delimiter %v", tok)
	case nil:
		parent.AddChild(tree.NewNode(name))
	default:
		parent.AddChild(tree.NewValueNode(name, jsonValue(tok)))
	}

	return nil
}

func readJSONScalar(dec *json.Decoder) (any, error) {
	var raw any

	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}

	switch raw.(type) {
	case map[string]any, []any:
		return nil, fmt.Errorf("attribute value must be a scalar")
	}

	return jsonValue(raw), nil
}

func jsonValue(v any) any {
	num, ok := v.(json.Number)

	if !ok {
		return v
	}

	if i, err := num.Int64(); err == nil {
		return i
	}

	if f, err := num.Float64(); err == nil {
		return f
	}

	return num.String()
}

// Write method writes the tree as an indented JSON object.
func (f *JSONFormat) Write(w io.Writer, root *tree.Node) error {
	var buf bytes.Buffer

	if err := writeJSONObject(&buf, root); err != nil {
		return err
	}

	var out bytes.Buffer

	if err := json.Indent(&out, buf.Bytes(), "", "  "); err != nil {
		return err
	}

	out.WriteByte('\n')
	_, err := out.WriteTo(w)

	return err
}

func writeJSONObject(buf *bytes.Buffer, node *tree.Node) error {
	buf.WriteByte('{')
	first := true

	writeKey := func(name string) error {
		if !first {
			buf.WriteByte(',')
		}

		first = false

		return writeJSONScalar(buf, name)
	}

	for _, name := range node.AttributeNames() {
		value, _ := node.Attribute(name)

		if err := writeKey(tree.AttrPrefix + name); err != nil {
			return err
		}

		buf.WriteByte(':')

		if err := writeJSONScalar(buf, value); err != nil {
			return err
		}
	}

	if node.HasValue() {
		if err := writeKey(tree.TextKey); err != nil {
			return err
		}

		buf.WriteByte(':')

		if err := writeJSONScalar(buf, node.Value()); err != nil {
			return err
		}
	}

	for _, group := range groupChildren(node) {
		if err := writeKey(group.name); err != nil {
			return err
		}

		buf.WriteByte(':')

		if len(group.nodes) == 1 {
			if err := writeJSONNode(buf, group.nodes[0]); err != nil {
				return err
			}

			continue
		}

		buf.WriteByte('[')

		for i, child := range group.nodes {
			if i > 0 {
				buf.WriteByte(',')
			}

			if err := writeJSONNode(buf, child); err != nil {
				return err
			}
		}

		buf.WriteByte(']')
	}

	buf.WriteByte('}')

	return nil
}

func writeJSONNode(buf *bytes.Buffer, node *tree.Node) error {
	if isPlain(node) {
		return writeJSONScalar(buf, node.Value())
	}

	return writeJSONObject(buf, node)
}

func writeJSONScalar(buf *bytes.Buffer, v any) error {
	data, err := json.Marshal(v)

	if err != nil {
		return err
	}

	buf.Write(data)

	return nil
}
