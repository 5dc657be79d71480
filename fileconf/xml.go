package fileconf

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/iph0/conf/v3/tree"
)

// DefaultRootElementName is used for the document element when the root node
// has no name.
const DefaultRootElementName = "configuration"

// XMLFormat reads and writes XML documents. Elements become nodes, attributes
// of elements become attributes of nodes. Text of elements is trimmed and
// becomes the value of the node.
type XMLFormat struct{}

// Read method reads an XML document. The document element becomes the root
// node.
func (f *XMLFormat) Read(r io.Reader) (*tree.Node, error) {
	dec := xml.NewDecoder(r)

	var (
		root  *tree.Node
		stack []*tree.Node
		texts []*strings.Builder
	)

	for {
		tok, err := dec.Token()

		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			node := tree.NewNode(t.Name.Local)

			for _, attr := range t.Attr {
				node.SetAttribute(attr.Name.Local, attr.Value)
			}

			if len(stack) > 0 {
				stack[len(stack)-1].AddChild(node)
			} else if root == nil {
				root = node
			}

			stack = append(stack, node)
			texts = append(texts, &strings.Builder{})
		case xml.CharData:
			if len(stack) > 0 {
				texts[len(texts)-1].Write(t)
			}
		case xml.EndElement:
			top := len(stack) - 1

			if text := strings.TrimSpace(texts[top].String()); text != "" {
				stack[top].SetValue(text)
			}

			stack = stack[:top]
			texts = texts[:top]
		}
	}

	if root == nil {
		return tree.NewNode(""), nil
	}

	return root, nil
}

// Write method writes the tree as an indented XML document.
func (f *XMLFormat) Write(w io.Writer, root *tree.Node) error {
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}

	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")

	name := root.Name()

	if name == "" {
		name = DefaultRootElementName
	}

	if err := writeXMLNode(enc, root, name); err != nil {
		return err
	}

	if err := enc.Flush(); err != nil {
		return err
	}

	_, err := io.WriteString(w, "\n")

	return err
}

func writeXMLNode(enc *xml.Encoder, node *tree.Node, name string) error {
	start := xml.StartElement{Name: xml.Name{Local: name}}

	for _, attrName := range node.AttributeNames() {
		value, _ := node.Attribute(attrName)

		start.Attr = append(start.Attr, xml.Attr{
			Name:  xml.Name{Local: attrName},
			Value: fmt.Sprint(value),
		})
	}

	if err := enc.EncodeToken(start); err != nil {
		return err
	}

	if node.HasValue() && node.Value() != nil {
		if err := enc.EncodeToken(xml.CharData(fmt.Sprint(node.Value()))); err != nil {
			return err
		}
	}

	for _, child := range node.Children() {
		if err := writeXMLNode(enc, child, child.Name()); err != nil {
			return err
		}
	}

	return enc.EncodeToken(start.End())
}
