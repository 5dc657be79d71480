package fileconf

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/iph0/conf/v3/tree"
	"gopkg.in/yaml.v3"
)

const yamlMergeTag = "!!merge"

// YAMLFormat reads and writes YAML documents. Order of keys is preserved,
// sequences become repeated nodes.
type YAMLFormat struct{}

// Read method reads the first document of the stream.
func (f *YAMLFormat) Read(r io.Reader) (*tree.Node, error) {
	root := tree.NewNode("")

	var doc yaml.Node
	err := yaml.NewDecoder(r).Decode(&doc)

	if errors.Is(err, io.EOF) {
		return root, nil
	}

	if err != nil {
		return nil, err
	}

	content := &doc

	if doc.Kind == yaml.DocumentNode {
		if len(doc.Content) == 0 {
			return root, nil
		}

		content = doc.Content[0]
	}

	content = yamlResolve(content)

	switch content.Kind {
	case yaml.MappingNode:
		if err := readYAMLMapping(root, content); err != nil {
			return nil, err
		}
	case yaml.ScalarNode:
		if content.Tag != "!!null" {
			return nil, fmt.Errorf("top-level value must be a mapping, but got: %s",
				content.Tag)
		}
	default:
		return nil, fmt.Errorf("top-level value must be a mapping")
	}

	return root, nil
}

func readYAMLMapping(node *tree.Node, m *yaml.Node) error {
	for i := 0; i+1 < len(m.Content); i += 2 {
		key := m.Content[i]
		value := yamlResolve(m.Content[i+1])

		if key.Tag == yamlMergeTag {
			if err := readYAMLMerge(node, value); err != nil {
				return err
			}

			continue
		}

		name := key.Value

		switch {
		case name == tree.TextKey:
			v, err := yamlScalar(value)

			if err != nil {
				return err
			}

			node.SetValue(v)
		case strings.HasPrefix(name, tree.AttrPrefix) && len(name) > len(tree.AttrPrefix):
			v, err := yamlScalar(value)

			if err != nil {
				return err
			}

			node.SetAttribute(name[len(tree.AttrPrefix):], v)
		default:
			if err := readYAMLValue(node, name, value); err != nil {
				return err
			}
		}
	}

	return nil
}

func readYAMLMerge(node *tree.Node, value *yaml.Node) error {
	switch value.Kind {
	case yaml.MappingNode:
		return readYAMLMapping(node, value)
	case yaml.SequenceNode:
		for _, item := range value.Content {
			if err := readYAMLMerge(node, yamlResolve(item)); err != nil {
				return err
			}
		}

		return nil
	}

	return fmt.Errorf("line %d: merge value must be a mapping", value.Line)
}

func readYAMLValue(parent *tree.Node, name string, value *yaml.Node) error {
	switch value.Kind {
	case yaml.SequenceNode:
		for _, item := range value.Content {
			if err := readYAMLValue(parent, name, yamlResolve(item)); err != nil {
				return err
			}
		}

		return nil
	case yaml.MappingNode:
		child := tree.NewNode(name)

		if err := readYAMLMapping(child, value); err != nil {
			return err
		}

		parent.AddChild(child)

		return nil
	}

	v, err := yamlScalar(value)

	if err != nil {
		return err
	}

	child := tree.NewNode(name)

	if v != nil {
		child.SetValue(v)
	}

	parent.AddChild(child)

	return nil
}

func yamlScalar(n *yaml.Node) (any, error) {
	var v any

	if err := n.Decode(&v); err != nil {
		return nil, fmt.Errorf("line %d: %w", n.Line, err)
	}

	return v, nil
}

func yamlResolve(n *yaml.Node) *yaml.Node {
	for n.Kind == yaml.AliasNode && n.Alias != nil {
		n = n.Alias
	}

	return n
}

// Write method writes the tree as a YAML document.
func (f *YAMLFormat) Write(w io.Writer, root *tree.Node) error {
	doc, err := yamlMapping(root)

	if err != nil {
		return err
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)

	if err := enc.Encode(doc); err != nil {
		return err
	}

	return enc.Close()
}

func yamlMapping(node *tree.Node) (*yaml.Node, error) {
	m := &yaml.Node{Kind: yaml.MappingNode}

	appendPair := func(name string, value *yaml.Node) {
		m.Content = append(m.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: name}, value)
	}

	for _, name := range node.AttributeNames() {
		attr, _ := node.Attribute(name)
		value, err := yamlScalarNode(attr)

		if err != nil {
			return nil, err
		}

		appendPair(tree.AttrPrefix+name, value)
	}

	if node.HasValue() {
		value, err := yamlScalarNode(node.Value())

		if err != nil {
			return nil, err
		}

		appendPair(tree.TextKey, value)
	}

	for _, group := range groupChildren(node) {
		if len(group.nodes) == 1 {
			value, err := yamlValue(group.nodes[0])

			if err != nil {
				return nil, err
			}

			appendPair(group.name, value)

			continue
		}

		seq := &yaml.Node{Kind: yaml.SequenceNode}

		for _, child := range group.nodes {
			value, err := yamlValue(child)

			if err != nil {
				return nil, err
			}

			seq.Content = append(seq.Content, value)
		}

		appendPair(group.name, seq)
	}

	return m, nil
}

func yamlValue(node *tree.Node) (*yaml.Node, error) {
	if isPlain(node) {
		return yamlScalarNode(node.Value())
	}

	return yamlMapping(node)
}

func yamlScalarNode(v any) (*yaml.Node, error) {
	n := &yaml.Node{}

	if err := n.Encode(v); err != nil {
		return nil, err
	}

	return n, nil
}
