package fileconf

import (
	"fmt"
	"io"
	"reflect"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/iph0/conf/v3/tree"
)

const tomlKeySep = "\x00"

// TOMLFormat reads and writes TOML documents. Keys of tables are ordered as
// they are defined in the document. Arrays of tables become repeated nodes.
type TOMLFormat struct{}

// Read method reads a TOML document.
func (f *TOMLFormat) Read(r io.Reader) (*tree.Node, error) {
	var data map[string]any
	md, err := toml.NewDecoder(r).Decode(&data)

	if err != nil {
		return nil, err
	}

	order := make(map[string]int)

	for i, key := range md.Keys() {
		path := strings.Join(key, tomlKeySep)

		if _, ok := order[path]; !ok {
			order[path] = i
		}
	}

	root := tree.NewNode("")
	fillTOML(root, data, "", order)

	return root, nil
}

func fillTOML(node *tree.Node, data map[string]any, path string,
	order map[string]int) {

	names := make([]string, 0, len(data))

	for name := range data {
		names = append(names, name)
	}

	childPath := func(name string) string {
		if path == "" {
			return name
		}

		return path + tomlKeySep + name
	}

	sort.SliceStable(names, func(i, j int) bool {
		oi, iok := order[childPath(names[i])]
		oj, jok := order[childPath(names[j])]

		if iok && jok {
			return oi < oj
		}

		if iok != jok {
			return iok
		}

		return names[i] < names[j]
	})

	for _, name := range names {
		switch {
		case name == tree.TextKey:
			node.SetValue(data[name])
		case strings.HasPrefix(name, tree.AttrPrefix) && len(name) > len(tree.AttrPrefix):
			node.SetAttribute(name[len(tree.AttrPrefix):], data[name])
		default:
			addTOMLValue(node, name, data[name], childPath(name), order)
		}
	}
}

func addTOMLValue(parent *tree.Node, name string, value any, path string,
	order map[string]int) {

	switch v := value.(type) {
	case map[string]any:
		child := tree.NewNode(name)
		fillTOML(child, v, path, order)
		parent.AddChild(child)
	case []map[string]any:
		for _, item := range v {
			addTOMLValue(parent, name, item, path, order)
		}
	case []any:
		for _, item := range v {
			addTOMLValue(parent, name, item, path, order)
		}
	default:
		parent.AddChild(tree.NewValueNode(name, value))
	}
}

// Write method writes the tree as a TOML document. Attributes are written as
// keys with "@" prefix.
func (f *TOMLFormat) Write(w io.Writer, root *tree.Node) error {
	value := tree.ToValue(root)

	if value == nil || reflect.TypeOf(value).Kind() != reflect.Map {
		value = map[string]any{}
	}

	if err := toml.NewEncoder(w).Encode(value); err != nil {
		return fmt.Errorf("toml: %w", err)
	}

	return nil
}
