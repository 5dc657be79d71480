package tree

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
)

const (
	// AttrPrefix marks map keys that are converted to node attributes.
	AttrPrefix = "@"

	// TextKey is the map key holding the value of a node that also has children
	// or attributes.
	TextKey = "#text"
)

// FromValue method builds a tree from a raw value. Maps become nodes with
// children, slices become repeated children with the same name, keys with "@"
// prefix become attributes. Keys of a map are added in sorted order, because Go
// maps have no order.
func FromValue(name string, value any) *Node {
	node := NewNode(name)
	fill(node, reflect.ValueOf(value))

	return node
}

func fill(node *Node, value reflect.Value) {
	value = strip(value)

	if !value.IsValid() {
		return
	}

	if value.Kind() != reflect.Map {
		node.SetValue(value.Interface())
		return
	}

	keys := value.MapKeys()
	names := make([]string, len(keys))
	index := make(map[string]reflect.Value, len(keys))

	for i, key := range keys {
		names[i] = fmt.Sprintf("%v", strip(key).Interface())
		index[names[i]] = key
	}

	sort.Strings(names)

	for _, name := range names {
		child := value.MapIndex(index[name])

		switch {
		case name == TextKey:
			if v := strip(child); v.IsValid() {
				node.SetValue(v.Interface())
			}
		case strings.HasPrefix(name, AttrPrefix) && len(name) > len(AttrPrefix):
			if v := strip(child); v.IsValid() {
				node.SetAttribute(name[len(AttrPrefix):], v.Interface())
			}
		default:
			addValue(node, name, child)
		}
	}
}

func addValue(parent *Node, name string, value reflect.Value) {
	value = strip(value)

	if value.IsValid() && (value.Kind() == reflect.Slice || value.Kind() == reflect.Array) &&
		value.Type().Elem().Kind() != reflect.Uint8 {

		for i := 0; i < value.Len(); i++ {
			addValue(parent, name, value.Index(i))
		}

		return
	}

	child := NewNode(name)
	fill(child, value)
	parent.AddChild(child)
}

// ToValue method converts a tree to a raw value. A node without children and
// attributes becomes its value. Other nodes become maps; children with the same
// name are collected into a slice.
func ToValue(node *Node) any {
	if node.IsLeaf() && len(node.attrNames) == 0 {
		return node.value
	}

	m := make(map[string]any, len(node.children)+len(node.attrNames))

	for _, attrName := range node.attrNames {
		m[AttrPrefix+attrName] = node.attrs[attrName]
	}

	if node.hasValue {
		m[TextKey] = node.value
	}

	for _, child := range node.children {
		value := ToValue(child)

		if node.ChildCount(child.name) == 1 {
			m[child.name] = value
			continue
		}

		list, _ := m[child.name].([]any)
		m[child.name] = append(list, value)
	}

	return m
}

func strip(value reflect.Value) reflect.Value {
	for value.IsValid() &&
		(value.Kind() == reflect.Interface || value.Kind() == reflect.Ptr) {

		if value.IsNil() {
			return reflect.Value{}
		}

		value = value.Elem()
	}

	return value
}
