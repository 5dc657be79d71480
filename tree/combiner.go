package tree

import "reflect"

// Combiner combines two trees into a new one. Source trees are not modified.
type Combiner interface {
	Combine(node1, node2 *Node) *Node
}

// ListNodes is a set of node names that combiners never combine. Children with
// these names are always copied from both trees.
type ListNodes map[string]struct{}

// NewListNodes method creates a set of list node names.
func NewListNodes(names ...string) ListNodes {
	ln := make(ListNodes, len(names))

	for _, name := range names {
		ln[name] = struct{}{}
	}

	return ln
}

func (ln ListNodes) has(name string) bool {
	_, ok := ln[name]
	return ok
}

// OverrideCombiner gives the first tree precedence. Parts of the second tree
// are used only where the first tree has no nodes with the same name.
type OverrideCombiner struct {
	ListNodes ListNodes
}

// UnionCombiner combines children of both trees. Children that occur exactly
// once in both trees are combined recursively, all others are copied.
type UnionCombiner struct {
	ListNodes ListNodes
}

// MergeCombiner combines children of both trees. Children with the same name
// are combined when their common attributes have equal values, the rest are
// copied.
type MergeCombiner struct {
	ListNodes ListNodes
}

// Combine method implements Combiner interface.
func (c *OverrideCombiner) Combine(node1, node2 *Node) *Node {
	res := newCombined(node1, node2)

	for _, child := range node1.children {
		if !c.ListNodes.has(child.name) && node1.ChildCount(child.name) == 1 &&
			node2.ChildCount(child.name) == 1 {

			res.AddChild(c.Combine(child, node2.ChildrenNamed(child.name)[0]))
			continue
		}

		res.AddChild(child.Clone())
	}

	for _, child := range node2.children {
		if node1.ChildCount(child.name) == 0 {
			res.AddChild(child.Clone())
		}
	}

	return res
}

// Combine method implements Combiner interface.
func (c *UnionCombiner) Combine(node1, node2 *Node) *Node {
	res := newCombined(node1, node2)
	rest := node2.Children()

	for _, child := range node1.children {
		if !c.ListNodes.has(child.name) && node1.ChildCount(child.name) == 1 &&
			node2.ChildCount(child.name) == 1 {

			child2 := node2.ChildrenNamed(child.name)[0]
			res.AddChild(c.Combine(child, child2))
			rest = without(rest, child2)

			continue
		}

		res.AddChild(child.Clone())
	}

	for _, child := range rest {
		res.AddChild(child.Clone())
	}

	return res
}

// Combine method implements Combiner interface.
func (c *MergeCombiner) Combine(node1, node2 *Node) *Node {
	res := newCombined(node1, node2)
	rest := node2.Children()

	for _, child := range node1.children {
		var match *Node

		if !c.ListNodes.has(child.name) {
			for _, candidate := range rest {
				if candidate.name == child.name && attributesMatch(child, candidate) {
					match = candidate
					break
				}
			}
		}

		if match == nil {
			res.AddChild(child.Clone())
			continue
		}

		res.AddChild(c.Combine(child, match))
		rest = without(rest, match)
	}

	for _, child := range rest {
		res.AddChild(child.Clone())
	}

	return res
}

func newCombined(node1, node2 *Node) *Node {
	res := NewNode(node1.name)

	if node1.hasValue {
		res.SetValue(node1.value)
	} else if node2.hasValue {
		res.SetValue(node2.value)
	}

	for _, name := range node1.attrNames {
		res.SetAttribute(name, node1.attrs[name])
	}

	for _, name := range node2.attrNames {
		if _, ok := res.Attribute(name); !ok {
			res.SetAttribute(name, node2.attrs[name])
		}
	}

	return res
}

func attributesMatch(node1, node2 *Node) bool {
	for _, name := range node1.attrNames {
		value2, ok := node2.attrs[name]

		if ok && !reflect.DeepEqual(node1.attrs[name], value2) {
			return false
		}
	}

	return true
}

func without(nodes []*Node, node *Node) []*Node {
	for i, n := range nodes {
		if n == node {
			return append(nodes[:i], nodes[i+1:]...)
		}
	}

	return nodes
}
