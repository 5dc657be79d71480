// Copyright (c) 2024, Eugene Ponizovsky, <ponizovsky@gmail.com>. All rights
// reserved. Use of this source code is governed by a MIT License that can
// be found in the LICENSE file.

package tree

// Node is an element of the configuration tree. A node has a name, an optional
// value, ordered attributes and ordered child nodes. Nodes are not safe for
// concurrent use; configurations guard their trees with their own locks.
type Node struct {
	name      string
	value     any
	attrNames []string
	attrs     map[string]any
	children  []*Node
	parent    *Node
	hasValue  bool
}

// VisitFunc is called for each node visited by Walk method. If the function
// returns false, children of the node are not visited.
type VisitFunc func(node *Node) bool

// NewNode method creates new node with the given name.
func NewNode(name string) *Node {
	return &Node{name: name}
}

// NewValueNode method creates new node with the given name and value.
func NewValueNode(name string, value any) *Node {
	n := NewNode(name)
	n.SetValue(value)

	return n
}

// Name method returns the name of the node.
func (n *Node) Name() string {
	return n.name
}

// SetName method renames the node.
func (n *Node) SetName(name string) {
	n.name = name
}

// Value method returns the value of the node or nil.
func (n *Node) Value() any {
	return n.value
}

// HasValue method reports whether a value was assigned to the node.
func (n *Node) HasValue() bool {
	return n.hasValue
}

// SetValue method assigns a value to the node. Assigning nil removes the value.
func (n *Node) SetValue(value any) {
	n.value = value
	n.hasValue = value != nil
}

// Parent method returns the parent node or nil for the root.
func (n *Node) Parent() *Node {
	return n.parent
}

// Children method returns a copy of the child list.
func (n *Node) Children() []*Node {
	return append([]*Node(nil), n.children...)
}

// ChildrenNamed method returns child nodes with the given name in document
// order.
func (n *Node) ChildrenNamed(name string) []*Node {
	var res []*Node

	for _, child := range n.children {
		if child.name == name {
			res = append(res, child)
		}
	}

	return res
}

// ChildAt method returns the child with the given position or nil.
func (n *Node) ChildAt(i int) *Node {
	if i < 0 || i >= len(n.children) {
		return nil
	}

	return n.children[i]
}

// ChildCount method returns the number of children with the given name. An
// empty name counts all children.
func (n *Node) ChildCount(name string) int {
	if name == "" {
		return len(n.children)
	}

	var cnt int

	for _, child := range n.children {
		if child.name == name {
			cnt++
		}
	}

	return cnt
}

// AddChild method appends a child node. If the child belongs to another node
// it is detached from it first.
func (n *Node) AddChild(child *Node) {
	if child.parent != nil {
		child.parent.RemoveChild(child)
	}

	child.parent = n
	n.children = append(n.children, child)
}

// AddChildren method appends several child nodes.
func (n *Node) AddChildren(children ...*Node) {
	for _, child := range children {
		n.AddChild(child)
	}
}

// RemoveChild method detaches the child from the node. Returns false if the
// node is not a child of n.
func (n *Node) RemoveChild(child *Node) bool {
	for i, c := range n.children {
		if c == child {
			n.children = append(n.children[:i], n.children[i+1:]...)
			child.parent = nil

			return true
		}
	}

	return false
}

// RemoveChildren method detaches all children with the given name. An empty
// name removes all children.
func (n *Node) RemoveChildren(name string) {
	kept := n.children[:0]

	for _, child := range n.children {
		if name == "" || child.name == name {
			child.parent = nil
			continue
		}

		kept = append(kept, child)
	}

	n.children = kept
}

// AttributeNames method returns attribute names in insertion order.
func (n *Node) AttributeNames() []string {
	return append([]string(nil), n.attrNames...)
}

// Attribute method returns the value of the attribute.
func (n *Node) Attribute(name string) (any, bool) {
	value, ok := n.attrs[name]
	return value, ok
}

// SetAttribute method sets the value of the attribute. Setting nil removes the
// attribute.
func (n *Node) SetAttribute(name string, value any) {
	if value == nil {
		n.RemoveAttribute(name)
		return
	}

	if n.attrs == nil {
		n.attrs = make(map[string]any)
	}

	if _, ok := n.attrs[name]; !ok {
		n.attrNames = append(n.attrNames, name)
	}

	n.attrs[name] = value
}

// RemoveAttribute method removes the attribute from the node.
func (n *Node) RemoveAttribute(name string) {
	if _, ok := n.attrs[name]; !ok {
		return
	}

	delete(n.attrs, name)

	for i, attrName := range n.attrNames {
		if attrName == name {
			n.attrNames = append(n.attrNames[:i], n.attrNames[i+1:]...)
			break
		}
	}
}

// IsDefined method reports whether the node carries any data: a value,
// attributes or children.
func (n *Node) IsDefined() bool {
	return n.hasValue || len(n.attrNames) > 0 || len(n.children) > 0
}

// IsLeaf method reports whether the node has no children.
func (n *Node) IsLeaf() bool {
	return len(n.children) == 0
}

// IndexOf method returns the position of the node among siblings with the same
// name, or 0 for the root.
func (n *Node) IndexOf() int {
	if n.parent == nil {
		return 0
	}

	var idx int

	for _, sibling := range n.parent.children {
		if sibling == n {
			return idx
		}

		if sibling.name == n.name {
			idx++
		}
	}

	return idx
}

// Clone method creates a deep copy of the node. The copy has no parent.
func (n *Node) Clone() *Node {
	c := &Node{
		name:     n.name,
		value:    n.value,
		hasValue: n.hasValue,
	}

	for _, attrName := range n.attrNames {
		c.SetAttribute(attrName, n.attrs[attrName])
	}

	for _, child := range n.children {
		c.AddChild(child.Clone())
	}

	return c
}

// Walk method visits the node and its descendants in depth-first order.
func (n *Node) Walk(f VisitFunc) {
	if !f(n) {
		return
	}

	for _, child := range n.Children() {
		child.Walk(f)
	}
}
