package tree

import (
	"errors"
	"fmt"
)

const errPref = "tree"

// ErrInvalidKey is returned when a key cannot be used for the requested
// operation.
var ErrInvalidKey = errors.New("invalid key")

// QueryResult is a single result of a query. It references either a node or an
// attribute of a node.
type QueryResult struct {
	Node          *Node
	AttributeName string
}

// IsAttribute method reports whether the result references an attribute.
func (r QueryResult) IsAttribute() bool {
	return r.AttributeName != ""
}

// Value method returns the value of the referenced node or attribute.
func (r QueryResult) Value() any {
	if r.IsAttribute() {
		value, _ := r.Node.Attribute(r.AttributeName)
		return value
	}

	return r.Node.Value()
}

// AddData describes where new data must be added to the tree. Parent is the
// deepest existing node on the path of the key. PathNodes are names of nodes
// that must be created between Parent and the new node.
type AddData struct {
	Parent      *Node
	PathNodes   []string
	NewNodeName string
	Attribute   bool
}

// Engine evaluates configuration keys against a tree of nodes.
type Engine struct {
	symbols Symbols
}

// DefaultEngine is an engine with DefaultSymbols.
var DefaultEngine = NewEngine(DefaultSymbols)

// NewEngine method creates new expression engine with the given symbols.
func NewEngine(symbols Symbols) *Engine {
	return &Engine{symbols: symbols}
}

// Symbols method returns the symbols of the engine.
func (e *Engine) Symbols() Symbols {
	return e.symbols
}

// NewKey method creates a key builder initialized with the given key.
func (e *Engine) NewKey(key string) *Key {
	k := &Key{symbols: e.symbols}
	k.buf.WriteString(key)

	return k
}

// Parse method splits the key into its elements.
func (e *Engine) Parse(key string) []KeyElement {
	return e.symbols.parse(key)
}

// Query method returns nodes and attributes selected by the key. An empty key
// selects the root node.
func (e *Engine) Query(root *Node, key string) []QueryResult {
	if root == nil {
		return nil
	}

	var results []QueryResult
	e.find(root, e.Parse(key), &results)

	return results
}

// QueryNodes method returns only nodes selected by the key, attribute results
// are skipped.
func (e *Engine) QueryNodes(root *Node, key string) []*Node {
	var nodes []*Node

	for _, res := range e.Query(root, key) {
		if !res.IsAttribute() {
			nodes = append(nodes, res.Node)
		}
	}

	return nodes
}

func (e *Engine) find(node *Node, elems []KeyElement, results *[]QueryResult) {
	if len(elems) == 0 {
		*results = append(*results, QueryResult{Node: node})
		return
	}

	elem := elems[0]

	if elem.Attribute {
		if len(elems) > 1 {
			return
		}

		if _, ok := node.Attribute(elem.Name); ok {
			*results = append(*results,
				QueryResult{Node: node, AttributeName: elem.Name})
		}

		return
	}

	children := node.ChildrenNamed(elem.Name)

	if elem.HasIndex {
		if elem.Index < len(children) {
			e.find(children[elem.Index], elems[1:], results)
		}

		return
	}

	for _, child := range children {
		e.find(child, elems[1:], results)
	}
}

// NodeKey method returns the key of the node relative to the parent key.
func (e *Engine) NodeKey(node *Node, parentKey string) string {
	return e.NewKey(parentKey).Append(node.Name(), true).String()
}

// CanonicalKey method returns the key of the node relative to the parent key
// including the index of the node among its siblings.
func (e *Engine) CanonicalKey(node *Node, parentKey string) string {
	return e.NewKey(parentKey).
		Append(node.Name(), true).
		AppendIndex(node.IndexOf()).
		String()
}

// AttributeKey method returns the key of the attribute of a node with the given
// key.
func (e *Engine) AttributeKey(parentKey, attrName string) string {
	return e.NewKey(parentKey).AppendAttribute(attrName).String()
}

// PrepareAdd method determines where a new node or attribute for the key must
// be added. Existing nodes are followed as far as possible; without an explicit
// index the last child with a matching name is used.
func (e *Engine) PrepareAdd(root *Node, key string) (AddData, error) {
	elems := e.Parse(key)

	if len(elems) == 0 {
		return AddData{}, fmt.Errorf("%s: %w: empty key for add operation",
			errPref, ErrInvalidKey)
	}

	node := root
	last := len(elems) - 1
	i := 0

	for ; i < last; i++ {
		elem := elems[i]

		if elem.Attribute {
			return AddData{}, fmt.Errorf("%s: %w: attribute in the middle of key %q",
				errPref, ErrInvalidKey, key)
		}

		children := node.ChildrenNamed(elem.Name)
		idx := len(children) - 1

		if elem.HasIndex {
			idx = elem.Index
		}

		if idx < 0 || idx >= len(children) {
			break
		}

		node = children[idx]
	}

	data := AddData{Parent: node}

	for ; i < last; i++ {
		if elems[i].Attribute {
			return AddData{}, fmt.Errorf("%s: %w: attribute in the middle of key %q",
				errPref, ErrInvalidKey, key)
		}

		data.PathNodes = append(data.PathNodes, elems[i].Name)
	}

	data.NewNodeName = elems[last].Name
	data.Attribute = elems[last].Attribute

	return data, nil
}

// Add method adds a value for the key to the tree and returns the node that
// holds it.
func (e *Engine) Add(root *Node, key string, value any) (*Node, error) {
	data, err := e.PrepareAdd(root, key)

	if err != nil {
		return nil, err
	}

	parent := data.Parent

	for _, name := range data.PathNodes {
		child := NewNode(name)
		parent.AddChild(child)
		parent = child
	}

	if data.Attribute {
		parent.SetAttribute(data.NewNodeName, value)
		return parent, nil
	}

	child := NewValueNode(data.NewNodeName, value)
	parent.AddChild(child)

	return child, nil
}
