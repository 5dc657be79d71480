package conf

import (
	"fmt"

	"github.com/iph0/conf/v3/interpol"
	"github.com/iph0/conf/v3/tree"
)

// ErrInvalidKey is returned when a key cannot be used for the requested
// operation.
var ErrInvalidKey = tree.ErrInvalidKey

// HierarchicalConfig is a configuration that keeps values in a tree of nodes.
// Keys are evaluated by an expression engine, so they can address repeated
// nodes by index and attributes of nodes.
type HierarchicalConfig struct {
	core
	nodes *nodeStore
}

// NewHierarchicalConfig method creates new empty hierarchical configuration.
func NewHierarchicalConfig(opts ...Option) *HierarchicalConfig {
	return NewHierarchicalConfigFromNode(tree.NewNode(""), opts...)
}

// NewHierarchicalConfigFromNode method creates new hierarchical configuration
// that uses the node as its root. The node is not copied.
func NewHierarchicalConfigFromNode(root *tree.Node,
	opts ...Option) *HierarchicalConfig {

	if root == nil {
		root = tree.NewNode("")
	}

	c := &HierarchicalConfig{
		nodes: &nodeStore{root: root},
	}

	c.init(c, c.nodes, nil)
	c.apply(opts)
	c.nodes.engine = c.engine

	return c
}

// FromMap method creates new hierarchical configuration from a raw value tree.
// Keys that start with "@" become attributes, slices become repeated nodes.
func FromMap(m M, opts ...Option) *HierarchicalConfig {
	return NewHierarchicalConfigFromNode(tree.FromValue("", m), opts...)
}

// ToMap method converts the tree into raw values without interpolation.
func (c *HierarchicalConfig) ToMap() M {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	if m, ok := tree.ToValue(c.nodes.root).(map[string]any); ok {
		return m
	}

	return M{}
}

// Root method returns a copy of the root node.
func (c *HierarchicalConfig) Root() *tree.Node {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	return c.nodes.root.Clone()
}

// SetRoot method replaces the whole tree. The node is not copied.
func (c *HierarchicalConfig) SetRoot(root *tree.Node) {
	if root == nil {
		root = tree.NewNode("")
	}

	c.fire(EventAddNodes, "", root, true)

	c.mutex.Lock()
	c.nodes.root = root
	c.mutex.Unlock()

	c.fire(EventAddNodes, "", root, false)
}

// RootElementName method returns the name of the root node.
func (c *HierarchicalConfig) RootElementName() string {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	return c.nodes.root.Name()
}

// SetRootElementName method changes the name of the root node.
func (c *HierarchicalConfig) SetRootElementName(name string) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.nodes.root.SetName(name)
}

// ExpressionEngine method returns the engine that evaluates keys.
func (c *HierarchicalConfig) ExpressionEngine() *tree.Engine {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	return c.engine
}

// SetExpressionEngine method replaces the engine that evaluates keys.
func (c *HierarchicalConfig) SetExpressionEngine(engine *tree.Engine) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.engine = engine
	c.nodes.engine = engine
}

// AddNodes method adds nodes as children of the node selected by the key. If
// the key selects nothing, the node is created. The key must not select several
// nodes or an attribute.
func (c *HierarchicalConfig) AddNodes(key string, nodes ...*tree.Node) error {
	if len(nodes) == 0 {
		return nil
	}

	c.fire(EventAddNodes, key, nodes, true)

	c.mutex.Lock()
	err := c.nodes.addNodes(key, nodes)
	c.mutex.Unlock()

	if err != nil {
		return fmt.Errorf("%s: %w", errPref, err)
	}

	c.fire(EventAddNodes, key, nodes, false)

	return nil
}

// ClearTree method removes the nodes selected by the key with all their
// descendants.
func (c *HierarchicalConfig) ClearTree(key string) {
	c.fire(EventClearTree, key, nil, true)

	c.mutex.Lock()
	c.nodes.clearTree(key)
	c.mutex.Unlock()

	c.fire(EventClearTree, key, nil, false)
}

// MaxIndex method returns the highest index that can be used with the key, or
// -1 if the key selects no nodes.
func (c *HierarchicalConfig) MaxIndex(key string) int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	return len(c.engine.QueryNodes(c.nodes.root, key)) - 1
}

// ConfigurationAt method returns a configuration rooted at the node selected by
// the key. The returned configuration shares the tree: changes are visible in
// both directions. Variables that cannot be resolved relative to the sub node
// are resolved by this configuration.
func (c *HierarchicalConfig) ConfigurationAt(key string) (*HierarchicalConfig, error) {
	c.mutex.RLock()
	nodes := c.engine.QueryNodes(c.nodes.root, key)
	c.mutex.RUnlock()

	if len(nodes) != 1 {
		return nil, fmt.Errorf("%s: %w: key %q selects %d nodes", errPref,
			ErrInvalidKey, key, len(nodes))
	}

	return c.subConfig(nodes[0], key), nil
}

// ConfigurationsAt method returns a configuration for every node selected by
// the key.
func (c *HierarchicalConfig) ConfigurationsAt(key string) []*HierarchicalConfig {
	c.mutex.RLock()
	nodes := c.engine.QueryNodes(c.nodes.root, key)
	c.mutex.RUnlock()

	configs := make([]*HierarchicalConfig, len(nodes))

	for i, node := range nodes {
		configs[i] = c.subConfig(node, key)
	}

	return configs
}

// ChildConfigurationsAt method returns a configuration for every child of the
// node selected by the key.
func (c *HierarchicalConfig) ChildConfigurationsAt(key string) ([]*HierarchicalConfig, error) {
	c.mutex.RLock()
	nodes := c.engine.QueryNodes(c.nodes.root, key)

	var children []*tree.Node

	if len(nodes) == 1 {
		children = nodes[0].Children()
	}

	c.mutex.RUnlock()

	if len(nodes) != 1 {
		return nil, fmt.Errorf("%s: %w: key %q selects %d nodes", errPref,
			ErrInvalidKey, key, len(nodes))
	}

	configs := make([]*HierarchicalConfig, len(children))

	for i, child := range children {
		configs[i] = c.subConfig(child, key)
	}

	return configs, nil
}

// Interpolated method returns a copy of the configuration with all variables
// expanded.
func (c *HierarchicalConfig) Interpolated() (*HierarchicalConfig, error) {
	clone := c.Clone()

	if err := c.interpolateTree(clone.nodes.root); err != nil {
		return nil, err
	}

	return clone, nil
}

// Clone method returns a deep copy of the configuration with the same engine,
// list handler and prefix lookups. Listeners are not copied.
func (c *HierarchicalConfig) Clone() *HierarchicalConfig {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	clone := NewHierarchicalConfigFromNode(c.nodes.root.Clone(),
		WithExpressionEngine(c.engine),
		WithListHandler(c.listHandler),
		WithLookups(c.interpolator.Lookups()),
	)

	return clone
}

func (c *HierarchicalConfig) subConfig(node *tree.Node, key string) *HierarchicalConfig {
	c.mutex.RLock()
	engine := c.engine
	handler := c.listHandler
	parentIP := c.interpolator
	c.mutex.RUnlock()

	sub := &HierarchicalConfig{
		nodes: &nodeStore{root: node, engine: engine},
	}

	sub.init(sub, sub.nodes, c.mutex)
	sub.engine = engine
	sub.listHandler = handler
	sub.interpolator = sub.newInterpolator(parentIP)

	sub.AddListener(EventAny,
		func(ev Event) {
			if ev.Before {
				return
			}

			c.fire(EventSubnodeChanged, key, ev, false)
		},
	)

	return sub
}

func (c *core) interpolateTree(root *tree.Node) error {
	ip := c.Interpolator()
	var err error

	root.Walk(
		func(node *tree.Node) bool {
			if node.HasValue() {
				var value any
				value, err = ip.Interpolate(node.Value())

				if err != nil {
					return false
				}

				node.SetValue(value)
			}

			for _, name := range node.AttributeNames() {
				attr, _ := node.Attribute(name)
				attr, err = interpolateValue(ip, attr)

				if err != nil {
					return false
				}

				node.SetAttribute(name, attr)
			}

			return true
		},
	)

	if err != nil {
		return fmt.Errorf("%s: %w", errPref, err)
	}

	return nil
}

func interpolateValue(ip *interpol.Interpolator, value any) (any, error) {
	if list, ok := value.([]any); ok {
		return ip.InterpolateAll(list)
	}

	return ip.Interpolate(value)
}

type nodeStore struct {
	root   *tree.Node
	engine *tree.Engine
}

// subtrees returns copies of the nodes selected by the key. Selected attributes
// become value nodes.
func (s *nodeStore) subtrees(key string) ([]*tree.Node, bool) {
	results := s.engine.Query(s.root, key)
	nodes := make([]*tree.Node, len(results))

	for i, res := range results {
		if res.IsAttribute() {
			nodes[i] = tree.NewValueNode("", res.Value())
			continue
		}

		nodes[i] = res.Node.Clone()
	}

	return nodes, true
}

func (s *nodeStore) isAttributeKey(key string) bool {
	elems := s.engine.Parse(key)
	return len(elems) > 0 && elems[len(elems)-1].Attribute
}

func (s *nodeStore) values(key string) []any {
	var values []any

	for _, res := range s.engine.Query(s.root, key) {
		if res.IsAttribute() {
			values = append(values, toList(res.Value())...)
			continue
		}

		if res.Node.HasValue() {
			values = append(values, res.Node.Value())
		}
	}

	return values
}

func (s *nodeStore) add(key string, values []any) error {
	if s.isAttributeKey(key) {
		results := s.engine.Query(s.root, key)

		if len(results) > 0 {
			res := results[len(results)-1]
			res.Node.SetAttribute(res.AttributeName,
				collapse(append(toList(res.Value()), values...)))

			return nil
		}

		_, err := s.engine.Add(s.root, key, collapse(values))

		return err
	}

	for _, value := range values {
		if _, err := s.engine.Add(s.root, key, value); err != nil {
			return err
		}
	}

	return nil
}

func (s *nodeStore) set(key string, values []any) error {
	results := s.engine.Query(s.root, key)

	if s.isAttributeKey(key) {
		if len(results) == 0 {
			_, err := s.engine.Add(s.root, key, collapse(values))
			return err
		}

		for _, res := range results {
			res.Node.SetAttribute(res.AttributeName, collapse(values))
		}

		return nil
	}

	i := 0

	for ; i < len(results) && i < len(values); i++ {
		results[i].Node.SetValue(values[i])
	}

	for ; i < len(values); i++ {
		if _, err := s.engine.Add(s.root, key, values[i]); err != nil {
			return err
		}
	}

	for ; i < len(results); i++ {
		node := results[i].Node
		node.SetValue(nil)
		s.prune(node)
	}

	return nil
}

func (s *nodeStore) clear(key string) {
	for _, res := range s.engine.Query(s.root, key) {
		if res.IsAttribute() {
			res.Node.RemoveAttribute(res.AttributeName)
		} else {
			res.Node.SetValue(nil)
		}

		s.prune(res.Node)
	}
}

func (s *nodeStore) clearTree(key string) {
	for _, res := range s.engine.Query(s.root, key) {
		if res.IsAttribute() {
			res.Node.RemoveAttribute(res.AttributeName)
			s.prune(res.Node)

			continue
		}

		if res.Node == s.root {
			s.clearAll()
			continue
		}

		parent := res.Node.Parent()

		if parent != nil {
			parent.RemoveChild(res.Node)
			s.prune(parent)
		}
	}
}

func (s *nodeStore) clearAll() {
	s.root.RemoveChildren("")
	s.root.SetValue(nil)

	for _, name := range s.root.AttributeNames() {
		s.root.RemoveAttribute(name)
	}
}

// prune removes undefined nodes on the path from the node up to the root.
func (s *nodeStore) prune(node *tree.Node) {
	for node != nil && node != s.root && !node.IsDefined() {
		parent := node.Parent()

		if parent == nil {
			return
		}

		parent.RemoveChild(node)
		node = parent
	}
}

func (s *nodeStore) addNodes(key string, nodes []*tree.Node) error {
	if s.isAttributeKey(key) {
		return fmt.Errorf("%w: cannot add nodes to attribute %q", ErrInvalidKey, key)
	}

	var target *tree.Node
	targets := s.engine.QueryNodes(s.root, key)

	switch len(targets) {
	case 0:
		data, err := s.engine.PrepareAdd(s.root, key)

		if err != nil {
			return err
		}

		target = data.Parent

		for _, name := range data.PathNodes {
			child := tree.NewNode(name)
			target.AddChild(child)
			target = child
		}

		child := tree.NewNode(data.NewNodeName)
		target.AddChild(child)
		target = child
	case 1:
		target = targets[0]
	default:
		return fmt.Errorf("%w: key %q selects %d nodes", ErrInvalidKey, key,
			len(targets))
	}

	target.AddChildren(nodes...)

	return nil
}

func (s *nodeStore) keys() []string {
	var keys []string
	seen := make(map[string]struct{})

	addKey := func(key string) {
		if _, ok := seen[key]; ok {
			return
		}

		seen[key] = struct{}{}
		keys = append(keys, key)
	}

	var visit func(node *tree.Node, key string)

	visit = func(node *tree.Node, key string) {
		if key != "" && node.HasValue() {
			addKey(key)
		}

		for _, name := range node.AttributeNames() {
			addKey(s.engine.AttributeKey(key, name))
		}

		for _, child := range node.Children() {
			visit(child, s.engine.NodeKey(child, key))
		}
	}

	visit(s.root, "")

	return keys
}
