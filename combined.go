package conf

import (
	"fmt"
	"sync"

	"github.com/iph0/conf/v3/tree"
)

// CombinedConfig combines the trees of named hierarchical configurations into
// a single tree using a node combiner. The combined tree is rebuilt lazily
// after a child configuration changes. Changes made directly to the combined
// configuration are lost when the tree is rebuilt.
type CombinedConfig struct {
	core
	combined *combinedStore
}

type namedConfig struct {
	name       string
	at         string
	config     *HierarchicalConfig
	listenerID ListenerID
}

// NewCombinedConfig method creates new combined configuration. If combiner is
// nil, a UnionCombiner is used.
func NewCombinedConfig(combiner tree.Combiner, opts ...Option) *CombinedConfig {
	if combiner == nil {
		combiner = &tree.UnionCombiner{}
	}

	c := &CombinedConfig{
		combined: &combinedStore{combiner: combiner},
	}

	c.init(c, c.combined, nil)
	c.apply(opts)
	c.combined.engine = c.engine

	return c
}

// AddConfiguration method adds a named configuration. If at is not empty, the
// tree of the configuration is placed below the nodes of this key. Names must
// be unique; an empty name is allowed once.
func (c *CombinedConfig) AddConfiguration(name string, cfg *HierarchicalConfig,
	at string) error {

	c.mutex.Lock()

	for _, child := range c.combined.children {
		if child.name == name {
			c.mutex.Unlock()
			return fmt.Errorf("%s: configuration %q already added", errPref, name)
		}
	}

	child := &namedConfig{
		name:   name,
		at:     at,
		config: cfg,
	}

	c.combined.children = append(c.combined.children, child)
	c.mutex.Unlock()

	child.listenerID = cfg.AddListener(EventAny,
		func(ev Event) {
			if !ev.Before {
				c.Invalidate()
			}
		},
	)

	c.Invalidate()

	return nil
}

// RemoveConfiguration method removes the named configuration.
func (c *CombinedConfig) RemoveConfiguration(name string) bool {
	c.mutex.Lock()
	var removed *namedConfig

	for i, child := range c.combined.children {
		if child.name == name {
			removed = child
			children := c.combined.children
			c.combined.children = append(children[:i:i], children[i+1:]...)

			break
		}
	}

	c.mutex.Unlock()

	if removed == nil {
		return false
	}

	removed.config.RemoveListener(removed.listenerID)
	c.Invalidate()

	return true
}

// Configuration method returns the named configuration or nil.
func (c *CombinedConfig) Configuration(name string) *HierarchicalConfig {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	for _, child := range c.combined.children {
		if child.name == name {
			return child.config
		}
	}

	return nil
}

// Names method returns names of child configurations in the order they were
// added.
func (c *CombinedConfig) Names() []string {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	names := make([]string, len(c.combined.children))

	for i, child := range c.combined.children {
		names[i] = child.name
	}

	return names
}

// Combiner method returns the node combiner.
func (c *CombinedConfig) Combiner() tree.Combiner {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	return c.combined.combiner
}

// SetCombiner method replaces the node combiner and invalidates the combined
// tree.
func (c *CombinedConfig) SetCombiner(combiner tree.Combiner) {
	c.mutex.Lock()
	c.combined.combiner = combiner
	c.mutex.Unlock()

	c.Invalidate()
}

// Invalidate method forces the combined tree to be rebuilt on next access.
func (c *CombinedConfig) Invalidate() {
	c.combined.invalidate()
}

// Root method returns a copy of the combined tree.
func (c *CombinedConfig) Root() *tree.Node {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	return c.combined.current().root.Clone()
}

// MaxIndex method returns the highest index that can be used with the key in
// the combined tree, or -1 if the key selects no nodes.
func (c *CombinedConfig) MaxIndex(key string) int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	return len(c.engine.QueryNodes(c.combined.current().root, key)) - 1
}

// ToHierarchical method returns a snapshot of the combined tree as a
// hierarchical configuration.
func (c *CombinedConfig) ToHierarchical() *HierarchicalConfig {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	return NewHierarchicalConfigFromNode(c.combined.current().root.Clone(),
		WithExpressionEngine(c.engine),
		WithListHandler(c.listHandler),
		WithLookups(c.interpolator.Lookups()),
	)
}

type combinedStore struct {
	children []*namedConfig
	combiner tree.Combiner
	engine   *tree.Engine

	cacheMutex sync.Mutex
	cache      *nodeStore
}

func (s *combinedStore) invalidate() {
	s.cacheMutex.Lock()
	s.cache = nil
	s.cacheMutex.Unlock()
}

// current returns the combined tree, rebuilding it if needed. A rebuild creates
// a new store, so readers holding the previous one are not affected.
func (s *combinedStore) current() *nodeStore {
	s.cacheMutex.Lock()
	defer s.cacheMutex.Unlock()

	if s.cache == nil {
		s.cache = &nodeStore{root: s.build(), engine: s.engine}
	}

	return s.cache
}

func (s *combinedStore) build() *tree.Node {
	var root *tree.Node

	for _, child := range s.children {
		node := s.positioned(child)

		if root == nil {
			root = node
			continue
		}

		root = s.combiner.Combine(root, node)
	}

	if root == nil {
		return tree.NewNode("")
	}

	return root
}

func (s *combinedStore) positioned(child *namedConfig) *tree.Node {
	node := child.config.Root()

	if child.at == "" {
		return node
	}

	root := tree.NewNode("")
	parent := root

	for _, elem := range s.engine.Parse(child.at) {
		next := tree.NewNode(elem.Name)
		parent.AddChild(next)
		parent = next
	}

	for _, name := range node.AttributeNames() {
		value, _ := node.Attribute(name)
		parent.SetAttribute(name, value)
	}

	if node.HasValue() {
		parent.SetValue(node.Value())
	}

	parent.AddChildren(node.Children()...)

	return root
}

func (s *combinedStore) values(key string) []any {
	return s.current().values(key)
}

func (s *combinedStore) subtrees(key string) ([]*tree.Node, bool) {
	return s.current().subtrees(key)
}

func (s *combinedStore) add(key string, values []any) error {
	return s.current().add(key, values)
}

func (s *combinedStore) set(key string, values []any) error {
	return s.current().set(key, values)
}

func (s *combinedStore) clear(key string) {
	s.current().clear(key)
}

func (s *combinedStore) clearAll() {
	s.current().clearAll()
}

func (s *combinedStore) keys() []string {
	return s.current().keys()
}
