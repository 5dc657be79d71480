package conf

import (
	"strings"

	"github.com/iph0/conf/v3/tree"
)

// SubsetConfig is a view of the keys of another configuration that start with
// a prefix. The view shares the lock, the interpolator and the storage of the
// configuration it was created from.
type SubsetConfig struct {
	core
	prefix string
}

func newSubset(parent *core, prefix string) *SubsetConfig {
	parent.mutex.RLock()
	defer parent.mutex.RUnlock()

	s := &SubsetConfig{prefix: prefix}

	s.init(s,
		&prefixStore{
			parent:  parent.store,
			prefix:  prefix,
			symbols: parent.engine.Symbols(),
		},
		parent.mutex,
	)

	s.engine = parent.engine
	s.interpolator = parent.interpolator
	s.listHandler = parent.listHandler

	return s
}

// Prefix method returns the prefix of the subset.
func (s *SubsetConfig) Prefix() string {
	return s.prefix
}

type prefixStore struct {
	parent  store
	prefix  string
	symbols tree.Symbols
}

func (s *prefixStore) parentKey(key string) string {
	if s.prefix == "" {
		return key
	}

	if key == "" {
		return s.prefix
	}

	if s.symbols.AttributeStart != "" &&
		strings.HasPrefix(key, s.symbols.AttributeStart) {
		return s.prefix + key
	}

	return s.prefix + s.symbols.PropertyDelimiter + key
}

// childKey returns the key relative to the prefix or false if the key is not
// below the prefix. The prefix key itself is not part of the subset keys.
func (s *prefixStore) childKey(key string) (string, bool) {
	if s.prefix == "" {
		return key, true
	}

	if !strings.HasPrefix(key, s.prefix) {
		return "", false
	}

	rest := key[len(s.prefix):]

	if strings.HasPrefix(rest, s.symbols.PropertyDelimiter) &&
		!strings.HasPrefix(rest, s.symbols.EscapedDelimiter) {
		return rest[len(s.symbols.PropertyDelimiter):], true
	}

	if s.symbols.AttributeStart != "" &&
		strings.HasPrefix(rest, s.symbols.AttributeStart) {
		return rest, true
	}

	return "", false
}

func (s *prefixStore) values(key string) []any {
	return s.parent.values(s.parentKey(key))
}

func (s *prefixStore) subtrees(key string) ([]*tree.Node, bool) {
	src, ok := s.parent.(nodeSource)

	if !ok {
		return nil, false
	}

	return src.subtrees(s.parentKey(key))
}

func (s *prefixStore) add(key string, values []any) error {
	return s.parent.add(s.parentKey(key), values)
}

func (s *prefixStore) set(key string, values []any) error {
	return s.parent.set(s.parentKey(key), values)
}

func (s *prefixStore) clear(key string) {
	s.parent.clear(s.parentKey(key))
}

func (s *prefixStore) clearAll() {
	for _, key := range s.keys() {
		s.clear(key)
	}
}

func (s *prefixStore) keys() []string {
	var keys []string

	for _, key := range s.parent.keys() {
		if child, ok := s.childKey(key); ok {
			keys = append(keys, child)
		}
	}

	return keys
}
