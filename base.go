package conf

import (
	"reflect"
	"sort"
)

// BaseConfig is a flat configuration that keeps values in memory. Keys are
// opaque strings kept in insertion order.
type BaseConfig struct {
	core
}

// NewBaseConfig method creates new empty flat configuration.
func NewBaseConfig(opts ...Option) *BaseConfig {
	c := &BaseConfig{}
	c.init(c, newFlatStore(), nil)
	c.apply(opts)

	return c
}

// NewBaseConfigFromMap method creates new flat configuration from the map.
// Nested maps are flattened into keys joined with the property delimiter.
func NewBaseConfigFromMap(m M, opts ...Option) *BaseConfig {
	c := NewBaseConfig(opts...)
	st := c.store.(*flatStore)
	flatten(m, "", c.engine.Symbols().PropertyDelimiter, st)

	return c
}

// Clone method returns a copy of the configuration with the same list handler
// and prefix lookups. Listeners are not copied.
func (c *BaseConfig) Clone() *BaseConfig {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	clone := &BaseConfig{}
	clone.init(clone, c.store.(*flatStore).clone(), nil)
	clone.engine = c.engine
	clone.listHandler = c.listHandler
	clone.interpolator.RegisterLookups(c.interpolator.Lookups())

	return clone
}

// ToMap method returns raw values keyed by their keys. Keys with several values
// are mapped to []any.
func (c *BaseConfig) ToMap() M {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	m := make(M)

	for _, key := range c.store.keys() {
		m[key] = collapse(c.store.values(key))
	}

	return m
}

type flatStore struct {
	order []string
	data  map[string][]any
}

func newFlatStore() *flatStore {
	return &flatStore{data: make(map[string][]any)}
}

func (s *flatStore) values(key string) []any {
	values := s.data[key]

	if len(values) == 0 {
		return nil
	}

	return append([]any(nil), values...)
}

func (s *flatStore) add(key string, values []any) error {
	if _, ok := s.data[key]; !ok {
		s.order = append(s.order, key)
	}

	s.data[key] = append(s.data[key], values...)

	return nil
}

func (s *flatStore) set(key string, values []any) error {
	if _, ok := s.data[key]; !ok {
		s.order = append(s.order, key)
	}

	s.data[key] = append([]any(nil), values...)

	return nil
}

func (s *flatStore) clear(key string) {
	if _, ok := s.data[key]; !ok {
		return
	}

	delete(s.data, key)

	for i, k := range s.order {
		if k == key {
			s.order = append(s.order[:i:i], s.order[i+1:]...)
			break
		}
	}
}

func (s *flatStore) clearAll() {
	s.order = nil
	s.data = make(map[string][]any)
}

func (s *flatStore) keys() []string {
	return append([]string(nil), s.order...)
}

func (s *flatStore) clone() *flatStore {
	clone := newFlatStore()

	for _, key := range s.order {
		clone.order = append(clone.order, key)
		clone.data[key] = append([]any(nil), s.data[key]...)
	}

	return clone
}

func flatten(m M, prefix, delim string, st *flatStore) {
	keys := make([]string, 0, len(m))

	for key := range m {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	for _, key := range keys {
		fullKey := key

		if prefix != "" {
			fullKey = prefix + delim + key
		}

		value := m[key]

		if nested, ok := value.(M); ok {
			flatten(nested, fullKey, delim, st)
			continue
		}

		rv := reflect.ValueOf(value)

		if rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() != reflect.Uint8 {
			values := make([]any, rv.Len())

			for i := range values {
				values[i] = rv.Index(i).Interface()
			}

			if len(values) > 0 {
				st.add(fullKey, values)
			}

			continue
		}

		if value != nil {
			st.add(fullKey, []any{value})
		}
	}
}
