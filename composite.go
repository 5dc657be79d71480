package conf

// CompositeConfig combines several configurations in a priority order. A key
// is read from the first configuration that contains it. Changes are written to
// the in-memory configuration, which always has the lowest priority.
type CompositeConfig struct {
	core
	composite *compositeStore
}

// NewCompositeConfig method creates new composite configuration. If inMemory
// is nil, a BaseConfig is used.
func NewCompositeConfig(inMemory Configuration, opts ...Option) *CompositeConfig {
	if inMemory == nil {
		inMemory = NewBaseConfig()
	}

	c := &CompositeConfig{
		composite: &compositeStore{
			configs:  []Configuration{inMemory},
			inMemory: inMemory,
		},
	}

	c.init(c, c.composite, nil)
	c.apply(opts)

	return c
}

// AddConfiguration method adds a configuration with a priority lower than the
// ones added before but higher than the in-memory configuration. Adding a
// configuration twice has no effect.
func (c *CompositeConfig) AddConfiguration(cfg Configuration) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.composite.indexOf(cfg) >= 0 {
		return
	}

	last := len(c.composite.configs) - 1
	configs := append([]Configuration(nil), c.composite.configs[:last]...)
	c.composite.configs = append(configs, cfg, c.composite.inMemory)
}

// AddConfigurationFirst method adds a configuration with the highest priority.
func (c *CompositeConfig) AddConfigurationFirst(cfg Configuration) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.composite.indexOf(cfg) >= 0 {
		return
	}

	c.composite.configs = append([]Configuration{cfg}, c.composite.configs...)
}

// RemoveConfiguration method removes a configuration. The in-memory
// configuration cannot be removed.
func (c *CompositeConfig) RemoveConfiguration(cfg Configuration) bool {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if cfg == c.composite.inMemory {
		return false
	}

	idx := c.composite.indexOf(cfg)

	if idx < 0 {
		return false
	}

	configs := c.composite.configs
	c.composite.configs = append(configs[:idx:idx], configs[idx+1:]...)

	return true
}

// Configurations method returns child configurations in priority order.
func (c *CompositeConfig) Configurations() []Configuration {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	return append([]Configuration(nil), c.composite.configs...)
}

// NumberOfConfigurations method returns the number of child configurations
// including the in-memory one.
func (c *CompositeConfig) NumberOfConfigurations() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	return len(c.composite.configs)
}

// InMemory method returns the configuration that receives changes.
func (c *CompositeConfig) InMemory() Configuration {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	return c.composite.inMemory
}

// Source method returns the first child configuration that contains the key,
// or nil.
func (c *CompositeConfig) Source(key string) Configuration {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	for _, cfg := range c.composite.configs {
		if cfg.Contains(key) {
			return cfg
		}
	}

	return nil
}

type compositeStore struct {
	configs  []Configuration
	inMemory Configuration
}

func (s *compositeStore) indexOf(cfg Configuration) int {
	for i, c := range s.configs {
		if c == cfg {
			return i
		}
	}

	return -1
}

func (s *compositeStore) values(key string) []any {
	for _, cfg := range s.configs {
		if value := cfg.GetRaw(key); value != nil {
			return append([]any(nil), toList(value)...)
		}
	}

	return nil
}

func (s *compositeStore) add(key string, values []any) error {
	for _, value := range values {
		if err := s.inMemory.Add(key, value); err != nil {
			return err
		}
	}

	return nil
}

func (s *compositeStore) set(key string, values []any) error {
	s.clear(key)

	return s.add(key, values)
}

func (s *compositeStore) clear(key string) {
	for _, cfg := range s.configs {
		cfg.Clear(key)
	}
}

func (s *compositeStore) clearAll() {
	s.configs = []Configuration{s.inMemory}
	s.inMemory.ClearAll()
}

func (s *compositeStore) keys() []string {
	var keys []string
	seen := make(map[string]struct{})

	for _, cfg := range s.configs {
		for _, key := range cfg.Keys() {
			if _, ok := seen[key]; ok {
				continue
			}

			seen[key] = struct{}{}
			keys = append(keys, key)
		}
	}

	return keys
}
