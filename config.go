package conf

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/iph0/conf/v3/interpol"
	"github.com/iph0/conf/v3/tree"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cast"
)

const (
	errPref        = "conf"
	decoderTagName = "conf"
)

var (
	// ErrNoSuchKey is returned when a requested key has no value.
	ErrNoSuchKey = errors.New("no such key")

	// ErrUnsupported is returned when an operation is not supported by a
	// configuration.
	ErrUnsupported = errors.New("unsupported operation")
)

// M type is a convenient alias for a map[string]any map.
type M = map[string]any

// A type is a convenient alias for a []any slice.
type A = []any

// Configuration is the common interface of all configurations.
type Configuration interface {
	// Get returns the interpolated value of the key, a []any if the key has
	// several values, or nil.
	Get(key string) any

	// GetRaw returns the value of the key without interpolation.
	GetRaw(key string) any

	// Value returns the interpolated value of the key or an error if the key is
	// missing or interpolation fails.
	Value(key string) (any, error)

	GetString(key string) (string, error)
	GetInt(key string) (int, error)
	GetInt64(key string) (int64, error)
	GetFloat64(key string) (float64, error)
	GetBool(key string) (bool, error)
	GetDuration(key string) (time.Duration, error)
	GetStringSlice(key string) ([]string, error)

	Set(key string, value any) error
	Add(key string, value any) error
	Clear(key string)
	ClearAll()
	Contains(key string) bool
	Keys() []string
	KeysWithPrefix(prefix string) []string
	IsEmpty() bool
	Size() int
	Subset(prefix string) Configuration
	Decode(key string, target any) error

	Interpolator() *interpol.Interpolator
	AddListener(typ EventType, listener Listener) ListenerID
	RemoveListener(id ListenerID) bool
}

// Option configures a configuration on creation.
type Option func(*core)

// WithListHandler sets the handler that splits string values into lists.
func WithListHandler(handler ListHandler) Option {
	return func(c *core) {
		c.listHandler = handler
	}
}

// WithListDelimiter enables splitting of string values at the delimiter.
func WithListDelimiter(delimiter rune) Option {
	return WithListHandler(DelimiterListHandler{Delimiter: delimiter})
}

// WithInterpolator replaces the interpolator of the configuration.
func WithInterpolator(ip *interpol.Interpolator) Option {
	return func(c *core) {
		c.interpolator = ip
	}
}

// WithLookups registers additional prefix lookups in the interpolator.
func WithLookups(lookups map[string]interpol.Lookup) Option {
	return func(c *core) {
		c.interpolator.RegisterLookups(lookups)
	}
}

// WithDefaultLookups appends default lookups to the interpolator. They are
// asked after the configuration itself.
func WithDefaultLookups(lookups ...interpol.Lookup) Option {
	return func(c *core) {
		c.interpolator.AddDefaultLookups(lookups...)
	}
}

// WithExpressionEngine sets the engine that evaluates keys.
func WithExpressionEngine(engine *tree.Engine) Option {
	return func(c *core) {
		c.engine = engine
	}
}

// store is the storage behind a configuration. Methods are called with the
// configuration lock held.
type store interface {
	values(key string) []any
	add(key string, values []any) error
	set(key string, values []any) error
	clear(key string)
	clearAll()
	keys() []string
}

// nodeSource is implemented by stores backed by a tree of nodes. The second
// result is false if the store has no tree.
type nodeSource interface {
	subtrees(key string) ([]*tree.Node, bool)
}

// core implements behaviour shared by all configurations: locking,
// interpolation, list splitting, events and typed access.
type core struct {
	mutex        *sync.RWMutex
	store        store
	engine       *tree.Engine
	interpolator *interpol.Interpolator
	listHandler  ListHandler
	events       *eventSource
	source       Configuration
}

func (c *core) init(source Configuration, st store, mutex *sync.RWMutex) {
	if mutex == nil {
		mutex = &sync.RWMutex{}
	}

	c.source = source
	c.store = st
	c.mutex = mutex
	c.engine = tree.DefaultEngine
	c.listHandler = DisabledListHandler{}
	c.events = &eventSource{}
	c.interpolator = c.newInterpolator(nil)
}

func (c *core) apply(opts []Option) {
	for _, apply := range opts {
		apply(c)
	}
}

func (c *core) newInterpolator(parent *interpol.Interpolator) *interpol.Interpolator {
	return interpol.New(
		interpol.WithLookups(interpol.DefaultLookups()),
		interpol.WithDefaultLookups(interpol.LookupFunc(c.lookupKey)),
		interpol.WithParent(parent),
	)
}

func (c *core) lookupKey(key string) (any, bool) {
	value := c.GetRaw(key)
	return value, value != nil
}

// Interpolator method returns the interpolator of the configuration.
func (c *core) Interpolator() *interpol.Interpolator {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	return c.interpolator
}

// SetInterpolator method replaces the interpolator of the configuration.
func (c *core) SetInterpolator(ip *interpol.Interpolator) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.interpolator = ip
}

// ListHandler method returns the list handler of the configuration.
func (c *core) ListHandler() ListHandler {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	return c.listHandler
}

// SetListHandler method replaces the list handler of the configuration. Values
// that were already added are not affected.
func (c *core) SetListHandler(handler ListHandler) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.listHandler = handler
}

// GetRaw method returns the value of the key without interpolation.
func (c *core) GetRaw(key string) any {
	c.mutex.RLock()
	values := c.store.values(key)
	c.mutex.RUnlock()

	return collapse(values)
}

// Value method returns the interpolated value of the key. ErrNoSuchKey is
// returned if the key has no value.
func (c *core) Value(key string) (any, error) {
	c.mutex.RLock()
	values := c.store.values(key)
	ip := c.interpolator
	c.mutex.RUnlock()

	if len(values) == 0 {
		return nil, fmt.Errorf("%s: %w: %s", errPref, ErrNoSuchKey, key)
	}

	var value any
	var err error

	if len(values) == 1 {
		value, err = ip.Interpolate(values[0])
	} else {
		value, err = ip.InterpolateAll(values)
	}

	if err != nil {
		return nil, fmt.Errorf("%s: key %s: %w", errPref, key, err)
	}

	return value, nil
}

// Get method returns the interpolated value of the key, a []any if the key has
// several values, or nil if the key is missing. If interpolation fails, the
// raw value is returned.
func (c *core) Get(key string) any {
	value, err := c.Value(key)

	if err != nil {
		if errors.Is(err, ErrNoSuchKey) {
			return nil
		}

		log.WithError(err).WithField("key", key).Warn("Interpolation failed.")

		return c.GetRaw(key)
	}

	return value
}

// GetString method returns the value of the key as a string.
func (c *core) GetString(key string) (string, error) {
	return convert(c, key, cast.ToStringE)
}

// GetInt method returns the value of the key as an int.
func (c *core) GetInt(key string) (int, error) {
	return convert(c, key, cast.ToIntE)
}

// GetInt64 method returns the value of the key as an int64.
func (c *core) GetInt64(key string) (int64, error) {
	return convert(c, key, cast.ToInt64E)
}

// GetFloat64 method returns the value of the key as a float64.
func (c *core) GetFloat64(key string) (float64, error) {
	return convert(c, key, cast.ToFloat64E)
}

// GetBool method returns the value of the key as a bool.
func (c *core) GetBool(key string) (bool, error) {
	return convert(c, key, cast.ToBoolE)
}

// GetDuration method returns the value of the key as a duration. Strings are
// parsed with time.ParseDuration, numbers are nanoseconds.
func (c *core) GetDuration(key string) (time.Duration, error) {
	return convert(c, key, cast.ToDurationE)
}

// GetStringSlice method returns all values of the key as strings.
func (c *core) GetStringSlice(key string) ([]string, error) {
	value, err := c.Value(key)

	if err != nil {
		return nil, err
	}

	list, ok := value.([]any)

	if !ok {
		list = []any{value}
	}

	res := make([]string, len(list))

	for i, item := range list {
		res[i], err = cast.ToStringE(item)

		if err != nil {
			return nil, conversionError(key, err)
		}
	}

	return res, nil
}

// GetStringOr method returns the value of the key as a string or def if the
// key is missing or cannot be converted.
func (c *core) GetStringOr(key, def string) string {
	if value, err := c.GetString(key); err == nil {
		return value
	}

	return def
}

// GetIntOr method returns the value of the key as an int or def.
func (c *core) GetIntOr(key string, def int) int {
	if value, err := c.GetInt(key); err == nil {
		return value
	}

	return def
}

// GetBoolOr method returns the value of the key as a bool or def.
func (c *core) GetBoolOr(key string, def bool) bool {
	if value, err := c.GetBool(key); err == nil {
		return value
	}

	return def
}

// GetDurationOr method returns the value of the key as a duration or def.
func (c *core) GetDurationOr(key string, def time.Duration) time.Duration {
	if value, err := c.GetDuration(key); err == nil {
		return value
	}

	return def
}

// Set method replaces all values of the key. String values are split by the
// list handler, slices set several values. Setting nil clears the key.
func (c *core) Set(key string, value any) error {
	c.fire(EventSetProperty, key, value, true)

	c.mutex.Lock()
	values := c.split(value)
	var err error

	if len(values) == 0 {
		c.store.clear(key)
	} else {
		err = c.store.set(key, values)
	}

	c.mutex.Unlock()

	if err != nil {
		return fmt.Errorf("%s: cannot set key %s: %w", errPref, key, err)
	}

	c.fire(EventSetProperty, key, value, false)

	return nil
}

// Add method appends values to the key.
func (c *core) Add(key string, value any) error {
	c.fire(EventAddProperty, key, value, true)

	c.mutex.Lock()
	values := c.split(value)
	var err error

	if len(values) > 0 {
		err = c.store.add(key, values)
	}

	c.mutex.Unlock()

	if err != nil {
		return fmt.Errorf("%s: cannot add key %s: %w", errPref, key, err)
	}

	c.fire(EventAddProperty, key, value, false)

	return nil
}

// Clear method removes all values of the key.
func (c *core) Clear(key string) {
	c.fire(EventClearProperty, key, nil, true)

	c.mutex.Lock()
	c.store.clear(key)
	c.mutex.Unlock()

	c.fire(EventClearProperty, key, nil, false)
}

// ClearAll method removes all keys.
func (c *core) ClearAll() {
	c.fire(EventClear, "", nil, true)

	c.mutex.Lock()
	c.store.clearAll()
	c.mutex.Unlock()

	c.fire(EventClear, "", nil, false)
}

// Contains method reports whether the key has a value.
func (c *core) Contains(key string) bool {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	return len(c.store.values(key)) > 0
}

// Keys method returns all keys that have values, in document order.
func (c *core) Keys() []string {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	return c.store.keys()
}

// KeysWithPrefix method returns keys that are equal to the prefix or start with
// the prefix followed by a property delimiter or an attribute.
func (c *core) KeysWithPrefix(prefix string) []string {
	var res []string

	for _, key := range c.Keys() {
		if hasKeyPrefix(key, prefix, c.engine.Symbols()) {
			res = append(res, key)
		}
	}

	return res
}

// IsEmpty method reports whether the configuration has no keys.
func (c *core) IsEmpty() bool {
	return c.Size() == 0
}

// Size method returns the number of keys.
func (c *core) Size() int {
	return len(c.Keys())
}

// Subset method returns a view of the keys that start with the prefix. Keys of
// the view are relative to the prefix. Changes of the view are applied to the
// configuration.
func (c *core) Subset(prefix string) Configuration {
	return newSubset(c, prefix)
}

// Decode method decodes the value of the key into the target, typically a
// pointer to a struct. An empty key decodes the whole configuration. Nested
// keys are decoded into nested structures. If the key selects several nodes
// of a tree, they are decoded as a slice.
func (c *core) Decode(key string, target any) error {
	if src, ok := c.store.(nodeSource); ok {
		c.mutex.RLock()
		nodes, isTree := src.subtrees(key)
		c.mutex.RUnlock()

		if isTree {
			return c.decodeNodes(key, nodes, target)
		}
	}

	sub := c.Subset(key)
	keys := sub.Keys()

	if len(keys) == 0 {
		value, err := c.Value(key)

		if err != nil {
			return err
		}

		return Decode(value, target)
	}

	root := tree.NewNode("")

	for _, k := range keys {
		value, err := sub.Value(k)

		if err != nil {
			return err
		}

		for _, v := range toList(value) {
			if _, err := c.engine.Add(root, k, v); err != nil {
				return fmt.Errorf("%s: %w", errPref, err)
			}
		}
	}

	return Decode(tree.ToValue(root), target)
}

func (c *core) decodeNodes(key string, nodes []*tree.Node, target any) error {
	if len(nodes) == 0 {
		return fmt.Errorf("%s: %w: %s", errPref, ErrNoSuchKey, key)
	}

	values := make([]any, len(nodes))

	for i, node := range nodes {
		if err := c.interpolateTree(node); err != nil {
			return err
		}

		values[i] = tree.ToValue(node)
	}

	if len(values) == 1 {
		return Decode(values[0], target)
	}

	return Decode(values, target)
}

// AddListener method registers a listener for events of the given type.
func (c *core) AddListener(typ EventType, listener Listener) ListenerID {
	return c.events.add(typ, listener)
}

// RemoveListener method removes a listener. Returns false if the listener was
// not registered.
func (c *core) RemoveListener(id ListenerID) bool {
	return c.events.remove(id)
}

// Fire method notifies listeners about an event of the configuration.
func (c *core) Fire(typ EventType, key string, value any, before bool) {
	c.fire(typ, key, value, before)
}

func (c *core) fire(typ EventType, key string, value any, before bool) {
	c.events.fire(Event{
		Type:   typ,
		Source: c.source,
		Key:    key,
		Value:  value,
		Before: before,
	})
}

func (c *core) split(value any) []any {
	switch v := value.(type) {
	case nil:
		return nil
	case string:
		parts := c.listHandler.Split(v, true)
		res := make([]any, len(parts))

		for i, part := range parts {
			res[i] = part
		}

		return res
	case []byte:
		return []any{v}
	}

	rv := reflect.ValueOf(value)

	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return []any{value}
	}

	var res []any

	for i := 0; i < rv.Len(); i++ {
		res = append(res, c.split(rv.Index(i).Interface())...)
	}

	return res
}

func convert[T any](c *core, key string, conv func(any) (T, error)) (T, error) {
	var zero T
	value, err := c.Value(key)

	if err != nil {
		return zero, err
	}

	res, err := conv(first(value))

	if err != nil {
		return zero, conversionError(key, err)
	}

	return res, nil
}

func conversionError(key string, err error) error {
	return fmt.Errorf("%s: cannot convert value of key %s: %w", errPref, key, err)
}

func first(value any) any {
	if list, ok := value.([]any); ok {
		if len(list) == 0 {
			return nil
		}

		return list[0]
	}

	return value
}

func toList(value any) []any {
	if list, ok := value.([]any); ok {
		return list
	}

	return []any{value}
}

func collapse(values []any) any {
	switch len(values) {
	case 0:
		return nil
	case 1:
		return values[0]
	}

	return values
}

func hasKeyPrefix(key, prefix string, symbols tree.Symbols) bool {
	if prefix == "" || key == prefix {
		return true
	}

	if !strings.HasPrefix(key, prefix) {
		return false
	}

	rest := key[len(prefix):]

	return strings.HasPrefix(rest, symbols.PropertyDelimiter) &&
		!strings.HasPrefix(rest, symbols.EscapedDelimiter) ||
		symbols.AttributeStart != "" && strings.HasPrefix(rest, symbols.AttributeStart)
}
