// Copyright (c) 2024, Eugene Ponizovsky, <ponizovsky@gmail.com>. All rights
// reserved. Use of this source code is governed by a MIT License that can
// be found in the LICENSE file.

package conf

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/iph0/conf/v3/tree"
	"github.com/iph0/merger"
	mapstruct "github.com/mitchellh/mapstructure"
	log "github.com/sirupsen/logrus"
)

// Processor loads configuration layers from different sources and merges them
// into the one configuration tree. In addition the processor handles $ref and
// $include directives in the resulting tree. Processing can be disabled if not
// needed.
type Processor struct {
	config ProcessorConfig
	mutex  sync.Mutex
	stack  []tree.KeyElement
	seen   map[reflect.Value]struct{}
	refs   map[string]reflect.Value
	root   reflect.Value
}

var (
	refKey          = reflect.ValueOf("$ref")
	includeKey      = reflect.ValueOf("$include")
	nameKey         = reflect.ValueOf("name")
	firstDefinedKey = reflect.ValueOf("firstDefined")
	defaultKey      = reflect.ValueOf("default")
)

// ProcessorConfig is a structure with configuration parameters for
// configuration processor.
type ProcessorConfig struct {
	// Loaders specifies configuration loaders. Map keys represent names of
	// configuration loaders, that further can be used in configuration locators.
	Loaders map[string]Loader

	// DisableProcessing disables processing of directives.
	DisableProcessing bool

	// Engine evaluates reference names. DefaultEngine is used if not set.
	Engine *tree.Engine
}

type applyFunc func(node reflect.Value) (reflect.Value, error)

// NewProcessor method creates new configuration processor instance.
func NewProcessor(config ProcessorConfig) *Processor {
	if config.Loaders == nil {
		config.Loaders = make(map[string]Loader)
	}

	if config.Engine == nil {
		config.Engine = tree.DefaultEngine
	}

	return &Processor{
		config: config,
	}
}

// Decode method decodes raw configuration data into structure. Note that the
// conf tags defined in the struct type can indicate which fields the values are
// mapped to. The decoder will make the following conversions:
//   - bools to string (true = "1", false = "0")
//   - numbers to string (base 10)
//   - bools to int/uint (true = 1, false = 0)
//   - strings to int/uint (base implied by prefix)
//   - int to bool (true if value != 0)
//   - string to bool (accepts: 1, t, T, TRUE, true, True, 0, f, F, FALSE, false,
//     False. Anything else is an error)
//   - strings to time.Duration
//   - empty array = empty map and vice versa
//   - single values are converted to slices if required
func Decode(configRaw, config any) error {
	decoder, err := mapstruct.NewDecoder(
		&mapstruct.DecoderConfig{
			WeaklyTypedInput: true,
			Result:           config,
			TagName:          decoderTagName,
			DecodeHook:       mapstruct.StringToTimeDurationHookFunc(),
		},
	)

	if err != nil {
		return fmt.Errorf("%s: %w", errPref, err)
	}

	err = decoder.Decode(configRaw)

	if err != nil {
		return fmt.Errorf("%s: %w", errPref, err)
	}

	return nil
}

// Load method loads configuration tree using configuration locators. A locator
// is either a string "loader:value" or a map of type conf.M. The merge priority
// of loaded configuration layers depends on the order of configuration
// locators. Layers loaded by rightmost locator have highest priority.
func (p *Processor) Load(locators ...any) (M, error) {
	if len(locators) == 0 {
		return nil, fmt.Errorf("%s: no configuration locators specified", errPref)
	}

	p.mutex.Lock()
	defer p.mutex.Unlock()

	layers, err := p.load(locators)

	if err != nil {
		return nil, err
	}

	if !p.config.DisableProcessing {
		for i, layer := range layers {
			layer, err := p.preprocess(layer)

			if err != nil {
				return nil, err
			}

			layers[i] = layer
		}
	}

	config := p.merge(layers)

	if config == nil {
		return M{}, nil
	}

	if !p.config.DisableProcessing {
		config, err = p.process(config)

		if err != nil {
			return nil, err
		}
	}

	if conf, ok := config.(M); ok {
		return conf, nil
	}

	return nil,
		fmt.Errorf("%s: loaded configuration must be a map of type conf.M, but got: %T",
			errPref, config)
}

// LoadConfig method loads configuration tree like Load method does and returns
// it as hierarchical configuration.
func (p *Processor) LoadConfig(locators []any, opts ...Option) (*HierarchicalConfig, error) {
	m, err := p.Load(locators...)

	if err != nil {
		return nil, err
	}

	return FromMap(m, opts...), nil
}

func (p *Processor) load(locators []any) ([]any, error) {
	var allLayers []any

	for _, locator := range locators {
		switch loc := locator.(type) {
		case M:
			allLayers = append(allLayers, loc)
		case string:
			layers, err := p.loadLocator(loc)

			if err != nil {
				return nil, err
			}

			allLayers = append(allLayers, layers...)
		default:
			return nil,
				fmt.Errorf("%s: configuration locator must be a string or a map of type conf.M,"+
					" but got: %T", errPref, locator)
		}
	}

	return allLayers, nil
}

func (p *Processor) loadLocator(rawLoc string) ([]any, error) {
	loc, err := ParseLocator(rawLoc)

	if err != nil {
		return nil, err
	}

	loader, ok := p.config.Loaders[loc.Loader]

	if !ok {
		return nil, fmt.Errorf("%s: unknown loader: %s", errPref, loc.Loader)
	}

	layers, err := loader.Load(loc)

	if err != nil {
		return nil, fmt.Errorf("%s: %s: %w", errPref, loc, err)
	}

	log.WithFields(
		log.Fields{
			"locator": loc.String(),
			"layers":  len(layers),
		},
	).Debug("Configuration layers loaded.")

	return layers, nil
}

func (p *Processor) preprocess(layer any) (any, error) {
	lyr, err := p.traverse(reflect.ValueOf(layer), p.applyInclude)

	if err != nil {
		return nil, err
	}

	if !lyr.IsValid() {
		return nil, nil
	}

	return lyr.Interface(), nil
}

func (p *Processor) merge(layers []any) any {
	var config any

	for _, layer := range layers {
		config = merger.Merge(config, layer)
	}

	return config
}

func (p *Processor) process(config any) (any, error) {
	p.refs = make(map[string]reflect.Value)

	defer func() {
		p.refs = nil
		p.root = reflect.Value{}
	}()

	conf, err := p.traverse(reflect.ValueOf(config), p.applyDirectives)

	if err != nil {
		return nil, err
	}

	return conf.Interface(), nil
}

// traverse applies the function to the root and then to every nested value.
// Errors from nested values are reported with the key of the value.
func (p *Processor) traverse(root reflect.Value, apply applyFunc) (reflect.Value, error) {
	p.stack = make([]tree.KeyElement, 0, 10)
	p.seen = make(map[reflect.Value]struct{})

	defer func() {
		p.stack = nil
		p.seen = nil
	}()

	root, err := apply(root)

	if err != nil {
		return reflect.Value{}, err
	}

	p.root = root

	if err := p.walk(root, apply); err != nil {
		return reflect.Value{}, fmt.Errorf("%w at %s", err, p.processContext())
	}

	return root, nil
}

func (p *Processor) walk(node reflect.Value, apply applyFunc) error {
	node = strip(node)

	switch node.Kind() {
	case reflect.Map, reflect.Slice:
		if _, ok := p.seen[node]; ok {
			return nil
		}

		p.seen[node] = struct{}{}
	default:
		return nil
	}

	if node.Kind() == reflect.Map {
		for _, key := range node.MapKeys() {
			elem := tree.KeyElement{Name: fmt.Sprint(key.Interface())}
			store := func(value reflect.Value) { node.SetMapIndex(key, value) }

			if err := p.visit(elem, node.MapIndex(key), apply, store); err != nil {
				return err
			}
		}

		return nil
	}

	for i := 0; i < node.Len(); i++ {
		elem := tree.KeyElement{Index: i, HasIndex: true}

		if err := p.visit(elem, node.Index(i), apply, node.Index(i).Set); err != nil {
			return err
		}
	}

	return nil
}

func (p *Processor) visit(elem tree.KeyElement, value reflect.Value,
	apply applyFunc, store func(reflect.Value)) error {

	p.stack = append(p.stack, elem)

	value, err := apply(value)

	if err != nil {
		return err
	}

	if value.IsValid() {
		store(value)
	}

	if err := p.walk(value, apply); err != nil {
		return err
	}

	p.stack = p.stack[:len(p.stack)-1]

	return nil
}

func (p *Processor) applyInclude(node reflect.Value) (reflect.Value, error) {
	node = strip(node)

	if node.Kind() == reflect.Map {
		if locators := node.MapIndex(includeKey); locators.IsValid() {
			return p.include(locators)
		}
	}

	return node, nil
}

func (p *Processor) applyDirectives(node reflect.Value) (reflect.Value, error) {
	node = strip(node)

	if node.Kind() == reflect.Map {
		if ref := node.MapIndex(refKey); ref.IsValid() {
			return p.resolveRef(ref)
		}
	}

	return node, nil
}

// resolveRef returns the first defined node of the $ref directive, or the
// default value of the directive. A directive that resolves to nothing gives
// an invalid value.
func (p *Processor) resolveRef(ref reflect.Value) (reflect.Value, error) {
	ref = strip(ref)

	switch ref.Kind() {
	case reflect.String:
		return p.fetchNode(ref.String())
	case reflect.Map:
		names, err := refNames(ref)

		if err != nil {
			return reflect.Value{}, err
		}

		for _, name := range names {
			node, err := p.fetchNode(name)

			if err != nil {
				return reflect.Value{}, err
			}

			if node.IsValid() {
				return node, nil
			}
		}

		if node := ref.MapIndex(defaultKey); node.IsValid() {
			return strip(node), nil
		}

		return reflect.Value{}, nil
	}

	return reflect.Value{}, fmt.Errorf("%s: malformed directive: %s", errPref,
		refKey)
}

func refNames(ref reflect.Value) ([]string, error) {
	if name := strip(ref.MapIndex(nameKey)); name.IsValid() {
		if name.Kind() != reflect.String {
			return nil,
				fmt.Errorf("%s: reference name must be a string, but got: %s", errPref,
					name.Kind())
		}

		return []string{name.String()}, nil
	}

	if names := ref.MapIndex(firstDefinedKey); names.IsValid() {
		return stringList(names, `reference names in "firstDefined"`)
	}

	return nil, nil
}

func (p *Processor) include(locators reflect.Value) (reflect.Value, error) {
	locs, err := stringList(locators, "locators in $include directive")

	if err != nil {
		return reflect.Value{}, err
	}

	rawLocs := make([]any, len(locs))

	for i, loc := range locs {
		rawLocs[i] = loc
	}

	layers, err := p.load(rawLocs)

	if err != nil {
		return reflect.Value{}, err
	}

	return reflect.ValueOf(p.merge(layers)), nil
}

// stringList converts an array of strings from the directive. The description
// names the array in errors.
func stringList(list reflect.Value, desc string) ([]string, error) {
	list = strip(list)

	if list.Kind() != reflect.Slice {
		return nil,
			fmt.Errorf("%s: %s must be specified as an array, but got: %s", errPref,
				desc, list.Kind())
	}

	strs := make([]string, list.Len())

	for i := range strs {
		str := strip(list.Index(i))

		if str.Kind() != reflect.String {
			return nil,
				fmt.Errorf("%s: each of %s must be a string, but got: %s", errPref,
					desc, str.Kind())
		}

		strs[i] = str.String()
	}

	return strs, nil
}

func (p *Processor) fetchNode(name string) (reflect.Value, error) {
	if node, ok := p.refs[name]; ok {
		return node, nil
	}

	node, err := p.findNode(name)

	if err != nil {
		return reflect.Value{}, err
	}

	p.refs[name] = node

	return node, nil
}

// findNode evaluates the reference name with the expression engine. Map keys
// are selected by element names, slices by element indexes.
func (p *Processor) findNode(name string) (reflect.Value, error) {
	node := p.root
	elems := p.config.Engine.Parse(name)

	if len(elems) == 0 {
		return reflect.Value{}, fmt.Errorf("%s: empty reference name", errPref)
	}

	stackTemp := p.stack
	defer func() { p.stack = stackTemp }()

	for i, elem := range elems {
		node = strip(node)

		if node.Kind() != reflect.Map {
			return reflect.Value{}, nil
		}

		keyStr := elem.Name

		if elem.Attribute {
			keyStr = tree.AttrPrefix + elem.Name
		}

		p.stack = append(elems[:i:i], tree.KeyElement{
			Name:      elem.Name,
			Attribute: elem.Attribute,
		})

		key := reflect.ValueOf(keyStr)
		child, err := p.applyDirectives(node.MapIndex(key))

		if err != nil {
			return reflect.Value{}, err
		}

		if !child.IsValid() {
			return reflect.Value{}, nil
		}

		node.SetMapIndex(key, child)
		node = child

		if !elem.HasIndex {
			continue
		}

		if node.Kind() != reflect.Slice {
			if elem.Index == 0 {
				continue
			}

			return reflect.Value{}, nil
		}

		if elem.Index >= node.Len() {
			return reflect.Value{}, fmt.Errorf("%s: array index out of range: %s",
				errPref, name)
		}

		child, err = p.applyDirectives(node.Index(elem.Index))

		if err != nil {
			return reflect.Value{}, err
		}

		node.Index(elem.Index).Set(child)
		node = child
	}

	return node, nil
}

func strip(value reflect.Value) reflect.Value {
	if value.Kind() == reflect.Interface {
		return value.Elem()
	}

	return value
}

// processContext returns the key of the value being processed.
func (p *Processor) processContext() string {
	key := p.config.Engine.NewKey("")

	for _, elem := range p.stack {
		switch {
		case elem.Attribute:
			key.AppendAttribute(elem.Name)
		case elem.Name == "":
			key.AppendIndex(elem.Index)
		default:
			key.Append(elem.Name, true)

			if elem.HasIndex {
				key.AppendIndex(elem.Index)
			}
		}
	}

	return key.String()
}
