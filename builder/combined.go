package builder

import (
	"fmt"
	"sync"

	"github.com/iph0/conf/v3"
	"github.com/iph0/conf/v3/tree"
	mapstruct "github.com/mitchellh/mapstructure"
)

// ChildParams describe a child configuration of a combined configuration.
type ChildParams struct {
	// Name is the name of the child in the combined configuration.
	Name string `conf:"name"`

	// At is the key the child tree is placed at. The root is used if empty.
	At string `conf:"at"`

	Params Params `conf:",squash"`
}

// CombinedBuilder creates a combined configuration from files. Every child is
// created by its own file builder.
type CombinedBuilder struct {
	combiner tree.Combiner
	children []ChildParams
	opts     []conf.Option
	events   eventSource

	mutex    sync.Mutex
	result   *conf.CombinedConfig
	builders map[string]*FileBuilder
}

// NewCombinedBuilder method creates new builder. Children are combined by the
// combiner; a union combiner is used if it is nil.
func NewCombinedBuilder(combiner tree.Combiner, children []ChildParams,
	opts ...conf.Option) *CombinedBuilder {

	return &CombinedBuilder{
		combiner: combiner,
		children: children,
		opts:     opts,
	}
}

// ChildParamsFromMaps method creates parameters of children from maps. Keys of
// a map are name, at and keys accepted by ParamsFromMap.
func ChildParamsFromMaps(maps []map[string]any) ([]ChildParams, error) {
	children := make([]ChildParams, 0, len(maps))

	for i, m := range maps {
		child := ChildParams{Params: NewParams()}

		decoder, err := mapstruct.NewDecoder(
			&mapstruct.DecoderConfig{
				WeaklyTypedInput: true,
				ErrorUnused:      true,
				Result:           &child,
				TagName:          decoderTagName,
				DecodeHook:       mapstruct.StringToTimeDurationHookFunc(),
			},
		)

		if err != nil {
			return nil, fmt.Errorf("%s: %w", errPref, err)
		}

		if err := decoder.Decode(m); err != nil {
			return nil, fmt.Errorf("%s: child %d: %w", errPref, i, err)
		}

		if child.Name == "" {
			return nil, fmt.Errorf("%s: child %d: name not specified", errPref, i)
		}

		children = append(children, child)
	}

	return children, nil
}

// AddListener method registers a listener for builder events.
func (b *CombinedBuilder) AddListener(typ EventType, listener Listener) {
	b.events.add(typ, listener)
}

// Configuration method returns the combined configuration, creating it if
// needed.
func (b *CombinedBuilder) Configuration() (*conf.CombinedConfig, error) {
	b.mutex.Lock()

	if b.result != nil {
		result := b.result
		b.mutex.Unlock()

		return result, nil
	}

	result := conf.NewCombinedConfig(b.combiner, b.opts...)
	builders := make(map[string]*FileBuilder, len(b.children))

	for _, child := range b.children {
		params := child.Params
		params.Flat = false

		builder := NewFileBuilder(params, b.opts...)
		config, err := builder.Configuration()

		if err != nil {
			b.mutex.Unlock()
			return nil, fmt.Errorf("%s: child %s: %w", errPref, child.Name, err)
		}

		hc, _ := config.(*conf.HierarchicalConfig)

		if err := result.AddConfiguration(child.Name, hc, child.At); err != nil {
			b.mutex.Unlock()
			return nil, fmt.Errorf("%s: %w", errPref, err)
		}

		builders[child.Name] = builder
	}

	b.result = result
	b.builders = builders
	b.mutex.Unlock()

	b.events.fire(Event{Type: EventResultCreated, Result: result})

	return result, nil
}

// ChildBuilder method returns the builder of the named child, or nil if the
// configuration is not created or the child is unknown.
func (b *CombinedBuilder) ChildBuilder(name string) *FileBuilder {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	return b.builders[name]
}

// Reset method drops the combined configuration and all child
// configurations.
func (b *CombinedBuilder) Reset() {
	b.mutex.Lock()
	builders := b.builders
	b.result = nil
	b.builders = nil
	b.mutex.Unlock()

	for _, builder := range builders {
		builder.Reset()
	}

	b.events.fire(Event{Type: EventReset})
}
