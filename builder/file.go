package builder

import (
	"fmt"
	"sync"

	"github.com/iph0/conf/v3"
	"github.com/iph0/conf/v3/fileconf"
	log "github.com/sirupsen/logrus"
)

// FileBuilder creates a configuration from a file. The configuration is created
// on the first call of Configuration and cached until Reset.
type FileBuilder struct {
	params Params
	opts   []conf.Option
	events eventSource

	mutex   sync.Mutex
	result  conf.Configuration
	handler *fileconf.FileHandler
}

// NewFileBuilder method creates new builder. The options are applied to every
// created configuration after the options derived from the parameters.
func NewFileBuilder(params Params, opts ...conf.Option) *FileBuilder {
	return &FileBuilder{
		params: params,
		opts:   opts,
	}
}

// Params method returns the parameters of the builder.
func (b *FileBuilder) Params() Params {
	return b.params
}

// AddListener method registers a listener for builder events.
func (b *FileBuilder) AddListener(typ EventType, listener Listener) {
	b.events.add(typ, listener)
}

// Configuration method returns the configuration, creating it if needed. If
// the file cannot be loaded, an error is returned, unless AllowFailOnInit is
// set. In that case an empty configuration is created.
func (b *FileBuilder) Configuration() (conf.Configuration, error) {
	b.mutex.Lock()

	if b.result != nil {
		result := b.result
		b.mutex.Unlock()

		return result, nil
	}

	result, handler, err := b.create()

	if err != nil {
		b.mutex.Unlock()
		return nil, err
	}

	b.result = result
	b.handler = handler
	b.mutex.Unlock()

	b.events.fire(Event{Type: EventResultCreated, Result: result})

	return result, nil
}

// FileHandler method returns the handler of the current configuration, or nil
// if no configuration is created.
func (b *FileBuilder) FileHandler() *fileconf.FileHandler {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	return b.handler
}

// Save method saves the current configuration to its file.
func (b *FileBuilder) Save() error {
	handler := b.FileHandler()

	if handler == nil {
		return fmt.Errorf("%s: no configuration created", errPref)
	}

	return handler.Save()
}

// Reset method drops the cached configuration. The next call of Configuration
// creates a new one.
func (b *FileBuilder) Reset() {
	b.mutex.Lock()

	if b.handler != nil {
		b.handler.SetAutoSave(false)
	}

	b.result = nil
	b.handler = nil
	b.mutex.Unlock()

	b.events.fire(Event{Type: EventReset})
}

func (b *FileBuilder) create() (conf.Configuration, *fileconf.FileHandler, error) {
	if err := b.params.Validate(); err != nil {
		return nil, nil, err
	}

	opts := append(b.params.configOptions(), b.opts...)

	var config conf.Configuration

	if b.params.Flat {
		config = conf.NewBaseConfig(opts...)
	} else {
		config = conf.NewHierarchicalConfig(opts...)
	}

	handlerOpts, err := b.params.handlerOptions()

	if err != nil {
		return nil, nil, err
	}

	handler := fileconf.NewFileHandler(config, handlerOpts...)

	if b.params.Path != "" {
		if err := handler.Load(); err != nil {
			if !b.params.AllowFailOnInit {
				return nil, nil, fmt.Errorf("%s: %w", errPref, err)
			}

			log.WithError(err).WithField("path", b.params.Path).
				Warn("Configuration file not loaded, empty configuration created")
		}
	}

	if b.params.AutoSave {
		handler.SetAutoSave(true)
	}

	log.WithFields(log.Fields{
		"path": b.params.Path,
		"flat": b.params.Flat,
	}).Debug("Configuration created")

	return config, handler, nil
}
