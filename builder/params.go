package builder

import (
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/iph0/conf/v3"
	"github.com/iph0/conf/v3/fileconf"
	"github.com/iph0/conf/v3/interpol"
	"github.com/iph0/conf/v3/reload"
	mapstruct "github.com/mitchellh/mapstructure"
)

const (
	errPref        = "builder"
	decoderTagName = "conf"
)

// Params describe how a builder creates a configuration.
type Params struct {
	// Path is the path of the configuration file. Relative paths are searched
	// in SearchDirs.
	Path string `conf:"path"`

	// SearchDirs are directories for relative paths. Directories from
	// GOCONF_PATH are used if empty.
	SearchDirs []string `conf:"searchDirs"`

	// Format is the name of the file format. The file extension is used if
	// empty.
	Format string `conf:"format"`

	// ListDelimiter enables splitting of string values into lists.
	ListDelimiter string `conf:"listDelimiter"`

	// Flat selects a flat configuration instead of a hierarchical one.
	Flat bool `conf:"flat"`

	RefreshDelay    time.Duration `conf:"refreshDelay"`
	AutoSave        bool          `conf:"autoSave"`
	AllowFailOnInit bool          `conf:"allowFailOnInit"`

	Lookups        map[string]interpol.Lookup `conf:"-"`
	DefaultLookups []interpol.Lookup          `conf:"-"`
}

// Option sets a parameter.
type Option func(*Params)

// WithPath sets the path of the configuration file.
func WithPath(path string) Option {
	return func(p *Params) {
		p.Path = path
	}
}

// WithSearchDirs sets directories for relative paths.
func WithSearchDirs(dirs ...string) Option {
	return func(p *Params) {
		p.SearchDirs = dirs
	}
}

// WithFormat sets the name of the file format.
func WithFormat(name string) Option {
	return func(p *Params) {
		p.Format = name
	}
}

// WithListDelimiter enables splitting of string values at the delimiter.
func WithListDelimiter(delimiter rune) Option {
	return func(p *Params) {
		p.ListDelimiter = string(delimiter)
	}
}

// WithFlat selects a flat configuration.
func WithFlat() Option {
	return func(p *Params) {
		p.Flat = true
	}
}

// WithRefreshDelay sets the minimal interval between checks of the file by
// reloading builders.
func WithRefreshDelay(delay time.Duration) Option {
	return func(p *Params) {
		p.RefreshDelay = delay
	}
}

// WithAutoSave enables saving of the configuration after every change.
func WithAutoSave() Option {
	return func(p *Params) {
		p.AutoSave = true
	}
}

// WithAllowFailOnInit allows creation of an empty configuration if the file
// cannot be loaded.
func WithAllowFailOnInit() Option {
	return func(p *Params) {
		p.AllowFailOnInit = true
	}
}

// WithLookup registers a prefix lookup in the interpolator.
func WithLookup(prefix string, lookup interpol.Lookup) Option {
	return func(p *Params) {
		if p.Lookups == nil {
			p.Lookups = make(map[string]interpol.Lookup)
		}

		p.Lookups[prefix] = lookup
	}
}

// WithDefaultLookups appends default lookups to the interpolator.
func WithDefaultLookups(lookups ...interpol.Lookup) Option {
	return func(p *Params) {
		p.DefaultLookups = append(p.DefaultLookups, lookups...)
	}
}

// NewParams method creates parameters with default values and applies the
// options.
func NewParams(opts ...Option) Params {
	p := Params{
		RefreshDelay: reload.DefaultRefreshDelay,
	}

	for _, apply := range opts {
		apply(&p)
	}

	return p
}

// ParamsFromMap method creates parameters from a map. Keys of the map are
// names from the conf tags of Params. Unknown keys are rejected.
func ParamsFromMap(m map[string]any, opts ...Option) (Params, error) {
	p := NewParams()

	decoder, err := mapstruct.NewDecoder(
		&mapstruct.DecoderConfig{
			WeaklyTypedInput: true,
			ErrorUnused:      true,
			Result:           &p,
			TagName:          decoderTagName,
			DecodeHook:       mapstruct.StringToTimeDurationHookFunc(),
		},
	)

	if err != nil {
		return Params{}, fmt.Errorf("%s: %w", errPref, err)
	}

	if err := decoder.Decode(m); err != nil {
		return Params{}, fmt.Errorf("%s: %w", errPref, err)
	}

	for _, apply := range opts {
		apply(&p)
	}

	if err := p.Validate(); err != nil {
		return Params{}, err
	}

	return p, nil
}

// Validate method checks the parameters.
func (p Params) Validate() error {
	if utf8.RuneCountInString(p.ListDelimiter) > 1 {
		return fmt.Errorf("%s: list delimiter must be a single character: %q",
			errPref, p.ListDelimiter)
	}

	if p.Format != "" {
		if _, err := fileconf.FormatByName(p.Format); err != nil {
			return err
		}
	}

	if p.RefreshDelay < 0 {
		return fmt.Errorf("%s: negative refresh delay: %s", errPref, p.RefreshDelay)
	}

	return nil
}

func (p Params) configOptions() []conf.Option {
	var opts []conf.Option

	if p.ListDelimiter != "" {
		delimiter, _ := utf8.DecodeRuneInString(p.ListDelimiter)
		opts = append(opts, conf.WithListDelimiter(delimiter))
	}

	if len(p.Lookups) > 0 {
		opts = append(opts, conf.WithLookups(p.Lookups))
	}

	if len(p.DefaultLookups) > 0 {
		opts = append(opts, conf.WithDefaultLookups(p.DefaultLookups...))
	}

	return opts
}

func (p Params) handlerOptions() ([]fileconf.HandlerOption, error) {
	opts := []fileconf.HandlerOption{
		fileconf.WithPath(p.Path),
	}

	if len(p.SearchDirs) > 0 {
		opts = append(opts, fileconf.WithSearchDirs(p.SearchDirs...))
	}

	if p.Format != "" {
		format, err := fileconf.FormatByName(p.Format)

		if err != nil {
			return nil, err
		}

		opts = append(opts, fileconf.WithFormat(format))
	}

	return opts, nil
}

func (p Params) searchDirs() []string {
	if len(p.SearchDirs) > 0 {
		return p.SearchDirs
	}

	return fileconf.SearchDirs()
}
