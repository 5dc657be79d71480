package conf

import (
	"fmt"
	"strings"
)

const locatorSep = ":"

// Locator tells the processor which loader must load a configuration layer and
// what to pass to it. The string form of a locator is "loader:value".
type Locator struct {
	Loader string
	Value  string
}

// Loader is an interface for configuration loaders. A loader can return
// several layers for one locator; they are merged in the returned order.
type Loader interface {
	Load(loc *Locator) ([]any, error)
}

// LoaderFunc type is an adapter to allow the use of ordinary functions as
// configuration loaders.
type LoaderFunc func(loc *Locator) ([]any, error)

// Load method implements Loader interface.
func (f LoaderFunc) Load(loc *Locator) ([]any, error) {
	return f(loc)
}

// ParseLocator method parses a locator string.
func ParseLocator(rawLoc string) (*Locator, error) {
	if rawLoc == "" {
		return nil, fmt.Errorf("%s: empty configuration locator specified", errPref)
	}

	loader, value, ok := strings.Cut(rawLoc, locatorSep)

	if !ok || loader == "" {
		return nil, fmt.Errorf("%s: missing loader name in configuration locator: %s",
			errPref, rawLoc)
	}

	return &Locator{
		Loader: loader,
		Value:  value,
	}, nil
}

func (l *Locator) String() string {
	return l.Loader + locatorSep + l.Value
}
