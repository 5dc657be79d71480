// Copyright (c) 2018, Eugene Ponizovsky, <ponizovsky@gmail.com>. All rights
// reserved. Use of this source code is governed by a MIT License that can
// be found in the LICENSE file.

/*
Package envconf is configuration loader for the conf package. It loads
environment variables, whose names match the regular expression specified in
the configuration locator. For example:

	env:^MYAPP_

Variables can be nested by splitting their names at a separator:

	loader := envconf.NewLoader(envconf.WithSeparator("__"))

With this loader the variable MYAPP__DB__HOST becomes the parameter
MYAPP.DB.HOST of the configuration tree.
*/
package envconf

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/iph0/conf/v3"
	"github.com/iph0/conf/v3/tree"
)

const errPref = "envconf"

// Loader loads configuration layers from environment variables.
type Loader struct {
	separator string
	trim      bool
	environ   func() []string
}

// Option configures the loader.
type Option func(*Loader)

// WithSeparator splits variable names at the separator into nested maps.
func WithSeparator(sep string) Option {
	return func(l *Loader) {
		l.separator = sep
	}
}

// WithPrefixTrim removes the part of the name matched by the locator pattern,
// if the match is at the beginning of the name.
func WithPrefixTrim() Option {
	return func(l *Loader) {
		l.trim = true
	}
}

// WithEnviron sets the source of "name=value" pairs. By default os.Environ is
// used.
func WithEnviron(environ func() []string) Option {
	return func(l *Loader) {
		l.environ = environ
	}
}

// NewLoader method creates new loader instance.
func NewLoader(opts ...Option) conf.Loader {
	l := &Loader{
		environ: os.Environ,
	}

	for _, apply := range opts {
		apply(l)
	}

	return l
}

// Load method loads environment variables, whose names match the pattern from
// the locator.
func (l *Loader) Load(loc *conf.Locator) ([]any, error) {
	if loc.Value == "" {
		return nil, fmt.Errorf("%s: empty pattern specified", errPref)
	}

	re, err := regexp.Compile(loc.Value)

	if err != nil {
		return nil, fmt.Errorf("%s: %w", errPref, err)
	}

	config := conf.M{}

	for _, pair := range l.environ() {
		name, value, ok := strings.Cut(pair, "=")

		if !ok {
			continue
		}

		match := re.FindStringIndex(name)

		if match == nil {
			continue
		}

		if l.trim && match[0] == 0 {
			name = name[match[1]:]
		}

		if name == "" {
			continue
		}

		l.set(config, name, value)
	}

	return []any{config}, nil
}

// set stores the value under the name split by the separator. A variable that
// is also a prefix of nested variables keeps its value under the text key, so
// the result does not depend on the order of the environment.
func (l *Loader) set(config conf.M, name, value string) {
	if l.separator == "" {
		config[name] = value
		return
	}

	parts := strings.Split(name, l.separator)
	node := config

	for _, part := range parts[:len(parts)-1] {
		switch child := node[part].(type) {
		case conf.M:
			node = child
		case nil:
			next := conf.M{}
			node[part] = next
			node = next
		default:
			next := conf.M{tree.TextKey: child}
			node[part] = next
			node = next
		}
	}

	last := parts[len(parts)-1]

	if child, ok := node[last].(conf.M); ok {
		child[tree.TextKey] = value
		return
	}

	node[last] = value
}
