// Copyright (c) 2024, Eugene Ponizovsky, <ponizovsky@gmail.com>. All rights
// reserved. Use of this source code is governed by a MIT License that can
// be found in the LICENSE file.

/*
Package maploader is configuration loader for the conf package. It loads
configuration layers from a map. Configuration locators for this loader are
keys of the map. Several keys can be separated by commas. For example:

	map:foo
	map:foo,bar
*/
package maploader

import (
	"strings"

	"github.com/iph0/conf/v3"
)

const keysSep = ","

// Loader loads configuration layers from a map.
type Loader struct {
	m conf.M
}

// NewLoader method creates new loader instance.
func NewLoader(m conf.M) conf.Loader {
	return &Loader{
		m: m,
	}
}

// Load method loads configuration layers from a map. Unknown keys are skipped.
func (l *Loader) Load(loc *conf.Locator) ([]any, error) {
	var layers []any

	for _, key := range strings.Split(loc.Value, keysSep) {
		if layer, ok := l.m[strings.TrimSpace(key)]; ok {
			layers = append(layers, layer)
		}
	}

	return layers, nil
}
