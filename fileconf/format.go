package fileconf

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"

	"github.com/iph0/conf/v3/tree"
)

// ErrUnknownFormat is returned when no format is registered for a name or a
// file extension.
var ErrUnknownFormat = errors.New("unknown format")

// Format reads and writes a tree of configuration nodes.
type Format interface {
	Read(r io.Reader) (*tree.Node, error)
	Write(w io.Writer, root *tree.Node) error
}

var (
	formatsMutex sync.RWMutex

	formats = map[string]Format{
		"yml":        &YAMLFormat{},
		"yaml":       &YAMLFormat{},
		"json":       &JSONFormat{},
		"toml":       &TOMLFormat{},
		"xml":        &XMLFormat{},
		"ini":        &INIFormat{},
		"properties": &PropertiesFormat{},
		"env":        &EnvFormat{},
	}
)

// RegisterFormat method registers a format under the name. The name is also
// used as file extension.
func RegisterFormat(name string, format Format) {
	formatsMutex.Lock()
	defer formatsMutex.Unlock()

	formats[strings.ToLower(name)] = format
}

// FormatByName method returns the format registered under the name.
func FormatByName(name string) (Format, error) {
	formatsMutex.RLock()
	defer formatsMutex.RUnlock()

	format, ok := formats[strings.ToLower(name)]

	if !ok {
		return nil, fmt.Errorf("%s: %w: %s", errPref, ErrUnknownFormat, name)
	}

	return format, nil
}

// FormatForPath method returns the format for the extension of the file path.
func FormatForPath(path string) (Format, error) {
	ext := filepath.Ext(path)

	if ext == "" {
		return nil, fmt.Errorf("%s: file extension not specified: %s", errPref,
			path)
	}

	return FormatByName(ext[1:])
}

type childGroup struct {
	name  string
	nodes []*tree.Node
}

// groupChildren collects children with the same name in order of their first
// appearance.
func groupChildren(node *tree.Node) []childGroup {
	var groups []childGroup
	index := make(map[string]int)

	for _, child := range node.Children() {
		i, ok := index[child.Name()]

		if !ok {
			i = len(groups)
			index[child.Name()] = i
			groups = append(groups, childGroup{name: child.Name()})
		}

		groups[i].nodes = append(groups[i].nodes, child)
	}

	return groups
}

// isPlain reports whether the node can be written as a bare value.
func isPlain(node *tree.Node) bool {
	return node.IsLeaf() && len(node.AttributeNames()) == 0
}

// flatten calls the function for every value of the tree with the key built
// by the engine. Attributes are reported with attribute keys.
func flatten(engine *tree.Engine, node *tree.Node, key string,
	f func(key string, value any)) {

	for _, name := range node.AttributeNames() {
		value, _ := node.Attribute(name)
		f(engine.AttributeKey(key, name), value)
	}

	for _, child := range node.Children() {
		childKey := engine.NodeKey(child, key)

		if child.HasValue() {
			f(childKey, child.Value())
		}

		flatten(engine, child, childKey, f)
	}
}
