package fileconf

import (
	"io"

	"github.com/go-ini/ini"
	"github.com/iph0/conf/v3/tree"
)

var writeOptions = ini.LoadOptions{
	AllowShadows:               true,
	AllowDuplicateShadowValues: true,
}

// INIFormat reads and writes INI files. Sections become top-level nodes, keys
// of the default section become children of the root. Repeated keys become
// repeated nodes.
type INIFormat struct{}

// Read method reads an INI file.
func (f *INIFormat) Read(r io.Reader) (*tree.Node, error) {
	file, err := loadINI(r,
		ini.LoadOptions{
			AllowShadows:               true,
			AllowDuplicateShadowValues: true,
		},
	)

	if err != nil {
		return nil, err
	}

	root := tree.NewNode("")

	for _, section := range file.Sections() {
		node := root

		if section.Name() != ini.DefaultSection {
			node = tree.NewNode(section.Name())
			root.AddChild(node)
		}

		for _, key := range section.Keys() {
			for _, value := range key.ValueWithShadows() {
				node.AddChild(tree.NewValueNode(key.Name(), value))
			}
		}
	}

	return root, nil
}

// Write method writes the tree as an INI file. Nodes with nested data become
// sections, values nested deeper than a section are written with dotted keys.
func (f *INIFormat) Write(w io.Writer, root *tree.Node) error {
	file := ini.Empty(writeOptions)
	defKeys := newINIKeys(file.Section(ini.DefaultSection))

	for _, group := range groupChildren(root) {
		for _, node := range group.nodes {
			if isPlain(node) {
				if err := defKeys.add(node.Name(), node.Value()); err != nil {
					return err
				}

				continue
			}

			section, err := file.NewSection(node.Name())

			if err != nil {
				return err
			}

			keys := newINIKeys(section)
			var addErr error

			flatten(tree.DefaultEngine, node, "", func(key string, value any) {
				if addErr == nil {
					addErr = keys.add(key, value)
				}
			})

			if addErr != nil {
				return addErr
			}
		}
	}

	_, err := file.WriteTo(w)

	return err
}

// PropertiesFormat reads and writes properties files. Keys are configuration
// keys, so dotted names become nested nodes. Repeated keys become lists.
type PropertiesFormat struct{}

// Read method reads a properties file. Keys from sections, if any, are
// prefixed with the section name.
func (f *PropertiesFormat) Read(r io.Reader) (*tree.Node, error) {
	file, err := loadINI(r,
		ini.LoadOptions{
			AllowShadows:               true,
			AllowDuplicateShadowValues: true,
			IgnoreInlineComment:        true,
		},
	)

	if err != nil {
		return nil, err
	}

	root := tree.NewNode("")

	for _, section := range file.Sections() {
		for _, key := range section.Keys() {
			name := key.Name()

			if section.Name() != ini.DefaultSection {
				name = section.Name() + "." + name
			}

			for _, value := range key.ValueWithShadows() {
				if _, err := tree.DefaultEngine.Add(root, name, value); err != nil {
					return nil, err
				}
			}
		}
	}

	return root, nil
}

// Write method writes every value of the tree as a separate property.
func (f *PropertiesFormat) Write(w io.Writer, root *tree.Node) error {
	file := ini.Empty(writeOptions)
	keys := newINIKeys(file.Section(ini.DefaultSection))
	var addErr error

	flatten(tree.DefaultEngine, root, "", func(key string, value any) {
		if addErr == nil {
			addErr = keys.add(key, value)
		}
	})

	if addErr != nil {
		return addErr
	}

	_, err := file.WriteTo(w)

	return err
}

func loadINI(r io.Reader, opts ini.LoadOptions) (*ini.File, error) {
	data, err := io.ReadAll(r)

	if err != nil {
		return nil, err
	}

	return ini.LoadSources(opts, data)
}

// iniKeys adds keys to a section, repeated keys are added as shadows.
type iniKeys struct {
	section *ini.Section
	added   map[string]*ini.Key
}

func newINIKeys(section *ini.Section) *iniKeys {
	return &iniKeys{
		section: section,
		added:   make(map[string]*ini.Key),
	}
}

func (k *iniKeys) add(name string, value any) error {
	str := stringify(value)

	if key, ok := k.added[name]; ok {
		return key.AddShadow(str)
	}

	key, err := k.section.NewKey(name, str)

	if err != nil {
		return err
	}

	k.added[name] = key

	return nil
}
