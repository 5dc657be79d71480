package fileconf

import (
	"fmt"
	"io"
	"sort"

	"github.com/iph0/conf/v3/tree"
	"github.com/joho/godotenv"
	"github.com/spf13/cast"
)

// EnvFormat reads and writes dotenv files. Variables become children of the
// root node, their names are not split.
type EnvFormat struct{}

// Read method reads a dotenv file. Variables are added in order of their
// names.
func (f *EnvFormat) Read(r io.Reader) (*tree.Node, error) {
	vars, err := godotenv.Parse(r)

	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(vars))

	for name := range vars {
		names = append(names, name)
	}

	sort.Strings(names)
	root := tree.NewNode("")

	for _, name := range names {
		root.AddChild(tree.NewValueNode(name, vars[name]))
	}

	return root, nil
}

// Write method writes every value of the tree as a variable. Nested keys are
// joined with underscores, repeated values are joined with commas.
func (f *EnvFormat) Write(w io.Writer, root *tree.Node) error {
	vars := make(map[string]string)

	var walk func(node *tree.Node, prefix string)

	walk = func(node *tree.Node, prefix string) {
		for _, child := range node.Children() {
			name := child.Name()

			if prefix != "" {
				name = prefix + "_" + name
			}

			if child.HasValue() {
				value := stringify(child.Value())

				if prev, ok := vars[name]; ok {
					value = prev + "," + value
				}

				vars[name] = value
			}

			walk(child, name)
		}
	}

	walk(root, "")

	content, err := godotenv.Marshal(vars)

	if err != nil {
		return err
	}

	if content != "" {
		content += "\n"
	}

	_, err = io.WriteString(w, content)

	return err
}

func stringify(value any) string {
	if value == nil {
		return ""
	}

	if s, err := cast.ToStringE(value); err == nil {
		return s
	}

	return fmt.Sprint(value)
}
