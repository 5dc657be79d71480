package tree

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tablesTree() *Node {
	root := NewNode("")
	tables := NewNode("tables")
	root.AddChild(tables)

	for _, def := range []struct {
		typ    string
		name   string
		fields []string
	}{
		{"system", "users", []string{"uid", "uname", "firstName", "lastName"}},
		{"application", "documents", []string{"docid", "name", "creationDate"}},
	} {
		table := NewNode("table")
		table.SetAttribute("type", def.typ)
		table.AddChild(NewValueNode("name", def.name))

		fields := NewNode("fields")

		for _, name := range def.fields {
			field := NewNode("field")
			field.AddChild(NewValueNode("name", name))
			fields.AddChild(field)
		}

		table.AddChild(fields)
		tables.AddChild(table)
	}

	return root
}

func values(results []QueryResult) []any {
	var res []any

	for _, r := range results {
		res = append(res, r.Value())
	}

	return res
}

func TestQuery(t *testing.T) {
	t.Parallel()

	root := tablesTree()

	tests := []struct {
		name string
		key  string
		want []any
	}{
		{
			name: "all names",
			key:  "tables.table.name",
			want: []any{"users", "documents"},
		},
		{
			name: "indexed table",
			key:  "tables.table(1).name",
			want: []any{"documents"},
		},
		{
			name: "nested indices",
			key:  "tables.table(0).fields.field(2).name",
			want: []any{"firstName"},
		},
		{
			name: "attribute",
			key:  "tables.table(0)[@type]",
			want: []any{"system"},
		},
		{
			name: "attribute of all tables",
			key:  "tables.table[@type]",
			want: []any{"system", "application"},
		},
		{
			name: "index out of range",
			key:  "tables.table(2).name",
			want: nil,
		},
		{
			name: "unknown key",
			key:  "tables.view",
			want: nil,
		},
		{
			name: "attribute in the middle",
			key:  "tables.table[@type].name",
			want: nil,
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tc.want, values(DefaultEngine.Query(root, tc.key)))
		})
	}
}

func TestQuery_EmptyKey(t *testing.T) {
	t.Parallel()

	root := tablesTree()
	results := DefaultEngine.Query(root, "")

	require.Len(t, results, 1)
	assert.Same(t, root, results[0].Node)
	assert.False(t, results[0].IsAttribute())
}

func TestQuery_EscapedDelimiter(t *testing.T) {
	t.Parallel()

	root := NewNode("")
	server := NewNode("server.name")
	server.AddChild(NewValueNode("host", "example.com"))
	root.AddChild(server)

	assert.Equal(t, []any{"example.com"},
		values(DefaultEngine.Query(root, "server..name.host")))
	assert.Empty(t, DefaultEngine.Query(root, "server.name.host"))
}

func TestQuery_CustomSymbols(t *testing.T) {
	t.Parallel()

	engine := NewEngine(Symbols{
		PropertyDelimiter: "/",
		EscapedDelimiter:  "//",
		IndexStart:        "[",
		IndexEnd:          "]",
		AttributeStart:    "@",
	})

	root := tablesTree()

	assert.Equal(t, []any{"documents"},
		values(engine.Query(root, "tables/table[1]/name")))
}

func TestNodeKeys(t *testing.T) {
	t.Parallel()

	root := tablesTree()
	table := DefaultEngine.QueryNodes(root, "tables.table(1)")[0]

	assert.Equal(t, "tables.table", DefaultEngine.NodeKey(table, "tables"))
	assert.Equal(t, "tables.table(1)", DefaultEngine.CanonicalKey(table, "tables"))
	assert.Equal(t, "tables.table(1)[@type]",
		DefaultEngine.AttributeKey("tables.table(1)", "type"))

	node := NewNode("a.b")
	assert.Equal(t, "x.a..b", DefaultEngine.NodeKey(node, "x"))
	assert.Equal(t, "a..b", DefaultEngine.NodeKey(node, ""))
}

func TestKey_Trim(t *testing.T) {
	t.Parallel()

	tests := []struct {
		key  string
		want string
	}{
		{".a.b.", "a.b"},
		{"..a.b", "..a.b"},
		{"a.b..", "a.b.."},
		{"...", "..."},
		{"a", "a"},
	}

	for _, tc := range tests {
		assert.Equal(t, tc.want, DefaultEngine.NewKey(tc.key).Trim().String(), tc.key)
	}

	key := DefaultEngine.NewKey("tables.").Trim().
		Append("table", false).
		AppendIndex(1).
		AppendAttribute("type")

	assert.Equal(t, "tables.table(1)[@type]", key.String())
}

func TestKey_Append(t *testing.T) {
	t.Parallel()

	tests := []struct {
		key  *Key
		want string
	}{
		{DefaultEngine.NewKey("a.").Append("b", false), "a.b"},
		{DefaultEngine.NewKey("a").Append(".b", false), "a.b"},
		{DefaultEngine.NewKey("").Append("a.", true).Append("b", true), "a...b"},
		{DefaultEngine.NewKey("x").Append("a.", true).Append("b", true), "x.a...b"},
		{DefaultEngine.NewKey("a").Append("", true), "a"},
		{DefaultEngine.NewKey("a").Append("[@b]", true), "a[@b]"},
	}

	for _, tc := range tests {
		assert.Equal(t, tc.want, tc.key.String())
	}

	elems := DefaultEngine.NewKey("").Append("a.", true).Append("b", true).Elements()
	assert.Equal(t, []KeyElement{{Name: "a."}, {Name: "b"}}, elems)
}

func TestKey_CommonAndDifference(t *testing.T) {
	t.Parallel()

	tests := []struct {
		key        string
		other      string
		common     string
		difference string
	}{
		{"a.b(1).c", "a.b(1).d.e", "a.b(1)", "d.e"},
		{"a.b", "a.b[@x]", "a.b", "[@x]"},
		{"a.b(1)", "a.b(2)", "a", "b(2)"},
		{"a.b", "a.b(0)", "a", "b(0)"},
		{"x", "y", "", "y"},
		{"a.b", "a.b", "a.b", ""},
		{"x..y.z", "x..y.w", "x..y", "w"},
	}

	for _, tc := range tests {
		key := DefaultEngine.NewKey(tc.key)
		other := DefaultEngine.NewKey(tc.other)

		assert.Equal(t, tc.common, key.CommonKey(other).String(), tc.key)
		assert.Equal(t, tc.difference, key.DifferenceKey(other).String(), tc.key)
	}
}

func TestNodeKey_EscapedNames(t *testing.T) {
	t.Parallel()

	root := FromValue("", map[string]any{
		"a.": map[string]any{"b": 1},
	})

	parent := root.Children()[0]
	key := DefaultEngine.NodeKey(parent.Children()[0],
		DefaultEngine.NodeKey(parent, ""))

	require.Equal(t, "a...b", key)

	results := DefaultEngine.Query(root, key)
	require.Len(t, results, 1)
	assert.Equal(t, 1, results[0].Value())
}

func TestPrepareAdd(t *testing.T) {
	t.Parallel()

	root := tablesTree()

	t.Run("new child of last table", func(t *testing.T) {
		t.Parallel()

		data, err := DefaultEngine.PrepareAdd(root, "tables.table.fields.field.type")
		require.NoError(t, err)

		assert.Equal(t, "field", data.Parent.Name())
		assert.Equal(t, "creationDate", data.Parent.ChildrenNamed("name")[0].Value())
		assert.Empty(t, data.PathNodes)
		assert.Equal(t, "type", data.NewNodeName)
		assert.False(t, data.Attribute)
	})

	t.Run("explicit index", func(t *testing.T) {
		t.Parallel()

		data, err := DefaultEngine.PrepareAdd(root, "tables.table(0).indices.index")
		require.NoError(t, err)

		assert.Equal(t, "users", data.Parent.ChildrenNamed("name")[0].Value())
		assert.Equal(t, []string{"indices"}, data.PathNodes)
		assert.Equal(t, "index", data.NewNodeName)
	})

	t.Run("attribute", func(t *testing.T) {
		t.Parallel()

		data, err := DefaultEngine.PrepareAdd(root, "tables.table(1)[@engine]")
		require.NoError(t, err)

		assert.Equal(t, "table", data.Parent.Name())
		assert.True(t, data.Attribute)
		assert.Equal(t, "engine", data.NewNodeName)
	})

	t.Run("attribute in the middle", func(t *testing.T) {
		t.Parallel()

		_, err := DefaultEngine.PrepareAdd(root, "tables[@x].table")
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrInvalidKey))
	})

	t.Run("empty key", func(t *testing.T) {
		t.Parallel()

		_, err := DefaultEngine.PrepareAdd(root, "")
		assert.ErrorIs(t, err, ErrInvalidKey)
	})
}

func TestAdd(t *testing.T) {
	t.Parallel()

	root := NewNode("")

	_, err := DefaultEngine.Add(root, "db.connection.host", "localhost")
	require.NoError(t, err)

	_, err = DefaultEngine.Add(root, "db.connection.host", "backup")
	require.NoError(t, err)

	_, err = DefaultEngine.Add(root, "db.connection[@pool]", "main")
	require.NoError(t, err)

	assert.Equal(t, []any{"localhost", "backup"},
		values(DefaultEngine.Query(root, "db.connection.host")))
	assert.Equal(t, []any{"main"},
		values(DefaultEngine.Query(root, "db.connection[@pool]")))
	assert.Equal(t, 1, root.ChildCount("db"))
}
