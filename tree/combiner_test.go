package tree

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func combinerTrees() (*Node, *Node) {
	node1 := FromValue("", map[string]any{
		"gui": map[string]any{
			"bgcolor": "green",
			"level":   1,
		},
		"net": map[string]any{
			"server": []any{
				map[string]any{"@name": "alpha", "ip": "10.0.0.1"},
			},
		},
	})

	node2 := FromValue("", map[string]any{
		"gui": map[string]any{
			"bgcolor":  "black",
			"selcolor": "yellow",
		},
		"net": map[string]any{
			"server": []any{
				map[string]any{"@name": "alpha", "port": 80},
				map[string]any{"@name": "beta", "ip": "10.0.0.2"},
			},
		},
		"mail": "smtp.example.com",
	})

	return node1, node2
}

func TestOverrideCombiner(t *testing.T) {
	t.Parallel()

	node1, node2 := combinerTrees()
	res := (&OverrideCombiner{}).Combine(node1, node2)

	assert.Equal(t, []any{"green"}, values(DefaultEngine.Query(res, "gui.bgcolor")))
	assert.Equal(t, []any{"yellow"}, values(DefaultEngine.Query(res, "gui.selcolor")))
	assert.Equal(t, []any{"smtp.example.com"}, values(DefaultEngine.Query(res, "mail")))

	// node1 has the only server definition, the servers of node2 are hidden
	assert.Equal(t, []any{"alpha"}, values(DefaultEngine.Query(res, "net.server[@name]")))

	// source trees are left untouched
	assert.Empty(t, DefaultEngine.Query(node1, "mail"))
}

func TestUnionCombiner(t *testing.T) {
	t.Parallel()

	node1, node2 := combinerTrees()
	res := (&UnionCombiner{}).Combine(node1, node2)

	assert.Equal(t, []any{"green"}, values(DefaultEngine.Query(res, "gui.bgcolor")))
	assert.Equal(t, []any{"alpha", "alpha", "beta"},
		values(DefaultEngine.Query(res, "net.server[@name]")))
}

func TestUnionCombiner_ListNodes(t *testing.T) {
	t.Parallel()

	node1, node2 := combinerTrees()
	res := (&UnionCombiner{ListNodes: NewListNodes("gui")}).Combine(node1, node2)

	assert.Equal(t, []any{"green", "black"},
		values(DefaultEngine.Query(res, "gui.bgcolor")))
}

func TestMergeCombiner(t *testing.T) {
	t.Parallel()

	node1, node2 := combinerTrees()
	res := (&MergeCombiner{}).Combine(node1, node2)

	assert.Equal(t, []any{"alpha", "beta"},
		values(DefaultEngine.Query(res, "net.server[@name]")))
	assert.Equal(t, []any{80}, values(DefaultEngine.Query(res, "net.server(0).port")))
	assert.Equal(t, []any{"10.0.0.1"}, values(DefaultEngine.Query(res, "net.server(0).ip")))
	assert.Equal(t, []any{"10.0.0.2"}, values(DefaultEngine.Query(res, "net.server(1).ip")))
}
