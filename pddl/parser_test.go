package pddl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseForms(t *testing.T) {
	nodes, err := parse("test", `
; a comment
(a ?x :key - 1 2.5)
()
`)
	require.NoError(t, err)
	require.Len(t, nodes, 2)

	form := nodes[0]
	require.True(t, form.isList())
	assert.Equal(t, "a", form.head())
	items := form.items()
	require.Len(t, items, 6)
	assert.NotNil(t, items[1].Var)
	assert.NotNil(t, items[2].Keyword)
	assert.NotNil(t, items[3].Op)
	assert.NotNil(t, items[4].Number)
	assert.Equal(t, "(a ?x :key - 1 2.5)", form.String())

	empty := nodes[1]
	assert.True(t, empty.isList())
	assert.Empty(t, empty.items())
	assert.Equal(t, "", empty.head())
}

func TestParseNested(t *testing.T) {
	node, err := parseOne("test", `(and (p a) (not (q b)))`)
	require.NoError(t, err)
	assert.Equal(t, "and", node.head())
	require.Len(t, node.items(), 3)
	assert.Equal(t, "not", node.items()[2].head())
}

func TestParseErrors(t *testing.T) {
	_, err := parse("test", `(unbalanced`)
	assert.Error(t, err)

	_, err = parseOne("test", `(a) (b)`)
	assert.Error(t, err, "two top level forms")

	_, err = parseOne("test", `atom`)
	assert.Error(t, err, "top level form must be a list")
}
