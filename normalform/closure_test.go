package normalform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClosureGraphAncestors(t *testing.T) {
	g := NewDestinationClosureGraph()
	require.NoError(t, g.AddEdge(1, 2))
	require.NoError(t, g.AddEdge(2, 3))
	require.NoError(t, g.AddEdge(1, 4))
	require.NoError(t, g.AddEdge(4, 3))
	require.NoError(t, g.AddEdge(1, 2), "duplicate edges are ignored")

	assert.Equal(t, map[id]struct{}{2: {}, 3: {}, 4: {}}, g.AncestorsOf(1))
	assert.Equal(t, map[id]struct{}{3: {}}, g.AncestorsOf(4))
	assert.Empty(t, g.AncestorsOf(3))
	assert.Empty(t, g.AncestorsOf(99), "unknown value")
	assert.Equal(t, 4, g.EdgeCount())
}

func TestClosureGraphRejectsCycles(t *testing.T) {
	g := NewDestinationClosureGraph()
	require.NoError(t, g.AddEdge(1, 2))
	require.NoError(t, g.AddEdge(2, 3))

	assert.ErrorIs(t, g.AddEdge(3, 1), ErrClosureCycle)
	assert.ErrorIs(t, g.AddEdge(5, 5), ErrClosureCycle)
	assert.Equal(t, 2, g.EdgeCount())
	assert.Equal(t, map[id]struct{}{2: {}, 3: {}}, g.AncestorsOf(1))
}

func TestSemanticsGraphs(t *testing.T) {
	sem := NewSemantics(newFixture().withChain().build(t))
	assert.NotNil(t, sem.Graph(hasActiveSite))
	assert.Panics(t, func() { sem.Graph(hasIngredient) })

	require.NoError(t, sem.RecordRelationship(roleR, 1, 2), "non-chain types are ignored")
	require.NoError(t, sem.RecordRelationship(hasActiveSite, 40, 41))
	assert.Equal(t, 1, sem.Graph(hasActiveSite).EdgeCount())
	assert.ErrorIs(t, sem.RecordRelationship(hasActiveSite, 41, 40), ErrClosureCycle)

	require.NoError(t, sem.RecordRelationship(hasActiveSite, 41, 41), "self references are skipped")
	assert.Equal(t, 1, sem.Graph(hasActiveSite).EdgeCount())
}
