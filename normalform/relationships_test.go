package normalform

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nodeadmin/snomed-dnf/reasoner"
)

const (
	conceptA id = 2
	conceptB id = 3
	conceptC id = 4
)

func runRelationships(t *testing.T, tax *reasoner.Taxonomy, stmts *reasoner.Statements) (*RelationshipGenerator, map[id][]*Relationship) {
	t.Helper()
	src, err := NewRelationshipGenerator(tax, stmts, RetainAll)
	require.NoError(t, err)
	out := make(map[id][]*Relationship)
	proc := ChangeProcessorFunc[*Relationship](func(_ context.Context, conceptID id, _, generated []*Relationship, _ Ordering[*Relationship]) error {
		out[conceptID] = generated
		return nil
	})
	_, err = NewGenerator[*Relationship](tax, src, Options{}).Run(context.Background(), proc, RelationshipOrdering)
	require.NoError(t, err)
	return src, out
}

func TestRelationshipGeneratorDropsInheritedRedundancy(t *testing.T) {
	tax := newFixture().isA(conceptA, root).isA(conceptB, conceptA).build(t)
	stmts := reasoner.NewStatements()
	stmts.AddStated(conceptA, rel(roleR, destD))
	stmts.AddStated(conceptB, rel(roleR2, destD2))

	_, out := runRelationships(t, tax, stmts)
	assert.Equal(t, [][2]id{{roleR, destD}}, pairs(nonIsA(out[conceptA])))
	assert.Equal(t, [][2]id{{roleR2, destD2}}, pairs(nonIsA(out[conceptB])))
	assert.Equal(t, [][2]id{{reasoner.IsA, conceptA}}, pairs(out[conceptB][:1]))
}

func TestRelationshipGeneratorChainScenario(t *testing.T) {
	const substance id = 50
	tax := newFixture().withChain().isA(conceptA, root).isA(conceptB, conceptA).isA(substance, root).build(t)
	stmts := reasoner.NewStatements()
	stmts.AddStated(conceptB, rel(hasIngredient, substance))

	src, out := runRelationships(t, tax, stmts)
	assert.Empty(t, nonIsA(out[conceptA]))
	assert.Equal(t, [][2]id{{reasoner.IsA, root}}, pairs(out[conceptA]))
	assert.Equal(t, [][2]id{{reasoner.IsA, conceptA}, {hasIngredient, substance}}, pairs(out[conceptB]))

	cached, ok := src.Cache().Get(conceptB)
	require.True(t, ok)
	assert.Equal(t, [][2]id{{hasIngredient, substance}}, pairs(cached))
}

func TestRelationshipGeneratorChainRedundancy(t *testing.T) {
	const (
		drug id = 50
		site id = 51
	)
	tax := newFixture().withChain().isA(conceptA, root).isA(drug, root).isA(site, root).build(t)
	stmts := reasoner.NewStatements()
	stmts.AddStated(drug, rel(hasActiveSite, site))
	stmts.AddStated(conceptA, rel(hasIngredient, drug))
	stmts.AddStated(conceptA, rel(hasTarget, site))

	src, out := runRelationships(t, tax, stmts)
	assert.Equal(t, [][2]id{{hasIngredient, drug}}, pairs(nonIsA(out[conceptA])))
	assert.Equal(t, map[id]struct{}{site: {}}, src.Semantics().Graph(hasActiveSite).AncestorsOf(drug))
	assert.False(t, src.LayerIndependent())
}

func TestRelationshipGeneratorGroups(t *testing.T) {
	tax := newFixture().isA(conceptA, root).isA(conceptB, conceptA).build(t)
	stmts := reasoner.NewStatements()
	stmts.AddStated(conceptA, grouped(roleR, destD, 1, 0))
	stmts.AddStated(conceptA, grouped(roleOther, destE, 2, 0))
	// B refines A's first group and keeps the second as is.
	stmts.AddStated(conceptB, grouped(roleR2, destD2, 1, 0))
	stmts.AddStated(conceptB, grouped(roleOther, destD, 1, 0))
	// Previously B had the roleOther group under number 4.
	stmts.AddInferred(conceptB, grouped(roleOther, destE, 4, 0))

	src, out := runRelationships(t, tax, stmts)
	assert.True(t, src.LayerIndependent())

	got := nonIsA(out[conceptB])
	require.Len(t, got, 3)
	byPair := make(map[[2]id]*Relationship)
	for _, r := range got {
		byPair[[2]id{r.TypeID, r.DestinationID}] = r
	}
	require.Contains(t, byPair, [2]id{roleOther, destE})
	assert.Equal(t, 4, byPair[[2]id{roleOther, destE}].Group, "existing number kept")
	assert.Equal(t, 1, byPair[[2]id{roleR2, destD2}].Group)
	assert.Equal(t, 1, byPair[[2]id{roleOther, destD}].Group)
	assert.NotContains(t, byPair, [2]id{roleR, destD})
}

func TestRelationshipGeneratorUnionGroups(t *testing.T) {
	tax := newFixture().isA(conceptA, root).isA(conceptB, conceptA).build(t)
	stmts := reasoner.NewStatements()
	stmts.AddStated(conceptA, grouped(roleR, destD, 0, 3))
	stmts.AddStated(conceptA, grouped(roleR, destE, 0, 3))
	// B narrows the alternatives to a single one.
	stmts.AddStated(conceptB, grouped(roleR, destD2, 0, 1))

	_, out := runRelationships(t, tax, stmts)

	a := nonIsA(out[conceptA])
	require.Len(t, a, 2)
	for _, r := range a {
		assert.Equal(t, 0, r.Group)
		assert.Equal(t, 1, r.UnionGroup, "renumbered from 1 since nothing was inferred before")
	}

	b := nonIsA(out[conceptB])
	require.Len(t, b, 1)
	assert.Equal(t, [2]id{roleR, destD2}, [2]id{b[0].TypeID, b[0].DestinationID})
	assert.Equal(t, 1, b[0].UnionGroup)
}

func TestRelationshipGeneratorRejectsNegatedUnionMembers(t *testing.T) {
	tax := newFixture().isA(conceptA, root).build(t)
	stmts := reasoner.NewStatements()
	stmts.AddStated(conceptA, reasoner.StatementFragment{TypeID: roleR, DestinationID: destD, DestinationNegated: true, UnionGroup: 1})

	src, err := NewRelationshipGenerator(tax, stmts, RetainAll)
	require.NoError(t, err)
	_, err = src.GeneratedComponents(root, nil)
	require.NoError(t, err)
	_, err = src.GeneratedComponents(conceptA, tax.Parents(conceptA))
	require.ErrorIs(t, err, ErrUnsupportedGrouping)
	var de *DataError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, conceptA, de.ConceptID)
	assert.Equal(t, roleR, de.TypeID)
}

func TestRelationshipGeneratorRejectsChainCycles(t *testing.T) {
	tax := newFixture().withChain().isA(conceptA, root).isA(conceptB, root).build(t)
	stmts := reasoner.NewStatements()
	stmts.AddStated(conceptA, rel(hasActiveSite, conceptB))
	stmts.AddStated(conceptB, rel(hasActiveSite, conceptA))

	for range 5 {
		_, err := NewRelationshipGenerator(tax, stmts, RetainAll)
		require.ErrorIs(t, err, ErrClosureCycle)
		assert.ErrorContains(t, err, "3 -> 2", "seeding runs in concept id order")
	}
}

func TestRelationshipGeneratorIgnoresSelfReferences(t *testing.T) {
	tax := newFixture().withChain().isA(conceptA, root).isA(conceptB, conceptA).build(t)
	stmts := reasoner.NewStatements()
	stmts.AddStated(conceptA, rel(hasActiveSite, conceptB))
	stmts.AddStated(conceptB, rel(hasActiveSite, conceptB))

	src, out := runRelationships(t, tax, stmts)
	assert.Equal(t, [][2]id{{hasActiveSite, conceptB}}, pairs(nonIsA(out[conceptB])))
	assert.Equal(t, 1, src.Semantics().Graph(hasActiveSite).EdgeCount())
}

func TestRelationshipGeneratorKeepsAttachedValues(t *testing.T) {
	const (
		strength  id    = 120
		inherited int64 = 7001
		own       int64 = 7002
	)
	tax := newFixture().isA(conceptA, root).isA(conceptB, conceptA).isA(strength, root).build(t)
	stmts := reasoner.NewStatements()
	weak := rel(roleR, destD)
	weak.StatementID = inherited
	strong := rel(roleR2, destD2)
	strong.StatementID = own
	stmts.AddStated(conceptA, weak)
	stmts.AddStated(conceptB, strong)
	stmts.AddStatedMember(inherited, fragmentValue(strength, "250"))

	_, out := runRelationships(t, tax, stmts)

	b := nonIsA(out[conceptB])
	assert.Equal(t, [][2]id{{roleR, destD}, {roleR2, destD2}}, pairs(b),
		"a stronger relationship without the value does not replace one carrying it")
	require.Len(t, b[0].Values, 1)
	assert.Equal(t, "250", b[0].Values[0].Literal.Text)
	assert.Empty(t, b[1].Values)

	stmts.AddStatedMember(own, fragmentValue(strength, "250"))
	_, out = runRelationships(t, tax, stmts)
	assert.Equal(t, [][2]id{{roleR2, destD2}}, pairs(nonIsA(out[conceptB])),
		"the stronger relationship carries the value too")
}

func TestRelationshipGeneratorReportsBadMemberLiterals(t *testing.T) {
	tax := newFixture().isA(conceptA, root).build(t)
	stmts := reasoner.NewStatements()
	f := rel(roleR, destD)
	f.StatementID = 9
	stmts.AddInferred(conceptA, f)
	stmts.AddInferredMember(9, reasoner.ConcreteDomainFragment{TypeID: roleOther, Value: "many", DataType: "xsd:integer"})

	src, err := NewRelationshipGenerator(tax, stmts, RetainAll)
	require.NoError(t, err)
	_, err = src.ExistingComponents(conceptA)
	var de *DataError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, conceptA, de.ConceptID)
	assert.Equal(t, roleOther, de.TypeID)
}

func TestRelationshipGeneratorExistingComponents(t *testing.T) {
	tax := newFixture().isA(conceptA, root).build(t)
	stmts := reasoner.NewStatements()
	stmts.AddInferred(conceptA, rel(reasoner.IsA, root))
	stmts.AddInferred(conceptA, grouped(roleR, destD, 2, 0))

	src, err := NewRelationshipGenerator(tax, stmts, RetainAll)
	require.NoError(t, err)
	existing, err := src.ExistingComponents(conceptA)
	require.NoError(t, err)
	assert.Equal(t, [][2]id{{reasoner.IsA, root}, {roleR, destD}}, pairs(existing))
	assert.Equal(t, 2, existing[1].Fragment().Group)
}
