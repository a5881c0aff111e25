package normalform

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nodeadmin/snomed-dnf/reasoner"
)

type id = reasoner.ConceptID

// Concepts and attributes shared by the tests.
const (
	root id = 1

	// attributes: roleR2 is_a roleR
	roleR     id = 101
	roleR2    id = 102
	roleOther id = 103

	// chain: hasIngredient ∘ hasActiveSite ⊑ hasTarget
	hasIngredient    id = 110
	hasActiveSite    id = 111
	hasTarget        id = 112
	hasSubIngredient id = 113

	// values: destD2 is_a destD
	destD  id = 10
	destD2 id = 11
	destE  id = 12
)

type taxonomyFixture struct {
	b *reasoner.TaxonomyBuilder
}

func newFixture() *taxonomyFixture {
	b := reasoner.NewTaxonomyBuilder()
	b.AddConcept(root)
	for _, r := range []id{roleR, roleOther, hasIngredient, hasActiveSite, hasTarget, destD, destE} {
		b.AddConcept(r)
	}
	b.AddIsA(roleR2, roleR)
	b.AddIsA(hasSubIngredient, hasIngredient)
	b.AddIsA(destD2, destD)
	return &taxonomyFixture{b: b}
}

func (f *taxonomyFixture) isA(child id, parents ...id) *taxonomyFixture {
	for _, p := range parents {
		f.b.AddIsA(child, p)
	}
	return f
}

func (f *taxonomyFixture) withChain() *taxonomyFixture {
	f.b.AddPropertyChain(reasoner.PropertyChain{
		SourceType:      hasIngredient,
		DestinationType: hasActiveSite,
		InferredType:    hasTarget,
	})
	return f
}

func (f *taxonomyFixture) build(t *testing.T) *reasoner.Taxonomy {
	t.Helper()
	tax, err := f.b.Build()
	require.NoError(t, err)
	return tax
}

func rel(typeID, dest id) reasoner.StatementFragment {
	return reasoner.StatementFragment{TypeID: typeID, DestinationID: dest}
}

func grouped(typeID, dest id, group, union int) reasoner.StatementFragment {
	return reasoner.StatementFragment{TypeID: typeID, DestinationID: dest, Group: group, UnionGroup: union}
}

func nonIsA(rels []*Relationship) []*Relationship {
	var out []*Relationship
	for _, r := range rels {
		if r.TypeID != reasoner.IsA {
			out = append(out, r)
		}
	}
	return out
}

func pairs(rels []*Relationship) [][2]id {
	out := make([][2]id, 0, len(rels))
	for _, r := range rels {
		out = append(out, [2]id{r.TypeID, r.DestinationID})
	}
	return out
}

func fragmentValue(typeID id, text string) reasoner.ConcreteDomainFragment {
	return reasoner.ConcreteDomainFragment{TypeID: typeID, Value: text, DataType: "xsd:integer"}
}
