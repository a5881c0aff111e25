package normalform

import (
	"github.com/nodeadmin/snomed-dnf/reasoner"
)

// ConcreteDomainGenerator generates literal-valued facts. A concept's set is
// its own stated values plus the generated sets of its direct parents, each
// of which already holds everything inherited further up.
type ConcreteDomainGenerator struct {
	statements *reasoner.Statements
	sem        *Semantics
	cache      *Cache[*Value]
}

func NewConcreteDomainGenerator(t *reasoner.Taxonomy, stmts *reasoner.Statements, policy RetentionPolicy) *ConcreteDomainGenerator {
	return &ConcreteDomainGenerator{
		statements: stmts,
		sem:        NewSemantics(t),
		cache:      NewCache[*Value](t, policy),
	}
}

func (g *ConcreteDomainGenerator) Cache() *Cache[*Value] { return g.cache }

// ExistingComponents returns the previously inferred values of a concept.
func (g *ConcreteDomainGenerator) ExistingComponents(conceptID reasoner.ConceptID) ([]*Value, error) {
	return g.values(conceptID, g.statements.InferredValues(conceptID))
}

func (g *ConcreteDomainGenerator) GeneratedComponents(conceptID reasoner.ConceptID, parentIDs []reasoner.ConceptID) ([]*Value, error) {
	own, err := g.values(conceptID, g.statements.StatedValues(conceptID))
	if err != nil {
		return nil, err
	}

	var inherited [][]*Value
	if len(parentIDs) > 0 {
		if inherited, err = g.cache.Parents(conceptID); err != nil {
			return nil, err
		}
	}

	out := make([]*Value, 0, len(own))
	seen := make(map[uint64][]*Value, len(own))
	add := func(v *Value) {
		h := v.Hash()
		for _, x := range seen[h] {
			if x.Equal(v) {
				return
			}
		}
		seen[h] = append(seen[h], v)
		out = append(out, v)
	}
	for _, v := range own {
		add(v)
	}
	for _, set := range inherited {
		for _, v := range set {
			add(v)
		}
	}

	g.cache.Put(conceptID, out)
	return out, nil
}

func (g *ConcreteDomainGenerator) Invalidate(ids []reasoner.ConceptID) { g.cache.Invalidate(ids) }

func (g *ConcreteDomainGenerator) LayerIndependent() bool { return true }

func (g *ConcreteDomainGenerator) values(conceptID reasoner.ConceptID, fragments []reasoner.ConcreteDomainFragment) ([]*Value, error) {
	out := make([]*Value, 0, len(fragments))
	for _, f := range fragments {
		v, err := g.sem.NewValue(conceptID, f)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
