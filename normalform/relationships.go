package normalform

import (
	"fmt"
	"slices"

	"github.com/nodeadmin/snomed-dnf/reasoner"
)

// RelationshipGenerator generates the IS-A and attribute relationships of
// every concept in normal form. Attribute relationships inherited from
// direct parents are merged with the concept's own stated ones; groups made
// redundant by a stronger group are dropped.
type RelationshipGenerator struct {
	taxonomy   *reasoner.Taxonomy
	statements *reasoner.Statements
	sem        *Semantics
	cache      *Cache[*Relationship]
}

// NewRelationshipGenerator seeds the destination closure graphs with every
// stated relationship whose type is a chain destination type.
func NewRelationshipGenerator(t *reasoner.Taxonomy, stmts *reasoner.Statements, policy RetentionPolicy) (*RelationshipGenerator, error) {
	g := &RelationshipGenerator{
		taxonomy:   t,
		statements: stmts,
		sem:        NewSemantics(t),
		cache:      NewCache[*Relationship](t, policy),
	}
	var err error
	stmts.EachStated(func(c reasoner.ConceptID, f reasoner.StatementFragment) {
		if err != nil || f.DestinationNegated {
			return
		}
		err = g.sem.RecordRelationship(f.TypeID, c, f.DestinationID)
	})
	if err != nil {
		return nil, err
	}
	return g, nil
}

func (g *RelationshipGenerator) Semantics() *Semantics { return g.sem }

func (g *RelationshipGenerator) Cache() *Cache[*Relationship] { return g.cache }

// ExistingComponents returns the previously inferred relationships.
func (g *RelationshipGenerator) ExistingComponents(conceptID reasoner.ConceptID) ([]*Relationship, error) {
	return g.relationships(conceptID, g.statements.Inferred(conceptID), g.statements.InferredMembers)
}

// relationships binds fragments together with the values attached to their
// statements.
func (g *RelationshipGenerator) relationships(conceptID reasoner.ConceptID, fragments []reasoner.StatementFragment, members func(statementID int64) []reasoner.ConcreteDomainFragment) ([]*Relationship, error) {
	out := make([]*Relationship, 0, len(fragments))
	for _, f := range fragments {
		var values []*Value
		for _, m := range members(f.StatementID) {
			v, err := g.sem.NewValue(conceptID, m)
			if err != nil {
				return nil, err
			}
			values = append(values, v)
		}
		out = append(out, g.sem.NewRelationship(f, values...))
	}
	return out, nil
}

func (g *RelationshipGenerator) GeneratedComponents(conceptID reasoner.ConceptID, parentIDs []reasoner.ConceptID) ([]*Relationship, error) {
	target := NewGroupSet()

	if len(parentIDs) > 0 {
		inherited, err := g.cache.Parents(conceptID)
		if err != nil {
			return nil, err
		}
		for _, set := range inherited {
			groups, err := g.toGroups(conceptID, set, false)
			if err != nil {
				return nil, err
			}
			target.AddAll(groups)
		}
	}

	own, err := g.relationships(conceptID, g.statements.StatedNonIsA(conceptID), g.statements.StatedMembers)
	if err != nil {
		return nil, err
	}
	groups, err := g.toGroups(conceptID, own, false)
	if err != nil {
		return nil, err
	}
	target.AddAll(groups)

	existing := NewGroupSet()
	previous, err := g.relationships(conceptID, g.statements.InferredNonIsA(conceptID), g.statements.InferredMembers)
	if err != nil {
		return nil, err
	}
	existingGroups, err := g.toGroups(conceptID, previous, true)
	if err != nil {
		return nil, err
	}
	for _, eg := range existingGroups {
		existing.AddUnique(eg)
	}
	target.AssignNumbers(existing)

	nonIsA := flatten(target)
	for _, r := range nonIsA {
		if r.DestinationNegated {
			continue
		}
		if err := g.sem.RecordRelationship(r.TypeID, conceptID, r.DestinationID); err != nil {
			return nil, fmt.Errorf("concept %d: %w", conceptID, err)
		}
	}
	g.cache.Put(conceptID, nonIsA)

	out := make([]*Relationship, 0, len(parentIDs)+len(nonIsA))
	for _, p := range parentIDs {
		out = append(out, g.sem.IsARelationship(p))
	}
	return append(out, nonIsA...), nil
}

func (g *RelationshipGenerator) Invalidate(ids []reasoner.ConceptID) { g.cache.Invalidate(ids) }

// LayerIndependent is false when property chains exist: siblings feed the
// closure graphs other siblings read.
func (g *RelationshipGenerator) LayerIndependent() bool {
	return len(g.taxonomy.PropertyChains().All()) == 0
}

// toGroups buckets relationships by group and union group number. Group 0
// members and union group 0 members each form their own unit. With
// preserveNumbers the input numbers are kept on the resulting groups.
func (g *RelationshipGenerator) toGroups(conceptID reasoner.ConceptID, rels []*Relationship, preserveNumbers bool) ([]*Group, error) {
	byGroup := make(map[int]map[int][]*Relationship)
	for _, r := range rels {
		if r.DestinationNegated && r.UnionGroup != 0 {
			return nil, &DataError{ConceptID: conceptID, TypeID: r.TypeID, Err: ErrUnsupportedGrouping}
		}
		if byGroup[r.Group] == nil {
			byGroup[r.Group] = make(map[int][]*Relationship)
		}
		byGroup[r.Group][r.UnionGroup] = append(byGroup[r.Group][r.UnionGroup], r)
	}

	var out []*Group
	for _, groupNumber := range sortedKeys(byGroup) {
		unions := byGroup[groupNumber]
		var ugs []*UnionGroup
		for _, unionNumber := range sortedKeys(unions) {
			members := unions[unionNumber]
			if unionNumber == 0 {
				for _, r := range members {
					ugs = append(ugs, Ungrouped(r))
				}
				continue
			}
			b := NewUnionGroupBuilder()
			for _, r := range members {
				b.Add(r)
			}
			if preserveNumbers {
				b.Number(unionNumber)
			}
			ugs = append(ugs, b.Build())
		}
		ugs = Disjoint(ugs)

		if groupNumber == 0 {
			for _, u := range ugs {
				out = append(out, newGroup([]*UnionGroup{u}, true))
			}
			continue
		}
		grp := newGroup(ugs, false)
		if preserveNumbers {
			grp.setNumber(groupNumber)
		}
		out = append(out, grp)
	}
	return out, nil
}

// flatten turns numbered groups back into relationships, ordered for output.
func flatten(set *GroupSet) []*Relationship {
	var out []*Relationship
	for _, grp := range set.Groups() {
		for _, u := range grp.UnionGroups() {
			for _, p := range u.Properties() {
				out = append(out, p.(*Relationship).withNumbers(grp.Number(), u.Number()))
			}
		}
	}
	slices.SortFunc(out, RelationshipOrdering)
	return out
}

func sortedKeys[V any](m map[int]V) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
