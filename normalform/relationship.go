package normalform

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/nodeadmin/snomed-dnf/reasoner"
)

// Relationship is a role/destination pair, existential unless Universal,
// optionally with a negated destination. Values holds the concrete domain
// members attached to the statement, sorted and without duplicates.
type Relationship struct {
	TypeID             reasoner.ConceptID
	DestinationID      reasoner.ConceptID
	Universal          bool
	DestinationNegated bool
	Values             []*Value

	// Carried through generation, ignored by comparison and equality.
	Group       int
	UnionGroup  int
	StatementID int64

	sem *Semantics
}

func (*Relationship) property() {}

// NewRelationship binds a fragment and its attached values to the semantics
// it is compared under.
func (s *Semantics) NewRelationship(f reasoner.StatementFragment, values ...*Value) *Relationship {
	return &Relationship{
		TypeID:             f.TypeID,
		DestinationID:      f.DestinationID,
		Universal:          f.Universal,
		DestinationNegated: f.DestinationNegated,
		Values:             attachedValues(values),
		Group:              f.Group,
		UnionGroup:         f.UnionGroup,
		StatementID:        f.StatementID,
		sem:                s,
	}
}

// IsARelationship returns the IS-A relationship to a direct parent.
func (s *Semantics) IsARelationship(parent reasoner.ConceptID) *Relationship {
	return &Relationship{TypeID: reasoner.IsA, DestinationID: parent, sem: s}
}

// Fragment converts the relationship back to its fragment form.
func (r *Relationship) Fragment() reasoner.StatementFragment {
	return reasoner.StatementFragment{
		TypeID:             r.TypeID,
		DestinationID:      r.DestinationID,
		DestinationNegated: r.DestinationNegated,
		Universal:          r.Universal,
		Group:              r.Group,
		UnionGroup:         r.UnionGroup,
		StatementID:        r.StatementID,
	}
}

// withNumbers returns a copy carrying the given group numbers.
func (r *Relationship) withNumbers(group, unionGroup int) *Relationship {
	c := *r
	c.Group = group
	c.UnionGroup = unionGroup
	return &c
}

func (r *Relationship) Equal(other Property) bool {
	o, ok := other.(*Relationship)
	if !ok {
		return false
	}
	return r.TypeID == o.TypeID &&
		r.DestinationID == o.DestinationID &&
		r.Universal == o.Universal &&
		r.DestinationNegated == o.DestinationNegated &&
		slices.EqualFunc(r.Values, o.Values, func(a, b *Value) bool { return a.Equal(b) })
}

func (r *Relationship) Hash() uint64 {
	return newHasher(kindRelationship).
		int(int64(r.TypeID)).
		int(int64(r.DestinationID)).
		bool(r.Universal).
		bool(r.DestinationNegated).
		sum()
}

func (r *Relationship) String() string {
	q := "some"
	if r.Universal {
		q = "all"
	}
	neg := ""
	if r.DestinationNegated {
		neg = "not "
	}
	if len(r.Values) == 0 {
		return fmt.Sprintf("%s %d %s%d", q, r.TypeID, neg, r.DestinationID)
	}
	vs := make([]string, len(r.Values))
	for i, v := range r.Values {
		vs[i] = v.String()
	}
	return fmt.Sprintf("%s %d %s%d [%s]", q, r.TypeID, neg, r.DestinationID, strings.Join(vs, ", "))
}

func (r *Relationship) IsSameOrStrongerThan(other Property) bool {
	o, ok := other.(*Relationship)
	if !ok {
		return false
	}
	if r.Universal != o.Universal {
		return false
	}
	if !containsValues(r.Values, o.Values) {
		return false
	}
	if r.Equal(o) {
		return true
	}
	s := r.sem
	if s == nil {
		s = o.sem
	}
	if s == nil {
		return false
	}
	t := s.taxonomy

	switch {
	case !r.DestinationNegated && !o.DestinationNegated:
		if s.subsumedBy(r.TypeID, o.TypeID) && s.subsumedBy(r.DestinationID, o.DestinationID) {
			return true
		}
		return s.chainReaches(r.TypeID, r.DestinationID, o.TypeID, o.DestinationID)

	case r.DestinationNegated && !o.DestinationNegated:
		exhaustive := t.HasCommonExhaustiveAncestor(r.DestinationID, o.DestinationID) || t.IsExhaustive(r.DestinationID)
		return exhaustive &&
			s.subsumedBy(o.TypeID, r.TypeID) &&
			t.IsAncestor(o.DestinationID, r.DestinationID)

	case !r.DestinationNegated && o.DestinationNegated:
		return t.HasCommonExhaustiveAncestor(r.DestinationID, o.DestinationID) &&
			s.subsumedBy(r.TypeID, o.TypeID)

	default:
		return s.subsumedBy(o.TypeID, r.TypeID) && s.subsumedBy(o.DestinationID, r.DestinationID)
	}
}

// RelationshipOrdering is the total order used to match existing against
// generated relationships and to pick replacements.
func RelationshipOrdering(a, b *Relationship) int {
	return cmp.Or(
		cmp.Compare(a.Group, b.Group),
		cmp.Compare(a.UnionGroup, b.UnionGroup),
		cmp.Compare(a.TypeID, b.TypeID),
		cmp.Compare(a.DestinationID, b.DestinationID),
		compareBool(a.Universal, b.Universal),
		compareBool(a.DestinationNegated, b.DestinationNegated),
		slices.CompareFunc(a.Values, b.Values, compareAttached),
	)
}

// attachedValues drops duplicates and sorts by attribute and literal text.
func attachedValues(values []*Value) []*Value {
	if len(values) == 0 {
		return nil
	}
	out := make([]*Value, 0, len(values))
	for _, v := range values {
		if !slices.ContainsFunc(out, func(x *Value) bool { return x.Equal(v) }) {
			out = append(out, v)
		}
	}
	slices.SortFunc(out, compareAttached)
	return out
}

func compareAttached(a, b *Value) int {
	return cmp.Or(
		cmp.Compare(a.TypeID, b.TypeID),
		strings.Compare(a.Literal.Text, b.Literal.Text),
	)
}

// containsValues reports whether every value of sub is in set.
func containsValues(set, sub []*Value) bool {
	for _, v := range sub {
		if !slices.ContainsFunc(set, func(x *Value) bool { return x.Equal(v) }) {
			return false
		}
	}
	return true
}

func compareBool(a, b bool) int {
	switch {
	case a == b:
		return 0
	case !a:
		return -1
	default:
		return 1
	}
}
