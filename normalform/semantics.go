package normalform

import (
	"fmt"

	"github.com/nodeadmin/snomed-dnf/reasoner"
)

// Semantics is the context every property comparison runs against: the
// taxonomy of the current pass and one destination closure graph per
// property chain destination type. It is owned by a single generator.
type Semantics struct {
	taxonomy *reasoner.Taxonomy
	chains   *reasoner.ChainStore
	graphs   map[reasoner.ConceptID]*DestinationClosureGraph
}

func NewSemantics(t *reasoner.Taxonomy) *Semantics {
	s := &Semantics{
		taxonomy: t,
		chains:   t.PropertyChains(),
		graphs:   make(map[reasoner.ConceptID]*DestinationClosureGraph),
	}
	for _, dt := range s.chains.DestinationTypes() {
		s.graphs[dt] = NewDestinationClosureGraph()
	}
	return s
}

func (s *Semantics) Taxonomy() *reasoner.Taxonomy { return s.taxonomy }

// Graph returns the closure graph of a chain destination type. Asking for a
// type no chain uses is a caller bug.
func (s *Semantics) Graph(destinationType reasoner.ConceptID) *DestinationClosureGraph {
	g, ok := s.graphs[destinationType]
	if !ok {
		panic(fmt.Sprintf("normalform: %d is not a property chain destination type", destinationType))
	}
	return g
}

// RecordRelationship feeds a source -> destination edge into the closure
// graph of typeID. Relationships of other types are ignored, and so are
// relationships pointing a concept at itself, which add nothing to the
// closure.
func (s *Semantics) RecordRelationship(typeID, source, destination reasoner.ConceptID) error {
	g, ok := s.graphs[typeID]
	if !ok || source == destination {
		return nil
	}
	if err := g.AddEdge(source, destination); err != nil {
		return fmt.Errorf("attribute %d: %w", typeID, err)
	}
	return nil
}

// subsumedBy reports a ⊆-closure b: a == b or b is an inferred ancestor of a.
func (s *Semantics) subsumedBy(a, b reasoner.ConceptID) bool {
	return s.taxonomy.IsSameOrDescendant(a, b)
}

// chainReaches applies the role chain rule: some chain infers other's type
// from a source type that covers this type, and this destination reaches
// other's destination in the chain's closure graph, either directly or
// through a value that lies under it in the hierarchy.
func (s *Semantics) chainReaches(thisType, thisDest, otherType, otherDest reasoner.ConceptID) bool {
	for _, c := range s.chains.ByInferredType(otherType) {
		if !s.subsumedBy(thisType, c.SourceType) {
			continue
		}
		reached := s.Graph(c.DestinationType).AncestorsOf(thisDest)
		if _, ok := reached[otherDest]; ok {
			return true
		}
		for r := range reached {
			if s.subsumedBy(r, otherDest) {
				return true
			}
		}
	}
	return false
}
