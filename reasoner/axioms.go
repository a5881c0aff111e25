package reasoner

import "sort"

// PropertyChain is a role composition axiom:
//
//	SourceType ∘ DestinationType ⊑ InferredType
//
// DestinationType is the role whose destinations are walked transitively when
// checking chain redundancy; it keys a destination closure graph.
type PropertyChain struct {
	SourceType      ConceptID `json:"source_type"`
	DestinationType ConceptID `json:"destination_type"`
	InferredType    ConceptID `json:"inferred_type"`
}

// ChainStore holds property chains indexed for lookup by the normal form rules.
type ChainStore struct {
	chains []PropertyChain

	// byInferred[S] = chains with InferredType S. Drives role-chain redundancy.
	byInferred map[ConceptID][]PropertyChain

	// destinationTypes = distinct DestinationType values, sorted.
	destinationTypes []ConceptID
}

func newChainStore(chains []PropertyChain) *ChainStore {
	s := &ChainStore{
		chains:     make([]PropertyChain, 0, len(chains)),
		byInferred: make(map[ConceptID][]PropertyChain, len(chains)),
	}
	seen := make(map[PropertyChain]struct{}, len(chains))
	types := make(map[ConceptID]struct{}, len(chains))
	for _, c := range chains {
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		s.chains = append(s.chains, c)
		s.byInferred[c.InferredType] = append(s.byInferred[c.InferredType], c)
		types[c.DestinationType] = struct{}{}
	}
	for t := range types {
		s.destinationTypes = append(s.destinationTypes, t)
	}
	sort.Slice(s.destinationTypes, func(i, j int) bool { return s.destinationTypes[i] < s.destinationTypes[j] })
	return s
}

// All returns every registered chain in insertion order.
func (s *ChainStore) All() []PropertyChain { return s.chains }

// ByInferredType returns the chains licensing the given role.
func (s *ChainStore) ByInferredType(t ConceptID) []PropertyChain { return s.byInferred[t] }

// DestinationTypes returns the distinct chain destination types, sorted.
func (s *ChainStore) DestinationTypes() []ConceptID { return s.destinationTypes }

// IsDestinationType reports whether t is the destination type of some chain.
func (s *ChainStore) IsDestinationType(t ConceptID) bool {
	i := sort.Search(len(s.destinationTypes), func(i int) bool { return s.destinationTypes[i] >= t })
	return i < len(s.destinationTypes) && s.destinationTypes[i] == t
}
