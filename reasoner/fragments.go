package reasoner

// StatementFragment is a relationship as the classifier emits it, before any
// redundancy removal.
type StatementFragment struct {
	TypeID             ConceptID `json:"type_id"`
	DestinationID      ConceptID `json:"destination_id"`
	DestinationNegated bool      `json:"destination_negated,omitempty"`
	Universal          bool      `json:"universal,omitempty"`
	Group              int       `json:"group"`
	UnionGroup         int       `json:"union_group"`
	StatementID        int64     `json:"statement_id,omitempty"`
	Released           bool      `json:"released,omitempty"`
}

// ConcreteDomainFragment is a literal-valued attribute of a concept.
type ConcreteDomainFragment struct {
	TypeID      ConceptID `json:"type_id"`
	Value       string    `json:"value"`
	DataType    string    `json:"data_type"`
	Group       int       `json:"group"`
	StatementID int64     `json:"statement_id,omitempty"`
	Released    bool      `json:"released,omitempty"`
}

// Statements indexes the stated and previously inferred facts of every concept.
// It is filled once while loading a snapshot and read-only afterwards.
type Statements struct {
	stated         map[ConceptID][]StatementFragment
	inferred       map[ConceptID][]StatementFragment
	statedValues   map[ConceptID][]ConcreteDomainFragment
	inferredValues map[ConceptID][]ConcreteDomainFragment

	// values attached to a relationship, keyed by its statement id
	statedMembers   map[int64][]ConcreteDomainFragment
	inferredMembers map[int64][]ConcreteDomainFragment
}

func NewStatements() *Statements {
	return &Statements{
		stated:         make(map[ConceptID][]StatementFragment),
		inferred:       make(map[ConceptID][]StatementFragment),
		statedValues:   make(map[ConceptID][]ConcreteDomainFragment),
		inferredValues: make(map[ConceptID][]ConcreteDomainFragment),

		statedMembers:   make(map[int64][]ConcreteDomainFragment),
		inferredMembers: make(map[int64][]ConcreteDomainFragment),
	}
}

func (s *Statements) AddStated(conceptID ConceptID, f StatementFragment) {
	s.stated[conceptID] = append(s.stated[conceptID], f)
}

func (s *Statements) AddInferred(conceptID ConceptID, f StatementFragment) {
	s.inferred[conceptID] = append(s.inferred[conceptID], f)
}

func (s *Statements) AddStatedValue(conceptID ConceptID, f ConcreteDomainFragment) {
	s.statedValues[conceptID] = append(s.statedValues[conceptID], f)
}

func (s *Statements) AddInferredValue(conceptID ConceptID, f ConcreteDomainFragment) {
	s.inferredValues[conceptID] = append(s.inferredValues[conceptID], f)
}

// AddStatedMember attaches a stated value to the relationship statement with
// the given id.
func (s *Statements) AddStatedMember(statementID int64, f ConcreteDomainFragment) {
	s.statedMembers[statementID] = append(s.statedMembers[statementID], f)
}

// AddInferredMember attaches a previously inferred value to the relationship
// statement with the given id.
func (s *Statements) AddInferredMember(statementID int64, f ConcreteDomainFragment) {
	s.inferredMembers[statementID] = append(s.inferredMembers[statementID], f)
}

// StatedMembers returns the stated values attached to a relationship statement.
// Statement id 0 never has members.
func (s *Statements) StatedMembers(statementID int64) []ConcreteDomainFragment {
	if statementID == 0 {
		return nil
	}
	return s.statedMembers[statementID]
}

func (s *Statements) InferredMembers(statementID int64) []ConcreteDomainFragment {
	if statementID == 0 {
		return nil
	}
	return s.inferredMembers[statementID]
}

// Stated returns the stated relationships of a concept, IS-A included.
func (s *Statements) Stated(conceptID ConceptID) []StatementFragment { return s.stated[conceptID] }

// StatedNonIsA returns the stated relationships of a concept other than IS-A.
func (s *Statements) StatedNonIsA(conceptID ConceptID) []StatementFragment {
	return withoutIsA(s.stated[conceptID])
}

// Inferred returns the previously inferred relationships of a concept.
func (s *Statements) Inferred(conceptID ConceptID) []StatementFragment { return s.inferred[conceptID] }

// InferredNonIsA returns the previously inferred relationships other than IS-A.
func (s *Statements) InferredNonIsA(conceptID ConceptID) []StatementFragment {
	return withoutIsA(s.inferred[conceptID])
}

func (s *Statements) StatedValues(conceptID ConceptID) []ConcreteDomainFragment {
	return s.statedValues[conceptID]
}

func (s *Statements) InferredValues(conceptID ConceptID) []ConcreteDomainFragment {
	return s.inferredValues[conceptID]
}

// EachStated calls fn for every stated relationship of every concept, in
// ascending concept id order.
func (s *Statements) EachStated(fn func(conceptID ConceptID, f StatementFragment)) {
	ids := make([]ConceptID, 0, len(s.stated))
	for c := range s.stated {
		ids = append(ids, c)
	}
	sortIDs(ids)
	for _, c := range ids {
		for _, f := range s.stated[c] {
			fn(c, f)
		}
	}
}

func withoutIsA(fragments []StatementFragment) []StatementFragment {
	out := make([]StatementFragment, 0, len(fragments))
	for _, f := range fragments {
		if f.TypeID != IsA {
			out = append(out, f)
		}
	}
	return out
}
