package ontology

// Ontology is a classified terminology snapshot: the inferred hierarchy plus
// the stated and previously inferred facts of every concept.
type Ontology struct {
	FormatVersion string    `json:"format_version,omitempty"`
	DataVersion   string    `json:"data_version,omitempty"`
	Ontology      string    `json:"ontology,omitempty"`
	Terms         []Term    `json:"terms"`
	TypeDefs      []TypeDef `json:"typedefs,omitempty"`
}

// TypeDef represents an attribute (role) stanza. Attributes are concepts too;
// their is_a lines place them in the attribute hierarchy.
type TypeDef struct {
	ID             string      `json:"id"`
	Name           string      `json:"name,omitempty"`
	IsA            []string    `json:"is_a,omitempty"`
	HoldsOverChain []ChainLink `json:"holds_over_chain,omitempty"`
}

// ChainLink is one holds_over_chain line of a TypeDef T:
// Source ∘ Destination ⊑ T.
type ChainLink struct {
	Source      string `json:"source"`
	Destination string `json:"destination"`
}

// Term represents a single concept.
type Term struct {
	ID             string          `json:"id"`
	Name           string          `json:"name,omitempty"`
	IsObsolete     bool            `json:"is_obsolete,omitempty"`
	IsExhaustive   bool            `json:"is_exhaustive,omitempty"`
	IsA            []string        `json:"is_a,omitempty"`
	Relationships  []Relationship  `json:"relationships,omitempty"`
	PropertyValues []PropertyValue `json:"property_values,omitempty"`
}

// Characteristic tells stated facts from previously inferred ones.
type Characteristic string

const (
	Stated   Characteristic = "stated"
	Inferred Characteristic = "inferred"
)

// Relationship represents a typed relationship to another term.
type Relationship struct {
	Type           string         `json:"type"`
	TargetID       string         `json:"target_id"`
	Group          int            `json:"group,omitempty"`
	UnionGroup     int            `json:"union_group,omitempty"`
	Universal      bool           `json:"universal,omitempty"`
	Negated        bool           `json:"negated,omitempty"`
	Characteristic Characteristic `json:"characteristic"`
	StatementID    int64          `json:"statement_id,omitempty"`
	Released       bool           `json:"released,omitempty"`
}

// PropertyValue represents a concrete domain attribute with a literal value.
// A non-zero Statement attaches it to the relationship with that statement
// id instead of the term itself.
type PropertyValue struct {
	Type           string         `json:"type"`
	Value          string         `json:"value"`
	DataType       string         `json:"data_type"`
	Group          int            `json:"group,omitempty"`
	Statement      int64          `json:"statement,omitempty"`
	Characteristic Characteristic `json:"characteristic"`
	StatementID    int64          `json:"statement_id,omitempty"`
	Released       bool           `json:"released,omitempty"`
}
