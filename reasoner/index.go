package reasoner

import "strconv"

// ConceptID is a dense surrogate for a terminology component id. Roles are
// concepts too, so attribute types share the same id space.
type ConceptID int64

// DepthChange separates BFS layers in a taxonomy's iteration order.
const DepthChange ConceptID = -1

// IsA is the surrogate of the IS_A attribute; every symbol table reserves it.
const IsA ConceptID = 0

// IsAName is the SNOMED CT identifier of the IS_A attribute.
const IsAName = "116680003"

// SymbolTable maps component ids (large decimal strings) to dense surrogates.
// Surrogates are only meaningful within the snapshot that produced them.
type SymbolTable struct {
	toID   map[string]ConceptID
	toName []string
}

func NewSymbolTable() *SymbolTable {
	st := &SymbolTable{
		toID:   make(map[string]ConceptID, 4096),
		toName: make([]string, 1, 4096),
	}
	st.toName[IsA] = IsAName
	st.toID[IsAName] = IsA
	return st
}

// Intern returns the surrogate for the given component id, creating one if needed.
func (st *SymbolTable) Intern(name string) ConceptID {
	if id, ok := st.toID[name]; ok {
		return id
	}
	id := ConceptID(len(st.toName))
	st.toID[name] = id
	st.toName = append(st.toName, name)
	return id
}

// Lookup returns the surrogate for name without creating one.
func (st *SymbolTable) Lookup(name string) (ConceptID, bool) {
	id, ok := st.toID[name]
	return id, ok
}

func (st *SymbolTable) Len() int { return len(st.toName) }

// Name returns the component id for a surrogate, or the decimal surrogate
// itself when it was never interned.
func (st *SymbolTable) Name(id ConceptID) string {
	if id >= 0 && int(id) < len(st.toName) {
		return st.toName[id]
	}
	return strconv.FormatInt(int64(id), 10)
}
