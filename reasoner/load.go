package reasoner

import (
	"fmt"

	"github.com/nodeadmin/snomed-dnf/ontology"
)

// Snapshot is everything one normal form pass reads: the interned ids, the
// taxonomy builder (not yet frozen) and the per-concept facts.
type Snapshot struct {
	Symbols    *SymbolTable
	Builder    *TaxonomyBuilder
	Statements *Statements
}

// FromOntology interns every id of a parsed snapshot and indexes its facts.
// Obsolete terms are skipped, and so are facts pointing at them.
func FromOntology(ont *ontology.Ontology) (*Snapshot, error) {
	st := NewSymbolTable()
	b := NewTaxonomyBuilder()
	stmts := NewStatements()

	obsolete := make(map[string]struct{})
	for i := range ont.Terms {
		if ont.Terms[i].IsObsolete {
			obsolete[ont.Terms[i].ID] = struct{}{}
		}
	}

	// First pass: register all concept and attribute ids.
	for i := range ont.TypeDefs {
		td := &ont.TypeDefs[i]
		if td.ID == "" {
			return nil, fmt.Errorf("typedef #%d has no id", i)
		}
		b.AddConcept(st.Intern(td.ID))
	}
	for i := range ont.Terms {
		t := &ont.Terms[i]
		if t.IsObsolete {
			continue
		}
		if t.ID == "" {
			return nil, fmt.Errorf("term #%d has no id", i)
		}
		b.AddConcept(st.Intern(t.ID))
	}

	// Second pass: hierarchy, chains and facts.
	for i := range ont.TypeDefs {
		td := &ont.TypeDefs[i]
		rid := st.Intern(td.ID)
		for _, sup := range td.IsA {
			b.AddIsA(rid, st.Intern(sup))
		}
		for _, link := range td.HoldsOverChain {
			b.AddPropertyChain(PropertyChain{
				SourceType:      st.Intern(link.Source),
				DestinationType: st.Intern(link.Destination),
				InferredType:    rid,
			})
		}
	}

	for i := range ont.Terms {
		t := &ont.Terms[i]
		if t.IsObsolete {
			continue
		}
		cid := st.Intern(t.ID)
		if t.IsExhaustive {
			b.SetExhaustive(cid)
		}
		for _, sup := range t.IsA {
			if _, gone := obsolete[sup]; gone {
				continue
			}
			b.AddIsA(cid, st.Intern(sup))
		}

		for _, rel := range t.Relationships {
			if _, gone := obsolete[rel.TargetID]; gone {
				continue
			}
			f := StatementFragment{
				TypeID:             st.Intern(rel.Type),
				DestinationID:      st.Intern(rel.TargetID),
				DestinationNegated: rel.Negated,
				Universal:          rel.Universal,
				Group:              rel.Group,
				UnionGroup:         rel.UnionGroup,
				StatementID:        rel.StatementID,
				Released:           rel.Released,
			}
			b.AddConcept(f.TypeID)
			b.AddConcept(f.DestinationID)
			if rel.Characteristic == ontology.Inferred {
				stmts.AddInferred(cid, f)
			} else {
				stmts.AddStated(cid, f)
			}
		}

		for _, pv := range t.PropertyValues {
			f := ConcreteDomainFragment{
				TypeID:      st.Intern(pv.Type),
				Value:       pv.Value,
				DataType:    pv.DataType,
				Group:       pv.Group,
				StatementID: pv.StatementID,
				Released:    pv.Released,
			}
			b.AddConcept(f.TypeID)
			switch {
			case pv.Statement != 0 && pv.Characteristic == ontology.Inferred:
				stmts.AddInferredMember(pv.Statement, f)
			case pv.Statement != 0:
				stmts.AddStatedMember(pv.Statement, f)
			case pv.Characteristic == ontology.Inferred:
				stmts.AddInferredValue(cid, f)
			default:
				stmts.AddStatedValue(cid, f)
			}
		}
	}

	return &Snapshot{Symbols: st, Builder: b, Statements: stmts}, nil
}
