package reasoner

import (
	"encoding/json"
	"io"
	"time"
)

// ClassifiedConcept represents a concept in the classified hierarchy.
type ClassifiedConcept struct {
	ID             string   `json:"id"`
	Depth          int      `json:"depth"`
	Exhaustive     bool     `json:"exhaustive,omitempty"`
	DirectParents  []string `json:"direct_parents"`
	DirectChildren []string `json:"direct_children,omitempty"`
}

// ClassificationStats holds timing and size metrics.
type ClassificationStats struct {
	ConceptCount       int   `json:"concept_count"`
	LayerCount         int   `json:"layer_count"`
	ExhaustiveCount    int   `json:"exhaustive_count"`
	PropertyChainCount int   `json:"property_chain_count"`
	AncestorEdges      int   `json:"ancestor_edges"`
	ParseTimeMs        int64 `json:"parse_time_ms"`
	BuildTimeMs        int64 `json:"build_time_ms"`
}

// ClassifiedHierarchy is the top-level JSON summary of a taxonomy.
type ClassifiedHierarchy struct {
	Concepts []ClassifiedConcept `json:"concepts"`
	Stats    ClassificationStats `json:"stats"`
}

// Summary converts the taxonomy to a ClassifiedHierarchy in iteration order.
func (t *Taxonomy) Summary(st *SymbolTable, parseTime, buildTime time.Duration) *ClassifiedHierarchy {
	result := &ClassifiedHierarchy{
		Concepts: make([]ClassifiedConcept, 0, t.ConceptCount()),
		Stats: ClassificationStats{
			ConceptCount:       t.ConceptCount(),
			LayerCount:         len(t.layers),
			ExhaustiveCount:    len(t.exhaustive),
			PropertyChainCount: len(t.chains.All()),
			ParseTimeMs:        parseTime.Milliseconds(),
			BuildTimeMs:        buildTime.Milliseconds(),
		},
	}

	for _, c := range t.order {
		if c == DepthChange {
			continue
		}
		result.Stats.AncestorEdges += len(t.ancestors[c])

		cc := ClassifiedConcept{
			ID:            st.Name(c),
			Depth:         t.depth[c],
			Exhaustive:    t.IsExhaustive(c),
			DirectParents: make([]string, 0, len(t.parents[c])),
		}
		for _, p := range t.parents[c] {
			cc.DirectParents = append(cc.DirectParents, st.Name(p))
		}
		if children := t.children[c]; len(children) > 0 {
			cc.DirectChildren = make([]string, 0, len(children))
			for _, ch := range children {
				cc.DirectChildren = append(cc.DirectChildren, st.Name(ch))
			}
		}
		result.Concepts = append(result.Concepts, cc)
	}

	return result
}

// WriteClassifiedJSON writes the classified hierarchy as JSON.
func WriteClassifiedJSON(w io.Writer, hierarchy *ClassifiedHierarchy, pretty bool) error {
	enc := json.NewEncoder(w)
	if pretty {
		enc.SetIndent("", "  ")
	}
	enc.SetEscapeHTML(false)
	return enc.Encode(hierarchy)
}
