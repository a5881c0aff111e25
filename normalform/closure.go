package normalform

import (
	"fmt"
	"sync"

	"github.com/nodeadmin/snomed-dnf/reasoner"
)

// DestinationClosureGraph records "value -> immediate super-value" edges for
// one property chain destination type. It only ever holds edges seen during
// the current pass.
type DestinationClosureGraph struct {
	mu    sync.RWMutex
	edges map[reasoner.ConceptID][]reasoner.ConceptID
}

func NewDestinationClosureGraph() *DestinationClosureGraph {
	return &DestinationClosureGraph{edges: make(map[reasoner.ConceptID][]reasoner.ConceptID)}
}

// AddEdge records that to is an immediate super-value of from. Duplicate
// edges are ignored; an edge that would close a cycle is rejected.
func (g *DestinationClosureGraph) AddEdge(from, to reasoner.ConceptID) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	for _, existing := range g.edges[from] {
		if existing == to {
			return nil
		}
	}
	if from == to || g.reachesLocked(to, from) {
		return fmt.Errorf("%w: %d -> %d", ErrClosureCycle, from, to)
	}
	g.edges[from] = append(g.edges[from], to)
	return nil
}

// AncestorsOf returns every value reachable from value over recorded edges,
// value itself excluded. Unknown values yield an empty set.
func (g *DestinationClosureGraph) AncestorsOf(value reasoner.ConceptID) map[reasoner.ConceptID]struct{} {
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := make(map[reasoner.ConceptID]struct{})
	stack := append([]reasoner.ConceptID(nil), g.edges[value]...)
	for len(stack) > 0 {
		n := len(stack) - 1
		v := stack[n]
		stack = stack[:n]
		if _, seen := out[v]; seen {
			continue
		}
		out[v] = struct{}{}
		stack = append(stack, g.edges[v]...)
	}
	return out
}

// EdgeCount returns the number of recorded edges.
func (g *DestinationClosureGraph) EdgeCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	n := 0
	for _, to := range g.edges {
		n += len(to)
	}
	return n
}

func (g *DestinationClosureGraph) reachesLocked(from, target reasoner.ConceptID) bool {
	visited := make(map[reasoner.ConceptID]struct{})
	stack := []reasoner.ConceptID{from}
	for len(stack) > 0 {
		n := len(stack) - 1
		v := stack[n]
		stack = stack[:n]
		if v == target {
			return true
		}
		if _, seen := visited[v]; seen {
			continue
		}
		visited[v] = struct{}{}
		stack = append(stack, g.edges[v]...)
	}
	return false
}
