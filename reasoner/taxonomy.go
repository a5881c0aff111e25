package reasoner

import (
	"errors"
	"fmt"
	"sort"
)

// ErrHierarchyCycle is returned when the inferred is-a edges do not form a DAG.
var ErrHierarchyCycle = errors.New("is-a hierarchy contains a cycle")

// Taxonomy is the immutable inferred hierarchy of one classification run:
// direct parents, the ancestor closure, exhaustive concepts, property chains
// and a breadth-first iteration order in which every concept appears after
// all of its ancestors.
type Taxonomy struct {
	parents    map[ConceptID][]ConceptID
	children   map[ConceptID][]ConceptID
	ancestors  map[ConceptID]map[ConceptID]struct{}
	depth      map[ConceptID]int
	layers     [][]ConceptID
	order      []ConceptID
	exhaustive map[ConceptID]struct{}
	chains     *ChainStore
}

// IterationOrder returns concept ids layer by layer, each layer followed by DepthChange.
func (t *Taxonomy) IterationOrder() []ConceptID { return t.order }

// Layers returns the BFS layers; layer 0 holds the roots.
func (t *Taxonomy) Layers() [][]ConceptID { return t.layers }

func (t *Taxonomy) ConceptCount() int { return len(t.depth) }

func (t *Taxonomy) Contains(id ConceptID) bool {
	_, ok := t.depth[id]
	return ok
}

// Depth returns the layer index of a concept, or -1 if it is unknown.
func (t *Taxonomy) Depth(id ConceptID) int {
	if d, ok := t.depth[id]; ok {
		return d
	}
	return -1
}

// Parents returns the direct (non-redundant) supertypes of a concept.
func (t *Taxonomy) Parents(id ConceptID) []ConceptID { return t.parents[id] }

// Children returns the direct subtypes of a concept.
func (t *Taxonomy) Children(id ConceptID) []ConceptID { return t.children[id] }

// Ancestors returns every proper ancestor of a concept, sorted.
func (t *Taxonomy) Ancestors(id ConceptID) []ConceptID {
	set := t.ancestors[id]
	out := make([]ConceptID, 0, len(set))
	for a := range set {
		out = append(out, a)
	}
	sortIDs(out)
	return out
}

// IsAncestor reports whether ancestor is a proper ancestor of id.
func (t *Taxonomy) IsAncestor(ancestor, id ConceptID) bool {
	_, ok := t.ancestors[id][ancestor]
	return ok
}

// IsSameOrDescendant reports whether id == other or other is an ancestor of id.
func (t *Taxonomy) IsSameOrDescendant(id, other ConceptID) bool {
	return id == other || t.IsAncestor(other, id)
}

// HasCommonExhaustiveAncestor reports whether a and b share a proper ancestor
// that is exhaustive.
func (t *Taxonomy) HasCommonExhaustiveAncestor(a, b ConceptID) bool {
	small, large := t.ancestors[a], t.ancestors[b]
	if len(small) > len(large) {
		small, large = large, small
	}
	for x := range small {
		if _, ok := large[x]; !ok {
			continue
		}
		if t.IsExhaustive(x) {
			return true
		}
	}
	return false
}

func (t *Taxonomy) IsExhaustive(id ConceptID) bool {
	_, ok := t.exhaustive[id]
	return ok
}

func (t *Taxonomy) PropertyChains() *ChainStore { return t.chains }

// TaxonomyBuilder collects classifier output and freezes it into a Taxonomy.
// Is-a edges may be redundant (any inferred supertype, not only direct ones).
type TaxonomyBuilder struct {
	concepts   map[ConceptID]struct{}
	supers     map[ConceptID]map[ConceptID]struct{}
	exhaustive map[ConceptID]struct{}
	chains     []PropertyChain
}

func NewTaxonomyBuilder() *TaxonomyBuilder {
	return &TaxonomyBuilder{
		concepts:   make(map[ConceptID]struct{}, 1024),
		supers:     make(map[ConceptID]map[ConceptID]struct{}, 1024),
		exhaustive: make(map[ConceptID]struct{}),
	}
}

func (b *TaxonomyBuilder) AddConcept(id ConceptID) *TaxonomyBuilder {
	b.concepts[id] = struct{}{}
	return b
}

// AddIsA records that parent is an inferred supertype of child.
func (b *TaxonomyBuilder) AddIsA(child, parent ConceptID) *TaxonomyBuilder {
	b.AddConcept(child)
	b.AddConcept(parent)
	if b.supers[child] == nil {
		b.supers[child] = make(map[ConceptID]struct{}, 2)
	}
	b.supers[child][parent] = struct{}{}
	return b
}

func (b *TaxonomyBuilder) SetExhaustive(id ConceptID) *TaxonomyBuilder {
	b.AddConcept(id)
	b.exhaustive[id] = struct{}{}
	return b
}

func (b *TaxonomyBuilder) AddPropertyChain(c PropertyChain) *TaxonomyBuilder {
	b.chains = append(b.chains, c)
	return b
}

// Build computes the ancestor closure, reduces the is-a edges to direct
// parents and lays the concepts out in BFS layers.
func (b *TaxonomyBuilder) Build() (*Taxonomy, error) {
	topo, depth, err := b.topologicalOrder()
	if err != nil {
		return nil, err
	}

	t := &Taxonomy{
		parents:    make(map[ConceptID][]ConceptID, len(b.concepts)),
		children:   make(map[ConceptID][]ConceptID, len(b.concepts)),
		ancestors:  make(map[ConceptID]map[ConceptID]struct{}, len(b.concepts)),
		depth:      depth,
		exhaustive: make(map[ConceptID]struct{}, len(b.exhaustive)),
		chains:     newChainStore(b.chains),
	}
	for id := range b.exhaustive {
		t.exhaustive[id] = struct{}{}
	}

	// Ancestors of every supertype are final before the concept is visited.
	for _, c := range topo {
		supers := b.supers[c]
		anc := make(map[ConceptID]struct{}, len(supers)*4)
		for s := range supers {
			anc[s] = struct{}{}
			for a := range t.ancestors[s] {
				anc[a] = struct{}{}
			}
		}
		t.ancestors[c] = anc
	}

	// Transitive reduction: S is a direct parent of C iff no other supertype
	// of C has S among its ancestors.
	for _, c := range topo {
		supers := b.supers[c]
		direct := make([]ConceptID, 0, len(supers))
		for s := range supers {
			isDirect := true
			for o := range supers {
				if o == s {
					continue
				}
				if _, ok := t.ancestors[o][s]; ok {
					isDirect = false
					break
				}
			}
			if isDirect {
				direct = append(direct, s)
			}
		}
		sortIDs(direct)
		t.parents[c] = direct
		for _, p := range direct {
			t.children[p] = append(t.children[p], c)
		}
	}
	for p := range t.children {
		sortIDs(t.children[p])
	}

	maxDepth := -1
	for _, d := range depth {
		if d > maxDepth {
			maxDepth = d
		}
	}
	t.layers = make([][]ConceptID, maxDepth+1)
	for c, d := range depth {
		t.layers[d] = append(t.layers[d], c)
	}
	t.order = make([]ConceptID, 0, len(depth)+len(t.layers))
	for _, layer := range t.layers {
		sortIDs(layer)
		t.order = append(t.order, layer...)
		t.order = append(t.order, DepthChange)
	}

	return t, nil
}

// topologicalOrder orders concepts supertypes-first (Kahn) and assigns each
// one its depth, 1 + the maximum depth of its supertypes.
func (b *TaxonomyBuilder) topologicalOrder() ([]ConceptID, map[ConceptID]int, error) {
	pending := make(map[ConceptID]int, len(b.concepts))
	subs := make(map[ConceptID][]ConceptID, len(b.concepts))
	for c := range b.concepts {
		if c == DepthChange {
			return nil, nil, fmt.Errorf("concept id %d is reserved", c)
		}
		pending[c] = len(b.supers[c])
		for s := range b.supers[c] {
			subs[s] = append(subs[s], c)
		}
	}

	queue := make([]ConceptID, 0, len(b.concepts))
	for c, n := range pending {
		if n == 0 {
			queue = append(queue, c)
		}
	}
	sortIDs(queue)

	depth := make(map[ConceptID]int, len(b.concepts))
	topo := make([]ConceptID, 0, len(b.concepts))
	for len(queue) > 0 {
		c := queue[0]
		queue = queue[1:]
		topo = append(topo, c)

		d := 0
		for s := range b.supers[c] {
			if depth[s]+1 > d {
				d = depth[s] + 1
			}
		}
		depth[c] = d

		for _, sub := range subs[c] {
			pending[sub]--
			if pending[sub] == 0 {
				queue = append(queue, sub)
			}
		}
	}

	if len(topo) != len(b.concepts) {
		stuck := make([]ConceptID, 0, len(b.concepts)-len(topo))
		for c, n := range pending {
			if n > 0 {
				stuck = append(stuck, c)
			}
		}
		sortIDs(stuck)
		return nil, nil, fmt.Errorf("%w: %d concepts unresolved, first %d", ErrHierarchyCycle, len(stuck), stuck[0])
	}
	return topo, depth, nil
}

func sortIDs(ids []ConceptID) {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
}
