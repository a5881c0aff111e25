package normalform

import (
	"fmt"
	"sync"

	"github.com/nodeadmin/snomed-dnf/reasoner"
)

// RetentionPolicy decides how long a concept's generated set stays cached.
type RetentionPolicy int

const (
	// RetainAll keeps every entry for the whole pass.
	RetainAll RetentionPolicy = iota
	// RetainTwoLayers drops a layer's entries once two more layers have
	// started. A child whose parent lies further back fails with
	// ErrParentNotGenerated.
	RetainTwoLayers
	// RetainUntilChildrenDone drops an entry as soon as every direct child
	// of the concept has read it.
	RetainUntilChildrenDone
)

func (p RetentionPolicy) String() string {
	switch p {
	case RetainAll:
		return "all"
	case RetainTwoLayers:
		return "two-layers"
	case RetainUntilChildrenDone:
		return "until-children-done"
	default:
		return fmt.Sprintf("RetentionPolicy(%d)", int(p))
	}
}

// ParseRetentionPolicy accepts the names printed by RetentionPolicy.String.
func ParseRetentionPolicy(s string) (RetentionPolicy, error) {
	switch s {
	case "all":
		return RetainAll, nil
	case "two-layers":
		return RetainTwoLayers, nil
	case "until-children-done":
		return RetainUntilChildrenDone, nil
	default:
		return 0, fmt.Errorf("unknown retention policy %q", s)
	}
}

// Cache maps concept ids to generated sets for the pass in progress.
// Concepts of one layer may be written concurrently.
type Cache[T any] struct {
	mu        sync.Mutex
	policy    RetentionPolicy
	taxonomy  *reasoner.Taxonomy
	entries   map[reasoner.ConceptID][]T
	remaining map[reasoner.ConceptID]int
	reads     int
	writes    int
}

func NewCache[T any](t *reasoner.Taxonomy, policy RetentionPolicy) *Cache[T] {
	return &Cache[T]{
		policy:    policy,
		taxonomy:  t,
		entries:   make(map[reasoner.ConceptID][]T),
		remaining: make(map[reasoner.ConceptID]int),
	}
}

func (c *Cache[T]) Policy() RetentionPolicy { return c.policy }

// Put stores the generated set of a concept.
func (c *Cache[T]) Put(id reasoner.ConceptID, set []T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writes++
	if c.policy == RetainUntilChildrenDone {
		n := len(c.taxonomy.Children(id))
		if n == 0 {
			return
		}
		c.remaining[id] = n
	}
	c.entries[id] = set
}

// Parents returns the cached sets of every direct parent of child. Under
// RetainUntilChildrenDone the read counts as child's only read.
func (c *Cache[T]) Parents(child reasoner.ConceptID) ([][]T, error) {
	parents := c.taxonomy.Parents(child)
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([][]T, 0, len(parents))
	for _, p := range parents {
		set, ok := c.entries[p]
		if !ok {
			return nil, fmt.Errorf("concept %d: parent %d: %w", child, p, ErrParentNotGenerated)
		}
		out = append(out, set)
	}
	c.reads += len(parents)
	if c.policy == RetainUntilChildrenDone {
		for _, p := range parents {
			c.remaining[p]--
			if c.remaining[p] <= 0 {
				delete(c.remaining, p)
				delete(c.entries, p)
			}
		}
	}
	return out, nil
}

// Get returns the cached set of a concept.
func (c *Cache[T]) Get(id reasoner.ConceptID) ([]T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	set, ok := c.entries[id]
	return set, ok
}

// Invalidate drops the given entries under RetainTwoLayers. Other policies
// ignore it.
func (c *Cache[T]) Invalidate(ids []reasoner.ConceptID) {
	if c.policy != RetainTwoLayers {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range ids {
		delete(c.entries, id)
	}
}

// Len returns the number of live entries.
func (c *Cache[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Stats returns the number of parent reads and writes so far.
func (c *Cache[T]) Stats() (reads, writes int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reads, c.writes
}
