package normalform

import (
	"context"
	"slices"
	"sync"

	"github.com/nodeadmin/snomed-dnf/reasoner"
)

// Replacement pairs a removed component with the generated component that
// makes it redundant.
type Replacement[T any] struct {
	Removed T
	By      T
}

// ConceptChanges is the difference between a concept's existing and
// generated components.
type ConceptChanges[T any] struct {
	ConceptID    reasoner.ConceptID
	Added        []T
	Removed      []T
	Replacements []Replacement[T]
}

// ChangeStats counts what a ChangeCollector reported.
type ChangeStats struct {
	Concepts int
	Changed  int
	Added    int
	Removed  int
	Replaced int
}

// ChangeCollector is an in-process ChangeProcessor. It matches existing and
// generated components by ordering equality and emits every concept with at
// least one change to Sink.
type ChangeCollector[T Property] struct {
	// Name labels metrics.
	Name string
	// Reduce drops generated components made redundant by another
	// generated component before matching.
	Reduce  bool
	Sink    func(ConceptChanges[T]) error
	Metrics *Metrics

	mu    sync.Mutex
	stats ChangeStats
}

func (c *ChangeCollector[T]) Stats() ChangeStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

func (c *ChangeCollector[T]) Apply(ctx context.Context, conceptID reasoner.ConceptID, existing, generated []T, ordering Ordering[T]) error {
	survivors := generated
	if c.Reduce {
		survivors = Disjoint(generated)
	}
	gen := slices.Clone(survivors)
	slices.SortStableFunc(gen, ordering)
	old := slices.Clone(existing)
	slices.SortStableFunc(old, ordering)

	ch := ConceptChanges[T]{ConceptID: conceptID}
	i, j := 0, 0
	for i < len(old) || j < len(gen) {
		switch {
		case i == len(old):
			ch.Added = append(ch.Added, gen[j])
			j++
		case j == len(gen):
			ch.Removed = append(ch.Removed, old[i])
			i++
		default:
			switch d := ordering(old[i], gen[j]); {
			case d == 0:
				i++
				j++
			case d < 0:
				ch.Removed = append(ch.Removed, old[i])
				i++
			default:
				ch.Added = append(ch.Added, gen[j])
				j++
			}
		}
	}

	for _, r := range ch.Removed {
		// gen is sorted, so the first match is the minimum.
		for _, s := range gen {
			if s.IsSameOrStrongerThan(r) {
				ch.Replacements = append(ch.Replacements, Replacement[T]{Removed: r, By: s})
				break
			}
		}
	}

	c.mu.Lock()
	c.stats.Concepts++
	if len(ch.Added)+len(ch.Removed) > 0 {
		c.stats.Changed++
	}
	c.stats.Added += len(ch.Added)
	c.stats.Removed += len(ch.Removed)
	c.stats.Replaced += len(ch.Replacements)
	c.mu.Unlock()
	c.Metrics.changesReported(c.Name, len(ch.Added), len(ch.Removed))

	if len(ch.Added)+len(ch.Removed) == 0 || c.Sink == nil {
		return nil
	}
	return c.Sink(ch)
}
