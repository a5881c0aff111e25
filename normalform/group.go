package normalform

import (
	"fmt"
	"slices"
	"strings"
)

// Group is a relationship group: a conjunction of union groups that must hold
// for the same individual. The ungrouped group (number 0) wraps one
// union group that belongs to no relationship group.
type Group struct {
	unionGroups []*UnionGroup
	number      int
	ungrouped   bool
}

func newGroup(unionGroups []*UnionGroup, ungrouped bool) *Group {
	return &Group{unionGroups: unionGroups, ungrouped: ungrouped}
}

func (g *Group) UnionGroups() []*UnionGroup { return g.unionGroups }

func (g *Group) Number() int { return g.number }

func (g *Group) IsUngrouped() bool { return g.ungrouped }

func (g *Group) setNumber(n int) {
	switch {
	case n <= 0:
		panic(fmt.Sprintf("normalform: group number must be positive, got %d", n))
	case g.ungrouped:
		panic("normalform: ungrouped relationships cannot be numbered")
	case g.number != 0:
		panic(fmt.Sprintf("normalform: group already numbered %d, cannot renumber to %d", g.number, n))
	}
	g.number = n
}

// IsSameOrStrongerThan holds when every union group of other is implied by
// some union group of g: g says at least as much about the same individual.
func (g *Group) IsSameOrStrongerThan(other *Group) bool {
	for _, ou := range other.unionGroups {
		implied := false
		for _, u := range g.unionGroups {
			if u.IsSameOrStrongerThan(ou) {
				implied = true
				break
			}
		}
		if !implied {
			return false
		}
	}
	return true
}

func (g *Group) Equal(other *Group) bool {
	if len(g.unionGroups) != len(other.unionGroups) {
		return false
	}
	return containsAllUnionGroups(g.unionGroups, other.unionGroups) &&
		containsAllUnionGroups(other.unionGroups, g.unionGroups)
}

func (g *Group) Hash() uint64 {
	hs := make([]uint64, len(g.unionGroups))
	for i, u := range g.unionGroups {
		hs[i] = u.Hash()
	}
	slices.Sort(hs)
	h := newHasher(kindGroup)
	for _, x := range hs {
		h.int(int64(x))
	}
	return h.sum()
}

func (g *Group) String() string {
	parts := make([]string, len(g.unionGroups))
	for i, u := range g.unionGroups {
		parts[i] = u.String()
	}
	return fmt.Sprintf("group %d [%s]", g.number, strings.Join(parts, ", "))
}

func (g *Group) findUnionGroup(u *UnionGroup) *UnionGroup {
	for _, x := range g.unionGroups {
		if x.Equal(u) {
			return x
		}
	}
	return nil
}

func containsAllUnionGroups(haystack, needles []*UnionGroup) bool {
	for _, n := range needles {
		found := false
		for _, h := range haystack {
			if h.Equal(n) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// GroupSet is a set of groups none of which is redundant given another.
type GroupSet struct {
	groups []*Group
}

func NewGroupSet() *GroupSet { return &GroupSet{} }

func (s *GroupSet) Groups() []*Group { return s.groups }

func (s *GroupSet) Len() int { return len(s.groups) }

// Add inserts g unless an existing group is same-or-stronger, and drops every
// existing group g makes redundant. It reports whether g was kept.
func (s *GroupSet) Add(g *Group) bool {
	for _, existing := range s.groups {
		if existing.IsSameOrStrongerThan(g) {
			return false
		}
	}
	s.groups = slices.DeleteFunc(s.groups, g.IsSameOrStrongerThan)
	s.groups = append(s.groups, g)
	return true
}

// AddAll adds every group and reports whether the set changed.
func (s *GroupSet) AddAll(groups []*Group) bool {
	changed := false
	for _, g := range groups {
		if s.Add(g) {
			changed = true
		}
	}
	return changed
}

// AddUnique inserts g without redundancy checks. Used for previously
// inferred groups, which are matched by equality only.
func (s *GroupSet) AddUnique(g *Group) {
	s.groups = append(s.groups, g)
}

func (s *GroupSet) find(g *Group) *Group {
	if s == nil {
		return nil
	}
	h := g.Hash()
	for _, x := range s.groups {
		if x.ungrouped == g.ungrouped && x.Hash() == h && x.Equal(g) {
			return x
		}
	}
	return nil
}

// AssignNumbers numbers every group and union group of s exactly once.
// A group equal to one of existing keeps that group's number, and its union
// groups keep the numbers of their equal counterparts. Everything else gets
// the lowest free positive number, so matched numbers never move and new
// groups fill the gaps below them. Ungrouped union groups share a single
// number space since they all land in group 0.
func (s *GroupSet) AssignNumbers(existing *GroupSet) {
	usedGroups := make(map[int]bool)
	ungroupedUnions := make(map[int]bool)
	type pending struct {
		g     *Group
		match *Group
	}
	var unnumbered []pending

	for _, g := range s.groups {
		m := existing.find(g)
		if g.ungrouped {
			assignUnionGroupNumbers(g, m, ungroupedUnions)
			continue
		}
		if m != nil && m.number > 0 && !usedGroups[m.number] {
			g.setNumber(m.number)
			usedGroups[m.number] = true
			assignUnionGroupNumbers(g, m, make(map[int]bool))
			continue
		}
		unnumbered = append(unnumbered, pending{g: g, match: m})
	}

	next := 1
	for _, p := range unnumbered {
		for usedGroups[next] {
			next++
		}
		p.g.setNumber(next)
		usedGroups[next] = true
		assignUnionGroupNumbers(p.g, p.match, make(map[int]bool))
	}
}

func assignUnionGroupNumbers(g, match *Group, used map[int]bool) {
	var rest []*UnionGroup
	for _, u := range g.unionGroups {
		if u.ungrouped {
			continue
		}
		if u.number > 0 {
			used[u.number] = true
			continue
		}
		if match != nil {
			if mu := match.findUnionGroup(u); mu != nil && mu.number > 0 && !used[mu.number] {
				u.SetNumber(mu.number)
				used[mu.number] = true
				continue
			}
		}
		rest = append(rest, u)
	}
	next := 1
	for _, u := range rest {
		for used[next] {
			next++
		}
		u.SetNumber(next)
		used[next] = true
	}
}
