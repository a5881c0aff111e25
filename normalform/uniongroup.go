package normalform

import (
	"fmt"
	"slices"
	"strings"
)

// UnionGroup is an unordered set of alternative properties read as a logical
// OR. Its number is assigned at most once, after construction.
type UnionGroup struct {
	properties []Property
	number     int
	ungrouped  bool
}

func (*UnionGroup) property() {}

// UnionGroupBuilder collects the members of a union group.
type UnionGroupBuilder struct {
	properties []Property
	number     int
}

func NewUnionGroupBuilder() *UnionGroupBuilder { return &UnionGroupBuilder{} }

func (b *UnionGroupBuilder) Add(p Property) *UnionGroupBuilder {
	b.properties = append(b.properties, p)
	return b
}

// Number presets the union group number, for groups read back from
// previously inferred facts.
func (b *UnionGroupBuilder) Number(n int) *UnionGroupBuilder {
	if n <= 0 {
		panic(fmt.Sprintf("normalform: union group number must be positive, got %d", n))
	}
	b.number = n
	return b
}

// Build freezes the collected members. A union group must have at least one member.
func (b *UnionGroupBuilder) Build() *UnionGroup {
	if len(b.properties) == 0 {
		panic("normalform: empty union group")
	}
	return &UnionGroup{properties: slices.Clone(b.properties), number: b.number}
}

// Ungrouped wraps a single property that belongs to no union group. Its
// number stays 0 for good.
func Ungrouped(p Property) *UnionGroup {
	return &UnionGroup{properties: []Property{p}, ungrouped: true}
}

func (u *UnionGroup) Properties() []Property { return u.properties }

func (u *UnionGroup) Len() int { return len(u.properties) }

// Number returns the assigned number, 0 when unassigned or ungrouped.
func (u *UnionGroup) Number() int { return u.number }

func (u *UnionGroup) IsUngrouped() bool { return u.ungrouped }

// SetNumber assigns the union group number. Assigning twice, assigning a
// non-positive number or numbering an ungrouped member panics.
func (u *UnionGroup) SetNumber(n int) {
	switch {
	case n <= 0:
		panic(fmt.Sprintf("normalform: union group number must be positive, got %d", n))
	case u.ungrouped:
		panic("normalform: ungrouped property cannot be numbered")
	case u.number != 0:
		panic(fmt.Sprintf("normalform: union group already numbered %d, cannot renumber to %d", u.number, n))
	}
	u.number = n
}

// IsSameOrStrongerThan holds when every member of u is same-or-stronger
// than some member of other.
func (u *UnionGroup) IsSameOrStrongerThan(other Property) bool {
	o, ok := other.(*UnionGroup)
	if !ok {
		return false
	}
	for _, p := range u.properties {
		covered := false
		for _, q := range o.properties {
			if p.IsSameOrStrongerThan(q) {
				covered = true
				break
			}
		}
		if !covered {
			return false
		}
	}
	return true
}

func (u *UnionGroup) Equal(other Property) bool {
	o, ok := other.(*UnionGroup)
	if !ok || len(u.properties) != len(o.properties) {
		return false
	}
	return containsAll(u.properties, o.properties) && containsAll(o.properties, u.properties)
}

// Hash is independent of member order.
func (u *UnionGroup) Hash() uint64 {
	hs := make([]uint64, len(u.properties))
	for i, p := range u.properties {
		hs[i] = p.Hash()
	}
	slices.Sort(hs)
	h := newHasher(kindUnionGroup)
	for _, x := range hs {
		h.int(int64(x))
	}
	return h.sum()
}

func (u *UnionGroup) String() string {
	parts := make([]string, len(u.properties))
	for i, p := range u.properties {
		parts[i] = p.String()
	}
	return fmt.Sprintf("#%d{%s}", u.number, strings.Join(parts, " | "))
}

func containsAll(haystack, needles []Property) bool {
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
