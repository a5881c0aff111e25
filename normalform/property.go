package normalform

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
)

// Property is a fact that can be compared for relative expressiveness.
// The variant set is closed: *Relationship, *Value and *UnionGroup.
type Property interface {
	// IsSameOrStrongerThan reports whether keeping this property instead of
	// other loses no information. Comparing different variants is false.
	IsSameOrStrongerThan(other Property) bool
	// Equal reports structural equality. Group numbers and statement ids
	// are not part of a property's identity.
	Equal(other Property) bool
	Hash() uint64
	String() string

	property()
}

// Disjoint returns the subset of props that no other member makes redundant.
// Among structurally equal members the first one survives. The relative
// order of survivors is kept.
func Disjoint[T Property](props []T) []T {
	out := make([]T, 0, len(props))
	for i, p := range props {
		redundant := false
		for j, q := range props {
			if i == j {
				continue
			}
			if q.Equal(p) {
				if j < i {
					redundant = true
					break
				}
				continue
			}
			if q.IsSameOrStrongerThan(p) {
				redundant = true
				break
			}
		}
		if !redundant {
			out = append(out, p)
		}
	}
	return out
}

// hasher accumulates fixed-width fields into an xxhash digest.
type hasher struct {
	d   *xxhash.Digest
	buf [8]byte
}

func newHasher(kind byte) *hasher {
	h := &hasher{d: xxhash.New()}
	h.d.Write([]byte{kind})
	return h
}

func (h *hasher) int(v int64) *hasher {
	binary.LittleEndian.PutUint64(h.buf[:], uint64(v))
	h.d.Write(h.buf[:])
	return h
}

func (h *hasher) bool(v bool) *hasher {
	if v {
		h.d.Write([]byte{1})
	} else {
		h.d.Write([]byte{0})
	}
	return h
}

func (h *hasher) string(s string) *hasher {
	h.int(int64(len(s)))
	h.d.WriteString(s)
	return h
}

func (h *hasher) sum() uint64 { return h.d.Sum64() }

const (
	kindRelationship byte = iota + 1
	kindValue
	kindUnionGroup
	kindGroup
)
