// Package normalform turns the raw stated and previously inferred facts of a
// classified taxonomy into distribution normal form: for every concept, the
// minimal set of facts such that no fact is redundant given another fact of
// the same set plus everything inherited from its ancestors.
//
// Facts are compared through the Property contract. Relationship, Value and
// UnionGroup implement it; a property P is redundant when another property Q
// of the working set satisfies Q.IsSameOrStrongerThan(P).
//
// A Generator walks the taxonomy's iteration order layer by layer, asking a
// ComponentSource for the existing and generated components of each concept
// and handing both to a ChangeProcessor. Sources cache generated sets so that
// children only look at their direct parents; the traversal order guarantees
// that a parent's entry is written before any child reads it.
//
// Nothing in this package is safe for reuse across passes. Create a new
// generator (and its Semantics) for every taxonomy snapshot.
package normalform
