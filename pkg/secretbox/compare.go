package secretbox

import (
	"cmp"
	"hash/maphash"
)

// Reader is satisfied by containers in either state.
type Reader[T any] interface {
	Value() T
}

var (
	_ Reader[int] = (*Unlocked[int])(nil)
	_ Reader[int] = (*Locked[int])(nil)
)

// Equal reports whether a and b hold equal values.
func Equal[T comparable](a, b Reader[T]) bool {
	return a.Value() == b.Value()
}

// Compare orders a and b by their values, as cmp.Compare does.
func Compare[T cmp.Ordered](a, b Reader[T]) int {
	return cmp.Compare(a.Value(), b.Value())
}

// Hash hashes the contained value. Containers holding equal values hash
// equally for the same seed.
func Hash[T comparable](seed maphash.Seed, r Reader[T]) uint64 {
	return maphash.Comparable(seed, r.Value())
}
