package secretmem

import (
	"fmt"
	"math"

	"github.com/awnumar/memguard"
)

// Allocator is implemented by every secret-memory backend.
//
// Implementations are safe for concurrent use: they keep no mutable state
// beyond OS resources created and closed within a single call. A given
// Region must still be used by one goroutine at a time.
type Allocator interface {
	// Backend identifies the implementation.
	Backend() Backend

	// Allocate returns a zeroed, read-write region of at least size bytes,
	// rounded up to whole pages, pinned against swap and excluded from core
	// dumps. On error nothing remains allocated.
	Allocate(size int) (*Region, error)

	// MarkReadOnly makes every page of the region read-only.
	MarkReadOnly(r *Region) error

	// MarkReadWrite makes every page of the region readable and writable.
	MarkReadWrite(r *Region) error

	// Release wipes the region and returns it to the system. Undoing the
	// swap and dump markers is best effort; the pages are unmapped either
	// way. The region is released once it has been wiped, even if the
	// final unmap reports an error.
	Release(r *Region) error
}

// requestSize validates an allocation request and returns the page-aligned
// length to map.
func requestSize(size int) (int, error) {
	if size <= 0 || size > math.MaxInt-PageSize() {
		return 0, fmt.Errorf("%w: %d", ErrInvalidSize, size)
	}
	return AlignedSize(size, 1), nil
}

// Wipe zeroes b in a way the compiler cannot elide.
func Wipe(b []byte) {
	memguard.WipeBytes(b)
}
