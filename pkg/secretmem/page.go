package secretmem

import (
	"os"
	"sync"
)

var pageSize = sync.OnceValue(os.Getpagesize)

// PageSize returns the page size reported by the operating system. It is
// queried on first use and cached for the life of the process.
func PageSize() int {
	return pageSize()
}

// AlignedSize returns the smallest multiple of max(align, PageSize()) that
// is greater than or equal to size. Both arguments must be non-negative.
func AlignedSize(size, align int) int {
	if size < 0 || align < 0 {
		panic("secretmem: negative size or alignment")
	}

	unit := max(align, PageSize())
	return (size + unit - 1) / unit * unit
}
