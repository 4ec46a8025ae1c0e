package secretmem

import (
	"slices"
	"testing"
)

// SelectPlatformWithout runs backend selection as if backend failed to
// open. The backend table is restored when the test ends.
func SelectPlatformWithout(t testing.TB, backend Backend) Allocator {
	t.Helper()

	saved := candidates
	t.Cleanup(func() { candidates = saved })

	replaced := slices.Clone(candidates)
	for i := range replaced {
		if replaced[i].backend == backend {
			replaced[i].open = func() (Allocator, error) {
				return nil, opError(OpAllocate, backend, "", ErrUnsupported)
			}
		}
	}
	candidates = replaced

	return selectPlatform()
}
