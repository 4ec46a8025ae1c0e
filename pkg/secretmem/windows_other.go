//go:build !windows

package secretmem

// Windows returns ErrUnsupported on every other system.
func Windows() (Allocator, error) {
	return nil, opError(OpAllocate, BackendWindows, "", ErrUnsupported)
}
