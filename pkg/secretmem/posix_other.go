//go:build !unix || aix || hurd || zos

package secretmem

// Posix returns ErrUnsupported on systems without mmap, mlock and mprotect.
func Posix() (Allocator, error) {
	return nil, opError(OpAllocate, BackendPosix, "", ErrUnsupported)
}
