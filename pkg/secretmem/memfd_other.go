//go:build !linux

package secretmem

// MemfdSecret returns ErrUnsupported: memfd_secret is Linux only.
func MemfdSecret() (Allocator, error) {
	return nil, opError(OpAllocate, BackendMemfdSecret, "", ErrUnsupported)
}
