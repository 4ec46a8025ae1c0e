package secretmem

import "fmt"

// Backend identifies the provider that created a region.
type Backend uint8

const (
	BackendNone Backend = iota
	BackendMemfdSecret
	BackendPosix
	BackendWindows
)

var backendNames = map[Backend]string{
	BackendNone:        "none",
	BackendMemfdSecret: "memfd_secret",
	BackendPosix:       "posix",
	BackendWindows:     "windows",
}

func (b Backend) String() string {
	if name, ok := backendNames[b]; ok {
		return name
	}
	return fmt.Sprintf("backend(%d)", uint8(b))
}

// ParseBackend returns the backend with the given name.
func ParseBackend(name string) (Backend, error) {
	for b, n := range backendNames {
		if n == name && b != BackendNone {
			return b, nil
		}
	}
	return BackendNone, fmt.Errorf("secretmem: unknown backend %q", name)
}

// Region is an owning handle to a page-aligned span of secret memory.
//
// A Region is created by an Allocator and may only be changed or released
// by an allocator of the same backend. After Release the handle is inert:
// Bytes returns nil and every further operation fails with ErrReleased.
// A Region is not safe for concurrent use.
type Region struct {
	data     []byte
	length   int
	origin   Backend
	readOnly bool
	released bool
	// metered is set when the region's bytes were added to the
	// secretmem_locked_bytes gauge.
	metered bool
}

func newRegion(data []byte, origin Backend) *Region {
	return &Region{
		data:   data,
		length: len(data),
		origin: origin,
	}
}

// Len returns the page-aligned length of the region in bytes.
func (r *Region) Len() int {
	return r.length
}

// Backend returns the backend that created the region.
func (r *Region) Backend() Backend {
	return r.origin
}

// ReadOnly reports whether the region's pages are currently read-only.
func (r *Region) ReadOnly() bool {
	return r.readOnly
}

// Released reports whether the region has been returned to the system.
func (r *Region) Released() bool {
	return r.released
}

// Bytes returns the region's memory, or nil once released. Writing to the
// slice while the region is read-only faults and kills the process. The
// slice must not be retained past Release.
func (r *Region) Bytes() []byte {
	return r.data
}

func (r *Region) String() string {
	state := "read-write"
	switch {
	case r.released:
		state = "released"
	case r.readOnly:
		state = "read-only"
	}
	return fmt.Sprintf("secretmem.Region{backend=%s len=%d %s}", r.origin, r.length, state)
}

// check verifies that backend may operate on r.
func (r *Region) check(op Op, backend Backend) error {
	switch {
	case r == nil:
		return opError(op, backend, "", errNilRegion)
	case r.released:
		return opError(op, backend, "", ErrReleased)
	case r.origin != backend:
		return opError(op, backend, "", fmt.Errorf("%w: %s", ErrForeignRegion, r.origin))
	}
	return nil
}

func (r *Region) markReleased() {
	r.data = nil
	r.readOnly = false
	r.released = true
}
