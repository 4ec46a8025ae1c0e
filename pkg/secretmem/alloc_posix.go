//go:build unix && !aix && !hurd && !zos

package secretmem

import (
	"golang.org/x/sys/unix"
)

// System calls used by the POSIX backend. Tests replace them to fail a
// single step of Allocate.
var (
	sysMmap        = unix.Mmap
	sysMunmap      = unix.Munmap
	sysMlock       = unix.Mlock
	sysMunlock     = unix.Munlock
	sysExcludeDump = excludeFromDump
)

// posixAllocator maps anonymous private memory, pins it with mlock and
// excludes it from core dumps.
type posixAllocator struct{}

// Posix returns the generic POSIX backend.
func Posix() (Allocator, error) {
	return posixAllocator{}, nil
}

func (posixAllocator) Backend() Backend {
	return BackendPosix
}

func (posixAllocator) Allocate(size int) (*Region, error) {
	length, err := requestSize(size)
	if err != nil {
		return nil, opError(OpAllocate, BackendPosix, "", err)
	}

	data, err := sysMmap(-1, 0, length, protReadWrite, unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return nil, opError(OpAllocate, BackendPosix, "mmap", err)
	}

	if err := sysMlock(data); err != nil {
		bestEffort(BackendPosix, "munmap", sysMunmap(data))
		return nil, opError(OpAllocate, BackendPosix, "mlock", err)
	}

	if err := sysExcludeDump(data); err != nil {
		bestEffort(BackendPosix, "munlock", sysMunlock(data))
		bestEffort(BackendPosix, "munmap", sysMunmap(data))
		return nil, opError(OpAllocate, BackendPosix, "madvise", err)
	}

	return newRegion(data, BackendPosix), nil
}

func (posixAllocator) MarkReadOnly(r *Region) error {
	return mprotect(r, OpReadOnly, BackendPosix, protReadOnly)
}

func (posixAllocator) MarkReadWrite(r *Region) error {
	return mprotect(r, OpReadWrite, BackendPosix, protReadWrite)
}

func (posixAllocator) Release(r *Region) error {
	return munmapRegion(r, BackendPosix, func(data []byte) {
		bestEffort(BackendPosix, "madvise", includeInDump(data))
		bestEffort(BackendPosix, "munlock", unix.Munlock(data))
	})
}
