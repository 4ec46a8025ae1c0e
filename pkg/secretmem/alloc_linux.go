package secretmem

import (
	"sync"

	"golang.org/x/sys/unix"
)

// memfdSecretAllocator maps memory from memfd_secret(2). Such pages are
// removed from the kernel's direct map, so they are never swapped, never
// dumped, and unreadable even through /proc/<pid>/mem.
type memfdSecretAllocator struct{}

var memfdSecretProbe = sync.OnceValue(func() error {
	a := memfdSecretAllocator{}
	r, err := a.Allocate(1)
	if err != nil {
		return err
	}
	return a.Release(r)
})

// MemfdSecret returns the memfd_secret backend, or an error if the running
// kernel cannot provide secret memory. The capability is probed once with
// a real one-page allocation.
func MemfdSecret() (Allocator, error) {
	if err := memfdSecretProbe(); err != nil {
		return nil, err
	}
	return memfdSecretAllocator{}, nil
}

func (memfdSecretAllocator) Backend() Backend {
	return BackendMemfdSecret
}

func (memfdSecretAllocator) Allocate(size int) (*Region, error) {
	length, err := requestSize(size)
	if err != nil {
		return nil, opError(OpAllocate, BackendMemfdSecret, "", err)
	}

	fd, err := unix.MemfdSecret(unix.O_CLOEXEC)
	if err != nil {
		return nil, opError(OpAllocate, BackendMemfdSecret, "memfd_secret", err)
	}
	// The mapping keeps the memory alive; the descriptor is never needed
	// past this call.
	defer func() {
		bestEffort(BackendMemfdSecret, "close", unix.Close(fd))
	}()

	if err := unix.Ftruncate(fd, int64(length)); err != nil {
		return nil, opError(OpAllocate, BackendMemfdSecret, "ftruncate", err)
	}

	data, err := unix.Mmap(fd, 0, length, protReadWrite, unix.MAP_SHARED)
	if err != nil {
		return nil, opError(OpAllocate, BackendMemfdSecret, "mmap", err)
	}

	return newRegion(data, BackendMemfdSecret), nil
}

func (memfdSecretAllocator) MarkReadOnly(r *Region) error {
	return mprotect(r, OpReadOnly, BackendMemfdSecret, protReadOnly)
}

func (memfdSecretAllocator) MarkReadWrite(r *Region) error {
	return mprotect(r, OpReadWrite, BackendMemfdSecret, protReadWrite)
}

func (memfdSecretAllocator) Release(r *Region) error {
	return munmapRegion(r, BackendMemfdSecret, nil)
}
