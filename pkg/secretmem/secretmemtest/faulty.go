// Package secretmemtest provides test doubles and a contract suite for
// secretmem.Allocator implementations.
package secretmemtest

import (
	"errors"
	"sync"

	"github.com/systmms/secretmem/pkg/secretmem"
)

// ErrInjected is the cause of every failure produced by FaultyAllocator.
var ErrInjected = errors.New("secretmemtest: injected fault")

// FaultyAllocator wraps a real allocator and fails selected operations on
// demand. It also snapshots each region's bytes as they are handed to
// Release, so tests can observe what the caller left behind.
type FaultyAllocator struct {
	Inner secretmem.Allocator

	mu            sync.Mutex
	failAllocate  bool
	failReadOnly  bool
	failReadWrite bool
	failRelease   bool
	snapshots     [][]byte
	live          int
	releaseCalls  int
}

// NewFaulty returns a FaultyAllocator that delegates to inner.
func NewFaulty(inner secretmem.Allocator) *FaultyAllocator {
	return &FaultyAllocator{Inner: inner}
}

// FailAllocate toggles injected Allocate failures.
func (f *FaultyAllocator) FailAllocate(fail bool) { f.set(&f.failAllocate, fail) }

// FailReadOnly toggles injected MarkReadOnly failures.
func (f *FaultyAllocator) FailReadOnly(fail bool) { f.set(&f.failReadOnly, fail) }

// FailReadWrite toggles injected MarkReadWrite failures.
func (f *FaultyAllocator) FailReadWrite(fail bool) { f.set(&f.failReadWrite, fail) }

// FailRelease toggles injected Release failures. A failed release leaves
// the region mapped.
func (f *FaultyAllocator) FailRelease(fail bool) { f.set(&f.failRelease, fail) }

func (f *FaultyAllocator) set(flag *bool, v bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	*flag = v
}

func (f *FaultyAllocator) get(flag *bool) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *flag
}

// Snapshots returns copies of the bytes of every region passed to Release,
// in call order.
func (f *FaultyAllocator) Snapshots() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]byte(nil), f.snapshots...)
}

// ReleaseCalls returns how many times Release was called, successful or not.
func (f *FaultyAllocator) ReleaseCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.releaseCalls
}

// Live returns the number of regions allocated and not yet released.
func (f *FaultyAllocator) Live() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.live
}

func (f *FaultyAllocator) Backend() secretmem.Backend {
	return f.Inner.Backend()
}

func (f *FaultyAllocator) Allocate(size int) (*secretmem.Region, error) {
	if f.get(&f.failAllocate) {
		return nil, f.fault(secretmem.OpAllocate)
	}
	r, err := f.Inner.Allocate(size)
	if err == nil {
		f.mu.Lock()
		f.live++
		f.mu.Unlock()
	}
	return r, err
}

func (f *FaultyAllocator) MarkReadOnly(r *secretmem.Region) error {
	if f.get(&f.failReadOnly) {
		return f.fault(secretmem.OpReadOnly)
	}
	return f.Inner.MarkReadOnly(r)
}

func (f *FaultyAllocator) MarkReadWrite(r *secretmem.Region) error {
	if f.get(&f.failReadWrite) {
		return f.fault(secretmem.OpReadWrite)
	}
	return f.Inner.MarkReadWrite(r)
}

func (f *FaultyAllocator) Release(r *secretmem.Region) error {
	f.mu.Lock()
	f.releaseCalls++
	if r != nil && !r.Released() {
		f.snapshots = append(f.snapshots, append([]byte(nil), r.Bytes()...))
	}
	f.mu.Unlock()

	if f.get(&f.failRelease) {
		return f.fault(secretmem.OpRelease)
	}

	err := f.Inner.Release(r)
	if r != nil && r.Released() {
		f.mu.Lock()
		f.live--
		f.mu.Unlock()
	}
	return err
}

func (f *FaultyAllocator) fault(op secretmem.Op) error {
	return &secretmem.Error{Op: op, Backend: f.Backend(), Step: "injected", Err: ErrInjected}
}
