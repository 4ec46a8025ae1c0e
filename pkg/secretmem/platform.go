package secretmem

import (
	"sync"

	"github.com/systmms/secretmem/internal/logging"
)

// candidates lists the backends in order of preference: most isolating
// first. Constructors for backends foreign to the running OS return
// ErrUnsupported.
var candidates = []struct {
	backend Backend
	open    func() (Allocator, error)
}{
	{BackendMemfdSecret, MemfdSecret},
	{BackendPosix, Posix},
	{BackendWindows, Windows},
}

var platform = sync.OnceValue(selectPlatform)

// Platform returns the process-wide secret allocator. The backend is chosen
// on first call and never changes afterwards. On Linux kernels without
// memfd_secret the POSIX backend is used instead. If no backend works at
// all, every operation of the returned allocator fails with ErrUnsupported.
func Platform() Allocator {
	return platform()
}

func selectPlatform() Allocator {
	log := logging.Default()
	for _, c := range candidates {
		a, err := c.open()
		if err != nil {
			log.Debug("secretmem: %s backend unavailable: %v", c.backend, err)
			continue
		}
		log.Debug("secretmem: selected %s backend (page size %d)", c.backend, PageSize())
		return Instrument(a)
	}
	log.Warn("secretmem: no secret memory backend available on this system")
	return Instrument(unsupportedAllocator{})
}

// ProbeResult reports whether one backend works on this system.
type ProbeResult struct {
	Backend   Backend
	Allocator Allocator
	Err       error
}

// Probe tries every backend in order of preference and reports the outcome.
// It does not affect the choice made by Platform.
func Probe() []ProbeResult {
	results := make([]ProbeResult, 0, len(candidates))
	for _, c := range candidates {
		a, err := c.open()
		results = append(results, ProbeResult{Backend: c.backend, Allocator: a, Err: err})
	}
	return results
}

// Open returns the named backend if it works on this system.
func Open(backend Backend) (Allocator, error) {
	for _, c := range candidates {
		if c.backend == backend {
			return c.open()
		}
	}
	return nil, opError(OpAllocate, backend, "", ErrUnsupported)
}

// unsupportedAllocator is used when no backend works. It never allocates.
type unsupportedAllocator struct{}

func (unsupportedAllocator) Backend() Backend { return BackendNone }

func (unsupportedAllocator) Allocate(int) (*Region, error) {
	return nil, opError(OpAllocate, BackendNone, "", ErrUnsupported)
}

func (unsupportedAllocator) MarkReadOnly(r *Region) error {
	return r.check(OpReadOnly, BackendNone)
}

func (unsupportedAllocator) MarkReadWrite(r *Region) error {
	return r.check(OpReadWrite, BackendNone)
}

func (unsupportedAllocator) Release(r *Region) error {
	return r.check(OpRelease, BackendNone)
}
