//go:build unix && !aix && !hurd && !zos

package secretmem

import (
	"golang.org/x/sys/unix"

	"github.com/systmms/secretmem/internal/logging"
)

const (
	protReadWrite = unix.PROT_READ | unix.PROT_WRITE
	protReadOnly  = unix.PROT_READ
)

// NOTE Protection acts on whole pages; the region is always page aligned.
func mprotect(r *Region, op Op, backend Backend, prot int) error {
	if err := r.check(op, backend); err != nil {
		return err
	}
	if err := unix.Mprotect(r.data, prot); err != nil {
		return opError(op, backend, "mprotect", err)
	}
	r.readOnly = prot&unix.PROT_WRITE == 0
	return nil
}

// munmapRegion runs the common release sequence for mmap-backed regions:
// restore write access, wipe, run the backend's best-effort undo, unmap.
func munmapRegion(r *Region, backend Backend, undo func(data []byte)) error {
	if err := r.check(OpRelease, backend); err != nil {
		return err
	}
	if r.readOnly {
		// Wiping a read-only page would fault, so the region stays mapped
		// and owned by the caller.
		if err := mprotect(r, OpRelease, backend, protReadWrite); err != nil {
			return err
		}
	}

	Wipe(r.data)

	data := r.data
	if undo != nil {
		undo(data)
	}
	r.markReleased()

	if err := unix.Munmap(data); err != nil {
		return opError(OpRelease, backend, "munmap", err)
	}
	return nil
}

// bestEffort logs a failed cleanup step that does not affect the outcome.
func bestEffort(backend Backend, step string, err error) {
	if err != nil {
		logging.Default().Debug("secretmem: %s %s failed (ignored): %v", backend, step, err)
	}
}
