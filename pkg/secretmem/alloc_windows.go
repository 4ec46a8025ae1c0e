package secretmem

import (
	"unsafe"

	"golang.org/x/sys/windows"

	"github.com/systmms/secretmem/internal/logging"
)

const (
	windowsAllocType = windows.MEM_COMMIT | windows.MEM_RESERVE
	windowsReadWrite = windows.PAGE_READWRITE | windows.PAGE_NOCACHE
	windowsReadOnly  = windows.PAGE_READONLY | windows.PAGE_NOCACHE
)

// windowsAllocator commits uncached virtual memory and pins it with
// VirtualLock.
type windowsAllocator struct{}

// Windows returns the Windows backend.
func Windows() (Allocator, error) {
	return windowsAllocator{}, nil
}

func (windowsAllocator) Backend() Backend {
	return BackendWindows
}

func (windowsAllocator) Allocate(size int) (*Region, error) {
	length, err := requestSize(size)
	if err != nil {
		return nil, opError(OpAllocate, BackendWindows, "", err)
	}

	addr, err := windows.VirtualAlloc(0, uintptr(length), windowsAllocType, windowsReadWrite)
	if err != nil {
		return nil, opError(OpAllocate, BackendWindows, "VirtualAlloc", err)
	}

	if err := windows.VirtualLock(addr, uintptr(length)); err != nil {
		if freeErr := windows.VirtualFree(addr, 0, windows.MEM_RELEASE); freeErr != nil {
			logging.Default().Debug("secretmem: windows VirtualFree failed (ignored): %v", freeErr)
		}
		return nil, opError(OpAllocate, BackendWindows, "VirtualLock", err)
	}

	data := unsafe.Slice((*byte)(unsafe.Pointer(addr)), length)
	return newRegion(data, BackendWindows), nil
}

func (a windowsAllocator) MarkReadOnly(r *Region) error {
	return a.protect(r, OpReadOnly, windowsReadOnly)
}

func (a windowsAllocator) MarkReadWrite(r *Region) error {
	return a.protect(r, OpReadWrite, windowsReadWrite)
}

// NOTE Protection acts on whole pages; the region is always page aligned.
func (windowsAllocator) protect(r *Region, op Op, prot uint32) error {
	if err := r.check(op, BackendWindows); err != nil {
		return err
	}

	var old uint32
	if err := windows.VirtualProtect(regionAddr(r), uintptr(r.length), prot, &old); err != nil {
		return opError(op, BackendWindows, "VirtualProtect", err)
	}
	r.readOnly = prot == windowsReadOnly
	return nil
}

func (a windowsAllocator) Release(r *Region) error {
	if err := r.check(OpRelease, BackendWindows); err != nil {
		return err
	}
	if r.readOnly {
		if err := a.protect(r, OpRelease, windowsReadWrite); err != nil {
			return err
		}
	}

	Wipe(r.data)

	addr, length := regionAddr(r), uintptr(r.length)
	if err := windows.VirtualUnlock(addr, length); err != nil {
		logging.Default().Debug("secretmem: windows VirtualUnlock failed (ignored): %v", err)
	}
	r.markReleased()

	if err := windows.VirtualFree(addr, 0, windows.MEM_RELEASE); err != nil {
		return opError(OpRelease, BackendWindows, "VirtualFree", err)
	}
	return nil
}

func regionAddr(r *Region) uintptr {
	return uintptr(unsafe.Pointer(unsafe.SliceData(r.data)))
}
