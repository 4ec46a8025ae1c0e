package secretbox

import (
	"errors"

	"github.com/systmms/secretmem/pkg/secretmem"
)

var (
	// ErrAllocation reports that no secret memory could be obtained. No
	// container exists when New returns it.
	ErrAllocation = secretmem.ErrAllocation

	// ErrTransition reports a failed Lock or Unlock. The receiver is
	// unchanged and still usable.
	ErrTransition = errors.New("secretbox: lock state transition failed")

	// ErrPointerType reports a value type that contains Go pointers.
	ErrPointerType = errors.New("secretbox: value type contains Go pointers")

	// ErrMoved is the panic value when a container is used after a
	// successful Lock or Unlock moved its value elsewhere.
	ErrMoved = errors.New("secretbox: container was moved by a lock state transition")

	// ErrNotWiped reports a Close that could neither restore write access
	// nor release the region. The plaintext stays mapped until the process
	// exits.
	ErrNotWiped = errors.New("secretbox: secret memory could not be wiped")

	// ErrClosed is the panic value when a container is used after Close.
	ErrClosed = errors.New("secretbox: container is closed")
)
