package secretmem

import (
	"errors"
	"fmt"

	dserrors "github.com/systmms/secretmem/internal/errors"
)

// Operation classes. Every *Error matches exactly one of them with errors.Is.
var (
	ErrAllocation = errors.New("secretmem: allocation failed")
	ErrProtection = errors.New("secretmem: protection change failed")
	ErrRelease    = errors.New("secretmem: release failed")
)

// Causes reported by this package rather than the operating system.
var (
	ErrInvalidSize   = errors.New("secretmem: invalid allocation size")
	ErrReleased      = errors.New("secretmem: region already released")
	ErrForeignRegion = errors.New("secretmem: region belongs to a different backend")
	ErrUnsupported   = errors.New("secretmem: backend not supported on this system")

	errNilRegion = errors.New("secretmem: nil region")
)

// Op names an allocator operation.
type Op string

const (
	OpAllocate  Op = "allocate"
	OpReadOnly  Op = "mark read-only"
	OpReadWrite Op = "mark read-write"
	OpRelease   Op = "release"
)

// Error describes a failed allocator operation.
type Error struct {
	Op      Op
	Backend Backend
	// Step is the system call that failed, if any.
	Step string
	Err  error
	// Suggestion is a remediation hint for operators, possibly empty.
	Suggestion string
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("secretmem: %s %s", e.Backend, e.Op)
	if e.Step != "" {
		msg += " (" + e.Step + ")"
	}
	return msg + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the operation class of e.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrAllocation:
		return e.Op == OpAllocate
	case ErrProtection:
		return e.Op == OpReadOnly || e.Op == OpReadWrite
	case ErrRelease:
		return e.Op == OpRelease
	}
	return false
}

func opError(op Op, backend Backend, step string, err error) error {
	return &Error{
		Op:         op,
		Backend:    backend,
		Step:       step,
		Err:        err,
		Suggestion: dserrors.Suggest(err),
	}
}
