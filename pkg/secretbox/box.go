package secretbox

import (
	"fmt"
	"reflect"
	"runtime"

	"github.com/systmms/secretmem/internal/logging"
	"github.com/systmms/secretmem/pkg/secretmem"
)

// handle tracks the vault owned by one container and the runtime cleanup
// that destroys it if the container is dropped without Close.
type handle[T any] struct {
	v       *vault[T]
	gone    error
	cleanup runtime.Cleanup
}

func (h *handle[T]) live() *vault[T] {
	if h.v == nil {
		if h.gone == nil {
			panic(ErrClosed) // zero-value container
		}
		panic(h.gone)
	}
	return h.v
}

// move hands the vault to another container. The runtime cleanup is
// cancelled so the region is destroyed by its new owner only.
func (h *handle[T]) move() *vault[T] {
	v := h.live()
	h.cleanup.Stop()
	h.v, h.gone = nil, ErrMoved
	return v
}

func (h *handle[T]) close() error {
	if h.v == nil {
		return nil
	}
	v := h.v
	h.cleanup.Stop()
	h.v, h.gone = nil, ErrClosed
	return v.destroy()
}

// Unlocked is a container whose value can be read and written.
type Unlocked[T any] struct {
	h handle[T]
}

// Locked is a container whose pages are read-only. It has no method that
// writes to the value.
type Locked[T any] struct {
	h handle[T]
}

func adoptUnlocked[T any](v *vault[T]) *Unlocked[T] {
	u := &Unlocked[T]{h: handle[T]{v: v}}
	u.h.cleanup = runtime.AddCleanup(u, destroyVault[T], v)
	return u
}

func adoptLocked[T any](v *vault[T]) *Locked[T] {
	l := &Locked[T]{h: handle[T]{v: v}}
	l.h.cleanup = runtime.AddCleanup(l, destroyVault[T], v)
	return l
}

// New moves value into secret memory from the platform allocator. The
// argument itself is an ordinary copy; callers should wipe their own
// copies once New returns.
func New[T any](value T) (*Unlocked[T], error) {
	return NewIn(secretmem.Platform(), value)
}

// NewIn is like New but allocates from alloc.
func NewIn[T any](alloc secretmem.Allocator, value T) (*Unlocked[T], error) {
	return newIn(alloc, func(p *T) { *p = value })
}

// NewFunc allocates a zeroed value in secret memory and lets fill write
// it in place, so the secret never needs to exist elsewhere. fill must
// not retain the pointer.
func NewFunc[T any](fill func(*T)) (*Unlocked[T], error) {
	return newIn(secretmem.Platform(), fill)
}

// Default returns a container holding the zero value of T.
func Default[T any]() (*Unlocked[T], error) {
	return newIn[T](secretmem.Platform(), nil)
}

// MustNew is like New but panics if no secret memory can be allocated.
func MustNew[T any](value T) *Unlocked[T] {
	u, err := New(value)
	if err != nil {
		panic(fmt.Sprintf("secretbox: unable to allocate secret memory: %v", err))
	}
	return u
}

func newIn[T any](alloc secretmem.Allocator, fill func(*T)) (*Unlocked[T], error) {
	v, err := allocate[T](alloc)
	if err != nil {
		return nil, err
	}

	u := adoptUnlocked(v)
	if fill != nil {
		fill(v.ptr())
	}
	runtime.KeepAlive(u)
	return u, nil
}

// Value returns a copy of the contained value.
func (u *Unlocked[T]) Value() T {
	value := *u.h.live().ptr()
	runtime.KeepAlive(u)
	return value
}

// Set replaces the contained value.
func (u *Unlocked[T]) Set(value T) {
	*u.h.live().ptr() = value
	runtime.KeepAlive(u)
}

// Update calls fn with a pointer to the value in place. fn must not
// retain the pointer.
func (u *Unlocked[T]) Update(fn func(*T)) {
	fn(u.h.live().ptr())
	runtime.KeepAlive(u)
}

// Lock makes the value read-only. On success the returned container owns
// the value and u is moved-from. On failure the returned error wraps
// ErrTransition and u is unchanged.
func (u *Unlocked[T]) Lock() (*Locked[T], error) {
	v := u.h.live()
	if err := v.alloc.MarkReadOnly(v.region); err != nil {
		// A failed mprotect may have changed part of the range.
		restore(v.alloc.MarkReadWrite, v.region)
		return nil, fmt.Errorf("%w: %w", ErrTransition, err)
	}
	return adoptLocked(u.h.move()), nil
}

// Close wipes and releases the secret memory. It is idempotent and a no-op
// on a moved-from container.
func (u *Unlocked[T]) Close() error {
	return u.h.close()
}

func (u *Unlocked[T]) String() string {
	return describe[T]("Unlocked")
}

func (u *Unlocked[T]) GoString() string {
	return u.String()
}

// Value returns a copy of the contained value.
func (l *Locked[T]) Value() T {
	value := *l.h.live().ptr()
	runtime.KeepAlive(l)
	return value
}

// Unlock makes the value writable again. On success the returned container
// owns the value and l is moved-from. On failure the returned error wraps
// ErrTransition and l is unchanged.
func (l *Locked[T]) Unlock() (*Unlocked[T], error) {
	v := l.h.live()
	if err := v.alloc.MarkReadWrite(v.region); err != nil {
		restore(v.alloc.MarkReadOnly, v.region)
		return nil, fmt.Errorf("%w: %w", ErrTransition, err)
	}
	return adoptUnlocked(l.h.move()), nil
}

// Close restores write access, wipes and releases the secret memory. It is
// idempotent and a no-op on a moved-from container.
func (l *Locked[T]) Close() error {
	return l.h.close()
}

func (l *Locked[T]) String() string {
	return describe[T]("Locked")
}

func (l *Locked[T]) GoString() string {
	return l.String()
}

func restore(mark func(*secretmem.Region) error, r *secretmem.Region) {
	if err := mark(r); err != nil {
		logging.Default().Debug("secretbox: restoring protection after failed transition: %v", err)
	}
}

func describe[T any](state string) string {
	return fmt.Sprintf("secretbox.%s[%s]{%s}", state, reflect.TypeFor[T](), logging.Secret(""))
}
