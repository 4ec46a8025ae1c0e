package secretbox

import (
	"errors"
	"fmt"
	"reflect"
	"unsafe"

	"github.com/systmms/secretmem/internal/logging"
	"github.com/systmms/secretmem/pkg/secretmem"
)

// Destroyer is implemented by value types that need to run their own
// teardown before the memory is wiped. Destroy is called on the in-place
// value, at most once.
type Destroyer interface {
	Destroy()
}

// vault is the ownership token for one region. Exactly one live container
// refers to a vault at any time.
type vault[T any] struct {
	alloc  secretmem.Allocator
	region *secretmem.Region
}

func allocate[T any](alloc secretmem.Allocator) (*vault[T], error) {
	typ := reflect.TypeFor[T]()
	if hasPointers(typ) {
		return nil, fmt.Errorf("%w: %s", ErrPointerType, typ)
	}

	var zero T
	region, err := alloc.Allocate(max(int(unsafe.Sizeof(zero)), 1))
	if err != nil {
		if !errors.Is(err, ErrAllocation) {
			err = fmt.Errorf("%w: %w", ErrAllocation, err)
		}
		return nil, err
	}

	return &vault[T]{alloc: alloc, region: region}, nil
}

// ptr returns the value's address inside the region. The region base is
// page aligned, which satisfies the alignment of any T.
func (v *vault[T]) ptr() *T {
	return (*T)(unsafe.Pointer(unsafe.SliceData(v.region.Bytes())))
}

// destroy restores write access if needed, runs the value's Destroyer,
// wipes every byte and releases the region.
func (v *vault[T]) destroy() error {
	log := logging.Default()

	if v.region.ReadOnly() {
		if err := v.alloc.MarkReadWrite(v.region); err != nil {
			log.Warn("secretbox: restoring write access before wipe: %v", err)
		}
	}

	// Touching read-only pages would crash the process; in that case the
	// allocator's own release path gets the last chance to wipe.
	wiped := false
	if !v.region.ReadOnly() {
		if d, ok := any(v.ptr()).(Destroyer); ok {
			d.Destroy()
		}
		secretmem.Wipe(v.region.Bytes())
		wiped = true
	}

	if err := v.alloc.Release(v.region); err != nil {
		if !wiped && !v.region.Released() {
			log.Error("secretbox: %s is still mapped and was not wiped: %v", v.region, err)
			return fmt.Errorf("%w: %w", ErrNotWiped, err)
		}
		log.Warn("secretbox: releasing %s: %v", v.region, err)
		return err
	}
	return nil
}

func destroyVault[T any](v *vault[T]) {
	_ = v.destroy()
}

// hasPointers reports whether values of t may hold Go pointers.
func hasPointers(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64, reflect.Complex64, reflect.Complex128:
		return false
	case reflect.Array:
		return t.Len() > 0 && hasPointers(t.Elem())
	case reflect.Struct:
		for i := range t.NumField() {
			if hasPointers(t.Field(i).Type) {
				return true
			}
		}
		return false
	default:
		return true
	}
}
