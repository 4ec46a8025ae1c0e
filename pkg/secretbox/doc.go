// Package secretbox holds a single secret value in memory obtained from
// secretmem, with its lock state encoded in the type.
//
// A container starts as an [Unlocked] value, which can be read and written.
// [Unlocked.Lock] marks the pages read-only and hands the value over to a
// [Locked] container, which can only be read. [Locked.Unlock] reverses the
// transition. A transition consumes its receiver: on success the old
// container is moved-from and panics on use; on failure the old container
// is returned to the caller untouched and stays usable.
//
//	key, err := secretbox.New([32]byte{...})
//	if err != nil {
//	    return err // secretbox.ErrAllocation
//	}
//	locked, err := key.Lock()
//	if err != nil {
//	    // key is still valid and unlocked
//	}
//	defer locked.Close()
//
// Close wipes the memory and releases it, in either state. A container that
// becomes unreachable without Close is destroyed by a runtime cleanup, but
// callers should not rely on the garbage collector's timing.
//
// The value type must be free of Go pointers: the memory lives outside the
// Go heap and the garbage collector does not scan it. Fixed-size arrays,
// numbers, and structs made of them are fine; strings and slices are not.
//
// Containers are not safe for concurrent use.
package secretbox
