package secretmemtest

import (
	"bytes"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/systmms/secretmem/pkg/secretmem"
)

// RunAllocatorContract runs the behaviour every secretmem.Allocator must
// provide against a.
func RunAllocatorContract(t *testing.T, a secretmem.Allocator) {
	t.Run("Contract", func(t *testing.T) {
		t.Run("AllocateIsPageAligned", func(t *testing.T) {
			testAllocateAligned(t, a)
		})

		t.Run("AllocateIsZeroed", func(t *testing.T) {
			testAllocateZeroed(t, a)
		})

		t.Run("InvalidSize", func(t *testing.T) {
			testInvalidSize(t, a)
		})

		t.Run("ProtectionRoundTrip", func(t *testing.T) {
			testProtectionRoundTrip(t, a)
		})

		t.Run("ReleaseReadOnly", func(t *testing.T) {
			testReleaseReadOnly(t, a)
		})

		t.Run("UseAfterRelease", func(t *testing.T) {
			testUseAfterRelease(t, a)
		})

		t.Run("NoResidueAfterRelease", func(t *testing.T) {
			testNoResidue(t, a)
		})

		t.Run("Concurrent", func(t *testing.T) {
			testConcurrent(t, a)
		})
	})
}

func testAllocateAligned(t *testing.T, a secretmem.Allocator) {
	page := secretmem.PageSize()
	for _, size := range []int{1, 32, page - 1, page, page + 1, 3 * page} {
		r, err := a.Allocate(size)
		require.NoError(t, err, "Allocate(%d)", size)

		assert.Equal(t, secretmem.AlignedSize(size, 1), r.Len(), "Allocate(%d) length", size)
		assert.Zero(t, r.Len()%page)
		assert.Len(t, r.Bytes(), r.Len())
		assert.Equal(t, a.Backend(), r.Backend())
		assert.False(t, r.ReadOnly())

		require.NoError(t, a.Release(r))
	}
}

func testAllocateZeroed(t *testing.T, a secretmem.Allocator) {
	r, err := a.Allocate(64)
	require.NoError(t, err)
	defer func() { _ = a.Release(r) }()

	for index, value := range r.Bytes() {
		if value != 0 {
			t.Fatalf("expected zero at index %d, got %d", index, value)
		}
	}
}

func testInvalidSize(t *testing.T, a secretmem.Allocator) {
	for _, size := range []int{0, -1} {
		r, err := a.Allocate(size)
		assert.Nil(t, r)
		assert.ErrorIs(t, err, secretmem.ErrAllocation)
		assert.ErrorIs(t, err, secretmem.ErrInvalidSize)
	}
}

func testProtectionRoundTrip(t *testing.T, a secretmem.Allocator) {
	r, err := a.Allocate(16)
	require.NoError(t, err)
	defer func() { _ = a.Release(r) }()

	copy(r.Bytes(), "hello, secrets!")

	require.NoError(t, a.MarkReadOnly(r))
	assert.True(t, r.ReadOnly())
	assert.Equal(t, "hello, secrets!", string(r.Bytes()[:15]))

	require.NoError(t, a.MarkReadWrite(r))
	assert.False(t, r.ReadOnly())

	r.Bytes()[0] = 'H'
	assert.Equal(t, "Hello, secrets!", string(r.Bytes()[:15]))
}

func testReleaseReadOnly(t *testing.T, a secretmem.Allocator) {
	r, err := a.Allocate(32)
	require.NoError(t, err)

	copy(r.Bytes(), "locked-and-released")
	require.NoError(t, a.MarkReadOnly(r))

	require.NoError(t, a.Release(r))
	assert.True(t, r.Released())
	assert.False(t, r.ReadOnly())
	assert.Nil(t, r.Bytes())
}

func testUseAfterRelease(t *testing.T, a secretmem.Allocator) {
	r, err := a.Allocate(8)
	require.NoError(t, err)
	require.NoError(t, a.Release(r))

	err = a.Release(r)
	assert.ErrorIs(t, err, secretmem.ErrReleased)
	assert.ErrorIs(t, err, secretmem.ErrRelease)

	err = a.MarkReadOnly(r)
	assert.ErrorIs(t, err, secretmem.ErrReleased)
	assert.ErrorIs(t, err, secretmem.ErrProtection)

	err = a.MarkReadWrite(r)
	assert.ErrorIs(t, err, secretmem.ErrReleased)
}

func testNoResidue(t *testing.T, a secretmem.Allocator) {
	const size = 256
	pattern := bytes.Repeat([]byte{0xAA}, size)

	r, err := a.Allocate(size)
	require.NoError(t, err)
	copy(r.Bytes(), pattern)
	require.NoError(t, a.Release(r))

	fresh, err := a.Allocate(size)
	require.NoError(t, err)
	defer func() { _ = a.Release(fresh) }()

	assert.False(t, bytes.Contains(fresh.Bytes(), []byte{0xAA, 0xAA, 0xAA, 0xAA}),
		"fresh allocation holds residue of a released region")
}

func testConcurrent(t *testing.T, a secretmem.Allocator) {
	const workers = 8
	const rounds = 10

	var wg sync.WaitGroup
	errs := make(chan error, workers*rounds)

	for worker := 0; worker < workers; worker++ {
		wg.Add(1)
		go func(id byte) {
			defer wg.Done()
			for round := 0; round < rounds; round++ {
				r, err := a.Allocate(64)
				if err != nil {
					errs <- err
					return
				}
				r.Bytes()[0] = id
				if err := a.MarkReadOnly(r); err != nil {
					errs <- err
				}
				if r.Bytes()[0] != id {
					t.Errorf("worker %d observed foreign byte %d", id, r.Bytes()[0])
				}
				if err := a.Release(r); err != nil {
					errs <- err
				}
			}
		}(byte(worker + 1))
	}

	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}
