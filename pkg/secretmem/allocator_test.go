package secretmem_test

import (
	"bytes"
	"runtime"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/systmms/secretmem/internal/logging"
	"github.com/systmms/secretmem/pkg/secretbox"
	"github.com/systmms/secretmem/pkg/secretmem"
	"github.com/systmms/secretmem/pkg/secretmem/secretmemtest"
)

func TestBackendContracts(t *testing.T) {
	ran := 0
	for _, result := range secretmem.Probe() {
		if result.Err != nil {
			t.Logf("%s backend unavailable: %v", result.Backend, result.Err)
			continue
		}
		ran++
		t.Run(result.Backend.String(), func(t *testing.T) {
			secretmemtest.RunAllocatorContract(t, result.Allocator)
		})
	}
	require.Positive(t, ran, "no backend available on %s", runtime.GOOS)
}

func TestPlatformContract(t *testing.T) {
	secretmemtest.RunAllocatorContract(t, secretmem.Platform())
}

func TestPlatformIsMemoized(t *testing.T) {
	t.Parallel()

	first := secretmem.Platform()

	var wg sync.WaitGroup
	backends := make([]secretmem.Backend, 16)
	for i := range backends {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			backends[i] = secretmem.Platform().Backend()
		}(i)
	}
	wg.Wait()

	for _, b := range backends {
		assert.Equal(t, first.Backend(), b)
	}
	assert.Equal(t, first, secretmem.Platform())
}

func TestPlatformSelection(t *testing.T) {
	t.Parallel()

	backend := secretmem.Platform().Backend()
	switch runtime.GOOS {
	case "linux", "android":
		if _, err := secretmem.MemfdSecret(); err == nil {
			assert.Equal(t, secretmem.BackendMemfdSecret, backend)
		} else {
			assert.Equal(t, secretmem.BackendPosix, backend, "must fall back when memfd_secret is missing")
		}
	case "windows":
		assert.Equal(t, secretmem.BackendWindows, backend)
	default:
		assert.Equal(t, secretmem.BackendPosix, backend)
	}
}

func TestPlatformFallsBackWhenMemfdSecretFails(t *testing.T) {
	// Not parallel: swaps the backend table and the process logger.
	want := secretmem.BackendPosix
	if runtime.GOOS == "windows" {
		want = secretmem.BackendWindows
	}
	if _, err := secretmem.Open(want); err != nil {
		t.Skipf("%s backend unavailable: %v", want, err)
	}

	var logs bytes.Buffer
	prev := logging.Default()
	logging.SetDefault(logging.NewWithWriter(&logs, false, true))
	t.Cleanup(func() { logging.SetDefault(prev) })

	a := secretmem.SelectPlatformWithout(t, secretmem.BackendMemfdSecret)
	require.Equal(t, want, a.Backend())
	assert.Empty(t, logs.String(), "fallback must be silent outside debug mode")

	r, err := a.Allocate(1)
	require.NoError(t, err)
	assert.Equal(t, want, r.Backend())
	copy(r.Bytes(), "fallback")
	require.NoError(t, a.MarkReadOnly(r))
	assert.Equal(t, "fallback", string(r.Bytes()[:8]))
	require.NoError(t, a.MarkReadWrite(r))
	require.NoError(t, a.Release(r))

	u, err := secretbox.NewIn(a, int32(42))
	require.NoError(t, err)
	locked, err := u.Lock()
	require.NoError(t, err)
	assert.Equal(t, int32(42), locked.Value())
	u, err = locked.Unlock()
	require.NoError(t, err)
	u.Set(100)
	assert.Equal(t, int32(100), u.Value())
	require.NoError(t, u.Close())

	secretmemtest.RunAllocatorContract(t, a)
}

func TestProbeOrder(t *testing.T) {
	t.Parallel()

	results := secretmem.Probe()
	require.Len(t, results, 3)
	assert.Equal(t, secretmem.BackendMemfdSecret, results[0].Backend)
	assert.Equal(t, secretmem.BackendPosix, results[1].Backend)
	assert.Equal(t, secretmem.BackendWindows, results[2].Backend)

	for _, result := range results {
		if result.Err != nil {
			assert.Nil(t, result.Allocator)
		} else {
			assert.Equal(t, result.Backend, result.Allocator.Backend())
		}
	}
}

func TestOpen(t *testing.T) {
	t.Parallel()

	_, err := secretmem.Open(secretmem.BackendNone)
	assert.ErrorIs(t, err, secretmem.ErrUnsupported)

	if runtime.GOOS != "windows" {
		_, err := secretmem.Open(secretmem.BackendWindows)
		assert.ErrorIs(t, err, secretmem.ErrUnsupported)
	}
}

func TestInstrumentIsIdempotent(t *testing.T) {
	t.Parallel()

	wrapped := secretmem.Instrument(secretmem.Platform())
	assert.Equal(t, secretmem.Platform(), wrapped)
}

func TestWipe(t *testing.T) {
	t.Parallel()

	buf := []byte("correct horse battery staple")
	secretmem.Wipe(buf)
	assert.Equal(t, make([]byte, len(buf)), buf)
}
