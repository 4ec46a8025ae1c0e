package secretmem

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/systmms/secretmem/internal/metrics"
)

func TestInstrumentLockedBytesGauge(t *testing.T) {
	// Not parallel: reads a process-wide gauge.
	platform := Platform()
	if platform.Backend() == BackendNone {
		t.Skip("no secret memory backend on this system")
	}
	raw, err := Open(platform.Backend())
	require.NoError(t, err)

	metrics.InitMetrics()
	gauge := metrics.GetLockedBytes().WithLabelValues(platform.Backend().String())
	before := testutil.ToFloat64(gauge)

	r, err := platform.Allocate(1)
	require.NoError(t, err)
	assert.True(t, r.metered)
	assert.Equal(t, before+float64(PageSize()), testutil.ToFloat64(gauge))
	require.NoError(t, platform.Release(r))
	assert.False(t, r.metered)
	assert.Equal(t, before, testutil.ToFloat64(gauge))

	// A region that never entered the gauge, such as one allocated before
	// metrics were registered, must not be subtracted from it.
	unmetered, err := raw.Allocate(1)
	require.NoError(t, err)
	require.NoError(t, platform.Release(unmetered))
	assert.Equal(t, before, testutil.ToFloat64(gauge))
}
