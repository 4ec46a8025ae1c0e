package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitMetrics(t *testing.T) {
	// InitMetrics uses sync.Once, so we test the behavior after initialization
	InitMetrics()
	InitMetrics()

	assert.True(t, IsMetricsRegistered())
	assert.NotNil(t, GetAllocationsTotal())
	assert.NotNil(t, GetProtectionChangesTotal())
	assert.NotNil(t, GetReleasesTotal())
	assert.NotNil(t, GetLockedBytes())
}

func TestAllocatorMetrics_Allocation(t *testing.T) {
	InitMetrics()

	m := NewAllocatorMetrics()
	before := testutil.ToFloat64(GetAllocationsTotal().WithLabelValues("test-alloc", StatusSuccess))
	bytesBefore := testutil.ToFloat64(GetLockedBytes().WithLabelValues("test-alloc"))

	assert.True(t, m.RecordAllocation("test-alloc", 4096, true, 0.0001))
	assert.False(t, m.RecordAllocation("test-alloc", 0, false, 0.0001))

	assert.Equal(t, before+1, testutil.ToFloat64(GetAllocationsTotal().WithLabelValues("test-alloc", StatusSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(GetAllocationsTotal().WithLabelValues("test-alloc", StatusFailure)))
	assert.Equal(t, bytesBefore+4096, testutil.ToFloat64(GetLockedBytes().WithLabelValues("test-alloc")))
}

func TestAllocatorMetrics_Protection(t *testing.T) {
	InitMetrics()

	m := NewAllocatorMetrics()
	m.RecordProtection("test-protect", "read-only", true)
	m.RecordProtection("test-protect", "read-write", false)

	assert.Equal(t, 1.0, testutil.ToFloat64(GetProtectionChangesTotal().WithLabelValues("test-protect", "read-only", StatusSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(GetProtectionChangesTotal().WithLabelValues("test-protect", "read-write", StatusFailure)))
}

func TestAllocatorMetrics_Release(t *testing.T) {
	InitMetrics()

	m := NewAllocatorMetrics()
	counted := m.RecordAllocation("test-release", 8192, true, 0.0001)
	m.RecordRelease("test-release", 8192, counted, true, true)
	m.RecordRelease("test-release", 4096, true, false, false)

	require.Equal(t, 0.0, testutil.ToFloat64(GetLockedBytes().WithLabelValues("test-release")))
	assert.Equal(t, 1.0, testutil.ToFloat64(GetReleasesTotal().WithLabelValues("test-release", StatusSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(GetReleasesTotal().WithLabelValues("test-release", StatusFailure)))
}

func TestAllocatorMetrics_UncountedReleaseLeavesGauge(t *testing.T) {
	InitMetrics()

	m := NewAllocatorMetrics()
	counted := m.RecordAllocation("test-uncounted", 4096, true, 0.0001)
	require.True(t, counted)

	// A region allocated before registration was never added to the gauge.
	m.RecordRelease("test-uncounted", 8192, false, true, true)
	assert.Equal(t, 4096.0, testutil.ToFloat64(GetLockedBytes().WithLabelValues("test-uncounted")))

	m.RecordRelease("test-uncounted", 4096, counted, true, true)
	assert.Equal(t, 0.0, testutil.ToFloat64(GetLockedBytes().WithLabelValues("test-uncounted")))
	assert.Equal(t, 2.0, testutil.ToFloat64(GetReleasesTotal().WithLabelValues("test-uncounted", StatusSuccess)))
}
