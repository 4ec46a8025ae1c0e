// Package metrics records Prometheus metrics for secret-memory operations.
//
// Metrics are registered lazily by InitMetrics. Until then every Record
// method is a no-op, so library users that never expose metrics pay only
// an atomic load per operation.
package metrics

import (
	"sync"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	allocationsTotal       *prometheus.CounterVec
	allocationDuration     *prometheus.HistogramVec
	protectionChangesTotal *prometheus.CounterVec
	releasesTotal          *prometheus.CounterVec
	lockedBytes            *prometheus.GaugeVec

	// Registration guard
	metricsOnce       sync.Once
	metricsRegistered atomic.Bool
)

// Status label values.
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)

// AllocatorMetrics provides methods to record allocator metrics.
type AllocatorMetrics struct{}

// NewAllocatorMetrics creates a new AllocatorMetrics instance.
func NewAllocatorMetrics() *AllocatorMetrics {
	return &AllocatorMetrics{}
}

// InitMetrics registers all metrics with the default Prometheus registry.
// It is safe to call more than once.
func InitMetrics() {
	metricsOnce.Do(func() {
		allocationsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "secretmem_allocations_total",
				Help: "Total number of secret region allocations",
			},
			[]string{"backend", "status"},
		)

		allocationDuration = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "secretmem_allocation_duration_seconds",
				Help:    "Duration of secret region allocations in seconds",
				Buckets: []float64{0.00001, 0.0001, 0.001, 0.01, 0.1},
			},
			[]string{"backend"},
		)

		protectionChangesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "secretmem_protection_changes_total",
				Help: "Total number of page protection changes on secret regions",
			},
			[]string{"backend", "mode", "status"},
		)

		releasesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "secretmem_releases_total",
				Help: "Total number of secret region releases",
			},
			[]string{"backend", "status"},
		)

		lockedBytes = promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "secretmem_locked_bytes",
				Help: "Bytes currently held in live secret regions",
			},
			[]string{"backend"},
		)

		metricsRegistered.Store(true)
	})
}

func status(ok bool) string {
	if ok {
		return StatusSuccess
	}
	return StatusFailure
}

// RecordAllocation records an allocation attempt. bytes is the page-aligned
// length of the region and is only counted on success. It reports whether
// the bytes were added to the locked-bytes gauge; only such regions may be
// subtracted again by RecordRelease.
func (m *AllocatorMetrics) RecordAllocation(backend string, bytes int, ok bool, durationSeconds float64) bool {
	if !metricsRegistered.Load() {
		return false
	}

	allocationsTotal.WithLabelValues(backend, status(ok)).Inc()
	allocationDuration.WithLabelValues(backend).Observe(durationSeconds)
	if !ok {
		return false
	}
	lockedBytes.WithLabelValues(backend).Add(float64(bytes))
	return true
}

// RecordProtection records a permission change. mode is "read-only" or "read-write".
func (m *AllocatorMetrics) RecordProtection(backend, mode string, ok bool) {
	if !metricsRegistered.Load() {
		return
	}
	protectionChangesTotal.WithLabelValues(backend, mode, status(ok)).Inc()
}

// RecordRelease records a release attempt. counted must be the result of
// RecordAllocation for the same region: bytes leave the gauge only for a
// counted region that was released, even if the final unmap reported an
// error.
func (m *AllocatorMetrics) RecordRelease(backend string, bytes int, counted, released, ok bool) {
	if !metricsRegistered.Load() {
		return
	}

	releasesTotal.WithLabelValues(backend, status(ok)).Inc()
	if counted && released {
		lockedBytes.WithLabelValues(backend).Sub(float64(bytes))
	}
}

// GetAllocationsTotal returns the allocation counter for testing.
func GetAllocationsTotal() *prometheus.CounterVec {
	return allocationsTotal
}

// GetProtectionChangesTotal returns the protection counter for testing.
func GetProtectionChangesTotal() *prometheus.CounterVec {
	return protectionChangesTotal
}

// GetReleasesTotal returns the release counter for testing.
func GetReleasesTotal() *prometheus.CounterVec {
	return releasesTotal
}

// GetLockedBytes returns the live-bytes gauge for testing.
func GetLockedBytes() *prometheus.GaugeVec {
	return lockedBytes
}

// IsMetricsRegistered returns whether metrics have been initialized.
func IsMetricsRegistered() bool {
	return metricsRegistered.Load()
}
