package secretmem

import (
	"time"

	"github.com/systmms/secretmem/internal/metrics"
)

// instrumented records Prometheus metrics around another allocator.
type instrumented struct {
	inner   Allocator
	metrics *metrics.AllocatorMetrics
}

// Instrument wraps a so that its operations are counted in the
// secretmem_* Prometheus metrics. Metrics are only recorded once
// registered; see the metrics package.
func Instrument(a Allocator) Allocator {
	if _, ok := a.(instrumented); ok {
		return a
	}
	return instrumented{inner: a, metrics: metrics.NewAllocatorMetrics()}
}

func (a instrumented) Backend() Backend {
	return a.inner.Backend()
}

func (a instrumented) Allocate(size int) (*Region, error) {
	start := time.Now()
	r, err := a.inner.Allocate(size)

	length := 0
	if err == nil {
		length = r.Len()
	}
	counted := a.metrics.RecordAllocation(a.Backend().String(), length, err == nil, time.Since(start).Seconds())
	if err == nil {
		r.metered = counted
	}
	return r, err
}

func (a instrumented) MarkReadOnly(r *Region) error {
	err := a.inner.MarkReadOnly(r)
	a.metrics.RecordProtection(a.Backend().String(), "read-only", err == nil)
	return err
}

func (a instrumented) MarkReadWrite(r *Region) error {
	err := a.inner.MarkReadWrite(r)
	a.metrics.RecordProtection(a.Backend().String(), "read-write", err == nil)
	return err
}

func (a instrumented) Release(r *Region) error {
	wasLive := r != nil && !r.Released()
	err := a.inner.Release(r)

	length, counted := 0, false
	if r != nil {
		length, counted = r.Len(), r.metered
		if r.Released() {
			r.metered = false
		}
	}
	a.metrics.RecordRelease(a.Backend().String(), length, counted, wasLive && r.Released(), err == nil)
	return err
}
