package memory

import (
	"fmt"
	"sync/atomic"
)

// TrackingAllocator wraps a SystemAllocator, counts the bytes it hands out and
// optionally enforces a budget. Once an allocation would push outstanding bytes past
// the limit it fails with ErrOutOfMemory.
type TrackingAllocator struct {
	base  SystemAllocator
	limit int64

	// Exposed for tests and stats
	BytesAllocated atomic.Int64
	BytesFreed     atomic.Int64
	Failures       atomic.Int64
}

// NewTrackingAllocator wraps base. If base is nil, it uses NewGoAllocator.
// limit <= 0 means unlimited.
func NewTrackingAllocator(base SystemAllocator, limit int64) *TrackingAllocator {
	if base == nil {
		base = NewGoAllocator()
	}
	return &TrackingAllocator{base: base, limit: limit}
}

func (a *TrackingAllocator) Allocate(n int) ([]byte, error) {
	if a.limit > 0 {
		for {
			allocated := a.BytesAllocated.Load()
			outstanding := allocated - a.BytesFreed.Load()
			if outstanding+int64(n) > a.limit {
				a.Failures.Add(1)
				return nil, fmt.Errorf("%w: limit %d bytes, outstanding %d, requested %d",
					ErrOutOfMemory, a.limit, outstanding, n)
			}
			// Reserve before calling base so concurrent callers cannot overshoot.
			if a.BytesAllocated.CompareAndSwap(allocated, allocated+int64(n)) {
				break
			}
		}
	} else {
		a.BytesAllocated.Add(int64(n))
	}

	b, err := a.base.Allocate(n)
	if err != nil {
		a.BytesAllocated.Add(-int64(n))
		a.Failures.Add(1)
		return nil, err
	}
	return b, nil
}

func (a *TrackingAllocator) Free(b []byte) {
	a.BytesFreed.Add(int64(len(b)))
	a.base.Free(b)
}

// Outstanding returns bytes allocated and not yet freed.
func (a *TrackingAllocator) Outstanding() int64 {
	return a.BytesAllocated.Load() - a.BytesFreed.Load()
}

// Limit returns the configured budget, or 0 when unlimited.
func (a *TrackingAllocator) Limit() int64 {
	return a.limit
}

var _ SystemAllocator = (*TrackingAllocator)(nil)
