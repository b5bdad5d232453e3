package memory

import (
	"sync/atomic"

	"github.com/apache/arrow-go/v18/arrow/memory"
)

// ArrowAllocator implements memory.Allocator over a Pool so Arrow builders and
// buffers draw their memory from the pool's size classes.
// Buffers are zeroed on allocation, matching Arrow's GoAllocator.
type ArrowAllocator struct {
	pool      *Pool
	allocated atomic.Int64
}

// NewArrowAllocator returns an Arrow allocator backed by pool.
func NewArrowAllocator(pool *Pool) *ArrowAllocator {
	return &ArrowAllocator{pool: pool}
}

// Allocate panics with the pool's out-of-memory error on failure; Arrow's
// allocator contract has no error return.
func (a *ArrowAllocator) Allocate(size int) []byte {
	b, err := a.pool.Allocate(size)
	if err != nil {
		panic(err)
	}
	clear(b)
	a.allocated.Add(int64(size))
	return b
}

// Reallocate keeps b when size still maps to the same block, otherwise copies into a
// new block and frees b.
func (a *ArrowAllocator) Reallocate(size int, b []byte) []byte {
	if b != nil && size > 0 && a.pool.blockCap(size) == cap(b) {
		old := len(b)
		b = b[:size]
		if size > old {
			clear(b[old:])
		}
		a.allocated.Add(int64(size - old))
		return b
	}

	newB := a.Allocate(size)
	copy(newB, b)
	a.Free(b)
	return newB
}

// Free recovers the size class from cap(b), which Allocate set to the block size.
func (a *ArrowAllocator) Free(b []byte) {
	if cap(b) == 0 {
		return
	}
	a.allocated.Add(-int64(len(b)))
	a.pool.Deallocate(b, cap(b))
}

// Allocated returns the bytes currently handed out to Arrow.
func (a *ArrowAllocator) Allocated() int64 {
	return a.allocated.Load()
}

var _ memory.Allocator = (*ArrowAllocator)(nil)
