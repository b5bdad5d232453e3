package memory

import (
	"fmt"

	"github.com/apache/arrow-go/v18/arrow/memory"
)

// SystemAllocator is the general-purpose allocator underneath the pool. It supplies
// chunks and serves bypass requests directly. Implementations must be safe for
// concurrent use because bypass calls are made without the pool lock.
type SystemAllocator interface {
	// Allocate returns at least n usable bytes or an error wrapping ErrOutOfMemory.
	Allocate(n int) ([]byte, error)
	// Free releases a slice previously returned by Allocate.
	Free(b []byte)
}

// GoAllocator serves memory from the Go heap through Arrow's 64-byte aligned allocator.
type GoAllocator struct {
	mem memory.Allocator
}

// NewGoAllocator returns the default system allocator.
func NewGoAllocator() *GoAllocator {
	return &GoAllocator{mem: memory.NewGoAllocator()}
}

// Allocate converts a failed make into ErrOutOfMemory instead of crashing the caller.
func (a *GoAllocator) Allocate(n int) (b []byte, err error) {
	if n < 0 {
		return nil, fmt.Errorf("%w: negative size %d", ErrOutOfMemory, n)
	}
	defer func() {
		if r := recover(); r != nil {
			b = nil
			err = fmt.Errorf("%w: %v", ErrOutOfMemory, r)
		}
	}()
	return a.mem.Allocate(n), nil
}

// Free hands the slice back to Arrow; the garbage collector reclaims it.
func (a *GoAllocator) Free(b []byte) {
	a.mem.Free(b)
}

var _ SystemAllocator = (*GoAllocator)(nil)
