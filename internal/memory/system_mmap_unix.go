//go:build linux || darwin

package memory

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// MmapAllocator maps anonymous private memory for every request. Mappings live
// outside the Go heap, so pool chunks obtained from it add nothing to GC pressure.
type MmapAllocator struct{}

// NewMmapAllocator returns an allocator backed by anonymous mappings.
func NewMmapAllocator() (*MmapAllocator, error) {
	return &MmapAllocator{}, nil
}

func (MmapAllocator) Allocate(n int) ([]byte, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: mmap of %d bytes", ErrOutOfMemory, n)
	}
	b, err := unix.Mmap(-1, 0, n, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, fmt.Errorf("%w: mmap(%d): %w", ErrOutOfMemory, n, err)
	}
	return b, nil
}

// Free unmaps b. unix.Munmap only accepts the exact slice Mmap returned, so the
// capacity is restored first.
func (MmapAllocator) Free(b []byte) {
	if cap(b) == 0 {
		return
	}
	_ = unix.Munmap(b[:cap(b)])
}

var _ SystemAllocator = MmapAllocator{}
