//go:build !linux && !darwin

package memory

// MmapAllocator is unavailable on this platform.
type MmapAllocator struct{}

// NewMmapAllocator always fails with ErrMmapUnsupported.
func NewMmapAllocator() (*MmapAllocator, error) {
	return nil, ErrMmapUnsupported
}

func (MmapAllocator) Allocate(n int) ([]byte, error) {
	return nil, ErrMmapUnsupported
}

func (MmapAllocator) Free(b []byte) {}

var _ SystemAllocator = MmapAllocator{}
