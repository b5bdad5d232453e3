package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func TestTrackingAllocator_Counts(t *testing.T) {
	a := NewTrackingAllocator(nil, 0)

	b1, err := a.Allocate(100)
	require.NoError(t, err)
	b2, err := a.Allocate(50)
	require.NoError(t, err)
	assert.Equal(t, int64(150), a.Outstanding())

	a.Free(b1)
	assert.Equal(t, int64(50), a.Outstanding())
	a.Free(b2)
	assert.Equal(t, int64(0), a.Outstanding())
	assert.Equal(t, int64(150), a.BytesAllocated.Load())
	assert.Equal(t, int64(0), a.Limit())
}

func TestTrackingAllocator_Limit(t *testing.T) {
	a := NewTrackingAllocator(nil, 128)

	b, err := a.Allocate(100)
	require.NoError(t, err)

	_, err = a.Allocate(29)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrOutOfMemory)
	assert.Equal(t, int64(1), a.Failures.Load())
	assert.Equal(t, int64(100), a.Outstanding())

	a.Free(b)
	_, err = a.Allocate(128)
	require.NoError(t, err)
}

func TestTrackingAllocator_ConcurrentLimit(t *testing.T) {
	a := NewTrackingAllocator(nil, 64*100)

	g, _ := errgroup.WithContext(context.Background())
	for w := 0; w < 8; w++ {
		g.Go(func() error {
			for i := 0; i < 50; i++ {
				_, _ = a.Allocate(64)
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	assert.Equal(t, int64(64*100), a.Outstanding())
	assert.Equal(t, int64(8*50-100), a.Failures.Load())
}

func TestGoAllocator(t *testing.T) {
	a := NewGoAllocator()

	b, err := a.Allocate(100)
	require.NoError(t, err)
	assert.Len(t, b, 100)
	assert.Zero(t, sliceBase(b)%64, "arrow aligns to 64 bytes")
	a.Free(b)

	_, err = a.Allocate(-1)
	assert.ErrorIs(t, err, ErrOutOfMemory)
}
