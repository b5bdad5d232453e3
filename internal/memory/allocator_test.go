package memory

import (
	"testing"

	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArrowAllocator(t *testing.T) {
	p := newTestPool(t, smallConfig(), nil)
	alloc := NewArrowAllocator(p)

	buf := alloc.Allocate(40)
	require.Len(t, buf, 40)
	assert.Equal(t, 48, cap(buf))
	for _, v := range buf {
		assert.Zero(t, v)
	}
	buf[0] = 1
	buf[39] = 2
	assert.Equal(t, int64(40), alloc.Allocated())

	// Same block size: grown in place and the new bytes are zeroed.
	grown := alloc.Reallocate(48, buf)
	assert.Equal(t, sliceBase(buf), sliceBase(grown))
	assert.Len(t, grown, 48)
	assert.Zero(t, grown[47])

	// Larger than the pool maximum: copied to a bypass block.
	moved := alloc.Reallocate(100, grown)
	require.Len(t, moved, 100)
	assert.NotEqual(t, sliceBase(grown), sliceBase(moved))
	assert.Equal(t, byte(1), moved[0])
	assert.Equal(t, byte(2), moved[39])
	assert.Equal(t, 1, freeCount(p.Stats(), 2), "old block returned to its slot")

	alloc.Free(moved)
	assert.Equal(t, int64(0), alloc.Allocated())
	require.NoError(t, p.Verify())
}

func TestArrowAllocator_OutOfMemoryPanics(t *testing.T) {
	p := newTestPool(t, smallConfig(), NewTrackingAllocator(nil, 10))
	alloc := NewArrowAllocator(p)

	assert.Panics(t, func() { alloc.Allocate(32) })
}

func TestArrowAllocator_Builder(t *testing.T) {
	p := newTestPool(t, Config{Align: 64, MaxBlockBytes: 64 * 1024}, nil)
	mem := memory.NewCheckedAllocator(NewArrowAllocator(p))
	defer mem.AssertSize(t, 0)

	b := array.NewInt64Builder(mem)
	defer b.Release()

	// Grows through pooled sizes and past the maximum into the bypass path.
	const n = 20000
	for i := 0; i < n; i++ {
		if i%10 == 0 {
			b.AppendNull()
			continue
		}
		b.Append(int64(i))
	}

	arr := b.NewInt64Array()
	defer arr.Release()

	require.Equal(t, n, arr.Len())
	assert.Equal(t, n/10, arr.NullN())
	assert.True(t, arr.IsNull(0))
	assert.Equal(t, int64(1), arr.Value(1))
	assert.Equal(t, int64(n-1), arr.Value(n-1))

	s := p.Stats()
	assert.Positive(t, s.PooledAllocations())
	assert.Positive(t, s.BypassAllocations)
	require.NoError(t, p.Verify())
}
