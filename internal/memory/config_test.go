package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_Defaults(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 4096, cfg.Slots())
	assert.Equal(t, 8*4096*10, cfg.ChunkSize())
	assert.Equal(t, 8*4096, cfg.RecycleThreshold())
	assert.Equal(t, "8x32768", cfg.String())
}

func TestConfig_ZeroMultiplierUsesDefault(t *testing.T) {
	cfg := Config{Align: 16, MaxBlockBytes: 64}
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 640, cfg.ChunkSize())
	assert.Equal(t, 64, cfg.RecycleThreshold())
	assert.Equal(t, 4, cfg.Slots())
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"align below link size", Config{Align: 4, MaxBlockBytes: 64}},
		{"align not power of two", Config{Align: 24, MaxBlockBytes: 48}},
		{"max below align", Config{Align: 16, MaxBlockBytes: 8}},
		{"max not multiple of align", Config{Align: 16, MaxBlockBytes: 40}},
		{"negative multiplier", Config{Align: 16, MaxBlockBytes: 64, MaxBlocksPerChunk: -1}},
		{"chunk too large", Config{Align: 8, MaxBlockBytes: 1 << 30, MaxBlocksPerChunk: 8}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestSlotIndexer(t *testing.T) {
	idx := newSlotIndexer(Config{Align: 16, MaxBlockBytes: 64})

	assert.Equal(t, 4, idx.slots)
	assert.False(t, idx.inPoolRange(15))
	assert.True(t, idx.inPoolRange(16))
	assert.True(t, idx.inPoolRange(64))
	assert.False(t, idx.inPoolRange(65))

	assert.Equal(t, 0, idx.slotOf(16))
	assert.Equal(t, 1, idx.slotOf(17))
	assert.Equal(t, 2, idx.slotOf(48))
	assert.Equal(t, 3, idx.slotOf(64))

	assert.Equal(t, 16, idx.blockSize(0))
	assert.Equal(t, 64, idx.blockSize(3))
	assert.Equal(t, 48, idx.roundUp(33))
}

func TestSlotBitmap(t *testing.T) {
	b := newSlotBitmap()

	_, ok := b.findLargestAvailableAtOrAbove(0)
	assert.False(t, ok)

	b.markNonEmpty(1)
	b.markNonEmpty(5)
	b.markNonEmpty(5)
	assert.Equal(t, 2, b.count())
	assert.Equal(t, []int{1, 5}, b.slots())

	slot, ok := b.findLargestAvailableAtOrAbove(2)
	require.True(t, ok)
	assert.Equal(t, 5, slot)

	slot, ok = b.findLargestAvailableAtOrAbove(5)
	require.True(t, ok)
	assert.Equal(t, 5, slot)

	_, ok = b.findLargestAvailableAtOrAbove(6)
	assert.False(t, ok)

	b.markIfEmptied(5, true)
	assert.True(t, b.isSet(5))
	b.markIfEmptied(5, false)
	assert.False(t, b.isSet(5))

	_, ok = b.findLargestAvailableAtOrAbove(2)
	assert.False(t, ok, "slot 1 is below the target")
}

func TestRef(t *testing.T) {
	r := makeRef(3, 640)
	assert.Equal(t, 3, r.Chunk())
	assert.Equal(t, 640, r.Offset())
	assert.False(t, r.IsNil())
	assert.Equal(t, "3:640", r.String())
	assert.Equal(t, makeRef(3, 656), r.advance(16))

	assert.True(t, nilRef.IsNil())
	assert.Equal(t, "nil", nilRef.String())
}

func TestChunkSource(t *testing.T) {
	s := newChunkSource(256, NewGoAllocator())

	_, ok := s.bumpAllocate(16)
	assert.False(t, ok, "no current chunk yet")
	assert.Equal(t, 0, s.remaining())

	var recycled []Ref
	record := func(ref Ref, bytes int) { recycled = append(recycled, ref) }

	ref, leftover, err := s.acquireNewChunk(64, record)
	require.NoError(t, err)
	assert.Equal(t, makeRef(0, 0), ref)
	assert.Equal(t, 0, leftover)
	assert.Equal(t, 192, s.remaining())

	ref, ok = s.bumpAllocate(160)
	require.True(t, ok)
	assert.Equal(t, makeRef(0, 64), ref)

	_, ok = s.bumpAllocate(64)
	assert.False(t, ok)

	ref, leftover, err = s.acquireNewChunk(64, record)
	require.NoError(t, err)
	assert.Equal(t, makeRef(1, 0), ref)
	assert.Equal(t, 32, leftover)
	assert.Equal(t, []Ref{makeRef(0, 224)}, recycled)
	assert.Equal(t, 2, s.chunkCount())

	// Links round-trip through block memory.
	s.setNext(makeRef(0, 0), makeRef(1, 64))
	assert.Equal(t, makeRef(1, 64), s.next(makeRef(0, 0)))

	// locate inverts bytes for blocks in either chunk.
	for _, r := range []Ref{makeRef(0, 0), makeRef(0, 224), makeRef(1, 64)} {
		got, ok := s.locate(s.bytes(r, 16))
		require.True(t, ok)
		assert.Equal(t, r, got)
	}
	_, ok = s.locate(make([]byte, 16))
	assert.False(t, ok)
}

func TestChunkSource_FailedAcquireChangesNothing(t *testing.T) {
	tracker := NewTrackingAllocator(nil, 256)
	s := newChunkSource(256, tracker)

	_, _, err := s.acquireNewChunk(200, func(Ref, int) { t.Fatal("nothing to recycle") })
	require.NoError(t, err)

	_, _, err = s.acquireNewChunk(200, func(Ref, int) { t.Fatal("leftover recycled before failure") })
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrOutOfMemory)
	assert.Equal(t, 1, s.chunkCount())
	assert.Equal(t, 56, s.remaining())
}
