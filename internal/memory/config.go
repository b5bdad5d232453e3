package memory

import (
	"fmt"
	"math/bits"
)

const (
	// MinAlign is the smallest supported slot step. A free block stores the
	// reference of its successor in its first MinAlign bytes.
	MinAlign = refSize

	// DefaultMaxBlocksPerChunk is the number of maximum-size blocks one chunk holds.
	DefaultMaxBlocksPerChunk = 10

	// recycleThresholdDivisor sets the recycling threshold to 10% of one chunk.
	recycleThresholdDivisor = 10

	// maxChunkSize keeps chunk offsets representable in the low half of a Ref.
	maxChunkSize = 1<<32 - 1
)

// Config identifies a pool. Every adapter built over the same (Align, MaxBlockBytes)
// pair shares one Pool through a Registry.
type Config struct {
	// Align is the slot step and the minimum pooled request size. Power of two, >= MinAlign.
	Align int
	// MaxBlockBytes is the largest request served by the pool. Multiple of Align.
	MaxBlockBytes int
	// MaxBlocksPerChunk sizes chunks as MaxBlockBytes*MaxBlocksPerChunk. Zero means default.
	MaxBlocksPerChunk int
}

// DefaultConfig mirrors a node pool for 8-byte values: 8-byte slots up to 32KB.
func DefaultConfig() Config {
	return Config{
		Align:             8,
		MaxBlockBytes:     8 * 4096,
		MaxBlocksPerChunk: DefaultMaxBlocksPerChunk,
	}
}

// withDefaults fills zero-valued optional fields.
func (c Config) withDefaults() Config {
	if c.MaxBlocksPerChunk == 0 {
		c.MaxBlocksPerChunk = DefaultMaxBlocksPerChunk
	}
	return c
}

// Validate reports the first invalid field.
func (c Config) Validate() error {
	c = c.withDefaults()
	switch {
	case c.Align < MinAlign:
		return invalidConfig("align", fmt.Sprintf("must be >= %d", MinAlign), c.Align)
	case bits.OnesCount(uint(c.Align)) != 1:
		return invalidConfig("align", "must be a power of two", c.Align)
	case c.MaxBlockBytes < c.Align:
		return invalidConfig("max_block_bytes", "must be >= align", c.MaxBlockBytes)
	case c.MaxBlockBytes%c.Align != 0:
		return invalidConfig("max_block_bytes", "must be a multiple of align", c.MaxBlockBytes)
	case c.MaxBlocksPerChunk < 1:
		return invalidConfig("max_blocks_per_chunk", "must be positive", c.MaxBlocksPerChunk)
	case c.MaxBlockBytes > maxChunkSize/c.MaxBlocksPerChunk:
		return invalidConfig("max_blocks_per_chunk", "chunk size exceeds 4GB", c.MaxBlocksPerChunk)
	}
	return nil
}

// Slots returns the number of size classes.
func (c Config) Slots() int {
	return c.MaxBlockBytes / c.Align
}

// ChunkSize returns the byte size of every chunk the pool acquires.
func (c Config) ChunkSize() int {
	return c.MaxBlockBytes * c.withDefaults().MaxBlocksPerChunk
}

// RecycleThreshold is the recycled byte count at which the pool starts splitting
// free blocks instead of acquiring new chunks.
func (c Config) RecycleThreshold() int {
	return c.ChunkSize() / recycleThresholdDivisor
}

// String renders the registry key, e.g. "16x64".
func (c Config) String() string {
	return fmt.Sprintf("%dx%d", c.Align, c.MaxBlockBytes)
}

type poolKey struct {
	align    int
	maxBlock int
}

func (c Config) key() poolKey {
	return poolKey{align: c.Align, maxBlock: c.MaxBlockBytes}
}
