package memory

import (
	"fmt"
)

// SlotStats describes one non-empty free list.
type SlotStats struct {
	Slot       int `json:"slot"`
	BlockBytes int `json:"block_bytes"`
	FreeBlocks int `json:"free_blocks"`
}

// Stats is a point-in-time snapshot of a Pool.
type Stats struct {
	Pool   string `json:"pool"`
	Config Config `json:"config"`

	Chunks         int `json:"chunks"`
	ChunkBytes     int `json:"chunk_bytes"`
	ChunkRemaining int `json:"chunk_remaining"`
	RecycledBytes  int `json:"recycled_bytes"`
	NonEmptySlots  int `json:"non_empty_slots"`

	FreeLists []SlotStats `json:"free_lists,omitempty"`

	FreeListHits        int64 `json:"free_list_hits"`
	BumpAllocations     int64 `json:"bump_allocations"`
	ChunkAllocations    int64 `json:"chunk_allocations"`
	Splits              int64 `json:"splits"`
	BypassAllocations   int64 `json:"bypass_allocations"`
	Deallocations       int64 `json:"deallocations"`
	BypassDeallocations int64 `json:"bypass_deallocations"`
	OutOfMemory         int64 `json:"out_of_memory"`
	LeftoverBytes       int64 `json:"leftover_bytes"`
	SplitRemainderBytes int64 `json:"split_remainder_bytes"`
}

// PooledAllocations is the number of allocations served on the pool path.
func (s Stats) PooledAllocations() int64 {
	return s.FreeListHits + s.BumpAllocations + s.ChunkAllocations + s.Splits
}

// Stats returns a snapshot of the pool.
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	s := Stats{
		Pool:           p.label,
		Config:         p.cfg,
		Chunks:         p.chunks.chunkCount(),
		ChunkBytes:     p.chunks.chunkCount() * p.chunks.size,
		ChunkRemaining: p.chunks.remaining(),
		RecycledBytes:  p.free.recycled,
		NonEmptySlots:  p.bitmap.count(),
	}
	for _, slot := range p.bitmap.slots() {
		s.FreeLists = append(s.FreeLists, SlotStats{
			Slot:       slot,
			BlockBytes: p.idx.blockSize(slot),
			FreeBlocks: p.free.counts[slot],
		})
	}
	p.mu.Unlock()

	s.FreeListHits = p.counters.freeListHits.Load()
	s.BumpAllocations = p.counters.bumps.Load()
	s.ChunkAllocations = p.counters.newChunks.Load()
	s.Splits = p.counters.splits.Load()
	s.BypassAllocations = p.counters.bypass.Load()
	s.Deallocations = p.counters.deallocations.Load()
	s.BypassDeallocations = p.counters.bypassFrees.Load()
	s.OutOfMemory = p.counters.outOfMemory.Load()
	s.LeftoverBytes = p.counters.leftoverBytes.Load()
	s.SplitRemainderBytes = p.counters.splitRemainder.Load()
	return s
}

// Verify walks every free list and checks the bookkeeping: list lengths match the
// per-slot counts, a slot's bit is set exactly when its list is non-empty, every
// free block lies inside a chunk, and the recycled counter equals the bytes held in
// the lists.
func (p *Pool) Verify() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	// No list can be longer than the number of minimum-size blocks in all chunks.
	limit := p.chunks.chunkCount()*p.chunks.size/p.idx.align + 1
	total := 0
	nonEmpty := 0

	for slot := 0; slot < p.idx.slots; slot++ {
		size := p.idx.blockSize(slot)
		head := p.free.heads[slot]

		if (head != nilRef) != p.bitmap.isSet(slot) {
			return fmt.Errorf("slot %d: bitmap bit %t but head %s", slot, p.bitmap.isSet(slot), head)
		}
		if head != nilRef {
			nonEmpty++
		}

		n := 0
		for ref := head; ref != nilRef; ref = p.chunks.next(ref) {
			if ref.Chunk() >= p.chunks.chunkCount() || ref.Offset()+size > p.chunks.size {
				return fmt.Errorf("slot %d: block %s outside chunk bounds", slot, ref)
			}
			n++
			if n > limit {
				return fmt.Errorf("slot %d: free list cycle", slot)
			}
		}
		if n != p.free.counts[slot] {
			return fmt.Errorf("slot %d: list holds %d blocks, count is %d", slot, n, p.free.counts[slot])
		}
		total += n * size
	}

	if nonEmpty != p.bitmap.count() {
		return fmt.Errorf("bitmap has %d bits set, %d lists non-empty", p.bitmap.count(), nonEmpty)
	}
	if total != p.free.recycled {
		return fmt.Errorf("recycled counter %d, lists hold %d bytes", p.free.recycled, total)
	}
	return nil
}
