package memory

import (
	"github.com/RoaringBitmap/roaring/v2"
)

// slotBitmap mirrors "free list of slot s is non-empty" as one bit per slot.
// It is an index over the free-list heads, never a source of truth, and is only
// touched under the pool lock.
type slotBitmap struct {
	bitmap *roaring.Bitmap
}

func newSlotBitmap() *slotBitmap {
	return &slotBitmap{bitmap: roaring.New()}
}

// markNonEmpty sets the bit for slot. Idempotent.
func (b *slotBitmap) markNonEmpty(slot int) {
	b.bitmap.Add(uint32(slot))
}

// markIfEmptied clears the bit for slot when the list lost its last block.
func (b *slotBitmap) markIfEmptied(slot int, stillHasHead bool) {
	if !stillHasHead {
		b.bitmap.Remove(uint32(slot))
	}
}

// findLargestAvailableAtOrAbove returns the highest non-empty slot >= slot.
// Splitting the largest recycled block leaves the most useful remainder.
func (b *slotBitmap) findLargestAvailableAtOrAbove(slot int) (int, bool) {
	if b.bitmap.IsEmpty() {
		return -1, false
	}
	highest := int(b.bitmap.Maximum())
	if highest < slot {
		return -1, false
	}
	return highest, true
}

func (b *slotBitmap) isSet(slot int) bool {
	return b.bitmap.Contains(uint32(slot))
}

func (b *slotBitmap) count() int {
	return int(b.bitmap.GetCardinality())
}

// slots returns the set slots in ascending order.
func (b *slotBitmap) slots() []int {
	raw := b.bitmap.ToArray()
	out := make([]int, len(raw))
	for i, s := range raw {
		out[i] = int(s)
	}
	return out
}
