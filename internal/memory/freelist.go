package memory

// freeListTable holds one LIFO list of free blocks per slot. Lists are linked by Ref:
// a free block stores its successor's reference in its first bytes.
type freeListTable struct {
	idx    slotIndexer
	bitmap *slotBitmap
	links  linkStore

	heads  []Ref
	counts []int

	// recycled is the byte total of all blocks currently in the lists.
	recycled int
}

// linkStore reads and writes the successor link stored inside a free block.
type linkStore interface {
	next(ref Ref) Ref
	setNext(ref, next Ref)
}

func newFreeListTable(idx slotIndexer, bitmap *slotBitmap, links linkStore) *freeListTable {
	heads := make([]Ref, idx.slots)
	for i := range heads {
		heads[i] = nilRef
	}
	return &freeListTable{
		idx:    idx,
		bitmap: bitmap,
		links:  links,
		heads:  heads,
		counts: make([]int, idx.slots),
	}
}

// popFront detaches the head of slot's list.
func (t *freeListTable) popFront(slot int) (Ref, bool) {
	head := t.heads[slot]
	if head == nilRef {
		return nilRef, false
	}
	next := t.links.next(head)
	t.heads[slot] = next
	t.counts[slot]--
	t.bitmap.markIfEmptied(slot, next != nilRef)
	t.recycled -= t.idx.blockSize(slot)
	return head, true
}

// pushFront links ref as the new head of slot's list.
func (t *freeListTable) pushFront(slot int, ref Ref) {
	t.links.setNext(ref, t.heads[slot])
	t.heads[slot] = ref
	t.counts[slot]++
	t.bitmap.markNonEmpty(slot)
	t.recycled += t.idx.blockSize(slot)
}

// pushRegion recycles a region whose size is an exact slot size, such as a chunk
// tail or the remainder of a split block.
func (t *freeListTable) pushRegion(ref Ref, bytes int) {
	if bytes < t.idx.align {
		return
	}
	t.pushFront(t.idx.slotOf(bytes), ref)
}

func (t *freeListTable) isEmpty(slot int) bool {
	return t.heads[slot] == nilRef
}
