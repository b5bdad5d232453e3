package memory

// slotIndexer maps request sizes to size classes. Slot s serves requests whose
// size rounded up to align is (s+1)*align.
type slotIndexer struct {
	align    int
	maxBlock int
	slots    int
}

func newSlotIndexer(cfg Config) slotIndexer {
	return slotIndexer{
		align:    cfg.Align,
		maxBlock: cfg.MaxBlockBytes,
		slots:    cfg.Slots(),
	}
}

// inPoolRange reports whether a request is served by the pool rather than bypassing it.
// Requests smaller than align bypass on purpose so tiny objects never occupy a full slot.
func (s slotIndexer) inPoolRange(bytes int) bool {
	return bytes >= s.align && bytes <= s.maxBlock
}

// slotOf returns ceil(bytes/align)-1. bytes must be >= 1.
func (s slotIndexer) slotOf(bytes int) int {
	return (bytes+s.align-1)/s.align - 1
}

// blockSize returns the byte size of blocks in slot.
func (s slotIndexer) blockSize(slot int) int {
	return s.align * (slot + 1)
}

// roundUp returns the block size that serves a request of bytes.
func (s slotIndexer) roundUp(bytes int) int {
	return s.blockSize(s.slotOf(bytes))
}
