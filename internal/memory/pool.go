package memory

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/23skdu/nodepool/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

// Pool serves blocks of Align..MaxBlockBytes bytes from per-size-class free lists,
// falling back to bump allocation inside chunks obtained from a SystemAllocator.
// Requests outside that range go straight to the system allocator.
//
// Pool is safe for concurrent use. One mutex guards the free lists, the bitmap and
// the chunk cursor; the bypass path never takes it.
type Pool struct {
	cfg       Config
	label     string
	idx       slotIndexer
	threshold int
	system    SystemAllocator
	logger    zerolog.Logger

	mu     sync.Mutex
	bitmap *slotBitmap
	free   *freeListTable
	chunks *chunkSource

	counters poolCounters
	metrics  poolMetrics
}

type poolCounters struct {
	freeListHits   atomic.Int64
	bumps          atomic.Int64
	newChunks      atomic.Int64
	splits         atomic.Int64
	bypass         atomic.Int64
	deallocations  atomic.Int64
	bypassFrees    atomic.Int64
	outOfMemory    atomic.Int64
	leftoverBytes  atomic.Int64
	splitRemainder atomic.Int64
}

type poolMetrics struct {
	allocs        map[string]prometheus.Counter
	poolFrees     prometheus.Counter
	bypassFrees   prometheus.Counter
	outOfMemory   prometheus.Counter
	chunks        prometheus.Counter
	chunkBytes    prometheus.Gauge
	recycledBytes prometheus.Gauge
	leftoverBytes prometheus.Counter
}

func newPoolMetrics(label string) poolMetrics {
	allocs := make(map[string]prometheus.Counter, 5)
	for _, path := range []string{metrics.PathFreeList, metrics.PathBump, metrics.PathChunk, metrics.PathSplit, metrics.PathBypass} {
		allocs[path] = metrics.PoolAllocationsTotal.WithLabelValues(label, path)
	}
	return poolMetrics{
		allocs:        allocs,
		poolFrees:     metrics.PoolDeallocationsTotal.WithLabelValues(label, metrics.PathPool),
		bypassFrees:   metrics.PoolDeallocationsTotal.WithLabelValues(label, metrics.PathBypass),
		outOfMemory:   metrics.PoolOutOfMemoryTotal.WithLabelValues(label),
		chunks:        metrics.PoolChunksTotal.WithLabelValues(label),
		chunkBytes:    metrics.PoolChunkBytes.WithLabelValues(label),
		recycledBytes: metrics.PoolRecycledBytes.WithLabelValues(label),
		leftoverBytes: metrics.PoolLeftoverBytesTotal.WithLabelValues(label),
	}
}

// NewPool validates cfg and returns an empty pool. No memory is acquired until the
// first pooled allocation. A nil system uses NewGoAllocator.
func NewPool(cfg Config, system SystemAllocator, logger zerolog.Logger) (*Pool, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if system == nil {
		system = NewGoAllocator()
	}

	label := cfg.String()
	idx := newSlotIndexer(cfg)
	chunks := newChunkSource(cfg.ChunkSize(), system)
	bitmap := newSlotBitmap()

	p := &Pool{
		cfg:       cfg,
		label:     label,
		idx:       idx,
		threshold: cfg.RecycleThreshold(),
		system:    system,
		logger:    logger.With().Str("pool", label).Logger(),
		bitmap:    bitmap,
		free:      newFreeListTable(idx, bitmap, chunks),
		chunks:    chunks,
		metrics:   newPoolMetrics(label),
	}
	return p, nil
}

// Config returns the pool's configuration with defaults applied.
func (p *Pool) Config() Config { return p.cfg }

// Label returns the "<align>x<max>" name used in logs and metrics.
func (p *Pool) Label() string { return p.label }

// Allocate returns a block of at least n bytes. The slice has length n and capacity
// equal to the block size of n's size class, and must be returned with Deallocate
// using the same n. Contents are not zeroed.
//
// n == 0 returns nil. Requests smaller than Align or larger than MaxBlockBytes bypass
// the pool entirely, so a tiny object never occupies a whole slot. The only error is
// one satisfying errors.Is(err, ErrOutOfMemory), in which case pool state is unchanged.
func (p *Pool) Allocate(n int) ([]byte, error) {
	if n == 0 {
		return nil, nil
	}
	if n < 0 {
		p.recordOutOfMemory(n)
		return nil, outOfMemory("allocate", p.label, n, errors.New("negative size"))
	}

	if !p.idx.inPoolRange(n) {
		b, err := p.system.Allocate(n)
		if err != nil {
			p.recordOutOfMemory(n)
			return nil, outOfMemory("allocate", p.label, n, err)
		}
		p.counters.bypass.Add(1)
		p.metrics.allocs[metrics.PathBypass].Inc()
		return b[:n], nil
	}

	slot := p.idx.slotOf(n)
	size := p.idx.blockSize(slot)

	p.mu.Lock()
	ref, path, err := p.allocateLocked(slot)
	if err != nil {
		p.mu.Unlock()
		p.recordOutOfMemory(n)
		return nil, outOfMemory("allocate", p.label, n, err)
	}
	b := p.chunks.bytes(ref, size)
	recycled := p.free.recycled
	p.mu.Unlock()

	p.metrics.allocs[path].Inc()
	p.metrics.recycledBytes.Set(float64(recycled))
	return b[:n], nil
}

func (p *Pool) allocateLocked(slot int) (Ref, string, error) {
	if ref, ok := p.free.popFront(slot); ok {
		p.counters.freeListHits.Add(1)
		return ref, metrics.PathFreeList, nil
	}
	return p.acquireChunkOrSplit(slot)
}

// acquireChunkOrSplit serves a free-list miss. Bump allocation comes first. Once the
// free lists hold at least RecycleThreshold bytes, the largest recycled block that
// fits is split before any new chunk is requested.
func (p *Pool) acquireChunkOrSplit(slot int) (Ref, string, error) {
	size := p.idx.blockSize(slot)

	if ref, ok := p.chunks.bumpAllocate(size); ok {
		p.counters.bumps.Add(1)
		return ref, metrics.PathBump, nil
	}

	if p.free.recycled >= p.threshold {
		if larger, ok := p.bitmap.findLargestAvailableAtOrAbove(slot); ok {
			ref, _ := p.free.popFront(larger)
			remainder := p.idx.blockSize(larger) - size
			if remainder > 0 {
				p.free.pushRegion(ref.advance(size), remainder)
				p.counters.splitRemainder.Add(int64(remainder))
			}
			p.counters.splits.Add(1)
			p.logger.Debug().
				Int("block_bytes", size).
				Int("split_bytes", p.idx.blockSize(larger)).
				Int("remainder_bytes", remainder).
				Msg("Split recycled block")
			return ref, metrics.PathSplit, nil
		}
	}

	ref, leftover, err := p.chunks.acquireNewChunk(size, p.free.pushRegion)
	if err != nil {
		return nilRef, "", err
	}
	p.counters.newChunks.Add(1)
	p.counters.leftoverBytes.Add(int64(leftover))
	p.metrics.chunks.Inc()
	p.metrics.chunkBytes.Set(float64(p.chunks.chunkCount() * p.chunks.size))
	if leftover > 0 {
		p.metrics.leftoverBytes.Add(float64(leftover))
	}
	p.logger.Debug().
		Int("chunks", p.chunks.chunkCount()).
		Int("chunk_bytes", p.chunks.size).
		Int("leftover_bytes", leftover).
		Int("recycled_bytes", p.free.recycled).
		Msg("Acquired new chunk")
	return ref, metrics.PathChunk, nil
}

// Deallocate returns a block obtained from Allocate(n). nil and n <= 0 are no-ops.
// Passing a different n, freeing twice or freeing memory from another pool is
// undefined; a pooled-range slice that lies outside every chunk panics with an
// error wrapping ErrForeignBlock.
func (p *Pool) Deallocate(b []byte, n int) {
	if b == nil || n <= 0 {
		return
	}

	if !p.idx.inPoolRange(n) {
		p.system.Free(b)
		p.counters.bypassFrees.Add(1)
		p.metrics.bypassFrees.Inc()
		return
	}

	slot := p.idx.slotOf(n)

	p.mu.Lock()
	ref, ok := p.chunks.locate(b)
	if !ok {
		p.mu.Unlock()
		panic(fmt.Errorf("%w: %d bytes at %#x in pool %s", ErrForeignBlock, n, sliceBase(b), p.label))
	}
	p.free.pushFront(slot, ref)
	recycled := p.free.recycled
	p.mu.Unlock()

	p.counters.deallocations.Add(1)
	p.metrics.poolFrees.Inc()
	p.metrics.recycledBytes.Set(float64(recycled))
}

func (p *Pool) recordOutOfMemory(n int) {
	p.counters.outOfMemory.Add(1)
	p.metrics.outOfMemory.Inc()
	p.logger.Warn().Int("bytes", n).Msg("Pool allocation failed: out of memory")
}

// blockCap returns the capacity of the slice Allocate(n) returns.
func (p *Pool) blockCap(n int) int {
	if !p.idx.inPoolRange(n) {
		return n
	}
	return p.idx.roundUp(n)
}
