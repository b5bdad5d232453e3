package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Allocation paths used as the "path" label.
const (
	PathFreeList = "freelist"
	PathBump     = "bump"
	PathChunk    = "chunk"
	PathSplit    = "split"
	PathBypass   = "bypass"
	PathPool     = "pool"
)

var (
	// PoolAllocationsTotal counts successful allocations by pool and path
	PoolAllocationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nodepool_allocations_total",
			Help: "Total number of allocations served, by pool and allocation path",
		},
		[]string{"pool", "path"},
	)

	// PoolDeallocationsTotal counts deallocations by pool and path (pool or bypass)
	PoolDeallocationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nodepool_deallocations_total",
			Help: "Total number of deallocations, by pool and path",
		},
		[]string{"pool", "path"},
	)

	// PoolOutOfMemoryTotal counts allocations that failed with out-of-memory
	PoolOutOfMemoryTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nodepool_out_of_memory_total",
			Help: "Total number of allocations that failed because the system allocator was exhausted",
		},
		[]string{"pool"},
	)

	// PoolChunksTotal counts chunks acquired from the system allocator
	PoolChunksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nodepool_chunks_total",
			Help: "Total number of chunks acquired from the system allocator",
		},
		[]string{"pool"},
	)

	// PoolChunkBytes tracks bytes held in chunks (never released)
	PoolChunkBytes = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "nodepool_chunk_bytes",
			Help: "Bytes held by the pool in chunks obtained from the system allocator",
		},
		[]string{"pool"},
	)

	// PoolRecycledBytes tracks bytes currently resident in free lists
	PoolRecycledBytes = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "nodepool_recycled_bytes",
			Help: "Bytes currently sitting in free lists awaiting reuse",
		},
		[]string{"pool"},
	)

	// PoolLeftoverBytesTotal counts chunk tail bytes recycled when a chunk is retired
	PoolLeftoverBytesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nodepool_chunk_leftover_bytes_total",
			Help: "Total bytes left at the end of retired chunks and pushed onto free lists",
		},
		[]string{"pool"},
	)
)
