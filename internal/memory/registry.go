package memory

import (
	"fmt"
	"sort"
	"sync"

	"github.com/23skdu/nodepool/internal/logging"
	"github.com/rs/zerolog"
)

// Registry owns the pools shared by every allocator built over the same
// (Align, MaxBlockBytes) pair, whatever their element type.
type Registry struct {
	system SystemAllocator
	logger zerolog.Logger

	mu    sync.RWMutex
	pools map[poolKey]*Pool
}

// DefaultRegistry is the process-wide registry used by Shared and SharedAllocator.
var DefaultRegistry = NewRegistry(nil, logging.DiscardLogger())

// NewRegistry returns an empty registry whose pools draw chunks from system.
// A nil system uses NewGoAllocator.
func NewRegistry(system SystemAllocator, logger zerolog.Logger) *Registry {
	if system == nil {
		system = NewGoAllocator()
	}
	return &Registry{
		system: system,
		logger: logger,
		pools:  make(map[poolKey]*Pool),
	}
}

// Get returns the pool for cfg, creating it on first use. A pool already registered
// for the same pair with a different MaxBlocksPerChunk yields ErrConfigMismatch.
func (r *Registry) Get(cfg Config) (*Pool, error) {
	cfg = cfg.withDefaults()
	key := cfg.key()

	r.mu.RLock()
	p, ok := r.pools[key]
	r.mu.RUnlock()
	if ok {
		return checkMatch(p, cfg)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Double-check after acquiring write lock
	if p, ok := r.pools[key]; ok {
		return checkMatch(p, cfg)
	}

	p, err := NewPool(cfg, r.system, r.logger)
	if err != nil {
		return nil, err
	}
	r.pools[key] = p
	r.logger.Debug().
		Str("pool", p.Label()).
		Int("chunk_bytes", cfg.ChunkSize()).
		Msg("Registered pool")
	return p, nil
}

func checkMatch(p *Pool, cfg Config) (*Pool, error) {
	if have := p.Config().MaxBlocksPerChunk; have != cfg.MaxBlocksPerChunk {
		return nil, fmt.Errorf("%w: pool %s has %d blocks per chunk, requested %d",
			ErrConfigMismatch, p.Label(), have, cfg.MaxBlocksPerChunk)
	}
	return p, nil
}

// Pools returns a snapshot of all registered pools ordered by label.
func (r *Registry) Pools() []*Pool {
	r.mu.RLock()
	snapshot := make([]*Pool, 0, len(r.pools))
	for _, p := range r.pools {
		snapshot = append(snapshot, p)
	}
	r.mu.RUnlock()

	sort.Slice(snapshot, func(i, j int) bool {
		a, b := snapshot[i].Config(), snapshot[j].Config()
		if a.Align != b.Align {
			return a.Align < b.Align
		}
		return a.MaxBlockBytes < b.MaxBlockBytes
	})
	return snapshot
}

// Shared returns the DefaultRegistry pool for cfg.
func Shared(cfg Config) (*Pool, error) {
	return DefaultRegistry.Get(cfg)
}
