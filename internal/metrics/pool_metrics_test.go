package metrics_test

import (
	"testing"

	"github.com/23skdu/nodepool/internal/memory"
	"github.com/23skdu/nodepool/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// getGaugeValue retrieves the current value of a gauge metric
func getGaugeValue(t *testing.T, gauge prometheus.Gauge) float64 {
	t.Helper()
	var m dto.Metric
	err := gauge.Write(&m)
	require.NoError(t, err)
	return m.GetGauge().GetValue()
}

// getCounterValue retrieves the current value of a counter metric
func getCounterValue(t *testing.T, counter prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	err := counter.Write(&m)
	require.NoError(t, err)
	return m.GetCounter().GetValue()
}

func TestPoolMetrics_AllocationPaths(t *testing.T) {
	// A label no other test uses: 8-byte slots up to 24 bytes, 72-byte chunks.
	p, err := memory.NewPool(memory.Config{Align: 8, MaxBlockBytes: 24, MaxBlocksPerChunk: 3}, nil, zerolog.Nop())
	require.NoError(t, err)
	label := p.Label()
	require.Equal(t, "8x24", label)

	a, err := p.Allocate(24)
	require.NoError(t, err)
	_, err = p.Allocate(24)
	require.NoError(t, err)
	p.Deallocate(a, 24)
	_, err = p.Allocate(24)
	require.NoError(t, err)
	b, err := p.Allocate(100)
	require.NoError(t, err)
	p.Deallocate(b, 100)

	assert.Equal(t, 1.0, getCounterValue(t, metrics.PoolAllocationsTotal.WithLabelValues(label, metrics.PathChunk)))
	assert.Equal(t, 1.0, getCounterValue(t, metrics.PoolAllocationsTotal.WithLabelValues(label, metrics.PathBump)))
	assert.Equal(t, 1.0, getCounterValue(t, metrics.PoolAllocationsTotal.WithLabelValues(label, metrics.PathFreeList)))
	assert.Equal(t, 1.0, getCounterValue(t, metrics.PoolAllocationsTotal.WithLabelValues(label, metrics.PathBypass)))
	assert.Equal(t, 1.0, getCounterValue(t, metrics.PoolDeallocationsTotal.WithLabelValues(label, metrics.PathPool)))
	assert.Equal(t, 1.0, getCounterValue(t, metrics.PoolDeallocationsTotal.WithLabelValues(label, metrics.PathBypass)))
	assert.Equal(t, 1.0, getCounterValue(t, metrics.PoolChunksTotal.WithLabelValues(label)))
	assert.Equal(t, 72.0, getGaugeValue(t, metrics.PoolChunkBytes.WithLabelValues(label)))
	assert.Equal(t, 0.0, getGaugeValue(t, metrics.PoolRecycledBytes.WithLabelValues(label)))
}

func TestPoolMetrics_OutOfMemory(t *testing.T) {
	p, err := memory.NewPool(memory.Config{Align: 8, MaxBlockBytes: 40, MaxBlocksPerChunk: 2},
		memory.NewTrackingAllocator(nil, 16), zerolog.Nop())
	require.NoError(t, err)

	_, err = p.Allocate(16)
	require.ErrorIs(t, err, memory.ErrOutOfMemory)

	assert.Equal(t, 1.0, getCounterValue(t, metrics.PoolOutOfMemoryTotal.WithLabelValues(p.Label())))
	assert.Equal(t, 0.0, getCounterValue(t, metrics.PoolChunksTotal.WithLabelValues(p.Label())))
}
