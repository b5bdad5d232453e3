package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMetricsInitialization(t *testing.T) {
	assert.NotNil(t, PoolAllocationsTotal)
	assert.NotNil(t, PoolDeallocationsTotal)
	assert.NotNil(t, PoolOutOfMemoryTotal)
	assert.NotNil(t, PoolChunksTotal)
	assert.NotNil(t, PoolChunkBytes)
	assert.NotNil(t, PoolRecycledBytes)
	assert.NotNil(t, PoolLeftoverBytesTotal)
	assert.NotNil(t, BenchPhaseSeconds)
	assert.NotNil(t, BenchTrialsTotal)
}
