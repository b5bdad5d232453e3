package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// BenchPhaseSeconds records the duration of each benchmark phase (insert or delete)
	BenchPhaseSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "nodepool_bench_phase_seconds",
			Help:    "Duration of benchmark insertion and deletion phases",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 16),
		},
		[]string{"kind", "phase"},
	)

	// BenchTrialsTotal counts completed benchmark trials per allocator kind
	BenchTrialsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nodepool_bench_trials_total",
			Help: "Total number of completed benchmark trials",
		},
		[]string{"kind"},
	)
)
