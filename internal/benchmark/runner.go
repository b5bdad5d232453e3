// Package benchmark times a node container through N insertions followed by N
// deletions for several allocator kinds.
package benchmark

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/23skdu/nodepool/internal/container"
	"github.com/23skdu/nodepool/internal/memory"
	"github.com/23skdu/nodepool/internal/metrics"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Kind selects the allocator behind a trial.
type Kind string

const (
	// KindPool runs a list whose nodes come from a memory.Pool.
	KindPool Kind = "pool"
	// KindHeap runs a list whose nodes come from the Go heap.
	KindHeap Kind = "heap"
	// KindArrow appends to an Arrow builder drawing buffers from a memory.Pool.
	KindArrow Kind = "arrow"
)

// AllKinds lists every kind in report order.
var AllKinds = []Kind{KindPool, KindArrow, KindHeap}

var ErrUnknownKind = errors.New("benchmark: unknown allocator kind")

// ParseKind validates a kind name.
func ParseKind(s string) (Kind, error) {
	for _, k := range AllKinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// Options configures Run.
type Options struct {
	Pool    memory.Config
	System  memory.SystemAllocator
	Kinds   []Kind
	Count   int
	Trials  int
	Workers int
	// Verify checks pool bookkeeping after every trial.
	Verify bool
	Logger zerolog.Logger
}

func (o Options) withDefaults() Options {
	if o.Pool == (memory.Config{}) {
		o.Pool = memory.DefaultConfig()
	}
	if len(o.Kinds) == 0 {
		o.Kinds = AllKinds
	}
	if o.Count <= 0 {
		o.Count = 100000
	}
	if o.Trials <= 0 {
		o.Trials = 5
	}
	if o.Workers <= 0 {
		o.Workers = 1
	}
	return o
}

// Run executes every trial for every kind. Each kind gets a fresh pool that all of
// its trials and workers share, so later trials see recycled blocks.
func Run(ctx context.Context, opts Options) (*Report, error) {
	opts = opts.withDefaults()
	report := &Report{
		Pool:    opts.Pool.String(),
		Count:   opts.Count,
		Trials:  opts.Trials,
		Workers: opts.Workers,
	}

	for _, kind := range opts.Kinds {
		var pool *memory.Pool
		if kind != KindHeap {
			p, err := memory.NewPool(opts.Pool, opts.System, opts.Logger)
			if err != nil {
				return nil, err
			}
			pool = p
		}

		for trial := 0; trial < opts.Trials; trial++ {
			if err := ctx.Err(); err != nil {
				return report, err
			}
			samples, err := runTrial(ctx, kind, pool, trial, opts)
			if err != nil {
				return report, fmt.Errorf("%s trial %d: %w", kind, trial, err)
			}
			report.Samples = append(report.Samples, samples...)

			if opts.Verify && pool != nil {
				if err := pool.Verify(); err != nil {
					return report, fmt.Errorf("%s trial %d: pool verification failed: %w", kind, trial, err)
				}
			}
			metrics.BenchTrialsTotal.WithLabelValues(string(kind)).Inc()
		}

		if pool != nil {
			report.PoolStats = append(report.PoolStats, KindStats{Kind: kind, Stats: pool.Stats()})
		}
		opts.Logger.Info().
			Str("kind", string(kind)).
			Int("trials", opts.Trials).
			Int("workers", opts.Workers).
			Msg("Benchmark kind complete")
	}
	return report, nil
}

func runTrial(ctx context.Context, kind Kind, pool *memory.Pool, trial int, opts Options) ([]Sample, error) {
	samples := make([]Sample, opts.Workers)
	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < opts.Workers; w++ {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			insert, del, err := runPhases(kind, pool, opts.Count)
			if err != nil {
				return err
			}
			samples[w] = Sample{
				Kind:        string(kind),
				Trial:       int32(trial),
				Worker:      int32(w),
				Count:       int64(opts.Count),
				InsertNanos: insert.Nanoseconds(),
				DeleteNanos: del.Nanoseconds(),
			}
			metrics.BenchPhaseSeconds.WithLabelValues(string(kind), "insert").Observe(insert.Seconds())
			metrics.BenchPhaseSeconds.WithLabelValues(string(kind), "delete").Observe(del.Seconds())
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return samples, nil
}

func runPhases(kind Kind, pool *memory.Pool, n int) (time.Duration, time.Duration, error) {
	switch kind {
	case KindPool:
		l, err := container.NewPooled[uint64](pool)
		if err != nil {
			return 0, 0, err
		}
		return timeList(l, n)
	case KindHeap:
		return timeList(container.NewHeap[uint64](), n)
	case KindArrow:
		return timeArrow(pool, n)
	}
	return 0, 0, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
}

func timeList(l *container.List[uint64], n int) (time.Duration, time.Duration, error) {
	start := time.Now()
	for i := 0; i < n; i++ {
		if err := l.PushBack(uint64(i)); err != nil {
			l.Clear()
			return 0, 0, err
		}
	}
	insert := time.Since(start)

	start = time.Now()
	for i := 0; i < n; i++ {
		if _, ok := l.PopFront(); !ok {
			return 0, 0, fmt.Errorf("list drained after %d of %d deletions", i, n)
		}
	}
	return insert, time.Since(start), nil
}

// timeArrow counts building as insertion and releasing the array as deletion.
func timeArrow(pool *memory.Pool, n int) (insert, del time.Duration, err error) {
	alloc := memory.NewArrowAllocator(pool)
	defer func() {
		// ArrowAllocator panics on out-of-memory.
		if r := recover(); r != nil {
			if e, ok := r.(error); ok && errors.Is(e, memory.ErrOutOfMemory) {
				err = e
				return
			}
			panic(r)
		}
	}()

	start := time.Now()
	b := array.NewUint64Builder(alloc)
	for i := 0; i < n; i++ {
		b.Append(uint64(i))
	}
	arr := b.NewUint64Array()
	insert = time.Since(start)

	start = time.Now()
	arr.Release()
	b.Release()
	del = time.Since(start)
	return insert, del, nil
}
