package benchmark

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/23skdu/nodepool/internal/memory"
)

// Sample is one worker's timing for one trial.
type Sample struct {
	Kind        string `parquet:"kind" json:"kind"`
	Trial       int32  `parquet:"trial" json:"trial"`
	Worker      int32  `parquet:"worker" json:"worker"`
	Count       int64  `parquet:"count" json:"count"`
	InsertNanos int64  `parquet:"insert_ns" json:"insert_ns"`
	DeleteNanos int64  `parquet:"delete_ns" json:"delete_ns"`
}

// KindStats is the final pool snapshot for a pool-backed kind.
type KindStats struct {
	Kind  Kind
	Stats memory.Stats
}

// Report collects the samples of a Run.
type Report struct {
	Pool      string
	Count     int
	Trials    int
	Workers   int
	Samples   []Sample
	PoolStats []KindStats
}

// ByKind returns the samples of kind in trial order.
func (r *Report) ByKind(kind Kind) []Sample {
	var out []Sample
	for _, s := range r.Samples {
		if s.Kind == string(kind) {
			out = append(out, s)
		}
	}
	return out
}

// Total returns the summed insertion and deletion time of kind.
func (r *Report) Total(kind Kind) time.Duration {
	var total int64
	for _, s := range r.ByKind(kind) {
		total += s.InsertNanos + s.DeleteNanos
	}
	return time.Duration(total)
}

func (r *Report) kinds() []Kind {
	var out []Kind
	seen := make(map[string]bool)
	for _, s := range r.Samples {
		if !seen[s.Kind] {
			seen[s.Kind] = true
			out = append(out, Kind(s.Kind))
		}
	}
	return out
}

// Print writes one block per kind: a row of insertion times, a row of deletion
// times (milliseconds, one column per sample) and the total.
func (r *Report) Print(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "pool %s, %d elements, %d trials, %d workers\n",
		r.Pool, r.Count, r.Trials, r.Workers); err != nil {
		return err
	}
	for _, kind := range r.kinds() {
		var ins, del strings.Builder
		for _, s := range r.ByKind(kind) {
			fmt.Fprintf(&ins, "\t%.3f", millis(s.InsertNanos))
			fmt.Fprintf(&del, "\t%.3f", millis(s.DeleteNanos))
		}
		_, err := fmt.Fprintf(w, "========= %s list =========\nInsertion time:%s\nDeletion time :%s\nTotal         :\t%.3f\n",
			kind, ins.String(), del.String(), millis(int64(r.Total(kind))))
		if err != nil {
			return err
		}
	}
	return nil
}

func millis(ns int64) float64 {
	return float64(ns) / float64(time.Millisecond)
}
