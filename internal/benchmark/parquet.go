package benchmark

import (
	"errors"
	"fmt"
	"io"

	"github.com/parquet-go/parquet-go"
)

// WriteParquet exports one row per sample.
func (r *Report) WriteParquet(w io.Writer) error {
	pw := parquet.NewGenericWriter[Sample](w, parquet.Compression(&parquet.Zstd))
	if _, err := pw.Write(r.Samples); err != nil {
		_ = pw.Close()
		return fmt.Errorf("write samples: %w", err)
	}
	if err := pw.Close(); err != nil {
		return fmt.Errorf("close parquet writer: %w", err)
	}
	return nil
}

// ReadSamples loads samples written by WriteParquet.
func ReadSamples(r io.ReaderAt, size int64) ([]Sample, error) {
	pf, err := parquet.OpenFile(r, size)
	if err != nil {
		return nil, fmt.Errorf("open parquet: %w", err)
	}
	pr := parquet.NewGenericReader[Sample](pf)
	defer pr.Close()

	samples := make([]Sample, pf.NumRows())
	n, err := pr.Read(samples)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("read samples: %w", err)
	}
	return samples[:n], nil
}
