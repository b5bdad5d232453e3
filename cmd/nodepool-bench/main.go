package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/23skdu/nodepool/internal/benchmark"
	"github.com/23skdu/nodepool/internal/logging"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "nodepool-bench:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	envFile := os.Getenv(envPrefix + "_ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}
	cfg, err := LoadConfig(envFile)
	if err != nil {
		return err
	}

	fs := flag.NewFlagSet("nodepool-bench", flag.ContinueOnError)
	fs.SetOutput(stderr)
	cfg.BindFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := ValidateConfig(&cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger, err := logging.NewLogger(logging.Config{
		Format: cfg.LogFormat,
		Level:  cfg.LogLevel,
		Output: stderr,
	})
	if err != nil {
		return err
	}

	system, err := cfg.SystemAllocator()
	if err != nil {
		return err
	}
	kinds, err := cfg.ParsedKinds()
	if err != nil {
		return err
	}

	if cfg.MetricsAddr != "" {
		srv := startMetricsServer(cfg.MetricsAddr, logger)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	logger.Info().
		Str("pool", cfg.PoolConfig().String()).
		Int("count", cfg.Count).
		Int("trials", cfg.Trials).
		Int("workers", cfg.Workers).
		Str("system", cfg.System).
		Msg("Starting benchmark")

	report, err := benchmark.Run(ctx, benchmark.Options{
		Pool:    cfg.PoolConfig(),
		System:  system,
		Kinds:   kinds,
		Count:   cfg.Count,
		Trials:  cfg.Trials,
		Workers: cfg.Workers,
		Verify:  cfg.Verify,
		Logger:  logger,
	})
	if err != nil {
		return err
	}

	if err := report.Print(stdout); err != nil {
		return err
	}
	for _, ks := range report.PoolStats {
		logger.Info().
			Str("kind", string(ks.Kind)).
			Int("chunks", ks.Stats.Chunks).
			Int("chunk_bytes", ks.Stats.ChunkBytes).
			Int("recycled_bytes", ks.Stats.RecycledBytes).
			Int64("free_list_hits", ks.Stats.FreeListHits).
			Int64("splits", ks.Stats.Splits).
			Int64("bypass", ks.Stats.BypassAllocations).
			Msg("Pool stats")
	}

	if cfg.ParquetPath != "" {
		if err := writeParquet(cfg.ParquetPath, report); err != nil {
			return err
		}
		logger.Info().Str("path", cfg.ParquetPath).Int("samples", len(report.Samples)).Msg("Wrote samples")
	}
	return nil
}

func writeParquet(path string, report *benchmark.Report) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := report.WriteParquet(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func startMetricsServer(addr string, logger zerolog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		logger.Info().Str("address", addr).Msg("Starting metrics server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("Metrics server failed")
		}
	}()
	return srv
}
