package main

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"math/bits"
	"strings"

	"github.com/23skdu/nodepool/internal/benchmark"
	"github.com/23skdu/nodepool/internal/memory"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const envPrefix = "NODEPOOL"

// Config validation errors
var (
	ErrInvalidAlign         = errors.New("align must be a power of two >= 8")
	ErrInvalidMaxBlockBytes = errors.New("max_block_bytes must be a positive multiple of align")
	ErrInvalidBlocksChunk   = errors.New("blocks_per_chunk must be positive")
	ErrInvalidCount         = errors.New("count must be positive")
	ErrInvalidTrials        = errors.New("trials must be positive")
	ErrInvalidWorkers       = errors.New("workers must be positive")
	ErrInvalidKinds         = errors.New("kinds must name pool, arrow or heap")
	ErrInvalidSystem        = errors.New("system must be 'go' or 'mmap'")
	ErrInvalidMemoryLimit   = errors.New("memory_limit cannot be negative")
	ErrInvalidLogFormat     = errors.New("log_format must be 'json' or 'console'")
	ErrInvalidLogLevel      = errors.New("log_level must be debug, info, warn, or error")
)

// Config is the benchmark configuration, read from NODEPOOL_* environment variables
// and overridable by flags.
type Config struct {
	Align          int      `envconfig:"ALIGN" default:"8"`
	MaxBlockBytes  int      `envconfig:"MAX_BLOCK_BYTES" default:"32768"`
	BlocksPerChunk int      `envconfig:"BLOCKS_PER_CHUNK" default:"10"`
	Count          int      `envconfig:"COUNT" default:"100000"`
	Trials         int      `envconfig:"TRIALS" default:"5"`
	Workers        int      `envconfig:"WORKERS" default:"1"`
	Kinds          []string `envconfig:"KINDS" default:"pool,arrow,heap"`
	System         string   `envconfig:"SYSTEM" default:"go"`
	MemoryLimit    int64    `envconfig:"MEMORY_LIMIT" default:"0"`
	Verify         bool     `envconfig:"VERIFY" default:"false"`
	ParquetPath    string   `envconfig:"PARQUET_PATH"`
	MetricsAddr    string   `envconfig:"METRICS_ADDR"`
	LogLevel       string   `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat      string   `envconfig:"LOG_FORMAT" default:"console"`
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() Config {
	return Config{
		Align:          8,
		MaxBlockBytes:  8 * 4096,
		BlocksPerChunk: memory.DefaultMaxBlocksPerChunk,
		Count:          100000,
		Trials:         5,
		Workers:        1,
		Kinds:          []string{"pool", "arrow", "heap"},
		System:         "go",
		LogLevel:       "info",
		LogFormat:      "console",
	}
}

// LoadConfig loads envFile into the environment when it exists, then processes
// NODEPOOL_* variables. Variables already set take precedence over the file.
func LoadConfig(envFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	var cfg Config
	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return Config{}, fmt.Errorf("process environment: %w", err)
	}
	return cfg, nil
}

// BindFlags registers one flag per field, defaulting to the current values.
func (c *Config) BindFlags(flags *flag.FlagSet) {
	flags.IntVar(&c.Align, "align", c.Align, "Slot step and minimum pooled request size in bytes")
	flags.IntVar(&c.MaxBlockBytes, "max-block-bytes", c.MaxBlockBytes, "Largest request served by the pool")
	flags.IntVar(&c.BlocksPerChunk, "blocks-per-chunk", c.BlocksPerChunk, "Maximum-size blocks per chunk")
	flags.IntVar(&c.Count, "count", c.Count, "Elements inserted and deleted per trial")
	flags.IntVar(&c.Trials, "trials", c.Trials, "Trials per allocator kind")
	flags.IntVar(&c.Workers, "workers", c.Workers, "Concurrent workers sharing one pool")
	flags.Func("kinds", "Comma-separated allocator kinds (pool, arrow, heap)", func(s string) error {
		c.Kinds = strings.Split(s, ",")
		return nil
	})
	flags.StringVar(&c.System, "system", c.System, "System allocator under the pool: 'go' or 'mmap'")
	flags.Int64Var(&c.MemoryLimit, "memory-limit", c.MemoryLimit, "Byte budget for the system allocator (0 = unlimited)")
	flags.BoolVar(&c.Verify, "verify", c.Verify, "Verify pool bookkeeping after every trial")
	flags.StringVar(&c.ParquetPath, "parquet", c.ParquetPath, "Write samples to this Parquet file")
	flags.StringVar(&c.MetricsAddr, "metrics", c.MetricsAddr, "Serve Prometheus metrics on this address")
	flags.StringVar(&c.LogLevel, "log-level", c.LogLevel, "Log level: debug, info, warn, error")
	flags.StringVar(&c.LogFormat, "log-format", c.LogFormat, "Log format: json or console")
}

// ValidateConfig validates the configuration and returns an error if invalid
func ValidateConfig(cfg *Config) error {
	if cfg.Align < memory.MinAlign || bits.OnesCount(uint(cfg.Align)) != 1 {
		return ErrInvalidAlign
	}
	if cfg.MaxBlockBytes < cfg.Align || cfg.MaxBlockBytes%cfg.Align != 0 {
		return ErrInvalidMaxBlockBytes
	}
	if cfg.BlocksPerChunk <= 0 {
		return ErrInvalidBlocksChunk
	}
	if cfg.Count <= 0 {
		return ErrInvalidCount
	}
	if cfg.Trials <= 0 {
		return ErrInvalidTrials
	}
	if cfg.Workers <= 0 {
		return ErrInvalidWorkers
	}
	if _, err := cfg.ParsedKinds(); err != nil {
		return err
	}
	if cfg.System != "go" && cfg.System != "mmap" {
		return ErrInvalidSystem
	}
	if cfg.MemoryLimit < 0 {
		return ErrInvalidMemoryLimit
	}
	if cfg.LogFormat != "json" && cfg.LogFormat != "console" {
		return ErrInvalidLogFormat
	}
	if cfg.LogLevel != "debug" && cfg.LogLevel != "info" && cfg.LogLevel != "warn" && cfg.LogLevel != "error" {
		return ErrInvalidLogLevel
	}
	return nil
}

// ParsedKinds converts Kinds to benchmark kinds.
func (c *Config) ParsedKinds() ([]benchmark.Kind, error) {
	if len(c.Kinds) == 0 {
		return nil, ErrInvalidKinds
	}
	kinds := make([]benchmark.Kind, 0, len(c.Kinds))
	for _, s := range c.Kinds {
		k, err := benchmark.ParseKind(strings.TrimSpace(s))
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidKinds, err)
		}
		kinds = append(kinds, k)
	}
	return kinds, nil
}

// PoolConfig returns the memory.Config the benchmark pools use.
func (c *Config) PoolConfig() memory.Config {
	return memory.Config{
		Align:             c.Align,
		MaxBlockBytes:     c.MaxBlockBytes,
		MaxBlocksPerChunk: c.BlocksPerChunk,
	}
}

// SystemAllocator builds the allocator the pools draw chunks from.
func (c *Config) SystemAllocator() (memory.SystemAllocator, error) {
	var base memory.SystemAllocator
	switch c.System {
	case "go":
		base = memory.NewGoAllocator()
	case "mmap":
		m, err := memory.NewMmapAllocator()
		if err != nil {
			return nil, err
		}
		base = m
	default:
		return nil, ErrInvalidSystem
	}
	if c.MemoryLimit > 0 {
		return memory.NewTrackingAllocator(base, c.MemoryLimit), nil
	}
	return base, nil
}
