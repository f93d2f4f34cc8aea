// Package config loads tool configuration from YAML files. The
// library itself is configured in code through store.Options; this
// package serves the command-line tools around it.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/packdb/packdb/pkg/validation"
)

// Bench describes an ingest benchmark run. Every field has a flag
// equivalent in packdb-bench; a YAML file supplies the baseline and
// explicit flags win.
type Bench struct {
	// DataDir is the store directory; it is removed before the run.
	DataDir string `yaml:"data_dir" validate:"required"`

	// Records is the total number of records to insert.
	Records int `yaml:"records" validate:"gt=0"`

	// KeySize and ValueSize shape each record. Keys are random bytes;
	// values are zero-filled, matching a fixed-size transaction blob.
	KeySize   int `yaml:"key_size" validate:"gt=0,lte=16777215"`
	ValueSize int `yaml:"value_size" validate:"gte=0,lte=16777215"`

	// TxPerBlock and BlocksPerBatch shape the commit cadence: one
	// Batch every TxPerBlock*BlocksPerBatch inserts.
	TxPerBlock     int `yaml:"tx_per_block" validate:"gt=0"`
	BlocksPerBatch int `yaml:"blocks_per_batch" validate:"gt=0"`

	// CheckRate samples every Nth inserted key for the shuffled
	// re-read phase; zero skips the read phase.
	CheckRate int `yaml:"check_rate" validate:"gte=0"`

	// BucketCount sizes the index at creation; zero keeps the default.
	BucketCount uint64 `yaml:"bucket_count"`

	// Compression selects the value encoding for the new store.
	Compression string `yaml:"compression" validate:"omitempty,oneof=none snappy"`

	// MetricsAddr, when set, serves Prometheus metrics during the run.
	MetricsAddr string `yaml:"metrics_addr"`

	// Seed fixes the key stream for reproducible runs; zero derives
	// one from the clock.
	Seed int64 `yaml:"seed"`

	// LogLevel adjusts engine logging (debug, info, warn, error).
	LogLevel string `yaml:"log_level" validate:"omitempty,oneof=debug info warn error"`
}

// DefaultBench returns the baseline run: a million 32-byte keys with
// 300-byte values, one batch per hundred thousand inserts.
func DefaultBench() Bench {
	return Bench{
		DataDir:        "./data/packdb-bench",
		Records:        1_000_000,
		KeySize:        32,
		ValueSize:      300,
		TxPerBlock:     1000,
		BlocksPerBatch: 100,
		CheckRate:      100,
		Compression:    "none",
		LogLevel:       "warn",
	}
}

// LoadBench reads a Bench from a YAML file. Fields absent from the
// file keep their defaults.
func LoadBench(path string) (Bench, error) {
	cfg := DefaultBench()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the run parameters.
func (c Bench) Validate() error {
	if err := validation.Struct(c); err != nil {
		return fmt.Errorf("invalid benchmark config: %w", err)
	}
	return nil
}

// BatchEvery returns the number of inserts between batches.
func (c Bench) BatchEvery() int {
	return c.TxPerBlock * c.BlocksPerBatch
}
