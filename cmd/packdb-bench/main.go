// Command packdb-bench drives a blockchain-style ingest workload
// against a store: random fixed-size keys, a fixed payload, a batch
// commit every configured number of blocks, then a shuffled re-read of
// sampled keys.
package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/packdb/packdb/pkg/config"
	"github.com/packdb/packdb/pkg/logging"
	"github.com/packdb/packdb/pkg/metrics"
	"github.com/packdb/packdb/pkg/store"
)

func main() {
	defaults := config.DefaultBench()

	configPath := flag.String("config", "", "YAML config file (flags override it)")
	dataDir := flag.String("data", defaults.DataDir, "Store directory")
	records := flag.Int("records", defaults.Records, "Number of records to insert")
	keySize := flag.Int("key-size", defaults.KeySize, "Key size in bytes")
	valueSize := flag.Int("value-size", defaults.ValueSize, "Value size in bytes")
	txPerBlock := flag.Int("tx-per-block", defaults.TxPerBlock, "Transactions per block")
	blocksPerBatch := flag.Int("blocks-per-batch", defaults.BlocksPerBatch, "Blocks per batch commit")
	checkRate := flag.Int("check-rate", defaults.CheckRate, "Sample every Nth key for the read phase (0 disables)")
	buckets := flag.Uint64("buckets", defaults.BucketCount, "Index bucket count (0 for default)")
	compression := flag.String("compression", defaults.Compression, "Value compression: none or snappy")
	metricsAddr := flag.String("metrics-addr", defaults.MetricsAddr, "Serve Prometheus metrics on this address (empty disables)")
	seed := flag.Int64("seed", defaults.Seed, "Random seed (0 uses the clock)")
	logLevel := flag.String("log-level", defaults.LogLevel, "Log level: debug, info, warn or error")
	flag.Parse()

	cfg := defaults
	if *configPath != "" {
		loaded, err := config.LoadBench(*configPath)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		cfg = loaded
	}

	// Explicit flags win over the config file.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "data":
			cfg.DataDir = *dataDir
		case "records":
			cfg.Records = *records
		case "key-size":
			cfg.KeySize = *keySize
		case "value-size":
			cfg.ValueSize = *valueSize
		case "tx-per-block":
			cfg.TxPerBlock = *txPerBlock
		case "blocks-per-batch":
			cfg.BlocksPerBatch = *blocksPerBatch
		case "check-rate":
			cfg.CheckRate = *checkRate
		case "buckets":
			cfg.BucketCount = *buckets
		case "compression":
			cfg.Compression = *compression
		case "metrics-addr":
			cfg.MetricsAddr = *metricsAddr
		case "seed":
			cfg.Seed = *seed
		case "log-level":
			cfg.LogLevel = *logLevel
		}
	})
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	fmt.Printf("🔥 PackDB - Ingest Benchmark\n")
	fmt.Printf("============================\n\n")
	fmt.Printf("Configuration:\n")
	fmt.Printf("  Records: %d\n", cfg.Records)
	fmt.Printf("  Key Size: %d bytes\n", cfg.KeySize)
	fmt.Printf("  Value Size: %d bytes\n", cfg.ValueSize)
	fmt.Printf("  Batch Every: %d inserts (%d tx/block × %d blocks)\n", cfg.BatchEvery(), cfg.TxPerBlock, cfg.BlocksPerBatch)
	fmt.Printf("  Compression: %s\n", cfg.Compression)
	fmt.Printf("  Data Dir: %s\n\n", cfg.DataDir)

	reg := metrics.NewRegistry()
	if cfg.MetricsAddr != "" {
		serveMetrics(cfg.MetricsAddr, reg)
		fmt.Printf("📊 Serving metrics on http://%s/metrics\n\n", cfg.MetricsAddr)
	}

	seedValue := cfg.Seed
	if seedValue == 0 {
		seedValue = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seedValue))

	// Fresh run every time.
	os.RemoveAll(cfg.DataDir)

	fmt.Printf("📂 Initializing store...\n")
	logger := logging.NewJSONLogger(os.Stderr, logging.ParseLevel(cfg.LogLevel))
	s, err := store.New(cfg.DataDir,
		store.WithBucketCount(cfg.BucketCount),
		store.WithCompression(cfg.Compression),
		store.WithLogger(logger),
		store.WithMetrics(reg),
	)
	if err != nil {
		log.Fatalf("Failed to create store handle: %v", err)
	}
	if err := s.Init(); err != nil {
		log.Fatalf("Failed to initialize store: %v", err)
	}

	check := ingest(s, cfg, rng, reg)
	readBack(s, cfg, rng, check)
	printStats(s)

	if err := s.Shutdown(); err != nil {
		log.Fatalf("Failed to shut down store: %v", err)
	}
	fmt.Printf("\n✅ Benchmark complete!\n")
}

// ingest inserts cfg.Records random keys with a fixed payload, batching
// on the configured block cadence, and returns the sampled check keys.
func ingest(s *store.Store, cfg config.Bench, rng *rand.Rand, reg *metrics.Registry) [][]byte {
	fmt.Printf("\n📝 Phase 1: Ingest\n")

	// All records share one payload buffer, like a fixed-size
	// transaction body.
	value := make([]byte, cfg.ValueSize)

	var check [][]byte
	if cfg.CheckRate > 0 {
		check = make([][]byte, 0, cfg.Records/cfg.CheckRate+1)
	}

	batchEvery := cfg.BatchEvery()
	key := make([]byte, cfg.KeySize)
	start := time.Now()

	for i := 0; i < cfg.Records; i++ {
		rng.Read(key)
		if cfg.CheckRate > 0 && i%cfg.CheckRate == 0 {
			check = append(check, append([]byte(nil), key...))
		}
		if err := s.Put(key, value); err != nil {
			log.Fatalf("Failed to put record %d: %v", i, err)
		}

		if (i+1)%batchEvery == 0 {
			if err := s.Batch(); err != nil {
				log.Fatalf("Failed to batch at record %d: %v", i+1, err)
			}
			elapsed := time.Since(start)
			fmt.Printf("  Stored %d records in %v, %.0f inserts/second\n",
				i+1, elapsed.Round(time.Millisecond), float64(i+1)/elapsed.Seconds())
			reg.UpdateSystemMetrics(elapsed)
		}
	}
	if err := s.Batch(); err != nil {
		log.Fatalf("Failed to commit final batch: %v", err)
	}

	duration := time.Since(start)
	fmt.Printf("✅ Completed %d inserts in %v\n", cfg.Records, duration.Round(time.Millisecond))
	fmt.Printf("  ⚡ Average: %dμs per insert\n", duration.Microseconds()/int64(cfg.Records))
	fmt.Printf("  🚀 Throughput: %.0f inserts/sec\n", float64(cfg.Records)/duration.Seconds())
	fmt.Printf("  💾 Payload written: %.2f MB\n", float64(cfg.Records*cfg.ValueSize)/(1024*1024))
	return check
}

// readBack shuffles the check keys and reads every one.
func readBack(s *store.Store, cfg config.Bench, rng *rand.Rand, check [][]byte) {
	if len(check) == 0 {
		return
	}

	fmt.Printf("\n🔀 Shuffling %d check keys...\n", len(check))
	rng.Shuffle(len(check), func(i, j int) {
		check[i], check[j] = check[j], check[i]
	})

	fmt.Printf("📖 Phase 2: Random Reads\n")
	start := time.Now()
	found := 0
	for _, key := range check {
		_, ok, err := s.Get(key)
		if err != nil {
			log.Fatalf("Failed to read check key %x: %v", key, err)
		}
		if ok {
			found++
		}
	}

	duration := time.Since(start)
	fmt.Printf("✅ Completed %d reads in %v\n", len(check), duration.Round(time.Millisecond))
	fmt.Printf("  ✅ Found: %d/%d (%.1f%%)\n", found, len(check), float64(found)*100/float64(len(check)))
	fmt.Printf("  ⚡ Average: %dμs per read\n", duration.Microseconds()/int64(len(check)))
	fmt.Printf("  🚀 Throughput: %.0f reads/sec\n", float64(len(check))/duration.Seconds())
	if found != len(check) {
		log.Fatalf("%d check keys missing after ingest", len(check)-found)
	}
}

func printStats(s *store.Store) {
	stats := s.Stats()
	used, err := s.UsedBuckets()
	if err != nil {
		log.Fatalf("Failed to read bucket occupancy: %v", err)
	}

	fmt.Printf("\n📊 Final Store Statistics\n")
	fmt.Printf("=========================\n")
	fmt.Printf("  Store ID: %s\n", stats.StoreID)
	fmt.Printf("  Records: %d\n", stats.Records)
	fmt.Printf("  Batches: %d\n", stats.Batches)
	fmt.Printf("  Data Log: %.2f MB\n", float64(stats.LogBytes)/(1024*1024))
	fmt.Printf("  Index Arena: %.2f MB\n", float64(stats.IndexBytes)/(1024*1024))
	fmt.Printf("  Buckets Used: %d/%d (%.1f%%)\n", used, stats.BucketCount,
		float64(used)*100/float64(stats.BucketCount))
	fmt.Printf("  Data Cache Hit Rate: %.1f%%\n", stats.DataCacheHitRate*100)
	fmt.Printf("  Index Cache Hit Rate: %.1f%%\n", stats.IndexCacheHitRate*100)
}

func serveMetrics(addr string, reg *metrics.Registry) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg.GetPrometheusRegistry(), promhttp.HandlerOpts{}))
	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			log.Printf("Metrics server stopped: %v", err)
		}
	}()
}
