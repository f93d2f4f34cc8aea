package main

import (
	"context"
	"encoding/hex"
	"flag"
	"fmt"
	"os"

	"github.com/packdb/packdb/pkg/backup"
	"github.com/packdb/packdb/pkg/logging"
	"github.com/packdb/packdb/pkg/store"
)

// cliLogger keeps engine logs off stdout so command output stays clean.
func cliLogger() logging.Logger {
	return logging.NewJSONLogger(os.Stderr, logging.WarnLevel)
}

func dataDirFlag(fs *flag.FlagSet) *string {
	return fs.String("data", getEnvOrDefault("PACKDB_DATA", "./data/packdb"), "Store directory")
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

// parseBytes resolves a --<name>/--<name>-string flag pair.
func parseBytes(name, hexVal, strVal string) ([]byte, error) {
	switch {
	case hexVal != "" && strVal != "":
		return nil, fmt.Errorf("provide --%s or --%s-string, not both", name, name)
	case hexVal != "":
		b, err := hex.DecodeString(hexVal)
		if err != nil {
			return nil, fmt.Errorf("invalid hex for --%s: %w", name, err)
		}
		return b, nil
	case strVal != "":
		return []byte(strVal), nil
	default:
		return nil, fmt.Errorf("a %s is required (--%s as hex or --%s-string)", name, name, name)
	}
}

// formatBytes renders a value as text when printable, hex otherwise.
func formatBytes(b []byte) string {
	for _, c := range b {
		if c < 0x20 || c > 0x7e {
			return hex.EncodeToString(b)
		}
	}
	return fmt.Sprintf("%q", b)
}

func handleStat(args []string) {
	fs := flag.NewFlagSet("stat", flag.ExitOnError)
	data := dataDirFlag(fs)
	fs.Parse(args)

	s, err := store.OpenReadOnly(*data, store.WithLogger(cliLogger()))
	if err != nil {
		fatal(err)
	}
	defer s.Shutdown()

	stats := s.Stats()
	used, err := s.UsedBuckets()
	if err != nil {
		fatal(err)
	}

	fmt.Println("=== Store Status ===")
	fmt.Println()
	fmt.Printf("Store ID: %s\n", stats.StoreID)
	fmt.Printf("Path: %s\n", stats.Path)
	fmt.Printf("Records: %d\n", stats.Records)
	fmt.Printf("Compressed: %v\n", stats.Compressed)
	fmt.Println()
	fmt.Printf("Data Log: %.2f MB\n", float64(stats.LogBytes)/(1024*1024))
	fmt.Printf("Index Arena: %.2f MB\n", float64(stats.IndexBytes)/(1024*1024))
	fmt.Printf("Buckets Used: %d/%d (%.1f%%)\n", used, stats.BucketCount,
		float64(used)*100/float64(stats.BucketCount))
}

func handleGet(args []string) {
	fs := flag.NewFlagSet("get", flag.ExitOnError)
	data := dataDirFlag(fs)
	keyHex := fs.String("key", "", "Key as hex")
	keyString := fs.String("key-string", "", "Key as a literal string")
	history := fs.Int("history", 0, "Show up to N stored versions, newest first (0 shows only the latest)")
	fs.Parse(args)

	key, err := parseBytes("key", *keyHex, *keyString)
	if err != nil {
		fatal(err)
	}

	s, err := store.OpenReadOnly(*data, store.WithLogger(cliLogger()))
	if err != nil {
		fatal(err)
	}
	defer s.Shutdown()

	if *history > 0 {
		versions, err := s.History(key, *history)
		if err != nil {
			fatal(err)
		}
		if len(versions) == 0 {
			fmt.Println("✗ Key not found")
			os.Exit(1)
		}
		fmt.Printf("✓ %d version(s), newest first\n", len(versions))
		for i, v := range versions {
			fmt.Printf("  [%d] %d bytes: %s\n", i, len(v), formatBytes(v))
		}
		return
	}

	value, ok, err := s.Get(key)
	if err != nil {
		fatal(err)
	}
	if !ok {
		fmt.Println("✗ Key not found")
		os.Exit(1)
	}
	fmt.Printf("✓ Found (%d bytes)\n", len(value))
	fmt.Printf("  Value: %s\n", formatBytes(value))
}

func handlePut(args []string) {
	fs := flag.NewFlagSet("put", flag.ExitOnError)
	data := dataDirFlag(fs)
	keyHex := fs.String("key", "", "Key as hex")
	keyString := fs.String("key-string", "", "Key as a literal string")
	valueHex := fs.String("value", "", "Value as hex")
	valueString := fs.String("value-string", "", "Value as a literal string")
	fs.Parse(args)

	key, err := parseBytes("key", *keyHex, *keyString)
	if err != nil {
		fatal(err)
	}
	value, err := parseBytes("value", *valueHex, *valueString)
	if err != nil {
		fatal(err)
	}

	s, err := store.New(*data, store.WithLogger(cliLogger()))
	if err != nil {
		fatal(err)
	}
	if err := s.Init(); err != nil {
		fatal(err)
	}
	defer s.Shutdown()

	if err := s.Put(key, value); err != nil {
		fatal(err)
	}
	if err := s.Batch(); err != nil {
		fatal(err)
	}
	fmt.Printf("✓ Stored and committed (%d byte key, %d byte value)\n", len(key), len(value))
}

func handleBackup(args []string) {
	fs := flag.NewFlagSet("backup", flag.ExitOnError)
	data := dataDirFlag(fs)
	bucket := fs.String("bucket", os.Getenv("PACKDB_BACKUP_BUCKET"), "S3 bucket")
	prefix := fs.String("prefix", "", "Object key prefix")
	region := fs.String("region", "", "AWS region (default: from the AWS config chain)")
	fs.Parse(args)

	if *bucket == "" {
		fmt.Fprintln(os.Stderr, "Error: --bucket is required (or set PACKDB_BACKUP_BUCKET)")
		os.Exit(1)
	}

	ctx := context.Background()
	client, err := backup.New(ctx, backup.Options{
		Bucket: *bucket,
		Prefix: *prefix,
		Region: *region,
		Logger: cliLogger(),
	})
	if err != nil {
		fatal(err)
	}

	fmt.Println("=== Store Backup ===")
	fmt.Println()
	objects, err := client.Backup(ctx, *data)
	if err != nil {
		fatal(err)
	}
	for _, obj := range objects {
		fmt.Printf("✓ Uploaded s3://%s/%s (%d bytes)\n", *bucket, obj.Key, obj.Bytes)
	}
}

func handleRestore(args []string) {
	fs := flag.NewFlagSet("restore", flag.ExitOnError)
	data := dataDirFlag(fs)
	bucket := fs.String("bucket", os.Getenv("PACKDB_BACKUP_BUCKET"), "S3 bucket")
	prefix := fs.String("prefix", "", "Object key prefix")
	region := fs.String("region", "", "AWS region (default: from the AWS config chain)")
	fs.Parse(args)

	if *bucket == "" {
		fmt.Fprintln(os.Stderr, "Error: --bucket is required (or set PACKDB_BACKUP_BUCKET)")
		os.Exit(1)
	}

	ctx := context.Background()
	client, err := backup.New(ctx, backup.Options{
		Bucket: *bucket,
		Prefix: *prefix,
		Region: *region,
		Logger: cliLogger(),
	})
	if err != nil {
		fatal(err)
	}

	fmt.Println("=== Store Restore ===")
	fmt.Println()
	objects, err := client.Restore(ctx, *data)
	if err != nil {
		fatal(err)
	}
	for _, obj := range objects {
		fmt.Printf("✓ Restored %s (%d bytes)\n", obj.Name, obj.Bytes)
	}
}
