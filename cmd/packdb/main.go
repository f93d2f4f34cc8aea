// Command packdb inspects and manipulates store directories: status,
// point lookups, version history, single puts, and S3 backup/restore.
package main

import (
	"fmt"
	"os"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]

	switch command {
	case "stat":
		handleStat(os.Args[2:])
	case "get":
		handleGet(os.Args[2:])
	case "put":
		handlePut(os.Args[2:])
	case "backup":
		handleBackup(os.Args[2:])
	case "restore":
		handleRestore(os.Args[2:])
	case "help", "--help", "-h":
		printUsage()
	case "version", "--version", "-v":
		printVersion()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	usage := `PackDB CLI - Inspect and manage PackDB stores

Usage:
  packdb <command> [options]

Available Commands:
  stat        Show store status and occupancy
  get         Look up a key (optionally its full history)
  put         Store one key-value pair and commit it
  backup      Upload the store files to S3
  restore     Download the store files from S3
  help        Show this help message
  version     Show version information

Global Flags:
  --data DIR  Store directory (default: $PACKDB_DATA or ./data/packdb)

Examples:
  # Show status of a store
  packdb stat --data ./data/packdb

  # Look up a key given as hex
  packdb get --key 0a1b2c...

  # Show every stored version of a key
  packdb get --key 0a1b2c... --history 10

  # Store and commit one pair
  packdb put --key-string balance --value-string "100"

  # Back up to S3 (credentials from the AWS default chain)
  packdb backup --bucket my-backups --prefix prod/store1

Use "packdb <command> --help" for more information about a command.
`
	fmt.Print(usage)
}

func printVersion() {
	fmt.Println("PackDB CLI v1.0.0")
	fmt.Println("Build: 2026-08-23")
}

// getEnvOrDefault returns environment variable value or default
func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
