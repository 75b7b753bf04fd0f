package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/everydev1618/daobuilder"
	"github.com/everydev1618/daobuilder/serve"
)

func resetCmd(args []string) {
	fs := flag.NewFlagSet("reset", flag.ExitOnError)
	dbPath := fs.String("db", envOr("DAOBUILDER_DB", daobuilder.DefaultDBPath()), "SQLite database path")
	yes := fs.Bool("yes", false, "Skip confirmation prompt")

	fs.Usage = func() {
		fmt.Println(`Usage: daobuilder reset [options]

Delete the server's history. Sessions live in memory and are not affected.

This will delete:
  - All export records
  - All deployment records

Options:`)
		fs.PrintDefaults()
		fmt.Println(`
Examples:
  daobuilder reset
  daobuilder reset --yes
  daobuilder reset --db /path/to/custom.db`)
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	dbAbs, _ := filepath.Abs(*dbPath)
	if _, err := os.Stat(*dbPath); os.IsNotExist(err) {
		fmt.Printf("No database at %s. Nothing to reset.\n", dbAbs)
		return
	}

	store, err := serve.NewSQLiteStore(*dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening database %s: %v\n", dbAbs, err)
		os.Exit(1)
	}
	defer store.Close()
	if err := store.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Error reading database %s: %v\n", dbAbs, err)
		os.Exit(1)
	}

	exports, deployments, err := store.Counts()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error counting records: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("The following data will be deleted:")
	fmt.Println()
	fmt.Printf("  %-14s %d records\n", "Exports", exports)
	fmt.Printf("  %-14s %d records\n", "Deployments", deployments)
	fmt.Println()
	fmt.Printf("  Database: %s\n", dbAbs)
	fmt.Println()

	if exports == 0 && deployments == 0 {
		fmt.Println("Nothing to reset. Already clean.")
		return
	}

	if !*yes {
		fmt.Print("Are you sure you want to delete all of the above? [y/N] ")
		scanner := bufio.NewScanner(os.Stdin)
		scanner.Scan()
		answer := strings.TrimSpace(strings.ToLower(scanner.Text()))
		if answer != "y" && answer != "yes" {
			fmt.Println("Aborted.")
			return
		}
		fmt.Println()
	}

	if err := store.Purge(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("Reset complete.")
}
