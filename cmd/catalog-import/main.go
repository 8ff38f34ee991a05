package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/keithneurodog/az-dcm-poc-sub000/internal/catalog"
	"github.com/keithneurodog/az-dcm-poc-sub000/internal/logger"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	flags := pflag.NewFlagSet("catalog-import", pflag.ContinueOnError)
	dbPath := flags.String("db", "", "SQLite catalog to (re)create")
	input := flags.StringP("input", "i", "", "YAML catalog snapshot (default: built-in fixture)")
	logMode := flags.String("log-mode", "dev", "log encoder: dev or prod")
	if err := flags.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if *dbPath == "" {
		return errors.New("missing required --db")
	}

	log, err := logger.New(*logMode)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	snap := catalog.DefaultSnapshot()
	if *input != "" {
		if snap, err = catalog.LoadYAMLFile(*input); err != nil {
			return err
		}
	}
	// Index once so problems in the snapshot are logged before seeding.
	mem := catalog.NewMemory(snap, log)
	if err := catalog.Seed(*dbPath, mem.Snapshot()); err != nil {
		return fmt.Errorf("seed %s: %w", *dbPath, err)
	}
	log.Info("catalog imported", "db", *dbPath, "datasets", mem.Len(), "collections", len(mem.Collections()))
	return nil
}
