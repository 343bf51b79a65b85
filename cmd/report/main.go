// Package main regenerates the report of the most recent committed run
// from storage, without re-running the pipeline.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"smartmoney-collector/internal/config"
	"smartmoney-collector/internal/logging"
	"smartmoney-collector/internal/report"
	"smartmoney-collector/internal/storage"
	pgstore "smartmoney-collector/internal/storage/postgres"
)

func main() {
	configPath := flag.String("config", "", "Path to config file (optional)")
	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL connection string (overrides config)")
	outputDir := flag.String("output-dir", "", "Report output directory (overrides config)")
	writeFiles := flag.Bool("write", false, "Write report files in addition to stdout")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if *postgresDSN != "" {
		cfg.Storage.PostgresDSN = *postgresDSN
	}
	if *outputDir != "" {
		cfg.Report.OutDir = *outputDir
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid config: %v\n", err)
		os.Exit(1)
	}
	logging.Setup(cfg.Logging)

	if cfg.Storage.PostgresDSN == "" {
		fmt.Fprintln(os.Stderr, "Error: --postgres-dsn (or storage.postgres_dsn) is required")
		os.Exit(1)
	}

	ctx := context.Background()

	pool, err := pgstore.NewPool(ctx, cfg.Storage.PostgresDSN)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error connecting to postgres: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	runs := pgstore.NewRunStore(pool)
	signals := pgstore.NewSignalStore(pool)

	run, err := runs.Latest(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			fmt.Fprintln(os.Stderr, "No runs recorded yet")
			os.Exit(1)
		}
		fmt.Fprintf(os.Stderr, "Error loading latest run: %v\n", err)
		os.Exit(1)
	}

	runSignals, err := signals.GetByRun(ctx, run.RunID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading signals for run %s: %v\n", run.RunID, err)
		os.Exit(1)
	}

	// Rejection reason counts live only in the run's own report files;
	// a regenerated report carries the persisted totals.
	summary := report.Build(run, runSignals, nil, cfg.Report.TopN)
	loc := cfg.Location()
	fmt.Println(report.RenderMarkdown(summary, loc))

	if *writeFiles {
		mdPath, jsonPath, err := report.WriteFiles(cfg.Report.OutDir, summary, loc)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error writing report files: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("  - %s\n", mdPath)
		fmt.Printf("  - %s\n", jsonPath)
	}
}
