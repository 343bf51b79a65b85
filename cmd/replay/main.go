// Package main verifies stored signals: every score must be exactly
// reproducible from its persisted feature snapshot.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"smartmoney-collector/internal/config"
	"smartmoney-collector/internal/logging"
	"smartmoney-collector/internal/replay"
	pgstore "smartmoney-collector/internal/storage/postgres"
)

func main() {
	configPath := flag.String("config", "", "Path to config file (optional)")
	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL connection string (overrides config)")
	runID := flag.String("run-id", "", "Verify a single run (default: all stored signals)")
	outputJSON := flag.Bool("json", false, "Output the verification report as JSON")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if *postgresDSN != "" {
		cfg.Storage.PostgresDSN = *postgresDSN
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

	verifier := replay.NewVerifier(pgstore.NewSignalStore(pool))

	var rep *replay.Report
	if *runID != "" {
		rep, err = verifier.VerifyRun(ctx, *runID)
	} else {
		rep, err = verifier.VerifyAll(ctx)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Verification failed: %v\n", err)
		os.Exit(1)
	}

	if *outputJSON {
		out, _ := json.MarshalIndent(rep, "", "  ")
		fmt.Println(string(out))
	} else {
		fmt.Printf("Checked %d signals, %d divergences\n", rep.Checked, len(rep.Divergences))
		for _, d := range rep.Divergences {
			fmt.Printf("  %s (run %s, %s/%s): stored %.6f, recomputed %.6f\n",
				d.SignalID, d.RunID, d.Chain, d.Token, d.Stored, d.Recomputed)
		}
	}

	if !rep.Match() {
		os.Exit(1)
	}
}
