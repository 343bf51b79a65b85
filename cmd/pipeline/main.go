// Package main runs one collector pass: fetch → normalize → enrich →
// filter → score → persist, then renders the run report.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"smartmoney-collector/internal/adapter"
	"smartmoney-collector/internal/adapter/mock"
	"smartmoney-collector/internal/config"
	"smartmoney-collector/internal/logging"
	"smartmoney-collector/internal/pipeline"
	"smartmoney-collector/internal/report"
	chstore "smartmoney-collector/internal/storage/clickhouse"
	"smartmoney-collector/internal/storage/memory"
	"smartmoney-collector/internal/storage/migrations"
	pgstore "smartmoney-collector/internal/storage/postgres"
)

func main() {
	configPath := flag.String("config", "", "Path to config file (optional)")
	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL connection string (overrides config; default is in-memory storage)")
	clickhouseDSN := flag.String("clickhouse-dsn", "", "ClickHouse connection string for event archiving (overrides config)")
	outputDir := flag.String("output-dir", "", "Report output directory (overrides config)")
	fromTime := flag.String("from-time", "", "Window start (RFC3339, default: one hour before to-time)")
	toTime := flag.String("to-time", "", "Window end (RFC3339, default: now)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if *postgresDSN != "" {
		cfg.Storage.PostgresDSN = *postgresDSN
	}
	if *clickhouseDSN != "" {
		cfg.Storage.ClickHouseDSN = *clickhouseDSN
	}
	if *outputDir != "" {
		cfg.Report.OutDir = *outputDir
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid config: %v\n", err)
		os.Exit(1)
	}
	logging.Setup(cfg.Logging)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Warn().Str("signal", sig.String()).Msg("shutting down")
		cancel()
	}()

	window, err := resolveWindow(*fromTime, *toTime)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	stores, archive, closeStores, err := createStores(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error connecting storage: %v\n", err)
		os.Exit(1)
	}
	defer closeStores()

	p := pipeline.New(mock.NewClient(), stores, cfg)
	result, err := p.Run(ctx, window)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Run failed: %v\n", err)
		os.Exit(1)
	}

	if archive != nil {
		if err := archive.ArchiveBatch(ctx, result.Events); err != nil {
			// Archiving is best-effort; the run itself already committed.
			log.Error().Err(err).Msg("event archiving failed")
		}
	}

	summary := result.Summary
	loc := cfg.Location()
	fmt.Println(report.RenderMarkdown(summary, loc))

	mdPath, jsonPath, err := report.WriteFiles(cfg.Report.OutDir, summary, loc)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error writing report files: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Run %s completed:\n", result.Run.RunID)
	fmt.Printf("  - %s\n", mdPath)
	fmt.Printf("  - %s\n", jsonPath)
}

// resolveWindow parses the fetch window flags. Both bounds must be given
// together; with neither, the window covers the last hour.
func resolveWindow(fromTime, toTime string) (adapter.Window, error) {
	if (fromTime == "") != (toTime == "") {
		return adapter.Window{}, fmt.Errorf("--from-time and --to-time must be specified together")
	}
	if fromTime == "" {
		to := time.Now().UTC()
		return adapter.Window{From: to.Add(-time.Hour).UnixMilli(), To: to.UnixMilli()}, nil
	}

	from, err := time.Parse(time.RFC3339, fromTime)
	if err != nil {
		return adapter.Window{}, fmt.Errorf("parse from-time: %w", err)
	}
	to, err := time.Parse(time.RFC3339, toTime)
	if err != nil {
		return adapter.Window{}, fmt.Errorf("parse to-time: %w", err)
	}
	if !from.Before(to) {
		return adapter.Window{}, fmt.Errorf("from-time must precede to-time")
	}
	return adapter.Window{From: from.UnixMilli(), To: to.UnixMilli()}, nil
}

// createStores wires storage: in-memory without a postgres DSN,
// database-backed with one. The ClickHouse archive is optional and only
// available in database mode.
func createStores(ctx context.Context, cfg *config.Config) (pipeline.Stores, *chstore.EventArchiveStore, func(), error) {
	if cfg.Storage.PostgresDSN == "" {
		events := memory.NewEventStore()
		wallets := memory.NewWalletStore()
		tokens := memory.NewTokenStore()
		signals := memory.NewSignalStore()
		runs := memory.NewRunStore()
		return pipeline.Stores{
			Events:    events,
			Wallets:   wallets,
			Tokens:    tokens,
			Signals:   signals,
			Runs:      runs,
			Committer: memory.NewCommitter(events, wallets, tokens, signals, runs),
			Lock:      memory.NewRunLock(),
		}, nil, func() {}, nil
	}

	pool, err := pgstore.NewPool(ctx, cfg.Storage.PostgresDSN)
	if err != nil {
		return pipeline.Stores{}, nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return pipeline.Stores{}, nil, nil, fmt.Errorf("apply postgres migrations: %w", err)
	}

	stores := pipeline.Stores{
		Events:    pgstore.NewEventStore(pool),
		Wallets:   pgstore.NewWalletStore(pool),
		Tokens:    pgstore.NewTokenStore(pool),
		Signals:   pgstore.NewSignalStore(pool),
		Runs:      pgstore.NewRunStore(pool),
		Committer: pgstore.NewCommitter(pool),
		Lock:      pgstore.NewRunLock(pool),
	}

	if cfg.Storage.ClickHouseDSN == "" {
		return stores, nil, pool.Close, nil
	}

	conn, err := migrations.RunClickhouseMigrations(ctx, cfg.Storage.ClickHouseDSN)
	if err != nil {
		pool.Close()
		return pipeline.Stores{}, nil, nil, fmt.Errorf("apply clickhouse migrations: %w", err)
	}
	closeAll := func() {
		conn.Close()
		pool.Close()
	}
	return stores, chstore.NewEventArchiveStore(conn), closeAll, nil
}
