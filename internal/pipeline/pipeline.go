package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"smartmoney-collector/internal/adapter"
	"smartmoney-collector/internal/alpha"
	"smartmoney-collector/internal/config"
	"smartmoney-collector/internal/domain"
	"smartmoney-collector/internal/enrich"
	"smartmoney-collector/internal/filter"
	"smartmoney-collector/internal/logging"
	"smartmoney-collector/internal/normalize"
	"smartmoney-collector/internal/report"
	"smartmoney-collector/internal/score"
	"smartmoney-collector/internal/storage"
)

// Stores bundles the persistence surfaces one pipeline run needs.
type Stores struct {
	Events    storage.EventStore
	Wallets   storage.WalletStore
	Tokens    storage.TokenStore
	Signals   storage.SignalStore
	Runs      storage.RunStore
	Committer storage.RunCommitter
	Lock      storage.RunLock
}

// Result is the outcome of one successful run.
type Result struct {
	Run        *domain.RunRecord
	Events     []*domain.Event // enriched events as committed
	Signals    []*domain.Signal
	Rejections map[string]int // rejection reason -> count
	Summary    *report.Summary
}

// Pipeline sequences one batch run: fetch, normalize, enrich, filter,
// score, persist. Runs are serialized via the run lock; all aggregate
// writes happen once, in the commit phase.
type Pipeline struct {
	client adapter.Client
	stores Stores
	cfg    *config.Config

	estimator *alpha.Estimator
	enricher  *enrich.Enricher
	filters   *filter.FilterSet
	scorer    *score.Scorer

	now func() int64
}

// New wires a pipeline from its collaborators.
func New(client adapter.Client, stores Stores, cfg *config.Config) *Pipeline {
	return &Pipeline{
		client:    client,
		stores:    stores,
		cfg:       cfg,
		estimator: alpha.NewEstimator(stores.Events, stores.Wallets, cfg.Alpha),
		enricher: enrich.NewEnricher(stores.Events, stores.Wallets, stores.Tokens,
			cfg.Filtering.FloorLookback.Milliseconds()),
		filters: filter.NewFilterSet(stores.Signals, stores.Events, cfg.Filtering),
		scorer: score.NewScorer(stores.Signals, cfg.Scoring,
			cfg.Filtering.MinUSDNotional, cfg.Filtering.LiquidityMinScore),
		now: func() int64 { return time.Now().UnixMilli() },
	}
}

// WithClock overrides the pipeline clock for reproducible runs.
func (p *Pipeline) WithClock(now func() int64) *Pipeline {
	p.now = now
	p.estimator.WithClock(now)
	return p
}

// Run executes one full pipeline pass over the window. A held run lock,
// an adapter failure or a commit failure aborts the run; per-record and
// per-token failures are absorbed and counted.
func (p *Pipeline) Run(ctx context.Context, window adapter.Window) (*Result, error) {
	release, err := p.stores.Lock.TryAcquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire run lock: %w", err)
	}
	defer release()

	startedAt := p.now()
	runID := "run-" + time.UnixMilli(startedAt).UTC().Format("20060102T150405.000Z")
	log := logging.ForRun(runID)

	run := &domain.RunRecord{RunID: runID, StartedAt: startedAt}

	result, err := p.execute(ctx, run, window, log)
	if err != nil {
		run.Phase = domain.PhaseFailed
		run.FinishedAt = p.now()
		log.Error().Err(err).Str("phase", string(run.FailedPhase)).Msg("run failed")
		// Best-effort failure marker; the run's data was never committed.
		_ = p.stores.Runs.Insert(ctx, run)
		return nil, fmt.Errorf("run %s failed in %s: %w", runID, run.FailedPhase, err)
	}
	return result, nil
}

func (p *Pipeline) execute(ctx context.Context, run *domain.RunRecord, window adapter.Window, log zerolog.Logger) (*Result, error) {
	// Fetching: the three source kinds are independent and read-only,
	// so they fetch in parallel. Any failure is fatal for the run.
	run.Phase = domain.PhaseFetching
	run.FailedPhase = domain.PhaseFetching
	log.Info().Int64("from", window.From).Int64("to", window.To).Msg("fetching")

	var rawTrades, rawScreener, rawNetflows []adapter.RawRecord
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		rawTrades, err = p.client.FetchLargeTrades(gctx, window)
		return err
	})
	g.Go(func() error {
		var err error
		rawScreener, err = p.client.FetchTokenScreener(gctx, window)
		return err
	})
	g.Go(func() error {
		var err error
		rawNetflows, err = p.client.FetchNetflows(gctx, window)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	run.Fetched = len(rawTrades) + len(rawScreener) + len(rawNetflows)

	// Normalizing: malformed rows are skipped and counted, and the batch
	// is deduplicated on event_id so a doubled upstream response cannot
	// inflate aggregates.
	run.Phase = domain.PhaseNormalizing
	run.FailedPhase = domain.PhaseNormalizing
	now := p.now()

	var events []*domain.Event
	for _, part := range []struct {
		source  domain.Source
		records []adapter.RawRecord
	}{
		{domain.SourceLargeTrade, rawTrades},
		{domain.SourceAnomalyScreener, rawScreener},
		{domain.SourceNetflowAggregate, rawNetflows},
	} {
		batch, skipped := normalize.Batch(part.source, part.records, now)
		events = append(events, batch...)
		run.Skipped += skipped
	}
	events = dedupe(events)
	run.Normalized = len(events)
	log.Info().Int("fetched", run.Fetched).Int("normalized", run.Normalized).
		Int("skipped", run.Skipped).Msg("normalized")

	// Enriching. Wallet alpha is refreshed from persisted history first,
	// then overlays the enrichment lookups; the refreshed aggregates are
	// committed with the rest of the run.
	run.Phase = domain.PhaseEnriching
	run.FailedPhase = domain.PhaseEnriching

	refreshedWallets, err := p.estimator.RefreshAll(ctx, 0)
	if err != nil {
		return nil, err
	}
	refreshed := make(map[string]*domain.Wallet, len(refreshedWallets))
	for _, w := range refreshedWallets {
		refreshed[w.Address] = w
	}

	labels, err := p.fetchLabels(ctx, events)
	if err != nil {
		return nil, err
	}

	var enrichedBatch []*enrich.Enriched
	var recovered []string
	for _, e := range events {
		en, err := p.enricher.Enrich(ctx, e, run.RunID, labels)
		if err != nil {
			recovered = append(recovered, fmt.Sprintf("enrich %s: %v", e.EventID, err))
			log.Warn().Err(err).Str("event_id", e.EventID).Msg("enrichment recovered")
			continue
		}
		if en.Wallet != nil {
			if w, ok := refreshed[en.Wallet.Address]; ok {
				en.Wallet.AlphaScore = w.AlphaScore
				en.Wallet.WinRate1h = w.WinRate1h
				en.Wallet.WinRate4h = w.WinRate4h
				en.Wallet.WinRate24h = w.WinRate24h
				a := w.AlphaScore
				en.Event.Features.WalletAlpha = &a
			}
		}
		enrichedBatch = append(enrichedBatch, en)
	}
	run.Enriched = len(enrichedBatch)

	// Filtering.
	run.Phase = domain.PhaseFiltering
	run.FailedPhase = domain.PhaseFiltering
	rejections := make(map[string]int)
	byToken := make(map[domain.TokenKey][]*enrich.Enriched)
	var tokenOrder []domain.TokenKey

	for _, en := range enrichedBatch {
		d, err := p.filters.Admit(ctx, en, now)
		if err != nil {
			recovered = append(recovered, fmt.Sprintf("filter %s: %v", en.Event.EventID, err))
			log.Warn().Err(err).Str("event_id", en.Event.EventID).Msg("filter recovered")
			continue
		}
		if !d.Admitted {
			run.Rejected++
			rejections[d.Reason]++
			continue
		}
		run.Admitted++
		key := en.Event.TokenKey()
		if _, seen := byToken[key]; !seen {
			tokenOrder = append(tokenOrder, key)
		}
		byToken[key] = append(byToken[key], en)
	}
	log.Info().Int("admitted", run.Admitted).Int("rejected", run.Rejected).Msg("filtered")

	// Scoring: one signal per token per run; per-token failures are
	// absorbed with a logged reason.
	run.Phase = domain.PhaseScoring
	run.FailedPhase = domain.PhaseScoring
	var signals []*domain.Signal
	for _, key := range tokenOrder {
		sig, err := p.scorer.ScoreToken(ctx, run.RunID, key, byToken[key], now)
		if err != nil {
			recovered = append(recovered, fmt.Sprintf("score %s/%s: %v", key.Chain, key.Address, err))
			log.Warn().Err(err).Str("token", key.Address).Msg("scoring recovered")
			continue
		}
		signals = append(signals, sig)
		switch sig.Direction {
		case domain.DirectionBuy:
			run.BuySignals++
		case domain.DirectionSell:
			run.SellSignals++
		}
	}
	run.Signals = len(signals)

	// Persisting: the whole run commits in one batch, or not at all.
	run.Phase = domain.PhasePersisting
	run.FailedPhase = domain.PhasePersisting
	run.RecoveredError = strings.Join(recovered, "\n")
	run.FinishedAt = p.now()
	run.Phase = domain.PhaseDone
	run.FailedPhase = ""

	batch := p.buildBatch(run, enrichedBatch, refreshedWallets, signals)
	if err := p.stores.Committer.CommitRun(ctx, batch); err != nil {
		run.Phase = domain.PhasePersisting
		run.FailedPhase = domain.PhasePersisting
		return nil, err
	}

	log.Info().Int("signals", run.Signals).Int("buy", run.BuySignals).
		Int("sell", run.SellSignals).Msg("run committed")

	// Reporting: the run's reportable outcome is the summary structure;
	// rendering and delivery stay with the callers.
	run.Phase = domain.PhaseReporting
	summary := report.Build(run, signals, rejections, p.cfg.Report.TopN)
	run.Phase = domain.PhaseDone

	return &Result{
		Run:        run,
		Events:     batch.Events,
		Signals:    signals,
		Rejections: rejections,
		Summary:    summary,
	}, nil
}

// fetchLabels pulls labels for every wallet seen in the batch.
func (p *Pipeline) fetchLabels(ctx context.Context, events []*domain.Event) (map[string][]string, error) {
	seen := map[string]bool{}
	var addresses []string
	for _, e := range events {
		if e.WalletAddress != "" && !seen[e.WalletAddress] {
			seen[e.WalletAddress] = true
			addresses = append(addresses, e.WalletAddress)
		}
	}
	if len(addresses) == 0 {
		return nil, nil
	}

	records, err := p.client.FetchWalletLabels(ctx, addresses)
	if err != nil {
		return nil, err
	}
	labels := make(map[string][]string, len(records))
	for _, r := range records {
		addr, ok := r.String("address")
		if !ok {
			continue
		}
		if ls, ok := r.Strings("labels"); ok {
			labels[addr] = ls
		}
	}
	return labels, nil
}

// buildBatch assembles the run's single-writer commit: enriched events,
// wallet aggregates (refreshed plus first sightings), refreshed tokens,
// signals and the run record.
func (p *Pipeline) buildBatch(run *domain.RunRecord, enriched []*enrich.Enriched, refreshedWallets []*domain.Wallet, signals []*domain.Signal) *storage.RunBatch {
	wallets := make(map[string]*domain.Wallet, len(refreshedWallets))
	for _, w := range refreshedWallets {
		wallets[w.Address] = w
	}

	tokens := make(map[domain.TokenKey]*domain.Token)
	events := make([]*domain.Event, 0, len(enriched))
	for _, en := range enriched {
		events = append(events, en.Event)
		if en.Wallet != nil {
			if w, ok := wallets[en.Wallet.Address]; ok {
				w.Labels = en.Wallet.Labels
			} else {
				wallets[en.Wallet.Address] = en.Wallet
			}
		}
		if en.Token != nil {
			tokens[en.Token.Key()] = en.Token
		}
	}

	batch := &storage.RunBatch{Run: run, Events: events, Signals: signals}
	for _, w := range wallets {
		w.UpdatedAt = run.FinishedAt
		batch.Wallets = append(batch.Wallets, w)
	}
	for _, t := range tokens {
		t.UpdatedAt = run.FinishedAt
		batch.Tokens = append(batch.Tokens, t)
	}
	return batch
}

func dedupe(events []*domain.Event) []*domain.Event {
	seen := make(map[string]bool, len(events))
	out := events[:0]
	for _, e := range events {
		if seen[e.EventID] {
			continue
		}
		seen[e.EventID] = true
		out = append(out, e)
	}
	return out
}
