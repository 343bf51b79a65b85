package domain

// RunPhase names a pipeline phase for error attribution and logging.
type RunPhase string

const (
	PhaseFetching    RunPhase = "FETCHING"
	PhaseNormalizing RunPhase = "NORMALIZING"
	PhaseEnriching   RunPhase = "ENRICHING"
	PhaseFiltering   RunPhase = "FILTERING"
	PhaseScoring     RunPhase = "SCORING"
	PhasePersisting  RunPhase = "PERSISTING"
	PhaseReporting   RunPhase = "REPORTING"
	PhaseDone        RunPhase = "DONE"
	PhaseFailed      RunPhase = "FAILED"
)

// RunRecord is the persisted outcome of one pipeline run.
type RunRecord struct {
	RunID          string // PRIMARY KEY
	StartedAt      int64  // ms
	FinishedAt     int64  // ms
	Phase          RunPhase
	FailedPhase    RunPhase // set only when Phase == FAILED
	Fetched        int
	Normalized     int
	Skipped        int // malformed records dropped during normalization
	Enriched       int
	Admitted       int
	Rejected       int
	Signals        int
	BuySignals     int
	SellSignals    int
	RecoveredError string // per-token errors absorbed mid-run, newline-joined
}
