package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/dvloznov/expense-ingest/internal/domain"
	"github.com/dvloznov/expense-ingest/internal/logger"
)

// DefaultRateLimitDelay keeps a free-tier API key under five calls a minute.
const DefaultRateLimitDelay = 12 * time.Second

// SourceFailure records why one source identifier was skipped.
type SourceFailure struct {
	SourceID string `json:"source_id"`
	Error    string `json:"error"`
}

// BatchReport summarises an orchestrator run.
type BatchReport struct {
	Inserted   int                    `json:"inserted"`
	Duplicates int                    `json:"duplicates"`
	Processed  int                    `json:"processed"`
	Failures   []SourceFailure        `json:"failures,omitempty"`
	Symbols    []domain.SymbolSummary `json:"symbols,omitempty"`
}

// Orchestrator runs fetch and reconcile cycles over many source identifiers,
// one at a time, pausing between consecutive identifiers.
type Orchestrator struct {
	fetcher  MarketFetcher
	store    MarketStore
	recorder RunRecorder
	delay    time.Duration
	sleep    func(time.Duration)
}

// OrchestratorOption configures an Orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithDelay sets the pause between consecutive identifiers.
func WithDelay(d time.Duration) OrchestratorOption {
	return func(o *Orchestrator) { o.delay = d }
}

// WithRecorder attaches an audit trail for each identifier's run.
func WithRecorder(r RunRecorder) OrchestratorOption {
	return func(o *Orchestrator) { o.recorder = r }
}

// WithSleep replaces time.Sleep, for tests.
func WithSleep(sleep func(time.Duration)) OrchestratorOption {
	return func(o *Orchestrator) { o.sleep = sleep }
}

// NewOrchestrator creates an Orchestrator over fetcher and store.
func NewOrchestrator(fetcher MarketFetcher, store MarketStore, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		fetcher: fetcher,
		store:   store,
		delay:   DefaultRateLimitDelay,
		sleep:   time.Sleep,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// RunSymbols reconciles the daily price history of every symbol, then lists
// what storage holds. A failing symbol is logged and skipped.
func (o *Orchestrator) RunSymbols(ctx context.Context, symbols []string) (*BatchReport, error) {
	report := o.run(ctx, SourceSymbol, symbols, NewMarketDataPipeline(o.fetcher, o.store))

	available, err := o.store.AvailableSymbols(ctx)
	if err != nil {
		return report, fmt.Errorf("RunSymbols: list available symbols: %w", err)
	}
	report.Symbols = available
	return report, nil
}

// RunIndicators reconciles every named economic indicator.
func (o *Orchestrator) RunIndicators(ctx context.Context, names []string) (*BatchReport, error) {
	return o.run(ctx, SourceIndicator, names, NewIndicatorPipeline(o.fetcher, o.store)), nil
}

func (o *Orchestrator) run(ctx context.Context, kind SourceKind, ids []string, p *Pipeline) *BatchReport {
	log := logger.FromContext(ctx)
	report := &BatchReport{}

	log.Info().Str("kind", string(kind)).Int("count", len(ids)).Msg("Starting batch")

	for i, id := range ids {
		outcome, err := o.runOne(ctx, kind, id, p)
		if err != nil {
			log.Error().Err(err).Str(string(kind), id).Msg("Source failed, continuing")
			report.Failures = append(report.Failures, SourceFailure{SourceID: id, Error: err.Error()})
		} else {
			report.Inserted += outcome.Inserted
			report.Duplicates += outcome.Duplicates
			report.Processed++
			log.Info().
				Str(string(kind), id).
				Int("inserted", outcome.Inserted).
				Int("duplicates", outcome.Duplicates).
				Msg("Source reconciled")
		}

		if i < len(ids)-1 {
			log.Debug().Dur("delay", o.delay).Msg("Waiting before next source")
			o.sleep(o.delay)
		}
	}

	log.Info().
		Str("kind", string(kind)).
		Int("inserted", report.Inserted).
		Int("duplicates", report.Duplicates).
		Int("failures", len(report.Failures)).
		Msg("Batch complete")
	return report
}

func (o *Orchestrator) runOne(ctx context.Context, kind SourceKind, id string, p *Pipeline) (domain.BatchOutcome, error) {
	log := logger.FromContext(ctx)

	runID := ""
	if o.recorder != nil {
		var err error
		runID, err = o.recorder.StartRun(ctx, string(kind), id)
		if err != nil {
			log.Warn().Err(err).Str(string(kind), id).Msg("Could not record run start")
		}
	}

	state := &PipelineState{Kind: kind, SourceID: id}
	if err := p.Execute(ctx, state); err != nil {
		if runID != "" {
			o.recorder.MarkRunFailed(ctx, runID, err)
		}
		return domain.BatchOutcome{}, err
	}

	if runID != "" {
		if err := o.recorder.MarkRunSucceeded(ctx, runID, state.Outcome); err != nil {
			log.Warn().Err(err).Str("run_id", runID).Msg("Could not record run success")
		}
	}
	return state.Outcome, nil
}
