package pipeline

import (
	"context"
	"fmt"

	"github.com/dvloznov/expense-ingest/internal/domain"
	"github.com/dvloznov/expense-ingest/internal/logger"
	"github.com/dvloznov/expense-ingest/internal/marketdata"
)

// SourceKind names what a source identifier refers to.
type SourceKind string

const (
	SourceSymbol    SourceKind = "symbol"
	SourceIndicator SourceKind = "indicator"
)

// PipelineStep represents a single step in a per-source ingestion pipeline.
type PipelineStep interface {
	Execute(ctx context.Context, state *PipelineState) error
}

// PipelineState holds the shared state across the steps for one source
// identifier.
type PipelineState struct {
	Kind     SourceKind
	SourceID string

	Series     marketdata.DailySeries
	Indicator  marketdata.IndicatorSeries
	Prices     []domain.MarketDataPoint
	Indicators []domain.IndicatorPoint

	Outcome domain.BatchOutcome
	// Skipped is set when there is nothing to write; later steps do not run.
	Skipped bool
}

// FetchDailySeriesStep fetches the raw daily series for the symbol.
type FetchDailySeriesStep struct {
	Fetcher MarketFetcher
}

func (s *FetchDailySeriesStep) Execute(ctx context.Context, state *PipelineState) error {
	series, err := s.Fetcher.FetchDailySeries(ctx, state.SourceID)
	if err != nil {
		return err
	}
	state.Series = series
	return nil
}

// NormalizeDailySeriesStep flattens the series into price points.
type NormalizeDailySeriesStep struct{}

func (s *NormalizeDailySeriesStep) Execute(ctx context.Context, state *PipelineState) error {
	state.Prices = NormalizeDailySeries(ctx, state.SourceID, state.Series)
	if len(state.Prices) == 0 {
		log := logger.FromContext(ctx)
		log.Warn().Str("symbol", state.SourceID).Msg("No price data to store")
		state.Skipped = true
	}
	return nil
}

// StoreMarketDataStep writes the price points with dedup.
type StoreMarketDataStep struct {
	Store MarketStore
}

func (s *StoreMarketDataStep) Execute(ctx context.Context, state *PipelineState) error {
	outcome, err := s.Store.InsertMarketData(ctx, state.Prices)
	if err != nil {
		return err
	}
	state.Outcome = outcome
	return nil
}

// FetchIndicatorStep fetches the raw indicator series.
type FetchIndicatorStep struct {
	Fetcher MarketFetcher
}

func (s *FetchIndicatorStep) Execute(ctx context.Context, state *PipelineState) error {
	series, err := s.Fetcher.FetchIndicator(ctx, state.SourceID)
	if err != nil {
		return err
	}
	state.Indicator = series
	return nil
}

// NormalizeIndicatorStep flattens the indicator series.
type NormalizeIndicatorStep struct{}

func (s *NormalizeIndicatorStep) Execute(ctx context.Context, state *PipelineState) error {
	state.Indicators = NormalizeIndicator(ctx, state.Indicator)
	if len(state.Indicators) == 0 {
		log := logger.FromContext(ctx)
		log.Warn().Str("indicator", state.SourceID).Msg("No indicator data to store")
		state.Skipped = true
	}
	return nil
}

// StoreIndicatorsStep writes the indicator points with dedup.
type StoreIndicatorsStep struct {
	Store MarketStore
}

func (s *StoreIndicatorsStep) Execute(ctx context.Context, state *PipelineState) error {
	outcome, err := s.Store.InsertEconomicData(ctx, state.Indicators)
	if err != nil {
		return err
	}
	state.Outcome = outcome
	return nil
}

// Pipeline executes a sequence of steps in order.
type Pipeline struct {
	steps []PipelineStep
}

// NewPipeline creates a new pipeline with the given steps.
func NewPipeline(steps ...PipelineStep) *Pipeline {
	return &Pipeline{steps: steps}
}

// Execute runs the steps sequentially, stopping at the first error or once a
// step marks the state skipped.
func (p *Pipeline) Execute(ctx context.Context, state *PipelineState) error {
	for i, step := range p.steps {
		if err := step.Execute(ctx, state); err != nil {
			return fmt.Errorf("pipeline step %d failed: %w", i+1, err)
		}
		if state.Skipped {
			return nil
		}
	}
	return nil
}

// NewMarketDataPipeline creates the fetch, normalize and store pipeline for
// one ticker symbol.
func NewMarketDataPipeline(fetcher MarketFetcher, store MarketStore) *Pipeline {
	return NewPipeline(
		&FetchDailySeriesStep{Fetcher: fetcher},
		&NormalizeDailySeriesStep{},
		&StoreMarketDataStep{Store: store},
	)
}

// NewIndicatorPipeline creates the fetch, normalize and store pipeline for
// one economic indicator.
func NewIndicatorPipeline(fetcher MarketFetcher, store MarketStore) *Pipeline {
	return NewPipeline(
		&FetchIndicatorStep{Fetcher: fetcher},
		&NormalizeIndicatorStep{},
		&StoreIndicatorsStep{Store: store},
	)
}
