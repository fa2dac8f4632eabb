package pipeline

import (
	"context"

	"github.com/dvloznov/expense-ingest/internal/domain"
	"github.com/dvloznov/expense-ingest/internal/marketdata"
)

// MarketFetcher returns raw upstream payloads. *marketdata.Client implements it.
type MarketFetcher interface {
	FetchDailySeries(ctx context.Context, symbol string) (marketdata.DailySeries, error)
	FetchIndicator(ctx context.Context, name string) (marketdata.IndicatorSeries, error)
}

// MarketStore is the persistence side of the orchestrator. *store.Store
// implements it.
type MarketStore interface {
	InsertMarketData(ctx context.Context, points []domain.MarketDataPoint) (domain.BatchOutcome, error)
	InsertEconomicData(ctx context.Context, points []domain.IndicatorPoint) (domain.BatchOutcome, error)
	AvailableSymbols(ctx context.Context) ([]domain.SymbolSummary, error)
}

// RunRecorder keeps an audit trail of per-source runs. Failures to record are
// logged by the orchestrator and never fail a run.
type RunRecorder interface {
	StartRun(ctx context.Context, kind, sourceID string) (string, error)
	MarkRunSucceeded(ctx context.Context, runID string, outcome domain.BatchOutcome) error
	MarkRunFailed(ctx context.Context, runID string, runErr error)
}
