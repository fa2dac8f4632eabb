package handlers

import (
	"context"

	"github.com/dvloznov/expense-ingest/internal/domain"
)

// MarketDataReader is the read side of the market data store. *store.Store
// implements it.
type MarketDataReader interface {
	AvailableSymbols(ctx context.Context) ([]domain.SymbolSummary, error)
	LatestMarketData(ctx context.Context, symbol string, limit int) ([]domain.MarketDataPoint, error)
}

// Archiver keeps a copy of raw uploads. *gcsuploader.Archiver implements it.
type Archiver interface {
	Archive(ctx context.Context, sourceID, fileName string, data []byte) (string, error)
}

// Pinger reports whether a backing service is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}
