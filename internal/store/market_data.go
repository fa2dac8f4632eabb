package store

import (
	"context"
	"fmt"
	"strings"

	"cloud.google.com/go/civil"

	"github.com/dvloznov/expense-ingest/internal/domain"
)

// DefaultLatestLimit is how many rows LatestMarketData returns when limit <= 0.
const DefaultLatestLimit = 10

// InsertMarketData writes price points, skipping any (symbol, date,
// data_source) already stored.
func (s *Store) InsertMarketData(ctx context.Context, points []domain.MarketDataPoint) (domain.BatchOutcome, error) {
	rows := make([]MarketDataRow, len(points))
	for i, p := range points {
		rows[i] = marketDataRowFromDomain(p)
	}

	outcome, err := reconcile(ctx, s.db, MarketDataRow{}.TableName(), marketDataKey, rows, func(r *MarketDataRow) string {
		return fmt.Sprintf("%s %s %s", r.Symbol, civil.DateOf(r.Date), r.DataSource)
	})
	if err != nil {
		return domain.BatchOutcome{}, fmt.Errorf("InsertMarketData: %w", err)
	}
	return outcome, nil
}

// LatestMarketData returns the most recent rows for symbol, newest first.
func (s *Store) LatestMarketData(ctx context.Context, symbol string, limit int) ([]domain.MarketDataPoint, error) {
	if limit <= 0 {
		limit = DefaultLatestLimit
	}

	var rows []MarketDataRow
	err := s.db.WithContext(ctx).
		Where("symbol = ?", strings.ToUpper(strings.TrimSpace(symbol))).
		Order("date DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("LatestMarketData: %w", err)
	}

	points := make([]domain.MarketDataPoint, len(rows))
	for i, r := range rows {
		points[i] = r.toDomain()
	}
	return points, nil
}

type symbolSummaryRow struct {
	Symbol     string
	DataPoints int64
	LatestDate string
}

// AvailableSymbols lists every stored symbol with its row count and most
// recent date, ordered by symbol.
func (s *Store) AvailableSymbols(ctx context.Context) ([]domain.SymbolSummary, error) {
	var rows []symbolSummaryRow
	err := s.db.WithContext(ctx).
		Model(&MarketDataRow{}).
		Select("symbol, COUNT(*) AS data_points, CAST(MAX(date) AS TEXT) AS latest_date").
		Group("symbol").
		Order("symbol").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("AvailableSymbols: %w", err)
	}

	out := make([]domain.SymbolSummary, 0, len(rows))
	for _, r := range rows {
		latest, err := parseStoredDate(r.LatestDate)
		if err != nil {
			return nil, fmt.Errorf("AvailableSymbols: %s: %w", r.Symbol, err)
		}
		out = append(out, domain.SymbolSummary{
			Symbol:     r.Symbol,
			DataPoints: r.DataPoints,
			LatestDate: latest,
		})
	}
	return out, nil
}

// parseStoredDate reads the leading YYYY-MM-DD of a date rendered as text.
func parseStoredDate(s string) (civil.Date, error) {
	if len(s) > 10 {
		s = s[:10]
	}
	return civil.ParseDate(s)
}
