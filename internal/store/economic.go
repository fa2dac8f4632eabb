package store

import (
	"context"
	"fmt"

	"cloud.google.com/go/civil"

	"github.com/dvloznov/expense-ingest/internal/domain"
)

// InsertEconomicData writes indicator observations, skipping any
// (indicator_name, date, data_source) already stored.
func (s *Store) InsertEconomicData(ctx context.Context, points []domain.IndicatorPoint) (domain.BatchOutcome, error) {
	rows := make([]EconomicIndicatorRow, len(points))
	for i, p := range points {
		rows[i] = indicatorRowFromDomain(p)
	}

	outcome, err := reconcile(ctx, s.db, EconomicIndicatorRow{}.TableName(), indicatorKey, rows, func(r *EconomicIndicatorRow) string {
		return fmt.Sprintf("%s %s %s", r.IndicatorName, civil.DateOf(r.Date), r.DataSource)
	})
	if err != nil {
		return domain.BatchOutcome{}, fmt.Errorf("InsertEconomicData: %w", err)
	}
	return outcome, nil
}

// LatestEconomicData returns the most recent observations of an indicator.
func (s *Store) LatestEconomicData(ctx context.Context, name string, limit int) ([]domain.IndicatorPoint, error) {
	if limit <= 0 {
		limit = DefaultLatestLimit
	}

	var rows []EconomicIndicatorRow
	err := s.db.WithContext(ctx).
		Where("indicator_name = ?", name).
		Order("date DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("LatestEconomicData: %w", err)
	}

	points := make([]domain.IndicatorPoint, len(rows))
	for i, r := range rows {
		points[i] = r.toDomain()
	}
	return points, nil
}
