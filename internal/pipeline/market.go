package pipeline

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/dvloznov/expense-ingest/internal/domain"
	"github.com/dvloznov/expense-ingest/internal/logger"
	"github.com/dvloznov/expense-ingest/internal/marketdata"
)

// NormalizeDailySeries flattens a raw daily series into price points sorted
// by date. Bars with an unreadable date or numeric field are logged and
// dropped.
func NormalizeDailySeries(ctx context.Context, symbol string, series marketdata.DailySeries) []domain.MarketDataPoint {
	log := logger.FromContext(ctx)
	symbol = strings.ToUpper(strings.TrimSpace(symbol))

	dates := make([]string, 0, len(series))
	for date := range series {
		dates = append(dates, date)
	}
	sort.Strings(dates)

	points := make([]domain.MarketDataPoint, 0, len(dates))
	for _, date := range dates {
		point, err := dailyBarToPoint(symbol, date, series[date])
		if err != nil {
			log.Warn().Err(err).Str("symbol", symbol).Str("date", date).Msg("Dropping daily bar")
			continue
		}
		points = append(points, point)
	}
	return points
}

func dailyBarToPoint(symbol, date string, bar marketdata.DailyBar) (domain.MarketDataPoint, error) {
	day, err := civil.ParseDate(date)
	if err != nil {
		return domain.MarketDataPoint{}, fmt.Errorf("dailyBarToPoint: invalid date: %w", err)
	}

	prices := make([]decimal.Decimal, 4)
	for i, field := range []string{marketdata.FieldOpen, marketdata.FieldHigh, marketdata.FieldLow, marketdata.FieldClose} {
		prices[i], err = decimal.NewFromString(strings.TrimSpace(bar[field]))
		if err != nil {
			return domain.MarketDataPoint{}, fmt.Errorf("dailyBarToPoint: field %q: %w", field, err)
		}
	}

	volume, err := strconv.ParseInt(strings.TrimSpace(bar[marketdata.FieldVolume]), 10, 64)
	if err != nil {
		return domain.MarketDataPoint{}, fmt.Errorf("dailyBarToPoint: field %q: %w", marketdata.FieldVolume, err)
	}

	return domain.MarketDataPoint{
		Symbol:     symbol,
		Date:       day,
		OpenPrice:  prices[0],
		HighPrice:  prices[1],
		LowPrice:   prices[2],
		ClosePrice: prices[3],
		Volume:     volume,
		DataSource: domain.SourceAlphaVantage,
	}, nil
}

// NormalizeIndicator flattens an indicator series in payload order. An
// observation's own unit wins over the series unit, which wins over
// domain.DefaultIndicatorUnit. Observations the API marks missing (".") or
// that fail to parse are dropped.
func NormalizeIndicator(ctx context.Context, series marketdata.IndicatorSeries) []domain.IndicatorPoint {
	log := logger.FromContext(ctx)

	points := make([]domain.IndicatorPoint, 0, len(series.Data))
	for _, obs := range series.Data {
		day, err := civil.ParseDate(strings.TrimSpace(obs.Date))
		if err != nil {
			log.Warn().Err(err).Str("indicator", series.Name).Str("date", obs.Date).Msg("Dropping observation")
			continue
		}
		value, err := decimal.NewFromString(strings.TrimSpace(obs.Value))
		if err != nil {
			log.Warn().Str("indicator", series.Name).Str("date", obs.Date).Str("value", obs.Value).Msg("Dropping observation without numeric value")
			continue
		}

		points = append(points, domain.IndicatorPoint{
			IndicatorName: series.Name,
			Date:          day,
			Value:         value,
			Unit:          firstNonEmpty(obs.Unit, series.Unit, domain.DefaultIndicatorUnit),
			DataSource:    domain.SourceAlphaVantage,
		})
	}
	return points
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
