package domain

import (
	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// SourceAlphaVantage tags rows fetched from the Alpha Vantage API.
const SourceAlphaVantage = "alpha_vantage"

// DefaultIndicatorUnit is used when the upstream payload does not name a unit.
const DefaultIndicatorUnit = "percent"

// MarketDataPoint is one daily OHLCV observation for a ticker.
// (Symbol, Date, DataSource) is unique in storage.
type MarketDataPoint struct {
	Symbol     string          `json:"symbol"`
	Date       civil.Date      `json:"date"`
	OpenPrice  decimal.Decimal `json:"open_price"`
	HighPrice  decimal.Decimal `json:"high_price"`
	LowPrice   decimal.Decimal `json:"low_price"`
	ClosePrice decimal.Decimal `json:"close_price"`
	Volume     int64           `json:"volume"`
	DataSource string          `json:"data_source"`
}

// IndicatorPoint is one observation of a named economic indicator.
// (IndicatorName, Date, DataSource) is unique in storage.
type IndicatorPoint struct {
	IndicatorName string          `json:"indicator_name"`
	Date          civil.Date      `json:"date"`
	Value         decimal.Decimal `json:"value"`
	Unit          string          `json:"unit"`
	DataSource    string          `json:"data_source"`
}

// BatchOutcome reports the result of one dedup-write transaction.
// Rows that failed individually are counted in neither field.
type BatchOutcome struct {
	Inserted   int `json:"inserted"`
	Duplicates int `json:"duplicates"`
}

// Add accumulates another outcome into o.
func (o *BatchOutcome) Add(other BatchOutcome) {
	o.Inserted += other.Inserted
	o.Duplicates += other.Duplicates
}

// SymbolSummary describes the persisted history of one symbol.
type SymbolSummary struct {
	Symbol     string     `json:"symbol"`
	DataPoints int64      `json:"data_points"`
	LatestDate civil.Date `json:"latest_date"`
}
