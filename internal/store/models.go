package store

import (
	"errors"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/dvloznov/expense-ingest/internal/domain"
)

var (
	marketDataKey = []clause.Column{{Name: "symbol"}, {Name: "date"}, {Name: "data_source"}}
	indicatorKey  = []clause.Column{{Name: "indicator_name"}, {Name: "date"}, {Name: "data_source"}}
)

// MarketDataRow is the market_data table.
type MarketDataRow struct {
	ID         uint            `gorm:"primaryKey"`
	Symbol     string          `gorm:"type:varchar(10);not null;uniqueIndex:idx_market_data_key,priority:1"`
	Date       time.Time       `gorm:"type:date;not null;uniqueIndex:idx_market_data_key,priority:2;index:idx_market_data_date"`
	OpenPrice  decimal.Decimal `gorm:"type:decimal(12,4)"`
	HighPrice  decimal.Decimal `gorm:"type:decimal(12,4)"`
	LowPrice   decimal.Decimal `gorm:"type:decimal(12,4)"`
	ClosePrice decimal.Decimal `gorm:"type:decimal(12,4)"`
	Volume     int64           `gorm:"check:chk_market_data_volume,volume >= 0"`
	DataSource string          `gorm:"type:varchar(50);not null;uniqueIndex:idx_market_data_key,priority:3"`
	CreatedAt  time.Time
}

func (MarketDataRow) TableName() string {
	return "market_data"
}

// BeforeCreate rejects rows missing part of their key.
func (r *MarketDataRow) BeforeCreate(tx *gorm.DB) error {
	if r.Symbol == "" {
		return errors.New("market data row: symbol is required")
	}
	if r.Date.IsZero() {
		return errors.New("market data row: date is required")
	}
	return nil
}

// EconomicIndicatorRow is the economic_indicators table.
type EconomicIndicatorRow struct {
	ID            uint            `gorm:"primaryKey"`
	IndicatorName string          `gorm:"type:varchar(100);not null;uniqueIndex:idx_economic_indicators_key,priority:1"`
	Date          time.Time       `gorm:"type:date;not null;uniqueIndex:idx_economic_indicators_key,priority:2"`
	Value         decimal.Decimal `gorm:"type:decimal(15,4)"`
	Unit          string          `gorm:"type:varchar(50)"`
	DataSource    string          `gorm:"type:varchar(50);not null;uniqueIndex:idx_economic_indicators_key,priority:3"`
	CreatedAt     time.Time
}

func (EconomicIndicatorRow) TableName() string {
	return "economic_indicators"
}

// BeforeCreate rejects rows missing part of their key.
func (r *EconomicIndicatorRow) BeforeCreate(tx *gorm.DB) error {
	if r.IndicatorName == "" {
		return errors.New("economic indicator row: indicator name is required")
	}
	if r.Date.IsZero() {
		return errors.New("economic indicator row: date is required")
	}
	return nil
}

func dateToTime(d civil.Date) time.Time {
	if d.IsZero() {
		return time.Time{}
	}
	return d.In(time.UTC)
}

func marketDataRowFromDomain(p domain.MarketDataPoint) MarketDataRow {
	return MarketDataRow{
		Symbol:     p.Symbol,
		Date:       dateToTime(p.Date),
		OpenPrice:  p.OpenPrice,
		HighPrice:  p.HighPrice,
		LowPrice:   p.LowPrice,
		ClosePrice: p.ClosePrice,
		Volume:     p.Volume,
		DataSource: p.DataSource,
	}
}

func (r MarketDataRow) toDomain() domain.MarketDataPoint {
	return domain.MarketDataPoint{
		Symbol:     r.Symbol,
		Date:       civil.DateOf(r.Date),
		OpenPrice:  r.OpenPrice,
		HighPrice:  r.HighPrice,
		LowPrice:   r.LowPrice,
		ClosePrice: r.ClosePrice,
		Volume:     r.Volume,
		DataSource: r.DataSource,
	}
}

func indicatorRowFromDomain(p domain.IndicatorPoint) EconomicIndicatorRow {
	return EconomicIndicatorRow{
		IndicatorName: p.IndicatorName,
		Date:          dateToTime(p.Date),
		Value:         p.Value,
		Unit:          p.Unit,
		DataSource:    p.DataSource,
	}
}

func (r EconomicIndicatorRow) toDomain() domain.IndicatorPoint {
	return domain.IndicatorPoint{
		IndicatorName: r.IndicatorName,
		Date:          civil.DateOf(r.Date),
		Value:         r.Value,
		Unit:          r.Unit,
		DataSource:    r.DataSource,
	}
}
