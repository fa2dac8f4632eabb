package domain

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// DefaultCategory is assigned to every parsed transaction. A downstream
// classifier replaces it once the batch leaves the ingestion pipeline.
const DefaultCategory = "uncategorized"

// TransactionRecord represents one parsed CSV row of a user bank export.
// Records are created once per upload and never mutated afterwards; ownership
// moves to the job queue as an ordered slice.
type TransactionRecord struct {
	Date        string          // raw "Date" column, validated as a calendar date
	Description string          // trimmed, angle brackets stripped
	Amount      decimal.Decimal // signed; unparseable input coerces to zero
	Account     string          // free text label from "Account"
	Category    string          // always DefaultCategory at parse time
}

type transactionRecordJSON struct {
	Date        string      `json:"date"`
	Description string      `json:"description"`
	Amount      json.Number `json:"amount"`
	Account     string      `json:"account"`
	Category    string      `json:"category"`
}

// MarshalJSON encodes Amount as a JSON number rather than decimal's default
// quoted string, so queued batches keep the upload wire shape.
func (r TransactionRecord) MarshalJSON() ([]byte, error) {
	return json.Marshal(transactionRecordJSON{
		Date:        r.Date,
		Description: r.Description,
		Amount:      json.Number(r.Amount.String()),
		Account:     r.Account,
		Category:    r.Category,
	})
}

// UnmarshalJSON accepts both numeric and quoted amounts.
func (r *TransactionRecord) UnmarshalJSON(data []byte) error {
	var raw struct {
		Date        string          `json:"date"`
		Description string          `json:"description"`
		Amount      decimal.Decimal `json:"amount"`
		Account     string          `json:"account"`
		Category    string          `json:"category"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*r = TransactionRecord{
		Date:        raw.Date,
		Description: raw.Description,
		Amount:      raw.Amount,
		Account:     raw.Account,
		Category:    raw.Category,
	}
	return nil
}
