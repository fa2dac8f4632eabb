package bigquery

import (
	"fmt"
	"math/big"
	"time"

	"cloud.google.com/go/bigquery"

	"github.com/dvloznov/expense-ingest/internal/jobs"
	"github.com/dvloznov/expense-ingest/internal/pipeline"
)

// TransactionStagingRow is one parsed CSV record waiting for the downstream
// categorizer.
type TransactionStagingRow struct {
	JobID    string `bigquery:"job_id"`    // REQUIRED
	RowNo    int64  `bigquery:"row_no"`    // REQUIRED, 1-based position in the upload
	SourceID string `bigquery:"source_id"` // REQUIRED
	FileName string `bigquery:"file_name"` // NULLABLE

	TransactionDate bigquery.NullDate `bigquery:"transaction_date"` // NULLABLE, NULL when RawDate is not a recognised layout
	RawDate         string            `bigquery:"raw_date"`         // REQUIRED, as uploaded

	Amount      *big.Rat `bigquery:"amount"`      // REQUIRED NUMERIC
	Description string   `bigquery:"description"` // REQUIRED
	Account     string   `bigquery:"account"`     // NULLABLE
	Category    string   `bigquery:"category"`    // REQUIRED

	ArchiveURI bigquery.NullString `bigquery:"archive_uri"` // NULLABLE
	IngestedTS time.Time           `bigquery:"ingested_ts"` // REQUIRED
}

// NewStagingRows maps a queued batch to staging rows, preserving upload order.
func NewStagingRows(job *jobs.ImportTransactionsJob, ingested time.Time) []*TransactionStagingRow {
	rows := make([]*TransactionStagingRow, 0, len(job.Records))
	for i, rec := range job.Records {
		row := &TransactionStagingRow{
			JobID:       job.JobID,
			RowNo:       int64(i + 1),
			SourceID:    job.SourceID,
			FileName:    job.FileName,
			RawDate:     rec.Date,
			Amount:      rec.Amount.Rat(),
			Description: rec.Description,
			Account:     rec.Account,
			Category:    rec.Category,
			IngestedTS:  ingested,
		}
		if date, err := pipeline.ParseDate(rec.Date); err == nil {
			row.TransactionDate = bigquery.NullDate{Date: date, Valid: true}
		}
		if job.ArchiveURI != "" {
			row.ArchiveURI = bigquery.NullString{StringVal: job.ArchiveURI, Valid: true}
		}
		rows = append(rows, row)
	}
	return rows
}

// InsertID lets BigQuery drop rows re-sent when a job is retried.
func (r *TransactionStagingRow) InsertID() string {
	return fmt.Sprintf("%s-%d", r.JobID, r.RowNo)
}
