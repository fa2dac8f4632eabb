package bigquery

import (
	"time"

	"cloud.google.com/go/bigquery"
)

// Run statuses written to ingestion_runs.
const (
	RunStatusRunning = "RUNNING"
	RunStatusSuccess = "SUCCESS"
	RunStatusFailed  = "FAILED"
)

// RunKindCSVUpload tags runs that stage an uploaded CSV batch.
const RunKindCSVUpload = "csv_upload"

type IngestionRunRow struct {
	RunID    string `bigquery:"run_id"`    // REQUIRED
	Kind     string `bigquery:"kind"`      // REQUIRED: symbol, indicator, csv_upload
	SourceID string `bigquery:"source_id"` // REQUIRED

	StartedTS  time.Time              `bigquery:"started_ts"`  // REQUIRED
	FinishedTS bigquery.NullTimestamp `bigquery:"finished_ts"` // NULLABLE

	Status       string `bigquery:"status"`        // NULLABLE
	ErrorMessage string `bigquery:"error_message"` // NULLABLE

	Inserted   bigquery.NullInt64 `bigquery:"inserted"`   // NULLABLE
	Duplicates bigquery.NullInt64 `bigquery:"duplicates"` // NULLABLE
}
