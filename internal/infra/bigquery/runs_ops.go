package bigquery

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"

	"github.com/dvloznov/expense-ingest/internal/domain"
	"github.com/dvloznov/expense-ingest/internal/logger"
)

const (
	ingestionRunsTable = "ingestion_runs"
	maxErrorMessageLen = 2000
)

// StartRunWithClient inserts a new row into <dataset>.ingestion_runs with
// status=RUNNING and returns the generated run_id.
func StartRunWithClient(ctx context.Context, client *bigquery.Client, datasetID, kind, sourceID string) (string, error) {
	runID := uuid.NewString()

	q := client.Query(fmt.Sprintf(`
		INSERT %s.%s (
			run_id,
			kind,
			source_id,
			started_ts,
			status
		)
		VALUES (
			@run_id,
			@kind,
			@source_id,
			@started_ts,
			@status
		)
	`, datasetID, ingestionRunsTable))

	q.Parameters = []bigquery.QueryParameter{
		{Name: "run_id", Value: runID},
		{Name: "kind", Value: kind},
		{Name: "source_id", Value: sourceID},
		{Name: "started_ts", Value: time.Now()},
		{Name: "status", Value: RunStatusRunning},
	}

	if err := runQuery(ctx, q); err != nil {
		return "", fmt.Errorf("StartRun: %w", err)
	}
	return runID, nil
}

// MarkRunFailedWithClient sets status=FAILED, finished_ts and error_message.
// Errors are logged, not returned: a broken audit trail never fails a run.
func MarkRunFailedWithClient(ctx context.Context, client *bigquery.Client, datasetID, runID string, runErr error) {
	q := client.Query(fmt.Sprintf(`
		UPDATE %s.%s
		SET status = @status,
		    finished_ts = @finished_ts,
		    error_message = @error_message
		WHERE run_id = @run_id
	`, datasetID, ingestionRunsTable))

	q.Parameters = []bigquery.QueryParameter{
		{Name: "status", Value: RunStatusFailed},
		{Name: "finished_ts", Value: time.Now()},
		{Name: "error_message", Value: truncateError(runErr)},
		{Name: "run_id", Value: runID},
	}

	if err := runQuery(ctx, q); err != nil {
		log := logger.FromContext(ctx)
		log.Error().
			Err(err).
			Str("run_id", runID).
			Msg("MarkRunFailed: update failed")
	}
}

// MarkRunSucceededWithClient sets status=SUCCESS, finished_ts and the batch
// counts, and clears error_message.
func MarkRunSucceededWithClient(ctx context.Context, client *bigquery.Client, datasetID, runID string, outcome domain.BatchOutcome) error {
	q := client.Query(fmt.Sprintf(`
		UPDATE %s.%s
		SET status = @status,
		    finished_ts = @finished_ts,
		    inserted = @inserted,
		    duplicates = @duplicates,
		    error_message = ""
		WHERE run_id = @run_id
	`, datasetID, ingestionRunsTable))

	q.Parameters = []bigquery.QueryParameter{
		{Name: "status", Value: RunStatusSuccess},
		{Name: "finished_ts", Value: time.Now()},
		{Name: "inserted", Value: int64(outcome.Inserted)},
		{Name: "duplicates", Value: int64(outcome.Duplicates)},
		{Name: "run_id", Value: runID},
	}

	if err := runQuery(ctx, q); err != nil {
		return fmt.Errorf("MarkRunSucceeded: %w", err)
	}
	return nil
}

// ListRecentRunsWithClient returns the newest runs first.
func ListRecentRunsWithClient(ctx context.Context, client *bigquery.Client, datasetID string, limit int) ([]*IngestionRunRow, error) {
	if limit <= 0 {
		limit = 20
	}

	q := client.Query(fmt.Sprintf(`
		SELECT
			run_id,
			kind,
			source_id,
			started_ts,
			finished_ts,
			status,
			error_message,
			inserted,
			duplicates
		FROM %s.%s
		ORDER BY started_ts DESC
		LIMIT @limit
	`, datasetID, ingestionRunsTable))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "limit", Value: int64(limit)},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListRecentRuns: query read: %w", err)
	}

	var rows []*IngestionRunRow
	for {
		var r IngestionRunRow
		err := it.Next(&r)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListRecentRuns: iter next: %w", err)
		}
		rows = append(rows, &r)
	}

	return rows, nil
}

func runQuery(ctx context.Context, q *bigquery.Query) error {
	job, err := q.Run(ctx)
	if err != nil {
		return fmt.Errorf("running query: %w", err)
	}

	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("waiting for job: %w", err)
	}
	if err := status.Err(); err != nil {
		return fmt.Errorf("job error: %w", err)
	}
	return nil
}

func truncateError(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	if len(msg) > maxErrorMessageLen {
		msg = msg[:maxErrorMessageLen]
	}
	return msg
}
