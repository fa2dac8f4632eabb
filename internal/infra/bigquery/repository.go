package bigquery

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"

	"github.com/dvloznov/expense-ingest/internal/domain"
	"github.com/dvloznov/expense-ingest/internal/jobs"
	"github.com/dvloznov/expense-ingest/internal/logger"
	"github.com/dvloznov/expense-ingest/internal/pipeline"
)

// DefaultDatasetID is used when no dataset is configured.
const DefaultDatasetID = "finance"

// Repository holds a shared BigQuery client for the run ledger and the
// transaction staging table.
type Repository struct {
	client    *bigquery.Client
	projectID string
	datasetID string
}

// NewRepository creates a Repository with a shared BigQuery client.
func NewRepository(ctx context.Context, projectID, datasetID string) (*Repository, error) {
	if projectID == "" {
		return nil, fmt.Errorf("NewRepository: project ID is required")
	}
	if datasetID == "" {
		datasetID = DefaultDatasetID
	}

	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("NewRepository: creating client: %w", err)
	}
	return &Repository{
		client:    client,
		projectID: projectID,
		datasetID: datasetID,
	}, nil
}

// Close closes the BigQuery client connection.
func (r *Repository) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}

func (r *Repository) StartRun(ctx context.Context, kind, sourceID string) (string, error) {
	return StartRunWithClient(ctx, r.client, r.datasetID, kind, sourceID)
}

func (r *Repository) MarkRunSucceeded(ctx context.Context, runID string, outcome domain.BatchOutcome) error {
	return MarkRunSucceededWithClient(ctx, r.client, r.datasetID, runID, outcome)
}

func (r *Repository) MarkRunFailed(ctx context.Context, runID string, runErr error) {
	MarkRunFailedWithClient(ctx, r.client, r.datasetID, runID, runErr)
}

// ListRecentRuns returns up to limit runs, newest first.
func (r *Repository) ListRecentRuns(ctx context.Context, limit int) ([]*IngestionRunRow, error) {
	return ListRecentRunsWithClient(ctx, r.client, r.datasetID, limit)
}

// StageImport writes a queued upload batch to the staging table and records
// it as a csv_upload run.
func (r *Repository) StageImport(ctx context.Context, job *jobs.ImportTransactionsJob) error {
	log := logger.FromContext(ctx).With().Str("job_id", job.JobID).Logger()

	runID, err := r.StartRun(ctx, RunKindCSVUpload, job.SourceID)
	if err != nil {
		log.Warn().Err(err).Msg("Could not start ingestion run")
		runID = ""
	}

	stageErr := r.stage(ctx, job)
	if runID != "" {
		if stageErr != nil {
			r.MarkRunFailed(ctx, runID, stageErr)
		} else if err := r.MarkRunSucceeded(ctx, runID, domain.BatchOutcome{Inserted: len(job.Records)}); err != nil {
			log.Warn().Err(err).Str("run_id", runID).Msg("Could not mark ingestion run succeeded")
		}
	}
	if stageErr != nil {
		return fmt.Errorf("StageImport: %w", stageErr)
	}

	log.Info().Int("rows", len(job.Records)).Msg("Staged transactions")
	return nil
}

func (r *Repository) stage(ctx context.Context, job *jobs.ImportTransactionsJob) error {
	rows := NewStagingRows(job, time.Now())
	return InsertStagingRowsWithClient(ctx, r.client, r.projectID, r.datasetID, rows)
}

var _ pipeline.RunRecorder = (*Repository)(nil)
