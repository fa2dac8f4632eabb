package bigquery

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/googleapi"

	"github.com/dvloznov/expense-ingest/internal/logger"
)

type tableSpec struct {
	name           string
	schema         bigquery.Schema
	partitionField string
}

func tableSpecs() []tableSpec {
	return []tableSpec{
		{name: ingestionRunsTable, schema: mustInferSchema(IngestionRunRow{}), partitionField: "started_ts"},
		{name: stagingTable, schema: stagingSchema, partitionField: "ingested_ts"},
	}
}

// EnsureTablesWithClient creates any missing ledger and staging tables.
// Existing tables are left untouched.
func EnsureTablesWithClient(ctx context.Context, client *bigquery.Client, projectID, datasetID string) error {
	log := logger.FromContext(ctx)
	ds := client.DatasetInProject(projectID, datasetID)

	for _, spec := range tableSpecs() {
		table := ds.Table(spec.name)

		_, err := table.Metadata(ctx)
		if err == nil {
			log.Debug().Str("table", spec.name).Msg("Table exists")
			continue
		}
		if !isNotFound(err) {
			return fmt.Errorf("EnsureTables: %s metadata: %w", spec.name, err)
		}

		meta := &bigquery.TableMetadata{
			Schema: spec.schema,
			TimePartitioning: &bigquery.TimePartitioning{
				Type:  bigquery.DayPartitioningType,
				Field: spec.partitionField,
			},
		}
		if err := table.Create(ctx, meta); err != nil {
			return fmt.Errorf("EnsureTables: create %s: %w", spec.name, err)
		}
		log.Info().Str("table", spec.name).Msg("Created table")
	}
	return nil
}

// EnsureTables creates missing tables in the repository's dataset.
func (r *Repository) EnsureTables(ctx context.Context) error {
	return EnsureTablesWithClient(ctx, r.client, r.projectID, r.datasetID)
}

func isNotFound(err error) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound
}
