package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
)

const stagingTable = "transactions_staging"

var stagingSchema = mustInferSchema(TransactionStagingRow{})

func mustInferSchema(v interface{}) bigquery.Schema {
	schema, err := bigquery.InferSchema(v)
	if err != nil {
		panic(fmt.Sprintf("bigquery: infer schema: %v", err))
	}
	return schema
}

// InsertStagingRowsWithClient streams rows into <project>.<dataset>.transactions_staging.
func InsertStagingRowsWithClient(ctx context.Context, client *bigquery.Client, projectID, datasetID string, rows []*TransactionStagingRow) error {
	if len(rows) == 0 {
		return nil
	}

	savers := make([]*bigquery.StructSaver, len(rows))
	for i, r := range rows {
		savers[i] = &bigquery.StructSaver{
			Schema:   stagingSchema,
			InsertID: r.InsertID(),
			Struct:   r,
		}
	}

	// Use fully qualified table name to avoid project ID issues
	inserter := client.DatasetInProject(projectID, datasetID).Table(stagingTable).Inserter()
	if err := inserter.Put(ctx, savers); err != nil {
		return fmt.Errorf("InsertStagingRows: inserting rows: %w", err)
	}
	return nil
}
