package bigquery

import (
	"errors"
	"fmt"
	"math/big"
	"strings"
	"testing"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
	"google.golang.org/api/googleapi"

	"github.com/dvloznov/expense-ingest/internal/domain"
	"github.com/dvloznov/expense-ingest/internal/jobs"
)

func TestNewStagingRows(t *testing.T) {
	ingested := time.Date(2024, 2, 1, 12, 0, 0, 0, time.UTC)
	job := &jobs.ImportTransactionsJob{
		JobID:      "job-1",
		SourceID:   "user-1",
		FileName:   "jan.csv",
		ArchiveURI: "gs://raw/uploads/user-1/jan.csv",
		Records: []domain.TransactionRecord{
			{Date: "2024-01-15", Description: "COFFEE SHOP", Amount: decimal.RequireFromString("-5.50"), Account: "Checking", Category: domain.DefaultCategory},
			{Date: "01/16/2024", Description: "SALARY", Amount: decimal.RequireFromString("2500"), Account: "Checking", Category: domain.DefaultCategory},
		},
	}

	rows := NewStagingRows(job, ingested)
	if len(rows) != 2 {
		t.Fatalf("NewStagingRows() len = %d, want 2", len(rows))
	}

	first := rows[0]
	if first.RowNo != 1 || first.JobID != "job-1" || first.SourceID != "user-1" || first.FileName != "jan.csv" {
		t.Errorf("first row identity = %+v", first)
	}
	if want := (bigquery.NullDate{Date: civil.Date{Year: 2024, Month: 1, Day: 15}, Valid: true}); first.TransactionDate != want {
		t.Errorf("TransactionDate = %v, want %v", first.TransactionDate, want)
	}
	if first.Amount.Cmp(big.NewRat(-11, 2)) != 0 {
		t.Errorf("Amount = %v, want -11/2", first.Amount)
	}
	if !first.ArchiveURI.Valid || first.ArchiveURI.StringVal != job.ArchiveURI {
		t.Errorf("ArchiveURI = %+v", first.ArchiveURI)
	}
	if !first.IngestedTS.Equal(ingested) {
		t.Errorf("IngestedTS = %v, want %v", first.IngestedTS, ingested)
	}

	second := rows[1]
	if second.RowNo != 2 || second.RawDate != "01/16/2024" {
		t.Errorf("second row = %+v", second)
	}
	if want := (bigquery.NullDate{Date: civil.Date{Year: 2024, Month: 1, Day: 16}, Valid: true}); second.TransactionDate != want {
		t.Errorf("TransactionDate = %v, want %v", second.TransactionDate, want)
	}
	if second.InsertID() != "job-1-2" {
		t.Errorf("InsertID() = %q, want job-1-2", second.InsertID())
	}
}

func TestNewStagingRows_UnrecognisedDate(t *testing.T) {
	job := &jobs.ImportTransactionsJob{
		JobID: "job-1",
		Records: []domain.TransactionRecord{
			{Date: "not-a-date", Description: "X"},
			{Date: "2024.01.17", Description: "Y"},
		},
	}
	rows := NewStagingRows(job, time.Now())
	if len(rows) != 2 {
		t.Fatalf("NewStagingRows() len = %d, want 2", len(rows))
	}
	if rows[0].TransactionDate.Valid {
		t.Errorf("TransactionDate = %v, want NULL", rows[0].TransactionDate)
	}
	if rows[0].RawDate != "not-a-date" {
		t.Errorf("RawDate = %q, want not-a-date", rows[0].RawDate)
	}
	if want := (civil.Date{Year: 2024, Month: 1, Day: 17}); !rows[1].TransactionDate.Valid || rows[1].TransactionDate.Date != want {
		t.Errorf("TransactionDate = %v, want %v", rows[1].TransactionDate, want)
	}
}

func TestNewStagingRows_NoArchive(t *testing.T) {
	job := &jobs.ImportTransactionsJob{
		JobID:   "job-1",
		Records: []domain.TransactionRecord{{Date: "2024-01-15", Description: "X"}},
	}
	rows := NewStagingRows(job, time.Now())
	if rows[0].ArchiveURI.Valid {
		t.Error("ArchiveURI should be NULL without an archived upload")
	}
}

func TestStagingSchema(t *testing.T) {
	want := map[string]bool{
		"job_id": true, "row_no": true, "source_id": true, "file_name": true,
		"transaction_date": true, "raw_date": true, "amount": true,
		"description": true, "account": true, "category": true,
		"archive_uri": true, "ingested_ts": true,
	}
	if len(stagingSchema) != len(want) {
		t.Fatalf("schema has %d fields, want %d", len(stagingSchema), len(want))
	}
	for _, f := range stagingSchema {
		if !want[f.Name] {
			t.Errorf("unexpected schema field %q", f.Name)
		}
		if f.Name == "transaction_date" && f.Required {
			t.Error("transaction_date must be NULLABLE")
		}
	}
}

func TestTruncateError(t *testing.T) {
	if got := truncateError(nil); got != "" {
		t.Errorf("truncateError(nil) = %q, want empty", got)
	}
	if got := truncateError(errors.New("boom")); got != "boom" {
		t.Errorf("truncateError() = %q, want boom", got)
	}

	long := errors.New(strings.Repeat("x", maxErrorMessageLen+50))
	if got := truncateError(long); len(got) != maxErrorMessageLen {
		t.Errorf("truncateError() len = %d, want %d", len(got), maxErrorMessageLen)
	}
}

func TestTableSpecs(t *testing.T) {
	specs := tableSpecs()
	if len(specs) != 2 {
		t.Fatalf("tableSpecs() len = %d, want 2", len(specs))
	}

	for _, spec := range specs {
		found := false
		for _, f := range spec.schema {
			if f.Name == spec.partitionField {
				found = true
			}
		}
		if !found {
			t.Errorf("%s: partition field %q missing from schema", spec.name, spec.partitionField)
		}
	}
}

func TestIsNotFound(t *testing.T) {
	if !isNotFound(fmt.Errorf("wrapped: %w", &googleapi.Error{Code: 404})) {
		t.Error("isNotFound(404) = false, want true")
	}
	if isNotFound(&googleapi.Error{Code: 403}) {
		t.Error("isNotFound(403) = true, want false")
	}
	if isNotFound(errors.New("boom")) {
		t.Error("isNotFound(plain) = true, want false")
	}
}
