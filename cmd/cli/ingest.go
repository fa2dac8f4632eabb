package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/subcommands"
	"github.com/google/uuid"

	"github.com/dvloznov/expense-ingest/internal/gcsuploader"
	"github.com/dvloznov/expense-ingest/internal/jobs"
	"github.com/dvloznov/expense-ingest/internal/logger"
	"github.com/dvloznov/expense-ingest/internal/pipeline"
)

type ingestCSVCmd struct {
	app *app

	file    string
	gcsURI  string
	userID  string
	stage   bool
	archive bool
	quiet   bool
}

func (*ingestCSVCmd) Name() string     { return "ingest-csv" }
func (*ingestCSVCmd) Synopsis() string { return "parse a bank CSV export and optionally stage it" }
func (*ingestCSVCmd) Usage() string {
	return `ingest-csv (-file <path> | -gcs-uri gs://bucket/object) -user <id> [-stage] [-archive]

  Parses the CSV, prints the records, and with -stage writes them to the
  BigQuery staging table. -archive copies a local file to GCS_BUCKET first.
`
}

func (c *ingestCSVCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.file, "file", "", "Path to a local CSV file")
	f.StringVar(&c.gcsURI, "gcs-uri", "", "GCS URI of the CSV file")
	f.StringVar(&c.userID, "user", "cli", "Source (user) ID recorded on the batch")
	f.BoolVar(&c.stage, "stage", false, "Write the parsed batch to the BigQuery staging table")
	f.BoolVar(&c.archive, "archive", false, "Archive the raw file to GCS_BUCKET")
	f.BoolVar(&c.quiet, "q", false, "Only print the summary line")
}

func (c *ingestCSVCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	log := logger.FromContext(ctx)

	if (c.file == "") == (c.gcsURI == "") {
		fmt.Fprintln(os.Stderr, "exactly one of -file or -gcs-uri is required")
		return subcommands.ExitUsageError
	}

	var storage *gcsuploader.GCSStorageService
	if c.gcsURI != "" || c.archive {
		s, err := c.app.storage(ctx)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return subcommands.ExitFailure
		}
		defer s.Close()
		storage = s
	}

	data, fileName, err := readSource(ctx, c.file, c.gcsURI, storage)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	records, err := pipeline.ParseTransactionsString(string(data))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	job := &jobs.ImportTransactionsJob{
		SourceID:    c.userID,
		FileName:    fileName,
		Records:     records,
		RecordCount: len(records),
	}

	if c.archive {
		if c.gcsURI != "" {
			job.ArchiveURI = c.gcsURI
		} else {
			archiver := gcsuploader.NewArchiver(storage, c.app.cfg.GCSBucket)
			if archiver == nil {
				fmt.Fprintln(os.Stderr, "-archive needs GCS_BUCKET")
				return subcommands.ExitUsageError
			}
			uri, err := archiver.Archive(ctx, c.userID, fileName, data)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				return subcommands.ExitFailure
			}
			job.ArchiveURI = uri
		}
	}

	if !c.quiet {
		renderTransactions(os.Stdout, records)
	}

	if c.stage {
		repo, err := c.app.bigQuery(ctx)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return subcommands.ExitFailure
		}
		if repo == nil {
			fmt.Fprintln(os.Stderr, "-stage needs BIGQUERY_PROJECT")
			return subcommands.ExitUsageError
		}
		defer repo.Close()

		job.JobID = uuid.NewString()
		if err := repo.StageImport(ctx, job); err != nil {
			log.Error().Err(err).Msg("Staging failed")
			return subcommands.ExitFailure
		}
	}

	fmt.Printf("Parsed %d transaction(s) from %s\n", len(records), fileName)
	return subcommands.ExitSuccess
}

// readSource loads the CSV bytes and the file name to record on the batch.
func readSource(ctx context.Context, file, gcsURI string, storage gcsuploader.StorageService) ([]byte, string, error) {
	if gcsURI != "" {
		data, err := storage.FetchFromGCS(ctx, gcsURI)
		if err != nil {
			return nil, "", err
		}
		return data, gcsuploader.ExtractFilenameFromGCSURI(gcsURI), nil
	}

	data, err := os.ReadFile(file)
	if err != nil {
		return nil, "", fmt.Errorf("read %s: %w", file, err)
	}
	return data, filepath.Base(file), nil
}
