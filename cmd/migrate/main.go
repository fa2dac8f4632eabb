package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/dvloznov/expense-ingest/internal/config"
	infraBQ "github.com/dvloznov/expense-ingest/internal/infra/bigquery"
	"github.com/dvloznov/expense-ingest/internal/logger"
	"github.com/dvloznov/expense-ingest/internal/store"
)

// targets selects which backends to migrate.
type targets struct {
	postgres bool
	bigquery bool
}

func parseTargets(s string) (targets, error) {
	var t targets
	for _, part := range config.SplitList(s) {
		switch strings.ToLower(part) {
		case "postgres", "pg":
			t.postgres = true
		case "bigquery", "bq":
			t.bigquery = true
		case "all":
			t.postgres, t.bigquery = true, true
		default:
			return targets{}, fmt.Errorf("unknown target %q (want postgres, bigquery or all)", part)
		}
	}
	if !t.postgres && !t.bigquery {
		return targets{}, fmt.Errorf("no migration target given")
	}
	return t, nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	var (
		target    = flag.String("target", "postgres", "Comma separated backends to migrate: postgres, bigquery, all")
		projectID = flag.String("project", cfg.BigQueryProject, "GCP project ID (or set BIGQUERY_PROJECT env)")
		datasetID = flag.String("dataset", cfg.BigQueryDataset, "BigQuery dataset ID")
	)
	flag.Parse()

	log := logger.New(logger.Options{Level: cfg.LogLevel, Format: cfg.LogFormat, Service: "migrate"})
	ctx := logger.WithContext(context.Background(), log)

	t, err := parseTargets(*target)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid -target")
	}

	if t.postgres {
		db, err := store.Connect(store.OptionFromConfig(cfg.Database))
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to database")
		}
		defer db.Close()

		if err := db.Migrate(ctx); err != nil {
			log.Fatal().Err(err).Msg("Failed to migrate database")
		}
		log.Info().Str("database", cfg.Database.Name).Msg("PostgreSQL schema is up to date")
	}

	if t.bigquery {
		if *projectID == "" {
			log.Fatal().Msg("Error: -project flag is required for the bigquery target")
		}

		repo, err := infraBQ.NewRepository(ctx, *projectID, *datasetID)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create BigQuery client")
		}
		defer repo.Close()

		if err := repo.EnsureTables(ctx); err != nil {
			log.Fatal().Err(err).Msg("Failed to ensure BigQuery tables")
		}
		log.Info().Str("project", *projectID).Str("dataset", *datasetID).Msg("BigQuery tables are up to date")
	}
}
