package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/expense-ingest/internal/config"
	infraBQ "github.com/dvloznov/expense-ingest/internal/infra/bigquery"
	"github.com/dvloznov/expense-ingest/internal/logger"
	"github.com/dvloznov/expense-ingest/internal/marketdata"
	"github.com/dvloznov/expense-ingest/internal/pipeline"
	"github.com/dvloznov/expense-ingest/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	var (
		interval   = flag.Duration("interval", 24*time.Hour, "Time between market data batches")
		once       = flag.Bool("once", false, "Run a single batch and exit")
		indicators = flag.Bool("indicators", true, "Also reconcile economic indicators")
		migrate    = flag.Bool("migrate", cfg.AutoMigrate, "Create or update database tables on startup")
	)
	flag.Parse()

	log := logger.New(logger.Options{Level: cfg.LogLevel, Format: cfg.LogFormat, Service: "worker"})

	// Create context that cancels on interrupt
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	db, err := store.Connect(store.OptionFromConfig(cfg.Database))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	if *migrate {
		if err := db.Migrate(ctx); err != nil {
			log.Fatal().Err(err).Msg("Failed to migrate database")
		}
	}

	md := cfg.MarketData
	client := marketdata.NewClient(md.APIKey, marketdata.WithBaseURL(md.BaseURL), marketdata.WithTimeout(md.Timeout))

	opts := []pipeline.OrchestratorOption{pipeline.WithDelay(md.RateLimitDelay)}
	if cfg.BigQueryProject != "" {
		repo, err := infraBQ.NewRepository(ctx, cfg.BigQueryProject, cfg.BigQueryDataset)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create BigQuery repository")
		}
		defer repo.Close()
		opts = append(opts, pipeline.WithRecorder(repo))
	}
	orch := pipeline.NewOrchestrator(client, db, opts...)

	log.Info().
		Strs("symbols", md.Symbols).
		Dur("interval", *interval).
		Msg("Starting market data worker")

	for {
		runBatch(ctx, log, orch, md, *indicators)

		if *once {
			break
		}

		select {
		case <-ctx.Done():
			log.Info().Msg("Market data worker exited")
			return
		case <-time.After(*interval):
		}
	}
}

func runBatch(ctx context.Context, log zerolog.Logger, orch *pipeline.Orchestrator, md config.MarketData, indicators bool) {
	report, err := orch.RunSymbols(ctx, md.Symbols)
	if err != nil {
		log.Error().Err(err).Msg("Market data batch finished with error")
	}
	if report != nil {
		log.Info().
			Int("processed", report.Processed).
			Int("inserted", report.Inserted).
			Int("duplicates", report.Duplicates).
			Int("failures", len(report.Failures)).
			Int("symbols_stored", len(report.Symbols)).
			Msg("Market data batch done")
	}

	if !indicators || ctx.Err() != nil {
		return
	}

	report, err = orch.RunIndicators(ctx, md.Indicators)
	if err != nil {
		log.Error().Err(err).Msg("Indicator batch failed")
		return
	}
	log.Info().
		Int("processed", report.Processed).
		Int("inserted", report.Inserted).
		Int("failures", len(report.Failures)).
		Msg("Indicator batch done")
}
