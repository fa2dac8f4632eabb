package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/expense-ingest/internal/api"
	"github.com/dvloznov/expense-ingest/internal/api/handlers"
	"github.com/dvloznov/expense-ingest/internal/config"
	"github.com/dvloznov/expense-ingest/internal/gcsuploader"
	infraBQ "github.com/dvloznov/expense-ingest/internal/infra/bigquery"
	"github.com/dvloznov/expense-ingest/internal/jobs"
	"github.com/dvloznov/expense-ingest/internal/jobs/inmemory"
	"github.com/dvloznov/expense-ingest/internal/logger"
	"github.com/dvloznov/expense-ingest/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	// Parse command-line flags
	var (
		port    = flag.String("port", cfg.Port, "HTTP server port (or set PORT env)")
		bucket  = flag.String("bucket", cfg.GCSBucket, "GCS bucket for raw upload archives (or set GCS_BUCKET env)")
		migrate = flag.Bool("migrate", cfg.AutoMigrate, "Create or update database tables on startup (or set AUTO_MIGRATE env)")
	)
	flag.Parse()

	log := logger.New(logger.Options{Level: cfg.LogLevel, Format: cfg.LogFormat, Service: "api"})
	ctx := logger.WithContext(context.Background(), log)

	// Market data store
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

	// Raw upload archive
	var archiver handlers.Archiver
	if *bucket != "" {
		storage, err := gcsuploader.NewGCSStorageService(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create storage client")
		}
		defer storage.Close()
		archiver = gcsuploader.NewArchiver(storage, *bucket)
	} else {
		log.Warn().Msg("No GCS bucket configured - raw uploads will not be archived")
	}

	// Job infrastructure
	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(cfg.QueueBuffer, jobStore, inmemory.WithWorkers(cfg.QueueWorkers))

	jobHandler := logOnlyHandler(log)
	if cfg.BigQueryProject != "" {
		repo, err := infraBQ.NewRepository(ctx, cfg.BigQueryProject, cfg.BigQueryDataset)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create BigQuery repository")
		}
		defer repo.Close()
		jobHandler = stagingHandler(repo)
	} else {
		log.Warn().Msg("No BigQuery project configured - queued batches will only be logged")
	}

	workerCtx, cancelWorker := context.WithCancel(ctx)
	defer cancelWorker()

	if err := jobQueue.Start(workerCtx, jobHandler); err != nil {
		log.Fatal().Err(err).Msg("Failed to start job worker")
	}

	handler := api.NewRouter(api.Deps{
		Publisher:      jobQueue,
		JobStore:       jobStore,
		MarketData:     db,
		Archiver:       archiver,
		DB:             db,
		MaxUploadBytes: cfg.MaxUploadBytes,
		Log:            log,
	})

	server := &http.Server{
		Addr:         ":" + *port,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("port", *port).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	// Stop job queue and wait for in-flight jobs
	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping job queue")
	}
	cancelWorker()

	log.Info().Msg("Server exited")
}

func stagingHandler(repo *infraBQ.Repository) jobs.JobHandler {
	return func(ctx context.Context, job jobs.Job) error {
		importJob, ok := job.(*jobs.ImportTransactionsJob)
		if !ok {
			return fmt.Errorf("unexpected job type: %T", job)
		}
		return repo.StageImport(ctx, importJob)
	}
}

func logOnlyHandler(log zerolog.Logger) jobs.JobHandler {
	return func(ctx context.Context, job jobs.Job) error {
		importJob, ok := job.(*jobs.ImportTransactionsJob)
		if !ok {
			return fmt.Errorf("unexpected job type: %T", job)
		}
		log.Info().
			Str("job_id", importJob.JobID).
			Str("source_id", importJob.SourceID).
			Str("file_name", importJob.FileName).
			Int("records", importJob.RecordCount).
			Msg("Received import batch")
		return nil
	}
}
