package main

import (
	"context"
	"fmt"

	"github.com/dvloznov/expense-ingest/internal/config"
	"github.com/dvloznov/expense-ingest/internal/gcsuploader"
	infraBQ "github.com/dvloznov/expense-ingest/internal/infra/bigquery"
	"github.com/dvloznov/expense-ingest/internal/marketdata"
	"github.com/dvloznov/expense-ingest/internal/store"
)

// app lazily builds the clients a command needs from configuration.
type app struct {
	cfg *config.Config
}

func (a *app) store() (*store.Store, error) {
	return store.Connect(store.OptionFromConfig(a.cfg.Database))
}

func (a *app) marketClient() *marketdata.Client {
	md := a.cfg.MarketData
	return marketdata.NewClient(md.APIKey,
		marketdata.WithBaseURL(md.BaseURL),
		marketdata.WithTimeout(md.Timeout),
	)
}

// bigQuery returns nil, nil when no project is configured.
func (a *app) bigQuery(ctx context.Context) (*infraBQ.Repository, error) {
	if a.cfg.BigQueryProject == "" {
		return nil, nil
	}
	return infraBQ.NewRepository(ctx, a.cfg.BigQueryProject, a.cfg.BigQueryDataset)
}

func (a *app) storage(ctx context.Context) (*gcsuploader.GCSStorageService, error) {
	s, err := gcsuploader.NewGCSStorageService(ctx)
	if err != nil {
		return nil, fmt.Errorf("storage: %w", err)
	}
	return s, nil
}
