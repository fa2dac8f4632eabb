package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/subcommands"

	"github.com/dvloznov/expense-ingest/internal/config"
	"github.com/dvloznov/expense-ingest/internal/logger"
	"github.com/dvloznov/expense-ingest/internal/pipeline"
)

// orchestratorFlags are shared by fetch-market and fetch-indicators.
type orchestratorFlags struct {
	list    string
	delay   time.Duration
	migrate bool
	record  bool
}

func (o *orchestratorFlags) set(f *flag.FlagSet, name, def, help string, delay time.Duration) {
	f.StringVar(&o.list, name, def, help)
	f.DurationVar(&o.delay, "delay", delay, "Pause between upstream requests")
	f.BoolVar(&o.migrate, "migrate", false, "Create or update database tables first")
	f.BoolVar(&o.record, "record", true, "Record each run in BigQuery when BIGQUERY_PROJECT is set")
}

func (o *orchestratorFlags) build(ctx context.Context, a *app) (*pipeline.Orchestrator, func(), error) {
	db, err := a.store()
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() { db.Close() }

	if o.migrate {
		if err := db.Migrate(ctx); err != nil {
			cleanup()
			return nil, nil, err
		}
	}

	opts := []pipeline.OrchestratorOption{pipeline.WithDelay(o.delay)}
	if o.record {
		repo, err := a.bigQuery(ctx)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		if repo != nil {
			opts = append(opts, pipeline.WithRecorder(repo))
			cleanup = func() {
				repo.Close()
				db.Close()
			}
		}
	}

	return pipeline.NewOrchestrator(a.marketClient(), db, opts...), cleanup, nil
}

type fetchMarketCmd struct {
	app *app
	orchestratorFlags
}

func (*fetchMarketCmd) Name() string     { return "fetch-market" }
func (*fetchMarketCmd) Synopsis() string { return "fetch and reconcile daily prices for symbols" }
func (*fetchMarketCmd) Usage() string {
	return `fetch-market [-symbols AAPL,MSFT] [-delay 12s] [-migrate]

  Fetches the daily series of each symbol in turn, writes new rows, and
  prints what the store now holds. A failing symbol does not stop the batch.
`
}

func (c *fetchMarketCmd) SetFlags(f *flag.FlagSet) {
	md := c.app.cfg.MarketData
	c.set(f, "symbols", joinList(md.Symbols), "Comma separated ticker symbols", md.RateLimitDelay)
}

func (c *fetchMarketCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	symbols := config.SplitList(c.list)
	if len(symbols) == 0 {
		fmt.Fprintln(os.Stderr, "no symbols given")
		return subcommands.ExitUsageError
	}

	orch, cleanup, err := c.build(ctx, c.app)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer cleanup()

	report, err := orch.RunSymbols(ctx, symbols)
	if report != nil {
		renderReport(os.Stdout, report)
	}
	if err != nil {
		log := logger.FromContext(ctx)
		log.Error().Err(err).Msg("Market data batch finished with error")
		return subcommands.ExitFailure
	}
	return exitForReport(report)
}

type fetchIndicatorsCmd struct {
	app *app
	orchestratorFlags
}

func (*fetchIndicatorsCmd) Name() string     { return "fetch-indicators" }
func (*fetchIndicatorsCmd) Synopsis() string { return "fetch and reconcile economic indicators" }
func (*fetchIndicatorsCmd) Usage() string {
	return `fetch-indicators [-indicators REAL_GDP,INFLATION] [-delay 12s] [-migrate]
`
}

func (c *fetchIndicatorsCmd) SetFlags(f *flag.FlagSet) {
	md := c.app.cfg.MarketData
	c.set(f, "indicators", joinList(md.Indicators), "Comma separated indicator functions", md.RateLimitDelay)
}

func (c *fetchIndicatorsCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	names := config.SplitList(c.list)
	if len(names) == 0 {
		fmt.Fprintln(os.Stderr, "no indicators given")
		return subcommands.ExitUsageError
	}

	orch, cleanup, err := c.build(ctx, c.app)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer cleanup()

	report, err := orch.RunIndicators(ctx, names)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	renderReport(os.Stdout, report)
	return exitForReport(report)
}

// exitForReport fails only when every source failed.
func exitForReport(r *pipeline.BatchReport) subcommands.ExitStatus {
	if r.Processed == 0 && len(r.Failures) > 0 {
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

type symbolsCmd struct {
	app *app
}

func (*symbolsCmd) Name() string             { return "symbols" }
func (*symbolsCmd) Synopsis() string         { return "list symbols with stored market data" }
func (*symbolsCmd) Usage() string            { return "symbols\n" }
func (*symbolsCmd) SetFlags(f *flag.FlagSet) {}

func (c *symbolsCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	db, err := c.app.store()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer db.Close()

	symbols, err := db.AvailableSymbols(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	renderSymbols(os.Stdout, symbols)
	return subcommands.ExitSuccess
}

type historyCmd struct {
	app *app

	symbol    string
	indicator string
	limit     int
}

func (*historyCmd) Name() string     { return "history" }
func (*historyCmd) Synopsis() string { return "show the latest stored rows for a symbol or indicator" }
func (*historyCmd) Usage() string {
	return `history (-symbol AAPL | -indicator INFLATION) [-limit 10]
`
}

func (c *historyCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.symbol, "symbol", "", "Ticker symbol")
	f.StringVar(&c.indicator, "indicator", "", "Economic indicator name")
	f.IntVar(&c.limit, "limit", config.DefaultLatestDataLimit, "Number of rows, newest first")
}

func (c *historyCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if (c.symbol == "") == (c.indicator == "") {
		fmt.Fprintln(os.Stderr, "exactly one of -symbol or -indicator is required")
		return subcommands.ExitUsageError
	}

	db, err := c.app.store()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer db.Close()

	if c.symbol != "" {
		points, err := db.LatestMarketData(ctx, c.symbol, c.limit)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return subcommands.ExitFailure
		}
		renderPrices(os.Stdout, points)
		return subcommands.ExitSuccess
	}

	points, err := db.LatestEconomicData(ctx, c.indicator, c.limit)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	renderIndicators(os.Stdout, points)
	return subcommands.ExitSuccess
}
