package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"
)

type runsCmd struct {
	app *app

	limit int
}

func (*runsCmd) Name() string     { return "runs" }
func (*runsCmd) Synopsis() string { return "list recent ingestion runs from BigQuery" }
func (*runsCmd) Usage() string    { return "runs [-limit 20]\n" }

func (c *runsCmd) SetFlags(f *flag.FlagSet) {
	f.IntVar(&c.limit, "limit", 20, "Number of runs, newest first")
}

func (c *runsCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	repo, err := c.app.bigQuery(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	if repo == nil {
		fmt.Fprintln(os.Stderr, "runs needs BIGQUERY_PROJECT")
		return subcommands.ExitUsageError
	}
	defer repo.Close()

	runs, err := repo.ListRecentRuns(ctx, c.limit)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	renderRuns(os.Stdout, runs)
	return subcommands.ExitSuccess
}
