package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"github.com/dvloznov/expense-ingest/internal/config"
	"github.com/dvloznov/expense-ingest/internal/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	app := &app{cfg: cfg}

	commander := subcommands.NewCommander(flag.CommandLine, "expense-ingest")
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	commander.Register(commander.CommandsCommand(), "")

	commander.Register(&ingestCSVCmd{app: app}, "transactions")
	commander.Register(&fetchMarketCmd{app: app}, "market data")
	commander.Register(&fetchIndicatorsCmd{app: app}, "market data")
	commander.Register(&symbolsCmd{app: app}, "market data")
	commander.Register(&historyCmd{app: app}, "market data")
	commander.Register(&runsCmd{app: app}, "audit")

	flag.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")
	flag.Parse()

	log := logger.New(logger.Options{Level: cfg.LogLevel, Format: cfg.LogFormat, Out: os.Stderr})
	ctx := logger.WithContext(context.Background(), log)

	os.Exit(int(commander.Execute(ctx)))
}
