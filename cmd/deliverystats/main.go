package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/joho/godotenv"

	"deliverystats/internal/cli"
	"deliverystats/internal/config"
	"deliverystats/internal/db"
	"deliverystats/internal/source"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()
	cfg := config.Load()

	app := &cli.App{
		MinDays: cfg.ForecastMinDays,
		NewSource: func(file string) (source.Source, error) {
			if file != "" {
				return source.NewFileSource(file), nil
			}
			if cfg.EventSource == config.SourceFile {
				if cfg.EventFile == "" {
					return nil, fmt.Errorf("APP_EVENT_FILE is required when APP_EVENT_SOURCE=file")
				}
				return source.NewFileSource(cfg.EventFile), nil
			}
			conn, err := db.Connect(cfg)
			if err != nil {
				return nil, fmt.Errorf("%w: %w", source.ErrSourceUnavailable, err)
			}
			return source.NewDBSource(conn), nil
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return cli.NewRootCmd(app).ExecuteContext(ctx)
}
