package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	"storyhub/internal/ingest"
	"storyhub/pkg/config"
	"storyhub/pkg/database"
	"storyhub/pkg/logger"
	"storyhub/pkg/models"
)

func main() {
	app := &cli.Command{
		Name:  "importer",
		Usage: "Merge crawler output from files and feeds into the catalog",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Value:   "config.yaml",
				Sources: cli.EnvVars("STORYHUB_CONFIG"),
			},
			&cli.StringSliceFlag{Name: "file", Usage: "JSON file of records, repeatable"},
			&cli.StringSliceFlag{Name: "csv", Usage: "CSV file with a header row, repeatable"},
			&cli.StringSliceFlag{Name: "feed", Usage: "HTTP JSON feed URL, repeatable (defaults to ingest.feed_url)"},
			&cli.StringFlag{Name: "type", Usage: "kind of bare records: webtoon or novel"},
			&cli.StringFlag{Name: "schedule", Usage: `cron spec such as "@every 30m"; runs once when empty (defaults to ingest.schedule)`},
		},
		Action: run,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx, os.Args); err != nil {
		logger.Fatal(err, "importer")
	}
}

func run(ctx context.Context, cmd *cli.Command) error {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return err
	}
	if err := logger.Init(cfg.Log.Level, cfg.Log.JSON); err != nil {
		return err
	}

	var kind models.Kind
	if t := cmd.String("type"); t != "" {
		k, ok := models.ParseKind(t)
		if !ok {
			return cli.Exit("--type must be webtoon or novel", 2)
		}
		kind = k
	}

	var sources []ingest.Source
	for _, path := range cmd.StringSlice("file") {
		sources = append(sources, &ingest.FileSource{Path: path, Kind: kind})
	}
	for _, path := range cmd.StringSlice("csv") {
		sources = append(sources, &ingest.CSVSource{Path: path, Kind: kind})
	}
	feeds := cmd.StringSlice("feed")
	if len(feeds) == 0 && cfg.Ingest.FeedURL != "" {
		feeds = []string{cfg.Ingest.FeedURL}
	}
	for _, u := range feeds {
		sources = append(sources, ingest.NewFeedSource(u, kind))
	}
	if len(sources) == 0 {
		return cli.Exit("nothing to import: pass --file, --csv or --feed", 2)
	}

	dbCfg := database.FromAppConfig(cfg.Database)
	db := database.MustOpen(dbCfg)
	defer db.Close()

	if err := database.Migrate(ctx, db, dbCfg.Dialect); err != nil {
		return err
	}

	svc := ingest.NewService(ingest.NewStore(db, dbCfg.Dialect), nil)
	agg := ingest.NewAggregator(sources...)

	schedule := cmd.String("schedule")
	if schedule == "" {
		schedule = cfg.Ingest.Schedule
	}
	if schedule == "" {
		n, err := svc.Import(ctx, agg)
		if err != nil {
			return err
		}
		logger.Info("imported %d record(s)", n)
		return nil
	}

	logger.Info("importing on schedule %q", schedule)
	return ingest.Schedule(ctx, schedule, svc, agg)
}
