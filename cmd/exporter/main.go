package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/urfave/cli/v3"

	"storyhub/internal/content"
	"storyhub/internal/ingest"
	"storyhub/pkg/config"
	"storyhub/pkg/database"
	"storyhub/pkg/logger"
)

const pageSize = 500

func main() {
	app := &cli.Command{
		Name:  "exporter",
		Usage: "Dump the catalog as CSV or as the JSON layout the importer reads",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Value:   "config.yaml",
				Sources: cli.EnvVars("STORYHUB_CONFIG"),
			},
			&cli.StringFlag{Name: "out", Value: "data/catalog.json", Usage: `output path, "-" for stdout`},
			&cli.StringFlag{Name: "format", Usage: "csv or json (default: from the --out extension)"},
			&cli.StringFlag{Name: "type", Value: "all", Usage: "webtoon, novel or all"},
			&cli.IntFlag{Name: "limit", Usage: "stop after this many items (0 exports everything)"},
			&cli.BoolFlag{Name: "adult", Usage: "include adult-rated works"},
		},
		Action: run,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx, os.Args); err != nil {
		logger.Fatal(err, "exporter")
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

	out := cmd.String("out")
	if out == "-" {
		// keep stdout clean for the export itself
		logger.SetOutput(os.Stderr)
	}
	format := strings.ToLower(cmd.String("format"))
	if format == "" {
		format = strings.TrimPrefix(strings.ToLower(filepath.Ext(out)), ".")
	}
	if format != "csv" && format != "json" {
		return cli.Exit("--format must be csv or json", 2)
	}

	dbCfg := database.FromAppConfig(cfg.Database)
	db := database.MustOpen(dbCfg)
	defer db.Close()

	if err := database.Migrate(ctx, db, dbCfg.Dialect); err != nil {
		return err
	}

	f := content.Filter{
		Kind:             content.KindFilter(cmd.String("type")),
		ShowAdultContent: cmd.Bool("adult"),
		SortBy:           content.SortNewest,
	}
	items, err := collect(ctx, content.NewService(content.NewRepo(db, dbCfg.Dialect)), f, int(cmd.Int("limit")))
	if err != nil {
		return err
	}

	var w io.Writer = os.Stdout
	if out != "-" {
		if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
			return err
		}
		file, err := os.Create(out)
		if err != nil {
			return err
		}
		defer file.Close()
		w = file
	}

	if format == "csv" {
		err = ingest.WriteCSV(w, items)
	} else {
		err = ingest.WriteJSON(w, items)
	}
	if err != nil {
		return fmt.Errorf("write %s: %w", out, err)
	}
	logger.Info("exported %d item(s) to %s", len(items), out)
	return nil
}

// collect pages through the catalog until it runs dry or limit items are read.
func collect(ctx context.Context, svc *content.Service, f content.Filter, limit int) ([]ingest.Item, error) {
	var items []ingest.Item
	for {
		f.Limit = pageSize
		if limit > 0 && limit-len(items) < pageSize {
			f.Limit = limit - len(items)
		}
		page, err := svc.FetchPage(ctx, f)
		if err != nil {
			return nil, err
		}
		for _, m := range page.Items {
			items = append(items, ingest.FromContent(m))
		}
		if !page.HasMore || (limit > 0 && len(items) >= limit) {
			return items, nil
		}
		f.Offset += len(page.Items)
	}
}
