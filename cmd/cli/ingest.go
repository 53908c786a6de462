package main

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v3"

	"storyhub/internal/ingest"
	"storyhub/pkg/models"
)

func ingestCommand() *cli.Command {
	return &cli.Command{
		Name:      "ingest",
		Usage:     "POST crawled records from a JSON or CSV file",
		ArgsUsage: "FILE",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "type", Usage: "kind of bare records (webtoon or novel); envelopes carry their own"},
			&cli.BoolFlag{Name: "keep-going", Usage: "continue after a rejected record"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() != 1 {
				return cli.Exit("usage: storyhub ingest FILE", 2)
			}
			var kind models.Kind
			if t := cmd.String("type"); t != "" {
				k, ok := models.ParseKind(t)
				if !ok {
					return cli.Exit("--type must be webtoon or novel", 2)
				}
				kind = k
			}

			path := cmd.Args().First()
			var src ingest.Source = &ingest.FileSource{Path: path, Kind: kind}
			if strings.EqualFold(filepath.Ext(path), ".csv") {
				src = &ingest.CSVSource{Path: path, Kind: kind}
			}

			items, err := src.FetchAll(ctx)
			if err != nil {
				return err
			}

			endpoint := cmd.String("api") + "/contents"
			sent, failed := 0, 0
			for _, it := range items {
				payload := map[string]any{"type": it.Kind, "data": it.Record}
				if err := doJSON(ctx, http.MethodPost, endpoint, "", payload, nil); err != nil {
					failed++
					fmt.Printf("rejected %s: %v\n", it.Record.URL, err)
					if !cmd.Bool("keep-going") {
						return err
					}
					continue
				}
				sent++
			}
			fmt.Printf("sent %d record(s), %d rejected\n", sent, failed)
			return nil
		},
	}
}
