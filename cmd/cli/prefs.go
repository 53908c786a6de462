package main

import (
	"context"
	"net/http"

	"github.com/urfave/cli/v3"

	"storyhub/pkg/models"
)

func prefsCommand() *cli.Command {
	return &cli.Command{
		Name:  "prefs",
		Usage: "Read or replace your stored blocks",
		Commands: []*cli.Command{
			{
				Name: "get",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					tok, err := mustToken(cmd.String("token-file"))
					if err != nil {
						return err
					}
					var p models.UserPreferences
					if err := doJSON(ctx, http.MethodGet, cmd.String("api")+"/users/me/preferences", tok, nil, &p); err != nil {
						return err
					}
					printJSON(p)
					return nil
				},
			},
			{
				Name:  "set",
				Usage: "replace every stored preference",
				Flags: []cli.Flag{
					&cli.StringSliceFlag{Name: "block-genre"},
					&cli.StringSliceFlag{Name: "block-tag"},
					&cli.BoolFlag{Name: "adult", Usage: "show adult content (requires an adult verified token)"},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					tok, err := mustToken(cmd.String("token-file"))
					if err != nil {
						return err
					}
					payload := map[string]any{
						"blockedGenres":    nonNil(cmd.StringSlice("block-genre")),
						"blockedTags":      nonNil(cmd.StringSlice("block-tag")),
						"showAdultContent": cmd.Bool("adult"),
					}
					var p models.UserPreferences
					if err := doJSON(ctx, http.MethodPut, cmd.String("api")+"/users/me/preferences", tok, payload, &p); err != nil {
						return err
					}
					printJSON(p)
					return nil
				},
			},
		},
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
