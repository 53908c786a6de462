package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/urfave/cli/v3"

	"storyhub/pkg/logger"
)

const defaultBaseURL = "http://localhost:8080"

func main() {
	app := &cli.Command{
		Name:  "storyhub",
		Usage: "Browse and feed the webtoon/novel catalog",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "api",
				Usage:   "API base URL",
				Value:   defaultBaseURL,
				Sources: cli.EnvVars("STORYHUB_API"),
			},
			&cli.StringFlag{
				Name:  "token-file",
				Usage: "where the bearer token is kept",
				Value: defaultTokenPath(),
			},
			&cli.StringFlag{
				Name:    "config",
				Usage:   "server config file, used by token mint",
				Value:   "config.yaml",
				Sources: cli.EnvVars("STORYHUB_CONFIG"),
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "enable debug logging",
			},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			if cmd.Bool("debug") {
				return ctx, logger.SetLevel("debug")
			}
			return ctx, logger.SetLevel("warn")
		},
		Commands: []*cli.Command{
			browseCommand(),
			ingestCommand(),
			tokenCommand(),
			prefsCommand(),
			watchCommand(),
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := app.Run(ctx, os.Args); err != nil {
		logger.Fatal(err, "storyhub")
	}
}
