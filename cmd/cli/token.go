package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"storyhub/internal/auth"
	"storyhub/pkg/config"
)

func tokenCommand() *cli.Command {
	return &cli.Command{
		Name:  "token",
		Usage: "Manage the bearer token used for personalized requests",
		Commands: []*cli.Command{
			{
				Name:  "mint",
				Usage: "sign a development token with the server's secret",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "user", Usage: "user id", Required: true},
					&cli.StringFlag{Name: "username"},
					&cli.BoolFlag{Name: "adult-verified", Usage: "mark the user as adult verified"},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					cfg, err := config.Load(cmd.String("config"))
					if err != nil {
						return err
					}
					tokens := auth.TokenService{
						Secret:   []byte(cfg.Auth.JWTSecret),
						Issuer:   cfg.Auth.JWTIssuer,
						Duration: cfg.Auth.JWTDuration(),
					}
					raw, exp, err := tokens.Sign(auth.Subject{
						UserID:        cmd.String("user"),
						Username:      cmd.String("username"),
						AdultVerified: cmd.Bool("adult-verified"),
					})
					if err != nil {
						return err
					}
					if err := saveToken(cmd.String("token-file"), raw); err != nil {
						return fmt.Errorf("save token: %w", err)
					}
					fmt.Printf("token for %s saved, expires %s\n", cmd.String("user"), exp.Format("2006-01-02 15:04"))
					return nil
				},
			},
			{
				Name:  "show",
				Usage: "print the saved token",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					tok, err := mustToken(cmd.String("token-file"))
					if err != nil {
						return err
					}
					fmt.Println(tok)
					return nil
				},
			},
			{
				Name:  "clear",
				Usage: "forget the saved token",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					if err := os.Remove(cmd.String("token-file")); err != nil && !os.IsNotExist(err) {
						return err
					}
					fmt.Println("token cleared")
					return nil
				},
			},
		},
	}
}
