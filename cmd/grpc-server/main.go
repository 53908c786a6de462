package main

import (
	"context"
	"errors"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"
	"google.golang.org/grpc"

	"storyhub/internal/auth"
	"storyhub/internal/content"
	"storyhub/internal/grpcserver"
	"storyhub/internal/prefs"
	"storyhub/pkg/config"
	"storyhub/pkg/database"
	"storyhub/pkg/logger"
)

// grpc-server runs the read-only catalog service on its own, for deployments
// that keep the HTTP API and the gRPC endpoint on separate hosts.
func main() {
	app := &cli.Command{
		Name:  "grpc-server",
		Usage: "Serve the catalog over gRPC only",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Value:   "config.yaml",
				Sources: cli.EnvVars("STORYHUB_CONFIG"),
			},
			&cli.StringFlag{Name: "addr", Usage: "listen address (defaults to grpc.addr)"},
		},
		Action: run,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx, os.Args); err != nil {
		logger.Fatal(err, "grpc-server")
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

	addr := cmd.String("addr")
	if addr == "" {
		addr = cfg.GRPC.Addr
	}
	if addr == "" {
		return cli.Exit("no listen address: set grpc.addr or --addr", 2)
	}

	dbCfg := database.FromAppConfig(cfg.Database)
	db := database.MustOpen(dbCfg)
	defer db.Close()

	if err := database.Migrate(ctx, db, dbCfg.Dialect); err != nil {
		return err
	}

	tokens := auth.TokenService{
		Secret:   []byte(cfg.Auth.JWTSecret),
		Issuer:   cfg.Auth.JWTIssuer,
		Duration: cfg.Auth.JWTDuration(),
	}
	srv := grpcserver.NewServer(
		content.NewService(content.NewRepo(db, dbCfg.Dialect)),
		&tokens,
		prefs.NewRepo(db, dbCfg.Dialect),
	)
	gs, health := grpcserver.New(srv)

	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	go func() {
		<-ctx.Done()
		health.Shutdown()
		gs.GracefulStop()
	}()

	logger.Info("gRPC server listening on %s", addr)
	if err := gs.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return err
	}
	return nil
}
