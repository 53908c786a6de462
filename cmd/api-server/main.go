package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"storyhub/internal/auth"
	"storyhub/internal/content"
	"storyhub/internal/feed"
	"storyhub/internal/grpcserver"
	"storyhub/internal/httpapi"
	"storyhub/internal/ingest"
	"storyhub/internal/prefs"
	"storyhub/pkg/config"
	"storyhub/pkg/database"
	"storyhub/pkg/logger"
)

func main() {
	app := &cli.Command{
		Name:  "api-server",
		Usage: "Serve the catalog over HTTP, gRPC and the live feed",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Usage:   "config file (optional)",
				Value:   "config.yaml",
				Sources: cli.EnvVars("STORYHUB_CONFIG"),
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := config.Load(cmd.String("config"))
			if err != nil {
				return err
			}
			return run(ctx, cfg)
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx, os.Args); err != nil {
		logger.Fatal(err, "api-server")
	}
}

func run(ctx context.Context, cfg config.Config) error {
	if err := logger.Init(cfg.Log.Level, cfg.Log.JSON); err != nil {
		return err
	}
	if cfg.HTTP.GinMode != "" {
		gin.SetMode(cfg.HTTP.GinMode)
	}

	dbCfg := database.FromAppConfig(cfg.Database)
	db, err := database.Open(dbCfg)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := database.Migrate(ctx, db, dbCfg.Dialect); err != nil {
		return fmt.Errorf("db migrate failed: %w", err)
	}

	tokens := auth.TokenService{
		Secret:   []byte(cfg.Auth.JWTSecret),
		Issuer:   cfg.Auth.JWTIssuer,
		Duration: cfg.Auth.JWTDuration(),
	}
	hub := feed.NewHub()
	defer hub.Close()

	contentSvc := content.NewService(content.NewRepo(db, dbCfg.Dialect))
	prefsRepo := prefs.NewRepo(db, dbCfg.Dialect)
	ingestSvc := ingest.NewService(ingest.NewStore(db, dbCfg.Dialect), hub)

	router := httpapi.NewRouter(httpapi.Deps{
		DB:              db,
		Tokens:          tokens,
		Hub:             hub,
		Content:         contentSvc,
		Ingest:          ingestSvc,
		Prefs:           prefsRepo,
		CORSOrigins:     cfg.CORS.AllowOrigins,
		IngestPerMinute: cfg.Ingest.RatePerMinute,
		IngestBurst:     cfg.Ingest.Burst,
	})
	httpSrv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("HTTP API listening on %s", cfg.HTTP.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	})

	if cfg.GRPC.Addr != "" {
		gs, _ := grpcserver.New(grpcserver.NewServer(contentSvc, &tokens, prefsRepo))
		g.Go(func() error {
			lis, err := net.Listen("tcp", cfg.GRPC.Addr)
			if err != nil {
				return err
			}
			logger.Info("gRPC listening on %s", cfg.GRPC.Addr)
			if err := gs.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			gs.GracefulStop()
			return nil
		})
	}

	if cfg.Feed.TCPAddr != "" {
		g.Go(func() error {
			return feed.NewServer(cfg.Feed.TCPAddr, hub).Run(gctx)
		})
	}

	if cfg.Ingest.FeedURL != "" && cfg.Ingest.Schedule != "" {
		agg := ingest.NewAggregator(ingest.NewFeedSource(cfg.Ingest.FeedURL, ""))
		g.Go(func() error {
			return ingest.Schedule(gctx, cfg.Ingest.Schedule, ingestSvc, agg)
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("servers stopped")
	return nil
}
