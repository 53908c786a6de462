package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/urfave/cli/v3"

	"storyhub/internal/httpapi"
	"storyhub/internal/ingest"
	"storyhub/pkg/apperror"
	"storyhub/pkg/logger"
)

// mirror-server republishes an exported catalog file as an HTTP feed, so a
// second instance can pull it with ingest.feed_url.
func main() {
	app := &cli.Command{
		Name:  "mirror-server",
		Usage: "Serve an exported JSON or CSV catalog at GET /feed",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "file", Value: "data/catalog.json", Usage: "export to serve, re-read on every request"},
			&cli.StringFlag{Name: "addr", Value: ":9000", Sources: cli.EnvVars("STORYHUB_MIRROR_ADDR")},
		},
		Action: run,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx, os.Args); err != nil {
		logger.Fatal(err, "mirror-server")
	}
}

func run(ctx context.Context, cmd *cli.Command) error {
	srv := &http.Server{
		Addr:              cmd.String("addr"),
		Handler:           newRouter(cmd.String("file")),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	logger.Info("mirror-server listening on %s", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func newRouter(path string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), httpapi.RequestID(), httpapi.Logger())

	var src ingest.Source = &ingest.FileSource{Path: path}
	if strings.EqualFold(filepath.Ext(path), ".csv") {
		src = &ingest.CSVSource{Path: path}
	}

	r.GET("/feed", func(c *gin.Context) {
		// decoding first means a broken file never reaches consumers
		items, err := src.FetchAll(c.Request.Context())
		if err != nil {
			apperror.Respond(c, err)
			return
		}
		if items == nil {
			items = []ingest.Item{}
		}
		c.JSON(http.StatusOK, items)
	})
	return r
}
