package httpapi

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"storyhub/internal/auth"
	"storyhub/internal/content"
	"storyhub/internal/feed"
	"storyhub/internal/ingest"
	"storyhub/internal/prefs"
)

// Deps is everything the HTTP surface needs. Prefs and Ingest are optional.
type Deps struct {
	DB      *sql.DB
	Tokens  auth.TokenService
	Hub     *feed.Hub
	Content *content.Service
	Ingest  *ingest.Service
	Prefs   *prefs.Repo

	CORSOrigins     []string
	IngestPerMinute int
	IngestBurst     int
}

func NewRouter(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), RequestID(), Logger(), CORS(d.CORSOrigins))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", ready(d))

	var blocks content.BlocklistSource
	if d.Prefs != nil {
		blocks = d.Prefs
	}
	content.NewHandler(d.Content, blocks).RegisterRoutes(r.Group("/contents", auth.OptionalAuth(d.Tokens)))

	if d.Ingest != nil {
		ingest.NewHandler(d.Ingest).RegisterRoutes(r.Group("/contents"), RateLimit(d.IngestPerMinute, d.IngestBurst))
	}

	if d.Hub != nil {
		r.GET("/ws", feed.WSHandler(d.Hub))
		r.GET("/feed/stats", feed.StatsHandler(d.Hub))
	}

	if d.Prefs != nil {
		prefs.NewHandler(d.Prefs).RegisterRoutes(r.Group("/users/me", auth.RequireAuth(d.Tokens)))
	}
	return r
}

func ready(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		body := gin.H{"status": "ready", "db": "ok"}
		if d.Hub != nil {
			body["feed"] = d.Hub.Stats()
		}
		if err := d.DB.PingContext(ctx); err != nil {
			body["status"] = "not_ready"
			body["db"] = err.Error()
			c.JSON(http.StatusServiceUnavailable, body)
			return
		}
		c.JSON(http.StatusOK, body)
	}
}
