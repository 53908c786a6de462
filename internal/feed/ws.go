package feed

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WSHandler upgrades GET /ws and keeps the subscriber until it disconnects.
// Incoming frames are read and discarded.
func WSHandler(hub *Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			hub.log.WithError(err).Debug("upgrade failed")
			return
		}

		hub.AddWS(ws)
		hub.log.WithField("remote", c.ClientIP()).Info("ws subscriber connected")

		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				break
			}
		}

		hub.RemoveWS(ws)
		hub.log.WithField("remote", c.ClientIP()).Info("ws subscriber disconnected")
	}
}

// StatsHandler reports subscriber counts.
func StatsHandler(hub *Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, hub.Stats())
	}
}
