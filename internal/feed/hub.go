package feed

import (
	"encoding/json"
	"net"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"storyhub/pkg/logger"
	"storyhub/pkg/models"
)

const (
	writeTimeout = 2 * time.Second
	// sendBuffer is how many events a subscriber may fall behind before it is dropped.
	sendBuffer = 64
)

// subscriber owns one connection. Only its writer goroutine writes to the
// connection; the hub only ever queues onto send.
type subscriber struct {
	send   chan []byte
	write  func([]byte) error
	close  func()
	remote string
}

// Hub fans ingestion events out to line-oriented TCP subscribers and websocket
// subscribers. Broadcasting never waits on the network.
type Hub struct {
	mu        sync.Mutex
	lines     map[net.Conn]*subscriber
	wsClients map[*websocket.Conn]*subscriber
	events    uint64
	log       *logrus.Entry
}

type Stats struct {
	TCPClients int    `json:"tcp_clients"`
	WSClients  int    `json:"ws_clients"`
	Events     uint64 `json:"events"`
}

func NewHub() *Hub {
	return &Hub{
		lines:     make(map[net.Conn]*subscriber),
		wsClients: make(map[*websocket.Conn]*subscriber),
		log:       logger.Module("feed"),
	}
}

// AddLine registers a TCP subscriber. The greeting is queued before any
// broadcast can reach it.
func (h *Hub) AddLine(conn net.Conn) {
	sub := &subscriber{
		send: make(chan []byte, sendBuffer),
		write: func(b []byte) error {
			_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			_, err := conn.Write(append(b, '\n'))
			return err
		},
		close:  func() { _ = conn.Close() },
		remote: conn.RemoteAddr().String(),
	}

	h.mu.Lock()
	h.lines[conn] = sub
	h.greetLocked(sub, "tcp")
	h.mu.Unlock()

	go h.writeLoop(sub, func() { h.RemoveLine(conn) })
}

func (h *Hub) RemoveLine(conn net.Conn) {
	h.mu.Lock()
	if sub, ok := h.lines[conn]; ok {
		delete(h.lines, conn)
		close(sub.send)
	}
	h.mu.Unlock()
	_ = conn.Close()
}

// AddWS registers a websocket subscriber and greets it.
func (h *Hub) AddWS(ws *websocket.Conn) {
	sub := &subscriber{
		send: make(chan []byte, sendBuffer),
		write: func(b []byte) error {
			_ = ws.SetWriteDeadline(time.Now().Add(writeTimeout))
			return ws.WriteMessage(websocket.TextMessage, b)
		},
		close:  func() { _ = ws.Close() },
		remote: ws.RemoteAddr().String(),
	}

	h.mu.Lock()
	h.wsClients[ws] = sub
	h.greetLocked(sub, "websocket")
	h.mu.Unlock()

	go h.writeLoop(sub, func() { h.RemoveWS(ws) })
}

func (h *Hub) RemoveWS(ws *websocket.Conn) {
	h.mu.Lock()
	if sub, ok := h.wsClients[ws]; ok {
		delete(h.wsClients, ws)
		close(sub.send)
	}
	h.mu.Unlock()
	_ = ws.Close()
}

func (h *Hub) greetLocked(sub *subscriber, transport string) {
	b, _ := json.Marshal(welcome{Type: TypeWelcome, Transport: transport, Clients: len(h.lines) + len(h.wsClients)})
	sub.send <- b // fresh buffer, never blocks
}

// writeLoop drains sub.send until the hub closes it or a write fails.
func (h *Hub) writeLoop(sub *subscriber, remove func()) {
	for b := range sub.send {
		if err := sub.write(b); err != nil {
			h.log.WithError(err).WithField("remote", sub.remote).Debug("dropping subscriber")
			remove()
			return
		}
	}
	sub.close()
}

// BroadcastJSON queues v for every subscriber. A subscriber whose buffer is
// full is dropped instead of holding up the caller.
func (h *Hub) BroadcastJSON(v any) {
	b, err := json.Marshal(v)
	if err != nil {
		h.log.WithError(err).Warn("encode event")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.events++

	for c, sub := range h.lines {
		if !sub.offer(b) {
			h.log.WithField("remote", sub.remote).Warn("tcp subscriber too slow, dropping")
			delete(h.lines, c)
			sub.drop()
		}
	}
	for ws, sub := range h.wsClients {
		if !sub.offer(b) {
			h.log.WithField("remote", sub.remote).Warn("ws subscriber too slow, dropping")
			delete(h.wsClients, ws)
			sub.drop()
		}
	}
}

func (s *subscriber) offer(b []byte) bool {
	select {
	case s.send <- b:
		return true
	default:
		return false
	}
}

// drop stops the writer. Closing the connection unblocks a write in flight.
func (s *subscriber) drop() {
	close(s.send)
	s.close()
}

// ContentUpserted publishes a content.upserted event.
func (h *Hub) ContentUpserted(kind models.Kind, url, title string) {
	h.BroadcastJSON(ContentEvent{
		Type:  TypeContentUpserted,
		Kind:  kind,
		URL:   url,
		Title: title,
		At:    time.Now().UTC(),
	})
}

func (h *Hub) Stats() Stats {
	h.mu.Lock()
	defer h.mu.Unlock()
	return Stats{
		TCPClients: len(h.lines),
		WSClients:  len(h.wsClients),
		Events:     h.events,
	}
}

// Close disconnects every subscriber.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c, sub := range h.lines {
		delete(h.lines, c)
		close(sub.send)
		_ = c.Close()
	}
	for ws, sub := range h.wsClients {
		delete(h.wsClients, ws)
		close(sub.send)
		_ = ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(time.Second))
		_ = ws.Close()
	}
}
