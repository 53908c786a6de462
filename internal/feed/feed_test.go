package feed

import (
	"bufio"
	"context"
	"encoding/json"
	"net"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"storyhub/pkg/models"
)

func newWSServer(t *testing.T, hub *Hub) string {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/ws", WSHandler(hub))
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

func TestWSReceivesContentEvents(t *testing.T) {
	hub := NewHub()
	url := newWSServer(t, hub)

	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer ws.Close()
	ws.SetReadDeadline(time.Now().Add(5 * time.Second))

	var hello welcome
	if err := ws.ReadJSON(&hello); err != nil {
		t.Fatalf("welcome: %v", err)
	}
	if hello.Type != TypeWelcome || hello.Transport != "websocket" || hello.Clients != 1 {
		t.Fatalf("welcome = %+v", hello)
	}

	hub.ContentUpserted(models.KindNovel, "https://n/1", "소설")

	var ev ContentEvent
	if err := ws.ReadJSON(&ev); err != nil {
		t.Fatalf("event: %v", err)
	}
	if ev.Type != TypeContentUpserted || ev.Kind != models.KindNovel || ev.URL != "https://n/1" || ev.Title != "소설" || ev.At.IsZero() {
		t.Fatalf("event = %+v", ev)
	}

	if s := hub.Stats(); s.WSClients != 1 || s.Events != 1 {
		t.Fatalf("stats = %+v", s)
	}
}

func TestWSDisconnectUnregisters(t *testing.T) {
	hub := NewHub()
	url := newWSServer(t, hub)

	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	ws.SetReadDeadline(time.Now().Add(5 * time.Second))
	if _, _, err := ws.ReadMessage(); err != nil {
		t.Fatal(err)
	}
	ws.Close()

	deadline := time.Now().Add(5 * time.Second)
	for hub.Stats().WSClients != 0 {
		if time.Now().After(deadline) {
			t.Fatal("subscriber never removed")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestTCPServer(t *testing.T) {
	hub := NewHub()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- NewServer("", hub).Serve(ctx, ln) }()

	conn, err := net.Dial("tcp", ln.Addr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	rd := bufio.NewReader(conn)

	line, err := rd.ReadBytes('\n')
	if err != nil {
		t.Fatalf("welcome: %v", err)
	}
	var hello welcome
	if err := json.Unmarshal(line, &hello); err != nil || hello.Transport != "tcp" {
		t.Fatalf("welcome = %s (%v)", line, err)
	}

	hub.ContentUpserted(models.KindWebtoon, "https://w/1", "웹툰")
	line, err = rd.ReadBytes('\n')
	if err != nil {
		t.Fatalf("event: %v", err)
	}
	var ev ContentEvent
	if err := json.Unmarshal(line, &ev); err != nil {
		t.Fatal(err)
	}
	if ev.Kind != models.KindWebtoon || ev.Title != "웹툰" {
		t.Fatalf("event = %+v", ev)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("serve: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestBroadcastWithoutSubscribers(t *testing.T) {
	hub := NewHub()
	hub.BroadcastJSON(map[string]string{"type": "noop"})
	hub.BroadcastJSON(func() {}) // not encodable, dropped

	if s := hub.Stats(); s.Events != 1 || s.TCPClients != 0 || s.WSClients != 0 {
		t.Fatalf("stats = %+v", s)
	}
}

func TestStalledSubscriberDoesNotBlockBroadcast(t *testing.T) {
	hub := NewHub()
	server, client := net.Pipe()
	defer client.Close()
	hub.AddLine(server) // client side is never read

	start := time.Now()
	for i := 0; i < 3*sendBuffer; i++ {
		hub.ContentUpserted(models.KindWebtoon, "https://w/1", "웹툰")
	}
	if elapsed := time.Since(start); elapsed >= writeTimeout {
		t.Fatalf("broadcasts took %v", elapsed)
	}

	if s := hub.Stats(); s.TCPClients != 0 || s.Events != 3*sendBuffer {
		t.Fatalf("stats = %+v", s)
	}
}
