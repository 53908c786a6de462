package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"

	"github.com/gorilla/websocket"
	"github.com/urfave/cli/v3"

	"storyhub/internal/feed"
)

func watchCommand() *cli.Command {
	return &cli.Command{
		Name:  "watch",
		Usage: "Stream ingestion events",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "ws", Usage: "websocket URL (defaults to /ws on the API host)"},
			&cli.StringFlag{Name: "tcp", Usage: "read the plain TCP feed at this address instead"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if addr := cmd.String("tcp"); addr != "" {
				return watchTCP(ctx, addr)
			}
			endpoint := cmd.String("ws")
			if endpoint == "" {
				var err error
				if endpoint, err = websocketURL(cmd.String("api"), "/ws"); err != nil {
					return err
				}
			}
			return watchWS(ctx, endpoint)
		},
	}
}

func watchWS(ctx context.Context, endpoint string) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", endpoint, err)
	}
	defer conn.Close()
	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		printEvent(msg)
	}
}

func watchTCP(ctx context.Context, addr string) error {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}
	defer conn.Close()
	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	sc := bufio.NewScanner(conn)
	for sc.Scan() {
		printEvent(sc.Bytes())
	}
	if ctx.Err() != nil {
		return nil
	}
	return sc.Err()
}

func printEvent(raw []byte) {
	var ev feed.ContentEvent
	if err := json.Unmarshal(raw, &ev); err != nil || ev.Type != feed.TypeContentUpserted {
		fmt.Println(string(raw))
		return
	}
	fmt.Printf("%s  %-7s  %s  %s\n", ev.At.Local().Format("15:04:05"), ev.Kind, ev.Title, ev.URL)
}
