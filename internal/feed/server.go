package feed

import (
	"bufio"
	"context"
	"errors"
	"net"
)

// Server exposes the feed as newline-delimited JSON over plain TCP.
type Server struct {
	Addr string
	Hub  *Hub
}

func NewServer(addr string, hub *Hub) *Server {
	return &Server{Addr: addr, Hub: hub}
}

// Run listens on Addr until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", s.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve accepts subscribers on ln. It closes ln when ctx is done.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()
	s.Hub.log.WithField("addr", ln.Addr().String()).Info("tcp feed listening")

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			s.Hub.log.WithError(err).Warn("accept failed")
			continue
		}

		s.Hub.AddLine(conn)
		go func(c net.Conn) {
			defer s.Hub.RemoveLine(c)
			// drain until the subscriber hangs up
			sc := bufio.NewScanner(c)
			for sc.Scan() {
			}
		}(conn)
	}
}
