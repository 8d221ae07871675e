package sync

import (
	"bufio"
	"encoding/json"
	"errors"
	"log"
	"net"
	"strings"
	"sync"
)

// Server accepts TCP sync clients. A client starts in the empty scope and
// picks one by sending {"type":"subscribe","scope":"..."} as a line.
type Server struct {
	Addr string
	Hub  *Hub

	mu sync.Mutex
	ln net.Listener
}

func NewServer(addr string, hub *Hub) *Server {
	return &Server{Addr: addr, Hub: hub}
}

func (s *Server) Run() error {
	ln, err := net.Listen("tcp", s.Addr)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.ln = ln
	s.mu.Unlock()
	log.Printf("[tcp-sync] listening on %s", ln.Addr())

	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			continue
		}

		s.Hub.Add(conn, "")
		s.Hub.Welcome(conn)
		log.Printf("[tcp-sync] client connected: %s", conn.RemoteAddr())

		go s.serve(conn)
	}
}

func (s *Server) serve(c net.Conn) {
	defer func() {
		s.Hub.Remove(c)
		log.Printf("[tcp-sync] client disconnected: %s", c.RemoteAddr())
	}()

	sc := bufio.NewScanner(c)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		var msg subscribeMessage
		if err := json.Unmarshal([]byte(line), &msg); err != nil || msg.Type != "subscribe" {
			// anything else is ignored
			continue
		}
		s.Hub.SetScope(c, msg.Scope)
		log.Printf("[tcp-sync] %s subscribed to %s", c.RemoteAddr(), msg.Scope)
	}
}

// ListenAddr is the bound address once Run has started listening.
func (s *Server) ListenAddr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

func (s *Server) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return nil
	}
	return s.ln.Close()
}
