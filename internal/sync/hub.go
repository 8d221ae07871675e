package sync

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Hub fans JSON events out to TCP and websocket clients. Every client belongs
// to one scope; events for a scope only reach that scope's clients.
type Hub struct {
	mu        sync.Mutex
	clients   map[net.Conn]string
	wsClients map[*websocket.Conn]string
}

type Stats struct {
	TCPClients int `json:"tcp_clients"`
	WSClients  int `json:"ws_clients"`
}

func NewHub() *Hub {
	return &Hub{
		clients:   make(map[net.Conn]string),
		wsClients: make(map[*websocket.Conn]string),
	}
}

func (h *Hub) Add(conn net.Conn, scope string) {
	h.mu.Lock()
	h.clients[conn] = scope
	h.mu.Unlock()
}

// SetScope moves an already registered TCP client to scope.
func (h *Hub) SetScope(conn net.Conn, scope string) {
	h.mu.Lock()
	if _, ok := h.clients[conn]; ok {
		h.clients[conn] = scope
	}
	h.mu.Unlock()
}

func (h *Hub) Remove(conn net.Conn) {
	h.mu.Lock()
	delete(h.clients, conn)
	h.mu.Unlock()
	_ = conn.Close()
}

func (h *Hub) AddWS(ws *websocket.Conn, scope string) {
	h.mu.Lock()
	h.wsClients[ws] = scope
	h.mu.Unlock()
}

func (h *Hub) RemoveWS(ws *websocket.Conn) {
	h.mu.Lock()
	delete(h.wsClients, ws)
	h.mu.Unlock()
	_ = ws.Close()
}

// BroadcastJSON sends v as one JSON line to the clients of scope, or to every
// client when scope is empty. Clients that fail a write are dropped.
func (h *Hub) BroadcastJSON(scope string, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	b = append(b, '\n')

	h.mu.Lock()
	defer h.mu.Unlock()

	// TCP clients
	for c, s := range h.clients {
		if scope != "" && s != scope {
			continue
		}
		_ = c.SetWriteDeadline(time.Now().Add(2 * time.Second))
		w := bufio.NewWriter(c)
		if _, err := w.Write(b); err != nil {
			_ = c.Close()
			delete(h.clients, c)
			continue
		}
		if err := w.Flush(); err != nil {
			_ = c.Close()
			delete(h.clients, c)
			continue
		}
	}

	// WebSocket clients
	for ws, s := range h.wsClients {
		if scope != "" && s != scope {
			continue
		}
		_ = ws.SetWriteDeadline(time.Now().Add(2 * time.Second))
		if err := ws.WriteMessage(websocket.TextMessage, b); err != nil {
			_ = ws.Close()
			delete(h.wsClients, ws)
		}
	}
}

// FavoritesChanged tells every context of scope the new favorites count.
func (h *Hub) FavoritesChanged(scope string, count int) {
	h.BroadcastJSON(scope, FavoritesEvent{
		Type:  TypeFavoritesChange,
		Scope: scope,
		Count: count,
		At:    time.Now().UTC(),
	})
}

// Resync asks every context of scope to re-read its favorite indicators,
// used when the stored data changed behind the server's back.
func (h *Hub) Resync(scope, origin string) {
	h.BroadcastJSON(scope, FavoritesEvent{
		Type:   TypeFavoritesResync,
		Scope:  scope,
		Origin: origin,
		At:     time.Now().UTC(),
	})
}

func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) Stats() Stats {
	h.mu.Lock()
	defer h.mu.Unlock()
	return Stats{
		TCPClients: len(h.clients),
		WSClients:  len(h.wsClients),
	}
}

func (h *Hub) Welcome(conn net.Conn) {
	msg := fmt.Sprintf("{\"type\":\"welcome\",\"message\":\"connected\",\"clients\":%d}\n", h.Count())
	_, _ = conn.Write([]byte(msg))
}
