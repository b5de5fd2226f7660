package transport

import (
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"tuner/internal/log"
)

// minSendInterval caps the broadcast rate so a fast analysis loop cannot
// flood slow clients.
const minSendInterval = 33 * time.Millisecond

// WebSocket broadcasts readings as JSON to every client connected on
// /readings.
type WebSocket struct {
	clients  map[*websocket.Conn]bool
	mu       sync.Mutex
	upgrader websocket.Upgrader
	server   *http.Server
	listener net.Listener

	lastSend    time.Time
	minInterval time.Duration
}

// NewWebSocket binds addr and starts serving. Use an addr ending in ":0" to
// pick a free port; Addr reports the one chosen.
func NewWebSocket(addr string) (*WebSocket, error) {
	t := &WebSocket{
		clients: make(map[*websocket.Conn]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		minInterval: minSendInterval,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/readings", t.handleWebSocket)
	t.server = &http.Server{Handler: mux}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	t.listener = ln

	go func() {
		log.Infof("WebSocket: serving readings on ws://%s/readings", ln.Addr())
		if err := t.server.Serve(ln); err != http.ErrServerClosed {
			log.Errorf("WebSocket: server error: %v", err)
		}
	}()

	return t, nil
}

// Addr returns the address the server is listening on.
func (t *WebSocket) Addr() string {
	return t.listener.Addr().String()
}

func (t *WebSocket) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := t.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warnf("WebSocket: upgrade error: %v", err)
		return
	}

	t.mu.Lock()
	t.clients[conn] = true
	total := len(t.clients)
	t.mu.Unlock()
	log.Debugf("WebSocket: client connected, total: %d", total)

	// Drain the connection; the read failing is how we learn the client
	// went away.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				t.mu.Lock()
				delete(t.clients, conn)
				t.mu.Unlock()
				conn.Close()
				return
			}
		}
	}()
}

// Send broadcasts data to all connected clients, dropping updates that
// arrive faster than the rate limit. Clients that fail a write are removed.
func (t *WebSocket) Send(data any) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := time.Now()
	if now.Sub(t.lastSend) < t.minInterval {
		return nil
	}
	t.lastSend = now

	for client := range t.clients {
		if err := client.WriteJSON(data); err != nil {
			client.Close()
			delete(t.clients, client)
		}
	}
	return nil
}

// Close disconnects all clients and shuts down the server.
func (t *WebSocket) Close() error {
	t.mu.Lock()
	for client := range t.clients {
		client.Close()
		delete(t.clients, client)
	}
	t.mu.Unlock()

	return t.server.Close()
}

var _ Transport = (*WebSocket)(nil)
