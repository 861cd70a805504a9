package api

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"zombie-horde/internal/horde"

	"github.com/gorilla/websocket"
)

const (
	// MaxWSConnectionsTotal is the maximum number of WebSocket connections allowed
	MaxWSConnectionsTotal = 500

	// MaxWSConnectionsPerIP is the maximum WebSocket connections per IP
	MaxWSConnectionsPerIP = 10

	// StateEvent is the broadcast carrying a snapshot.
	StateEvent = "horde:state"

	wsWriteWait = 2 * time.Second
)

// SnapshotSource supplies the latest published snapshot without blocking
// the simulation.
type SnapshotSource interface {
	LatestSnapshot(dst *horde.Snapshot) bool
}

type wsClient struct {
	conn *websocket.Conn
	ip   string
}

// WebSocketHub fans snapshots out to viewers with DoS protection.
type WebSocketHub struct {
	clients    map[*websocket.Conn]*wsClient
	broadcast  chan []byte
	register   chan *wsClient
	unregister chan *websocket.Conn
	mu         sync.RWMutex

	upgrader  websocket.Upgrader
	wsLimiter *WebSocketRateLimiter

	stopChan chan struct{}
	stopOnce sync.Once
}

// NewWebSocketHub creates a hub accepting the given origins.
func NewWebSocketHub(origins *OriginChecker) *WebSocketHub {
	h := &WebSocketHub{
		clients:    make(map[*websocket.Conn]*wsClient),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *wsClient),
		unregister: make(chan *websocket.Conn),
		wsLimiter:  NewWebSocketRateLimiter(MaxWSConnectionsPerIP),
		stopChan:   make(chan struct{}),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origins.Allowed(origin) {
				return true
			}
			log.Printf("⚠️ WebSocket connection rejected from origin: %s", origin)
			RecordConnectionRejected("origin")
			return false
		},
	}
	return h
}

// Run processes registrations and broadcasts until Stop.
func (h *WebSocketHub) Run() {
	for {
		select {
		case <-h.stopChan:
			h.mu.Lock()
			for conn, c := range h.clients {
				h.wsLimiter.Release(c.ip)
				conn.Close()
				delete(h.clients, conn)
			}
			h.mu.Unlock()
			UpdateWSConnections(0)
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.conn] = client
			count := len(h.clients)
			h.mu.Unlock()

			log.Printf("📱 Viewer connected from %s (%d total)", client.ip, count)
			UpdateWSConnections(count)

		case conn := <-h.unregister:
			h.mu.Lock()
			h.drop(conn)
			count := len(h.clients)
			h.mu.Unlock()

			log.Printf("📱 Viewer disconnected (%d remaining)", count)
			UpdateWSConnections(count)

		case message := <-h.broadcast:
			h.mu.Lock()
			for conn := range h.clients {
				conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
				if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
					h.drop(conn)
				}
			}
			h.mu.Unlock()
			IncrementWSMessages()
		}
	}
}

// drop closes and forgets conn. Callers hold mu.
func (h *WebSocketHub) drop(conn *websocket.Conn) {
	if client, ok := h.clients[conn]; ok {
		h.wsLimiter.Release(client.ip)
		delete(h.clients, conn)
		conn.Close()
	}
}

// Stop closes every connection and ends Run and the broadcast loop.
func (h *WebSocketHub) Stop() {
	h.stopOnce.Do(func() { close(h.stopChan) })
}

// Broadcast queues an event for every client. When the queue is full the
// message is skipped.
func (h *WebSocketHub) Broadcast(event string, data any) {
	msg, err := json.Marshal(struct {
		Event string `json:"event"`
		Data  any    `json:"data"`
	}{event, data})
	if err != nil {
		return
	}

	select {
	case h.broadcast <- msg:
	default:
	}
}

// ClientCount returns the number of connected clients
func (h *WebSocketHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// StartBroadcastLoop publishes the latest snapshot every interval while
// anyone is connected.
func (h *WebSocketHub) StartBroadcastLoop(src SnapshotSource, every time.Duration) {
	ticker := time.NewTicker(every)

	go func() {
		defer ticker.Stop()
		var snap horde.Snapshot
		for {
			select {
			case <-h.stopChan:
				return
			case <-ticker.C:
			}
			if h.ClientCount() == 0 {
				continue
			}
			if !src.LatestSnapshot(&snap) {
				continue
			}
			h.Broadcast(StateEvent, &snap)
		}
	}()
}

// HandleWebSocket upgrades a viewer connection. Viewers are read-only; any
// inbound message is discarded.
func (h *WebSocketHub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	ip := GetClientIP(r)

	if total := h.ClientCount(); total >= MaxWSConnectionsTotal {
		log.Printf("⚠️ WebSocket connection rejected: total limit reached (%d)", total)
		RecordConnectionRejected("ws_total_limit")
		writeError(w, "Too many connections", http.StatusServiceUnavailable)
		return
	}

	if !h.wsLimiter.Allow(ip) {
		log.Printf("⚠️ WebSocket connection rejected from %s: per-IP limit reached", ip)
		RecordConnectionRejected("ws_ip_limit")
		writeError(w, "Too many connections from your IP", http.StatusTooManyRequests)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		h.wsLimiter.Release(ip)
		return
	}

	select {
	case h.register <- &wsClient{conn: conn, ip: ip}:
	case <-h.stopChan:
		h.wsLimiter.Release(ip)
		conn.Close()
		return
	}

	go func() {
		defer func() {
			select {
			case h.unregister <- conn:
			case <-h.stopChan:
			}
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}
