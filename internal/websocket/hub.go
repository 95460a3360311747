// Package websocket pushes live processing outcomes to dashboard clients.
package websocket

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for development
	},
}

// DispatchEvent is a real-time processing update sent to dashboard clients.
type DispatchEvent struct {
	Type       string    `json:"type"` // "job_processed", "job_failed"
	JobID      string    `json:"job_id"`
	Kind       string    `json:"kind"`
	Error      string    `json:"error,omitempty"`
	DurationMs int64     `json:"duration_ms"`
	Timestamp  time.Time `json:"timestamp"`
}

// Hub fans dispatch events out to every connected WebSocket session. The
// session set is owned by the Run goroutine; handlers talk to it through
// channels only.
type Hub struct {
	sessions   map[*session]struct{}
	count      int
	mu         sync.RWMutex
	broadcast  chan []byte
	register   chan *session
	unregister chan *session
	logger     *slog.Logger
}

type session struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		sessions:   make(map[*session]struct{}),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *session),
		unregister: make(chan *session),
		logger:     logger,
	}
}

// Run owns the session set. Call it once, as a goroutine, before serving.
func (h *Hub) Run() {
	for {
		select {
		case s := <-h.register:
			h.sessions[s] = struct{}{}
			h.setCount(len(h.sessions))
			h.logger.Debug("websocket client connected", "total_clients", len(h.sessions))

		case s := <-h.unregister:
			h.drop(s)
			h.logger.Debug("websocket client disconnected", "total_clients", len(h.sessions))

		case message := <-h.broadcast:
			for s := range h.sessions {
				select {
				case s.send <- message:
				default:
					// Session buffer full — it is not keeping up, drop it.
					h.drop(s)
				}
			}
		}
	}
}

// drop removes a session; safe to call for an already-removed session.
func (h *Hub) drop(s *session) {
	if _, ok := h.sessions[s]; !ok {
		return
	}
	delete(h.sessions, s)
	close(s.send)
	h.setCount(len(h.sessions))
}

func (h *Hub) setCount(n int) {
	h.mu.Lock()
	h.count = n
	h.mu.Unlock()
}

// ClientCount returns the number of connected WebSocket clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.count
}

// Broadcast sends a dispatch event to all connected WebSocket clients.
// Never blocks; when the broadcast buffer is full the event is dropped.
func (h *Hub) Broadcast(event DispatchEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("failed to marshal websocket event", "error", err)
		return
	}

	select {
	case h.broadcast <- data:
	default:
		h.logger.Warn("websocket broadcast channel full, dropping event")
	}
}

// HandleWebSocket upgrades the HTTP connection and registers the session.
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	s := &session{
		hub:  h,
		conn: conn,
		send: make(chan []byte, 256),
	}

	h.register <- s

	go s.writePump()
	go s.readPump()
}

// readPump drains inbound frames so pings and close frames are handled.
func (s *session) readPump() {
	defer func() {
		s.hub.unregister <- s
		s.conn.Close()
	}()

	s.conn.SetReadLimit(512)
	s.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// writePump writes queued messages and keepalive pings to the connection.
func (s *session) writePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()

	for {
		select {
		case message, ok := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
