package handlers

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/ternarybob/arbor"

	"github.com/cotalabs/cotiza/internal/common"
	"github.com/cotalabs/cotiza/internal/interfaces"
)

// WebSocketHandler streams job lifecycle events to connected UI clients. It
// subscribes to the event bus on construction and broadcasts every allowed
// event to all open connections.
type WebSocketHandler struct {
	upgrader      websocket.Upgrader
	connections   map[*websocket.Conn]bool
	mu            sync.Mutex
	allowedEvents map[string]bool // empty = allow all
	logger        arbor.ILogger
}

func NewWebSocketHandler(events interfaces.EventService, config common.WebSocketConfig, logger arbor.ILogger) *WebSocketHandler {
	h := &WebSocketHandler{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		connections:   make(map[*websocket.Conn]bool),
		allowedEvents: make(map[string]bool),
		logger:        logger,
	}
	for _, eventType := range config.AllowedEvents {
		h.allowedEvents[eventType] = true
	}

	if events != nil {
		events.SubscribeAll(h.broadcast)
	}
	return h
}

// HandleWebSocket upgrades the connection and keeps it registered until the
// client goes away. GET /ws
func (h *WebSocketHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	h.mu.Lock()
	h.connections[conn] = true
	count := len(h.connections)
	h.mu.Unlock()
	h.logger.Debug().Int("connections", count).Msg("WebSocket client connected")

	// Reader loop exists only to detect disconnect; clients don't send data.
	go func() {
		defer h.drop(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

// broadcast sends an event to every open connection. Write failures drop the
// connection.
func (h *WebSocketHandler) broadcast(event interfaces.Event) {
	if len(h.allowedEvents) > 0 && !h.allowedEvents[string(event.Type)] {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.connections {
		if err := conn.WriteJSON(event); err != nil {
			conn.Close()
			delete(h.connections, conn)
		}
	}
}

func (h *WebSocketHandler) drop(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.connections[conn] {
		conn.Close()
		delete(h.connections, conn)
	}
}

// Close shuts every open connection.
func (h *WebSocketHandler) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.connections {
		conn.Close()
	}
	h.connections = make(map[*websocket.Conn]bool)
}
