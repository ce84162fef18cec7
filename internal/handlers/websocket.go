package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/ternarybob/arbor"

	"github.com/halcyonlabs/meridian/internal/interfaces"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for local development
	},
}

// wsMessage is the envelope pushed to connected UI collaborators.
type wsMessage struct {
	Type             string      `json:"type"`
	ServerInstanceID string      `json:"server_instance_id"`
	Timestamp        time.Time   `json:"timestamp"`
	Payload          interface{} `json:"payload"`
}

// WebSocketHandler pushes fired signals and updated scores to connected
// clients as they happen, so the alerting UI does not poll.
type WebSocketHandler struct {
	logger           arbor.ILogger
	eventService     interfaces.EventService
	clients          map[*websocket.Conn]bool
	clientMutex      map[*websocket.Conn]*sync.Mutex
	mu               sync.RWMutex
	serverInstanceID string // clients use this to detect a server restart
}

// NewWebSocketHandler creates the handler and subscribes it to the bus.
func NewWebSocketHandler(eventService interfaces.EventService, logger arbor.ILogger) *WebSocketHandler {
	h := &WebSocketHandler{
		logger:           logger,
		eventService:     eventService,
		clients:          make(map[*websocket.Conn]bool),
		clientMutex:      make(map[*websocket.Conn]*sync.Mutex),
		serverInstanceID: uuid.New().String(),
	}

	for _, eventType := range []interfaces.EventType{
		interfaces.EventSignalFired,
		interfaces.EventScoresUpdated,
		interfaces.EventCycleCompleted,
	} {
		if err := eventService.Subscribe(eventType, h.onEvent); err != nil {
			logger.Warn().Err(err).Str("event_type", string(eventType)).Msg("Failed to subscribe websocket handler")
		}
	}

	logger.Info().Str("server_instance_id", h.serverInstanceID).Msg("WebSocket handler initialized")
	return h
}

// HandleWebSocket upgrades the connection and registers the client.
func (h *WebSocketHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	h.mu.Lock()
	h.clients[conn] = true
	h.clientMutex[conn] = &sync.Mutex{}
	count := len(h.clients)
	h.mu.Unlock()

	h.logger.Debug().Int("clients", count).Msg("WebSocket client connected")

	// Tell the client which server instance it reached.
	h.send(conn, wsMessage{
		Type:             "connected",
		ServerInstanceID: h.serverInstanceID,
		Timestamp:        time.Now(),
	})

	// Read loop exists only to detect disconnect.
	go func() {
		defer h.dropClient(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (h *WebSocketHandler) onEvent(ctx context.Context, event interfaces.Event) error {
	h.broadcast(wsMessage{
		Type:             string(event.Type),
		ServerInstanceID: h.serverInstanceID,
		Timestamp:        time.Now(),
		Payload:          event.Payload,
	})
	return nil
}

func (h *WebSocketHandler) broadcast(msg wsMessage) {
	h.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(h.clients))
	for conn := range h.clients {
		conns = append(conns, conn)
	}
	h.mu.RUnlock()

	for _, conn := range conns {
		h.send(conn, msg)
	}
}

func (h *WebSocketHandler) send(conn *websocket.Conn, msg wsMessage) {
	h.mu.RLock()
	mu, ok := h.clientMutex[conn]
	h.mu.RUnlock()
	if !ok {
		return
	}

	mu.Lock()
	err := conn.WriteJSON(msg)
	mu.Unlock()

	if err != nil {
		h.logger.Debug().Err(err).Msg("WebSocket write failed, dropping client")
		h.dropClient(conn)
	}
}

func (h *WebSocketHandler) dropClient(conn *websocket.Conn) {
	h.mu.Lock()
	if _, ok := h.clients[conn]; ok {
		delete(h.clients, conn)
		delete(h.clientMutex, conn)
	}
	count := len(h.clients)
	h.mu.Unlock()

	conn.Close()
	h.logger.Debug().Int("clients", count).Msg("WebSocket client disconnected")
}

// ClientCount returns the number of connected clients.
func (h *WebSocketHandler) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
