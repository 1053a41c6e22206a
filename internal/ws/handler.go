package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/playmatatu/carrom/internal/game"
	"github.com/playmatatu/carrom/internal/logger"
	"github.com/redis/go-redis/v9"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
	sendBuffer = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Origins are checked by middleware.WebSocketCORSCheck before the upgrade.
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Client is one websocket connection bound to a session seat.
type Client struct {
	hub       *Hub
	conn      *websocket.Conn
	id        string
	sessionID string
	seat      game.Seat
	send      chan []byte
}

// Hub tracks connected clients per session and fans messages out to them.
type Hub struct {
	gm         *game.GameManager
	rdb        *redis.Client
	instanceID string
	rooms      map[string]map[string]*Client // sessionID -> clientID -> Client
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	mu         sync.RWMutex
}

// NewHub creates a hub for the manager's tables. rdb may be nil, in which
// case events stay on this instance.
func NewHub(gm *game.GameManager, rdb *redis.Client) *Hub {
	return &Hub{
		gm:         gm,
		rdb:        rdb,
		instanceID: uuid.NewString(),
		rooms:      make(map[string]map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Run processes registrations until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	l := logger.For("ws")
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for id, room := range h.rooms {
				for _, c := range room {
					close(c.send)
				}
				delete(h.rooms, id)
			}
			h.mu.Unlock()
			l.Info().Msg("hub stopped")
			return

		case c := <-h.register:
			h.mu.Lock()
			if _, ok := h.rooms[c.sessionID]; !ok {
				h.rooms[c.sessionID] = make(map[string]*Client)
			}
			h.rooms[c.sessionID][c.id] = c
			size := len(h.rooms[c.sessionID])
			h.mu.Unlock()

			l.Info().Str("session", c.sessionID).Str("seat", string(c.seat)).Int("room_size", size).Msg("client connected")
			h.sendState(c)

		case c := <-h.unregister:
			h.mu.Lock()
			if room, ok := h.rooms[c.sessionID]; ok {
				if _, ok := room[c.id]; ok {
					delete(room, c.id)
					close(c.send)
					if len(room) == 0 {
						delete(h.rooms, c.sessionID)
					}
					l.Info().Str("session", c.sessionID).Str("seat", string(c.seat)).Msg("client disconnected")
				}
			}
			h.mu.Unlock()
		}
	}
}

// RoomSize returns how many clients watch a session.
func (h *Hub) RoomSize(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[sessionID])
}

// BroadcastToGame sends a message to every client of a session on this instance.
func (h *Hub) BroadcastToGame(sessionID string, message interface{}) {
	data, err := json.Marshal(message)
	if err != nil {
		logger.For("ws").Error().Err(err).Msg("marshal broadcast")
		return
	}
	h.broadcastRaw(sessionID, data)
}

func (h *Hub) broadcastRaw(sessionID string, data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, c := range h.rooms[sessionID] {
		select {
		case c.send <- data:
		default:
			logger.For("ws").Warn().Str("session", sessionID).Str("client", c.id).Msg("send buffer full, dropping message")
		}
	}
}

// Publish broadcasts locally and relays the message to other instances.
func (h *Hub) Publish(sessionID string, message interface{}) {
	data, err := json.Marshal(message)
	if err != nil {
		logger.For("ws").Error().Err(err).Msg("marshal publish")
		return
	}
	h.broadcastRaw(sessionID, data)
	h.relay(sessionID, data)
}

// sendJSON queues a message for one client. Clients the hub has already
// dropped are skipped, since their send channel is closed.
func (c *Client) sendJSON(message interface{}) {
	data, err := json.Marshal(message)
	if err != nil {
		return
	}

	h := c.hub
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.rooms[c.sessionID][c.id] != c {
		return
	}
	select {
	case c.send <- data:
	default:
		logger.For("ws").Warn().Str("client", c.id).Msg("send buffer full, dropping message")
	}
}

// sendError sends an error message to the client
func (c *Client) sendError(message string) {
	c.sendJSON(map[string]interface{}{
		"type":    "error",
		"message": message,
	})
}

// writePump writes messages to the WebSocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				logger.For("ws").Debug().Err(err).Str("client", c.id).Msg("write failed")
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump reads client messages until the connection drops.
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(65536)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				logger.For("ws").Warn().Err(err).Str("session", c.sessionID).Msg("unexpected close")
			}
			return
		}

		var msg WSMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			c.sendError("Invalid message")
			continue
		}
		c.handleMessage(msg)
	}
}
