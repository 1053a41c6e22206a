package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/playmatatu/carrom/internal/auth"
	"github.com/playmatatu/carrom/internal/config"
	"github.com/playmatatu/carrom/internal/game"
	"github.com/playmatatu/carrom/internal/logger"
)

// WSMessage is the envelope for every client message.
type WSMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// TakeShotData is the aim gesture. Power is derived from the drag when omitted.
type TakeShotData struct {
	DragX float64  `json:"dragX"`
	DragY float64  `json:"dragY"`
	Power *float64 `json:"power,omitempty"`
}

// HandleWebSocket upgrades a client that presents a seat token for the session.
func (h *Hub) HandleWebSocket(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID := c.Param("id")
		token := c.Query("seat_token")
		if sessionID == "" || token == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "session id and seat_token required"})
			return
		}

		claims, err := auth.ParseSeatToken(cfg.JWTSecret, token)
		if err != nil || claims.SessionID != sessionID {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid seat token"})
			return
		}

		if _, err := h.gm.Load(c.Request.Context(), sessionID); err != nil {
			switch {
			case errors.Is(err, game.ErrSessionNotFound):
				c.JSON(http.StatusNotFound, gin.H{"error": "game not found"})
			case errors.Is(err, game.ErrCorruptSession):
				c.JSON(http.StatusConflict, gin.H{"error": "game state is corrupt; start a new game"})
			default:
				c.JSON(http.StatusServiceUnavailable, gin.H{"error": "game unavailable"})
			}
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.For("ws").Warn().Err(err).Msg("upgrade failed")
			return
		}

		client := &Client{
			hub:       h,
			conn:      conn,
			id:        uuid.NewString(),
			sessionID: sessionID,
			seat:      claims.Seat,
			send:      make(chan []byte, sendBuffer),
		}

		select {
		case h.register <- client:
		case <-h.done:
			conn.Close()
			return
		}
		h.gm.Touch(sessionID)

		go client.writePump()
		go client.readPump()
	}
}

// handleMessage dispatches one client message.
func (c *Client) handleMessage(msg WSMessage) {
	gm := c.hub.gm
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	gm.Touch(c.sessionID)

	switch msg.Type {
	case "take_shot":
		var data TakeShotData
		if len(msg.Data) == 0 || json.Unmarshal(msg.Data, &data) != nil {
			c.sendError("Invalid shot data")
			return
		}
		drag := game.NewVec2(data.DragX, data.DragY)
		power := game.PowerFromDrag(drag)
		if data.Power != nil {
			power = *data.Power
		}

		ok, err := gm.TakeShot(ctx, c.sessionID, c.seat, drag, power)
		if err != nil {
			c.sendError(err.Error())
			return
		}
		if ok {
			c.hub.Publish(c.sessionID, map[string]interface{}{
				"type":  "shot_started",
				"seat":  c.seat,
				"dragX": data.DragX,
				"dragY": data.DragY,
				"power": power,
			})
		}
		// A rejected gesture is a cancel and gets no reply.

	case "new_game":
		s, err := gm.NewGame(ctx, c.sessionID)
		if s == nil {
			c.sendError(err.Error())
			return
		}
		c.hub.Publish(c.sessionID, stateMessage(s, false))
		if err != nil {
			c.hub.Publish(c.sessionID, persistErrorMessage(err))
		}

	case "get_state":
		s, err := gm.Load(ctx, c.sessionID)
		if err != nil {
			c.sendError(err.Error())
			return
		}
		c.sendJSON(stateMessage(s, gm.InFlight(c.sessionID)))

	default:
		c.sendError("Unknown message type")
	}
}

// sendState sends the current snapshot to a newly registered client.
func (h *Hub) sendState(c *Client) {
	s, ok := h.gm.Snapshot(c.sessionID)
	if !ok {
		c.sendError("game not loaded")
		return
	}
	c.sendJSON(stateMessage(s, h.gm.InFlight(c.sessionID)))
}

func stateMessage(s *game.Session, inFlight bool) map[string]interface{} {
	return map[string]interface{}{
		"type":     "game_state",
		"state":    s,
		"inFlight": inFlight,
	}
}

func persistErrorMessage(err error) map[string]interface{} {
	return map[string]interface{}{
		"type":    "persist_error",
		"message": err.Error(),
	}
}

// OnFrame streams a mid-shot frame to local clients. Frames are not relayed.
func (h *Hub) OnFrame(sessionID string, tick int, bodies []game.Body) {
	h.BroadcastToGame(sessionID, map[string]interface{}{
		"type":   "frame",
		"tick":   tick,
		"bodies": bodies,
	})
}

// OnOutcome announces a resolved shot, the new state and a win.
func (h *Hub) OnOutcome(sessionID string, tr game.Transition, snapshot *game.Session) {
	h.Publish(sessionID, map[string]interface{}{
		"type":         "shot_result",
		"outcome":      tr.Outcome,
		"notices":      tr.Outcome.Notices(),
		"scoreApplied": tr.ScoreApplied,
		"turnSwitched": tr.TurnSwitched,
		"nextPlayer":   tr.NextPlayer,
		"turnNumber":   tr.TurnNumber,
	})
	h.Publish(sessionID, stateMessage(snapshot, false))
	if tr.Won {
		h.Publish(sessionID, map[string]interface{}{
			"type":   "game_over",
			"winner": tr.Winner,
			"scores": snapshot.Scores,
		})
	}
}

// OnPersistError tells clients the last save failed. Play continues.
func (h *Hub) OnPersistError(sessionID string, err error) {
	h.Publish(sessionID, persistErrorMessage(err))
}

var _ game.Listener = (*Hub)(nil)
