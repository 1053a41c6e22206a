package ws

import (
	"context"
	"encoding/json"

	"github.com/playmatatu/carrom/internal/game"
	"github.com/playmatatu/carrom/internal/logger"
)

// relayEnvelope carries a client message to the other instances.
type relayEnvelope struct {
	Type      string          `json:"type"`
	Origin    string          `json:"origin"`
	SessionID string          `json:"sessionId"`
	Message   json.RawMessage `json:"message"`
}

func (h *Hub) relay(sessionID string, data []byte) {
	if h.rdb == nil {
		return
	}
	b, err := json.Marshal(relayEnvelope{Type: "relay", Origin: h.instanceID, SessionID: sessionID, Message: data})
	if err != nil {
		return
	}
	if err := h.rdb.Publish(context.Background(), game.EventsChannel, b).Err(); err != nil {
		logger.For("ws").Warn().Err(err).Str("session", sessionID).Msg("relay publish failed")
	}
}

// StartEventSubscriber listens on the events channel and delivers relayed
// messages and table lifecycle events to local clients.
func (h *Hub) StartEventSubscriber(ctx context.Context) {
	l := logger.For("ws")
	if h.rdb == nil {
		l.Info().Msg("redis client not set; event subscriber not started")
		return
	}

	pubsub := h.rdb.Subscribe(ctx, game.EventsChannel)
	ch := pubsub.Channel()
	go func() {
		defer pubsub.Close()
		l.Info().Str("channel", game.EventsChannel).Msg("event subscriber started")
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				h.handleEvent([]byte(msg.Payload))
			}
		}
	}()
}

func (h *Hub) handleEvent(payload []byte) {
	l := logger.For("ws")

	var head struct {
		Type      string `json:"type"`
		Origin    string `json:"origin"`
		SessionID string `json:"sessionId"`
	}
	if err := json.Unmarshal(payload, &head); err != nil {
		l.Warn().Err(err).Msg("invalid event payload")
		return
	}

	switch head.Type {
	case "relay":
		if head.Origin == h.instanceID {
			return
		}
		var env relayEnvelope
		if err := json.Unmarshal(payload, &env); err != nil {
			return
		}
		h.syncTable(env.SessionID, env.Message)
		h.broadcastRaw(env.SessionID, env.Message)

	case "table_unloaded":
		if h.RoomSize(head.SessionID) == 0 {
			return
		}
		l.Info().Str("session", head.SessionID).Msg("table unloaded while clients connected")
		h.BroadcastToGame(head.SessionID, map[string]interface{}{
			"type":    "table_unloaded",
			"message": "Table was idle and has been put away. Send get_state to resume.",
		})

	default:
		l.Debug().Str("type", head.Type).Msg("unknown event type")
	}
}

// syncTable keeps a table that is also live here in step with the instance
// that played the shot, so input gating holds on every instance.
func (h *Hub) syncTable(sessionID string, message []byte) {
	var msg struct {
		Type     string        `json:"type"`
		State    *game.Session `json:"state"`
		InFlight bool          `json:"inFlight"`
	}
	if err := json.Unmarshal(message, &msg); err != nil {
		return
	}

	switch msg.Type {
	case "shot_started":
		h.gm.MarkRemoteShot(sessionID)
	case "game_state":
		if msg.State != nil && !h.gm.Adopt(sessionID, msg.State, msg.InFlight) {
			logger.For("ws").Debug().Str("session", sessionID).Msg("relayed state not adopted")
		}
	}
}
