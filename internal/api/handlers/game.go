package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/playmatatu/carrom/internal/auth"
	"github.com/playmatatu/carrom/internal/config"
	"github.com/playmatatu/carrom/internal/game"
	"github.com/playmatatu/carrom/internal/logger"
	"github.com/playmatatu/carrom/internal/store"
	"github.com/playmatatu/carrom/internal/ws"
)

// gameError maps a manager error onto a response.
func gameError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, game.ErrSessionNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "game not found"})
	case errors.Is(err, game.ErrCorruptSession):
		c.JSON(http.StatusConflict, gin.H{"error": "game state is corrupt; start a new game"})
	default:
		logger.For("api").Error().Err(err).Str("session", c.Param("id")).Msg("game request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func seatTTL(cfg *config.Config) time.Duration {
	hours := cfg.SeatTokenHours
	if hours <= 0 {
		hours = 24
	}
	return time.Duration(hours) * time.Hour
}

// CreateGame starts a new session and hands out one token per seat.
func CreateGame(gm *game.GameManager, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := uuid.NewString()
		s, err := gm.NewGame(c.Request.Context(), id)
		if s == nil {
			gameError(c, err)
			return
		}

		tokens := gin.H{}
		var expiresAt time.Time
		for _, seat := range []game.Seat{game.SeatPlayer1, game.SeatPlayer2, game.SeatBoth} {
			token, exp, terr := auth.IssueSeatToken(cfg.JWTSecret, id, seat, seatTTL(cfg))
			if terr != nil {
				logger.For("api").Error().Err(terr).Msg("failed to sign seat token")
				c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
				return
			}
			tokens[string(seat)] = token
			expiresAt = exp
		}

		resp := gin.H{
			"session_id":  id,
			"state":       s,
			"seat_tokens": tokens,
			"expires_at":  expiresAt.Format(time.RFC3339),
			"ws_path":     "/api/v1/games/" + id + "/ws",
		}
		if err != nil {
			resp["persist_error"] = err.Error()
		}
		logger.For("api").Info().Str("session", id).Msg("game created")
		c.JSON(http.StatusCreated, resp)
	}
}

// GetGameState returns the current snapshot of a session.
func GetGameState(gm *game.GameManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		s, err := gm.Load(c.Request.Context(), id)
		if err != nil {
			gameError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"state": s, "inFlight": gm.InFlight(id)})
	}
}

// SeatAuth requires a bearer seat token for the session in the path.
func SeatAuth(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			return
		}
		claims, err := auth.ParseSeatToken(cfg.JWTSecret, strings.TrimPrefix(header, "Bearer "))
		if err != nil || claims.SessionID != c.Param("id") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		c.Set("seat", claims.Seat)
		c.Next()
	}
}

// ResetGame replaces the session with a fresh game and tells connected clients.
func ResetGame(gm *game.GameManager, hub *ws.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		s, err := gm.NewGame(c.Request.Context(), id)
		if s == nil {
			gameError(c, err)
			return
		}

		msg := gin.H{"type": "game_state", "state": s, "inFlight": false}
		if hub != nil {
			hub.Publish(id, msg)
		}

		resp := gin.H{"state": s}
		if err != nil {
			resp["persist_error"] = err.Error()
			if hub != nil {
				hub.Publish(id, gin.H{"type": "persist_error", "message": err.Error()})
			}
		}
		c.JSON(http.StatusOK, resp)
	}
}

// ListShots returns the shot history of a session, newest first.
func ListShots(history store.ShotHistory) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(store.DefaultShotLimit)))
		player := game.Player(c.Query("player"))

		var (
			shots interface{}
			err   error
		)
		switch {
		case player == "":
			shots, err = history.RecentShots(c.Request.Context(), id, limit)
		case player.Valid():
			shots, err = history.ShotsByPlayer(c.Request.Context(), id, player, limit)
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": "player must be player1 or player2"})
			return
		}
		if err != nil {
			logger.For("api").Error().Err(err).Str("session", id).Msg("failed to fetch shots")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch shots"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"session_id": id, "shots": shots})
	}
}
