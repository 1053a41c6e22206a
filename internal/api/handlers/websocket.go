package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/playmatatu/carrom/internal/config"
	"github.com/playmatatu/carrom/internal/ws"
)

// HandleGameWebSocket handles real-time game communication
func HandleGameWebSocket(hub *ws.Hub, cfg *config.Config) gin.HandlerFunc {
	return hub.HandleWebSocket(cfg)
}
