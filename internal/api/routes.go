package api

import (
	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/playmatatu/carrom/internal/api/handlers"
	"github.com/playmatatu/carrom/internal/config"
	"github.com/playmatatu/carrom/internal/game"
	"github.com/playmatatu/carrom/internal/logger"
	"github.com/playmatatu/carrom/internal/middleware"
	"github.com/playmatatu/carrom/internal/store"
	"github.com/playmatatu/carrom/internal/ws"
	"github.com/redis/go-redis/v9"
)

// Deps is what the routes need. DB and Redis may be nil.
type Deps struct {
	DB      *sqlx.DB
	Redis   *redis.Client
	Config  *config.Config
	Manager *game.GameManager
	Hub     *ws.Hub
	History store.ShotHistory
}

// SetupRoutes configures all API routes
func SetupRoutes(router *gin.Engine, d Deps) {
	cfg := d.Config
	router.Use(middleware.CORSMiddleware(cfg))

	if cfg.Environment != "production" {
		router.Use(func(c *gin.Context) {
			c.Header("Cache-Control", "no-store, no-cache, must-revalidate, max-age=0")
			c.Header("Pragma", "no-cache")
			c.Next()
		})
		logger.For("api").Debug().Msg("no-cache headers enabled")
	}

	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", handlers.HealthCheck(d.DB, d.Redis, d.Manager))

		games := v1.Group("/games")
		{
			games.POST("", handlers.CreateGame(d.Manager, cfg))
			games.GET("/:id", handlers.GetGameState(d.Manager))
			games.POST("/:id/reset", handlers.SeatAuth(cfg), handlers.ResetGame(d.Manager, d.Hub))
			games.GET("/:id/shots", handlers.ListShots(d.History))
			games.GET("/:id/ws", middleware.WebSocketCORSCheck(cfg), handlers.HandleGameWebSocket(d.Hub, cfg))
		}

		adm := v1.Group("/admin", handlers.AdminAuth(d.DB))
		{
			adm.GET("/sessions", handlers.ListSessions(d.Manager))
			adm.POST("/sessions/:id/unload", handlers.UnloadSession(d.Manager, d.DB))
			adm.GET("/audit", handlers.GetAdminAuditLogs(d.DB))
		}
	}
}
