package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/playmatatu/carrom/internal/game"
	"github.com/redis/go-redis/v9"
)

var startTime = time.Now()

const version = "1.0.0"

func dependencyStatus(ping func(ctx context.Context) error) string {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := ping(ctx); err != nil {
		return "unavailable"
	}
	return "ok"
}

// HealthCheck returns server health status. db and rdb may be nil.
func HealthCheck(db *sqlx.DB, rdb *redis.Client, gm *game.GameManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		dbStatus, redisStatus := "disabled", "disabled"
		if db != nil {
			dbStatus = dependencyStatus(db.PingContext)
		}
		if rdb != nil {
			redisStatus = dependencyStatus(func(ctx context.Context) error { return rdb.Ping(ctx).Err() })
		}

		c.JSON(http.StatusOK, gin.H{
			"status":   "ok",
			"service":  "carrom-api",
			"version":  version,
			"uptime":   time.Since(startTime).String(),
			"database": dbStatus,
			"redis":    redisStatus,
			"tables":   len(gm.Tables()),
		})
	}
}
