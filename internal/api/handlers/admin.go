package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/playmatatu/carrom/internal/admin"
	"github.com/playmatatu/carrom/internal/game"
	"github.com/playmatatu/carrom/internal/logger"
)

const adminUserKey = "admin_user"

// AdminAuth checks the X-Admin-User / X-Admin-Token pair against admin_accounts.
// Without a database the admin API is unavailable.
func AdminAuth(db *sqlx.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if db == nil {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "admin API requires a database"})
			return
		}

		username := strings.TrimSpace(c.GetHeader("X-Admin-User"))
		token := strings.TrimSpace(c.GetHeader("X-Admin-Token"))
		if username == "" || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "admin credentials required"})
			return
		}

		if _, err := admin.ValidateAdmin(c.Request.Context(), db, username, token, c.ClientIP()); err != nil {
			admin.LogAdminAction(c.Request.Context(), db, username, c.ClientIP(), c.FullPath(), "auth", map[string]interface{}{"error": err.Error()}, false)
			switch {
			case errors.Is(err, admin.ErrIPNotAllowed):
				c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			case errors.Is(err, admin.ErrAdminNotFound), errors.Is(err, admin.ErrInvalidToken):
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			default:
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			}
			return
		}

		c.Set(adminUserKey, username)
		c.Next()
	}
}

// ListSessions returns every live table.
func ListSessions(gm *game.GameManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		tables := gm.Tables()
		c.JSON(http.StatusOK, gin.H{"sessions": tables, "total": len(tables)})
	}
}

// UnloadSession drops a live table, cancelling any shot in flight.
func UnloadSession(gm *game.GameManager, db *sqlx.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		user := c.GetString(adminUserKey)

		unloaded := gm.Unload(id)
		if db != nil {
			admin.LogAdminAction(c.Request.Context(), db, user, c.ClientIP(), c.FullPath(), "unload_session",
				map[string]interface{}{"session_id": id}, unloaded)
		}
		if !unloaded {
			c.JSON(http.StatusNotFound, gin.H{"error": "session not loaded"})
			return
		}

		logger.For("admin").Info().Str("admin", user).Str("session", id).Msg("session unloaded by admin")
		c.JSON(http.StatusOK, gin.H{"session_id": id, "unloaded": true})
	}
}

// GetAdminAuditLogs returns paginated audit log entries
func GetAdminAuditLogs(db *sqlx.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "25"))
		offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
		if limit <= 0 || limit > 200 {
			limit = 25
		}
		if offset < 0 {
			offset = 0
		}

		logs, err := admin.GetAdminAuditLogs(c.Request.Context(), db, limit, offset)
		if err != nil {
			logger.For("admin").Error().Err(err).Msg("failed to fetch audit logs")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch audit logs"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"logs": logs, "limit": limit, "offset": offset})
	}
}
