package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/playmatatu/carrom/internal/config"
	"github.com/stretchr/testify/assert"
)

func wsRouter(cfg *config.Config) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(WebSocketCORSCheck(cfg))
	r.GET("/ws", func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func upgradeRequest(origin string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	req.Header.Set("Connection", "Upgrade")
	req.Header.Set("Upgrade", "websocket")
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	return req
}

func TestWebSocketCORSCheck(t *testing.T) {
	prod := &config.Config{Environment: "production", FrontendURL: "https://carrom.example.com"}
	dev := &config.Config{Environment: "development"}

	tests := []struct {
		name   string
		cfg    *config.Config
		origin string
		want   int
	}{
		{"prod frontend", prod, "https://carrom.example.com", http.StatusOK},
		{"prod stranger", prod, "https://evil.example.com", http.StatusForbidden},
		{"missing origin", prod, "", http.StatusBadRequest},
		{"dev localhost", dev, "http://localhost:3000", http.StatusOK},
		{"dev remote", dev, "https://carrom.example.com", http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			wsRouter(tt.cfg).ServeHTTP(w, upgradeRequest(tt.origin))
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestPlainRequestsSkipOriginCheck(t *testing.T) {
	w := httptest.NewRecorder()
	wsRouter(&config.Config{Environment: "production"}).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ws", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCORSPreflight(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(CORSMiddleware(&config.Config{Environment: "production", FrontendURL: "https://carrom.example.com"}))
	r.POST("/api/v1/games", func(c *gin.Context) { c.Status(http.StatusCreated) })

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/games", nil)
	req.Header.Set("Origin", "https://carrom.example.com")
	req.Header.Set("Access-Control-Request-Method", "POST")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://carrom.example.com", w.Header().Get("Access-Control-Allow-Origin"))
}
