package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/playmatatu/carrom/internal/config"
	"github.com/playmatatu/carrom/internal/game"
	"github.com/playmatatu/carrom/internal/store"
	"github.com/playmatatu/carrom/internal/ws"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testAPI struct {
	router *gin.Engine
	gm     *game.GameManager
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{Environment: "test", FrontendURL: "http://localhost:5173", JWTSecret: "api-secret", TickRateHz: 1000, SaveTimeoutSecs: 1}
	mem := store.NewMemory()
	gm := game.NewGameManager(mem, nil, cfg)
	hub := ws.NewHub(gm, nil)
	gm.SetListener(hub)
	t.Cleanup(gm.Shutdown)

	router := gin.New()
	SetupRoutes(router, Deps{Config: cfg, Manager: gm, Hub: hub, History: mem})
	return &testAPI{router: router, gm: gm}
}

func (a *testAPI) do(t *testing.T, method, path, bearer string) (*httptest.ResponseRecorder, map[string]json.RawMessage) {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)

	var body map[string]json.RawMessage
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	}
	return w, body
}

type created struct {
	SessionID  string            `json:"session_id"`
	SeatTokens map[string]string `json:"seat_tokens"`
	State      game.Session      `json:"state"`
}

func (a *testAPI) createGame(t *testing.T) created {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/games", nil)
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code)

	var out created
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestHealth(t *testing.T) {
	a := newTestAPI(t)
	w, body := a.do(t, http.MethodGet, "/api/v1/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `"disabled"`, string(body["database"]))
	assert.JSONEq(t, `"ok"`, string(body["status"]))
}

func TestCreateAndGetGame(t *testing.T) {
	a := newTestAPI(t)
	g := a.createGame(t)

	require.NotEmpty(t, g.SessionID)
	assert.Len(t, g.SeatTokens, 3)
	assert.Equal(t, 1, g.State.TurnNumber)
	assert.Len(t, g.State.Bodies, game.NumCoins+1)

	w, body := a.do(t, http.MethodGet, "/api/v1/games/"+g.SessionID, "")
	require.Equal(t, http.StatusOK, w.Code)
	var s game.Session
	require.NoError(t, json.Unmarshal(body["state"], &s))
	assert.Equal(t, g.SessionID, s.ID)

	w, _ = a.do(t, http.MethodGet, "/api/v1/games/unknown", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestResetNeedsSeatToken(t *testing.T) {
	a := newTestAPI(t)
	g := a.createGame(t)
	other := a.createGame(t)
	path := "/api/v1/games/" + g.SessionID + "/reset"

	w, _ := a.do(t, http.MethodPost, path, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, _ = a.do(t, http.MethodPost, path, other.SeatTokens["player1"])
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, body := a.do(t, http.MethodPost, path, g.SeatTokens["player2"])
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, body, "persist_error")
}

func TestShotHistory(t *testing.T) {
	a := newTestAPI(t)
	g := a.createGame(t)

	ok, err := a.gm.TakeShot(context.Background(), g.SessionID, game.SeatBoth, game.NewVec2(0, -150), 1)
	require.NoError(t, err)
	require.True(t, ok)
	require.Eventually(t, func() bool { return !a.gm.InFlight(g.SessionID) }, 15*time.Second, 10*time.Millisecond)
	a.gm.Flush()

	w, body := a.do(t, http.MethodGet, "/api/v1/games/"+g.SessionID+"/shots", "")
	require.Equal(t, http.StatusOK, w.Code)
	var shots []map[string]interface{}
	require.NoError(t, json.Unmarshal(body["shots"], &shots))
	require.Len(t, shots, 1)
	assert.Equal(t, "player1", shots[0]["player"])

	w, body = a.do(t, http.MethodGet, "/api/v1/games/"+g.SessionID+"/shots?player=player2", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(body["shots"], &shots))
	assert.Empty(t, shots)

	w, _ = a.do(t, http.MethodGet, "/api/v1/games/"+g.SessionID+"/shots?player=dealer", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAdminNeedsDatabase(t *testing.T) {
	a := newTestAPI(t)
	w, _ := a.do(t, http.MethodGet, "/api/v1/admin/sessions", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
