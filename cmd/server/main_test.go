package main

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/playmatatu/carrom/internal/config"
	"github.com/playmatatu/carrom/internal/game"
	"github.com/playmatatu/carrom/internal/store"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildStoreRedisOnlyKeepsHistory(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	sessions, history := buildStore(nil, rdb, &config.Config{SessionTTLMinutes: 5})
	require.IsType(t, &store.Redis{}, sessions)

	ctx := context.Background()
	s, err := sessions.ResetGame(ctx, "g1")
	require.NoError(t, err)
	s.ShotCount = 1
	s.LastShot = &game.LastShot{Player: game.Player1, CoinsPocketed: []string{"b1"}, Score: 10}
	_, err = sessions.SaveGameState(ctx, s)
	require.NoError(t, err)

	shots, err := history.RecentShots(ctx, "g1", 10)
	require.NoError(t, err)
	require.Len(t, shots, 1)
	assert.Equal(t, "player1", shots[0].Player)
}

func TestBuildStoreFallsBackToMemory(t *testing.T) {
	sessions, history := buildStore(nil, nil, &config.Config{})
	assert.IsType(t, &store.Memory{}, sessions)
	assert.Same(t, sessions, history)
}
