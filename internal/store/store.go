// Package store holds the game-state stores: an in-memory map, a Redis cache,
// a Postgres database with shot history, and a tiered combination of the two.
package store

import (
	"context"
	"time"

	"github.com/playmatatu/carrom/internal/game"
	"github.com/playmatatu/carrom/internal/models"
)

// DefaultShotLimit caps history queries that pass no limit.
const DefaultShotLimit = 50

// ShotHistory is implemented by stores that keep a per-shot log.
type ShotHistory interface {
	// RecentShots returns the newest shots first. An empty sessionID means all sessions.
	RecentShots(ctx context.Context, sessionID string, limit int) ([]models.ShotRow, error)
	// ShotsByPlayer is RecentShots filtered to one player.
	ShotsByPlayer(ctx context.Context, sessionID string, player game.Player, limit int) ([]models.ShotRow, error)
}

var (
	_ game.Store  = (*Memory)(nil)
	_ game.Store  = (*Redis)(nil)
	_ game.Store  = (*Postgres)(nil)
	_ game.Store  = (*Tiered)(nil)
	_ ShotHistory = (*Memory)(nil)
	_ ShotHistory = (*Redis)(nil)
	_ ShotHistory = (*Postgres)(nil)
	_ ShotHistory = (*Tiered)(nil)
)

func freshSession(id string, now time.Time) *game.Session {
	return game.NewSession(id, game.NewStandardBoard(), now)
}

// shotRow describes the session's last shot, or returns false when there is none.
func shotRow(s *game.Session) (models.ShotRow, bool) {
	if s.LastShot == nil || s.ShotCount == 0 {
		return models.ShotRow{}, false
	}
	ls := s.LastShot
	return models.ShotRow{
		SessionID:       s.ID,
		ShotNumber:      s.ShotCount,
		Player:          string(ls.Player),
		CoinsPocketed:   append([]string{}, ls.CoinsPocketed...),
		StrikerPocketed: ls.StrikerPocketed,
		Score:           ls.Score,
		Foul:            ls.Foul,
		CreatedAt:       ls.Timestamp,
	}, true
}

func clampLimit(limit int) int {
	if limit <= 0 || limit > 500 {
		return DefaultShotLimit
	}
	return limit
}
