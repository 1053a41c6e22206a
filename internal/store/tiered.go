package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/playmatatu/carrom/internal/game"
	"github.com/playmatatu/carrom/internal/logger"
	"github.com/playmatatu/carrom/internal/models"
)

// Tiered puts a cache in front of a durable store. Reads try the cache and
// fall back to the durable store, re-warming the cache on a hit. Writes go to
// the cache first; a durable failure is returned to the caller.
type Tiered struct {
	cache   game.Store
	durable game.Store
}

func NewTiered(cache, durable game.Store) *Tiered {
	return &Tiered{cache: cache, durable: durable}
}

func (t *Tiered) GetCurrentGame(ctx context.Context, id string) (*game.Session, error) {
	s, err := t.cache.GetCurrentGame(ctx, id)
	if err == nil {
		return s, nil
	}
	if !errors.Is(err, game.ErrSessionNotFound) {
		logger.For("store").Warn().Err(err).Str("session", id).Msg("cache read failed, using database")
	}

	s, err = t.durable.GetCurrentGame(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, cerr := t.cache.SaveGameState(ctx, s); cerr != nil {
		logger.For("store").Warn().Err(cerr).Str("session", id).Msg("cache warm failed")
	}
	return s, nil
}

func (t *Tiered) SaveGameState(ctx context.Context, s *game.Session) (*game.Session, error) {
	if _, err := t.cache.SaveGameState(ctx, s); err != nil {
		logger.For("store").Warn().Err(err).Str("session", s.ID).Msg("cache write failed")
	}
	saved, err := t.durable.SaveGameState(ctx, s)
	if err != nil {
		return nil, fmt.Errorf("durable save: %w", err)
	}
	return saved, nil
}

func (t *Tiered) ResetGame(ctx context.Context, id string) (*game.Session, error) {
	s, err := t.durable.ResetGame(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("durable reset: %w", err)
	}
	if _, err := t.cache.SaveGameState(ctx, s); err != nil {
		logger.For("store").Warn().Err(err).Str("session", id).Msg("cache write failed")
	}
	return s, nil
}

func (t *Tiered) history() (ShotHistory, bool) {
	h, ok := t.durable.(ShotHistory)
	return h, ok
}

func (t *Tiered) RecentShots(ctx context.Context, sessionID string, limit int) ([]models.ShotRow, error) {
	h, ok := t.history()
	if !ok {
		return []models.ShotRow{}, nil
	}
	return h.RecentShots(ctx, sessionID, limit)
}

func (t *Tiered) ShotsByPlayer(ctx context.Context, sessionID string, player game.Player, limit int) ([]models.ShotRow, error) {
	h, ok := t.history()
	if !ok {
		return []models.ShotRow{}, nil
	}
	return h.ShotsByPlayer(ctx, sessionID, player, limit)
}
