package game

import (
	"context"
	"errors"
)

// Store persists game sessions. Every call names the session explicitly.
type Store interface {
	// GetCurrentGame returns the stored session or ErrSessionNotFound.
	GetCurrentGame(ctx context.Context, id string) (*Session, error)
	// SaveGameState writes the session and returns what was stored.
	SaveGameState(ctx context.Context, s *Session) (*Session, error)
	// ResetGame replaces the session with a fresh canonical game.
	ResetGame(ctx context.Context, id string) (*Session, error)
}

// ErrPersistFailed marks a store failure that left in-memory state intact.
var ErrPersistFailed = errors.New("game state could not be persisted")
