package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/playmatatu/carrom/internal/game"
	"github.com/playmatatu/carrom/internal/models"
)

// Memory keeps sessions in a map. It is used in tests and when the server
// runs without Redis or Postgres.
type Memory struct {
	mu       sync.RWMutex
	sessions map[string]*game.Session
	shots    []models.ShotRow
	nextID   int64
	now      func() time.Time
}

func NewMemory() *Memory {
	return &Memory{sessions: make(map[string]*game.Session), now: time.Now}
}

func (m *Memory) GetCurrentGame(_ context.Context, id string) (*game.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, game.ErrSessionNotFound
	}
	return s.Clone(), nil
}

func (m *Memory) SaveGameState(_ context.Context, s *game.Session) (*game.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	prev := m.sessions[s.ID]
	m.sessions[s.ID] = s.Clone()

	if row, ok := shotRow(s); ok && (prev == nil || prev.ShotCount < s.ShotCount) {
		m.nextID++
		row.ID = m.nextID
		m.shots = append(m.shots, row)
	}
	return s.Clone(), nil
}

func (m *Memory) ResetGame(_ context.Context, id string) (*game.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := freshSession(id, m.now())
	m.sessions[id] = s.Clone()

	kept := m.shots[:0]
	for _, row := range m.shots {
		if row.SessionID != id {
			kept = append(kept, row)
		}
	}
	m.shots = kept
	return s, nil
}

// IDs returns every stored session ID, sorted.
func (m *Memory) IDs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (m *Memory) RecentShots(_ context.Context, sessionID string, limit int) ([]models.ShotRow, error) {
	return m.filterShots(sessionID, "", limit), nil
}

func (m *Memory) ShotsByPlayer(_ context.Context, sessionID string, player game.Player, limit int) ([]models.ShotRow, error) {
	return m.filterShots(sessionID, player, limit), nil
}

func (m *Memory) filterShots(sessionID string, player game.Player, limit int) []models.ShotRow {
	m.mu.RLock()
	defer m.mu.RUnlock()

	limit = clampLimit(limit)
	out := []models.ShotRow{}
	for i := len(m.shots) - 1; i >= 0 && len(out) < limit; i-- {
		row := m.shots[i]
		if sessionID != "" && row.SessionID != sessionID {
			continue
		}
		if player != "" && row.Player != string(player) {
			continue
		}
		row.CoinsPocketed = append([]string{}, row.CoinsPocketed...)
		out = append(out, row)
	}
	return out
}
