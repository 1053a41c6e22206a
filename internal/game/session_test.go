package game

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSessionIsCanonical(t *testing.T) {
	board := NewStandardBoard()
	s := NewSession("g1", board, shotTime)

	assert.Equal(t, "g1", s.ID)
	assert.Equal(t, 1, s.TurnNumber)
	assert.Equal(t, Player1, s.CurrentPlayer)
	assert.Equal(t, 0, s.Scores[Player1])
	assert.Equal(t, 0, s.Scores[Player2])
	assert.Nil(t, s.LastShot)
	assert.False(t, s.Won)
	assert.Equal(t, PhaseAwaitingShot, s.Phase)
	assert.Equal(t, StartingLayout(NewVec2(320, 500)), s.Bodies)
	assert.Equal(t, NumCoins, s.CoinsRemaining())
	require.NoError(t, s.Validate())
}

func TestCloneSharesNothing(t *testing.T) {
	s := NewSession("g1", NewStandardBoard(), shotTime)
	s.LastShot = &LastShot{Player: Player1, CoinsPocketed: []string{"w1"}}

	c := s.Clone()
	c.Scores[Player1] = 50
	c.Bodies[0].Pocketed = true
	c.LastShot.CoinsPocketed[0] = "b1"

	assert.Equal(t, 0, s.Scores[Player1])
	assert.False(t, s.Bodies[0].Pocketed)
	assert.Equal(t, "w1", s.LastShot.CoinsPocketed[0])
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(s *Session)
	}{
		{"bad player", func(s *Session) { s.CurrentPlayer = "player3" }},
		{"turn zero", func(s *Session) { s.TurnNumber = 0 }},
		{"negative score", func(s *Session) { s.Scores[Player2] = -10 }},
		{"won without winner", func(s *Session) { s.Won = true }},
		{"duplicate id", func(s *Session) { s.Bodies[1].ID = s.Bodies[0].ID }},
		{"nan position", func(s *Session) { s.Bodies[3].Position.X = math.NaN() }},
		{"unknown kind", func(s *Session) { s.Bodies[2].Kind = "red" }},
		{"two strikers", func(s *Session) { s.Bodies[0].Kind = KindStriker }},
		{"missing coin", func(s *Session) { s.Bodies = s.Bodies[1:] }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSession("g1", NewStandardBoard(), shotTime)
			tt.mutate(s)
			assert.ErrorIs(t, s.Validate(), ErrCorruptSession)
		})
	}
}

func TestValidateMissingStriker(t *testing.T) {
	s := NewSession("g1", NewStandardBoard(), shotTime)
	s.Bodies = s.Bodies[:len(s.Bodies)-1]

	err := s.Validate()
	assert.ErrorIs(t, err, ErrCorruptSession)
	assert.ErrorIs(t, err, ErrMissingStriker)
	_, err = s.Striker()
	assert.ErrorIs(t, err, ErrMissingStriker)
}

func TestSessionJSONFieldNames(t *testing.T) {
	s := NewSession("g1", NewStandardBoard(), shotTime)
	b, err := json.Marshal(s)
	require.NoError(t, err)

	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(b, &raw))
	for _, key := range []string{"currentPlayer", "scores", "turnNumber", "boardState", "lastShot", "gameWon"} {
		assert.Contains(t, raw, key)
	}
	assert.Contains(t, string(raw["boardState"]), `"isPocketed":false`)
	assert.Contains(t, string(raw["boardState"]), `"type":"queen"`)
}

func TestTransitionJSONMatchesSessionCasing(t *testing.T) {
	tr := Transition{
		Outcome:      ShotOutcome{Player: Player1, PocketedIDs: []string{"w1"}, Score: 20},
		ScoreApplied: 20,
		NextPlayer:   Player1,
		TurnNumber:   1,
	}
	b, err := json.Marshal(tr)
	require.NoError(t, err)

	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(b, &raw))
	for _, key := range []string{"outcome", "scoreApplied", "turnSwitched", "nextPlayer", "turnNumber"} {
		assert.Contains(t, raw, key)
	}
	assert.Contains(t, string(raw["outcome"]), `"pocketedIds":["w1"]`)
	assert.Contains(t, string(raw["outcome"]), `"strikerPocketed":false`)
	assert.NotContains(t, string(b), "_")
}
