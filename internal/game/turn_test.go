package game

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var shotTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// playShot runs a whole shot against the session the way the manager does.
func playShot(t *testing.T, m *TurnStateMachine, s *Session, bodies []Body, v Vec2) Transition {
	t.Helper()
	require.NoError(t, m.Begin(s))
	shot, err := NewShot(NewSimulator(m.Board), s.CurrentPlayer, bodies, v)
	require.NoError(t, err)
	shot.RunToRest()
	tr, err := m.Apply(s, shot.Outcome(), shot.Bodies(), shotTime)
	require.NoError(t, err)
	return tr
}

func TestApplyScoringTable(t *testing.T) {
	board := NewStandardBoard()
	m := NewTurnStateMachine(board)
	s := NewSession("g1", board, shotTime)

	tr := playShot(t, m, s, threeIntoPockets(), Vec2{})

	assert.Equal(t, 80, tr.ScoreApplied)
	assert.Equal(t, 80, s.Scores[Player1])
	assert.Equal(t, 0, s.Scores[Player2])
	assert.False(t, tr.TurnSwitched)
	assert.Equal(t, Player1, s.CurrentPlayer)
	assert.Equal(t, 1, s.TurnNumber)
	assert.Equal(t, PhaseAwaitingShot, s.Phase)

	require.NotNil(t, s.LastShot)
	assert.Equal(t, Player1, s.LastShot.Player)
	assert.Equal(t, []string{"w1", "b1", "queen"}, s.LastShot.CoinsPocketed)
	assert.Equal(t, 80, s.LastShot.Score)
	assert.False(t, s.LastShot.Foul)
	assert.Equal(t, shotTime, s.LastShot.Timestamp)
	assert.Equal(t, 1, s.ShotCount)
}

func TestApplyStrikerFoul(t *testing.T) {
	board := NewStandardBoard()
	m := NewTurnStateMachine(board)
	s := NewSession("g1", board, shotTime)
	s.Scores[Player1] = 30

	bodies := []Body{
		coin("w1", KindWhite, 90, 90, -3, -3),
		coin("w2", KindWhite, 510, 90, 3, -3),
		striker(90, 510, 0, 0),
	}
	tr := playShot(t, m, s, bodies, NewVec2(-3, 3))

	assert.True(t, tr.Outcome.Foul)
	assert.Equal(t, 40, tr.Outcome.Score)
	assert.Zero(t, tr.ScoreApplied)
	assert.Equal(t, 30, s.Scores[Player1])
	assert.Equal(t, 0, s.Scores[Player2])

	assert.True(t, tr.TurnSwitched)
	assert.Equal(t, Player2, s.CurrentPlayer)
	assert.Equal(t, 2, s.TurnNumber)

	st, err := s.Striker()
	require.NoError(t, err)
	assert.False(t, st.Pocketed)
	assert.Equal(t, board.Baseline(Player1), st.Position)
	assert.True(t, st.Velocity.IsZero())

	assert.True(t, s.LastShot.Foul)
	assert.True(t, s.LastShot.StrikerPocketed)
	assert.Equal(t, 40, s.LastShot.Score)
}

func TestApplyEmptyShotPassesTurn(t *testing.T) {
	board := NewStandardBoard()
	m := NewTurnStateMachine(board)
	s := NewSession("g1", board, shotTime)
	s.CurrentPlayer = Player2
	s.TurnNumber = 4

	tr := playShot(t, m, s, []Body{striker(320, 500, 0, 0)}, NewVec2(0, -2))

	assert.True(t, tr.TurnSwitched)
	assert.Equal(t, Player1, tr.NextPlayer)
	assert.Equal(t, 5, tr.TurnNumber)
	assert.Equal(t, PhaseAwaitingShot, s.Phase)
}

func TestApplyWinRejectsFurtherShots(t *testing.T) {
	board := NewStandardBoard()
	m := NewTurnStateMachine(board)
	s := NewSession("g1", board, shotTime)
	s.Scores[Player1] = 90

	bodies := []Body{
		coin("w1", KindWhite, 90, 90, -3, -3),
		striker(320, 500, 0, 0),
	}
	tr := playShot(t, m, s, bodies, Vec2{})

	assert.True(t, tr.Won)
	assert.Equal(t, Player1, tr.Winner)
	assert.Equal(t, 110, s.Scores[Player1])
	assert.True(t, s.Won)
	assert.Equal(t, Player1, s.Winner)
	assert.Equal(t, PhaseWon, s.Phase)

	assert.False(t, m.CanShoot(s, Player1))
	assert.False(t, m.CanShoot(s, Player2))
	assert.ErrorIs(t, m.Begin(s), ErrGameWon)
}

func TestBeginRejectsWhileInFlight(t *testing.T) {
	board := NewStandardBoard()
	m := NewTurnStateMachine(board)
	s := NewSession("g1", board, shotTime)

	require.True(t, m.CanShoot(s, Player1))
	assert.False(t, m.CanShoot(s, Player2))

	require.NoError(t, m.Begin(s))
	assert.Equal(t, PhaseShotInFlight, s.Phase)
	assert.ErrorIs(t, m.Begin(s), ErrShotInFlight)
	assert.False(t, m.CanShoot(s, Player1))
}

func TestApplyRequiresShotInFlight(t *testing.T) {
	board := NewStandardBoard()
	m := NewTurnStateMachine(board)
	s := NewSession("g1", board, shotTime)

	_, err := m.Apply(s, ShotOutcome{}, s.Bodies, shotTime)
	assert.ErrorIs(t, err, ErrNoShotInFlight)
}

func TestAbortRestoresBoard(t *testing.T) {
	board := NewStandardBoard()
	m := NewTurnStateMachine(board)
	s := NewSession("g1", board, shotTime)
	before := CloneBodies(s.Bodies)

	require.NoError(t, m.Begin(s))
	s.Bodies[0].Position = NewVec2(100, 100)
	require.NoError(t, m.Abort(s, before))

	assert.Equal(t, before, s.Bodies)
	assert.Equal(t, PhaseAwaitingShot, s.Phase)
	assert.Nil(t, s.LastShot)
	assert.Zero(t, s.ShotCount)
	assert.ErrorIs(t, m.Abort(s, before), ErrNoShotInFlight)
}
