package game

import "time"

// Transition describes what applying a shot outcome did to the session.
type Transition struct {
	Outcome      ShotOutcome `json:"outcome"`
	ScoreApplied int         `json:"scoreApplied"`
	TurnSwitched bool        `json:"turnSwitched"`
	NextPlayer   Player      `json:"nextPlayer"`
	TurnNumber   int         `json:"turnNumber"`
	Won          bool        `json:"won"`
	Winner       Player      `json:"winner,omitempty"`
}

// TurnStateMachine owns every mutation of a Session's turn state.
type TurnStateMachine struct {
	Board       Geometry
	TargetScore int
}

// NewTurnStateMachine creates a state machine for the given board.
func NewTurnStateMachine(board Geometry) *TurnStateMachine {
	return &TurnStateMachine{Board: board, TargetScore: TargetScore}
}

// CanShoot reports whether the player may start a shot right now.
func (m *TurnStateMachine) CanShoot(s *Session, p Player) bool {
	return s.Phase == PhaseAwaitingShot && !s.Won && s.CurrentPlayer == p
}

// Begin moves the session from AwaitingShot to ShotInFlight.
func (m *TurnStateMachine) Begin(s *Session) error {
	switch {
	case s.Won || s.Phase == PhaseWon:
		return ErrGameWon
	case s.Phase == PhaseShotInFlight || s.Phase == PhaseEvaluating:
		return ErrShotInFlight
	}
	s.Phase = PhaseShotInFlight
	return nil
}

// Abort cancels a shot in flight and restores the board to how it was
// before the strike. Nothing about the shot is recorded.
func (m *TurnStateMachine) Abort(s *Session, before []Body) error {
	if s.Phase != PhaseShotInFlight {
		return ErrNoShotInFlight
	}
	s.Bodies = CloneBodies(before)
	s.Phase = PhaseAwaitingShot
	return nil
}

// Apply evaluates a finished shot: scores it, respawns a pocketed striker,
// decides whether the turn passes, and detects a win.
func (m *TurnStateMachine) Apply(s *Session, out ShotOutcome, bodies []Body, at time.Time) (Transition, error) {
	if s.Phase != PhaseShotInFlight {
		return Transition{}, ErrNoShotInFlight
	}
	s.Phase = PhaseEvaluating

	acting := s.CurrentPlayer
	out.Player = acting
	s.Bodies = CloneBodies(bodies)

	if out.StrikerPocketed {
		if err := m.respawnStriker(s, acting); err != nil {
			return Transition{}, err
		}
	}

	tr := Transition{Outcome: out}
	if !out.Foul {
		s.Scores[acting] += out.Score
		tr.ScoreApplied = out.Score
	}

	if out.Foul || out.CoinsPocketed() == 0 {
		s.CurrentPlayer = acting.Opponent()
		s.TurnNumber++
		tr.TurnSwitched = true
	}

	s.LastShot = &LastShot{
		Player:          acting,
		CoinsPocketed:   append([]string(nil), out.PocketedIDs...),
		StrikerPocketed: out.StrikerPocketed,
		Score:           out.Score,
		Foul:            out.Foul,
		Timestamp:       at,
	}
	s.ShotCount++
	s.UpdatedAt = at

	// Only the acting player's score moved, so only they can have crossed.
	if s.Scores[acting] >= m.TargetScore {
		s.Won = true
		s.Winner = acting
		s.Phase = PhaseWon
	} else {
		s.Phase = PhaseAwaitingShot
	}

	tr.NextPlayer = s.CurrentPlayer
	tr.TurnNumber = s.TurnNumber
	tr.Won = s.Won
	tr.Winner = s.Winner
	return tr, nil
}

func (m *TurnStateMachine) respawnStriker(s *Session, p Player) error {
	i := FindStriker(s.Bodies)
	if i < 0 {
		return ErrMissingStriker
	}
	s.Bodies[i].Pocketed = false
	s.Bodies[i].Position = m.Board.Baseline(p)
	s.Bodies[i].Velocity = Vec2{}
	return nil
}
