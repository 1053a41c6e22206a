package game

import "errors"

// Phase is where a session sits in the turn cycle.
type Phase string

const (
	PhaseAwaitingShot Phase = "AWAITING_SHOT"
	PhaseShotInFlight Phase = "SHOT_IN_FLIGHT"
	PhaseEvaluating   Phase = "EVALUATING"
	PhaseWon          Phase = "WON"
)

// Player identifies one of the two seats at the board.
type Player string

const (
	Player1 Player = "player1"
	Player2 Player = "player2"
)

// Opponent returns the other player.
func (p Player) Opponent() Player {
	if p == Player1 {
		return Player2
	}
	return Player1
}

func (p Player) Valid() bool {
	return p == Player1 || p == Player2
}

var (
	ErrSessionNotFound = errors.New("game session not found")
	ErrCorruptSession  = errors.New("game session is corrupt")
	ErrMissingStriker  = errors.New("striker body missing")
	ErrGameWon         = errors.New("game is already won")
	ErrShotInFlight    = errors.New("a shot is already in flight")
	ErrNoShotInFlight  = errors.New("no shot in flight")
)
