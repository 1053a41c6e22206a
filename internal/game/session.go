package game

import (
	"fmt"
	"time"
)

// LastShot records the most recently resolved shot.
type LastShot struct {
	Player          Player    `json:"player"`
	CoinsPocketed   []string  `json:"coinsPocketed"`
	StrikerPocketed bool      `json:"strikerPocketed"`
	Score           int       `json:"score"`
	Foul            bool      `json:"foul"`
	Timestamp       time.Time `json:"timestamp"`
}

// Session is the complete state of one carrom game.
type Session struct {
	ID            string         `json:"id"`
	CurrentPlayer Player         `json:"currentPlayer"`
	Scores        map[Player]int `json:"scores"`
	TurnNumber    int            `json:"turnNumber"`
	Bodies        []Body         `json:"boardState"`
	LastShot      *LastShot      `json:"lastShot"`
	Phase         Phase          `json:"phase"`
	Won           bool           `json:"gameWon"`
	Winner        Player         `json:"winner,omitempty"`
	ShotCount     int            `json:"shotCount"`
	CreatedAt     time.Time      `json:"createdAt"`
	UpdatedAt     time.Time      `json:"updatedAt"`
}

// NewSession creates a fresh game: canonical layout, zero scores, turn 1,
// player1 to move.
func NewSession(id string, board Geometry, now time.Time) *Session {
	return &Session{
		ID:            id,
		CurrentPlayer: Player1,
		Scores:        map[Player]int{Player1: 0, Player2: 0},
		TurnNumber:    1,
		Bodies:        StartingLayout(board.Baseline(Player1)),
		Phase:         PhaseAwaitingShot,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// Clone returns a deep copy that shares nothing with s.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	c.Scores = make(map[Player]int, len(s.Scores))
	for k, v := range s.Scores {
		c.Scores[k] = v
	}
	c.Bodies = CloneBodies(s.Bodies)
	if s.LastShot != nil {
		ls := *s.LastShot
		ls.CoinsPocketed = append([]string(nil), s.LastShot.CoinsPocketed...)
		c.LastShot = &ls
	}
	return &c
}

// Striker returns a copy of the striker body.
func (s *Session) Striker() (Body, error) {
	i := FindStriker(s.Bodies)
	if i < 0 {
		return Body{}, ErrMissingStriker
	}
	return s.Bodies[i], nil
}

// Validate checks the invariants a restored session must hold. A failure is
// wrapped in ErrCorruptSession.
func (s *Session) Validate() error {
	if s == nil {
		return fmt.Errorf("%w: nil session", ErrCorruptSession)
	}
	if !s.CurrentPlayer.Valid() {
		return fmt.Errorf("%w: invalid current player %q", ErrCorruptSession, s.CurrentPlayer)
	}
	if s.TurnNumber < 1 {
		return fmt.Errorf("%w: turn number %d", ErrCorruptSession, s.TurnNumber)
	}
	for _, p := range []Player{Player1, Player2} {
		if s.Scores[p] < 0 {
			return fmt.Errorf("%w: negative score for %s", ErrCorruptSession, p)
		}
	}
	if s.Won && !s.Winner.Valid() {
		return fmt.Errorf("%w: won without a winner", ErrCorruptSession)
	}

	seen := make(map[string]bool, len(s.Bodies))
	strikers, coins := 0, 0
	for _, b := range s.Bodies {
		if seen[b.ID] {
			return fmt.Errorf("%w: duplicate body id %q", ErrCorruptSession, b.ID)
		}
		seen[b.ID] = true
		if !b.Position.IsFinite() || !b.Velocity.IsFinite() {
			return fmt.Errorf("%w: non-finite body %q", ErrCorruptSession, b.ID)
		}
		switch b.Kind {
		case KindStriker:
			strikers++
		case KindWhite, KindBlack, KindQueen:
			coins++
		default:
			return fmt.Errorf("%w: unknown kind %q", ErrCorruptSession, b.Kind)
		}
	}
	if strikers == 0 {
		return fmt.Errorf("%w: %w", ErrCorruptSession, ErrMissingStriker)
	}
	if strikers > 1 {
		return fmt.Errorf("%w: %d strikers", ErrCorruptSession, strikers)
	}
	if coins != NumCoins {
		return fmt.Errorf("%w: %d coins", ErrCorruptSession, coins)
	}
	return nil
}

// CoinsRemaining counts coins still on the board.
func (s *Session) CoinsRemaining() int {
	n := 0
	for _, b := range s.Bodies {
		if b.IsCoin() && !b.Pocketed {
			n++
		}
	}
	return n
}
