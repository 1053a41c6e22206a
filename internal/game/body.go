package game

// Kind identifies what a body is on the board.
type Kind string

const (
	KindWhite   Kind = "white"
	KindBlack   Kind = "black"
	KindQueen   Kind = "queen"
	KindStriker Kind = "striker"
)

// StrikerID is the fixed identifier of the striker body.
const StrikerID = "striker"

// Body is a single disc on the board.
type Body struct {
	ID       string `json:"id"`
	Kind     Kind   `json:"type"`
	Position Vec2   `json:"position"`
	Velocity Vec2   `json:"velocity"`
	Pocketed bool   `json:"isPocketed"`
}

// Radius returns the disc radius for the body's kind.
func (b Body) Radius() float64 {
	return RadiusOf(b.Kind)
}

// IsCoin reports whether the body scores when pocketed.
func (b Body) IsCoin() bool {
	return b.Kind != KindStriker
}

// Moving reports whether the body has any velocity left.
func (b Body) Moving() bool {
	return !b.Pocketed && !b.Velocity.IsZero()
}

// CoinValue returns the points for pocketing a coin of the given kind.
func CoinValue(k Kind) int {
	switch k {
	case KindWhite:
		return WhiteValue
	case KindBlack:
		return BlackValue
	case KindQueen:
		return QueenValue
	}
	return 0
}

// CloneBodies returns an independent copy of the body set.
func CloneBodies(bodies []Body) []Body {
	if bodies == nil {
		return nil
	}
	out := make([]Body, len(bodies))
	copy(out, bodies)
	return out
}

// FindStriker returns the index of the striker, or -1.
func FindStriker(bodies []Body) int {
	for i := range bodies {
		if bodies[i].Kind == KindStriker {
			return i
		}
	}
	return -1
}
