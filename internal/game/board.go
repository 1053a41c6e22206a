package game

// Pocket is one of the four corner capture zones.
type Pocket struct {
	ID       int  `json:"id"`
	Position Vec2 `json:"position"`
}

// Geometry holds the static board layout and the physics coefficients.
type Geometry struct {
	Min             Vec2
	Max             Vec2
	Pockets         []Pocket
	PocketRadius    float64
	Friction        float64
	WallRestitution float64
	RestEpsilon     float64
	Baselines       map[Player]Vec2
}

// NewStandardBoard creates the standard 600x600 board with a 50 unit frame.
func NewStandardBoard() Geometry {
	lo := BoardMargin
	hi := BoardSize - BoardMargin
	inset := PocketRadius

	baseline := NewVec2(320, 500)

	return Geometry{
		Min: NewVec2(lo, lo),
		Max: NewVec2(hi, hi),
		Pockets: []Pocket{
			{ID: 0, Position: NewVec2(lo+inset, lo+inset)}, // top-left
			{ID: 1, Position: NewVec2(hi-inset, lo+inset)}, // top-right
			{ID: 2, Position: NewVec2(lo+inset, hi-inset)}, // bottom-left
			{ID: 3, Position: NewVec2(hi-inset, hi-inset)}, // bottom-right
		},
		PocketRadius:    PocketRadius,
		Friction:        Friction,
		WallRestitution: WallRestitution,
		RestEpsilon:     RestEpsilon,
		Baselines: map[Player]Vec2{
			Player1: baseline,
			Player2: baseline,
		},
	}
}

// Baseline returns where the given player's striker is placed.
func (g Geometry) Baseline(p Player) Vec2 {
	if pos, ok := g.Baselines[p]; ok {
		return pos
	}
	return NewVec2(320, 500)
}

// InBounds reports whether a disc of radius r centred at pos lies inside the field.
func (g Geometry) InBounds(pos Vec2, r float64) bool {
	return pos.X-r >= g.Min.X && pos.X+r <= g.Max.X &&
		pos.Y-r >= g.Min.Y && pos.Y+r <= g.Max.Y
}

// PocketAt returns the pocket whose capture radius contains pos.
func (g Geometry) PocketAt(pos Vec2) (Pocket, bool) {
	for _, p := range g.Pockets {
		if pos.Dist(p.Position) < g.PocketRadius {
			return p, true
		}
	}
	return Pocket{}, false
}

// RadiusOf returns the disc radius for a body kind.
func RadiusOf(k Kind) float64 {
	if k == KindStriker {
		return StrikerRadius
	}
	return CoinRadius
}

// StartingLayout returns the canonical formation: 9 white, 9 black, the queen,
// and the striker on the given baseline.
func StartingLayout(striker Vec2) []Body {
	type slot struct {
		id   string
		kind Kind
		x, y float64
	}
	slots := []slot{
		{"w1", KindWhite, 300, 280},
		{"w2", KindWhite, 320, 260},
		{"w3", KindWhite, 340, 280},
		{"w4", KindWhite, 320, 300},
		{"w5", KindWhite, 300, 320},
		{"w6", KindWhite, 340, 320},
		{"w7", KindWhite, 280, 300},
		{"w8", KindWhite, 360, 300},
		{"w9", KindWhite, 320, 340},

		{"b1", KindBlack, 310, 270},
		{"b2", KindBlack, 330, 270},
		{"b3", KindBlack, 310, 290},
		{"b4", KindBlack, 330, 290},
		{"b5", KindBlack, 310, 310},
		{"b6", KindBlack, 330, 310},
		{"b7", KindBlack, 310, 330},
		{"b8", KindBlack, 330, 330},
		{"b9", KindBlack, 290, 320},

		{"queen", KindQueen, 320, 300},
	}

	bodies := make([]Body, 0, len(slots)+1)
	for _, s := range slots {
		bodies = append(bodies, Body{ID: s.id, Kind: s.kind, Position: NewVec2(s.x, s.y)})
	}
	bodies = append(bodies, Body{ID: StrikerID, Kind: KindStriker, Position: striker})
	return bodies
}
