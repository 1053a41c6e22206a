package game

// Board and physics constants for carrom.
// These MUST match the values the board client renders with.

const (
	BoardSize   = 600.0
	BoardMargin = 50.0

	CoinRadius    = 12.0
	StrikerRadius = 15.0
	PocketRadius  = 25.0

	Friction        = 0.98 // velocity multiplier per tick
	WallRestitution = 0.7
	RestEpsilon     = 0.1 // per-component speed below which a body stops

	MaxVelocity     = 15.0
	MinPower        = 0.1 // a shot needs power strictly above this
	MaxDragDistance = 150.0

	MaxShotTicks = 3600

	WhiteValue  = 20
	BlackValue  = 10
	QueenValue  = 50
	TargetScore = 100

	NumWhite = 9
	NumBlack = 9
	NumCoins = NumWhite + NumBlack + 1
)
