package game

// Simulator advances the board one tick at a time. It holds no state beyond
// the board geometry, so the same input always yields the same output.
type Simulator struct {
	Board Geometry
}

// NewSimulator creates a simulator for the given board.
func NewSimulator(board Geometry) *Simulator {
	return &Simulator{Board: board}
}

// Step advances every non-pocketed body by one tick and returns a fresh body
// slice together with whether anything is still moving. The input is never
// modified.
func (s *Simulator) Step(bodies []Body) ([]Body, bool) {
	next := CloneBodies(bodies)
	stillMoving := false

	for i := range next {
		b := &next[i]
		if b.Pocketed {
			continue
		}

		b.Position = b.Position.Add(b.Velocity)
		b.Velocity = b.Velocity.Scale(s.Board.Friction)

		if abs(b.Velocity.X) < s.Board.RestEpsilon && abs(b.Velocity.Y) < s.Board.RestEpsilon {
			b.Velocity = Vec2{}
		} else {
			stillMoving = true
		}

		s.bounceOffWalls(b)

		if _, ok := s.Board.PocketAt(b.Position); ok {
			b.Pocketed = true
			b.Velocity = Vec2{}
		}
	}

	// Pairs are resolved one at a time in insertion order. Dense clusters may
	// need several ticks to fully separate.
	for i := 0; i < len(next); i++ {
		for j := i + 1; j < len(next); j++ {
			a, b := &next[i], &next[j]
			if a.Pocketed || b.Pocketed {
				continue
			}
			if Overlapping(*a, *b) {
				ResolveCollision(a, b)
			}
		}
	}

	// Separation can push a disc past a wall; keep it on the board without
	// touching its velocity.
	for i := range next {
		if !next[i].Pocketed {
			s.clampInside(&next[i])
		}
	}

	return next, stillMoving
}

// bounceOffWalls clamps a body inside the field and reflects the crossing
// velocity component, losing energy to the wall.
func (s *Simulator) bounceOffWalls(b *Body) {
	r := b.Radius()
	lo, hi := s.Board.Min, s.Board.Max
	e := s.Board.WallRestitution

	if b.Position.X-r < lo.X {
		b.Position.X = lo.X + r
		b.Velocity.X *= -e
	}
	if b.Position.X+r > hi.X {
		b.Position.X = hi.X - r
		b.Velocity.X *= -e
	}
	if b.Position.Y-r < lo.Y {
		b.Position.Y = lo.Y + r
		b.Velocity.Y *= -e
	}
	if b.Position.Y+r > hi.Y {
		b.Position.Y = hi.Y - r
		b.Velocity.Y *= -e
	}
}

func (s *Simulator) clampInside(b *Body) {
	r := b.Radius()
	b.Position.X = clamp(b.Position.X, s.Board.Min.X+r, s.Board.Max.X-r)
	b.Position.Y = clamp(b.Position.Y, s.Board.Min.Y+r, s.Board.Max.Y-r)
}

// Overlapping reports whether two discs intersect.
func Overlapping(a, b Body) bool {
	return a.Position.Dist(b.Position) < a.Radius()+b.Radius()
}

// ResolveCollision applies an equal-mass elastic impulse along the contact
// normal and pushes the pair apart by half the overlap each. Pairs that are
// already separating, or share a centre, are left untouched.
func ResolveCollision(a, b *Body) {
	delta := b.Position.Sub(a.Position)
	dist := delta.Len()
	if dist == 0 {
		return
	}
	n := delta.Scale(1 / dist)

	dvn := b.Velocity.Sub(a.Velocity).Dot(n)
	if dvn > 0 {
		return
	}

	// With equal masses the impulse 2*dvn/(1+1) reduces to dvn.
	impulse := n.Scale(dvn)
	a.Velocity = a.Velocity.Add(impulse)
	b.Velocity = b.Velocity.Sub(impulse)

	overlap := a.Radius() + b.Radius() - dist
	if overlap > 0 {
		push := n.Scale(overlap / 2)
		a.Position = a.Position.Sub(push)
		b.Position = b.Position.Add(push)
	}
}

// AnyMoving reports whether any body in play has velocity.
func AnyMoving(bodies []Body) bool {
	for _, b := range bodies {
		if b.Moving() {
			return true
		}
	}
	return false
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
