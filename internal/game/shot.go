package game

import "fmt"

// ShotOutcome is the result of one shot once every body has come to rest.
type ShotOutcome struct {
	Player          Player   `json:"player"`
	PocketedIDs     []string `json:"pocketedIds"`
	StrikerPocketed bool     `json:"strikerPocketed"`
	Score           int      `json:"score"`
	Foul            bool     `json:"foul"`
	Ticks           int      `json:"ticks"`
}

// CoinsPocketed is the number of coins that fell during the shot.
func (o ShotOutcome) CoinsPocketed() int {
	return len(o.PocketedIDs)
}

// Notices returns the player-facing messages for the outcome.
func (o ShotOutcome) Notices() []string {
	var out []string
	if n := o.CoinsPocketed(); n > 0 {
		out = append(out, fmt.Sprintf("Pocketed %d coin(s)! +%d points", n, o.Score))
	}
	if o.StrikerPocketed {
		out = append(out, "Striker pocketed! Foul!")
	}
	if o.CoinsPocketed() == 0 {
		out = append(out, "No coins pocketed")
	}
	return out
}

// PowerFromDrag maps a drag distance onto [0,1].
func PowerFromDrag(drag Vec2) float64 {
	p := drag.Len() / MaxDragDistance
	if p > 1 {
		return 1
	}
	return p
}

// BeginShot turns an aim gesture into the striker's initial velocity. A shot
// with too little power or no direction is a cancel, reported as ok=false.
func BeginShot(strikerStart, drag Vec2, power float64) (Vec2, bool) {
	if !strikerStart.IsFinite() {
		return Vec2{}, false
	}
	if power > 1 {
		power = 1
	}
	if !(power > MinPower) {
		return Vec2{}, false
	}
	mag := drag.Len()
	if mag == 0 || !drag.IsFinite() {
		return Vec2{}, false
	}
	return drag.Scale(power * MaxVelocity / mag), true
}

// Shot drives the simulator for one strike, from launch until rest.
type Shot struct {
	player      Player
	sim         *Simulator
	before      []Body
	bodies      []Body
	ticks       int
	done        bool
	pocketOrder []string
}

// NewShot launches the striker with the given velocity. The body set is
// copied; the shot owns its own working set from here on.
func NewShot(sim *Simulator, player Player, bodies []Body, velocity Vec2) (*Shot, error) {
	i := FindStriker(bodies)
	if i < 0 {
		return nil, ErrMissingStriker
	}
	if bodies[i].Pocketed {
		return nil, fmt.Errorf("%w: striker was not respawned", ErrMissingStriker)
	}
	working := CloneBodies(bodies)
	working[i].Velocity = velocity

	return &Shot{
		player: player,
		sim:    sim,
		before: CloneBodies(bodies),
		bodies: working,
	}, nil
}

// Tick advances the shot by one simulation step and returns a copy of the
// bodies for rendering along with whether the shot has finished.
func (s *Shot) Tick() ([]Body, bool) {
	if s.done {
		return CloneBodies(s.bodies), true
	}

	prev := s.bodies
	next, moving := s.sim.Step(prev)
	for i := range next {
		if next[i].Pocketed && !prev[i].Pocketed {
			s.pocketOrder = append(s.pocketOrder, next[i].ID)
		}
	}
	s.bodies = next
	s.ticks++

	if !moving || s.ticks >= MaxShotTicks {
		s.settle()
	}
	return CloneBodies(s.bodies), s.done
}

// RunToRest ticks until every body stops.
func (s *Shot) RunToRest() []Body {
	for !s.done {
		s.Tick()
	}
	return CloneBodies(s.bodies)
}

func (s *Shot) settle() {
	for i := range s.bodies {
		s.bodies[i].Velocity = Vec2{}
	}
	s.done = true
}

// Done reports whether the shot has come to rest.
func (s *Shot) Done() bool {
	return s.done
}

// Ticks returns how many steps have run.
func (s *Shot) Ticks() int {
	return s.ticks
}

// Before returns the body set as it was before the strike.
func (s *Shot) Before() []Body {
	return CloneBodies(s.before)
}

// Bodies returns the current body set.
func (s *Shot) Bodies() []Body {
	return CloneBodies(s.bodies)
}

// Outcome summarises what the shot did. It is only meaningful once Done.
func (s *Shot) Outcome() ShotOutcome {
	out := ShotOutcome{Player: s.player, Ticks: s.ticks, PocketedIDs: []string{}}
	kinds := make(map[string]Kind, len(s.bodies))
	for _, b := range s.bodies {
		kinds[b.ID] = b.Kind
	}
	for _, id := range s.pocketOrder {
		if kinds[id] == KindStriker {
			out.StrikerPocketed = true
			continue
		}
		out.PocketedIDs = append(out.PocketedIDs, id)
		out.Score += CoinValue(kinds[id])
	}
	out.Foul = out.StrikerPocketed || len(out.PocketedIDs) == 0
	return out
}
