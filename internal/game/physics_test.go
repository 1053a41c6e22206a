package game

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func striker(x, y, vx, vy float64) Body {
	return Body{ID: StrikerID, Kind: KindStriker, Position: NewVec2(x, y), Velocity: NewVec2(vx, vy)}
}

func coin(id string, kind Kind, x, y, vx, vy float64) Body {
	return Body{ID: id, Kind: kind, Position: NewVec2(x, y), Velocity: NewVec2(vx, vy)}
}

func requireOnBoard(t *testing.T, board Geometry, b Body) {
	t.Helper()
	const eps = 1e-9
	r := b.Radius()
	require.GreaterOrEqual(t, b.Position.X-r, board.Min.X-eps, "body %s left of field", b.ID)
	require.LessOrEqual(t, b.Position.X+r, board.Max.X+eps, "body %s right of field", b.ID)
	require.GreaterOrEqual(t, b.Position.Y-r, board.Min.Y-eps, "body %s above field", b.ID)
	require.LessOrEqual(t, b.Position.Y+r, board.Max.Y+eps, "body %s below field", b.ID)
}

func TestFrictionNeverSpeedsUpAndRestSticks(t *testing.T) {
	sim := NewSimulator(NewStandardBoard())
	bodies := []Body{striker(300, 300, 5, 0)}

	prev := bodies[0].Velocity.Len()
	ticks := 0
	for moving := true; moving; ticks++ {
		require.Less(t, ticks, MaxShotTicks, "ball never came to rest")
		bodies, moving = sim.Step(bodies)
		speed := bodies[0].Velocity.Len()
		assert.Less(t, speed, prev)
		prev = speed
	}

	rest := bodies[0]
	assert.True(t, rest.Velocity.IsZero())
	for i := 0; i < 50; i++ {
		var moving bool
		bodies, moving = sim.Step(bodies)
		assert.False(t, moving)
	}
	assert.Equal(t, rest, bodies[0])
}

func TestWallBounceLosesEnergy(t *testing.T) {
	board := NewStandardBoard()
	sim := NewSimulator(board)

	out, moving := sim.Step([]Body{striker(530, 300, 10, 0)})
	require.True(t, moving)

	b := out[0]
	incoming := 10 * Friction
	assert.InDelta(t, -WallRestitution*incoming, b.Velocity.X, 1e-9)
	assert.Equal(t, board.Max.X-StrikerRadius, b.Position.X)
	requireOnBoard(t, board, b)
}

func TestWallBounceTopWall(t *testing.T) {
	board := NewStandardBoard()
	sim := NewSimulator(board)

	out, _ := sim.Step([]Body{coin("w1", KindWhite, 300, 63, 0, -4)})
	b := out[0]
	assert.InDelta(t, WallRestitution*4*Friction, b.Velocity.Y, 1e-9)
	assert.Equal(t, board.Min.Y+CoinRadius, b.Position.Y)
}

func TestStepDoesNotMutateInput(t *testing.T) {
	sim := NewSimulator(NewStandardBoard())
	in := StartingLayout(NewVec2(320, 500))
	in[len(in)-1].Velocity = NewVec2(0, -15)
	orig := CloneBodies(in)

	out, _ := sim.Step(in)
	assert.Equal(t, orig, in)
	assert.NotEqual(t, in, out)
}

func TestStepIsDeterministic(t *testing.T) {
	sim := NewSimulator(NewStandardBoard())
	start := StartingLayout(NewVec2(320, 500))
	start[len(start)-1].Velocity = NewVec2(2, -14)

	a, b := CloneBodies(start), CloneBodies(start)
	for i := 0; i < 200; i++ {
		a, _ = sim.Step(a)
		b, _ = sim.Step(b)
	}
	assert.Equal(t, a, b)
}

func TestResolveCollisionSeparatingIsNoop(t *testing.T) {
	a := coin("w1", KindWhite, 300, 300, -1, 0)
	b := coin("w2", KindWhite, 310, 300, 1, 0)
	wantA, wantB := a, b

	require.True(t, Overlapping(a, b))
	ResolveCollision(&a, &b)
	assert.Equal(t, wantA, a)
	assert.Equal(t, wantB, b)
}

func TestResolveCollisionHeadOnSwapsVelocity(t *testing.T) {
	a := coin("w1", KindWhite, 300, 300, 2, 0)
	b := coin("w2", KindWhite, 320, 300, 0, 0)

	ResolveCollision(&a, &b)
	assert.InDelta(t, 0, a.Velocity.X, 1e-9)
	assert.InDelta(t, 2, b.Velocity.X, 1e-9)
	// overlap was 4, split evenly
	assert.InDelta(t, 298, a.Position.X, 1e-9)
	assert.InDelta(t, 322, b.Position.X, 1e-9)
	assert.InDelta(t, 2*CoinRadius, a.Position.Dist(b.Position), 1e-9)
}

func TestResolveCollisionCoincidentCentresSkipped(t *testing.T) {
	a := coin("queen", KindQueen, 320, 300, 0, 0)
	b := coin("w4", KindWhite, 320, 300, 1, 0)
	wantA, wantB := a, b

	ResolveCollision(&a, &b)
	assert.Equal(t, wantA, a)
	assert.Equal(t, wantB, b)
}

func TestPocketCaptureIsFinal(t *testing.T) {
	sim := NewSimulator(NewStandardBoard())
	bodies := []Body{coin("w1", KindWhite, 90, 90, -3, -3)}

	bodies, moving := sim.Step(bodies)
	require.True(t, bodies[0].Pocketed)
	assert.True(t, bodies[0].Velocity.IsZero())
	assert.True(t, moving)

	captured := bodies[0]
	for i := 0; i < 20; i++ {
		bodies, moving = sim.Step(bodies)
		assert.False(t, moving)
		assert.Equal(t, captured, bodies[0])
	}
}

func TestPocketedBodiesIgnoreCollisions(t *testing.T) {
	sim := NewSimulator(NewStandardBoard())
	held := coin("b1", KindBlack, 75, 75, 0, 0)
	held.Pocketed = true
	bodies := []Body{held, coin("w1", KindWhite, 80, 80, 0, 0)}

	out, _ := sim.Step(bodies)
	assert.Equal(t, held, out[0])
}

func TestRandomShotsStayOnBoard(t *testing.T) {
	board := NewStandardBoard()
	sim := NewSimulator(board)
	rng := rand.New(rand.NewSource(7))

	for shot := 0; shot < 25; shot++ {
		bodies := StartingLayout(board.Baseline(Player1))
		drag := NewVec2(rng.Float64()*2-1, -rng.Float64())
		v, ok := BeginShot(bodies[len(bodies)-1].Position, drag, 0.2+rng.Float64()*0.8)
		if !ok {
			continue
		}
		bodies[len(bodies)-1].Velocity = v

		frozen := map[string]Body{}
		for tick := 0; tick < MaxShotTicks; tick++ {
			var moving bool
			bodies, moving = sim.Step(bodies)
			for _, b := range bodies {
				requireOnBoard(t, board, b)
				if was, ok := frozen[b.ID]; ok {
					require.Equal(t, was, b, "pocketed body %s moved", b.ID)
				} else if b.Pocketed {
					frozen[b.ID] = b
				}
			}
			if !moving {
				break
			}
		}
	}
}

func TestStartingLayout(t *testing.T) {
	bodies := StartingLayout(NewVec2(320, 500))
	require.Len(t, bodies, NumCoins+1)

	counts := map[Kind]int{}
	for _, b := range bodies {
		counts[b.Kind]++
		assert.True(t, b.Velocity.IsZero())
		assert.False(t, b.Pocketed)
	}
	assert.Equal(t, NumWhite, counts[KindWhite])
	assert.Equal(t, NumBlack, counts[KindBlack])
	assert.Equal(t, 1, counts[KindQueen])
	assert.Equal(t, 1, counts[KindStriker])

	assert.Equal(t, NewVec2(300, 280), bodies[0].Position)
	assert.Equal(t, NewVec2(290, 320), bodies[17].Position)
	assert.Equal(t, "queen", bodies[18].ID)
	assert.Equal(t, NewVec2(320, 300), bodies[18].Position)
	assert.Equal(t, NewVec2(320, 500), bodies[19].Position)
}
