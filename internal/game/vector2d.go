package game

import "math"

// Vec2 is a position or velocity on the board.
type Vec2 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func NewVec2(x, y float64) Vec2 { return Vec2{X: x, Y: y} }

func (v Vec2) Add(o Vec2) Vec2 { return Vec2{v.X + o.X, v.Y + o.Y} }
func (v Vec2) Sub(o Vec2) Vec2 { return Vec2{v.X - o.X, v.Y - o.Y} }
func (v Vec2) Scale(k float64) Vec2 { return Vec2{v.X * k, v.Y * k} }
func (v Vec2) Dot(o Vec2) float64 { return v.X*o.X + v.Y*o.Y }
func (v Vec2) Len() float64 { return math.Hypot(v.X, v.Y) }
func (v Vec2) Dist(o Vec2) float64 { return o.Sub(v).Len() }
func (v Vec2) IsZero() bool { return v == Vec2{} }

// Unit is v scaled to length 1. The zero vector stays zero.
func (v Vec2) Unit() Vec2 {
	if l := v.Len(); l > 0 {
		return v.Scale(1 / l)
	}
	return Vec2{}
}

// IsFinite rejects NaN and infinite components, which would poison a shot.
func (v Vec2) IsFinite() bool {
	return !math.IsNaN(v.X+v.Y) && !math.IsInf(v.X, 0) && !math.IsInf(v.Y, 0)
}
