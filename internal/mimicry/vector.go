// internal/mimicry/vector.go
package mimicry

import "math"

// Vector2D represents a 2D point or vector in viewport coordinates.
type Vector2D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (v Vector2D) Add(other Vector2D) Vector2D {
	return Vector2D{X: v.X + other.X, Y: v.Y + other.Y}
}

func (v Vector2D) Sub(other Vector2D) Vector2D {
	return Vector2D{X: v.X - other.X, Y: v.Y - other.Y}
}

func (v Vector2D) Mul(scalar float64) Vector2D {
	return Vector2D{X: v.X * scalar, Y: v.Y * scalar}
}

// Mag returns the vector's magnitude.
func (v Vector2D) Mag() float64 {
	return math.Hypot(v.X, v.Y)
}

// Dist returns the Euclidean distance to another point.
func (v Vector2D) Dist(other Vector2D) float64 {
	return v.Sub(other).Mag()
}

// Normalize returns the unit vector in the same direction, or the zero
// vector when the magnitude is zero.
func (v Vector2D) Normalize() Vector2D {
	mag := v.Mag()
	if mag == 0 {
		return Vector2D{}
	}
	return Vector2D{X: v.X / mag, Y: v.Y / mag}
}

// Perpendicular returns the vector rotated 90 degrees counterclockwise.
func (v Vector2D) Perpendicular() Vector2D {
	return Vector2D{X: -v.Y, Y: v.X}
}
