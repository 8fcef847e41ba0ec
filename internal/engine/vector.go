package engine

import "math"

// Vector2D is a 2D point or displacement.
// The engine treats it as a value; the *InPlace and Reverse/Normalize
// methods are the only mutating forms and exist for callers building
// vertex lists incrementally.
type Vector2D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Vec returns the vector (x, y).
func Vec(x, y float64) Vector2D {
	return Vector2D{X: x, Y: y}
}

// Magnitude returns the Euclidean length.
func (v Vector2D) Magnitude() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y)
}

// SquareMagnitude returns the squared length. Use it for comparisons.
func (v Vector2D) SquareMagnitude() float64 {
	return v.X*v.X + v.Y*v.Y
}

// Normalized returns v scaled to unit length.
// The zero vector has no direction: both components come back NaN.
// Callers that can see a zero vector must check Magnitude first.
func (v Vector2D) Normalized() Vector2D {
	m := v.Magnitude()
	return Vector2D{X: v.X / m, Y: v.Y / m}
}

// Normalize scales v to unit length in place. Same zero-vector caveat as Normalized.
func (v *Vector2D) Normalize() {
	*v = v.Normalized()
}

// Neg returns the vector pointing the opposite way.
func (v Vector2D) Neg() Vector2D {
	return Vector2D{X: -v.X, Y: -v.Y}
}

// Reverse negates both components in place.
func (v *Vector2D) Reverse() {
	v.X = -v.X
	v.Y = -v.Y
}

// AddInPlace adds w to v.
func (v *Vector2D) AddInPlace(w Vector2D) {
	v.X += w.X
	v.Y += w.Y
}

// SubInPlace subtracts w from v.
func (v *Vector2D) SubInPlace(w Vector2D) {
	v.X -= w.X
	v.Y -= w.Y
}

// Scale returns v multiplied by s.
func (v Vector2D) Scale(s float64) Vector2D {
	return Vector2D{X: v.X * s, Y: v.Y * s}
}

// ToArray returns the components as an ordered pair for the canvas side.
func (v Vector2D) ToArray() [2]float64 {
	return [2]float64{v.X, v.Y}
}

// AddVectors returns a + b.
func AddVectors(a, b Vector2D) Vector2D {
	return Vector2D{X: a.X + b.X, Y: a.Y + b.Y}
}

// SubVectors returns a - b.
func SubVectors(a, b Vector2D) Vector2D {
	return Vector2D{X: a.X - b.X, Y: a.Y - b.Y}
}

// Dot returns the dot product of a and b.
func Dot(a, b Vector2D) float64 {
	return a.X*b.X + a.Y*b.Y
}
