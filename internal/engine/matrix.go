package engine

import (
	"errors"
	"fmt"
	"math"

	"golang.org/x/image/math/f64"
)

// Matrix3 is a 3x3 matrix in homogeneous 2D coordinates, row-major:
//
//	| e11 e12 e13 |
//	| e21 e22 e23 |
//	| e31 e32 e33 |
//
// The top-left 2x2 block holds rotation/scale/shear, e13 and e23 hold
// translation, and the bottom row is (0, 0, 1) for affine transforms.
// A non-trivial bottom row makes the matrix projective; MultiplyVector
// handles that with a perspective divide.
//
// Matrix3 is a value type. Every operation returns a new matrix.
type Matrix3 [9]float64

// Element indices, so callers can write m[E13] instead of m[2].
const (
	E11 = iota
	E12
	E13
	E21
	E22
	E23
	E31
	E32
	E33
)

// ErrElementCount is returned by FromElements when the input is not exactly 9 values.
var ErrElementCount = errors.New("matrix needs exactly 9 elements")

// Identity returns the identity matrix.
func Identity() Matrix3 {
	return Matrix3{
		1, 0, 0,
		0, 1, 0,
		0, 0, 1,
	}
}

// NewMatrix3 builds a matrix from up to 9 row-major values.
// Positions not supplied keep their identity value; values past the ninth are ignored.
func NewMatrix3(elems ...float64) Matrix3 {
	m := Identity()
	copy(m[:], elems)
	return m
}

// FromElements builds a matrix from exactly 9 row-major values.
func FromElements(elems []float64) (Matrix3, error) {
	if len(elems) != 9 {
		return Identity(), fmt.Errorf("%w: got %d", ErrElementCount, len(elems))
	}
	var m Matrix3
	copy(m[:], elems)
	return m, nil
}

// Translate returns a translation matrix.
func Translate(tx, ty float64) Matrix3 {
	return Matrix3{
		1, 0, tx,
		0, 1, ty,
		0, 0, 1,
	}
}

// Scale returns a scale matrix.
func Scale(sx, sy float64) Matrix3 {
	return Matrix3{
		sx, 0, 0,
		0, sy, 0,
		0, 0, 1,
	}
}

// Shear returns a shear matrix.
func Shear(shx, shy float64) Matrix3 {
	return Matrix3{
		1, shx, 0,
		shy, 1, 0,
		0, 0, 1,
	}
}

// Rotate returns a counter-clockwise rotation matrix (angle in radians).
func Rotate(radians float64) Matrix3 {
	cos := math.Cos(radians)
	sin := math.Sin(radians)
	return Matrix3{
		cos, -sin, 0,
		sin, cos, 0,
		0, 0, 1,
	}
}

// RotateDegrees returns a rotation matrix (angle in degrees).
func RotateDegrees(degrees float64) Matrix3 {
	return Rotate(degreesToRadians(degrees))
}

func degreesToRadians(degrees float64) float64 {
	return degrees * math.Pi / 180.0
}

// Determinant returns the determinant by cofactor expansion along the first row.
// Zero means the matrix is singular.
func (m Matrix3) Determinant() float64 {
	return m[E11]*(m[E22]*m[E33]-m[E23]*m[E32]) -
		m[E12]*(m[E21]*m[E33]-m[E23]*m[E31]) +
		m[E13]*(m[E21]*m[E32]-m[E22]*m[E31])
}

// Transpose returns the transpose.
func (m Matrix3) Transpose() Matrix3 {
	return Matrix3{
		m[E11], m[E21], m[E31],
		m[E12], m[E22], m[E32],
		m[E13], m[E23], m[E33],
	}
}

// Inverse returns the adjugate divided by the determinant.
// The second result is false when the determinant is zero or not finite, or
// when the division overflows; the returned matrix is then the identity and
// must not be used.
func (m Matrix3) Inverse() (Matrix3, bool) {
	det := m.Determinant()
	if det == 0 || !isFinite(det) {
		return Identity(), false
	}

	inv := 1.0 / det
	r := Matrix3{
		(m[E22]*m[E33] - m[E23]*m[E32]) * inv,
		(m[E13]*m[E32] - m[E12]*m[E33]) * inv,
		(m[E12]*m[E23] - m[E13]*m[E22]) * inv,
		(m[E23]*m[E31] - m[E21]*m[E33]) * inv,
		(m[E11]*m[E33] - m[E13]*m[E31]) * inv,
		(m[E13]*m[E21] - m[E11]*m[E23]) * inv,
		(m[E21]*m[E32] - m[E22]*m[E31]) * inv,
		(m[E12]*m[E31] - m[E11]*m[E32]) * inv,
		(m[E11]*m[E22] - m[E12]*m[E21]) * inv,
	}
	if !r.Finite() {
		return Identity(), false
	}
	return r, true
}

// Finite reports whether every element and the determinant are real numbers.
// Anything else cannot be drawn or encoded as JSON.
func (m Matrix3) Finite() bool {
	for _, v := range m {
		if !isFinite(v) {
			return false
		}
	}
	return isFinite(m.Determinant())
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// Add returns a + b element-wise.
func Add(a, b Matrix3) Matrix3 {
	var r Matrix3
	for i := range r {
		r[i] = a[i] + b[i]
	}
	return r
}

// Subtract returns a - b element-wise.
func Subtract(a, b Matrix3) Matrix3 {
	var r Matrix3
	for i := range r {
		r[i] = a[i] - b[i]
	}
	return r
}

// Scale returns m with every element multiplied by k.
func (m Matrix3) Scale(k float64) Matrix3 {
	var r Matrix3
	for i := range r {
		r[i] = m[i] * k
	}
	return r
}

// Multiply returns m * other.
// Applied to a point, 'other' acts first and 'm' second, so the history
// composes a new step as step.Multiply(total).
func (m Matrix3) Multiply(other Matrix3) Matrix3 {
	var r Matrix3
	for row := 0; row < 3; row++ {
		for col := 0; col < 3; col++ {
			r[row*3+col] = m[row*3]*other[col] +
				m[row*3+1]*other[3+col] +
				m[row*3+2]*other[6+col]
		}
	}
	return r
}

// MultiplyVector transforms v as the homogeneous point (x, y, 1) and divides
// by the resulting w. A w of zero maps the point to infinity; the components
// come back as ±Inf or NaN.
func (m Matrix3) MultiplyVector(v Vector2D) Vector2D {
	x := m[E11]*v.X + m[E12]*v.Y + m[E13]
	y := m[E21]*v.X + m[E22]*v.Y + m[E23]
	w := m[E31]*v.X + m[E32]*v.Y + m[E33]
	return Vector2D{X: x / w, Y: y / w}
}

// TransformDirection applies only the linear 2x2 block, ignoring translation
// and the projective row.
func (m Matrix3) TransformDirection(v Vector2D) Vector2D {
	return Vector2D{
		X: m[E11]*v.X + m[E12]*v.Y,
		Y: m[E21]*v.X + m[E22]*v.Y,
	}
}

// IsAffine reports whether the bottom row is exactly (0, 0, 1).
func (m Matrix3) IsAffine() bool {
	return m[E31] == 0 && m[E32] == 0 && m[E33] == 1
}

// IsIdentity checks if this is the identity matrix (within epsilon).
func (m Matrix3) IsIdentity() bool {
	return m.ApproxEqual(Identity(), 1e-10)
}

// ApproxEqual reports whether every element of m is within eps of other.
func (m Matrix3) ApproxEqual(other Matrix3, eps float64) bool {
	for i := range m {
		if math.Abs(m[i]-other[i]) > eps {
			return false
		}
	}
	return true
}

// Mat3 converts to the x/image row-major 3x3 type.
func (m Matrix3) Mat3() f64.Mat3 {
	return f64.Mat3(m)
}

// FromMat3 converts from the x/image row-major 3x3 type.
func FromMat3(m f64.Mat3) Matrix3 {
	return Matrix3(m)
}

// Affine returns the top two rows as an f64.Aff3.
// The second result is false for projective matrices, which have no affine form.
func (m Matrix3) Affine() (f64.Aff3, bool) {
	if !m.IsAffine() {
		return f64.Aff3{}, false
	}
	return f64.Aff3{
		m[E11], m[E12], m[E13],
		m[E21], m[E22], m[E23],
	}, true
}

// CanvasTransform returns the Canvas2D setTransform tuple [a, b, c, d, e, f]
// for an affine matrix, where x' = a*x + c*y + e and y' = b*x + d*y + f.
func CanvasTransform(a f64.Aff3) []float64 {
	return []float64{a[0], a[3], a[1], a[4], a[2], a[5]}
}

// ToSlice returns the matrix as a float64 slice for JSON serialization.
func (m Matrix3) ToSlice() []float64 {
	return m[:]
}

// Rows returns the matrix as three rows, the layout a history panel prints.
func (m Matrix3) Rows() [3][3]float64 {
	return [3][3]float64{
		{m[E11], m[E12], m[E13]},
		{m[E21], m[E22], m[E23]},
		{m[E31], m[E32], m[E33]},
	}
}
