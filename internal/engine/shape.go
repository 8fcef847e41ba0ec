package engine

import "math"

// Polygon is a closed list of vertices in canvas units.
type Polygon []Vector2D

// Rect represents an axis-aligned bounding box.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// PolygonFromGrid converts vertices given in grid cells to canvas units.
func PolygonFromGrid(vertices [][2]float64, gridUnit float64) Polygon {
	p := make(Polygon, len(vertices))
	for i, v := range vertices {
		p[i] = Vec(v[0], v[1]).Scale(gridUnit)
	}
	return p
}

// Transform maps every vertex through m, including the perspective divide.
func (p Polygon) Transform(m Matrix3) Polygon {
	out := make(Polygon, len(p))
	for i, v := range p {
		out[i] = m.MultiplyVector(v)
	}
	return out
}

// Finite reports whether every vertex is a real point. A projective
// transform can send vertices to infinity.
func (p Polygon) Finite() bool {
	for _, v := range p {
		if math.IsNaN(v.X) || math.IsNaN(v.Y) || math.IsInf(v.X, 0) || math.IsInf(v.Y, 0) {
			return false
		}
	}
	return true
}

// Centroid returns the vertex average.
func (p Polygon) Centroid() Vector2D {
	if len(p) == 0 {
		return Vector2D{}
	}
	var sum Vector2D
	for _, v := range p {
		sum.AddInPlace(v)
	}
	return sum.Scale(1 / float64(len(p)))
}

// Bounds returns the axis-aligned bounding box of the vertices.
func (p Polygon) Bounds() Rect {
	if len(p) == 0 {
		return Rect{}
	}
	minX, minY := p[0].X, p[0].Y
	maxX, maxY := minX, minY
	for _, v := range p[1:] {
		minX = min(minX, v.X)
		minY = min(minY, v.Y)
		maxX = max(maxX, v.X)
		maxY = max(maxY, v.Y)
	}
	return Rect{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
}

// Contains reports whether pt is inside the polygon (even-odd rule).
func (p Polygon) Contains(pt Vector2D) bool {
	inside := false
	for i, j := 0, len(p)-1; i < len(p); j, i = i, i+1 {
		a, b := p[i], p[j]
		if (a.Y > pt.Y) != (b.Y > pt.Y) {
			x := a.X + (pt.Y-a.Y)*(b.X-a.X)/(b.Y-a.Y)
			if pt.X < x {
				inside = !inside
			}
		}
	}
	return inside
}

// Contains checks if a point is inside the rect.
func (r Rect) Contains(x, y float64) bool {
	return x >= r.X && x <= r.X+r.Width && y >= r.Y && y <= r.Y+r.Height
}

// IsEmpty checks if the rect has zero or negative area.
func (r Rect) IsEmpty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Union returns the smallest rect containing both rects.
func (r Rect) Union(other Rect) Rect {
	if r.IsEmpty() {
		return other
	}
	if other.IsEmpty() {
		return r
	}

	minX := min(r.X, other.X)
	minY := min(r.Y, other.Y)
	maxX := max(r.X+r.Width, other.X+other.Width)
	maxY := max(r.Y+r.Height, other.Y+other.Height)

	return Rect{
		X:      minX,
		Y:      minY,
		Width:  maxX - minX,
		Height: maxY - minY,
	}
}
