package surface

import "math"

// Point represents a 2D position in content coordinates.
type Point struct {
	X, Y float64
}

// Pt is a convenience function to create a Point.
func Pt(x, y float64) Point {
	return Point{X: x, Y: y}
}

// Add returns the point displaced by a vector.
func (p Point) Add(v Vec2) Point {
	return Point{X: p.X + v.X, Y: p.Y + v.Y}
}

// Sub returns the displacement from q to p.
func (p Point) Sub(q Point) Vec2 {
	return Vec2{X: p.X - q.X, Y: p.Y - q.Y}
}

// Vec2 represents a 2D displacement vector.
// Unlike Point which represents a position, Vec2 represents a direction
// and magnitude.
type Vec2 struct {
	X, Y float64
}

// V2 is a convenience function to create a Vec2.
func V2(x, y float64) Vec2 {
	return Vec2{X: x, Y: y}
}

// Add returns the sum of two vectors.
func (v Vec2) Add(w Vec2) Vec2 {
	return Vec2{X: v.X + w.X, Y: v.Y + w.Y}
}

// Sub returns the difference of two vectors.
func (v Vec2) Sub(w Vec2) Vec2 {
	return Vec2{X: v.X - w.X, Y: v.Y - w.Y}
}

// Mul returns the vector scaled by a scalar.
func (v Vec2) Mul(s float64) Vec2 {
	return Vec2{X: v.X * s, Y: v.Y * s}
}

// Dot returns the dot product of two vectors.
func (v Vec2) Dot(w Vec2) float64 {
	return v.X*w.X + v.Y*w.Y
}

// Length returns the Euclidean length of the vector.
func (v Vec2) Length() float64 {
	return math.Hypot(v.X, v.Y)
}

// Normalize returns the unit vector in the same direction.
// Returns the zero vector unchanged.
func (v Vec2) Normalize() Vec2 {
	l := v.Length()
	if l == 0 {
		return Vec2{}
	}
	return Vec2{X: v.X / l, Y: v.Y / l}
}

// IsZero returns true if both components are exactly zero.
func (v Vec2) IsZero() bool {
	return v.X == 0 && v.Y == 0
}

// Box is an axis-aligned bounding box in content coordinates.
// X, Y is the top-left corner; W, H are non-negative extents.
//
// Box is an immutable value type: every operation returns a new Box.
// Equality is exact field-wise comparison (==).
type Box struct {
	X, Y, W, H float64
}

// B is a convenience function to create a Box.
func B(x, y, w, h float64) Box {
	return Box{X: x, Y: y, W: w, H: h}
}

// Valid reports whether the box is well formed: all fields finite and
// extents non-negative. Malformed boxes are rejected at this boundary;
// callers skip the offending element rather than failing the pass.
func (b Box) Valid() bool {
	return finite(b.X) && finite(b.Y) && finite(b.W) && finite(b.H) &&
		b.W >= 0 && b.H >= 0
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// Empty reports whether the box covers zero area.
func (b Box) Empty() bool {
	return b.W == 0 || b.H == 0
}

// Area returns the covered area (W * H).
func (b Box) Area() float64 {
	return b.W * b.H
}

// MaxX returns the right edge (X + W).
func (b Box) MaxX() float64 {
	return b.X + b.W
}

// MaxY returns the bottom edge (Y + H).
func (b Box) MaxY() float64 {
	return b.Y + b.H
}

// Center returns the center point of the box.
func (b Box) Center() Point {
	return Point{X: b.X + b.W/2, Y: b.Y + b.H/2}
}

// Intersects reports whether the two boxes overlap under closed-interval
// semantics: boxes that merely touch at an edge or corner intersect.
func (b Box) Intersects(o Box) bool {
	return b.X <= o.MaxX() && o.X <= b.MaxX() &&
		b.Y <= o.MaxY() && o.Y <= b.MaxY()
}

// Intersect returns the overlapping region of two boxes.
// Returns the zero Box if they do not intersect.
func (b Box) Intersect(o Box) Box {
	x1 := math.Max(b.X, o.X)
	y1 := math.Max(b.Y, o.Y)
	x2 := math.Min(b.MaxX(), o.MaxX())
	y2 := math.Min(b.MaxY(), o.MaxY())
	if x2 < x1 || y2 < y1 {
		return Box{}
	}
	return Box{X: x1, Y: y1, W: x2 - x1, H: y2 - y1}
}

// Union returns the smallest box covering both boxes.
// An empty box unions to the other operand so accumulating a union over a
// sequence does not anchor at the origin.
func (b Box) Union(o Box) Box {
	if b.Empty() {
		return o
	}
	if o.Empty() {
		return b
	}
	x1 := math.Min(b.X, o.X)
	y1 := math.Min(b.Y, o.Y)
	x2 := math.Max(b.MaxX(), o.MaxX())
	y2 := math.Max(b.MaxY(), o.MaxY())
	return Box{X: x1, Y: y1, W: x2 - x1, H: y2 - y1}
}

// Expand returns the box grown by margin on every side.
// A negative margin shrinks the box; extents are clamped at zero.
func (b Box) Expand(margin float64) Box {
	w := b.W + 2*margin
	h := b.H + 2*margin
	if w < 0 {
		w = 0
	}
	if h < 0 {
		h = 0
	}
	return Box{X: b.X - margin, Y: b.Y - margin, W: w, H: h}
}

// Contains reports whether o lies entirely within b (closed intervals).
func (b Box) Contains(o Box) bool {
	return o.X >= b.X && o.Y >= b.Y && o.MaxX() <= b.MaxX() && o.MaxY() <= b.MaxY()
}

// ContainsPoint reports whether p lies within b (closed intervals).
func (b Box) ContainsPoint(p Point) bool {
	return p.X >= b.X && p.X <= b.MaxX() && p.Y >= b.Y && p.Y <= b.MaxY()
}

// Translate returns the box displaced by v.
func (b Box) Translate(v Vec2) Box {
	return Box{X: b.X + v.X, Y: b.Y + v.Y, W: b.W, H: b.H}
}
