package displaylist

import (
	"image"
	"math"

	"github.com/chewxy/math32"
)

// Point is a position in display-list coordinates.
type Point struct {
	X, Y float32
}

// Pt is shorthand for Point{X: x, Y: y}.
func Pt(x, y float32) Point { return Point{X: x, Y: y} }

// Rect is an axis-aligned rectangle. Min is inclusive, Max exclusive.
type Rect struct {
	MinX, MinY float32
	MaxX, MaxY float32
}

// XYWH builds a rectangle from an origin and a size.
func XYWH(x, y, w, h float32) Rect {
	return Rect{MinX: x, MinY: y, MaxX: x + w, MaxY: y + h}
}

// EmptyRect returns an empty rectangle (inverted bounds for union operations).
func EmptyRect() Rect {
	return Rect{
		MinX: math.MaxFloat32,
		MinY: math.MaxFloat32,
		MaxX: -math.MaxFloat32,
		MaxY: -math.MaxFloat32,
	}
}

// InfiniteRect returns a rectangle covering the whole plane. It is the clip
// of content that has no clip pushed.
func InfiniteRect() Rect {
	return Rect{
		MinX: -math.MaxFloat32,
		MinY: -math.MaxFloat32,
		MaxX: math.MaxFloat32,
		MaxY: math.MaxFloat32,
	}
}

// IsEmpty returns true if the rectangle has no area.
func (r Rect) IsEmpty() bool {
	return r.MinX >= r.MaxX || r.MinY >= r.MaxY
}

// IsInfinite reports whether r is the unbounded clip.
func (r Rect) IsInfinite() bool {
	return r == InfiniteRect()
}

// Union returns the smallest rectangle containing both r and other.
// Empty operands are ignored.
func (r Rect) Union(other Rect) Rect {
	if other.IsEmpty() {
		return r
	}
	if r.IsEmpty() {
		return other
	}
	return Rect{
		MinX: min(r.MinX, other.MinX),
		MinY: min(r.MinY, other.MinY),
		MaxX: max(r.MaxX, other.MaxX),
		MaxY: max(r.MaxY, other.MaxY),
	}
}

// UnionPoint expands the rectangle to include the point.
func (r Rect) UnionPoint(x, y float32) Rect {
	return Rect{
		MinX: min(r.MinX, x),
		MinY: min(r.MinY, y),
		MaxX: max(r.MaxX, x),
		MaxY: max(r.MaxY, y),
	}
}

// Intersect returns the overlap of r and other. The result is empty when
// they do not overlap.
func (r Rect) Intersect(other Rect) Rect {
	out := Rect{
		MinX: max(r.MinX, other.MinX),
		MinY: max(r.MinY, other.MinY),
		MaxX: min(r.MaxX, other.MaxX),
		MaxY: min(r.MaxY, other.MaxY),
	}
	if out.IsEmpty() {
		return Rect{}
	}
	return out
}

// Overlaps reports whether r and other share any area.
func (r Rect) Overlaps(other Rect) bool {
	return r.MinX < other.MaxX && other.MinX < r.MaxX &&
		r.MinY < other.MaxY && other.MinY < r.MaxY
}

// Contains reports whether other lies entirely inside r.
// The empty rectangle is contained in every rectangle.
func (r Rect) Contains(other Rect) bool {
	if other.IsEmpty() {
		return true
	}
	return other.MinX >= r.MinX && other.MinY >= r.MinY &&
		other.MaxX <= r.MaxX && other.MaxY <= r.MaxY
}

// ContainsPoint reports whether p lies inside r.
func (r Rect) ContainsPoint(p Point) bool {
	return p.X >= r.MinX && p.X < r.MaxX && p.Y >= r.MinY && p.Y < r.MaxY
}

// Width returns the width of the rectangle.
func (r Rect) Width() float32 {
	if r.IsEmpty() {
		return 0
	}
	return r.MaxX - r.MinX
}

// Height returns the height of the rectangle.
func (r Rect) Height() float32 {
	if r.IsEmpty() {
		return 0
	}
	return r.MaxY - r.MinY
}

// Inset shrinks the rectangle by d on every side.
func (r Rect) Inset(d float32) Rect {
	return Rect{MinX: r.MinX + d, MinY: r.MinY + d, MaxX: r.MaxX - d, MaxY: r.MaxY - d}
}

// Pixels returns the integer pixel rectangle covering r (conservatively
// rounded outward).
func (r Rect) Pixels() image.Rectangle {
	if r.IsEmpty() {
		return image.Rectangle{}
	}
	const limit = 1 << 30
	clamp := func(v float32) int {
		return int(math32.Max(-limit, math32.Min(limit, v)))
	}
	return image.Rect(
		clamp(math32.Floor(r.MinX)),
		clamp(math32.Floor(r.MinY)),
		clamp(math32.Ceil(r.MaxX)),
		clamp(math32.Ceil(r.MaxY)),
	)
}

// RectFromImage converts an integer rectangle.
func RectFromImage(r image.Rectangle) Rect {
	return Rect{
		MinX: float32(r.Min.X),
		MinY: float32(r.Min.Y),
		MaxX: float32(r.Max.X),
		MaxY: float32(r.Max.Y),
	}
}

// Affine represents a 2D affine transformation matrix.
// The matrix is stored in row-major order as:
//
//	| A  B  C |
//	| D  E  F |
//
// Where a point (x, y) is transformed to:
//
//	x' = A*x + B*y + C
//	y' = D*x + E*y + F
type Affine struct {
	A, B, C float32
	D, E, F float32
}

// IdentityAffine returns the identity transformation.
func IdentityAffine() Affine {
	return Affine{A: 1, E: 1}
}

// TranslateAffine creates a translation transformation.
func TranslateAffine(x, y float32) Affine {
	return Affine{A: 1, C: x, E: 1, F: y}
}

// ScaleAffine creates a scaling transformation.
func ScaleAffine(x, y float32) Affine {
	return Affine{A: x, E: y}
}

// RotateAffine creates a rotation transformation (angle in radians).
func RotateAffine(angle float32) Affine {
	sin, cos := math32.Sincos(angle)
	return Affine{A: cos, B: -sin, D: sin, E: cos}
}

// Multiply returns a·b: b is applied first, then a.
func (a Affine) Multiply(b Affine) Affine {
	return Affine{
		A: a.A*b.A + a.B*b.D,
		B: a.A*b.B + a.B*b.E,
		C: a.A*b.C + a.B*b.F + a.C,
		D: a.D*b.A + a.E*b.D,
		E: a.D*b.B + a.E*b.E,
		F: a.D*b.C + a.E*b.F + a.F,
	}
}

// TransformPoint transforms a point by the affine matrix.
func (a Affine) TransformPoint(p Point) Point {
	return Point{X: a.A*p.X + a.B*p.Y + a.C, Y: a.D*p.X + a.E*p.Y + a.F}
}

// TransformRect returns the bounding box of r's four transformed corners.
// The infinite rectangle maps to itself.
func (a Affine) TransformRect(r Rect) Rect {
	if r.IsEmpty() || a.IsIdentity() || r.IsInfinite() {
		return r
	}
	if a.IsTranslation() {
		return Rect{MinX: r.MinX + a.C, MinY: r.MinY + a.F, MaxX: r.MaxX + a.C, MaxY: r.MaxY + a.F}
	}
	out := EmptyRect()
	for _, c := range [4]Point{
		{r.MinX, r.MinY}, {r.MaxX, r.MinY}, {r.MaxX, r.MaxY}, {r.MinX, r.MaxY},
	} {
		p := a.TransformPoint(c)
		out = out.UnionPoint(p.X, p.Y)
	}
	return out
}

// IsIdentity returns true if this is the identity transformation.
func (a Affine) IsIdentity() bool {
	return a == IdentityAffine()
}

// IsTranslation reports whether a only translates.
func (a Affine) IsTranslation() bool {
	return a.A == 1 && a.B == 0 && a.D == 0 && a.E == 1
}

// IsAxisAligned reports whether a maps axis-aligned rectangles to
// axis-aligned rectangles (no rotation or skew).
func (a Affine) IsAxisAligned() bool {
	return a.B == 0 && a.D == 0
}

// Determinant returns A*E - B*D.
func (a Affine) Determinant() float32 {
	return a.A*a.E - a.B*a.D
}

// ScaleFactor returns the geometric mean of the axis scales, used to size
// text under a transform.
func (a Affine) ScaleFactor() float32 {
	return math32.Sqrt(math32.Abs(a.Determinant()))
}

// Invert returns the inverse transformation. ok is false for singular
// matrices.
func (a Affine) Invert() (inv Affine, ok bool) {
	det := a.Determinant()
	if det == 0 {
		return Affine{}, false
	}
	id := 1 / det
	return Affine{
		A: a.E * id,
		B: -a.B * id,
		C: (a.B*a.F - a.E*a.C) * id,
		D: -a.D * id,
		E: a.A * id,
		F: (a.D*a.C - a.A*a.F) * id,
	}, true
}
