package displaylist

import (
	"github.com/gogpu/webpaint/fonts"
)

// Kind identifies a paint item variant.
type Kind uint8

// Paint item kinds.
const (
	KindText Kind = iota
	KindRect
	KindBorder
	KindImage
	KindGradient
	KindLine
)

// String returns a human-readable name for the kind.
func (k Kind) String() string {
	switch k {
	case KindText:
		return "Text"
	case KindRect:
		return "Rect"
	case KindBorder:
		return "Border"
	case KindImage:
		return "Image"
	case KindGradient:
		return "Gradient"
	case KindLine:
		return "Line"
	default:
		return "Unknown"
	}
}

// ClipID indexes DisplayList.Clips. Zero is the unbounded clip.
type ClipID uint32

// TransformID indexes DisplayList.Transforms. Zero is the identity.
type TransformID uint32

// ContextID indexes DisplayList.Contexts. Zero is the root context.
type ContextID uint32

// Base holds the table references every item carries. The Builder fills it
// in on Append; values set by the caller are overwritten.
type Base struct {
	Clip      ClipID
	Transform TransformID
	Context   ContextID
}

// Item is one paint command. The set of implementations is closed: every
// variant has a method on Visitor, so adding a variant is a compile-time
// change in every painter, hasher and differ.
type Item interface {
	// Kind returns the variant tag.
	Kind() Kind

	// LocalBounds returns the painted extent in the item's own coordinate
	// space, before its transform and clip are applied.
	LocalBounds() Rect

	// Accept dispatches to the visitor method for the concrete variant.
	Accept(v Visitor)

	// Refs returns the table references assigned by the Builder.
	Refs() Base

	base() *Base
	clone() Item
}

// Visitor has one method per paint item variant.
type Visitor interface {
	VisitText(*TextItem)
	VisitRect(*RectItem)
	VisitBorder(*BorderItem)
	VisitImage(*ImageItem)
	VisitGradient(*GradientItem)
	VisitLine(*LineItem)
}

// TextItem paints a run of text starting at Origin (the left end of the
// baseline for horizontal text).
//
// Runs may carry text shaped ahead of time; when empty, the rasterizing
// worker shapes Text with its own font context.
type TextItem struct {
	Base
	Text      string
	Style     fonts.Style
	Script    fonts.Script
	Direction fonts.Direction
	Origin    Point
	Color     Color

	// Bounds is the text's ink box computed by layout. It drives tiling,
	// so it must be known before shaping happens.
	Bounds Rect

	Runs []*fonts.TextRun
}

// RectItem fills a rectangle with a solid color.
type RectItem struct {
	Base
	Rect  Rect
	Color Color
}

// Border sides in Widths and Colors order.
const (
	SideTop = iota
	SideRight
	SideBottom
	SideLeft
)

// BorderItem strokes the inside edges of Rect with per-side widths and colors.
type BorderItem struct {
	Base
	Rect   Rect
	Widths [4]float32
	Colors [4]Color
}

// ImageHandle names a pre-decoded image resolved by the painter's ImageSource.
type ImageHandle uint64

// ImageItem draws the image referenced by Handle scaled into Rect.
type ImageItem struct {
	Base
	Handle ImageHandle
	Rect   Rect
}

// GradientKind selects the gradient geometry.
type GradientKind uint8

const (
	// GradientLinear interpolates along the Start→End line.
	GradientLinear GradientKind = iota
	// GradientRadial interpolates from Start outward to Radius.
	GradientRadial
)

// ExtendMode defines how gradients extend beyond their defined bounds.
type ExtendMode uint8

const (
	// ExtendPad extends edge colors beyond bounds (default behavior).
	ExtendPad ExtendMode = iota
	// ExtendRepeat repeats the gradient pattern.
	ExtendRepeat
	// ExtendReflect mirrors the gradient pattern.
	ExtendReflect
)

// ColorStop represents a color at a specific position in a gradient.
type ColorStop struct {
	Offset float32
	Color  Color
}

// GradientItem fills Rect with a gradient.
type GradientItem struct {
	Base
	Rect     Rect
	Gradient GradientKind
	Start    Point
	End      Point
	Radius   float32
	Stops    []ColorStop
	Extend   ExtendMode
}

// LineItem strokes a straight segment with butt caps.
type LineItem struct {
	Base
	From  Point
	To    Point
	Width float32
	Color Color
}

// Kind implementations.

func (*TextItem) Kind() Kind     { return KindText }
func (*RectItem) Kind() Kind     { return KindRect }
func (*BorderItem) Kind() Kind   { return KindBorder }
func (*ImageItem) Kind() Kind    { return KindImage }
func (*GradientItem) Kind() Kind { return KindGradient }
func (*LineItem) Kind() Kind     { return KindLine }

// LocalBounds implementations.

func (it *TextItem) LocalBounds() Rect     { return it.Bounds }
func (it *RectItem) LocalBounds() Rect     { return it.Rect }
func (it *BorderItem) LocalBounds() Rect   { return it.Rect }
func (it *ImageItem) LocalBounds() Rect    { return it.Rect }
func (it *GradientItem) LocalBounds() Rect { return it.Rect }

func (it *LineItem) LocalBounds() Rect {
	half := it.Width / 2
	r := EmptyRect().UnionPoint(it.From.X, it.From.Y).UnionPoint(it.To.X, it.To.Y)
	return Rect{MinX: r.MinX - half, MinY: r.MinY - half, MaxX: r.MaxX + half, MaxY: r.MaxY + half}
}

// Accept implementations.

func (it *TextItem) Accept(v Visitor)     { v.VisitText(it) }
func (it *RectItem) Accept(v Visitor)     { v.VisitRect(it) }
func (it *BorderItem) Accept(v Visitor)   { v.VisitBorder(it) }
func (it *ImageItem) Accept(v Visitor)    { v.VisitImage(it) }
func (it *GradientItem) Accept(v Visitor) { v.VisitGradient(it) }
func (it *LineItem) Accept(v Visitor)     { v.VisitLine(it) }

// Refs returns the table references assigned by the Builder.
func (b *Base) Refs() Base { return *b }

func (b *Base) base() *Base { return b }

func (it *TextItem) clone() Item {
	c := *it
	c.Runs = append([]*fonts.TextRun(nil), it.Runs...)
	c.Style.Families = append([]string(nil), it.Style.Families...)
	return &c
}

func (it *RectItem) clone() Item   { c := *it; return &c }
func (it *BorderItem) clone() Item { c := *it; return &c }
func (it *ImageItem) clone() Item  { c := *it; return &c }
func (it *LineItem) clone() Item   { c := *it; return &c }

func (it *GradientItem) clone() Item {
	c := *it
	c.Stops = append([]ColorStop(nil), it.Stops...)
	return &c
}
