// Package raster paints display-list items into tile buffers on the CPU.
//
// A Painter belongs to one paint worker. It owns the worker's font
// context, so text shapes and glyph masks are cached per worker and never
// shared across goroutines.
package raster

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"github.com/chewxy/math32"
	"golang.org/x/image/vector"

	"github.com/gogpu/webpaint"
	dl "github.com/gogpu/webpaint/displaylist"
	"github.com/gogpu/webpaint/fonts"
)

// Stats counts what a paint produced.
type Stats struct {
	Items         int
	Glyphs        int
	MissingGlyphs int
	Placeholders  int
}

// Add accumulates o into s.
func (s *Stats) Add(o Stats) {
	s.Items += o.Items
	s.Glyphs += o.Glyphs
	s.MissingGlyphs += o.MissingGlyphs
	s.Placeholders += o.Placeholders
}

// Placeholder colors painted for items that failed to render.
var (
	PlaceholderFill    = dl.RGB(0xC0, 0xC0, 0xC0)
	PlaceholderOutline = dl.RGB(0x80, 0x80, 0x80)
)

// Option configures a Painter.
type Option func(*Painter)

// WithImages sets the source of ImageItem pixels.
func WithImages(src dl.ImageSource) Option {
	return func(p *Painter) { p.images = src }
}

// WithGlyphRasterizer replaces the glyph coverage capability.
func WithGlyphRasterizer(g GlyphRasterizer) Option {
	return func(p *Painter) { p.glyphs = g }
}

// Painter rasterizes flattened items. It implements dl.Visitor and is not
// safe for concurrent use.
type Painter struct {
	fonts  *fonts.Context
	images dl.ImageSource
	glyphs GlyphRasterizer

	z       vector.Rasterizer
	scratch *image.Alpha

	// State of the paint in progress.
	ctx   context.Context
	dst   *image.RGBA
	cur   *dl.FlatItem
	clip  image.Rectangle
	stats Stats
}

var _ dl.Visitor = (*Painter)(nil)

// NewPainter returns a painter drawing text through fc. The painter takes
// ownership of fc and closes it in Close.
func NewPainter(fc *fonts.Context, opts ...Option) *Painter {
	p := &Painter{fonts: fc, glyphs: OutlineRasterizer{}}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Fonts returns the painter's font context.
func (p *Painter) Fonts() *fonts.Context { return p.fonts }

// Close releases the font context.
func (p *Painter) Close() {
	if p.fonts != nil {
		p.fonts.Close()
	}
}

// Paint clears dst to background and draws items over it in order. Each
// item is clipped to its own clip and to dst's bounds. An item that fails
// is replaced by a placeholder; Paint itself never fails.
func (p *Painter) Paint(ctx context.Context, dst *image.RGBA, items []dl.FlatItem, background dl.Color) Stats {
	p.ctx, p.dst, p.stats = ctx, dst, Stats{}
	defer func() { p.ctx, p.dst, p.cur = nil, nil, nil }()

	if background.A == 0 {
		clear(dst.Pix)
	} else {
		draw.Draw(dst, dst.Bounds(), image.NewUniform(background.Premul()), image.Point{}, draw.Src)
	}
	for i := range items {
		p.paintItem(&items[i])
	}
	return p.stats
}

func (p *Painter) paintItem(fi *dl.FlatItem) {
	p.cur = fi
	p.clip = clipPixels(fi.Clip, p.dst.Bounds()).Intersect(fi.Bounds.Pixels())
	if p.clip.Empty() || fi.Opacity <= 0 {
		return
	}
	p.stats.Items++
	defer func() {
		if r := recover(); r != nil {
			p.placeholder(fmt.Errorf("raster: %s item panicked: %v", fi.Item.Kind(), r))
		}
	}()
	fi.Item.Accept(p)
}

// placeholder paints a grey box with an outline over the current item.
func (p *Painter) placeholder(err error) {
	p.stats.Placeholders++
	webpaint.Logger().Warn("raster: painting placeholder", "kind", p.cur.Item.Kind().String(), "err", err)
	r := p.clip
	draw.Draw(p.dst, r, image.NewUniform(PlaceholderFill.Premul()), image.Point{}, draw.Over)
	edge := image.NewUniform(PlaceholderOutline.Premul())
	b := p.cur.Bounds.Pixels()
	for _, side := range []image.Rectangle{
		image.Rect(b.Min.X, b.Min.Y, b.Max.X, b.Min.Y+1),
		image.Rect(b.Min.X, b.Max.Y-1, b.Max.X, b.Max.Y),
		image.Rect(b.Min.X, b.Min.Y, b.Min.X+1, b.Max.Y),
		image.Rect(b.Max.X-1, b.Min.Y, b.Max.X, b.Max.Y),
	} {
		draw.Draw(p.dst, side.Intersect(r), edge, image.Point{}, draw.Over)
	}
}

// color returns c with the current item's opacity applied, premultiplied.
func (p *Painter) color(c dl.Color) color.RGBA {
	return c.WithOpacity(p.cur.Opacity).Premul()
}

// clipPixels rounds a device-space clip inward to whole pixels, so no
// painted pixel lies outside it, and bounds it by limit.
func clipPixels(clip dl.Rect, limit image.Rectangle) image.Rectangle {
	if clip.IsEmpty() {
		return image.Rectangle{}
	}
	if clip.IsInfinite() {
		return limit
	}
	clip = clip.Intersect(dl.RectFromImage(limit))
	if clip.IsEmpty() {
		return image.Rectangle{}
	}
	r := image.Rect(
		int(math32.Ceil(clip.MinX)), int(math32.Ceil(clip.MinY)),
		int(math32.Floor(clip.MaxX)), int(math32.Floor(clip.MaxY)),
	)
	return r.Intersect(limit)
}

// =============================================================================
// Solid shapes
// =============================================================================

// VisitRect implements dl.Visitor.
func (p *Painter) VisitRect(it *dl.RectItem) {
	if it.Color.A == 0 {
		return
	}
	t := p.cur.Transform
	if t.IsAxisAligned() {
		r := t.TransformRect(it.Rect)
		if isPixelAligned(r) {
			draw.Draw(p.dst, r.Pixels().Intersect(p.clip), image.NewUniform(p.color(it.Color)), image.Point{}, draw.Over)
			return
		}
	}
	p.fillPolygon(p.color(it.Color), corners(t, it.Rect))
}

// VisitBorder implements dl.Visitor. Each side is a trapezoid between the
// outer edge and the inner edge inset by the side widths.
func (p *Painter) VisitBorder(it *dl.BorderItem) {
	o := it.Rect
	w := it.Widths
	in := dl.Rect{MinX: o.MinX + w[dl.SideLeft], MinY: o.MinY + w[dl.SideTop], MaxX: o.MaxX - w[dl.SideRight], MaxY: o.MaxY - w[dl.SideBottom]}
	if in.MinX > in.MaxX {
		in.MinX, in.MaxX = (in.MinX+in.MaxX)/2, (in.MinX+in.MaxX)/2
	}
	if in.MinY > in.MaxY {
		in.MinY, in.MaxY = (in.MinY+in.MaxY)/2, (in.MinY+in.MaxY)/2
	}
	sides := [4][4]dl.Point{
		dl.SideTop:    {dl.Pt(o.MinX, o.MinY), dl.Pt(o.MaxX, o.MinY), dl.Pt(in.MaxX, in.MinY), dl.Pt(in.MinX, in.MinY)},
		dl.SideRight:  {dl.Pt(o.MaxX, o.MinY), dl.Pt(o.MaxX, o.MaxY), dl.Pt(in.MaxX, in.MaxY), dl.Pt(in.MaxX, in.MinY)},
		dl.SideBottom: {dl.Pt(o.MaxX, o.MaxY), dl.Pt(o.MinX, o.MaxY), dl.Pt(in.MinX, in.MaxY), dl.Pt(in.MaxX, in.MaxY)},
		dl.SideLeft:   {dl.Pt(o.MinX, o.MaxY), dl.Pt(o.MinX, o.MinY), dl.Pt(in.MinX, in.MinY), dl.Pt(in.MinX, in.MaxY)},
	}
	t := p.cur.Transform
	for side, quad := range sides {
		if w[side] <= 0 || it.Colors[side].A == 0 {
			continue
		}
		pts := make([]dl.Point, len(quad))
		for i, q := range quad {
			pts[i] = t.TransformPoint(q)
		}
		p.fillPolygon(p.color(it.Colors[side]), pts)
	}
}

// VisitLine implements dl.Visitor.
func (p *Painter) VisitLine(it *dl.LineItem) {
	if it.Width <= 0 || it.Color.A == 0 {
		return
	}
	dx, dy := it.To.X-it.From.X, it.To.Y-it.From.Y
	n := math32.Sqrt(dx*dx + dy*dy)
	if n == 0 {
		return
	}
	// Half-width normal.
	nx, ny := -dy/n*it.Width/2, dx/n*it.Width/2
	t := p.cur.Transform
	p.fillPolygon(p.color(it.Color), []dl.Point{
		t.TransformPoint(dl.Pt(it.From.X+nx, it.From.Y+ny)),
		t.TransformPoint(dl.Pt(it.To.X+nx, it.To.Y+ny)),
		t.TransformPoint(dl.Pt(it.To.X-nx, it.To.Y-ny)),
		t.TransformPoint(dl.Pt(it.From.X-nx, it.From.Y-ny)),
	})
}

func corners(t dl.Affine, r dl.Rect) []dl.Point {
	return []dl.Point{
		t.TransformPoint(dl.Pt(r.MinX, r.MinY)),
		t.TransformPoint(dl.Pt(r.MaxX, r.MinY)),
		t.TransformPoint(dl.Pt(r.MaxX, r.MaxY)),
		t.TransformPoint(dl.Pt(r.MinX, r.MaxY)),
	}
}

func isPixelAligned(r dl.Rect) bool {
	return r.MinX == math32.Floor(r.MinX) && r.MinY == math32.Floor(r.MinY) &&
		r.MaxX == math32.Floor(r.MaxX) && r.MaxY == math32.Floor(r.MaxY)
}
