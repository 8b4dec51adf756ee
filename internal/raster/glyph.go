package raster

import (
	"image"
	"image/color"
	"image/draw"

	"github.com/chewxy/math32"
	"golang.org/x/image/vector"

	dl "github.com/gogpu/webpaint/displaylist"
	"github.com/gogpu/webpaint/fonts"
)

// SubpixelBuckets is the number of horizontal glyph origin positions
// rasterized per pixel.
const SubpixelBuckets = 4

// GlyphRasterizer turns a glyph outline into a coverage mask. subpixel is
// the fractional x position of the pen in [0, 1). A nil mask means the
// glyph paints nothing.
type GlyphRasterizer interface {
	RasterizeGlyph(o *fonts.Outline, subpixel float32) *fonts.GlyphMask
}

// OutlineRasterizer is the default GlyphRasterizer: it fills the outline
// with golang.org/x/image/vector.
type OutlineRasterizer struct{}

// RasterizeGlyph implements GlyphRasterizer.
func (OutlineRasterizer) RasterizeGlyph(o *fonts.Outline, subpixel float32) *fonts.GlyphMask {
	if o == nil || len(o.Segments) == 0 || o.Bounds.Empty() {
		return nil
	}
	minX := int(math32.Floor(o.Bounds.MinX + subpixel))
	minY := int(math32.Floor(o.Bounds.MinY))
	maxX := int(math32.Ceil(o.Bounds.MaxX + subpixel))
	maxY := int(math32.Ceil(o.Bounds.MaxY))
	w, h := maxX-minX, maxY-minY
	if w <= 0 || h <= 0 {
		return nil
	}

	z := vector.NewRasterizer(w, h)
	z.DrawOp = draw.Src
	appendOutline(z, o, func(pt fonts.OutlinePoint) (float32, float32) {
		return pt.X + subpixel - float32(minX), pt.Y - float32(minY)
	})
	mask := image.NewAlpha(image.Rect(0, 0, w, h))
	z.Draw(mask, mask.Bounds(), image.Opaque, image.Point{})
	return &fonts.GlyphMask{Mask: mask, Offset: image.Pt(minX, minY)}
}

// appendOutline adds the outline's contours to z, mapping every point
// through xf. Contours are closed explicitly.
func appendOutline(z *vector.Rasterizer, o *fonts.Outline, xf func(fonts.OutlinePoint) (float32, float32)) {
	open := false
	for _, seg := range o.Segments {
		switch seg.Op {
		case fonts.OutlineMoveTo:
			if open {
				z.ClosePath()
			}
			x, y := xf(seg.Points[0])
			z.MoveTo(x, y)
			open = true
		case fonts.OutlineLineTo:
			x, y := xf(seg.Points[0])
			z.LineTo(x, y)
		case fonts.OutlineQuadTo:
			cx, cy := xf(seg.Points[0])
			x, y := xf(seg.Points[1])
			z.QuadTo(cx, cy, x, y)
		case fonts.OutlineCubeTo:
			c1x, c1y := xf(seg.Points[0])
			c2x, c2y := xf(seg.Points[1])
			x, y := xf(seg.Points[2])
			z.CubeTo(c1x, c1y, c2x, c2y, x, y)
		}
	}
	if open {
		z.ClosePath()
	}
}

// =============================================================================
// Text
// =============================================================================

// VisitText implements dl.Visitor. Text is positioned from pre-shaped runs
// when the item carries them and shaped with the painter's font context
// otherwise. Glyphs are drawn from cached masks when the transform only
// scales uniformly and translates, and rasterized through the transform
// otherwise.
func (p *Painter) VisitText(it *dl.TextItem) {
	if it.Color.A == 0 || (it.Text == "" && len(it.Runs) == 0) {
		return
	}
	runs := it.Runs
	if len(runs) == 0 {
		script := it.Script
		if script == 0 {
			script = fonts.DetectScript(it.Text)
		}
		runs = p.fonts.ShapeText(p.ctx, it.Style, it.Text, script, it.Direction)
	}

	t := p.cur.Transform
	c := p.color(it.Color)
	uniform := t.IsAxisAligned() && t.A == t.E && t.A > 0
	scale := t.ScaleFactor()

	pen := it.Origin
	for _, run := range runs {
		if uniform {
			p.drawRunMasks(run, pen, t, scale, c)
		} else {
			p.drawRunTransformed(run, pen, t, c)
		}
		pen.X += run.Advance
	}
}

// fontFor returns the worker's font for run at size.
func (p *Painter) fontFor(run *fonts.TextRun, size float32) *fonts.Font {
	return p.fonts.FontForRunAt(p.ctx, run, size)
}

func (p *Painter) drawRunMasks(run *fonts.TextRun, pen dl.Point, t dl.Affine, scale float32, c color.RGBA) {
	f := p.fontFor(run, run.Size*scale)
	gs := f.Glyphs()
	origin := t.TransformPoint(pen)
	x := origin.X
	for _, g := range run.Glyphs {
		gx := x + g.XOffset*scale
		gy := origin.Y - g.YOffset*scale
		x += g.Advance * scale
		p.stats.Glyphs++
		if g.ID == fonts.NotDef {
			p.stats.MissingGlyphs++
			p.missingGlyph(gx, gy, g.Advance*scale, f.Ascent(), c)
			continue
		}
		ix := math32.Floor(gx)
		bucket := uint8((gx - ix) * SubpixelBuckets)
		m := gs.Mask(fonts.MaskKey{Glyph: g.ID, Bucket: bucket}, func(o *fonts.Outline) *fonts.GlyphMask {
			return p.glyphs.RasterizeGlyph(o, float32(bucket)/SubpixelBuckets)
		})
		if m == nil || m.Mask == nil {
			continue
		}
		at := image.Pt(int(ix), int(math32.Floor(gy+0.5))).Add(m.Offset)
		p.drawGlyphMask(c, m.Mask, at)
	}
}

func (p *Painter) drawGlyphMask(c color.RGBA, mask *image.Alpha, at image.Point) {
	r := mask.Bounds().Sub(mask.Bounds().Min).Add(at).Intersect(p.clip)
	if r.Empty() {
		return
	}
	mp := mask.Bounds().Min.Add(r.Min.Sub(at))
	draw.DrawMask(p.dst, r, image.NewUniform(c), image.Point{}, mask, mp, draw.Over)
}

// drawRunTransformed fills every glyph outline through t in one pass.
func (p *Painter) drawRunTransformed(run *fonts.TextRun, pen dl.Point, t dl.Affine, c color.RGBA) {
	f := p.fontFor(run, run.Size)
	gs := f.Glyphs()
	painted := false
	mask := p.rasterize(func(z *vector.Rasterizer, ox, oy float32) {
		x := pen.X
		for _, g := range run.Glyphs {
			gx, gy := x+g.XOffset, pen.Y-g.YOffset
			x += g.Advance
			p.stats.Glyphs++
			o := gs.Outline(g.ID)
			if g.ID == fonts.NotDef {
				p.stats.MissingGlyphs++
				o = missingGlyphOutline(g.Advance, f.Ascent())
			}
			if o == nil || len(o.Segments) == 0 {
				continue
			}
			painted = true
			appendOutline(z, o, func(pt fonts.OutlinePoint) (float32, float32) {
				d := t.TransformPoint(dl.Pt(gx+pt.X, gy+pt.Y))
				return d.X - ox, d.Y - oy
			})
		}
	})
	if painted {
		p.drawMask(c, mask)
	}
}

// missingGlyph draws the hollow box that stands for a .notdef glyph.
func (p *Painter) missingGlyph(x, baseline, advance, ascent float32, c color.RGBA) {
	o := missingGlyphOutline(advance, ascent)
	if o == nil {
		return
	}
	mask := p.rasterize(func(z *vector.Rasterizer, ox, oy float32) {
		appendOutline(z, o, func(pt fonts.OutlinePoint) (float32, float32) {
			return x + pt.X - ox, baseline + pt.Y - oy
		})
	})
	p.drawMask(c, mask)
}

// missingGlyphOutline is a box one stroke thick, inset from the advance,
// from the baseline up to the ascent. Narrow advances are widened so the
// box stays visible. The inner contour winds the other
// way so it cuts a hole.
func missingGlyphOutline(advance, ascent float32) *fonts.Outline {
	advance = math32.Max(advance, ascent*0.6)
	w := advance * 0.8
	h := ascent * 0.8
	if w < 3 || h < 3 {
		return nil
	}
	x0 := advance * 0.1
	stroke := math32.Max(1, math32.Floor(ascent/12))
	box := func(x0, y0, x1, y1 float32, cw bool) []fonts.OutlineSegment {
		pts := []fonts.OutlinePoint{{X: x0, Y: y0}, {X: x1, Y: y0}, {X: x1, Y: y1}, {X: x0, Y: y1}}
		if !cw {
			pts[1], pts[3] = pts[3], pts[1]
		}
		segs := []fonts.OutlineSegment{{Op: fonts.OutlineMoveTo, Points: [3]fonts.OutlinePoint{pts[0]}}}
		for _, pt := range pts[1:] {
			segs = append(segs, fonts.OutlineSegment{Op: fonts.OutlineLineTo, Points: [3]fonts.OutlinePoint{pt}})
		}
		return segs
	}
	o := &fonts.Outline{Bounds: fonts.GlyphBounds{MinX: x0, MinY: -h, MaxX: x0 + w, MaxY: 0}}
	o.Segments = append(box(x0, -h, x0+w, 0, true), box(x0+stroke, -h+stroke, x0+w-stroke, -stroke, false)...)
	return o
}
