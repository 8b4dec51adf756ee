package raster

import (
	"image"
	"image/color"
	"image/draw"

	"golang.org/x/image/vector"

	dl "github.com/gogpu/webpaint/displaylist"
)

// coverage returns a cleared alpha mask covering r, reusing the painter's
// scratch buffer.
func (p *Painter) coverage(r image.Rectangle) *image.Alpha {
	n := r.Dx() * r.Dy()
	if p.scratch == nil || cap(p.scratch.Pix) < n {
		p.scratch = image.NewAlpha(image.Rect(0, 0, r.Dx(), r.Dy()))
	} else {
		p.scratch.Pix = p.scratch.Pix[:n]
		p.scratch.Stride = r.Dx()
		clear(p.scratch.Pix)
	}
	p.scratch.Rect = r
	return p.scratch
}

// rasterize accumulates the paths added by build into a mask over the
// current clip. build receives the rasterizer and the device offset to
// subtract from every point.
func (p *Painter) rasterize(build func(z *vector.Rasterizer, ox, oy float32)) *image.Alpha {
	r := p.clip
	p.z.Reset(r.Dx(), r.Dy())
	p.z.DrawOp = draw.Src
	build(&p.z, float32(r.Min.X), float32(r.Min.Y))

	mask := p.coverage(image.Rect(0, 0, r.Dx(), r.Dy()))
	p.z.Draw(mask, mask.Bounds(), image.Opaque, image.Point{})
	mask.Rect = r
	return mask
}

// fillPolygon fills a closed device-space polygon with c, clipped to the
// current clip.
func (p *Painter) fillPolygon(c color.RGBA, pts []dl.Point) {
	if len(pts) < 3 || c.A == 0 {
		return
	}
	mask := p.rasterize(func(z *vector.Rasterizer, ox, oy float32) {
		z.MoveTo(pts[0].X-ox, pts[0].Y-oy)
		for _, pt := range pts[1:] {
			z.LineTo(pt.X-ox, pt.Y-oy)
		}
		z.ClosePath()
	})
	p.drawMask(c, mask)
}

// drawMask composites c through mask (in device coordinates) over the
// current clip.
func (p *Painter) drawMask(c color.RGBA, mask *image.Alpha) {
	r := mask.Bounds().Intersect(p.clip)
	if r.Empty() {
		return
	}
	draw.DrawMask(p.dst, r, image.NewUniform(c), image.Point{}, mask, r.Min, draw.Over)
}

// blendOver composites premultiplied c over the pixel at (x, y).
func blendOver(dst *image.RGBA, x, y int, c color.RGBA) {
	if c.A == 0 {
		return
	}
	i := dst.PixOffset(x, y)
	px := dst.Pix[i : i+4 : i+4]
	if c.A == 255 {
		px[0], px[1], px[2], px[3] = c.R, c.G, c.B, 255
		return
	}
	inv := uint32(255 - c.A)
	px[0] = c.R + uint8((uint32(px[0])*inv+127)/255)
	px[1] = c.G + uint8((uint32(px[1])*inv+127)/255)
	px[2] = c.B + uint8((uint32(px[2])*inv+127)/255)
	px[3] = c.A + uint8((uint32(px[3])*inv+127)/255)
}
