package raster

import (
	"errors"
	"fmt"
	"image"
	"image/color"

	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"

	dl "github.com/gogpu/webpaint/displaylist"
)

var errNoImageSource = errors.New("raster: no image source")

// VisitImage implements dl.Visitor. The image is scaled into Rect with
// bilinear filtering and drawn through the item transform.
func (p *Painter) VisitImage(it *dl.ImageItem) {
	if p.images == nil {
		p.placeholder(errNoImageSource)
		return
	}
	src, err := p.images.Image(it.Handle)
	if err != nil {
		p.placeholder(err)
		return
	}
	sr := src.Bounds()
	if sr.Empty() || it.Rect.IsEmpty() {
		p.placeholder(fmt.Errorf("raster: image %d is empty", it.Handle))
		return
	}

	// Source pixels -> item rect -> device.
	sx := it.Rect.Width() / float32(sr.Dx())
	sy := it.Rect.Height() / float32(sr.Dy())
	local := dl.Affine{
		A: sx, C: it.Rect.MinX - float32(sr.Min.X)*sx,
		E: sy, F: it.Rect.MinY - float32(sr.Min.Y)*sy,
	}
	m := p.cur.Transform.Multiply(local)
	s2d := f64.Aff3{
		float64(m.A), float64(m.B), float64(m.C),
		float64(m.D), float64(m.E), float64(m.F),
	}

	dst, ok := p.dst.SubImage(p.clip).(*image.RGBA)
	if !ok {
		return
	}
	var opts *draw.Options
	if p.cur.Opacity < 1 {
		opts = &draw.Options{DstMask: image.NewUniform(color.Alpha{A: uint8(p.cur.Opacity*255 + 0.5)})}
	}
	draw.ApproxBiLinear.Transform(dst, s2d, src, sr, draw.Over, opts)
}
