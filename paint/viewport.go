package paint

import (
	"image"

	"github.com/chewxy/math32"

	dl "github.com/gogpu/webpaint/displaylist"
)

// Viewport is the visible part of the page. Rect is in CSS pixels; its
// origin is the scroll offset.
type Viewport struct {
	Rect             dl.Rect
	DevicePixelRatio float32
}

// dpr returns the device pixel ratio, treating unset as 1.
func (v Viewport) dpr() float32 {
	if v.DevicePixelRatio <= 0 {
		return 1
	}
	return v.DevicePixelRatio
}

// DeviceSize returns the viewport size in device pixels, rounded up.
func (v Viewport) DeviceSize() (width, height int) {
	if v.Rect.IsEmpty() || v.Rect.IsInfinite() {
		return 0, 0
	}
	d := v.dpr()
	return int(math32.Ceil(v.Rect.Width() * d)), int(math32.Ceil(v.Rect.Height() * d))
}

// Bounds returns the device-pixel rectangle of the viewport.
func (v Viewport) Bounds() image.Rectangle {
	w, h := v.DeviceSize()
	return image.Rect(0, 0, w, h)
}

// Transform maps page coordinates to device pixels: the scroll offset is
// removed and the result scaled by the device pixel ratio.
func (v Viewport) Transform() dl.Affine {
	d := v.dpr()
	return dl.ScaleAffine(d, d).Multiply(dl.TranslateAffine(-v.Rect.MinX, -v.Rect.MinY))
}

// sameGrid reports whether two viewports need the same tiles.
func (v Viewport) sameGrid(o Viewport) bool {
	return v.Rect == o.Rect && v.dpr() == o.dpr()
}
