package displaylist

import "image/color"

// Color is a straight-alpha 8-bit RGBA color.
type Color struct {
	R, G, B, A uint8
}

// Common colors.
var (
	Transparent = Color{}
	Black       = Color{A: 255}
	White       = Color{R: 255, G: 255, B: 255, A: 255}
)

// RGB returns an opaque color.
func RGB(r, g, b uint8) Color { return Color{R: r, G: g, B: b, A: 255} }

// RGBA implements color.Color with premultiplied components.
func (c Color) RGBA() (r, g, b, a uint32) {
	return c.Premul().RGBA()
}

// Premul returns the premultiplied representation used by tile buffers.
func (c Color) Premul() color.RGBA {
	a := uint32(c.A)
	return color.RGBA{
		R: uint8((uint32(c.R)*a + 127) / 255),
		G: uint8((uint32(c.G)*a + 127) / 255),
		B: uint8((uint32(c.B)*a + 127) / 255),
		A: c.A,
	}
}

// WithOpacity scales the alpha channel by opacity in [0, 1].
func (c Color) WithOpacity(opacity float32) Color {
	if opacity >= 1 {
		return c
	}
	if opacity <= 0 {
		c.A = 0
		return c
	}
	c.A = uint8(float32(c.A)*opacity + 0.5)
	return c
}

// Lerp interpolates between c and d by t in [0, 1] in straight-alpha space.
func (c Color) Lerp(d Color, t float32) Color {
	mix := func(a, b uint8) uint8 {
		return uint8(float32(a) + (float32(b)-float32(a))*t + 0.5)
	}
	return Color{R: mix(c.R, d.R), G: mix(c.G, d.G), B: mix(c.B, d.B), A: mix(c.A, d.A)}
}
