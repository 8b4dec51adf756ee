// Package parallel provides the tiling and worker primitives of the paint
// task: a tile grid over a device-pixel surface, an atomic dirty-tile
// bitmap and a supervised generic worker pool.
package parallel

import "image"

// DefaultTileSize is the default tile edge length in device pixels.
const DefaultTileSize = 256

// Tile is one cell of a TileGrid.
type Tile struct {
	// X and Y are tile coordinates within the grid.
	X, Y int

	// Rect is the tile's extent in device pixels. Edge tiles are clipped
	// to the surface.
	Rect image.Rectangle
}

// Width returns the tile width in pixels.
func (t Tile) Width() int { return t.Rect.Dx() }

// Height returns the tile height in pixels.
func (t Tile) Height() int { return t.Rect.Dy() }

// Contains reports whether the device pixel (px, py) lies in the tile.
func (t Tile) Contains(px, py int) bool {
	return image.Pt(px, py).In(t.Rect)
}

// PixelOffset returns the byte offset of tile-local pixel (px, py) in a
// tightly packed RGBA buffer, or -1 outside the tile.
func (t Tile) PixelOffset(px, py int) int {
	if px < 0 || px >= t.Width() || py < 0 || py >= t.Height() {
		return -1
	}
	return (py*t.Width() + px) * 4
}
