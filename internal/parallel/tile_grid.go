package parallel

import "image"

// TileGrid partitions a width×height surface into square tiles of a fixed
// size. A grid is an immutable value; resizing builds a new grid.
type TileGrid struct {
	size   int
	width  int
	height int
	tilesX int
	tilesY int
}

// NewTileGrid returns the grid of a width×height surface. A non-positive
// size selects DefaultTileSize. An empty surface has no tiles.
func NewTileGrid(width, height, size int) TileGrid {
	if size <= 0 {
		size = DefaultTileSize
	}
	if width <= 0 || height <= 0 {
		return TileGrid{size: size}
	}
	return TileGrid{
		size:   size,
		width:  width,
		height: height,
		tilesX: (width + size - 1) / size,
		tilesY: (height + size - 1) / size,
	}
}

// TileSize returns the tile edge length.
func (g TileGrid) TileSize() int { return g.size }

// Width returns the surface width in pixels.
func (g TileGrid) Width() int { return g.width }

// Height returns the surface height in pixels.
func (g TileGrid) Height() int { return g.height }

// TilesX returns the number of tile columns.
func (g TileGrid) TilesX() int { return g.tilesX }

// TilesY returns the number of tile rows.
func (g TileGrid) TilesY() int { return g.tilesY }

// TileCount returns the number of tiles.
func (g TileGrid) TileCount() int { return g.tilesX * g.tilesY }

// Bounds returns the surface rectangle.
func (g TileGrid) Bounds() image.Rectangle { return image.Rect(0, 0, g.width, g.height) }

// TileAt returns the tile at tile coordinates (tx, ty).
func (g TileGrid) TileAt(tx, ty int) (Tile, bool) {
	if tx < 0 || tx >= g.tilesX || ty < 0 || ty >= g.tilesY {
		return Tile{}, false
	}
	r := image.Rect(tx*g.size, ty*g.size, (tx+1)*g.size, (ty+1)*g.size)
	return Tile{X: tx, Y: ty, Rect: r.Intersect(g.Bounds())}, true
}

// TileAtPixel returns the tile containing device pixel (px, py).
func (g TileGrid) TileAtPixel(px, py int) (Tile, bool) {
	if px < 0 || px >= g.width || py < 0 || py >= g.height {
		return Tile{}, false
	}
	return g.TileAt(px/g.size, py/g.size)
}

// TileRange returns the inclusive tile coordinate range covering r, or
// ok=false when r misses the surface.
func (g TileGrid) TileRange(r image.Rectangle) (tx0, ty0, tx1, ty1 int, ok bool) {
	r = r.Intersect(g.Bounds())
	if r.Empty() {
		return 0, 0, 0, 0, false
	}
	return r.Min.X / g.size, r.Min.Y / g.size, (r.Max.X - 1) / g.size, (r.Max.Y - 1) / g.size, true
}

// TilesInRect returns the tiles intersecting r in row-major order.
func (g TileGrid) TilesInRect(r image.Rectangle) []Tile {
	tx0, ty0, tx1, ty1, ok := g.TileRange(r)
	if !ok {
		return nil
	}
	result := make([]Tile, 0, (tx1-tx0+1)*(ty1-ty0+1))
	for ty := ty0; ty <= ty1; ty++ {
		for tx := tx0; tx <= tx1; tx++ {
			t, _ := g.TileAt(tx, ty)
			result = append(result, t)
		}
	}
	return result
}

// ForEach calls fn for every tile in row-major order.
func (g TileGrid) ForEach(fn func(Tile)) {
	for ty := range g.tilesY {
		for tx := range g.tilesX {
			t, _ := g.TileAt(tx, ty)
			fn(t)
		}
	}
}

// AllTiles returns every tile in row-major order.
func (g TileGrid) AllTiles() []Tile {
	result := make([]Tile, 0, g.TileCount())
	g.ForEach(func(t Tile) { result = append(result, t) })
	return result
}
