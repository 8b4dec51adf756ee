package parallel

import (
	"image"
	"math/bits"
	"sync/atomic"
)

// DirtyRegion is a lock-free bitmap of tiles awaiting repaint. Bit
// ty*tilesX+tx is tile (tx, ty); 64 tiles share a word. Every method is
// safe for concurrent use, so invalidations may arrive from any goroutine
// while the orchestrator drains the region.
type DirtyRegion struct {
	words  []atomic.Uint64
	tilesX int
	tilesY int
	size   int
}

// NewDirtyRegion returns a clean region over the tiles of g, or nil when
// g has no tiles.
func NewDirtyRegion(g TileGrid) *DirtyRegion {
	if g.TileCount() == 0 {
		return nil
	}
	return &DirtyRegion{
		words:  make([]atomic.Uint64, (g.TileCount()+63)/64),
		tilesX: g.TilesX(),
		tilesY: g.TilesY(),
		size:   g.TileSize(),
	}
}

// Mark flags tile (tx, ty). Out-of-range coordinates are ignored.
func (d *DirtyRegion) Mark(tx, ty int) {
	if tx < 0 || tx >= d.tilesX || ty < 0 || ty >= d.tilesY {
		return
	}
	idx := ty*d.tilesX + tx
	d.words[idx/64].Or(1 << (idx & 63))
}

// MarkRect flags every tile intersecting the device-pixel rectangle r.
func (d *DirtyRegion) MarkRect(r image.Rectangle) {
	if r.Empty() {
		return
	}
	tx1 := max(floorDiv(r.Min.X, d.size), 0)
	ty1 := max(floorDiv(r.Min.Y, d.size), 0)
	tx2 := min(floorDiv(r.Max.X-1, d.size), d.tilesX-1)
	ty2 := min(floorDiv(r.Max.Y-1, d.size), d.tilesY-1)
	for ty := ty1; ty <= ty2; ty++ {
		for tx := tx1; tx <= tx2; tx++ {
			d.Mark(tx, ty)
		}
	}
}

func floorDiv(a, b int) int {
	q := a / b
	if a%b != 0 && a < 0 {
		q--
	}
	return q
}

// MarkAll flags every tile.
func (d *DirtyRegion) MarkAll() {
	total := d.TotalTiles()
	full := total / 64
	for i := range full {
		d.words[i].Store(^uint64(0))
	}
	if rem := total % 64; rem > 0 {
		d.words[full].Store((uint64(1) << rem) - 1)
	}
}

// Clear resets every flag.
func (d *DirtyRegion) Clear() {
	for i := range d.words {
		d.words[i].Store(0)
	}
}

// IsDirty reports whether tile (tx, ty) is flagged.
func (d *DirtyRegion) IsDirty(tx, ty int) bool {
	if tx < 0 || tx >= d.tilesX || ty < 0 || ty >= d.tilesY {
		return false
	}
	idx := ty*d.tilesX + tx
	return d.words[idx/64].Load()&(1<<(idx&63)) != 0
}

// IsEmpty reports whether no tile is flagged.
func (d *DirtyRegion) IsEmpty() bool {
	for i := range d.words {
		if d.words[i].Load() != 0 {
			return false
		}
	}
	return true
}

// Count returns the number of flagged tiles.
func (d *DirtyRegion) Count() int {
	n := 0
	for i := range d.words {
		n += bits.OnesCount64(d.words[i].Load())
	}
	return n
}

// GetAndClear atomically takes the flagged tiles, in row-major order, and
// clears them. Tiles marked concurrently land either in the result or in
// the region, never in neither.
func (d *DirtyRegion) GetAndClear() []image.Point {
	var dirty []image.Point
	for wi := range d.words {
		d.collect(wi, d.words[wi].Swap(0), func(tx, ty int) {
			dirty = append(dirty, image.Pt(tx, ty))
		})
	}
	return dirty
}

// ForEachDirty calls fn for each flagged tile in row-major order without
// clearing.
func (d *DirtyRegion) ForEachDirty(fn func(tx, ty int)) {
	for wi := range d.words {
		d.collect(wi, d.words[wi].Load(), fn)
	}
}

func (d *DirtyRegion) collect(wi int, word uint64, fn func(tx, ty int)) {
	total := d.TotalTiles()
	for word != 0 {
		bit := bits.TrailingZeros64(word)
		idx := wi*64 + bit
		if idx >= total {
			return
		}
		fn(idx%d.tilesX, idx/d.tilesX)
		word &^= 1 << bit
	}
}

// TilesX returns the number of tile columns.
func (d *DirtyRegion) TilesX() int { return d.tilesX }

// TilesY returns the number of tile rows.
func (d *DirtyRegion) TilesY() int { return d.tilesY }

// TotalTiles returns the number of tiles tracked.
func (d *DirtyRegion) TotalTiles() int { return d.tilesX * d.tilesY }
