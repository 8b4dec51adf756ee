// Package tilecache holds rasterized tile buffers keyed by tile
// coordinate and tagged with the epoch that produced them.
//
// The paint task's orchestrator is the cache's only writer: workers hand
// finished buffers back over a channel and the orchestrator applies them,
// so the hot rasterization path never takes the cache lock. Readers such
// as Lookup, Len and Stats are safe from any goroutine.
package tilecache

import (
	"image"
	"sync"
)

// Coord is a tile coordinate within the viewport grid.
type Coord struct {
	X, Y int
}

// Buffer is the pixel storage of one tile: premultiplied RGBA whose
// bounds start at the tile's device-pixel origin. A buffer is written by
// one rasterizer and never mutated after it enters the cache.
type Buffer struct {
	*image.RGBA
	pool *Pool
}

// Pool reuses tile buffers by size. It is safe for concurrent use.
type Pool struct {
	// pools maps (width << 16) | height to a *sync.Pool.
	pools sync.Map
}

// NewPool returns an empty pool.
func NewPool() *Pool { return &Pool{} }

// Get returns a cleared buffer covering r.
func (p *Pool) Get(r image.Rectangle) *Buffer {
	if r.Empty() {
		return nil
	}
	sp := p.sizePool(r.Dx(), r.Dy())
	b := sp.Get().(*Buffer)
	clear(b.Pix)
	b.Rect = r
	return b
}

// Put returns b for reuse. Nil buffers and buffers of another pool are
// ignored.
func (p *Pool) Put(b *Buffer) {
	if b == nil || b.pool != p {
		return
	}
	key := poolKey(b.Rect.Dx(), b.Rect.Dy())
	if sp, ok := p.pools.Load(key); ok {
		sp.(*sync.Pool).Put(b)
	}
}

func (p *Pool) sizePool(w, h int) *sync.Pool {
	key := poolKey(w, h)
	if sp, ok := p.pools.Load(key); ok {
		return sp.(*sync.Pool)
	}
	sp := &sync.Pool{
		New: func() any {
			return &Buffer{RGBA: image.NewRGBA(image.Rect(0, 0, w, h)), pool: p}
		},
	}
	actual, _ := p.pools.LoadOrStore(key, sp)
	return actual.(*sync.Pool)
}

// poolKey packs a size into one key. Sizes are clamped to 16 bits.
func poolKey(w, h int) uint32 {
	w = min(w, 0xFFFF)
	h = min(h, 0xFFFF)
	return uint32(w)<<16 | uint32(h) //nolint:gosec // values are clamped above
}
