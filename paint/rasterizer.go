package paint

import (
	"context"
	"image"

	dl "github.com/gogpu/webpaint/displaylist"
	"github.com/gogpu/webpaint/fonts"
	"github.com/gogpu/webpaint/internal/raster"
	"github.com/gogpu/webpaint/tilecache"
)

// RasterStats counts what a rasterizer painted.
type RasterStats = raster.Stats

// Rasterizer paints the items of one tile. Each worker owns one, so
// implementations need not be safe for concurrent use.
type Rasterizer interface {
	// Rasterize clears dst to background and paints items, already in
	// paint order and clipped to dst, over it.
	Rasterize(ctx context.Context, dst *image.RGBA, items []dl.FlatItem, background dl.Color) RasterStats

	// Close releases the rasterizer's resources when its worker exits.
	Close()
}

// RasterizerFactory builds the rasterizer of worker id. It is called again
// for the same id when a worker is replaced after a crash.
type RasterizerFactory func(id int) Rasterizer

// painterRasterizer is the default Rasterizer: a software painter with a
// font context of its own.
type painterRasterizer struct {
	*raster.Painter
}

func (p painterRasterizer) Rasterize(ctx context.Context, dst *image.RGBA, items []dl.FlatItem, background dl.Color) RasterStats {
	return p.Paint(ctx, dst, items, background)
}

func defaultFactory(resolver fonts.Resolver, images dl.ImageSource, fontOpts []fonts.ContextOption) RasterizerFactory {
	return func(int) Rasterizer {
		var opts []raster.Option
		if images != nil {
			opts = append(opts, raster.WithImages(images))
		}
		fc := fonts.NewContext(resolver, fontOpts...)
		return painterRasterizer{raster.NewPainter(fc, opts...)}
	}
}

// job asks a worker to rasterize one tile.
type job struct {
	id      uint64
	round   uint64
	coord   tilecache.Coord
	rect    image.Rectangle
	epoch   dl.Epoch
	items   []dl.FlatItem
	attempt int
}

// tileResult is what a worker hands back to the orchestrator.
type tileResult struct {
	buf   *tilecache.Buffer
	stats RasterStats
}

// tileWorker adapts a Rasterizer to the worker pool.
type tileWorker struct {
	ctx        context.Context
	r          Rasterizer
	pool       *tilecache.Pool
	background dl.Color
}

func (w *tileWorker) Do(j job) tileResult {
	buf := w.pool.Get(j.rect)
	if buf == nil {
		return tileResult{}
	}
	return tileResult{buf: buf, stats: w.r.Rasterize(w.ctx, buf.RGBA, j.items, w.background)}
}

func (w *tileWorker) Close() { w.r.Close() }
