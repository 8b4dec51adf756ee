// Package webpaint is the rendering back-end of a web layout engine: it
// turns display lists produced by layout into composited pixels.
//
// # Overview
//
// The module is organized into:
//   - displaylist: immutable display lists of stacking contexts, with
//     flattening into paint order and damage computation
//   - fonts: font templates, sized fonts, fallback groups and the
//     per-worker font context that caches shaped text runs
//   - fontcache: the shared font cache service that enumerates, loads and
//     deduplicates font data for every client
//   - tilecache: pooled tile buffers and the epoch-checked tile cache
//   - paint: the paint task that tiles the viewport, rasterizes dirty tiles
//     on a worker pool and forwards them to a compositor
//
// # Quick Start
//
//	svc := fontcache.New()
//	defer svc.Close()
//
//	task := paint.NewTask(paint.NewImageCompositor(), svc.NewClient())
//	if err := task.Start(ctx); err != nil {
//	    return err
//	}
//	defer task.Close()
//
//	summary, err := task.Paint(ctx, list, paint.Viewport{Rect: page})
//
// # Epochs
//
// Every display list carries an epoch assigned by a displaylist.Sequencer.
// The paint task rejects lists older than the one it already accepted, and
// the tile cache drops rasterized tiles whose epoch was superseded, so a
// compositor never shows content older than what it already has.
//
// # Coordinate System
//
// Display lists use page coordinates in CSS pixels:
//   - Origin (0,0) at the top-left of the page
//   - X increases right
//   - Y increases down
//
// The viewport's device pixel ratio maps them to device pixels.
//
// # Configuration and Logging
//
// [LoadConfig] reads a TOML file with [paint] and [fonts] tables. Logging goes
// through [SetLogger] and is silent by default.
package webpaint
