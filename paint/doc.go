// Package paint turns display lists into rasterized tiles.
//
// A Task owns a tile grid over the viewport, a tile cache and a pool of
// workers. Each display list handed to the Task is diffed against the
// previous one; only tiles touched by a change are rasterized again, the
// rest are reported to the compositor as retained.
//
// # Basic usage
//
//	task := paint.NewTask(compositor, fontcache.Default())
//	if err := task.Start(ctx); err != nil {
//		return err
//	}
//	defer task.Close()
//
//	summary, err := task.Paint(ctx, list, paint.Viewport{Rect: page})
//
// # Presentation
//
// The Compositor receives a TileUpdate per tile and then an EpochSummary
// marking the end of the epoch. With PresentStreaming, the default, tiles
// are forwarded as soon as they are rasterized and a compositor may show a
// partially updated frame. With PresentAtomic, every update of an epoch is
// held back and delivered in one burst just before the end marker, so a
// compositor that presents on each update always shows whole epochs.
//
// Buffers in updates are lent: the compositor calls TileUpdate.Release (or
// Task.Release) once it no longer reads them, typically when the next
// buffer for the same coordinate arrives.
//
// # Epochs
//
// Display lists carry increasing epochs. A list older than the newest one
// seen is rejected with ErrStaleDisplayList. Resubmitting the current epoch
// repaints only the explicitly invalidated tiles. Results from superseded
// epochs are dropped by the tile cache.
package paint
