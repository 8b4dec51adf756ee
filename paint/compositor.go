package paint

import (
	"fmt"
	"image"
	"image/draw"
	"sync"
	"time"

	dl "github.com/gogpu/webpaint/displaylist"
	"github.com/gogpu/webpaint/tilecache"
)

// TileUpdate reports the content of one tile for an epoch.
type TileUpdate struct {
	Coord tilecache.Coord

	// Rect is the tile's device-pixel rectangle within Frame.
	Rect image.Rectangle

	// Frame is the device-pixel bounds of the whole viewport.
	Frame image.Rectangle

	Epoch dl.Epoch

	// Buffer holds the new pixels. It is nil when Retained is set: the
	// buffer the compositor already holds for Coord is still current.
	Buffer *tilecache.Buffer

	Retained bool

	// Placeholder is set when the tile could not be rasterized and shows
	// a placeholder fill instead.
	Placeholder bool

	release func(*tilecache.Buffer)
}

// Release returns the update's buffer to the task. It does nothing for
// retained updates. Call it once per update.
func (u TileUpdate) Release() {
	if u.Buffer != nil && u.release != nil {
		u.release(u.Buffer)
	}
}

// EpochSummary marks the end of an epoch.
type EpochSummary struct {
	Epoch dl.Epoch
	Frame image.Rectangle

	// Tiles is the number of tiles in the grid; Rasterized + Retained +
	// Placeholders equals Tiles for a completed epoch.
	Tiles        int
	Rasterized   int
	Retained     int
	Placeholders int
	Resubmits    int

	// Raster aggregates the per-tile rasterizer statistics.
	Raster RasterStats

	// Superseded is set when a newer display list arrived before every
	// tile of this epoch was rasterized.
	Superseded bool

	Elapsed time.Duration
}

// String returns a one-line description for logs.
func (s EpochSummary) String() string {
	return fmt.Sprintf("epoch %d: %d tiles (%d rasterized, %d retained, %d placeholders) in %s",
		s.Epoch, s.Tiles, s.Rasterized, s.Retained, s.Placeholders, s.Elapsed)
}

// Compositor receives the output of a Task. Both methods are called from
// the task's orchestrator goroutine, so a slow compositor delays painting.
// PresentTile is called once per tile of an epoch (in no particular order
// under PresentStreaming, all together under PresentAtomic) and EndEpoch
// after the last one.
//
// A compositor owns the buffers it receives until it calls
// TileUpdate.Release.
type Compositor interface {
	PresentTile(u TileUpdate)
	EndEpoch(s EpochSummary)
}

// MessageKind distinguishes the messages of a ChannelCompositor.
type MessageKind uint8

const (
	MessageTile MessageKind = iota
	MessageEndEpoch
)

// Message is one event of a ChannelCompositor stream.
type Message struct {
	Kind    MessageKind
	Tile    TileUpdate
	Summary EpochSummary
}

// ChannelCompositor streams updates over C. Sends block, so the receiver
// must keep draining C while the task runs.
type ChannelCompositor struct {
	C chan Message
}

// NewChannelCompositor returns a compositor whose channel holds buffer
// messages.
func NewChannelCompositor(buffer int) *ChannelCompositor {
	return &ChannelCompositor{C: make(chan Message, max(buffer, 0))}
}

// PresentTile sends u on C. The receiver owns u and must Release it.
func (c *ChannelCompositor) PresentTile(u TileUpdate) {
	c.C <- Message{Kind: MessageTile, Tile: u}
}

// EndEpoch sends s on C after the epoch's last tile.
func (c *ChannelCompositor) EndEpoch(s EpochSummary) {
	c.C <- Message{Kind: MessageEndEpoch, Summary: s}
}

// ImageCompositor assembles tiles into a single frame. It copies every
// buffer it receives and releases it at once.
type ImageCompositor struct {
	mu     sync.Mutex
	frame  *image.RGBA
	last   EpochSummary
	epochs int
}

// NewImageCompositor returns an empty ImageCompositor.
func NewImageCompositor() *ImageCompositor {
	return &ImageCompositor{}
}

// PresentTile copies u into the frame and releases its buffer. A change of
// frame bounds starts a fresh frame.
func (c *ImageCompositor) PresentTile(u TileUpdate) {
	defer u.Release()
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.frame == nil || c.frame.Rect != u.Frame {
		c.frame = image.NewRGBA(u.Frame)
	}
	if u.Buffer != nil {
		draw.Draw(c.frame, u.Rect, u.Buffer.RGBA, u.Rect.Min, draw.Src)
	}
}

// EndEpoch records s as the last summary.
func (c *ImageCompositor) EndEpoch(s EpochSummary) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.last = s
	c.epochs++
}

// Frame returns a copy of the assembled frame, or nil before any tile
// arrived.
func (c *ImageCompositor) Frame() *image.RGBA {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.frame == nil {
		return nil
	}
	out := image.NewRGBA(c.frame.Rect)
	copy(out.Pix, c.frame.Pix)
	return out
}

// Last returns the most recent end-of-epoch summary and how many epochs
// have ended.
func (c *ImageCompositor) Last() (EpochSummary, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last, c.epochs
}
