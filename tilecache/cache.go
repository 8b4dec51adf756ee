package tilecache

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gogpu/webpaint"
	"github.com/gogpu/webpaint/displaylist"
)

// Epoch is the display list generation a buffer was rendered for.
type Epoch = displaylist.Epoch

// ErrEpochRegressed is returned by Begin for an epoch older than the
// newest one the cache has seen.
var ErrEpochRegressed = errors.New("tilecache: epoch regressed")

// Outcome is the result of applying a rendered tile.
type Outcome uint8

const (
	// Applied means the buffer replaced the cached one.
	Applied Outcome = iota
	// Stale means the buffer was rendered for a superseded epoch or for a
	// tile outside the current layout. It was returned to the pool.
	Stale
	// Duplicate means the tile already holds a buffer of this epoch.
	// The new buffer was returned to the pool.
	Duplicate
)

// String returns the outcome name.
func (o Outcome) String() string {
	switch o {
	case Applied:
		return "applied"
	case Stale:
		return "stale"
	case Duplicate:
		return "duplicate"
	default:
		return fmt.Sprintf("Outcome(%d)", o)
	}
}

// Stats counts cache activity.
type Stats struct {
	Tiles      int
	Applied    uint64
	Stale      uint64
	Duplicates uint64
	Retained   uint64
	Lent       int
}

type entry struct {
	epoch Epoch
	buf   *Buffer

	// dirty lets a refresh at the same epoch replace the buffer once.
	dirty bool
}

// Cache maps tile coordinates to their latest buffer. The epoch stored
// for a coordinate never decreases.
//
// Thread safety: Begin, Apply, Lend, Release and Reset must be called
// from a single writer goroutine. Lookup, Len, Epoch and Stats may be
// called concurrently with the writer.
type Cache struct {
	pool *Pool

	mu      sync.RWMutex
	epoch   Epoch
	started bool
	current map[Coord]Epoch
	entries map[Coord]entry

	// lent counts compositor loans per buffer; retired marks lent
	// buffers that have left the cache and go to the pool on release.
	lent    map[*Buffer]int
	retired map[*Buffer]bool

	applied    uint64
	stale      uint64
	duplicates uint64
	retained   uint64
}

// New returns an empty cache drawing buffers from pool. A nil pool gets
// a private one.
func New(pool *Pool) *Cache {
	if pool == nil {
		pool = NewPool()
	}
	return &Cache{
		pool:    pool,
		current: make(map[Coord]Epoch),
		entries: make(map[Coord]entry),
		lent:    make(map[*Buffer]int),
		retired: make(map[*Buffer]bool),
	}
}

// Pool returns the buffer pool.
func (c *Cache) Pool() *Pool { return c.pool }

// Begin starts epoch over layout. Every coordinate of layout becomes
// current at epoch; those not in dirty keep their buffer and have its
// epoch bumped, and are returned as retained. Entries outside layout are
// dropped.
func (c *Cache) Begin(epoch Epoch, layout []Coord, dirty map[Coord]bool) ([]Coord, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.started && epoch < c.epoch {
		return nil, fmt.Errorf("%w: %d < %d", ErrEpochRegressed, epoch, c.epoch)
	}
	c.epoch, c.started = epoch, true

	inLayout := make(map[Coord]bool, len(layout))
	var retained []Coord
	for _, co := range layout {
		inLayout[co] = true
		c.current[co] = epoch
		e, ok := c.entries[co]
		if !ok {
			continue
		}
		if dirty[co] {
			e.dirty = true
			c.entries[co] = e
			continue
		}
		e.epoch = epoch
		c.entries[co] = e
		retained = append(retained, co)
		c.retained++
	}
	for co, e := range c.entries {
		if !inLayout[co] {
			c.retire(e.buf)
			delete(c.entries, co)
		}
	}
	for co := range c.current {
		if !inLayout[co] {
			delete(c.current, co)
		}
	}
	return retained, nil
}

// Apply offers buf, rendered for epoch, as the content of co. A tile
// marked dirty by Begin accepts one buffer of the epoch it already holds.
func (c *Cache) Apply(co Coord, epoch Epoch, buf *Buffer) Outcome {
	c.mu.Lock()
	defer c.mu.Unlock()

	cur, ok := c.current[co]
	if !ok || epoch < cur {
		c.stale++
		c.pool.Put(buf)
		webpaint.Logger().Debug("tilecache: dropped stale tile", "x", co.X, "y", co.Y, "epoch", epoch, "current", cur)
		return Stale
	}
	if e, ok := c.entries[co]; ok {
		if e.epoch > epoch || (e.epoch == epoch && !e.dirty) {
			c.duplicates++
			c.pool.Put(buf)
			return Duplicate
		}
		c.retire(e.buf)
	}
	c.entries[co] = entry{epoch: epoch, buf: buf}
	c.current[co] = epoch
	c.applied++
	return Applied
}

// retire hands buf back to the pool, or defers that until the
// compositor releases it.
func (c *Cache) retire(buf *Buffer) {
	if c.lent[buf] > 0 {
		c.retired[buf] = true
		return
	}
	c.pool.Put(buf)
}

// Lend returns the buffer of co for presentation. Each Lend must be
// matched by a Release.
func (c *Cache) Lend(co Coord) (*Buffer, Epoch, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[co]
	if !ok {
		return nil, 0, false
	}
	c.lent[e.buf]++
	return e.buf, e.epoch, true
}

// Release ends a loan made by Lend.
func (c *Cache) Release(buf *Buffer) {
	if buf == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	n, ok := c.lent[buf]
	if !ok {
		webpaint.Logger().Warn("tilecache: release of a buffer that is not lent")
		return
	}
	if n > 1 {
		c.lent[buf] = n - 1
		return
	}
	delete(c.lent, buf)
	if c.retired[buf] {
		delete(c.retired, buf)
		c.pool.Put(buf)
	}
}

// Reset drops every entry, as after a viewport change. The newest epoch
// is remembered so Begin still rejects regressions.
func (c *Cache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for co, e := range c.entries {
		c.retire(e.buf)
		delete(c.entries, co)
	}
	clear(c.current)
}

// Lookup returns the epoch and buffer cached for co. The buffer must be
// treated as read-only and may be recycled after the next write; use
// Lend to hold it.
func (c *Cache) Lookup(co Coord) (Epoch, *Buffer, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[co]
	return e.epoch, e.buf, ok
}

// Current returns the epoch co is expected at.
func (c *Cache) Current(co Coord) (Epoch, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.current[co]
	return e, ok
}

// Epoch returns the newest epoch passed to Begin.
func (c *Cache) Epoch() Epoch {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.epoch
}

// Len returns the number of cached tiles.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Stats returns a snapshot of the counters.
func (c *Cache) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	lent := 0
	for _, n := range c.lent {
		lent += n
	}
	return Stats{
		Tiles:      len(c.entries),
		Applied:    c.applied,
		Stale:      c.stale,
		Duplicates: c.duplicates,
		Retained:   c.retained,
		Lent:       lent,
	}
}
