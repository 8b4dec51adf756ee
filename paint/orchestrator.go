package paint

import (
	"errors"
	"fmt"
	"image"
	"image/draw"
	"time"

	"github.com/gogpu/webpaint"
	dl "github.com/gogpu/webpaint/displaylist"
	"github.com/gogpu/webpaint/internal/parallel"
	"github.com/gogpu/webpaint/internal/raster"
	"github.com/gogpu/webpaint/tilecache"
)

var errNilDisplayList = errors.New("paint: nil display list")

// pendingJob is a tile of the current round still waiting for a result.
type pendingJob struct {
	job      job
	deadline time.Time
}

// round is one pass over the grid for an epoch. Refreshes of the same
// epoch get a round of their own.
type round struct {
	id      uint64
	epoch   dl.Epoch
	start   time.Time
	summary EpochSummary
	waiters []chan paintReply

	// held collects updates under PresentAtomic until the round ends.
	held []TileUpdate
	done bool
}

// orchestrator is the single writer of the tile cache. Its methods run on
// the task's loop goroutine only.
type orchestrator struct {
	t *Task

	grid     parallel.TileGrid
	viewport Viewport
	hasView  bool
	prevFlat []dl.FlatItem

	cur     *round
	rounds  uint64
	jobIDs  uint64
	pending map[tilecache.Coord]*pendingJob
	backlog []tilecache.Coord

	// unsent holds tiles whose buffers the compositor has not seen yet
	// because their atomic round was superseded.
	unsent map[tilecache.Coord]bool
}

func newOrchestrator(t *Task) orchestrator {
	return orchestrator{
		t:       t,
		pending: make(map[tilecache.Coord]*pendingJob),
		unsent:  make(map[tilecache.Coord]bool),
	}
}

func (o *orchestrator) nextJobID() uint64 {
	o.jobIDs++
	return o.jobIDs
}

// begin starts a round for s: it works out which tiles are dirty, tells
// the compositor about the retained ones and queues jobs for the rest.
func (o *orchestrator) begin(s submission) error {
	t := o.t
	list := s.list
	if list == nil {
		return errNilDisplayList
	}
	w, h := s.vp.DeviceSize()
	if w <= 0 || h <= 0 {
		return ErrEmptyViewport
	}
	cur, started := t.CurrentEpoch()
	if started && list.Epoch < cur {
		t.stats.staleLists.Add(1)
		webpaint.Logger().Debug("paint: dropped stale display list", "epoch", list.Epoch, "current", cur)
		return fmt.Errorf("%w: epoch %d, current %d", ErrStaleDisplayList, list.Epoch, cur)
	}

	base := s.vp.Transform()
	flat := dl.Flatten(list, base)
	newGrid := !o.hasView || !s.vp.sameGrid(o.viewport)
	refresh := started && list.Epoch == cur && !newGrid

	// Tiles still in flight for an unfinished round must be painted again.
	carried := make([]tilecache.Coord, 0, len(o.pending))
	for co := range o.pending {
		carried = append(carried, co)
	}
	if o.cur != nil && !o.cur.done {
		o.finish(true)
	}
	clear(o.pending)
	o.backlog = o.backlog[:0]

	var inv *invalidation
	if newGrid {
		o.grid = parallel.NewTileGrid(w, h, t.opts.tileSize)
		o.viewport, o.hasView = s.vp, true
		t.cache.Reset()
		clear(o.unsent)
		inv = &invalidation{base: base, region: parallel.NewDirtyRegion(o.grid)}
		t.inval.Store(inv)
		inv.region.MarkAll()
		webpaint.Logger().Info("paint: viewport changed",
			"width", w, "height", h, "tiles", o.grid.TileCount(), "dpr", s.vp.dpr())
	} else {
		inv = t.inval.Load()
		if !refresh {
			for _, r := range dl.Damage(o.prevFlat, flat) {
				inv.region.MarkRect(r.Pixels())
			}
		}
		for _, co := range carried {
			inv.region.Mark(co.X, co.Y)
		}
	}

	dirty := make(map[tilecache.Coord]bool)
	for _, p := range inv.region.GetAndClear() {
		dirty[tilecache.Coord{X: p.X, Y: p.Y}] = true
	}
	layout := make([]tilecache.Coord, 0, o.grid.TileCount())
	o.grid.ForEach(func(tile parallel.Tile) {
		co := tilecache.Coord{X: tile.X, Y: tile.Y}
		layout = append(layout, co)
		if _, _, ok := t.cache.Lookup(co); !ok {
			dirty[co] = true
		}
	})
	retained, err := t.cache.Begin(list.Epoch, layout, dirty)
	if err != nil {
		return err
	}
	t.epoch.Store(uint64(list.Epoch))
	t.hasEpoch.Store(true)
	o.prevFlat = flat

	o.rounds++
	r := &round{
		id:    o.rounds,
		epoch: list.Epoch,
		start: time.Now(),
		summary: EpochSummary{
			Epoch:    list.Epoch,
			Frame:    o.grid.Bounds(),
			Tiles:    len(layout),
			Retained: len(retained),
		},
	}
	if s.reply != nil {
		r.waiters = append(r.waiters, s.reply)
	}
	o.cur = r
	if refresh {
		t.stats.refreshes.Add(1)
	} else {
		t.stats.paints.Add(1)
	}
	t.stats.retained.Add(uint64(len(retained)))

	for _, co := range retained {
		o.present(TileUpdate{Coord: co, Rect: tileRectOf(o.grid, co), Epoch: list.Epoch, Retained: !o.unsent[co]})
	}
	for _, co := range layout {
		if !dirty[co] {
			continue
		}
		rect := tileRectOf(o.grid, co)
		o.pending[co] = &pendingJob{job: job{
			id:      o.nextJobID(),
			round:   r.id,
			coord:   co,
			rect:    rect,
			epoch:   list.Epoch,
			items:   dl.Cull(flat, dl.RectFromImage(rect)),
			attempt: 1,
		}}
		o.backlog = append(o.backlog, co)
	}
	webpaint.Logger().Debug("paint: round started",
		"epoch", list.Epoch, "refresh", refresh, "dirty", len(o.pending), "retained", len(retained))
	return nil
}

// dispatch moves queued jobs to the pool until it is full.
func (o *orchestrator) dispatch() {
	for len(o.backlog) > 0 {
		co := o.backlog[0]
		p, ok := o.pending[co]
		if !ok || !p.deadline.IsZero() {
			o.backlog = o.backlog[1:]
			continue
		}
		queued, err := o.t.pool.TrySubmit(p.job)
		if err != nil || !queued {
			return
		}
		p.deadline = time.Now().Add(o.t.opts.jobTimeout)
		o.backlog = o.backlog[1:]
	}
}

// handle applies one worker result.
func (o *orchestrator) handle(res parallel.Result[job, tileResult]) {
	t := o.t
	j, buf := res.Job, res.Value.buf
	p, ok := o.pending[j.coord]
	if !ok || o.cur == nil || j.round != o.cur.id {
		o.discard(j, buf)
		return
	}
	if res.Lost || buf == nil {
		if j.id != p.job.id {
			return // an earlier attempt; the current one is still running
		}
		reason := "worker crashed"
		if !res.Lost {
			reason = "empty tile"
		}
		o.retry(p, reason)
		return
	}

	delete(o.pending, j.coord)
	switch t.cache.Apply(j.coord, j.epoch, buf) {
	case tilecache.Applied:
		o.cur.summary.Rasterized++
		o.cur.summary.Raster.Add(res.Value.stats)
		t.stats.rasterized.Add(1)
		o.present(TileUpdate{Coord: j.coord, Rect: j.rect, Epoch: j.epoch})
	case tilecache.Stale:
		t.stats.staleTiles.Add(1)
	case tilecache.Duplicate:
		t.stats.duplicates.Add(1)
	}
}

// discard disposes of a result nobody waits for. Results of older epochs
// go through the cache, which rejects them; late copies of the current
// epoch go straight back to the pool.
func (o *orchestrator) discard(j job, buf *tilecache.Buffer) {
	if buf == nil {
		return
	}
	t := o.t
	if cur, _ := t.CurrentEpoch(); j.epoch < cur {
		if t.cache.Apply(j.coord, j.epoch, buf) == tilecache.Stale {
			t.stats.staleTiles.Add(1)
		}
		return
	}
	t.cache.Pool().Put(buf)
	t.stats.duplicates.Add(1)
}

// retry queues another attempt for p, or paints a placeholder tile once
// the attempts are used up.
func (o *orchestrator) retry(p *pendingJob, reason string) {
	t := o.t
	co := p.job.coord
	if p.job.attempt >= t.opts.maxAttempts {
		webpaint.Logger().Warn("paint: tile failed, using placeholder",
			"x", co.X, "y", co.Y, "epoch", p.job.epoch, "attempts", p.job.attempt, "reason", reason)
		delete(o.pending, co)
		o.placeholder(p.job)
		return
	}
	webpaint.Logger().Warn("paint: resubmitting tile",
		"x", co.X, "y", co.Y, "epoch", p.job.epoch, "attempt", p.job.attempt+1, "reason", reason)
	p.job.id = o.nextJobID()
	p.job.attempt++
	p.deadline = time.Time{}
	o.backlog = append(o.backlog, co)
	o.cur.summary.Resubmits++
	t.stats.resubmits.Add(1)
}

// placeholder fills j's tile with the placeholder color.
func (o *orchestrator) placeholder(j job) {
	t := o.t
	buf := t.cache.Pool().Get(j.rect)
	if buf == nil {
		return
	}
	draw.Draw(buf.RGBA, j.rect, image.NewUniform(raster.PlaceholderFill.Premul()), image.Point{}, draw.Src)
	if t.cache.Apply(j.coord, j.epoch, buf) != tilecache.Applied {
		return
	}
	o.cur.summary.Placeholders++
	t.stats.placeholders.Add(1)
	o.present(TileUpdate{Coord: j.coord, Rect: j.rect, Epoch: j.epoch, Placeholder: true})
}

// checkTimeouts treats jobs running past their deadline as lost.
func (o *orchestrator) checkTimeouts(now time.Time) {
	for _, p := range o.pending {
		if !p.deadline.IsZero() && now.After(p.deadline) {
			o.retry(p, "timeout")
		}
	}
}

// present forwards u now or, under PresentAtomic, at the end of the round.
func (o *orchestrator) present(u TileUpdate) {
	u.Frame = o.grid.Bounds()
	u.release = o.t.Release
	if o.t.opts.present == PresentAtomic {
		o.cur.held = append(o.cur.held, u)
		return
	}
	o.deliver(u)
}

func (o *orchestrator) deliver(u TileUpdate) {
	delete(o.unsent, u.Coord)
	if !u.Retained {
		buf, _, ok := o.t.cache.Lend(u.Coord)
		if !ok {
			return
		}
		u.Buffer = buf
	}
	o.t.compositor.PresentTile(u)
}

// maybeFinish ends the current round once no tile is pending.
func (o *orchestrator) maybeFinish() {
	if o.cur == nil || o.cur.done || len(o.pending) > 0 {
		return
	}
	o.finish(false)
}

// finish sends the end marker of the current round and answers its
// waiters. A superseded round drops its held updates.
func (o *orchestrator) finish(superseded bool) {
	r := o.cur
	r.done = true
	r.summary.Superseded = superseded
	r.summary.Elapsed = time.Since(r.start)
	if !superseded {
		for _, u := range r.held {
			o.deliver(u)
		}
	} else {
		o.t.stats.superseded.Add(1)
		for _, u := range r.held {
			if !u.Retained {
				o.unsent[u.Coord] = true
			}
		}
	}
	r.held = nil
	o.t.compositor.EndEpoch(r.summary)

	var err error
	if superseded {
		err = ErrSuperseded
	}
	for _, w := range r.waiters {
		w <- paintReply{summary: r.summary, err: err}
	}
	r.waiters = nil
	webpaint.Logger().Debug("paint: round finished", "summary", r.summary.String(), "superseded", superseded)
}

// abort fails the waiters of an unfinished round without telling the
// compositor.
func (o *orchestrator) abort(err error) {
	if o.cur != nil && !o.cur.done {
		o.cur.done = true
		for _, w := range o.cur.waiters {
			w <- paintReply{summary: o.cur.summary, err: err}
		}
		o.cur.waiters = nil
		o.cur.held = nil
	}
	clear(o.pending)
	o.backlog = nil
}
