package paint

import (
	"context"
	"errors"
	"image"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gogpu/webpaint"
	dl "github.com/gogpu/webpaint/displaylist"
	"github.com/gogpu/webpaint/fonts"
	"github.com/gogpu/webpaint/internal/parallel"
	"github.com/gogpu/webpaint/tilecache"
)

// Stats counts task activity since Start.
type Stats struct {
	// Paints counts epochs started from a new display list, Refreshes
	// those that repainted the current one.
	Paints    uint64
	Refreshes uint64

	Rasterized   uint64
	Retained     uint64
	Placeholders uint64
	Resubmits    uint64

	// StaleLists counts rejected display lists, StaleTiles results of
	// superseded epochs dropped by the cache, Duplicates late copies of
	// tiles that were already served.
	StaleLists uint64
	StaleTiles uint64
	Duplicates uint64

	Superseded uint64

	// Respawns counts workers replaced after a crash.
	Respawns uint64

	Cache tilecache.Stats
}

type counters struct {
	paints, refreshes                  atomic.Uint64
	rasterized, retained               atomic.Uint64
	placeholders, resubmits            atomic.Uint64
	staleLists, staleTiles, duplicates atomic.Uint64
	superseded                         atomic.Uint64
}

type taskState uint8

const (
	stateIdle taskState = iota
	stateRunning
	stateClosed
)

type submission struct {
	list  *dl.DisplayList
	vp    Viewport
	reply chan paintReply
}

type paintReply struct {
	summary EpochSummary
	err     error
}

// invalidation is the dirty bitmap of the current grid, shared with
// Invalidate callers.
type invalidation struct {
	base   dl.Affine
	region *parallel.DirtyRegion
}

// Task rasterizes display lists into cached tiles and forwards them to a
// compositor. All cache writes happen on one orchestrator goroutine;
// workers hand their buffers back through the pool's result channel.
//
// Thread safety: every exported method may be called from any goroutine.
type Task struct {
	compositor Compositor
	resolver   fonts.Resolver
	opts       options

	cache *tilecache.Cache
	pool  *parallel.WorkerPool[job, tileResult]

	mu      sync.Mutex
	state   taskState
	submits chan submission
	quit    chan struct{}
	stopped chan struct{}

	inval atomic.Pointer[invalidation]

	relMu     sync.Mutex
	releases  []*tilecache.Buffer
	relDirect bool
	relKick   chan struct{}

	epoch    atomic.Uint64
	hasEpoch atomic.Bool
	stats    counters

	// Orchestrator state, owned by the loop goroutine.
	o orchestrator
}

// NewTask returns a Task that sends its output to compositor and resolves
// fonts through resolver. A nil resolver paints all text with the
// last-resort font. Call Start before submitting work.
func NewTask(compositor Compositor, resolver fonts.Resolver, opts ...Option) *Task {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.factory == nil {
		o.factory = defaultFactory(resolver, o.images, o.fontOpts)
	}
	return &Task{
		compositor: compositor,
		resolver:   resolver,
		opts:       o,
		cache:      tilecache.New(nil),
		submits:    make(chan submission),
		quit:       make(chan struct{}),
		stopped:    make(chan struct{}),
		relKick:    make(chan struct{}, 1),
	}
}

// Start launches the workers and the orchestrator. The task stops when ctx
// is cancelled or Close is called. Calling Start on a running task does
// nothing.
func (t *Task) Start(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	switch t.state {
	case stateRunning:
		return nil
	case stateClosed:
		return ErrClosed
	}

	factory, pool, background := t.opts.factory, t.cache.Pool(), t.opts.background
	t.pool = parallel.NewWorkerPool(t.opts.workers, func(id int) parallel.Worker[job, tileResult] {
		return &tileWorker{ctx: ctx, r: factory(id), pool: pool, background: background}
	})
	t.o = newOrchestrator(t)
	t.state = stateRunning
	go t.loop(ctx)

	webpaint.Logger().Info("paint: task started",
		"workers", t.pool.Workers(), "tile_size", t.opts.tileSize, "present", t.opts.present.String())
	return nil
}

// Close stops accepting work, waits for the workers to exit and returns
// every buffer to the pool. Pending Paint calls fail with ErrClosed.
// Close is safe to call multiple times.
func (t *Task) Close() {
	t.mu.Lock()
	switch t.state {
	case stateIdle:
		t.state = stateClosed
		close(t.stopped)
		t.mu.Unlock()
		return
	case stateClosed:
		t.mu.Unlock()
		<-t.stopped
		return
	}
	t.state = stateClosed
	close(t.quit)
	t.mu.Unlock()
	<-t.stopped
}

// Submit hands list to the task without waiting for it to be painted.
// Errors about the list itself, such as ErrStaleDisplayList, are logged.
func (t *Task) Submit(list *dl.DisplayList, vp Viewport) error {
	return t.send(context.Background(), submission{list: list, vp: vp})
}

// Paint hands list to the task and waits until every tile of its epoch
// reached the compositor. A list that is overtaken by a newer one before
// it completes returns its partial summary with ErrSuperseded.
func (t *Task) Paint(ctx context.Context, list *dl.DisplayList, vp Viewport) (EpochSummary, error) {
	reply := make(chan paintReply, 1)
	if err := t.send(ctx, submission{list: list, vp: vp, reply: reply}); err != nil {
		return EpochSummary{}, err
	}
	select {
	case r := <-reply:
		return r.summary, r.err
	case <-ctx.Done():
		return EpochSummary{}, ctx.Err()
	case <-t.stopped:
		select {
		case r := <-reply:
			return r.summary, r.err
		default:
			return EpochSummary{}, ErrClosed
		}
	}
}

func (t *Task) send(ctx context.Context, s submission) error {
	t.mu.Lock()
	state := t.state
	t.mu.Unlock()
	switch state {
	case stateIdle:
		return ErrNotStarted
	case stateClosed:
		return ErrClosed
	}
	select {
	case t.submits <- s:
		return nil
	case <-t.stopped:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Invalidate marks the tiles under rect, given in page coordinates, for
// repainting. It takes effect with the next Paint or Submit, including
// one that resubmits the current display list.
func (t *Task) Invalidate(rect dl.Rect) {
	inv := t.inval.Load()
	if inv == nil {
		return
	}
	inv.region.MarkRect(inv.base.TransformRect(rect).Pixels())
}

// Release returns a buffer received in a TileUpdate.
func (t *Task) Release(buf *tilecache.Buffer) {
	if buf == nil {
		return
	}
	t.relMu.Lock()
	if t.relDirect {
		t.relMu.Unlock()
		t.cache.Release(buf)
		return
	}
	t.releases = append(t.releases, buf)
	t.relMu.Unlock()
	select {
	case t.relKick <- struct{}{}:
	default:
	}
}

func (t *Task) drainReleases() {
	t.relMu.Lock()
	rel := t.releases
	t.releases = nil
	t.relMu.Unlock()
	for _, b := range rel {
		t.cache.Release(b)
	}
}

// CurrentEpoch returns the newest accepted epoch, and false before the
// first paint.
func (t *Task) CurrentEpoch() (dl.Epoch, bool) {
	return dl.Epoch(t.epoch.Load()), t.hasEpoch.Load()
}

// Stats returns a snapshot of the task's counters.
func (t *Task) Stats() Stats {
	s := Stats{
		Paints:       t.stats.paints.Load(),
		Refreshes:    t.stats.refreshes.Load(),
		Rasterized:   t.stats.rasterized.Load(),
		Retained:     t.stats.retained.Load(),
		Placeholders: t.stats.placeholders.Load(),
		Resubmits:    t.stats.resubmits.Load(),
		StaleLists:   t.stats.staleLists.Load(),
		StaleTiles:   t.stats.staleTiles.Load(),
		Duplicates:   t.stats.duplicates.Load(),
		Superseded:   t.stats.superseded.Load(),
		Cache:        t.cache.Stats(),
	}
	t.mu.Lock()
	if t.pool != nil {
		s.Respawns = t.pool.Respawns()
	}
	t.mu.Unlock()
	return s
}

func (t *Task) loop(ctx context.Context) {
	defer close(t.stopped)
	defer t.shutdown()

	tick := time.NewTicker(max(t.opts.jobTimeout/4, time.Millisecond))
	defer tick.Stop()

	results := t.pool.Results()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.quit:
			return
		case s := <-t.submits:
			if err := t.o.begin(s); err != nil {
				if s.reply != nil {
					s.reply <- paintReply{err: err}
				}
				if !errors.Is(err, ErrStaleDisplayList) {
					webpaint.Logger().Warn("paint: display list rejected", "err", err)
				}
			}
		case res, ok := <-results:
			if !ok {
				return
			}
			t.o.handle(res)
		case <-t.relKick:
			t.drainReleases()
		case now := <-tick.C:
			t.o.checkTimeouts(now)
		}
		t.o.dispatch()
		t.o.maybeFinish()
	}
}

func (t *Task) shutdown() {
	t.o.abort(ErrClosed)
	t.pool.Close()
	for res := range t.pool.Results() {
		if res.Value.buf != nil {
			t.cache.Pool().Put(res.Value.buf)
		}
	}

	t.relMu.Lock()
	t.relDirect = true
	t.relMu.Unlock()
	t.drainReleases()
	t.cache.Reset()

	webpaint.Logger().Info("paint: task stopped")
}

// tileRectOf returns the device rectangle of co in grid.
func tileRectOf(grid parallel.TileGrid, co tilecache.Coord) image.Rectangle {
	tile, _ := grid.TileAt(co.X, co.Y)
	return tile.Rect
}
