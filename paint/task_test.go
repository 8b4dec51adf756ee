package paint

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/draw"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gogpu/webpaint"
	dl "github.com/gogpu/webpaint/displaylist"
	"github.com/gogpu/webpaint/fontcache"
	"github.com/gogpu/webpaint/fonts"
	"github.com/gogpu/webpaint/internal/raster"
	"github.com/gogpu/webpaint/tilecache"
)

// =============================================================================
// Helpers
// =============================================================================

// recorder keeps every update it sees and assembles frames through an
// ImageCompositor.
type recorder struct {
	*ImageCompositor

	mu        sync.Mutex
	updates   []TileUpdate
	summaries []EpochSummary
	onTile    func(TileUpdate)
}

func newRecorder() *recorder {
	return &recorder{ImageCompositor: NewImageCompositor()}
}

func (r *recorder) PresentTile(u TileUpdate) {
	r.mu.Lock()
	rec := u
	rec.Buffer = nil
	r.updates = append(r.updates, rec)
	hook := r.onTile
	r.mu.Unlock()
	if hook != nil {
		hook(u)
	}
	r.ImageCompositor.PresentTile(u)
}

func (r *recorder) EndEpoch(s EpochSummary) {
	r.mu.Lock()
	r.summaries = append(r.summaries, s)
	r.mu.Unlock()
	r.ImageCompositor.EndEpoch(s)
}

// updatesFor returns the recorded updates of epoch e.
func (r *recorder) updatesFor(e dl.Epoch) []TileUpdate {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []TileUpdate
	for _, u := range r.updates {
		if u.Epoch == e {
			out = append(out, u)
		}
	}
	return out
}

// fillRasterizer paints every tile with the color of its first rect item.
type fillRasterizer struct {
	calls *atomic.Int64
	hook  func(call int64, items []dl.FlatItem)
}

func (f fillRasterizer) Rasterize(_ context.Context, dst *image.RGBA, items []dl.FlatItem, bg dl.Color) RasterStats {
	n := f.calls.Add(1)
	if f.hook != nil {
		f.hook(n, items)
	}
	c := bg
	for _, fi := range items {
		if r, ok := fi.Item.(*dl.RectItem); ok {
			c = r.Color
			break
		}
	}
	draw.Draw(dst, dst.Bounds(), image.NewUniform(c.Premul()), image.Point{}, draw.Src)
	return RasterStats{Items: len(items)}
}

func (fillRasterizer) Close() {}

func fillFactory(calls *atomic.Int64, hook func(int64, []dl.FlatItem)) RasterizerFactory {
	return func(int) Rasterizer { return fillRasterizer{calls: calls, hook: hook} }
}

func startTask(t *testing.T, comp Compositor, resolver fonts.Resolver, opts ...Option) *Task {
	t.Helper()
	task := NewTask(comp, resolver, opts...)
	if err := task.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(task.Close)
	return task
}

func paintOK(t *testing.T, task *Task, list *dl.DisplayList, vp Viewport) EpochSummary {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s, err := task.Paint(ctx, list, vp)
	if err != nil {
		t.Fatalf("Paint(epoch %d): %v", list.Epoch, err)
	}
	return s
}

func rectList(t *testing.T, seq *dl.Sequencer, rects ...dl.RectItem) *dl.DisplayList {
	t.Helper()
	b := dl.NewBuilder(seq)
	for i := range rects {
		b.Append(&rects[i])
	}
	list, err := b.Finish()
	if err != nil {
		t.Fatalf("Finish: %v", err)
	}
	return list
}

func viewport(w, h float32) Viewport {
	return Viewport{Rect: dl.XYWH(0, 0, w, h)}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

func pixel(t *testing.T, c *ImageCompositor, x, y int) color.RGBA {
	t.Helper()
	f := c.Frame()
	if f == nil {
		t.Fatal("no frame")
	}
	return f.RGBAAt(x, y)
}

var (
	red   = dl.RGB(255, 0, 0)
	green = dl.RGB(0, 255, 0)
	blue  = dl.RGB(0, 0, 255)
)

// =============================================================================
// Viewport and options
// =============================================================================

func TestViewport(t *testing.T) {
	tests := []struct {
		name  string
		vp    Viewport
		w, h  int
		page  dl.Point
		check dl.Point
	}{
		{"unit", viewport(256, 256), 256, 256, dl.Pt(10, 20), dl.Pt(10, 20)},
		{"hidpi", Viewport{Rect: dl.XYWH(0, 0, 100, 50), DevicePixelRatio: 1.5}, 150, 75, dl.Pt(10, 20), dl.Pt(15, 30)},
		{"scrolled", Viewport{Rect: dl.XYWH(0, 300, 100, 100), DevicePixelRatio: 2}, 200, 200, dl.Pt(10, 310), dl.Pt(20, 20)},
		{"fractional", viewport(10.2, 10.5), 11, 11, dl.Pt(0, 0), dl.Pt(0, 0)},
		{"empty", Viewport{}, 0, 0, dl.Pt(1, 1), dl.Pt(1, 1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, h := tt.vp.DeviceSize()
			if w != tt.w || h != tt.h {
				t.Errorf("DeviceSize = %dx%d, want %dx%d", w, h, tt.w, tt.h)
			}
			if tt.w == 0 {
				return
			}
			if got := tt.vp.Transform().TransformPoint(tt.page); got != tt.check {
				t.Errorf("Transform(%v) = %v, want %v", tt.page, got, tt.check)
			}
		})
	}
}

func TestParsePresentPolicy(t *testing.T) {
	tests := []struct {
		in      string
		want    PresentPolicy
		wantErr bool
	}{
		{"", PresentStreaming, false},
		{"streaming", PresentStreaming, false},
		{" Atomic ", PresentAtomic, false},
		{"eventually", 0, true},
	}
	for _, tt := range tests {
		got, err := ParsePresentPolicy(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParsePresentPolicy(%q) = %v, %v", tt.in, got, err)
		}
	}
}

func TestOptionsFromConfig(t *testing.T) {
	cfg := webpaint.DefaultConfig()
	cfg.Paint.Workers = 3
	cfg.Paint.TileSize = 128
	cfg.Paint.Present = "atomic"
	cfg.Paint.MaxAttempts = 5
	cfg.Fonts.ShapingCacheSize = -1

	opts, err := OptionsFromConfig(cfg)
	if err != nil {
		t.Fatalf("OptionsFromConfig: %v", err)
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.workers != 3 || o.tileSize != 128 || o.present != PresentAtomic || o.maxAttempts != 5 {
		t.Errorf("options = %+v", o)
	}
	if o.jobTimeout != 2*time.Second {
		t.Errorf("job timeout = %v", o.jobTimeout)
	}
	if len(o.fontOpts) != 1 {
		t.Errorf("font options = %d, want 1", len(o.fontOpts))
	}

	cfg.Paint.Present = "sometimes"
	if _, err := OptionsFromConfig(cfg); err == nil {
		t.Error("unknown present policy accepted")
	}
}

// =============================================================================
// End-to-end scenarios
// =============================================================================

func TestTask_SingleTileText(t *testing.T) {
	svc := fontcache.New(fontcache.WithEnumerator(fontcache.Bundled()))
	t.Cleanup(svc.Close)
	client := svc.NewClient()

	rec := newRecorder()
	task := startTask(t, rec, client)

	b := dl.NewBuilder(nil)
	b.Append(&dl.TextItem{
		Text:   "Hi",
		Style:  fonts.Style{Families: []string{"Go"}, Size: 16},
		Origin: dl.Pt(20, 40),
		Color:  dl.Black,
		Bounds: dl.Rect{MinX: 20, MinY: 24, MaxX: 48, MaxY: 44},
	})
	list, err := b.Finish()
	if err != nil {
		t.Fatal(err)
	}

	s := paintOK(t, task, list, viewport(256, 256))
	if s.Epoch != 0 || s.Tiles != 1 || s.Rasterized != 1 {
		t.Fatalf("summary = %+v", s)
	}
	if s.Raster.Glyphs != 2 || s.Raster.MissingGlyphs != 0 {
		t.Errorf("glyphs = %d (missing %d), want 2", s.Raster.Glyphs, s.Raster.MissingGlyphs)
	}
	ups := rec.updatesFor(0)
	if len(ups) != 1 || ups[0].Coord != (tilecache.Coord{}) || ups[0].Retained {
		t.Fatalf("updates = %+v", ups)
	}

	inked := 0
	frame := rec.Frame()
	for y := 24; y < 44; y++ {
		for x := 20; x < 48; x++ {
			if frame.RGBAAt(x, y).R < 128 {
				inked++
			}
		}
	}
	if inked == 0 {
		t.Error("no text pixels painted")
	}

	requests := svc.Stats().Requests
	if requests == 0 {
		t.Error("first paint sent no font requests")
	}

	again := paintOK(t, task, list, viewport(256, 256))
	if again.Rasterized != 0 || again.Retained != 1 {
		t.Errorf("second paint = %+v, want one retained tile", again)
	}
	if got := svc.Stats().Requests; got != requests {
		t.Errorf("second paint sent %d font requests", got-requests)
	}
	if st := task.Stats(); st.Refreshes != 1 || st.Paints != 1 {
		t.Errorf("stats = %+v", st)
	}
}

func TestTask_OnlyDamagedTileRepaints(t *testing.T) {
	rec := newRecorder()
	task := startTask(t, rec, nil)
	var seq dl.Sequencer
	vp := viewport(512, 512)

	first := rectList(t, &seq,
		dl.RectItem{Rect: dl.XYWH(10, 10, 90, 90), Color: red},
		dl.RectItem{Rect: dl.XYWH(300, 300, 100, 100), Color: blue},
	)
	s := paintOK(t, task, first, vp)
	if s.Tiles != 4 || s.Rasterized != 4 {
		t.Fatalf("first paint = %+v", s)
	}

	second := rectList(t, &seq,
		dl.RectItem{Rect: dl.XYWH(10, 10, 90, 90), Color: green},
		dl.RectItem{Rect: dl.XYWH(300, 300, 100, 100), Color: blue},
	)
	s = paintOK(t, task, second, vp)
	if s.Epoch != 1 || s.Rasterized != 1 || s.Retained != 3 {
		t.Fatalf("second paint = %+v, want 1 rasterized and 3 retained", s)
	}
	for _, u := range rec.updatesFor(1) {
		if repainted := u.Coord == (tilecache.Coord{}); repainted == u.Retained {
			t.Errorf("tile %v retained = %v", u.Coord, u.Retained)
		}
	}
	if got := pixel(t, rec.ImageCompositor, 50, 50); got != (color.RGBA{0, 255, 0, 255}) {
		t.Errorf("changed rect = %v, want green", got)
	}
	if got := pixel(t, rec.ImageCompositor, 350, 350); got != (color.RGBA{0, 0, 255, 255}) {
		t.Errorf("retained rect = %v, want blue", got)
	}
	for _, co := range []tilecache.Coord{{X: 1, Y: 0}, {X: 0, Y: 1}, {X: 1, Y: 1}} {
		if e, _, ok := task.cache.Lookup(co); !ok || e != 1 {
			t.Errorf("tile %v at epoch %d, want bumped to 1", co, e)
		}
	}
}

func TestTask_MissingFamilyPaintsBoxes(t *testing.T) {
	svc := fontcache.New(fontcache.WithEnumerator(fontcache.Bundled()))
	t.Cleanup(svc.Close)
	client := svc.NewClient()

	style := fonts.Style{Families: []string{"No Such Family"}, Size: 16}
	_, err := client.Resolve(context.Background(), style.Descriptor("No Such Family"))
	if !errors.Is(err, fontcache.ErrNotFound) {
		t.Fatalf("Resolve = %v, want ErrNotFound", err)
	}

	rec := newRecorder()
	task := startTask(t, rec, client)
	b := dl.NewBuilder(nil)
	b.Append(&dl.TextItem{
		Text:   "漢字",
		Style:  style,
		Origin: dl.Pt(10, 30),
		Color:  dl.Black,
		Bounds: dl.Rect{MinX: 10, MinY: 10, MaxX: 60, MaxY: 34},
	})
	list, err := b.Finish()
	if err != nil {
		t.Fatal(err)
	}
	s := paintOK(t, task, list, viewport(64, 64))
	if s.Rasterized != 1 || s.Placeholders != 0 {
		t.Fatalf("summary = %+v", s)
	}
	if s.Raster.MissingGlyphs != 2 {
		t.Errorf("missing glyphs = %d, want 2", s.Raster.MissingGlyphs)
	}
}

// =============================================================================
// Epochs
// =============================================================================

func TestTask_StaleDisplayListRejected(t *testing.T) {
	task := startTask(t, newRecorder(), nil)
	var seq dl.Sequencer
	old := rectList(t, &seq, dl.RectItem{Rect: dl.XYWH(0, 0, 10, 10), Color: red})
	cur := rectList(t, &seq, dl.RectItem{Rect: dl.XYWH(0, 0, 10, 10), Color: blue})

	paintOK(t, task, cur, viewport(64, 64))
	_, err := task.Paint(context.Background(), old, viewport(64, 64))
	if !errors.Is(err, ErrStaleDisplayList) {
		t.Fatalf("Paint(old) = %v, want ErrStaleDisplayList", err)
	}
	if e, ok := task.CurrentEpoch(); !ok || e != cur.Epoch {
		t.Errorf("CurrentEpoch = %d, %v", e, ok)
	}
	if st := task.Stats(); st.StaleLists != 1 {
		t.Errorf("stale lists = %d", st.StaleLists)
	}
}

func TestTask_SupersededResultsAreDropped(t *testing.T) {
	gate := make(chan struct{})
	started := make(chan struct{}, 1)
	var calls atomic.Int64
	hook := func(_ int64, items []dl.FlatItem) {
		if r := items[0].Item.(*dl.RectItem); r.Color == red {
			started <- struct{}{}
			<-gate
		}
	}
	rec := newRecorder()
	task := startTask(t, rec, nil,
		WithWorkers(2), WithTileSize(64), WithRasterizerFactory(fillFactory(&calls, hook)))
	defer close(gate)

	var seq dl.Sequencer
	vp := viewport(64, 64)
	first := rectList(t, &seq, dl.RectItem{Rect: dl.XYWH(0, 0, 64, 64), Color: red})
	second := rectList(t, &seq, dl.RectItem{Rect: dl.XYWH(0, 0, 64, 64), Color: blue})

	if err := task.Submit(first, vp); err != nil {
		t.Fatal(err)
	}
	<-started
	s := paintOK(t, task, second, vp)
	if s.Epoch != 1 || s.Rasterized != 1 {
		t.Fatalf("second paint = %+v", s)
	}

	gate <- struct{}{}
	waitFor(t, "stale tile", func() bool { return task.Stats().StaleTiles == 1 })
	if got := pixel(t, rec.ImageCompositor, 10, 10); got != (color.RGBA{0, 0, 255, 255}) {
		t.Errorf("pixel = %v, want the newer epoch's blue", got)
	}
	if e, _, _ := task.cache.Lookup(tilecache.Coord{}); e != 1 {
		t.Errorf("cached epoch = %d, want 1", e)
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.summaries) != 2 || !rec.summaries[0].Superseded || rec.summaries[1].Superseded {
		t.Errorf("summaries = %+v", rec.summaries)
	}
}

func TestTask_InvalidateRefreshesCurrentEpoch(t *testing.T) {
	var calls atomic.Int64
	task := startTask(t, newRecorder(), nil, WithTileSize(64), WithRasterizerFactory(fillFactory(&calls, nil)))
	list := rectList(t, nil, dl.RectItem{Rect: dl.XYWH(0, 0, 128, 128), Color: red})
	vp := viewport(128, 128)

	paintOK(t, task, list, vp)
	task.Invalidate(dl.XYWH(70, 70, 10, 10))
	s := paintOK(t, task, list, vp)
	if s.Rasterized != 1 || s.Retained != 3 {
		t.Errorf("refresh = %+v, want one tile repainted", s)
	}
	if calls.Load() != 5 {
		t.Errorf("rasterized %d tiles in total, want 5", calls.Load())
	}

	// An empty refresh repaints nothing.
	s = paintOK(t, task, list, vp)
	if s.Rasterized != 0 || s.Retained != 4 {
		t.Errorf("empty refresh = %+v", s)
	}
}

func TestTask_ViewportChangeRepaintsAll(t *testing.T) {
	var calls atomic.Int64
	rec := newRecorder()
	task := startTask(t, rec, nil, WithTileSize(64), WithRasterizerFactory(fillFactory(&calls, nil)))
	list := rectList(t, nil, dl.RectItem{Rect: dl.XYWH(0, 0, 100, 400), Color: red})

	paintOK(t, task, list, viewport(128, 128))
	s := paintOK(t, task, list, Viewport{Rect: dl.XYWH(0, 64, 128, 128)})
	if s.Rasterized != 4 || s.Retained != 0 {
		t.Errorf("scrolled paint = %+v, want all tiles repainted", s)
	}
	s = paintOK(t, task, list, Viewport{Rect: dl.XYWH(0, 64, 128, 128), DevicePixelRatio: 2})
	if s.Tiles != 16 || s.Rasterized != 16 {
		t.Errorf("hidpi paint = %+v, want 16 tiles", s)
	}
	if f := rec.Frame(); f.Bounds() != image.Rect(0, 0, 256, 256) {
		t.Errorf("frame = %v", f.Bounds())
	}
}

// =============================================================================
// Failures
// =============================================================================

func TestTask_WorkerCrashIsResubmitted(t *testing.T) {
	var calls atomic.Int64
	hook := func(n int64, _ []dl.FlatItem) {
		if n == 1 {
			panic("rasterizer crashed")
		}
	}
	rec := newRecorder()
	task := startTask(t, rec, nil, WithWorkers(1), WithRasterizerFactory(fillFactory(&calls, hook)))
	list := rectList(t, nil, dl.RectItem{Rect: dl.XYWH(0, 0, 32, 32), Color: green})

	s := paintOK(t, task, list, viewport(32, 32))
	if s.Rasterized != 1 || s.Resubmits != 1 || s.Placeholders != 0 {
		t.Fatalf("summary = %+v", s)
	}
	if st := task.Stats(); st.Respawns != 1 || st.Resubmits != 1 {
		t.Errorf("stats = %+v", st)
	}
	if got := pixel(t, rec.ImageCompositor, 5, 5); got != (color.RGBA{0, 255, 0, 255}) {
		t.Errorf("pixel = %v", got)
	}
}

func TestTask_PlaceholderAfterMaxAttempts(t *testing.T) {
	var calls atomic.Int64
	hook := func(int64, []dl.FlatItem) { panic("always") }
	rec := newRecorder()
	task := startTask(t, rec, nil,
		WithWorkers(1), WithMaxAttempts(2), WithRasterizerFactory(fillFactory(&calls, hook)))
	list := rectList(t, nil, dl.RectItem{Rect: dl.XYWH(0, 0, 32, 32), Color: green})

	s := paintOK(t, task, list, viewport(32, 32))
	if s.Placeholders != 1 || s.Rasterized != 0 || s.Resubmits != 1 {
		t.Fatalf("summary = %+v", s)
	}
	if calls.Load() != 2 {
		t.Errorf("attempts = %d, want 2", calls.Load())
	}
	ups := rec.updatesFor(0)
	if len(ups) != 1 || !ups[0].Placeholder {
		t.Errorf("updates = %+v", ups)
	}
	if got := pixel(t, rec.ImageCompositor, 5, 5); got != raster.PlaceholderFill.Premul() {
		t.Errorf("pixel = %v, want placeholder", got)
	}
}

func TestTask_JobTimeoutResubmits(t *testing.T) {
	gate := make(chan struct{})
	var calls atomic.Int64
	hook := func(n int64, _ []dl.FlatItem) {
		if n == 1 {
			<-gate
		}
	}
	task := startTask(t, newRecorder(), nil,
		WithWorkers(2), WithJobTimeout(20*time.Millisecond), WithRasterizerFactory(fillFactory(&calls, hook)))
	defer close(gate)
	list := rectList(t, nil, dl.RectItem{Rect: dl.XYWH(0, 0, 32, 32), Color: green})

	s := paintOK(t, task, list, viewport(32, 32))
	if s.Rasterized != 1 || s.Resubmits != 1 {
		t.Fatalf("summary = %+v", s)
	}
	gate <- struct{}{}
	waitFor(t, "late duplicate", func() bool { return task.Stats().Duplicates == 1 })
}

// =============================================================================
// Presentation
// =============================================================================

func TestTask_AtomicPresentHoldsTiles(t *testing.T) {
	var calls atomic.Int64
	rec := newRecorder()
	var seen []int64
	rec.onTile = func(TileUpdate) { seen = append(seen, calls.Load()) }
	task := startTask(t, rec, nil,
		WithWorkers(2), WithTileSize(64), WithPresentPolicy(PresentAtomic),
		WithRasterizerFactory(fillFactory(&calls, nil)))
	list := rectList(t, nil, dl.RectItem{Rect: dl.XYWH(0, 0, 200, 200), Color: red})

	s := paintOK(t, task, list, viewport(128, 128))
	if s.Rasterized != 4 {
		t.Fatalf("summary = %+v", s)
	}
	if len(seen) != 4 {
		t.Fatalf("presented %d tiles, want 4", len(seen))
	}
	for i, n := range seen {
		if n != 4 {
			t.Errorf("tile %d presented after %d of 4 rasterizations", i, n)
		}
	}
}

func TestTask_BuffersAreReturned(t *testing.T) {
	rec := newRecorder()
	task := startTask(t, rec, nil, WithTileSize(64))
	list := rectList(t, nil, dl.RectItem{Rect: dl.XYWH(0, 0, 100, 100), Color: red})
	paintOK(t, task, list, viewport(128, 128))
	waitFor(t, "releases", func() bool { return task.Stats().Cache.Lent == 0 })
	if task.Stats().Cache.Tiles != 4 {
		t.Errorf("cached tiles = %d", task.Stats().Cache.Tiles)
	}
}

func TestChannelCompositor(t *testing.T) {
	comp := NewChannelCompositor(0)
	task := startTask(t, comp, nil, WithTileSize(64))
	list := rectList(t, nil, dl.RectItem{Rect: dl.XYWH(0, 0, 100, 100), Color: red})

	done := make(chan error, 1)
	go func() {
		_, err := task.Paint(context.Background(), list, viewport(128, 64))
		done <- err
	}()

	tiles := 0
	for msg := range comp.C {
		if msg.Kind == MessageEndEpoch {
			if msg.Summary.Tiles != 2 {
				t.Errorf("summary = %+v", msg.Summary)
			}
			break
		}
		tiles++
		if msg.Tile.Buffer == nil || msg.Tile.Frame != image.Rect(0, 0, 128, 64) {
			t.Errorf("update = %+v", msg.Tile)
		}
		msg.Tile.Release()
	}
	if tiles != 2 {
		t.Errorf("received %d tiles, want 2", tiles)
	}
	if err := <-done; err != nil {
		t.Errorf("Paint = %v", err)
	}
}

// =============================================================================
// Lifecycle
// =============================================================================

func TestTask_Lifecycle(t *testing.T) {
	list := rectList(t, nil, dl.RectItem{Rect: dl.XYWH(0, 0, 10, 10), Color: red})

	task := NewTask(newRecorder(), nil)
	if err := task.Submit(list, viewport(32, 32)); !errors.Is(err, ErrNotStarted) {
		t.Errorf("Submit before Start = %v", err)
	}
	if err := task.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := task.Start(context.Background()); err != nil {
		t.Errorf("second Start = %v", err)
	}
	if _, err := task.Paint(context.Background(), nil, viewport(32, 32)); err == nil {
		t.Error("nil display list accepted")
	}
	if _, err := task.Paint(context.Background(), list, Viewport{}); !errors.Is(err, ErrEmptyViewport) {
		t.Errorf("empty viewport = %v", err)
	}
	task.Close()
	task.Close()
	if _, err := task.Paint(context.Background(), list, viewport(32, 32)); !errors.Is(err, ErrClosed) {
		t.Errorf("Paint after Close = %v", err)
	}
	if err := task.Start(context.Background()); !errors.Is(err, ErrClosed) {
		t.Errorf("Start after Close = %v", err)
	}

	idle := NewTask(newRecorder(), nil)
	idle.Close()
	if err := idle.Start(context.Background()); !errors.Is(err, ErrClosed) {
		t.Errorf("Start after Close = %v", err)
	}
}

func TestTask_ContextCancelStops(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	task := NewTask(newRecorder(), nil)
	if err := task.Start(ctx); err != nil {
		t.Fatal(err)
	}
	cancel()
	<-task.stopped
	list := rectList(t, nil, dl.RectItem{Rect: dl.XYWH(0, 0, 10, 10), Color: red})
	if err := task.Submit(list, viewport(32, 32)); !errors.Is(err, ErrClosed) {
		t.Errorf("Submit after cancel = %v", err)
	}
	task.Close()
}
