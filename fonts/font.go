package fonts

import (
	"github.com/go-text/typesetting/font"

	"github.com/gogpu/webpaint"
	"github.com/gogpu/webpaint/internal/cache"
)

// DefaultShapingCacheSize bounds the TextRuns each Font memoizes. The bound
// only affects latency: shaping is deterministic, so a run evicted and
// shaped again is identical to the cached one.
const DefaultShapingCacheSize = 256

// FontOption configures a Font.
type FontOption func(*fontOptions)

type fontOptions struct {
	shapingCacheSize int
	maskCacheSize    int
	shaper           Shaper
}

func defaultFontOptions() fontOptions {
	return fontOptions{
		shapingCacheSize: DefaultShapingCacheSize,
		maskCacheSize:    DefaultGlyphMaskCacheSize,
	}
}

// WithShapingCacheSize sets how many TextRuns a Font keeps. Zero disables
// shaping caching.
func WithShapingCacheSize(n int) FontOption {
	return func(o *fontOptions) {
		o.shapingCacheSize = max(n, 0)
	}
}

// WithGlyphMaskCacheSize sets how many rasterized glyph masks a Font keeps.
func WithGlyphMaskCacheSize(n int) FontOption {
	return func(o *fontOptions) {
		o.maskCacheSize = max(n, 0)
	}
}

// WithShaper replaces the shaping capability. The default is DefaultShaper.
func WithShaper(s Shaper) FontOption {
	return func(o *fontOptions) {
		o.shaper = s
	}
}

type runKey struct {
	text      string
	script    Script
	direction Direction
}

// Font is one concrete face at one pixel size. It owns a GlyphStore and a
// bounded cache of shaped runs. A Font belongs to the Context (and so the
// goroutine) that created it.
type Font struct {
	desc   Descriptor
	tmpl   *Template
	face   *font.Face
	glyphs *GlyphStore
	shaper Shaper
	runs   *cache.Cache[runKey, *TextRun]

	// holds counts the Context-internal owners (font cache, groups).
	holds  int
	closed bool

	shaped   uint64
	failures uint64
}

// NewFont builds a Font of t at size. It takes over one reference to t,
// which Close releases.
func NewFont(t *Template, size float32, opts ...FontOption) (*Font, error) {
	o := defaultFontOptions()
	for _, opt := range opts {
		opt(&o)
	}
	parsed := t.Font()
	if parsed == nil {
		t.Release()
		return nil, ErrTemplateDropped
	}
	if o.shaper == nil {
		o.shaper = DefaultShaper()
	}
	face := font.NewFace(parsed)
	return &Font{
		desc:   t.Descriptor().WithSize(size),
		tmpl:   t,
		face:   face,
		glyphs: newGlyphStore(face, t.Metrics().UnitsPerEm, size, t.IsLastResort(), o.maskCacheSize),
		shaper: o.shaper,
		runs:   cache.New[runKey, *TextRun](o.shapingCacheSize),
	}, nil
}

// Descriptor returns the concrete descriptor of the font.
func (f *Font) Descriptor() Descriptor { return f.desc }

// Template returns the shared font data.
func (f *Font) Template() *Template { return f.tmpl }

// Size returns the pixel size.
func (f *Font) Size() float32 { return f.desc.Size }

// Glyphs returns the font's glyph tables.
func (f *Font) Glyphs() *GlyphStore { return f.glyphs }

// IsLastResort reports whether the font is built on the last-resort face.
func (f *Font) IsLastResort() bool { return f.tmpl.IsLastResort() }

// Covers reports whether the font can display r.
func (f *Font) Covers(r rune) bool { return f.glyphs.Covers(r) }

// Ascent returns the distance from the baseline to the top of the line box.
func (f *Font) Ascent() float32 {
	m := f.tmpl.Metrics()
	return m.Scale(m.Ascent, f.desc.Size)
}

// Descent returns the distance from the baseline to the bottom of the line box.
func (f *Font) Descent() float32 {
	m := f.tmpl.Metrics()
	return m.Scale(m.Descent, f.desc.Size)
}

// LineHeight returns ascent + descent + line gap.
func (f *Font) LineHeight() float32 {
	m := f.tmpl.Metrics()
	return m.Scale(m.Ascent+m.Descent+m.LineGap, f.desc.Size)
}

// Shape returns the TextRun for text. Repeated calls with the same input
// return equal runs whether or not the run was cached. If the shaping
// capability fails, the run holds one .notdef glyph per rune, each
// FallbackAdvance wide.
func (f *Font) Shape(text string, script Script, dir Direction) *TextRun {
	key := runKey{text: text, script: script, direction: dir}
	if run, ok := f.runs.Get(key); ok {
		return run
	}
	run := f.shape(text, script, dir)
	f.runs.Set(key, run)
	return run
}

func (f *Font) shape(text string, script Script, dir Direction) *TextRun {
	f.shaped++
	if f.closed {
		return notdefRun(text, script, dir, f.desc, f.tmpl.ID())
	}
	glyphs, err := f.shaper.Shape(ShapeInput{
		Text:      text,
		Script:    script,
		Direction: dir,
		Size:      f.desc.Size,
		Face:      f.face,
	})
	if err != nil {
		f.failures++
		if se, ok := err.(*ShapingError); ok {
			se.Font = f.desc
		}
		webpaint.Logger().Warn("fonts: shaping failed, using notdef run",
			"family", f.desc.Family, "size", f.desc.Size, "err", err)
		return notdefRun(text, script, dir, f.desc, f.tmpl.ID())
	}
	run := &TextRun{
		Text:       text,
		Script:     script,
		Direction:  dir,
		Font:       f.desc,
		TemplateID: f.tmpl.ID(),
		Size:       f.desc.Size,
		Glyphs:     glyphs,
	}
	for _, g := range glyphs {
		run.Advance += g.Advance
	}
	return run
}

// FontStats reports a Font's shaping activity.
type FontStats struct {
	Runs     cache.Stats
	Shaped   uint64
	Failures uint64
}

// Stats returns shaping statistics.
func (f *Font) Stats() FontStats {
	return FontStats{Runs: f.runs.Stats(), Shaped: f.shaped, Failures: f.failures}
}

// Close drops the font's caches and releases its template reference.
// Close is idempotent.
func (f *Font) Close() {
	if f.closed {
		return
	}
	f.closed = true
	f.runs.Clear()
	f.glyphs.clear()
	f.tmpl.Release()
}

func (f *Font) retain() { f.holds++ }

func (f *Font) release() {
	f.holds--
	if f.holds <= 0 {
		f.Close()
	}
}
