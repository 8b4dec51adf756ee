package fonts

import (
	"context"
	"errors"
	"unicode"

	"github.com/gogpu/webpaint"
	"github.com/gogpu/webpaint/internal/cache"
)

// Default Context cache bounds.
const (
	DefaultFontCacheSize  = 64
	DefaultGroupCacheSize = 32
)

// Resolver resolves descriptors to shared font data. fontcache.Client is
// the production implementation; calls may cross a process boundary and
// block on I/O, so they take a context.
type Resolver interface {
	// Resolve returns the template best matching d. The template carries
	// one reference owned by the caller. A descriptor matching nothing
	// returns an error; the Context substitutes the last-resort font.
	Resolve(ctx context.Context, d Descriptor) (*Template, error)

	// MatchFamily returns descriptors for the faces of family (best first),
	// then those of generic's configured families, then the last resort.
	MatchFamily(ctx context.Context, family string, generic Generic) ([]Descriptor, error)
}

// ContextOption configures a Context.
type ContextOption func(*contextOptions)

type contextOptions struct {
	fontCacheSize  int
	groupCacheSize int
	fontOpts       []FontOption
}

// WithFontCacheSize bounds the Fonts a Context keeps. Values below 1 are
// raised to 1.
func WithFontCacheSize(n int) ContextOption {
	return func(o *contextOptions) { o.fontCacheSize = max(n, 1) }
}

// WithGroupCacheSize bounds the Groups a Context keeps. Values below 1 are
// raised to 1.
func WithGroupCacheSize(n int) ContextOption {
	return func(o *contextOptions) { o.groupCacheSize = max(n, 1) }
}

// WithFontOptions applies opts to every Font the Context creates.
func WithFontOptions(opts ...FontOption) ContextOption {
	return func(o *contextOptions) { o.fontOpts = append(o.fontOpts, opts...) }
}

// Context caches the Fonts and Groups used by one paint worker. It is not
// safe for concurrent use; create one per worker and Close it when the
// worker exits.
type Context struct {
	resolver Resolver
	opts     contextOptions

	fonts  *cache.Cache[Descriptor, *Font]
	groups *cache.Cache[StyleKey, *Group]

	// sized holds fonts built from a run's own template at another size.
	sized *cache.Cache[sizedKey, *Font]

	resolves        uint64
	resolveFailures uint64
	closed          bool
}

// NewContext returns a Context resolving fonts through r. A nil resolver
// resolves every descriptor to the last-resort font.
func NewContext(r Resolver, opts ...ContextOption) *Context {
	o := contextOptions{
		fontCacheSize:  DefaultFontCacheSize,
		groupCacheSize: DefaultGroupCacheSize,
	}
	for _, opt := range opts {
		opt(&o)
	}
	c := &Context{
		resolver: r,
		opts:     o,
		fonts:    cache.New[Descriptor, *Font](o.fontCacheSize),
		groups:   cache.New[StyleKey, *Group](o.groupCacheSize),
		sized:    cache.New[sizedKey, *Font](o.fontCacheSize),
	}
	c.fonts.OnEvict(func(d Descriptor, f *Font) {
		webpaint.Logger().Debug("fonts: font evicted", "font", d.String())
		f.release()
	})
	c.groups.OnEvict(func(_ StyleKey, g *Group) {
		g.release()
	})
	c.sized.OnEvict(func(_ sizedKey, f *Font) {
		f.release()
	})
	return c
}

// Font returns the Font for d, resolving it on first use. It never returns
// nil: when resolution fails the last-resort font at d.Size is returned.
func (c *Context) Font(ctx context.Context, d Descriptor) *Font {
	d = d.Normalize()
	if f, ok := c.fonts.Get(d); ok {
		return f
	}
	if c.closed || c.resolver == nil {
		return c.lastResort(d.Size)
	}

	c.resolves++
	t, err := c.resolver.Resolve(ctx, d)
	if err != nil {
		c.resolveFailures++
		webpaint.Logger().Debug("fonts: resolve failed, using last resort", "font", d.String(), "err", err)
		f := c.lastResort(d.Size)
		if !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
			c.store(d, f)
		}
		return f
	}
	f, err := NewFont(t, d.Size, c.opts.fontOpts...)
	if err != nil {
		c.resolveFailures++
		webpaint.Logger().Warn("fonts: building font failed", "font", d.String(), "err", err)
		return c.lastResort(d.Size)
	}
	c.store(d, f)
	return f
}

func (c *Context) store(d Descriptor, f *Font) {
	if cur, ok := c.fonts.Peek(d); ok && cur == f {
		return
	}
	f.retain()
	c.fonts.Set(d, f)
}

// lastResort returns the cached last-resort font at size.
func (c *Context) lastResort(size float32) *Font {
	d := LastResortDescriptor(size)
	if f, ok := c.fonts.Get(d); ok {
		return f
	}
	f, err := NewFont(LastResort().Acquire(), size, c.opts.fontOpts...)
	if err != nil {
		// The last-resort template is permanent; its data never drops.
		panic("fonts: last-resort font: " + err.Error())
	}
	c.store(d, f)
	return f
}

// LastResortFont returns the last-resort font at size.
func (c *Context) LastResortFont(size float32) *Font { return c.lastResort(size) }

// Group returns the fallback Group for style, building it on first use.
// The group lists a font per requested family that resolved, then the
// faces of the style's generic family (sans-serif when none is named),
// then the last-resort font. Families resolving to the same face appear
// once.
func (c *Context) Group(ctx context.Context, style Style) *Group {
	key := style.Key()
	if g, ok := c.groups.Get(key); ok {
		return g
	}
	g := c.buildGroup(ctx, style)
	c.groups.Set(key, g)
	return g
}

func (c *Context) buildGroup(ctx context.Context, style Style) *Group {
	g := &Group{style: style}
	seen := make(map[TemplateID]bool)
	add := func(f *Font) {
		if seen[f.tmpl.ID()] {
			return
		}
		seen[f.tmpl.ID()] = true
		f.retain()
		g.fonts = append(g.fonts, f)
	}

	for _, family := range c.expandFamilies(ctx, style) {
		f := c.Font(ctx, style.Descriptor(family))
		if f.IsLastResort() {
			continue
		}
		add(f)
	}
	add(c.lastResort(style.Size))
	return g
}

// expandFamilies replaces generic keywords with their configured families
// and appends the implied generic.
func (c *Context) expandFamilies(ctx context.Context, style Style) []string {
	var out []string
	seen := make(map[string]bool)
	push := func(name string) {
		k := FoldFamily(name)
		if k == "" || seen[k] {
			return
		}
		seen[k] = true
		out = append(out, name)
	}
	generic := func(gen Generic) {
		if c.resolver == nil {
			return
		}
		descs, err := c.resolver.MatchFamily(ctx, "", gen)
		if err != nil {
			webpaint.Logger().Debug("fonts: generic family lookup failed", "generic", gen.String(), "err", err)
			return
		}
		lastResort := LastResortDescriptor(0).MatchKey()
		for _, d := range descs {
			// The last-resort face always ends the group.
			if d.MatchKey() == lastResort {
				continue
			}
			push(d.Family)
		}
	}

	hasGeneric := false
	for _, fam := range style.Families {
		if gen, ok := ParseGeneric(fam); ok {
			hasGeneric = true
			generic(gen)
			continue
		}
		push(fam)
	}
	if !hasGeneric {
		generic(GenericSansSerif)
	}
	return out
}

// ShapeText splits text into runs of runes sharing a font of style's group
// and shapes each run. Spaces and combining marks stay in the current run
// when its font covers them.
func (c *Context) ShapeText(ctx context.Context, style Style, text string, script Script, dir Direction) []*TextRun {
	if text == "" {
		return nil
	}
	g := c.Group(ctx, style)
	var runs []*TextRun
	var cur *Font
	start := 0
	for i, r := range text {
		if cur != nil && clusterNeutral(r) && cur.Covers(r) {
			continue
		}
		f := g.FontFor(r)
		if f == cur {
			continue
		}
		if cur != nil {
			runs = append(runs, cur.Shape(text[start:i], script, dir))
		}
		cur, start = f, i
	}
	runs = append(runs, cur.Shape(text[start:], script, dir))
	return runs
}

func clusterNeutral(r rune) bool {
	return unicode.IsSpace(r) || unicode.In(r, unicode.Mn, unicode.Me)
}

// FontForRun returns the Font a pre-shaped run was produced with, so its
// glyph ids can be painted.
func (c *Context) FontForRun(ctx context.Context, run *TextRun) *Font {
	var found *Font
	c.fonts.Each(func(_ Descriptor, f *Font) {
		if found == nil && f.tmpl.ID() == run.TemplateID && f.desc.Size == run.Size {
			found = f
		}
	})
	if found != nil {
		return found
	}
	if run.Font.Family == LastResortFamily && run.TemplateID == LastResort().ID() {
		return c.lastResort(run.Size)
	}
	return c.Font(ctx, run.Font.WithSize(run.Size))
}

type sizedKey struct {
	tmpl TemplateID
	size float32
}

// FontForRunAt returns a Font of the face run was shaped with at size, for
// painting a run under a scaling transform. The face is pinned by the run's
// template, so glyph ids stay valid even if the run's descriptor would now
// resolve to another file.
func (c *Context) FontForRunAt(ctx context.Context, run *TextRun, size float32) *Font {
	if size == run.Size {
		return c.FontForRun(ctx, run)
	}
	if run.TemplateID == LastResort().ID() {
		return c.lastResort(size)
	}
	key := sizedKey{tmpl: run.TemplateID, size: size}
	if f, ok := c.sized.Get(key); ok {
		return f
	}
	var tmpl *Template
	c.fonts.Each(func(_ Descriptor, f *Font) {
		if tmpl == nil && f.tmpl.ID() == run.TemplateID {
			tmpl = f.tmpl
		}
	})
	if tmpl == nil {
		if base := c.FontForRun(ctx, run); base.tmpl.ID() == run.TemplateID {
			tmpl = base.tmpl
		}
	}
	if tmpl == nil || c.closed {
		webpaint.Logger().Debug("fonts: run face unavailable, resolving by descriptor", "font", run.Font.String())
		return c.Font(ctx, run.Font.WithSize(size))
	}
	f, err := NewFont(tmpl.Acquire(), size, c.opts.fontOpts...)
	if err != nil {
		webpaint.Logger().Warn("fonts: building font failed", "font", run.Font.String(), "err", err)
		return c.lastResort(size)
	}
	f.retain()
	c.sized.Set(key, f)
	return f
}

// Purge drops every cached Group, so styles resolve their family lists
// afresh (for example after a web font finished loading). Fonts stay
// cached.
func (c *Context) Purge() {
	c.groups.Clear()
}

// Close releases every Font and Group. After Close the resolver is no
// longer used and every descriptor maps to the last-resort font.
func (c *Context) Close() {
	c.closed = true
	c.groups.Clear()
	c.sized.Clear()
	c.fonts.Clear()
}

// ContextStats summarizes a Context's caches.
type ContextStats struct {
	Fonts           cache.Stats
	Groups          cache.Stats
	Resolves        uint64
	ResolveFailures uint64

	// Shaped counts shaping capability invocations across cached fonts.
	Shaped uint64
	// RunHits counts shaping cache hits across cached fonts.
	RunHits uint64
}

// Stats returns cache statistics.
func (c *Context) Stats() ContextStats {
	s := ContextStats{
		Fonts:           c.fonts.Stats(),
		Groups:          c.groups.Stats(),
		Resolves:        c.resolves,
		ResolveFailures: c.resolveFailures,
	}
	c.fonts.Each(func(_ Descriptor, f *Font) {
		fs := f.Stats()
		s.Shaped += fs.Shaped
		s.RunHits += fs.Runs.Hits
	})
	return s
}
