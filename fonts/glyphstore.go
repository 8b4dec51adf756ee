package fonts

import (
	"image"

	"github.com/go-text/typesetting/font"
	"github.com/go-text/typesetting/font/opentype"

	"github.com/gogpu/webpaint/internal/cache"
)

// GlyphID is a font-specific glyph index. Glyph 0 is .notdef.
type GlyphID uint32

// NotDef is the glyph painted for runes a font cannot display.
const NotDef GlyphID = 0

// GlyphBounds is a glyph's ink box in pixels relative to the pen position
// on the baseline, y pointing down.
type GlyphBounds struct {
	MinX, MinY, MaxX, MaxY float32
}

// Empty reports whether the box has no area.
func (b GlyphBounds) Empty() bool { return b.MinX >= b.MaxX || b.MinY >= b.MaxY }

// GlyphMetrics holds the per-glyph values the painter needs.
type GlyphMetrics struct {
	Advance float32
	Bounds  GlyphBounds
}

// OutlineOp is a path verb.
type OutlineOp uint8

// Outline path verbs.
const (
	OutlineMoveTo OutlineOp = iota
	OutlineLineTo
	OutlineQuadTo
	OutlineCubeTo
)

// OutlinePoint is a point in pixels, y pointing down.
type OutlinePoint struct {
	X, Y float32
}

// OutlineSegment is one path verb. Points holds 1, 2 or 3 valid points
// depending on Op; the last valid point is the end point.
type OutlineSegment struct {
	Op     OutlineOp
	Points [3]OutlinePoint
}

// Outline is a glyph's vector shape scaled to the font size.
type Outline struct {
	Segments []OutlineSegment
	Bounds   GlyphBounds
}

// MaskKey identifies a rasterized glyph: the glyph and the horizontal
// sub-pixel bucket of its origin.
type MaskKey struct {
	Glyph  GlyphID
	Bucket uint8
}

// GlyphMask is a rasterized glyph coverage mask. Offset is the mask's
// top-left corner relative to the integer pen position.
type GlyphMask struct {
	Mask   *image.Alpha
	Offset image.Point
}

// DefaultGlyphMaskCacheSize bounds the rasterized masks kept per Font.
const DefaultGlyphMaskCacheSize = 512

// GlyphStore holds a Font's lazily populated glyph tables: metrics, rune
// coverage, outlines and coverage masks. It belongs to its Font and is not
// safe for concurrent use.
type GlyphStore struct {
	face      *font.Face
	size      float32
	scale     float32
	universal bool

	coverage coverageMap
	metrics  map[GlyphID]GlyphMetrics
	outlines map[GlyphID]*Outline
	masks    *cache.Cache[MaskKey, *GlyphMask]
}

func newGlyphStore(face *font.Face, upem uint16, size float32, universal bool, maskCache int) *GlyphStore {
	scale := float32(0)
	if upem != 0 {
		scale = size / float32(upem)
	}
	return &GlyphStore{
		face:      face,
		size:      size,
		scale:     scale,
		universal: universal,
		coverage:  newCoverageMap(),
		metrics:   make(map[GlyphID]GlyphMetrics),
		outlines:  make(map[GlyphID]*Outline),
		masks:     cache.New[MaskKey, *GlyphMask](maskCache),
	}
}

// Covers reports whether the font can display r. The last-resort font
// covers every rune.
func (gs *GlyphStore) Covers(r rune) bool {
	if gs.universal {
		return true
	}
	if covered, checked := gs.coverage.get(r); checked {
		return covered
	}
	_, ok := gs.face.NominalGlyph(r)
	gs.coverage.set(r, ok)
	return ok
}

// Glyph returns the nominal glyph for r, or NotDef.
func (gs *GlyphStore) Glyph(r rune) (GlyphID, bool) {
	gid, ok := gs.face.NominalGlyph(r)
	if !ok {
		return NotDef, false
	}
	return GlyphID(gid), true
}

// Metrics returns the advance and ink bounds of gid at the font size.
func (gs *GlyphStore) Metrics(gid GlyphID) GlyphMetrics {
	if m, ok := gs.metrics[gid]; ok {
		return m
	}
	m := GlyphMetrics{Advance: gs.face.HorizontalAdvance(font.GID(gid)) * gs.scale}
	if o := gs.Outline(gid); o != nil {
		m.Bounds = o.Bounds
	}
	gs.metrics[gid] = m
	return m
}

// Outline returns the vector outline of gid, or nil when the glyph has no
// outline (bitmap or SVG glyphs).
func (gs *GlyphStore) Outline(gid GlyphID) *Outline {
	if o, ok := gs.outlines[gid]; ok {
		return o
	}
	var o *Outline
	if data, ok := gs.face.GlyphData(font.GID(gid)).(font.GlyphOutline); ok {
		o = gs.convertOutline(data)
	}
	gs.outlines[gid] = o
	return o
}

// convertOutline scales a font-unit, y-up outline to pixels, y-down.
func (gs *GlyphStore) convertOutline(src font.GlyphOutline) *Outline {
	o := &Outline{Segments: make([]OutlineSegment, 0, len(src.Segments))}
	first := true
	for _, seg := range src.Segments {
		var out OutlineSegment
		n := 1
		switch seg.Op {
		case opentype.SegmentOpMoveTo:
			out.Op = OutlineMoveTo
		case opentype.SegmentOpLineTo:
			out.Op = OutlineLineTo
		case opentype.SegmentOpQuadTo:
			out.Op, n = OutlineQuadTo, 2
		case opentype.SegmentOpCubeTo:
			out.Op, n = OutlineCubeTo, 3
		default:
			continue
		}
		for i := 0; i < n; i++ {
			p := OutlinePoint{X: seg.Args[i].X * gs.scale, Y: -seg.Args[i].Y * gs.scale}
			out.Points[i] = p
			if first {
				o.Bounds = GlyphBounds{MinX: p.X, MinY: p.Y, MaxX: p.X, MaxY: p.Y}
				first = false
				continue
			}
			o.Bounds.MinX = min(o.Bounds.MinX, p.X)
			o.Bounds.MinY = min(o.Bounds.MinY, p.Y)
			o.Bounds.MaxX = max(o.Bounds.MaxX, p.X)
			o.Bounds.MaxY = max(o.Bounds.MaxY, p.Y)
		}
		o.Segments = append(o.Segments, out)
	}
	return o
}

// Mask returns the cached coverage mask for key, rasterizing it with render
// on a miss. A nil result from render is cached too.
func (gs *GlyphStore) Mask(key MaskKey, render func(o *Outline) *GlyphMask) *GlyphMask {
	return gs.masks.GetOrCreate(key, func() *GlyphMask {
		return render(gs.Outline(key.Glyph))
	})
}

// Size returns the pixel size the store's tables are computed at.
func (gs *GlyphStore) Size() float32 { return gs.size }

// MaskStats returns the mask cache statistics.
func (gs *GlyphStore) MaskStats() cache.Stats { return gs.masks.Stats() }

func (gs *GlyphStore) clear() {
	gs.coverage.clear()
	clear(gs.metrics)
	clear(gs.outlines)
	gs.masks.Clear()
}
