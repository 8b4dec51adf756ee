package fonts

import (
	"encoding/binary"
	"hash/fnv"
	"math"
	"slices"
)

// GlyphEntry is one positioned glyph of a shaped run.
type GlyphEntry struct {
	ID GlyphID

	// Advance moves the pen along the run direction, in pixels.
	Advance float32

	// XOffset and YOffset displace the glyph from the pen position without
	// moving the pen. YOffset points up, as in OpenType.
	XOffset float32
	YOffset float32

	// ByteOffset is the start of the glyph's cluster in TextRun.Text.
	ByteOffset int

	// ClusterStart is set on the first glyph of each cluster.
	ClusterStart bool
}

// TextRun is an immutable sequence of shaped glyphs for one string in one
// font. Runs are shared read-only between the shaping cache and any number
// of display items; they must never be modified.
type TextRun struct {
	Text      string
	Script    Script
	Direction Direction

	// Font is the concrete face the run was shaped with.
	Font       Descriptor
	TemplateID TemplateID
	Size       float32

	Glyphs []GlyphEntry

	// Advance is the sum of the glyph advances.
	Advance float32

	// Fallback is set when shaping failed and the run holds .notdef glyphs.
	Fallback bool
}

// Equal reports whether two runs hold the same glyphs for the same input.
func (r *TextRun) Equal(o *TextRun) bool {
	if r == o {
		return true
	}
	if r == nil || o == nil {
		return false
	}
	return r.Text == o.Text &&
		r.Script == o.Script &&
		r.Direction == o.Direction &&
		r.Font == o.Font &&
		r.TemplateID == o.TemplateID &&
		r.Size == o.Size &&
		r.Advance == o.Advance &&
		r.Fallback == o.Fallback &&
		slices.Equal(r.Glyphs, o.Glyphs)
}

// Hash returns a 64-bit FNV-1a hash of the run's content. Equal runs have
// equal hashes.
func (r *TextRun) Hash() uint64 {
	if r == nil {
		return 0
	}
	h := fnv.New64a()
	var buf [8]byte
	u32 := func(v uint32) {
		binary.LittleEndian.PutUint32(buf[:4], v)
		h.Write(buf[:4])
	}
	f32 := func(v float32) { u32(math.Float32bits(v)) }

	u32(uint32(len(r.Text)))
	h.Write([]byte(r.Text))
	u32(uint32(r.Script))
	u32(uint32(r.Direction))
	u32(uint32(len(r.Font.Family)))
	h.Write([]byte(r.Font.Family))
	u32(uint32(r.Font.Weight))
	u32(uint32(r.Font.Slant))
	f32(float32(r.Font.Stretch))
	f32(r.Size)
	binary.LittleEndian.PutUint64(buf[:], uint64(r.TemplateID))
	h.Write(buf[:])
	for _, g := range r.Glyphs {
		u32(uint32(g.ID))
		f32(g.Advance)
		f32(g.XOffset)
		f32(g.YOffset)
		u32(uint32(g.ByteOffset))
		if g.ClusterStart {
			u32(1)
		} else {
			u32(0)
		}
	}
	return h.Sum64()
}

// Len returns the number of glyphs.
func (r *TextRun) Len() int { return len(r.Glyphs) }

// FallbackAdvance is the advance given to each .notdef glyph of a run whose
// shaping failed: half an em.
func FallbackAdvance(size float32) float32 { return size / 2 }

// notdefRun builds the run used when shaping fails: one .notdef glyph per
// rune, each a cluster of its own.
func notdefRun(text string, script Script, dir Direction, f Descriptor, id TemplateID) *TextRun {
	adv := FallbackAdvance(f.Size)
	run := &TextRun{
		Text:       text,
		Script:     script,
		Direction:  dir,
		Font:       f,
		TemplateID: id,
		Size:       f.Size,
		Fallback:   true,
	}
	for i := range text {
		run.Glyphs = append(run.Glyphs, GlyphEntry{ID: NotDef, Advance: adv, ByteOffset: i, ClusterStart: true})
		run.Advance += adv
	}
	return run
}
