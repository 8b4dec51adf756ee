package fonts

import (
	"fmt"
	"sync"
	"unicode/utf8"

	"github.com/go-text/typesetting/font"
	"github.com/go-text/typesetting/language"
	"github.com/go-text/typesetting/shaping"
	"golang.org/x/image/math/fixed"
)

// ShapeInput is one run handed to a Shaper.
type ShapeInput struct {
	Text      string
	Script    Script
	Direction Direction

	// Size is the pixel size.
	Size float32

	// Face is the Font's private face. Faces are not safe for concurrent use.
	Face *font.Face
}

// Shaper converts text into positioned glyphs. Implementations must be
// deterministic: the same input always yields the same glyphs.
type Shaper interface {
	Shape(in ShapeInput) ([]GlyphEntry, error)
}

// HarfbuzzShaper shapes with go-text/typesetting's HarfBuzz port. It is safe
// for concurrent use: shaping buffers are pooled, and each caller supplies
// its own face.
type HarfbuzzShaper struct {
	pool sync.Pool
	lang language.Language
}

// NewHarfbuzzShaper returns a HarfBuzz shaper using the given language tag
// for language-sensitive features. An empty tag means "en".
func NewHarfbuzzShaper(lang string) *HarfbuzzShaper {
	if lang == "" {
		lang = "en"
	}
	return &HarfbuzzShaper{
		pool: sync.Pool{New: func() any { return &shaping.HarfbuzzShaper{} }},
		lang: language.NewLanguage(lang),
	}
}

var defaultShaper = NewHarfbuzzShaper("")

// DefaultShaper returns the process-wide HarfBuzz shaper.
func DefaultShaper() *HarfbuzzShaper { return defaultShaper }

// Shape implements Shaper. Panics inside the shaping engine on malformed
// font data are reported as a *ShapingError.
func (s *HarfbuzzShaper) Shape(in ShapeInput) (glyphs []GlyphEntry, err error) {
	if in.Face == nil {
		return nil, &ShapingError{Text: in.Text, Reason: "no face"}
	}
	if !utf8.ValidString(in.Text) {
		return nil, &ShapingError{Text: in.Text, Reason: "invalid UTF-8"}
	}
	if in.Text == "" {
		return nil, nil
	}

	runes := []rune(in.Text)
	// byteAt maps a rune index to its byte offset in Text.
	byteAt := make([]int, 0, len(runes)+1)
	for i := range in.Text {
		byteAt = append(byteAt, i)
	}
	byteAt = append(byteAt, len(in.Text))

	hb := s.pool.Get().(*shaping.HarfbuzzShaper)
	defer func() {
		if r := recover(); r != nil {
			// A shaper that panicked may hold corrupt state; do not return it.
			glyphs, err = nil, &ShapingError{Text: in.Text, Reason: fmt.Sprint(r)}
			return
		}
		s.pool.Put(hb)
	}()

	out := hb.Shape(shaping.Input{
		Text:      runes,
		RunStart:  0,
		RunEnd:    len(runes),
		Direction: in.Direction.di(),
		Face:      in.Face,
		Size:      floatToFixed(in.Size),
		Script:    in.Script,
		Language:  s.lang,
	})

	glyphs = make([]GlyphEntry, len(out.Glyphs))
	prevCluster := -1
	for i, g := range out.Glyphs {
		cluster := g.TextIndex()
		if cluster < 0 {
			cluster = 0
		} else if cluster >= len(runes) {
			cluster = len(runes) - 1
		}
		glyphs[i] = GlyphEntry{
			ID:           GlyphID(g.GlyphID),
			Advance:      fixedToFloat(g.Advance),
			XOffset:      fixedToFloat(g.XOffset),
			YOffset:      fixedToFloat(g.YOffset),
			ByteOffset:   byteAt[cluster],
			ClusterStart: cluster != prevCluster,
		}
		prevCluster = cluster
	}
	return glyphs, nil
}

// floatToFixed converts a pixel size to 26.6 fixed point.
func floatToFixed(v float32) fixed.Int26_6 {
	return fixed.Int26_6(v * 64)
}

// fixedToFloat converts a 26.6 fixed-point value to pixels.
func fixedToFloat(v fixed.Int26_6) float32 {
	return float32(v) / 64
}
