package fonts

import (
	"bytes"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/go-text/typesetting/font"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/gogpu/webpaint"
)

// TemplateID identifies a Template for the lifetime of the process.
type TemplateID uint64

var nextTemplateID atomic.Uint64

// Source locates the file a template was loaded from.
type Source struct {
	// Path is the file path, or a "bundled:" name for embedded fonts.
	Path string

	// Index selects a face inside a font collection.
	Index int
}

// Metrics are a face's static vertical metrics in font units.
type Metrics struct {
	UnitsPerEm uint16
	Ascent     float32
	Descent    float32 // positive, below the baseline
	LineGap    float32
}

// Scale converts a font-unit value to pixels at size.
func (m Metrics) Scale(v, size float32) float32 {
	if m.UnitsPerEm == 0 {
		return 0
	}
	return v * size / float32(m.UnitsPerEm)
}

// Template is an immutable font file plus its parsed face and static
// metrics. It is shared by every Font built on the same file and is safe for
// concurrent use.
//
// Templates are reference counted. The creator owns the first reference;
// Acquire adds one and Release drops one. When the count reaches zero the
// bytes and parsed face are dropped. Permanent templates are never dropped.
type Template struct {
	id         TemplateID
	source     Source
	desc       Descriptor
	metrics    Metrics
	permanent  bool
	lastResort bool

	refs atomic.Int64

	mu   sync.RWMutex
	data []byte
	font *font.Font
}

// ParseTemplate parses face src.Index of data. The returned template holds
// one reference owned by the caller.
func ParseTemplate(data []byte, src Source) (*Template, error) {
	if len(data) == 0 {
		return nil, ErrEmptyFontData
	}
	faces, err := font.ParseTTC(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("fonts: parse %s: %w", src.Path, err)
	}
	if src.Index < 0 || src.Index >= len(faces) {
		return nil, fmt.Errorf("fonts: parse %s: face index %d of %d", src.Path, src.Index, len(faces))
	}
	face := faces[src.Index]

	desc := face.Describe()
	w, s, st := FromAspect(desc.Aspect)
	m := Metrics{UnitsPerEm: face.Upem()}
	if ext, ok := face.FontHExtents(); ok {
		m.Ascent = ext.Ascender
		m.Descent = -ext.Descender
		m.LineGap = ext.LineGap
	}

	t := &Template{
		id:      TemplateID(nextTemplateID.Add(1)),
		source:  src,
		desc:    Descriptor{Family: desc.Family, Weight: w, Slant: s, Stretch: st},
		metrics: m,
		data:    data,
		font:    face.Font,
	}
	t.refs.Store(1)
	return t, nil
}

// ParseTemplateAs parses like ParseTemplate but describes the face as
// declared, typically by the enumerator that listed it. Non-zero fields of
// declared replace what the file reports, so a face listed as bold is bold
// even when its OS/2 weight class says 600.
func ParseTemplateAs(data []byte, src Source, declared Descriptor) (*Template, error) {
	t, err := ParseTemplate(data, src)
	if err != nil {
		return nil, err
	}
	if declared.Family != "" {
		t.desc.Family = declared.Family
	}
	if declared.Weight != 0 {
		t.desc.Weight = declared.Weight
	}
	if declared.Slant != SlantNormal {
		t.desc.Slant = declared.Slant
	}
	if declared.Stretch != 0 {
		t.desc.Stretch = declared.Stretch
	}
	return t, nil
}

// ID returns the template's process-unique id.
func (t *Template) ID() TemplateID { return t.id }

// Source returns where the template was loaded from.
func (t *Template) Source() Source { return t.source }

// Descriptor returns the face's family and aspect. Size is zero.
func (t *Template) Descriptor() Descriptor { return t.desc }

// Metrics returns the face's vertical metrics in font units.
func (t *Template) Metrics() Metrics { return t.metrics }

// Permanent reports whether the template survives a zero reference count.
func (t *Template) Permanent() bool { return t.permanent }

// IsLastResort reports whether this is the bundled last-resort face.
func (t *Template) IsLastResort() bool { return t.lastResort }

// Data returns the font bytes, or nil once the template has been dropped.
// The slice must not be modified.
func (t *Template) Data() []byte {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.data
}

// Font returns the parsed face, or nil once the template has been dropped.
func (t *Template) Font() *font.Font {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.font
}

// Refs returns the current reference count.
func (t *Template) Refs() int64 { return t.refs.Load() }

// Acquire adds a reference and returns t.
func (t *Template) Acquire() *Template {
	t.refs.Add(1)
	return t
}

// Release drops a reference. The last release of a non-permanent template
// frees its data.
func (t *Template) Release() {
	n := t.refs.Add(-1)
	switch {
	case n > 0 || t.permanent:
	case n == 0:
		t.mu.Lock()
		t.data = nil
		t.font = nil
		t.mu.Unlock()
		webpaint.Logger().Debug("fonts: template dropped", "family", t.desc.Family, "path", t.source.Path)
	default:
		t.refs.Store(0)
		webpaint.Logger().Warn("fonts: template over-released", "family", t.desc.Family, "path", t.source.Path)
	}
}

// Alive reports whether the template still holds its data.
func (t *Template) Alive() bool { return t.Font() != nil }

// LastResortFamily is the family name of the bundled last-resort face.
const LastResortFamily = "Go"

var (
	lastResortOnce sync.Once
	lastResort     *Template
)

// LastResort returns the bundled last-resort template (Go Regular). It is
// parsed on first use and never dropped. A Font built on it reports
// coverage for every rune; runes it has no glyph for shape to glyph 0 and
// paint as a missing-glyph box.
func LastResort() *Template {
	lastResortOnce.Do(func() {
		t, err := ParseTemplate(goregular.TTF, Source{Path: "bundled:goregular"})
		if err != nil {
			panic("fonts: bundled last-resort font: " + err.Error())
		}
		t.permanent = true
		t.lastResort = true
		lastResort = t
	})
	return lastResort
}

// LastResortDescriptor returns the last-resort face at size.
func LastResortDescriptor(size float32) Descriptor {
	return LastResort().Descriptor().WithSize(size)
}
