package fonts

import (
	"fmt"
	"strings"
	"sync"

	"github.com/go-text/typesetting/di"
	"github.com/go-text/typesetting/font"
	"github.com/go-text/typesetting/language"
	"golang.org/x/text/cases"
)

// Weight is a CSS font weight (100-900).
type Weight uint16

// Common weights.
const (
	WeightThin   Weight = 100
	WeightLight  Weight = 300
	WeightNormal Weight = 400
	WeightMedium Weight = 500
	WeightBold   Weight = 700
	WeightBlack  Weight = 900
)

const weightDefault = WeightNormal

// Slant is the CSS font-style.
type Slant uint8

// Slant values.
const (
	SlantNormal Slant = iota
	SlantItalic
	SlantOblique
)

// String returns the CSS keyword.
func (s Slant) String() string {
	switch s {
	case SlantItalic:
		return "italic"
	case SlantOblique:
		return "oblique"
	default:
		return "normal"
	}
}

// Stretch is a font width as a fraction of normal (1).
type Stretch float32

// StretchNormal is the default width.
const StretchNormal Stretch = 1

// Direction is the direction text flows in.
type Direction uint8

// Text directions.
const (
	DirectionLTR Direction = iota
	DirectionRTL
	DirectionTTB
	DirectionBTT
)

// String returns a short name for the direction.
func (d Direction) String() string {
	switch d {
	case DirectionRTL:
		return "rtl"
	case DirectionTTB:
		return "ttb"
	case DirectionBTT:
		return "btt"
	default:
		return "ltr"
	}
}

// IsVertical reports whether glyphs advance along the y axis.
func (d Direction) IsVertical() bool {
	return d == DirectionTTB || d == DirectionBTT
}

func (d Direction) di() di.Direction {
	switch d {
	case DirectionRTL:
		return di.DirectionRTL
	case DirectionTTB:
		return di.DirectionTTB
	case DirectionBTT:
		return di.DirectionBTT
	default:
		return di.DirectionLTR
	}
}

// Script is an ISO 15924 script tag.
type Script = language.Script

// Descriptor names one concrete font instance. It is a comparable value
// used directly as a cache key.
type Descriptor struct {
	Family  string
	Weight  Weight
	Slant   Slant
	Stretch Stretch

	// Size is the pixel size (ppem).
	Size float32
}

// String formats the descriptor like a CSS font shorthand.
func (d Descriptor) String() string {
	return fmt.Sprintf("%s %d %s %.2f %gpx", d.Family, d.Weight, d.Slant, float32(d.Stretch), d.Size)
}

// Normalize fills zero fields with their defaults.
func (d Descriptor) Normalize() Descriptor {
	if d.Weight == 0 {
		d.Weight = weightDefault
	}
	if d.Stretch == 0 {
		d.Stretch = StretchNormal
	}
	return d
}

// MatchKey returns the size-independent, case-folded key under which font
// files are matched. Font files do not depend on the requested size.
func (d Descriptor) MatchKey() Descriptor {
	d = d.Normalize()
	d.Family = FoldFamily(d.Family)
	d.Size = 0
	return d
}

// WithSize returns d at another pixel size.
func (d Descriptor) WithSize(size float32) Descriptor {
	d.Size = size
	return d
}

var (
	folderMu sync.Mutex
	folder   = cases.Fold()
)

// FoldFamily returns the case-folded, trimmed family name used for matching.
func FoldFamily(name string) string {
	name = strings.TrimSpace(strings.Trim(name, `"'`))
	folderMu.Lock()
	defer folderMu.Unlock()
	return folder.String(name)
}

// FromAspect converts go-text's face aspect. Unset fields map to the
// defaults.
func FromAspect(a font.Aspect) (Weight, Slant, Stretch) {
	w := Weight(a.Weight + 0.5)
	if w == 0 {
		w = weightDefault
	}
	s := SlantNormal
	if a.Style == font.StyleItalic {
		s = SlantItalic
	}
	st := Stretch(a.Stretch)
	if st == 0 {
		st = StretchNormal
	}
	return w, s, st
}

// Generic is a CSS generic family keyword.
type Generic uint8

// Generic families.
const (
	GenericNone Generic = iota
	GenericSerif
	GenericSansSerif
	GenericMonospace
	GenericCursive
	GenericFantasy
	GenericSystemUI
)

var genericNames = [...]string{
	GenericNone:      "",
	GenericSerif:     "serif",
	GenericSansSerif: "sans-serif",
	GenericMonospace: "monospace",
	GenericCursive:   "cursive",
	GenericFantasy:   "fantasy",
	GenericSystemUI:  "system-ui",
}

// String returns the CSS keyword.
func (g Generic) String() string {
	if int(g) < len(genericNames) {
		return genericNames[g]
	}
	return ""
}

// ParseGeneric reports whether name is a generic family keyword.
func ParseGeneric(name string) (Generic, bool) {
	name = FoldFamily(name)
	for g, n := range genericNames {
		if g != int(GenericNone) && n == name {
			return Generic(g), true
		}
	}
	return GenericNone, false
}

// Style is the font part of a computed text style: a prioritized family
// list plus the requested face attributes.
type Style struct {
	Families []string
	Weight   Weight
	Slant    Slant
	Stretch  Stretch
	Size     float32
}

// StyleKey is the comparable form of a Style.
type StyleKey struct {
	families string
	weight   Weight
	slant    Slant
	stretch  Stretch
	size     float32
}

// Key returns a comparable key for s. Family names are case-folded.
func (s Style) Key() StyleKey {
	folded := make([]string, len(s.Families))
	for i, f := range s.Families {
		folded[i] = FoldFamily(f)
	}
	d := s.Descriptor("").Normalize()
	return StyleKey{
		families: strings.Join(folded, "\x00"),
		weight:   d.Weight,
		slant:    d.Slant,
		stretch:  d.Stretch,
		size:     d.Size,
	}
}

// Descriptor returns the descriptor of family in this style.
func (s Style) Descriptor(family string) Descriptor {
	return Descriptor{
		Family:  family,
		Weight:  s.Weight,
		Slant:   s.Slant,
		Stretch: s.Stretch,
		Size:    s.Size,
	}.Normalize()
}

// Generic returns the first generic keyword in the family list, or
// GenericNone.
func (s Style) Generic() Generic {
	for _, f := range s.Families {
		if g, ok := ParseGeneric(f); ok {
			return g
		}
	}
	return GenericNone
}
