package fontcache

import (
	"cmp"
	"slices"

	"github.com/gogpu/webpaint/fonts"
)

// bestFace picks the face of a family closest to want, following the CSS
// font matching order: stretch first, then slant, then weight.
// It returns false for an empty list.
func bestFace(files []FontFile, want fonts.Descriptor) (FontFile, bool) {
	if len(files) == 0 {
		return FontFile{}, false
	}
	want = want.Normalize()
	best := files[0]
	for _, f := range files[1:] {
		if compareMatch(f, best, want) < 0 {
			best = f
		}
	}
	return best, true
}

// rankFaces returns files sorted best-first for want. Ties keep the
// enumeration order.
func rankFaces(files []FontFile, want fonts.Descriptor) []FontFile {
	want = want.Normalize()
	out := slices.Clone(files)
	slices.SortStableFunc(out, func(a, b FontFile) int { return compareMatch(a, b, want) })
	return out
}

func compareMatch(a, b FontFile, want fonts.Descriptor) int {
	if c := cmp.Compare(stretchDistance(a.Stretch, want.Stretch), stretchDistance(b.Stretch, want.Stretch)); c != 0 {
		return c
	}
	if c := cmp.Compare(slantRank(a.Slant, want.Slant), slantRank(b.Slant, want.Slant)); c != 0 {
		return c
	}
	return cmp.Compare(weightDistance(a.Weight, want.Weight), weightDistance(b.Weight, want.Weight))
}

// stretchDistance prefers narrower faces when want is condensed or normal
// and wider faces when want is expanded.
func stretchDistance(have, want fonts.Stretch) float32 {
	d := float32(have - want)
	if want <= fonts.StretchNormal {
		if d <= 0 {
			return -d
		}
		return 10 + d
	}
	if d >= 0 {
		return d
	}
	return 10 - d
}

func slantRank(have, want fonts.Slant) int {
	if have == want {
		return 0
	}
	switch want {
	case fonts.SlantItalic:
		if have == fonts.SlantOblique {
			return 1
		}
	case fonts.SlantOblique:
		if have == fonts.SlantItalic {
			return 1
		}
	}
	return 2
}

// weightDistance orders candidate weights. For a target between 400 and
// 500, weights up to 500 come first, then lighter ones, then heavier.
// Lighter targets search downward first; heavier targets upward first.
func weightDistance(have, want fonts.Weight) int {
	h, w := int(have), int(want)
	const far = 10000
	switch {
	case w >= 400 && w <= 500:
		switch {
		case h >= w && h <= 500:
			return h - w
		case h < w:
			return far + (w - h)
		default:
			return 2*far + (h - 500)
		}
	case w < 400:
		if h <= w {
			return w - h
		}
		return far + (h - w)
	default:
		if h >= w {
			return h - w
		}
		return far + (w - h)
	}
}
