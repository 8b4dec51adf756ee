package fontcache

import (
	"errors"
	"os"
	"path/filepath"
	"sync"

	"github.com/go-fonts/latin-modern/lmmono10regular"
	"github.com/go-fonts/latin-modern/lmroman10bold"
	"github.com/go-fonts/latin-modern/lmroman10italic"
	"github.com/go-fonts/latin-modern/lmroman10regular"
	"github.com/go-text/typesetting/fontscan"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gobolditalic"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/gomonobold"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/gogpu/webpaint"
	"github.com/gogpu/webpaint/fonts"
)

// FontFile describes one face available to the service.
type FontFile struct {
	// Path is the file path, or a "bundled:" name for embedded data.
	Path  string
	Index int

	Family  string
	Weight  fonts.Weight
	Slant   fonts.Slant
	Stretch fonts.Stretch

	// Data holds the bytes of embedded faces. It is nil for files on disk.
	Data []byte
}

// Descriptor returns the face as a size-less descriptor.
func (f FontFile) Descriptor() fonts.Descriptor {
	return fonts.Descriptor{Family: f.Family, Weight: f.Weight, Slant: f.Slant, Stretch: f.Stretch}.Normalize()
}

// declared returns the face attributes as listed, without defaults.
func (f FontFile) declared() fonts.Descriptor {
	return fonts.Descriptor{Family: f.Family, Weight: f.Weight, Slant: f.Slant, Stretch: f.Stretch}
}

func (f FontFile) source() fonts.Source {
	return fonts.Source{Path: f.Path, Index: f.Index}
}

// Enumerator lists the faces of a family. It is the platform font
// enumeration capability. Implementations must be safe for concurrent use
// and match family names case-insensitively (see fonts.FoldFamily).
// A family with no faces returns an empty list and no error.
type Enumerator interface {
	Enumerate(family string) ([]FontFile, error)
}

// =============================================================================
// System fonts
// =============================================================================

// SystemEnumerator lists installed fonts using go-text's fontscan index.
// The index is built on first use and reused from CacheDir across runs.
type SystemEnumerator struct {
	// CacheDir holds fontscan's index. Empty means the user cache directory.
	CacheDir string

	once     sync.Once
	families map[string][]FontFile
	err      error
}

// Enumerate implements Enumerator.
func (e *SystemEnumerator) Enumerate(family string) ([]FontFile, error) {
	e.once.Do(e.index)
	if e.err != nil {
		return nil, e.err
	}
	return e.families[fonts.FoldFamily(family)], nil
}

func (e *SystemEnumerator) index() {
	dir := e.CacheDir
	if dir == "" {
		base, err := os.UserCacheDir()
		if err != nil {
			base = os.TempDir()
		}
		dir = filepath.Join(base, "webpaint")
	}
	footprints, err := fontscan.SystemFonts(nil, dir)
	if err != nil {
		e.err = err
		webpaint.Logger().Warn("fontcache: system font scan failed", "err", err)
		return
	}
	e.families = make(map[string][]FontFile)
	for _, fp := range footprints {
		w, s, st := fonts.FromAspect(fp.Aspect)
		key := fonts.FoldFamily(fp.Family)
		e.families[key] = append(e.families[key], FontFile{
			Path:    fp.Location.File,
			Index:   int(fp.Location.Index),
			Family:  fp.Family,
			Weight:  w,
			Slant:   s,
			Stretch: st,
		})
	}
	webpaint.Logger().Info("fontcache: system fonts indexed", "faces", len(footprints), "families", len(e.families))
}

// =============================================================================
// Bundled fonts
// =============================================================================

// Bundled family names.
const (
	FamilyGo           = "Go"
	FamilyGoMono       = "Go Mono"
	FamilyLatinModern  = "Latin Modern Roman"
	FamilyLatinModMono = "Latin Modern Mono"
)

// BundledEnumerator serves the fonts compiled into the binary: the Go
// family from golang.org/x/image and Latin Modern from go-fonts.
type BundledEnumerator struct {
	families map[string][]FontFile
}

var (
	bundledOnce sync.Once
	bundled     *BundledEnumerator
)

// Bundled returns the shared bundled-font enumerator.
func Bundled() *BundledEnumerator {
	bundledOnce.Do(func() {
		files := []FontFile{
			{Path: "bundled:goregular", Family: FamilyGo, Weight: fonts.WeightNormal, Data: goregular.TTF},
			{Path: "bundled:gobold", Family: FamilyGo, Weight: fonts.WeightBold, Data: gobold.TTF},
			{Path: "bundled:goitalic", Family: FamilyGo, Weight: fonts.WeightNormal, Slant: fonts.SlantItalic, Data: goitalic.TTF},
			{Path: "bundled:gobolditalic", Family: FamilyGo, Weight: fonts.WeightBold, Slant: fonts.SlantItalic, Data: gobolditalic.TTF},
			{Path: "bundled:gomono", Family: FamilyGoMono, Weight: fonts.WeightNormal, Data: gomono.TTF},
			{Path: "bundled:gomonobold", Family: FamilyGoMono, Weight: fonts.WeightBold, Data: gomonobold.TTF},
			{Path: "bundled:lmroman10regular", Family: FamilyLatinModern, Weight: fonts.WeightNormal, Data: lmroman10regular.TTF},
			{Path: "bundled:lmroman10bold", Family: FamilyLatinModern, Weight: fonts.WeightBold, Data: lmroman10bold.TTF},
			{Path: "bundled:lmroman10italic", Family: FamilyLatinModern, Weight: fonts.WeightNormal, Slant: fonts.SlantItalic, Data: lmroman10italic.TTF},
			{Path: "bundled:lmmono10regular", Family: FamilyLatinModMono, Weight: fonts.WeightNormal, Data: lmmono10regular.TTF},
		}
		b := &BundledEnumerator{families: make(map[string][]FontFile)}
		for _, f := range files {
			f.Stretch = fonts.StretchNormal
			key := fonts.FoldFamily(f.Family)
			b.families[key] = append(b.families[key], f)
		}
		bundled = b
	})
	return bundled
}

// Enumerate implements Enumerator.
func (b *BundledEnumerator) Enumerate(family string) ([]FontFile, error) {
	return b.families[fonts.FoldFamily(family)], nil
}

// DefaultGenerics maps generic families to bundled families.
func DefaultGenerics() map[fonts.Generic][]string {
	return map[fonts.Generic][]string{
		fonts.GenericSerif:     {FamilyLatinModern},
		fonts.GenericSansSerif: {FamilyGo},
		fonts.GenericMonospace: {FamilyGoMono, FamilyLatinModMono},
		fonts.GenericCursive:   {FamilyLatinModern},
		fonts.GenericFantasy:   {FamilyLatinModern},
		fonts.GenericSystemUI:  {FamilyGo},
	}
}

// =============================================================================
// Chains
// =============================================================================

// ChainEnumerator asks each enumerator in turn and returns the first
// non-empty result. Errors are skipped unless every enumerator fails.
type ChainEnumerator []Enumerator

// Enumerate implements Enumerator.
func (c ChainEnumerator) Enumerate(family string) ([]FontFile, error) {
	var errs []error
	for _, e := range c {
		files, err := e.Enumerate(family)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if len(files) > 0 {
			return files, nil
		}
	}
	if len(errs) == len(c) && len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return nil, nil
}

// =============================================================================
// Loading
// =============================================================================

// Loader reads the bytes of a face.
type Loader interface {
	Load(f FontFile) ([]byte, error)
}

// LoaderFunc adapts a function to Loader.
type LoaderFunc func(f FontFile) ([]byte, error)

// Load implements Loader.
func (fn LoaderFunc) Load(f FontFile) ([]byte, error) { return fn(f) }

// FileLoader returns embedded data or reads the file from disk.
var FileLoader Loader = LoaderFunc(func(f FontFile) ([]byte, error) {
	if f.Data != nil {
		return f.Data, nil
	}
	return os.ReadFile(f.Path)
})
