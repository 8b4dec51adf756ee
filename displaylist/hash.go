package displaylist

import (
	"encoding/binary"
	"hash"
	"hash/fnv"
	"math"
)

// itemHasher feeds an item's paint-relevant content into a 64-bit FNV-1a
// hash.
type itemHasher struct {
	h   hash.Hash64
	buf [8]byte
}

func newItemHasher() *itemHasher {
	return &itemHasher{h: fnv.New64a()}
}

func (ih *itemHasher) u64(v uint64) {
	binary.LittleEndian.PutUint64(ih.buf[:], v)
	ih.h.Write(ih.buf[:])
}

func (ih *itemHasher) u32(v uint32) {
	binary.LittleEndian.PutUint32(ih.buf[:4], v)
	ih.h.Write(ih.buf[:4])
}

func (ih *itemHasher) f32(v float32) { ih.u32(math.Float32bits(v)) }

func (ih *itemHasher) str(s string) {
	ih.u32(uint32(len(s)))
	ih.h.Write([]byte(s))
}

func (ih *itemHasher) color(c Color) {
	ih.h.Write([]byte{c.R, c.G, c.B, c.A})
}

func (ih *itemHasher) point(p Point) {
	ih.f32(p.X)
	ih.f32(p.Y)
}

func (ih *itemHasher) rect(r Rect) {
	ih.f32(r.MinX)
	ih.f32(r.MinY)
	ih.f32(r.MaxX)
	ih.f32(r.MaxY)
}

func (ih *itemHasher) affine(a Affine) {
	for _, v := range [6]float32{a.A, a.B, a.C, a.D, a.E, a.F} {
		ih.f32(v)
	}
}

func (ih *itemHasher) VisitText(it *TextItem) {
	ih.u32(uint32(KindText))
	ih.str(it.Text)
	ih.u32(uint32(len(it.Style.Families)))
	for _, fam := range it.Style.Families {
		ih.str(fam)
	}
	ih.u32(uint32(it.Style.Weight))
	ih.u32(uint32(it.Style.Slant))
	ih.f32(float32(it.Style.Stretch))
	ih.f32(it.Style.Size)
	ih.u32(uint32(it.Script))
	ih.u32(uint32(it.Direction))
	ih.point(it.Origin)
	ih.color(it.Color)
	ih.rect(it.Bounds)
	ih.u32(uint32(len(it.Runs)))
	for _, run := range it.Runs {
		ih.u64(run.Hash())
	}
}

func (ih *itemHasher) VisitRect(it *RectItem) {
	ih.u32(uint32(KindRect))
	ih.rect(it.Rect)
	ih.color(it.Color)
}

func (ih *itemHasher) VisitBorder(it *BorderItem) {
	ih.u32(uint32(KindBorder))
	ih.rect(it.Rect)
	for i := range it.Widths {
		ih.f32(it.Widths[i])
		ih.color(it.Colors[i])
	}
}

func (ih *itemHasher) VisitImage(it *ImageItem) {
	ih.u32(uint32(KindImage))
	ih.u64(uint64(it.Handle))
	ih.rect(it.Rect)
}

func (ih *itemHasher) VisitGradient(it *GradientItem) {
	ih.u32(uint32(KindGradient))
	ih.rect(it.Rect)
	ih.u32(uint32(it.Gradient))
	ih.point(it.Start)
	ih.point(it.End)
	ih.f32(it.Radius)
	ih.u32(uint32(it.Extend))
	ih.u32(uint32(len(it.Stops)))
	for _, s := range it.Stops {
		ih.f32(s.Offset)
		ih.color(s.Color)
	}
}

func (ih *itemHasher) VisitLine(it *LineItem) {
	ih.u32(uint32(KindLine))
	ih.point(it.From)
	ih.point(it.To)
	ih.f32(it.Width)
	ih.color(it.Color)
}

// HashItem returns the content hash of a single item, ignoring where it is
// placed in a list.
func HashItem(it Item) uint64 {
	ih := newItemHasher()
	it.Accept(ih)
	return ih.h.Sum64()
}

// hashFlat hashes a resolved item together with its paint-order path, so
// an item that moves above or below other content no longer matches its
// previous copy.
func hashFlat(fi *FlatItem, path []uint32) uint64 {
	ih := newItemHasher()
	fi.Item.Accept(ih)
	ih.affine(fi.Transform)
	ih.rect(fi.Clip)
	ih.f32(fi.Opacity)
	ih.u32(uint32(len(path)))
	for _, p := range path {
		ih.u32(p)
	}
	return ih.h.Sum64()
}
