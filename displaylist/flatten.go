package displaylist

import (
	"cmp"
	"slices"
)

// FlatItem is an item resolved to device space, ready to paint.
type FlatItem struct {
	Item Item

	// Index is the item's position in DisplayList.Items.
	Index int

	// Seq is the item's position in paint order.
	Seq int

	// Transform maps the item's local space to device pixels.
	Transform Affine

	// Clip is the device-space clip; the item paints nothing outside it.
	Clip Rect

	// Opacity is the product of the opacities of every enclosing context.
	Opacity float32

	// Bounds is the device-space extent of the item, already clipped.
	Bounds Rect

	// Hash identifies the item's painted appearance. Equal hashes mean the
	// item paints the same pixels in the same place.
	Hash uint64
}

// Flatten walks dl in paint order and resolves every item against base,
// the transform from display-list space to device pixels. Items whose
// clipped bounds are empty are dropped.
//
// Within one stacking context the order is: child contexts with negative z
// (stable by z), then items and z == 0 contexts in insertion order, then
// child contexts with positive z (stable by z).
func Flatten(dl *DisplayList, base Affine) []FlatItem {
	if dl == nil || len(dl.Contexts) == 0 {
		return nil
	}
	f := flattener{dl: dl, base: base, out: make([]FlatItem, 0, len(dl.Items))}
	f.walk(0, 1, nil)
	return f.out
}

type flattener struct {
	dl   *DisplayList
	base Affine
	out  []FlatItem
}

// walk emits the items of context id. path holds the paint-order position
// of every enclosing context within its parent.
func (f *flattener) walk(id ContextID, opacity float32, path []uint32) {
	sc := &f.dl.Contexts[id]
	opacity *= sc.Opacity
	for i, ch := range PaintOrder(f.dl, sc) {
		if ch.IsContext() {
			f.walk(ch.Context, opacity, append(path, uint32(i)))
			continue
		}
		f.emit(ch.Item, opacity, append(path, uint32(i)))
	}
}

func (f *flattener) emit(idx int, opacity float32, path []uint32) {
	it := f.dl.Items[idx]
	refs := it.Refs()
	clip := f.base.TransformRect(f.dl.Clips[refs.Clip])
	bounds := f.base.TransformRect(f.dl.ItemBounds(idx)).Intersect(clip)
	if bounds.IsEmpty() || opacity <= 0 {
		return
	}
	fi := FlatItem{
		Item:      it,
		Index:     idx,
		Seq:       len(f.out),
		Transform: f.base.Multiply(f.dl.Transforms[refs.Transform]),
		Clip:      clip,
		Opacity:   opacity,
		Bounds:    bounds,
	}
	fi.Hash = hashFlat(&fi, path)
	f.out = append(f.out, fi)
}

// PaintOrder returns the children of sc in back-to-front order.
func PaintOrder(dl *DisplayList, sc *StackingContext) []Child {
	var neg, pos []Child
	mid := make([]Child, 0, len(sc.Children))
	for _, ch := range sc.Children {
		if !ch.IsContext() {
			mid = append(mid, ch)
			continue
		}
		switch z := dl.Contexts[ch.Context].Z; {
		case z < 0:
			neg = append(neg, ch)
		case z > 0:
			pos = append(pos, ch)
		default:
			mid = append(mid, ch)
		}
	}
	if neg == nil && pos == nil {
		return mid
	}
	byZ := func(a, b Child) int {
		return cmp.Compare(dl.Contexts[a.Context].Z, dl.Contexts[b.Context].Z)
	}
	slices.SortStableFunc(neg, byZ)
	slices.SortStableFunc(pos, byZ)
	order := make([]Child, 0, len(sc.Children))
	order = append(order, neg...)
	order = append(order, mid...)
	return append(order, pos...)
}

// Cull returns the items of flat that overlap rect, with their clip and
// bounds narrowed to rect. Paint order is preserved.
func Cull(flat []FlatItem, rect Rect) []FlatItem {
	var out []FlatItem
	for _, fi := range flat {
		if !fi.Bounds.Overlaps(rect) {
			continue
		}
		fi.Clip = fi.Clip.Intersect(rect)
		fi.Bounds = fi.Bounds.Intersect(rect)
		out = append(out, fi)
	}
	return out
}

// Damage returns the device-space regions whose pixels may differ between
// prev and next. Items are matched as a multiset by Hash; every unmatched
// item on either side contributes its bounds.
func Damage(prev, next []FlatItem) []Rect {
	pending := make(map[uint64][]Rect, len(prev))
	for _, fi := range prev {
		pending[fi.Hash] = append(pending[fi.Hash], fi.Bounds)
	}
	var damage []Rect
	for _, fi := range next {
		if rs := pending[fi.Hash]; len(rs) > 0 {
			pending[fi.Hash] = rs[1:]
			continue
		}
		damage = append(damage, fi.Bounds)
	}
	// Deterministic order for the leftovers.
	for _, fi := range prev {
		if rs := pending[fi.Hash]; len(rs) > 0 {
			damage = append(damage, rs[0])
			pending[fi.Hash] = rs[1:]
		}
	}
	return damage
}
