package displaylist

import (
	"errors"
	"fmt"
	"sync/atomic"
)

// Epoch identifies the display list generation that produced a result.
// Epochs are assigned by a Sequencer and increase monotonically.
type Epoch uint64

// Sequencer hands out epochs. The first epoch is 0. It is safe for
// concurrent use.
type Sequencer struct {
	next atomic.Uint64
}

// Next returns the next epoch.
func (s *Sequencer) Next() Epoch {
	return Epoch(s.next.Add(1) - 1)
}

// Peek returns the epoch the next call to Next will return.
func (s *Sequencer) Peek() Epoch {
	return Epoch(s.next.Load())
}

// Child references either an item (Context == 0) or a nested stacking
// context. The root context is never a child.
type Child struct {
	Item    int
	Context ContextID
}

// IsContext reports whether the child is a nested stacking context.
func (c Child) IsContext() bool { return c.Context != 0 }

// StackingContext groups items and nested contexts that share a z-order,
// a transform and an opacity.
type StackingContext struct {
	ID     ContextID
	Parent ContextID
	Z      int32

	// Opacity is this context's own opacity. Effective opacity is the
	// product along the path from the root.
	Opacity float32

	// Transform and Clip are the resolved (world) values in effect when the
	// context was pushed.
	Transform TransformID
	Clip      ClipID

	// Bounds is the union of the clipped world bounds of every descendant.
	Bounds Rect

	Children []Child
}

// DisplayList is an immutable tree of stacking contexts stored as an arena.
// Contexts[0] is the root. Clips and Transforms hold resolved world values;
// index 0 is the unbounded clip and the identity transform.
type DisplayList struct {
	Epoch      Epoch
	Contexts   []StackingContext
	Items      []Item
	Clips      []Rect
	Transforms []Affine
}

// Validation errors.
var (
	ErrBadReference  = errors.New("displaylist: dangling table reference")
	ErrClipViolation = errors.New("displaylist: content escapes its clip")
)

// Root returns the root stacking context.
func (dl *DisplayList) Root() *StackingContext {
	return &dl.Contexts[0]
}

// Context returns the stacking context with the given id.
func (dl *DisplayList) Context(id ContextID) *StackingContext {
	return &dl.Contexts[id]
}

// Clip returns the resolved clip rectangle for id.
func (dl *DisplayList) Clip(id ClipID) Rect {
	return dl.Clips[id]
}

// Transform returns the resolved transform for id.
func (dl *DisplayList) Transform(id TransformID) Affine {
	return dl.Transforms[id]
}

// Bounds returns the painted extent of the whole list.
func (dl *DisplayList) Bounds() Rect {
	return dl.Root().Bounds
}

// ItemBounds returns the world bounds of item i clipped by its clip.
func (dl *DisplayList) ItemBounds(i int) Rect {
	it := dl.Items[i]
	refs := it.Refs()
	return dl.Transforms[refs.Transform].TransformRect(it.LocalBounds()).Intersect(dl.Clips[refs.Clip])
}

// Len returns the number of items.
func (dl *DisplayList) Len() int { return len(dl.Items) }

// Validate checks table references and the clip containment invariant:
// every item's clipped bounds lie inside its clip and its context's bounds,
// and every context's bounds lie inside its parent's.
func (dl *DisplayList) Validate() error {
	if len(dl.Contexts) == 0 || len(dl.Clips) == 0 || len(dl.Transforms) == 0 {
		return fmt.Errorf("%w: missing root tables", ErrBadReference)
	}
	seen := make([]bool, len(dl.Items))
	for ci := range dl.Contexts {
		sc := &dl.Contexts[ci]
		if int(sc.ID) != ci {
			return fmt.Errorf("%w: context %d has id %d", ErrBadReference, ci, sc.ID)
		}
		if int(sc.Clip) >= len(dl.Clips) || int(sc.Transform) >= len(dl.Transforms) {
			return fmt.Errorf("%w: context %d", ErrBadReference, ci)
		}
		if ci != 0 {
			if int(sc.Parent) >= len(dl.Contexts) {
				return fmt.Errorf("%w: context %d parent %d", ErrBadReference, ci, sc.Parent)
			}
			if !dl.Contexts[sc.Parent].Bounds.Contains(sc.Bounds) {
				return fmt.Errorf("%w: context %d bounds %v outside parent %v",
					ErrClipViolation, ci, sc.Bounds, dl.Contexts[sc.Parent].Bounds)
			}
		}
		for _, ch := range sc.Children {
			if ch.IsContext() {
				if int(ch.Context) >= len(dl.Contexts) || dl.Contexts[ch.Context].Parent != sc.ID {
					return fmt.Errorf("%w: context %d child %d", ErrBadReference, ci, ch.Context)
				}
				continue
			}
			if ch.Item < 0 || ch.Item >= len(dl.Items) || seen[ch.Item] {
				return fmt.Errorf("%w: context %d item %d", ErrBadReference, ci, ch.Item)
			}
			seen[ch.Item] = true
			refs := dl.Items[ch.Item].Refs()
			if refs.Context != sc.ID || int(refs.Clip) >= len(dl.Clips) || int(refs.Transform) >= len(dl.Transforms) {
				return fmt.Errorf("%w: item %d", ErrBadReference, ch.Item)
			}
			b := dl.ItemBounds(ch.Item)
			if !dl.Clips[refs.Clip].Contains(b) || !sc.Bounds.Contains(b) {
				return fmt.Errorf("%w: item %d bounds %v", ErrClipViolation, ch.Item, b)
			}
		}
	}
	for i, ok := range seen {
		if !ok {
			return fmt.Errorf("%w: item %d is not in any context", ErrBadReference, i)
		}
	}
	return nil
}
