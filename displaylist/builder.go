package displaylist

import (
	"errors"
	"fmt"
)

// Builder errors.
var (
	ErrUnbalanced = errors.New("displaylist: unbalanced push/pop")
	ErrNilItem    = errors.New("displaylist: nil item")
)

// frame is one open stacking context with the clip and transform stack
// depths at the moment it was pushed. Clips and transforms pushed inside a
// context must be popped before the context is.
type frame struct {
	ctx            ContextID
	clipDepth      int
	transformDepth int
}

// Builder assembles a DisplayList bottom-up. Items are appended to the
// innermost open stacking context under the current clip and transform.
//
// The first error is sticky: later calls are ignored and Finish reports it.
// A Builder is not safe for concurrent use.
type Builder struct {
	seq *Sequencer
	dl  *DisplayList

	frames     []frame
	clips      []ClipID
	transforms []TransformID

	err error
}

// NewBuilder returns a builder whose Finish takes the next epoch from seq.
// A nil seq uses a private sequencer, so every such list gets epoch 0.
func NewBuilder(seq *Sequencer) *Builder {
	if seq == nil {
		seq = &Sequencer{}
	}
	b := &Builder{seq: seq}
	b.reset()
	return b
}

func (b *Builder) reset() {
	b.dl = &DisplayList{
		Contexts:   []StackingContext{{ID: 0, Opacity: 1}},
		Clips:      []Rect{InfiniteRect()},
		Transforms: []Affine{IdentityAffine()},
	}
	b.dl.Contexts[0].Bounds = EmptyRect()
	b.frames = append(b.frames[:0], frame{})
	b.clips = b.clips[:0]
	b.transforms = b.transforms[:0]
	b.err = nil
}

// Err returns the first error recorded by the builder.
func (b *Builder) Err() error { return b.err }

func (b *Builder) fail(err error) error {
	if b.err == nil {
		b.err = err
	}
	return err
}

func (b *Builder) top() frame { return b.frames[len(b.frames)-1] }

func (b *Builder) clip() ClipID {
	if len(b.clips) == 0 {
		return 0
	}
	return b.clips[len(b.clips)-1]
}

func (b *Builder) transform() TransformID {
	if len(b.transforms) == 0 {
		return 0
	}
	return b.transforms[len(b.transforms)-1]
}

// PushClip intersects the current clip with rect, given in the current
// local coordinate space. Rotated clips are approximated by their bounding
// box.
func (b *Builder) PushClip(rect Rect) {
	if b.err != nil {
		return
	}
	world := b.dl.Transforms[b.transform()].TransformRect(rect)
	resolved := b.dl.Clips[b.clip()].Intersect(world)
	id := ClipID(len(b.dl.Clips))
	b.dl.Clips = append(b.dl.Clips, resolved)
	b.clips = append(b.clips, id)
}

// PopClip restores the clip in effect before the matching PushClip.
func (b *Builder) PopClip() error {
	if err := b.usable(); err != nil {
		return err
	}
	if len(b.clips) <= b.top().clipDepth {
		return b.fail(fmt.Errorf("%w: PopClip without PushClip", ErrUnbalanced))
	}
	b.clips = b.clips[:len(b.clips)-1]
	return nil
}

// PushTransform composes t with the current transform; t applies first.
func (b *Builder) PushTransform(t Affine) {
	if b.err != nil {
		return
	}
	b.transforms = append(b.transforms, b.compose(t))
}

func (b *Builder) compose(t Affine) TransformID {
	cur := b.transform()
	if t.IsIdentity() {
		return cur
	}
	id := TransformID(len(b.dl.Transforms))
	b.dl.Transforms = append(b.dl.Transforms, b.dl.Transforms[cur].Multiply(t))
	return id
}

// PopTransform restores the transform in effect before the matching
// PushTransform.
func (b *Builder) PopTransform() error {
	if err := b.usable(); err != nil {
		return err
	}
	if len(b.transforms) <= b.top().transformDepth {
		return b.fail(fmt.Errorf("%w: PopTransform without PushTransform", ErrUnbalanced))
	}
	b.transforms = b.transforms[:len(b.transforms)-1]
	return nil
}

// PushStackingContext opens a nested stacking context with the given
// z-index, transform and opacity, and returns its id.
func (b *Builder) PushStackingContext(z int32, transform Affine, opacity float32) ContextID {
	if b.err != nil {
		return 0
	}
	if opacity < 0 {
		opacity = 0
	} else if opacity > 1 {
		opacity = 1
	}
	parent := b.top().ctx
	b.transforms = append(b.transforms, b.compose(transform))
	id := ContextID(len(b.dl.Contexts))
	b.dl.Contexts = append(b.dl.Contexts, StackingContext{
		ID:        id,
		Parent:    parent,
		Z:         z,
		Opacity:   opacity,
		Transform: b.transform(),
		Clip:      b.clip(),
		Bounds:    EmptyRect(),
	})
	p := &b.dl.Contexts[parent]
	p.Children = append(p.Children, Child{Context: id})
	b.frames = append(b.frames, frame{
		ctx:            id,
		clipDepth:      len(b.clips),
		transformDepth: len(b.transforms),
	})
	return id
}

// PopStackingContext closes the innermost stacking context. Clips and
// transforms pushed inside it must already be popped.
func (b *Builder) PopStackingContext() error {
	if err := b.usable(); err != nil {
		return err
	}
	f := b.top()
	if len(b.frames) == 1 {
		return b.fail(fmt.Errorf("%w: PopStackingContext at root", ErrUnbalanced))
	}
	if len(b.clips) != f.clipDepth || len(b.transforms) != f.transformDepth {
		return b.fail(fmt.Errorf("%w: context %d closed with open clips or transforms", ErrUnbalanced, f.ctx))
	}
	b.frames = b.frames[:len(b.frames)-1]
	// Drop the context's own transform.
	b.transforms = b.transforms[:len(b.transforms)-1]

	sc := &b.dl.Contexts[f.ctx]
	p := &b.dl.Contexts[sc.Parent]
	p.Bounds = p.Bounds.Union(sc.Bounds)
	return nil
}

// Append adds a copy of item to the innermost stacking context and returns
// its index in DisplayList.Items. The item's Base is overwritten with the
// current clip, transform and context.
func (b *Builder) Append(item Item) int {
	if b.err != nil {
		return -1
	}
	if item == nil {
		b.fail(ErrNilItem)
		return -1
	}
	it := item.clone()
	*it.base() = Base{Clip: b.clip(), Transform: b.transform(), Context: b.top().ctx}

	idx := len(b.dl.Items)
	b.dl.Items = append(b.dl.Items, it)
	sc := &b.dl.Contexts[b.top().ctx]
	sc.Children = append(sc.Children, Child{Item: idx})
	sc.Bounds = sc.Bounds.Union(b.dl.ItemBounds(idx))
	return idx
}

// Finish seals the list, assigns it the next epoch and resets the builder
// for reuse.
func (b *Builder) Finish() (*DisplayList, error) {
	if err := b.usable(); err != nil {
		b.reset()
		return nil, err
	}
	if len(b.frames) != 1 || len(b.clips) != 0 || len(b.transforms) != 0 {
		b.reset()
		return nil, fmt.Errorf("%w: %d contexts, %d clips, %d transforms left open",
			ErrUnbalanced, len(b.frames)-1, len(b.clips), len(b.transforms))
	}
	dl := b.dl
	dl.Epoch = b.seq.Next()
	b.reset()
	return dl, nil
}

func (b *Builder) usable() error {
	return b.err
}
