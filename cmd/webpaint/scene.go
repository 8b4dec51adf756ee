package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/chewxy/math32"
	"github.com/disintegration/imaging"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	dl "github.com/gogpu/webpaint/displaylist"
	"github.com/gogpu/webpaint/fonts"
)

// Scene is a page description: a viewport and a tree of items.
type Scene struct {
	Width      float32 `toml:"width" yaml:"width"`
	Height     float32 `toml:"height" yaml:"height"`
	ScrollY    float32 `toml:"scroll_y" yaml:"scroll_y"`
	DPR        float32 `toml:"dpr" yaml:"dpr"`
	Background string  `toml:"background" yaml:"background"`
	Items      []Node  `toml:"items" yaml:"items"`
}

// Node is one scene entry. Kind selects which fields apply; "group"
// nodes open a stacking context around their Items.
type Node struct {
	Kind string `toml:"kind" yaml:"kind"`

	Rect  []float32 `toml:"rect" yaml:"rect"`
	Color string    `toml:"color" yaml:"color"`

	Text     string    `toml:"text" yaml:"text"`
	At       []float32 `toml:"at" yaml:"at"`
	Families []string  `toml:"families" yaml:"families"`
	Size     float32   `toml:"size" yaml:"size"`
	Weight   int       `toml:"weight" yaml:"weight"`
	Italic   bool      `toml:"italic" yaml:"italic"`

	Widths []float32 `toml:"widths" yaml:"widths"`
	Colors []string  `toml:"colors" yaml:"colors"`

	From  []float32 `toml:"from" yaml:"from"`
	To    []float32 `toml:"to" yaml:"to"`
	Width float32   `toml:"width" yaml:"width"`

	Gradient string    `toml:"gradient" yaml:"gradient"`
	Start    []float32 `toml:"start" yaml:"start"`
	End      []float32 `toml:"end" yaml:"end"`
	Radius   float32   `toml:"radius" yaml:"radius"`
	Stops    []Stop    `toml:"stops" yaml:"stops"`
	Extend   string    `toml:"extend" yaml:"extend"`

	Src string `toml:"src" yaml:"src"`

	Z         int32     `toml:"z" yaml:"z"`
	Opacity   *float32  `toml:"opacity" yaml:"opacity"`
	Translate []float32 `toml:"translate" yaml:"translate"`
	Rotate    float32   `toml:"rotate" yaml:"rotate"`
	Clip      []float32 `toml:"clip" yaml:"clip"`
	Items     []Node    `toml:"items" yaml:"items"`
}

// Stop is a gradient color stop.
type Stop struct {
	Offset float32 `toml:"offset" yaml:"offset"`
	Color  string  `toml:"color" yaml:"color"`
}

// LoadScene reads a scene from a .toml, .yaml or .yml file.
func LoadScene(path string) (*Scene, error) {
	// #nosec G304 -- scene path is provided by the operator
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scene: %w", err)
	}
	var sc Scene
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &sc)
	default:
		err = toml.Unmarshal(data, &sc)
	}
	if err != nil {
		return nil, fmt.Errorf("parse scene %s: %w", path, err)
	}
	if sc.Width <= 0 || sc.Height <= 0 {
		return nil, fmt.Errorf("scene %s: width and height must be positive", path)
	}
	return &sc, nil
}

// Viewport returns the visible page rectangle.
func (sc *Scene) Viewport() dl.Rect {
	return dl.XYWH(0, sc.ScrollY, sc.Width, sc.Height)
}

// parseColor accepts #rgb, #rrggbb and #rrggbbaa.
func parseColor(s string) (dl.Color, error) {
	if s == "" {
		return dl.Black, nil
	}
	h := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(h) == 3 {
		h = string([]byte{h[0], h[0], h[1], h[1], h[2], h[2]})
	}
	if len(h) == 6 {
		h += "ff"
	}
	if len(h) != 8 {
		return dl.Color{}, fmt.Errorf("bad color %q", s)
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return dl.Color{}, fmt.Errorf("bad color %q: %w", s, err)
	}
	return dl.Color{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}, nil
}

func rectOf(v []float32) (dl.Rect, error) {
	if len(v) != 4 {
		return dl.Rect{}, fmt.Errorf("rect needs 4 numbers, got %d", len(v))
	}
	return dl.XYWH(v[0], v[1], v[2], v[3]), nil
}

func pointOf(v []float32) (dl.Point, error) {
	if len(v) != 2 {
		return dl.Point{}, fmt.Errorf("point needs 2 numbers, got %d", len(v))
	}
	return dl.Pt(v[0], v[1]), nil
}

// sceneBuilder turns a Scene into a display list. Text is shaped here, the
// way layout would, so items carry their bounds and runs.
type sceneBuilder struct {
	ctx    context.Context
	b      *dl.Builder
	fonts  *fonts.Context
	images *dl.ImageMap
	dir    string
	next   dl.ImageHandle
}

// Build converts sc. Image files are resolved relative to dir and stored
// in images.
func (sc *Scene) Build(ctx context.Context, seq *dl.Sequencer, fc *fonts.Context, images *dl.ImageMap, dir string) (*dl.DisplayList, error) {
	sb := &sceneBuilder{ctx: ctx, b: dl.NewBuilder(seq), fonts: fc, images: images, dir: dir, next: 1}
	for i := range sc.Items {
		if err := sb.node(&sc.Items[i]); err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
	}
	return sb.b.Finish()
}

func (sb *sceneBuilder) node(n *Node) error {
	switch n.Kind {
	case "group":
		return sb.group(n)
	case "rect":
		r, err := rectOf(n.Rect)
		if err != nil {
			return err
		}
		c, err := parseColor(n.Color)
		if err != nil {
			return err
		}
		sb.b.Append(&dl.RectItem{Rect: r, Color: c})
	case "border":
		return sb.border(n)
	case "line":
		from, err := pointOf(n.From)
		if err != nil {
			return err
		}
		to, err := pointOf(n.To)
		if err != nil {
			return err
		}
		c, err := parseColor(n.Color)
		if err != nil {
			return err
		}
		sb.b.Append(&dl.LineItem{From: from, To: to, Width: max(n.Width, 1), Color: c})
	case "gradient":
		return sb.gradient(n)
	case "image":
		return sb.image(n)
	case "text":
		return sb.text(n)
	default:
		return fmt.Errorf("unknown kind %q", n.Kind)
	}
	return sb.b.Err()
}

func (sb *sceneBuilder) group(n *Node) error {
	t := dl.IdentityAffine()
	if len(n.Translate) == 2 {
		t = dl.TranslateAffine(n.Translate[0], n.Translate[1])
	}
	if n.Rotate != 0 {
		t = t.Multiply(dl.RotateAffine(n.Rotate * math32.Pi / 180))
	}
	opacity := float32(1)
	if n.Opacity != nil {
		opacity = *n.Opacity
	}
	sb.b.PushStackingContext(n.Z, t, opacity)
	if n.Clip != nil {
		clip, err := rectOf(n.Clip)
		if err != nil {
			return err
		}
		sb.b.PushClip(clip)
	}
	for i := range n.Items {
		if err := sb.node(&n.Items[i]); err != nil {
			return fmt.Errorf("group item %d: %w", i, err)
		}
	}
	if n.Clip != nil {
		if err := sb.b.PopClip(); err != nil {
			return err
		}
	}
	return sb.b.PopStackingContext()
}

func (sb *sceneBuilder) border(n *Node) error {
	r, err := rectOf(n.Rect)
	if err != nil {
		return err
	}
	it := &dl.BorderItem{Rect: r}
	for side := range 4 {
		if len(n.Widths) > 0 {
			it.Widths[side] = n.Widths[min(side, len(n.Widths)-1)]
		}
		hex := n.Color
		if len(n.Colors) > 0 {
			hex = n.Colors[min(side, len(n.Colors)-1)]
		}
		if it.Colors[side], err = parseColor(hex); err != nil {
			return err
		}
	}
	sb.b.Append(it)
	return nil
}

func (sb *sceneBuilder) gradient(n *Node) error {
	r, err := rectOf(n.Rect)
	if err != nil {
		return err
	}
	it := &dl.GradientItem{Rect: r, Radius: n.Radius}
	switch n.Gradient {
	case "", "linear":
		it.Gradient = dl.GradientLinear
	case "radial":
		it.Gradient = dl.GradientRadial
	default:
		return fmt.Errorf("unknown gradient %q", n.Gradient)
	}
	switch n.Extend {
	case "", "pad":
		it.Extend = dl.ExtendPad
	case "repeat":
		it.Extend = dl.ExtendRepeat
	case "reflect":
		it.Extend = dl.ExtendReflect
	default:
		return fmt.Errorf("unknown extend mode %q", n.Extend)
	}
	if it.Start, err = pointOf(n.Start); err != nil {
		return err
	}
	if it.Gradient == dl.GradientLinear {
		if it.End, err = pointOf(n.End); err != nil {
			return err
		}
	}
	for _, s := range n.Stops {
		c, err := parseColor(s.Color)
		if err != nil {
			return err
		}
		it.Stops = append(it.Stops, dl.ColorStop{Offset: s.Offset, Color: c})
	}
	sb.b.Append(it)
	return nil
}

func (sb *sceneBuilder) image(n *Node) error {
	r, err := rectOf(n.Rect)
	if err != nil {
		return err
	}
	h := sb.next
	sb.next++
	path := n.Src
	if !filepath.IsAbs(path) {
		path = filepath.Join(sb.dir, path)
	}
	img, err := imaging.Open(path)
	switch {
	case err == nil:
		sb.images.Set(h, img)
	case errors.Is(err, os.ErrNotExist):
		// Painted as a placeholder.
	default:
		return fmt.Errorf("image %s: %w", n.Src, err)
	}
	sb.b.Append(&dl.ImageItem{Handle: h, Rect: r})
	return nil
}

func (sb *sceneBuilder) text(n *Node) error {
	at, err := pointOf(n.At)
	if err != nil {
		return err
	}
	c, err := parseColor(n.Color)
	if err != nil {
		return err
	}
	style := fonts.Style{Families: n.Families, Size: n.Size, Weight: fonts.Weight(n.Weight)}
	if style.Size <= 0 {
		style.Size = 16
	}
	if n.Italic {
		style.Slant = fonts.SlantItalic
	}
	script := fonts.DetectScript(n.Text)
	dir := fonts.DetectDirection(n.Text)
	runs := sb.fonts.ShapeText(sb.ctx, style, n.Text, script, dir)

	var advance, ascent, descent float32
	for _, run := range runs {
		advance += run.Advance
		f := sb.fonts.FontForRun(sb.ctx, run)
		ascent = max(ascent, f.Ascent())
		descent = max(descent, f.Descent())
	}
	sb.b.Append(&dl.TextItem{
		Text:      n.Text,
		Style:     style,
		Script:    script,
		Direction: dir,
		Origin:    at,
		Color:     c,
		Bounds:    dl.Rect{MinX: at.X, MinY: at.Y - ascent, MaxX: at.X + advance, MaxY: at.Y + descent},
		Runs:      runs,
	})
	return nil
}
