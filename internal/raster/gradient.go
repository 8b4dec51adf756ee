package raster

import (
	"cmp"
	"errors"
	"slices"

	"github.com/chewxy/math32"

	dl "github.com/gogpu/webpaint/displaylist"
)

var errSingularTransform = errors.New("raster: singular transform")

// VisitGradient implements dl.Visitor. Every pixel of the clip is mapped
// back to item space and evaluated there; pixels outside Rect are skipped.
func (p *Painter) VisitGradient(it *dl.GradientItem) {
	inv, ok := p.cur.Transform.Invert()
	if !ok {
		p.placeholder(errSingularTransform)
		return
	}
	stops := sortStops(it.Stops)
	if len(stops) == 0 {
		return
	}
	opacity := p.cur.Opacity
	r := p.clip
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			// Sample at the pixel center.
			lp := inv.TransformPoint(dl.Pt(float32(x)+0.5, float32(y)+0.5))
			if !it.Rect.ContainsPoint(lp) {
				continue
			}
			t := gradientParam(it, lp)
			c := colorAtOffset(stops, applyExtend(t, it.Extend))
			blendOver(p.dst, x, y, c.WithOpacity(opacity).Premul())
		}
	}
}

// gradientParam returns the unextended gradient position of lp.
func gradientParam(it *dl.GradientItem, lp dl.Point) float32 {
	switch it.Gradient {
	case dl.GradientRadial:
		if it.Radius <= 0 {
			return 1
		}
		dx, dy := lp.X-it.Start.X, lp.Y-it.Start.Y
		return math32.Sqrt(dx*dx+dy*dy) / it.Radius
	default:
		dx, dy := it.End.X-it.Start.X, it.End.Y-it.Start.Y
		lengthSq := dx*dx + dy*dy
		if lengthSq == 0 {
			return 0
		}
		return ((lp.X-it.Start.X)*dx + (lp.Y-it.Start.Y)*dy) / lengthSq
	}
}

func sortStops(stops []dl.ColorStop) []dl.ColorStop {
	sorted := slices.Clone(stops)
	slices.SortStableFunc(sorted, func(a, b dl.ColorStop) int { return cmp.Compare(a.Offset, b.Offset) })
	return sorted
}

// applyExtend folds t into [0, 1] according to mode.
func applyExtend(t float32, mode dl.ExtendMode) float32 {
	switch mode {
	case dl.ExtendRepeat:
		t -= math32.Floor(t)
	case dl.ExtendReflect:
		t = math32.Abs(t)
		period := math32.Floor(t)
		t -= period
		if int(period)%2 == 1 {
			t = 1 - t
		}
	default:
		t = min(max(t, 0), 1)
	}
	return t
}

// colorAtOffset interpolates sorted stops at t in [0, 1].
func colorAtOffset(stops []dl.ColorStop, t float32) dl.Color {
	if len(stops) == 1 || t <= stops[0].Offset {
		return stops[0].Color
	}
	last := stops[len(stops)-1]
	if t >= last.Offset {
		return last.Color
	}
	i, _ := slices.BinarySearchFunc(stops, t, func(s dl.ColorStop, t float32) int { return cmp.Compare(s.Offset, t) })
	a, b := stops[i-1], stops[i]
	if b.Offset == a.Offset {
		return a.Color
	}
	return a.Color.Lerp(b.Color, (t-a.Offset)/(b.Offset-a.Offset))
}
