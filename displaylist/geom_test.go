package displaylist

import (
	"image"
	"testing"
)

func TestRect_IntersectUnion(t *testing.T) {
	a := XYWH(0, 0, 10, 10)
	b := XYWH(5, 5, 10, 10)

	if got, want := a.Intersect(b), (Rect{5, 5, 10, 10}); got != want {
		t.Errorf("Intersect = %v, want %v", got, want)
	}
	if got, want := a.Union(b), (Rect{0, 0, 15, 15}); got != want {
		t.Errorf("Union = %v, want %v", got, want)
	}
	if got := a.Intersect(XYWH(20, 20, 1, 1)); !got.IsEmpty() {
		t.Errorf("disjoint Intersect = %v, want empty", got)
	}
	if got := EmptyRect().Union(a); got != a {
		t.Errorf("EmptyRect().Union(a) = %v, want %v", got, a)
	}
	if got := a.Intersect(InfiniteRect()); got != a {
		t.Errorf("Intersect(Infinite) = %v, want %v", got, a)
	}
}

func TestRect_Contains(t *testing.T) {
	outer := XYWH(0, 0, 100, 100)
	tests := []struct {
		name  string
		inner Rect
		want  bool
	}{
		{"inside", XYWH(10, 10, 5, 5), true},
		{"equal", outer, true},
		{"overlapping", XYWH(90, 90, 20, 20), false},
		{"empty", Rect{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := outer.Contains(tt.inner); got != tt.want {
				t.Errorf("Contains(%v) = %v, want %v", tt.inner, got, tt.want)
			}
		})
	}
}

func TestRect_Pixels(t *testing.T) {
	r := Rect{MinX: 0.5, MinY: 1.2, MaxX: 9.1, MaxY: 10}
	if got, want := r.Pixels(), image.Rect(0, 1, 10, 10); got != want {
		t.Errorf("Pixels() = %v, want %v", got, want)
	}
	if got := (Rect{}).Pixels(); !got.Empty() {
		t.Errorf("empty Pixels() = %v", got)
	}
}

func TestAffine_MultiplyOrder(t *testing.T) {
	// Scale then translate: scale applies first.
	m := TranslateAffine(10, 0).Multiply(ScaleAffine(2, 2))
	got := m.TransformPoint(Pt(1, 1))
	if got != Pt(12, 2) {
		t.Errorf("TransformPoint = %v, want (12,2)", got)
	}
}

func TestAffine_TransformRect(t *testing.T) {
	r := XYWH(0, 0, 10, 20)
	if got := IdentityAffine().TransformRect(r); got != r {
		t.Errorf("identity = %v", got)
	}
	if got, want := TranslateAffine(5, 5).TransformRect(r), XYWH(5, 5, 10, 20); got != want {
		t.Errorf("translate = %v, want %v", got, want)
	}
	if got, want := ScaleAffine(2, 3).TransformRect(r), XYWH(0, 0, 20, 60); got != want {
		t.Errorf("scale = %v, want %v", got, want)
	}
	if got := ScaleAffine(2, 2).TransformRect(InfiniteRect()); !got.IsInfinite() {
		t.Errorf("infinite rect not preserved: %v", got)
	}
}

func TestAffine_Invert(t *testing.T) {
	m := TranslateAffine(3, 4).Multiply(ScaleAffine(2, 2))
	inv, ok := m.Invert()
	if !ok {
		t.Fatal("Invert failed")
	}
	p := inv.TransformPoint(m.TransformPoint(Pt(7, 9)))
	if abs32(p.X-7) > 1e-5 || abs32(p.Y-9) > 1e-5 {
		t.Errorf("round trip = %v", p)
	}
	if _, ok := ScaleAffine(0, 1).Invert(); ok {
		t.Error("singular matrix inverted")
	}
}

func TestColor_Premul(t *testing.T) {
	c := Color{R: 255, G: 128, B: 0, A: 128}
	p := c.Premul()
	if p.R != 128 || p.G != 64 || p.B != 0 || p.A != 128 {
		t.Errorf("Premul = %+v", p)
	}
	if got := White.WithOpacity(0.5).A; got != 128 {
		t.Errorf("WithOpacity(0.5).A = %d, want 128", got)
	}
}

func abs32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
