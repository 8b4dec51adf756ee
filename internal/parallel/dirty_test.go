package parallel

import (
	"image"
	"sync"
	"testing"
)

func newRegion(t *testing.T, w, h, size int) *DirtyRegion {
	t.Helper()
	dr := NewDirtyRegion(NewTileGrid(w, h, size))
	if dr == nil {
		t.Fatal("NewDirtyRegion returned nil")
	}
	return dr
}

// =============================================================================
// DirtyRegion Basic Tests
// =============================================================================

func TestDirtyRegion_Create(t *testing.T) {
	if dr := NewDirtyRegion(NewTileGrid(0, 0, 64)); dr != nil {
		t.Error("empty grid should give a nil region")
	}
	dr := newRegion(t, 512, 256, 64)
	if dr.TilesX() != 8 || dr.TilesY() != 4 || dr.TotalTiles() != 32 {
		t.Errorf("region = %dx%d (%d)", dr.TilesX(), dr.TilesY(), dr.TotalTiles())
	}
	if !dr.IsEmpty() {
		t.Error("new region should be clean")
	}
}

func TestDirtyRegion_Mark(t *testing.T) {
	dr := newRegion(t, 256, 256, 64)
	dr.Mark(1, 2)
	dr.Mark(1, 2)
	dr.Mark(9, 9) // ignored

	if !dr.IsDirty(1, 2) {
		t.Error("Mark(1, 2) did not set dirty flag")
	}
	if dr.IsDirty(0, 0) || dr.IsDirty(9, 9) {
		t.Error("unexpected dirty tile")
	}
	if dr.Count() != 1 {
		t.Errorf("Count() = %d, want 1", dr.Count())
	}
}

func TestDirtyRegion_MarkRect(t *testing.T) {
	tests := []struct {
		name string
		r    image.Rectangle
		want int
	}{
		{"single tile", image.Rect(10, 10, 20, 20), 1},
		{"two tiles", image.Rect(250, 10, 260, 20), 2},
		{"exact tile", image.Rect(0, 0, 256, 256), 1},
		{"all", image.Rect(-5, -5, 600, 600), 4},
		{"negative origin", image.Rect(-300, -300, 1, 1), 1},
		{"outside", image.Rect(-300, -300, -1, -1), 0},
		{"empty", image.Rect(100, 100, 100, 200), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dr := newRegion(t, 512, 512, 256)
			dr.MarkRect(tt.r)
			if got := dr.Count(); got != tt.want {
				t.Errorf("Count() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestDirtyRegion_MarkAllAndClear(t *testing.T) {
	// 10x10 = 100 tiles spans a partial second word.
	dr := newRegion(t, 640, 640, 64)
	dr.MarkAll()
	if dr.Count() != 100 {
		t.Errorf("Count() after MarkAll = %d, want 100", dr.Count())
	}
	dr.Clear()
	if !dr.IsEmpty() {
		t.Error("region should be empty after Clear")
	}
}

func TestDirtyRegion_GetAndClear(t *testing.T) {
	dr := newRegion(t, 640, 640, 64)
	dr.Mark(3, 0)
	dr.Mark(0, 9)
	dr.Mark(1, 0)

	got := dr.GetAndClear()
	want := []image.Point{{1, 0}, {3, 0}, {0, 9}}
	if len(got) != len(want) {
		t.Fatalf("GetAndClear() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("GetAndClear()[%d] = %v, want %v", i, got[i], want[i])
		}
	}
	if !dr.IsEmpty() {
		t.Error("region should be empty after GetAndClear")
	}
}

func TestDirtyRegion_ForEachDirty(t *testing.T) {
	dr := newRegion(t, 256, 256, 64)
	dr.Mark(2, 1)
	dr.Mark(0, 3)
	var seen []image.Point
	dr.ForEachDirty(func(tx, ty int) { seen = append(seen, image.Pt(tx, ty)) })
	if len(seen) != 2 || seen[0] != image.Pt(2, 1) || seen[1] != image.Pt(0, 3) {
		t.Errorf("ForEachDirty visited %v", seen)
	}
	if dr.Count() != 2 {
		t.Error("ForEachDirty must not clear")
	}
}

// =============================================================================
// Concurrency
// =============================================================================

func TestDirtyRegion_ConcurrentMark(t *testing.T) {
	dr := newRegion(t, 1024, 1024, 64)
	var wg sync.WaitGroup
	for g := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range 32 {
				dr.Mark((g*32+i)%16, (g*32+i)/16)
			}
		}()
	}
	wg.Wait()
	if dr.Count() != 256 {
		t.Errorf("Count() = %d, want 256", dr.Count())
	}
}
