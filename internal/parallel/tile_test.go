package parallel

import (
	"image"
	"testing"
)

// =============================================================================
// TileGrid Tests
// =============================================================================

func TestNewTileGrid(t *testing.T) {
	tests := []struct {
		name           string
		w, h, size     int
		wantX, wantY   int
		wantTileSize   int
		wantTotalTiles int
	}{
		{"exact", 512, 512, 256, 2, 2, 256, 4},
		{"partial edge", 300, 100, 256, 2, 1, 256, 2},
		{"single", 256, 256, 256, 1, 1, 256, 1},
		{"default size", 600, 600, 0, 3, 3, DefaultTileSize, 9},
		{"small tiles", 100, 100, 64, 2, 2, 64, 4},
		{"empty", 0, 100, 256, 0, 0, 256, 0},
		{"negative", -5, -5, 64, 0, 0, 64, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewTileGrid(tt.w, tt.h, tt.size)
			if g.TilesX() != tt.wantX || g.TilesY() != tt.wantY {
				t.Errorf("tiles = %dx%d, want %dx%d", g.TilesX(), g.TilesY(), tt.wantX, tt.wantY)
			}
			if g.TileSize() != tt.wantTileSize {
				t.Errorf("TileSize() = %d, want %d", g.TileSize(), tt.wantTileSize)
			}
			if g.TileCount() != tt.wantTotalTiles {
				t.Errorf("TileCount() = %d, want %d", g.TileCount(), tt.wantTotalTiles)
			}
			if len(g.AllTiles()) != tt.wantTotalTiles {
				t.Errorf("AllTiles() has %d tiles", len(g.AllTiles()))
			}
		})
	}
}

func TestTileGrid_EdgeTiles(t *testing.T) {
	g := NewTileGrid(300, 200, 256)

	tile, ok := g.TileAt(1, 0)
	if !ok {
		t.Fatal("TileAt(1, 0) missing")
	}
	if want := image.Rect(256, 0, 300, 200); tile.Rect != want {
		t.Errorf("edge tile rect = %v, want %v", tile.Rect, want)
	}
	if tile.Width() != 44 || tile.Height() != 200 {
		t.Errorf("edge tile size = %dx%d", tile.Width(), tile.Height())
	}
	if _, ok := g.TileAt(2, 0); ok {
		t.Error("TileAt(2, 0) should be out of range")
	}
	if _, ok := g.TileAt(-1, 0); ok {
		t.Error("TileAt(-1, 0) should be out of range")
	}
}

func TestTileGrid_TileAtPixel(t *testing.T) {
	g := NewTileGrid(512, 512, 256)
	tests := []struct {
		px, py int
		tx, ty int
		ok     bool
	}{
		{0, 0, 0, 0, true},
		{255, 255, 0, 0, true},
		{256, 0, 1, 0, true},
		{511, 511, 1, 1, true},
		{512, 0, 0, 0, false},
		{-1, 10, 0, 0, false},
	}
	for _, tt := range tests {
		tile, ok := g.TileAtPixel(tt.px, tt.py)
		if ok != tt.ok {
			t.Errorf("TileAtPixel(%d, %d) ok = %v", tt.px, tt.py, ok)
			continue
		}
		if ok && (tile.X != tt.tx || tile.Y != tt.ty) {
			t.Errorf("TileAtPixel(%d, %d) = (%d, %d), want (%d, %d)", tt.px, tt.py, tile.X, tile.Y, tt.tx, tt.ty)
		}
		if ok && !tile.Contains(tt.px, tt.py) {
			t.Errorf("tile (%d, %d) does not contain (%d, %d)", tile.X, tile.Y, tt.px, tt.py)
		}
	}
}

func TestTileGrid_TilesInRect(t *testing.T) {
	g := NewTileGrid(512, 512, 256)
	tests := []struct {
		name string
		r    image.Rectangle
		want []image.Point
	}{
		{"inside first", image.Rect(10, 10, 50, 50), []image.Point{{0, 0}}},
		{"spans columns", image.Rect(200, 10, 300, 50), []image.Point{{0, 0}, {1, 0}}},
		{"whole", image.Rect(0, 0, 512, 512), []image.Point{{0, 0}, {1, 0}, {0, 1}, {1, 1}}},
		{"clipped", image.Rect(-100, 300, 100, 900), []image.Point{{0, 1}}},
		{"outside", image.Rect(600, 600, 700, 700), nil},
		{"empty", image.Rect(10, 10, 10, 50), nil},
		{"boundary exclusive", image.Rect(0, 0, 256, 256), []image.Point{{0, 0}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := g.TilesInRect(tt.r)
			if len(got) != len(tt.want) {
				t.Fatalf("got %d tiles, want %d", len(got), len(tt.want))
			}
			for i, tile := range got {
				if tile.X != tt.want[i].X || tile.Y != tt.want[i].Y {
					t.Errorf("tile %d = (%d, %d), want %v", i, tile.X, tile.Y, tt.want[i])
				}
			}
		})
	}
}

func TestTile_PixelOffset(t *testing.T) {
	tile := Tile{Rect: image.Rect(0, 0, 4, 2)}
	tests := []struct {
		px, py, want int
	}{
		{0, 0, 0},
		{1, 0, 4},
		{0, 1, 16},
		{3, 1, 28},
		{4, 0, -1},
		{0, 2, -1},
		{-1, 0, -1},
	}
	for _, tt := range tests {
		if got := tile.PixelOffset(tt.px, tt.py); got != tt.want {
			t.Errorf("PixelOffset(%d, %d) = %d, want %d", tt.px, tt.py, got, tt.want)
		}
	}
}
