package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	dl "github.com/gogpu/webpaint/displaylist"
	"github.com/gogpu/webpaint/fonts"
)

// =============================================================================
// Colors
// =============================================================================

func TestParseColor(t *testing.T) {
	tests := []struct {
		in      string
		want    dl.Color
		wantErr bool
	}{
		{"", dl.Black, false},
		{"#fff", dl.White, false},
		{"#ff0000", dl.Color{R: 255, A: 255}, false},
		{"00ff0080", dl.Color{G: 255, A: 128}, false},
		{" #0000ff ", dl.Color{B: 255, A: 255}, false},
		{"#12345", dl.Color{}, true},
		{"#gggggg", dl.Color{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseColor(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseColor(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("parseColor(%q) = %+v, want %+v", tt.in, got, tt.want)
			}
		})
	}
}

// =============================================================================
// Loading
// =============================================================================

const tomlScene = `
width = 256
height = 128
scroll_y = 64
background = "#fff"

[[items]]
kind = "rect"
rect = [0, 64, 100, 50]
color = "#ff0000"

[[items]]
kind = "group"
z = 1
opacity = 0.5
translate = [10, 70]

  [[items.items]]
  kind = "line"
  from = [0, 0]
  to = [50, 0]
  width = 2
`

const yamlScene = `
width: 256
height: 128
dpr: 2
items:
  - kind: border
    rect: [0, 0, 40, 40]
    widths: [1, 2]
    colors: ["#f00"]
  - kind: gradient
    gradient: radial
    rect: [0, 0, 40, 40]
    start: [20, 20]
    radius: 20
    extend: reflect
    stops:
      - {offset: 0, color: "#000"}
      - {offset: 1, color: "#fff"}
`

func writeScene(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadScene_TOML(t *testing.T) {
	sc, err := LoadScene(writeScene(t, "page.toml", tomlScene))
	if err != nil {
		t.Fatalf("LoadScene: %v", err)
	}
	if sc.Width != 256 || sc.Height != 128 || sc.ScrollY != 64 {
		t.Errorf("scene size = %vx%v scroll %v", sc.Width, sc.Height, sc.ScrollY)
	}
	if len(sc.Items) != 2 || len(sc.Items[1].Items) != 1 {
		t.Fatalf("items = %+v", sc.Items)
	}
	if op := sc.Items[1].Opacity; op == nil || *op != 0.5 {
		t.Errorf("group opacity = %v, want 0.5", op)
	}
	if got, want := sc.Viewport(), dl.XYWH(0, 64, 256, 128); got != want {
		t.Errorf("Viewport() = %v, want %v", got, want)
	}
}

func TestLoadScene_YAML(t *testing.T) {
	sc, err := LoadScene(writeScene(t, "page.yaml", yamlScene))
	if err != nil {
		t.Fatalf("LoadScene: %v", err)
	}
	if sc.DPR != 2 {
		t.Errorf("dpr = %v, want 2", sc.DPR)
	}
	if len(sc.Items) != 2 || len(sc.Items[1].Stops) != 2 {
		t.Fatalf("items = %+v", sc.Items)
	}
}

func TestLoadScene_Errors(t *testing.T) {
	tests := []struct {
		name, file, body string
	}{
		{"no size", "a.toml", "background = \"#fff\"\n"},
		{"bad toml", "b.toml", "width = \n"},
		{"bad yaml", "c.yml", "width: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := LoadScene(writeScene(t, tt.file, tt.body)); err == nil {
				t.Error("LoadScene succeeded, want error")
			}
		})
	}
	if _, err := LoadScene(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Error("LoadScene of a missing file succeeded")
	}
}

// =============================================================================
// Building
// =============================================================================

func buildScene(t *testing.T, sc *Scene) (*dl.DisplayList, *dl.ImageMap) {
	t.Helper()
	fc := fonts.NewContext(nil)
	t.Cleanup(fc.Close)
	images := dl.NewImageMap()
	var seq dl.Sequencer
	list, err := sc.Build(context.Background(), &seq, fc, images, t.TempDir())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return list, images
}

func TestScene_BuildItems(t *testing.T) {
	sc, err := LoadScene(writeScene(t, "page.toml", tomlScene))
	if err != nil {
		t.Fatal(err)
	}
	list, _ := buildScene(t, sc)
	if list.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", list.Len())
	}
	if len(list.Contexts) != 2 {
		t.Errorf("contexts = %d, want root plus one group", len(list.Contexts))
	}
	if _, ok := list.Items[0].(*dl.RectItem); !ok {
		t.Errorf("item 0 = %T, want *RectItem", list.Items[0])
	}
	line, ok := list.Items[1].(*dl.LineItem)
	if !ok {
		t.Fatalf("item 1 = %T, want *LineItem", list.Items[1])
	}
	if line.Width != 2 || line.Color != dl.Black {
		t.Errorf("line = %+v", line)
	}
}

func TestScene_BuildBorderAndGradient(t *testing.T) {
	sc, err := LoadScene(writeScene(t, "page.yaml", yamlScene))
	if err != nil {
		t.Fatal(err)
	}
	list, _ := buildScene(t, sc)
	border := list.Items[0].(*dl.BorderItem)
	if border.Widths != [4]float32{1, 2, 2, 2} {
		t.Errorf("border widths = %v", border.Widths)
	}
	for side, c := range border.Colors {
		if c != (dl.Color{R: 255, A: 255}) {
			t.Errorf("side %d color = %+v, want red", side, c)
		}
	}
	grad := list.Items[1].(*dl.GradientItem)
	if grad.Gradient != dl.GradientRadial || grad.Extend != dl.ExtendReflect || len(grad.Stops) != 2 {
		t.Errorf("gradient = %+v", grad)
	}
}

func TestScene_BuildText(t *testing.T) {
	sc := &Scene{Width: 100, Height: 100, Items: []Node{
		{Kind: "text", Text: "Hi", At: []float32{10, 40}, Size: 20, Italic: true},
	}}
	list, _ := buildScene(t, sc)
	it := list.Items[0].(*dl.TextItem)
	if len(it.Runs) == 0 {
		t.Fatal("text was not shaped")
	}
	if it.Style.Slant != fonts.SlantItalic || it.Style.Size != 20 {
		t.Errorf("style = %+v", it.Style)
	}
	if it.Bounds.MinX != 10 || it.Bounds.MaxX <= 10 || it.Bounds.MinY >= 40 {
		t.Errorf("bounds = %v", it.Bounds)
	}
}

func TestScene_MissingImageIsKept(t *testing.T) {
	sc := &Scene{Width: 100, Height: 100, Items: []Node{
		{Kind: "image", Src: "nope.png", Rect: []float32{0, 0, 10, 10}},
	}}
	list, images := buildScene(t, sc)
	it := list.Items[0].(*dl.ImageItem)
	if _, err := images.Image(it.Handle); err == nil {
		t.Error("missing image resolved")
	}
}

func TestScene_BuildErrors(t *testing.T) {
	tests := []struct {
		name string
		node Node
		want string
	}{
		{"unknown kind", Node{Kind: "blink"}, "unknown kind"},
		{"short rect", Node{Kind: "rect", Rect: []float32{1, 2}}, "rect needs 4"},
		{"bad color", Node{Kind: "rect", Rect: []float32{0, 0, 1, 1}, Color: "red"}, "bad color"},
		{"bad gradient", Node{Kind: "gradient", Rect: []float32{0, 0, 1, 1}, Gradient: "conic"}, "unknown gradient"},
		{"nested", Node{Kind: "group", Items: []Node{{Kind: "line"}}}, "group item 0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fc := fonts.NewContext(nil)
			defer fc.Close()
			sc := &Scene{Width: 10, Height: 10, Items: []Node{tt.node}}
			var seq dl.Sequencer
			_, err := sc.Build(context.Background(), &seq, fc, dl.NewImageMap(), "")
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Build err = %v, want it to mention %q", err, tt.want)
			}
		})
	}
}
