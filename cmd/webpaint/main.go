// Command webpaint paints a scene file through the tiled paint pipeline
// and writes the composited frame as an image.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/disintegration/imaging"
	"golang.org/x/term"

	"github.com/gogpu/webpaint"
	dl "github.com/gogpu/webpaint/displaylist"
	"github.com/gogpu/webpaint/fontcache"
	"github.com/gogpu/webpaint/fonts"
	"github.com/gogpu/webpaint/paint"
)

func main() {
	var (
		scenePath  = flag.String("scene", "scene.toml", "scene file (.toml or .yaml)")
		configPath = flag.String("config", "", "configuration file (TOML)")
		output     = flag.String("output", "page.png", "output image")
		verbose    = flag.Bool("v", false, "log debug messages")
		invalidate = flag.Bool("refresh", false, "invalidate the whole page and paint it a second time")
	)
	flag.Parse()

	setupLogging(*verbose)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *scenePath, *configPath, *output, *invalidate); err != nil {
		log.Fatalf("webpaint: %v", err)
	}
}

// setupLogging installs a text handler on terminals and JSON otherwise.
func setupLogging(verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	var h slog.Handler
	if term.IsTerminal(int(os.Stderr.Fd())) {
		h = slog.NewTextHandler(os.Stderr, opts)
	} else {
		h = slog.NewJSONHandler(os.Stderr, opts)
	}
	webpaint.SetLogger(slog.New(h))
}

func run(ctx context.Context, scenePath, configPath, output string, refresh bool) error {
	cfg := webpaint.DefaultConfig()
	if configPath != "" {
		var err error
		if cfg, err = webpaint.LoadConfig(configPath); err != nil {
			return err
		}
	}
	sc, err := LoadScene(scenePath)
	if err != nil {
		return err
	}

	svc := fontcache.New(fontcache.OptionsFromConfig(cfg.Fonts)...)
	defer svc.Close()
	client := svc.NewClient()

	// Layout shapes text with a context of its own; workers keep theirs.
	layoutFonts := fonts.NewContext(client)
	defer layoutFonts.Close()

	images := dl.NewImageMap()
	var seq dl.Sequencer
	list, err := sc.Build(ctx, &seq, layoutFonts, images, filepath.Dir(scenePath))
	if err != nil {
		return err
	}

	opts, err := paint.OptionsFromConfig(cfg)
	if err != nil {
		return err
	}
	if sc.Background != "" {
		bg, err := parseColor(sc.Background)
		if err != nil {
			return err
		}
		opts = append(opts, paint.WithBackground(bg))
	}
	opts = append(opts, paint.WithImages(images))

	comp := paint.NewImageCompositor()
	task := paint.NewTask(comp, client, opts...)
	if err := task.Start(ctx); err != nil {
		return err
	}
	defer task.Close()

	vp := paint.Viewport{Rect: sc.Viewport(), DevicePixelRatio: sc.DPR}
	summary, err := task.Paint(ctx, list, vp)
	if err != nil {
		return err
	}
	webpaint.Logger().Info("painted", "summary", summary.String(),
		"glyphs", summary.Raster.Glyphs, "missing_glyphs", summary.Raster.MissingGlyphs,
		"placeholders", summary.Raster.Placeholders)

	if refresh {
		task.Invalidate(sc.Viewport())
		if summary, err = task.Paint(ctx, list, vp); err != nil {
			return err
		}
		webpaint.Logger().Info("refreshed", "summary", summary.String())
	}

	frame := comp.Frame()
	if frame == nil {
		return fmt.Errorf("nothing was painted")
	}
	if err := imaging.Save(frame, output); err != nil {
		return fmt.Errorf("save %s: %w", output, err)
	}

	st := task.Stats()
	fst := svc.Stats()
	webpaint.Logger().Info("done", "output", output,
		"tiles_rasterized", st.Rasterized, "tiles_retained", st.Retained,
		"font_requests", fst.Requests, "font_lookups", fst.Lookups, "font_hits", fst.Hits)
	return nil
}
