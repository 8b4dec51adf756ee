package paint

import (
	"fmt"
	"strings"
	"time"

	"github.com/gogpu/webpaint"
	dl "github.com/gogpu/webpaint/displaylist"
	"github.com/gogpu/webpaint/fonts"
	"github.com/gogpu/webpaint/internal/parallel"
)

// Defaults for Task options.
const (
	DefaultTileSize    = parallel.DefaultTileSize
	DefaultJobTimeout  = 2 * time.Second
	DefaultMaxAttempts = 3
)

// PresentPolicy selects when tile updates reach the compositor.
type PresentPolicy uint8

const (
	// PresentStreaming forwards each tile as soon as it is ready.
	PresentStreaming PresentPolicy = iota

	// PresentAtomic forwards the tiles of an epoch together, right before
	// its end marker.
	PresentAtomic
)

// String returns the policy name as used in configuration files.
func (p PresentPolicy) String() string {
	switch p {
	case PresentStreaming:
		return "streaming"
	case PresentAtomic:
		return "atomic"
	default:
		return fmt.Sprintf("PresentPolicy(%d)", p)
	}
}

// ParsePresentPolicy parses "streaming" or "atomic". The empty string
// selects the default.
func ParsePresentPolicy(s string) (PresentPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "streaming":
		return PresentStreaming, nil
	case "atomic":
		return PresentAtomic, nil
	default:
		return 0, fmt.Errorf("paint: unknown present policy %q", s)
	}
}

// Option configures a Task.
type Option func(*options)

type options struct {
	workers     int
	tileSize    int
	present     PresentPolicy
	images      dl.ImageSource
	jobTimeout  time.Duration
	maxAttempts int
	factory     RasterizerFactory
	background  dl.Color
	fontOpts    []fonts.ContextOption
}

func defaultOptions() options {
	return options{
		tileSize:    DefaultTileSize,
		present:     PresentStreaming,
		jobTimeout:  DefaultJobTimeout,
		maxAttempts: DefaultMaxAttempts,
		background:  dl.White,
	}
}

// WithWorkers sets the number of rasterization workers. Zero or less uses
// GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(o *options) { o.workers = n }
}

// WithTileSize sets the tile edge in device pixels.
func WithTileSize(size int) Option {
	return func(o *options) {
		if size > 0 {
			o.tileSize = size
		}
	}
}

// WithPresentPolicy selects streaming or atomic presentation.
func WithPresentPolicy(p PresentPolicy) Option {
	return func(o *options) { o.present = p }
}

// WithImages sets where image items find their pixels.
func WithImages(src dl.ImageSource) Option {
	return func(o *options) { o.images = src }
}

// WithJobTimeout sets how long a tile job may run before it is considered
// lost and submitted again.
func WithJobTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.jobTimeout = d
		}
	}
}

// WithMaxAttempts sets how often a tile is tried before a placeholder
// takes its place.
func WithMaxAttempts(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxAttempts = n
		}
	}
}

// WithRasterizerFactory replaces the per-worker rasterizer.
func WithRasterizerFactory(f RasterizerFactory) Option {
	return func(o *options) { o.factory = f }
}

// WithBackground sets the color every tile is cleared to.
func WithBackground(c dl.Color) Option {
	return func(o *options) { o.background = c }
}

// WithFontOptions applies opts to every worker's font context.
func WithFontOptions(opts ...fonts.ContextOption) Option {
	return func(o *options) { o.fontOpts = append(o.fontOpts, opts...) }
}

// OptionsFromConfig converts the paint and font sections of a
// configuration file into Task options.
func OptionsFromConfig(cfg webpaint.Config) ([]Option, error) {
	present, err := ParsePresentPolicy(cfg.Paint.Present)
	if err != nil {
		return nil, err
	}
	opts := []Option{
		WithWorkers(cfg.Paint.Workers),
		WithTileSize(cfg.Paint.TileSize),
		WithPresentPolicy(present),
		WithJobTimeout(cfg.Paint.JobTimeout.Std()),
		WithMaxAttempts(cfg.Paint.MaxAttempts),
	}
	var fontOpts []fonts.ContextOption
	if n := cfg.Fonts.FontCacheSize; n > 0 {
		fontOpts = append(fontOpts, fonts.WithFontCacheSize(n))
	}
	if n := cfg.Fonts.GroupCacheSize; n > 0 {
		fontOpts = append(fontOpts, fonts.WithGroupCacheSize(n))
	}
	if n := cfg.Fonts.ShapingCacheSize; n != 0 {
		fontOpts = append(fontOpts, fonts.WithFontOptions(fonts.WithShapingCacheSize(max(n, 0))))
	}
	if len(fontOpts) > 0 {
		opts = append(opts, WithFontOptions(fontOpts...))
	}
	return opts, nil
}
