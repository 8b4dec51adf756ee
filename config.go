package webpaint

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config holds the tunables shared by the paint task and the font cache
// service. Zero values select the package defaults.
type Config struct {
	Paint PaintConfig `toml:"paint"`
	Fonts FontConfig  `toml:"fonts"`
}

// PaintConfig configures the paint task.
type PaintConfig struct {
	// Workers is the rasterization worker count. Zero means GOMAXPROCS.
	Workers int `toml:"workers"`

	// TileSize is the edge length of a square tile in device pixels.
	TileSize int `toml:"tile_size"`

	// Present is "streaming" or "atomic".
	Present string `toml:"present"`

	// JobTimeout bounds how long a dispatched tile may stay unanswered
	// before it is resubmitted.
	JobTimeout Duration `toml:"job_timeout"`

	// MaxAttempts is how many times a tile is dispatched before the
	// orchestrator gives up and inserts a placeholder.
	MaxAttempts int `toml:"max_attempts"`
}

// FontConfig configures font resolution and shaping caches.
type FontConfig struct {
	// FailureTTL is how long a failed resolution is remembered.
	FailureTTL Duration `toml:"failure_ttl"`

	// ShapingCacheSize bounds each font's shaping cache. Zero keeps the default;
	// a negative value disables shaping caching.
	ShapingCacheSize int `toml:"shaping_cache_size"`

	// FontCacheSize bounds the fonts kept by each font context.
	FontCacheSize int `toml:"font_cache_size"`

	// GroupCacheSize bounds the font groups kept by each font context.
	GroupCacheSize int `toml:"group_cache_size"`

	// Generic maps generic family keywords (serif, sans-serif, ...) to
	// ordered family lists.
	Generic map[string][]string `toml:"generic"`

	// SystemFonts enables enumeration of installed fonts.
	SystemFonts bool `toml:"system_fonts"`
}

// Duration is a time.Duration that decodes from TOML strings like "250ms".
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return fmt.Errorf("webpaint: invalid duration %q: %w", b, err)
	}
	*d = Duration(v)
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// DefaultConfig returns the configuration used when nothing is specified.
func DefaultConfig() Config {
	return Config{
		Paint: PaintConfig{
			TileSize:    256,
			Present:     "streaming",
			JobTimeout:  Duration(2 * time.Second),
			MaxAttempts: 3,
		},
		Fonts: FontConfig{
			FailureTTL:  Duration(5 * time.Second),
			SystemFonts: true,
		},
	}
}

// ParseConfig decodes TOML data on top of DefaultConfig.
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("webpaint: parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadConfig reads and decodes a TOML configuration file.
func LoadConfig(path string) (Config, error) {
	// #nosec G304 -- config path is provided by the operator
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("webpaint: read config: %w", err)
	}
	return ParseConfig(data)
}

// Validate reports configuration values that cannot be honored.
func (c Config) Validate() error {
	switch strings.ToLower(strings.TrimSpace(c.Paint.Present)) {
	case "", "streaming", "atomic":
	default:
		return fmt.Errorf("webpaint: unknown present policy %q", c.Paint.Present)
	}
	if c.Paint.TileSize < 0 {
		return fmt.Errorf("webpaint: negative tile size %d", c.Paint.TileSize)
	}
	if c.Paint.Workers < 0 {
		return fmt.Errorf("webpaint: negative worker count %d", c.Paint.Workers)
	}
	if c.Fonts.FailureTTL < 0 {
		return fmt.Errorf("webpaint: negative failure ttl %v", c.Fonts.FailureTTL.Std())
	}
	return nil
}
