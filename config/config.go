// Package config provides configuration loading and access for heatmap rendering.
package config

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/pthm-cable/heatmap/heat"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all rendering configuration parameters.
type Config struct {
	Kernel    KernelConfig    `yaml:"kernel"`
	Overlay   OverlayConfig   `yaml:"overlay"`
	Playback  PlaybackConfig  `yaml:"playback"`
	Output    OutputConfig    `yaml:"output"`
	Telemetry TelemetryConfig `yaml:"telemetry"`

	// Derived values computed after validation
	Derived DerivedConfig `yaml:"-"`
}

// KernelConfig describes the stamp added for every point.
type KernelConfig struct {
	Size      int     `yaml:"size"`      // Side length in pixels
	Shape     string  `yaml:"shape"`     // gaussian or linear
	Intensity float64 `yaml:"intensity"` // Base intensity, higher saturates faster (0-1]
}

// OverlayConfig controls fading and colouring of the heat overlay.
type OverlayConfig struct {
	FadeTime   float64 `yaml:"fade_time"`   // Seconds for full heat to fade to zero
	StartColor [3]int  `yaml:"start_color"` // HSV colour at low heat, 0-255 per channel
	EndColor   [3]int  `yaml:"end_color"`   // HSV colour at full heat
	MaxAlpha   float64 `yaml:"max_alpha"`   // Opacity cap of the overlay [0-1]
}

// PlaybackConfig controls the frame loop.
type PlaybackConfig struct {
	Realtime      bool `yaml:"realtime"`       // Pace playback at the source frame rate
	ShowVideo     bool `yaml:"show_video"`     // Open the preview window
	PrintProgress bool `yaml:"print_progress"` // Print percent progress in 1% steps
	Workers       int  `yaml:"workers"`        // Compositor goroutines, 0 = GOMAXPROCS
}

// OutputConfig holds optional output destinations.
type OutputConfig struct {
	Video        string `yaml:"video"`         // Rendered video path, empty = none
	FourCC       string `yaml:"fourcc"`        // Codec for the rendered video
	TelemetryDir string `yaml:"telemetry_dir"` // CSV telemetry directory, empty = none
}

// TelemetryConfig holds telemetry windows.
type TelemetryConfig struct {
	StatsWindow int `yaml:"stats_window"` // Frames per aggregated stats row
	PerfWindow  int `yaml:"perf_window"`  // Frames in the rolling perf window
}

// DerivedConfig holds typed values derived from the loaded config.
type DerivedConfig struct {
	Shape      heat.Shape
	StartColor heat.HSV
	EndColor   heat.HSV
}

// global holds the loaded configuration.
var global *Config

// Init loads configuration from the given path (or embedded defaults if empty)
// and stores it globally.
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// MustInit is like Init but panics on error.
func MustInit(path string) {
	if err := Init(path); err != nil {
		panic(fmt.Sprintf("config: failed to initialize: %v", err))
	}
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Default returns a fresh copy of the embedded defaults.
func Default() *Config {
	cfg, err := Load("")
	if err != nil {
		panic(fmt.Sprintf("config: embedded defaults invalid: %v", err))
	}
	return cfg
}

// Load reads configuration from a YAML file, merging with embedded defaults.
// The result is validated.
func Load(path string) (*Config, error) {
	// Start with embedded defaults
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Only overwrites fields present in file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks ranges and recomputes derived values. Call it again after
// modifying fields.
func (c *Config) Validate() error {
	if c.Kernel.Size <= 0 {
		return invalid("kernel.size must be > 0, got %d", c.Kernel.Size)
	}
	shape, err := heat.ParseShape(c.Kernel.Shape)
	if err != nil {
		return err
	}
	if !(c.Kernel.Intensity > 0 && c.Kernel.Intensity <= 1) {
		return invalid("kernel.intensity must be in (0,1], got %v", c.Kernel.Intensity)
	}
	if !(c.Overlay.FadeTime > 0) {
		return invalid("overlay.fade_time must be > 0, got %v", c.Overlay.FadeTime)
	}
	if !(c.Overlay.MaxAlpha >= 0 && c.Overlay.MaxAlpha <= 1) {
		return invalid("overlay.max_alpha must be in [0,1], got %v", c.Overlay.MaxAlpha)
	}
	start, err := hsv("overlay.start_color", c.Overlay.StartColor)
	if err != nil {
		return err
	}
	end, err := hsv("overlay.end_color", c.Overlay.EndColor)
	if err != nil {
		return err
	}
	if c.Output.FourCC != "" && len(c.Output.FourCC) != 4 {
		return invalid("output.fourcc must be exactly four characters, got %q", c.Output.FourCC)
	}
	if c.Playback.Workers < 0 {
		return invalid("playback.workers must be >= 0, got %d", c.Playback.Workers)
	}
	if c.Telemetry.StatsWindow <= 0 || c.Telemetry.PerfWindow <= 0 {
		return invalid("telemetry windows must be > 0")
	}

	c.Derived = DerivedConfig{
		Shape:      shape,
		StartColor: start,
		EndColor:   end,
	}
	return nil
}

// FadeRate is the amount subtracted from every cell per frame at fps.
func (c *Config) FadeRate(fps float64) float32 {
	return float32((1 / fps) / c.Overlay.FadeTime)
}

func hsv(name string, ch [3]int) (heat.HSV, error) {
	for _, v := range ch {
		if v < 0 || v > 255 {
			return heat.HSV{}, invalid("%s channels must be in [0,255], got %v", name, ch)
		}
	}
	return heat.HSV{H: uint8(ch[0]), S: uint8(ch[1]), V: uint8(ch[2])}, nil
}

// SetColor stores an HSV colour in a config colour slot.
func SetColor(dst *[3]int, c heat.HSV) {
	*dst = [3]int{int(c.H), int(c.S), int(c.V)}
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", heat.ErrInvalidConfiguration, fmt.Sprintf(format, args...))
}

// WriteYAML writes the config to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

// YAML returns the config as YAML text.
func (c *Config) YAML() (string, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("marshaling config: %w", err)
	}
	return string(data), nil
}
