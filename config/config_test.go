package config

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/pthm-cable/heatmap/heat"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load defaults: %v", err)
	}

	if cfg.Kernel.Size != 75 {
		t.Errorf("kernel size = %d, want 75", cfg.Kernel.Size)
	}
	if cfg.Kernel.Intensity != 0.1 {
		t.Errorf("intensity = %v, want 0.1", cfg.Kernel.Intensity)
	}
	if cfg.Overlay.FadeTime != 2.0 {
		t.Errorf("fade time = %v, want 2.0", cfg.Overlay.FadeTime)
	}
	if cfg.Overlay.MaxAlpha != 0.6 {
		t.Errorf("max alpha = %v, want 0.6", cfg.Overlay.MaxAlpha)
	}
	if cfg.Output.FourCC != "MJPG" {
		t.Errorf("fourcc = %q, want MJPG", cfg.Output.FourCC)
	}
	if !cfg.Playback.Realtime || !cfg.Playback.ShowVideo {
		t.Error("expected realtime playback with preview by default")
	}

	if cfg.Derived.Shape != heat.ShapeGaussian {
		t.Errorf("derived shape = %v", cfg.Derived.Shape)
	}
	if cfg.Derived.StartColor != (heat.HSV{H: 170, S: 255, V: 255}) {
		t.Errorf("derived start colour = %v", cfg.Derived.StartColor)
	}
	if cfg.Derived.EndColor != (heat.HSV{H: 0, S: 255, V: 255}) {
		t.Errorf("derived end colour = %v", cfg.Derived.EndColor)
	}
}

func TestLoadMergesUserFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "user.yaml")
	data := []byte("kernel:\n  size: 31\n  shape: linear\noverlay:\n  end_color: [10, 20, 30]\n")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Kernel.Size != 31 {
		t.Errorf("size = %d, want 31", cfg.Kernel.Size)
	}
	if cfg.Derived.Shape != heat.ShapeLinear {
		t.Errorf("shape = %v, want linear", cfg.Derived.Shape)
	}
	// Keys absent from the file keep their defaults.
	if cfg.Kernel.Intensity != 0.1 {
		t.Errorf("intensity = %v, want default 0.1", cfg.Kernel.Intensity)
	}
	if cfg.Derived.EndColor != (heat.HSV{H: 10, S: 20, V: 30}) {
		t.Errorf("end colour = %v", cfg.Derived.EndColor)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected not-exist error, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"zero kernel", func(c *Config) { c.Kernel.Size = 0 }},
		{"bad shape", func(c *Config) { c.Kernel.Shape = "box" }},
		{"zero intensity", func(c *Config) { c.Kernel.Intensity = 0 }},
		{"intensity above 1", func(c *Config) { c.Kernel.Intensity = 1.5 }},
		{"zero fade", func(c *Config) { c.Overlay.FadeTime = 0 }},
		{"negative alpha", func(c *Config) { c.Overlay.MaxAlpha = -0.1 }},
		{"alpha above 1", func(c *Config) { c.Overlay.MaxAlpha = 1.1 }},
		{"NaN intensity", func(c *Config) { c.Kernel.Intensity = math.NaN() }},
		{"NaN fade", func(c *Config) { c.Overlay.FadeTime = math.NaN() }},
		{"NaN alpha", func(c *Config) { c.Overlay.MaxAlpha = math.NaN() }},
		{"colour channel", func(c *Config) { c.Overlay.StartColor = [3]int{0, 300, 0} }},
		{"short fourcc", func(c *Config) { c.Output.FourCC = "MJP" }},
		{"negative workers", func(c *Config) { c.Playback.Workers = -1 }},
		{"zero stats window", func(c *Config) { c.Telemetry.StatsWindow = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); !errors.Is(err, heat.ErrInvalidConfiguration) {
				t.Errorf("expected ErrInvalidConfiguration, got %v", err)
			}
		})
	}
}

func TestFadeRate(t *testing.T) {
	cfg := Default()
	cfg.Overlay.FadeTime = 0.1
	if got := cfg.FadeRate(10); got != 1 {
		t.Errorf("FadeRate(10) = %v, want 1", got)
	}

	cfg.Overlay.FadeTime = 2
	if got := cfg.FadeRate(25); got != float32(0.02) {
		t.Errorf("FadeRate(25) = %v, want 0.02", got)
	}
}

func TestWriteYAMLRoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Kernel.Size = 11
	SetColor(&cfg.Overlay.StartColor, heat.HSV{H: 1, S: 2, V: 3})

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := cfg.WriteYAML(path); err != nil {
		t.Fatal(err)
	}

	back, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if back.Kernel.Size != 11 || back.Derived.StartColor != (heat.HSV{H: 1, S: 2, V: 3}) {
		t.Errorf("round trip lost values: %+v", back.Kernel)
	}
}

func TestCfgGlobal(t *testing.T) {
	MustInit("")
	if Cfg().Kernel.Size != 75 {
		t.Errorf("global kernel size = %d", Cfg().Kernel.Size)
	}
}
