package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pthm-cable/heatmap/config"
	"github.com/pthm-cable/heatmap/heat"
	"github.com/pthm-cable/heatmap/telemetry"
)

func changedSet(names ...string) func(string) bool {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return func(name string) bool { return set[name] }
}

func TestApplyFlags_OnlyChangedFlagsOverride(t *testing.T) {
	cfg := config.Default()
	cfg.Kernel.Size = 31 // as if set by a config file

	opts := &runOptions{
		kernelSize: 75,
		linear:     true,
		startColor: "10,20,30",
		noWait:     true,
		noVideo:    true,
		outVideo:   "out.avi",
		fourCC:     "XVID",
	}
	changed := changedSet("linear", "start-color", "no-wait", "no-video", "out-video", "four-cc")
	if err := applyFlags(cfg, changed, opts); err != nil {
		t.Fatal(err)
	}

	if cfg.Kernel.Size != 31 {
		t.Errorf("unchanged flag overrode kernel size: %d", cfg.Kernel.Size)
	}
	if cfg.Derived.Shape != heat.ShapeLinear {
		t.Errorf("shape = %v, want linear", cfg.Derived.Shape)
	}
	if cfg.Derived.StartColor != (heat.HSV{H: 10, S: 20, V: 30}) {
		t.Errorf("start color = %v", cfg.Derived.StartColor)
	}
	if cfg.Playback.Realtime || cfg.Playback.ShowVideo {
		t.Error("--no-wait/--no-video not applied")
	}
	if cfg.Output.Video != "out.avi" || cfg.Output.FourCC != "XVID" {
		t.Errorf("output = %+v", cfg.Output)
	}
}

func TestApplyFlags_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		opts    runOptions
		changed []string
	}{
		{"zero kernel", runOptions{kernelSize: 0}, []string{"kernel-size"}},
		{"zero fade", runOptions{fadeTime: 0}, []string{"fade-time"}},
		{"NaN fade", runOptions{fadeTime: math.NaN()}, []string{"fade-time"}},
		{"NaN alpha", runOptions{alphaMax: math.NaN()}, []string{"alpha-max"}},
		{"intensity above one", runOptions{intensity: 1.5}, []string{"intensity"}},
		{"alpha above one", runOptions{alphaMax: 2}, []string{"alpha-max"}},
		{"bad colour", runOptions{endColor: "0,300,0"}, []string{"end-color"}},
		{"short colour", runOptions{startColor: "1,2"}, []string{"start-color"}},
		{"fourcc without output", runOptions{fourCC: "XVID"}, []string{"four-cc"}},
		{"fourcc length", runOptions{outVideo: "o.avi", fourCC: "MPEG4"}, []string{"out-video", "four-cc"}},
		{"negative workers", runOptions{workers: -1}, []string{"workers"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := applyFlags(config.Default(), changedSet(tt.changed...), &tt.opts)
			if !errors.Is(err, heat.ErrInvalidConfiguration) {
				t.Errorf("expected ErrInvalidConfiguration, got %v", err)
			}
		})
	}
}

func TestExitCode(t *testing.T) {
	if got := exitCode(errors.New("plain")); got != exitUsage {
		t.Errorf("plain error code = %d", got)
	}
	wrapped := fmt.Errorf("outer: %w", withCode(exitPointData, errors.New("inner")))
	if got := exitCode(wrapped); got != exitPointData {
		t.Errorf("wrapped code = %d, want %d", got, exitPointData)
	}
	if withCode(exitVideo, nil) != nil {
		t.Error("withCode(nil) should be nil")
	}
}

func TestCheckFPS(t *testing.T) {
	for _, fps := range []float64{1, 25, 29.97, 60} {
		if err := checkFPS(fps); err != nil {
			t.Errorf("fps %v rejected: %v", fps, err)
		}
	}
	for _, fps := range []float64{0, -5, 60.5, 1000} {
		if err := checkFPS(fps); err == nil {
			t.Errorf("fps %v accepted", fps)
		}
	}
}

func TestPlotStats(t *testing.T) {
	rows := []telemetry.WindowStats{
		{RunID: "abc", WindowStart: 0, WindowEnd: 29, HeatMean: 1, Points: 3},
		{RunID: "abc", WindowStart: 30, WindowEnd: 59, HeatMean: 4, Points: 0, Clock: 2},
	}
	var buf bytes.Buffer
	if err := plotStats(&buf, rows, "heat_mean", 5, 20); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "heat_mean per 30-frame window") {
		t.Errorf("missing caption:\n%s", buf.String())
	}

	if err := plotStats(&buf, rows, "nope", 5, 20); err == nil {
		t.Error("unknown series accepted")
	}
	if err := plotStats(&buf, nil, "points", 5, 20); !errors.Is(err, errNoTelemetry) {
		t.Errorf("expected errNoTelemetry, got %v", err)
	}
}

// writeFixture creates n black PNG frames and a point log.
func writeFixture(t *testing.T, n int, pointLog string) (videoDir, pointsPath string) {
	t.Helper()
	videoDir = t.TempDir()
	for i := 0; i < n; i++ {
		f, err := os.Create(filepath.Join(videoDir, fmt.Sprintf("%03d.png", i)))
		if err != nil {
			t.Fatal(err)
		}
		if err := png.Encode(f, heat.NewFrame(32, 32).Image()); err != nil {
			t.Fatal(err)
		}
		f.Close()
	}
	pointsPath = filepath.Join(t.TempDir(), "points.txt")
	if err := os.WriteFile(pointsPath, []byte(pointLog), 0644); err != nil {
		t.Fatal(err)
	}
	return videoDir, pointsPath
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRootCmd_RendersImageSequence(t *testing.T) {
	videoDir, pointsPath := writeFixture(t, 5, "0 16 16\n0.2 16 16\n")
	outDir := filepath.Join(t.TempDir(), "frames") + string(os.PathSeparator)
	telemetryDir := t.TempDir()

	out, err := execute(t,
		"--no-video", "--no-wait", "--print-progress",
		"--image-fps", "10", "-k", "9", "--log-level", "warn",
		"-o", outDir, "--telemetry-dir", telemetryDir,
		videoDir, pointsPath,
	)
	if err != nil {
		t.Fatalf("run failed: %v\n%s", err, out)
	}

	for _, want := range []string{"Video FPS:", "Number of data points:", "50%", "100%", "points_done"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	frames, err := filepath.Glob(filepath.Join(outDir, "frame_*.png"))
	if err != nil {
		t.Fatal(err)
	}
	if len(frames) != 3 {
		t.Errorf("wrote %d frames, want 3", len(frames))
	}

	rows, err := telemetry.ReadWindowStats(filepath.Join(telemetryDir, "telemetry.csv"))
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 || rows[0].Consumed != 2 || rows[0].WindowEnd != 2 {
		t.Errorf("telemetry rows = %+v", rows)
	}
	if _, err := config.Load(filepath.Join(telemetryDir, "config.yaml")); err != nil {
		t.Errorf("config snapshot: %v", err)
	}
}

func TestRootCmd_ExitCodes(t *testing.T) {
	videoDir, pointsPath := writeFixture(t, 2, "0 1 1\n")
	badPoints := filepath.Join(t.TempDir(), "bad.txt")
	if err := os.WriteFile(badPoints, []byte("0 1\n"), 0644); err != nil {
		t.Fatal(err)
	}
	base := []string{"--no-video", "--no-wait", "--log-level", "error"}

	tests := []struct {
		name string
		args []string
		code int
	}{
		{"missing args", []string{videoDir}, exitUsage},
		{"bad flag value", []string{"--alpha-max", "3", videoDir, pointsPath}, exitUsage},
		{"fourcc without output", []string{"--four-cc", "XVID", videoDir, pointsPath}, exitUsage},
		{"missing video", []string{filepath.Join(videoDir, "nope.avi"), pointsPath}, exitVideo},
		{"fps too high", []string{"--image-fps", "120", videoDir, pointsPath}, exitFPS},
		{"unsupported fourcc", []string{"-o", filepath.Join(t.TempDir(), "o.avi"), "--four-cc", "ZZZZ", videoDir, pointsPath}, exitFourCC},
		{"bad points", []string{videoDir, badPoints}, exitPointData},
		{"missing points", []string{videoDir, badPoints + ".missing"}, exitPointData},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(t, append(append([]string{}, base...), tt.args...)...)
			if err == nil {
				t.Fatalf("expected failure\n%s", out)
			}
			if got := exitCode(err); got != tt.code {
				t.Errorf("exit code = %d, want %d (err: %v)", got, tt.code, err)
			}
		})
	}
}

func TestConfigCmd_PrintsEffectiveYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "c.yaml")
	if err := os.WriteFile(path, []byte("kernel:\n  size: 21\n"), 0644); err != nil {
		t.Fatal(err)
	}
	out, err := execute(t, "config", "--config", path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "size: 21") || !strings.Contains(out, "fade_time: 2") {
		t.Errorf("unexpected config output:\n%s", out)
	}
}
