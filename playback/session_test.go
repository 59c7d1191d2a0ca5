package playback

import (
	"errors"
	"math"
	"testing"

	"github.com/pthm-cable/heatmap/config"
	"github.com/pthm-cable/heatmap/heat"
	"github.com/pthm-cable/heatmap/points"
)

func testConfig(t *testing.T, mutate func(c *config.Config)) *config.Config {
	t.Helper()
	cfg := config.Default()
	if mutate != nil {
		mutate(cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}
	return cfg
}

func TestNewSession_InvalidFPS(t *testing.T) {
	cfg := testConfig(t, nil)
	for _, fps := range []float64{0, -1, 61, 120, math.NaN(), math.Inf(1)} {
		_, err := NewSession(32, 32, fps, cfg, nil)
		if !errors.Is(err, heat.ErrInvalidConfiguration) {
			t.Errorf("fps %v: expected ErrInvalidConfiguration, got %v", fps, err)
		}
	}

	if _, err := NewSession(32, 32, MaxFPS, cfg, nil); err != nil {
		t.Errorf("fps %d rejected: %v", MaxFPS, err)
	}
}

func TestNewSession_InvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Overlay.FadeTime = 0

	_, err := NewSession(32, 32, 25, cfg, nil)
	if !errors.Is(err, heat.ErrInvalidConfiguration) {
		t.Errorf("expected ErrInvalidConfiguration, got %v", err)
	}

	cfg = config.Default()
	cfg.Overlay.FadeTime = math.NaN()
	cfg.Overlay.MaxAlpha = math.NaN()
	_, err = NewSession(32, 32, 25, cfg, nil)
	if !errors.Is(err, heat.ErrInvalidConfiguration) {
		t.Errorf("NaN fade/alpha: expected ErrInvalidConfiguration, got %v", err)
	}

	_, err = NewSession(0, 32, 25, config.Default(), nil)
	if !errors.Is(err, heat.ErrInvalidConfiguration) {
		t.Errorf("zero width: expected ErrInvalidConfiguration, got %v", err)
	}
}

func TestSession_NoPointsFinishesImmediately(t *testing.T) {
	sess, err := NewSession(16, 16, 25, testConfig(t, nil), nil)
	if err != nil {
		t.Fatal(err)
	}
	if !sess.Finished() || sess.State() != StateFinished {
		t.Fatalf("state = %v, want finished", sess.State())
	}

	frame := heat.NewFrame(16, 16)
	before := frame.Clone()
	if err := sess.Process(frame); err != nil {
		t.Fatal(err)
	}
	if sess.Frames() != 0 || sess.Clock() != 0 {
		t.Error("finished session processed a frame")
	}
	if string(before.Image().Pix) != string(frame.Image().Pix) {
		t.Error("finished session modified the frame")
	}
}

func TestSession_FullFadeInOneFrame(t *testing.T) {
	for _, shape := range []string{"gaussian", "linear"} {
		t.Run(shape, func(t *testing.T) {
			cfg := testConfig(t, func(c *config.Config) {
				c.Kernel.Size = 5
				c.Kernel.Shape = shape
				c.Kernel.Intensity = 1
				c.Overlay.FadeTime = 0.1
			})
			pts := []points.Point{
				{Timestamp: 0.0, X: 10, Y: 10},
				{Timestamp: 2.0, X: 20, Y: 20},
			}
			sess, err := NewSession(32, 32, 10, cfg, pts)
			if err != nil {
				t.Fatal(err)
			}
			if sess.FadeRate() != 1 {
				t.Fatalf("fade rate = %v, want 1", sess.FadeRate())
			}
			if sess.State() != StatePlaying {
				t.Fatalf("state = %v, want playing", sess.State())
			}

			if err := sess.Process(heat.NewFrame(32, 32)); err != nil {
				t.Fatal(err)
			}

			// Every cell was capped at 1 before fading by 1.
			if m := sess.Field().Max(); m != 0 {
				t.Errorf("field max after first frame = %v, want 0", m)
			}
			if sess.Consumed() != 1 {
				t.Errorf("consumed = %d, want 1", sess.Consumed())
			}
			if sess.Finished() {
				t.Error("finished with a point pending")
			}
			if math.Abs(sess.Clock()-0.1) > 1e-12 {
				t.Errorf("clock = %v, want 0.1", sess.Clock())
			}
		})
	}
}

func TestSession_GradualFade(t *testing.T) {
	cfg := testConfig(t, func(c *config.Config) {
		c.Kernel.Size = 5
		c.Kernel.Shape = "gaussian"
		c.Kernel.Intensity = 0.1
		c.Overlay.FadeTime = 0.4
	})
	pts := []points.Point{
		{Timestamp: 0, X: 10, Y: 10},
		{Timestamp: 5, X: 0, Y: 0},
	}
	sess, err := NewSession(32, 32, 10, cfg, pts)
	if err != nil {
		t.Fatal(err)
	}
	if sess.FadeRate() != 0.25 {
		t.Fatalf("fade rate = %v, want 0.25", sess.FadeRate())
	}

	k := sess.Kernel()
	cells := [][2]int{{8, 8}, {9, 10}, {10, 10}, {12, 11}}
	for n := 1; n <= 5; n++ {
		if err := sess.Process(heat.NewFrame(32, 32)); err != nil {
			t.Fatal(err)
		}
		for _, c := range cells {
			kv := k.At(c[0]-8, c[1]-8)
			want := max(0, min(kv, 1)-0.25*float32(n))
			if got := sess.Field().At(c[0], c[1]); got != want {
				t.Errorf("frame %d cell %v = %v, want %v", n, c, got, want)
			}
		}
	}
}

func TestSession_ProgressEmittedOncePerIncrease(t *testing.T) {
	cfg := testConfig(t, func(c *config.Config) { c.Kernel.Size = 3 })
	pts := []points.Point{
		{Timestamp: 0.15, X: 1, Y: 1},
		{Timestamp: 0.15, X: 2, Y: 2},
		{Timestamp: 0.25, X: 3, Y: 3},
		{Timestamp: 0.35, X: 4, Y: 4},
	}
	sess, err := NewSession(16, 16, 10, cfg, pts)
	if err != nil {
		t.Fatal(err)
	}

	var got []int
	sess.OnProgress(func(p int) { got = append(got, p) })

	for !sess.Finished() {
		if err := sess.Process(heat.NewFrame(16, 16)); err != nil {
			t.Fatal(err)
		}
		if sess.Frames() > 10 {
			t.Fatal("session did not finish")
		}
	}

	want := []int{0, 50, 75, 100}
	if len(got) != len(want) {
		t.Fatalf("progress = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("progress[%d] = %d, want %d", i, got[i], want[i])
		}
	}
	if sess.Frames() != 5 {
		t.Errorf("frames = %d, want 5", sess.Frames())
	}
}

func TestSession_DuplicateTimestampsAllSplatted(t *testing.T) {
	cfg := testConfig(t, func(c *config.Config) {
		c.Kernel.Size = 3
		c.Kernel.Shape = "linear"
		c.Kernel.Intensity = 0.25
	})
	pts := []points.Point{{Timestamp: 0, X: 5, Y: 5}, {Timestamp: 0, X: 5, Y: 5}, {Timestamp: 0, X: 5, Y: 5}}
	sess, err := NewSession(16, 16, 25, cfg, pts)
	if err != nil {
		t.Fatal(err)
	}
	sess.RecordStats = true

	if err := sess.Process(heat.NewFrame(16, 16)); err != nil {
		t.Fatal(err)
	}
	if !sess.Finished() {
		t.Error("expected finished after last point")
	}

	st := sess.Stats()
	if st.Consumed != 3 || st.Frame != 0 {
		t.Errorf("stats = %+v", st)
	}
	if math.Abs(st.MaxHeat-0.75) > 1e-6 {
		t.Errorf("max heat = %v, want 0.75", st.MaxHeat)
	}
}

func TestSession_FrameSizeMismatch(t *testing.T) {
	sess, err := NewSession(16, 16, 25, testConfig(t, nil), []points.Point{{Timestamp: 0, X: 1, Y: 1}})
	if err != nil {
		t.Fatal(err)
	}
	err = sess.Process(heat.NewFrame(8, 8))
	if !errors.Is(err, heat.ErrFrameSize) {
		t.Errorf("expected ErrFrameSize, got %v", err)
	}
	if !sess.Finished() {
		t.Error("mismatch should finish the session")
	}
}

func TestSession_ManualSplatAndStop(t *testing.T) {
	sess, err := NewSession(20, 20, 25, testConfig(t, nil), []points.Point{{Timestamp: 9, X: 1, Y: 1}})
	if err != nil {
		t.Fatal(err)
	}
	sess.Splat(10, 10)
	if sess.Field().Total() == 0 {
		t.Error("manual splat added no heat")
	}
	sess.Stop()
	if sess.State() != StateFinished {
		t.Errorf("state = %v after Stop", sess.State())
	}
	if StatePlaying.String() != "playing" {
		t.Errorf("State.String = %q", StatePlaying.String())
	}
}
