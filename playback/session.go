// Package playback drives the heat engine frame by frame: it releases points
// as video time passes, composites the field onto every frame and fades it.
package playback

import (
	"fmt"
	"math"

	"github.com/pthm-cable/heatmap/config"
	"github.com/pthm-cable/heatmap/heat"
	"github.com/pthm-cable/heatmap/points"
	"github.com/pthm-cable/heatmap/telemetry"
)

// MaxFPS is the highest frame rate accepted; decoders sometimes report
// bogus rates above it.
const MaxFPS = 60

// State is the lifecycle stage of a Session.
type State int

const (
	StateInitializing State = iota
	StatePlaying
	StateFinished
)

func (s State) String() string {
	switch s {
	case StateInitializing:
		return "initializing"
	case StatePlaying:
		return "playing"
	case StateFinished:
		return "finished"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Session owns the field, kernel and compositor for one video.
// It is not safe for concurrent use.
type Session struct {
	w, h      int
	fps       float64
	frameTime float64

	field      *heat.Field
	kernel     *heat.Kernel
	compositor *heat.Compositor
	fadeRate   float32

	points []points.Point
	next   int
	clock  float64
	frames int
	state  State

	progress   int
	onProgress func(int)

	// Perf receives phase timings; nil disables timing.
	Perf *telemetry.PerfCollector
	// RecordStats snapshots the field after compositing, see Stats.
	RecordStats bool
	last        telemetry.FrameStats
}

// NewSession validates cfg and fps and prepares a session for w x h frames.
// pts must be sorted by timestamp.
func NewSession(w, h int, fps float64, cfg *config.Config, pts []points.Point) (*Session, error) {
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("%w: frame size %dx%d", heat.ErrInvalidConfiguration, w, h)
	}
	if !(fps > 0) || fps > MaxFPS || math.IsInf(fps, 0) {
		return nil, fmt.Errorf("%w: fps %v outside (0, %d]", heat.ErrInvalidConfiguration, fps, MaxFPS)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	kernel, err := heat.NewKernel(cfg.Kernel.Size, cfg.Derived.Shape, cfg.Kernel.Intensity)
	if err != nil {
		return nil, err
	}

	comp := heat.NewCompositor(cfg.Derived.StartColor, cfg.Derived.EndColor, cfg.Overlay.MaxAlpha)
	comp.Workers = cfg.Playback.Workers

	s := &Session{
		w:          w,
		h:          h,
		fps:        fps,
		frameTime:  1 / fps,
		field:      heat.NewField(w, h),
		kernel:     kernel,
		compositor: comp,
		fadeRate:   cfg.FadeRate(fps),
		points:     pts,
		state:      StatePlaying,
		progress:   -1,
	}
	if len(pts) == 0 {
		s.state = StateFinished
	}
	return s, nil
}

// OnProgress registers fn to receive whole percentages of consumed points.
// fn is called only when the percentage increases.
func (s *Session) OnProgress(fn func(percent int)) {
	s.onProgress = fn
}

// Process renders one frame in place: due points are splatted, the field is
// composited onto frame and then faded. The clock advances by one frame.
// Once every point has been consumed the session finishes; further calls
// are no-ops.
func (s *Session) Process(frame *heat.Frame) error {
	if s.state == StateFinished {
		return nil
	}

	s.Perf.StartPhase(telemetry.PhaseSplat)
	for s.next < len(s.points) && s.points[s.next].Timestamp <= s.clock {
		p := s.points[s.next]
		s.field.Splat(p.X, p.Y, s.kernel)
		s.next++
	}
	s.reportProgress()

	s.Perf.StartPhase(telemetry.PhaseComposite)
	if err := s.compositor.Apply(s.field, frame); err != nil {
		s.state = StateFinished
		return err
	}
	if s.RecordStats {
		s.last = telemetry.FrameStats{
			Frame:       s.frames,
			Clock:       s.clock,
			Consumed:    s.next,
			TotalHeat:   s.field.Total(),
			MaxHeat:     float64(s.field.Max()),
			ActiveCells: s.field.Active(),
		}
	}

	s.Perf.StartPhase(telemetry.PhaseDecay)
	s.field.Decay(s.fadeRate)

	s.frames++
	s.clock += s.frameTime
	if s.next >= len(s.points) {
		s.state = StateFinished
	}
	return nil
}

func (s *Session) reportProgress() {
	pct := s.Progress()
	if pct > s.progress {
		s.progress = pct
		if s.onProgress != nil {
			s.onProgress(pct)
		}
	}
}

// Progress returns the whole percentage of points consumed.
func (s *Session) Progress() int {
	if len(s.points) == 0 {
		return 100
	}
	return int(float64(s.next) / float64(len(s.points)) * 100)
}

// Splat adds one kernel of heat at (x, y) outside the point schedule.
func (s *Session) Splat(x, y int) {
	s.field.Splat(x, y, s.kernel)
}

// Stop finishes the session early.
func (s *Session) Stop() {
	s.state = StateFinished
}

// Finished reports whether playback is over.
func (s *Session) Finished() bool { return s.state == StateFinished }

// State returns the lifecycle stage.
func (s *Session) State() State { return s.state }

// Clock returns the video time of the next frame in seconds.
func (s *Session) Clock() float64 { return s.clock }

// Frames returns the number of frames processed.
func (s *Session) Frames() int { return s.frames }

// Consumed returns the number of points splatted so far.
func (s *Session) Consumed() int { return s.next }

// Points returns the number of scheduled points.
func (s *Session) Points() int { return len(s.points) }

// Field exposes the heat field.
func (s *Session) Field() *heat.Field { return s.field }

// Kernel returns the splat kernel.
func (s *Session) Kernel() *heat.Kernel { return s.kernel }

// FadeRate returns the per-frame decay amount.
func (s *Session) FadeRate() float32 { return s.fadeRate }

// Size returns the frame size the session expects.
func (s *Session) Size() (w, h int) { return s.w, s.h }

// FPS returns the frame rate.
func (s *Session) FPS() float64 { return s.fps }

// Stats returns the field snapshot of the last processed frame, taken
// between compositing and decay. Zero unless RecordStats is set.
func (s *Session) Stats() telemetry.FrameStats { return s.last }
