package playback

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/pthm-cable/heatmap/heat"
	"github.com/pthm-cable/heatmap/telemetry"
)

// ErrStop is returned by a sink when the user asked to quit.
var ErrStop = errors.New("playback: stopped by user")

// FrameSource yields decoded frames in presentation order.
// Next returns io.EOF after the last frame.
type FrameSource interface {
	Next() (*heat.Frame, error)
	Size() (w, h int)
	FPS() float64
	Close() error
}

// FrameSink consumes rendered frames.
type FrameSink interface {
	WriteFrame(frame *heat.Frame) error
	Close() error
}

// Reason tells why Run returned.
type Reason string

const (
	ReasonPointsDone Reason = "points_done"
	ReasonEndOfVideo Reason = "end_of_video"
	ReasonSourceErr  Reason = "source_error"
	ReasonUserQuit   Reason = "user_quit"
	ReasonCanceled   Reason = "canceled"
	ReasonSinkErr    Reason = "sink_error"
)

// Summary describes a finished run.
type Summary struct {
	Frames   int
	Points   int
	Consumed int
	Elapsed  time.Duration
	Reason   Reason
}

// LogValue implements slog.LogValuer for structured logging.
func (s Summary) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("frames", s.Frames),
		slog.Int("points", s.Points),
		slog.Int("consumed", s.Consumed),
		slog.Duration("elapsed", s.Elapsed),
		slog.String("reason", string(s.Reason)),
	)
}

// Hooks receives optional per-frame callbacks from Run.
type Hooks struct {
	// AfterFrame is called after a frame was delivered to all sinks.
	AfterFrame func(sess *Session)
}

// Run pulls frames from src, renders them with sess and hands them to every
// sink until the points are exhausted, the video ends, a sink returns
// ErrStop or ctx is cancelled. Source errors end playback and are logged,
// not returned. A sink error other than ErrStop is returned.
func Run(ctx context.Context, sess *Session, src FrameSource, sinks ...FrameSink) (Summary, error) {
	return RunWithHooks(ctx, sess, src, Hooks{}, sinks...)
}

// RunWithHooks is Run with per-frame callbacks.
func RunWithHooks(ctx context.Context, sess *Session, src FrameSource, hooks Hooks, sinks ...FrameSink) (Summary, error) {
	start := time.Now()
	summary := func(r Reason) Summary {
		return Summary{
			Frames:   sess.Frames(),
			Points:   sess.Points(),
			Consumed: sess.Consumed(),
			Elapsed:  time.Since(start),
			Reason:   r,
		}
	}

	for !sess.Finished() {
		if err := ctx.Err(); err != nil {
			sess.Stop()
			return summary(ReasonCanceled), nil
		}

		sess.Perf.StartFrame()
		sess.Perf.StartPhase(telemetry.PhaseDecode)
		frame, err := src.Next()
		if err != nil {
			sess.Stop()
			if errors.Is(err, io.EOF) {
				return summary(ReasonEndOfVideo), nil
			}
			slog.Error("reading frame", "frame", sess.Frames(), "error", err)
			return summary(ReasonSourceErr), nil
		}

		if err := sess.Process(frame); err != nil {
			slog.Error("rendering frame", "frame", sess.Frames(), "error", err)
			return summary(ReasonSourceErr), nil
		}

		sess.Perf.StartPhase(telemetry.PhaseSinks)
		for _, sink := range sinks {
			if err := sink.WriteFrame(frame); err != nil {
				sess.Stop()
				if errors.Is(err, ErrStop) {
					return summary(ReasonUserQuit), nil
				}
				return summary(ReasonSinkErr), err
			}
		}
		sess.Perf.EndFrame()

		if hooks.AfterFrame != nil {
			hooks.AfterFrame(sess)
		}
	}

	return summary(ReasonPointsDone), nil
}
