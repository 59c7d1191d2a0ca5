package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/pthm-cable/heatmap/config"
	"github.com/pthm-cable/heatmap/heat"
	"github.com/pthm-cable/heatmap/playback"
	"github.com/pthm-cable/heatmap/points"
	"github.com/pthm-cable/heatmap/preview"
	"github.com/pthm-cable/heatmap/telemetry"
	"github.com/pthm-cable/heatmap/video"
)

// runOptions holds the rendering flags. Only flags given on the command
// line override the config file.
type runOptions struct {
	kernelSize    int
	fadeTime      float64
	linear        bool
	intensity     float64
	startColor    string
	endColor      string
	alphaMax      float64
	noWait        bool
	printProgress bool
	noVideo       bool
	outVideo      string
	fourCC        string
	telemetryDir  string
	workers       int
	imageFPS      float64
}

// applyFlags copies every changed flag into cfg and validates the result.
func applyFlags(cfg *config.Config, changed func(name string) bool, opts *runOptions) error {
	if changed("kernel-size") {
		cfg.Kernel.Size = opts.kernelSize
	}
	if changed("fade-time") {
		cfg.Overlay.FadeTime = opts.fadeTime
	}
	if changed("linear") {
		cfg.Kernel.Shape = heat.ShapeGaussian.String()
		if opts.linear {
			cfg.Kernel.Shape = heat.ShapeLinear.String()
		}
	}
	if changed("intensity") {
		cfg.Kernel.Intensity = opts.intensity
	}
	if changed("start-color") {
		c, err := heat.ParseHSV(opts.startColor)
		if err != nil {
			return fmt.Errorf("%w: --start-color: %v", heat.ErrInvalidConfiguration, err)
		}
		config.SetColor(&cfg.Overlay.StartColor, c)
	}
	if changed("end-color") {
		c, err := heat.ParseHSV(opts.endColor)
		if err != nil {
			return fmt.Errorf("%w: --end-color: %v", heat.ErrInvalidConfiguration, err)
		}
		config.SetColor(&cfg.Overlay.EndColor, c)
	}
	if changed("alpha-max") {
		cfg.Overlay.MaxAlpha = opts.alphaMax
	}
	if changed("no-wait") {
		cfg.Playback.Realtime = !opts.noWait
	}
	if changed("print-progress") {
		cfg.Playback.PrintProgress = opts.printProgress
	}
	if changed("no-video") {
		cfg.Playback.ShowVideo = !opts.noVideo
	}
	if changed("out-video") {
		cfg.Output.Video = opts.outVideo
	}
	if changed("four-cc") {
		if cfg.Output.Video == "" {
			return fmt.Errorf("%w: --four-cc requires --out-video", heat.ErrInvalidConfiguration)
		}
		cfg.Output.FourCC = opts.fourCC
	}
	if changed("telemetry-dir") {
		cfg.Output.TelemetryDir = opts.telemetryDir
	}
	if changed("workers") {
		cfg.Playback.Workers = opts.workers
	}
	return cfg.Validate()
}

func runHeatmap(ctx context.Context, cmd *cobra.Command, global *globalOptions, opts *runOptions, videoPath, pointsPath string) error {
	runID := uuid.New().String()
	slog.SetDefault(slog.Default().With("run_id", runID))
	out := cmd.OutOrStdout()

	if err := config.Init(global.configPath); err != nil {
		return withCode(exitUsage, err)
	}
	cfg := config.Cfg()
	if err := applyFlags(cfg, cmd.Flags().Changed, opts); err != nil {
		return withCode(exitUsage, err)
	}

	src, err := video.Open(videoPath, opts.imageFPS)
	if err != nil {
		return withCode(exitVideo, fmt.Errorf("couldn't open video file: %w", err))
	}
	defer src.Close()

	fps := src.FPS()
	fmt.Fprintf(out, "%s %s\n", labelStyle.Render("Video FPS:"), valueStyle.Render(fmt.Sprintf("%g", fps)))
	if err := checkFPS(fps); err != nil {
		return withCode(exitFPS, err)
	}
	w, h := src.Size()

	var sinks []playback.FrameSink
	if cfg.Output.Video != "" {
		writer, err := video.Create(cfg.Output.Video, cfg.Output.FourCC, fps, w, h)
		if err != nil {
			return withCode(exitFourCC, fmt.Errorf("FOURCC code %q not supported: %w", cfg.Output.FourCC, err))
		}
		defer closeSink("video writer", writer)
		sinks = append(sinks, writer)
	}

	pts, err := points.Load(pointsPath)
	if err != nil {
		return withCode(exitPointData, fmt.Errorf("couldn't read data file: %w", err))
	}
	fmt.Fprintf(out, "%s %s\n", labelStyle.Render("Number of data points:"), valueStyle.Render(fmt.Sprint(len(pts))))

	sess, err := playback.NewSession(w, h, fps, cfg, pts)
	if err != nil {
		return withCode(exitUsage, err)
	}
	if cfg.Playback.PrintProgress {
		sess.OnProgress(func(pct int) {
			fmt.Fprintln(out, valueStyle.Render(fmt.Sprintf("%d%%", pct)))
		})
	}

	switch {
	case cfg.Playback.ShowVideo:
		target := 0
		if cfg.Playback.Realtime {
			target = int(math.Round(fps))
		}
		win := preview.NewWindow("Heatmap", w, h, target)
		win.OnMouse(sess)
		win.ShowProgress(sess.Progress)
		defer win.Close()
		sinks = append(sinks, win)
	case cfg.Playback.Realtime:
		sinks = append(sinks, playback.NewPacer(fps))
	}

	rec, err := newRecorder(runID, cfg, w*h)
	if err != nil {
		return withCode(exitUsage, err)
	}
	defer rec.close()
	if rec != nil {
		sess.Perf = telemetry.NewPerfCollector(cfg.Telemetry.PerfWindow)
		sess.RecordStats = true
	}

	slog.Info("playback starting",
		"video", videoPath,
		"points", len(pts),
		"width", w,
		"height", h,
		"fps", fps,
		"kernel_size", cfg.Kernel.Size,
		"shape", cfg.Kernel.Shape,
		"fade_rate", sess.FadeRate(),
	)

	summary, err := playback.RunWithHooks(ctx, sess, src, playback.Hooks{AfterFrame: rec.afterFrame}, sinks...)
	rec.finish(sess)
	slog.Info("playback finished", "summary", summary)
	printSummary(out, summary)
	return err
}

// checkFPS rejects rates a decoder reports when it cannot read the real one.
func checkFPS(fps float64) error {
	if !(fps > 0) || fps > playback.MaxFPS {
		return fmt.Errorf("video FPS %g is too high or can't read correct FPS value", fps)
	}
	return nil
}

func closeSink(name string, sink playback.FrameSink) {
	if err := sink.Close(); err != nil {
		slog.Error("closing sink", "sink", name, "error", err)
	}
}

func printSummary(out io.Writer, s playback.Summary) {
	fmt.Fprintln(out, titleStyle.Render("Heatmap finished"))
	rows := [][2]string{
		{"frames", fmt.Sprint(s.Frames)},
		{"points", fmt.Sprintf("%d/%d", s.Consumed, s.Points)},
		{"elapsed", s.Elapsed.Round(time.Millisecond).String()},
		{"reason", string(s.Reason)},
	}
	for _, r := range rows {
		fmt.Fprintf(out, "  %s %s\n", labelStyle.Render(fmt.Sprintf("%-8s", r[0])), valueStyle.Render(r[1]))
	}
}

// recorder feeds per-frame session stats into window telemetry, bookmark
// detection and CSV output. A nil recorder does nothing.
type recorder struct {
	collector  *telemetry.Collector
	detector   *telemetry.BookmarkDetector
	output     *telemetry.OutputManager
	perfWindow int
}

// newRecorder returns nil when the config has no telemetry directory.
func newRecorder(runID string, cfg *config.Config, cells int) (*recorder, error) {
	om, err := telemetry.NewOutputManager(cfg.Output.TelemetryDir)
	if err != nil {
		return nil, err
	}
	if om == nil {
		return nil, nil
	}
	if err := om.WriteConfig(cfg); err != nil {
		om.Close()
		return nil, err
	}
	return &recorder{
		collector:  telemetry.NewCollector(runID, cfg.Telemetry.StatsWindow, cells),
		detector:   telemetry.NewBookmarkDetector(10),
		output:     om,
		perfWindow: cfg.Telemetry.PerfWindow,
	}, nil
}

func (r *recorder) afterFrame(sess *playback.Session) {
	if r == nil {
		return
	}
	r.collector.Record(sess.Stats())
	if r.collector.ShouldFlush() {
		r.flush()
	}
	if frames := sess.Frames(); frames%r.perfWindow == 0 {
		r.writePerf(sess, frames-1)
	}
}

func (r *recorder) flush() {
	stats := r.collector.Flush()
	stats.LogStats()
	if err := r.output.WriteTelemetry(stats); err != nil {
		slog.Warn("telemetry write failed", "error", err)
	}
	for _, b := range r.detector.Check(stats) {
		b.LogBookmark()
		if err := r.output.WriteBookmark(b); err != nil {
			slog.Warn("bookmark write failed", "error", err)
		}
	}
}

func (r *recorder) writePerf(sess *playback.Session, windowEnd int) {
	stats := sess.Perf.Stats()
	stats.LogStats()
	if err := r.output.WritePerf(stats, windowEnd); err != nil {
		slog.Warn("perf write failed", "error", err)
	}
}

// finish flushes a partial window.
func (r *recorder) finish(sess *playback.Session) {
	if r == nil {
		return
	}
	if r.collector.Pending() {
		r.flush()
	}
	if sess.Frames()%r.perfWindow != 0 {
		r.writePerf(sess, sess.Frames()-1)
	}
}

func (r *recorder) close() {
	if r == nil {
		return
	}
	if err := r.output.Close(); err != nil {
		slog.Warn("closing telemetry output", "error", err)
	}
}
