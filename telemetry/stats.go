package telemetry

import (
	"log/slog"
	"slices"

	"gonum.org/v1/gonum/stat"
)

// FrameStats is a snapshot of the heat field after one frame was composited.
type FrameStats struct {
	Frame       int
	Clock       float64 // seconds of video time
	Consumed    int     // points splatted so far
	TotalHeat   float64
	MaxHeat     float64
	ActiveCells int
}

// LogValue implements slog.LogValuer for structured logging.
func (s FrameStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("frame", s.Frame),
		slog.Float64("clock", s.Clock),
		slog.Int("consumed", s.Consumed),
		slog.Float64("total_heat", s.TotalHeat),
		slog.Float64("max_heat", s.MaxHeat),
		slog.Int("active_cells", s.ActiveCells),
	)
}

// WindowStats holds aggregated statistics for a window of frames.
type WindowStats struct {
	RunID       string  `csv:"run_id"`
	WindowStart int     `csv:"window_start"`
	WindowEnd   int     `csv:"window_end"`
	Clock       float64 `csv:"clock"`

	// Points splatted during the window and in total
	Points   int `csv:"points"`
	Consumed int `csv:"consumed"`

	// Total heat distribution across the window's frames
	HeatMean float64 `csv:"heat_mean"`
	HeatStd  float64 `csv:"heat_std"`
	HeatP50  float64 `csv:"heat_p50"`
	HeatP90  float64 `csv:"heat_p90"`

	// Hottest cell seen during the window (capped at 1 by compositing)
	MaxHeat float64 `csv:"max_heat"`

	// Fraction of the frame holding any heat
	CoverageMean float64 `csv:"coverage_mean"`
}

// HeatDistribution returns mean, standard deviation and the 50th and 90th
// percentiles of values. All zero for an empty slice.
func HeatDistribution(values []float64) (mean, std, p50, p90 float64) {
	if len(values) == 0 {
		return 0, 0, 0, 0
	}
	mean, std = stat.PopMeanStdDev(values, nil)

	sorted := slices.Clone(values)
	slices.Sort(sorted)
	p50 = stat.Quantile(0.5, stat.LinInterp, sorted, nil)
	p90 = stat.Quantile(0.9, stat.LinInterp, sorted, nil)
	return mean, std, p50, p90
}

// LogValue implements slog.LogValuer for structured logging.
func (s WindowStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("window_start", s.WindowStart),
		slog.Int("window_end", s.WindowEnd),
		slog.Float64("clock", s.Clock),
		slog.Int("points", s.Points),
		slog.Int("consumed", s.Consumed),
		slog.Float64("heat_mean", s.HeatMean),
		slog.Float64("heat_std", s.HeatStd),
		slog.Float64("heat_p50", s.HeatP50),
		slog.Float64("heat_p90", s.HeatP90),
		slog.Float64("max_heat", s.MaxHeat),
		slog.Float64("coverage_mean", s.CoverageMean),
	)
}

// LogStats logs the window stats using slog.
func (s WindowStats) LogStats() {
	slog.Info("stats",
		"window_end", s.WindowEnd,
		"clock", s.Clock,
		"points", s.Points,
		"consumed", s.Consumed,
		"heat_mean", s.HeatMean,
		"heat_std", s.HeatStd,
		"heat_p90", s.HeatP90,
		"max_heat", s.MaxHeat,
		"coverage_mean", s.CoverageMean,
	)
}
