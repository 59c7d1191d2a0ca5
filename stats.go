package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/pthm-cable/heatmap/telemetry"
)

var errNoTelemetry = errors.New("telemetry file has no rows")

// statsSeries maps a --series name to its column in telemetry.csv.
var statsSeries = map[string]func(telemetry.WindowStats) float64{
	"heat_mean": func(s telemetry.WindowStats) float64 { return s.HeatMean },
	"heat_p90":  func(s telemetry.WindowStats) float64 { return s.HeatP90 },
	"max_heat":  func(s telemetry.WindowStats) float64 { return s.MaxHeat },
	"coverage":  func(s telemetry.WindowStats) float64 { return s.CoverageMean },
	"points":    func(s telemetry.WindowStats) float64 { return float64(s.Points) },
}

func newStatsCmd() *cobra.Command {
	var series string
	var height, width int

	cmd := &cobra.Command{
		Use:   "stats TELEMETRY_CSV",
		Short: "Plot a telemetry.csv written with --telemetry-dir",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rows, err := telemetry.ReadWindowStats(args[0])
			if err != nil {
				return err
			}
			return plotStats(cmd.OutOrStdout(), rows, series, height, width)
		},
	}
	cmd.Flags().StringVar(&series, "series", "heat_mean", "Column to plot: heat_mean, heat_p90, max_heat, coverage, points")
	cmd.Flags().IntVar(&height, "height", 12, "Plot height in rows")
	cmd.Flags().IntVar(&width, "width", 80, "Plot width in columns")
	return cmd
}

func plotStats(out io.Writer, rows []telemetry.WindowStats, series string, height, width int) error {
	value, ok := statsSeries[series]
	if !ok {
		return fmt.Errorf("unknown series %q", series)
	}
	if len(rows) == 0 {
		return errNoTelemetry
	}

	data := make([]float64, len(rows))
	for i, r := range rows {
		data[i] = value(r)
	}

	last := rows[len(rows)-1]
	caption := fmt.Sprintf("%s per %d-frame window (%d windows, %.1fs)",
		series, last.WindowEnd-last.WindowStart+1, len(rows), last.Clock)

	graph := asciigraph.Plot(data,
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.Caption(caption),
	)
	fmt.Fprintln(out, titleStyle.Render("Run "+last.RunID))
	fmt.Fprintln(out, graph)
	return nil
}
