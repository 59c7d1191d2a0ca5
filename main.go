package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/pthm-cable/heatmap/config"
)

// Exit codes reported for each class of startup failure.
const (
	exitUsage     = 1
	exitVideo     = 2
	exitFPS       = 3
	exitFourCC    = 4
	exitPointData = 5
)

// exitError carries the process exit code for err.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func withCode(code int, err error) error {
	if err == nil {
		return nil
	}
	return &exitError{code: code, err: err}
}

func exitCode(err error) int {
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	return exitUsage
}

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#00ccff"))
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#888899"))
	valueStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#00ff88"))
	errorStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#ff4444"))
)

// globalOptions are shared by every command.
type globalOptions struct {
	configPath string
	logLevel   string
	logFormat  string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("error:"), err)
		stop()
		os.Exit(exitCode(err))
	}
}

func newRootCmd() *cobra.Command {
	var global globalOptions
	var opts runOptions

	root := &cobra.Command{
		Use:   "heatmap [flags] VIDEO POINTS",
		Short: "Create a heat map overlay on a video",
		Long: "Replays timestamped points over a video as a fading heat map.\n" +
			"VIDEO is a media file or a directory of images; POINTS is a\n" +
			"whitespace separated \"timestamp x y\" log or a headered CSV.",
		Example:       "  heatmap my_video.avi mouse.txt\n  heatmap -o out.avi --no-video clip.mp4 clicks.csv",
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return withCode(exitUsage, setupLogging(global.logLevel, global.logFormat))
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHeatmap(cmd.Context(), cmd, &global, &opts, args[0], args[1])
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&global.configPath, "config", "", "Path to config.yaml (empty = use defaults)")
	pf.StringVar(&global.logLevel, "log-level", "info", "Log level: debug, info, warn, error")
	pf.StringVar(&global.logFormat, "log-format", "json", "Log format: json or text")

	f := root.Flags()
	f.IntVarP(&opts.kernelSize, "kernel-size", "k", 75, "Kernel size in pixels")
	f.Float64Var(&opts.fadeTime, "fade-time", 2.0, "Fade time in seconds, must be greater than zero")
	f.BoolVarP(&opts.linear, "linear", "l", false, "Use a linear kernel instead of gaussian")
	f.Float64Var(&opts.intensity, "intensity", 0.1, "Base intensity, higher values saturate faster [0-1]")
	f.StringVar(&opts.startColor, "start-color", "170,255,255", "Starting heat map color in HSV [0-255]")
	f.StringVar(&opts.endColor, "end-color", "0,255,255", "Ending heat map color in HSV [0-255]")
	f.Float64Var(&opts.alphaMax, "alpha-max", 0.6, "Max alpha value for the overlay [0-1]")
	f.BoolVar(&opts.noWait, "no-wait", false, "Play the video back as fast as possible")
	f.BoolVar(&opts.printProgress, "print-progress", false, "Print percent progress in one percent increments")
	f.BoolVar(&opts.noVideo, "no-video", false, "Don't show the video window")
	f.StringVarP(&opts.outVideo, "out-video", "o", "", "Write the heat map video to a file (or a directory of PNGs when it ends in /)")
	f.StringVar(&opts.fourCC, "four-cc", "MJPG", "FOURCC code for the output video, exactly four characters")
	f.StringVar(&opts.telemetryDir, "telemetry-dir", "", "Write CSV telemetry and a config snapshot to this directory")
	f.IntVar(&opts.workers, "workers", 0, "Compositor goroutines (0 = GOMAXPROCS)")
	f.Float64Var(&opts.imageFPS, "image-fps", 25, "Frame rate for image directory input")

	root.AddCommand(newStatsCmd(), newConfigCmd(&global))
	return root
}

func newConfigCmd(global *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.Init(global.configPath); err != nil {
				return withCode(exitUsage, err)
			}
			out, err := config.Cfg().YAML()
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), out)
			return nil
		},
	}
}

// setupLogging installs the default slog logger on stderr.
func setupLogging(level, format string) error {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return fmt.Errorf("log level %q: %w", level, err)
	}
	opts := &slog.HandlerOptions{Level: lvl}

	var handler slog.Handler
	switch strings.ToLower(format) {
	case "json":
		handler = slog.NewJSONHandler(os.Stderr, opts)
	case "text":
		handler = slog.NewTextHandler(os.Stderr, opts)
	default:
		return fmt.Errorf("log format %q: expected json or text", format)
	}
	slog.SetDefault(slog.New(handler))
	return nil
}
