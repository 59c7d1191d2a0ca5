// Kernel preview tool - interactive view of one splat through the compositor.
//
// Usage: go run ./cmd/kernelpreview
package main

import (
	"fmt"
	"image/color"
	"log/slog"
	"os"
	"strings"

	gui "github.com/gen2brain/raylib-go/raygui"
	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/heatmap/config"
	"github.com/pthm-cable/heatmap/heat"
)

const (
	windowWidth  = 1000
	windowHeight = 720
	previewSize  = 512
	canvasSize   = 256
	panelWidth   = windowWidth - previewSize - 30
	previewFPS   = 25
)

// KernelParams holds the tunable rendering parameters.
type KernelParams struct {
	Size      int
	Linear    bool
	Intensity float32
	MaxAlpha  float32
	FadeTime  float32
	Splats    int
	Frames    int // decay steps applied after splatting
}

func defaultParams(cfg *config.Config) KernelParams {
	return KernelParams{
		Size:      cfg.Kernel.Size,
		Linear:    cfg.Derived.Shape == heat.ShapeLinear,
		Intensity: float32(cfg.Kernel.Intensity),
		MaxAlpha:  float32(cfg.Overlay.MaxAlpha),
		FadeTime:  float32(cfg.Overlay.FadeTime),
		Splats:    1,
	}
}

// renderStats summarises one render.
type renderStats struct {
	KernelSum  float64
	KernelPeak float32
	FieldMax   float32
	Active     int
}

// render splats the kernel params.Splats times at the canvas centre, fades
// it params.Frames times and composites the result onto a grey canvas.
func render(cfg *config.Config, params KernelParams) (*heat.Frame, renderStats, error) {
	shape := heat.ShapeGaussian
	if params.Linear {
		shape = heat.ShapeLinear
	}
	kernel, err := heat.NewKernel(params.Size, shape, float64(params.Intensity))
	if err != nil {
		return nil, renderStats{}, err
	}

	field := heat.NewField(canvasSize, canvasSize)
	for i := 0; i < params.Splats; i++ {
		field.Splat(canvasSize/2, canvasSize/2, kernel)
	}
	rate := float32((1.0 / previewFPS) / float64(params.FadeTime))
	for i := 0; i < params.Frames; i++ {
		field.Decay(rate)
	}

	stats := renderStats{
		KernelSum:  kernel.Sum(),
		KernelPeak: kernel.Peak(),
		FieldMax:   field.Max(),
		Active:     field.Active(),
	}

	frame := heat.NewFrame(canvasSize, canvasSize)
	frame.Fill(heat.RGB{R: 64, G: 64, B: 64})
	comp := heat.NewCompositor(cfg.Derived.StartColor, cfg.Derived.EndColor, float64(params.MaxAlpha))
	if err := comp.Apply(field, frame); err != nil {
		return nil, stats, err
	}
	return frame, stats, nil
}

func main() {
	configPath := ""
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}
	if err := config.Init(configPath); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg := config.Cfg()

	rl.InitWindow(windowWidth, windowHeight, "Heat Kernel Preview")
	defer rl.CloseWindow()
	rl.SetTargetFPS(30)

	params := defaultParams(cfg)

	img := rl.GenImageColor(canvasSize, canvasSize, rl.Black)
	texture := rl.LoadTextureFromImage(img)
	rl.UnloadImage(img)
	defer rl.UnloadTexture(texture)

	pixels := make([]color.RGBA, canvasSize*canvasSize)
	var stats renderStats
	var renderErr error
	needsRender := true

	for !rl.WindowShouldClose() {
		if needsRender {
			var frame *heat.Frame
			frame, stats, renderErr = render(cfg, params)
			if renderErr == nil {
				updateTexture(texture, pixels, frame)
			}
			needsRender = false
		}

		rl.BeginDrawing()
		rl.ClearBackground(rl.RayWhite)

		rl.DrawTexturePro(
			texture,
			rl.Rectangle{X: 0, Y: 0, Width: canvasSize, Height: canvasSize},
			rl.Rectangle{X: 10, Y: 10, Width: previewSize, Height: previewSize},
			rl.Vector2{X: 0, Y: 0},
			0,
			rl.White,
		)
		rl.DrawRectangleLines(10, 10, previewSize, previewSize, rl.DarkGray)

		statsY := int32(previewSize + 25)
		if renderErr != nil {
			rl.DrawText(renderErr.Error(), 15, statsY, 16, rl.Red)
		} else {
			rl.DrawText(fmt.Sprintf("Kernel sum: %.2f  Peak: %.3f", stats.KernelSum, stats.KernelPeak), 15, statsY, 16, rl.DarkGray)
			rl.DrawText(fmt.Sprintf("Field max: %.3f  Active cells: %d", stats.FieldMax, stats.Active), 15, statsY+20, 16, rl.DarkGray)
		}

		panelX := float32(previewSize + 20)
		panelY := float32(10)

		rl.DrawText("Heat Kernel Parameters", int32(panelX), int32(panelY), 20, rl.DarkGray)
		panelY += 35

		if v := slider(panelX, panelY, "Size (pixels)", "1", "151", float32(params.Size), 1, 151, "%.0f"); int(v) != params.Size {
			params.Size = int(v)
			needsRender = true
		}
		panelY = nextRow(panelY)

		if v := slider(panelX, panelY, "Intensity", "0.01", "1.0", params.Intensity, 0.01, 1, "%.2f"); v != params.Intensity {
			params.Intensity = v
			needsRender = true
		}
		panelY = nextRow(panelY)

		if v := slider(panelX, panelY, "Max alpha", "0", "1", params.MaxAlpha, 0, 1, "%.2f"); v != params.MaxAlpha {
			params.MaxAlpha = v
			needsRender = true
		}
		panelY = nextRow(panelY)

		if v := slider(panelX, panelY, "Splats at centre", "1", "20", float32(params.Splats), 1, 20, "%.0f"); int(v) != params.Splats {
			params.Splats = int(v)
			needsRender = true
		}
		panelY = nextRow(panelY)

		rl.DrawLine(int32(panelX), int32(panelY), int32(panelX)+int32(panelWidth)-20, int32(panelY), rl.LightGray)
		panelY += 15

		if v := slider(panelX, panelY, "Fade time (s)", "0.1", "10", params.FadeTime, 0.1, 10, "%.1f"); v != params.FadeTime {
			params.FadeTime = v
			needsRender = true
		}
		panelY = nextRow(panelY)

		if v := slider(panelX, panelY, fmt.Sprintf("Frames faded at %d fps", previewFPS), "0", "250", float32(params.Frames), 0, 250, "%.0f"); int(v) != params.Frames {
			params.Frames = int(v)
			needsRender = true
		}
		panelY = nextRow(panelY) + 10

		if gui.Button(rl.Rectangle{X: panelX, Y: panelY, Width: 120, Height: 30}, toggleText(params.Linear, "Gaussian", "Linear")) {
			params.Linear = !params.Linear
			needsRender = true
		}
		if gui.Button(rl.Rectangle{X: panelX + 130, Y: panelY, Width: 120, Height: 30}, "Reset All") {
			params = defaultParams(cfg)
			needsRender = true
		}
		panelY += 55

		rl.DrawText("YAML Config:", int32(panelX), int32(panelY), 16, rl.DarkGray)
		panelY += 25
		yaml := paramsYAML(params)
		for _, line := range strings.Split(yaml, "\n") {
			rl.DrawText(line, int32(panelX), int32(panelY), 14, rl.Gray)
			panelY += 16
		}

		rl.DrawText("Press C to copy YAML to clipboard", int32(panelX), int32(windowHeight-30), 12, rl.LightGray)
		if rl.IsKeyPressed(rl.KeyC) {
			rl.SetClipboardText(yaml)
		}

		rl.EndDrawing()
	}
}

// slider draws a labelled slider bar and returns its value.
func slider(x, y float32, label, minText, maxText string, value, lo, hi float32, format string) float32 {
	rl.DrawText(label, int32(x), int32(y), 14, rl.Gray)
	y += 18
	v := gui.SliderBar(
		rl.Rectangle{X: x, Y: y, Width: float32(panelWidth - 80), Height: 20},
		minText, maxText,
		value, lo, hi,
	)
	rl.DrawText(fmt.Sprintf(format, value), int32(x+float32(panelWidth-70)), int32(y+2), 16, rl.DarkGray)
	return v
}

// nextRow returns the y of the slider below one drawn at y.
func nextRow(y float32) float32 { return y + 53 }

func paramsYAML(p KernelParams) string {
	shape := heat.ShapeGaussian
	if p.Linear {
		shape = heat.ShapeLinear
	}
	return fmt.Sprintf(`kernel:
  size: %d
  shape: %s
  intensity: %.2f
overlay:
  fade_time: %.1f
  max_alpha: %.2f`,
		p.Size, shape, p.Intensity, p.FadeTime, p.MaxAlpha)
}

func toggleText(cond bool, ifTrue, ifFalse string) string {
	if cond {
		return ifTrue
	}
	return ifFalse
}

// updateTexture uploads frame to the GPU texture.
func updateTexture(texture rl.Texture2D, pixels []color.RGBA, frame *heat.Frame) {
	i := 0
	for y := 0; y < frame.Height(); y++ {
		row := frame.Row(y)
		for x := 0; x < len(row); x += 4 {
			pixels[i] = color.RGBA{R: row[x], G: row[x+1], B: row[x+2], A: 255}
			i++
		}
	}
	rl.UpdateTexture(texture, pixels)
}
