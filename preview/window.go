// Package preview shows rendered frames in a raylib window while playback
// runs.
package preview

import (
	"fmt"
	"image/color"

	gui "github.com/gen2brain/raylib-go/raygui"
	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/heatmap/heat"
	"github.com/pthm-cable/heatmap/playback"
)

const (
	maxWindowWidth  = 1600
	maxWindowHeight = 900
	barHeight       = 18
)

// Splatter receives heat at a frame coordinate.
type Splatter interface {
	Splat(x, y int)
}

// Window is a playback.FrameSink that draws every frame on screen.
// ESC, Q or closing the window stops playback.
type Window struct {
	w, h   int
	scale  float32
	tex    rl.Texture2D
	pixels []color.RGBA

	splatter Splatter
	progress func() int
	closed   bool
}

// NewWindow opens a window sized to fit a w x h frame. targetFPS paces
// drawing to the video rate; 0 draws as fast as frames arrive.
func NewWindow(title string, w, h, targetFPS int) *Window {
	scale := fitScale(w, h, maxWindowWidth, maxWindowHeight)
	winW := int32(float32(w) * scale)
	winH := int32(float32(h)*scale) + barHeight

	rl.SetTraceLogLevel(rl.LogWarning)
	rl.InitWindow(winW, winH, title)
	rl.SetExitKey(rl.KeyEscape)
	rl.SetTargetFPS(int32(targetFPS))

	img := rl.GenImageColor(w, h, rl.Black)
	tex := rl.LoadTextureFromImage(img)
	rl.UnloadImage(img)

	return &Window{
		w:      w,
		h:      h,
		scale:  scale,
		tex:    tex,
		pixels: make([]color.RGBA, w*h),
	}
}

// OnMouse makes mouse movement over the video splat heat into s.
func (win *Window) OnMouse(s Splatter) { win.splatter = s }

// ShowProgress draws fn's percentage in a bar under the video.
func (win *Window) ShowProgress(fn func() int) { win.progress = fn }

// WriteFrame draws frame and polls input. It returns playback.ErrStop when
// the user asked to quit.
func (win *Window) WriteFrame(frame *heat.Frame) error {
	if win.closed {
		return playback.ErrStop
	}
	if frame.Width() != win.w || frame.Height() != win.h {
		return fmt.Errorf("%w: preview is %dx%d, got %dx%d",
			heat.ErrFrameSize, win.w, win.h, frame.Width(), frame.Height())
	}

	copyPixels(win.pixels, frame)
	rl.UpdateTexture(win.tex, win.pixels)

	videoW := float32(win.w) * win.scale
	videoH := float32(win.h) * win.scale

	rl.BeginDrawing()
	rl.ClearBackground(rl.Black)
	rl.DrawTexturePro(
		win.tex,
		rl.Rectangle{X: 0, Y: 0, Width: float32(win.w), Height: float32(win.h)},
		rl.Rectangle{X: 0, Y: 0, Width: videoW, Height: videoH},
		rl.Vector2{},
		0,
		rl.White,
	)
	if win.progress != nil {
		pct := win.progress()
		gui.ProgressBar(
			rl.Rectangle{X: 0, Y: videoH, Width: videoW, Height: barHeight},
			"", fmt.Sprintf("%d%%", pct),
			float32(pct), 0, 100,
		)
	}
	rl.EndDrawing()

	if win.splatter != nil {
		delta := rl.GetMouseDelta()
		if delta.X != 0 || delta.Y != 0 {
			pos := rl.GetMousePosition()
			if x, y, ok := toFrame(pos.X, pos.Y, win.scale, win.w, win.h); ok {
				win.splatter.Splat(x, y)
			}
		}
	}

	if rl.WindowShouldClose() || rl.IsKeyPressed(rl.KeyQ) {
		return playback.ErrStop
	}
	return nil
}

// Close destroys the texture and the window.
func (win *Window) Close() error {
	if win.closed {
		return nil
	}
	win.closed = true
	rl.UnloadTexture(win.tex)
	rl.CloseWindow()
	return nil
}

// fitScale returns the largest scale <= 1 at which a w x h frame fits in
// maxW x maxH.
func fitScale(w, h, maxW, maxH int) float32 {
	scale := float32(1)
	if w > maxW {
		scale = float32(maxW) / float32(w)
	}
	if s := float32(maxH) / float32(h); h > maxH && s < scale {
		scale = s
	}
	return scale
}

// toFrame maps a window position to frame coordinates.
func toFrame(wx, wy, scale float32, w, h int) (int, int, bool) {
	x := int(wx / scale)
	y := int(wy / scale)
	if wx < 0 || wy < 0 || x >= w || y >= h {
		return 0, 0, false
	}
	return x, y, true
}

func copyPixels(dst []color.RGBA, frame *heat.Frame) {
	i := 0
	for y := 0; y < frame.Height(); y++ {
		row := frame.Row(y)
		for x := 0; x < len(row); x += 4 {
			dst[i] = color.RGBA{R: row[x], G: row[x+1], B: row[x+2], A: 255}
			i++
		}
	}
}
