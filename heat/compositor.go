package heat

import (
	"runtime"
	"sync"
)

// parallelRows is the minimum frame height before compositing is split
// across goroutines.
const parallelRows = 64

// Compositor blends the heat field onto frames as a translucent gradient
// from Start (little heat) to End (saturated heat).
type Compositor struct {
	Start    HSV
	End      HSV
	MaxAlpha float64
	Workers  int // 0 = GOMAXPROCS, 1 = serial

	blur *Blur
	mix  []float32
}

// NewCompositor creates a compositor with the given gradient and opacity cap.
func NewCompositor(start, end HSV, maxAlpha float64) *Compositor {
	return &Compositor{
		Start:    start,
		End:      end,
		MaxAlpha: maxAlpha,
		blur:     NewBlur(BlurSize),
	}
}

// Mix returns the smoothed mix grid from the last Apply.
func (c *Compositor) Mix() []float32 {
	return c.mix
}

// Apply caps the field at 1, smooths it, and blends the result onto frame.
// The cap is written back into f, so Apply mutates the field.
// Pixels whose smoothed heat is zero are left untouched.
func (c *Compositor) Apply(f *Field, frame *Frame) error {
	if frame.Width() != f.W || frame.Height() != f.H {
		return ErrFrameSize
	}

	f.ClampMax(1)

	if len(c.mix) != len(f.Data) {
		c.mix = make([]float32, len(f.Data))
	}
	c.blur.Apply(c.mix, f.Data, f.W, f.H)

	workers := c.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers == 1 || f.H < parallelRows {
		c.blendRows(frame, 0, f.H)
		return nil
	}

	chunk := (f.H + workers - 1) / workers
	var wg sync.WaitGroup
	for start := 0; start < f.H; start += chunk {
		end := min(start+chunk, f.H)
		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			c.blendRows(frame, start, end)
		}(start, end)
	}
	wg.Wait()
	return nil
}

func (c *Compositor) blendRows(frame *Frame, from, to int) {
	w := frame.Width()
	for y := from; y < to; y++ {
		mix := c.mix[y*w : (y+1)*w]
		row := frame.Row(y)
		for x, m := range mix {
			if m <= 0 {
				continue
			}
			p := row[x*4 : x*4+3 : x*4+3]
			blended := c.blendPixel(RGB{R: p[0], G: p[1], B: p[2]}, float64(m))
			p[0], p[1], p[2] = blended.R, blended.G, blended.B
		}
	}
}

// blendPixel mixes the heat colour for m into px.
func (c *Compositor) blendPixel(px RGB, m float64) RGB {
	heat := HSVToRGB(InterpolateHSV(c.Start, c.End, m))
	alpha := min(m, c.MaxAlpha)
	return Interpolate(px, heat, alpha)
}
