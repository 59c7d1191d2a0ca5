package heat

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

// HSV is a hue/saturation/value colour with every channel in 0-255.
// Hue 0-255 covers the full 0-360 degree circle.
type HSV struct {
	H, S, V uint8
}

// RGB is a display colour.
type RGB struct {
	R, G, B uint8
}

// ParseHSV parses "h,s,v" with each channel in 0-255.
func ParseHSV(s string) (HSV, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return HSV{}, fmt.Errorf("hsv %q: expected 3 comma separated values", s)
	}
	var ch [3]uint8
	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return HSV{}, fmt.Errorf("hsv %q: %w", s, err)
		}
		if v < 0 || v > 255 {
			return HSV{}, fmt.Errorf("hsv %q: channel %d out of range [0,255]", s, v)
		}
		ch[i] = uint8(v)
	}
	return HSV{H: ch[0], S: ch[1], V: ch[2]}, nil
}

// String formats the colour the way ParseHSV reads it.
func (c HSV) String() string {
	return fmt.Sprintf("%d,%d,%d", c.H, c.S, c.V)
}

// InterpolateHSV mixes c1 and c2 by t. The endpoints are returned unchanged
// for t <= 0 and t >= 1. Each channel is a rounded convex mix, so hue stays
// in [0,255] and never crosses the red boundary.
func InterpolateHSV(c1, c2 HSV, t float64) HSV {
	if t <= 0 {
		return c1
	}
	if t >= 1 {
		return c2
	}

	h := math.Round((1-t)*float64(c1.H) + t*float64(c2.H))

	return HSV{
		H: uint8(h),
		S: saturate(math.Round((1-t)*float64(c1.S) + t*float64(c2.S))),
		V: saturate(math.Round((1-t)*float64(c1.V) + t*float64(c2.V))),
	}
}

// Interpolate mixes two display colours channel by channel.
// t=0 gives c1, t=1 gives c2.
func Interpolate(c1, c2 RGB, t float64) RGB {
	return RGB{
		R: saturate(math.Round((1-t)*float64(c1.R) + t*float64(c2.R))),
		G: saturate(math.Round((1-t)*float64(c1.G) + t*float64(c2.G))),
		B: saturate(math.Round((1-t)*float64(c1.B) + t*float64(c2.B))),
	}
}

// HSVToRGB converts a 0-255 HSV colour to display space.
func HSVToRGB(c HSV) RGB {
	hue := float64(c.H) / 255 * 360
	if hue >= 360 {
		hue -= 360
	}
	col := colorful.Hsv(hue, float64(c.S)/255, float64(c.V)/255).Clamped()
	return RGB{
		R: saturate(math.Round(col.R * 255)),
		G: saturate(math.Round(col.G * 255)),
		B: saturate(math.Round(col.B * 255)),
	}
}

func saturate(v float64) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(v)
}
