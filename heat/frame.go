package heat

import (
	"image"
	"image/draw"
)

// Frame is one video frame in RGBA layout. The compositor mutates it in
// place; ownership stays with whoever decoded it.
type Frame struct {
	img *image.RGBA
}

// NewFrame allocates a black, opaque frame.
func NewFrame(w, h int) *Frame {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 3; i < len(img.Pix); i += 4 {
		img.Pix[i] = 0xff
	}
	return &Frame{img: img}
}

// FrameFromRGBA wraps img without copying. The frame is rebased so that
// pixel (0,0) is the image's top-left corner.
func FrameFromRGBA(img *image.RGBA) *Frame {
	if img.Rect.Min != (image.Point{}) {
		img = &image.RGBA{
			Pix:    img.Pix[img.PixOffset(img.Rect.Min.X, img.Rect.Min.Y):],
			Stride: img.Stride,
			Rect:   image.Rect(0, 0, img.Rect.Dx(), img.Rect.Dy()),
		}
	}
	return &Frame{img: img}
}

// FrameFromImage copies any image into a new frame.
func FrameFromImage(src image.Image) *Frame {
	if rgba, ok := src.(*image.RGBA); ok {
		return FrameFromRGBA(rgba)
	}
	b := src.Bounds()
	img := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(img, img.Rect, src, b.Min, draw.Src)
	return &Frame{img: img}
}

// FrameFromBytes wraps a tightly packed RGBA buffer of w*h*4 bytes.
func FrameFromBytes(pix []byte, w, h int) (*Frame, error) {
	if len(pix) < w*h*4 {
		return nil, ErrFrameSize
	}
	return &Frame{img: &image.RGBA{
		Pix:    pix,
		Stride: w * 4,
		Rect:   image.Rect(0, 0, w, h),
	}}, nil
}

// Width returns the frame width in pixels.
func (f *Frame) Width() int { return f.img.Rect.Dx() }

// Height returns the frame height in pixels.
func (f *Frame) Height() int { return f.img.Rect.Dy() }

// Image exposes the underlying image for encoders and texture uploads.
func (f *Frame) Image() *image.RGBA { return f.img }

// Row returns the RGBA bytes of row y.
func (f *Frame) Row(y int) []byte {
	off := y * f.img.Stride
	return f.img.Pix[off : off+f.Width()*4]
}

// At returns the colour at (x, y).
func (f *Frame) At(x, y int) RGB {
	i := f.img.PixOffset(x, y)
	p := f.img.Pix[i : i+3 : i+3]
	return RGB{R: p[0], G: p[1], B: p[2]}
}

// Set writes the colour at (x, y), leaving alpha untouched.
func (f *Frame) Set(x, y int, c RGB) {
	i := f.img.PixOffset(x, y)
	p := f.img.Pix[i : i+3 : i+3]
	p[0], p[1], p[2] = c.R, c.G, c.B
}

// Fill paints every pixel with c.
func (f *Frame) Fill(c RGB) {
	for y := 0; y < f.Height(); y++ {
		row := f.Row(y)
		for x := 0; x < len(row); x += 4 {
			row[x], row[x+1], row[x+2], row[x+3] = c.R, c.G, c.B, 0xff
		}
	}
}

// Clone returns a deep copy of the frame.
func (f *Frame) Clone() *Frame {
	img := image.NewRGBA(image.Rect(0, 0, f.Width(), f.Height()))
	for y := 0; y < f.Height(); y++ {
		copy(img.Pix[y*img.Stride:], f.Row(y))
	}
	return &Frame{img: img}
}
