// Package heat implements the heat-field engine: kernels, the persistent
// intensity field, and compositing of the field onto video frames.
package heat

import (
	"gonum.org/v1/gonum/blas/blas32"
)

// Field is the persistent intensity grid, one cell per frame pixel.
// Values are >= 0; they may exceed 1 between a splat and the next composite.
type Field struct {
	W, H int
	Data []float32 // W*H, row-major
}

// NewField creates an all-zero field of w x h cells.
func NewField(w, h int) *Field {
	return &Field{
		W:    w,
		H:    h,
		Data: make([]float32, w*h),
	}
}

// At returns the value of cell (x, y).
func (f *Field) At(x, y int) float32 {
	return f.Data[y*f.W+x]
}

// Row returns the cells of row y.
func (f *Field) Row(y int) []float32 {
	return f.Data[y*f.W : (y+1)*f.W]
}

// InBounds reports whether (x, y) addresses a cell.
func (f *Field) InBounds(x, y int) bool {
	return x >= 0 && y >= 0 && x < f.W && y < f.H
}

// Splat adds kernel k centred on (x, y). Points outside the field are
// ignored; near the edges only the overlapping part of the kernel is added.
func (f *Field) Splat(x, y int, k *Kernel) {
	if !f.InBounds(x, y) {
		return
	}

	half := k.Size / 2
	fixedX := x - half
	fixedY := y - half

	left := max(fixedX, 0)
	top := max(fixedY, 0)
	w := min(fixedX+k.Size, f.W) - left
	h := min(fixedY+k.Size, f.H) - top
	if w <= 0 || h <= 0 {
		return
	}

	kLeft := left - fixedX
	kTop := top - fixedY

	for r := 0; r < h; r++ {
		src := k.Row(kTop + r)[kLeft : kLeft+w]
		dst := f.Row(top + r)[left : left+w]
		blas32.Axpy(1,
			blas32.Vector{N: w, Inc: 1, Data: src},
			blas32.Vector{N: w, Inc: 1, Data: dst},
		)
	}
}

// Decay subtracts rate from every cell, flooring at zero.
func (f *Field) Decay(rate float32) {
	for i, v := range f.Data {
		v -= rate
		if v < 0 {
			v = 0
		}
		f.Data[i] = v
	}
}

// ClampMax caps every cell at limit.
func (f *Field) ClampMax(limit float32) {
	for i, v := range f.Data {
		if v > limit {
			f.Data[i] = limit
		}
	}
}

// Reset zeroes the field.
func (f *Field) Reset() {
	clear(f.Data)
}

// Total returns the sum of all cells.
func (f *Field) Total() float64 {
	if len(f.Data) == 0 {
		return 0
	}
	// Cells are never negative, so the absolute sum is the sum.
	return float64(blas32.Asum(blas32.Vector{N: len(f.Data), Inc: 1, Data: f.Data}))
}

// Max returns the largest cell value.
func (f *Field) Max() float32 {
	var m float32
	for _, v := range f.Data {
		if v > m {
			m = v
		}
	}
	return m
}

// Active returns the number of cells holding any heat.
func (f *Field) Active() int {
	n := 0
	for _, v := range f.Data {
		if v > 0 {
			n++
		}
	}
	return n
}
