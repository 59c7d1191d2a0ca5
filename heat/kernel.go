package heat

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Shape selects the falloff of a kernel.
type Shape int

const (
	ShapeGaussian Shape = iota
	ShapeLinear
)

// gaussianScale multiplies the normalised Gaussian so that a base intensity
// of 0.1 saturates after a handful of splats for typical kernel sizes.
const gaussianScale = 150

// ParseShape maps "gaussian" or "linear" to a Shape.
func ParseShape(s string) (Shape, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "gaussian", "":
		return ShapeGaussian, nil
	case "linear":
		return ShapeLinear, nil
	}
	return 0, fmt.Errorf("%w: unknown kernel shape %q", ErrInvalidConfiguration, s)
}

func (s Shape) String() string {
	switch s {
	case ShapeGaussian:
		return "gaussian"
	case ShapeLinear:
		return "linear"
	}
	return fmt.Sprintf("Shape(%d)", int(s))
}

// Kernel is the square stamp added to the field for every point.
// It is immutable once built and may be shared between fields.
type Kernel struct {
	Size  int
	Shape Shape
	Data  []float32 // Size*Size, row-major
}

// NewKernel builds a kernel of the given size, shape and base intensity.
func NewKernel(size int, shape Shape, intensity float64) (*Kernel, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: kernel size must be positive, got %d", ErrInvalidConfiguration, size)
	}
	if intensity <= 0 || math.IsNaN(intensity) {
		return nil, fmt.Errorf("%w: kernel intensity must be positive, got %v", ErrInvalidConfiguration, intensity)
	}

	k := &Kernel{Size: size, Shape: shape}
	switch shape {
	case ShapeLinear:
		k.Data = linearKernel(size, intensity)
	case ShapeGaussian:
		k.Data = gaussianKernel(size, intensity)
	default:
		return nil, fmt.Errorf("%w: unknown kernel shape %d", ErrInvalidConfiguration, int(shape))
	}
	return k, nil
}

// linearKernel builds a cone. The centre sits at size/2+1, one cell off the
// geometric centre; existing renders depend on this placement.
func linearKernel(size int, intensity float64) []float32 {
	data := make([]float32, size*size)
	center := size/2 + 1
	radius := float64(size / 2)

	for r := 0; r < size; r++ {
		for c := 0; c < size; c++ {
			dx := float64(r - center)
			dy := float64(c - center)
			length := math.Sqrt(dx*dx + dy*dy)
			if length > radius {
				continue
			}
			b := 1.0
			if radius > 0 {
				b = 1 - length/radius
			}
			data[r*size+c] = float32(b * intensity)
		}
	}
	return data
}

// gaussianKernel builds the outer product of a scaled 1D Gaussian with itself.
func gaussianKernel(size int, intensity float64) []float32 {
	coeffs := gaussianCoefficients(size)
	floats.Scale(gaussianScale*intensity, coeffs)

	v := mat.NewVecDense(size, coeffs)
	var outer mat.Dense
	outer.Outer(1, v, v)

	data := make([]float32, size*size)
	for r := 0; r < size; r++ {
		for c := 0; c < size; c++ {
			data[r*size+c] = float32(outer.At(r, c))
		}
	}
	return data
}

// Small odd kernels use fixed binomial coefficients instead of sampling the
// Gaussian, matching the usual image-processing convention.
var smallGaussians = map[int][]float64{
	1: {1},
	3: {0.25, 0.5, 0.25},
	5: {0.0625, 0.25, 0.375, 0.25, 0.0625},
	7: {0.03125, 0.109375, 0.21875, 0.28125, 0.21875, 0.109375, 0.03125},
}

// gaussianCoefficients returns a normalised 1D Gaussian of length n with the
// standard deviation derived from n.
func gaussianCoefficients(n int) []float64 {
	if fixed, ok := smallGaussians[n]; ok {
		out := make([]float64, n)
		copy(out, fixed)
		return out
	}

	sigma := 0.3*((float64(n)-1)*0.5-1) + 0.8
	scale2X := -0.5 / (sigma * sigma)

	out := make([]float64, n)
	for i := range out {
		x := float64(i) - float64(n-1)*0.5
		out[i] = math.Exp(scale2X * x * x)
	}
	floats.Scale(1/floats.Sum(out), out)
	return out
}

// At returns the stamp value at column x, row y.
func (k *Kernel) At(x, y int) float32 {
	return k.Data[y*k.Size+x]
}

// Row returns the stamp values of row y.
func (k *Kernel) Row(y int) []float32 {
	return k.Data[y*k.Size : (y+1)*k.Size]
}

// Sum returns the total of all stamp values.
func (k *Kernel) Sum() float64 {
	var s float64
	for _, v := range k.Data {
		s += float64(v)
	}
	return s
}

// Peak returns the largest stamp value.
func (k *Kernel) Peak() float32 {
	var p float32
	for _, v := range k.Data {
		if v > p {
			p = v
		}
	}
	return p
}
