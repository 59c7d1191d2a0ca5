package heat

import (
	"math"
	"testing"
)

func mustKernel(t *testing.T, size int, shape Shape, intensity float64) *Kernel {
	t.Helper()
	k, err := NewKernel(size, shape, intensity)
	if err != nil {
		t.Fatal(err)
	}
	return k
}

func TestFieldSplat_Interior(t *testing.T) {
	f := NewField(32, 24)
	k := mustKernel(t, 7, ShapeGaussian, 0.1)

	f.Splat(16, 12, k)

	if math.Abs(f.Total()-k.Sum()) > 1e-3 {
		t.Errorf("field total %v, want kernel sum %v", f.Total(), k.Sum())
	}
	if f.At(16, 12) != k.At(3, 3) {
		t.Errorf("centre = %v, want %v", f.At(16, 12), k.At(3, 3))
	}
	if f.At(12, 12) != 0 {
		t.Errorf("cell outside stamp changed: %v", f.At(12, 12))
	}
}

func TestFieldSplat_ClippedAtCorner(t *testing.T) {
	f := NewField(10, 10)
	k := mustKernel(t, 3, ShapeGaussian, 0.1)

	f.Splat(0, 0, k)

	// Only the lower-right 2x2 of the stamp lands on the grid.
	want := float64(k.At(1, 1) + k.At(2, 1) + k.At(1, 2) + k.At(2, 2))
	if f.Total() != want {
		t.Errorf("total = %v, want %v", f.Total(), want)
	}
	if f.At(0, 0) != k.At(1, 1) {
		t.Errorf("(0,0) = %v, want %v", f.At(0, 0), k.At(1, 1))
	}
}

func TestFieldSplat_OutOfBoundsIsNoop(t *testing.T) {
	f := NewField(10, 8)
	k := mustKernel(t, 5, ShapeGaussian, 0.1)

	for _, p := range [][2]int{{-1, 0}, {0, -1}, {10, 0}, {0, 8}, {100, 100}} {
		f.Splat(p[0], p[1], k)
	}
	if f.Total() != 0 {
		t.Errorf("expected empty field, total %v", f.Total())
	}
}

func TestFieldSplat_Accumulates(t *testing.T) {
	f := NewField(16, 16)
	k := mustKernel(t, 3, ShapeLinear, 0.4)

	f.Splat(5, 5, k)
	f.Splat(5, 5, k)
	f.Splat(5, 5, k)

	if math.Abs(float64(f.At(6, 6))-1.2) > 1e-6 {
		t.Errorf("hot cell = %v, want 1.2", f.At(6, 6))
	}
}

func TestFieldDecay(t *testing.T) {
	f := NewField(4, 1)
	copy(f.Data, []float32{0.5, 0.2, 0, 3})

	f.Decay(0.3)

	want := []float32{0.2, 0, 0, 2.7}
	for i, w := range want {
		if math.Abs(float64(f.Data[i]-w)) > 1e-6 {
			t.Errorf("cell %d = %v, want %v", i, f.Data[i], w)
		}
		if f.Data[i] < 0 {
			t.Errorf("cell %d negative: %v", i, f.Data[i])
		}
	}
}

func TestFieldClampMax(t *testing.T) {
	f := NewField(3, 1)
	copy(f.Data, []float32{0.5, 1, 7})

	f.ClampMax(1)

	want := []float32{0.5, 1, 1}
	for i, w := range want {
		if f.Data[i] != w {
			t.Errorf("cell %d = %v, want %v", i, f.Data[i], w)
		}
	}
}

func TestFieldStats(t *testing.T) {
	f := NewField(5, 5)
	if f.Total() != 0 || f.Max() != 0 || f.Active() != 0 {
		t.Fatal("new field should be empty")
	}

	f.Data[3] = 0.5
	f.Data[7] = 2

	if math.Abs(f.Total()-2.5) > 1e-6 {
		t.Errorf("Total = %v, want 2.5", f.Total())
	}
	if f.Max() != 2 {
		t.Errorf("Max = %v, want 2", f.Max())
	}
	if f.Active() != 2 {
		t.Errorf("Active = %d, want 2", f.Active())
	}

	f.Reset()
	if f.Total() != 0 {
		t.Errorf("Reset left total %v", f.Total())
	}

	empty := NewField(0, 0)
	if empty.Total() != 0 {
		t.Errorf("empty field total %v", empty.Total())
	}
}
