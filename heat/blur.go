package heat

// BlurSize is the side of the square box filter used to soften splats
// before compositing.
const BlurSize = 15

// Blur is a normalised box filter over float grids with mirrored borders
// (the edge pixel is not repeated: ...2 1 | 0 1 2 ... ). It keeps scratch
// buffers between calls; one Blur must not be shared between goroutines.
type Blur struct {
	size int

	w, h   int
	xIndex []int // reflected source column for each window tap
	yIndex []int
	tmp    []float32
	rowHot []bool // source row holds any heat
}

// NewBlur creates a box blur with the given odd window size.
func NewBlur(size int) *Blur {
	if size < 1 {
		size = 1
	}
	return &Blur{size: size}
}

func (b *Blur) prepare(w, h int) {
	if b.w == w && b.h == h {
		return
	}
	b.w, b.h = w, h
	b.xIndex = reflectIndex(w, b.size)
	b.yIndex = reflectIndex(h, b.size)
	b.tmp = make([]float32, w*h)
	b.rowHot = make([]bool, h)
}

// reflectIndex maps every tap of every window along an axis of length n to
// an in-range index. Entry [i*size+k] is the k-th tap of output i.
func reflectIndex(n, size int) []int {
	half := size / 2
	idx := make([]int, n*size)
	for i := 0; i < n; i++ {
		for k := 0; k < size; k++ {
			idx[i*size+k] = reflect101(i-half+k, n)
		}
	}
	return idx
}

func reflect101(p, n int) int {
	if n == 1 {
		return 0
	}
	for p < 0 || p >= n {
		if p < 0 {
			p = -p
		} else {
			p = 2*n - 2 - p
		}
	}
	return p
}

// Apply writes the blurred src grid (w x h) into dst. Windows that only
// cover zero cells produce exactly zero.
func (b *Blur) Apply(dst, src []float32, w, h int) {
	b.prepare(w, h)
	size := b.size
	norm := 1 / float32(size*size)

	// Horizontal pass: unnormalised window sums.
	for y := 0; y < h; y++ {
		row := src[y*w : (y+1)*w]
		hot := false
		for _, v := range row {
			if v != 0 {
				hot = true
				break
			}
		}
		b.rowHot[y] = hot
		out := b.tmp[y*w : (y+1)*w]
		if !hot {
			clear(out)
			continue
		}
		for x := 0; x < w; x++ {
			taps := b.xIndex[x*size : (x+1)*size]
			var s float32
			for _, sx := range taps {
				s += row[sx]
			}
			out[x] = s
		}
	}

	// Vertical pass.
	for y := 0; y < h; y++ {
		taps := b.yIndex[y*size : (y+1)*size]
		out := dst[y*w : (y+1)*w]

		hot := false
		for _, sy := range taps {
			if b.rowHot[sy] {
				hot = true
				break
			}
		}
		if !hot {
			clear(out)
			continue
		}

		clear(out)
		for _, sy := range taps {
			if !b.rowHot[sy] {
				continue
			}
			in := b.tmp[sy*w : (sy+1)*w]
			for x, v := range in {
				out[x] += v
			}
		}
		for x := range out {
			out[x] *= norm
		}
	}
}
