// Package pyramid builds and collapses the Gaussian, Laplacian, and
// Riesz multi-resolution decompositions the magnification algorithms
// operate on. Convolution follows the separable 5-tap kernel and
// mirrored-boundary index reflection used throughout the corpus's own
// image pyramid code; only the decimate-by-2/upsample-by-2 step is
// this package's addition.
package pyramid

import "github.com/kujaw077/Reimagining-Breath/pkg/evmtype"

// kernel is the fixed 5-tap separable Gaussian used for every blur,
// decimation, and upsample step.
var kernel = [5]float32{0.05, 0.25, 0.4, 0.25, 0.05}

func reflect(i, n int) int {
	if i < 0 {
		i = -i
	}
	if i >= n {
		i = 2*n - i - 1
	}
	return i
}

// blur runs the separable 5x5 Gaussian over src into a freshly
// allocated same-size frame; it never changes dimensions.
func blur(src evmtype.Frame) evmtype.Frame {
	w, h, c := src.Width, src.Height, src.Channels
	out := evmtype.NewFrameF32(w, h, c, src.ColorSpace)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			for ch := 0; ch < c; ch++ {
				var acc float32
				for j := -2; j <= 2; j++ {
					ny := reflect(y+j, h)
					rowKernel := kernel[j+2]
					for i := -2; i <= 2; i++ {
						nx := reflect(x+i, w)
						acc += kernel[i+2] * rowKernel * src.Pix32[(ny*w+nx)*c+ch]
					}
				}
				out.Pix32[(y*w+x)*c+ch] = acc
			}
		}
	}
	return out
}

// halfCeil computes ceil(x/2), the decimated dimension at each level.
func halfCeil(x int) int {
	return (x + 1) / 2
}

// Down blurs then decimates by 2 in each dimension, taking even
// rows/columns of the blurred image.
func Down(src evmtype.Frame) evmtype.Frame {
	blurred := blur(src)
	w, h, c := halfCeil(src.Width), halfCeil(src.Height), src.Channels
	out := evmtype.NewFrameF32(w, h, c, src.ColorSpace)
	for y := 0; y < h; y++ {
		sy := y * 2
		if sy >= src.Height {
			sy = src.Height - 1
		}
		for x := 0; x < w; x++ {
			sx := x * 2
			if sx >= src.Width {
				sx = src.Width - 1
			}
			for ch := 0; ch < c; ch++ {
				out.Pix32[(y*w+x)*c+ch] = blurred.Pix32[(sy*src.Width+sx)*c+ch]
			}
		}
	}
	return out
}

// Up upsamples src to exactly (targetW, targetH) by zero-stuffing then
// blurring with the same kernel scaled by 4 to preserve energy, the
// standard Burt-Adelson pyramid expand step. Each output sample is
// divided by the blurred stuffing mask, so samples near the borders,
// where the reflected neighbourhood holds fewer stuffed samples, keep
// a flat field's value too.
func Up(src evmtype.Frame, targetW, targetH int) evmtype.Frame {
	c := src.Channels
	stuffed := evmtype.NewFrameF32(targetW, targetH, c, src.ColorSpace)
	mask := evmtype.NewFrameF32(targetW, targetH, 1, src.ColorSpace)
	for y := 0; y < src.Height; y++ {
		dy := y * 2
		if dy >= targetH {
			continue
		}
		for x := 0; x < src.Width; x++ {
			dx := x * 2
			if dx >= targetW {
				continue
			}
			mask.Pix32[dy*targetW+dx] = 4
			for ch := 0; ch < c; ch++ {
				stuffed.Pix32[(dy*targetW+dx)*c+ch] = src.Pix32[(y*src.Width+x)*c+ch] * 4
			}
		}
	}
	out := blur(stuffed)
	weight := blur(mask)
	for i := range out.Pix32 {
		if w := weight.Pix32[i/c]; w > 0 {
			out.Pix32[i] /= w
		}
	}
	return out
}

// Pyramid is a length L+1 sequence of Gaussian levels, index 0 being
// the full-resolution input.
type Pyramid struct {
	Levels []evmtype.Frame
}

// BuildGaussian builds L+1 Gaussian levels from src.
func BuildGaussian(src evmtype.Frame, l int) Pyramid {
	p := Pyramid{Levels: make([]evmtype.Frame, l+1)}
	p.Levels[0] = src
	for i := 1; i <= l; i++ {
		p.Levels[i] = Down(p.Levels[i-1])
	}
	return p
}

// CollapseGaussian reconstructs a (width, height) image from the
// pyramid's top level by repeated upsampling, matching
// buildImgFromGaussPyr's repeated-expand-until-target-size behavior.
func CollapseGaussian(top evmtype.Frame, width, height int) evmtype.Frame {
	cur := top
	for cur.Width != width || cur.Height != height {
		nw, nh := cur.Width*2, cur.Height*2
		if nw > width {
			nw = width
		}
		if nh > height {
			nh = height
		}
		cur = Up(cur, nw, nh)
	}
	return cur
}

// MaxLevels returns the largest k such that halving min(width,height) k
// times (ceil-half) leaves both dimensions strictly greater than 5,
// the no-argument overload of the original's calculateMaxLevels.
func MaxLevels(width, height int) int {
	w, h := width, height
	levels := 0
	for {
		nw, nh := halfCeil(w), halfCeil(h)
		if nw <= 5 || nh <= 5 {
			return levels
		}
		w, h = nw, nh
		levels++
	}
}

// MaxLevelsROI is the ROI-bounded overload: the same recursion seeded
// from the ROI's own dimensions rather than the full frame's.
func MaxLevelsROI(roi evmtype.ROI) int {
	return MaxLevels(roi.W, roi.H)
}

// MaxLevelsSize is the explicit-size overload used when the caller has
// a target resolution rather than an ROI (e.g. UI level-picker preview).
func MaxLevelsSize(width, height int) int {
	return MaxLevels(width, height)
}
