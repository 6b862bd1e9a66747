// Package breath implements the post-magnification motion analyzer:
// grayscale diff, blur, threshold, and region extraction yielding a
// single scalar "breath measure" per frame. Grounded on
// Magnificator.cpp's laplaceMagnify() breath block. cv::findContours
// has no corpus equivalent; it is replaced with 8-connected
// connected-component labeling over the same inverted threshold mask,
// which yields the same area/mean-y statistics downstream consumers need.
package breath

import "github.com/kujaw077/Reimagining-Breath/pkg/evmtype"

const (
	dilateKernel  = 2
	thresholdU8   = 20
	maxRegions    = 50
	minRegions    = 7
	blurKernelLen = 5
)

// Analyzer holds no cross-call state of its own; prevFrame tracking is
// the caller's (Magnificator's) responsibility, resolving the
// reference implementation's ambiguous unconditional BGR2GRAY.
type Analyzer struct{}

// NewAnalyzer constructs a breath Analyzer.
func NewAnalyzer() *Analyzer { return &Analyzer{} }

// Compute runs the breath measure pipeline: grayscale+blur both frames,
// abs diff, dilate, threshold+invert, connected-component extraction, and
// the area-sorted mean-y scalar. prevColorSpace tells the analyzer
// whether prevFrame still needs a BGR->gray conversion or is already
// single-channel. It returns the breath scalar and the inverted
// threshold mask (for MagnifiedOrContours=false overlay output).
func (a *Analyzer) Compute(current evmtype.Frame, prevFrame evmtype.Frame, prevColorSpace evmtype.ColorSpace) (float64, evmtype.Frame) {
	curGray := toGrayU8(current)
	var prevGray []uint8
	if prevColorSpace == evmtype.ColorSpaceGray || prevFrame.Channels == 1 {
		prevGray = clonePix8(prevFrame)
	} else {
		prevGray = toGrayU8(prevFrame)
	}

	w, h := current.Width, current.Height
	curBlur := gaussianBlur5(curGray, w, h)
	prevBlur := gaussianBlur5(prevGray, w, h)

	diff := make([]uint8, w*h)
	for i := range diff {
		d := int(curBlur[i]) - int(prevBlur[i])
		if d < 0 {
			d = -d
		}
		diff[i] = uint8(d)
	}

	dilated := dilate(diff, w, h, dilateKernel)

	mask := make([]uint8, w*h)
	for i, v := range dilated {
		if v > thresholdU8 {
			mask[i] = 0 // thresholded-out, then inverted
		} else {
			mask[i] = 255
		}
	}

	regions := connectedComponents(mask, w, h)
	sortByAreaDesc(regions)
	if len(regions) > maxRegions {
		regions = regions[:maxRegions]
	}

	overlay := evmtype.NewFrameU8(w, h, 1)
	copy(overlay.Pix8, mask)

	if len(regions) <= minRegions {
		return 0, overlay
	}

	var sum float64
	for _, r := range regions {
		sum += r.meanY()
	}
	return sum / float64(len(regions)), overlay
}

func clonePix8(f evmtype.Frame) []uint8 {
	out := make([]uint8, len(f.Pix8))
	copy(out, f.Pix8)
	return out
}

func toGrayU8(f evmtype.Frame) []uint8 {
	n := f.Width * f.Height
	out := make([]uint8, n)
	if f.Channels == 1 {
		copy(out, f.Pix8)
		return out
	}
	for i := 0; i < n; i++ {
		b := float64(f.Pix8[i*f.Channels+0])
		g := float64(f.Pix8[i*f.Channels+1])
		r := float64(f.Pix8[i*f.Channels+2])
		y := 0.299*r + 0.587*g + 0.114*b
		out[i] = uint8(y + 0.5)
	}
	return out
}

// gaussianBlur5 applies a separable 5-tap blur over a u8 plane with
// mirrored boundary handling, the same kernel shape pyramid.blur uses.
func gaussianBlur5(src []uint8, w, h int) []uint8 {
	kernel := [5]float64{0.05, 0.25, 0.4, 0.25, 0.05}
	tmp := make([]float64, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var acc float64
			for i := -2; i <= 2; i++ {
				nx := reflectIdx(x+i, w)
				acc += kernel[i+2] * float64(src[y*w+nx])
			}
			tmp[y*w+x] = acc
		}
	}
	out := make([]uint8, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var acc float64
			for j := -2; j <= 2; j++ {
				ny := reflectIdx(y+j, h)
				acc += kernel[j+2] * tmp[ny*w+x]
			}
			v := acc + 0.5
			if v < 0 {
				v = 0
			}
			if v > 255 {
				v = 255
			}
			out[y*w+x] = uint8(v)
		}
	}
	return out
}

func reflectIdx(i, n int) int {
	if i < 0 {
		i = -i
	}
	if i >= n {
		i = 2*n - i - 1
	}
	return i
}

// dilate grows the mask by taking the max over a k x k neighborhood.
func dilate(src []uint8, w, h, k int) []uint8 {
	out := make([]uint8, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var maxV uint8
			for j := 0; j < k; j++ {
				ny := y + j
				if ny >= h {
					continue
				}
				for i := 0; i < k; i++ {
					nx := x + i
					if nx >= w {
						continue
					}
					if v := src[ny*w+nx]; v > maxV {
						maxV = v
					}
				}
			}
			out[y*w+x] = maxV
		}
	}
	return out
}

type region struct {
	area   int
	sumY   int
}

func (r region) meanY() float64 {
	if r.area == 0 {
		return 0
	}
	return float64(r.sumY) / float64(r.area)
}

// connectedComponents labels 8-connected regions of nonzero pixels in
// mask using an iterative flood fill (stack-based, to avoid recursion
// depth issues on large ROIs), mirroring the area + mean-y statistics
// cv::findContours + moments would report.
func connectedComponents(mask []uint8, w, h int) []region {
	visited := make([]bool, w*h)
	var regions []region
	stack := make([]int, 0, 64)

	for start := 0; start < w*h; start++ {
		if mask[start] == 0 || visited[start] {
			continue
		}
		visited[start] = true
		stack = append(stack, start)
		var area, sumY int

		for len(stack) > 0 {
			idx := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			y := idx / w
			x := idx % w
			area++
			sumY += y

			for dy := -1; dy <= 1; dy++ {
				ny := y + dy
				if ny < 0 || ny >= h {
					continue
				}
				for dx := -1; dx <= 1; dx++ {
					if dx == 0 && dy == 0 {
						continue
					}
					nx := x + dx
					if nx < 0 || nx >= w {
						continue
					}
					nidx := ny*w + nx
					if mask[nidx] != 0 && !visited[nidx] {
						visited[nidx] = true
						stack = append(stack, nidx)
					}
				}
			}
		}

		regions = append(regions, region{area: area, sumY: sumY})
	}
	return regions
}

func sortByAreaDesc(regions []region) {
	for i := 1; i < len(regions); i++ {
		for j := i; j > 0 && regions[j-1].area < regions[j].area; j-- {
			regions[j-1], regions[j] = regions[j], regions[j-1]
		}
	}
}
