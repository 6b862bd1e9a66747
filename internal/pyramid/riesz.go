package pyramid

import (
	"math"

	"github.com/kujaw077/Reimagining-Breath/pkg/evmtype"
)

// RieszLevel holds one level of the quaternionic steerable decomposition:
// the Laplacian band L plus its two approximate-Hilbert Riesz outputs
// R1 (horizontal) and R2 (vertical), such that for amplitude A,
// orientation theta and phase phi: L = A cos(phi), R1 = A sin(phi)
// cos(theta), R2 = A sin(phi) sin(theta).
type RieszLevel struct {
	L, R1, R2 evmtype.Frame
}

// RieszPyramid is a length L+1 sequence of RieszLevels; the coarsest
// level carries a zeroed R1/R2 pair, matching the original's
// per-level-except-last convention.
type RieszPyramid struct {
	Levels []RieszLevel
}

// riesz1D is the three-tap approximate Hilbert kernel from Wadhwa et
// al.'s Riesz pyramid: {0.5, 0, -0.5}.
var riesz1D = [3]float32{0.5, 0, -0.5}

func rieszHorizontal(src evmtype.Frame) evmtype.Frame {
	w, h := src.Width, src.Height
	out := evmtype.NewFrameF32(w, h, 1, src.ColorSpace)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var acc float32
			for i := -1; i <= 1; i++ {
				nx := reflect(x+i, w)
				acc += riesz1D[i+1] * src.Pix32[y*w+nx]
			}
			out.Pix32[y*w+x] = acc
		}
	}
	return out
}

func rieszVertical(src evmtype.Frame) evmtype.Frame {
	w, h := src.Width, src.Height
	out := evmtype.NewFrameF32(w, h, 1, src.ColorSpace)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var acc float32
			for j := -1; j <= 1; j++ {
				ny := reflect(y+j, h)
				acc += riesz1D[j+1] * src.Pix32[ny*w+x]
			}
			out.Pix32[y*w+x] = acc
		}
	}
	return out
}

// BuildRiesz derives a Riesz pyramid from a single-channel (luma)
// frame: a Laplacian pyramid of depth l, with R1/R2 computed for every
// level but the coarsest.
func BuildRiesz(src evmtype.Frame, l int) RieszPyramid {
	lap := BuildLaplacian(BuildGaussian(src, l))
	out := RieszPyramid{Levels: make([]RieszLevel, l+1)}
	for i := 0; i <= l; i++ {
		level := RieszLevel{L: lap.Levels[i]}
		if i < l {
			level.R1 = rieszHorizontal(lap.Levels[i])
			level.R2 = rieszVertical(lap.Levels[i])
		} else {
			level.R1 = evmtype.NewFrameF32(lap.Levels[i].Width, lap.Levels[i].Height, 1, lap.Levels[i].ColorSpace)
			level.R2 = evmtype.NewFrameF32(lap.Levels[i].Width, lap.Levels[i].Height, 1, lap.Levels[i].ColorSpace)
		}
		out.Levels[i] = level
	}
	return out
}

// Amplitude returns A = sqrt(L^2 + R1^2 + R2^2) per pixel.
func Amplitude(lv RieszLevel) []float32 {
	out := make([]float32, len(lv.L.Pix32))
	for i := range out {
		l, r1, r2 := lv.L.Pix32[i], lv.R1.Pix32[i], lv.R2.Pix32[i]
		out[i] = float32(math.Sqrt(float64(l*l + r1*r1 + r2*r2)))
	}
	return out
}

// Orientation returns theta = atan2(R2, R1) per pixel.
func Orientation(lv RieszLevel) []float32 {
	out := make([]float32, len(lv.L.Pix32))
	for i := range out {
		out[i] = float32(math.Atan2(float64(lv.R2.Pix32[i]), float64(lv.R1.Pix32[i])))
	}
	return out
}

// UnwrapOrientPhase computes, for every level but the coarsest, the
// quaternionic phase difference between cur and prev projected onto
// the R1 and R2 axes separately. These horizontal/vertical increments
// are what the Butterworth bandpass filters consume.
func UnwrapOrientPhase(cur, prev RieszPyramid) (diffR1, diffR2 [][]float32) {
	n := len(cur.Levels) - 1
	diffR1 = make([][]float32, n)
	diffR2 = make([][]float32, n)
	for lvl := 0; lvl < n; lvl++ {
		c, p := cur.Levels[lvl], prev.Levels[lvl]
		r1 := make([]float32, len(c.L.Pix32))
		r2 := make([]float32, len(c.L.Pix32))
		for i := range r1 {
			lc, lp := float64(c.L.Pix32[i]), float64(p.L.Pix32[i])
			r1c, r1p := float64(c.R1.Pix32[i]), float64(p.R1.Pix32[i])
			r2c, r2p := float64(c.R2.Pix32[i]), float64(p.R2.Pix32[i])
			r1[i] = float32(math.Atan2(r1c*lp-lc*r1p, lc*lp+r1c*r1p))
			r2[i] = float32(math.Atan2(r2c*lp-lc*r2p, lc*lp+r2c*r2p))
		}
		diffR1[lvl] = r1
		diffR2[lvl] = r2
	}
	return diffR1, diffR2
}

// ApplyPhaseShift rotates every pixel's quaternion at the given level
// by deltaPhi, holding amplitude and orientation fixed:
//
//	L'  = L*cos(dphi)  - sqrt(R1^2+R2^2)*sin(dphi)
//	R1' = R1*cos(dphi) + L*sin(dphi)*cos(theta)
//	R2' = R2*cos(dphi) + L*sin(dphi)*sin(theta)
func ApplyPhaseShift(lv *RieszLevel, deltaPhi []float32) {
	for i := range lv.L.Pix32 {
		l, r1, r2 := lv.L.Pix32[i], lv.R1.Pix32[i], lv.R2.Pix32[i]
		dphi := float64(deltaPhi[i])
		cosD, sinD := math.Cos(dphi), math.Sin(dphi)
		theta := math.Atan2(float64(r2), float64(r1))
		sqrtR := math.Sqrt(float64(r1*r1 + r2*r2))
		lv.L.Pix32[i] = float32(float64(l)*cosD - sqrtR*sinD)
		lv.R1.Pix32[i] = float32(float64(r1)*cosD + float64(l)*sinD*math.Cos(theta))
		lv.R2.Pix32[i] = float32(float64(r2)*cosD + float64(l)*sinD*math.Sin(theta))
	}
}

// CollapseRiesz reconstructs a single-channel frame from the pyramid's
// L planes alone, by the same reverse fold CollapseLaplacian uses; R1
// and R2 only ever feed phase analysis, never reconstruction directly.
func CollapseRiesz(p RieszPyramid) evmtype.Frame {
	planes := make([]evmtype.Frame, len(p.Levels))
	for i, lv := range p.Levels {
		planes[i] = lv.L
	}
	return CollapseLaplacian(LaplacianPyramid{Levels: planes})
}
