package pyramid

import "github.com/kujaw077/Reimagining-Breath/pkg/evmtype"

// LaplacianPyramid holds L+1 band-pass levels; level L is the coarsest
// Gaussian level itself rather than a residual.
type LaplacianPyramid struct {
	Levels []evmtype.Frame
}

// BuildLaplacian derives a Laplacian pyramid from an already-built
// Gaussian pyramid: level i<L is G_i minus the upsampled G_{i+1}; level
// L is G_L unchanged.
func BuildLaplacian(g Pyramid) LaplacianPyramid {
	l := len(g.Levels) - 1
	out := LaplacianPyramid{Levels: make([]evmtype.Frame, l+1)}
	for i := 0; i < l; i++ {
		up := Up(g.Levels[i+1], g.Levels[i].Width, g.Levels[i].Height)
		out.Levels[i] = subtract(g.Levels[i], up)
	}
	out.Levels[l] = g.Levels[l]
	return out
}

func subtract(a, b evmtype.Frame) evmtype.Frame {
	out := evmtype.NewFrameF32(a.Width, a.Height, a.Channels, a.ColorSpace)
	for i := range out.Pix32 {
		out.Pix32[i] = a.Pix32[i] - b.Pix32[i]
	}
	return out
}

// CollapseLaplacian reverse-folds the pyramid: x <- upsample(x) +
// laplacian[i] for i = L-1 downto 0, starting from the coarsest level.
func CollapseLaplacian(l LaplacianPyramid) evmtype.Frame {
	top := len(l.Levels) - 1
	cur := l.Levels[top]
	for i := top - 1; i >= 0; i-- {
		up := Up(cur, l.Levels[i].Width, l.Levels[i].Height)
		cur = add(up, l.Levels[i])
	}
	return cur
}

func add(a, b evmtype.Frame) evmtype.Frame {
	out := evmtype.NewFrameF32(a.Width, a.Height, a.Channels, a.ColorSpace)
	for i := range out.Pix32 {
		out.Pix32[i] = a.Pix32[i] + b.Pix32[i]
	}
	return out
}
