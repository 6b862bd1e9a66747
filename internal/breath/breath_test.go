package breath

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kujaw077/Reimagining-Breath/pkg/evmtype"
)

func constantFrame(w, h, c int, v uint8) evmtype.Frame {
	f := evmtype.NewFrameU8(w, h, c)
	for i := range f.Pix8 {
		f.Pix8[i] = v
	}
	return f
}

func TestComputeConstantInputIsZero(t *testing.T) {
	a := NewAnalyzer()
	cur := constantFrame(32, 32, 3, 128)
	prev := constantFrame(32, 32, 3, 128)
	measure, overlay := a.Compute(cur, prev, evmtype.ColorSpaceBGR)
	require.Equal(t, 0.0, measure)
	require.Equal(t, 32, overlay.Width)
	require.Equal(t, 1, overlay.Channels)
}

func TestComputeGrayPrevFrameSkipsConversion(t *testing.T) {
	a := NewAnalyzer()
	cur := constantFrame(16, 16, 1, 100)
	prev := constantFrame(16, 16, 1, 100)
	measure, _ := a.Compute(cur, prev, evmtype.ColorSpaceGray)
	require.Equal(t, 0.0, measure)
}

func TestComputeSmallChangeFewRegionsStaysZero(t *testing.T) {
	a := NewAnalyzer()
	cur := constantFrame(16, 16, 3, 128)
	prev := constantFrame(16, 16, 3, 128)
	// Raising the blue channel of three adjacent pixels shifts their
	// gray value by about 14, which stays under the threshold after
	// blur/dilate, so the mask is one region (<=7) and the measure
	// stays 0.
	for i := 0; i < 3; i++ {
		cur.Pix8[i*3] = 250
	}
	measure, _ := a.Compute(cur, prev, evmtype.ColorSpaceBGR)
	require.Equal(t, 0.0, measure)
}
