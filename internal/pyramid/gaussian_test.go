package pyramid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kujaw077/Reimagining-Breath/pkg/evmtype"
)

func flatFrame(w, h, c int, v float32) evmtype.Frame {
	f := evmtype.NewFrameF32(w, h, c, evmtype.ColorSpaceBGR)
	for i := range f.Pix32 {
		f.Pix32[i] = v
	}
	return f
}

func TestDownPreservesFlatField(t *testing.T) {
	src := flatFrame(32, 24, 3, 0.4)
	down := Down(src)

	assert.Equal(t, 16, down.Width)
	assert.Equal(t, 12, down.Height)
	for _, v := range down.Pix32 {
		assert.InDelta(t, 0.4, v, 1e-4)
	}
}

func TestUpPreservesFlatField(t *testing.T) {
	src := flatFrame(16, 12, 1, 0.7)
	up := Up(src, 32, 24)

	require.Equal(t, 32, up.Width)
	require.Equal(t, 24, up.Height)
	for _, v := range up.Pix32 {
		assert.InDelta(t, 0.7, v, 1e-3)
	}
}

func TestMaxLevels(t *testing.T) {
	cases := []struct {
		w, h, want int
	}{
		{256, 256, 5},
		{64, 64, 3},
		{10, 10, 0},
		{6, 6, 0},
	}
	for _, c := range cases {
		got := MaxLevels(c.w, c.h)
		assert.Equalf(t, c.want, got, "MaxLevels(%d,%d)", c.w, c.h)
	}
}

func TestBuildGaussianLevelCount(t *testing.T) {
	src := flatFrame(64, 64, 3, 0.1)
	p := BuildGaussian(src, 4)
	require.Len(t, p.Levels, 5)
	assert.Equal(t, 64, p.Levels[0].Width)
	assert.Equal(t, 4, p.Levels[4].Width)
}

func TestCollapseGaussianRestoresSize(t *testing.T) {
	src := flatFrame(60, 40, 1, 0.25)
	p := BuildGaussian(src, 3)
	out := CollapseGaussian(p.Levels[3], src.Width, src.Height)

	assert.Equal(t, src.Width, out.Width)
	assert.Equal(t, src.Height, out.Height)
	for _, v := range out.Pix32 {
		assert.InDelta(t, 0.25, v, 5e-2)
	}
}

func TestReflectBoundary(t *testing.T) {
	assert.Equal(t, 1, reflect(-1, 10))
	assert.Equal(t, 0, reflect(0, 10))
	assert.Equal(t, 9, reflect(10, 10))
	assert.Equal(t, 8, reflect(11, 10))
}
