package magnify

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kujaw077/Reimagining-Breath/pkg/evmtype"
)

func constantBGRFrame(w, h int, v uint8) evmtype.Frame {
	f := evmtype.NewFrameU8(w, h, 3)
	for i := range f.Pix8 {
		f.Pix8[i] = v
	}
	return f
}

func TestOptimalBufferSizeIsPowerOfTwoAboveFloor(t *testing.T) {
	cases := []struct {
		fps  float32
		want int
	}{
		{fps: 1, want: 16},
		{fps: 8, want: 16},
		{fps: 9, want: 32},
		{fps: 30, want: 64},
		{fps: 60, want: 128},
	}
	for _, c := range cases {
		got := OptimalBufferSize(c.fps)
		require.Equal(t, c.want, got, "fps=%v", c.fps)
		require.Zero(t, got&(got-1), "must be a power of two")
	}
}

func TestMaxLevelsMatchesHalvingRule(t *testing.T) {
	require.Equal(t, 0, MaxLevels(10, 10))
	require.GreaterOrEqual(t, MaxLevels(64, 64), 3)
}

func TestConstantInputColorModeStaysConstant(t *testing.T) {
	mag := New()
	s := DefaultSettings()
	s.Mode = evmtype.ModeColor
	s.Levels = 2
	s.Framerate = 30
	s.Amplification = 10
	s.CoLow = 1.0
	s.CoHigh = 2.0
	roi := evmtype.ROI{W: 32, H: 32}
	require.NoError(t, mag.SetSettings(s, roi))

	for i := 0; i < 20; i++ {
		mag.Push(constantBGRFrame(32, 32, 128))
		mag.Consume()
	}

	require.True(t, mag.HasFrame())
	for mag.HasFrame() {
		f, ok := mag.ExtractFirst()
		require.True(t, ok)
		for _, v := range f.Pix8 {
			require.InDelta(t, 128.0, float64(v), 3.0)
		}
	}
}

func TestConstantInputLaplaceModeFirstFrameUnchanged(t *testing.T) {
	mag := New()
	s := DefaultSettings()
	s.Mode = evmtype.ModeLaplace
	s.Levels = 2
	s.Amplification = 10
	s.CoLow = 0.4
	s.CoHigh = 3.0
	roi := evmtype.ROI{W: 32, H: 32}
	require.NoError(t, mag.SetSettings(s, roi))

	mag.Push(constantBGRFrame(32, 32, 128))
	mag.Consume()

	require.True(t, mag.HasFrame())
	f, ok := mag.ExtractFirst()
	require.True(t, ok)
	for _, v := range f.Pix8 {
		require.Equal(t, uint8(128), v)
	}
	require.Equal(t, 0.0, mag.BreathMeasure())
}

func TestSetSettingsROIChangeResetsState(t *testing.T) {
	mag := New()
	s := DefaultSettings()
	s.Mode = evmtype.ModeLaplace
	s.Levels = 1
	roi := evmtype.ROI{W: 32, H: 32}
	require.NoError(t, mag.SetSettings(s, roi))

	mag.Push(constantBGRFrame(32, 32, 128))
	mag.Consume()
	require.True(t, mag.HasFrame())

	newROI := evmtype.ROI{W: 16, H: 16}
	require.NoError(t, mag.SetSettings(s, newROI))
	require.False(t, mag.HasFrame())
	require.Nil(t, mag.laplace)
}

func TestSetSettingsRejectsInvalidCutoffs(t *testing.T) {
	mag := New()
	s := DefaultSettings()
	s.CoLow = 3.0
	s.CoHigh = 1.0
	roi := evmtype.ROI{W: 32, H: 32}
	err := mag.SetSettings(s, roi)
	require.Error(t, err)
}

func TestSetSettingsRejectsTooSmallROI(t *testing.T) {
	mag := New()
	s := DefaultSettings()
	roi := evmtype.ROI{W: 4, H: 4}
	err := mag.SetSettings(s, roi)
	require.Error(t, err)
}
