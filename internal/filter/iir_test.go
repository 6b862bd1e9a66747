package filter

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIIRBandpassConstantSignalStaysNearZero(t *testing.T) {
	seed := []float32{10, 10, 10}
	f := NewIIRBandpass(seed)
	for i := 0; i < 5; i++ {
		out := f.Apply(seed, 0.1, 0.4)
		for _, v := range out {
			require.InDelta(t, 0.0, v, 1e-4)
		}
	}
}

func TestIIRBandpassRespondsToStep(t *testing.T) {
	seed := []float32{0}
	f := NewIIRBandpass(seed)
	step := []float32{1}
	var last float32
	for i := 0; i < 10; i++ {
		out := f.Apply(step, 0.2, 0.45)
		last = out[0]
	}
	require.NotEqual(t, float32(0), last)
}

func TestClampCutoff(t *testing.T) {
	require.Equal(t, float32(0.5), ClampCutoff(10))
	require.Greater(t, ClampCutoff(0), float32(0))
	require.InDelta(t, float64(float32(0.3)), float64(ClampCutoff(0.3)), 1e-6)
}
